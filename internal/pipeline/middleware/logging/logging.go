// Package logging logs the start of every pipe and indents what it logs.
package logging

import (
	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/blacktop/il2cpp-decompile/internal/colors"
	"github.com/blacktop/il2cpp-decompile/internal/pipeline/context"
	"github.com/blacktop/il2cpp-decompile/internal/pipeline/middleware"
)

// DefaultInitialPadding is the default padding in the log library.
const DefaultInitialPadding = 3

// ExtraPadding is the double of the DefaultInitialPadding.
const ExtraPadding = DefaultInitialPadding * 2

// Log pretty prints the given action and its title.
func Log(title string, next middleware.Action) middleware.Action {
	return func(ctx *context.Context) error {
		defer func() {
			cli.Default.Padding = DefaultInitialPadding
		}()
		cli.Default.Padding = DefaultInitialPadding
		log.Info(colors.Bold().Sprint(title))
		cli.Default.Padding = ExtraPadding
		return next(ctx)
	}
}
