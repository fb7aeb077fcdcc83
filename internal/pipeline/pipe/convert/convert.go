// Package convert turns the dumped header into one Ghidra can parse.
package convert

import (
	"errors"

	"github.com/blacktop/il2cpp-decompile/internal/commands/il2cppdumper"
	"github.com/blacktop/il2cpp-decompile/internal/commands/tool"
	"github.com/blacktop/il2cpp-decompile/internal/pipeline/context"
	"github.com/blacktop/il2cpp-decompile/internal/toolchain"
)

// Pipe that runs il2cpp_header_to_ghidra.py in the work directory.
type Pipe struct{}

func (Pipe) String() string { return "converting header" }
func (Pipe) Skip(ctx *context.Context) bool {
	return ctx.NoTarget() || ctx.Project.Cached
}

// Run the pipe.
func (Pipe) Run(ctx *context.Context) error {
	if ctx.Python == nil {
		return errors.New("managed python runtime is not provisioned")
	}
	script, err := ctx.Toolchain.Ensure(ctx, toolchain.Converter)
	if err != nil {
		return err
	}
	_, err = tool.Run(ctx, ctx.Runner, il2cppdumper.NewConverterInvocation(&il2cppdumper.ConverterConfig{
		Python:  ctx.Python.Python,
		Script:  script,
		WorkDir: ctx.Project.WorkDir,
		Env:     ctx.Python.Vars(),
	}))
	return err
}
