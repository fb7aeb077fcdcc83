// Package workdir fingerprints the game binary and looks up its cached project.
package workdir

import (
	"fmt"

	"github.com/apex/log"
	"github.com/blacktop/il2cpp-decompile/internal/cache"
	"github.com/blacktop/il2cpp-decompile/internal/fingerprint"
	"github.com/blacktop/il2cpp-decompile/internal/pipeline/context"
	"github.com/blacktop/il2cpp-decompile/internal/utils"
)

// Pipe resolves the work directory of the game binary.
type Pipe struct{}

func (Pipe) String() string                 { return "checking cache" }
func (Pipe) Skip(ctx *context.Context) bool { return ctx.NoTarget() }

// Run the pipe.
func (Pipe) Run(ctx *context.Context) error {
	digest, err := fingerprint.File(ctx.Game.Binary)
	if err != nil {
		return err
	}
	dir, err := ctx.Cache.WorkDir(digest)
	if err != nil {
		return err
	}
	cached, err := cache.HasProject(dir, ctx.Game.Name)
	if err != nil {
		return fmt.Errorf("failed to check for project in %s: %w", dir, err)
	}

	ctx.Project.Fingerprint = digest
	ctx.Project.WorkDir = dir
	ctx.Project.File = cache.ProjectFile(dir, ctx.Game.Name)

	l := log.WithFields(log.Fields{"fingerprint": digest.String(), "dir": dir})
	switch {
	case cached && ctx.Config.Force:
		utils.Indent(l.Warn, 2)("Found project, re-running analysis (--force)")
	case cached:
		ctx.Project.Cached = true
		utils.Indent(l.Info, 2)("Found project")
	default:
		utils.Indent(l.Info, 2)("Work directory")
	}
	return nil
}
