// Package stage copies the game inputs into the work directory.
package stage

import (
	"fmt"
	"path/filepath"

	"github.com/apex/log"
	"github.com/blacktop/il2cpp-decompile/internal/pipeline/context"
	"github.com/blacktop/il2cpp-decompile/internal/utils"
	"github.com/dustin/go-humanize"
)

// Pipe stages the binary and metadata keeping their path relative to the
// game directory's parent, so the dumper output lands next to them.
type Pipe struct{}

func (Pipe) String() string { return "staging inputs" }
func (Pipe) Skip(ctx *context.Context) bool {
	return ctx.NoTarget() || ctx.Project.Cached
}

// Run the pipe.
func (Pipe) Run(ctx *context.Context) error {
	var err error
	if ctx.Staged.Binary, err = stage(ctx, ctx.Game.Binary); err != nil {
		return err
	}
	if ctx.Staged.Metadata, err = stage(ctx, ctx.Game.Metadata); err != nil {
		return err
	}
	return nil
}

// Destination returns where src is staged inside workDir.
func Destination(workDir, gameDir, src string) (string, error) {
	rel, err := filepath.Rel(filepath.Dir(gameDir), src)
	if err != nil {
		return "", fmt.Errorf("failed to stage %s: %w", src, err)
	}
	return filepath.Join(workDir, rel), nil
}

func stage(ctx *context.Context, src string) (string, error) {
	dst, err := Destination(ctx.Project.WorkDir, ctx.Game.Dir, src)
	if err != nil {
		return "", err
	}
	n, err := utils.CopyFile(src, dst)
	if err != nil {
		return "", fmt.Errorf("failed to stage %s: %w", src, err)
	}
	utils.Indent(log.WithField("size", humanize.Bytes(uint64(n))).Info, 2)(dst)
	return dst, nil
}
