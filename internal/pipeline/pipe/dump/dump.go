// Package dump runs Il2CppDumper on the staged inputs.
package dump

import (
	"path/filepath"

	"github.com/blacktop/il2cpp-decompile/internal/commands/il2cppdumper"
	"github.com/blacktop/il2cpp-decompile/internal/commands/tool"
	"github.com/blacktop/il2cpp-decompile/internal/pipeline/context"
	"github.com/blacktop/il2cpp-decompile/internal/toolchain"
)

// Pipe that dumps the IL2CPP metadata.
type Pipe struct{}

func (Pipe) String() string { return "dumping il2cpp metadata" }
func (Pipe) Skip(ctx *context.Context) bool {
	return ctx.NoTarget() || ctx.Project.Cached
}

// Run the pipe.
func (Pipe) Run(ctx *context.Context) error {
	exe, err := ctx.Toolchain.Ensure(ctx, toolchain.Dumper)
	if err != nil {
		return err
	}
	if _, err := il2cppdumper.PatchConfig(filepath.Dir(exe)); err != nil {
		return err
	}

	_, err = tool.Run(ctx, ctx.Runner, il2cppdumper.NewInvocation(&il2cppdumper.Config{
		Executable: exe,
		Binary:     ctx.Staged.Binary,
		Metadata:   ctx.Staged.Metadata,
		OutputDir:  ctx.Project.WorkDir,
	}))
	return err
}
