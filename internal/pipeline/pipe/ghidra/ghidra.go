// Package ghidra contains the Ghidra pipes: the headless import and the
// interactive reopen of the project.
package ghidra

import (
	"fmt"
	"path/filepath"

	"github.com/apex/log"
	"github.com/blacktop/il2cpp-decompile/internal/cache"
	"github.com/blacktop/il2cpp-decompile/internal/commands/ghidra"
	"github.com/blacktop/il2cpp-decompile/internal/commands/il2cppdumper"
	"github.com/blacktop/il2cpp-decompile/internal/commands/tool"
	"github.com/blacktop/il2cpp-decompile/internal/pipeline/context"
	"github.com/blacktop/il2cpp-decompile/internal/toolchain"
	"github.com/blacktop/il2cpp-decompile/internal/utils"
)

// Import runs the headless import of the staged binary.
type Import struct{}

func (Import) String() string { return "importing into ghidra" }
func (Import) Skip(ctx *context.Context) bool {
	return ctx.NoTarget() || ctx.Project.Cached
}

// Run the pipe.
func (Import) Run(ctx *context.Context) error {
	conf, err := newConfig(ctx)
	if err != nil {
		return err
	}
	dumper, err := ctx.Toolchain.Ensure(ctx, toolchain.Dumper)
	if err != nil {
		return err
	}
	scripts := ctx.Config.ScriptsDir()
	if err := ghidra.WriteScripts(scripts); err != nil {
		return fmt.Errorf("failed to write ghidra scripts: %w", err)
	}

	workDir := ctx.Project.WorkDir
	conf.Headless = true
	conf.ProjectDir = workDir
	conf.ProjectName = ctx.Game.Name
	conf.Import = ctx.Staged.Binary
	conf.Overwrite = true
	conf.ScriptPaths = []string{scripts, filepath.Dir(dumper)}
	conf.PostScripts = []ghidra.Script{
		{Name: ghidra.ParseHeaderScript, Args: []string{filepath.Join(workDir, il2cppdumper.HeaderName)}},
		{Name: il2cppdumper.StructScript, Args: []string{filepath.Join(workDir, il2cppdumper.ScriptJSONName)}},
	}
	if err := run(ctx, conf); err != nil {
		return err
	}

	if !utils.Exists(ctx.Project.File) {
		return fmt.Errorf("ghidra finished but did not create %s", ctx.Project.File)
	}
	if err := cache.WriteManifest(workDir, &cache.Manifest{
		Fingerprint: ctx.Project.Fingerprint.String(),
		Game:        ctx.Game.Name,
		Binary:      ctx.Game.Binary,
		Metadata:    ctx.Game.Metadata,
		Created:     ctx.Date,
	}); err != nil {
		log.WithError(err).Warn("failed to write manifest")
	}
	utils.Indent(log.WithField("project", ctx.Project.File).Info, 2)("Imported")
	return nil
}

// Open launches Ghidra on the project, or on no project when no target was
// given. It always runs.
type Open struct{}

func (Open) String() string { return "opening ghidra" }

// Run the pipe.
func (Open) Run(ctx *context.Context) error {
	conf, err := newConfig(ctx)
	if err != nil {
		return err
	}
	if ctx.Project.File != "" {
		conf.Project = ctx.Project.File
		utils.Indent(log.WithField("project", conf.Project).Info, 2)("Opening")
	}
	return run(ctx, conf)
}

func newConfig(ctx *context.Context) (*ghidra.Config, error) {
	// JAVA_HOME must point at a JDK before Ghidra can start
	java, err := ctx.Toolchain.Ensure(ctx, toolchain.JDK)
	if err != nil {
		return nil, err
	}
	launcher, err := ctx.Toolchain.Ensure(ctx, toolchain.Ghidra)
	if err != nil {
		return nil, err
	}
	return &ghidra.Config{
		Launcher: launcher,
		JavaHome: toolchain.JavaHome(java),
		Env:      ctx.Python.Vars(),
	}, nil
}

func run(ctx *context.Context, conf *ghidra.Config) error {
	inv, err := ghidra.NewInvocation(conf)
	if err != nil {
		return err
	}
	_, err = tool.Run(ctx, ctx.Runner, inv)
	return err
}
