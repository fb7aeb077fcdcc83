// Package pipeline runs the pipes turning a game directory into an opened
// Ghidra project.
package pipeline

import (
	"fmt"

	"github.com/blacktop/il2cpp-decompile/internal/pipeline/context"
	"github.com/blacktop/il2cpp-decompile/internal/pipeline/middleware/errhandler"
	"github.com/blacktop/il2cpp-decompile/internal/pipeline/middleware/logging"
	"github.com/blacktop/il2cpp-decompile/internal/pipeline/middleware/skip"
	"github.com/blacktop/il2cpp-decompile/internal/pipeline/pipe/convert"
	"github.com/blacktop/il2cpp-decompile/internal/pipeline/pipe/dump"
	"github.com/blacktop/il2cpp-decompile/internal/pipeline/pipe/ghidra"
	"github.com/blacktop/il2cpp-decompile/internal/pipeline/pipe/resolve"
	"github.com/blacktop/il2cpp-decompile/internal/pipeline/pipe/stage"
	"github.com/blacktop/il2cpp-decompile/internal/pipeline/pipe/workdir"
	"github.com/blacktop/il2cpp-decompile/internal/venv"
)

// Job defines a pipe, which can be part of a pipeline (a series of pipes).
type Job interface {
	fmt.Stringer

	// Run the pipe
	Run(ctx *context.Context) error
}

// Pipeline contains all pipes in the order they run. Each pipe reads what
// the previous ones stored in the context.
var Pipeline = []Job{
	resolve.Pipe{},  // find GameAssembly.dll and global-metadata.dat
	workdir.Pipe{},  // fingerprint the binary and check for a cached project
	stage.Pipe{},    // copy the inputs into the work directory
	dump.Pipe{},     // Il2CppDumper
	convert.Pipe{},  // il2cpp_header_to_ghidra.py
	ghidra.Import{}, // headless import with the header and struct post-scripts
	ghidra.Open{},   // hand the project over to the user
}

// Run runs every pipe of the pipeline in order, stopping at the first error.
func Run(ctx *context.Context) error {
	for _, job := range Pipeline {
		if err := skip.Maybe(
			job,
			logging.Log(
				job.String(),
				errhandler.Handle(job.Run),
			),
		)(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Execute provisions the managed python runtime and then runs the pipeline
// with it.
func Execute(ctx *context.Context, prov venv.Provisioner) error {
	env, err := prov.Ensure(ctx)
	if err != nil {
		return err
	}
	ctx.Python = env
	return Run(ctx)
}
