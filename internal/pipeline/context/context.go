// Package context provides the il2cpp-decompile context which is passed
// through the pipeline.
//
// The context extends the standard library context and add a few more
// fields, so pipes can gather data provided by previous pipes without really
// knowing each other.
package context

import (
	stdctx "context"
	"time"

	"github.com/blacktop/il2cpp-decompile/internal/cache"
	"github.com/blacktop/il2cpp-decompile/internal/commands/tool"
	"github.com/blacktop/il2cpp-decompile/internal/config"
	"github.com/blacktop/il2cpp-decompile/internal/fingerprint"
	"github.com/blacktop/il2cpp-decompile/internal/toolchain"
	"github.com/blacktop/il2cpp-decompile/internal/venv"
)

// Context carries along some data through the pipes.
type Context struct {
	stdctx.Context
	Config *config.Config
	Date   time.Time

	// Target is the game directory or GameAssembly.dll given on the command
	// line; empty when the decompiler should be opened without a project.
	Target string

	Runner    tool.Runner
	Toolchain *toolchain.Manager
	Cache     *cache.Cache
	// Python is the managed runtime the delegated tools run in.
	Python *venv.Env

	Game    Game
	Staged  Inputs
	Project Project
}

// Game is the resolved target.
type Game struct {
	Dir  string
	Name string
	Inputs
}

// Inputs are the two files the dumper consumes.
type Inputs struct {
	Binary   string
	Metadata string
}

// Project is the cache entry of the target.
type Project struct {
	Fingerprint fingerprint.Digest
	WorkDir     string
	File        string
	// Cached is set when a previous run already produced File.
	Cached bool
}

// New context.
func New(conf *config.Config) *Context {
	return Wrap(stdctx.Background(), conf)
}

// Wrap wraps an existing context.
func Wrap(ctx stdctx.Context, conf *config.Config) *Context {
	return &Context{
		Context: ctx,
		Config:  conf,
		Date:    time.Now(),
	}
}

// NoTarget reports whether the run only opens the decompiler.
func (ctx *Context) NoTarget() bool {
	return ctx.Target == ""
}
