// Package tool runs delegated external tools and reports their exit status.
package tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/apex/log"
	"github.com/blacktop/il2cpp-decompile/internal/utils"
)

// maxOutput is how much of a tool's output is kept for error reports.
const maxOutput = 64 * 1024

// Invocation is a single blocking run of an external tool.
type Invocation struct {
	Name string
	Path string
	Args []string
	Dir  string
	// Env is appended to the current process environment.
	Env []string
	// Interactive tools inherit stdin and are not expected to exit quickly.
	Interactive bool
}

func (i *Invocation) String() string {
	return strings.Join(append([]string{i.Path}, i.Args...), " ")
}

// Result is the outcome of an Invocation that ran to completion.
type Result struct {
	ExitCode int
	Output   []byte
}

// ExitError is returned for a tool that exited with a non-zero code.
type ExitError struct {
	Tool   string
	Code   int
	Output []byte
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Tool, e.Code)
}

// ExitCode returns the code the tool exited with.
func (e *ExitError) ExitCode() int {
	return e.Code
}

// Runner executes invocations.
type Runner interface {
	Run(ctx context.Context, inv *Invocation) (*Result, error)
}

// Check turns a non-zero Result into an *ExitError.
func Check(inv *Invocation, res *Result) error {
	if res.ExitCode != 0 {
		return &ExitError{Tool: inv.Name, Code: res.ExitCode, Output: res.Output}
	}
	return nil
}

// Run executes inv with r and fails on a non-zero exit code.
func Run(ctx context.Context, r Runner, inv *Invocation) (*Result, error) {
	res, err := r.Run(ctx, inv)
	if err != nil {
		return nil, err
	}
	return res, Check(inv, res)
}

// ExecRunner runs invocations as child processes, streaming their output to
// Stdout/Stderr while keeping the tail of it.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecRunner returns a runner attached to the process' standard streams.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr}
}

func (r *ExecRunner) Run(ctx context.Context, inv *Invocation) (*Result, error) {
	cmd := exec.CommandContext(ctx, inv.Path, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Env = append(os.Environ(), inv.Env...)
	if inv.Interactive {
		cmd.Stdin = os.Stdin
	}

	tail := &tailBuffer{max: maxOutput}
	cmd.Stdout = io.MultiWriter(orDiscard(r.Stdout), tail)
	cmd.Stderr = io.MultiWriter(orDiscard(r.Stderr), tail)

	utils.Indent(log.WithField("dir", inv.Dir).Debug, 2)(inv.String())

	err := cmd.Run()
	res := &Result{Output: tail.Bytes()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s interrupted: %w", inv.Name, ctx.Err())
		}
		return nil, fmt.Errorf("failed to run %s: %w", inv.Name, err)
	}
	return res, nil
}

func orDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(p)
	if len(p) >= t.max {
		t.buf.Reset()
		t.buf.Write(p[len(p)-t.max:])
		return n, nil
	}
	if over := t.buf.Len() + len(p) - t.max; over > 0 {
		t.buf.Next(over)
	}
	t.buf.Write(p)
	return n, nil
}

func (t *tailBuffer) Bytes() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]byte(nil), t.buf.Bytes()...)
}
