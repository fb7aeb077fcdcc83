// Package venv provisions the managed Python runtime the delegated tools run in.
package venv

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/apex/log"
	"github.com/blacktop/il2cpp-decompile/internal/commands/tool"
	"github.com/blacktop/il2cpp-decompile/internal/utils"
)

// RequirementsName is written into the environment directory before installing.
const RequirementsName = "requirements.txt"

//go:embed requirements.txt
var requirements []byte

// Env is a handle to a provisioned managed runtime.
type Env struct {
	Dir    string
	Python string
}

// BinDir is the directory holding the environment's executables.
func (e *Env) BinDir() string {
	return filepath.Dir(e.Python)
}

// Vars returns the environment variables activating e for a child process.
func (e *Env) Vars() []string {
	if e == nil || e.Dir == "" {
		return nil
	}
	path := e.BinDir()
	if cur := os.Getenv("PATH"); cur != "" {
		path += string(os.PathListSeparator) + cur
	}
	return []string{
		"VIRTUAL_ENV=" + e.Dir,
		"PATH=" + path,
		"PYTHONNOUSERSITE=1",
	}
}

// Provisioner returns a ready-to-use managed runtime.
type Provisioner interface {
	Ensure(ctx context.Context) (*Env, error)
}

// Manager provisions a virtual environment at Dir from the Base interpreter.
type Manager struct {
	Dir string
	// Python is the interpreter path relative to Dir.
	Python string
	// Base is the interpreter used to create the environment.
	Base   string
	Runner tool.Runner
}

// Active reports whether the current process already runs inside the managed runtime.
func (m *Manager) Active() bool {
	active := os.Getenv("VIRTUAL_ENV")
	if active == "" {
		return false
	}
	a, err1 := filepath.Abs(active)
	b, err2 := filepath.Abs(m.Dir)
	if err1 != nil || err2 != nil {
		return false
	}
	if runtime.GOOS == "windows" {
		return strings.EqualFold(a, b)
	}
	return a == b
}

func (m *Manager) env() *Env {
	return &Env{Dir: m.Dir, Python: filepath.Join(m.Dir, filepath.FromSlash(m.Python))}
}

// Ensure returns the managed runtime, creating it when its interpreter is
// missing. A partial environment is removed before creating a new one, and
// again when any provisioning step fails.
func (m *Manager) Ensure(ctx context.Context) (*Env, error) {
	env := m.env()
	if m.Active() {
		log.WithField("dir", m.Dir).Debug("already running inside the managed runtime")
		return env, nil
	}
	if _, err := os.Stat(env.Python); err == nil {
		return env, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	if m.Base == "" {
		return nil, fmt.Errorf("no python interpreter found to create %s: install python 3 or set --python", m.Dir)
	}

	log.WithField("dir", m.Dir).Info("Creating managed python environment")
	if err := os.RemoveAll(m.Dir); err != nil {
		return nil, fmt.Errorf("failed to remove partial environment %s: %w", m.Dir, err)
	}
	if err := m.provision(ctx, env); err != nil {
		if rmErr := os.RemoveAll(m.Dir); rmErr != nil {
			log.WithError(rmErr).Error("failed to remove partial environment")
		}
		return nil, fmt.Errorf("failed to provision %s: %w", m.Dir, err)
	}
	return env, nil
}

func (m *Manager) provision(ctx context.Context, env *Env) error {
	reqs := filepath.Join(m.Dir, RequirementsName)
	steps := []struct {
		desc string
		inv  *tool.Invocation
	}{
		{"creating virtual environment", &tool.Invocation{Name: "venv", Path: m.Base, Args: []string{"-m", "venv", m.Dir}}},
		{"upgrading pip", &tool.Invocation{Name: "pip", Path: env.Python, Args: []string{"-m", "pip", "install", "-U", "pip"}}},
		{"installing requirements", &tool.Invocation{Name: "pip", Path: env.Python, Args: []string{"-m", "pip", "install", "-r", reqs}}},
	}
	for i, step := range steps {
		utils.Indent(log.Info, 2)(step.desc)
		if _, err := tool.Run(ctx, m.Runner, step.inv); err != nil {
			return err
		}
		if i == 0 {
			if err := os.WriteFile(reqs, requirements, 0o644); err != nil {
				return err
			}
		}
	}
	return nil
}

// Static is a Provisioner returning a fixed environment.
type Static struct {
	Env *Env
}

func (s Static) Ensure(context.Context) (*Env, error) {
	if s.Env == nil {
		return &Env{}, nil
	}
	return s.Env, nil
}
