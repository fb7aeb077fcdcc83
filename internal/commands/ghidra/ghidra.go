// Package ghidra drives Ghidra through its pyghidraRun launcher.
package ghidra

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/blacktop/il2cpp-decompile/internal/commands/tool"
)

// ParseHeaderScript is the bundled post-script loading a C header as data types.
const ParseHeaderScript = "parse_header.py"

//go:embed scripts/*.py
var scripts embed.FS

// Script is a post-import script and its arguments.
type Script struct {
	Name string
	Args []string
}

// Config of a Ghidra run.
type Config struct {
	// Launcher is the pyghidraRun script of the Ghidra installation.
	Launcher string
	// JavaHome is exported as JAVA_HOME.
	JavaHome string
	// Env is appended to the launcher's environment (managed runtime).
	Env []string

	// Headless runs an import without the UI.
	Headless    bool
	ProjectDir  string
	ProjectName string
	Import      string
	Overwrite   bool
	ScriptPaths []string
	PostScripts []Script

	// Project is opened in the UI when not headless; empty opens Ghidra with no project.
	Project string
}

// NewInvocation builds the launcher command line for conf.
func NewInvocation(conf *Config) (*tool.Invocation, error) {
	inv := &tool.Invocation{
		Name: "Ghidra",
		Path: conf.Launcher,
		Env:  append([]string{"JAVA_HOME=" + conf.JavaHome}, conf.Env...),
	}

	if !conf.Headless {
		inv.Interactive = true
		if conf.Project != "" {
			inv.Args = []string{conf.Project}
		}
		return inv, nil
	}

	if conf.ProjectDir == "" || conf.ProjectName == "" {
		return nil, fmt.Errorf("headless run requires a project directory and name")
	}
	if conf.Import == "" {
		return nil, fmt.Errorf("headless run requires a file to import")
	}

	// analyzeHeadless <project_location> <project_name> -import <file> ...
	args := []string{"--headless", conf.ProjectDir, conf.ProjectName, "-import", conf.Import}
	if conf.Overwrite {
		args = append(args, "-overwrite")
	}
	if len(conf.ScriptPaths) > 0 {
		// Ghidra separates script directories with ';' on every platform
		args = append(args, "-scriptPath", strings.Join(conf.ScriptPaths, ";"))
	}
	for _, s := range conf.PostScripts {
		args = append(args, "-postScript", s.Name)
		args = append(args, s.Args...)
	}
	inv.Args = args
	return inv, nil
}

// WriteScripts materializes the bundled Ghidra scripts into dir.
func WriteScripts(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return fs.WalkDir(scripts, "scripts", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := scripts.ReadFile(path)
		if err != nil {
			return err
		}
		dst := filepath.Join(dir, d.Name())
		if existing, err := os.ReadFile(dst); err == nil && string(existing) == string(data) {
			return nil
		}
		return os.WriteFile(dst, data, 0o644)
	})
}
