package toolchain

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/apex/log"
	"github.com/blacktop/il2cpp-decompile/internal/config"
	"github.com/blacktop/il2cpp-decompile/internal/download"
	"github.com/blacktop/il2cpp-decompile/internal/utils"
	semver "github.com/hashicorp/go-version"
)

// Tool names.
const (
	Dumper    = "Il2CppDumper"
	Converter = "il2cpp_header_to_ghidra"
	JDK       = "JDK"
	Ghidra    = "Ghidra"
)

// Names lists the tools in the order the pipeline needs them.
var Names = []string{Dumper, Converter, JDK, Ghidra}

// Tool describes how to find and how to install one toolchain entry.
type Tool struct {
	Name    string
	Pattern string
	URL     string
	URLKey  string
	// Subdir is the folder of the apps directory the archive is extracted
	// into; empty for archives that already nest under a versioned folder.
	Subdir string
}

// Tools returns the toolchain described by conf and the download URLs.
func Tools(p config.Patterns, d *config.Downloads) []Tool {
	return []Tool{
		{Name: Dumper, Pattern: p.Dumper, URL: d.Dumper, URLKey: config.EnvDumperURL, Subdir: Dumper},
		{Name: Converter, Pattern: p.Converter, URL: d.Dumper, URLKey: config.EnvDumperURL, Subdir: Dumper},
		{Name: JDK, Pattern: p.Java, URL: d.JDK, URLKey: config.EnvJDKURL},
		{Name: Ghidra, Pattern: p.Ghidra, URL: d.Ghidra, URLKey: config.EnvGhidraURL},
	}
}

// Manager locates tools under AppsDir and installs them with Acquirer when missing.
type Manager struct {
	AppsDir  string
	Acquirer download.Acquirer
	Choose   Chooser

	tools map[string]Tool
}

// NewManager creates a toolchain manager.
func NewManager(appsDir string, tools []Tool, acquirer download.Acquirer, choose Chooser) *Manager {
	m := &Manager{
		AppsDir:  appsDir,
		Acquirer: acquirer,
		Choose:   choose,
		tools:    make(map[string]Tool, len(tools)),
	}
	for _, t := range tools {
		m.tools[t.Name] = t
	}
	return m
}

// Tool returns the definition of the named tool.
func (m *Manager) Tool(name string) (Tool, error) {
	t, ok := m.tools[name]
	if !ok {
		return Tool{}, fmt.Errorf("unknown tool %s", name)
	}
	return t, nil
}

// Find locates an installed tool without installing it.
func (m *Manager) Find(name string) (string, error) {
	t, err := m.Tool(name)
	if err != nil {
		return "", err
	}
	return Locate(m.AppsDir, t.Pattern, t.Name, m.Choose)
}

// Ensure returns the path of the named tool, installing it first if it is
// missing. A missing download URL is reported before any network access.
func (m *Manager) Ensure(ctx context.Context, name string) (string, error) {
	path, err := m.Find(name)
	if err == nil {
		return path, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	t := m.tools[name]
	if t.URL == "" {
		return "", &config.MissingURLError{Tool: t.Name, Key: t.URLKey}
	}
	if m.Acquirer == nil {
		return "", fmt.Errorf("%s is not installed and no downloader is configured", t.Name)
	}

	log.WithField("tool", t.Name).Info("Installing")
	if err := m.Acquirer.Acquire(ctx, t.URL, t.Subdir); err != nil {
		return "", fmt.Errorf("failed to install %s: %w", t.Name, err)
	}

	path, err = m.Find(name)
	if err != nil {
		return "", fmt.Errorf("%s installed from %s but %w", t.Name, t.URL, err)
	}
	utils.Indent(log.WithField("path", path).Info, 2)("Installed")
	return path, nil
}

// Installation is one installed copy of a tool.
type Installation struct {
	Tool    string
	Path    string
	Version *semver.Version
}

var versionRe = regexp.MustCompile(`\d+(?:\.\d+)+(?:\+\d+)?`)

// versionOf extracts a version from the top level folder of an installation.
func versionOf(appsDir, path string) *semver.Version {
	rel, err := filepath.Rel(appsDir, path)
	if err != nil {
		return nil
	}
	top, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
	m := versionRe.FindString(top)
	if m == "" {
		return nil
	}
	v, err := semver.NewVersion(m)
	if err != nil {
		return nil
	}
	return v
}

// Installed lists every installation of every tool, including ambiguous ones.
func (m *Manager) Installed() ([]Installation, error) {
	var out []Installation
	for _, name := range Names {
		t, ok := m.tools[name]
		if !ok {
			continue
		}
		matches, err := Glob(m.AppsDir, t.Pattern)
		if err != nil {
			return nil, err
		}
		for _, path := range matches {
			out = append(out, Installation{Tool: name, Path: path, Version: versionOf(m.AppsDir, path)})
		}
	}
	return out, nil
}

// JavaHome returns the JDK home directory of a java executable (<home>/bin/java).
func JavaHome(java string) string {
	return filepath.Dir(filepath.Dir(java))
}
