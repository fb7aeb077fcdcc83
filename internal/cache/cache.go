// Package cache maps target binaries to persistent work directories keyed by
// their content fingerprint.
package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/blacktop/il2cpp-decompile/internal/fingerprint"
	yaml "gopkg.in/yaml.v3"
)

const (
	// ProjectExt is the extension of the project marker file.
	ProjectExt = ".gpr"
	// ManifestName is the name of the descriptive manifest kept in every work directory.
	ManifestName = "il2cpp-decompile.yaml"

	defaultDirPerm = 0o755
)

// Cache is a tree of work directories rooted at Root.
type Cache struct {
	Root string
}

// New returns a cache rooted at root. The root is created lazily.
func New(root string) (*Cache, error) {
	if root == "" {
		return nil, errors.New("cache root is empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path of %s: %w", root, err)
	}
	return &Cache{Root: abs}, nil
}

// WorkDir returns the work directory for digest, creating it (and its
// parents) if needed. Calling it repeatedly is safe.
func (c *Cache) WorkDir(digest fingerprint.Digest) (string, error) {
	dir := filepath.Join(c.Root, digest.String())
	if err := os.MkdirAll(dir, defaultDirPerm); err != nil {
		return "", fmt.Errorf("failed to create work directory %s: %w", dir, err)
	}
	return dir, nil
}

// ProjectFile returns the path of the project marker for a binary named name.
func ProjectFile(workDir, name string) string {
	return filepath.Join(workDir, name+ProjectExt)
}

// HasProject reports whether the project marker for name exists in workDir.
func HasProject(workDir, name string) (bool, error) {
	_, err := os.Stat(ProjectFile(workDir, name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Manifest describes what a work directory was created from.
type Manifest struct {
	Fingerprint string    `yaml:"fingerprint"`
	Game        string    `yaml:"game"`
	Binary      string    `yaml:"binary"`
	Metadata    string    `yaml:"metadata,omitempty"`
	Created     time.Time `yaml:"created"`
}

// WriteManifest writes m into workDir.
func WriteManifest(workDir string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(workDir, ManifestName), data, 0o644)
}

// ReadManifest reads the manifest of workDir.
func ReadManifest(workDir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(workDir, ManifestName))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ManifestName, err)
	}
	return &m, nil
}

// Entry is a single work directory found in the cache.
type Entry struct {
	Fingerprint string
	Dir         string
	Projects    []string
	Manifest    *Manifest
	Size        int64
	ModTime     time.Time
}

// Complete reports whether the entry holds at least one project marker.
func (e Entry) Complete() bool {
	return len(e.Projects) > 0
}

// List returns all work directories under the cache root sorted by fingerprint.
// A missing root yields no entries.
func (c *Cache) List() ([]Entry, error) {
	dirs, err := os.ReadDir(c.Root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var entries []Entry
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		if _, err := fingerprint.Parse(d.Name()); err != nil {
			continue
		}
		e, err := c.entry(d.Name())
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Fingerprint < entries[j].Fingerprint
	})
	return entries, nil
}

func (c *Cache) entry(name string) (*Entry, error) {
	e := &Entry{Fingerprint: name, Dir: filepath.Join(c.Root, name)}
	info, err := os.Stat(e.Dir)
	if err != nil {
		return nil, err
	}
	e.ModTime = info.ModTime()
	if m, err := ReadManifest(e.Dir); err == nil {
		e.Manifest = m
	}
	err = filepath.WalkDir(e.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Dir(path) == e.Dir && strings.HasSuffix(d.Name(), ProjectExt) {
			e.Projects = append(e.Projects, d.Name())
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		e.Size += info.Size()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", e.Dir, err)
	}
	sort.Strings(e.Projects)
	return e, nil
}

// Remove deletes the work directory for digest.
func (c *Cache) Remove(digest fingerprint.Digest) error {
	dir := filepath.Join(c.Root, digest.String())
	if _, err := os.Stat(dir); err != nil {
		return err
	}
	return os.RemoveAll(dir)
}
