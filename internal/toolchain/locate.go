// Package toolchain finds installed tools under the apps directory and
// installs the missing ones.
package toolchain

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"github.com/blacktop/il2cpp-decompile/internal/utils"
)

// ErrNotFound is matched by every NotFoundError.
var ErrNotFound = errors.New("not found")

// NotFoundError is returned when a glob pattern matches nothing.
type NotFoundError struct {
	Base    string
	Pattern string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("could not find %s", filepath.Join(e.Base, filepath.FromSlash(e.Pattern)))
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Glob returns every path under base matching pattern, in lexical order.
// base is taken literally; only pattern may contain wildcards and it always
// uses forward slashes.
func Glob(base, pattern string) ([]string, error) {
	pattern = strings.TrimPrefix(filepath.ToSlash(pattern), "./")
	if !fs.ValidPath(pattern) {
		return nil, fmt.Errorf("invalid glob pattern %q", pattern)
	}
	matches, err := fs.Glob(os.DirFS(base), pattern)
	if err != nil {
		return nil, fmt.Errorf("bad glob pattern %q: %w", pattern, err)
	}
	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		paths = append(paths, filepath.Join(base, filepath.FromSlash(m)))
	}
	return paths, nil
}

// Chooser picks one of several installations matching the same pattern.
// matches always holds at least two sorted entries.
type Chooser func(tool string, matches []string) (string, error)

// First is the default Chooser: the first match in sorted order wins and the
// ambiguity is logged.
func First(tool string, matches []string) (string, error) {
	utils.Indent(log.WithFields(log.Fields{
		"tool":    tool,
		"using":   matches[0],
		"ignored": strings.Join(matches[1:], ", "),
	}).Warn, 2)("Multiple installations found")
	return matches[0], nil
}

// Locate returns the single installation of tool matching pattern under base.
// When several match, choose decides (First when nil).
func Locate(base, pattern, tool string, choose Chooser) (string, error) {
	matches, err := Glob(base, pattern)
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", &NotFoundError{Base: base, Pattern: pattern}
	case 1:
		return matches[0], nil
	}
	if choose == nil {
		choose = First
	}
	return choose(tool, matches)
}
