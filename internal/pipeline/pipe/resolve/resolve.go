// Package resolve finds the game binary and its metadata.
package resolve

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"github.com/blacktop/il2cpp-decompile/internal/pipeline/context"
	"github.com/blacktop/il2cpp-decompile/internal/pipeline/pipe"
	"github.com/blacktop/il2cpp-decompile/internal/toolchain"
	"github.com/blacktop/il2cpp-decompile/internal/utils"
)

const (
	// BinaryName is the IL2CPP native binary shipped with a game.
	BinaryName = "GameAssembly.dll"
	// MetadataPattern finds the global metadata relative to the game directory.
	MetadataPattern = "*_Data/il2cpp_data/Metadata/global-metadata.dat"
)

// Pipe resolves the game directory, binary and metadata from ctx.Target.
type Pipe struct{}

func (Pipe) String() string                 { return "resolving game files" }
func (Pipe) Skip(ctx *context.Context) bool { return ctx.NoTarget() }

// Run the pipe.
func (Pipe) Run(ctx *context.Context) error {
	target, err := filepath.Abs(ctx.Target)
	if err != nil {
		return fmt.Errorf("failed to get absolute path of %s: %w", ctx.Target, err)
	}

	gameDir := target
	binary := filepath.Join(gameDir, BinaryName)
	if strings.EqualFold(filepath.Base(target), BinaryName) {
		gameDir = filepath.Dir(target)
		binary = target
	}

	if ok, err := isFile(binary); err != nil {
		return err
	} else if !ok {
		return &pipe.MissingInputError{What: "game binary", Path: binary}
	}

	matches, err := toolchain.Glob(gameDir, MetadataPattern)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return &pipe.MissingInputError{What: "global metadata", Path: filepath.Join(gameDir, filepath.FromSlash(MetadataPattern))}
	}
	if len(matches) > 1 {
		log.WithField("using", matches[0]).Warnf("found %d global-metadata.dat files", len(matches))
	}

	ctx.Game.Dir = gameDir
	ctx.Game.Name = filepath.Base(gameDir)
	ctx.Game.Binary = binary
	ctx.Game.Metadata = matches[0]

	utils.Indent(log.WithField("game", ctx.Game.Name).Info, 2)("Game")
	utils.Indent(log.Debug, 3)(ctx.Game.Binary)
	utils.Indent(log.Debug, 3)(ctx.Game.Metadata)
	return nil
}

func isFile(path string) (bool, error) {
	fi, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return fi.Mode().IsRegular(), nil
}
