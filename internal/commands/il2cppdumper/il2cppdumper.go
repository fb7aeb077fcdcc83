// Package il2cppdumper drives Il2CppDumper and its header conversion script.
package il2cppdumper

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/apex/log"
	"github.com/blacktop/il2cpp-decompile/internal/commands/tool"
	"github.com/blacktop/il2cpp-decompile/internal/utils"
)

const (
	// ConfigName is the dumper's configuration file, next to its executable.
	ConfigName = "config.json"
	// HeaderName is the converted header written by the conversion script.
	HeaderName = "il2cpp_ghidra.h"
	// ScriptJSONName is the structure/symbol description written by the dumper.
	ScriptJSONName = "script.json"
	// StructScript is the Ghidra post-script shipped with the dumper.
	StructScript = "ghidra_with_struct.py"

	requireAnyKey = "RequireAnyKey"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Config of a dump.
type Config struct {
	Executable string
	Binary     string
	Metadata   string
	OutputDir  string
}

// NewInvocation builds the dumper command line: <binary> <metadata> <output dir>.
func NewInvocation(conf *Config) *tool.Invocation {
	return &tool.Invocation{
		Name: "Il2CppDumper",
		Path: conf.Executable,
		Args: []string{conf.Binary, conf.Metadata, conf.OutputDir},
		Dir:  filepath.Dir(conf.Executable),
	}
}

// ConverterConfig of a header conversion.
type ConverterConfig struct {
	Python  string
	Script  string
	WorkDir string
	Env     []string
}

// NewConverterInvocation builds the header conversion command. The script
// takes no arguments and reads the dump found in its working directory.
func NewConverterInvocation(conf *ConverterConfig) *tool.Invocation {
	return &tool.Invocation{
		Name: "il2cpp_header_to_ghidra",
		Path: conf.Python,
		Args: []string{conf.Script},
		Dir:  conf.WorkDir,
		Env:  conf.Env,
	}
}

// PatchConfig disables the dumper's "press any key" prompt. The file is only
// rewritten when RequireAnyKey is missing or truthy; other settings are kept.
// It returns true when the file was written.
func PatchConfig(dumperDir string) (bool, error) {
	path := filepath.Join(dumperDir, ConfigName)

	conf := map[string]any{}
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(bytes.TrimPrefix(data, utf8BOM), &conf); err != nil {
			return false, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if v, ok := conf[requireAnyKey]; ok && !truthy(v) {
		return false, nil
	}
	conf[requireAnyKey] = false

	out, err := json.MarshalIndent(conf, "", "  ")
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	utils.Indent(log.WithField("file", path).Debug, 2)("disabled RequireAnyKey")
	return true, nil
}

// truthy follows the usual scripting language rules for JSON values.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
