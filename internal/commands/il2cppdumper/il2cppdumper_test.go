package il2cppdumper

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readConfig(t *testing.T, dir string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, ConfigName))
	require.NoError(t, err)
	conf := map[string]any{}
	require.NoError(t, json.Unmarshal(data, &conf))
	return conf
}

func TestPatchConfig(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantWrite bool
	}{
		{name: "missing file", content: "", wantWrite: true},
		{name: "key absent", content: `{"DumpMethod": true}`, wantWrite: true},
		{name: "key true", content: `{"DumpMethod": true, "RequireAnyKey": true}`, wantWrite: true},
		{name: "key truthy number", content: `{"RequireAnyKey": 1}`, wantWrite: true},
		{name: "with bom", content: "\xEF\xBB\xBF{\"RequireAnyKey\": true}", wantWrite: true},
		{name: "key false", content: `{"RequireAnyKey": false}`, wantWrite: false},
		{name: "key null", content: `{"RequireAnyKey": null}`, wantWrite: false},
		{name: "key zero", content: `{"RequireAnyKey": 0}`, wantWrite: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.content != "" {
				require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigName), []byte(tt.content), 0o644))
			}
			wrote, err := PatchConfig(dir)
			require.NoError(t, err)
			assert.Equal(t, tt.wantWrite, wrote)

			if tt.wantWrite {
				conf := readConfig(t, dir)
				assert.Equal(t, false, conf["RequireAnyKey"])
				if tt.name == "key true" || tt.name == "key absent" {
					assert.Equal(t, true, conf["DumpMethod"], "other settings must survive")
				}
				wrote, err = PatchConfig(dir)
				require.NoError(t, err)
				assert.False(t, wrote, "second patch is a no-op")
			}
		})
	}
}

func TestPatchConfigInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigName), []byte("{nope"), 0o644))
	_, err := PatchConfig(dir)
	assert.Error(t, err)
}

func TestNewInvocation(t *testing.T) {
	exe := filepath.Join("apps", "Il2CppDumper", "Il2CppDumper.exe")
	inv := NewInvocation(&Config{
		Executable: exe,
		Binary:     "work/Game/GameAssembly.dll",
		Metadata:   "work/Game/Game_Data/il2cpp_data/Metadata/global-metadata.dat",
		OutputDir:  "work",
	})
	assert.Equal(t, exe, inv.Path)
	assert.Equal(t, []string{
		"work/Game/GameAssembly.dll",
		"work/Game/Game_Data/il2cpp_data/Metadata/global-metadata.dat",
		"work",
	}, inv.Args)
	assert.Equal(t, filepath.Join("apps", "Il2CppDumper"), inv.Dir)
}

func TestNewConverterInvocation(t *testing.T) {
	inv := NewConverterInvocation(&ConverterConfig{
		Python:  "venv/bin/python",
		Script:  "apps/Il2CppDumper/il2cpp_header_to_ghidra.py",
		WorkDir: "work",
	})
	assert.Equal(t, "venv/bin/python", inv.Path)
	assert.Equal(t, []string{"apps/Il2CppDumper/il2cpp_header_to_ghidra.py"}, inv.Args)
	assert.Equal(t, "work", inv.Dir)
}
