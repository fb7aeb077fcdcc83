package pipeline

import (
	stdctx "context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/blacktop/il2cpp-decompile/internal/cache"
	"github.com/blacktop/il2cpp-decompile/internal/commands/tool"
	"github.com/blacktop/il2cpp-decompile/internal/config"
	"github.com/blacktop/il2cpp-decompile/internal/fingerprint"
	"github.com/blacktop/il2cpp-decompile/internal/pipeline/context"
	"github.com/blacktop/il2cpp-decompile/internal/pipeline/pipe"
	"github.com/blacktop/il2cpp-decompile/internal/toolchain"
	"github.com/blacktop/il2cpp-decompile/internal/venv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	dumperCall    = "Il2CppDumper"
	converterCall = "il2cpp_header_to_ghidra"
	importCall    = "ghidra --headless"
	openCall      = "ghidra"
)

type fakeRunner struct {
	calls []*tool.Invocation
	exit  map[string]int
}

func label(inv *tool.Invocation) string {
	if inv.Name == "Ghidra" {
		if slices.Contains(inv.Args, "--headless") {
			return importCall
		}
		return openCall
	}
	return inv.Name
}

func (f *fakeRunner) labels() []string {
	var out []string
	for _, c := range f.calls {
		out = append(out, label(c))
	}
	return out
}

func (f *fakeRunner) call(l string) *tool.Invocation {
	for _, c := range f.calls {
		if label(c) == l {
			return c
		}
	}
	return nil
}

func (f *fakeRunner) Run(_ stdctx.Context, inv *tool.Invocation) (*tool.Result, error) {
	f.calls = append(f.calls, inv)
	if code := f.exit[label(inv)]; code != 0 {
		return &tool.Result{ExitCode: code, Output: []byte("boom")}, nil
	}
	if label(inv) == importCall {
		// --headless <project dir> <project name>
		gpr := filepath.Join(inv.Args[1], inv.Args[2]+cache.ProjectExt)
		if err := os.WriteFile(gpr, nil, 0o644); err != nil {
			return nil, err
		}
	}
	return &tool.Result{}, nil
}

type fakeAcquirer struct {
	calls []string
}

func (f *fakeAcquirer) Acquire(_ stdctx.Context, url, subdir string) error {
	f.calls = append(f.calls, url)
	return errors.New("no network in tests")
}

type fixture struct {
	t         *testing.T
	conf      *config.Config
	downloads *config.Downloads
	game      string
	acquirer  *fakeAcquirer
}

func touch(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o755))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		t: t,
		conf: &config.Config{
			DataDir:  filepath.Join(root, "data"),
			CacheDir: filepath.Join(root, "cwd", "il2cpp-decompile"),
			Patterns: config.DefaultPatterns("windows"),
		},
		downloads: &config.Downloads{},
		game:      filepath.Join(root, "games", "MyGame"),
		acquirer:  &fakeAcquirer{},
	}

	apps := f.conf.AppsDir()
	touch(t, filepath.Join(apps, "Il2CppDumper", "Il2CppDumper.exe"), nil)
	touch(t, filepath.Join(apps, "Il2CppDumper", "il2cpp_header_to_ghidra.py"), nil)
	touch(t, filepath.Join(apps, "jdk-21.0.2+13", "bin", "java.exe"), nil)
	touch(t, filepath.Join(apps, "ghidra_11.2_PUBLIC", "support", "pyghidraRun.bat"), nil)

	touch(t, filepath.Join(f.game, "GameAssembly.dll"), []byte("MZ\x90\x00il2cpp"))
	touch(t, filepath.Join(f.game, "MyGame_Data", "il2cpp_data", "Metadata", "global-metadata.dat"), []byte("\xaf\x1b\xb1\xfa"))
	return f
}

func (f *fixture) run(target string, r tool.Runner) (*context.Context, error) {
	f.t.Helper()
	c, err := cache.New(f.conf.CacheDir)
	require.NoError(f.t, err)

	ctx := context.New(f.conf)
	ctx.Target = target
	ctx.Runner = r
	ctx.Cache = c
	ctx.Toolchain = toolchain.NewManager(f.conf.AppsDir(), toolchain.Tools(f.conf.Patterns, f.downloads), f.acquirer, nil)
	py := venv.Static{Env: &venv.Env{Dir: f.conf.VenvDir(), Python: filepath.Join(f.conf.VenvDir(), "Scripts", "python.exe")}}
	return ctx, Execute(ctx, py)
}

func TestFirstRun(t *testing.T) {
	f := newFixture(t)
	r := &fakeRunner{}

	ctx, err := f.run(f.game, r)
	require.NoError(t, err)
	assert.Equal(t, []string{dumperCall, converterCall, importCall, openCall}, r.labels())
	assert.Empty(t, f.acquirer.calls)

	digest, err := fingerprint.File(filepath.Join(f.game, "GameAssembly.dll"))
	require.NoError(t, err)
	workDir := filepath.Join(f.conf.CacheDir, digest.String())
	assert.Equal(t, workDir, ctx.Project.WorkDir)

	// inputs are staged relative to the game directory's parent
	binary := filepath.Join(workDir, "MyGame", "GameAssembly.dll")
	metadata := filepath.Join(workDir, "MyGame", "MyGame_Data", "il2cpp_data", "Metadata", "global-metadata.dat")
	assert.FileExists(t, binary)
	assert.FileExists(t, metadata)

	dumper := r.call(dumperCall)
	assert.Equal(t, []string{binary, metadata, workDir}, dumper.Args)
	assert.FileExists(t, filepath.Join(f.conf.AppsDir(), "Il2CppDumper", "config.json"))

	converter := r.call(converterCall)
	assert.Equal(t, workDir, converter.Dir)
	assert.Equal(t, filepath.Join(f.conf.VenvDir(), "Scripts", "python.exe"), converter.Path)
	assert.Equal(t, []string{filepath.Join(f.conf.AppsDir(), "Il2CppDumper", "il2cpp_header_to_ghidra.py")}, converter.Args)

	imp := r.call(importCall)
	assert.Equal(t, []string{
		"--headless", workDir, "MyGame",
		"-import", binary,
		"-overwrite",
		"-scriptPath", f.conf.ScriptsDir() + ";" + filepath.Join(f.conf.AppsDir(), "Il2CppDumper"),
		"-postScript", "parse_header.py", filepath.Join(workDir, "il2cpp_ghidra.h"),
		"-postScript", "ghidra_with_struct.py", filepath.Join(workDir, "script.json"),
	}, imp.Args)
	assert.Contains(t, imp.Env, "JAVA_HOME="+filepath.Join(f.conf.AppsDir(), "jdk-21.0.2+13"))
	assert.FileExists(t, filepath.Join(f.conf.ScriptsDir(), "parse_header.py"))

	project := filepath.Join(workDir, "MyGame.gpr")
	assert.FileExists(t, project)
	open := r.call(openCall)
	assert.Equal(t, []string{project}, open.Args)
	assert.True(t, open.Interactive)

	m, err := cache.ReadManifest(workDir)
	require.NoError(t, err)
	assert.Equal(t, digest.String(), m.Fingerprint)
	assert.Equal(t, "MyGame", m.Game)
}

func TestSecondRunReopens(t *testing.T) {
	f := newFixture(t)
	_, err := f.run(f.game, &fakeRunner{})
	require.NoError(t, err)

	r := &fakeRunner{}
	ctx, err := f.run(f.game, r)
	require.NoError(t, err)
	assert.True(t, ctx.Project.Cached)
	assert.Equal(t, []string{openCall}, r.labels())
	assert.Equal(t, []string{filepath.Join(ctx.Project.WorkDir, "MyGame.gpr")}, r.calls[0].Args)
}

func TestCachedProjectSkipsTools(t *testing.T) {
	f := newFixture(t)
	digest, err := fingerprint.File(filepath.Join(f.game, "GameAssembly.dll"))
	require.NoError(t, err)
	touch(t, filepath.Join(f.conf.CacheDir, digest.String(), "MyGame.gpr"), nil)

	r := &fakeRunner{}
	_, err = f.run(f.game, r)
	require.NoError(t, err)
	assert.Equal(t, []string{openCall}, r.labels())
	assert.NoFileExists(t, filepath.Join(f.conf.CacheDir, digest.String(), "MyGame", "GameAssembly.dll"))
}

func TestForceReruns(t *testing.T) {
	f := newFixture(t)
	_, err := f.run(f.game, &fakeRunner{})
	require.NoError(t, err)

	f.conf.Force = true
	r := &fakeRunner{}
	_, err = f.run(f.game, r)
	require.NoError(t, err)
	assert.Equal(t, []string{dumperCall, converterCall, importCall, openCall}, r.labels())
}

func TestBinaryTarget(t *testing.T) {
	f := newFixture(t)
	first, err := f.run(f.game, &fakeRunner{})
	require.NoError(t, err)

	r := &fakeRunner{}
	ctx, err := f.run(filepath.Join(f.game, "GameAssembly.dll"), r)
	require.NoError(t, err)
	assert.Equal(t, f.game, ctx.Game.Dir)
	assert.Equal(t, "MyGame", ctx.Game.Name)
	assert.Equal(t, first.Project.WorkDir, ctx.Project.WorkDir)
	assert.Equal(t, []string{openCall}, r.labels())
}

func TestNoTarget(t *testing.T) {
	f := newFixture(t)
	r := &fakeRunner{}

	_, err := f.run("", r)
	require.NoError(t, err)
	assert.Equal(t, []string{openCall}, r.labels())
	assert.Empty(t, r.calls[0].Args)
	assert.NoDirExists(t, f.conf.CacheDir)
}

func TestDecompilerExitCode(t *testing.T) {
	f := newFixture(t)
	r := &fakeRunner{exit: map[string]int{importCall: 3}}

	ctx, err := f.run(f.game, r)
	require.Error(t, err)
	var exitErr *tool.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.ExitCode())

	assert.Equal(t, []string{dumperCall, converterCall, importCall}, r.labels())
	assert.NoFileExists(t, filepath.Join(ctx.Project.WorkDir, "MyGame.gpr"))
}

func TestDumperFailureStops(t *testing.T) {
	f := newFixture(t)
	r := &fakeRunner{exit: map[string]int{dumperCall: 1}}

	_, err := f.run(f.game, r)
	var exitErr *tool.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)
	assert.Equal(t, []string{dumperCall}, r.labels())
}

func TestMissingDownloadURL(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.RemoveAll(filepath.Join(f.conf.AppsDir(), "Il2CppDumper")))
	r := &fakeRunner{}

	_, err := f.run(f.game, r)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrMissingDownloadURL)
	var missing *config.MissingURLError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, config.EnvDumperURL, missing.Key)
	assert.Empty(t, f.acquirer.calls)
	assert.Empty(t, r.calls)
}

func TestMissingTargetFiles(t *testing.T) {
	tests := []struct {
		name   string
		remove string
	}{
		{"binary", "GameAssembly.dll"},
		{"metadata", "MyGame_Data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			require.NoError(t, os.RemoveAll(filepath.Join(f.game, tt.remove)))
			r := &fakeRunner{}

			_, err := f.run(f.game, r)
			require.Error(t, err)
			assert.ErrorIs(t, err, pipe.ErrMissingInput)
			assert.Empty(t, r.calls)
			assert.NoDirExists(t, f.conf.CacheDir)
		})
	}
}

type failingProvisioner struct{}

func (failingProvisioner) Ensure(stdctx.Context) (*venv.Env, error) {
	return nil, errors.New("pip exploded")
}

func TestProvisioningFailureRunsNothing(t *testing.T) {
	f := newFixture(t)
	r := &fakeRunner{}
	c, err := cache.New(f.conf.CacheDir)
	require.NoError(t, err)

	ctx := context.New(f.conf)
	ctx.Target = f.game
	ctx.Runner = r
	ctx.Cache = c
	ctx.Toolchain = toolchain.NewManager(f.conf.AppsDir(), toolchain.Tools(f.conf.Patterns, f.downloads), f.acquirer, nil)

	require.EqualError(t, Execute(ctx, failingProvisioner{}), "pip exploded")
	assert.Empty(t, r.calls)
}
