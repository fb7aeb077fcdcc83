package venv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/blacktop/il2cpp-decompile/internal/commands/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	calls  []*tool.Invocation
	failAt int // 1-based call index that exits non-zero, 0 for never
	onCall func(n int, inv *tool.Invocation)
}

func (f *fakeRunner) Run(_ context.Context, inv *tool.Invocation) (*tool.Result, error) {
	f.calls = append(f.calls, inv)
	n := len(f.calls)
	if f.onCall != nil {
		f.onCall(n, inv)
	}
	if n == f.failAt {
		return &tool.Result{ExitCode: 2}, nil
	}
	return &tool.Result{}, nil
}

func newManager(t *testing.T, r tool.Runner) *Manager {
	t.Helper()
	t.Setenv("VIRTUAL_ENV", "")
	return &Manager{
		Dir:    filepath.Join(t.TempDir(), "venv"),
		Python: "bin/python",
		Base:   "/usr/bin/python3",
		Runner: r,
	}
}

// createInterpreter mimics `python -m venv` creating the environment.
func createInterpreter(m *Manager) func(int, *tool.Invocation) {
	return func(n int, inv *tool.Invocation) {
		if n == 1 {
			py := filepath.Join(m.Dir, "bin", "python")
			os.MkdirAll(filepath.Dir(py), 0o755)
			os.WriteFile(py, nil, 0o755)
		}
	}
}

func TestEnsureCreates(t *testing.T) {
	r := &fakeRunner{}
	m := newManager(t, r)
	r.onCall = createInterpreter(m)

	// leftovers of an interrupted attempt must go away
	require.NoError(t, os.MkdirAll(filepath.Join(m.Dir, "lib"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(m.Dir, "lib", "stale"), nil, 0o644))

	env, err := m.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(m.Dir, "bin", "python"), env.Python)
	assert.NoFileExists(t, filepath.Join(m.Dir, "lib", "stale"))

	require.Len(t, r.calls, 3)
	assert.Equal(t, []string{"-m", "venv", m.Dir}, r.calls[0].Args)
	assert.Equal(t, "/usr/bin/python3", r.calls[0].Path)
	assert.Equal(t, []string{"-m", "pip", "install", "-U", "pip"}, r.calls[1].Args)
	assert.Equal(t, env.Python, r.calls[2].Path)
	assert.Equal(t, []string{"-m", "pip", "install", "-r", filepath.Join(m.Dir, RequirementsName)}, r.calls[2].Args)

	data, err := os.ReadFile(filepath.Join(m.Dir, RequirementsName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "pyghidra==")
}

func TestEnsureExisting(t *testing.T) {
	r := &fakeRunner{}
	m := newManager(t, r)
	py := filepath.Join(m.Dir, "bin", "python")
	require.NoError(t, os.MkdirAll(filepath.Dir(py), 0o755))
	require.NoError(t, os.WriteFile(py, nil, 0o755))

	env, err := m.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, py, env.Python)
	assert.Empty(t, r.calls)
}

func TestEnsureFailureCleansUp(t *testing.T) {
	r := &fakeRunner{failAt: 3}
	m := newManager(t, r)
	r.onCall = createInterpreter(m)

	_, err := m.Ensure(context.Background())
	require.Error(t, err)
	var exitErr *tool.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
	assert.NoDirExists(t, m.Dir)

	// next run starts from scratch
	r2 := &fakeRunner{}
	m.Runner = r2
	r2.onCall = createInterpreter(m)
	_, err = m.Ensure(context.Background())
	require.NoError(t, err)
	assert.Len(t, r2.calls, 3)
}

func TestEnsureNoBase(t *testing.T) {
	r := &fakeRunner{}
	m := newManager(t, r)
	m.Base = ""
	_, err := m.Ensure(context.Background())
	assert.Error(t, err)
	assert.Empty(t, r.calls)
}

func TestActive(t *testing.T) {
	r := &fakeRunner{}
	m := newManager(t, r)
	assert.False(t, m.Active())

	t.Setenv("VIRTUAL_ENV", m.Dir)
	assert.True(t, m.Active())
	env, err := m.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, m.Dir, env.Dir)
	assert.Empty(t, r.calls)
}

func TestVars(t *testing.T) {
	t.Setenv("PATH", "/usr/bin")
	env := &Env{Dir: "/data/venv", Python: filepath.Join("/data/venv", "bin", "python")}
	vars := env.Vars()
	assert.Contains(t, vars, "VIRTUAL_ENV=/data/venv")
	assert.Contains(t, vars, "PATH="+filepath.Join("/data/venv", "bin")+string(os.PathListSeparator)+"/usr/bin")

	var empty *Env
	assert.Nil(t, empty.Vars())
}

func TestStatic(t *testing.T) {
	env, err := Static{}.Ensure(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, env)
}
