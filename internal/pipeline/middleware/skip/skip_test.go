package skip

import (
	"testing"

	"github.com/blacktop/il2cpp-decompile/internal/pipeline/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type job struct{ skip bool }

func (j job) String() string                 { return "job" }
func (j job) Skip(ctx *context.Context) bool { return j.skip }

type plain struct{}

func TestMaybe(t *testing.T) {
	ctx := context.New(nil)
	var ran int
	next := func(*context.Context) error { ran++; return nil }

	require.NoError(t, Maybe(job{skip: true}, next)(ctx))
	assert.Equal(t, 0, ran)
	require.NoError(t, Maybe(job{skip: false}, next)(ctx))
	assert.Equal(t, 1, ran)
	require.NoError(t, Maybe(plain{}, next)(ctx))
	assert.Equal(t, 2, ran)
}
