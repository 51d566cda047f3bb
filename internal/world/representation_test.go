package world

import (
	"errors"
	"testing"

	"github.com/danielpatrickdp/squad-tactics/internal/interpret"
	"github.com/danielpatrickdp/squad-tactics/internal/rules"
	"github.com/danielpatrickdp/squad-tactics/internal/state"
	"github.com/danielpatrickdp/squad-tactics/internal/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parts(t *testing.T, n int) (*topology.Graph, *state.DynamicState, *interpret.Interpretation) {
	t.Helper()
	g, err := topology.Chain(n, 10, topology.Designations{})
	require.NoError(t, err)
	ds := state.Empty(rules.DefaultTable(), n)
	in, err := interpret.NewInterpreter(interpret.DefaultConfig(), nil).Interpret(g, ds)
	require.NoError(t, err)
	return g, ds, in
}

func TestNewEnforcesDependencies(t *testing.T) {
	g, ds, in := parts(t, 3)

	_, err := New(nil, ds, nil)
	assert.True(t, errors.Is(err, ErrMissingStatic))
	_, err = New(nil, nil, in)
	assert.True(t, errors.Is(err, ErrMissingStatic))
	_, err = New(g, nil, in)
	assert.True(t, errors.Is(err, ErrMissingDynamic))

	empty, err := New(nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.NumberOfNodes())

	w, err := New(g, ds, in)
	require.NoError(t, err)
	assert.Equal(t, 3, w.NumberOfNodes())
}

func TestNewRejectsSizeMismatch(t *testing.T) {
	g, _, _ := parts(t, 3)
	_, ds, _ := parts(t, 4)
	_, err := New(g, ds, nil)
	assert.True(t, errors.Is(err, ErrSizeMismatch))
}

func TestWithCarriesOverUnreplacedParts(t *testing.T) {
	g, ds, in := parts(t, 3)
	w, err := New(g, ds, in)
	require.NoError(t, err)

	same, err := w.With(nil, nil, nil)
	require.NoError(t, err)
	assert.Same(t, ds, same.DynamicState())
	assert.Same(t, in, same.Interpretation())

	ds2 := state.Empty(rules.DefaultTable(), 3)
	next, err := w.With(nil, ds2, nil)
	require.NoError(t, err)
	assert.Same(t, ds2, next.DynamicState())
	assert.Nil(t, next.Interpretation(), "stale interpretation must not survive a new dynamic state")
	assert.Equal(t, g, next.Static())

	_, _, in2 := parts(t, 3)
	full, err := next.With(nil, nil, in2)
	require.NoError(t, err)
	assert.Same(t, in2, full.Interpretation())
	assert.Same(t, ds2, full.DynamicState())
}

func TestWithNewStaticKeepsKnowledge(t *testing.T) {
	g, ds, in := parts(t, 3)
	w, err := New(g, ds, in)
	require.NoError(t, err)

	g2, _, _ := parts(t, 3)
	next, err := w.With(g2, nil, nil)
	require.NoError(t, err)
	assert.Same(t, ds, next.DynamicState())
	assert.Nil(t, next.Interpretation())
}
