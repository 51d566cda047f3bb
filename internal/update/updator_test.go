package update

import (
	"errors"
	"testing"

	"github.com/danielpatrickdp/squad-tactics/internal/interpret"
	"github.com/danielpatrickdp/squad-tactics/internal/rules"
	"github.com/danielpatrickdp/squad-tactics/internal/state"
	"github.com/danielpatrickdp/squad-tactics/internal/topology"
	"github.com/danielpatrickdp/squad-tactics/internal/world"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type observation struct {
	Areas []state.AreaNode
	Edges [][]rules.EffectSet
}

// observe reads a snapshot through every public reader.
func observe(ds *state.DynamicState) observation {
	n := ds.NumberOfNodes()
	obs := observation{Areas: ds.Areas(), Edges: make([][]rules.EffectSet, n)}
	for from := range n {
		obs.Edges[from] = make([]rules.EffectSet, n)
		for to := range n {
			obs.Edges[from][to] = ds.Edge(from, to).Causing
		}
	}
	return obs
}

func fixture(t *testing.T, n int) (*WorldUpdator, *world.Representation) {
	t.Helper()
	table := rules.DefaultTable()
	u, err := NewWorldUpdator(table, DefaultRegistry(), zaptest.NewLogger(t))
	require.NoError(t, err)
	g, err := topology.Chain(n, 10, topology.Designations{})
	require.NoError(t, err)
	w, err := world.New(g, state.Empty(table, n), nil)
	require.NoError(t, err)
	return u, w
}

func after(time int, facts map[int][]FactSpec) StateChange {
	return StateChange{Time: time, After: facts}
}

func TestNewWorldUpdatorRequiresEveryKind(t *testing.T) {
	reg := NewRegistry().Register(NewFactAdder(rules.EnemyPresence))
	_, err := NewWorldUpdator(rules.DefaultTable(), reg, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIncompleteRegistry))
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = NewWorldUpdator(rules.DefaultTable(), DefaultRegistry(), nil)
	assert.NoError(t, err)
}

func TestApplyAddsFactsAndEffects(t *testing.T) {
	u, w := fixture(t, 6)

	w, err := u.ApplyDynamicStateChange(w, after(1, map[int][]FactSpec{
		0: {{Kind: rules.SquadMemberPresence, Magnitude: 2}},
		1: {{Kind: rules.TakingFire, Magnitude: 3, Related: []int{5}}},
		5: {{Kind: rules.EnemyPresence, Magnitude: 1}},
	}))
	require.NoError(t, err)
	ds := w.DynamicState()

	assert.Equal(t, 2, ds.FriendlyPresence(0))
	assert.True(t, ds.VisibleToSquad(1))
	assert.True(t, ds.IsClear(1))
	assert.True(t, ds.IsSourceOfEnemyFire(5))
	assert.True(t, ds.VisibleToEnemies(4))
	assert.Equal(t, 3, ds.DangerLevel(1))
	assert.True(t, ds.Edge(0, 1).CausingClear())

	f, ok := ds.Fact(1, rules.TakingFire)
	require.True(t, ok)
	assert.Equal(t, 1, f.TimeLearned())
	assert.Equal(t, []state.Effect{{Kind: rules.EnemyFireSource, Magnitude: 3, Target: 5, Cause: 1}}, f.Effects())
}

func TestApplyThenRevertRestoresState(t *testing.T) {
	u, w := fixture(t, 6)
	w, err := u.ApplyDynamicStateChange(w, after(1, map[int][]FactSpec{
		0: {{Kind: rules.SquadMemberPresence, Magnitude: 1}},
		1: {{Kind: rules.TakingFire, Magnitude: 2, Related: []int{5}}},
		5: {{Kind: rules.EnemyPresence, Magnitude: 1}},
	}))
	require.NoError(t, err)
	want := observe(w.DynamicState())

	move := StateChange{
		Time:   2,
		Before: map[int][]FactSpec{5: {{Kind: rules.EnemyPresence, Magnitude: 1}}},
		After: map[int][]FactSpec{
			4: {{Kind: rules.EnemyPresence, Magnitude: 2}},
			5: {{Kind: rules.LastKnownEnemyPosition, Magnitude: 1}},
		},
	}
	moved, err := u.ApplyDynamicStateChange(w, move)
	require.NoError(t, err)
	assert.True(t, moved.DynamicState().IsEnemyArea(4))
	assert.False(t, moved.DynamicState().IsEnemyArea(5))
	assert.NotEmpty(t, cmp.Diff(want, observe(moved.DynamicState())))

	back, err := u.RevertDynamicStateChange(moved, move)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(want, observe(back.DynamicState())))
}

func TestIndependentChangesCommute(t *testing.T) {
	u, w := fixture(t, 8)
	c1 := after(1, map[int][]FactSpec{
		0: {{Kind: rules.SquadMemberPresence, Magnitude: 1}},
		3: {{Kind: rules.TakingFireFromUnknownSource, Magnitude: 1}},
	})
	c2 := StateChange{Time: 2, After: map[int][]FactSpec{
		2: {{Kind: rules.LastKnownEnemyPosition, Magnitude: 1}},
		6: {{Kind: rules.EnemyPresence, Magnitude: 2}},
		3: {{Kind: rules.SourceOfEnemyFire, Magnitude: 1}},
	}}

	a, err := u.ApplyDynamicStateChangesSequentially(w, []DynamicStateChange{c1, c2})
	require.NoError(t, err)
	b, err := u.ApplyDynamicStateChangesSequentially(w, []DynamicStateChange{c2, c1})
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(observe(a.DynamicState()), observe(b.DynamicState())))
	sa, _ := a.DynamicState().EffectSum(1, rules.PotentialEnemies)
	sb, _ := b.DynamicState().EffectSum(1, rules.PotentialEnemies)
	assert.Equal(t, sa.Causes(), sb.Causes())
}

func TestSequentialRevertUndoesSequentialApply(t *testing.T) {
	u, w := fixture(t, 5)
	empty := observe(w.DynamicState())
	changes := []DynamicStateChange{
		after(1, map[int][]FactSpec{4: {{Kind: rules.EnemyPresence, Magnitude: 1}}}),
		StateChange{
			Time:   2,
			Before: map[int][]FactSpec{4: {{Kind: rules.EnemyPresence, Magnitude: 1}}},
			After:  map[int][]FactSpec{4: {{Kind: rules.LastKnownEnemyPosition, Magnitude: 1}}},
		},
		after(3, map[int][]FactSpec{0: {{Kind: rules.SquadMemberPresence, Magnitude: 3}}}),
	}

	w2, err := u.ApplyDynamicStateChangesSequentially(w, changes)
	require.NoError(t, err)
	assert.True(t, w2.DynamicState().PotentialEnemies(3))

	w3, err := u.RevertDynamicStateChangesSequentially(w2, changes)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(empty, observe(w3.DynamicState())))
}

// A fact that is already held only takes the new magnitude; the effects
// computed when it was created are kept as they were.
func TestMagnitudeUpdateKeepsOriginalEffects(t *testing.T) {
	u, w := fixture(t, 4)
	w, err := u.ApplyDynamicStateChange(w, after(1, map[int][]FactSpec{
		2: {{Kind: rules.EnemyPresence, Magnitude: 1}},
	}))
	require.NoError(t, err)

	w, err = u.ApplyDynamicStateChange(w, after(2, map[int][]FactSpec{
		2: {{Kind: rules.EnemyPresence, Magnitude: 3}},
	}))
	require.NoError(t, err)
	ds := w.DynamicState()

	f, ok := ds.Fact(2, rules.EnemyPresence)
	require.True(t, ok)
	assert.Equal(t, 3, f.Magnitude())
	assert.Equal(t, 2, f.TimeLearned())
	for _, e := range f.Effects() {
		assert.Equal(t, 1, e.Magnitude)
	}
	sum, ok := ds.EffectSum(1, rules.VisibleToEnemies)
	require.True(t, ok)
	assert.Equal(t, 1, sum.ValueSum())
}

func TestApplyDropsInterpretation(t *testing.T) {
	u, w := fixture(t, 3)
	in, err := interpret.NewInterpreter(interpret.DefaultConfig(), nil).Interpret(w.Static(), w.DynamicState())
	require.NoError(t, err)
	w, err = w.With(nil, nil, in)
	require.NoError(t, err)

	next, err := u.ApplyDynamicStateChange(w, after(1, map[int][]FactSpec{1: {{Kind: rules.EnemyPresence, Magnitude: 1}}}))
	require.NoError(t, err)
	assert.Nil(t, next.Interpretation())
	assert.NotNil(t, w.Interpretation())
}

func TestApplyRejectsBadChanges(t *testing.T) {
	u, w := fixture(t, 3)

	_, err := u.ApplyDynamicStateChange(w, after(1, map[int][]FactSpec{3: {{Kind: rules.EnemyPresence, Magnitude: 1}}}))
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = u.ApplyDynamicStateChange(w, after(1, map[int][]FactSpec{0: {{Kind: rules.FactKind(40), Magnitude: 1}}}))
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = u.ApplyDynamicStateChange(w, after(1, map[int][]FactSpec{
		0: {{Kind: rules.TakingFire, Magnitude: 1, Related: []int{7}}},
	}))
	assert.True(t, errors.Is(err, state.ErrInvalidArgument))

	bare, err := world.New(w.Static(), nil, nil)
	require.NoError(t, err)
	_, err = u.ApplyDynamicStateChange(bare, after(1, nil))
	assert.True(t, errors.Is(err, world.ErrMissingDynamic))
}

func TestEffectAdders(t *testing.T) {
	g, err := topology.Chain(4, 10, topology.Designations{})
	require.NoError(t, err)

	vis := EdgeConditionAdder{Kind: rules.VisibleToSquad, Pred: Visibility}.AddEffects(g, 1, 2, nil)
	assert.Equal(t, []state.Effect{
		{Kind: rules.VisibleToSquad, Magnitude: 2, Target: 0, Cause: 1},
		{Kind: rules.VisibleToSquad, Magnitude: 2, Target: 2, Cause: 1},
	}, vis)

	assert.Empty(t, EdgeConditionAdder{Kind: rules.Controlled, Pred: Control}.AddEffects(g, 1, 1, nil))

	rel := RelatedAreaAdder{Kind: rules.EnemyFireSource}.AddEffects(g, 0, 1, []int{3})
	assert.Equal(t, []state.Effect{{Kind: rules.EnemyFireSource, Magnitude: 1, Target: 3, Cause: 0}}, rel)
}

func TestReversedSwapsBeforeAndAfter(t *testing.T) {
	c := StateChange{
		Time:   4,
		Before: map[int][]FactSpec{1: {{Kind: rules.EnemyPresence, Magnitude: 1}}},
		After:  map[int][]FactSpec{2: {{Kind: rules.EnemyPresence, Magnitude: 1}}},
	}
	r := Reversed(c)
	assert.Equal(t, c.After, r.FactsBefore())
	assert.Equal(t, c.Before, r.FactsAfter())
	assert.Equal(t, 4, r.TimeLearned())
	assert.Equal(t, []int{1, 2}, r.AffectedAreas())
}
