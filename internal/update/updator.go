package update

import (
	"fmt"
	"maps"
	"slices"

	"github.com/danielpatrickdp/squad-tactics/internal/rules"
	"github.com/danielpatrickdp/squad-tactics/internal/state"
	"github.com/danielpatrickdp/squad-tactics/internal/world"
	"go.uber.org/zap"
)

// #region updator
// WorldUpdator turns change descriptors into new world representations. It
// holds no per-call state and may be shared; callers serialize updates of
// one lineage themselves.
type WorldUpdator struct {
	table    *rules.Table
	registry *Registry
	logger   *zap.Logger
}

// NewWorldUpdator checks that registry covers every fact kind of table.
func NewWorldUpdator(table *rules.Table, registry *Registry, logger *zap.Logger) (*WorldUpdator, error) {
	if table == nil || registry == nil {
		return nil, fmt.Errorf("nil rule table or registry: %w", ErrInvalidArgument)
	}
	if missing := registry.Missing(table); len(missing) > 0 {
		return nil, fmt.Errorf("no adder for %v: %w", missing, ErrIncompleteRegistry)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorldUpdator{table: table, registry: registry, logger: logger.Named("updator")}, nil
}

// Rules returns the rule table the updator was built for.
func (u *WorldUpdator) Rules() *rules.Table { return u.table }

// #endregion updator

// #region apply
// ApplyDynamicStateChange removes every fact listed before the change and
// adds every fact listed after it. The result carries no interpretation.
func (u *WorldUpdator) ApplyDynamicStateChange(w *world.Representation, c DynamicStateChange) (*world.Representation, error) {
	if w == nil || w.Static() == nil {
		return nil, world.ErrMissingStatic
	}
	ds := w.DynamicState()
	if ds == nil {
		return nil, world.ErrMissingDynamic
	}
	n := ds.NumberOfNodes()

	staged := make(map[int]StagedFacts)
	stage := func(area int) (StagedFacts, error) {
		if area < 0 || area >= n {
			return nil, fmt.Errorf("area %d out of range: %w", area, ErrInvalidArgument)
		}
		if sf, ok := staged[area]; ok {
			return sf, nil
		}
		sf := make(StagedFacts)
		for kind, f := range ds.FactsAt(area) {
			sf[kind] = f.Builder()
		}
		staged[area] = sf
		return sf, nil
	}

	removed, added := 0, 0
	before := c.FactsBefore()
	for _, area := range slices.Sorted(maps.Keys(before)) {
		sf, err := stage(area)
		if err != nil {
			return nil, err
		}
		for _, spec := range before[area] {
			fa, err := u.adder(spec.Kind)
			if err != nil {
				return nil, err
			}
			if fa.RemoveFact(sf) {
				removed++
			}
		}
	}
	after := c.FactsAfter()
	for _, area := range slices.Sorted(maps.Keys(after)) {
		sf, err := stage(area)
		if err != nil {
			return nil, err
		}
		for _, spec := range after[area] {
			fa, err := u.adder(spec.Kind)
			if err != nil {
				return nil, err
			}
			fa.AddFact(w.Static(), area, spec.Magnitude, c.TimeLearned(), sf, spec.Related)
			added++
		}
	}

	changed := make(map[int]state.AreaFacts, len(staged))
	for area, sf := range staged {
		af := make(state.AreaFacts, len(sf))
		for kind, b := range sf {
			af[kind] = b.Build()
		}
		changed[area] = af
	}
	next, err := state.Derive(ds, changed)
	if err != nil {
		return nil, fmt.Errorf("derive state: %w", err)
	}

	u.logger.Debug("applied change",
		zap.Ints("areas", c.AffectedAreas()),
		zap.Int("time_learned", c.TimeLearned()),
		zap.Int("removed", removed),
		zap.Int("added", added),
	)
	return w.With(nil, next, nil)
}

// RevertDynamicStateChange undoes c: it removes what c added and re-adds
// what c removed.
func (u *WorldUpdator) RevertDynamicStateChange(w *world.Representation, c DynamicStateChange) (*world.Representation, error) {
	return u.ApplyDynamicStateChange(w, Reversed(c))
}

// ApplyDynamicStateChangesSequentially applies changes in order.
func (u *WorldUpdator) ApplyDynamicStateChangesSequentially(w *world.Representation, changes []DynamicStateChange) (*world.Representation, error) {
	for i, c := range changes {
		next, err := u.ApplyDynamicStateChange(w, c)
		if err != nil {
			return nil, fmt.Errorf("change %d: %w", i, err)
		}
		w = next
	}
	return w, nil
}

// RevertDynamicStateChangesSequentially reverts changes last to first, so it
// undoes ApplyDynamicStateChangesSequentially given the same list.
func (u *WorldUpdator) RevertDynamicStateChangesSequentially(w *world.Representation, changes []DynamicStateChange) (*world.Representation, error) {
	for i := len(changes) - 1; i >= 0; i-- {
		next, err := u.RevertDynamicStateChange(w, changes[i])
		if err != nil {
			return nil, fmt.Errorf("revert change %d: %w", i, err)
		}
		w = next
	}
	return w, nil
}

func (u *WorldUpdator) adder(kind rules.FactKind) (*FactAdder, error) {
	fa, ok := u.registry.Adder(kind)
	if !ok || !u.table.Recognizes(kind) {
		return nil, fmt.Errorf("fact kind %s not registered: %w", kind, ErrInvalidArgument)
	}
	return fa, nil
}

// #endregion apply
