package state

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/danielpatrickdp/squad-tactics/internal/rules"
)

// ErrInvalidArgument marks malformed construction input.
var ErrInvalidArgument = errors.New("invalid argument")

// #region dynamic-state
// DynamicState is one immutable snapshot of what the squad knows: the facts
// held at every area and the effect sums derived from them. Snapshots
// derived from one another share the per-area data of untouched areas, so
// every map and slice reachable from a DynamicState is read-only.
type DynamicState struct {
	table *rules.Table

	facts   []AreaFacts
	inbound [][]inboundEffect
	sums    []map[rules.EffectKind]EffectSum
	active  []rules.EffectSet
}

// inboundEffect is an effect landing on an area, remembered with the fact
// that produced it so sums fold in a canonical order.
type inboundEffect struct {
	area   int
	fact   rules.FactKind
	seq    int
	effect Effect
}

func compareInbound(a, b inboundEffect) int {
	if c := cmp.Compare(a.area, b.area); c != 0 {
		return c
	}
	if c := cmp.Compare(a.fact, b.fact); c != 0 {
		return c
	}
	return cmp.Compare(a.seq, b.seq)
}

// #endregion dynamic-state

// #region constructors
// Empty returns a snapshot of n areas with no facts.
func Empty(table *rules.Table, n int) *DynamicState {
	ds, _ := New(table, make([]AreaFacts, n))
	return ds
}

// New builds a snapshot from a complete fact set, one AreaFacts per area.
// Nil entries mean the area holds no facts.
func New(table *rules.Table, facts []AreaFacts) (*DynamicState, error) {
	if table == nil {
		return nil, fmt.Errorf("nil rule table: %w", ErrInvalidArgument)
	}
	if facts == nil {
		return nil, fmt.Errorf("nil fact collection: %w", ErrInvalidArgument)
	}
	n := len(facts)
	ds := &DynamicState{
		table:   table,
		facts:   make([]AreaFacts, n),
		inbound: make([][]inboundEffect, n),
		sums:    make([]map[rules.EffectKind]EffectSum, n),
		active:  make([]rules.EffectSet, n),
	}
	for area, af := range facts {
		if err := validateArea(area, af, n); err != nil {
			return nil, err
		}
		if len(af) > 0 {
			ds.facts[area] = maps.Clone(af)
		}
		// areas and kinds ascend here, so inbound lists come out sorted
		for _, kind := range sortedKinds(af) {
			for seq, e := range af[kind].effects {
				ds.inbound[e.Target] = append(ds.inbound[e.Target], inboundEffect{area, kind, seq, e})
			}
		}
	}
	for area := range n {
		sums, err := fold(ds.inbound[area])
		if err != nil {
			return nil, fmt.Errorf("area %d: %w", area, err)
		}
		ds.sums[area] = sums
	}
	for area := range n {
		ds.active[area] = ds.resolve(area)
	}
	return ds, nil
}

// Derive builds the snapshot that results from replacing the facts of the
// given areas in prev. Areas not in changed keep sharing prev's data.
func Derive(prev *DynamicState, changed map[int]AreaFacts) (*DynamicState, error) {
	if prev == nil {
		return nil, fmt.Errorf("nil previous state: %w", ErrInvalidArgument)
	}
	n := len(prev.facts)
	ds := &DynamicState{
		table:   prev.table,
		facts:   slices.Clone(prev.facts),
		inbound: slices.Clone(prev.inbound),
		sums:    slices.Clone(prev.sums),
		active:  slices.Clone(prev.active),
	}

	touched := make(map[int]struct{})
	for area, af := range changed {
		if area < 0 || area >= n {
			return nil, fmt.Errorf("changed area %d out of range: %w", area, ErrInvalidArgument)
		}
		if err := validateArea(area, af, n); err != nil {
			return nil, err
		}
		touched[area] = struct{}{}
		for _, f := range prev.facts[area] {
			for _, e := range f.effects {
				touched[e.Target] = struct{}{}
			}
		}
		for _, f := range af {
			for _, e := range f.effects {
				touched[e.Target] = struct{}{}
			}
		}
		if len(af) == 0 {
			ds.facts[area] = nil
		} else {
			ds.facts[area] = maps.Clone(af)
		}
	}

	// Rebuild the inbound list of every touched target: drop what the
	// changed areas used to contribute, then add what they contribute now.
	fresh := make(map[int][]inboundEffect)
	for _, area := range slices.Sorted(maps.Keys(changed)) {
		af := changed[area]
		for _, kind := range sortedKinds(af) {
			for seq, e := range af[kind].effects {
				fresh[e.Target] = append(fresh[e.Target], inboundEffect{area, kind, seq, e})
			}
		}
	}
	for target := range touched {
		var list []inboundEffect
		for _, in := range prev.inbound[target] {
			if _, replaced := changed[in.area]; !replaced {
				list = append(list, in)
			}
		}
		list = append(list, fresh[target]...)
		slices.SortStableFunc(list, compareInbound)
		ds.inbound[target] = list

		sums, err := fold(list)
		if err != nil {
			return nil, fmt.Errorf("area %d: %w", target, err)
		}
		ds.sums[target] = sums
	}
	for area := range touched {
		ds.active[area] = ds.resolve(area)
	}
	return ds, nil
}

func validateArea(area int, af AreaFacts, n int) error {
	for kind, f := range af {
		if f.kind != kind {
			return fmt.Errorf("area %d: fact of kind %s filed under %s: %w", area, f.kind, kind, ErrInvalidArgument)
		}
		for _, e := range f.effects {
			if e.Target < 0 || e.Target >= n {
				return fmt.Errorf("area %d: %s effect targets area %d out of range: %w", area, e.Kind, e.Target, ErrInvalidArgument)
			}
		}
	}
	return nil
}

func sortedKinds(af AreaFacts) []rules.FactKind {
	return slices.Sorted(maps.Keys(af))
}

func fold(list []inboundEffect) (map[rules.EffectKind]EffectSum, error) {
	if len(list) == 0 {
		return nil, nil
	}
	sums := make(map[rules.EffectKind]EffectSum)
	for _, in := range list {
		s := sums[in.effect.Kind]
		if err := s.Incorporate(in.effect); err != nil {
			return nil, err
		}
		sums[in.effect.Kind] = s
	}
	return sums, nil
}

// resolve applies the rule table to one area. An effect is present when a
// sum exists or a held fact includes it, effective when no held fact
// precludes it, and reported when no other effective effect precludes it.
func (ds *DynamicState) resolve(area int) rules.EffectSet {
	var present, precluded rules.EffectSet
	for kind := range ds.sums[area] {
		present = present.With(kind)
	}
	for kind := range ds.facts[area] {
		present = present.Union(ds.table.EffectsIncludedByFact(kind))
		precluded = precluded.Union(ds.table.EffectsPrecludedByFact(kind))
	}
	effective := present &^ precluded

	var out rules.EffectSet
	for _, e := range effective.Kinds() {
		if effective&ds.table.EffectsPrecludingEffect(e) == 0 {
			out = out.With(e)
		}
	}
	return out
}

// #endregion constructors

// #region raw-access
// NumberOfNodes is the number of areas the snapshot covers.
func (ds *DynamicState) NumberOfNodes() int { return len(ds.facts) }

// Rules returns the rule table the snapshot was built with.
func (ds *DynamicState) Rules() *rules.Table { return ds.table }

// Fact returns the fact of kind k held at area.
func (ds *DynamicState) Fact(area int, k rules.FactKind) (Fact, bool) {
	f, ok := ds.facts[area][k]
	return f, ok
}

// FactsAt returns a copy of the fact map of area.
func (ds *DynamicState) FactsAt(area int) AreaFacts {
	return maps.Clone(ds.facts[area])
}

// EffectSum returns the sum of effects of kind k landing on area.
func (ds *DynamicState) EffectSum(area int, k rules.EffectKind) (EffectSum, bool) {
	s, ok := ds.sums[area][k]
	return s, ok
}

// ActiveEffects returns the effect kinds that hold at area after preclusion.
func (ds *DynamicState) ActiveEffects(area int) rules.EffectSet { return ds.active[area] }

// #endregion raw-access
