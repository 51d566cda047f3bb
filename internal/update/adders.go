package update

import (
	"slices"

	"github.com/danielpatrickdp/squad-tactics/internal/rules"
	"github.com/danielpatrickdp/squad-tactics/internal/state"
	"github.com/danielpatrickdp/squad-tactics/internal/topology"
)

// StagedFacts is the mutable fact map of one area while a change is applied.
type StagedFacts map[rules.FactKind]*state.FactBuilder

// #region effect-adders
// EffectAdder computes the effects a newly created fact has on the world.
type EffectAdder interface {
	AddEffects(static topology.Static, source, magnitude int, related []int) []state.Effect
}

// EdgePredicate selects the areas an EdgeConditionAdder reaches from source.
type EdgePredicate func(static topology.Static, from, to int) bool

var (
	// Visibility holds where from can see to.
	Visibility EdgePredicate = func(s topology.Static, from, to int) bool { return s.IsVisible(from, to) }
	// SeenBy holds where to can see from.
	SeenBy EdgePredicate = func(s topology.Static, from, to int) bool { return s.IsVisible(to, from) }
	// Control holds where from controls to.
	Control EdgePredicate = func(s topology.Static, from, to int) bool { return s.Controls(from, to) }
	// Traversability holds where to can be reached from from in one step.
	Traversability EdgePredicate = func(s topology.Static, from, to int) bool { return s.IsTraversable(from, to) }
)

// EdgeConditionAdder puts an effect on every other area the predicate
// relates to the source. The source's own state comes from rule-table
// inclusion instead.
type EdgeConditionAdder struct {
	Kind rules.EffectKind
	Pred EdgePredicate
}

func (a EdgeConditionAdder) AddEffects(static topology.Static, source, magnitude int, _ []int) []state.Effect {
	var out []state.Effect
	for to := range static.NumberOfNodes() {
		if to == source || !a.Pred(static, source, to) {
			continue
		}
		out = append(out, state.Effect{Kind: a.Kind, Magnitude: magnitude, Target: to, Cause: source})
	}
	return out
}

// RelatedAreaAdder puts an effect on the areas the change names alongside
// the fact, e.g. where incoming fire comes from.
type RelatedAreaAdder struct {
	Kind rules.EffectKind
}

func (a RelatedAreaAdder) AddEffects(_ topology.Static, source, magnitude int, related []int) []state.Effect {
	out := make([]state.Effect, 0, len(related))
	for _, to := range related {
		out = append(out, state.Effect{Kind: a.Kind, Magnitude: magnitude, Target: to, Cause: source})
	}
	return out
}

// #endregion effect-adders

// #region fact-adder
// FactAdder owns add and remove policy for one fact kind.
type FactAdder struct {
	kind   rules.FactKind
	adders []EffectAdder
}

// NewFactAdder composes the effect adders of kind, applied in order.
func NewFactAdder(kind rules.FactKind, adders ...EffectAdder) *FactAdder {
	return &FactAdder{kind: kind, adders: slices.Clone(adders)}
}

func (f *FactAdder) Kind() rules.FactKind { return f.kind }

// AddFact stages the fact at area. A fact already held only takes the new
// magnitude and time; its effects stay as first computed.
func (f *FactAdder) AddFact(static topology.Static, area, magnitude, timeLearned int, facts StagedFacts, related []int) {
	if b, ok := facts[f.kind]; ok {
		b.Magnitude = magnitude
		b.TimeLearned = timeLearned
		return
	}
	b := &state.FactBuilder{Kind: f.kind, Magnitude: magnitude, TimeLearned: timeLearned}
	for _, ea := range f.adders {
		b.Effects = append(b.Effects, ea.AddEffects(static, area, magnitude, related)...)
	}
	facts[f.kind] = b
}

// RemoveFact drops the staged fact together with its effects and reports
// whether one was held.
func (f *FactAdder) RemoveFact(facts StagedFacts) bool {
	if _, ok := facts[f.kind]; !ok {
		return false
	}
	delete(facts, f.kind)
	return true
}

// #endregion fact-adder

// #region registry
// Registry maps every fact kind to its FactAdder.
type Registry struct {
	adders map[rules.FactKind]*FactAdder
}

// NewRegistry starts an empty registry.
func NewRegistry() *Registry {
	return &Registry{adders: make(map[rules.FactKind]*FactAdder)}
}

// Register adds or replaces the adder for its kind.
func (r *Registry) Register(a *FactAdder) *Registry {
	r.adders[a.kind] = a
	return r
}

// Adder returns the adder for kind.
func (r *Registry) Adder(kind rules.FactKind) (*FactAdder, bool) {
	a, ok := r.adders[kind]
	return a, ok
}

// Missing lists the kinds of table that have no adder.
func (r *Registry) Missing(table *rules.Table) []rules.FactKind {
	var out []rules.FactKind
	for _, k := range table.FactKinds() {
		if _, ok := r.adders[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}

// DefaultRegistry composes the adders for rules.DefaultTable.
func DefaultRegistry() *Registry {
	return NewRegistry().
		Register(NewFactAdder(rules.SquadMemberPresence,
			EdgeConditionAdder{Kind: rules.Controlled, Pred: Control},
			EdgeConditionAdder{Kind: rules.VisibleToSquad, Pred: Visibility},
			EdgeConditionAdder{Kind: rules.Clear, Pred: Visibility},
		)).
		Register(NewFactAdder(rules.EnemyPresence,
			EdgeConditionAdder{Kind: rules.ControlledByEnemy, Pred: Control},
			EdgeConditionAdder{Kind: rules.VisibleToEnemies, Pred: Visibility},
		)).
		Register(NewFactAdder(rules.TakingFire,
			RelatedAreaAdder{Kind: rules.EnemyFireSource},
		)).
		Register(NewFactAdder(rules.TakingFireFromUnknownSource,
			EdgeConditionAdder{Kind: rules.PotentialEnemies, Pred: SeenBy},
		)).
		Register(NewFactAdder(rules.LastKnownFriendlyPosition)).
		Register(NewFactAdder(rules.LastKnownEnemyPosition,
			EdgeConditionAdder{Kind: rules.PotentialEnemies, Pred: Traversability},
		)).
		Register(NewFactAdder(rules.SourceOfEnemyFire,
			EdgeConditionAdder{Kind: rules.VisibleToEnemies, Pred: Visibility},
		))
}

// #endregion registry
