package rules

import (
	"errors"
	"fmt"
)

// ErrKindOutOfRange is returned by Build when a kind does not fit the bitmask sets.
var ErrKindOutOfRange = errors.New("kind out of range")

// #region table
// Table relates fact kinds and effect kinds: which effects a fact includes on
// its own area, which effects a fact precludes, and which effects preclude
// other effects. Preclusion always wins over inclusion. A Table is immutable
// once built and safe to share between goroutines.
type Table struct {
	facts FactSet

	includedByFact   map[FactKind]EffectSet
	precludedByFact  map[FactKind]EffectSet
	precludedByEffect map[EffectKind]EffectSet

	// reverse lookups keyed by the affected effect kind
	factsIncluding    map[EffectKind]FactSet
	factsPrecluding   map[EffectKind]FactSet
	effectsPrecluding map[EffectKind]EffectSet
}

// FactKinds returns every fact kind the table recognizes, ascending.
func (t *Table) FactKinds() []FactKind { return t.facts.Kinds() }

// Recognizes reports whether k was registered with the table.
func (t *Table) Recognizes(k FactKind) bool { return t.facts.Has(k) }

// EffectsIncludedByFact returns the effects a fact of kind k asserts on its own area.
func (t *Table) EffectsIncludedByFact(k FactKind) EffectSet { return t.includedByFact[k] }

// EffectsPrecludedByFact returns the effects a fact of kind k forbids on its own area.
func (t *Table) EffectsPrecludedByFact(k FactKind) EffectSet { return t.precludedByFact[k] }

// EffectsPrecludedByEffect returns the effects that an effective effect e forbids.
func (t *Table) EffectsPrecludedByEffect(e EffectKind) EffectSet { return t.precludedByEffect[e] }

// FactsIncludingEffect returns the fact kinds that include e.
func (t *Table) FactsIncludingEffect(e EffectKind) FactSet { return t.factsIncluding[e] }

// FactsPrecludingEffect returns the fact kinds that preclude e.
func (t *Table) FactsPrecludingEffect(e EffectKind) FactSet { return t.factsPrecluding[e] }

// EffectsPrecludingEffect returns the effect kinds that preclude e.
func (t *Table) EffectsPrecludingEffect(e EffectKind) EffectSet { return t.effectsPrecluding[e] }

// #endregion table

// #region builder
// Builder accumulates relations before freezing them into a Table.
type Builder struct {
	facts             FactSet
	includedByFact    map[FactKind]EffectSet
	precludedByFact   map[FactKind]EffectSet
	precludedByEffect map[EffectKind]EffectSet
	err               error
}

// NewBuilder starts an empty rule table.
func NewBuilder() *Builder {
	return &Builder{
		includedByFact:    make(map[FactKind]EffectSet),
		precludedByFact:   make(map[FactKind]EffectSet),
		precludedByEffect: make(map[EffectKind]EffectSet),
	}
}

// Fact registers k as a recognized fact kind even if it has no relations.
func (b *Builder) Fact(k FactKind) *Builder {
	if !b.checkFact(k) {
		return b
	}
	b.facts = b.facts.With(k)
	return b
}

// Include records that a fact of kind k asserts effects on its own area.
func (b *Builder) Include(k FactKind, effects ...EffectKind) *Builder {
	b.Fact(k)
	for _, e := range effects {
		if b.checkEffect(e) {
			b.includedByFact[k] = b.includedByFact[k].With(e)
		}
	}
	return b
}

// PrecludeByFact records that a fact of kind k forbids effects on its own area.
func (b *Builder) PrecludeByFact(k FactKind, effects ...EffectKind) *Builder {
	b.Fact(k)
	for _, e := range effects {
		if b.checkEffect(e) {
			b.precludedByFact[k] = b.precludedByFact[k].With(e)
		}
	}
	return b
}

// PrecludeByEffect records that effect e forbids the given effects where both apply.
func (b *Builder) PrecludeByEffect(e EffectKind, effects ...EffectKind) *Builder {
	if !b.checkEffect(e) {
		return b
	}
	for _, p := range effects {
		if b.checkEffect(p) {
			b.precludedByEffect[e] = b.precludedByEffect[e].With(p)
		}
	}
	return b
}

// Build freezes the relations and computes the reverse lookups.
func (b *Builder) Build() (*Table, error) {
	if b.err != nil {
		return nil, b.err
	}
	t := &Table{
		facts:             b.facts,
		includedByFact:    make(map[FactKind]EffectSet, len(b.includedByFact)),
		precludedByFact:   make(map[FactKind]EffectSet, len(b.precludedByFact)),
		precludedByEffect: make(map[EffectKind]EffectSet, len(b.precludedByEffect)),
		factsIncluding:    make(map[EffectKind]FactSet),
		factsPrecluding:   make(map[EffectKind]FactSet),
		effectsPrecluding: make(map[EffectKind]EffectSet),
	}
	for k, s := range b.includedByFact {
		t.includedByFact[k] = s
		for _, e := range s.Kinds() {
			t.factsIncluding[e] = t.factsIncluding[e].With(k)
		}
	}
	for k, s := range b.precludedByFact {
		t.precludedByFact[k] = s
		for _, e := range s.Kinds() {
			t.factsPrecluding[e] = t.factsPrecluding[e].With(k)
		}
	}
	for e, s := range b.precludedByEffect {
		t.precludedByEffect[e] = s
		for _, p := range s.Kinds() {
			t.effectsPrecluding[p] = t.effectsPrecluding[p].With(e)
		}
	}
	return t, nil
}

func (b *Builder) checkFact(k FactKind) bool {
	if k < 0 || k >= MaxKinds {
		if b.err == nil {
			b.err = fmt.Errorf("fact kind %d: %w", int(k), ErrKindOutOfRange)
		}
		return false
	}
	return true
}

func (b *Builder) checkEffect(e EffectKind) bool {
	if e < 0 || e >= MaxKinds {
		if b.err == nil {
			b.err = fmt.Errorf("effect kind %d: %w", int(e), ErrKindOutOfRange)
		}
		return false
	}
	return true
}

// #endregion builder

// #region default-table
// DefaultTable returns the rule set used by squad-level play.
func DefaultTable() *Table {
	t, err := NewBuilder().
		Include(SquadMemberPresence, Controlled, VisibleToSquad, Clear).
		PrecludeByFact(SquadMemberPresence, PotentialEnemies).
		Include(EnemyPresence, ControlledByEnemy, VisibleToEnemies, PotentialEnemies).
		PrecludeByFact(EnemyPresence, Clear, Controlled).
		Fact(TakingFire).
		Fact(TakingFireFromUnknownSource).
		Fact(LastKnownFriendlyPosition).
		Include(LastKnownEnemyPosition, PotentialEnemies).
		Include(SourceOfEnemyFire, EnemyFireSource, PotentialEnemies).
		PrecludeByFact(SourceOfEnemyFire, Clear, Controlled).
		PrecludeByEffect(Clear, PotentialEnemies).
		PrecludeByEffect(Controlled, ControlledByEnemy).
		PrecludeByEffect(ControlledByEnemy, Controlled).
		PrecludeByEffect(EnemyFireSource, Clear).
		Build()
	if err != nil {
		panic(fmt.Sprintf("rules: default table: %v", err))
	}
	return t
}

// #endregion default-table
