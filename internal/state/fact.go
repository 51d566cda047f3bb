package state

import (
	"errors"
	"fmt"
	"slices"

	"github.com/danielpatrickdp/squad-tactics/internal/rules"
)

// ErrEffectKindMismatch is returned when an EffectSum is fed an effect of another kind.
var ErrEffectKindMismatch = errors.New("effect kind mismatch")

// #region effect
// Effect is a consequence of a fact held at Cause, applied to Target.
type Effect struct {
	Kind      rules.EffectKind `json:"kind"`
	Magnitude int              `json:"magnitude"`
	Target    int              `json:"target"`
	Cause     int              `json:"cause"`
}

// Equal compares kind, magnitude and target. Causes are tracked by EffectSum.
func (e Effect) Equal(o Effect) bool {
	return e.Kind == o.Kind && e.Magnitude == o.Magnitude && e.Target == o.Target
}

// #endregion effect

// #region fact
// Fact is a published piece of knowledge about one area. It cannot be
// changed; the update engine stages edits on a FactBuilder instead.
type Fact struct {
	kind        rules.FactKind
	magnitude   int
	timeLearned int
	effects     []Effect
}

// NewFact publishes a fact with its own copy of effects.
func NewFact(kind rules.FactKind, magnitude, timeLearned int, effects []Effect) Fact {
	return Fact{kind: kind, magnitude: magnitude, timeLearned: timeLearned, effects: slices.Clone(effects)}
}

func (f Fact) Kind() rules.FactKind { return f.kind }
func (f Fact) Magnitude() int       { return f.magnitude }
func (f Fact) TimeLearned() int     { return f.timeLearned }
func (f Fact) NumEffects() int      { return len(f.effects) }

// Effects returns a copy of the effects caused by the fact.
func (f Fact) Effects() []Effect { return slices.Clone(f.effects) }

// Builder returns a mutable copy for staging an edit.
func (f Fact) Builder() *FactBuilder {
	return &FactBuilder{
		Kind:        f.kind,
		Magnitude:   f.magnitude,
		TimeLearned: f.timeLearned,
		Effects:     slices.Clone(f.effects),
	}
}

// AreaFacts holds the facts of one area keyed by kind.
type AreaFacts map[rules.FactKind]Fact

// #endregion fact

// #region fact-builder
// FactBuilder is the staging form of a Fact. The update engine adjusts
// magnitude, time and effects in place and publishes with Build.
type FactBuilder struct {
	Kind        rules.FactKind
	Magnitude   int
	TimeLearned int
	Effects     []Effect
}

// Build publishes the staged fact.
func (b *FactBuilder) Build() Fact {
	return NewFact(b.Kind, b.Magnitude, b.TimeLearned, b.Effects)
}

// #endregion fact-builder

// #region effect-sum
// EffectSum aggregates every effect of one kind landing on one area.
// The zero value is empty and adopts the kind of the first effect.
type EffectSum struct {
	kind     rules.EffectKind
	valueSum int
	maxValue int
	causes   []int
}

// Incorporate folds e into the sum. Mixing kinds is a programming error and
// leaves the sum unchanged.
func (s *EffectSum) Incorporate(e Effect) error {
	if len(s.causes) == 0 {
		s.kind = e.Kind
		s.maxValue = e.Magnitude
	} else if s.kind != e.Kind {
		return fmt.Errorf("incorporate %s into %s sum: %w", e.Kind, s.kind, ErrEffectKindMismatch)
	}
	s.valueSum += e.Magnitude
	if e.Magnitude > s.maxValue {
		s.maxValue = e.Magnitude
	}
	if !slices.Contains(s.causes, e.Cause) {
		s.causes = append(s.causes, e.Cause)
	}
	return nil
}

func (s EffectSum) Kind() rules.EffectKind { return s.kind }
func (s EffectSum) ValueSum() int          { return s.valueSum }
func (s EffectSum) MaxValue() int          { return s.maxValue }
func (s EffectSum) Empty() bool            { return len(s.causes) == 0 }

// Causes returns the cause areas in incorporation order.
func (s EffectSum) Causes() []int { return slices.Clone(s.causes) }

// HasCause reports whether area contributed to the sum.
func (s EffectSum) HasCause(area int) bool { return slices.Contains(s.causes, area) }

// #endregion effect-sum
