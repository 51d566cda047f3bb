package update

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/danielpatrickdp/squad-tactics/internal/rules"
)

var (
	// ErrInvalidArgument marks a change or world the updator cannot work with.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrIncompleteRegistry is returned when some fact kind has no adder.
	ErrIncompleteRegistry = fmt.Errorf("incomplete fact adder registry: %w", ErrInvalidArgument)
)

// #region fact-spec
// FactSpec is one fact as a change describes it.
type FactSpec struct {
	Kind      rules.FactKind `yaml:"kind" json:"kind"`
	Magnitude int            `yaml:"magnitude" json:"magnitude"`
	Related   []int          `yaml:"related,omitempty" json:"related,omitempty"`
}

// #endregion fact-spec

// #region change
// DynamicStateChange describes, per affected area, the facts that held
// before a change and those that hold after it.
type DynamicStateChange interface {
	AffectedAreas() []int
	TimeLearned() int
	FactsBefore() map[int][]FactSpec
	FactsAfter() map[int][]FactSpec
}

// StateChange is the plain DynamicStateChange.
type StateChange struct {
	Time   int                `yaml:"time" json:"time"`
	Before map[int][]FactSpec `yaml:"before,omitempty" json:"before,omitempty"`
	After  map[int][]FactSpec `yaml:"after,omitempty" json:"after,omitempty"`
}

var _ DynamicStateChange = StateChange{}

// AffectedAreas lists every area named before or after, ascending.
func (c StateChange) AffectedAreas() []int {
	set := make(map[int]struct{}, len(c.Before)+len(c.After))
	for a := range c.Before {
		set[a] = struct{}{}
	}
	for a := range c.After {
		set[a] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set))
}

func (c StateChange) TimeLearned() int                { return c.Time }
func (c StateChange) FactsBefore() map[int][]FactSpec { return c.Before }
func (c StateChange) FactsAfter() map[int][]FactSpec  { return c.After }

// Reversed views c with before and after swapped.
func Reversed(c DynamicStateChange) DynamicStateChange {
	return reversed{c}
}

type reversed struct{ DynamicStateChange }

func (r reversed) FactsBefore() map[int][]FactSpec { return r.DynamicStateChange.FactsAfter() }
func (r reversed) FactsAfter() map[int][]FactSpec  { return r.DynamicStateChange.FactsBefore() }

// #endregion change
