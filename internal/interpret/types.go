package interpret

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// ErrInvalidArgument marks a topology and snapshot that do not belong together.
var ErrInvalidArgument = errors.New("invalid argument")

// #region threat-level
// ThreatLevel orders areas from safest to worst. Unchecked only exists while
// the search runs and is never exposed.
type ThreatLevel int

const (
	Unchecked ThreatLevel = iota
	Secure
	Clear
	Neutral
	PotentialThreat
	KnownThreat
	ActiveThreat
)

var threatLevelNames = [...]string{
	Unchecked:       "unchecked",
	Secure:          "secure",
	Clear:           "clear",
	Neutral:         "neutral",
	PotentialThreat: "potential_threat",
	KnownThreat:     "known_threat",
	ActiveThreat:    "active_threat",
}

func (l ThreatLevel) String() string {
	if l < 0 || int(l) >= len(threatLevelNames) {
		return fmt.Sprintf("threat_level(%d)", int(l))
	}
	return threatLevelNames[l]
}

// ParseThreatLevel reads the snake_case name of a level.
func ParseThreatLevel(s string) (ThreatLevel, error) {
	for i, name := range threatLevelNames {
		if name == s {
			return ThreatLevel(i), nil
		}
	}
	return 0, fmt.Errorf("unknown threat level %q", s)
}

func (l ThreatLevel) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

func (l *ThreatLevel) UnmarshalText(b []byte) error {
	v, err := ParseThreatLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// #endregion threat-level

// #region config
// Config tunes the interpreter.
type Config struct {
	// DistanceThreshold is the accumulated distance past which a threat
	// decays to Neutral.
	DistanceThreshold float64 `mapstructure:"distance_threshold"`
}

// DefaultConfig returns the standard 100-unit threshold.
func DefaultConfig() Config {
	return Config{DistanceThreshold: 100}
}

// #endregion config

// #region interpretation
// Interpretation is the threat classification of every area together with
// the areas that explain each classification.
type Interpretation struct {
	levels  []ThreatLevel
	sources [][]int
}

// NewInterpretation wraps levels computed elsewhere, e.g. read off the wire.
// sources may be nil.
func NewInterpretation(levels []ThreatLevel, sources [][]int) (*Interpretation, error) {
	if sources == nil {
		sources = make([][]int, len(levels))
	}
	if len(sources) != len(levels) {
		return nil, fmt.Errorf("%d source lists for %d levels: %w", len(sources), len(levels), ErrInvalidArgument)
	}
	in := &Interpretation{levels: slices.Clone(levels), sources: make([][]int, len(levels))}
	for a, s := range sources {
		in.sources[a] = slices.Sorted(slices.Values(s))
	}
	return in, nil
}

// NumberOfNodes is the number of classified areas.
func (in *Interpretation) NumberOfNodes() int { return len(in.levels) }

// Level returns the classification of area.
func (in *Interpretation) Level(area int) ThreatLevel { return in.levels[area] }

// Levels returns a copy of every classification.
func (in *Interpretation) Levels() []ThreatLevel { return slices.Clone(in.levels) }

// Sources lists the areas that explain the classification of area, ascending.
func (in *Interpretation) Sources(area int) []int { return slices.Clone(in.sources[area]) }

// AreasAt lists the areas classified at level.
func (in *Interpretation) AreasAt(level ThreatLevel) []int {
	var out []int
	for a, l := range in.levels {
		if l == level {
			out = append(out, a)
		}
	}
	return out
}

// SourcesFor is the union of sources over every area classified at level.
func (in *Interpretation) SourcesFor(level ThreatLevel) []int {
	set := make(map[int]struct{})
	for a, l := range in.levels {
		if l != level {
			continue
		}
		for _, s := range in.sources[a] {
			set[s] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(set))
}

// Counts tallies areas per level.
func (in *Interpretation) Counts() map[ThreatLevel]int {
	out := make(map[ThreatLevel]int)
	for _, l := range in.levels {
		out[l]++
	}
	return out
}

// #endregion interpretation
