package rules

import (
	"fmt"
	"math/bits"
	"strings"
)

// #region fact-kind
// FactKind identifies a directly observed piece of knowledge about one area.
// Kinds are small integers so that sets of them fit in a bitmask; a Table may
// register any kind below MaxKinds.
type FactKind int

const (
	SquadMemberPresence FactKind = iota
	EnemyPresence
	TakingFire
	TakingFireFromUnknownSource
	LastKnownFriendlyPosition
	LastKnownEnemyPosition
	SourceOfEnemyFire
)

// MaxKinds bounds both fact and effect kinds.
const MaxKinds = 64

var factNames = map[FactKind]string{
	SquadMemberPresence:         "squad_member_presence",
	EnemyPresence:               "enemy_presence",
	TakingFire:                  "taking_fire",
	TakingFireFromUnknownSource: "taking_fire_from_unknown_source",
	LastKnownFriendlyPosition:   "last_known_friendly_position",
	LastKnownEnemyPosition:      "last_known_enemy_position",
	SourceOfEnemyFire:           "source_of_enemy_fire",
}

func (k FactKind) String() string {
	if name, ok := factNames[k]; ok {
		return name
	}
	return fmt.Sprintf("fact(%d)", int(k))
}

// ParseFactKind resolves the snake_case name used in fixtures and on the wire.
func ParseFactKind(s string) (FactKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range factNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown fact kind %q", s)
}

// MarshalText encodes the kind by name.
func (k FactKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText decodes a kind name.
func (k *FactKind) UnmarshalText(b []byte) error {
	v, err := ParseFactKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// #endregion fact-kind

// #region effect-kind
// EffectKind identifies a derived consequence of a fact on some area.
type EffectKind int

const (
	Clear EffectKind = iota
	Controlled
	ControlledByEnemy
	VisibleToEnemies
	VisibleToSquad
	PotentialEnemies
	EnemyFireSource
)

var effectNames = map[EffectKind]string{
	Clear:             "clear",
	Controlled:        "controlled",
	ControlledByEnemy: "controlled_by_enemy",
	VisibleToEnemies:  "visible_to_enemies",
	VisibleToSquad:    "visible_to_squad",
	PotentialEnemies:  "potential_enemies",
	EnemyFireSource:   "source_of_enemy_fire",
}

func (k EffectKind) String() string {
	if name, ok := effectNames[k]; ok {
		return name
	}
	return fmt.Sprintf("effect(%d)", int(k))
}

// ParseEffectKind resolves a snake_case effect name.
func ParseEffectKind(s string) (EffectKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range effectNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown effect kind %q", s)
}

// MarshalText encodes the kind by name.
func (k EffectKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText decodes a kind name.
func (k *EffectKind) UnmarshalText(b []byte) error {
	v, err := ParseEffectKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// #endregion effect-kind

// #region sets
// EffectSet is a bitmask of effect kinds.
type EffectSet uint64

// Effects builds a set from kinds.
func Effects(kinds ...EffectKind) EffectSet {
	var s EffectSet
	for _, k := range kinds {
		s = s.With(k)
	}
	return s
}

func (s EffectSet) Has(k EffectKind) bool     { return s&(1<<uint(k)) != 0 }
func (s EffectSet) With(k EffectKind) EffectSet { return s | 1<<uint(k) }
func (s EffectSet) Union(o EffectSet) EffectSet { return s | o }
func (s EffectSet) Empty() bool                 { return s == 0 }
func (s EffectSet) Len() int                    { return bits.OnesCount64(uint64(s)) }

// Kinds lists the members in ascending order.
func (s EffectSet) Kinds() []EffectKind {
	out := make([]EffectKind, 0, s.Len())
	for k := EffectKind(0); k < MaxKinds; k++ {
		if s.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// FactSet is a bitmask of fact kinds.
type FactSet uint64

// Facts builds a set from kinds.
func Facts(kinds ...FactKind) FactSet {
	var s FactSet
	for _, k := range kinds {
		s = s.With(k)
	}
	return s
}

func (s FactSet) Has(k FactKind) bool     { return s&(1<<uint(k)) != 0 }
func (s FactSet) With(k FactKind) FactSet { return s | 1<<uint(k) }
func (s FactSet) Empty() bool             { return s == 0 }

// Kinds lists the members in ascending order.
func (s FactSet) Kinds() []FactKind {
	out := make([]FactKind, 0, bits.OnesCount64(uint64(s)))
	for k := FactKind(0); k < MaxKinds; k++ {
		if s.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// #endregion sets
