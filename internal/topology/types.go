package topology

import "errors"

// ErrInvalidArgument marks malformed construction input.
var ErrInvalidArgument = errors.New("invalid argument")

// #region static
// Static is the read surface of a fixed area graph. Area ids are dense in
// [0, NumberOfNodes()). Readers do not bounds-check ids.
type Static interface {
	NumberOfNodes() int
	Node(area int) Node

	IsVisible(from, to int) bool
	IsTraversable(from, to int) bool
	Controls(from, to int) bool
	Distance(from, to int) float64
	Exposure(from, to int) int

	// Neighbors lists areas traversable from area, ascending.
	Neighbors(area int) []int

	IsEnemyOrigin(area int) bool
	IsAttackObjective(area int) bool
	IsDefendObjective(area int) bool
	EnemyOrigins() []int
	AttackObjectives() []int
	DefendObjectives() []int
}

// #endregion static

// #region node-edge
// Node holds per-area attributes.
type Node struct {
	Name      string `yaml:"name"`
	Elevation int    `yaml:"elevation"`
	Cover     int    `yaml:"cover"`
	Indoor    bool   `yaml:"indoor"`
}

// Edge describes the directed relation from one area to another.
type Edge struct {
	Visible     bool    `yaml:"visible"`
	Traversable bool    `yaml:"traversable"`
	Controls    bool    `yaml:"controls"`
	Distance    float64 `yaml:"distance"`
	Exposure    int     `yaml:"exposure"` // how exposed a unit crossing the edge is to fire
}

// Designations marks objective and origin areas.
type Designations struct {
	EnemyOrigins     []int `yaml:"enemy_origins"`
	AttackObjectives []int `yaml:"attack_objectives"`
	DefendObjectives []int `yaml:"defend_objectives"`
}

// #endregion node-edge
