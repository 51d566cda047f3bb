package topology

import (
	"fmt"
	"slices"
)

// #region graph
// Graph is a dense Static implementation: an N x N edge matrix plus node
// attributes. It is immutable after construction.
type Graph struct {
	nodes     []Node
	edges     [][]Edge
	neighbors [][]int

	origins []int
	attack  []int
	defend  []int
	flags   []designation
}

type designation uint8

const (
	flagOrigin designation = 1 << iota
	flagAttack
	flagDefend
)

var _ Static = (*Graph)(nil)

// NewGraph validates the matrix shape and designated ids and builds a Graph.
// edges[from][to] describes the edge from -> to.
func NewGraph(nodes []Node, edges [][]Edge, d Designations) (*Graph, error) {
	if nodes == nil || edges == nil {
		return nil, fmt.Errorf("nil nodes or edges: %w", ErrInvalidArgument)
	}
	n := len(nodes)
	if len(edges) != n {
		return nil, fmt.Errorf("edge matrix has %d rows for %d nodes: %w", len(edges), n, ErrInvalidArgument)
	}
	g := &Graph{
		nodes:     slices.Clone(nodes),
		edges:     make([][]Edge, n),
		neighbors: make([][]int, n),
		flags:     make([]designation, n),
	}
	for from, row := range edges {
		if len(row) != n {
			return nil, fmt.Errorf("edge row %d has %d entries for %d nodes: %w", from, len(row), n, ErrInvalidArgument)
		}
		g.edges[from] = slices.Clone(row)
		for to, e := range row {
			if e.Distance < 0 {
				return nil, fmt.Errorf("edge %d->%d has negative distance: %w", from, to, ErrInvalidArgument)
			}
			if e.Traversable && to != from {
				g.neighbors[from] = append(g.neighbors[from], to)
			}
		}
	}

	var err error
	if g.origins, err = g.designate(d.EnemyOrigins, flagOrigin); err != nil {
		return nil, fmt.Errorf("enemy origins: %w", err)
	}
	if g.attack, err = g.designate(d.AttackObjectives, flagAttack); err != nil {
		return nil, fmt.Errorf("attack objectives: %w", err)
	}
	if g.defend, err = g.designate(d.DefendObjectives, flagDefend); err != nil {
		return nil, fmt.Errorf("defend objectives: %w", err)
	}
	return g, nil
}

func (g *Graph) designate(ids []int, flag designation) ([]int, error) {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id < 0 || id >= len(g.nodes) {
			return nil, fmt.Errorf("area %d out of range: %w", id, ErrInvalidArgument)
		}
		if g.flags[id]&flag != 0 {
			continue
		}
		g.flags[id] |= flag
		out = append(out, id)
	}
	slices.Sort(out)
	return out, nil
}

// #endregion graph

// #region readers
func (g *Graph) NumberOfNodes() int    { return len(g.nodes) }
func (g *Graph) Node(area int) Node    { return g.nodes[area] }
func (g *Graph) Edge(from, to int) Edge { return g.edges[from][to] }

func (g *Graph) IsVisible(from, to int) bool     { return g.edges[from][to].Visible }
func (g *Graph) IsTraversable(from, to int) bool { return g.edges[from][to].Traversable }
func (g *Graph) Controls(from, to int) bool      { return g.edges[from][to].Controls }
func (g *Graph) Distance(from, to int) float64   { return g.edges[from][to].Distance }
func (g *Graph) Exposure(from, to int) int       { return g.edges[from][to].Exposure }

// Neighbors returns the traversable neighbors of area. The slice is shared; do not modify it.
func (g *Graph) Neighbors(area int) []int { return g.neighbors[area] }

func (g *Graph) IsEnemyOrigin(area int) bool     { return g.flags[area]&flagOrigin != 0 }
func (g *Graph) IsAttackObjective(area int) bool { return g.flags[area]&flagAttack != 0 }
func (g *Graph) IsDefendObjective(area int) bool { return g.flags[area]&flagDefend != 0 }

func (g *Graph) EnemyOrigins() []int     { return slices.Clone(g.origins) }
func (g *Graph) AttackObjectives() []int { return slices.Clone(g.attack) }
func (g *Graph) DefendObjectives() []int { return slices.Clone(g.defend) }

// #endregion readers

// #region chain
// Chain builds a linear graph 0-1-...-(n-1) where adjacent areas are
// traversable, mutually visible and spacing apart. Each area controls itself.
func Chain(n int, spacing float64, d Designations) (*Graph, error) {
	nodes := make([]Node, n)
	edges := make([][]Edge, n)
	for i := range nodes {
		nodes[i] = Node{Name: fmt.Sprintf("area-%d", i)}
		edges[i] = make([]Edge, n)
		edges[i][i] = Edge{Visible: true, Controls: true}
	}
	for i := 0; i+1 < n; i++ {
		link := Edge{Visible: true, Traversable: true, Distance: spacing}
		edges[i][i+1] = link
		edges[i+1][i] = link
	}
	return NewGraph(nodes, edges, d)
}

// #endregion chain
