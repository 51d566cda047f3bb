package topology

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contactGraph builds the seven-area layout used by the grouping tests:
// area 0 sees 1, 3 and 5 (and 4, which nothing can reach); 2 hangs off 1
// and 6 hangs off 5.
func contactGraph(t *testing.T) *Graph {
	t.Helper()
	doc := Document{
		Nodes: make([]Node, 7),
		Edges: []EdgeDocument{
			{From: 0, To: 1, Bidirectional: true, Edge: Edge{Visible: true, Traversable: true, Distance: 10}},
			{From: 0, To: 3, Bidirectional: true, Edge: Edge{Visible: true, Traversable: true, Distance: 10}},
			{From: 0, To: 5, Bidirectional: true, Edge: Edge{Visible: true, Traversable: true, Distance: 10}},
			{From: 1, To: 2, Bidirectional: true, Edge: Edge{Traversable: true, Distance: 10}},
			{From: 5, To: 6, Bidirectional: true, Edge: Edge{Traversable: true, Distance: 10}},
			{From: 0, To: 4, Edge: Edge{Visible: true}},
		},
	}
	g, err := doc.Build()
	require.NoError(t, err)
	return g
}

func TestContactPointGroupsSplitsDisconnectedApproaches(t *testing.T) {
	g := contactGraph(t)
	assert.Equal(t, [][]int{{2}, {6}}, ContactPointGroups(g, 0))
}

func TestContactPointGroupsMergesConnectedApproaches(t *testing.T) {
	g := contactGraph(t)
	// Linking 2 and 6 turns the two approaches into one.
	edges := make([][]Edge, 7)
	for from := range edges {
		edges[from] = make([]Edge, 7)
		for to := range edges[from] {
			edges[from][to] = g.Edge(from, to)
		}
	}
	edges[2][6] = Edge{Traversable: true, Distance: 40}
	edges[6][2] = Edge{Traversable: true, Distance: 40}
	linked, err := NewGraph(make([]Node, 7), edges, Designations{})
	require.NoError(t, err)

	assert.Equal(t, [][]int{{2, 6}}, ContactPointGroups(linked, 0))
}

func TestContactPointGroupsNothingHidden(t *testing.T) {
	g, err := Chain(2, 10, Designations{})
	require.NoError(t, err)
	assert.Empty(t, ContactPointGroups(g, 0))
}

func TestNewGraphRejectsMismatchedShapes(t *testing.T) {
	_, err := NewGraph(make([]Node, 2), [][]Edge{make([]Edge, 2)}, Designations{})
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = NewGraph(make([]Node, 2), [][]Edge{make([]Edge, 2), make([]Edge, 1)}, Designations{})
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = NewGraph(nil, nil, Designations{})
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = Chain(3, 10, Designations{EnemyOrigins: []int{3}})
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestChainLayout(t *testing.T) {
	g, err := Chain(4, 25, Designations{EnemyOrigins: []int{3, 3}, DefendObjectives: []int{0}})
	require.NoError(t, err)

	assert.Equal(t, 4, g.NumberOfNodes())
	assert.Equal(t, []int{0, 2}, g.Neighbors(1))
	assert.Equal(t, 25.0, g.Distance(2, 3))
	assert.True(t, g.Controls(2, 2))
	assert.False(t, g.Controls(2, 3))
	assert.False(t, g.IsTraversable(0, 2))
	assert.Equal(t, []int{3}, g.EnemyOrigins())
	assert.True(t, g.IsDefendObjective(0))
	assert.False(t, g.IsAttackObjective(0))
}

func TestLoadYAML(t *testing.T) {
	const doc = `
nodes:
  - name: courtyard
    cover: 1
  - name: gate
  - name: street
    indoor: false
edges:
  - from: 0
    to: 1
    bidirectional: true
    visible: true
    traversable: true
    distance: 40
  - from: 1
    to: 2
    traversable: true
    controls: true
    distance: 60
    exposure: 3
self_control: true
enemy_origins: [2]
defend_objectives: [0]
`
	path := filepath.Join(t.TempDir(), "map.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	g, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, g.NumberOfNodes())
	assert.Equal(t, "courtyard", g.Node(0).Name)
	assert.Equal(t, 1, g.Node(0).Cover)
	assert.True(t, g.IsVisible(1, 0))
	assert.True(t, g.IsTraversable(1, 2))
	assert.False(t, g.IsTraversable(2, 1))
	assert.True(t, g.Controls(1, 2))
	assert.True(t, g.Controls(0, 0))
	assert.Equal(t, 3, g.Exposure(1, 2))
	assert.Equal(t, []int{2}, g.EnemyOrigins())
	assert.Equal(t, []int{0}, g.DefendObjectives())

	raw, err := ReadDocument(path)
	require.NoError(t, err)
	assert.Len(t, raw.Nodes, 3)
	assert.Equal(t, []int{2}, raw.EnemyOrigins)
}

func TestParseRejectsBadEdges(t *testing.T) {
	_, err := Parse([]byte("nodes: [{name: a}]\nedges: [{from: 0, to: 4}]\n"))
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = Parse([]byte("nodes: [{name: a}]\nunknown_key: 1\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
