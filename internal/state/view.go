package state

import "github.com/danielpatrickdp/squad-tactics/internal/rules"

// #region area-node
// AreaNode is the client-facing view of one area. Facts and effects stay
// hidden behind these derived values so rule changes do not reach callers.
type AreaNode struct {
	ID int

	FriendlyPresence int
	EnemyPresence    int
	DangerLevel      int

	IsClear             bool
	IsControlledByTeam  bool
	IsControlledByEnemy bool
	IsInfluencedByTeam  bool
	VisibleToEnemies    bool
	VisibleToSquad      bool
	PotentialEnemies    bool
	IsSourceOfEnemyFire bool
	TakingFire          bool

	IsFriendlyArea  bool
	IsEnemyArea     bool
	IsContestedArea bool
	NoKnownPresence bool
}

// Area reads every attribute of one area.
func (ds *DynamicState) Area(area int) AreaNode {
	return AreaNode{
		ID:                  area,
		FriendlyPresence:    ds.FriendlyPresence(area),
		EnemyPresence:       ds.EnemyPresence(area),
		DangerLevel:         ds.DangerLevel(area),
		IsClear:             ds.IsClear(area),
		IsControlledByTeam:  ds.IsControlledByTeam(area),
		IsControlledByEnemy: ds.IsControlledByEnemy(area),
		IsInfluencedByTeam:  ds.IsInfluencedByTeam(area),
		VisibleToEnemies:    ds.VisibleToEnemies(area),
		VisibleToSquad:      ds.VisibleToSquad(area),
		PotentialEnemies:    ds.PotentialEnemies(area),
		IsSourceOfEnemyFire: ds.IsSourceOfEnemyFire(area),
		TakingFire:          ds.TakingFire(area),
		IsFriendlyArea:      ds.IsFriendlyArea(area),
		IsEnemyArea:         ds.IsEnemyArea(area),
		IsContestedArea:     ds.IsContestedArea(area),
		NoKnownPresence:     ds.NoKnownPresence(area),
	}
}

// Areas reads every area.
func (ds *DynamicState) Areas() []AreaNode {
	out := make([]AreaNode, ds.NumberOfNodes())
	for i := range out {
		out[i] = ds.Area(i)
	}
	return out
}

// #endregion area-node

// #region readers
func (ds *DynamicState) magnitude(area int, k rules.FactKind) int {
	return ds.facts[area][k].magnitude
}

func (ds *DynamicState) FriendlyPresence(area int) int {
	return ds.magnitude(area, rules.SquadMemberPresence)
}

func (ds *DynamicState) EnemyPresence(area int) int {
	return ds.magnitude(area, rules.EnemyPresence)
}

// DangerLevel adds incoming fire to how strongly enemies can see the area.
func (ds *DynamicState) DangerLevel(area int) int {
	danger := ds.magnitude(area, rules.TakingFire) + ds.magnitude(area, rules.TakingFireFromUnknownSource)
	if ds.active[area].Has(rules.VisibleToEnemies) {
		danger += ds.sums[area][rules.VisibleToEnemies].valueSum
	}
	return danger
}

func (ds *DynamicState) IsClear(area int) bool {
	return ds.active[area].Has(rules.Clear)
}

func (ds *DynamicState) IsControlledByTeam(area int) bool {
	return ds.active[area].Has(rules.Controlled)
}

func (ds *DynamicState) IsControlledByEnemy(area int) bool {
	return ds.active[area].Has(rules.ControlledByEnemy)
}

// IsInfluencedByTeam holds where the team has control or is physically
// present, even when enemies contest the area.
func (ds *DynamicState) IsInfluencedByTeam(area int) bool {
	return ds.IsControlledByTeam(area) || ds.FriendlyPresence(area) > 0
}

func (ds *DynamicState) VisibleToEnemies(area int) bool {
	return ds.active[area].Has(rules.VisibleToEnemies)
}

func (ds *DynamicState) VisibleToSquad(area int) bool {
	return ds.active[area].Has(rules.VisibleToSquad)
}

func (ds *DynamicState) PotentialEnemies(area int) bool {
	return ds.active[area].Has(rules.PotentialEnemies)
}

func (ds *DynamicState) IsSourceOfEnemyFire(area int) bool {
	return ds.active[area].Has(rules.EnemyFireSource)
}

func (ds *DynamicState) TakingFire(area int) bool {
	return ds.magnitude(area, rules.TakingFire) > 0 || ds.magnitude(area, rules.TakingFireFromUnknownSource) > 0
}

func (ds *DynamicState) IsFriendlyArea(area int) bool {
	return ds.FriendlyPresence(area) > 0 && ds.EnemyPresence(area) <= 0
}

func (ds *DynamicState) IsEnemyArea(area int) bool {
	return ds.EnemyPresence(area) > 0 && ds.FriendlyPresence(area) <= 0
}

func (ds *DynamicState) IsContestedArea(area int) bool {
	return ds.FriendlyPresence(area) > 0 && ds.EnemyPresence(area) > 0
}

func (ds *DynamicState) NoKnownPresence(area int) bool {
	return ds.FriendlyPresence(area) <= 0 && ds.EnemyPresence(area) <= 0
}

// #endregion readers

// #region columns
// Bools evaluates a boolean reader over every area, e.g.
// ds.Bools((*DynamicState).IsClear).
func (ds *DynamicState) Bools(read func(*DynamicState, int) bool) []bool {
	out := make([]bool, ds.NumberOfNodes())
	for i := range out {
		out[i] = read(ds, i)
	}
	return out
}

// Ints evaluates an integer reader over every area.
func (ds *DynamicState) Ints(read func(*DynamicState, int) int) []int {
	out := make([]int, ds.NumberOfNodes())
	for i := range out {
		out[i] = read(ds, i)
	}
	return out
}

// AreasWhere lists the areas for which read holds.
func (ds *DynamicState) AreasWhere(read func(*DynamicState, int) bool) []int {
	var out []int
	for i := range ds.NumberOfNodes() {
		if read(ds, i) {
			out = append(out, i)
		}
	}
	return out
}

// #endregion columns

// #region edge-node
// EdgeNode tells which effects the area at From is causing on the area at To.
type EdgeNode struct {
	From    int
	To      int
	Causing rules.EffectSet
}

// Edge reads the causal relation between two areas.
func (ds *DynamicState) Edge(from, to int) EdgeNode {
	var causing rules.EffectSet
	for kind, sum := range ds.sums[to] {
		if sum.HasCause(from) {
			causing = causing.With(kind)
		}
	}
	return EdgeNode{From: from, To: to, Causing: causing}
}

func (e EdgeNode) IsCausing(k rules.EffectKind) bool { return e.Causing.Has(k) }
func (e EdgeNode) CausingClear() bool                { return e.Causing.Has(rules.Clear) }
func (e EdgeNode) CausingControl() bool              { return e.Causing.Has(rules.Controlled) }
func (e EdgeNode) CausingEnemyVisibility() bool      { return e.Causing.Has(rules.VisibleToEnemies) }

// #endregion edge-node
