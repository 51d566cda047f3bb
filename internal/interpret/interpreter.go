package interpret

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/danielpatrickdp/squad-tactics/internal/state"
	"github.com/danielpatrickdp/squad-tactics/internal/topology"
	"github.com/emirpasic/gods/queues/priorityqueue"
	"go.uber.org/zap"
)

// #region interpreter
// Interpreter classifies areas by running one search seeded from every
// enemy-presence and enemy-origin area at once.
type Interpreter struct {
	config Config
	logger *zap.Logger
}

// NewInterpreter creates an interpreter. A nil logger disables logging.
func NewInterpreter(config Config, logger *zap.Logger) *Interpreter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interpreter{config: config, logger: logger.Named("interpreter")}
}

// #endregion interpreter

// #region frontier
// entry is one frontier item. pred is -1 for seeds. seq breaks cost ties in
// discovery order since the heap under the queue is not stable.
type entry struct {
	area int
	pred int
	cost float64
	seq  int
}

func byCostThenSeq(a, b interface{}) int {
	x, y := a.(entry), b.(entry)
	if c := cmp.Compare(x.cost, y.cost); c != 0 {
		return c
	}
	return cmp.Compare(x.seq, y.seq)
}

type expansion struct {
	area  int
	level ThreatLevel
}

// search holds the working state of one Interpret call.
type search struct {
	static    topology.Static
	ds        *state.DynamicState
	threshold float64

	queue    *priorityqueue.Queue
	seq      int
	levels   []ThreatLevel
	sources  []map[int]struct{}
	selfDet  []bool
	expanded map[expansion]struct{}
}

func (s *search) push(area, pred int, cost float64) {
	s.queue.Enqueue(entry{area: area, pred: pred, cost: cost, seq: s.seq})
	s.seq++
}

// #endregion frontier

// #region interpret
// Interpret classifies every area of the world formed by static and ds.
func (ip *Interpreter) Interpret(static topology.Static, ds *state.DynamicState) (*Interpretation, error) {
	if static == nil || ds == nil {
		return nil, fmt.Errorf("nil topology or dynamic state: %w", ErrInvalidArgument)
	}
	n := static.NumberOfNodes()
	if ds.NumberOfNodes() != n {
		return nil, fmt.Errorf("dynamic state covers %d areas, topology %d: %w", ds.NumberOfNodes(), n, ErrInvalidArgument)
	}

	s := &search{
		static:    static,
		ds:        ds,
		threshold: ip.config.DistanceThreshold,
		queue:     priorityqueue.NewWith(byCostThenSeq),
		levels:    make([]ThreatLevel, n),
		sources:   make([]map[int]struct{}, n),
		selfDet:   make([]bool, n),
		expanded:  make(map[expansion]struct{}),
	}

	enemies := ds.AreasWhere(func(ds *state.DynamicState, a int) bool { return ds.EnemyPresence(a) > 0 })
	for _, a := range enemies {
		s.push(a, -1, 0)
	}
	for _, a := range static.EnemyOrigins() {
		s.push(a, -1, 0)
	}

	steps := 0
	for !s.queue.Empty() {
		v, _ := s.queue.Dequeue()
		if s.visit(v.(entry)) {
			steps++
		}
	}

	for _, a := range enemies {
		s.levels[a] = KnownThreat
		s.sources[a] = map[int]struct{}{a: {}}
	}
	// TODO: promote engaged areas to ActiveThreat once engagement facts exist.

	out := &Interpretation{levels: s.levels, sources: make([][]int, n)}
	for a := range n {
		if out.levels[a] == Unchecked {
			out.levels[a] = Secure
		}
		out.sources[a] = slices.Sorted(maps.Keys(s.sources[a]))
	}

	ip.logger.Debug("interpretation complete",
		zap.Int("areas", n),
		zap.Int("seeds", len(enemies)+len(static.EnemyOrigins())),
		zap.Int("expansions", steps),
		zap.Int("enqueued", s.seq),
	)
	return out, nil
}

// visit processes one dequeued entry and reports whether it expanded.
func (s *search) visit(e entry) bool {
	incoming, from := PotentialThreat, map[int]struct{}{e.area: {}}
	if e.pred >= 0 {
		incoming, from = s.levels[e.pred], s.sources[e.pred]
	}

	current := s.levels[e.area]
	if incoming <= current {
		// equal levels: the predecessor's origins also explain this area
		if incoming == current && !s.selfDet[e.area] {
			for src := range from {
				s.sources[e.area][src] = struct{}{}
			}
		}
		return false
	}
	key := expansion{e.area, incoming}
	if _, done := s.expanded[key]; done {
		return false
	}
	s.expanded[key] = struct{}{}

	propagated := incoming
	if incoming > Neutral && e.cost > s.threshold {
		propagated = Neutral
	}

	if override, self, ok := s.checkState(e.area, e.pred); ok && override < propagated {
		s.levels[e.area] = override
		s.selfDet[e.area] = self
		if self {
			s.sources[e.area] = map[int]struct{}{e.area: {}}
		} else {
			s.sources[e.area] = maps.Clone(from)
		}
	} else {
		s.levels[e.area] = propagated
		s.selfDet[e.area] = false
		s.sources[e.area] = maps.Clone(from)
	}

	for _, next := range s.static.Neighbors(e.area) {
		s.push(next, e.area, e.cost+s.static.Distance(e.area, next))
	}
	return true
}

// checkState reports the level an area's own state (or its predecessor's)
// imposes, and whether the area determines it alone.
func (s *search) checkState(area, pred int) (ThreatLevel, bool, bool) {
	switch {
	case s.ds.IsControlledByTeam(area):
		return Secure, true, true
	case pred >= 0 && s.ds.IsInfluencedByTeam(pred):
		return Secure, false, true
	case s.ds.IsClear(area):
		return Clear, true, true
	case pred >= 0 && s.ds.VisibleToSquad(pred):
		return Clear, false, true
	}
	return Unchecked, false, false
}

// #endregion interpret
