package orchestrator

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/danielpatrickdp/squad-tactics/internal/state"
	"github.com/danielpatrickdp/squad-tactics/internal/topology"
	"github.com/danielpatrickdp/squad-tactics/internal/update"
	"go.uber.org/zap"
)

// #region squads

// Squads keeps one Pipeline per squad on a shared topology. Calls for one
// squad run one at a time; different squads proceed in parallel.
type Squads struct {
	static  topology.Static
	updator *update.WorldUpdator
	config  PipelineConfig
	store   *state.Store
	logger  *zap.Logger

	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	mu sync.Mutex
	p  *Pipeline
}

// NewSquads creates an empty registry. store may be nil.
func NewSquads(static topology.Static, updator *update.WorldUpdator, config PipelineConfig, store *state.Store, logger *zap.Logger) *Squads {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Squads{
		static:  static,
		updator: updator,
		config:  config,
		store:   store,
		logger:  logger,
		slots:   make(map[string]*slot),
	}
}

// Static returns the shared topology.
func (s *Squads) Static() topology.Static { return s.static }

// Names lists the squads seen so far.
func (s *Squads) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.slots))
}

// Do runs fn on the squad's pipeline, creating the pipeline on first use.
// fn has the pipeline to itself for its duration.
func (s *Squads) Do(squad string, fn func(*Pipeline) error) error {
	if squad == "" {
		return fmt.Errorf("empty squad name")
	}
	s.mu.Lock()
	sl, ok := s.slots[squad]
	if !ok {
		sl = &slot{}
		s.slots[squad] = sl
	}
	s.mu.Unlock()

	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.p == nil {
		p, err := NewPipeline(squad, s.static, s.updator, s.config, s.store, s.logger)
		if err != nil {
			return err
		}
		sl.p = p
	}
	return fn(sl.p)
}

// Apply runs change for squad.
func (s *Squads) Apply(squad string, change update.DynamicStateChange) (StepResult, error) {
	var res StepResult
	err := s.Do(squad, func(p *Pipeline) error {
		var err error
		res, err = p.Apply(change)
		return err
	})
	return res, err
}

// Revert runs the reverse of change for squad.
func (s *Squads) Revert(squad string, change update.DynamicStateChange) (StepResult, error) {
	var res StepResult
	err := s.Do(squad, func(p *Pipeline) error {
		var err error
		res, err = p.Revert(change)
		return err
	})
	return res, err
}

// #endregion
