package world

import (
	"errors"
	"fmt"

	"github.com/danielpatrickdp/squad-tactics/internal/interpret"
	"github.com/danielpatrickdp/squad-tactics/internal/state"
	"github.com/danielpatrickdp/squad-tactics/internal/topology"
)

var (
	// ErrMissingStatic is returned when dynamic data is supplied without a topology.
	ErrMissingStatic = errors.New("dynamic state or interpretation without static topology")
	// ErrMissingDynamic is returned when an interpretation is supplied without a dynamic state.
	ErrMissingDynamic = errors.New("interpretation without dynamic state")
	// ErrSizeMismatch is returned when the parts cover different area counts.
	ErrSizeMismatch = errors.New("world parts cover different area counts")
)

// #region representation
// Representation bundles a topology, what the squad knows about it and the
// threat classification derived from that knowledge. It is immutable; With
// produces a new Representation sharing whatever was not replaced.
type Representation struct {
	static  topology.Static
	dynamic *state.DynamicState
	interp  *interpret.Interpretation
}

// New builds a Representation. dynamic and interp may be nil.
func New(static topology.Static, dynamic *state.DynamicState, interp *interpret.Interpretation) (*Representation, error) {
	if static == nil {
		if dynamic != nil || interp != nil {
			return nil, ErrMissingStatic
		}
		return &Representation{}, nil
	}
	if interp != nil && dynamic == nil {
		return nil, ErrMissingDynamic
	}
	n := static.NumberOfNodes()
	if dynamic != nil && dynamic.NumberOfNodes() != n {
		return nil, fmt.Errorf("dynamic state has %d areas, topology %d: %w", dynamic.NumberOfNodes(), n, ErrSizeMismatch)
	}
	if interp != nil && interp.NumberOfNodes() != n {
		return nil, fmt.Errorf("interpretation has %d areas, topology %d: %w", interp.NumberOfNodes(), n, ErrSizeMismatch)
	}
	return &Representation{static: static, dynamic: dynamic, interp: interp}, nil
}

// With replaces the non-nil parts and carries the rest over. A new topology
// or dynamic state invalidates the old interpretation unless a new one is
// given, since it was derived from the parts being replaced.
func (r *Representation) With(static topology.Static, dynamic *state.DynamicState, interp *interpret.Interpretation) (*Representation, error) {
	s, d, in := r.static, r.dynamic, r.interp
	if static != nil {
		s = static
		in = nil
	}
	if dynamic != nil {
		d = dynamic
		in = nil
	}
	if interp != nil {
		in = interp
	}
	return New(s, d, in)
}

// #endregion representation

// #region readers
func (r *Representation) Static() topology.Static                   { return r.static }
func (r *Representation) DynamicState() *state.DynamicState         { return r.dynamic }
func (r *Representation) Interpretation() *interpret.Interpretation { return r.interp }

// NumberOfNodes is the area count of the topology, or zero without one.
func (r *Representation) NumberOfNodes() int {
	if r.static == nil {
		return 0
	}
	return r.static.NumberOfNodes()
}

// #endregion readers
