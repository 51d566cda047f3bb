package gate

import (
	"fmt"
	"maps"
	"slices"

	"github.com/danielpatrickdp/squad-tactics/internal/rules"
	"github.com/danielpatrickdp/squad-tactics/internal/state"
	"github.com/danielpatrickdp/squad-tactics/internal/update"
)

// #region gate
// Gate decides whether a proposed change may be applied to a snapshot. It
// catches the caller defects the updator does not check for.
type Gate struct {
	config GateConfig
}

// NewGate creates a gate with the given configuration.
func NewGate(config GateConfig) *Gate {
	return &Gate{config: config}
}

// Evaluate runs every veto check against the change and the snapshot it
// would be applied to.
func (g *Gate) Evaluate(ds *state.DynamicState, change update.DynamicStateChange) GateDecision {
	var vetoes []VetoSignal
	n := ds.NumberOfNodes()
	table := ds.Rules()

	// 1. Size of the change
	affected := change.AffectedAreas()
	if g.config.MaxAffectedAreas > 0 && len(affected) > g.config.MaxAffectedAreas {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoChangeTooBig,
			Area:   -1,
			Reason: fmt.Sprintf("change touches %d areas, limit %d", len(affected), g.config.MaxAffectedAreas),
		})
	}

	// 2. Facts removed must be held
	before := change.FactsBefore()
	for _, area := range slices.Sorted(maps.Keys(before)) {
		if area < 0 || area >= n {
			vetoes = append(vetoes, rangeVeto(area, n))
			continue
		}
		for _, spec := range before[area] {
			if !table.Recognizes(spec.Kind) {
				vetoes = append(vetoes, kindVeto(area, spec.Kind))
				continue
			}
			if _, held := ds.Fact(area, spec.Kind); !held {
				vetoes = append(vetoes, VetoSignal{
					Type:   VetoNotHeld,
					Area:   area,
					Reason: fmt.Sprintf("area %d holds no %s fact to remove", area, spec.Kind),
				})
			}
		}
	}

	// 3. Facts added must be well formed
	after := change.FactsAfter()
	for _, area := range slices.Sorted(maps.Keys(after)) {
		if area < 0 || area >= n {
			vetoes = append(vetoes, rangeVeto(area, n))
			continue
		}
		seen := make(map[rules.FactKind]bool)
		for _, spec := range after[area] {
			if !table.Recognizes(spec.Kind) {
				vetoes = append(vetoes, kindVeto(area, spec.Kind))
				continue
			}
			if seen[spec.Kind] {
				vetoes = append(vetoes, VetoSignal{
					Type:   VetoDuplicate,
					Area:   area,
					Reason: fmt.Sprintf("area %d lists %s twice", area, spec.Kind),
				})
			}
			seen[spec.Kind] = true
			// re-adding a held kind must remove it first, or revert loses the fact
			if _, held := ds.Fact(area, spec.Kind); held && !listsKind(before[area], spec.Kind) {
				vetoes = append(vetoes, VetoSignal{
					Type:   VetoAlreadyHeld,
					Area:   area,
					Reason: fmt.Sprintf("area %d already holds a %s fact and the change does not remove it", area, spec.Kind),
				})
			}
			if spec.Magnitude < 0 || (g.config.MaxMagnitude > 0 && spec.Magnitude > g.config.MaxMagnitude) {
				vetoes = append(vetoes, VetoSignal{
					Type:   VetoMagnitude,
					Area:   area,
					Reason: fmt.Sprintf("%s magnitude %d outside [0, %d]", spec.Kind, spec.Magnitude, g.config.MaxMagnitude),
				})
			}
			for _, r := range spec.Related {
				if r < 0 || r >= n {
					vetoes = append(vetoes, VetoSignal{
						Type:   VetoRelatedArea,
						Area:   area,
						Reason: fmt.Sprintf("%s at area %d relates to area %d out of range", spec.Kind, area, r),
					})
				}
			}
		}
	}

	if len(vetoes) > 0 {
		return GateDecision{
			Action:      "reject",
			Reason:      fmt.Sprintf("hard veto: %s", vetoes[0].Reason),
			Vetoed:      true,
			VetoSignals: vetoes,
		}
	}
	return GateDecision{
		Action: "commit",
		Reason: fmt.Sprintf("change over %d areas passed all checks", len(affected)),
	}
}

// #endregion gate

// #region helpers
func rangeVeto(area, n int) VetoSignal {
	return VetoSignal{
		Type:   VetoAreaRange,
		Area:   area,
		Reason: fmt.Sprintf("area %d outside [0, %d)", area, n),
	}
}

func kindVeto(area int, kind rules.FactKind) VetoSignal {
	return VetoSignal{
		Type:   VetoUnknownKind,
		Area:   area,
		Reason: fmt.Sprintf("fact kind %s not recognized at area %d", kind, area),
	}
}

func listsKind(specs []update.FactSpec, kind rules.FactKind) bool {
	return slices.ContainsFunc(specs, func(s update.FactSpec) bool { return s.Kind == kind })
}

// #endregion helpers
