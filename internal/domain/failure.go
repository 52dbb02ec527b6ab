package domain

import (
	"context"
	"fmt"
)

// FailureCaseKind selects the mutation a FailureCase applies to a model
// clone before running the transient (spec.md §4.9).
type FailureCaseKind int

const (
	HeaterFailure FailureCaseKind = iota
	MLIDegradation
	CoatingDegradationEOL
	AttitudeLossTumble
	PowerBudgetReduction
	ConductorFailure
	ComponentPowerSpike
)

// FailureCase is one named, parameterized entry of a failure sweep request.
type FailureCase struct {
	Name string
	Kind FailureCaseKind

	// MLIDegradation: ε_eff multiplier (default 5).
	DegradationFactor float64

	// CoatingDegradationEOL: target node ids and Δα (default 0.05).
	TargetNodeIDs []string
	AlphaDelta    float64

	// PowerBudgetReduction: scale factor in (0,1) applied to all constant loads.
	ReductionFactor float64

	// ConductorFailure: the conductor whose G is forced to 0.
	ConductorID string

	// ComponentPowerSpike: target node whose loads are multiplied by SpikeFactor.
	SpikeTargetNodeID string
	SpikeFactor       float64
}

// NodeLimit is an externally-supplied per-node temperature band used to
// classify a failure case's outcome (§4.9, "limits supplied externally").
type NodeLimit struct {
	WarnLow, WarnHigh   float64
	FailLow, FailHigh   float64
	HasFailLow          bool
	HasFailHigh         bool
	HasWarnLow          bool
	HasWarnHigh         bool
}

func classify(limit NodeLimit, hasLimit bool, tMin, tMax float64) string {
	if !hasLimit {
		return "informational"
	}
	if (limit.HasFailLow && tMin < limit.FailLow) || (limit.HasFailHigh && tMax > limit.FailHigh) {
		return "fail"
	}
	if (limit.HasWarnLow && tMin < limit.WarnLow) || (limit.HasWarnHigh && tMax > limit.WarnHigh) {
		return "warn"
	}
	return "pass"
}

// applyCase returns a mutated clone of model per the case's rule. It never
// mutates model itself (§3, "ephemeral derived models").
func applyCase(model *Model, fc FailureCase) (*Model, error) {
	clone := model.Clone()

	switch fc.Kind {
	case HeaterFailure:
		for i := range clone.HeatLoads {
			hl := &clone.HeatLoads[i]
			if hl.IsHeater && hl.Kind == ConstantLoad {
				hl.ConstantW = 0
			}
		}

	case MLIDegradation:
		factor := fc.DegradationFactor
		if factor <= 0 {
			factor = 5
		}
		for i := range clone.Conductors {
			c := &clone.Conductors[i]
			if c.Kind == Radiation && c.KindTag == "MLI" {
				c.EpsEff *= factor
				if c.EpsEff > 1 {
					c.EpsEff = 1
				}
			}
		}

	case CoatingDegradationEOL:
		delta := fc.AlphaDelta
		if delta <= 0 {
			delta = 0.05
		}
		targets := make(map[string]bool, len(fc.TargetNodeIDs))
		for _, id := range fc.TargetNodeIDs {
			targets[id] = true
		}
		for i := range clone.Nodes {
			if len(targets) > 0 && !targets[clone.Nodes[i].ID] {
				continue
			}
			a := clone.Nodes[i].Alpha + delta
			if a < 0 {
				a = 0
			}
			if a > 1 {
				a = 1
			}
			clone.Nodes[i].Alpha = a
		}

	case AttitudeLossTumble:
		for i := range clone.HeatLoads {
			if clone.HeatLoads[i].Kind == OrbitalLoad {
				clone.HeatLoads[i].Surface = IsotropicAverage
			}
		}

	case PowerBudgetReduction:
		factor := fc.ReductionFactor
		if factor <= 0 || factor >= 1 {
			return nil, InvalidModel{Reason: fmt.Sprintf("power_budget_reduction factor %g is outside (0,1)", factor)}
		}
		for i := range clone.HeatLoads {
			if clone.HeatLoads[i].Kind == ConstantLoad {
				clone.HeatLoads[i].ConstantW *= factor
			}
		}

	case ConductorFailure:
		found := false
		for i := range clone.Conductors {
			if clone.Conductors[i].ID == fc.ConductorID {
				clone.Conductors[i].G = 0
				found = true
			}
		}
		if !found {
			return nil, InvalidModel{Reason: fmt.Sprintf("conductor_failure references missing conductor %q", fc.ConductorID)}
		}

	case ComponentPowerSpike:
		factor := fc.SpikeFactor
		if factor == 0 {
			factor = 1
		}
		found := false
		for i := range clone.HeatLoads {
			if clone.HeatLoads[i].NodeID == fc.SpikeTargetNodeID {
				clone.HeatLoads[i].ConstantW *= factor
				found = true
			}
		}
		if !found {
			return nil, InvalidModel{Reason: fmt.Sprintf("component_power_spike references node %q with no heat loads", fc.SpikeTargetNodeID)}
		}

	default:
		return nil, InternalAssertion{What: fmt.Sprintf("unknown failure case kind %d", fc.Kind)}
	}

	return clone, nil
}

// EvaluateFailureCase applies fc to a clone of model, runs a full transient,
// and aggregates per-node risk statistics (§4.9). limits maps node id to an
// externally-supplied temperature band; nodes absent from limits classify as
// "informational". A SolverDiverged/StepSizeUnderflow from the sub-run is
// caught here and recorded on the result rather than propagated, per §7's
// sweep-error-containment rule; NumericalOverflow is not caught and
// propagates to abort the whole sweep.
func EvaluateFailureCase(ctx context.Context, model *Model, fc FailureCase, cfg SimulationConfig, env EnvironmentPreset, limits map[string]NodeLimit) (FailureCaseResult, error) {
	mutated, err := applyCase(model, fc)
	if err != nil {
		return FailureCaseResult{CaseName: fc.Name, Error: err}, nil
	}

	result, err := RunTransient(ctx, mutated, cfg, env)
	if err != nil {
		switch err.(type) {
		case SolverDiverged, StepSizeUnderflow:
			return FailureCaseResult{CaseName: fc.Name, Error: err}, nil
		default:
			return FailureCaseResult{}, err
		}
	}

	perNode := make(map[string]NodeRiskStat, len(result.History.NodeIDs))
	for idx, id := range result.History.NodeIDs {
		stat := nodeRiskStat(result.History, idx)
		limit, hasLimit := limits[id]
		stat.Status = classify(limit, hasLimit, stat.TMin, stat.TMax)
		perNode[id] = stat
	}

	return FailureCaseResult{CaseName: fc.Name, PerNode: perNode}, nil
}

func nodeRiskStat(h *History, nodeIdx int) NodeRiskStat {
	if len(h.Samples) == 0 {
		return NodeRiskStat{}
	}
	min := h.Samples[0].T[nodeIdx]
	max := min
	sum := 0.0
	for _, s := range h.Samples {
		v := s.T[nodeIdx]
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += v
	}
	return NodeRiskStat{TMin: min, TMax: max, TMean: sum / float64(len(h.Samples))}
}
