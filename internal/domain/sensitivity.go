package domain

import (
	"context"
	"fmt"
)

// defaultSensitivityDelta is the fractional perturbation applied when a
// SensitivityParam does not specify one (spec.md §4.8, "default 1%").
const defaultSensitivityDelta = 0.01

// ParamKind selects which field of the model a SensitivityParam perturbs.
type ParamKind int

const (
	NodeCapacitanceParam ParamKind = iota
	NodeAlphaParam
	NodeEpsilonParam
	ConductorGParam
	ConductorEpsEffParam
	HeatLoadConstantWParam
)

// SensitivityParam names one scalar model parameter to perturb (§4.8): a
// node property, a conductor coefficient, or a heat-load scalar.
type SensitivityParam struct {
	Name      string // report label, e.g. "cond:C12.G"
	Kind      ParamKind
	TargetID  string  // node id / conductor id / heat load id, depending on Kind
	DeltaFrac float64 // 0 means use the default (1%)
}

func (p SensitivityParam) deltaFrac() float64 {
	if p.DeltaFrac > 0 {
		return p.DeltaFrac
	}
	return defaultSensitivityDelta
}

// baseline returns the parameter's current value in m.
func (p SensitivityParam) baseline(m *Model) (float64, error) {
	switch p.Kind {
	case NodeCapacitanceParam:
		n, ok := m.NodeByID(p.TargetID)
		if !ok {
			return 0, InvalidModel{Reason: fmt.Sprintf("sensitivity param %q references missing node %q", p.Name, p.TargetID)}
		}
		return n.Capacitance, nil
	case NodeAlphaParam:
		n, ok := m.NodeByID(p.TargetID)
		if !ok {
			return 0, InvalidModel{Reason: fmt.Sprintf("sensitivity param %q references missing node %q", p.Name, p.TargetID)}
		}
		return n.Alpha, nil
	case NodeEpsilonParam:
		n, ok := m.NodeByID(p.TargetID)
		if !ok {
			return 0, InvalidModel{Reason: fmt.Sprintf("sensitivity param %q references missing node %q", p.Name, p.TargetID)}
		}
		return n.Epsilon, nil
	case ConductorGParam:
		c, ok := conductorByID(m, p.TargetID)
		if !ok {
			return 0, InvalidModel{Reason: fmt.Sprintf("sensitivity param %q references missing conductor %q", p.Name, p.TargetID)}
		}
		return c.G, nil
	case ConductorEpsEffParam:
		c, ok := conductorByID(m, p.TargetID)
		if !ok {
			return 0, InvalidModel{Reason: fmt.Sprintf("sensitivity param %q references missing conductor %q", p.Name, p.TargetID)}
		}
		return c.EpsEff, nil
	case HeatLoadConstantWParam:
		hl, ok := heatLoadByID(m, p.TargetID)
		if !ok {
			return 0, InvalidModel{Reason: fmt.Sprintf("sensitivity param %q references missing heat load %q", p.Name, p.TargetID)}
		}
		return hl.ConstantW, nil
	default:
		return 0, InternalAssertion{What: fmt.Sprintf("unknown sensitivity param kind %d", p.Kind)}
	}
}

// applyValue sets the parameter to newValue on m (which must be a clone; the
// sensitivity engine never mutates the caller's baseline model).
func (p SensitivityParam) applyValue(m *Model, newValue float64) error {
	switch p.Kind {
	case NodeCapacitanceParam, NodeAlphaParam, NodeEpsilonParam:
		for i := range m.Nodes {
			if m.Nodes[i].ID != p.TargetID {
				continue
			}
			switch p.Kind {
			case NodeCapacitanceParam:
				m.Nodes[i].Capacitance = newValue
			case NodeAlphaParam:
				m.Nodes[i].Alpha = newValue
			case NodeEpsilonParam:
				m.Nodes[i].Epsilon = newValue
			}
			return nil
		}
		return InvalidModel{Reason: fmt.Sprintf("sensitivity param %q references missing node %q", p.Name, p.TargetID)}
	case ConductorGParam, ConductorEpsEffParam:
		for i := range m.Conductors {
			if m.Conductors[i].ID != p.TargetID {
				continue
			}
			switch p.Kind {
			case ConductorGParam:
				m.Conductors[i].G = newValue
			case ConductorEpsEffParam:
				m.Conductors[i].EpsEff = newValue
			}
			return nil
		}
		return InvalidModel{Reason: fmt.Sprintf("sensitivity param %q references missing conductor %q", p.Name, p.TargetID)}
	case HeatLoadConstantWParam:
		for i := range m.HeatLoads {
			if m.HeatLoads[i].ID != p.TargetID {
				continue
			}
			m.HeatLoads[i].ConstantW = newValue
			return nil
		}
		return InvalidModel{Reason: fmt.Sprintf("sensitivity param %q references missing heat load %q", p.Name, p.TargetID)}
	default:
		return InternalAssertion{What: fmt.Sprintf("unknown sensitivity param kind %d", p.Kind)}
	}
}

func conductorByID(m *Model, id string) (Conductor, bool) {
	for _, c := range m.Conductors {
		if c.ID == id {
			return c, true
		}
	}
	return Conductor{}, false
}

func heatLoadByID(m *Model, id string) (HeatLoad, bool) {
	for _, hl := range m.HeatLoads {
		if hl.ID == id {
			return hl, true
		}
	}
	return HeatLoad{}, false
}

// EvaluateSensitivityParam runs the two perturbed transients for one
// parameter and returns one SensitivityRow per node (§4.8). baseline0 is the
// shared-baseline final temperature vector (indexed like nodeIDs), computed
// once by the caller so only the two perturbed runs are needed here.
func EvaluateSensitivityParam(ctx context.Context, model *Model, param SensitivityParam, cfg SimulationConfig, env EnvironmentPreset, nodeIDs []string, baseline0 []float64) ([]SensitivityRow, error) {
	p0, err := param.baseline(model)
	if err != nil {
		return nil, err
	}
	delta := param.deltaFrac()
	step := delta * p0
	if step == 0 {
		// A zero baseline (e.g. an unset heat load) makes the fractional step
		// degenerate; fall back to an absolute perturbation of the same
		// fractional magnitude.
		step = delta
	}

	plusModel := model.Clone()
	if err := param.applyValue(plusModel, p0+step); err != nil {
		return nil, err
	}
	minusModel := model.Clone()
	if err := param.applyValue(minusModel, p0-step); err != nil {
		return nil, err
	}

	plusResult, err := RunTransient(ctx, plusModel, cfg, env)
	if err != nil {
		return nil, err
	}
	minusResult, err := RunTransient(ctx, minusModel, cfg, env)
	if err != nil {
		return nil, err
	}

	tPlus := lastSampleT(plusResult.History)
	tMinus := lastSampleT(minusResult.History)

	rows := make([]SensitivityRow, len(nodeIDs))
	for i, id := range nodeIDs {
		dTdp := (tPlus[i] - tMinus[i]) / (2 * step)
		secondOrder := (tPlus[i] - 2*baseline0[i] + tMinus[i]) / (step * step)
		rows[i] = SensitivityRow{
			Parameter:     param.Name,
			NodeID:        id,
			DTDParam:      dTdp,
			SecondOrder:   secondOrder,
			BaselineValue: p0,
		}
	}
	return rows, nil
}

func lastSampleT(h *History) []float64 {
	if len(h.Samples) == 0 {
		return nil
	}
	return h.Samples[len(h.Samples)-1].T
}
