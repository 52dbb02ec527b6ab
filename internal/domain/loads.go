package domain

import (
	"time"
)

// EvaluateLoads produces the node-indexed load vector Q_load at time t for
// the given state T, per §4.3. Orbital loads call into the supplied
// OrbitalGeometry (nil if the model has no orbital loads, in which case any
// OrbitalLoad entries contribute zero).
func EvaluateLoads(op *Operator, geo *OrbitalGeometry, env EnvironmentPreset, t time.Time, _ []float64) []float64 {
	q := make([]float64, op.N)

	for nodeIdx, loads := range op.HeatLoadsByNode {
		for _, hl := range loads {
			switch hl.Kind {
			case ConstantLoad:
				q[nodeIdx] += hl.ConstantW
			case PiecewiseLoad:
				q[nodeIdx] += interpolatePiecewise(hl.Samples, t)
			case OrbitalLoad:
				if geo == nil {
					continue
				}
				fluxes := geo.SurfaceFluxesAt(t, env, hl.Surface, hl.CustomNormal, hl.OrbitalAlpha, hl.OrbitalEps)
				q[nodeIdx] += fluxes.Total() * hl.OrbitalAreaM2
			}
		}
	}

	return q
}

// interpolatePiecewise linearly interpolates v(t) from a sorted sample list,
// holding the nearest endpoint value flat outside the sample range
// (spec.md §9(a), the spec's resolution of an otherwise-ambiguous
// extrapolation policy).
func interpolatePiecewise(samples []TimeValue, t time.Time) float64 {
	if len(samples) == 0 {
		return 0
	}
	if len(samples) == 1 || !t.After(samples[0].Time) {
		return samples[0].Value
	}
	last := samples[len(samples)-1]
	if !t.Before(last.Time) {
		return last.Value
	}

	for i := 1; i < len(samples); i++ {
		if !t.After(samples[i].Time) {
			lo, hi := samples[i-1], samples[i]
			span := hi.Time.Sub(lo.Time).Seconds()
			if span <= 0 {
				return lo.Value
			}
			frac := t.Sub(lo.Time).Seconds() / span
			return lo.Value + frac*(hi.Value-lo.Value)
		}
	}
	return last.Value
}
