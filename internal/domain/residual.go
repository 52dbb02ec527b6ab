package domain

import (
	"time"

	"gonum.org/v1/gonum/mat"
)

// StefanBoltzmann is sigma, W/(m^2*K^4).
const StefanBoltzmann = 5.670374419e-8

// NetworkResidual evaluates R_int(T,t) (§4.4): the conductor-and-load part of
// the network residual, excluding the transient's C*dT/dt term (added
// separately by the stepper). Boundary rows hold T_i - T_b,i exactly. jac, if
// non-nil, receives the analytic Jacobian dR_int/dT (§4.4); callers that only
// need the residual (e.g. an explicit-Euler predictor) may pass nil to skip
// the O(N^2) Jacobian assembly.
func NetworkResidual(op *Operator, geo *OrbitalGeometry, env EnvironmentPreset, t time.Time, T []float64, jac *mat.Dense) []float64 {
	r := make([]float64, op.N)
	netIn := make([]float64, op.N)

	q := EvaluateLoads(op, geo, env, t, T)

	for _, idx := range op.LinearConductors {
		c := op.Conductors[idx]
		qij := c.G * (T[c.I] - T[c.J])
		netIn[c.I] -= qij
		netIn[c.J] += qij
		if jac != nil {
			addJac(jac, c.I, c.J, c.G, -c.G)
		}
	}

	for _, idx := range op.RadiationConductors {
		c := op.Conductors[idx]
		ti, tj := T[c.I], T[c.J]
		coeff := c.EpsEff * StefanBoltzmann * c.RadArea * c.ViewFactor
		qij := coeff * (ti*ti*ti*ti - tj*tj*tj*tj)
		netIn[c.I] -= qij
		netIn[c.J] += qij
		if jac != nil {
			dQdTi := 4 * coeff * ti * ti * ti
			dQdTj := -4 * coeff * tj * tj * tj
			addJac(jac, c.I, c.J, dQdTi, dQdTj)
		}
	}

	for _, idx := range op.HeatPipeConductors {
		c := op.Conductors[idx]
		ti, tj := T[c.I], T[c.J]
		tavg := (ti + tj) / 2
		g := ConductanceAt(c.HeatPipeTable, tavg)
		qij := g * (ti - tj)
		netIn[c.I] -= qij
		netIn[c.J] += qij
		if jac != nil {
			slope := ConductanceSlopeAt(c.HeatPipeTable, tavg)
			dQdTi := g + (ti-tj)*slope/2
			dQdTj := -g + (ti-tj)*slope/2
			addJac(jac, c.I, c.J, dQdTi, dQdTj)
		}
	}

	for i := 0; i < op.N; i++ {
		if op.FixedMask[i] {
			r[i] = T[i] - op.FixedTemp[i]
			if jac != nil {
				for k := 0; k < op.N; k++ {
					jac.Set(i, k, 0)
				}
				jac.Set(i, i, 1)
			}
			continue
		}
		r[i] = -(q[i] + netIn[i])
	}

	return r
}

// addJac accumulates one conductor edge's contribution to the Jacobian. The
// edge flow Q leaves row i (r[i] gains +Q) and enters row j (r[j] gains -Q),
// so: J[i][i]+=dQdTi, J[i][j]+=dQdTj, J[j][i]-=dQdTi, J[j][j]-=dQdTj.
func addJac(jac *mat.Dense, i, j int, dQdTi, dQdTj float64) {
	jac.Set(i, i, jac.At(i, i)+dQdTi)
	jac.Set(i, j, jac.At(i, j)+dQdTj)
	jac.Set(j, i, jac.At(j, i)-dQdTi)
	jac.Set(j, j, jac.At(j, j)-dQdTj)
}

// NewJacobian allocates a zeroed N x N dense Jacobian buffer for one
// NetworkResidual call.
func NewJacobian(n int) *mat.Dense {
	return mat.NewDense(n, n, nil)
}

// ConductorFlow returns the signed heat flow (W) from c.FromNode to c.ToNode
// at state T, using the same per-kind law as NetworkResidual.
func ConductorFlow(rec ConductorRecord, T []float64) float64 {
	ti, tj := T[rec.I], T[rec.J]
	switch rec.Kind {
	case Linear, Contact:
		return rec.G * (ti - tj)
	case Radiation:
		coeff := rec.EpsEff * StefanBoltzmann * rec.RadArea * rec.ViewFactor
		return coeff * (ti*ti*ti*ti - tj*tj*tj*tj)
	case HeatPipe:
		tavg := (ti + tj) / 2
		g := ConductanceAt(rec.HeatPipeTable, tavg)
		return g * (ti - tj)
	default:
		return 0
	}
}
