package domain

import (
	"context"
	"math"
)

const (
	defaultSteadyMaxIterations = 50
	steadyMaxBacktracks        = 20
)

// RunSteadyState solves R_int(T) = 0 directly (§4.6) with a damped Newton
// iteration and backtracking line search. Unlike the transient stepper there
// is no C*dT/dt term: diffusion rows are solved for the temperature at which
// their net heat flow is exactly zero, same as arithmetic rows.
func RunSteadyState(ctx context.Context, model *Model, cfg SteadyStateConfig, env EnvironmentPreset) (*SteadyStateResult, error) {
	op, err := BuildOperator(model)
	if err != nil {
		return nil, err
	}

	var geo *OrbitalGeometry
	if model.Orbital != nil {
		geo = NewOrbitalGeometry(*model.Orbital)
	}

	kmax := cfg.MaxIterations
	if kmax <= 0 {
		kmax = defaultSteadyMaxIterations
	}
	tau := cfg.ToleranceTauSS
	if tau <= 0 {
		tau = 1e-6
	}

	tk := initialState(op)
	snapBoundaries(op, tk)

	var lastNorm float64
	iter := 0
	for ; iter < kmax; iter++ {
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return nil, DeadlineExceeded{}
			}
			return nil, Cancelled{}
		default:
		}

		jac := NewJacobian(op.N)
		r := NetworkResidual(op, geo, env, cfg.ReferenceTime, tk, jac)
		lastNorm = InfNorm(r)
		if lastNorm <= tau {
			break
		}

		neg := make([]float64, op.N)
		for i := range r {
			neg[i] = -r[i]
		}
		delta, err := SolveLinear(jac, neg)
		if err != nil {
			return nil, SolverDiverged{LastResidualNorm: lastNorm, Iterations: iter}
		}

		damping := 1.0
		for b := 0; b < steadyMaxBacktracks; b++ {
			candidate := cloneState(tk)
			for i := range candidate {
				candidate[i] += damping * delta[i]
			}
			snapBoundaries(op, candidate)

			overflow := false
			for _, v := range candidate {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					overflow = true
					break
				}
			}
			if overflow {
				damping /= 2
				continue
			}

			candR := NetworkResidual(op, geo, env, cfg.ReferenceTime, candidate, nil)
			if InfNorm(candR) < lastNorm {
				tk = candidate
				break
			}
			damping /= 2
		}
	}

	if lastNorm > tau {
		return nil, SteadyStateNonConvergent{LastResidualNorm: lastNorm}
	}

	return &SteadyStateResult{Temperatures: tk, Iterations: iter, FinalResidualNorm: lastNorm}, nil
}
