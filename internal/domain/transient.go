package domain

import (
	"context"
	"math"
	"time"
)

const (
	defaultMaxNewtonIterations = 20
	defaultFloorTemperatureK   = 3.0
	maxStepHalvings            = 10
)

// initialState returns the state vector at t_start: each node's
// InitialTemperature, with boundary rows forced to their fixed temperature.
func initialState(op *Operator) []float64 {
	t := make([]float64, op.N)
	for i, id := range op.NodeIDs {
		n, _ := op.Model.NodeByID(id)
		if op.FixedMask[i] {
			t[i] = op.FixedTemp[i]
		} else {
			t[i] = n.InitialTemperature
		}
	}
	return t
}

func floorTemperature(cfg SimulationConfig) float64 {
	if cfg.FloorTemperatureK > 0 {
		return cfg.FloorTemperatureK
	}
	return defaultFloorTemperatureK
}

func maxNewtonIterations(cfg SimulationConfig) int {
	if cfg.MaxNewtonIterations > 0 {
		return cfg.MaxNewtonIterations
	}
	return defaultMaxNewtonIterations
}

// snapBoundaries forces every boundary row back to its exact fixed
// temperature, removing floating-point drift introduced by the linear solve
// (spec.md §8 "boundary node temperatures equal their declared fixed
// temperature at every output sample").
func snapBoundaries(op *Operator, T []float64) {
	for i := 0; i < op.N; i++ {
		if op.FixedMask[i] {
			T[i] = op.FixedTemp[i]
		}
	}
}

func cloneState(t []float64) []float64 {
	return append([]float64(nil), t...)
}

// newtonStage solves F(Tnew) = C/h*(Tnew-Told) + theta*R_int(Tnew,t+h) +
// (1-theta)*R_int(Told,t) = 0 for Tnew, starting from the guess Told.
// oldResidual is R_int(Told,t), precomputed once by the caller since it does
// not change across Newton iterations.
func newtonStage(op *Operator, geo *OrbitalGeometry, env EnvironmentPreset, told []float64, tNewAbs time.Time, h, theta float64, oldResidual []float64, cfg SimulationConfig) ([]float64, float64, int, bool) {
	tk := cloneState(told)
	kmax := maxNewtonIterations(cfg)

	var lastNorm float64
	for iter := 1; iter <= kmax; iter++ {
		jac := NewJacobian(op.N)
		rNew := NetworkResidual(op, geo, env, tNewAbs, tk, jac)

		f := make([]float64, op.N)
		for i := 0; i < op.N; i++ {
			cOverH := 0.0
			if op.C[i] > 0 {
				cOverH = op.C[i] / h
			}
			f[i] = cOverH*(tk[i]-told[i]) + theta*rNew[i] + (1-theta)*oldResidual[i]
			jac.Set(i, i, jac.At(i, i)*theta+cOverH)
		}
		// Off-diagonal entries of jac were assembled at weight 1; rescale
		// them by theta now that the diagonal C/h term has been folded in
		// (the diagonal line above already applied theta to jac's diagonal,
		// so the remaining off-diagonals need the same scaling).
		if theta != 1 {
			scaleOffDiagonal(jac, theta, op.N)
		}

		neg := make([]float64, op.N)
		for i := range f {
			neg[i] = -f[i]
		}

		delta, err := SolveLinear(jac, neg)
		if err != nil {
			return tk, InfNorm(f), iter, false
		}

		for i := range tk {
			tk[i] += delta[i]
		}
		snapBoundaries(op, tk)

		lastNorm = InfNorm(delta)
		if lastNorm <= cfg.ToleranceTau*(1+InfNorm(tk)) {
			return tk, lastNorm, iter, true
		}
	}
	return tk, lastNorm, kmax, false
}

func scaleOffDiagonal(jac interface{ At(int, int) float64; Set(int, int, float64) }, theta float64, n int) {
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			jac.Set(i, j, jac.At(i, j)*theta)
		}
	}
}

// explicitPredictor returns the explicit-Euler estimate of T at t+h, used
// only for the adaptive controller's local error estimate (§4.5 step 3).
// Arithmetic/boundary rows have no meaningful explicit step; they carry the
// implicit solution's value forward so the error estimate only reflects
// diffusion-row truncation error.
func explicitPredictor(op *Operator, geo *OrbitalGeometry, env EnvironmentPreset, told []float64, t, h float64, oldResidual []float64, implicit []float64) []float64 {
	out := cloneState(implicit)
	for i := 0; i < op.N; i++ {
		if op.C[i] <= 0 {
			continue
		}
		qNet := -oldResidual[i]
		out[i] = told[i] + h*qNet/op.C[i]
	}
	return out
}

func secondsToTime(epoch time.Time, seconds float64) time.Time {
	return epoch.Add(time.Duration(seconds * float64(time.Second)))
}

// RunTransient integrates the network from cfg.TStart to cfg.TEnd (§4.5),
// recording state on the cfg.OutputGridSeconds grid and accounting energy
// (§4.7). ctx is polled between accepted steps for cancellation/deadline.
func RunTransient(ctx context.Context, model *Model, cfg SimulationConfig, env EnvironmentPreset) (*TransientResult, error) {
	op, err := BuildOperator(model)
	if err != nil {
		return nil, err
	}

	var geo *OrbitalGeometry
	if model.Orbital != nil {
		geo = NewOrbitalGeometry(*model.Orbital)
	}

	epoch := cfg.TStart
	tEndSec := cfg.TEnd.Sub(cfg.TStart).Seconds()
	h := cfg.InitialStepSeconds
	if h <= 0 {
		return nil, InvalidModel{Reason: "simulation config has non-positive initial step"}
	}
	hMin := cfg.MinStepSeconds
	hMax := cfg.MaxStepSeconds
	if hMax <= 0 {
		hMax = tEndSec
	}

	theta := 1.0
	if cfg.UseCrankNicolson {
		theta = 0.5
	}

	told := initialState(op)
	snapBoundaries(op, told)
	floor := floorTemperature(cfg)

	history := NewHistory(op)
	history.Samples = append(history.Samples, Sample{Time: cfg.TStart, T: cloneState(told)})

	outputGrid := cfg.OutputGridSeconds
	if outputGrid <= 0 {
		outputGrid = h
	}
	nextOutput := outputGrid

	energy := EnergyBalance{}

	tSec := 0.0
	for tSec < tEndSec {
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return nil, DeadlineExceeded{Partial: history}
			}
			return nil, Cancelled{Partial: history}
		default:
		}

		step := h
		if tSec+step > tEndSec {
			step = tEndSec - tSec
		}

		oldResidual := NetworkResidual(op, geo, env, secondsToTime(epoch, tSec), told, nil)

		accepted := false
		var tNew []float64
		var finalIters int
		halvings := 0
		for !accepted {
			tNewAbs := secondsToTime(epoch, tSec+step)
			tk, _, iters, converged := newtonStage(op, geo, env, told, tNewAbs, step, theta, oldResidual, cfg)
			finalIters = iters
			if !converged {
				halvings++
				if halvings > maxStepHalvings {
					return nil, SolverDiverged{TimeSeconds: tSec, LastResidualNorm: InfNorm(oldResidual), Iterations: finalIters}
				}
				step /= 2
				continue
			}

			predictor := explicitPredictor(op, geo, env, told, tSec, step, oldResidual, tk)
			errEst := 0.0
			for i := 0; i < op.N; i++ {
				if op.C[i] <= 0 {
					continue
				}
				d := tk[i] - predictor[i]
				if d < 0 {
					d = -d
				}
				if d > errEst {
					errEst = d
				}
			}

			if errEst > cfg.ToleranceTau {
				ratio := cfg.ToleranceTau / errEst
				scale := 0.9 * math.Sqrt(ratio)
				if scale < 0.2 {
					scale = 0.2
				}
				step *= scale
				if hMin > 0 && step < hMin {
					return nil, StepSizeUnderflow{TimeSeconds: tSec}
				}
				continue
			}

			tNew = tk
			accepted = true

			// Rescale h for the next attempt using the same PI-style ratio.
			ratio := cfg.ToleranceTau / math.Max(errEst, 1e-300)
			scale := 0.9 * math.Sqrt(ratio)
			if scale < 0.2 {
				scale = 0.2
			}
			if scale > 5 {
				scale = 5
			}
			h = step * scale
			if hMin > 0 && h < hMin {
				h = hMin
			}
			if h > hMax {
				h = hMax
			}
		}

		for i := range tNew {
			if math.IsNaN(tNew[i]) || math.IsInf(tNew[i], 0) {
				return nil, NumericalOverflow{TimeSeconds: tSec + step, NodeID: op.NodeIDs[i]}
			}
		}
		for i := range tNew {
			if !op.FixedMask[i] && tNew[i] < floor {
				tNew[i] = floor
			}
		}
		snapBoundaries(op, tNew)

		accumulateEnergy(op, &energy, told, tNew, oldResidual)

		stepEndSec := tSec + step
		for nextOutput <= stepEndSec+1e-9 {
			frac := 1.0
			if step > 0 {
				frac = (nextOutput - tSec) / step
			}
			if frac < 0 {
				frac = 0
			}
			if frac > 1 {
				frac = 1
			}
			interp := make([]float64, op.N)
			for i := range interp {
				interp[i] = told[i] + frac*(tNew[i]-told[i])
			}
			snapBoundaries(op, interp)
			history.Samples = append(history.Samples, Sample{Time: secondsToTime(epoch, nextOutput), T: interp})
			recordFlows(op, geo, env, history, secondsToTime(epoch, nextOutput), interp)
			nextOutput += outputGrid
		}

		told = tNew
		tSec = stepEndSec
	}

	if energy.QInJoules != 0 || energy.QRadJoules != 0 {
		denom := math.Max(energy.QInJoules, 1)
		energy.RelativeError = math.Abs(energy.QInJoules-energy.QRadJoules-energy.DeltaEStored) / denom
	}

	return &TransientResult{History: history, Energy: energy}, nil
}

// recordFlows appends one per-conductor flow sample at the given interpolated
// state, used when an output grid point falls inside an accepted step.
func recordFlows(op *Operator, geo *OrbitalGeometry, env EnvironmentPreset, history *History, t time.Time, T []float64) {
	for _, rec := range op.Conductors {
		flow := ConductorFlow(rec, T)
		history.Flows[rec.SourceID] = append(history.Flows[rec.SourceID], FlowSample{Time: t, FlowW: flow})
	}
	_ = geo
	_ = env
}

// accumulateEnergy integrates Q_in, Q_rad and delta-E-stored over one
// accepted step using the trapezoidal rule on the step's endpoint residuals
// (§4.7).
func accumulateEnergy(op *Operator, energy *EnergyBalance, told, tnew, oldResidual []float64) {
	for i := 0; i < op.N; i++ {
		if op.C[i] <= 0 {
			continue
		}
		energy.DeltaEStored += op.C[i] * (tnew[i] - told[i])
	}

	for i := 0; i < op.N; i++ {
		if op.FixedMask[i] {
			continue
		}
		qNet := -oldResidual[i]
		if qNet >= 0 {
			energy.QInJoules += qNet
		}
	}

	for _, idx := range op.RadiationConductors {
		rec := op.Conductors[idx]
		flow := ConductorFlow(rec, told)
		if op.FixedMask[rec.J] && flow > 0 {
			energy.QRadJoules += flow
		} else if op.FixedMask[rec.I] && flow < 0 {
			energy.QRadJoules += -flow
		}
	}
}
