// Package usecase orchestrates the domain solver behind the four public
// operations (run_transient, run_steady_state, run_sensitivity,
// run_failure_sweep) and owns the parallel worker pool that independent
// sub-runs are scheduled onto (spec.md §5).
package usecase

import (
	"context"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"go.ngs.io/thermosat/internal/domain"
)

// SolverUseCase is the thin orchestration layer between the HTTP/CLI
// surfaces and the domain package. It is stateless; every method takes the
// model and config it needs explicitly.
type SolverUseCase struct {
	// PoolSize bounds the number of concurrent sub-runs dispatched by
	// RunSensitivity and RunFailureSweep. Zero means hardware parallelism.
	PoolSize int
}

// NewSolverUseCase returns a use case with the given worker pool size (0 for
// hardware parallelism).
func NewSolverUseCase(poolSize int) *SolverUseCase {
	return &SolverUseCase{PoolSize: poolSize}
}

func (uc *SolverUseCase) poolSize() int {
	if uc.PoolSize > 0 {
		return uc.PoolSize
	}
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		n = 1
	}
	return n
}

// RunTransient runs one transient simulation to completion.
func (uc *SolverUseCase) RunTransient(ctx context.Context, model *domain.Model, cfg domain.SimulationConfig, env domain.EnvironmentPreset) (*domain.TransientResult, error) {
	if err := model.Validate(); err != nil {
		return nil, err
	}
	result, err := domain.RunTransient(ctx, model, cfg, env)
	if err != nil {
		return nil, err
	}
	result.RunID = uuid.NewString()
	return result, nil
}

// RunSteadyState runs one steady-state solve to completion.
func (uc *SolverUseCase) RunSteadyState(ctx context.Context, model *domain.Model, cfg domain.SteadyStateConfig, env domain.EnvironmentPreset) (*domain.SteadyStateResult, error) {
	if err := model.Validate(); err != nil {
		return nil, err
	}
	result, err := domain.RunSteadyState(ctx, model, cfg, env)
	if err != nil {
		return nil, err
	}
	result.RunID = uuid.NewString()
	return result, nil
}

// RunSensitivity computes a shared-baseline transient, then dispatches the
// two perturbed runs per requested parameter onto the worker pool, and
// reassembles the flat {parameter, node, ...} table in input order (§4.8).
func (uc *SolverUseCase) RunSensitivity(ctx context.Context, model *domain.Model, params []domain.SensitivityParam, cfg domain.SimulationConfig, env domain.EnvironmentPreset) (*domain.SensitivityResult, error) {
	if err := model.Validate(); err != nil {
		return nil, err
	}

	baseline, err := domain.RunTransient(ctx, model, cfg, env)
	if err != nil {
		return nil, err
	}
	nodeIDs := baseline.History.NodeIDs
	baseline0 := lastSampleT(baseline.History)

	rows := make([][]domain.SensitivityRow, len(params))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.poolSize())
	for i, p := range params {
		i, p := i, p
		g.Go(func() error {
			r, err := domain.EvaluateSensitivityParam(gctx, model, p, cfg, env, nodeIDs, baseline0)
			if err != nil {
				return err
			}
			rows[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	flat := make([]domain.SensitivityRow, 0, len(params)*len(nodeIDs))
	for _, r := range rows {
		flat = append(flat, r...)
	}

	return &domain.SensitivityResult{RunID: uuid.NewString(), Rows: flat}, nil
}

// RunFailureSweep dispatches one sub-run per requested case onto the worker
// pool and reassembles results in input order (§4.9). A SolverDiverged or
// StepSizeUnderflow from an individual sub-run is recorded on that case's
// result, not propagated (domain.EvaluateFailureCase already implements this
// containment); a NumericalOverflow still aborts the whole sweep.
func (uc *SolverUseCase) RunFailureSweep(ctx context.Context, model *domain.Model, cases []domain.FailureCase, cfg domain.SimulationConfig, env domain.EnvironmentPreset, limits map[string]domain.NodeLimit) (*domain.FailureSweepResult, error) {
	if err := model.Validate(); err != nil {
		return nil, err
	}

	results := make([]domain.FailureCaseResult, len(cases))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.poolSize())
	for i, fc := range cases {
		i, fc := i, fc
		g.Go(func() error {
			r, err := domain.EvaluateFailureCase(gctx, model, fc, cfg, env, limits)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &domain.FailureSweepResult{RunID: uuid.NewString(), Cases: results}, nil
}

func lastSampleT(h *domain.History) []float64 {
	if len(h.Samples) == 0 {
		return nil
	}
	return h.Samples[len(h.Samples)-1].T
}
