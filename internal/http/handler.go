package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"go.ngs.io/thermosat/internal/adapter/results"
	"go.ngs.io/thermosat/internal/adapter/vxm"
	"go.ngs.io/thermosat/internal/domain"
	"go.ngs.io/thermosat/internal/usecase"
)

// Handler handles HTTP requests for the four solver operations.
type Handler struct {
	solverUC *usecase.SolverUseCase
}

// NewHandler creates a new HTTP handler.
func NewHandler(solverUC *usecase.SolverUseCase) *Handler {
	return &Handler{solverUC: solverUC}
}

// simulationConfigDTO mirrors domain.SimulationConfig for JSON binding.
type simulationConfigDTO struct {
	TStart             time.Time `json:"tStart" binding:"required"`
	TEnd               time.Time `json:"tEnd" binding:"required"`
	InitialStepSeconds float64   `json:"initialStepSeconds" binding:"required"`
	ToleranceTau       float64   `json:"toleranceTau" binding:"required"`
	OutputGridSeconds  float64   `json:"outputGridSeconds"`
	MinStepSeconds     float64   `json:"minStepSeconds"`
	MaxStepSeconds     float64   `json:"maxStepSeconds"`
	MaxNewtonIterations int      `json:"maxNewtonIterations"`
	UseCrankNicolson   bool      `json:"useCrankNicolson"`
	FloorTemperatureK  float64   `json:"floorTemperatureK"`
	DeadlineSeconds    float64   `json:"deadlineSeconds"`
}

func (d simulationConfigDTO) toDomain() domain.SimulationConfig {
	return domain.SimulationConfig{
		TStart:              d.TStart,
		TEnd:                d.TEnd,
		InitialStepSeconds:  d.InitialStepSeconds,
		ToleranceTau:        d.ToleranceTau,
		OutputGridSeconds:   d.OutputGridSeconds,
		MinStepSeconds:      d.MinStepSeconds,
		MaxStepSeconds:      d.MaxStepSeconds,
		MaxNewtonIterations: d.MaxNewtonIterations,
		UseCrankNicolson:    d.UseCrankNicolson,
		FloorTemperatureK:   d.FloorTemperatureK,
	}
}

type environmentDTO struct {
	SolarFluxWm2 float64 `json:"solarFluxWm2"`
	BondAlbedo   float64 `json:"bondAlbedo"`
	EarthIRWm2   float64 `json:"earthIrWm2"`
}

func (d environmentDTO) toDomain() domain.EnvironmentPreset {
	env := domain.DefaultEnvironmentPreset()
	if d.SolarFluxWm2 != 0 {
		env.SolarFluxWm2 = d.SolarFluxWm2
	}
	if d.BondAlbedo != 0 {
		env.BondAlbedo = d.BondAlbedo
	}
	if d.EarthIRWm2 != 0 {
		env.EarthIRWm2 = d.EarthIRWm2
	}
	return env
}

// sensitivityParamDTO mirrors domain.SensitivityParam; Kind is the string
// form of domain.ParamKind so requests stay readable over the wire.
type sensitivityParamDTO struct {
	Name      string  `json:"name" binding:"required"`
	Kind      string  `json:"kind" binding:"required"`
	TargetID  string  `json:"targetId" binding:"required"`
	DeltaFrac float64 `json:"deltaFrac"`
}

func (d sensitivityParamDTO) toDomain() (domain.SensitivityParam, error) {
	kind, err := parseParamKind(d.Kind)
	if err != nil {
		return domain.SensitivityParam{}, err
	}
	return domain.SensitivityParam{
		Name:      d.Name,
		Kind:      kind,
		TargetID:  d.TargetID,
		DeltaFrac: d.DeltaFrac,
	}, nil
}

func parseParamKind(s string) (domain.ParamKind, error) {
	switch s {
	case "node_capacitance":
		return domain.NodeCapacitanceParam, nil
	case "node_alpha":
		return domain.NodeAlphaParam, nil
	case "node_epsilon":
		return domain.NodeEpsilonParam, nil
	case "conductor_g":
		return domain.ConductorGParam, nil
	case "conductor_eps_eff":
		return domain.ConductorEpsEffParam, nil
	case "heat_load_constant_w":
		return domain.HeatLoadConstantWParam, nil
	default:
		return 0, fmt.Errorf("unknown sensitivity param kind %q", s)
	}
}

// failureCaseDTO mirrors domain.FailureCase; Kind is the string form of
// domain.FailureCaseKind.
type failureCaseDTO struct {
	Name              string   `json:"name" binding:"required"`
	Kind              string   `json:"kind" binding:"required"`
	DegradationFactor float64  `json:"degradationFactor"`
	TargetNodeIDs     []string `json:"targetNodeIds"`
	AlphaDelta        float64  `json:"alphaDelta"`
	ReductionFactor   float64  `json:"reductionFactor"`
	ConductorID       string   `json:"conductorId"`
	SpikeTargetNodeID string   `json:"spikeTargetNodeId"`
	SpikeFactor       float64  `json:"spikeFactor"`
}

func (d failureCaseDTO) toDomain() (domain.FailureCase, error) {
	kind, err := parseFailureCaseKind(d.Kind)
	if err != nil {
		return domain.FailureCase{}, err
	}
	return domain.FailureCase{
		Name:              d.Name,
		Kind:              kind,
		DegradationFactor: d.DegradationFactor,
		TargetNodeIDs:     d.TargetNodeIDs,
		AlphaDelta:        d.AlphaDelta,
		ReductionFactor:   d.ReductionFactor,
		ConductorID:       d.ConductorID,
		SpikeTargetNodeID: d.SpikeTargetNodeID,
		SpikeFactor:       d.SpikeFactor,
	}, nil
}

func parseFailureCaseKind(s string) (domain.FailureCaseKind, error) {
	switch s {
	case "heater_failure":
		return domain.HeaterFailure, nil
	case "mli_degradation":
		return domain.MLIDegradation, nil
	case "coating_degradation_eol":
		return domain.CoatingDegradationEOL, nil
	case "attitude_loss_tumble":
		return domain.AttitudeLossTumble, nil
	case "power_budget_reduction":
		return domain.PowerBudgetReduction, nil
	case "conductor_failure":
		return domain.ConductorFailure, nil
	case "component_power_spike":
		return domain.ComponentPowerSpike, nil
	default:
		return 0, fmt.Errorf("unknown failure case kind %q", s)
	}
}

// nodeLimitDTO mirrors domain.NodeLimit; a limit field is only honored when
// its companion Has* flag is set, matching the domain's "externally supplied,
// optional per-node band" semantics.
type nodeLimitDTO struct {
	WarnLow     *float64 `json:"warnLow"`
	WarnHigh    *float64 `json:"warnHigh"`
	FailLow     *float64 `json:"failLow"`
	FailHigh    *float64 `json:"failHigh"`
}

func (d nodeLimitDTO) toDomain() domain.NodeLimit {
	var l domain.NodeLimit
	if d.WarnLow != nil {
		l.WarnLow, l.HasWarnLow = *d.WarnLow, true
	}
	if d.WarnHigh != nil {
		l.WarnHigh, l.HasWarnHigh = *d.WarnHigh, true
	}
	if d.FailLow != nil {
		l.FailLow, l.HasFailLow = *d.FailLow, true
	}
	if d.FailHigh != nil {
		l.FailHigh, l.HasFailHigh = *d.FailHigh, true
	}
	return l
}

// requestContext builds a context carrying the request's optional deadline,
// and returns a cancel func the caller must defer.
func requestContext(c *gin.Context, deadlineSeconds float64) (context.Context, context.CancelFunc) {
	if deadlineSeconds <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), time.Duration(deadlineSeconds*float64(time.Second)))
}

// writeDomainError translates a domain error to a stable code and HTTP
// status (spec.md §7, "User-visible surfaces translate each kind to a stable
// string code and HTTP status upstream").
func writeDomainError(c *gin.Context, err error) {
	switch e := err.(type) {
	case domain.InvalidModel:
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_model", "reason": e.Reason})
	case domain.SolverDiverged:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"code": "solver_diverged", "error": e.Error()})
	case domain.StepSizeUnderflow:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"code": "step_size_underflow", "error": e.Error()})
	case domain.SteadyStateNonConvergent:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"code": "steady_state_non_convergent", "error": e.Error()})
	case domain.NumericalOverflow:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"code": "numerical_overflow", "error": e.Error()})
	case domain.Cancelled:
		c.JSON(http.StatusRequestTimeout, gin.H{"code": "cancelled", "error": e.Error()})
	case domain.DeadlineExceeded:
		c.JSON(http.StatusGatewayTimeout, gin.H{"code": "deadline_exceeded", "error": e.Error()})
	case domain.InternalAssertion:
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal_assertion", "error": e.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal_error", "error": err.Error()})
	}
}

func decodeModel(c *gin.Context, raw json.RawMessage) (*domain.Model, bool) {
	model, err := vxm.Decode(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_model", "reason": err.Error()})
		return nil, false
	}
	return model, true
}

// RunTransient handles POST /v1/run/transient.
func (h *Handler) RunTransient(c *gin.Context) {
	var req struct {
		Model  json.RawMessage     `json:"model" binding:"required"`
		Config simulationConfigDTO `json:"config" binding:"required"`
		Env    environmentDTO      `json:"env"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	model, ok := decodeModel(c, req.Model)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c, req.Config.DeadlineSeconds)
	defer cancel()

	result, err := h.solverUC.RunTransient(ctx, model, req.Config.toDomain(), req.Env.toDomain())
	if err != nil {
		writeDomainError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := results.WriteResultsOnlyJSON(&buf, result); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json", buf.Bytes())
}

// RunSteadyState handles POST /v1/run/steady-state.
func (h *Handler) RunSteadyState(c *gin.Context) {
	var req struct {
		Model  json.RawMessage `json:"model" binding:"required"`
		Config struct {
			MaxIterations   int       `json:"maxIterations"`
			ToleranceTauSS  float64   `json:"toleranceTauSs" binding:"required"`
			ReferenceTime   time.Time `json:"referenceTime" binding:"required"`
			DeadlineSeconds float64   `json:"deadlineSeconds"`
		} `json:"config" binding:"required"`
		Env environmentDTO `json:"env"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	model, ok := decodeModel(c, req.Model)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c, req.Config.DeadlineSeconds)
	defer cancel()

	cfg := domain.SteadyStateConfig{
		MaxIterations:  req.Config.MaxIterations,
		ToleranceTauSS: req.Config.ToleranceTauSS,
		ReferenceTime:  req.Config.ReferenceTime,
	}
	result, err := h.solverUC.RunSteadyState(ctx, model, cfg, req.Env.toDomain())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"runId":             result.RunID,
		"temperatures":      result.Temperatures,
		"iterations":        result.Iterations,
		"finalResidualNorm": result.FinalResidualNorm,
	})
}

// RunSensitivity handles POST /v1/run/sensitivity.
func (h *Handler) RunSensitivity(c *gin.Context) {
	var req struct {
		Model  json.RawMessage          `json:"model" binding:"required"`
		Params []sensitivityParamDTO    `json:"params" binding:"required"`
		Config simulationConfigDTO      `json:"config" binding:"required"`
		Env    environmentDTO           `json:"env"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	model, ok := decodeModel(c, req.Model)
	if !ok {
		return
	}

	params := make([]domain.SensitivityParam, len(req.Params))
	for i, p := range req.Params {
		dp, err := p.toDomain()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		params[i] = dp
	}

	ctx, cancel := requestContext(c, req.Config.DeadlineSeconds)
	defer cancel()

	result, err := h.solverUC.RunSensitivity(ctx, model, params, req.Config.toDomain(), req.Env.toDomain())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runId": result.RunID, "rows": result.Rows})
}

// RunFailureSweep handles POST /v1/run/failure-sweep.
func (h *Handler) RunFailureSweep(c *gin.Context) {
	var req struct {
		Model  json.RawMessage             `json:"model" binding:"required"`
		Cases  []failureCaseDTO            `json:"cases" binding:"required"`
		Limits map[string]nodeLimitDTO     `json:"limits"`
		Config simulationConfigDTO         `json:"config" binding:"required"`
		Env    environmentDTO              `json:"env"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	model, ok := decodeModel(c, req.Model)
	if !ok {
		return
	}

	cases := make([]domain.FailureCase, len(req.Cases))
	for i, fc := range req.Cases {
		dc, err := fc.toDomain()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		cases[i] = dc
	}

	limits := make(map[string]domain.NodeLimit, len(req.Limits))
	for id, l := range req.Limits {
		limits[id] = l.toDomain()
	}

	ctx, cancel := requestContext(c, req.Config.DeadlineSeconds)
	defer cancel()

	result, err := h.solverUC.RunFailureSweep(ctx, model, cases, req.Config.toDomain(), req.Env.toDomain(), limits)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runId": result.RunID, "cases": result.Cases})
}

// HealthCheck handles GET /healthz.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
