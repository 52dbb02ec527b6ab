package domain

import (
	"context"
	"math"
	"testing"
	"time"
)

// A diffusion node with a constant heat load conducting to a boundary node
// converges to the closed-form steady temperature T_B + Q/G.
func TestRunSteadyState_TwoNodeConduction(t *testing.T) {
	const g, q, tBoundary = 2.0, 5.0, 280.0

	m := &Model{
		ID: "steady-two-node",
		Nodes: []Node{
			{ID: "A", Kind: Diffusion, Capacitance: 10, InitialTemperature: 280},
			{ID: "B", Kind: Boundary, BoundaryTemperature: tBoundary},
		},
		Conductors: []Conductor{
			{ID: "C_AB", FromNode: "A", ToNode: "B", Kind: Linear, G: g},
		},
		HeatLoads: []HeatLoad{
			{ID: "heater", NodeID: "A", Kind: ConstantLoad, ConstantW: q},
		},
	}

	cfg := SteadyStateConfig{
		ToleranceTauSS: 1e-9,
		ReferenceTime:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	result, err := RunSteadyState(context.Background(), m, cfg, DefaultEnvironmentPreset())
	if err != nil {
		t.Fatalf("RunSteadyState: %v", err)
	}

	want := tBoundary + q/g
	var got float64
	for i, n := range m.Nodes {
		if n.ID == "A" {
			got = result.Temperatures[i]
		}
	}
	if math.Abs(got-want) > 1e-4 {
		t.Fatalf("steady temperature = %g, want %g", got, want)
	}
}

// A steady-state solve that never satisfies its tolerance within the
// iteration cap reports SteadyStateNonConvergent rather than silently
// returning the last iterate.
func TestRunSteadyState_NonConvergent(t *testing.T) {
	m := &Model{
		ID: "unreachable-tolerance",
		Nodes: []Node{
			{ID: "A", Kind: Diffusion, Capacitance: 10, InitialTemperature: 280},
			{ID: "B", Kind: Boundary, BoundaryTemperature: 280},
		},
		Conductors: []Conductor{
			{ID: "C_AB", FromNode: "A", ToNode: "B", Kind: Linear, G: 1},
		},
		HeatLoads: []HeatLoad{
			{ID: "heater", NodeID: "A", Kind: ConstantLoad, ConstantW: 100},
		},
	}

	cfg := SteadyStateConfig{
		MaxIterations:  1,
		ToleranceTauSS: 1e-12,
		ReferenceTime:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	_, err := RunSteadyState(context.Background(), m, cfg, DefaultEnvironmentPreset())
	if _, ok := err.(SteadyStateNonConvergent); !ok {
		t.Fatalf("expected SteadyStateNonConvergent, got %T: %v", err, err)
	}
}
