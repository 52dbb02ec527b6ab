package domain

import (
	"testing"
	"time"
)

func loadsFixtureOperator(t *testing.T) *Operator {
	t.Helper()
	model := &Model{
		ID: "loads-fixture",
		Nodes: []Node{
			{ID: "A", Kind: Diffusion, Capacitance: 5},
		},
		HeatLoads: []HeatLoad{
			{ID: "heater", NodeID: "A", Kind: ConstantLoad, ConstantW: 4},
			{
				ID: "profile", NodeID: "A", Kind: PiecewiseLoad,
				Samples: []TimeValue{
					{Time: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Value: 10},
					{Time: time.Date(2026, 1, 1, 0, 10, 0, 0, time.UTC), Value: 20},
				},
			},
		},
	}
	op, err := BuildOperator(model)
	if err != nil {
		t.Fatalf("BuildOperator: %v", err)
	}
	return op
}

// A constant load and a piecewise load on the same node sum together.
func TestEvaluateLoads_ConstantAndPiecewiseSum(t *testing.T) {
	op := loadsFixtureOperator(t)
	at := time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC) // midpoint: profile = 15

	q := EvaluateLoads(op, nil, DefaultEnvironmentPreset(), at, nil)
	want := 4.0 + 15.0
	if q[0] != want {
		t.Errorf("Q_load = %g, want %g", q[0], want)
	}
}

// A nil OrbitalGeometry means any OrbitalLoad entries contribute zero,
// rather than panicking (spec.md §4.3: nil geometry for a model with no
// orbital loads).
func TestEvaluateLoads_OrbitalLoadWithNilGeometryContributesZero(t *testing.T) {
	model := &Model{
		ID:    "orbital-nil-geo",
		Nodes: []Node{{ID: "A", Kind: Diffusion, Capacitance: 5}},
		HeatLoads: []HeatLoad{
			{ID: "solar", NodeID: "A", Kind: OrbitalLoad, Surface: SolarTracking, OrbitalAlpha: 0.9, OrbitalAreaM2: 1},
		},
	}
	op, err := BuildOperator(model)
	if err != nil {
		t.Fatalf("BuildOperator: %v", err)
	}
	q := EvaluateLoads(op, nil, DefaultEnvironmentPreset(), time.Now(), nil)
	if q[0] != 0 {
		t.Errorf("Q_load = %g, want 0 for an orbital load with nil geometry", q[0])
	}
}

func TestInterpolatePiecewise_HoldsFlatOutsideSampleRange(t *testing.T) {
	samples := []TimeValue{
		{Time: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Value: 10},
		{Time: time.Date(2026, 1, 1, 0, 10, 0, 0, time.UTC), Value: 20},
	}
	before := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	after := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	if got := interpolatePiecewise(samples, before); got != 10 {
		t.Errorf("before range: got %g, want 10", got)
	}
	if got := interpolatePiecewise(samples, after); got != 20 {
		t.Errorf("after range: got %g, want 20", got)
	}
}

func TestInterpolatePiecewise_EmptySamplesReturnsZero(t *testing.T) {
	if got := interpolatePiecewise(nil, time.Now()); got != 0 {
		t.Errorf("interpolatePiecewise(nil, ...) = %g, want 0", got)
	}
}

func TestInterpolatePiecewise_LinearMidpoint(t *testing.T) {
	samples := []TimeValue{
		{Time: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Value: 0},
		{Time: time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC), Value: 100},
	}
	mid := time.Date(2026, 1, 1, 0, 30, 0, 0, time.UTC)
	if got := interpolatePiecewise(samples, mid); got != 50 {
		t.Errorf("interpolatePiecewise at midpoint = %g, want 50", got)
	}
}
