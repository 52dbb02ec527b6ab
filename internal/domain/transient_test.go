package domain

import (
	"context"
	"math"
	"testing"
	"time"
)

func twoNodeConductionModel(boundaryB bool) *Model {
	m := &Model{
		ID: "two-node",
		Nodes: []Node{
			{ID: "A", Kind: Diffusion, Capacitance: 10, InitialTemperature: 400},
		},
		Conductors: []Conductor{
			{ID: "C_AB", FromNode: "A", ToNode: "B", Kind: Linear, G: 0.5},
		},
	}
	if boundaryB {
		m.Nodes = append(m.Nodes, Node{ID: "B", Kind: Boundary, BoundaryTemperature: 300})
	} else {
		m.Nodes = append(m.Nodes, Node{ID: "B", Kind: Diffusion, Capacitance: 20, InitialTemperature: 300})
	}
	return m
}

func baseSimConfig(start time.Time, duration time.Duration) SimulationConfig {
	return SimulationConfig{
		TStart:             start,
		TEnd:               start.Add(duration),
		InitialStepSeconds: 5,
		ToleranceTau:       1e-4,
		OutputGridSeconds:  60,
	}
}

// A node conducting to a fixed boundary node relaxes monotonically toward the
// boundary temperature, and the boundary node's recorded temperature never
// departs from its declared value (spec.md §8, boundary-hold invariant).
func TestRunTransient_BoundaryHold(t *testing.T) {
	m := twoNodeConductionModel(true)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := baseSimConfig(start, 2*time.Hour)

	result, err := RunTransient(context.Background(), m, cfg, DefaultEnvironmentPreset())
	if err != nil {
		t.Fatalf("RunTransient: %v", err)
	}

	for i, id := range result.History.NodeIDs {
		if id != "B" {
			continue
		}
		for _, s := range result.History.Samples {
			if s.T[i] != 300 {
				t.Fatalf("boundary node B drifted to %g at %s, want exactly 300", s.T[i], s.Time)
			}
		}
	}

	last := result.History.Samples[len(result.History.Samples)-1]
	var tA float64
	for i, id := range result.History.NodeIDs {
		if id == "A" {
			tA = last.T[i]
		}
	}
	if tA >= 400 || tA <= 300 {
		t.Fatalf("node A did not relax toward the boundary temperature: final T=%g", tA)
	}
}

// A closed two-node system (no boundary, no external load) conserves total
// thermal energy: C_A*dT_A + C_B*dT_B must stay near zero at every sample.
func TestRunTransient_ClosedSystemConservesEnergy(t *testing.T) {
	m := twoNodeConductionModel(false)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := baseSimConfig(start, 3*time.Hour)

	result, err := RunTransient(context.Background(), m, cfg, DefaultEnvironmentPreset())
	if err != nil {
		t.Fatalf("RunTransient: %v", err)
	}

	idxA, idxB := -1, -1
	for i, id := range result.History.NodeIDs {
		switch id {
		case "A":
			idxA = i
		case "B":
			idxB = i
		}
	}

	const cA, cB = 10.0, 20.0
	t0A, t0B := m.Nodes[0].InitialTemperature, m.Nodes[1].InitialTemperature

	for _, s := range result.History.Samples {
		drift := cA*(s.T[idxA]-t0A) + cB*(s.T[idxB]-t0B)
		if math.Abs(drift) > 1e-3 {
			t.Fatalf("energy not conserved at %s: drift=%g J", s.Time, drift)
		}
	}

	if result.Energy.RelativeError > 1e-3 {
		t.Fatalf("energy accountant relative error too large: %g", result.Energy.RelativeError)
	}
}

// Re-running the identical model and config with no cancellation produces an
// identical accepted-step history (spec.md §8, determinism).
func TestRunTransient_Idempotent(t *testing.T) {
	m := twoNodeConductionModel(true)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := baseSimConfig(start, time.Hour)

	r1, err := RunTransient(context.Background(), m, cfg, DefaultEnvironmentPreset())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	r2, err := RunTransient(context.Background(), m, cfg, DefaultEnvironmentPreset())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(r1.History.Samples) != len(r2.History.Samples) {
		t.Fatalf("sample counts differ: %d vs %d", len(r1.History.Samples), len(r2.History.Samples))
	}
	for i := range r1.History.Samples {
		for j := range r1.History.Samples[i].T {
			if r1.History.Samples[i].T[j] != r2.History.Samples[i].T[j] {
				t.Fatalf("sample %d node %d differs: %g vs %g", i, j, r1.History.Samples[i].T[j], r2.History.Samples[i].T[j])
			}
		}
	}
}

// A cancelled context returns the partial history accumulated so far wrapped
// in domain.Cancelled, rather than silently truncating or panicking.
func TestRunTransient_CancellationReturnsPartialHistory(t *testing.T) {
	m := twoNodeConductionModel(true)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := baseSimConfig(start, 24*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunTransient(ctx, m, cfg, DefaultEnvironmentPreset())
	if err == nil {
		t.Fatalf("expected Cancelled error, got nil")
	}
	cancelled, ok := err.(Cancelled)
	if !ok {
		t.Fatalf("expected Cancelled, got %T: %v", err, err)
	}
	if cancelled.Partial == nil {
		t.Fatalf("Cancelled.Partial is nil")
	}
}
