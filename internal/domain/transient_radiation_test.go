package domain

import (
	"context"
	"testing"
	"time"
)

func radiatorToSpaceModel() *Model {
	return &Model{
		ID: "radiative-cooldown",
		Nodes: []Node{
			{ID: "A", Kind: Diffusion, Capacitance: 50, InitialTemperature: 400},
			{ID: "SPACE", Kind: Boundary, BoundaryTemperature: 4},
		},
		Conductors: []Conductor{
			{
				ID: "RAD_A_SPACE", FromNode: "A", ToNode: "SPACE", Kind: Radiation,
				RadArea: 0.5, ViewFactor: 1, EpsEff: 0.9,
			},
		},
	}
}

// A node radiating to a 4K boundary with no heat load cools monotonically
// and never overshoots below the boundary temperature (spec.md §4.4, the
// T^4 radiation law dominates once no competing heat load is present).
func TestRunTransient_RadiativeCooldownIsMonotonicAndBounded(t *testing.T) {
	m := radiatorToSpaceModel()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := baseSimConfig(start, 6*time.Hour)

	result, err := RunTransient(context.Background(), m, cfg, DefaultEnvironmentPreset())
	if err != nil {
		t.Fatalf("RunTransient: %v", err)
	}

	idxA := -1
	for i, id := range result.History.NodeIDs {
		if id == "A" {
			idxA = i
		}
	}
	if idxA < 0 {
		t.Fatalf("node A missing from history")
	}

	prev := result.History.Samples[0].T[idxA]
	for _, s := range result.History.Samples[1:] {
		cur := s.T[idxA]
		if cur > prev {
			t.Fatalf("temperature increased at %s: %g -> %g, expected monotone cooling with no heat load", s.Time, prev, cur)
		}
		if cur < 4 {
			t.Fatalf("temperature undershot the radiative boundary at %s: %g < 4", s.Time, cur)
		}
		prev = cur
	}
	if prev >= 400 {
		t.Fatalf("node A did not cool from its initial 400K, final=%g", prev)
	}
}
