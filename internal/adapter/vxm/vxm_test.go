package vxm

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.ngs.io/thermosat/internal/domain"
)

func sampleModel() *domain.Model {
	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &domain.Model{
		ID: "round-trip",
		Nodes: []domain.Node{
			{
				ID: "A", Kind: domain.Diffusion, Capacitance: 12.5, Area: 0.8,
				Alpha: 0.3, Epsilon: 0.85, InitialTemperature: 295.5,
				Tags: []string{"heater"}, PanelU: 1.25, PanelV: -0.5,
			},
			{ID: "B", Kind: domain.Boundary, BoundaryTemperature: 277},
		},
		Conductors: []domain.Conductor{
			{ID: "C_AB", FromNode: "A", ToNode: "B", Kind: domain.Linear, G: 0.42},
			{
				ID: "HP_AB", FromNode: "A", ToNode: "B", Kind: domain.HeatPipe,
				HeatPipeTable: []domain.HeatPipePoint{
					{TemperatureK: 250, ConductanceG: 1},
					{TemperatureK: 320, ConductanceG: 4},
				},
			},
		},
		HeatLoads: []domain.HeatLoad{
			{ID: "heater", NodeID: "A", Kind: domain.ConstantLoad, ConstantW: 7.5, IsHeater: true},
			{
				ID: "solar", NodeID: "A", Kind: domain.OrbitalLoad,
				Surface: domain.CustomNormal, CustomNormal: domain.Vec3{X: 0, Y: 0, Z: 1},
				OrbitalAlpha: 0.3, OrbitalEps: 0.85, OrbitalAreaM2: 0.8,
			},
		},
		Orbital: &domain.OrbitalConfig{
			AltitudeKm: 550, InclinationDeg: 97.6, RAANDeg: 10, Epoch: epoch,
		},
	}
}

// Export followed by Import reproduces the model exactly on the fields
// assertModelsEqual compares: node, conductor and heat-load counts, ids and
// kinds, node capacitance/alpha/epsilon/panel coordinates, conductor G and
// heat-pipe table length, and the orbital epoch and altitude.
func TestExportImport_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.vxm")

	original := sampleModel()
	if err := Export(path, original); err != nil {
		t.Fatalf("Export: %v", err)
	}

	loaded, err := Import(path)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	assertModelsEqual(t, original, loaded)
}

// Encode/Decode (the byte-slice path used by the HTTP handler) round-trips
// identically to the file-backed Export/Import path.
func TestEncodeDecode_RoundTrip(t *testing.T) {
	original := sampleModel()
	data, err := Encode(original)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	loaded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	assertModelsEqual(t, original, loaded)
}

// Decode rejects a payload whose format field isn't "verixos-model" rather
// than silently accepting an unrelated JSON document.
func TestDecode_RejectsWrongFormat(t *testing.T) {
	_, err := Decode([]byte(`{"format":"something-else","version":1}`))
	if err == nil {
		t.Fatalf("expected an error for an unrecognized format")
	}
}

func TestImport_MissingFile(t *testing.T) {
	_, err := Import(filepath.Join(t.TempDir(), "does-not-exist.vxm"))
	if err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestExport_WritesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.vxm")
	original := sampleModel()
	if err := Export(path, original); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file at %s: %v", path, err)
	}
}

func assertModelsEqual(t *testing.T, want, got *domain.Model) {
	t.Helper()
	if got.ID != want.ID {
		t.Errorf("ID = %q, want %q", got.ID, want.ID)
	}
	if len(got.Nodes) != len(want.Nodes) {
		t.Fatalf("node count = %d, want %d", len(got.Nodes), len(want.Nodes))
	}
	for i := range want.Nodes {
		w, g := want.Nodes[i], got.Nodes[i]
		if w.ID != g.ID || w.Kind != g.Kind || w.Capacitance != g.Capacitance ||
			w.Alpha != g.Alpha || w.Epsilon != g.Epsilon || w.PanelU != g.PanelU || w.PanelV != g.PanelV {
			t.Errorf("node %d = %+v, want %+v", i, g, w)
		}
	}
	if len(got.Conductors) != len(want.Conductors) {
		t.Fatalf("conductor count = %d, want %d", len(got.Conductors), len(want.Conductors))
	}
	for i := range want.Conductors {
		w, g := want.Conductors[i], got.Conductors[i]
		if w.ID != g.ID || w.Kind != g.Kind || w.G != g.G || len(w.HeatPipeTable) != len(g.HeatPipeTable) {
			t.Errorf("conductor %d = %+v, want %+v", i, g, w)
		}
	}
	if len(got.HeatLoads) != len(want.HeatLoads) {
		t.Fatalf("heat load count = %d, want %d", len(got.HeatLoads), len(want.HeatLoads))
	}
	if got.Orbital == nil || want.Orbital == nil {
		if got.Orbital != want.Orbital {
			t.Fatalf("orbital presence mismatch: got=%v want=%v", got.Orbital, want.Orbital)
		}
	} else if !got.Orbital.Epoch.Equal(want.Orbital.Epoch) || got.Orbital.AltitudeKm != want.Orbital.AltitudeKm {
		t.Errorf("orbital = %+v, want %+v", got.Orbital, want.Orbital)
	}
}
