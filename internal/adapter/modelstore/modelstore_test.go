package modelstore

import (
	"strings"
	"testing"

	"go.ngs.io/thermosat/internal/domain"
)

func fixtureModel() *domain.Model {
	return &domain.Model{
		ID: "store-fixture",
		Nodes: []domain.Node{
			{ID: "A", Kind: domain.Diffusion, Capacitance: 10, InitialTemperature: 300},
			{ID: "B", Kind: domain.Boundary, BoundaryTemperature: 270},
		},
		Conductors: []domain.Conductor{
			{ID: "C_AB", FromNode: "A", ToNode: "B", Kind: domain.Linear, G: 1},
		},
	}
}

// SaveModel followed by LoadModel under the same id round-trips the model.
func TestFileProvider_SaveThenLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := NewFileProvider(dir)

	if err := p.SaveModel("sat-1", fixtureModel()); err != nil {
		t.Fatalf("SaveModel: %v", err)
	}

	loaded, err := p.LoadModel("sat-1")
	if err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	if loaded.ID != "store-fixture" {
		t.Errorf("loaded.ID = %q, want store-fixture", loaded.ID)
	}
	if len(loaded.Nodes) != 2 {
		t.Errorf("loaded node count = %d, want 2", len(loaded.Nodes))
	}
}

// LoadModel on an id with no corresponding file wraps the underlying error
// with the requested id for easier diagnosis.
func TestFileProvider_LoadModel_MissingIDReturnsWrappedError(t *testing.T) {
	p := NewFileProvider(t.TempDir())
	_, err := p.LoadModel("does-not-exist")
	if err == nil {
		t.Fatalf("expected an error for a missing model id")
	}
	if !strings.Contains(err.Error(), `"does-not-exist"`) {
		t.Fatalf("error %q does not name the requested id", err)
	}
}
