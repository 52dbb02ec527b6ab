// Package vxm reads and writes the .vxm model container: a JSON document
// carrying a declarative thermal network (spec.md §6, "Model export/import
// file"). Node and conductor references within the file are by the file's
// own string ids and are remapped onto domain.Model on import.
package vxm

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.ngs.io/thermosat/internal/domain"
)

const expectedFormat = "verixos-model"

// CurrentVersion is the version stamped onto files written by this package.
const CurrentVersion = 1

// file is the on-disk shape of a .vxm container.
type file struct {
	Format            string              `json:"format"`
	Version           int                 `json:"version"`
	Model             modelHeader         `json:"model"`
	Nodes             []nodeRecord        `json:"nodes"`
	Conductors        []conductorRecord   `json:"conductors"`
	HeatLoads         []heatLoadRecord    `json:"heatLoads"`
	SimulationConfigs []simConfigRecord   `json:"simulationConfigs,omitempty"`
}

type modelHeader struct {
	ID      string           `json:"id"`
	Orbital *orbitalRecord   `json:"orbital,omitempty"`
}

type orbitalRecord struct {
	AltitudeKm           float64   `json:"altitudeKm"`
	InclinationDeg       float64   `json:"inclinationDeg"`
	RAANDeg              float64   `json:"raanDeg"`
	Epoch                time.Time `json:"epoch"`
	PenumbraWidthSeconds float64   `json:"penumbraWidthSeconds,omitempty"`
}

type nodeRecord struct {
	ID                  string   `json:"id"`
	Kind                string   `json:"kind"`
	Capacitance         float64  `json:"capacitance,omitempty"`
	Area                float64  `json:"area,omitempty"`
	Alpha               float64  `json:"alpha,omitempty"`
	Epsilon             float64  `json:"epsilon,omitempty"`
	MassKg              float64  `json:"massKg,omitempty"`
	BoundaryTemperature float64  `json:"boundaryTemperature,omitempty"`
	InitialTemperature  float64  `json:"initialTemperature,omitempty"`
	Tags                []string `json:"tags,omitempty"`
	PanelU              float64  `json:"panelU,omitempty"`
	PanelV              float64  `json:"panelV,omitempty"`
}

type heatPipePointRecord struct {
	TemperatureK float64 `json:"temperatureK"`
	ConductanceG float64 `json:"conductanceG"`
}

type conductorRecord struct {
	ID            string                `json:"id"`
	FromNode      string                `json:"fromNode"`
	ToNode        string                `json:"toNode"`
	Kind          string                `json:"kind"`
	KindTag       string                `json:"kindTag,omitempty"`
	G             float64               `json:"g,omitempty"`
	RadArea       float64               `json:"radArea,omitempty"`
	ViewFactor    float64               `json:"viewFactor,omitempty"`
	EpsEff        float64               `json:"epsEff,omitempty"`
	HeatPipeTable []heatPipePointRecord `json:"heatPipeTable,omitempty"`
}

type timeValueRecord struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

type heatLoadRecord struct {
	ID            string            `json:"id"`
	NodeID        string            `json:"nodeId"`
	Kind          string            `json:"kind"`
	IsHeater      bool              `json:"isHeater,omitempty"`
	ConstantW     float64           `json:"constantW,omitempty"`
	Samples       []timeValueRecord `json:"samples,omitempty"`
	Surface       string            `json:"surface,omitempty"`
	CustomNormal  *vec3Record       `json:"customNormal,omitempty"`
	OrbitalAlpha  float64           `json:"orbitalAlpha,omitempty"`
	OrbitalEps    float64           `json:"orbitalEps,omitempty"`
	OrbitalAreaM2 float64           `json:"orbitalAreaM2,omitempty"`
}

type vec3Record struct {
	X, Y, Z float64
}

// simConfigRecord carries a named simulation config alongside the model, for
// round-tripping a saved run's configuration (spec.md §6, "optional
// simulationConfigs").
type simConfigRecord struct {
	Name               string    `json:"name"`
	TStart             time.Time `json:"tStart"`
	TEnd               time.Time `json:"tEnd"`
	InitialStepSeconds float64   `json:"initialStepSeconds"`
	ToleranceTau       float64   `json:"toleranceTau"`
	OutputGridSeconds  float64   `json:"outputGridSeconds"`
	MinStepSeconds     float64   `json:"minStepSeconds,omitempty"`
	MaxStepSeconds     float64   `json:"maxStepSeconds,omitempty"`
	UseCrankNicolson   bool      `json:"useCrankNicolson,omitempty"`
}

func nodeKindString(k domain.NodeKind) string { return k.String() }

func parseNodeKind(s string) (domain.NodeKind, error) {
	switch s {
	case "diffusion":
		return domain.Diffusion, nil
	case "arithmetic":
		return domain.Arithmetic, nil
	case "boundary":
		return domain.Boundary, nil
	default:
		return 0, fmt.Errorf("unknown node kind %q", s)
	}
}

func conductorKindString(k domain.ConductorKind) string { return k.String() }

func parseConductorKind(s string) (domain.ConductorKind, error) {
	switch s {
	case "linear":
		return domain.Linear, nil
	case "contact":
		return domain.Contact, nil
	case "radiation":
		return domain.Radiation, nil
	case "heat_pipe":
		return domain.HeatPipe, nil
	default:
		return 0, fmt.Errorf("unknown conductor kind %q", s)
	}
}

func heatLoadKindString(k domain.HeatLoadKind) string {
	switch k {
	case domain.ConstantLoad:
		return "constant"
	case domain.PiecewiseLoad:
		return "piecewise"
	case domain.OrbitalLoad:
		return "orbital"
	default:
		return "unknown"
	}
}

func parseHeatLoadKind(s string) (domain.HeatLoadKind, error) {
	switch s {
	case "constant":
		return domain.ConstantLoad, nil
	case "piecewise":
		return domain.PiecewiseLoad, nil
	case "orbital":
		return domain.OrbitalLoad, nil
	default:
		return 0, fmt.Errorf("unknown heat load kind %q", s)
	}
}

func surfaceTypeString(s domain.SurfaceType) string {
	switch s {
	case domain.SolarTracking:
		return "solar_tracking"
	case domain.EarthFacing:
		return "earth_facing"
	case domain.AntiEarth:
		return "anti_earth"
	case domain.CustomNormal:
		return "custom_normal"
	case domain.IsotropicAverage:
		return "isotropic_average"
	default:
		return "unknown"
	}
}

func parseSurfaceType(s string) (domain.SurfaceType, error) {
	switch s {
	case "solar_tracking", "":
		return domain.SolarTracking, nil
	case "earth_facing":
		return domain.EarthFacing, nil
	case "anti_earth":
		return domain.AntiEarth, nil
	case "custom_normal":
		return domain.CustomNormal, nil
	case "isotropic_average":
		return domain.IsotropicAverage, nil
	default:
		return 0, fmt.Errorf("unknown surface type %q", s)
	}
}

// Export converts a domain.Model to the .vxm JSON shape and writes it to path.
func Export(path string, model *domain.Model) error {
	data, err := Encode(model)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write .vxm file %s: %w", path, err)
	}
	return nil
}

// Encode converts a domain.Model to indented .vxm JSON bytes, for transports
// other than the filesystem (e.g. an HTTP request body).
func Encode(model *domain.Model) ([]byte, error) {
	f := file{
		Format:  expectedFormat,
		Version: CurrentVersion,
		Model:   modelHeader{ID: model.ID},
	}

	if model.Orbital != nil {
		f.Model.Orbital = &orbitalRecord{
			AltitudeKm:           model.Orbital.AltitudeKm,
			InclinationDeg:       model.Orbital.InclinationDeg,
			RAANDeg:              model.Orbital.RAANDeg,
			Epoch:                model.Orbital.Epoch,
			PenumbraWidthSeconds: model.Orbital.PenumbraWidthSeconds,
		}
	}

	for _, n := range model.Nodes {
		f.Nodes = append(f.Nodes, nodeRecord{
			ID:                  n.ID,
			Kind:                nodeKindString(n.Kind),
			Capacitance:         n.Capacitance,
			Area:                n.Area,
			Alpha:               n.Alpha,
			Epsilon:             n.Epsilon,
			MassKg:              n.MassKg,
			BoundaryTemperature: n.BoundaryTemperature,
			InitialTemperature:  n.InitialTemperature,
			Tags:                n.Tags,
			PanelU:              n.PanelU,
			PanelV:              n.PanelV,
		})
	}

	for _, c := range model.Conductors {
		var table []heatPipePointRecord
		for _, p := range c.HeatPipeTable {
			table = append(table, heatPipePointRecord{TemperatureK: p.TemperatureK, ConductanceG: p.ConductanceG})
		}
		f.Conductors = append(f.Conductors, conductorRecord{
			ID:            c.ID,
			FromNode:      c.FromNode,
			ToNode:        c.ToNode,
			Kind:          conductorKindString(c.Kind),
			KindTag:       c.KindTag,
			G:             c.G,
			RadArea:       c.RadArea,
			ViewFactor:    c.ViewFactor,
			EpsEff:        c.EpsEff,
			HeatPipeTable: table,
		})
	}

	for _, hl := range model.HeatLoads {
		var samples []timeValueRecord
		for _, s := range hl.Samples {
			samples = append(samples, timeValueRecord{Time: s.Time, Value: s.Value})
		}
		var normal *vec3Record
		if hl.Surface == domain.CustomNormal {
			normal = &vec3Record{X: hl.CustomNormal.X, Y: hl.CustomNormal.Y, Z: hl.CustomNormal.Z}
		}
		f.HeatLoads = append(f.HeatLoads, heatLoadRecord{
			ID:            hl.ID,
			NodeID:        hl.NodeID,
			Kind:          heatLoadKindString(hl.Kind),
			IsHeater:      hl.IsHeater,
			ConstantW:     hl.ConstantW,
			Samples:       samples,
			Surface:       surfaceTypeString(hl.Surface),
			CustomNormal:  normal,
			OrbitalAlpha:  hl.OrbitalAlpha,
			OrbitalEps:    hl.OrbitalEps,
			OrbitalAreaM2: hl.OrbitalAreaM2,
		})
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal .vxm model: %w", err)
	}
	return data, nil
}

// Import reads a .vxm file and builds a domain.Model. It rejects any file
// whose format field is not exactly "verixos-model" (spec.md §6).
func Import(path string) (*domain.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read .vxm file %s: %w", path, err)
	}
	model, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse .vxm file %s: %w", path, err)
	}
	return model, nil
}

// Decode parses .vxm JSON bytes into a domain.Model, for transports other
// than the filesystem. It rejects any payload whose format field is not
// exactly "verixos-model" (spec.md §6).
func Decode(data []byte) (*domain.Model, error) {
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse .vxm payload: %w", err)
	}

	if f.Format != expectedFormat {
		return nil, fmt.Errorf("unrecognized .vxm format %q, expected %q", f.Format, expectedFormat)
	}

	model := &domain.Model{ID: f.Model.ID}

	if f.Model.Orbital != nil {
		model.Orbital = &domain.OrbitalConfig{
			AltitudeKm:           f.Model.Orbital.AltitudeKm,
			InclinationDeg:       f.Model.Orbital.InclinationDeg,
			RAANDeg:              f.Model.Orbital.RAANDeg,
			Epoch:                f.Model.Orbital.Epoch,
			PenumbraWidthSeconds: f.Model.Orbital.PenumbraWidthSeconds,
		}
	}

	for _, n := range f.Nodes {
		kind, err := parseNodeKind(n.Kind)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", n.ID, err)
		}
		model.Nodes = append(model.Nodes, domain.Node{
			ID:                  n.ID,
			Kind:                kind,
			Capacitance:         n.Capacitance,
			Area:                n.Area,
			Alpha:               n.Alpha,
			Epsilon:             n.Epsilon,
			MassKg:              n.MassKg,
			BoundaryTemperature: n.BoundaryTemperature,
			InitialTemperature:  n.InitialTemperature,
			Tags:                n.Tags,
			PanelU:              n.PanelU,
			PanelV:              n.PanelV,
		})
	}

	for _, c := range f.Conductors {
		kind, err := parseConductorKind(c.Kind)
		if err != nil {
			return nil, fmt.Errorf("conductor %q: %w", c.ID, err)
		}
		var table []domain.HeatPipePoint
		for _, p := range c.HeatPipeTable {
			table = append(table, domain.HeatPipePoint{TemperatureK: p.TemperatureK, ConductanceG: p.ConductanceG})
		}
		model.Conductors = append(model.Conductors, domain.Conductor{
			ID:            c.ID,
			FromNode:      c.FromNode,
			ToNode:        c.ToNode,
			Kind:          kind,
			KindTag:       c.KindTag,
			G:             c.G,
			RadArea:       c.RadArea,
			ViewFactor:    c.ViewFactor,
			EpsEff:        c.EpsEff,
			HeatPipeTable: table,
		})
	}

	for _, hl := range f.HeatLoads {
		kind, err := parseHeatLoadKind(hl.Kind)
		if err != nil {
			return nil, fmt.Errorf("heat load %q: %w", hl.ID, err)
		}
		surface, err := parseSurfaceType(hl.Surface)
		if err != nil {
			return nil, fmt.Errorf("heat load %q: %w", hl.ID, err)
		}
		var samples []domain.TimeValue
		for _, s := range hl.Samples {
			samples = append(samples, domain.TimeValue{Time: s.Time, Value: s.Value})
		}
		var normal domain.Vec3
		if hl.CustomNormal != nil {
			normal = domain.Vec3{X: hl.CustomNormal.X, Y: hl.CustomNormal.Y, Z: hl.CustomNormal.Z}
		}
		model.HeatLoads = append(model.HeatLoads, domain.HeatLoad{
			ID:            hl.ID,
			NodeID:        hl.NodeID,
			Kind:          kind,
			IsHeater:      hl.IsHeater,
			ConstantW:     hl.ConstantW,
			Samples:       samples,
			Surface:       surface,
			CustomNormal:  normal,
			OrbitalAlpha:  hl.OrbitalAlpha,
			OrbitalEps:    hl.OrbitalEps,
			OrbitalAreaM2: hl.OrbitalAreaM2,
		})
	}

	if err := model.Validate(); err != nil {
		return nil, err
	}

	return model, nil
}
