// Package domain implements the thermal network assembler, orbital-environment
// driver, transient/steady-state solvers, sensitivity engine and failure-case
// dispatcher described by the spacecraft thermal network simulator.
package domain

import (
	"fmt"
	"sort"
	"time"
)

// NodeKind distinguishes the three state variants a Node can take.
type NodeKind int

const (
	// Diffusion nodes evolve: C*dT/dt = Q_net. Exactly one row in the operator.
	Diffusion NodeKind = iota
	// Arithmetic nodes have no capacitance: 0 = Q_net at every instant.
	Arithmetic
	// Boundary nodes hold a fixed temperature for all time.
	Boundary
)

func (k NodeKind) String() string {
	switch k {
	case Diffusion:
		return "diffusion"
	case Arithmetic:
		return "arithmetic"
	case Boundary:
		return "boundary"
	default:
		return "unknown"
	}
}

// Node is a lumped thermal mass at a single temperature.
type Node struct {
	ID   string
	Kind NodeKind

	// Capacitance in J/K. Required (> 0) for Diffusion nodes; ignored otherwise.
	Capacitance float64

	// Area in m^2, optical absorptivity and emissivity. Used by orbital loads
	// and radiation conductors attached to this node.
	Area        float64
	Alpha       float64
	Epsilon     float64
	MassKg      float64 // optional, informational only

	// BoundaryTemperature is the fixed temperature (K) for Boundary nodes.
	BoundaryTemperature float64

	// InitialTemperature seeds Diffusion/Arithmetic rows at t_start.
	InitialTemperature float64

	// Tags are free-form labels (e.g. "heater", "MLI"), carried through
	// .vxm import/export. The failure-case dispatcher does not read them:
	// heater_failure uses HeatLoad.IsHeater and mli_degradation uses
	// Conductor.KindTag.
	Tags []string

	// PanelU, PanelV place this node on a spacecraft surface's (u,v) panel
	// coordinate grid, consulted only by the NetCDF-backed model provider
	// when resampling a gridded coating property map onto Alpha/Epsilon.
	PanelU, PanelV float64
}

// HasTag reports whether the node carries the given tag.
func (n Node) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ConductorKind selects the physical law governing a Conductor.
type ConductorKind int

const (
	// Linear: Q = G*(Ta-Tb).
	Linear ConductorKind = iota
	// Contact: same law as Linear, distinguished only for reporting/failure targeting.
	Contact
	// Radiation: Q = EpsEff*sigma*A*F*(Ta^4-Tb^4).
	Radiation
	// HeatPipe: Q = G(Tavg)*(Ta-Tb), G from a piecewise-linear table in Tavg.
	HeatPipe
)

func (k ConductorKind) String() string {
	switch k {
	case Linear:
		return "linear"
	case Contact:
		return "contact"
	case Radiation:
		return "radiation"
	case HeatPipe:
		return "heat_pipe"
	default:
		return "unknown"
	}
}

// HeatPipePoint is one entry of a heat pipe's conductance table.
type HeatPipePoint struct {
	TemperatureK float64
	ConductanceG float64
}

// Conductor is a directed-but-physically-symmetric coupling between two nodes.
type Conductor struct {
	ID       string
	FromNode string
	ToNode   string
	Kind     ConductorKind

	// KindTag is a free-form sub-classification (e.g. "MLI") consulted by the
	// mli_degradation failure case.
	KindTag string

	// G is the conductance (W/K), used by Linear and Contact.
	G float64

	// Radiation coefficients.
	RadArea    float64 // A, m^2
	ViewFactor float64 // F, dimensionless in [0,1]
	EpsEff     float64 // effective emissivity

	// HeatPipeTable is the piecewise-linear G(Tavg) table, sorted by temperature.
	HeatPipeTable []HeatPipePoint
}

// HeatLoadKind selects how a HeatLoad's wattage is computed.
type HeatLoadKind int

const (
	// ConstantLoad contributes a fixed wattage.
	ConstantLoad HeatLoadKind = iota
	// PiecewiseLoad interpolates linearly between (t,v) samples, holding flat
	// outside the sample range (spec.md §9(a)).
	PiecewiseLoad
	// OrbitalLoad derives wattage from the orbital environment driver (§4.2).
	OrbitalLoad
)

// SurfaceType selects how an orbital load's outward normal is derived.
type SurfaceType int

const (
	// SolarTracking surfaces always face the sun (cos factor pinned to 1).
	SolarTracking SurfaceType = iota
	// EarthFacing surfaces point toward nadir.
	EarthFacing
	// AntiEarth surfaces point away from nadir.
	AntiEarth
	// CustomNormal surfaces use a fixed orbit-frame normal vector.
	CustomNormal
	// IsotropicAverage surfaces average incident flux over attitude (used by
	// the attitude_loss_tumble failure case, spec.md §4.9/§9(b)).
	IsotropicAverage
)

// HeatLoad is attached to exactly one node.
type HeatLoad struct {
	ID       string
	NodeID   string
	Kind     HeatLoadKind
	IsHeater bool // consulted by the heater_failure failure case

	// ConstantW is used when Kind == ConstantLoad.
	ConstantW float64

	// Piecewise samples, used when Kind == PiecewiseLoad. Must be sorted by Time.
	Samples []TimeValue

	// Orbital load parameters, used when Kind == OrbitalLoad.
	Surface       SurfaceType
	CustomNormal  Vec3 // orbit-frame outward normal, used when Surface == CustomNormal
	OrbitalAlpha  float64
	OrbitalEps    float64
	OrbitalAreaM2 float64
}

// TimeValue is one sample of a piecewise-linear-in-time series.
type TimeValue struct {
	Time  time.Time
	Value float64
}

// OrbitalConfig parameterizes the Keplerian orbit and epoch used by the
// orbital-environment driver (§4.2).
type OrbitalConfig struct {
	AltitudeKm    float64
	InclinationDeg float64
	RAANDeg        float64
	Epoch          time.Time

	// PenumbraWidthSeconds is the orbital-time width of the linear eclipse
	// ramp at umbra entry/exit. Zero means "use the default" (1 minute).
	PenumbraWidthSeconds float64
}

// EnvironmentPreset carries the scalar orbital-environment constants.
type EnvironmentPreset struct {
	SolarFluxWm2    float64 // S, default 1361
	BondAlbedo      float64 // a, default 0.30
	EarthIRWm2      float64 // E_ir, default 237
}

// DefaultEnvironmentPreset returns the spec's default scalar environment.
func DefaultEnvironmentPreset() EnvironmentPreset {
	return EnvironmentPreset{
		SolarFluxWm2: 1361,
		BondAlbedo:   0.30,
		EarthIRWm2:   237,
	}
}

// SimulationConfig controls the transient stepper (§4.5) and its output grid.
type SimulationConfig struct {
	TStart time.Time
	TEnd   time.Time

	InitialStepSeconds float64
	ToleranceTau       float64
	OutputGridSeconds  float64

	MinStepSeconds float64 // 0 means "no floor beyond the numerical minimum"
	MaxStepSeconds float64 // 0 means "no explicit cap"

	MaxNewtonIterations int // 0 means "use the default (20)"

	// UseCrankNicolson selects the theta=0.5 blend instead of pure backward
	// Euler (spec.md §9(c)).
	UseCrankNicolson bool

	// FloorTemperatureK is the physical minimum temperature enforced after
	// every accepted step. Zero means "use the default (3 K)".
	FloorTemperatureK float64
}

// SteadyStateConfig controls the damped-Newton steady solver (§4.6).
type SteadyStateConfig struct {
	MaxIterations int
	ToleranceTauSS float64

	// ReferenceTime is the instant at which time-dependent loads (piecewise,
	// orbital) are evaluated for the steady solve.
	ReferenceTime time.Time
}

// Model is the immutable, validated declarative thermal network.
type Model struct {
	ID         string
	Nodes      []Node
	Conductors []Conductor
	HeatLoads  []HeatLoad
	Orbital    *OrbitalConfig // nil if the model has no orbital loads
}

// NodeByID returns the node with the given id, if present.
func (m *Model) NodeByID(id string) (Node, bool) {
	for _, n := range m.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Clone performs a deep-enough copy for the derived-model mutations the
// sensitivity engine and failure-case dispatcher need (§3 "ephemeral derived
// models"). Slices are copied so mutating the clone never touches the baseline.
func (m *Model) Clone() *Model {
	c := &Model{ID: m.ID}
	c.Nodes = append([]Node(nil), m.Nodes...)
	for i := range c.Nodes {
		c.Nodes[i].Tags = append([]string(nil), m.Nodes[i].Tags...)
	}
	c.Conductors = append([]Conductor(nil), m.Conductors...)
	for i := range c.Conductors {
		c.Conductors[i].HeatPipeTable = append([]HeatPipePoint(nil), m.Conductors[i].HeatPipeTable...)
	}
	c.HeatLoads = append([]HeatLoad(nil), m.HeatLoads...)
	for i := range c.HeatLoads {
		c.HeatLoads[i].Samples = append([]TimeValue(nil), m.HeatLoads[i].Samples...)
	}
	if m.Orbital != nil {
		o := *m.Orbital
		c.Orbital = &o
	}
	return c
}

// Validate checks the structural invariants in spec.md §3/§4.1 and returns an
// InvalidModel error describing the first violation found. Node discovery
// order (as declared in m.Nodes) is preserved by the operator builder.
func (m *Model) Validate() error {
	if len(m.Nodes) == 0 {
		return InvalidModel{Reason: "model has no nodes"}
	}

	seen := make(map[string]bool, len(m.Nodes))
	for _, n := range m.Nodes {
		if n.ID == "" {
			return InvalidModel{Reason: "node has empty id"}
		}
		if seen[n.ID] {
			return InvalidModel{Reason: fmt.Sprintf("duplicate node id %q", n.ID)}
		}
		seen[n.ID] = true

		if n.Kind == Diffusion && n.Capacitance <= 0 {
			return InvalidModel{Reason: fmt.Sprintf("diffusion node %q has non-positive capacitance %g", n.ID, n.Capacitance)}
		}
	}

	for _, c := range m.Conductors {
		if c.FromNode == c.ToNode {
			return InvalidModel{Reason: fmt.Sprintf("conductor %q is a self-loop on %q", c.ID, c.FromNode)}
		}
		if !seen[c.FromNode] {
			return InvalidModel{Reason: fmt.Sprintf("conductor %q references missing node %q", c.ID, c.FromNode)}
		}
		if !seen[c.ToNode] {
			return InvalidModel{Reason: fmt.Sprintf("conductor %q references missing node %q", c.ID, c.ToNode)}
		}
		if c.Kind == Radiation {
			if c.RadArea < 0 {
				return InvalidModel{Reason: fmt.Sprintf("conductor %q has negative radiation area %g", c.ID, c.RadArea)}
			}
			if c.ViewFactor < 0 {
				return InvalidModel{Reason: fmt.Sprintf("conductor %q has negative view factor %g", c.ID, c.ViewFactor)}
			}
			if c.EpsEff < 0 {
				return InvalidModel{Reason: fmt.Sprintf("conductor %q has negative effective emissivity %g", c.ID, c.EpsEff)}
			}
		}
		if c.Kind == HeatPipe {
			if err := validateHeatPipeTable(c.ID, c.HeatPipeTable); err != nil {
				return err
			}
		}
	}

	for _, hl := range m.HeatLoads {
		if !seen[hl.NodeID] {
			return InvalidModel{Reason: fmt.Sprintf("heat load %q references missing node %q", hl.ID, hl.NodeID)}
		}
		if hl.Kind == PiecewiseLoad && len(hl.Samples) == 0 {
			return InvalidModel{Reason: fmt.Sprintf("heat load %q has an empty piecewise sample list", hl.ID)}
		}
		if hl.Kind == PiecewiseLoad && !sort.SliceIsSorted(hl.Samples, func(i, j int) bool {
			return hl.Samples[i].Time.Before(hl.Samples[j].Time)
		}) {
			return InvalidModel{Reason: fmt.Sprintf("heat load %q piecewise samples are not sorted by time", hl.ID)}
		}
	}

	if m.Orbital != nil {
		if m.Orbital.AltitudeKm <= 0 {
			return InvalidModel{Reason: fmt.Sprintf("invalid orbital altitude %g km", m.Orbital.AltitudeKm)}
		}
	}

	return nil
}

func validateHeatPipeTable(conductorID string, table []HeatPipePoint) error {
	if len(table) == 0 {
		return InvalidModel{Reason: fmt.Sprintf("heat pipe conductor %q has an empty conductance table", conductorID)}
	}
	for i := 1; i < len(table); i++ {
		if table[i].TemperatureK <= table[i-1].TemperatureK {
			return InvalidModel{Reason: fmt.Sprintf("heat pipe conductor %q table is not strictly monotone in temperature", conductorID)}
		}
	}
	return nil
}
