package domain

import (
	"math"
	"testing"
	"time"
)

// A linear conductor between a diffusion node and a boundary node: the
// boundary row holds T-T_b exactly, and the free row holds -(Q_load + net
// conductive inflow).
func TestNetworkResidual_LinearConductorAndBoundaryRow(t *testing.T) {
	model := &Model{
		ID: "residual-linear",
		Nodes: []Node{
			{ID: "A", Kind: Diffusion, Capacitance: 5},
			{ID: "B", Kind: Boundary, BoundaryTemperature: 280},
		},
		Conductors: []Conductor{
			{ID: "C_AB", FromNode: "A", ToNode: "B", Kind: Linear, G: 2},
		},
		HeatLoads: []HeatLoad{
			{ID: "heater", NodeID: "A", Kind: ConstantLoad, ConstantW: 3},
		},
	}
	op, err := BuildOperator(model)
	if err != nil {
		t.Fatalf("BuildOperator: %v", err)
	}
	a, b := op.Index["A"], op.Index["B"]
	T := make([]float64, op.N)
	T[a], T[b] = 320, 280

	r := NetworkResidual(op, nil, DefaultEnvironmentPreset(), time.Now(), T, nil)

	if r[b] != T[b]-280 {
		t.Errorf("boundary row = %g, want %g", r[b], T[b]-280)
	}
	// Q_cond from A to B = G*(Ta-Tb) = 2*40 = 80, flowing out of A.
	// netIn[A] = -80. r[A] = -(Q_load + netIn) = -(3 - 80) = 77.
	want := -(3.0 - 80.0)
	if math.Abs(r[a]-want) > 1e-9 {
		t.Errorf("free row = %g, want %g", r[a], want)
	}
}

// The analytic Jacobian of a linear conductor matches the hand-derived
// +-G / -+G block.
func TestNetworkResidual_LinearConductorJacobian(t *testing.T) {
	model := &Model{
		ID: "residual-linear-jac",
		Nodes: []Node{
			{ID: "A", Kind: Diffusion, Capacitance: 5},
			{ID: "B", Kind: Diffusion, Capacitance: 5},
		},
		Conductors: []Conductor{
			{ID: "C_AB", FromNode: "A", ToNode: "B", Kind: Linear, G: 2.5},
		},
	}
	op, err := BuildOperator(model)
	if err != nil {
		t.Fatalf("BuildOperator: %v", err)
	}
	T := []float64{300, 290}
	jac := NewJacobian(op.N)
	NetworkResidual(op, nil, DefaultEnvironmentPreset(), time.Now(), T, jac)

	a, b := op.Index["A"], op.Index["B"]
	// netIn[A] -= G*(Ta-Tb) => d(netIn[A])/dTa = -G, and r[A] = -(q+netIn[A])
	// so J[A][A] = G via addJac(i=A,j=B,dQdTi=G,dQdTj=-G).
	checkJac := func(i, j int, want float64) {
		if got := jac.At(i, j); math.Abs(got-want) > 1e-9 {
			t.Errorf("jac[%d][%d] = %g, want %g", i, j, got, want)
		}
	}
	checkJac(a, a, 2.5)
	checkJac(a, b, -2.5)
	checkJac(b, a, -2.5)
	checkJac(b, b, 2.5)
}

// A radiation conductor's flow follows the Stefan-Boltzmann law and is
// antisymmetric: swapping Ta and Tb negates the flow.
func TestConductorFlow_Radiation(t *testing.T) {
	rec := ConductorRecord{Kind: Radiation, I: 0, J: 1, RadArea: 0.2, ViewFactor: 1, EpsEff: 0.8}
	T := []float64{350, 300}
	got := ConductorFlow(rec, T)
	want := 0.8 * StefanBoltzmann * 0.2 * 1 * (math.Pow(350, 4) - math.Pow(300, 4))
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("ConductorFlow radiation = %g, want %g", got, want)
	}

	swapped := ConductorFlow(rec, []float64{300, 350})
	if math.Abs(got+swapped) > 1e-6 {
		t.Errorf("radiation flow not antisymmetric: forward=%g swapped=%g", got, swapped)
	}
}

// A heat pipe conductor's flow uses the table conductance at the average
// temperature of the two ends.
func TestConductorFlow_HeatPipe(t *testing.T) {
	table := []HeatPipePoint{
		{TemperatureK: 250, ConductanceG: 1},
		{TemperatureK: 350, ConductanceG: 5},
	}
	rec := ConductorRecord{Kind: HeatPipe, I: 0, J: 1, HeatPipeTable: table}
	T := []float64{320, 280} // tavg = 300 -> G = 3
	got := ConductorFlow(rec, T)
	want := 3.0 * (320.0 - 280.0)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("ConductorFlow heat pipe = %g, want %g", got, want)
	}
}

// The Jacobian buffer returned by NewJacobian starts zeroed.
func TestNewJacobian_StartsZeroed(t *testing.T) {
	jac := NewJacobian(3)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if jac.At(i, j) != 0 {
				t.Fatalf("jac[%d][%d] = %g, want 0", i, j, jac.At(i, j))
			}
		}
	}
	if r, c := jac.Dims(); r != 3 || c != 3 {
		t.Fatalf("dims = (%d,%d), want (3,3)", r, c)
	}
}
