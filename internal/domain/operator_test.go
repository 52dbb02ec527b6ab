package domain

import "testing"

func threeNodeModel() *Model {
	return &Model{
		ID: "operator-fixture",
		Nodes: []Node{
			{ID: "A", Kind: Diffusion, Capacitance: 5},
			{ID: "B", Kind: Diffusion, Capacitance: 5},
			{ID: "C", Kind: Boundary, BoundaryTemperature: 250},
		},
		Conductors: []Conductor{
			{ID: "C_BA", FromNode: "B", ToNode: "A", Kind: Linear, G: 0.5},
			{ID: "C_AC", FromNode: "A", ToNode: "C", Kind: Radiation, RadArea: 0.1, ViewFactor: 1, EpsEff: 0.8},
			{ID: "C_AC2", FromNode: "A", ToNode: "C", Kind: Linear, G: 0.2},
		},
		HeatLoads: []HeatLoad{
			{ID: "heater", NodeID: "B", Kind: ConstantLoad, ConstantW: 3},
		},
	}
}

// NodeIDs preserves Model.Nodes declaration order; downstream code (the CLI,
// results assembly) relies on this to zip node ids with result vectors.
func TestBuildOperator_NodeIDsPreserveDeclarationOrder(t *testing.T) {
	op, err := BuildOperator(threeNodeModel())
	if err != nil {
		t.Fatalf("BuildOperator: %v", err)
	}
	want := []string{"A", "B", "C"}
	for i, id := range want {
		if op.NodeIDs[i] != id {
			t.Errorf("NodeIDs[%d] = %q, want %q", i, op.NodeIDs[i], id)
		}
		if op.Index[id] != i {
			t.Errorf("Index[%q] = %d, want %d", id, op.Index[id], i)
		}
	}
}

// Conductors are sorted by (min(i,j), max(i,j), kind): C_BA touches (A,B),
// the two A-C conductors touch (A,C) and sort Linear before Radiation by
// ConductorKind's declared iota order (Linear=0, Radiation=2).
func TestBuildOperator_ConductorsSortedByNodePairThenKind(t *testing.T) {
	op, err := BuildOperator(threeNodeModel())
	if err != nil {
		t.Fatalf("BuildOperator: %v", err)
	}
	if len(op.Conductors) != 3 {
		t.Fatalf("conductor count = %d, want 3", len(op.Conductors))
	}
	if op.Conductors[0].SourceID != "C_BA" {
		t.Errorf("first conductor = %q, want C_BA (touches the lowest node-index pair)", op.Conductors[0].SourceID)
	}
	a, c := op.Index["A"], op.Index["C"]
	for _, rec := range op.Conductors[1:] {
		lo, hi := minmax(rec.I, rec.J)
		wantLo, wantHi := minmax(a, c)
		if lo != wantLo || hi != wantHi {
			t.Errorf("conductor %q touches (%d,%d), want (%d,%d)", rec.SourceID, lo, hi, wantLo, wantHi)
		}
	}
	if op.Conductors[1].Kind != Linear || op.Conductors[2].Kind != Radiation {
		t.Errorf("A-C conductors not sorted by kind: got %v, %v", op.Conductors[1].Kind, op.Conductors[2].Kind)
	}
}

// Conductors are bucketed by kind for the branch-free residual loop.
func TestBuildOperator_BucketsConductorsByKind(t *testing.T) {
	op, err := BuildOperator(threeNodeModel())
	if err != nil {
		t.Fatalf("BuildOperator: %v", err)
	}
	if len(op.LinearConductors) != 2 {
		t.Errorf("linear bucket size = %d, want 2", len(op.LinearConductors))
	}
	if len(op.RadiationConductors) != 1 {
		t.Errorf("radiation bucket size = %d, want 1", len(op.RadiationConductors))
	}
	if len(op.HeatPipeConductors) != 0 {
		t.Errorf("heat pipe bucket size = %d, want 0", len(op.HeatPipeConductors))
	}
}

// The sparsity pattern always includes every diagonal entry plus one entry
// per distinct node pair touched by a conductor, with no duplicates even
// when two conductors share the same pair.
func TestBuildOperator_SparsityPatternHasNoDuplicatePairs(t *testing.T) {
	op, err := BuildOperator(threeNodeModel())
	if err != nil {
		t.Fatalf("BuildOperator: %v", err)
	}
	seen := make(map[EdgePair]int)
	for _, p := range op.Sparsity {
		seen[p]++
	}
	for p, n := range seen {
		if n != 1 {
			t.Errorf("pair %v appears %d times in Sparsity, want 1", p, n)
		}
	}
	for i := 0; i < op.N; i++ {
		if seen[EdgePair{i, i}] != 1 {
			t.Errorf("missing diagonal entry for node index %d", i)
		}
	}
	a, c := op.Index["A"], op.Index["C"]
	lo, hi := minmax(a, c)
	if seen[EdgePair{lo, hi}] != 1 {
		t.Errorf("expected exactly one off-diagonal sparsity entry for the A-C pair, got %d", seen[EdgePair{lo, hi}])
	}
}

// HeatLoadsByNode indexes loads by their node's operator index, not by id.
func TestBuildOperator_HeatLoadsByNode(t *testing.T) {
	op, err := BuildOperator(threeNodeModel())
	if err != nil {
		t.Fatalf("BuildOperator: %v", err)
	}
	bIdx := op.Index["B"]
	loads := op.HeatLoadsByNode[bIdx]
	if len(loads) != 1 || loads[0].ID != "heater" {
		t.Fatalf("HeatLoadsByNode[%d] = %+v, want one load named heater", bIdx, loads)
	}
	aIdx := op.Index["A"]
	if len(op.HeatLoadsByNode[aIdx]) != 0 {
		t.Errorf("expected no heat loads on node A")
	}
}

// Boundary nodes are fixed at their declared temperature; diffusion nodes
// carry their declared capacitance and are not fixed.
func TestBuildOperator_BoundaryNodesAreFixed(t *testing.T) {
	op, err := BuildOperator(threeNodeModel())
	if err != nil {
		t.Fatalf("BuildOperator: %v", err)
	}
	cIdx := op.Index["C"]
	if !op.FixedMask[cIdx] || op.FixedTemp[cIdx] != 250 {
		t.Errorf("node C: FixedMask=%v FixedTemp=%v, want fixed at 250", op.FixedMask[cIdx], op.FixedTemp[cIdx])
	}
	aIdx := op.Index["A"]
	if op.FixedMask[aIdx] || op.C[aIdx] != 5 {
		t.Errorf("node A: FixedMask=%v C=%v, want free with capacitance 5", op.FixedMask[aIdx], op.C[aIdx])
	}
}
