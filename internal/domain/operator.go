package domain

import "sort"

// ConductorRecord is the operator's flattened, index-based view of one
// Conductor: node indices instead of ids, plus whatever coefficient data its
// kind needs. Kept in the same struct (rather than one struct per kind) so
// the residual/Jacobian assembly loop can switch on Kind without a type
// assertion (spec.md §9 "avoid runtime dispatch inside tight loops").
type ConductorRecord struct {
	SourceID string
	I, J     int
	Kind     ConductorKind

	G             float64
	RadArea       float64
	ViewFactor    float64
	EpsEff        float64
	HeatPipeTable []HeatPipePoint
}

// EdgePair is an unordered (i,j) pair in the Jacobian's symbolic sparsity
// pattern.
type EdgePair struct {
	I, J int
}

// Operator is the numerical form of a Model: a dense node index map, per-node
// property vectors, a flattened conductor list bucketed by kind, and the
// Jacobian's symbolic sparsity pattern. Built once per run and never mutated
// (spec.md §3 "the operator is built once at run start").
type Operator struct {
	Model *Model

	NodeIDs []string       // index -> id, in discovery (declaration) order
	Index   map[string]int // id -> index

	Kind      []NodeKind
	C         []float64 // capacitance, J/K (0 for non-diffusion rows)
	Alpha     []float64
	Epsilon   []float64
	Area      []float64
	FixedMask []bool
	FixedTemp []float64

	// Conductors is ordered by (min(i,j), max(i,j), kind) per spec.md §4.1.
	// Duplicate conductors between the same pair of nodes are preserved
	// (parallel physical paths).
	Conductors []ConductorRecord

	// Conductors bucketed by kind, in the same relative order as Conductors,
	// so the residual/Jacobian loop can walk each bucket without branching
	// per-edge on Kind.
	LinearConductors    []int // indices into Conductors
	RadiationConductors []int
	HeatPipeConductors  []int

	// Sparsity is the symbolic (i,j) pattern of the Jacobian: every pair
	// touched by a conductor (i != j) plus every diagonal entry.
	Sparsity []EdgePair

	// HeatLoadsByNode maps a node index to the heat loads attached to it.
	HeatLoadsByNode map[int][]HeatLoad

	N int
}

// BuildOperator flattens a validated Model into its numerical Operator form.
// The caller must have already called Model.Validate(); BuildOperator
// re-validates defensively and returns InvalidModel on any violation.
func BuildOperator(m *Model) (*Operator, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	op := &Operator{
		Model:           m,
		Index:           make(map[string]int, len(m.Nodes)),
		HeatLoadsByNode: make(map[int][]HeatLoad),
	}

	for i, n := range m.Nodes {
		op.NodeIDs = append(op.NodeIDs, n.ID)
		op.Index[n.ID] = i
		op.Kind = append(op.Kind, n.Kind)
		op.Area = append(op.Area, n.Area)
		op.Alpha = append(op.Alpha, n.Alpha)
		op.Epsilon = append(op.Epsilon, n.Epsilon)

		switch n.Kind {
		case Diffusion:
			op.C = append(op.C, n.Capacitance)
			op.FixedMask = append(op.FixedMask, false)
			op.FixedTemp = append(op.FixedTemp, 0)
		case Arithmetic:
			op.C = append(op.C, 0)
			op.FixedMask = append(op.FixedMask, false)
			op.FixedTemp = append(op.FixedTemp, 0)
		case Boundary:
			op.C = append(op.C, 0)
			op.FixedMask = append(op.FixedMask, true)
			op.FixedTemp = append(op.FixedTemp, n.BoundaryTemperature)
		}
	}
	op.N = len(op.NodeIDs)

	records := make([]ConductorRecord, 0, len(m.Conductors))
	for _, c := range m.Conductors {
		i, j := op.Index[c.FromNode], op.Index[c.ToNode]
		records = append(records, ConductorRecord{
			SourceID:      c.ID,
			I:             i,
			J:             j,
			Kind:          c.Kind,
			G:             c.G,
			RadArea:       c.RadArea,
			ViewFactor:    c.ViewFactor,
			EpsEff:        c.EpsEff,
			HeatPipeTable: c.HeatPipeTable,
		})
	}

	sort.SliceStable(records, func(a, b int) bool {
		amin, amax := minmax(records[a].I, records[a].J)
		bmin, bmax := minmax(records[b].I, records[b].J)
		if amin != bmin {
			return amin < bmin
		}
		if amax != bmax {
			return amax < bmax
		}
		return records[a].Kind < records[b].Kind
	})
	op.Conductors = records

	sparsitySeen := make(map[EdgePair]bool)
	for idx, rec := range op.Conductors {
		switch rec.Kind {
		case Linear, Contact:
			op.LinearConductors = append(op.LinearConductors, idx)
		case Radiation:
			op.RadiationConductors = append(op.RadiationConductors, idx)
		case HeatPipe:
			op.HeatPipeConductors = append(op.HeatPipeConductors, idx)
		}
		lo, hi := minmax(rec.I, rec.J)
		sparsitySeen[EdgePair{lo, hi}] = true
	}

	op.Sparsity = make([]EdgePair, 0, len(sparsitySeen)+op.N)
	for i := 0; i < op.N; i++ {
		op.Sparsity = append(op.Sparsity, EdgePair{i, i})
	}
	pairs := make([]EdgePair, 0, len(sparsitySeen))
	for p := range sparsitySeen {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(a, b int) bool {
		if pairs[a].I != pairs[b].I {
			return pairs[a].I < pairs[b].I
		}
		return pairs[a].J < pairs[b].J
	})
	op.Sparsity = append(op.Sparsity, pairs...)

	for _, hl := range m.HeatLoads {
		idx := op.Index[hl.NodeID]
		op.HeatLoadsByNode[idx] = append(op.HeatLoadsByNode[idx], hl)
	}

	return op, nil
}

func minmax(a, b int) (int, int) {
	if a < b {
		return a, b
	}
	return b, a
}
