// Package interp provides bilinear interpolation over regular 2D grids, used
// by the NetCDF-backed model provider to resample gridded surface-property
// maps (coating alpha/epsilon as a function of panel position) onto a
// node's declared (u, v) panel coordinate.
package interp

import (
	"fmt"
	"math"
)

// GridCell is a single rectangular cell with values at its four corners.
type GridCell struct {
	X0, X1 float64
	Y0, Y1 float64

	// V00 is the value at (X0,Y0); V10 at (X1,Y0); V01 at (X0,Y1); V11 at (X1,Y1).
	V00, V10, V01, V11 float64
}

// BilinearInterpolate interpolates within a single grid cell:
//
//	f(x,y) ≈ (1-t)(1-u)V00 + t(1-u)V10 + (1-t)u*V01 + tu*V11
func BilinearInterpolate(cell GridCell, x, y float64) (float64, error) {
	if cell.X1 <= cell.X0 {
		return 0, fmt.Errorf("invalid grid cell: X1 must be > X0")
	}
	if cell.Y1 <= cell.Y0 {
		return 0, fmt.Errorf("invalid grid cell: Y1 must be > Y0")
	}

	const epsilon = 1e-9
	if x < cell.X0-epsilon || x > cell.X1+epsilon {
		return 0, fmt.Errorf("x coordinate %.6f is outside grid cell [%.6f, %.6f]", x, cell.X0, cell.X1)
	}
	if y < cell.Y0-epsilon || y > cell.Y1+epsilon {
		return 0, fmt.Errorf("y coordinate %.6f is outside grid cell [%.6f, %.6f]", y, cell.Y0, cell.Y1)
	}

	t := (x - cell.X0) / (cell.X1 - cell.X0)
	u := (y - cell.Y0) / (cell.Y1 - cell.Y0)
	t = math.Max(0, math.Min(1, t))
	u = math.Max(0, math.Min(1, u))

	return (1-t)*(1-u)*cell.V00 +
		t*(1-u)*cell.V10 +
		(1-t)*u*cell.V01 +
		t*u*cell.V11, nil
}

// Grid2D is a regular 2D grid of scalar values, e.g. a coating property map
// indexed by panel (u, v) coordinates.
type Grid2D struct {
	X      []float64   // strictly increasing
	Y      []float64   // strictly increasing
	Values [][]float64 // Values[i][j] corresponds to (X[j], Y[i])
}

// Validate checks the grid's internal consistency.
func (g *Grid2D) Validate() error {
	if len(g.X) < 2 {
		return fmt.Errorf("grid must have at least 2 X coordinates")
	}
	if len(g.Y) < 2 {
		return fmt.Errorf("grid must have at least 2 Y coordinates")
	}
	if len(g.Values) != len(g.Y) {
		return fmt.Errorf("number of value rows (%d) must match Y coordinates (%d)", len(g.Values), len(g.Y))
	}
	for i, row := range g.Values {
		if len(row) != len(g.X) {
			return fmt.Errorf("row %d has %d values, expected %d", i, len(row), len(g.X))
		}
	}
	for i := 1; i < len(g.X); i++ {
		if g.X[i] <= g.X[i-1] {
			return fmt.Errorf("X coordinates must be strictly increasing")
		}
	}
	for i := 1; i < len(g.Y); i++ {
		if g.Y[i] <= g.Y[i-1] {
			return fmt.Errorf("Y coordinates must be strictly increasing")
		}
	}
	return nil
}

// InterpolateAt returns the bilinearly-interpolated value at (x, y).
func (g *Grid2D) InterpolateAt(x, y float64) (float64, error) {
	if err := g.Validate(); err != nil {
		return 0, fmt.Errorf("invalid grid: %w", err)
	}

	xIdx := -1
	for i := 0; i < len(g.X)-1; i++ {
		if x >= g.X[i] && x <= g.X[i+1] {
			xIdx = i
			break
		}
	}
	if xIdx == -1 {
		return 0, fmt.Errorf("x coordinate %.6f is outside grid range [%.6f, %.6f]", x, g.X[0], g.X[len(g.X)-1])
	}

	yIdx := -1
	for i := 0; i < len(g.Y)-1; i++ {
		if y >= g.Y[i] && y <= g.Y[i+1] {
			yIdx = i
			break
		}
	}
	if yIdx == -1 {
		return 0, fmt.Errorf("y coordinate %.6f is outside grid range [%.6f, %.6f]", y, g.Y[0], g.Y[len(g.Y)-1])
	}

	cell := GridCell{
		X0:  g.X[xIdx],
		X1:  g.X[xIdx+1],
		Y0:  g.Y[yIdx],
		Y1:  g.Y[yIdx+1],
		V00: g.Values[yIdx][xIdx],
		V10: g.Values[yIdx][xIdx+1],
		V01: g.Values[yIdx+1][xIdx],
		V11: g.Values[yIdx+1][xIdx+1],
	}
	return BilinearInterpolate(cell, x, y)
}

// InterpolateBoth interpolates two co-registered grids (e.g. alpha and
// epsilon maps) at the same point.
func InterpolateBoth(grid1, grid2 *Grid2D, x, y float64) (float64, float64, error) {
	if len(grid1.X) != len(grid2.X) || len(grid1.Y) != len(grid2.Y) {
		return 0, 0, fmt.Errorf("grids must have the same dimensions")
	}
	val1, err := grid1.InterpolateAt(x, y)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to interpolate grid1: %w", err)
	}
	val2, err := grid2.InterpolateAt(x, y)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to interpolate grid2: %w", err)
	}
	return val1, val2, nil
}
