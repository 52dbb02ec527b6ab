package modelstore

import (
	"fmt"

	"github.com/fhs/go-netcdf/netcdf"

	"go.ngs.io/thermosat/internal/adapter/interp"
	"go.ngs.io/thermosat/internal/domain"
)

// NetCDFOverlayProvider wraps a base Provider and resamples a gridded
// coating-property map (alpha and epsilon as a function of panel (u, v)
// position) onto each node's declared PanelU/PanelV, overriding Alpha and
// Epsilon at load time. This supports component-aging studies keyed to a
// measured or modeled property map rather than a single scalar per node.
type NetCDFOverlayProvider struct {
	base       Provider
	alphaGrid  *interp.Grid2D
	epsGrid    *interp.Grid2D
}

// NewNetCDFOverlayProvider loads the alpha/epsilon grids from a NetCDF file
// containing "u", "v", "alpha" and "epsilon" variables, and wraps base so
// LoadModel results have their optical properties resampled onto the grid.
func NewNetCDFOverlayProvider(base Provider, path string) (*NetCDFOverlayProvider, error) {
	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("failed to open coating map %s: %w", path, err)
	}
	defer func() { _ = nc.Close() }()

	uVals, err := read1D(nc, "u")
	if err != nil {
		return nil, err
	}
	vVals, err := read1D(nc, "v")
	if err != nil {
		return nil, err
	}
	alphaVals, err := read2D(nc, "alpha", len(vVals), len(uVals))
	if err != nil {
		return nil, err
	}
	epsVals, err := read2D(nc, "epsilon", len(vVals), len(uVals))
	if err != nil {
		return nil, err
	}

	alphaGrid := &interp.Grid2D{X: uVals, Y: vVals, Values: alphaVals}
	if err := alphaGrid.Validate(); err != nil {
		return nil, fmt.Errorf("invalid alpha grid in %s: %w", path, err)
	}
	epsGrid := &interp.Grid2D{X: uVals, Y: vVals, Values: epsVals}
	if err := epsGrid.Validate(); err != nil {
		return nil, fmt.Errorf("invalid epsilon grid in %s: %w", path, err)
	}

	return &NetCDFOverlayProvider{base: base, alphaGrid: alphaGrid, epsGrid: epsGrid}, nil
}

// LoadModel loads the base model and overrides each node's Alpha/Epsilon
// with the coating map's value at the node's (PanelU, PanelV), leaving nodes
// outside the grid's coverage untouched.
func (p *NetCDFOverlayProvider) LoadModel(id string) (*domain.Model, error) {
	model, err := p.base.LoadModel(id)
	if err != nil {
		return nil, err
	}

	for i := range model.Nodes {
		n := &model.Nodes[i]
		alpha, eps, err := interp.InterpolateBoth(p.alphaGrid, p.epsGrid, n.PanelU, n.PanelV)
		if err != nil {
			continue // node outside grid coverage: keep its declared scalar values
		}
		n.Alpha = alpha
		n.Epsilon = eps
	}

	return model, nil
}

func read1D(nc netcdf.Dataset, name string) ([]float64, error) {
	v, err := nc.Var(name)
	if err != nil {
		return nil, fmt.Errorf("variable %q not found: %w", name, err)
	}
	dims, err := v.Dims()
	if err != nil {
		return nil, fmt.Errorf("failed to get dimensions of %q: %w", name, err)
	}
	if len(dims) != 1 {
		return nil, fmt.Errorf("expected 1D variable %q, got %dD", name, len(dims))
	}
	n, err := dims[0].Len()
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	if err := v.ReadFloat64s(out); err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", name, err)
	}
	return out, nil
}

func read2D(nc netcdf.Dataset, name string, nRows, nCols int) ([][]float64, error) {
	v, err := nc.Var(name)
	if err != nil {
		return nil, fmt.Errorf("variable %q not found: %w", name, err)
	}
	flat := make([]float64, nRows*nCols)
	if err := v.ReadFloat64s(flat); err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", name, err)
	}
	values := make([][]float64, nRows)
	for i := 0; i < nRows; i++ {
		values[i] = flat[i*nCols : (i+1)*nCols]
	}
	return values, nil
}
