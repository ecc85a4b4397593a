package tbham

import (
	"github.com/pkg/errors"

	"github.com/fumin/tbham/mat"
)

// MakePeriodicX couples the last slice back to the first with the coupling block between the first two slices.
func (h *Hamiltonian) MakePeriodicX() (*Hamiltonian, error) {
	if h.Nx < 3 {
		return nil, errors.Errorf("periodic x needs at least 3 slices, got %d", h.Nx)
	}
	_, hI, err := h.slice(0)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}

	last := (h.Nx - 1) * h.Ny
	m := h.M.Clone()
	m.SetBlock(last, 0, hI)
	m.SetBlock(0, last, hI.H())
	return h.withMatrix(m), nil
}

// RemovePeriodicX removes the coupling between the last and the first slice.
func (h *Hamiltonian) RemovePeriodicX() (*Hamiltonian, error) {
	if h.Nx < 3 {
		return nil, errors.Errorf("periodic x needs at least 3 slices, got %d", h.Nx)
	}
	if h.Nx*h.Ny != h.N() {
		return nil, errors.Errorf("%dx%d slices, %d sites", h.Nx, h.Ny, h.N())
	}

	last := (h.Nx - 1) * h.Ny
	zeros := mat.COOZeros(h.Ny, h.Ny)
	m := h.M.Clone()
	m.SetBlock(last, 0, zeros)
	m.SetBlock(0, last, zeros)
	return h.withMatrix(m), nil
}

// MakePeriodicY wraps every slice around along y.
// Zigzag ribbons are rebuilt with their width rounded up to a multiple of 4, discarding any applied potential or field.
func (h *Hamiltonian) MakePeriodicY() (*Hamiltonian, error) {
	switch h.Lattice {
	case Square:
		if h.Ny < 3 {
			return nil, errors.Errorf("periodic y needs at least 3 sites, got %d", h.Ny)
		}
		t := complex(-h.Params.t(), 0)
		m := h.M.Clone()
		for i := range h.Nx {
			first, last := i*h.Ny, (i+1)*h.Ny-1
			m.Set(first, last, t)
			m.Set(last, first, t)
		}
		return h.withMatrix(m), nil
	case Zigzag:
		ny := h.Ny
		if r := ny % 4; r != 0 {
			ny += 4 - r
		}
		a := h.Params.LatticeConst
		slice := make([]Coord, 0, ny)
		for j := range ny {
			slice = append(slice, zigzagCoord(a, j))
		}
		periodic, err := newGraphene(h.Params, slice, h.Nx, h.Period, 3*a*float64(ny/4))
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		periodic.Lattice = Zigzag
		return periodic, nil
	default:
		return nil, errors.Errorf("periodic y not supported for %s lattice", h.Lattice)
	}
}
