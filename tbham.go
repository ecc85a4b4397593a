// Package tbham builds tight-binding Hamiltonians of lattice systems and applies potentials and gauge fields to them.
//
// A Hamiltonian is made of Nx slices of Ny sites each, stacked along x.
// Transformations never modify their receiver, they return a new Hamiltonian that shares the unchanged parts.
package tbham

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/fumin/tbham/mat"
)

const (
	// Hbar is the reduced Planck constant in eV·s.
	Hbar = 6.582119569e-16
	// HbarSI is the reduced Planck constant in J·s.
	HbarSI = 1.0545718e-34
	// ElectronMass in kg.
	ElectronMass = 9.10938e-31
	// JouleToEV converts J to eV.
	JouleToEV = 1 / 1.602176634e-19
)

// Lattice is the geometry a Hamiltonian was built on.
type Lattice int

const (
	External Lattice = iota
	Square
	Zigzag
	Armchair
)

func (l Lattice) String() string {
	switch l {
	case External:
		return "external"
	case Square:
		return "square"
	case Zigzag:
		return "zigzag"
	case Armchair:
		return "armchair"
	default:
		return fmt.Sprintf("Lattice(%d)", int(l))
	}
}

// ParseLattice parses the names returned by Lattice.String.
func ParseLattice(s string) (Lattice, error) {
	for _, l := range []Lattice{External, Square, Zigzag, Armchair} {
		if l.String() == s {
			return l, nil
		}
	}
	return -1, errors.Errorf("unknown lattice %q", s)
}

// Coord is a site position in Angstrom.
type Coord struct {
	X float64
	Y float64
}

// Params are the material parameters of a lattice.
type Params struct {
	// Hopping is the hopping energy in eV of each neighbour shell, nearest neighbours first.
	Hopping []float64
	// OnSite is the on-site energy in eV.
	OnSite float64
	// LatticeConst is the nearest neighbour distance in Angstrom.
	LatticeConst float64
}

// GrapheneParams are nearest neighbour parameters of graphene.
func GrapheneParams() Params {
	return Params{Hopping: []float64{2.7}, LatticeConst: 1.42}
}

// EffectiveMassParams discretizes a free electron of effective mass m, in units of the electron mass, on a square grid of spacing a Angstrom.
func EffectiveMassParams(m, a float64) Params {
	aSI := a * 1e-10
	t := HbarSI * HbarSI / (2 * m * ElectronMass * aSI * aSI) * JouleToEV
	return Params{Hopping: []float64{t}, OnSite: 4 * t, LatticeConst: a}
}

// ChainParams are unit spaced sites with hopping t and zero on-site energy.
func ChainParams(t float64) Params {
	return Params{Hopping: []float64{t}, LatticeConst: 1}
}

func (p Params) t() float64 {
	if len(p.Hopping) == 0 {
		return 0
	}
	return p.Hopping[0]
}

func (p Params) validate() error {
	if len(p.Hopping) == 0 {
		return errors.Errorf("no hopping")
	}
	if !(p.LatticeConst > 0) {
		return errors.Errorf("lattice constant %f", p.LatticeConst)
	}
	return nil
}

// Hamiltonian is a tight-binding Hamiltonian and the coordinates of its sites.
type Hamiltonian struct {
	M      *mat.COO
	Coords []Coord
	Nx     int
	Ny     int
	// Period is the distance between neighbouring slices along x.
	Period  float64
	Lattice Lattice
	Params  Params
}

// NewHamiltonian wraps a matrix and the coordinates of its sites into a single slice Hamiltonian.
func NewHamiltonian(m *mat.COO, coords []Coord) (*Hamiltonian, error) {
	if m.Rows() != m.Cols() {
		return nil, errors.Errorf("not square %d %d", m.Rows(), m.Cols())
	}
	if m.Rows() != len(coords) {
		return nil, errors.Errorf("%d sites, %d coordinates", m.Rows(), len(coords))
	}
	h := &Hamiltonian{M: m, Coords: coords, Nx: 1, Ny: len(coords), Lattice: External}
	return h, nil
}

// NewFromHoppings wraps a main cell matrix, for example one derived from Wannier90 hoppings, made of nx slices.
func NewFromHoppings(m *mat.COO, coords []Coord, nx int) (*Hamiltonian, error) {
	if nx < 1 {
		return nil, errors.Errorf("nx %d", nx)
	}
	h, err := NewHamiltonian(m, coords)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	h.Nx = nx
	h.Ny = (m.Rows() + nx - 1) / nx
	if nx > 1 && len(coords) > h.Ny {
		h.Period = coords[h.Ny].X - coords[0].X
	}
	return h, nil
}

// N returns the number of sites.
func (h *Hamiltonian) N() int { return h.M.Rows() }

// withMatrix returns a shallow copy of h holding m.
func (h *Hamiltonian) withMatrix(m *mat.COO) *Hamiltonian {
	c := *h
	c.M = m
	return &c
}

// IsHermitian reports whether the matrix is Hermitian within tol.
func (h *Hamiltonian) IsHermitian(tol float64) bool {
	return h.M.IsHermitian(tol)
}

// slice returns the diagonal block of slice i and the coupling block from slice i to slice i+1.
func (h *Hamiltonian) slice(i int) (*mat.COO, *mat.COO, error) {
	if i < 0 || i >= h.Nx || h.Nx*h.Ny != h.N() {
		return nil, nil, errors.Errorf("slice %d of %dx%d, %d sites", i, h.Nx, h.Ny, h.N())
	}
	ny := h.Ny
	m0 := h.M.Slice([2]int{i * ny, (i + 1) * ny}, [2]int{i * ny, (i + 1) * ny})
	if h.Nx == 1 {
		return m0, nil, nil
	}
	j := (i + 1) % h.Nx
	mI := h.M.Slice([2]int{i * ny, (i + 1) * ny}, [2]int{j * ny, (j + 1) * ny})
	return m0, mI, nil
}

func distance(a, b Coord) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}
