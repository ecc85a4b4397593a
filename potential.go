package tbham

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/fumin/tbham/mat"
)

var (
	ErrUnknownPotential = errors.New("potential must be one of Potential1D, Potential2D, SoftConfinement, SuperLattice")
)

// Potential is an on-site energy in eV as a function of position.
type Potential interface {
	at(c Coord) float64
	twoDimensional() bool
}

// Potential1D depends on the y coordinate only.
type Potential1D func(y float64) float64

func (u Potential1D) at(c Coord) float64   { return u(c.Y) }
func (u Potential1D) twoDimensional() bool { return false }

// Potential2D depends on both coordinates.
type Potential2D func(x, y float64) float64

func (u Potential2D) at(c Coord) float64   { return u(c.X, c.Y) }
func (u Potential2D) twoDimensional() bool { return true }

// SoftConfinement raises the energy by Height outside [Min, Max] along y, with Fermi function walls of width Smoothness.
type SoftConfinement struct {
	Height     float64
	Smoothness float64
	Min        float64
	Max        float64
}

func (u SoftConfinement) at(c Coord) float64 {
	lower := 1 / (1 + math.Exp((c.Y-u.Min)/u.Smoothness))
	upper := 1 / (1 + math.Exp(-(c.Y-u.Max)/u.Smoothness))
	return u.Height * (lower + upper)
}

func (u SoftConfinement) twoDimensional() bool { return true }

// SuperLattice is a cosine modulation of wavelength Period along Direction.
type SuperLattice struct {
	Amplitude float64
	Period    float64
	Phase     float64
	Direction [2]float64
}

func (u SuperLattice) at(c Coord) float64 {
	dx, dy := u.Direction[0], u.Direction[1]
	if n := math.Hypot(dx, dy); n > 0 {
		dx, dy = dx/n, dy/n
	}
	return u.Amplitude * math.Cos(2*math.Pi*(dx*c.X+dy*c.Y)/u.Period+u.Phase)
}

func (u SuperLattice) twoDimensional() bool { return true }

// PotentialOptions are options for ApplyPotential.
type PotentialOptions struct {
	signVariation bool
}

func NewPotentialOptions() PotentialOptions {
	return PotentialOptions{}
}

// SignVariation negates the potential on even indexed sites, which are one sublattice of a graphene ribbon.
// It only applies to two dimensional potentials.
func (opt PotentialOptions) SignVariation(v bool) PotentialOptions {
	opt.signVariation = v
	return opt
}

// PotentialValues evaluates u at every site.
func (h *Hamiltonian) PotentialValues(u Potential, options ...PotentialOptions) ([]float64, error) {
	opt := NewPotentialOptions()
	if len(options) > 0 {
		opt = options[0]
	}
	if u == nil || isNilFunc(u) {
		return nil, errors.Wrap(ErrUnknownPotential, fmt.Sprintf("%T", u))
	}

	vals := make([]float64, 0, len(h.Coords))
	for _, c := range h.Coords {
		vals = append(vals, u.at(c))
	}
	if opt.signVariation && u.twoDimensional() {
		for i := 0; i < len(vals); i += 2 {
			vals[i] = -vals[i]
		}
	}
	return vals, nil
}

// ApplyPotential returns a Hamiltonian with u added to the diagonal.
func (h *Hamiltonian) ApplyPotential(u Potential, options ...PotentialOptions) (*Hamiltonian, error) {
	vals, err := h.PotentialValues(u, options...)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	if len(vals) != h.N() {
		return nil, errors.Errorf("%d coordinates, %d sites", len(vals), h.N())
	}

	d := make([]complex128, 0, len(vals))
	for _, v := range vals {
		d = append(d, complex(v, 0))
	}
	m := h.M.Clone()
	m.Add(1, mat.COODiag(d))
	return h.withMatrix(m), nil
}

func isNilFunc(u Potential) bool {
	switch f := u.(type) {
	case Potential1D:
		return f == nil
	case Potential2D:
		return f == nil
	}
	return false
}
