package tbham

import (
	"math/cmplx"

	"github.com/pkg/errors"
)

const (
	// eOverHbarAngstrom is e/ħ·Å, converting A·Δr with A in V·s/m and Δr in Angstrom to a phase.
	eOverHbarAngstrom = 1.602176487 / 1.0545717 * 1e5
	// eOverHbarAngstrom2 is e/ħ·Å², converting B·area with B in Tesla and area in Angstrom² to a phase.
	eOverHbarAngstrom2 = 1.602176487 / 1.0545717 * 1e-5
)

// Gauge of the vector potential of a uniform magnetic field along z.
type Gauge int

const (
	// LandauX is A = (-B y, 0).
	LandauX Gauge = iota
	// LandauY is A = (0, B x).
	LandauY
)

func (g Gauge) String() string {
	switch g {
	case LandauX:
		return "landau_x"
	case LandauY:
		return "landau_y"
	default:
		return "unknown"
	}
}

// ParseGauge parses the names returned by Gauge.String.
func ParseGauge(s string) (Gauge, error) {
	switch s {
	case LandauX.String():
		return LandauX, nil
	case LandauY.String():
		return LandauY, nil
	}
	return -1, errors.Errorf("unknown gauge %q", s)
}

// ApplyVectorPotential returns a Hamiltonian whose hoppings carry the Peierls phase of the uniform vector potential a.
func (h *Hamiltonian) ApplyVectorPotential(a [2]float64) *Hamiltonian {
	m := h.M.Map(func(i, j int, v complex128) complex128 {
		ri, rj := h.Coords[i], h.Coords[j]
		phase := eOverHbarAngstrom * (a[0]*(rj.X-ri.X) + a[1]*(rj.Y-ri.Y))
		return v * cmplx.Exp(complex(0, phase))
	})
	return h.withMatrix(m)
}

// ApplyMagneticField returns a Hamiltonian threaded by a perpendicular magnetic field b in Tesla.
func (h *Hamiltonian) ApplyMagneticField(b float64, gauge Gauge) (*Hamiltonian, error) {
	var bondPhase func(ri, rj Coord) float64
	switch gauge {
	case LandauX:
		bondPhase = func(ri, rj Coord) float64 { return -0.5 * (rj.X - ri.X) * (ri.Y + rj.Y) }
	case LandauY:
		bondPhase = func(ri, rj Coord) float64 { return 0.5 * (ri.X + rj.X) * (rj.Y - ri.Y) }
	default:
		return nil, errors.Errorf("unknown gauge %d", gauge)
	}

	m := h.M.Map(func(i, j int, v complex128) complex128 {
		phase := eOverHbarAngstrom2 * b * bondPhase(h.Coords[i], h.Coords[j])
		return v * cmplx.Exp(complex(0, phase))
	})
	return h.withMatrix(m), nil
}
