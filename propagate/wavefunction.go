package propagate

import (
	"slices"

	"gonum.org/v1/gonum/cmplxs"

	"github.com/fumin/tbham"
)

// WaveFunction is a state over the sites of a Hamiltonian.
type WaveFunction struct {
	Vec    []complex128
	Coords []tbham.Coord
}

func NewWaveFunction(vec []complex128, coords []tbham.Coord) WaveFunction {
	return WaveFunction{Vec: vec, Coords: coords}
}

func (wf WaveFunction) Norm() float64 {
	return cmplxs.Norm(wf.Vec, 2)
}

// Density returns the probability of each site.
func (wf WaveFunction) Density() []float64 {
	d := make([]float64, 0, len(wf.Vec))
	for _, v := range wf.Vec {
		d = append(d, real(v)*real(v)+imag(v)*imag(v))
	}
	return d
}

// Overlap returns <wf|other>.
func (wf WaveFunction) Overlap(other WaveFunction) complex128 {
	return cmplxs.Dot(wf.Vec, other.Vec)
}

// Clone copies the vector, coordinates are shared.
func (wf WaveFunction) Clone() WaveFunction {
	return WaveFunction{Vec: slices.Clone(wf.Vec), Coords: wf.Coords}
}
