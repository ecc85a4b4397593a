package tbham

import (
	"math"
	"math/cmplx"

	"github.com/pkg/errors"

	"github.com/fumin/tbham/eigen"
	"github.com/fumin/tbham/mat"
)

// FermiFunction is the occupation of energy x for chemical potential mu and temperature kT, all in eV.
// At kT <= 0 it is a step, half filled at mu.
func FermiFunction(x, mu, kT float64) float64 {
	if kT <= 0 {
		switch {
		case x < mu:
			return 1
		case x > mu:
			return 0
		default:
			return 0.5
		}
	}
	return 1 / (1 + math.Exp((x-mu)/kT))
}

// EigenvalueProblem returns k eigenpairs with eigenvalues nearest sigma.
func (h *Hamiltonian) EigenvalueProblem(k int, sigma float64, options ...eigen.EigsOptions) ([]eigen.ValVec, error) {
	vvs, err := eigen.Eigs(h.M, k, sigma, options...)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return vvs, nil
}

// SortedEigenvalueProblem is EigenvalueProblem sorted by ascending eigenvalue.
func (h *Hamiltonian) SortedEigenvalueProblem(k int, sigma float64, options ...eigen.EigsOptions) ([]eigen.ValVec, error) {
	vvs, err := eigen.SortedEigs(h.M, k, sigma, options...)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return vvs, nil
}

// BlochHamiltonian returns the slice Hamiltonian at wave number k in 1/Angstrom, m0 + e^{ik d} mI + e^{-ik d} mI†.
func (h *Hamiltonian) BlochHamiltonian(k float64) (*mat.COO, error) {
	if h.Nx < 2 {
		return nil, errors.Errorf("bands need at least 2 slices, got %d", h.Nx)
	}
	m0, mI, err := h.slice(0)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	phase := cmplx.Exp(complex(0, k*h.Period))
	bloch := m0.Clone()
	bloch.Add(phase, mI)
	bloch.Add(cmplx.Conj(phase), mI.H())
	return bloch, nil
}

// BandStructure returns the band energies at each wave number in ks, ascending.
// If numBands is positive and smaller than the slice, only the numBands bands nearest sigma are computed.
func (h *Hamiltonian) BandStructure(ks []float64, numBands int, sigma float64) ([][]float64, error) {
	bands := make([][]float64, 0, len(ks))
	for _, k := range ks {
		bloch, err := h.BlochHamiltonian(k)
		if err != nil {
			return nil, errors.Wrap(err, "")
		}

		var vvs []eigen.ValVec
		switch {
		case numBands > 0 && numBands < bloch.Rows():
			vvs, err = eigen.SortedEigs(bloch, numBands, sigma)
		default:
			vvs, err = eigen.Eigen(bloch)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "k %f", k)
		}

		energies := make([]float64, 0, len(vvs))
		for _, vv := range vvs {
			energies = append(energies, real(vv.Val))
		}
		bands = append(bands, energies)
	}
	return bands, nil
}

// ElectronDensity returns the occupation of every site at chemical potential mu and temperature kT.
func (h *Hamiltonian) ElectronDensity(mu, kT float64) ([]float64, error) {
	vvs, err := eigen.Eigen(h.M)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}

	density := make([]float64, h.N())
	for _, vv := range vvs {
		f := FermiFunction(real(vv.Val), mu, kT)
		for i, c := range vv.Vec {
			density[i] += f * (real(c)*real(c) + imag(c)*imag(c))
		}
	}
	return density, nil
}
