package eigen

import (
	"github.com/fumin/tensor"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/cmplxs"

	"github.com/fumin/tbham/mat"
)

// GroundState returns the extremal eigenpair of m found by single precision Arnoldi iteration.
// For Hamiltonians shifted to be negative definite this is the ground state.
// Accuracy is limited to that of complex64, use Eigs when more digits are needed.
func GroundState(m *mat.COO) (ValVec, error) {
	if err := checkHermitian(m); err != nil {
		return ValVec{}, errors.Wrap(err, "")
	}
	n := m.Rows()

	h := tensor.Zeros(n, n)
	for ij, v := range m.NonZero() {
		h.SetAt([]int{ij[0], ij[1]}, complex64(v))
	}

	eigvals, eigvecs := tensor.Zeros(1), tensor.Zeros(1)
	var bufs [7]*tensor.Dense
	for i := range bufs {
		bufs[i] = tensor.Zeros(1)
	}
	if err := tensor.Arnoldi(eigvals, eigvecs, h, 1, bufs); err != nil {
		return ValVec{}, errors.Wrap(err, "")
	}

	var val complex128
	for _, v := range eigvals.All() {
		val = complex128(v)
		break
	}
	vec := make([]complex128, 0, n)
	for _, v := range eigvecs.All() {
		vec = append(vec, complex128(v))
		if len(vec) == n {
			break
		}
	}
	if len(vec) != n {
		return ValVec{}, errors.Errorf("eigenvector length %d, expected %d", len(vec), n)
	}
	nrm := cmplxs.Norm(vec, 2)
	if nrm == 0 {
		return ValVec{}, errors.Errorf("zero eigenvector")
	}
	cmplxs.Scale(complex(1/nrm, 0), vec)

	return ValVec{Val: complex(real(val), 0), Vec: vec}, nil
}
