// Package eigen solves eigenproblems of Hermitian tight-binding Hamiltonians.
//
// Eigs factorizes the shifted sparse matrix directly.
// Eigen handles a complex Hermitian H = A + iB through the real symmetric embedding
//
//	[ A  -B ]
//	[ B   A ]
//
// whose spectrum is that of H with every eigenvalue doubled.
package eigen

import (
	"cmp"
	"math"
	"slices"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/cmplxs"
	gmat "gonum.org/v1/gonum/mat"

	"github.com/fumin/tbham/mat"
)

const (
	hermitianTol = 1e-9
	clusterTol   = 1e-8
)

var (
	ErrNotHermitian = errors.New("matrix is not Hermitian")
	ErrNotConverged = errors.New("eigenpairs did not converge")
)

// ValVec is an eigenvalue and its normalized eigenvector.
type ValVec struct {
	Val complex128
	Vec []complex128
}

func checkHermitian(m *mat.COO) error {
	if m.Rows() != m.Cols() {
		return errors.Errorf("not square %d %d", m.Rows(), m.Cols())
	}
	if m.Rows() == 0 {
		return errors.Errorf("empty matrix")
	}
	if !m.IsHermitian(hermitianTol) {
		return errors.WithStack(ErrNotHermitian)
	}
	return nil
}

// Eigen returns all eigenpairs of the Hermitian matrix m, sorted by ascending eigenvalue.
func Eigen(m *mat.COO) ([]ValVec, error) {
	if err := checkHermitian(m); err != nil {
		return nil, errors.Wrap(err, "")
	}
	n := m.Rows()

	var es gmat.EigenSym
	if ok := es.Factorize(embedSym(m), true); !ok {
		return nil, errors.Errorf("eigen factorization failed %d", n)
	}
	vals := es.Values(nil)
	var vecs gmat.Dense
	es.VectorsTo(&vecs)

	scale := 1.0
	for _, v := range vals {
		scale = max(scale, math.Abs(v))
	}

	vvs := make([]ValVec, 0, n)
	for start := 0; start < 2*n; {
		// Eigenvalues of the embedding come in pairs, so clusters end on even indices.
		end := start + 2
		for end < 2*n && vals[end]-vals[end-1] <= clusterTol*scale {
			end += 2
		}

		var val float64
		candidates := make([][]complex128, 0, end-start)
		for c := start; c < end; c++ {
			val += vals[c]
			z := make([]complex128, n)
			for i := range z {
				z[i] = complex(vecs.At(i, c), vecs.At(n+i, c))
			}
			candidates = append(candidates, z)
		}
		val /= float64(end - start)

		for _, z := range orthonormalize(candidates, (end-start)/2) {
			vvs = append(vvs, ValVec{Val: complex(val, 0), Vec: z})
		}
		start = end
	}

	return vvs, nil
}

// orthonormalize picks num orthonormal vectors from the complex span of candidates.
// At each step the candidate with the largest component outside the accepted span is taken.
func orthonormalize(candidates [][]complex128, num int) [][]complex128 {
	accepted := make([][]complex128, 0, num)
	residual := make([]complex128, len(candidates[0]))
	for len(accepted) < num {
		best, bestNorm := -1, -1.0
		for i, z := range candidates {
			copy(residual, z)
			project(residual, accepted)
			if nrm := cmplxs.Norm(residual, 2); nrm > bestNorm {
				best, bestNorm = i, nrm
			}
		}

		u := slices.Clone(candidates[best])
		project(u, accepted)
		project(u, accepted)
		cmplxs.Scale(complex(1/cmplxs.Norm(u, 2), 0), u)
		accepted = append(accepted, u)
		candidates = slices.Delete(candidates, best, best+1)
	}
	return accepted
}

// project removes from v its components along the orthonormal vectors us.
func project(v []complex128, us [][]complex128) {
	for _, u := range us {
		cmplxs.AddScaled(v, -cmplxs.Dot(u, v), u)
	}
}

// SortByReal sorts vvs by ascending real part of the eigenvalues, keeping vectors paired.
func SortByReal(vvs []ValVec) {
	slices.SortStableFunc(vvs, func(a, b ValVec) int { return cmp.Compare(real(a.Val), real(b.Val)) })
}

// Residual returns |m v - λ v|.
func Residual(m *mat.COO, vv ValVec) float64 {
	mv := make([]complex128, len(vv.Vec))
	m.MulVec(mv, vv.Vec)
	for i, v := range vv.Vec {
		mv[i] -= vv.Val * v
	}
	return cmplxs.Norm(mv, 2)
}

func embedSym(m *mat.COO) *gmat.SymDense {
	n := m.Rows()
	s := gmat.NewSymDense(2*n, nil)
	for ij, v := range m.NonZero() {
		i, j := ij[0], ij[1]
		if i > j {
			continue
		}
		s.SetSym(i, j, real(v))
		s.SetSym(n+i, n+j, real(v))
		s.SetSym(i, n+j, -imag(v))
		s.SetSym(j, n+i, imag(v))
	}
	return s
}
