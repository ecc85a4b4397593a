package eigen

import (
	"cmp"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/cmplxs"
	gmat "gonum.org/v1/gonum/mat"

	"github.com/fumin/tbham/mat"
)

// EigsOptions are options for the shift-invert Lanczos eigensolver.
type EigsOptions struct {
	tol    float64
	maxDim int
	seed   uint64
}

// NewEigsOptions returns the default Eigs options.
func NewEigsOptions() EigsOptions {
	opt := EigsOptions{}
	opt.tol = 1e-10
	opt.seed = 1
	return opt
}

// Tol sets the relative residual tolerance of the Ritz pairs of the inverted operator.
func (opt EigsOptions) Tol(tol float64) EigsOptions {
	opt.tol = tol
	return opt
}

// MaxDim caps the Krylov subspace dimension, which otherwise may grow up to the matrix size.
func (opt EigsOptions) MaxDim(d int) EigsOptions {
	opt.maxDim = d
	return opt
}

// Seed sets the seed of the random starting vector.
func (opt EigsOptions) Seed(seed uint64) EigsOptions {
	opt.seed = seed
	return opt
}

// Eigs returns k eigenpairs of the Hermitian matrix m with eigenvalues nearest sigma, nearest first.
// It runs Lanczos with full reorthogonalization on the shift-inverted operator (m - sigma)^-1.
//
// A single Krylov space holds one copy of each eigenvalue, so converged pairs are locked and Lanczos is restarted
// in their orthogonal complement until a restart finds nothing nearer sigma than the current k-th pair.
func Eigs(m *mat.COO, k int, sigma float64, options ...EigsOptions) ([]ValVec, error) {
	opt := NewEigsOptions()
	if len(options) > 0 {
		opt = options[0]
	}
	if err := checkHermitian(m); err != nil {
		return nil, errors.Wrap(err, "")
	}
	n := m.Rows()
	if k < 1 || k > n {
		return nil, errors.Errorf("k %d out of range for %dx%d", k, n, n)
	}
	maxDim := opt.maxDim
	if maxDim <= 0 || maxDim > n {
		maxDim = n
	}
	if maxDim < k {
		return nil, errors.Errorf("max dimension %d smaller than k %d", maxDim, k)
	}

	inv, shift, err := newShiftInvert(m, sigma)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("%f", sigma))
	}

	dist := func(vv ValVec) float64 { return math.Abs(real(vv.Val) - sigma) }
	nearest := func(a, b ValVec) int { return cmp.Compare(dist(a), dist(b)) }
	rnd := rand.New(rand.NewPCG(opt.seed, opt.seed))
	locked := make([]ValVec, 0, k)
	for len(locked) < n {
		free := n - len(locked)
		vvs, err := lanczos(inv, rnd, locked, min(k, free), min(maxDim, free), opt.tol)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("k %d sigma %f locked %d", k, sigma, len(locked)))
		}
		for i := range vvs {
			vvs[i].Val = complex(shift+1/real(vvs[i].Val), 0)
		}
		slices.SortStableFunc(vvs, nearest)

		if len(locked) >= k {
			kth := dist(locked[k-1])
			if dist(vvs[0]) >= kth-1e-9*max(1, kth) {
				break
			}
		}
		locked = append(locked, vvs...)
		slices.SortStableFunc(locked, nearest)
	}
	return locked[:k], nil
}

// lanczos returns the k Ritz pairs of inv of largest magnitude in the orthogonal complement of locked.
func lanczos(inv *shiftInvert, rnd *rand.Rand, locked []ValVec, k, maxDim int, tol float64) ([]ValVec, error) {
	n := inv.lu.Rows()
	deflated := make([][]complex128, 0, len(locked))
	for _, vv := range locked {
		deflated = append(deflated, vv.Vec)
	}
	orthogonalize := func(v []complex128, basis [][]complex128) {
		// Twice is enough.
		for range 2 {
			project(v, deflated)
			project(v, basis)
		}
	}
	newStart := func(basis [][]complex128) []complex128 {
		v := make([]complex128, n)
		for {
			for i := range v {
				v[i] = complex(rnd.NormFloat64(), rnd.NormFloat64())
			}
			orthogonalize(v, basis)
			if nrm := cmplxs.Norm(v, 2); nrm > 1e-8 {
				cmplxs.Scale(complex(1/nrm, 0), v)
				return v
			}
		}
	}

	basis := make([][]complex128, 0, maxDim)
	alpha := make([]float64, 0, maxDim)
	beta := make([]float64, 0, maxDim)
	basis = append(basis, newStart(basis))
	for {
		j := len(basis) - 1
		w := make([]complex128, n)
		inv.apply(w, basis[j])
		a := real(cmplxs.Dot(basis[j], w))
		alpha = append(alpha, a)
		cmplxs.AddScaled(w, complex(-a, 0), basis[j])
		if j > 0 {
			cmplxs.AddScaled(w, complex(-beta[j-1], 0), basis[j-1])
		}
		orthogonalize(w, basis)
		b := cmplxs.Norm(w, 2)
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return nil, errors.Errorf("lanczos breakdown %d %f", j, b)
		}

		dim := len(basis)
		breakdown := b <= 1e-13*max(1, math.Abs(a))
		if dim >= k && (dim >= min(maxDim, 2*k) || breakdown) {
			res := b
			if breakdown {
				res = 0
			}
			if vvs, ok := ritzPairs(basis, alpha, beta, res, k, tol); ok {
				return vvs, nil
			}
		}
		if dim == maxDim {
			return nil, errors.Wrap(ErrNotConverged, fmt.Sprintf("k %d dim %d", k, dim))
		}

		if breakdown {
			// Invariant subspace, restart from a fresh direction.
			beta = append(beta, 0)
			basis = append(basis, newStart(basis))
			continue
		}
		cmplxs.Scale(complex(1/b, 0), w)
		beta = append(beta, b)
		basis = append(basis, w)
	}
}

// SortedEigs is Eigs with the eigenpairs sorted by ascending real part.
func SortedEigs(m *mat.COO, k int, sigma float64, options ...EigsOptions) ([]ValVec, error) {
	vvs, err := Eigs(m, k, sigma, options...)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	SortByReal(vvs)
	return vvs, nil
}

// ritzPairs returns the k Ritz pairs of largest magnitude of the tridiagonal alpha, beta.
// The Val of the returned pairs are the Ritz values θ of the inverted operator.
func ritzPairs(basis [][]complex128, alpha, beta []float64, res float64, k int, tol float64) ([]ValVec, bool) {
	dim := len(alpha)
	t := gmat.NewSymDense(dim, nil)
	for i, a := range alpha {
		t.SetSym(i, i, a)
		if i+1 < dim {
			t.SetSym(i, i+1, beta[i])
		}
	}
	var es gmat.EigenSym
	if ok := es.Factorize(t, true); !ok {
		return nil, false
	}
	thetas := es.Values(nil)
	var s gmat.Dense
	es.VectorsTo(&s)

	idx := make([]int, dim)
	for i := range idx {
		idx[i] = i
	}
	slices.SortFunc(idx, func(a, b int) int { return cmp.Compare(math.Abs(thetas[b]), math.Abs(thetas[a])) })

	n := len(basis[0])
	vvs := make([]ValVec, 0, k)
	for _, c := range idx[:k] {
		theta := thetas[c]
		if theta == 0 || res*math.Abs(s.At(dim-1, c)) > tol*math.Abs(theta) {
			return nil, false
		}

		vec := make([]complex128, n)
		for r, v := range basis {
			cmplxs.AddScaled(vec, complex(s.At(r, c), 0), v)
		}
		cmplxs.Scale(complex(1/cmplxs.Norm(vec, 2), 0), vec)
		vvs = append(vvs, ValVec{Val: complex(theta, 0), Vec: vec})
	}
	return vvs, true
}

const maxCond = 1e12

type shiftInvert struct {
	lu mat.LU
}

// newShiftInvert factorizes m - sigma.
// If sigma is too close to an eigenvalue, the shift is nudged so that the remaining Ritz values are not swamped by rounding.
func newShiftInvert(m *mat.COO, sigma float64) (*shiftInvert, float64, error) {
	inv := &shiftInvert{}
	shift := sigma
	for range 3 {
		shifted := m.Clone()
		shifted.Add(complex(-shift, 0), mat.COOIdentity(m.Rows()))
		err := inv.lu.Factorize(shifted)
		switch {
		case err == nil && inv.lu.Cond() < maxCond:
			return inv, shift, nil
		case err != nil && !errors.Is(err, mat.ErrSingular):
			return nil, math.NaN(), errors.Wrap(err, "")
		}
		shift += 1e-7 * max(1, math.Abs(shift))
	}
	return nil, math.NaN(), errors.Errorf("singular shift %f", sigma)
}

// apply computes dst = (m - shift)^-1 x.
func (inv *shiftInvert) apply(dst, x []complex128) {
	inv.lu.SolveVec(dst, x)
}
