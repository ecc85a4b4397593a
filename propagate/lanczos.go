// Package propagate evolves wavefunctions in time with the short iterative Lanczos method.
//
// References:
//   - Unitary quantum time evolution by iterative Lanczos reduction, Tae Jun Park and J. C. Light
//   - Expokit: a software package for computing matrix exponentials, Roger B. Sidje
package propagate

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/cmplxs"
	gmat "gonum.org/v1/gonum/mat"

	"github.com/fumin/tbham"
)

const (
	breakdownTol = 1e-12
	// shrinkRatio is how far below the tolerance the error must be for TSC to shrink the subspace.
	shrinkRatio = 1e-3
)

var (
	ErrDegenerateBasis = errors.New("degenerate Krylov basis")
	ErrTolerance       = errors.New("truncation error above tolerance")
)

// Operator is a Hermitian matrix in eV.
type Operator interface {
	Rows() int
	MulVec(dst, x []complex128)
}

// Regime is the quantity adapted between steps.
type Regime int

const (
	// SIL keeps the subspace size and adapts the time step.
	SIL Regime = iota
	// TSC keeps the time step and adapts the subspace size.
	TSC
)

func (r Regime) String() string {
	switch r {
	case SIL:
		return "SIL"
	case TSC:
		return "TSC"
	default:
		return fmt.Sprintf("Regime(%d)", int(r))
	}
}

func ParseRegime(s string) (Regime, error) {
	switch s {
	case SIL.String():
		return SIL, nil
	case TSC.String():
		return TSC, nil
	}
	return -1, errors.Errorf("unknown regime %q", s)
}

type Options struct {
	regime      Regime
	tol         float64
	maxSubspace int
	minSubspace int
	maxRetries  int
}

func NewOptions() Options {
	opt := Options{}
	opt.regime = SIL
	opt.tol = 1e-10
	opt.maxSubspace = 40
	opt.minSubspace = 2
	opt.maxRetries = 10
	return opt
}

func (opt Options) Regime(r Regime) Options {
	opt.regime = r
	return opt
}

// Tol is the local truncation error allowed per step.
func (opt Options) Tol(tol float64) Options {
	opt.tol = tol
	return opt
}

// MaxSubspace caps the subspace size in the TSC regime.
func (opt Options) MaxSubspace(n int) Options {
	opt.maxSubspace = n
	return opt
}

// MaxRetries caps the number of rejected steps in the SIL regime.
func (opt Options) MaxRetries(n int) Options {
	opt.maxRetries = n
	return opt
}

// Step is the result of one propagation step.
type Step struct {
	WF WaveFunction
	// Dt is the time step taken in seconds, which may be smaller than requested.
	Dt float64
	// NK is the subspace size used.
	NK int
	// DtNext and NKNext are the suggested parameters for the next step.
	DtNext float64
	NKNext int
	// Err is the estimated local truncation error.
	Err float64
	// Breakdown reports that the subspace was invariant, making the step exact.
	Breakdown bool
}

// Propagate advances wf by dt seconds under h using a Krylov subspace of at most nk vectors.
func Propagate(wf WaveFunction, h Operator, nk int, dt float64, options ...Options) (Step, error) {
	opt := NewOptions()
	if len(options) > 0 {
		opt = options[0]
	}
	n := h.Rows()
	if len(wf.Vec) != n {
		return Step{}, errors.Errorf("wavefunction %d, hamiltonian %d", len(wf.Vec), n)
	}
	if nk < 1 {
		return Step{}, errors.Errorf("subspace size %d", nk)
	}
	if !(dt > 0) || math.IsInf(dt, 1) {
		return Step{}, errors.Errorf("time step %g", dt)
	}
	nk = min(nk, n)

	kr, err := newKrylov(wf.Vec, h, nk)
	if err != nil {
		return Step{}, errors.Wrap(err, "")
	}

	switch opt.regime {
	case SIL:
		for retry := 0; ; retry++ {
			vec, e := kr.exp(dt)
			factor := 2.0
			if e > 0 {
				factor = min(max(0.9*math.Pow(opt.tol/e, 1/float64(kr.dim())), 0.2), 2)
			}
			if e <= opt.tol {
				s := Step{Dt: dt, NK: nk, DtNext: dt * factor, NKNext: nk, Err: e, Breakdown: kr.breakdown}
				s.WF = WaveFunction{Vec: vec, Coords: wf.Coords}
				return s, nil
			}
			if retry >= opt.maxRetries {
				return Step{}, errors.Wrap(ErrTolerance, fmt.Sprintf("dt %g err %g tol %g", dt, e, opt.tol))
			}
			dt *= factor
		}
	case TSC:
		for {
			vec, e := kr.exp(dt)
			if e > opt.tol {
				if grown := min(nk+2, opt.maxSubspace, n); grown > nk {
					nk = grown
					if kr, err = newKrylov(wf.Vec, h, nk); err != nil {
						return Step{}, errors.Wrap(err, "")
					}
					continue
				}
				return Step{}, errors.Wrap(ErrTolerance, fmt.Sprintf("nk %d err %g tol %g", nk, e, opt.tol))
			}

			nkNext := nk
			if e < opt.tol*shrinkRatio && nk > opt.minSubspace {
				nkNext = nk - 1
			}
			s := Step{Dt: dt, NK: nk, DtNext: dt, NKNext: nkNext, Err: e, Breakdown: kr.breakdown}
			s.WF = WaveFunction{Vec: vec, Coords: wf.Coords}
			return s, nil
		}
	default:
		return Step{}, errors.Errorf("unknown regime %d", opt.regime)
	}
}

// krylov is the Lanczos decomposition H Q = Q T + beta e_m^T of a start vector.
type krylov struct {
	norm      float64
	basis     [][]complex128
	alpha     []float64
	beta      []float64
	residual  float64
	breakdown bool
}

func newKrylov(v []complex128, h Operator, nk int) (*krylov, error) {
	kr := &krylov{norm: cmplxs.Norm(v, 2)}
	if !(kr.norm > 0) || math.IsInf(kr.norm, 0) {
		return nil, errors.Wrap(ErrDegenerateBasis, fmt.Sprintf("norm %g", kr.norm))
	}
	q := make([]complex128, len(v))
	cmplxs.ScaleTo(q, complex(1/kr.norm, 0), v)
	kr.basis = append(kr.basis, q)

	var scale float64
	for j := 0; ; j++ {
		w := make([]complex128, len(v))
		h.MulVec(w, kr.basis[j])
		scale = max(scale, cmplxs.Norm(w, 2))

		a := real(cmplxs.Dot(kr.basis[j], w))
		cmplxs.AddScaled(w, complex(-a, 0), kr.basis[j])
		if j > 0 {
			cmplxs.AddScaled(w, complex(-kr.beta[j-1], 0), kr.basis[j-1])
		}
		for range 2 {
			for _, u := range kr.basis {
				cmplxs.AddScaled(w, -cmplxs.Dot(u, w), u)
			}
		}
		b := cmplxs.Norm(w, 2)
		if math.IsNaN(a) || math.IsInf(a, 0) || math.IsNaN(b) || math.IsInf(b, 0) {
			return nil, errors.Wrap(ErrDegenerateBasis, fmt.Sprintf("step %d alpha %g beta %g", j, a, b))
		}
		kr.alpha = append(kr.alpha, a)

		if b <= breakdownTol*scale {
			kr.breakdown = true
			return kr, nil
		}
		if j == nk-1 {
			kr.residual = b
			return kr, nil
		}
		cmplxs.Scale(complex(1/b, 0), w)
		kr.beta = append(kr.beta, b)
		kr.basis = append(kr.basis, w)
	}
}

func (kr *krylov) dim() int { return len(kr.alpha) }

// exp returns exp(-i H dt/ħ) v and the error estimate.
func (kr *krylov) exp(dt float64) ([]complex128, float64) {
	m := kr.dim()
	t := gmat.NewSymDense(m, nil)
	for i, a := range kr.alpha {
		t.SetSym(i, i, a)
		if i+1 < m {
			t.SetSym(i, i+1, kr.beta[i])
		}
	}
	var es gmat.EigenSym
	if ok := es.Factorize(t, true); !ok {
		return nil, math.Inf(1)
	}
	vals := es.Values(nil)
	var s gmat.Dense
	es.VectorsTo(&s)

	// c = S exp(-iΛ dt/ħ) S^T e_1.
	c := make([]complex128, m)
	for k, e := range vals {
		p := cmplx.Exp(complex(0, -e*dt/tbham.Hbar)) * complex(s.At(0, k), 0)
		for i := range c {
			c[i] += complex(s.At(i, k), 0) * p
		}
	}

	vec := make([]complex128, len(kr.basis[0]))
	for i, q := range kr.basis {
		cmplxs.AddScaled(vec, complex(kr.norm, 0)*c[i], q)
	}
	e := kr.norm * kr.residual * cmplx.Abs(c[m-1])
	return vec, e
}
