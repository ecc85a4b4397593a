package electrostatics

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

var (
	ErrNotConverged = errors.New("quantum capacitance iteration did not converge")
)

// QuantumCapacitanceSolver finds the potential of graphene elements whose charge follows from their own Fermi energy.
//
// By linearity, the charge of graphene element p is Σ_j C[p][j] φ_j + env[p],
// where C is obtained from unit potentials on each graphene element and env from the rest of the grid.
type QuantumCapacitanceSolver struct {
	// Temperature in K.
	Temperature float64
	// Tol is the largest potential change in V of a converged sweep.
	Tol     float64
	MaxIter int

	grid     *Grid
	solve    SolveFunc
	graphene [][2]int
	basis    [][]float64
	env      []float64
}

// NewQuantumCapacitanceSolver fixes the graphene elements and factorizes the grid.
func NewQuantumCapacitanceSolver(g *Grid, graphene [][2]int, temperature float64) (*QuantumCapacitanceSolver, error) {
	if len(graphene) == 0 {
		return nil, errors.Errorf("no graphene elements")
	}
	for _, ij := range graphene {
		g.At(ij[0], ij[1]).Fixed = true
	}
	solve, _, err := g.CholeskySolver()
	if err != nil {
		return nil, errors.Wrap(err, "")
	}

	s := &QuantumCapacitanceSolver{Temperature: temperature, Tol: 1e-9, MaxIter: 1000, grid: g, solve: solve, graphene: graphene}
	if err := s.RefreshBasis(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	if err := s.RefreshEnvironment(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return s, nil
}

// Solver returns the factorized grid solver.
func (s *QuantumCapacitanceSolver) Solver() SolveFunc { return s.solve }

// RefreshBasis recomputes the capacitance matrix between graphene elements.
func (s *QuantumCapacitanceSolver) RefreshBasis() error {
	s.basis = make([][]float64, len(s.graphene))
	for p := range s.basis {
		s.basis[p] = make([]float64, len(s.graphene))
	}
	for j, ij := range s.graphene {
		b := make([]float64, len(s.grid.elems))
		b[s.grid.index(ij[0], ij[1])] = 1
		sol, err := s.solve(b)
		if err != nil {
			return errors.Wrap(err, "")
		}
		for p, c := range s.grid.Charge(sol, s.graphene) {
			s.basis[p][j] = c
		}
	}
	return nil
}

// RefreshEnvironment recomputes the charge induced on grounded graphene by the rest of the grid.
// It must be called after any fixed potential or Neumann value changes.
func (s *QuantumCapacitanceSolver) RefreshEnvironment() error {
	b := s.grid.Inhomogeneity()
	for _, ij := range s.graphene {
		b[s.grid.index(ij[0], ij[1])] = 0
	}
	sol, err := s.solve(b)
	if err != nil {
		return errors.Wrap(err, "")
	}
	s.env = s.grid.Charge(sol, s.graphene)
	return nil
}

// Solve runs nonlinear Gauss-Seidel sweeps until no graphene potential moves by more than Tol.
// The converged potentials are written to the graphene elements and returned.
func (s *QuantumCapacitanceSolver) Solve() ([]float64, error) {
	phi := make([]float64, 0, len(s.graphene))
	for _, ij := range s.graphene {
		phi = append(phi, s.grid.At(ij[0], ij[1]).Potential)
	}

	for iter := 0; iter < s.MaxIter; iter++ {
		var maxDelta float64
		for p, ij := range s.graphene {
			offset := s.grid.At(ij[0], ij[1]).FermiOffset
			others := s.env[p]
			for j, c := range s.basis[p] {
				if j != p {
					others += c * phi[j]
				}
			}
			// Electrostatic minus graphene charge, increasing in the potential.
			mismatch := func(v float64) float64 {
				return s.basis[p][p]*v + others - GrapheneCharge(v+offset, s.Temperature)
			}

			v, err := bracketRoot(mismatch, phi[p], s.Tol*1e-3)
			if err != nil {
				return nil, errors.Wrap(err, fmt.Sprintf("element %v", ij))
			}
			maxDelta = max(maxDelta, math.Abs(v-phi[p]))
			phi[p] = v
		}
		if maxDelta < s.Tol {
			for p, ij := range s.graphene {
				s.grid.At(ij[0], ij[1]).Potential = phi[p]
			}
			return phi, nil
		}
	}
	return nil, errors.Wrap(ErrNotConverged, fmt.Sprintf("%d sweeps", s.MaxIter))
}

// bracketRoot finds the root of the increasing function f near x0.
func bracketRoot(f func(float64) float64, x0, eps float64) (float64, error) {
	lo, hi := x0-1, x0+1
	for range 64 {
		if f(lo) <= 0 && f(hi) >= 0 {
			lo, hi = bisect(func(x float64) bool { return f(x) >= 0 }, lo, hi, eps)
			return (lo + hi) / 2, nil
		}
		w := hi - lo
		lo, hi = lo-w, hi+w
	}
	return math.NaN(), errors.Errorf("no sign change around %f", x0)
}

// bisect narrows [falseDom, trueDom] to width eps around the point where condition turns true.
func bisect(condition func(float64) bool, falseDom, trueDom, eps float64) (float64, float64) {
	for math.Abs(trueDom-falseDom) > eps {
		c := (falseDom + trueDom) * 0.5
		if condition(c) {
			trueDom = c
		} else {
			falseDom = c
		}
	}
	return falseDom, trueDom
}

// Arange returns start, start+step, ... up to but excluding stop.
func Arange[T constraints.Float](start, stop, step T) []T {
	if step == 0 || (stop-start)/step <= 0 {
		return nil
	}
	n := int(math.Ceil(float64((stop - start) / step)))
	r := make([]T, 0, n)
	for i := range n {
		r = append(r, start+T(i)*step)
	}
	return r
}
