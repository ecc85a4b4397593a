// Package electrostatics solves the Poisson equation on rectangular grids of dielectric materials.
//
// The grid is discretized with finite volumes. Each element is either held at a fixed potential or is free,
// in which case the net flux out of it vanishes.
package electrostatics

import (
	"fmt"
	"slices"

	"github.com/pkg/errors"
	gmat "gonum.org/v1/gonum/mat"
)

const (
	// Epsilon0 is the vacuum permittivity in F/m.
	Epsilon0 = 8.8541878128e-12
	// ElementaryCharge in C.
	ElementaryCharge = 1.602176634e-19
)

// Side of an element through which a Neumann flux enters.
type Side int

const (
	// Top is towards row - 1.
	Top Side = iota
	// Bottom is towards row + 1.
	Bottom
	// Left is towards column - 1.
	Left
	// Right is towards column + 1.
	Right
)

// Neumann prescribes the potential gradient, along increasing row or column index, across one side of a boundary element.
type Neumann struct {
	Value float64
	Side  Side
}

// Element is one cell of a grid.
type Element struct {
	// Fixed elements are held at Potential, in V.
	Fixed     bool
	Potential float64
	// Epsilon is the relative permittivity.
	Epsilon float64
	Neumann *Neumann
	// FermiOffset is the Fermi energy in eV of a graphene element at zero potential.
	FermiOffset float64
}

// Laplacian holds the grid spacing in m.
type Laplacian struct {
	Dx float64
	Dy float64
}

// Grid is a rectangle of Rows by Cols elements.
// Rows are spaced Dx apart and columns Dy apart.
type Grid struct {
	Rows int
	Cols int
	Lapl Laplacian
	// PeriodicCols connects the first and the last column.
	PeriodicCols bool

	elems []Element
}

// Rect returns a grid of free elements of relative permittivity eps.
func Rect(rows, cols int, eps float64, lapl Laplacian) (*Grid, error) {
	if rows < 1 || cols < 1 {
		return nil, errors.Errorf("%dx%d", rows, cols)
	}
	if !(lapl.Dx > 0) || !(lapl.Dy > 0) {
		return nil, errors.Errorf("%#v", lapl)
	}
	g := &Grid{Rows: rows, Cols: cols, Lapl: lapl, elems: make([]Element, rows*cols)}
	for i := range g.elems {
		g.elems[i].Epsilon = eps
	}
	return g, nil
}

// At returns the element at row i and column j.
func (g *Grid) At(i, j int) *Element {
	if i < 0 || i >= g.Rows || j < 0 || j >= g.Cols {
		panic(fmt.Sprintf("%d %d out of %dx%d", i, j, g.Rows, g.Cols))
	}
	return &g.elems[g.index(i, j)]
}

// SetPotential fixes the element at row i and column j to v.
func (g *Grid) SetPotential(i, j int, v float64) {
	e := g.At(i, j)
	e.Fixed = true
	e.Potential = v
}

func (g *Grid) index(i, j int) int { return i*g.Cols + j }

type neighbour struct {
	idx int
	// w is the face permittivity over the squared spacing.
	w float64
}

// neighbours returns the elements sharing a face with element (i, j).
func (g *Grid) neighbours(i, j int) []neighbour {
	p := g.elems[g.index(i, j)]
	face := func(q int, h float64) neighbour {
		eps := (p.Epsilon + g.elems[q].Epsilon) / 2
		return neighbour{idx: q, w: eps / (h * h)}
	}

	ns := make([]neighbour, 0, 4)
	if i > 0 {
		ns = append(ns, face(g.index(i-1, j), g.Lapl.Dx))
	}
	if i < g.Rows-1 {
		ns = append(ns, face(g.index(i+1, j), g.Lapl.Dx))
	}
	switch {
	case j > 0:
		ns = append(ns, face(g.index(i, j-1), g.Lapl.Dy))
	case g.PeriodicCols && g.Cols > 1:
		ns = append(ns, face(g.index(i, g.Cols-1), g.Lapl.Dy))
	}
	switch {
	case j < g.Cols-1:
		ns = append(ns, face(g.index(i, j+1), g.Lapl.Dy))
	case g.PeriodicCols && g.Cols > 1:
		ns = append(ns, face(g.index(i, 0), g.Lapl.Dy))
	}
	return ns
}

// rowScale brings the equations of free elements to the order of the fixed potentials.
func (g *Grid) rowScale() float64 { return g.Lapl.Dx * g.Lapl.Dy }

// coupling is the weight of a fixed neighbour in the equation of a free element.
type coupling struct {
	idx int
	w   float64
}

// operator is the finite volume operator restricted to the free elements.
type operator struct {
	// free maps elements to their row in a, -1 for fixed ones.
	free []int
	a    *gmat.SymBandDense
	// fixed are the couplings of each free row to fixed elements, which move to the right hand side.
	fixed [][]coupling
}

// assemble builds the negated discrete divergence of ε∇φ times Dx·Dy on the free elements in row major order.
// Neighbours are at most one row apart, so the bandwidth is below Cols.
func (g *Grid) assemble() operator {
	op := operator{free: make([]int, len(g.elems))}
	var nFree int
	for p, e := range g.elems {
		op.free[p] = -1
		if !e.Fixed {
			op.free[p] = nFree
			nFree++
		}
	}
	op.fixed = make([][]coupling, nFree)
	if nFree == 0 {
		return op
	}

	var bw int
	for i := range g.Rows {
		for j := range g.Cols {
			fp := op.free[g.index(i, j)]
			if fp < 0 {
				continue
			}
			for _, nb := range g.neighbours(i, j) {
				if fq := op.free[nb.idx]; fq >= 0 {
					bw = max(bw, fq-fp, fp-fq)
				}
			}
		}
	}

	scale := g.rowScale()
	op.a = gmat.NewSymBandDense(nFree, bw, nil)
	for i := range g.Rows {
		for j := range g.Cols {
			fp := op.free[g.index(i, j)]
			if fp < 0 {
				continue
			}
			for _, nb := range g.neighbours(i, j) {
				w := nb.w * scale
				op.a.SetSymBand(fp, fp, op.a.At(fp, fp)+w)
				fq := op.free[nb.idx]
				switch {
				case fq < 0:
					op.fixed[fp] = append(op.fixed[fp], coupling{idx: nb.idx, w: w})
				case fq > fp:
					// Each face is visited from both sides, keep the one from the lower row.
					op.a.SetSymBand(fp, fq, op.a.At(fp, fq)-w)
				}
			}
		}
	}
	return op
}

// Inhomogeneity returns the right hand side made of the fixed potentials and the Neumann fluxes.
// Entries of free elements are the Neumann flux times Dx·Dy, entries of fixed ones their potential.
func (g *Grid) Inhomogeneity() []float64 {
	b := make([]float64, len(g.elems))
	for p, e := range g.elems {
		switch {
		case e.Fixed:
			b[p] = e.Potential
		case e.Neumann != nil:
			var h, sign float64
			switch e.Neumann.Side {
			case Top:
				h, sign = g.Lapl.Dx, -1
			case Bottom:
				h, sign = g.Lapl.Dx, 1
			case Left:
				h, sign = g.Lapl.Dy, -1
			case Right:
				h, sign = g.Lapl.Dy, 1
			}
			b[p] = -sign * e.Epsilon * e.Neumann.Value / h * g.rowScale()
		}
	}
	return b
}

// SolveFunc returns the potential of every element for a right hand side.
type SolveFunc func(b []float64) ([]float64, error)

// CholeskySolver factorizes the band operator once and returns its solver along with the current inhomogeneity.
// The solver stays valid as long as no element changes between fixed and free, nor its permittivity.
func (g *Grid) CholeskySolver() (SolveFunc, []float64, error) {
	op := g.assemble()
	var ch gmat.BandCholesky
	if op.a != nil {
		if ok := ch.Factorize(op.a); !ok {
			return nil, nil, errors.Errorf("singular operator, is any element fixed?")
		}
		if cond := ch.Cond(); cond > 1/1e-14 {
			return nil, nil, errors.Errorf("singular operator, condition number %g, is any element fixed?", cond)
		}
	}

	n := len(g.elems)
	solve := func(b []float64) ([]float64, error) {
		if len(b) != n {
			return nil, errors.Errorf("%d, expected %d", len(b), n)
		}
		x := slices.Clone(b)
		if op.a == nil {
			return x, nil
		}
		rhs := gmat.NewVecDense(len(op.fixed), nil)
		for p, fp := range op.free {
			if fp < 0 {
				continue
			}
			v := -b[p]
			for _, c := range op.fixed[fp] {
				v += c.w * b[c.idx]
			}
			rhs.SetVec(fp, v)
		}
		sol := gmat.NewVecDense(len(op.fixed), nil)
		if err := ch.SolveVecTo(sol, rhs); err != nil {
			var cond gmat.Condition
			if !errors.As(err, &cond) {
				return nil, errors.Wrap(err, "")
			}
		}
		for p, fp := range op.free {
			if fp >= 0 {
				x[p] = sol.AtVec(fp)
			}
		}
		return x, nil
	}
	return solve, g.Inhomogeneity(), nil
}

// Charge returns the sheet charge density in C/m² of each of elems, given the potential sol.
func (g *Grid) Charge(sol []float64, elems [][2]int) []float64 {
	charges := make([]float64, 0, len(elems))
	for _, ij := range elems {
		p := g.index(ij[0], ij[1])
		var flux float64
		for _, nb := range g.neighbours(ij[0], ij[1]) {
			flux += nb.w * (sol[p] - sol[nb.idx])
		}
		charges = append(charges, Epsilon0*g.Lapl.Dx*flux)
	}
	return charges
}

// Picture reshapes a solution into rows.
func (g *Grid) Picture(sol []float64) [][]float64 {
	pic := make([][]float64, 0, g.Rows)
	for i := range g.Rows {
		pic = append(pic, sol[i*g.Cols:(i+1)*g.Cols])
	}
	return pic
}
