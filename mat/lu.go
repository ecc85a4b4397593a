package mat

import (
	"cmp"
	"fmt"
	"math"
	"math/cmplx"
	"math/rand/v2"
	"slices"

	"github.com/pkg/errors"
)

// ErrSingular is returned when a column has no pivot left.
var ErrSingular = errors.New("singular matrix")

// pivotThreshold admits pivots within this fraction of the largest candidate, among which the sparsest row wins.
const pivotThreshold = 0.1

type entry struct {
	col int
	v   complex128
}

// LU is the sparse factorization PA = LU of a square matrix with row pivoting.
type LU struct {
	n int
	// perm[k] is the row of A pivoted at step k.
	perm []int
	// l[r] are the multipliers of row r keyed by step, u[r] its remaining entries keyed by column.
	l    [][]entry
	u    [][]entry
	norm float64
	cond float64
}

// Factorize computes the LU factorization of a.
func (lu *LU) Factorize(a *COO) error {
	if a.rows != a.cols {
		return errors.Errorf("not square %dx%d", a.rows, a.cols)
	}
	n := a.rows
	rows := make([]map[int]complex128, n)
	for i := range rows {
		rows[i] = make(map[int]complex128)
	}
	// cols[j] are the active rows with an entry in column j.
	cols := make([]map[int]struct{}, n)
	for j := range cols {
		cols[j] = make(map[int]struct{})
	}
	rowSums := make([]float64, n)
	for _, v := range a.Data {
		rows[v.row][v.col] = v.v
		cols[v.col][v.row] = struct{}{}
		rowSums[v.row] += cmplx.Abs(v.v)
	}

	lu.n = n
	lu.perm = make([]int, 0, n)
	lu.l = make([][]entry, n)
	lu.u = make([][]entry, n)
	lu.norm = 0
	for _, s := range rowSums {
		lu.norm = max(lu.norm, s)
	}
	for k := range n {
		var largest float64
		for i := range cols[k] {
			largest = max(largest, cmplx.Abs(rows[i][k]))
		}
		if !(largest > 0) {
			return errors.Wrap(ErrSingular, fmt.Sprintf("column %d", k))
		}
		p := -1
		for i := range cols[k] {
			if cmplx.Abs(rows[i][k]) < pivotThreshold*largest {
				continue
			}
			if p == -1 || len(rows[i]) < len(rows[p]) || (len(rows[i]) == len(rows[p]) && i < p) {
				p = i
			}
		}
		lu.perm = append(lu.perm, p)
		delete(cols[k], p)
		for j := range rows[p] {
			if j > k {
				delete(cols[j], p)
			}
		}

		pivot := rows[p][k]
		for i := range cols[k] {
			f := rows[i][k] / pivot
			delete(rows[i], k)
			if f == 0 {
				continue
			}
			lu.l[i] = append(lu.l[i], entry{col: k, v: f})
			for j, v := range rows[p] {
				if j == k {
					continue
				}
				if _, ok := rows[i][j]; !ok {
					cols[j][i] = struct{}{}
				}
				rows[i][j] -= f * v
			}
		}
		cols[k] = nil

		u := make([]entry, 0, len(rows[p]))
		for j, v := range rows[p] {
			u = append(u, entry{col: j, v: v})
		}
		slices.SortFunc(u, func(a, b entry) int { return cmp.Compare(a.col, b.col) })
		lu.u[p] = u
		rows[p] = nil
	}

	lu.cond = lu.estimateCond()
	return nil
}

func (lu *LU) Rows() int { return lu.n }

// Cond returns an estimate of the condition number, the infinity norm of A times a power iteration estimate of the norm of its inverse.
func (lu *LU) Cond() float64 { return lu.cond }

func (lu *LU) estimateCond() float64 {
	if lu.n == 0 {
		return 1
	}
	rnd := rand.New(rand.NewPCG(1, 2))
	x := make([]complex128, lu.n)
	for i := range x {
		x[i] = complex(rnd.NormFloat64(), rnd.NormFloat64())
	}
	var invNorm float64
	y := make([]complex128, lu.n)
	for range 4 {
		scale := 1 / norm2(x)
		for i := range x {
			x[i] *= complex(scale, 0)
		}
		lu.SolveVec(y, x)
		invNorm = norm2(y)
		if math.IsNaN(invNorm) || math.IsInf(invNorm, 0) {
			return math.Inf(1)
		}
		x, y = y, x
	}
	return lu.norm * invNorm
}

// SolveVec solves A dst = b.
// dst and b may be the same slice.
func (lu *LU) SolveVec(dst, b []complex128) {
	if len(dst) != lu.n || len(b) != lu.n {
		panic(fmt.Sprintf("dimension mismatch %d %d %d", lu.n, len(dst), len(b)))
	}
	y := make([]complex128, lu.n)
	for k, r := range lu.perm {
		v := b[r]
		for _, e := range lu.l[r] {
			v -= e.v * y[e.col]
		}
		y[k] = v
	}
	for k := lu.n - 1; k >= 0; k-- {
		u := lu.u[lu.perm[k]]
		v := y[k]
		// u[0] is the pivot.
		for _, e := range u[1:] {
			v -= e.v * dst[e.col]
		}
		dst[k] = v / u[0].v
	}
}

func norm2(x []complex128) float64 {
	var s float64
	for _, v := range x {
		s += real(v)*real(v) + imag(v)*imag(v)
	}
	return math.Sqrt(s)
}
