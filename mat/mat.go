// Package mat implements the sparse complex matrices that tight-binding Hamiltonians are stored in.
package mat

import (
	"cmp"
	"fmt"
	"math"
	"math/cmplx"
	"slices"
	"strings"
)

type vRowCol struct {
	v   complex128
	row int
	col int
}

// COO is a sparse matrix in coordinate format.
// Data is kept in row major order without duplicates or explicit zeros.
type COO struct {
	rows int
	cols int
	Data []vRowCol
}

func M(dense [][]complex128) *COO {
	m := &COO{rows: len(dense), cols: len(dense[0]), Data: make([]vRowCol, 0)}
	for i, row := range dense {
		for j, v := range row {
			if v == 0 {
				continue
			}
			m.Data = append(m.Data, vRowCol{v: v, row: i, col: j})
		}
	}
	return m
}

func COOZeros(rows, cols int) *COO {
	return &COO{rows: rows, cols: cols, Data: make([]vRowCol, 0)}
}

func COOIdentity(rows int) *COO {
	m := COOZeros(rows, rows)
	for i := 0; i < rows; i++ {
		m.Data = append(m.Data, vRowCol{v: 1, row: i, col: i})
	}
	return m
}

// COOShift returns the n by n matrix with ones on the k-th diagonal.
// Positive k is above the main diagonal.
func COOShift(n, k int) *COO {
	m := COOZeros(n, n)
	for i := 0; i < n; i++ {
		j := i + k
		if j < 0 || j >= n {
			continue
		}
		m.Data = append(m.Data, vRowCol{v: 1, row: i, col: j})
	}
	return m
}

// COODiag returns the square matrix with d on its diagonal.
func COODiag(d []complex128) *COO {
	m := COOZeros(len(d), len(d))
	for i, v := range d {
		if v == 0 {
			continue
		}
		m.Data = append(m.Data, vRowCol{v: v, row: i, col: i})
	}
	return m
}

func (m *COO) Rows() int { return m.rows }
func (m *COO) Cols() int { return m.cols }

func (m *COO) NumNonZero() int { return len(m.Data) }

// NonZero iterates over the stored entries in row major order.
func (m *COO) NonZero() func(yield func([2]int, complex128) bool) {
	return func(yield func([2]int, complex128) bool) {
		for _, v := range m.Data {
			if !yield([2]int{v.row, v.col}, v.v) {
				return
			}
		}
	}
}

func (m *COO) Clone() *COO {
	return &COO{rows: m.rows, cols: m.cols, Data: slices.Clone(m.Data)}
}

func (m *COO) find(i, j int) (int, bool) {
	return slices.BinarySearchFunc(m.Data, vRowCol{row: i, col: j}, rowMajor)
}

func (m *COO) At(i, j int) complex128 {
	k, ok := m.find(i, j)
	if !ok {
		return 0
	}
	return m.Data[k].v
}

func (m *COO) Set(i, j int, v complex128) {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		panic(fmt.Sprintf("%d %d out of %d %d", i, j, m.rows, m.cols))
	}
	k, ok := m.find(i, j)
	switch {
	case ok && v == 0:
		m.Data = slices.Delete(m.Data, k, k+1)
	case ok:
		m.Data[k].v = v
	case v != 0:
		m.Data = slices.Insert(m.Data, k, vRowCol{v: v, row: i, col: j})
	}
}

func (a *COO) Equal(b *COO) bool {
	if a.rows != b.rows {
		return false
	}
	if a.cols != b.cols {
		return false
	}
	if len(a.Data) != len(b.Data) {
		return false
	}
	for i, av := range a.Data {
		bv := b.Data[i]
		if av != bv {
			return false
		}
	}
	return true
}

func (m *COO) Slice(yBoundN, xBoundN [2]int) *COO {
	yBound, xBound := yBoundN, xBoundN
	for i := 0; i < 2; i++ {
		if yBound[i] < 0 {
			yBound[i] += m.rows
		}
		if xBound[i] < 0 {
			xBound[i] += m.cols
		}
	}

	s := &COO{rows: yBound[1] - yBound[0], cols: xBound[1] - xBound[0], Data: make([]vRowCol, 0)}
	for _, v := range m.Data {
		if v.row < yBound[0] {
			continue
		}
		if v.row >= yBound[1] {
			break
		}
		if v.col < xBound[0] || v.col >= xBound[1] {
			continue
		}
		s.Data = append(s.Data, vRowCol{v: v.v, row: v.row - yBound[0], col: v.col - xBound[0]})
	}
	return s
}

// SetBlock overwrites the block of m starting at row i and column j with b.
func (m *COO) SetBlock(i, j int, b *COO) {
	if i < 0 || j < 0 || i+b.rows > m.rows || j+b.cols > m.cols {
		panic(fmt.Sprintf("block %dx%d at %d,%d does not fit %dx%d", b.rows, b.cols, i, j, m.rows, m.cols))
	}
	m.Data = slices.DeleteFunc(m.Data, func(v vRowCol) bool {
		return v.row >= i && v.row < i+b.rows && v.col >= j && v.col < j+b.cols
	})
	for _, v := range b.Data {
		m.Data = append(m.Data, vRowCol{v: v.v, row: v.row + i, col: v.col + j})
	}
	slices.SortFunc(m.Data, rowMajor)
}

// Add sets a to a + c*b.
func (a *COO) Add(c complex128, b *COO) {
	if a.rows != b.rows || a.cols != b.cols {
		panic(fmt.Sprintf("wrong dimensions %dx%d %dx%d", a.rows, a.cols, b.rows, b.cols))
	}

	sum := make([]vRowCol, 0, len(a.Data)+len(b.Data))
	i, j := 0, 0
	for i < len(a.Data) || j < len(b.Data) {
		var v vRowCol
		switch {
		case j >= len(b.Data) || (i < len(a.Data) && rowMajor(a.Data[i], b.Data[j]) < 0):
			v = a.Data[i]
			i++
		case i >= len(a.Data) || rowMajor(a.Data[i], b.Data[j]) > 0:
			bv := b.Data[j]
			v = vRowCol{v: c * bv.v, row: bv.row, col: bv.col}
			j++
		default:
			v = a.Data[i]
			v.v += c * b.Data[j].v
			i++
			j++
		}
		if v.v != 0 {
			sum = append(sum, v)
		}
	}
	a.Data = sum
}

func (a *COO) Scale(c complex128) {
	for i := range a.Data {
		a.Data[i].v *= c
	}
	a.Data = slices.DeleteFunc(a.Data, func(v vRowCol) bool {
		return v.v == 0
	})
}

// Kron sets a to the Kronecker product a ⊗ b.
func (a *COO) Kron(b *COO) {
	rows := a.rows * b.rows
	cols := a.cols * b.cols

	data := make([]vRowCol, 0, len(a.Data)*len(b.Data))
	for _, av := range a.Data {
		for _, bv := range b.Data {
			ky := av.row*b.rows + bv.row
			kx := av.col*b.cols + bv.col
			data = append(data, vRowCol{v: av.v * bv.v, row: ky, col: kx})
		}
	}
	data = slices.DeleteFunc(data, func(v vRowCol) bool {
		return v.v == 0
	})
	slices.SortFunc(data, rowMajor)

	a.rows, a.cols = rows, cols
	a.Data = data
}

// Map returns a new matrix whose entries are f applied to the nonzero entries of m.
// The sparsity pattern is kept except where f returns zero.
func (m *COO) Map(f func(i, j int, v complex128) complex128) *COO {
	mapped := &COO{rows: m.rows, cols: m.cols, Data: make([]vRowCol, 0, len(m.Data))}
	for _, v := range m.Data {
		fv := f(v.row, v.col, v.v)
		if fv == 0 {
			continue
		}
		mapped.Data = append(mapped.Data, vRowCol{v: fv, row: v.row, col: v.col})
	}
	return mapped
}

// Diagonal returns the main diagonal of m.
func (m *COO) Diagonal() []complex128 {
	d := make([]complex128, min(m.rows, m.cols))
	for _, v := range m.Data {
		if v.row == v.col {
			d[v.row] = v.v
		}
	}
	return d
}

// H returns the conjugate transpose.
func (m *COO) H() *COO {
	h := &COO{rows: m.cols, cols: m.rows, Data: make([]vRowCol, 0, len(m.Data))}
	for _, v := range m.Data {
		h.Data = append(h.Data, vRowCol{v: cmplx.Conj(v.v), row: v.col, col: v.row})
	}
	slices.SortFunc(h.Data, rowMajor)
	return h
}

// MulVec computes dst = m x.
func (m *COO) MulVec(dst, x []complex128) {
	if len(x) != m.cols || len(dst) != m.rows {
		panic(fmt.Sprintf("dimension mismatch %dx%d %d %d", m.rows, m.cols, len(dst), len(x)))
	}
	clear(dst)
	for _, v := range m.Data {
		dst[v.row] += v.v * x[v.col]
	}
}

// IsHermitian reports whether m equals its conjugate transpose within tol.
func (m *COO) IsHermitian(tol float64) bool {
	if m.rows != m.cols {
		return false
	}
	for _, v := range m.Data {
		if cmplx.Abs(m.At(v.col, v.row)-cmplx.Conj(v.v)) > tol {
			return false
		}
	}
	return true
}

// Gerschgorin returns an interval on the real axis that contains the spectrum of a Hermitian m.
// Theorem A3, Bounds for the eigenvalues of a matrix, Kenneth R. Garren.
func (m *COO) Gerschgorin() (float64, float64) {
	centers := make([]float64, m.rows)
	radii := make([]float64, m.rows)
	for _, v := range m.Data {
		if v.row == v.col {
			centers[v.row] = real(v.v)
		} else {
			radii[v.row] += cmplx.Abs(v.v)
		}
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for i, c := range centers {
		lo = min(lo, c-radii[i])
		hi = max(hi, c+radii[i])
	}
	return lo, hi
}

func (m *COO) Dense() [][]complex128 {
	dense := make([][]complex128, m.rows)
	for i := range dense {
		dense[i] = make([]complex128, m.cols)
	}

	for _, v := range m.Data {
		dense[v.row][v.col] = v.v
	}

	return dense
}

func (m *COO) String() string {
	dense := m.Dense()
	lines := make([]string, 0, m.rows)
	for _, row := range dense {
		cs := make([]string, 0, len(row))
		for _, v := range row {
			switch {
			case imag(v) == 0:
				cs = append(cs, format(real(v)))
			case real(v) == 0:
				cs = append(cs, format(imag(v))+"i")
			default:
				cs = append(cs, format(real(v))+"+"+format(imag(v))+"i")
			}
		}
		lines = append(lines, strings.Join(cs, "\t"))
	}
	return strings.Join(lines, "\n")
}

func rowMajor(a, b vRowCol) int {
	if c := cmp.Compare(a.row, b.row); c != 0 {
		return c
	}
	return cmp.Compare(a.col, b.col)
}

func format(v float64) string {
	// If v is 0 or -0, return "0" immediately to avoid returning "-0".
	if v == 0 {
		return " 0"
	}

	s := fmt.Sprintf("%.6g", v)

	// Add a space before non-negative numbers to align with other negative numbers in the same column.
	if v >= 0 {
		s = " " + s
	}

	return s
}
