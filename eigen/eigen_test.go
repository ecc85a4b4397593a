package eigen

import (
	"cmp"
	"flag"
	"fmt"
	"log"
	"math"
	"math/cmplx"
	"slices"
	"testing"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/cmplxs"

	"github.com/fumin/tbham/mat"
)

func chain(n int, onSite complex128) *mat.COO {
	m := mat.COOShift(n, 1)
	m.Add(1, mat.COOShift(n, -1))
	m.Scale(-1)
	m.Add(onSite, mat.COOIdentity(n))
	return m
}

// square returns the n by n square lattice with unit hopping.
func square(n int) *mat.COO {
	id := mat.COOIdentity(n)
	x := mat.COOIdentity(n)
	x.Kron(chain(n, 0))
	y := chain(n, 0)
	y.Kron(id)
	x.Add(1, y)
	return x
}

func chainEigenvalues(n int, onSite float64) []float64 {
	vals := make([]float64, 0, n)
	for k := 1; k <= n; k++ {
		vals = append(vals, onSite-2*math.Cos(float64(k)*math.Pi/float64(n+1)))
	}
	slices.Sort(vals)
	return vals
}

func checkOrthonormal(t *testing.T, vvs []ValVec) {
	for i := range vvs {
		for j := range vvs {
			ip := cmplxs.Dot(vvs[i].Vec, vvs[j].Vec)
			var expected complex128
			if i == j {
				expected = 1
			}
			if cmplx.Abs(ip-expected) > 1e-9 {
				t.Fatalf("%d %d %v", i, j, ip)
			}
		}
	}
}

func TestEigen(t *testing.T) {
	t.Parallel()
	tests := []struct {
		m    *mat.COO
		vals []float64
	}{
		{
			m:    chain(10, 0),
			vals: chainEigenvalues(10, 0),
		},
		// Two degenerate pairs.
		{
			m: mat.M([][]complex128{
				{1, 1i, 0, 0},
				{-1i, 1, 0, 0},
				{0, 0, 1, 1i},
				{0, 0, -1i, 1},
			}),
			vals: []float64{0, 0, 2, 2},
		},
		{
			m: mat.M([][]complex128{
				{2, 1 - 1i},
				{1 + 1i, 3},
			}),
			vals: []float64{1, 4},
		},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%v", test.vals), func(t *testing.T) {
			t.Parallel()
			vvs, err := Eigen(test.m)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			if len(vvs) != len(test.vals) {
				t.Fatalf("%d, expected %d", len(vvs), len(test.vals))
			}
			for i, vv := range vvs {
				if math.Abs(real(vv.Val)-test.vals[i]) > 1e-10 {
					t.Fatalf("%d %v, expected %f", i, vv.Val, test.vals[i])
				}
				if r := Residual(test.m, vv); r > 1e-10 {
					t.Fatalf("%d residual %g", i, r)
				}
			}
			checkOrthonormal(t, vvs)
		})
	}
}

func TestEigs(t *testing.T) {
	t.Parallel()
	m := chain(10, 0)
	all := chainEigenvalues(10, 0)
	tests := []struct {
		k     int
		sigma float64
	}{
		{k: 1, sigma: -3},
		{k: 3, sigma: 0.3},
		{k: 4, sigma: 1.9},
		{k: 10, sigma: 0},
		// Shift exactly at an eigenvalue.
		{k: 2, sigma: all[3]},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%d %f", test.k, test.sigma), func(t *testing.T) {
			t.Parallel()
			vvs, err := Eigs(m, test.k, test.sigma)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			if len(vvs) != test.k {
				t.Fatalf("%d, expected %d", len(vvs), test.k)
			}
			for i, vv := range vvs {
				if i > 0 && math.Abs(real(vv.Val)-test.sigma) < math.Abs(real(vvs[i-1].Val)-test.sigma)-1e-8 {
					t.Fatalf("not nearest first %d %v %v", i, vvs[i-1].Val, vv.Val)
				}
				if r := Residual(m, vv); r > 1e-6 {
					t.Fatalf("%d residual %g", i, r)
				}
			}

			nearest := slices.Clone(all)
			slices.SortStableFunc(nearest, func(a, b float64) int {
				return cmp.Compare(math.Abs(a-test.sigma), math.Abs(b-test.sigma))
			})
			nearest = nearest[:test.k]
			slices.Sort(nearest)
			got := make([]float64, 0, len(vvs))
			for _, vv := range vvs {
				got = append(got, real(vv.Val))
			}
			slices.Sort(got)
			for i := range got {
				if math.Abs(got[i]-nearest[i]) > 1e-8 {
					t.Fatalf("%v, expected %v", got, nearest)
				}
			}
			checkOrthonormal(t, vvs)
		})
	}
}

func TestEigsDegenerate(t *testing.T) {
	t.Parallel()
	// 0 is four-fold and ±1 two-fold degenerate.
	m := square(4)
	tests := []struct {
		k     int
		sigma float64
		vals  []float64
	}{
		{k: 4, sigma: 0.05, vals: []float64{0, 0, 0, 0}},
		{k: 2, sigma: 0.7, vals: []float64{1, 1}},
		{k: 3, sigma: -0.9, vals: []float64{-1, -1, 0}},
		{k: 8, sigma: 0.01, vals: []float64{-1, -1, 0, 0, 0, 0, 1, 1}},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%d %f", test.k, test.sigma), func(t *testing.T) {
			t.Parallel()
			vvs, err := SortedEigs(m, test.k, test.sigma)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			if len(vvs) != len(test.vals) {
				t.Fatalf("%d, expected %d", len(vvs), len(test.vals))
			}
			for i, vv := range vvs {
				if math.Abs(real(vv.Val)-test.vals[i]) > 1e-8 {
					t.Fatalf("%d %v, expected %v", i, vv.Val, test.vals)
				}
				if r := Residual(m, vv); r > 1e-6 {
					t.Fatalf("%d residual %g", i, r)
				}
			}
			checkOrthonormal(t, vvs)
		})
	}
}

func TestSortedEigs(t *testing.T) {
	t.Parallel()
	// Complex hoppings with a random looking diagonal.
	m := mat.COOZeros(8, 8)
	for i := range 8 {
		m.Set(i, i, complex(math.Sin(float64(i)), 0))
		if i+1 < 8 {
			v := cmplx.Exp(complex(0, 0.4*float64(i)))
			m.Set(i, i+1, v)
			m.Set(i+1, i, cmplx.Conj(v))
		}
	}

	vvs, err := SortedEigs(m, 5, 0.1, NewEigsOptions().Tol(1e-12).Seed(7))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	for i, vv := range vvs {
		if i > 0 && real(vv.Val) < real(vvs[i-1].Val) {
			t.Fatalf("not sorted %d %v %v", i, vvs[i-1].Val, vv.Val)
		}
		if r := Residual(m, vv); r > 1e-6 {
			t.Fatalf("%d residual %g", i, r)
		}
	}

	full, err := Eigen(m)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	for _, vv := range vvs {
		found := slices.ContainsFunc(full, func(f ValVec) bool { return math.Abs(real(f.Val-vv.Val)) < 1e-8 })
		if !found {
			t.Fatalf("%v not an eigenvalue", vv.Val)
		}
	}
}

func TestEigsErrors(t *testing.T) {
	t.Parallel()
	nonHermitian := mat.M([][]complex128{
		{0, 1},
		{2, 0},
	})
	if _, err := Eigs(nonHermitian, 1, 0); !errors.Is(err, ErrNotHermitian) {
		t.Fatalf("%+v", err)
	}
	if _, err := Eigen(nonHermitian); !errors.Is(err, ErrNotHermitian) {
		t.Fatalf("%+v", err)
	}

	m := chain(4, 0)
	for _, k := range []int{0, 5} {
		if _, err := Eigs(m, k, 0); err == nil {
			t.Fatalf("k %d expected error", k)
		}
	}
	if _, err := Eigs(mat.COOZeros(2, 3), 1, 0); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := Eigs(m, 3, 0, NewEigsOptions().MaxDim(2)); err == nil {
		t.Fatalf("expected error")
	}
}

func TestGroundState(t *testing.T) {
	t.Parallel()
	// Negative definite so that the lowest eigenvalue is also the largest in magnitude.
	m := chain(8, -5)
	vv, err := GroundState(m)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	expected := chainEigenvalues(8, -5)[0]
	if math.Abs(real(vv.Val)-expected) > 1e-3 {
		t.Fatalf("%v, expected %f", vv.Val, expected)
	}
	if r := Residual(m, vv); r > 1e-2 {
		t.Fatalf("residual %g", r)
	}
}

func TestMain(m *testing.M) {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	m.Run()
}
