package tbham

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/cmplx"
	"testing"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/cmplxs"

	"github.com/fumin/tbham/eigen"
	"github.com/fumin/tbham/mat"
)

func TestTile(t *testing.T) {
	t.Parallel()
	h0 := mat.M([][]complex128{
		{1, 2i},
		{-2i, 1},
	})
	hI := mat.M([][]complex128{
		{0, 3},
		{1i, 0},
	})
	m, err := Tile(h0, hI, 3)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	expected := mat.M([][]complex128{
		{1, 2i, 0, 3, 0, 0},
		{-2i, 1, 1i, 0, 0, 0},
		{0, -1i, 1, 2i, 0, 3},
		{3, 0, -2i, 1, 1i, 0},
		{0, 0, 0, -1i, 1, 2i},
		{0, 0, 3, 0, -2i, 1},
	})
	if !m.Equal(expected) {
		t.Fatalf("%s, expected %s", m, expected)
	}

	// Absent coupling.
	m, err = Tile(h0, nil, 2)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if m.NumNonZero() != 2*h0.NumNonZero() {
		t.Fatalf("%s", m)
	}

	if _, err := Tile(h0, mat.COOZeros(3, 3), 2); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := Tile(h0, hI, 0); err == nil {
		t.Fatalf("expected error")
	}
}

func TestChain(t *testing.T) {
	t.Parallel()
	const hopping = 1
	h, err := NewChain(ChainParams(hopping), 10)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !h.IsHermitian(0) {
		t.Fatalf("%s", h.M)
	}

	vvs, err := eigen.Eigen(h.M)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	for i, vv := range vvs {
		if e := real(vv.Val); e < -2*hopping || e > 2*hopping {
			t.Fatalf("%d %f outside band", i, e)
		}
	}
	// Columns of the eigenvector matrix are orthonormal, and so are its rows.
	for i := range vvs {
		for j := range vvs {
			var expected complex128
			if i == j {
				expected = 1
			}
			if ip := cmplxs.Dot(vvs[i].Vec, vvs[j].Vec); cmplx.Abs(ip-expected) > 1e-12 {
				t.Fatalf("columns %d %d %v", i, j, ip)
			}
			var row complex128
			for _, vv := range vvs {
				row += vv.Vec[i] * cmplx.Conj(vv.Vec[j])
			}
			if cmplx.Abs(row-expected) > 1e-12 {
				t.Fatalf("rows %d %d %v", i, j, row)
			}
		}
	}

	sorted, err := h.SortedEigenvalueProblem(4, 0)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	for i, vv := range sorted {
		if i > 0 && real(vv.Val) < real(sorted[i-1].Val) {
			t.Fatalf("not sorted %v %v", sorted[i-1].Val, vv.Val)
		}
		if r := eigen.Residual(h.M, vv); r > 1e-8 {
			t.Fatalf("%d residual %g", i, r)
		}
	}
}

func TestLatticeGeometry(t *testing.T) {
	t.Parallel()
	p := GrapheneParams()
	zigzag, err := NewZigzag(p, 8, 3)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	armchair, err := NewArmchair(p, 8, 3)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	square, err := NewSquare(EffectiveMassParams(0.25, 2), 4, 3)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	tests := []struct {
		h        *Hamiltonian
		numBonds int
		bondLen  float64
		hopping  float64
		onSite   float64
		period   float64
	}{
		// 3 slices of 8 sites: 7 bonds inside each slice, 4 bonds between neighbouring slices.
		{h: zigzag, numBonds: 3*7 + 2*4, bondLen: 1.42, hopping: 2.7, period: math.Sqrt(3) * 1.42},
		// Armchair slices have 6 zigzag bonds, 2 horizontal bonds inside and 2 bonds to the next slice.
		{h: armchair, numBonds: 3*(6+2) + 2*2, bondLen: 1.42, hopping: 2.7, period: 3 * 1.42},
		{h: square, numBonds: 3*3 + 2*4, bondLen: 2, hopping: 3.8099835367957477, onSite: 4 * 3.8099835367957477, period: 2},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%s", test.h.Lattice), func(t *testing.T) {
			t.Parallel()
			h := test.h
			if !h.IsHermitian(0) {
				t.Fatalf("not Hermitian")
			}
			if len(h.Coords) != h.N() || h.Nx*h.Ny != h.N() {
				t.Fatalf("%d %d %dx%d", len(h.Coords), h.N(), h.Nx, h.Ny)
			}
			if math.Abs(h.Period-test.period) > 1e-12 {
				t.Fatalf("%f, expected %f", h.Period, test.period)
			}
			var numBonds int
			for ij, v := range h.M.NonZero() {
				i, j := ij[0], ij[1]
				if i == j {
					if math.Abs(real(v)-test.onSite) > 1e-9 {
						t.Fatalf("on-site %d %v", i, v)
					}
					continue
				}
				if d := distance(h.Coords[i], h.Coords[j]); math.Abs(d-test.bondLen) > 1e-9 {
					t.Fatalf("bond %d %d length %f", i, j, d)
				}
				if math.Abs(real(v)+test.hopping) > 1e-9 || imag(v) != 0 {
					t.Fatalf("bond %d %d %v", i, j, v)
				}
				if i < j {
					numBonds++
				}
			}
			if numBonds != test.numBonds {
				t.Fatalf("%d bonds, expected %d", numBonds, test.numBonds)
			}
		})
	}
}

func TestLatticeErrors(t *testing.T) {
	t.Parallel()
	if _, err := NewArmchair(GrapheneParams(), 6, 2); err == nil {
		t.Fatalf("expected error")
	}

	p := GrapheneParams()
	p.Hopping = []float64{2.7, 0.2, 0.18, 0.02, 0.03}
	if _, err := NewArmchair(p, 8, 3); err != nil {
		t.Fatalf("%+v", err)
	}
	if _, err := NewZigzag(p, 8, 3); err == nil {
		t.Fatalf("expected error")
	}
	p.Hopping = append(p.Hopping, 0.01)
	if _, err := NewArmchair(p, 8, 3); err == nil {
		t.Fatalf("expected error")
	}

	if _, err := NewHamiltonian(mat.COOIdentity(3), make([]Coord, 2)); err == nil {
		t.Fatalf("expected error")
	}
	h, err := NewFromHoppings(mat.COOIdentity(5), make([]Coord, 5), 2)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if h.Ny != 3 {
		t.Fatalf("%d", h.Ny)
	}
}

func TestApplyPotential(t *testing.T) {
	t.Parallel()
	h, err := NewZigzag(GrapheneParams(), 8, 4)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	tests := []struct {
		u       Potential
		options PotentialOptions
	}{
		{u: Potential1D(func(y float64) float64 { return 0.1 * y })},
		{u: Potential2D(func(x, y float64) float64 { return math.Sin(x) + y*y })},
		{u: Potential2D(func(x, y float64) float64 { return 0.3 }), options: NewPotentialOptions().SignVariation(true)},
		{u: Potential1D(func(y float64) float64 { return 0.3 }), options: NewPotentialOptions().SignVariation(true)},
		{u: SoftConfinement{Height: 1, Smoothness: 0.5, Min: 2, Max: 6}},
		{u: SuperLattice{Amplitude: 0.2, Period: 5, Phase: 0.1, Direction: [2]float64{1, 1}}},
	}
	for i, test := range tests {
		t.Run(fmt.Sprintf("%d %T", i, test.u), func(t *testing.T) {
			t.Parallel()
			applied, err := h.ApplyPotential(test.u, test.options)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			vals, err := h.PotentialValues(test.u, test.options)
			if err != nil {
				t.Fatalf("%+v", err)
			}

			diff := applied.M.Clone()
			diff.Add(-1, h.M)
			for ij, v := range diff.NonZero() {
				if ij[0] != ij[1] {
					t.Fatalf("off-diagonal changed %v %v", ij, v)
				}
			}
			for k, c := range h.Coords {
				if d := applied.M.At(k, k) - h.M.At(k, k); d != complex(vals[k], 0) {
					t.Fatalf("%d %v, expected %f", k, d, vals[k])
				}
				if v := test.u.at(c); math.Abs(math.Abs(v)-math.Abs(vals[k])) != 0 {
					t.Fatalf("%d %f %f", k, v, vals[k])
				}
			}
			if h.M.At(0, 0) != 0 {
				t.Fatalf("original modified")
			}
		})
	}

	// Sign variation negates the even sites of two dimensional potentials only.
	vals, err := h.PotentialValues(Potential2D(func(x, y float64) float64 { return 1 }), NewPotentialOptions().SignVariation(true))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if vals[0] != -1 || vals[1] != 1 {
		t.Fatalf("%v", vals[:2])
	}
	vals, err = h.PotentialValues(Potential1D(func(y float64) float64 { return 1 }), NewPotentialOptions().SignVariation(true))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if vals[0] != 1 {
		t.Fatalf("%v", vals[:2])
	}

	var nilPotential Potential1D
	for _, u := range []Potential{nil, nilPotential} {
		if _, err := h.ApplyPotential(u); !errors.Is(err, ErrUnknownPotential) {
			t.Fatalf("%+v", err)
		}
	}
}

func TestApplyVectorPotential(t *testing.T) {
	t.Parallel()
	h, err := NewArmchair(GrapheneParams(), 8, 4)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	h, err = h.ApplyPotential(Potential1D(func(y float64) float64 { return 0.01 * y }))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	for _, a := range [][2]float64{{0, 0}, {1e-5, 0}, {-3e-6, 2e-5}, {0, 1e-3}} {
		applied := h.ApplyVectorPotential(a)
		if applied.M.NumNonZero() != h.M.NumNonZero() {
			t.Fatalf("%v %d, expected %d", a, applied.M.NumNonZero(), h.M.NumNonZero())
		}
		for ij, v := range h.M.NonZero() {
			av := applied.M.At(ij[0], ij[1])
			if math.Abs(cmplx.Abs(av)-cmplx.Abs(v)) > 1e-12 {
				t.Fatalf("%v %v %v, expected magnitude %v", a, ij, av, v)
			}
			if ij[0] == ij[1] && av != v {
				t.Fatalf("diagonal %v %v", av, v)
			}
		}
		if !applied.IsHermitian(1e-12) {
			t.Fatalf("%v not Hermitian", a)
		}
	}

	// Phase of a bond along x.
	chain, err := NewSquare(ChainParams(1), 1, 2)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	applied := chain.ApplyVectorPotential([2]float64{1e-5, 0})
	expected := -cmplx.Exp(complex(0, eOverHbarAngstrom*1e-5))
	if v := applied.M.At(0, 1); cmplx.Abs(v-expected) > 1e-12 {
		t.Fatalf("%v, expected %v", v, expected)
	}
}

func TestApplyMagneticField(t *testing.T) {
	t.Parallel()
	h, err := NewSquare(Params{Hopping: []float64{1}, LatticeConst: 10}, 4, 5)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	const b = 100
	var spectra [][]eigen.ValVec
	for _, gauge := range []Gauge{LandauX, LandauY} {
		applied, err := h.ApplyMagneticField(b, gauge)
		if err != nil {
			t.Fatalf("%+v", err)
		}
		if !applied.IsHermitian(1e-12) {
			t.Fatalf("%s not Hermitian", gauge)
		}
		vvs, err := eigen.Eigen(applied.M)
		if err != nil {
			t.Fatalf("%+v", err)
		}
		spectra = append(spectra, vvs)
	}
	// The spectrum is gauge invariant and differs from the field free one.
	free, err := eigen.Eigen(h.M)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	var changed bool
	for i := range spectra[0] {
		if d := real(spectra[0][i].Val - spectra[1][i].Val); math.Abs(d) > 1e-9 {
			t.Fatalf("%d %v %v", i, spectra[0][i].Val, spectra[1][i].Val)
		}
		if math.Abs(real(spectra[0][i].Val-free[i].Val)) > 1e-6 {
			changed = true
		}
	}
	if !changed {
		t.Fatalf("field has no effect")
	}

	if _, err := h.ApplyMagneticField(b, Gauge(7)); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := ParseGauge("coulomb"); err == nil {
		t.Fatalf("expected error")
	}
	if g, err := ParseGauge("landau_y"); err != nil || g != LandauY {
		t.Fatalf("%v %+v", g, err)
	}
}

func TestPeriodicX(t *testing.T) {
	t.Parallel()
	zigzag, err := NewZigzag(GrapheneParams(), 8, 4)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	square, err := NewSquare(ChainParams(1), 3, 5)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	for _, h := range []*Hamiltonian{zigzag, square} {
		periodic, err := h.MakePeriodicX()
		if err != nil {
			t.Fatalf("%+v", err)
		}
		if !periodic.IsHermitian(0) {
			t.Fatalf("%s not Hermitian", h.Lattice)
		}
		last := (h.Nx - 1) * h.Ny
		corner := periodic.M.Slice([2]int{last, h.N()}, [2]int{0, h.Ny})
		_, hI, err := h.slice(0)
		if err != nil {
			t.Fatalf("%+v", err)
		}
		if !corner.Equal(hI) {
			t.Fatalf("%s, expected %s", corner, hI)
		}

		open, err := periodic.RemovePeriodicX()
		if err != nil {
			t.Fatalf("%+v", err)
		}
		if !open.M.Equal(h.M) {
			t.Fatalf("%s round trip failed", h.Lattice)
		}
	}

	small, err := NewSquare(ChainParams(1), 3, 2)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if _, err := small.MakePeriodicX(); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPeriodicY(t *testing.T) {
	t.Parallel()
	square, err := NewSquare(ChainParams(1), 4, 3)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	periodic, err := square.MakePeriodicY()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	for i := range square.Nx {
		if v := periodic.M.At(i*4, i*4+3); v != -1 {
			t.Fatalf("%d %v", i, v)
		}
	}
	if !periodic.IsHermitian(0) {
		t.Fatalf("not Hermitian")
	}

	// A zigzag nanotube closed along x has three neighbours on every site.
	zigzag, err := NewZigzag(GrapheneParams(), 6, 4)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	tube, err := zigzag.MakePeriodicY()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if tube.Ny != 8 || len(tube.Coords) != 32 {
		t.Fatalf("%d %d", tube.Ny, len(tube.Coords))
	}
	torus, err := tube.MakePeriodicX()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	numNeighbours := make([]int, torus.N())
	for ij, v := range torus.M.NonZero() {
		if v != -2.7 {
			t.Fatalf("%v %v", ij, v)
		}
		numNeighbours[ij[0]]++
	}
	for i, n := range numNeighbours {
		if n != 3 {
			t.Fatalf("site %d has %d neighbours", i, n)
		}
	}

	armchair, err := NewArmchair(GrapheneParams(), 8, 2)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if _, err := armchair.MakePeriodicY(); err == nil {
		t.Fatalf("expected error")
	}
}

func TestBandStructure(t *testing.T) {
	t.Parallel()
	chain, err := NewSquare(ChainParams(1), 1, 3)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	ks := []float64{0, 0.5, 1, math.Pi}
	bands, err := chain.BandStructure(ks, 0, 0)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	for i, k := range ks {
		if e := bands[i][0]; math.Abs(e+2*math.Cos(k)) > 1e-12 {
			t.Fatalf("k %f %f, expected %f", k, e, -2*math.Cos(k))
		}
	}

	// Partial bands agree with the full spectrum.
	zigzag, err := NewZigzag(GrapheneParams(), 8, 2)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	full, err := zigzag.BandStructure([]float64{0.7}, 0, 0)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	partial, err := zigzag.BandStructure([]float64{0.7}, 4, 0)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if len(full[0]) != 8 || len(partial[0]) != 4 {
		t.Fatalf("%v %v", full, partial)
	}
	// The 4 bands nearest zero are the middle ones by particle hole symmetry.
	for i, e := range partial[0] {
		if math.Abs(e-full[0][i+2]) > 1e-8 {
			t.Fatalf("%v, expected %v", partial[0], full[0][2:6])
		}
	}

	single, err := NewChain(ChainParams(1), 4)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if _, err := single.BandStructure(ks, 0, 0); err == nil {
		t.Fatalf("expected error")
	}
}

func TestElectronDensity(t *testing.T) {
	t.Parallel()
	h, err := NewChain(ChainParams(1), 10)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	density, err := h.ElectronDensity(0, 0.01)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	var total float64
	for i, d := range density {
		if math.Abs(d-0.5) > 1e-6 {
			t.Fatalf("%d %f", i, d)
		}
		total += d
	}
	if math.Abs(total-5) > 1e-6 {
		t.Fatalf("%f", total)
	}
}

func TestFermiFunction(t *testing.T) {
	t.Parallel()
	tests := []struct {
		x  float64
		mu float64
		kT float64
		f  float64
	}{
		{x: 0.1, mu: 0.1, kT: 0.025, f: 0.5},
		{x: 0.1 + 0.025*math.Log(3), mu: 0.1, kT: 0.025, f: 0.25},
		{x: -1, mu: 0, kT: 0, f: 1},
		{x: 1, mu: 0, kT: 0, f: 0},
		{x: 0.3, mu: 0.3, kT: 0, f: 0.5},
		{x: 0.3, mu: 0.3, kT: -1, f: 0.5},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%+v", test), func(t *testing.T) {
			t.Parallel()
			if f := FermiFunction(test.x, test.mu, test.kT); math.Abs(f-test.f) > 1e-12 {
				t.Fatalf("%f, expected %f", f, test.f)
			}
		})
	}
}

func TestMain(m *testing.M) {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	m.Run()
}
