package tbham

import (
	"math"

	"github.com/pkg/errors"

	"github.com/fumin/tbham/mat"
)

var (
	// grapheneShells are the neighbour distances of the honeycomb lattice in units of the lattice constant.
	grapheneShells = []float64{1, math.Sqrt(3), 2, math.Sqrt(7), 3}
)

// Tile assembles the block tridiagonal matrix with h0 on the diagonal, hI above and its conjugate transpose below.
// A nil hI means there is no coupling between slices.
func Tile(h0, hI *mat.COO, nx int) (*mat.COO, error) {
	if nx < 1 {
		return nil, errors.Errorf("nx %d", nx)
	}
	if h0 == nil || h0.Rows() != h0.Cols() {
		return nil, errors.Errorf("on-site block not square %v", h0)
	}
	ny := h0.Rows()

	m := mat.COOIdentity(nx)
	m.Kron(h0)
	if hI == nil {
		return m, nil
	}
	if hI.Rows() != ny || hI.Cols() != ny {
		return nil, errors.Errorf("coupling block %dx%d, on-site block %dx%d", hI.Rows(), hI.Cols(), ny, ny)
	}

	upper := mat.COOShift(nx, 1)
	upper.Kron(hI)
	m.Add(1, upper)
	lower := mat.COOShift(nx, -1)
	lower.Kron(hI.H())
	m.Add(1, lower)
	return m, nil
}

// NewSquare returns a square lattice of nx slices with ny sites each.
func NewSquare(p Params, ny, nx int) (*Hamiltonian, error) {
	if err := p.validate(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	if ny < 1 {
		return nil, errors.Errorf("ny %d", ny)
	}
	t := complex(p.t(), 0)

	h0 := mat.COOShift(ny, 1)
	h0.Add(1, mat.COOShift(ny, -1))
	h0.Scale(-t)
	h0.Add(complex(p.OnSite, 0), mat.COOIdentity(ny))
	hI := mat.COOIdentity(ny)
	hI.Scale(-t)

	m, err := Tile(h0, hI, nx)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}

	coords := make([]Coord, 0, nx*ny)
	for i := range nx {
		for j := range ny {
			coords = append(coords, Coord{X: float64(i) * p.LatticeConst, Y: float64(j) * p.LatticeConst})
		}
	}

	h := &Hamiltonian{M: m, Coords: coords, Nx: nx, Ny: ny, Period: p.LatticeConst, Lattice: Square, Params: p}
	return h, nil
}

// NewChain returns a linear chain of n sites along y.
func NewChain(p Params, n int) (*Hamiltonian, error) {
	return NewSquare(p, n, 1)
}

// NewZigzag returns a graphene ribbon with zigzag edges, ny sites wide and nx slices long.
func NewZigzag(p Params, ny, nx int) (*Hamiltonian, error) {
	if ny < 1 {
		return nil, errors.Errorf("ny %d", ny)
	}
	slice := make([]Coord, 0, ny)
	for j := range ny {
		slice = append(slice, zigzagCoord(p.LatticeConst, j))
	}
	h, err := newGraphene(p, slice, nx, math.Sqrt(3)*p.LatticeConst, 0)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	h.Lattice = Zigzag
	return h, nil
}

// NewArmchair returns a graphene ribbon with armchair edges.
// The width ny must be a multiple of 4.
func NewArmchair(p Params, ny, nx int) (*Hamiltonian, error) {
	if ny < 4 || ny%4 != 0 {
		return nil, errors.Errorf("armchair width %d not a multiple of 4", ny)
	}
	a := p.LatticeConst
	dy := math.Sqrt(3) / 2 * a
	slice := make([]Coord, 0, ny)
	for j := range ny {
		var c Coord
		switch {
		case j < ny/2 && j%2 == 0:
			c = Coord{X: 0, Y: dy * float64(j)}
		case j < ny/2:
			c = Coord{X: a / 2, Y: dy * float64(j)}
		case (j-ny/2)%2 == 0:
			c = Coord{X: 3 * a / 2, Y: dy * float64(ny-j-1)}
		default:
			c = Coord{X: 2 * a, Y: dy * float64(ny-j-1)}
		}
		slice = append(slice, c)
	}
	h, err := newGraphene(p, slice, nx, 3*a, 0)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	h.Lattice = Armchair
	return h, nil
}

// zigzagCoord returns the position of site j in a zigzag slice.
// The slice repeats every 4 sites, 3a apart.
func zigzagCoord(a float64, j int) Coord {
	jn := float64(j / 4)
	dx := math.Sqrt(3) / 2 * a
	switch j % 4 {
	case 1:
		return Coord{X: dx, Y: 3*a*jn + a/2}
	case 2:
		return Coord{X: dx, Y: 3*a*jn + 3*a/2}
	case 3:
		return Coord{X: 0, Y: 3*a*jn + 2*a}
	default:
		return Coord{X: 0, Y: 3 * a * jn}
	}
}

// newGraphene connects the sites of slice and of its periodic images by neighbour shell distance.
// A positive periodY makes the slice periodic along y with minimum image bonds.
func newGraphene(p Params, slice []Coord, nx int, period, periodY float64) (*Hamiltonian, error) {
	if err := p.validate(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	if len(p.Hopping) > len(grapheneShells) {
		return nil, errors.Errorf("%d neighbour shells, at most %d supported", len(p.Hopping), len(grapheneShells))
	}

	shift := func(cs []Coord, dx float64) []Coord {
		shifted := make([]Coord, 0, len(cs))
		for _, c := range cs {
			shifted = append(shifted, Coord{X: c.X + dx, Y: c.Y})
		}
		return shifted
	}
	h0 := shellBlock(p, slice, slice, periodY)
	h0.Add(complex(p.OnSite, 0), mat.COOIdentity(len(slice)))
	hI := shellBlock(p, slice, shift(slice, period), periodY)
	// Hoppings must not reach beyond the neighbouring slice.
	if nx > 2 && shellBlock(p, slice, shift(slice, 2*period), periodY).NumNonZero() > 0 {
		return nil, errors.Errorf("%d neighbour shells reach beyond the neighbouring slice", len(p.Hopping))
	}

	m, err := Tile(h0, hI, nx)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}

	coords := make([]Coord, 0, nx*len(slice))
	for i := range nx {
		coords = append(coords, shift(slice, float64(i)*period)...)
	}

	h := &Hamiltonian{M: m, Coords: coords, Nx: nx, Ny: len(slice), Period: period, Params: p}
	return h, nil
}

// shellBlock returns the hopping block between sites rows and cols.
// Pairs at the distance of the k-th neighbour shell get -p.Hopping[k].
func shellBlock(p Params, rows, cols []Coord, periodY float64) *mat.COO {
	const tol = 1e-6
	b := mat.COOZeros(len(rows), len(cols))
	for i, r := range rows {
		for j, c := range cols {
			dy := c.Y - r.Y
			if periodY > 0 {
				dy -= periodY * math.Round(dy/periodY)
			}
			d := math.Hypot(c.X-r.X, dy) / p.LatticeConst
			for k, t := range p.Hopping {
				if math.Abs(d-grapheneShells[k]) < tol {
					b.Set(i, j, complex(-t, 0))
					break
				}
			}
		}
	}
	return b
}
