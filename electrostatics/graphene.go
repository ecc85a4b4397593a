package electrostatics

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

const (
	// HbarVF is ħ times the Fermi velocity of graphene, in eV·m.
	HbarVF = 6.582119569e-16 * 1e6
	// Boltzmann constant in eV/K.
	Boltzmann = 8.617333262e-5

	quadPoints = 64
)

func fermi(e, kT float64) float64 {
	return 1 / (1 + math.Exp(e/kT))
}

// GrapheneDensity returns the net electron density in 1/m² of bulk graphene with Fermi energy ef in eV, relative to the Dirac point, at temperature t in K.
// Holes count negative.
func GrapheneDensity(ef, t float64) float64 {
	pre := 2 / (math.Pi * HbarVF * HbarVF)
	mu := math.Abs(ef)
	kT := Boltzmann * t
	if !(kT > 0) {
		return math.Copysign(pre*mu*mu/2, ef)
	}

	// Electrons at E above the Dirac point minus holes at -E.
	integrand := func(e float64) float64 {
		return e * (fermi(e-ef, kT) - fermi(e+ef, kT))
	}
	// Resolve the Fermi edge separately, the tail beyond 40kT is below machine precision.
	bounds := []float64{0, max(0, mu-20*kT), mu, mu + 20*kT, mu + 40*kT}
	var n float64
	for i := 1; i < len(bounds); i++ {
		if bounds[i] <= bounds[i-1] {
			continue
		}
		n += quad.Fixed(integrand, bounds[i-1], bounds[i], quadPoints, nil, 0)
	}
	return pre * n
}

// GrapheneCharge is the sheet charge density in C/m² of graphene with Fermi energy ef eV at temperature t.
func GrapheneCharge(ef, t float64) float64 {
	return -ElementaryCharge * GrapheneDensity(ef, t)
}
