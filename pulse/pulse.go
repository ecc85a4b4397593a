// Package pulse implements linearly polarized laser pulses in the velocity gauge.
package pulse

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// SinSqEnvelope is a pulse of Cycles optical cycles under a sin² envelope.
// Units are SI: Amplitude is the peak electric field in V/m, Frequency in Hz, and the vector potential in V·s/m.
type SinSqEnvelope struct {
	Amplitude float64
	Frequency float64
	Cycles    int
	// CEP is the carrier envelope phase.
	CEP       float64
	Direction [2]float64
}

// Validate checks that the pulse has a positive duration and a polarization.
func (p SinSqEnvelope) Validate() error {
	if !(p.Frequency > 0) {
		return errors.Errorf("frequency %g", p.Frequency)
	}
	if p.Cycles < 1 {
		return errors.Errorf("cycles %d", p.Cycles)
	}
	if math.Hypot(p.Direction[0], p.Direction[1]) == 0 {
		return errors.Errorf("direction %v", p.Direction)
	}
	return nil
}

func (p SinSqEnvelope) omega() float64 { return 2 * math.Pi * p.Frequency }

// Duration is the length of the envelope in seconds.
func (p SinSqEnvelope) Duration() float64 {
	return float64(p.Cycles) / p.Frequency
}

func (p SinSqEnvelope) direction() (float64, float64) {
	n := math.Hypot(p.Direction[0], p.Direction[1])
	return p.Direction[0] / n, p.Direction[1] / n
}

// Envelope is sin²(πt/τ) inside the pulse and zero outside.
func (p SinSqEnvelope) Envelope(t float64) float64 {
	tau := p.Duration()
	if t < 0 || t > tau {
		return 0
	}
	s := math.Sin(math.Pi * t / tau)
	return s * s
}

// VectorPotential is A(t) = -(E0/ω) env(t) sin(ωt + cep) along Direction.
func (p SinSqEnvelope) VectorPotential(t float64) [2]float64 {
	w := p.omega()
	a := -p.Amplitude / w * p.Envelope(t) * math.Sin(w*t+p.CEP)
	dx, dy := p.direction()
	return [2]float64{a * dx, a * dy}
}

// ElectricField is E(t) = -dA/dt.
func (p SinSqEnvelope) ElectricField(t float64) [2]float64 {
	tau := p.Duration()
	if t < 0 || t > tau {
		return [2]float64{}
	}
	w := p.omega()
	dEnv := math.Pi / tau * math.Sin(2*math.Pi*t/tau)
	e := p.Amplitude / w * (dEnv*math.Sin(w*t+p.CEP) + p.Envelope(t)*w*math.Cos(w*t+p.CEP))
	dx, dy := p.direction()
	return [2]float64{e * dx, e * dy}
}

// Times returns n evenly spaced times spanning the pulse.
func (p SinSqEnvelope) Times(n int) []float64 {
	return floats.Span(make([]float64, n), 0, p.Duration())
}
