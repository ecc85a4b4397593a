package main

import (
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"

	"github.com/fumin/tbham"
	"github.com/fumin/tbham/propagate"
	"github.com/fumin/tbham/pulse"
)

type PulseConfig struct {
	// Amplitude is the peak field in V/m.
	Amplitude float64    `toml:"amplitude" env:"AMPLITUDE"`
	Frequency float64    `toml:"frequency" env:"FREQUENCY"`
	Cycles    int        `toml:"cycles" env:"CYCLES"`
	CEP       float64    `toml:"cep" env:"CEP"`
	Direction [2]float64 `toml:"direction"`
}

func (c PulseConfig) envelope() pulse.SinSqEnvelope {
	return pulse.SinSqEnvelope{Amplitude: c.Amplitude, Frequency: c.Frequency, Cycles: c.Cycles, CEP: c.CEP, Direction: c.Direction}
}

// Config is a propagation run.
// Values are read from a TOML file, then overridden by environment variables.
type Config struct {
	Name string `toml:"name" env:"TBHAM_NAME"`

	Lattice   string `toml:"lattice" env:"TBHAM_LATTICE"`
	Ny        int    `toml:"ny" env:"TBHAM_NY"`
	Nx        int    `toml:"nx" env:"TBHAM_NX"`
	PeriodicX bool   `toml:"periodic_x" env:"TBHAM_PERIODIC_X"`
	// Mass and LatticeConst parameterize square lattices.
	Mass         float64 `toml:"mass" env:"TBHAM_MASS"`
	LatticeConst float64 `toml:"lattice_const" env:"TBHAM_LATTICE_CONST"`

	// The initial state is the State-th lowest of the State+1 eigenstates nearest Sigma eV.
	Sigma float64 `toml:"sigma" env:"TBHAM_SIGMA"`
	State int     `toml:"state" env:"TBHAM_STATE"`

	Pulse PulseConfig `toml:"pulse" envPrefix:"TBHAM_PULSE_"`
	// Tail is the time in s propagated after the pulse ends.
	Tail float64 `toml:"tail" env:"TBHAM_TAIL"`

	Dt     float64 `toml:"dt" env:"TBHAM_DT"`
	NK     int     `toml:"nk" env:"TBHAM_NK"`
	Tol    float64 `toml:"tol" env:"TBHAM_TOL"`
	Regime string  `toml:"regime" env:"TBHAM_REGIME"`
	// A frame is recorded every LogEvery steps, or once FrameInterval of wall time has passed since the last one.
	LogEvery      int           `toml:"log_every" env:"TBHAM_LOG_EVERY"`
	FrameInterval time.Duration `toml:"frame_interval" env:"TBHAM_FRAME_INTERVAL"`
}

func DefaultConfig() Config {
	return Config{
		Name:         "zigzag",
		Lattice:      tbham.Zigzag.String(),
		Ny:           8,
		Nx:           20,
		Mass:         1,
		LatticeConst: 1,
		Pulse: PulseConfig{
			Amplitude: 1e8,
			Frequency: 1e14,
			Cycles:    4,
			Direction: [2]float64{1, 0},
		},
		Dt:       1e-16,
		NK:       12,
		Tol:      1e-10,
		Regime:   propagate.SIL.String(),
		LogEvery: 10,
	}
}

// LoadConfig reads path on top of the defaults.
// An empty path uses the defaults and the environment only.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	if path != "" {
		meta, err := toml.DecodeFile(path, &c)
		if err != nil {
			return Config{}, errors.Wrap(err, "")
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return Config{}, errors.Errorf("unknown keys %v", undecoded)
		}
	}
	if err := env.Parse(&c); err != nil {
		return Config{}, errors.Wrap(err, "")
	}
	if err := c.Validate(); err != nil {
		return Config{}, errors.Wrap(err, "")
	}
	return c, nil
}

func (c Config) Validate() error {
	if c.Name == "" {
		return errors.Errorf("empty name")
	}
	lattice, err := tbham.ParseLattice(c.Lattice)
	if err != nil {
		return errors.Wrap(err, "")
	}
	if lattice == tbham.External {
		return errors.Errorf("lattice %s cannot be built from a config", lattice)
	}
	if _, err := propagate.ParseRegime(c.Regime); err != nil {
		return errors.Wrap(err, "")
	}
	if err := c.Pulse.envelope().Validate(); err != nil {
		return errors.Wrap(err, "")
	}
	switch {
	case c.State < 0:
		return errors.Errorf("state %d", c.State)
	case !(c.Dt > 0):
		return errors.Errorf("dt %g", c.Dt)
	case c.NK < 2:
		return errors.Errorf("nk %d", c.NK)
	case !(c.Tol > 0):
		return errors.Errorf("tol %g", c.Tol)
	case c.Tail < 0:
		return errors.Errorf("tail %g", c.Tail)
	case c.LogEvery < 1:
		return errors.Errorf("log every %d", c.LogEvery)
	case c.FrameInterval < 0:
		return errors.Errorf("frame interval %s", c.FrameInterval)
	}
	return nil
}

// Hamiltonian builds the field free Hamiltonian.
func (c Config) Hamiltonian() (*tbham.Hamiltonian, error) {
	lattice, err := tbham.ParseLattice(c.Lattice)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	var h *tbham.Hamiltonian
	switch lattice {
	case tbham.Square:
		h, err = tbham.NewSquare(tbham.EffectiveMassParams(c.Mass, c.LatticeConst), c.Ny, c.Nx)
	case tbham.Zigzag:
		h, err = tbham.NewZigzag(tbham.GrapheneParams(), c.Ny, c.Nx)
	case tbham.Armchair:
		h, err = tbham.NewArmchair(tbham.GrapheneParams(), c.Ny, c.Nx)
	default:
		return nil, errors.Errorf("lattice %s cannot be built from a config", lattice)
	}
	if err != nil {
		return nil, errors.Wrap(err, "")
	}

	if c.PeriodicX {
		h, err = h.MakePeriodicX()
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
	}
	return h, nil
}
