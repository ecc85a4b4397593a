// Run propagates an eigenstate of a lattice through a laser pulse.
//
// Frames are written to wf.txt and frames.db under the run directory, next to the field free Hamiltonian in hamiltonian.csv.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/fumin/tbham"
	"github.com/fumin/tbham/propagate"
	"github.com/fumin/tbham/record"
	"github.com/fumin/tbham/util"
)

const (
	fnameTextLog     = "wf.txt"
	fnameDB          = "frames.db"
	fnameDone        = "done.txt"
	fnameHamiltonian = "hamiltonian.csv"
)

var (
	configPath = flag.String("c", "", "TOML configuration file")
	runDir     = flag.String("d", filepath.Join("runs", "tbham"), "run directory")
)

func writeHamiltonian(path string, h *tbham.Hamiltonian) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "")
	}
	if err := h.M.WriteCSV(f); err != nil {
		f.Close()
		return errors.Wrap(err, "")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func initialState(c Config, h *tbham.Hamiltonian) (propagate.WaveFunction, float64, error) {
	vvs, err := h.SortedEigenvalueProblem(c.State+1, c.Sigma)
	if err != nil {
		return propagate.WaveFunction{}, -1, errors.Wrap(err, "")
	}
	vv := vvs[c.State]
	return propagate.NewWaveFunction(vv.Vec, h.Coords), real(vv.Val), nil
}

type output struct {
	text *record.TextLog
	db   *record.DB
}

func (o output) write(ctx context.Context, f record.Frame) error {
	if err := o.text.Write(f.Time, f.Amp); err != nil {
		return errors.Wrap(err, "")
	}
	if err := o.text.Flush(); err != nil {
		return errors.Wrap(err, "")
	}
	if err := o.db.WriteFrame(ctx, f); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// midpointStep advances wf from t by at most dt, under the Hamiltonian at the middle of the step actually taken.
// Steps shortened by the propagator are redone with the Hamiltonian at their own middle.
func midpointStep(wf propagate.WaveFunction, at func(t float64) propagate.Operator, t, dt float64, nk int, opts propagate.Options) (propagate.Step, error) {
	for {
		s, err := propagate.Propagate(wf, at(t+dt/2), nk, dt, opts)
		if err != nil {
			return propagate.Step{}, errors.Wrap(err, "")
		}
		if s.Dt >= dt {
			return s, nil
		}
		dt = s.Dt
	}
}

// run propagates wf under h coupled to the pulse.
func run(ctx context.Context, c Config, h *tbham.Hamiltonian, wf propagate.WaveFunction, out output) error {
	regime, err := propagate.ParseRegime(c.Regime)
	if err != nil {
		return errors.Wrap(err, "")
	}
	opts := propagate.NewOptions().Regime(regime).Tol(c.Tol)
	p := c.Pulse.envelope()
	end := p.Duration() + c.Tail
	at := func(t float64) propagate.Operator {
		return h.ApplyVectorPotential(p.VectorPotential(t)).M
	}

	frames := util.NewThrottler(c.LogEvery, c.FrameInterval)
	progress := util.NewThrottler(0, 5*time.Second)
	t, dt, nk := 0.0, c.Dt, c.NK
	last := record.Frame{Step: 0, Time: t, Dt: dt, NK: nk, Norm: wf.Norm(), Amp: wf.Vec}
	if err := out.write(ctx, last); err != nil {
		return errors.Wrap(err, "")
	}
	for step := 1; t < end; step++ {
		dt = min(dt, end-t)
		s, err := midpointStep(wf, at, t, dt, nk, opts)
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("step %d t %g dt %g nk %d", step, t, dt, nk))
		}
		wf = s.WF
		t += s.Dt
		dt, nk = s.DtNext, s.NKNext

		f := record.Frame{Step: step, Time: t, Dt: s.Dt, NK: s.NK, Err: s.Err, Norm: wf.Norm(), Amp: wf.Vec}
		if frames.Ok(step) || t >= end {
			if err := out.write(ctx, f); err != nil {
				return errors.Wrap(err, "")
			}
		}
		if progress.Ok(step) {
			log.Printf("step %d t %g/%g dt %g nk %d err %g norm %.12f", step, t, end, s.Dt, s.NK, s.Err, f.Norm)
		}
	}
	return nil
}

func solve(ctx context.Context, dir string, c Config) error {
	donePath := filepath.Join(dir, fnameDone)
	if _, err := os.Stat(donePath); err == nil {
		log.Printf("%s already done", dir)
		return nil
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}

	h, err := c.Hamiltonian()
	if err != nil {
		return errors.Wrap(err, "")
	}
	if err := writeHamiltonian(filepath.Join(dir, fnameHamiltonian), h); err != nil {
		return errors.Wrap(err, "")
	}
	wf, energy, err := initialState(c, h)
	if err != nil {
		return errors.Wrap(err, "")
	}
	log.Printf("%s %dx%d, initial energy %f eV", c.Lattice, h.Ny, h.Nx, energy)

	text, err := record.CreateTextLog(filepath.Join(dir, fnameTextLog))
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer text.Close()
	db, err := record.OpenDB(filepath.Join(dir, fnameDB))
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer db.Close()

	if err := run(ctx, c, h, wf, output{text: text, db: db}); err != nil {
		return errors.Wrap(err, "")
	}

	if err := os.WriteFile(donePath, nil, 0644); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	if err := mainWithErr(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func mainWithErr() error {
	c, err := LoadConfig(*configPath)
	if err != nil {
		return errors.Wrap(err, "")
	}
	dir := filepath.Join(*runDir, c.Name)
	if err := solve(context.Background(), dir, c); err != nil {
		return errors.Wrap(err, fmt.Sprintf("%#v", c))
	}
	return nil
}
