// Bands computes the band structure of graphene ribbons of several widths and prints their gaps.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/fumin/tbham"
	"github.com/fumin/tbham/record"
)

var (
	runDir  = flag.String("d", filepath.Join("runs", "bands"), "run directory")
	lattice = flag.String("lattice", tbham.Zigzag.String(), "zigzag or armchair")
	widths  = flag.String("widths", "4,8,12,16,20", "comma separated ribbon widths in sites")
	numK    = flag.Int("k", 101, "number of wave numbers across the Brillouin zone")
	fermi   = flag.Float64("fermi", 0, "energy in eV separating valence and conduction bands")
)

func ribbon(l tbham.Lattice, width int) (*tbham.Hamiltonian, error) {
	// Three slices hold the couplings of every neighbour shell.
	const nx = 3
	switch l {
	case tbham.Zigzag:
		return tbham.NewZigzag(tbham.GrapheneParams(), width, nx)
	case tbham.Armchair:
		return tbham.NewArmchair(tbham.GrapheneParams(), width, nx)
	default:
		return nil, errors.Errorf("lattice %s is not a ribbon", l)
	}
}

func bandsPath(dir string, l tbham.Lattice, width int) string {
	return filepath.Join(dir, fmt.Sprintf("%d_%s.dat", width, l))
}

func solve(dir string, l tbham.Lattice, width, nk int) error {
	path := bandsPath(dir, l, width)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	h, err := ribbon(l, width)
	if err != nil {
		return errors.Wrap(err, "")
	}
	ks := floats.Span(make([]float64, nk), -math.Pi/h.Period, math.Pi/h.Period)
	energies, err := h.BandStructure(ks, 0, 0)
	if err != nil {
		return errors.Wrap(err, "")
	}
	if err := record.WriteBands(path, ks, energies); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func parseWidths(s string) ([]int, error) {
	ws := make([]int, 0)
	for _, f := range strings.Split(s, ",") {
		w, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("%q", s))
		}
		ws = append(ws, w)
	}
	return ws, nil
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	if err := mainWithErr(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func mainWithErr() error {
	l, err := tbham.ParseLattice(*lattice)
	if err != nil {
		return errors.Wrap(err, "")
	}
	ws, err := parseWidths(*widths)
	if err != nil {
		return errors.Wrap(err, "")
	}
	dir := filepath.Join(*runDir, l.String())
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}

	for _, w := range ws {
		if err := solve(dir, l, w, *numK); err != nil {
			return errors.Wrap(err, fmt.Sprintf("width %d", w))
		}
		log.Printf("%s %d", l, w)
	}

	bands, err := record.GatherBands(dir)
	if err != nil {
		return errors.Wrap(err, "")
	}
	fmt.Printf("name,gap\n")
	for _, b := range bands {
		fmt.Printf("%s,%f\n", b.Name, b.Gap(*fermi))
	}
	return nil
}
