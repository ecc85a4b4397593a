package record

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/facette/natsort"
	"github.com/pkg/errors"
)

const bandsExt = ".dat"

// Bands is the content of one band structure file.
type Bands struct {
	Name string
	K    []float64
	// E is indexed by k-point then band.
	E [][]float64
}

// WriteBands writes one row per k-point, the wavevector followed by the energies.
func WriteBands(path string, ks []float64, energies [][]float64) error {
	if len(ks) != len(energies) {
		return errors.Errorf("%d k-points, %d rows", len(ks), len(energies))
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "")
	}
	w := bufio.NewWriter(f)
	for i, k := range ks {
		fields := make([]string, 0, 1+len(energies[i]))
		fields = append(fields, fmt.Sprintf("%12.6G", k))
		for _, e := range energies[i] {
			fields = append(fields, fmt.Sprintf("%12.6G", e))
		}
		if _, err1 := w.WriteString(strings.Join(fields, " ") + "\n"); err1 != nil && err == nil {
			err = errors.Wrap(err1, "")
			break
		}
	}
	if err1 := w.Flush(); err1 != nil && err == nil {
		err = errors.Wrap(err1, "")
	}
	if err1 := f.Close(); err1 != nil && err == nil {
		err = errors.Wrap(err1, "")
	}
	return err
}

// ReadBands reads a file written by WriteBands.
func ReadBands(path string) (Bands, error) {
	f, err := os.Open(path)
	if err != nil {
		return Bands{}, errors.Wrap(err, "")
	}
	defer f.Close()

	b := Bands{Name: strings.TrimSuffix(filepath.Base(path), bandsExt)}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for lineI := 0; scanner.Scan(); lineI++ {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		row := make([]float64, 0, len(fields))
		for _, s := range fields {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return Bands{}, errors.Wrap(err, fmt.Sprintf("line %d", lineI))
			}
			row = append(row, v)
		}
		b.K = append(b.K, row[0])
		b.E = append(b.E, row[1:])
	}
	if err := scanner.Err(); err != nil {
		return Bands{}, errors.Wrap(err, "")
	}
	return b, nil
}

// GatherBands reads every band file in dir in natural order of their names.
func GatherBands(dir string) ([]Bands, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	names := make([]string, 0, len(entries))
	for _, ent := range entries {
		if ent.IsDir() || filepath.Ext(ent.Name()) != bandsExt {
			continue
		}
		names = append(names, ent.Name())
	}
	sort.Slice(names, func(i, j int) bool { return natsort.Compare(names[i], names[j]) })

	bands := make([]Bands, 0, len(names))
	for _, name := range names {
		b, err := ReadBands(filepath.Join(dir, name))
		if err != nil {
			return nil, errors.Wrap(err, name)
		}
		bands = append(bands, b)
	}
	return bands, nil
}

// Gap returns the distance between the highest energy at or below e and the lowest energy above it, across all k-points.
func (b Bands) Gap(e float64) float64 {
	below, above := math.Inf(-1), math.Inf(1)
	for _, row := range b.E {
		for _, v := range row {
			switch {
			case v <= e:
				below = max(below, v)
			default:
				above = min(above, v)
			}
		}
	}
	return above - below
}
