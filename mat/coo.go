package mat

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// WriteCSV writes m as a rows,cols header followed by one row,col,value record per stored entry.
func (m *COO) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{strconv.Itoa(m.rows), strconv.Itoa(m.cols)}); err != nil {
		return errors.Wrap(err, "")
	}
	for _, v := range m.Data {
		if err := cw.Write([]string{strconv.Itoa(v.row), strconv.Itoa(v.col), FormatNumpy(v.v)}); err != nil {
			return errors.Wrap(err, "")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// ReadCSV reads a matrix written by WriteCSV.
func ReadCSV(r io.Reader) (*COO, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "header")
	}
	if len(header) != 2 {
		return nil, errors.Errorf("header %#v", header)
	}
	rows, err := strconv.Atoi(header[0])
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("%#v", header))
	}
	cols, err := strconv.Atoi(header[1])
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("%#v", header))
	}
	m := COOZeros(rows, cols)

	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("line %d", line))
		}
		v, err := parseEntry(record)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("line %d", line))
		}
		if v.row < 0 || v.row >= rows || v.col < 0 || v.col >= cols {
			return nil, errors.Errorf("line %d: %d %d outside %dx%d", line, v.row, v.col, rows, cols)
		}
		if n := len(m.Data); n > 0 && rowMajor(m.Data[n-1], v) >= 0 {
			return nil, errors.Errorf("line %d: not row major at %d %d", line, v.row, v.col)
		}
		m.Data = append(m.Data, v)
	}
	return m, nil
}

func parseEntry(record []string) (vRowCol, error) {
	if len(record) != 3 {
		return vRowCol{}, errors.Errorf("%#v", record)
	}
	row, err := strconv.Atoi(record[0])
	if err != nil {
		return vRowCol{}, errors.Wrap(err, "")
	}
	col, err := strconv.Atoi(record[1])
	if err != nil {
		return vRowCol{}, errors.Wrap(err, "")
	}
	v, err := ParseNumpy(record[2])
	if err != nil {
		return vRowCol{}, errors.Wrap(err, "")
	}
	if v == 0 {
		return vRowCol{}, errors.Errorf("explicit zero at %d %d", row, col)
	}
	return vRowCol{v: v, row: row, col: col}, nil
}

// FormatNumpy formats v so that numpy and Python's complex() can parse it.
func FormatNumpy(v complex128) string {
	switch {
	case imag(v) == 0:
		return strconv.FormatFloat(real(v), 'g', -1, 64)
	default:
		s := strconv.FormatComplex(v, 'g', -1, 128)
		s = strings.ReplaceAll(s, "i", "j")
		return s
	}
}

// ParseNumpy parses a number formatted by FormatNumpy or numpy.
func ParseNumpy(s string) (complex128, error) {
	v, err := strconv.ParseComplex(strings.ReplaceAll(strings.TrimSpace(s), "j", "i"), 128)
	if err != nil {
		return 0, errors.Wrap(err, "")
	}
	return v, nil
}
