// Package record persists propagation frames and band structures.
package record

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/fumin/tbham/mat"
)

const textLogSep = "   "

// TextLog appends one line per frame, the time followed by the wavefunction in numpy notation.
type TextLog struct {
	f *os.File
	w *bufio.Writer
}

// CreateTextLog truncates path.
func CreateTextLog(path string) (*TextLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return &TextLog{f: f, w: bufio.NewWriter(f)}, nil
}

func (l *TextLog) Write(t float64, vec []complex128) error {
	var b strings.Builder
	b.WriteString(strconv.FormatFloat(t, 'g', -1, 64))
	b.WriteString(textLogSep)
	b.WriteString("[")
	for i, v := range vec {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(mat.FormatNumpy(v))
	}
	b.WriteString("]\n")
	if _, err := l.w.WriteString(b.String()); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// Flush makes written frames visible to readers.
func (l *TextLog) Flush() error {
	if err := l.w.Flush(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func (l *TextLog) Close() error {
	err := l.Flush()
	if err1 := l.f.Close(); err1 != nil && err == nil {
		err = errors.Wrap(err1, "")
	}
	return err
}

// ReadTextLog returns the times and wavefunctions of a log written by TextLog.
func ReadTextLog(path string) ([]float64, [][]complex128, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "")
	}
	defer f.Close()

	times := make([]float64, 0)
	vecs := make([][]complex128, 0)
	r := bufio.NewReader(f)
	for lineI := 0; ; lineI++ {
		line, err := r.ReadString('\n')
		if err == io.EOF && line == "" {
			break
		}
		if err != nil && err != io.EOF {
			return nil, nil, errors.Wrap(err, "")
		}

		t, vec, err := parseTextLogLine(strings.TrimRight(line, "\n"))
		if err != nil {
			return nil, nil, errors.Wrap(err, fmt.Sprintf("line %d", lineI))
		}
		times = append(times, t)
		vecs = append(vecs, vec)
	}
	return times, vecs, nil
}

func parseTextLogLine(line string) (float64, []complex128, error) {
	tStr, vecStr, ok := strings.Cut(line, textLogSep)
	if !ok {
		return -1, nil, errors.Errorf("%q", line)
	}
	t, err := strconv.ParseFloat(tStr, 64)
	if err != nil {
		return -1, nil, errors.Wrap(err, "")
	}

	vecStr = strings.TrimSpace(vecStr)
	if !strings.HasPrefix(vecStr, "[") || !strings.HasSuffix(vecStr, "]") {
		return -1, nil, errors.Errorf("%q", vecStr)
	}
	vecStr = vecStr[1 : len(vecStr)-1]
	vec := make([]complex128, 0)
	if vecStr == "" {
		return t, vec, nil
	}
	for _, s := range strings.Split(vecStr, ", ") {
		v, err := mat.ParseNumpy(s)
		if err != nil {
			return -1, nil, errors.Wrap(err, fmt.Sprintf("%q", s))
		}
		vec = append(vec, v)
	}
	return t, vec, nil
}
