package record

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const (
	tableFrame = "frame"
	tableAmp   = "amp"

	dbTimeout = 3 * time.Second
)

// Frame is the state of a propagation after Step steps.
type Frame struct {
	Step int
	Time float64
	Dt   float64
	NK   int
	// Err is the estimated error of the step that produced the frame.
	Err  float64
	Norm float64

	Amp []complex128
}

// DB stores frames in SQLite.
type DB struct {
	Path string

	db *sql.DB
}

// OpenDB opens or creates the database at path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	if err := prepareDB(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "")
	}
	return &DB{Path: path, db: db}, nil
}

func prepareDB(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()
	sqlStrs := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (step INTEGER PRIMARY KEY, t REAL, dt REAL, nk INTEGER, err REAL, norm REAL) STRICT`, tableFrame),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (step INTEGER, i INTEGER, re REAL, im REAL, PRIMARY KEY (step, i)) STRICT`, tableAmp),
	}
	for _, sqlStr := range sqlStrs {
		if _, err := db.ExecContext(ctx, sqlStr); err != nil {
			return errors.Wrap(err, sqlStr)
		}
	}
	return nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// WriteFrame replaces any frame with the same step.
func (d *DB) WriteFrame(ctx context.Context, f Frame) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "")
	}
	if err := writeFrame(ctx, tx, f); err != nil {
		tx.Rollback()
		return errors.Wrap(err, fmt.Sprintf("step %d", f.Step))
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func writeFrame(ctx context.Context, tx *sql.Tx, f Frame) error {
	sqlStr := fmt.Sprintf(`INSERT OR REPLACE INTO %s (step, t, dt, nk, err, norm) VALUES (?, ?, ?, ?, ?, ?)`, tableFrame)
	if _, err := tx.ExecContext(ctx, sqlStr, f.Step, f.Time, f.Dt, f.NK, f.Err, f.Norm); err != nil {
		return errors.Wrap(err, sqlStr)
	}

	sqlStr = fmt.Sprintf(`DELETE FROM %s WHERE step=?`, tableAmp)
	if _, err := tx.ExecContext(ctx, sqlStr, f.Step); err != nil {
		return errors.Wrap(err, sqlStr)
	}
	sqlStr = fmt.Sprintf(`INSERT INTO %s (step, i, re, im) VALUES (?, ?, ?, ?)`, tableAmp)
	stmt, err := tx.PrepareContext(ctx, sqlStr)
	if err != nil {
		return errors.Wrap(err, sqlStr)
	}
	defer stmt.Close()
	for i, v := range f.Amp {
		if _, err := stmt.ExecContext(ctx, f.Step, i, real(v), imag(v)); err != nil {
			return errors.Wrap(err, fmt.Sprintf("%d", i))
		}
	}
	return nil
}

// ReadFrame returns the frame at step, or sql.ErrNoRows wrapped if there is none.
func (d *DB) ReadFrame(ctx context.Context, step int) (Frame, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	f := Frame{Step: step}
	sqlStr := fmt.Sprintf(`SELECT t, dt, nk, err, norm FROM %s WHERE step=?`, tableFrame)
	if err := d.db.QueryRowContext(ctx, sqlStr, step).Scan(&f.Time, &f.Dt, &f.NK, &f.Err, &f.Norm); err != nil {
		return Frame{}, errors.Wrap(err, fmt.Sprintf("step %d", step))
	}

	sqlStr = fmt.Sprintf(`SELECT i, re, im FROM %s WHERE step=? ORDER BY i`, tableAmp)
	rows, err := d.db.QueryContext(ctx, sqlStr, step)
	if err != nil {
		return Frame{}, errors.Wrap(err, "")
	}
	defer rows.Close()
	f.Amp = make([]complex128, 0)
	for rows.Next() {
		var i int
		var re, im float64
		if err := rows.Scan(&i, &re, &im); err != nil {
			return Frame{}, errors.Wrap(err, "")
		}
		if i != len(f.Amp) {
			return Frame{}, errors.Errorf("step %d missing amplitude %d", step, len(f.Amp))
		}
		f.Amp = append(f.Amp, complex(re, im))
	}
	if err := rows.Err(); err != nil {
		return Frame{}, errors.Wrap(err, "")
	}
	return f, nil
}

// Steps lists the stored steps in increasing order.
func (d *DB) Steps(ctx context.Context) ([]int, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	sqlStr := fmt.Sprintf(`SELECT step FROM %s ORDER BY step`, tableFrame)
	rows, err := d.db.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()

	steps := make([]int, 0)
	for rows.Next() {
		var s int
		if err := rows.Scan(&s); err != nil {
			return nil, errors.Wrap(err, "")
		}
		steps = append(steps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return steps, nil
}
