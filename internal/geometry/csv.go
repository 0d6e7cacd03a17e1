package geometry

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/tkal/internal/detid"
)

// csvHeader is the column layout of a geometry dump: raw id, position and
// the row-major rotation.
var csvHeader = []string{"raw_id", "x", "y", "z", "xx", "xy", "xz", "yx", "yy", "yz", "zx", "zy", "zz"}

// LoadCSVFile reads a geometry dump from path.
func LoadCSVFile(path string) (*Tracker, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".csv" {
		return nil, fmt.Errorf("geometry file must have .csv extension, got %q", ext)
	}
	f, err := os.Open(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open geometry file: %w", err)
	}
	defer f.Close()
	return LoadCSV(f)
}

// LoadCSV parses a geometry dump. A header row is optional; lines starting
// with '#' are ignored. Every rotation is validated.
func LoadCSV(r io.Reader) (*Tracker, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = len(csvHeader)
	cr.TrimLeadingSpace = true

	t := &Tracker{}
	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read geometry csv: %w", err)
		}
		line++
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), csvHeader[0]) {
			continue
		}
		d, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("geometry csv record %d: %w", line, err)
		}
		t.Dets = append(t.Dets, d)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func parseRecord(rec []string) (Det, error) {
	raw, err := strconv.ParseUint(strings.TrimSpace(rec[0]), 10, 32)
	if err != nil {
		return Det{}, fmt.Errorf("failed to parse raw_id: %w", err)
	}
	vals := make([]float64, len(rec)-1)
	for i, s := range rec[1:] {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return Det{}, fmt.Errorf("failed to parse %s: %w", csvHeader[i+1], err)
		}
		vals[i] = v
	}
	return Det{
		ID:       detid.DetID(raw),
		Position: r3.Vec{X: vals[0], Y: vals[1], Z: vals[2]},
		Rotation: mat.NewDense(3, 3, vals[3:]),
	}, nil
}

// WriteCSV writes t as a geometry dump with a header row.
func WriteCSV(w io.Writer, t *Tracker) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, d := range t.Dets {
		rec := make([]string, 0, len(csvHeader))
		rec = append(rec, strconv.FormatUint(uint64(d.ID), 10), f(d.Position.X), f(d.Position.Y), f(d.Position.Z))
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				rec = append(rec, f(d.Rotation.At(i, j)))
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
