package incident

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/hotspot.report/internal/fsutil"
	"github.com/banshee-data/hotspot.report/internal/risk"
	"github.com/banshee-data/hotspot.report/internal/timeutil"
)

// Source yields a full incident set. Implementations: CSVSource, and the
// sqlite store.
type Source interface {
	Incidents(ctx context.Context) (Set, error)
}

// CSVSource reads a header-led CSV with columns x, y, date and an optional
// category column. Column order is taken from the header; extra columns
// are ignored.
type CSVSource struct {
	FS       fsutil.FileSystem
	Path     string
	Category string // keep only this category; empty keeps all
	RefYear  int
}

// Incidents parses the file into a sorted Set.
func (s CSVSource) Incidents(ctx context.Context) (Set, error) {
	fsys := s.FS
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	f, err := fsys.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open incidents %s: %w", s.Path, err)
	}
	defer f.Close()

	rows, err := ReadCSV(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("read incidents %s: %w", s.Path, err)
	}
	return NewSet(rows, s.RefYear).OfCategory(s.Category), nil
}

// ReadCSV parses incident rows from r. T is left zero; NewSet assigns it.
// A NaN or infinite coordinate fails with risk.ErrNonFinite and the line
// number.
func ReadCSV(ctx context.Context, r io.Reader) ([]Incident, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("missing header row")
		}
		return nil, err
	}
	cols := make(map[string]int, len(header))
	for k, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = k
	}
	for _, required := range []string{"x", "y", "date"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing %q column in header %v", required, header)
		}
	}
	catCol, hasCat := cols["category"]

	var out []Incident
	for line := 2; ; line++ {
		if line%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		field := func(name string) string {
			k := cols[name]
			if k >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[k])
		}

		x, err := strconv.ParseFloat(field("x"), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: parse x: %w", line, err)
		}
		y, err := strconv.ParseFloat(field("y"), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: parse y: %w", line, err)
		}
		if !risk.Finite(x) || !risk.Finite(y) {
			return nil, fmt.Errorf("line %d: coordinate (%g, %g): %w", line, x, y, risk.ErrNonFinite)
		}
		date, err := timeutil.ParseDate(field("date"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		in := Incident{X: x, Y: y, Date: date}
		if hasCat && catCol < len(rec) {
			in.Category = strings.TrimSpace(rec[catCol])
		}
		out = append(out, in)
	}
	return out, nil
}
