package io

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/matzehuels/rankbars/pkg/errors"
	"github.com/matzehuels/rankbars/pkg/snapshot"
)

// Dataset is a directory of market_cap_YYYY.csv files covering the years
// First through Last inclusive.
type Dataset struct {
	Dir   string
	First int
	Last  int
}

// NewDataset returns a Dataset reading from dir.
func NewDataset(dir string, first, last int) *Dataset {
	return &Dataset{Dir: dir, First: first, Last: last}
}

// FileName returns the file name holding year's snapshot.
func FileName(year int) string {
	return fmt.Sprintf("market_cap_%d.csv", year)
}

// Years returns the available years in ascending order.
func (d *Dataset) Years() []int {
	if d.Last < d.First {
		return nil
	}
	years := make([]int, 0, d.Last-d.First+1)
	for y := d.First; y <= d.Last; y++ {
		years = append(years, y)
	}
	return years
}

// Has reports whether year is within the available range.
func (d *Dataset) Has(year int) bool {
	return year >= d.First && year <= d.Last
}

// Path returns the CSV path of year.
func (d *Dataset) Path(year int) string {
	return filepath.Join(d.Dir, FileName(year))
}

// Load reads the snapshot of year. Years outside the available range and
// missing files report [errors.ErrCodeNotFound]; malformed files report
// [errors.ErrCodeInvalidFormat].
func (d *Dataset) Load(ctx context.Context, year int) (snapshot.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !d.Has(year) {
		return nil, errors.New(errors.ErrCodeNotFound,
			"data for year %d not found. Available years: %s", year, d.available())
	}

	path := d.Path(year)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeNotFound, "CSV file for year %d not found", year)
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "stat %s", path)
	}

	s, err := ImportCSV(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "read CSV for year %d", year)
	}
	return s, nil
}

// Previous reads the snapshot preceding year. The first available year
// has no predecessor and yields an empty snapshot, as does a missing
// predecessor file.
func (d *Dataset) Previous(ctx context.Context, year int) (snapshot.Snapshot, error) {
	if year <= d.First || year-1 > d.Last {
		return nil, nil
	}
	s, err := d.Load(ctx, year-1)
	if errors.Is(err, errors.ErrCodeNotFound) {
		return nil, nil
	}
	return s, err
}

func (d *Dataset) available() string {
	years := d.Years()
	parts := make([]string, len(years))
	for i, y := range years {
		parts[i] = strconv.Itoa(y)
	}
	return strings.Join(parts, ", ")
}
