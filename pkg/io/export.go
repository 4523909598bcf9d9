package io

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/matzehuels/rankbars/pkg/snapshot"
)

// Document is the JSON shape of one period's snapshot. It matches the
// body of GET /api/companies/{year}.
type Document struct {
	Year           int               `json:"year,omitempty"`
	TotalCompanies int               `json:"totalCompanies"`
	Data           snapshot.Snapshot `json:"data"`
}

// NewDocument wraps s for export. Data is never nil so that it encodes as
// an empty array.
func NewDocument(year int, s snapshot.Snapshot) Document {
	if s == nil {
		s = snapshot.Snapshot{}
	}
	return Document{Year: year, TotalCompanies: len(s), Data: s}
}

// WriteJSON encodes doc as indented JSON and writes it to w.
// The output can be re-imported with [ReadJSON].
func WriteJSON(doc Document, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes doc to a JSON file at path.
func ExportJSON(doc Document, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(doc, f)
}

var csvHeader = []string{"rank", "company_name", "market_cap_usd", "market_cap_display", "logo_url", "primary_hex"}

// WriteCSV writes s in the column order read by [ReadCSV], header first.
// Absent ranks are written as empty cells.
func WriteCSV(s snapshot.Snapshot, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range s {
		rank := ""
		if r.HasRank() {
			rank = strconv.Itoa(r.Rank)
		}
		row := []string{
			rank,
			r.Key,
			strconv.FormatFloat(r.Value, 'f', -1, 64),
			r.DisplayValue,
			r.ImageRef,
			r.AccentColor,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write %s: %w", r.Key, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
