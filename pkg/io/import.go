package io

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/matzehuels/rankbars/pkg/snapshot"
)

// Column order of market cap CSV files. The header row is skipped, so the
// order is fixed by position rather than by header names.
const (
	colRank = iota
	colName
	colValue
	colDisplay
	colLogo
	colColor
)

var (
	valueJunkRe   = regexp.MustCompile(`[^0-9.E+\-]`)
	floatPrefixRe = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)(E[+-]?\d+)?`)
	intPrefixRe   = regexp.MustCompile(`^[+-]?\d+`)
)

// ReadCSV decodes a market cap CSV from r into a snapshot sorted by value
// descending.
//
// The first line is a header and is skipped. Columns are read by position:
// rank, company_name, market_cap_usd, market_cap_display, logo_url,
// primary_hex. Missing trailing columns are treated as empty.
//
// Values are cleaned of every character other than digits, '.', 'E', '+'
// and '-' before parsing; a value that still cannot be parsed becomes 0.
// A rank that does not start with an integer becomes 0 (absent). Keys are
// normalized with [snapshot.NormalizeKey]. Rows are not validated here;
// rendering and diffing filter invalid records themselves.
//
// ReadCSV does not close r.
func ReadCSV(r io.Reader) (snapshot.Snapshot, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var out snapshot.Snapshot
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if line == 1 {
			continue
		}
		out = append(out, snapshot.Record{
			Key:          snapshot.NormalizeKey(field(rec, colName)),
			Rank:         ParseRank(field(rec, colRank)),
			Value:        ParseValue(field(rec, colValue)),
			DisplayValue: strings.TrimSpace(field(rec, colDisplay)),
			ImageRef:     strings.TrimSpace(field(rec, colLogo)),
			AccentColor:  strings.TrimSpace(field(rec, colColor)),
		})
	}
	return out.ByValue(), nil
}

// ImportCSV reads a CSV file at path using [ReadCSV].
func ImportCSV(path string) (snapshot.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	s, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return s, nil
}

func field(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}

// ParseValue cleans a market cap cell and parses the longest numeric
// prefix. "$1,234.5" yields 1234.5; "n/a" and "" yield 0.
func ParseValue(raw string) float64 {
	cleaned := valueJunkRe.ReplaceAllString(raw, "")
	m := floatPrefixRe.FindString(cleaned)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil && !math.IsInf(v, 0) {
		return 0
	}
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// ParseRank parses the leading integer of a rank cell. "3" and "3rd"
// yield 3; "" and "-" yield 0.
func ParseRank(raw string) int {
	m := intPrefixRe.FindString(strings.TrimSpace(raw))
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

// ReadJSON decodes a snapshot document from r. The input is either a
// [Document] object or a bare array of records.
func ReadJSON(r io.Reader) (*Document, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	var doc Document
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(raw, &doc.Data); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
	} else if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	for i := range doc.Data {
		doc.Data[i].Key = snapshot.NormalizeKey(doc.Data[i].Key)
	}
	doc.TotalCompanies = len(doc.Data)
	return &doc, nil
}

// ImportJSON reads a JSON file at path using [ReadJSON].
func ImportJSON(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}

// Import reads a snapshot file, choosing the decoder by extension:
// .json files use [ImportJSON], everything else [ImportCSV].
func Import(path string) (snapshot.Snapshot, error) {
	if strings.EqualFold(extension(path), ".json") {
		doc, err := ImportJSON(path)
		if err != nil {
			return nil, err
		}
		return doc.Data, nil
	}
	return ImportCSV(path)
}

func extension(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 && !strings.ContainsAny(path[i:], `/\`) {
		return path[i:]
	}
	return ""
}
