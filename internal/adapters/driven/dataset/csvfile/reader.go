// Package csvfile reads diamond datasets from CSV files with a header row.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/custodia-labs/carat/internal/core/domain"
	"github.com/custodia-labs/carat/internal/core/ports/driven"
	"github.com/custodia-labs/carat/internal/logger"
)

// Ensure Reader implements the interface.
var _ driven.DatasetReader = (*Reader)(nil)

// checkEvery is how many rows are read between context checks.
const checkEvery = 4096

// missingMarkers are cell values read as missing.
var missingMarkers = map[string]bool{
	"": true, "NA": true, "N/A": true, "NaN": true, "nan": true,
	"null": true, "NULL": true, "None": true,
}

// Reader is a driven.DatasetReader for CSV files.
// Extra columns are ignored and column order does not matter.
type Reader struct{}

// NewReader creates a CSV dataset reader.
func NewReader() *Reader {
	return &Reader{}
}

// ReadFile loads the CSV file at path.
func (r *Reader) ReadFile(ctx context.Context, path string) (*domain.RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	return r.Read(ctx, f, path)
}

// Read loads CSV data from in.
func (r *Reader) Read(ctx context.Context, in io.Reader, source string) (*domain.RawTable, error) {
	cr := csv.NewReader(in)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: %w", source, &domain.SchemaError{Missing: domain.RequiredColumns})
		}
		return nil, fmt.Errorf("%s: read header: %w", source, err)
	}

	table := &domain.RawTable{Source: source, Columns: make([]string, len(header))}
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		table.Columns[i] = name
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	if err := table.ValidateSchema(); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	cols := columns{
		cut: index[domain.ColumnCut], color: index[domain.ColumnColor], clarity: index[domain.ColumnClarity],
		carat: index[domain.ColumnCarat], depth: index[domain.ColumnDepth], table: index[domain.ColumnTable],
		price: index[domain.ColumnPrice], x: index[domain.ColumnX], y: index[domain.ColumnY], z: index[domain.ColumnZ],
	}

	for line := 2; ; line++ {
		if line%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			// A broken row costs only itself.
			table.Malformed++
			logger.Debug("skipping malformed row in %s: %v", source, err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", source, err)
		}
		table.Records = append(table.Records, cols.record(row))
	}

	if table.Malformed > 0 {
		logger.Warn("%s: skipped %d malformed rows", source, table.Malformed)
	}
	logger.Debug("read %d rows from %s", len(table.Records), source)
	return table, nil
}

// columns holds the index of each required column in the header.
type columns struct {
	cut, color, clarity int
	carat, depth, table int
	price, x, y, z      int
}

func (c columns) record(row []string) domain.RawRecord {
	return domain.RawRecord{
		Cut:     text(row, c.cut),
		Color:   text(row, c.color),
		Clarity: text(row, c.clarity),
		Carat:   number(row, c.carat),
		Depth:   number(row, c.depth),
		Table:   number(row, c.table),
		Price:   number(row, c.price),
		X:       number(row, c.x),
		Y:       number(row, c.y),
		Z:       number(row, c.z),
	}
}

func cell(row []string, i int) (string, bool) {
	if i >= len(row) || missingMarkers[strings.TrimSpace(row[i])] {
		return "", false
	}
	return row[i], true
}

func text(row []string, i int) string {
	v, _ := cell(row, i)
	return v
}

// number parses a numeric cell. Missing or unparsable cells are NaN.
func number(row []string, i int) float64 {
	v, ok := cell(row, i)
	if !ok {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsInf(f, 0) {
		return math.NaN()
	}
	return f
}
