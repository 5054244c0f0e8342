// Package features turns raw diamond records into ordinal-encoded feature
// vectors. Encoding is a pure function of the fixed ordinal tables in the
// domain package, so repeated runs over the same input are identical.
package features

import (
	"fmt"

	"github.com/custodia-labs/carat/internal/core/domain"
)

var (
	cutRanks     = ranks(domain.CutLevels)
	colorRanks   = ranks(domain.ColorLevels)
	clarityRanks = ranks(domain.ClarityLevels)
)

// ranks maps each level to its 1-indexed position.
func ranks(levels []string) map[string]float64 {
	m := make(map[string]float64, len(levels))
	for i, level := range levels {
		m[level] = float64(i + 1)
	}
	return m
}

// Encode filters invalid rows out of table and encodes the rest.
//
// Rows are dropped, in order, for: any missing value, negative price, any
// non-positive dimension, any categorical value outside its ordinal table.
// Row-level problems never fail the call; only absent columns do, with a
// *domain.SchemaError.
func Encode(table *domain.RawTable) (domain.FeatureSet, domain.EncodeStats, error) {
	var stats domain.EncodeStats
	if table == nil {
		return domain.FeatureSet{}, stats, &domain.SchemaError{Missing: domain.RequiredColumns}
	}
	if err := table.ValidateSchema(); err != nil {
		return domain.FeatureSet{}, stats, err
	}

	set := domain.FeatureSet{
		Rows:   make([][]float64, 0, len(table.Records)),
		Target: make([]float64, 0, len(table.Records)),
	}
	for _, rec := range table.Records {
		stats.Considered++
		switch {
		case rec.HasMissing():
			stats.DroppedMissing++
			continue
		case rec.Price < 0:
			stats.DroppedPrice++
			continue
		case rec.X <= 0 || rec.Y <= 0 || rec.Z <= 0:
			stats.DroppedSize++
			continue
		}
		row, ok := encode(rec)
		if !ok {
			stats.DroppedUnknown++
			continue
		}
		set.Rows = append(set.Rows, row)
		set.Target = append(set.Target, rec.Price)
		stats.Kept++
	}
	stats.Considered += table.Malformed
	stats.DroppedMalformed = table.Malformed
	return set, stats, nil
}

// EncodeRecord encodes a single record for prediction. The price is ignored.
func EncodeRecord(rec domain.RawRecord) ([]float64, error) {
	rec.Price = 0
	if rec.HasMissing() {
		return nil, fmt.Errorf("%w: record has missing fields", domain.ErrInvalidInput)
	}
	row, ok := encode(rec)
	if !ok {
		return nil, fmt.Errorf("%w: unknown grade cut=%q color=%q clarity=%q",
			domain.ErrInvalidInput, rec.Cut, rec.Color, rec.Clarity)
	}
	return row, nil
}

func encode(rec domain.RawRecord) ([]float64, bool) {
	cut, ok := cutRanks[rec.Cut]
	if !ok {
		return nil, false
	}
	color, ok := colorRanks[rec.Color]
	if !ok {
		return nil, false
	}
	clarity, ok := clarityRanks[rec.Clarity]
	if !ok {
		return nil, false
	}
	return []float64{
		rec.Carat, rec.Depth, rec.Table, rec.X, rec.Y, rec.Z,
		cut, color, clarity,
	}, true
}
