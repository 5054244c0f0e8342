package domain

import "math"

// Dataset column names.
const (
	ColumnCut     = "cut"
	ColumnColor   = "color"
	ColumnClarity = "clarity"
	ColumnCarat   = "carat"
	ColumnDepth   = "depth"
	ColumnTable   = "table"
	ColumnPrice   = "price"
	ColumnX       = "x"
	ColumnY       = "y"
	ColumnZ       = "z"
)

// RequiredColumns lists every column a dataset must carry.
var RequiredColumns = []string{
	ColumnCut, ColumnColor, ColumnClarity,
	ColumnCarat, ColumnDepth, ColumnTable, ColumnPrice,
	ColumnX, ColumnY, ColumnZ,
}

// Ordinal ranks for the categorical columns, best grade first.
// The order is part of the model's contract: changing it invalidates every
// persisted model.
var (
	CutLevels     = []string{"Ideal", "Premium", "Very Good", "Good", "Fair"}
	ColorLevels   = []string{"D", "E", "F", "G", "H", "I", "J"}
	ClarityLevels = []string{"IF", "VVS1", "VVS2", "VS1", "VS2", "SI1", "SI2", "I1"}
)

// RawRecord is one diamond sample as read from a dataset.
// Missing numeric values are NaN; missing categorical values are empty.
type RawRecord struct {
	Cut     string
	Color   string
	Clarity string
	Carat   float64
	Depth   float64
	Table   float64
	Price   float64
	X       float64
	Y       float64
	Z       float64
}

// HasMissing reports whether any field of the record is missing.
func (r RawRecord) HasMissing() bool {
	if r.Cut == "" || r.Color == "" || r.Clarity == "" {
		return true
	}
	for _, v := range []float64{r.Carat, r.Depth, r.Table, r.Price, r.X, r.Y, r.Z} {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// RawTable is a loaded dataset: its header and its rows.
type RawTable struct {
	// Source is where the table was read from, for logging.
	Source string

	// Columns is the header as found in the source.
	Columns []string

	// Records holds the rows in source order.
	Records []RawRecord

	// Malformed counts rows the reader could not parse and skipped.
	Malformed int
}

// MissingColumns returns the required columns absent from the header.
func (t *RawTable) MissingColumns() []string {
	present := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		present[c] = true
	}
	var missing []string
	for _, c := range RequiredColumns {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	return missing
}

// ValidateSchema returns a *SchemaError if required columns are absent.
func (t *RawTable) ValidateSchema() error {
	if missing := t.MissingColumns(); len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}

// Len returns the number of rows.
func (t *RawTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}
