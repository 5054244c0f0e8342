package domain

// FeatureNames is the fixed column order of an encoded feature vector.
var FeatureNames = []string{
	ColumnCarat, ColumnDepth, ColumnTable, ColumnX, ColumnY, ColumnZ,
	"cut_encoded", "color_encoded", "clarity_encoded",
}

// FeatureSet is an encoded dataset ready for fitting.
type FeatureSet struct {
	// Rows holds one feature vector per kept record, in FeatureNames order.
	Rows [][]float64

	// Target holds the price of each row.
	Target []float64
}

// Len returns the number of rows.
func (f FeatureSet) Len() int {
	return len(f.Rows)
}

// EncodeStats records how many rows an encoding pass kept and why the
// others were dropped.
type EncodeStats struct {
	Considered     int
	Kept           int
	DroppedMissing int
	DroppedPrice   int
	DroppedSize    int
	DroppedUnknown int

	// DroppedMalformed counts rows the reader skipped before encoding.
	DroppedMalformed int
}

// Dropped returns the total number of dropped rows.
func (s EncodeStats) Dropped() int {
	return s.DroppedMissing + s.DroppedPrice + s.DroppedSize + s.DroppedUnknown + s.DroppedMalformed
}
