package domain

// Metrics scores predictions against ground truth.
type Metrics struct {
	// RMSE is the root mean squared error.
	RMSE float64

	// MAE is the mean absolute error.
	MAE float64

	// R2 is the coefficient of determination (variance explained).
	R2 float64
}

// EvaluationRecord is the persisted evaluation of one model version.
type EvaluationRecord struct {
	// ModelID is the version id the metrics belong to.
	ModelID string

	// Seed is the train/test split seed used for the holdout.
	Seed uint64

	Metrics Metrics
}
