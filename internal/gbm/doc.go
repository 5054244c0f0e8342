// Package gbm implements gradient-boosted regression trees.
//
// Trees are grown depth-wise with squared-error loss, histogram split
// finding and L2-regularised leaf weights, following the XGBoost "hist"
// method. A trained Model can be extended with more boosting rounds on new
// data (warm start) without changing the original.
//
// Training is deterministic: identical inputs and parameters always produce
// identical trees. Models round-trip through JSON bit-identically.
package gbm
