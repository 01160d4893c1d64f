// Package mlearn implements the fitted estimator used for study-time
// prediction: column-wise preprocessing (mean imputation + standardization
// for numeric columns, constant imputation + one-hot encoding for
// categorical columns) composed with a bootstrap-aggregated ensemble of
// regression trees.
//
// Everything is seeded and deterministic for a given seed: the train/test
// split, each tree's bootstrap resample, and the resulting predictions.
// Determinism holds across runs but is not guaranteed bit-identical across
// Go releases.
//
// Note on CrossValR2: folds are cut from the full dataset, including rows a
// caller may also use as a held-out split. The overlap makes cv_r2 mildly
// optimistic, so treat it as a secondary estimate beside the held-out metrics.
package mlearn
