// Package analysis implements the statistical analyses behind the assistant's tools.
//
// Every analysis is a pure function over a dataset.Table: it computes a typed
// result and never mutates the table. Each result carries a Text method that
// renders the narrated form shown to users and returned to the language model
// as a tool result.
//
// # Components
//
//   - stats.go: shared numeric kernels (mean, sample standard deviation,
//     percentiles with linear interpolation, Pearson correlation)
//   - describe.go: per-column summary statistics for numeric columns
//   - outliers.go: IQR-based anomaly detection on the sales column
//   - correlation.go: numeric correlations against sales plus mean sales
//     by category for low-cardinality categorical columns
//
// Percentiles interpolate linearly between closest ranks, and standard
// deviation is the sample (n-1) form, so the figures line up with the
// conventions of mainstream dataframe libraries.
package analysis
