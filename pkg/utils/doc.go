// Package utils provides vector math and panic recovery helpers shared by the
// contradiction pipeline.
//
//   - Vector helpers (vector.go): normalisation, cosine similarity, the pairwise
//     similarity matrix and bounded top-k selection
//   - Panic recovery (recovery.go): converting panics inside pipeline stages into errors
package utils
