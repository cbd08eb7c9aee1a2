// Package types defines the core data types for contradiction analysis.
//
// Sentences are plain strings addressed by their position in the segmented input.
// This package contains the other types used throughout contradict:
//   - CandidatePair: an unordered sentence pair that survived similarity pruning
//   - ScoredPair: a candidate pair with bidirectional contradiction probabilities
//   - Contradiction: a ranked, immutable contradiction record
//   - AnalysisResult: the structured result returned by the engine
//   - Options: per-call analysis settings
//
// # Invariants
//
// For every Contradiction in an AnalysisResult:
//   - both sentence indices are within [0, len(Sentences)) and differ
//   - no two records share the same unordered index pair
//   - Confidence lies in [0, 1] and is rounded to four decimals
//   - IDs are dense (1..N) and follow descending confidence
//
// # Errors
//
// The error taxonomy (InputError, ConfigError, EncodingError, ScoringError) supports
// errors.Is against both the sentinel values and zero-value error structs:
//
//	if errors.Is(err, &types.EncodingError{}) {
//	    // retry with the similarity filter disabled
//	}
//
// # JSON Serialization
//
// All result types are JSON-serializable with snake_case tags matching the HTTP boundary.
package types
