// Package core defines the shared language of the LeapCurate system.
//
// This package contains:
//   - Taxonomy entities (Category, Taxonomy)
//   - Evidence entities (TraceRecord, DialogueStep)
//   - Triage entities (CandidateItem, Outcome)
//   - Graph output (GraphNode, GraphEdge, Graph)
//   - Coverage output (CoverageDimension, CoverageStats)
//   - Batch job reflection (JobState, BatchStatus, BatchConfig)
//   - User-visible notices (Notice)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
