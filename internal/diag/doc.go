// Package diag defines the diagnostic model shared by every layer of the
// engine: the declaration compiler, generator runs, skeleton builds, and
// project/manifest validation.
//
// Diagnostic is the central record: Severity, a stable numeric Code (see
// codes.go for the range layout), a short message, the primary source.Span,
// and optional Notes adding secondary context. Producers emit through a
// Reporter so they never couple to storage; BagReporter aggregates into a
// Bag, which supports sorting, deduplication, and merging across projects.
//
// The model stays data-only and deterministic. Rendering lives in
// internal/diagfmt; orchestration lives in internal/workspace. Bags that are
// published on snapshots are immutable by convention; mutate clones only.
package diag
