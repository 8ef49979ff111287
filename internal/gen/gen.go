// Package gen defines the generator pass consumed by compilation trackers:
// registered generators derive documents from a project's authored state,
// and a Runner executes them deterministically, collecting outputs,
// diagnostics and host-side bookkeeping of the genuine run.
package gen

import (
	"context"
	"time"

	"ripple/internal/diag"
	"ripple/internal/project"
	"ripple/internal/source"
)

// Generator derives documents from authored project state. Implementations
// must be deterministic: the tracker memoizes one pass per state and treats
// equal inputs as producing equal outputs.
type Generator interface {
	Name() string
	Generate(ctx context.Context, in Input) ([]Output, error)
}

// Input is the view of the project a generator may read.
type Input struct {
	State    *project.State
	Reporter diag.Reporter
}

// Output is one produced document: the hint is the generator-chosen stable
// name that survives regeneration and keys the derived document identity.
type Output struct {
	Hint string
	Text *source.Text
}

// Stats is per-generator host bookkeeping.
type Stats struct {
	Name    string
	Outputs int
	Elapsed time.Duration
	Failed  bool
}

// RunResult is host-side data tied one-to-one to a genuine generator run.
// Frozen overlays must refuse to hand it out: overlaid document sets no
// longer correspond to any real run.
type RunResult struct {
	Stamp   time.Time
	Elapsed time.Duration
	Stats   []Stats
}

// Result is the complete outcome of one generator pass.
type Result struct {
	Docs  *project.GeneratedSet
	Diags *diag.Bag
	Host  *RunResult
}

// noSpan targets project-level generator diagnostics.
var noSpan = source.Span{}
