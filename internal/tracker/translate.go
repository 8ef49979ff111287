package tracker

import (
	"context"
	"fmt"

	"ripple/internal/project"
	"ripple/internal/source"
	"ripple/internal/syntax"
	"ripple/internal/unit"
)

// Action is an immutable description of how a forked state diverged from
// its parent. The delta is captured at fork time, so applying it later
// needs no diffing. A chain of incremental actions, replayed in order on a
// memoized ancestor unit, must land on a unit equivalent to compiling the
// new state from scratch.
type Action interface {
	String() string
	// Incremental reports whether Apply can carry a parent unit forward.
	// Non-incremental actions force a fresh compile.
	Incremental() bool
	// Apply replays the delta on a unit compiled for the parent state.
	Apply(ctx context.Context, old *unit.Unit) (*unit.Unit, error)
}

// TouchDocument replays an in-place text edit of one document.
type TouchDocument struct {
	Doc  source.DocumentID
	Text *source.Text
}

func (a TouchDocument) String() string    { return "touch " + a.Doc.Short() }
func (a TouchDocument) Incremental() bool { return true }

func (a TouchDocument) Apply(ctx context.Context, old *unit.Unit) (*unit.Unit, error) {
	prev, ok := old.TreeFor(a.Doc)
	if !ok {
		return nil, fmt.Errorf("touch %s: document has no tree in the parent unit", a.Doc.Short())
	}
	return old.ReplaceSyntaxTree(ctx, prev, syntax.NewTree(a.Doc, a.Text))
}

// AddDocuments replays the addition of authored documents.
type AddDocuments struct {
	Docs []project.DocumentState
}

func (a AddDocuments) String() string    { return fmt.Sprintf("add %d documents", len(a.Docs)) }
func (a AddDocuments) Incremental() bool { return true }

func (a AddDocuments) Apply(ctx context.Context, old *unit.Unit) (*unit.Unit, error) {
	trees := make([]*syntax.Tree, len(a.Docs))
	for i, d := range a.Docs {
		trees[i] = syntax.NewTree(d.ID, d.Text)
	}
	return old.AddSyntaxTrees(ctx, trees...)
}

// RemoveDocuments replays the removal of authored documents.
type RemoveDocuments struct {
	IDs []source.DocumentID
}

func (a RemoveDocuments) String() string    { return fmt.Sprintf("remove %d documents", len(a.IDs)) }
func (a RemoveDocuments) Incremental() bool { return true }

func (a RemoveDocuments) Apply(ctx context.Context, old *unit.Unit) (*unit.Unit, error) {
	trees := make([]*syntax.Tree, len(a.IDs))
	for i, id := range a.IDs {
		t, ok := old.TreeFor(id)
		if !ok {
			return nil, fmt.Errorf("remove %s: document has no tree in the parent unit", id.Short())
		}
		trees[i] = t
	}
	return old.RemoveSyntaxTrees(ctx, trees...)
}

// ReplaceAll marks a delta too coarse to replay: reference or language
// changes, or a state with no usable relation to the parent.
type ReplaceAll struct {
	Reason string
}

func (a ReplaceAll) String() string {
	if a.Reason == "" {
		return "replace-all"
	}
	return "replace-all (" + a.Reason + ")"
}

func (a ReplaceAll) Incremental() bool { return false }

func (a ReplaceAll) Apply(context.Context, *unit.Unit) (*unit.Unit, error) {
	return nil, fmt.Errorf("%s is not replayable", a)
}
