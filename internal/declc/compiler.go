package declc

import (
	"context"

	"ripple/internal/project"
	"ripple/internal/syntax"
	"ripple/internal/unit"
)

// Compiler adapts the declaration front end to the engine's compile
// capability: one tree per authored document, bound by a Binder that the
// unit keeps for incremental replays.
type Compiler struct{}

func New() *Compiler { return &Compiler{} }

func (c *Compiler) CompileFrom(ctx context.Context, st *project.State, refs []*unit.ExternalRef) (*unit.Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	docs := st.Documents()
	trees := make([]*syntax.Tree, 0, docs.Len())
	for _, d := range docs.All() {
		trees = append(trees, syntax.NewTree(d.ID, d.Text))
	}
	binder := &Binder{Module: st.Name(), Version: st.Version()}
	module, bag, err := binder.Bind(ctx, st.ID(), trees, refs)
	if err != nil {
		return nil, err
	}
	return unit.New(unit.Config{
		Project:      st.ID(),
		AllowDynamic: st.Language().AllowDynamic,
		Trees:        trees,
		Module:       module,
		Refs:         refs,
		Diags:        bag,
		Binder:       binder,
	}), nil
}
