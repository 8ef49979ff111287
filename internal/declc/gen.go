package declc

import (
	"context"
	"fmt"
	"strings"

	"ripple/internal/gen"
	"ripple/internal/source"
)

// BuildInfo is the stock generator: it derives a declaration document
// describing the project build surface (a BuildInfo type and an info
// function). Output depends only on the project state, so regeneration
// after unrelated edits is byte-stable.
type BuildInfo struct{}

func (BuildInfo) Name() string { return "buildinfo" }

func (BuildInfo) Generate(_ context.Context, in gen.Input) ([]gen.Output, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "module %s\n", in.State.Name())
	sb.WriteString("pub type BuildInfo\n")
	sb.WriteString("pub fn build.info/0\n")
	return []gen.Output{{Hint: "buildinfo.rpl", Text: source.NewTextFromString(sb.String())}}, nil
}
