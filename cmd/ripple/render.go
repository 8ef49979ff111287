package main

import (
	"encoding/json"
	"fmt"
	"io"

	"ripple/internal/diag"
	"ripple/internal/diagfmt"
	"ripple/internal/project"
	"ripple/internal/workspace"
)

type renderOptions struct {
	format    string
	withNotes bool
	useColor  bool
	quiet     bool
	pathMode  diagfmt.PathMode
	baseDir   string
}

// renderBuild prints a full workspace build in the requested format. The
// workspace bag carries diagnostics that belong to no single project
// (manifest problems, timings).
func renderBuild(out io.Writer, res *workspace.Result, wsBag *diag.Bag, resolve diag.DocResolver, opts renderOptions) error {
	switch opts.format {
	case "pretty":
		renderPretty(out, res, wsBag, resolve, opts)
		return nil
	case "short":
		all := append([]diag.Diagnostic(nil), wsBag.Items()...)
		for i := range res.Projects {
			all = append(all, res.Projects[i].Diags.Items()...)
		}
		output := diag.FormatStable(all, resolve, opts.withNotes)
		if output != "" {
			fmt.Fprintln(out, output)
		}
		return nil
	case "json":
		jsonOpts := diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         opts.pathMode,
			BaseDir:          opts.baseDir,
			IncludeNotes:     opts.withNotes,
		}
		output := make(map[string]diagfmt.DiagnosticsOutput, len(res.Projects)+1)
		output["workspace"] = diagfmt.BuildDiagnosticsOutput(wsBag, resolve, jsonOpts)
		for i := range res.Projects {
			pr := &res.Projects[i]
			output[pr.Name] = diagfmt.BuildDiagnosticsOutput(pr.Diags, resolve, jsonOpts)
		}
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(output); err != nil {
			return fmt.Errorf("failed to encode diagnostics output: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", opts.format)
	}
}

func renderPretty(out io.Writer, res *workspace.Result, wsBag *diag.Bag, resolve diag.DocResolver, opts renderOptions) {
	prettyOpts := diagfmt.PrettyOpts{
		Color:     opts.useColor,
		Context:   2,
		PathMode:  opts.pathMode,
		BaseDir:   opts.baseDir,
		ShowNotes: opts.withNotes,
	}

	printed := false
	if hasVisible(wsBag) {
		fmt.Fprintln(out, "== workspace ==")
		diagfmt.Pretty(out, wsBag, resolve, prettyOpts)
		printed = true
	}
	for i := range res.Projects {
		pr := &res.Projects[i]
		if !hasVisible(pr.Diags) {
			continue
		}
		if printed {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "== %s ==\n", pr.Name)
		diagfmt.Pretty(out, pr.Diags, resolve, prettyOpts)
		printed = true
	}

	if opts.quiet {
		return
	}
	errs, warns := tallySeverities(res, wsBag)
	if errs == 0 && warns == 0 {
		fmt.Fprintf(out, "checked %d projects: ok\n", len(res.Projects))
		return
	}
	fmt.Fprintf(out, "checked %d projects: %d errors, %d warnings\n", len(res.Projects), errs, warns)
}

func hasVisible(bag *diag.Bag) bool {
	for _, d := range bag.Items() {
		if d.Severity != diag.SevHidden {
			return true
		}
	}
	return false
}

func tallySeverities(res *workspace.Result, wsBag *diag.Bag) (errs, warns int) {
	count := func(bag *diag.Bag) {
		for _, d := range bag.Items() {
			switch d.Severity {
			case diag.SevError:
				errs++
			case diag.SevWarning:
				warns++
			}
		}
	}
	count(wsBag)
	for i := range res.Projects {
		count(res.Projects[i].Diags)
	}
	return errs, warns
}

// snapshotResolver builds a document resolver over the snapshot's current
// states, so re-forked snapshots render against their own text.
func snapshotResolver(snap *workspace.Snapshot) diag.DocResolver {
	states := make([]*project.State, 0)
	for _, id := range snap.Projects() {
		if st, ok := snap.State(id); ok {
			states = append(states, st)
		}
	}
	return workspaceResolver(states)
}
