package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"ripple/internal/ui"
	"ripple/internal/workspace"
)

type buildOutcome struct {
	result *workspace.Result
	err    error
}

// runBuildWithUI runs a full workspace build behind a Bubble Tea progress
// view, one row per project.
func runBuildWithUI(ctx context.Context, title string, snap *workspace.Snapshot, names []string, opts workspace.BuildOptions) (*workspace.Result, error) {
	events := make(chan workspace.Event, 256)
	outcomeCh := make(chan buildOutcome, 1)

	go func() {
		o := opts
		o.Sink = workspace.ChannelSink{Ch: events}
		res, err := snap.BuildAll(ctx, o)
		outcomeCh <- buildOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, names, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
