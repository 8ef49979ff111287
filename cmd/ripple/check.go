package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ripple/internal/diagfmt"
	"ripple/internal/workspace"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] [path]",
	Short: "Load a workspace and compile every project",
	Long: `Check loads the workspace manifest, compiles all projects in
dependency order and prints diagnostics. Path may be a ripple.toml or a
directory; without it the manifest is searched upwards from the current
directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().String("format", "pretty", "Diagnostics output format: pretty|json|short")
	checkCmd.Flags().Int("jobs", 0, "Number of projects to build in parallel (0 = auto)")
	checkCmd.Flags().Bool("with-notes", false, "Include secondary notes in diagnostics output")
	checkCmd.Flags().Bool("fullpath", false, "Print absolute file paths in diagnostics")
	checkCmd.Flags().Bool("disk-cache", false, "Persist exported module images in the on-disk store")
	checkCmd.Flags().String("ui", "auto", "Progress UI: auto|on|off")
	checkCmd.Flags().Bool("watch", false, "Rebuild on source changes (pretty format only, manifest edits need a restart)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	// Ensure trace is dumped on panic
	defer dumpTraceOnPanic()

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	fullPath, err := cmd.Flags().GetBool("fullpath")
	if err != nil {
		return fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	diskCache, err := cmd.Flags().GetBool("disk-cache")
	if err != nil {
		return fmt.Errorf("failed to get disk-cache flag: %w", err)
	}
	uiFlag, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	watch, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return fmt.Errorf("failed to get watch flag: %w", err)
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}

	switch format {
	case "pretty", "json", "short":
	default:
		return fmt.Errorf("unknown format: %s (expected pretty|json|short)", format)
	}
	mode, err := readUIMode(uiFlag)
	if err != nil {
		return err
	}
	if watch && format != "pretty" {
		return fmt.Errorf("--watch supports only --format=pretty")
	}

	manifestPath, err := locateManifest(args)
	if err != nil {
		return err
	}

	cleanup, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	states, wsBag, err := workspace.Load(manifestPath, maxDiagnostics)
	if err != nil {
		return fmt.Errorf("failed to load workspace: %w", err)
	}
	storeDir := ""
	if diskCache {
		storeDir = storeAuto
	}
	host, err := newWorkspaceHost(maxDiagnostics, storeDir)
	if err != nil {
		return err
	}
	snap, err := host.Snapshot(states...)
	if err != nil {
		return fmt.Errorf("failed to snapshot workspace: %w", err)
	}

	names := projectNames(states)
	buildOpts := workspace.BuildOptions{Jobs: jobs}
	useTUI := shouldUseTUI(mode) && !watch && format == "pretty"

	var res *workspace.Result
	if useTUI && len(names) > 0 {
		res, err = runBuildWithUI(cmd.Context(), "ripple check", snap, names, buildOpts)
	} else {
		res, err = snap.BuildAll(cmd.Context(), buildOpts)
	}
	if err != nil {
		// Cleanup tracer explicitly because PersistentPostRun is not called on error
		flushTracerOnError(cmd)
		return fmt.Errorf("workspace build failed: %w", err)
	}

	if showTimings && format == "json" {
		appendTimingDiagnostic(wsBag, res.Timings)
	}
	wsBag.Sort()

	pathMode := diagfmt.PathModeAuto
	if fullPath {
		pathMode = diagfmt.PathModeAbsolute
	}
	ropts := renderOptions{
		format:    format,
		withNotes: withNotes,
		useColor:  colorFlag == "on" || (colorFlag == "auto" && isTerminal(os.Stdout)),
		quiet:     quiet,
		pathMode:  pathMode,
		baseDir:   manifestBaseDir(manifestPath),
	}
	if err := renderBuild(os.Stdout, res, wsBag, snapshotResolver(snap), ropts); err != nil {
		flushTracerOnError(cmd)
		return err
	}
	if showTimings && format != "json" {
		printPhaseTimings(os.Stdout, res.Timings)
	}

	if watch {
		session := &watchSession{snap: snap, jobs: jobs, render: ropts, timings: showTimings}
		if err := runWatchLoop(cmd, manifestPath, session); err != nil {
			flushTracerOnError(cmd)
			return err
		}
	}

	if res.HasErrors() || wsBag.HasErrors() {
		flushTracerOnError(cmd)
		// Suppress cobra usage output on diagnostic errors
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return fmt.Errorf("") // Silent error - diagnostics already printed
	}
	return nil
}
