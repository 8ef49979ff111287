package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ripple/internal/diagfmt"
	"ripple/internal/project"
	"ripple/internal/source"
	"ripple/internal/workspace"
)

var freezeCmd = &cobra.Command{
	Use:   "freeze [flags] <generated-file>...",
	Short: "Build with pinned generator outputs instead of running generators",
	Long: `Freeze pins the given files as a project's generated documents and
builds the workspace against them. The generator pass does not run for the
pinned project; each file's base name is the generator hint it replaces.
Pinned documents the live generators no longer produce are reported as
stale.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFreeze,
}

func init() {
	freezeCmd.Flags().String("project", "", "Project whose generator outputs are pinned (required)")
	freezeCmd.Flags().String("generator", "buildinfo", "Generator name the pinned documents belong to")
	freezeCmd.Flags().String("workspace", "", "Workspace root or ripple.toml (default: search upwards)")
	freezeCmd.Flags().String("format", "pretty", "Diagnostics output format: pretty|json|short")
	freezeCmd.Flags().Int("jobs", 0, "Number of projects to build in parallel (0 = auto)")
	freezeCmd.Flags().Bool("with-notes", false, "Include secondary notes in diagnostics output")
	freezeCmd.Flags().Bool("fullpath", false, "Print absolute file paths in diagnostics")
	_ = freezeCmd.MarkFlagRequired("project")
}

func runFreeze(cmd *cobra.Command, args []string) error {
	// Ensure trace is dumped on panic
	defer dumpTraceOnPanic()

	projectName, err := cmd.Flags().GetString("project")
	if err != nil {
		return fmt.Errorf("failed to get project flag: %w", err)
	}
	generatorName, err := cmd.Flags().GetString("generator")
	if err != nil {
		return fmt.Errorf("failed to get generator flag: %w", err)
	}
	workspaceArg, err := cmd.Flags().GetString("workspace")
	if err != nil {
		return fmt.Errorf("failed to get workspace flag: %w", err)
	}
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
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
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

	var manifestArgs []string
	if workspaceArg != "" {
		manifestArgs = []string{workspaceArg}
	}
	manifestPath, err := locateManifest(manifestArgs)
	if err != nil {
		return err
	}

	states, wsBag, err := workspace.Load(manifestPath, maxDiagnostics)
	if err != nil {
		return fmt.Errorf("failed to load workspace: %w", err)
	}
	host, err := newWorkspaceHost(maxDiagnostics, "")
	if err != nil {
		return err
	}
	snap, err := host.Snapshot(states...)
	if err != nil {
		return fmt.Errorf("failed to snapshot workspace: %w", err)
	}

	projID, ok := snap.ProjectByName(projectName)
	if !ok {
		return fmt.Errorf("unknown project %q in workspace %s", projectName, manifestPath)
	}

	pinned := make([]project.GeneratedDocumentState, 0, len(args))
	for _, path := range args {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read pinned document %s: %w", path, err)
		}
		identity := project.GeneratorIdentity{Generator: generatorName, Hint: filepath.Base(path)}
		pinned = append(pinned, project.NewGeneratedDocumentState(projID, identity, source.NewText(raw)))
	}

	frozen, err := snap.FreezeGeneratedDocuments(projID, project.NewGeneratedSet(pinned...))
	if err != nil {
		return fmt.Errorf("failed to freeze generated documents: %w", err)
	}

	res, err := frozen.BuildAll(cmd.Context(), workspace.BuildOptions{Jobs: jobs})
	if err != nil {
		// Cleanup tracer explicitly because PersistentPostRun is not called on error
		flushTracerOnError(cmd)
		return fmt.Errorf("workspace build failed: %w", err)
	}
	wsBag.Sort()

	if !quiet && format == "pretty" {
		fmt.Fprintf(os.Stdout, "pinned %d generated documents for %s (generator %s)\n",
			len(pinned), projectName, generatorName)
	}

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
	if err := renderBuild(os.Stdout, res, wsBag, snapshotResolver(frozen), ropts); err != nil {
		flushTracerOnError(cmd)
		return err
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
