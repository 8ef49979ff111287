package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ripple/internal/diagfmt"
	"ripple/internal/project"
	"ripple/internal/workspace"
)

var exportCmd = &cobra.Command{
	Use:   "export [flags] <project>",
	Short: "Compile a project and publish its module image to the store",
	Long: `Export compiles one workspace project (and its dependencies), builds
its skeleton image and stores it as a prebuilt module. Other workspaces can
then require it through a [[modules]] entry without the defining sources.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().String("as", "", "Module name to publish under (default: project name)")
	exportCmd.Flags().String("module-version", "", "Module version to publish (default: project version)")
	exportCmd.Flags().String("store", storeAuto, "Module store directory (\"auto\" = standard cache location)")
	exportCmd.Flags().String("workspace", "", "Workspace root or ripple.toml (default: search upwards)")
	exportCmd.Flags().Bool("embed", false, "Build the image with embedded interop types")
}

func runExport(cmd *cobra.Command, args []string) error {
	// Ensure trace is dumped on panic
	defer dumpTraceOnPanic()

	asName, err := cmd.Flags().GetString("as")
	if err != nil {
		return fmt.Errorf("failed to get as flag: %w", err)
	}
	moduleVersion, err := cmd.Flags().GetString("module-version")
	if err != nil {
		return fmt.Errorf("failed to get module-version flag: %w", err)
	}
	storeDir, err := cmd.Flags().GetString("store")
	if err != nil {
		return fmt.Errorf("failed to get store flag: %w", err)
	}
	workspaceArg, err := cmd.Flags().GetString("workspace")
	if err != nil {
		return fmt.Errorf("failed to get workspace flag: %w", err)
	}
	embed, err := cmd.Flags().GetBool("embed")
	if err != nil {
		return fmt.Errorf("failed to get embed flag: %w", err)
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
	if storeDir == "" {
		return fmt.Errorf("export needs a module store, pass --store or keep the default")
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
	host, err := newWorkspaceHost(maxDiagnostics, storeDir)
	if err != nil {
		return err
	}
	snap, err := host.Snapshot(states...)
	if err != nil {
		return fmt.Errorf("failed to snapshot workspace: %w", err)
	}

	projectName := args[0]
	projID, ok := snap.ProjectByName(projectName)
	if !ok {
		return fmt.Errorf("unknown project %q in workspace %s", projectName, manifestPath)
	}

	u, err := snap.GetCompiledUnit(cmd.Context(), projID)
	if err != nil {
		// Cleanup tracer explicitly because PersistentPostRun is not called on error
		flushTracerOnError(cmd)
		return fmt.Errorf("failed to compile %s: %w", projectName, err)
	}
	if u.Diagnostics().HasErrors() || wsBag.HasErrors() {
		wsBag.Sort()
		prettyOpts := diagfmt.PrettyOpts{
			Color:    colorFlag == "on" || (colorFlag == "auto" && isTerminal(os.Stdout)),
			Context:  2,
			PathMode: diagfmt.PathModeAuto,
			BaseDir:  manifestBaseDir(manifestPath),
		}
		diagfmt.Pretty(os.Stdout, wsBag, snapshotResolver(snap), prettyOpts)
		diagfmt.Pretty(os.Stdout, u.Diagnostics(), snapshotResolver(snap), prettyOpts)
		fmt.Fprintf(os.Stdout, "refusing to export %s: project has errors\n", projectName)
		flushTracerOnError(cmd)
		// Suppress cobra usage output on diagnostic errors
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return fmt.Errorf("") // Silent error - diagnostics already printed
	}

	tr, ok := snap.Tracker(projID)
	if !ok {
		return fmt.Errorf("no tracker for project %q", projectName)
	}
	img, err := tr.SkeletonReference(cmd.Context(), snap, project.MakeRefOptions(embed))
	if err != nil {
		flushTracerOnError(cmd)
		return fmt.Errorf("failed to build module image for %s: %w", projectName, err)
	}
	if img == nil {
		return fmt.Errorf("project %s produced no module image", projectName)
	}

	st, _ := snap.State(projID)
	if asName == "" {
		asName = projectName
	}
	if moduleVersion == "" && st != nil {
		moduleVersion = st.Version()
	}
	ref := project.ModuleReference{Name: asName, Version: moduleVersion}
	if err := host.StoreModule(ref, img); err != nil {
		flushTracerOnError(cmd)
		return fmt.Errorf("failed to store module: %w", err)
	}

	if !quiet {
		fmt.Fprintf(os.Stdout, "exported %s (%d types, %d members)\n",
			ref.ID(), len(img.Module.Types()), len(img.Module.Members()))
	}
	return nil
}
