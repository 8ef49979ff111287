package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the persistent module store",
	Long:  "Remove every module image from the on-disk store populated by export and check --disk-cache.",
	Args:  cobra.NoArgs,
	RunE:  runClean,
}

func init() {
	cleanCmd.Flags().String("store", storeAuto, "Module store directory (\"auto\" = standard cache location)")
}

func runClean(cmd *cobra.Command, _ []string) error {
	storeDir, err := cmd.Flags().GetString("store")
	if err != nil {
		return fmt.Errorf("failed to get store flag: %w", err)
	}
	if storeDir == "" {
		return fmt.Errorf("clean needs a module store, pass --store or keep the default")
	}
	disk, err := openModuleStore(storeDir)
	if err != nil {
		return err
	}
	dir := disk.Dir()
	if err := disk.DropAll(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			_, _ = fmt.Fprintf(os.Stdout, "module store not found\n")
			return nil
		}
		return fmt.Errorf("failed to clear %q: %w", dir, err)
	}
	_, _ = fmt.Fprintf(os.Stdout, "removed %s\n", dir)
	return nil
}
