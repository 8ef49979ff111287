package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"ripple/internal/declc"
	"ripple/internal/diag"
	"ripple/internal/gen"
	"ripple/internal/project"
	"ripple/internal/skeleton"
	"ripple/internal/source"
	"ripple/internal/workspace"
)

const noRippleTomlMessage = "no ripple.toml found\nplease specify the workspace explicitly, e.g.:\n  ripple check path/to/workspace"

// locateManifest resolves the optional path argument to a concrete
// ripple.toml: a file argument is used as is, a directory argument (or no
// argument) walks up from there.
func locateManifest(args []string) (string, error) {
	start := "."
	if len(args) > 0 && args[0] != "" {
		start = args[0]
	}
	info, err := os.Stat(start)
	if err != nil {
		return "", fmt.Errorf("failed to stat %q: %w", start, err)
	}
	if !info.IsDir() {
		return start, nil
	}
	path, found, err := project.FindManifest(start)
	if err != nil {
		return "", err
	}
	if !found {
		return "", errors.New(noRippleTomlMessage)
	}
	return path, nil
}

// manifestBaseDir is the directory relative document paths in output are
// shown against.
func manifestBaseDir(manifestPath string) string {
	return filepath.Dir(manifestPath)
}

// storeAuto selects the standard per-user module store location.
const storeAuto = "auto"

// newWorkspaceHost assembles the host every command builds against: the
// declc front end plus its reference generator. storeDir selects the
// persistent module store: empty disables it, storeAuto uses the standard
// cache location, anything else is an explicit directory.
func newWorkspaceHost(maxDiags int, storeDir string) (*workspace.Host, error) {
	disk, err := openModuleStore(storeDir)
	if err != nil {
		return nil, err
	}
	return workspace.NewHost(workspace.HostOptions{
		Compiler:       declc.New(),
		Generators:     gen.NewRunner(declc.BuildInfo{}),
		MaxDiagnostics: maxDiags,
		Disk:           disk,
	})
}

func openModuleStore(storeDir string) (*skeleton.DiskCache, error) {
	var disk *skeleton.DiskCache
	var err error
	switch storeDir {
	case "":
	case storeAuto:
		disk, err = skeleton.OpenDiskCache("ripple")
	default:
		disk, err = skeleton.OpenDiskCacheAt(storeDir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open module store: %w", err)
	}
	return disk, nil
}

// workspaceResolver maps authored document identities back to paths and
// text for rendering. Generated documents fall back to their short id.
func workspaceResolver(states []*project.State) diag.DocResolver {
	docs := make(map[source.DocumentID]diag.DocInfo)
	for _, st := range states {
		for _, d := range st.Documents().All() {
			docs[d.ID] = diag.DocInfo{Path: d.Path, Text: d.Text}
		}
	}
	return func(id source.DocumentID) (diag.DocInfo, bool) {
		info, ok := docs[id]
		return info, ok
	}
}

func projectNames(states []*project.State) []string {
	names := make([]string, 0, len(states))
	for _, st := range states {
		names = append(names, st.Name())
	}
	return names
}
