package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"ripple/internal/diag"
	"ripple/internal/project"
	"ripple/internal/source"
	"ripple/internal/workspace"
)

// Редакторы пишут файлы пачками (временный файл, rename, метаданные),
// поэтому собираем события в тихое окно перед пересборкой.
const watchDebounce = 100 * time.Millisecond

// watchSession keeps the live snapshot between rebuilds. Forking the
// previous snapshot instead of reloading means untouched projects replay
// their memoized units.
type watchSession struct {
	snap    *workspace.Snapshot
	jobs    int
	render  renderOptions
	timings bool
}

func runWatchLoop(cmd *cobra.Command, manifestPath string, session *watchSession) error {
	dirs, err := projectDirs(manifestPath)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watcher.Close()

	// fsnotify следит за каталогами: так переживаем rename-запись редакторов.
	docs := make(map[string]source.DocumentID)
	watched := make(map[string]bool)
	for _, id := range session.snap.Projects() {
		st, ok := session.snap.State(id)
		if !ok {
			continue
		}
		base, ok := dirs[st.Name()]
		if !ok {
			continue
		}
		for _, d := range st.Documents().All() {
			abs := filepath.Join(base, d.Path)
			docs[abs] = d.ID
			dir := filepath.Dir(abs)
			if watched[dir] {
				continue
			}
			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
			watched[dir] = true
		}
	}
	if len(docs) == 0 {
		return fmt.Errorf("nothing to watch: workspace has no documents")
	}

	fmt.Fprintf(os.Stdout, "watching %d directories (%d documents), ctrl-c to stop\n", len(watched), len(docs))

	ctx := cmd.Context()
	pending := make(map[string]source.DocumentID)
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			path := filepath.Clean(ev.Name)
			id, tracked := docs[path]
			if !tracked {
				continue
			}
			pending[path] = id
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", werr)
		case <-fire:
			fire = nil
			batch := pending
			pending = make(map[string]source.DocumentID)
			if err := session.rebuild(ctx, batch); err != nil {
				return err
			}
		}
	}
}

// rebuild forks the snapshot with the changed texts and rebuilds the
// workspace. Unreadable files are reported and skipped, the rest of the
// batch still applies.
func (s *watchSession) rebuild(ctx context.Context, batch map[string]source.DocumentID) error {
	next := s.snap
	for path, id := range batch {
		raw, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to reread %s: %v\n", path, err)
			continue
		}
		forked, err := next.WithDocumentText(id, source.NewText(raw))
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to apply %s: %v\n", path, err)
			continue
		}
		next = forked
	}
	if next == s.snap {
		return nil
	}
	s.snap = next

	res, err := next.BuildAll(ctx, workspace.BuildOptions{Jobs: s.jobs})
	if err != nil {
		return fmt.Errorf("workspace rebuild failed: %w", err)
	}

	fmt.Fprintf(os.Stdout, "\nrebuilt at %s\n", time.Now().Format("15:04:05"))
	if err := renderBuild(os.Stdout, res, diag.NewBag(0), snapshotResolver(next), s.render); err != nil {
		return err
	}
	if s.timings {
		printPhaseTimings(os.Stdout, res.Timings)
	}
	return nil
}

// projectDirs maps project names to their manifest directories, mirroring
// the workspace loader's traversal. Broken members are skipped here: the
// loader already reported them.
func projectDirs(manifestPath string) (map[string]string, error) {
	root, err := project.LoadManifest(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace manifest: %w", err)
	}
	dirs := make(map[string]string, len(root.Workspace.Members)+1)
	if root.HasProject() {
		dirs[root.Project.Name] = root.Dir
	}
	for _, dir := range root.MemberDirs() {
		m, err := project.LoadManifest(filepath.Join(dir, project.ManifestName))
		if err != nil || !m.HasProject() {
			continue
		}
		dirs[m.Project.Name] = m.Dir
	}
	return dirs, nil
}
