package workspace

import "time"

// Stage describes a high-level build phase.
type Stage string

const (
	// StageLoad is manifest and document loading.
	StageLoad Stage = "load"
	// StageGraph is dependency graph construction and cycle checks.
	StageGraph Stage = "graph"
	// StageBuild is the per-project tracker build.
	StageBuild Stage = "build"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the project is waiting to build.
	StatusQueued Status = "queued"
	// StatusWorking indicates the project is currently building.
	StatusWorking Status = "working"
	// StatusDone indicates the project finished.
	StatusDone Status = "done"
	// StatusError indicates the project build failed.
	StatusError Status = "error"
)

// Event reports progress for a project (or for the whole workspace when
// Project is empty).
type Event struct {
	Project string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// Sink consumes progress events. Builds fan out across projects, so
// OnEvent may be called from multiple goroutines at once.
type Sink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}
