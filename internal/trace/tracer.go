package trace

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Tracer records build events. Implementations must tolerate concurrent
// Emit calls; the engine traces from every build worker at once.
type Tracer interface {
	// Emit records one event.
	Emit(ev *Event)

	// Flush pushes buffered events to the underlying writer.
	Flush() error

	// Close flushes and releases the output.
	Close() error

	// Level returns the configured verbosity.
	Level() Level

	// Enabled is shorthand for Level() > LevelOff.
	Enabled() bool
}

// StorageMode selects where emitted events end up.
type StorageMode uint8

const (
	ModeStream StorageMode = iota + 1 // write-through to the output
	ModeRing                          // in-memory circular buffer
	ModeBoth                          // both at once
)

func (m StorageMode) String() string {
	switch m {
	case ModeStream:
		return "stream"
	case ModeRing:
		return "ring"
	case ModeBoth:
		return "both"
	}
	return "unknown"
}

// ParseMode converts a user-supplied mode name.
func ParseMode(s string) (StorageMode, error) {
	switch strings.ToLower(s) {
	case "stream":
		return ModeStream, nil
	case "ring":
		return ModeRing, nil
	case "both":
		return ModeBoth, nil
	}
	return ModeRing, fmt.Errorf("invalid storage mode: %q (expected: stream|ring|both)", s)
}

// Config describes the tracer to build.
type Config struct {
	Level      Level
	Mode       StorageMode
	Format     Format        // FormatAuto resolves from OutputPath
	Output     io.Writer     // takes precedence over OutputPath
	OutputPath string        // "-" or empty means stderr
	RingSize   int           // events kept in ring mode, default 4096
	Heartbeat  time.Duration // 0 disables the heartbeat
}

// New builds a tracer from cfg. LevelOff yields the no-op tracer no
// matter what else the config says.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return nopTracer{}, nil
	}

	if cfg.RingSize <= 0 {
		cfg.RingSize = 4096
	}
	format := cfg.Format.resolve(cfg.OutputPath)

	switch cfg.Mode {
	case ModeRing:
		return NewRingTracer(cfg.RingSize, cfg.Level), nil

	case ModeStream:
		w, err := openOutput(cfg)
		if err != nil {
			return nil, err
		}
		return NewStreamTracer(w, cfg.Level, format), nil

	case ModeBoth:
		w, err := openOutput(cfg)
		if err != nil {
			return nil, err
		}
		return NewMultiTracer(cfg.Level,
			NewStreamTracer(w, cfg.Level, format),
			NewRingTracer(cfg.RingSize, cfg.Level)), nil
	}

	return nil, fmt.Errorf("unknown storage mode: %v", cfg.Mode)
}

func openOutput(cfg Config) (io.Writer, error) {
	if cfg.Output != nil {
		return cfg.Output, nil
	}
	if cfg.OutputPath == "" || cfg.OutputPath == "-" {
		return os.Stderr, nil
	}
	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace output: %w", err)
	}
	return f, nil
}
