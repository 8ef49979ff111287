package trace

import (
	"io"
	"sync"
)

// StreamTracer writes every event straight to its writer. Write errors
// are swallowed: tracing must never take the build down with it.
type StreamTracer struct {
	mu     sync.Mutex
	w      io.Writer
	level  Level
	format Format
	opened bool // Chrome array header already written
}

// NewStreamTracer wraps w. The Chrome array framing is written lazily,
// so a tracer that never emits still closes to valid JSON.
func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	return &StreamTracer{w: w, level: level, format: format}
}

// Emit writes ev to the output, assigning a sequence number if the
// caller did not.
func (t *StreamTracer) Emit(ev *Event) {
	if !t.level.ShouldEmit(ev.Scope) && ev.Kind != KindHeartbeat {
		return
	}
	if ev.Seq == 0 {
		ev.Seq = NextSeq()
	}

	data := FormatEvent(ev, t.format)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.format == FormatChrome {
		if t.opened {
			_, _ = io.WriteString(t.w, ",\n")
		} else {
			_, _ = io.WriteString(t.w, "{\"traceEvents\":[\n")
			t.opened = true
		}
	}
	_, _ = t.w.Write(data)
}

// Flush forwards to the writer when it buffers.
func (t *StreamTracer) Flush() error {
	if f, ok := t.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Close finishes the Chrome framing, flushes, and closes the writer
// when it owns a Close method.
func (t *StreamTracer) Close() error {
	t.mu.Lock()
	if t.format == FormatChrome {
		if !t.opened {
			_, _ = io.WriteString(t.w, "{\"traceEvents\":[")
		}
		_, _ = io.WriteString(t.w, "\n]}\n")
		t.opened = true
	}
	t.mu.Unlock()

	_ = t.Flush()
	if c, ok := t.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (t *StreamTracer) Level() Level { return t.level }

func (t *StreamTracer) Enabled() bool { return t.level > LevelOff }
