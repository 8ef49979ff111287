package trace

import (
	"io"
	"sync"
)

// RingTracer keeps the most recent events in a fixed circular buffer.
// Nothing is written anywhere until Dump is called, which makes it the
// right backend for crash forensics: near-zero cost while the build is
// healthy, full recent history when it is not.
type RingTracer struct {
	mu      sync.RWMutex
	buf     []Event
	next    int // next write slot
	wrapped bool
	level   Level
}

// NewRingTracer allocates a ring holding up to capacity events.
func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity <= 0 {
		capacity = 4096
	}
	return &RingTracer{
		buf:   make([]Event, capacity),
		level: level,
	}
}

// Emit stores a copy of ev, overwriting the oldest entry once full.
// Heartbeats are always kept so a dump shows the build was alive.
func (t *RingTracer) Emit(ev *Event) {
	if !t.level.ShouldEmit(ev.Scope) && ev.Kind != KindHeartbeat {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	stored := *ev
	if stored.Seq == 0 {
		stored.Seq = NextSeq()
	}
	t.buf[t.next] = stored
	t.next++
	if t.next == len(t.buf) {
		t.next = 0
		t.wrapped = true
	}
}

// Snapshot copies the stored events out in arrival order.
func (t *RingTracer) Snapshot() []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.wrapped {
		return append([]Event(nil), t.buf[:t.next]...)
	}
	out := make([]Event, 0, len(t.buf))
	out = append(out, t.buf[t.next:]...)
	return append(out, t.buf[:t.next]...)
}

// Dump writes the buffered events to w. Chrome output gets the JSON
// array framing the viewer expects; other formats are line-oriented.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	events := t.Snapshot()

	if format == FormatChrome {
		if _, err := io.WriteString(w, "[\n"); err != nil {
			return err
		}
	}
	for i := range events {
		if format == FormatChrome && i > 0 {
			if _, err := io.WriteString(w, ",\n"); err != nil {
				return err
			}
		}
		if _, err := w.Write(FormatEvent(&events[i], format)); err != nil {
			return err
		}
	}
	if format == FormatChrome {
		if _, err := io.WriteString(w, "\n]\n"); err != nil {
			return err
		}
	}
	return nil
}

// Flush is a no-op: the ring lives entirely in memory.
func (t *RingTracer) Flush() error { return nil }

// Close is a no-op.
func (t *RingTracer) Close() error { return nil }

func (t *RingTracer) Level() Level { return t.level }

func (t *RingTracer) Enabled() bool { return t.level > LevelOff }
