package trace

import "time"

// Kind classifies a trace event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1 // operation opened
	KindSpanEnd                   // operation closed
	KindPoint                     // instant event
	KindHeartbeat                 // periodic liveness signal
)

var kindNames = [...]string{
	KindSpanBegin: "begin",
	KindSpanEnd:   "end",
	KindPoint:     "point",
	KindHeartbeat: "heartbeat",
}

func (k Kind) String() string {
	if k > 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Scope is the granularity of an event. Smaller values are coarser;
// Level.ShouldEmit compares against it directly.
type Scope uint8

const (
	ScopeDriver Scope = iota + 1 // whole CLI invocation
	ScopePass                    // build passes: graph, compile, skeleton
	ScopeModule                  // one project inside a pass
	ScopeNode                    // declaration level, reserved
)

var scopeNames = [...]string{
	ScopeDriver: "driver",
	ScopePass:   "pass",
	ScopeModule: "module",
	ScopeNode:   "node",
}

func (s Scope) String() string {
	if s > 0 && int(s) < len(scopeNames) {
		return scopeNames[s]
	}
	return "unknown"
}

// Event is one record in the trace. Span events arrive in begin/end
// pairs sharing a SpanID; point and heartbeat events stand alone.
type Event struct {
	Time     time.Time
	Seq      uint64 // global emission order
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64 // 0 for root spans
	GID      uint64 // emitting goroutine
	Name     string // "workspace_build", "tracker_build", ...
	Detail   string
	Extra    map[string]string
}
