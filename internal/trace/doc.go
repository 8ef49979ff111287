// Package trace records what the engine is doing and when: workspace
// builds, per-project compilation, generator runs and skeleton emission
// all open spans here, so a slow or hung build can be read off the event
// stream instead of guessed at.
//
// Verbosity is a Level (off, error, phase, detail, debug); each Event
// carries a Scope (driver, module, pass, node) and ShouldEmit pairs the
// two. Storage is a Mode: stream writes events out as they happen, ring
// keeps the last N in memory for crash dumps, both does both at once.
// Output formats are text for humans, NDJSON for log shippers, and the
// Chrome trace-event JSON that chrome://tracing and Perfetto load; with
// FormatAuto the output path's extension picks one.
//
// The tracer travels through the build in a context.Context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//	span := trace.Begin(t, trace.ScopePass, "workspace_build", 0)
//	defer span.End("")
//
// FromContext falls back to Nop, so call sites never nil-check. A
// Heartbeat goroutine can emit periodic liveness events into the same
// tracer; when the process dies, the last heartbeat in the ring bounds
// how long it was stuck.
package trace
