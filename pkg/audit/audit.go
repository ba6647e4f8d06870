// Package audit provides an append-only JSONL audit trail for TelaMentis
// requests.
//
// Every completed request can be recorded as one JSON line: who (tenant),
// what (method and path), when, how long, and whether it failed. The format
// is line-delimited JSON so standard tooling (jq, grep, log shippers) works
// without a reader library.
//
// Example Usage:
//
//	logger, err := audit.NewLogger("./audit.jsonl")
//	defer logger.Close()
//
//	logger.Log(audit.Event{
//		Type:      audit.EventGraphWrite,
//		Tenant:    "acme",
//		RequestID: rc.RequestID.String(),
//		Method:    "POST",
//		Path:      "/v1/graph/acme/nodes",
//	})
package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// EventType classifies an audit event.
type EventType string

const (
	EventGraphRead   EventType = "graph.read"
	EventGraphWrite  EventType = "graph.write"
	EventGraphDelete EventType = "graph.delete"
	EventLLMExtract  EventType = "llm.extract"
	EventLLMIngest   EventType = "llm.ingest"
	EventTenantAdmin EventType = "tenant.admin"
	EventHealth      EventType = "health"
)

// Event is one audit record.
type Event struct {
	// Time is stamped by Log when zero.
	Time time.Time `json:"time"`
	// Type classifies the operation.
	Type EventType `json:"type"`
	// Tenant is the isolation key the request ran under, when any.
	Tenant string `json:"tenant,omitempty"`
	// RequestID correlates the event with pipeline and server logs.
	RequestID string `json:"request_id,omitempty"`
	// Method and Path identify the operation.
	Method string `json:"method,omitempty"`
	Path   string `json:"path,omitempty"`
	// DurationMS is the request's elapsed time.
	DurationMS int64 `json:"duration_ms,omitempty"`
	// Error carries the short failure message for failed requests.
	Error string `json:"error,omitempty"`
	// Details carries operation-specific context.
	Details map[string]any `json:"details,omitempty"`
}

// Logger appends events to a writer, one JSON object per line. Safe for
// concurrent use.
type Logger struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

// NewLogger opens (or creates) an append-only audit file.
func NewLogger(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening audit log %q: %w", path, err)
	}
	return &Logger{w: f, closer: f}, nil
}

// NewLoggerWithWriter wraps an arbitrary writer. Tests use this with a
// bytes.Buffer.
func NewLoggerWithWriter(w io.Writer) *Logger {
	return &Logger{w: w}
}

// Log appends one event. The timestamp is stamped when the caller left it
// zero.
func (l *Logger) Log(event Event) error {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling audit event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing audit event: %w", err)
	}
	return nil
}

// Close releases the underlying file, when the logger owns one.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}
