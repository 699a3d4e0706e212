// Package streaming implements the Streaming Transport (C11): the
// newline-delimited JSON event sequence POST /chat/stream writes as the
// Agent Graph's generate node produces text, built on the
// json.NewEncoder(w)-plus-Content-Type response idiom (internal/web/api.go)
// and its CompletionChunk channel contract (internal/agent/provider_types.go).
package streaming

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/finqa/ragqa/internal/agentgraph"
)

// Event is one line of a /chat/stream response. Non-final events carry only
// Chunk; the single terminal event carries the full result.
type Event struct {
	Chunk               string                          `json:"chunk"`
	IsFinal             bool                            `json:"is_final"`
	Confidence          float64                         `json:"confidence,omitempty"`
	ConfidenceMethod    string                          `json:"confidence_method,omitempty"`
	ConfidenceBreakdown *agentgraph.ConfidenceBreakdown `json:"confidence_breakdown,omitempty"`
	Sources             []agentgraph.Source             `json:"sources,omitempty"`
	Escalated           bool                            `json:"escalated,omitempty"`
	EscalationReason    string                          `json:"escalation_reason,omitempty"`
}

// Emitter writes a sequence of Events to an http.ResponseWriter as
// newline-delimited JSON, flushing after each one so the client receives
// deltas as they are produced rather than buffered until the handler
// returns.
type Emitter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	enc     *json.Encoder
	logger  *slog.Logger

	mu   sync.Mutex
	done bool
}

// NewEmitter prepares w for a streaming response: sets the NDJSON content
// type and disables any upstream proxy buffering. w need not implement
// http.Flusher (e.g. in tests using httptest.ResponseRecorder); when it
// doesn't, events are still written, just not flushed incrementally.
func NewEmitter(w http.ResponseWriter, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	return &Emitter{w: w, flusher: flusher, enc: json.NewEncoder(w), logger: logger.With("component", "streaming")}
}

// Chunk writes one non-final delta event. Safe to call repeatedly; a no-op
// once Final has been called.
func (e *Emitter) Chunk(text string) {
	e.write(Event{Chunk: text, IsFinal: false})
}

// Final writes the single terminal event carrying the full graph output,
// then marks the emitter done. Subsequent Chunk/Final calls are no-ops, so a
// late delta racing the terminal event can never violate the
// exactly-one-terminal-event invariant.
func (e *Emitter) Final(out *agentgraph.Output) {
	if out == nil {
		e.write(Event{Chunk: "", IsFinal: true})
		return
	}
	e.write(Event{
		Chunk:               "",
		IsFinal:             true,
		Confidence:          out.Confidence,
		ConfidenceMethod:    string(out.ConfidenceMethod),
		ConfidenceBreakdown: &out.ConfidenceBreakdown,
		Sources:             out.Sources,
		Escalated:           out.Escalated,
		EscalationReason:    out.EscalationReason,
	})
}

func (e *Emitter) write(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return
	}
	if ev.IsFinal {
		e.done = true
	}
	if err := e.enc.Encode(ev); err != nil {
		e.logger.Error("streaming: failed to write event", "error", err, "is_final", ev.IsFinal)
		return
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
}
