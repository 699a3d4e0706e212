package channels

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/finqa/ragqa/pkg/models"
)

// Metrics tracks counters for a single collector. All fields are safe for
// concurrent use.
type Metrics struct {
	source models.Source

	received int64
	failed   int64
	errors   int64

	reconnectAttempts int64

	connectionsOpened int64
	connectionsClosed int64

	receiveLatencyTotal int64 // nanoseconds
	receiveLatencyCount int64
}

// NewMetrics creates a metrics tracker for the given source.
func NewMetrics(source models.Source) *Metrics {
	return &Metrics{source: source}
}

func (m *Metrics) RecordMessageReceived()     { atomic.AddInt64(&m.received, 1) }
func (m *Metrics) RecordMessageFailed()       { atomic.AddInt64(&m.failed, 1) }
func (m *Metrics) RecordError(code ErrorCode) { atomic.AddInt64(&m.errors, 1) }
func (m *Metrics) RecordReconnectAttempt()    { atomic.AddInt64(&m.reconnectAttempts, 1) }
func (m *Metrics) RecordConnectionOpened()    { atomic.AddInt64(&m.connectionsOpened, 1) }
func (m *Metrics) RecordConnectionClosed()    { atomic.AddInt64(&m.connectionsClosed, 1) }

func (m *Metrics) RecordReceiveLatency(d time.Duration) {
	atomic.AddInt64(&m.receiveLatencyTotal, int64(d))
	atomic.AddInt64(&m.receiveLatencyCount, 1)
}

// Snapshot returns a point-in-time copy of the metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	count := atomic.LoadInt64(&m.receiveLatencyCount)
	var avg time.Duration
	if count > 0 {
		avg = time.Duration(atomic.LoadInt64(&m.receiveLatencyTotal) / count)
	}
	return MetricsSnapshot{
		Source:            m.source,
		MessagesReceived:  atomic.LoadInt64(&m.received),
		MessagesFailed:    atomic.LoadInt64(&m.failed),
		Errors:            atomic.LoadInt64(&m.errors),
		ReconnectAttempts: atomic.LoadInt64(&m.reconnectAttempts),
		ConnectionsOpened: atomic.LoadInt64(&m.connectionsOpened),
		ConnectionsClosed: atomic.LoadInt64(&m.connectionsClosed),
		AvgReceiveLatency: avg,
	}
}

// MetricsSnapshot is a point-in-time read of a collector's counters.
type MetricsSnapshot struct {
	Source            models.Source `json:"source"`
	MessagesReceived  int64         `json:"messages_received"`
	MessagesFailed    int64         `json:"messages_failed"`
	Errors            int64         `json:"errors"`
	ReconnectAttempts int64         `json:"reconnect_attempts"`
	ConnectionsOpened int64         `json:"connections_opened"`
	ConnectionsClosed int64         `json:"connections_closed"`
	AvgReceiveLatency time.Duration `json:"avg_receive_latency"`
}

// BaseHealthAdapter provides shared status, metrics, and degraded-state tracking.
type BaseHealthAdapter struct {
	source models.Source
	logger *slog.Logger

	status   Status
	statusMu sync.RWMutex

	degraded atomic.Bool

	metrics *Metrics
}

// NewBaseHealthAdapter creates a base health adapter with initialized metrics.
func NewBaseHealthAdapter(source models.Source, logger *slog.Logger) *BaseHealthAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &BaseHealthAdapter{
		source:  source,
		logger:  logger,
		status:  Status{Connected: false},
		metrics: NewMetrics(source),
	}
}

// Status returns the current connection status.
func (b *BaseHealthAdapter) Status() Status {
	b.statusMu.RLock()
	defer b.statusMu.RUnlock()
	return b.status
}

// SetStatus updates the connection status and last ping time.
func (b *BaseHealthAdapter) SetStatus(connected bool, errMsg string) {
	b.statusMu.Lock()
	defer b.statusMu.Unlock()
	b.status = Status{
		Connected: connected,
		Error:     errMsg,
		LastPing:  time.Now().Unix(),
	}
}

// UpdateLastPing refreshes the last ping timestamp without changing state.
func (b *BaseHealthAdapter) UpdateLastPing() {
	b.statusMu.Lock()
	defer b.statusMu.Unlock()
	b.status.LastPing = time.Now().Unix()
}

// SetDegraded marks the adapter as degraded.
func (b *BaseHealthAdapter) SetDegraded(value bool) {
	b.degraded.Store(value)
}

// IsDegraded reports whether the adapter is in degraded mode.
func (b *BaseHealthAdapter) IsDegraded() bool {
	return b.degraded.Load()
}

// Metrics returns a snapshot of adapter metrics.
func (b *BaseHealthAdapter) Metrics() MetricsSnapshot {
	if b.metrics == nil {
		return MetricsSnapshot{Source: b.source}
	}
	return b.metrics.Snapshot()
}

// RecordMessageReceived increments the received message counter.
func (b *BaseHealthAdapter) RecordMessageReceived() {
	if b.metrics != nil {
		b.metrics.RecordMessageReceived()
	}
}

// RecordMessageFailed increments the failed message counter.
func (b *BaseHealthAdapter) RecordMessageFailed() {
	if b.metrics != nil {
		b.metrics.RecordMessageFailed()
	}
}

// RecordError increments the error counter for a specific code.
func (b *BaseHealthAdapter) RecordError(code ErrorCode) {
	if b.metrics != nil {
		b.metrics.RecordError(code)
	}
}

// RecordReceiveLatency records the latency of an ingest operation.
func (b *BaseHealthAdapter) RecordReceiveLatency(duration time.Duration) {
	if b.metrics != nil {
		b.metrics.RecordReceiveLatency(duration)
	}
}

// RecordConnectionOpened increments the connections opened counter.
func (b *BaseHealthAdapter) RecordConnectionOpened() {
	if b.metrics != nil {
		b.metrics.RecordConnectionOpened()
	}
}

// RecordConnectionClosed increments the connections closed counter.
func (b *BaseHealthAdapter) RecordConnectionClosed() {
	if b.metrics != nil {
		b.metrics.RecordConnectionClosed()
	}
}

// RecordReconnectAttempt increments the reconnect attempts counter.
func (b *BaseHealthAdapter) RecordReconnectAttempt() {
	if b.metrics != nil {
		b.metrics.RecordReconnectAttempt()
	}
}

// HealthCheck provides a default health check based on status/degraded state.
func (b *BaseHealthAdapter) HealthCheck(ctx context.Context) HealthStatus {
	start := time.Now()
	status := b.Status()
	healthy := status.Connected && status.Error == ""
	message := "ok"
	if !healthy {
		if status.Error != "" {
			message = status.Error
		} else {
			message = "not connected"
		}
	}
	_ = ctx
	return HealthStatus{
		Healthy:   healthy,
		Latency:   time.Since(start),
		Message:   message,
		LastCheck: time.Now(),
		Degraded:  b.IsDegraded(),
	}
}

// Logger returns the adapter logger.
func (b *BaseHealthAdapter) Logger() *slog.Logger {
	return b.logger
}
