package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/hardwood-league/commish/go/internal/storage"
)

// Pinger is the database liveness probe. pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthStatus is a point-in-time view of the relay.
type HealthStatus struct {
	Healthy           bool
	LastEventTime     time.Time
	EventsProcessed   uint64
	PendingEvents     int
	DatabaseConnected bool
	NATSConnected     bool
	WorkerActive      bool
	Errors            []string
}

// HealthChecker produces relay health snapshots.
type HealthChecker interface {
	Check(ctx context.Context) HealthStatus
}

// pendingAlertThreshold flags an abnormal backlog.
const pendingAlertThreshold = 1000

// RelayHealthChecker checks the worker, database, and NATS connection.
type RelayHealthChecker struct {
	worker    *Worker
	db        Pinger
	natsConn  *nats.Conn
	store     storage.OutboxStore
	threshold time.Duration // how long without events before unhealthy
}

// NewRelayHealthChecker creates a health checker.
func NewRelayHealthChecker(worker *Worker, db Pinger, natsConn *nats.Conn, store storage.OutboxStore, threshold time.Duration) *RelayHealthChecker {
	return &RelayHealthChecker{
		worker:    worker,
		db:        db,
		natsConn:  natsConn,
		store:     store,
		threshold: threshold,
	}
}

var _ HealthChecker = (*RelayHealthChecker)(nil)

// Check inspects every dependency and aggregates a verdict.
func (h *RelayHealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Healthy: true,
		Errors:  []string{},
	}

	processed, lastTime := h.worker.Stats()
	status.EventsProcessed = processed
	status.LastEventTime = lastTime
	status.WorkerActive = h.worker.Running()
	if !status.WorkerActive {
		status.Healthy = false
		status.Errors = append(status.Errors, "worker not active")
	}

	if err := h.db.Ping(ctx); err != nil {
		status.Healthy = false
		status.Errors = append(status.Errors, fmt.Sprintf("database ping failed: %v", err))
	} else {
		status.DatabaseConnected = true
	}

	if h.natsConn != nil {
		status.NATSConnected = h.natsConn.IsConnected()
		if !status.NATSConnected {
			status.Healthy = false
			status.Errors = append(status.Errors, "NATS disconnected")
		}
	}

	if status.DatabaseConnected {
		pending, err := h.store.CountUnsent(ctx)
		if err != nil {
			status.Errors = append(status.Errors, fmt.Sprintf("failed to count pending events: %v", err))
		} else {
			status.PendingEvents = pending
			if pending > pendingAlertThreshold {
				status.Errors = append(status.Errors, fmt.Sprintf("high pending event count: %d", pending))
			}
		}
	}

	// Stale only matters while there is a backlog to move.
	if status.PendingEvents > 0 && !status.LastEventTime.IsZero() {
		if since := time.Since(status.LastEventTime); since > h.threshold {
			status.Healthy = false
			status.Errors = append(status.Errors, fmt.Sprintf("no events processed for %s", since))
		}
	}

	return status
}

// ServeHTTP reports health as JSON, 503 when unhealthy.
func (h *RelayHealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	response := map[string]any{
		"healthy":            status.Healthy,
		"events_processed":   status.EventsProcessed,
		"pending_events":     status.PendingEvents,
		"last_event_time":    status.LastEventTime,
		"database_connected": status.DatabaseConnected,
		"nats_connected":     status.NATSConnected,
		"worker_active":      status.WorkerActive,
		"errors":             status.Errors,
	}

	w.Header().Set("Content-Type", "application/json")
	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(response)
}

// PrometheusExporter renders relay health as Prometheus text format.
type PrometheusExporter struct {
	checker HealthChecker
}

// NewPrometheusExporter creates an exporter.
func NewPrometheusExporter(checker HealthChecker) *PrometheusExporter {
	return &PrometheusExporter{checker: checker}
}

// Export renders the current snapshot.
func (e *PrometheusExporter) Export(ctx context.Context) string {
	status := e.checker.Check(ctx)

	return fmt.Sprintf(`# HELP outbox_healthy Whether the outbox relay is healthy
# TYPE outbox_healthy gauge
outbox_healthy %d

# HELP outbox_events_processed_total Total number of events published
# TYPE outbox_events_processed_total counter
outbox_events_processed_total %d

# HELP outbox_pending_events Current number of unsent events
# TYPE outbox_pending_events gauge
outbox_pending_events %d

# HELP outbox_database_connected Whether the database is reachable
# TYPE outbox_database_connected gauge
outbox_database_connected %d

# HELP outbox_nats_connected Whether NATS is connected
# TYPE outbox_nats_connected gauge
outbox_nats_connected %d

# HELP outbox_worker_active Whether the poll worker is running
# TYPE outbox_worker_active gauge
outbox_worker_active %d

# HELP outbox_last_event_timestamp Unix timestamp of the last published event
# TYPE outbox_last_event_timestamp gauge
outbox_last_event_timestamp %d
`,
		boolGauge(status.Healthy),
		status.EventsProcessed,
		status.PendingEvents,
		boolGauge(status.DatabaseConnected),
		boolGauge(status.NATSConnected),
		boolGauge(status.WorkerActive),
		status.LastEventTime.Unix(),
	)
}

// ServeHTTP serves the metrics endpoint.
func (e *PrometheusExporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprint(w, e.Export(r.Context()))
}

func boolGauge(b bool) int {
	if b {
		return 1
	}
	return 0
}
