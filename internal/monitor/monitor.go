// Package monitor periodically samples queue depths and session counts.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/frontierstation/damagecast/internal/round"
)

// DefaultInterval is used when Dependencies.Interval is zero.
const DefaultInterval = 10 * time.Second

// Measurement is the influx measurement samples are written as.
const Measurement = "damagecast"

// Counter is anything with a current size.
type Counter interface {
	Len() int
}

// Transport reports open client connections.
type Transport interface {
	Connections() int
}

// PendingWrites is implemented by storage backends that queue records.
type PendingWrites interface {
	Pending() (hits, narrations int)
}

// MetricWriter receives one point per sample.
type MetricWriter interface {
	WritePoint(ctx context.Context, bucket string, point *influxdb2_write.Point) error
}

// Dependencies holds all dependencies for the monitor service. Only Round
// is required.
type Dependencies struct {
	Round     *round.Context
	Outbox    Counter
	Sessions  Counter
	Transport Transport
	Observers Counter
	Storage   any
	Metrics   MetricWriter
	Bucket    string
	Logger    *slog.Logger

	// StatusFile, when set, is rewritten with the latest sample as JSON.
	StatusFile string
	Interval   time.Duration
}

// Status is one sample.
type Status struct {
	Time              time.Time `json:"time"`
	Round             string    `json:"round"`
	Tick              uint64    `json:"tick"`
	Outbox            int       `json:"outbox"`
	Sessions          int       `json:"sessions"`
	Connections       int       `json:"connections"`
	Observers         int       `json:"observers"`
	PendingHits       int       `json:"pendingHits"`
	PendingNarrations int       `json:"pendingNarrations"`
}

// Service manages status monitoring.
type Service struct {
	deps Dependencies
	now  func() time.Time

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewService creates a new monitor service.
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	return &Service{deps: deps, now: time.Now}
}

// IsRunning returns whether the status monitor is running.
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// Sample reads the current status.
func (s *Service) Sample() Status {
	st := Status{
		Time:  s.now(),
		Round: s.deps.Round.Round(),
		Tick:  s.deps.Round.Tick(),
	}
	if s.deps.Outbox != nil {
		st.Outbox = s.deps.Outbox.Len()
	}
	if s.deps.Sessions != nil {
		st.Sessions = s.deps.Sessions.Len()
	}
	if s.deps.Transport != nil {
		st.Connections = s.deps.Transport.Connections()
	}
	if s.deps.Observers != nil {
		st.Observers = s.deps.Observers.Len()
	}
	if p, ok := s.deps.Storage.(PendingWrites); ok {
		st.PendingHits, st.PendingNarrations = p.Pending()
	}
	return st
}

// Point converts a sample to an influx point.
func (st Status) Point() *influxdb2_write.Point {
	p := influxdb2_write.NewPointWithMeasurement(Measurement).
		AddField("tick", st.Tick).
		AddField("outbox", st.Outbox).
		AddField("sessions", st.Sessions).
		AddField("connections", st.Connections).
		AddField("observers", st.Observers).
		AddField("pending_hits", st.PendingHits).
		AddField("pending_narrations", st.PendingNarrations).
		SetTime(st.Time)
	if st.Round != "" {
		p.AddTag("round", st.Round)
	}
	return p
}

// Record takes a sample and publishes it to the log, the metric writer and
// the status file.
func (s *Service) Record(ctx context.Context) Status {
	st := s.Sample()
	s.deps.Logger.Debug("Status",
		"round", st.Round,
		"tick", st.Tick,
		"outbox", st.Outbox,
		"sessions", st.Sessions,
		"connections", st.Connections,
		"observers", st.Observers,
		"pendingHits", st.PendingHits,
		"pendingNarrations", st.PendingNarrations)

	if s.deps.Metrics != nil {
		if err := s.deps.Metrics.WritePoint(ctx, s.deps.Bucket, st.Point()); err != nil {
			s.deps.Logger.Error("Error writing status point", "error", err)
		}
	}
	if s.deps.StatusFile != "" {
		if err := writeStatusFile(s.deps.StatusFile, st); err != nil {
			s.deps.Logger.Error("Error writing status file", "error", err)
		}
	}
	return st
}

func writeStatusFile(path string, st Status) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// Start starts the status monitor goroutine. Calling Start on a running
// service is a no-op.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.isRunning = true

	go func(done chan struct{}) {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
			close(done)
		}()

		s.deps.Logger.Debug("Starting status monitor", "interval", s.deps.Interval)
		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Record(ctx)
			}
		}
	}(s.done)
}

// Stop stops the status monitor and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
