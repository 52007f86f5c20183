// Package influx writes combat and server time series to InfluxDB, falling
// back to a gzipped line-protocol file when the server is unreachable.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"

	"github.com/frontierstation/damagecast/internal/config"
	"github.com/frontierstation/damagecast/pkg/core"
)

// BucketServerPerformance receives monitor samples.
const BucketServerPerformance = "server_performance"

// ErrDisabled is returned by Connect when influx is switched off.
var ErrDisabled = errors.New("influx is disabled")

// Manager handles InfluxDB connections and writes.
type Manager struct {
	cfg        config.InfluxConfig
	logger     zerolog.Logger
	backupPath string

	client  influxdb2.Client
	writers map[string]influxdb2_api.WriteAPI
	buckets []string
	valid   bool

	mu         sync.Mutex
	backupFile *os.File
	backup     *gzip.Writer
}

// NewManager creates a manager for cfg. Points written while the server is
// unreachable are appended to backupPath.
func NewManager(cfg config.InfluxConfig, log zerolog.Logger, backupPath string) *Manager {
	bucket := cfg.Bucket
	if bucket == "" {
		bucket = "combat"
	}
	cfg.Bucket = bucket
	return &Manager{
		cfg:        cfg,
		logger:     log,
		backupPath: backupPath,
		writers:    make(map[string]influxdb2_api.WriteAPI),
		buckets:    []string{bucket, BucketServerPerformance},
	}
}

// Bucket returns the bucket hits and narrations are written to.
func (m *Manager) Bucket() string { return m.cfg.Bucket }

// IsValid reports whether points go to the server rather than the backup file.
func (m *Manager) IsValid() bool { return m.valid }

// Connect establishes a connection to InfluxDB.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.client = influxdb2.NewClientWithOptions(
		fmt.Sprintf("%s://%s:%s", m.cfg.Protocol, m.cfg.Host, m.cfg.Port),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	running, err := m.client.Ping(ctx)
	if err != nil || !running {
		m.valid = false
		if err := m.openBackup(); err != nil {
			return err
		}
		m.logger.Warn().Str("backupPath", m.backupPath).
			Msg("InfluxDB unreachable, writing to backup file")
		return nil
	}

	m.valid = true
	if err := m.setupOrganizationAndBuckets(ctx); err != nil {
		return err
	}
	m.createWriters()
	m.logger.Info().Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) openBackup() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.backup != nil {
		return nil
	}
	file, err := os.OpenFile(m.backupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.backup = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBuckets(ctx context.Context) error {
	orgs := m.client.OrganizationsAPI()
	org, err := orgs.FindOrganizationByName(ctx, m.cfg.Org)
	if err != nil {
		m.logger.Info().Str("org", m.cfg.Org).Msg("Organization not found, creating")
		org, err = orgs.CreateOrganizationWithName(ctx, m.cfg.Org)
		if err != nil {
			m.logger.Error().Err(err).Str("org", m.cfg.Org).Msg("Error creating organization")
			return err
		}
	}

	// 90 day retention
	for _, bucket := range m.buckets {
		if _, err := m.client.BucketsAPI().FindBucketByName(ctx, bucket); err == nil {
			continue
		}
		m.logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")

		rule := domain.RetentionRuleTypeExpire
		_, err = m.client.BucketsAPI().CreateBucketWithName(ctx, org, bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: 60 * 60 * 24 * 90,
		})
		if err != nil {
			m.logger.Error().Err(err).Str("bucket", bucket).Msg("Error creating bucket")
			return err
		}
	}
	return nil
}

func (m *Manager) createWriters() {
	for _, bucket := range m.buckets {
		w := m.client.WriteAPI(m.cfg.Org, bucket)
		m.writers[bucket] = w

		go func(bucket string, errs <-chan error) {
			for err := range errs {
				m.logger.Error().Err(err).Str("bucket", bucket).
					Msg("Error sending data to InfluxDB")
			}
		}(bucket, w.Errors())
	}
	m.logger.Debug().Int("buckets", len(m.buckets)).Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(_ context.Context, bucket string, point *influxdb2_write.Point) error {
	if m.valid {
		w, ok := m.writers[bucket]
		if !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		w.WritePoint(point)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.backup == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}
	line := strings.TrimSuffix(influxdb2_write.PointToLineProtocol(point, time.Nanosecond), "\n")
	if _, err := m.backup.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// RecordHit writes h as a "hit" point to the combat bucket.
func (m *Manager) RecordHit(h *core.HitRecord) error {
	return m.WritePoint(context.Background(), m.cfg.Bucket, HitPoint(h))
}

// RecordNarration writes n as a "narration" point to the combat bucket.
func (m *Manager) RecordNarration(n *core.NarrationRecord) error {
	return m.WritePoint(context.Background(), m.cfg.Bucket, NarrationPoint(n))
}

// Close flushes pending writes and releases the client and backup file.
func (m *Manager) Close() error {
	for _, w := range m.writers {
		w.Flush()
	}
	if m.client != nil {
		m.client.Close()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.backup == nil {
		return nil
	}
	err := errors.Join(m.backup.Close(), m.backupFile.Close())
	m.backup, m.backupFile = nil, nil
	return err
}

// HitPoint converts a hit record to a point.
func HitPoint(h *core.HitRecord) *influxdb2_write.Point {
	p := influxdb2_write.NewPointWithMeasurement("hit").
		AddTag("target", string(h.Target)).
		AddTag("result", h.Result.String()).
		AddField("tick", h.Tick).
		AddField("attacker", uint64(h.AttackerID)).
		AddField("raw_brute", h.Raw.Brute).
		AddField("raw_burn", h.Raw.Burn).
		AddField("raw_toxin", h.Raw.Toxin).
		AddField("brute", h.Applied.Brute).
		AddField("burn", h.Applied.Burn).
		AddField("toxin", h.Applied.Toxin).
		AddField("total", h.Applied.Total()).
		AddField("dropped", h.Dropped).
		SetTime(h.Time)
	optionalTag(p, "round", h.Round)
	optionalTag(p, "weapon", h.Weapon)
	optionalTag(p, "region", h.Region)
	if h.VictimID != nil {
		p.AddField("victim", uint64(*h.VictimID))
	}
	return p
}

// NarrationPoint converts a narration record to a point. The text itself is
// left to the combat log.
func NarrationPoint(n *core.NarrationRecord) *influxdb2_write.Point {
	p := influxdb2_write.NewPointWithMeasurement("narration").
		AddField("tick", n.Tick).
		AddField("observer", uint64(n.Observer)).
		AddField("handle", uint64(n.Handle)).
		AddField("length", len(n.Text)).
		SetTime(n.Time)
	optionalTag(p, "round", n.Round)
	return p
}

// line protocol has no empty tag values
func optionalTag(p *influxdb2_write.Point, key, value string) {
	if value != "" {
		p.AddTag(key, value)
	}
}
