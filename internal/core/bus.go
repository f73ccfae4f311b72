package core

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// ReportEvent is the summary published when a report completes. The
// full report goes to webhooks; the bus carries the lightweight
// notification downstream consumers key on.
type ReportEvent struct {
	ID               string    `json:"id"`
	GeneratedAt      time.Time `json:"generated_at"`
	SourceFile       string    `json:"source_file"`
	Records          int       `json:"records"`
	TotalThreatCount int       `json:"total_threat_count"`
	Accuracy         string    `json:"accuracy"`
	Status           string    `json:"status"`
}

// NewReportEvent creates a ReportEvent with a generated ID and current timestamp.
func NewReportEvent(sourceFile string) *ReportEvent {
	return &ReportEvent{
		ID:          uuid.New().String(),
		GeneratedAt: time.Now().UTC(),
		SourceFile:  sourceFile,
	}
}

// EventBus wraps NATS JetStream for report notifications. If
// cfg.Embedded is true it runs an embedded NATS server, so serve mode
// works with zero external infrastructure.
type EventBus struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	ns     *server.Server
	logger zerolog.Logger
	mu     sync.Mutex

	published int64
	failed    int64
}

// NewEventBus creates a new EventBus. If cfg.Embedded is true, it starts an embedded NATS server.
func NewEventBus(cfg *BusConfig, logger zerolog.Logger) (*EventBus, error) {
	bus := &EventBus{
		logger: logger.With().Str("component", "event_bus").Logger(),
	}

	if cfg.Embedded {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating NATS data dir: %w", err)
		}

		opts := &server.Options{
			Host:      "127.0.0.1",
			Port:      cfg.Port,
			JetStream: true,
			StoreDir:  cfg.DataDir,
			NoLog:     true,
			NoSigs:    true,
		}

		ns, err := server.NewServer(opts)
		if err != nil {
			return nil, fmt.Errorf("creating embedded NATS server: %w", err)
		}

		ns.Start()

		if !ns.ReadyForConnections(10 * time.Second) {
			return nil, fmt.Errorf("embedded NATS server failed to start within timeout")
		}

		bus.ns = ns
		bus.logger.Info().Int("port", cfg.Port).Msg("embedded NATS server started")
	}

	url := cfg.URL
	if cfg.Embedded {
		// ClientURL carries the resolved port (cfg.Port may be -1 for
		// an ephemeral one).
		url = bus.ns.ClientURL()
	}

	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				bus.logger.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			bus.logger.Info().Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	bus.nc = nc

	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}
	bus.js = js

	// Create or update the reports stream. AddStream returns the
	// existing stream if the config matches; if it exists with a
	// different config (e.g. after an upgrade), update it.
	streamCfg := &nats.StreamConfig{
		Name:      "ANALYTICS_REPORTS",
		Subjects:  []string{"reports.>"},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour * 30, // 30 days retention
		MaxBytes:  256 * 1024 * 1024,   // 256MB max
		Storage:   nats.FileStorage,
		Discard:   nats.DiscardOld,
	}
	if _, err = js.AddStream(streamCfg); err != nil {
		if _, updateErr := js.UpdateStream(streamCfg); updateErr != nil {
			return nil, fmt.Errorf("creating/updating reports stream: %w (original: %v)", updateErr, err)
		}
	}

	bus.logger.Info().Str("url", url).Msg("connected to NATS JetStream")
	return bus, nil
}

// PublishReport publishes a completed-report notification.
func (b *EventBus) PublishReport(ev *ReportEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling report event: %w", err)
	}

	const subject = "reports.completed"
	if _, err := b.js.Publish(subject, data); err != nil {
		b.mu.Lock()
		b.failed++
		b.mu.Unlock()
		return fmt.Errorf("publishing report event to %s: %w", subject, err)
	}

	b.mu.Lock()
	b.published++
	b.mu.Unlock()

	b.logger.Debug().
		Str("report_id", ev.ID).
		Str("subject", subject).
		Str("status", ev.Status).
		Msg("report event published")

	return nil
}

// IsConnected reports whether the NATS connection is up.
func (b *EventBus) IsConnected() bool {
	return b.nc != nil && b.nc.IsConnected()
}

// Published returns how many report events went out.
func (b *EventBus) Published() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.published
}

// Failed returns how many publishes errored.
func (b *EventBus) Failed() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failed
}

// Close drains the connection and stops the embedded server if running.
func (b *EventBus) Close() {
	if b.nc != nil {
		_ = b.nc.Drain()
	}
	if b.ns != nil {
		b.ns.Shutdown()
	}
}
