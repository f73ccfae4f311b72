package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// WebhookReporter delivers finished reports to configured webhook
// URLs. Deliveries run on background workers with exponential backoff;
// each URL gets its own circuit breaker so a flapping endpoint does
// not burn retries for the rest. Permanently failed deliveries land in
// a dead-letter buffer for inspection.
type WebhookReporter struct {
	logger zerolog.Logger
	cfg    ReportingConfig
	client *http.Client
	queue  chan *reportDelivery

	cbMu     sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker

	dlMu       sync.Mutex
	deadLetter []DeadLetterEntry

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type reportDelivery struct {
	ID      string
	URL     string
	Payload []byte
}

// DeadLetterEntry is a delivery that exhausted its retries.
type DeadLetterEntry struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	FailedAt  time.Time `json:"failed_at"`
	LastError string    `json:"last_error"`
}

const maxDeadLetters = 500

// NewWebhookReporter creates a reporter with background delivery workers.
func NewWebhookReporter(logger zerolog.Logger, cfg ReportingConfig) *WebhookReporter {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 2
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &WebhookReporter{
		logger:   logger.With().Str("component", "webhook_reporter").Logger(),
		cfg:      cfg,
		client:   &http.Client{Timeout: 15 * time.Second},
		queue:    make(chan *reportDelivery, cfg.QueueSize),
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		ctx:      ctx,
		cancel:   cancel,
	}

	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	return r
}

// Deliver enqueues the report payload for every configured URL. The
// call never blocks report generation; a full queue drops with a log.
func (r *WebhookReporter) Deliver(payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		r.logger.Error().Err(err).Msg("marshaling report payload")
		return
	}
	for _, url := range r.cfg.WebhookURLs {
		d := &reportDelivery{ID: uuid.New().String(), URL: url, Payload: data}
		select {
		case r.queue <- d:
		default:
			r.logger.Warn().Str("url", url).Msg("delivery queue full, report dropped")
		}
	}
}

// DeadLetters returns a copy of the dead-letter buffer.
func (r *WebhookReporter) DeadLetters() []DeadLetterEntry {
	r.dlMu.Lock()
	defer r.dlMu.Unlock()
	out := make([]DeadLetterEntry, len(r.deadLetter))
	copy(out, r.deadLetter)
	return out
}

// Close stops the workers. Queued deliveries are abandoned.
func (r *WebhookReporter) Close() {
	r.cancel()
	r.wg.Wait()
}

func (r *WebhookReporter) worker() {
	defer r.wg.Done()
	for {
		select {
		case <-r.ctx.Done():
			return
		case d := <-r.queue:
			r.deliverWithRetry(d)
		}
	}
}

func (r *WebhookReporter) deliverWithRetry(d *reportDelivery) {
	backoff := r.cfg.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= r.cfg.MaxRetries; attempt++ {
		_, err := r.breaker(d.URL).Execute(func() (interface{}, error) {
			return nil, r.post(d)
		})
		if err == nil {
			r.logger.Debug().Str("url", d.URL).Int("attempt", attempt).Msg("report delivered")
			return
		}
		lastErr = err
		r.logger.Warn().Err(err).Str("url", d.URL).Int("attempt", attempt).Msg("delivery failed")

		select {
		case <-r.ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > r.cfg.MaxBackoff {
			backoff = r.cfg.MaxBackoff
		}
	}

	r.dlMu.Lock()
	r.deadLetter = append(r.deadLetter, DeadLetterEntry{
		ID:        d.ID,
		URL:       d.URL,
		FailedAt:  time.Now().UTC(),
		LastError: lastErr.Error(),
	})
	if len(r.deadLetter) > maxDeadLetters {
		r.deadLetter = r.deadLetter[len(r.deadLetter)-maxDeadLetters:]
	}
	r.dlMu.Unlock()

	r.logger.Error().Str("url", d.URL).Str("delivery_id", d.ID).Msg("delivery dead-lettered")
}

func (r *WebhookReporter) post(d *reportDelivery) error {
	req, err := http.NewRequestWithContext(r.ctx, http.MethodPost, d.URL, bytes.NewReader(d.Payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-ID", d.ID)

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (r *WebhookReporter) breaker(url string) *gobreaker.CircuitBreaker {
	r.cbMu.Lock()
	defer r.cbMu.Unlock()
	if cb, ok := r.breakers[url]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        url,
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})
	r.breakers[url] = cb
	return cb
}
