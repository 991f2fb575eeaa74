package notify

import (
	"context"
	"fmt"
	"time"

	retry "github.com/avast/retry-go"
	"github.com/bytedance/sonic"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Config holds the NATS publisher settings.
type Config struct {
	// URL is the NATS server address, e.g. nats://localhost:4222.
	URL string `yaml:"url" validate:"required"`

	// Subject the created events are published on.
	Subject string `yaml:"subject" validate:"required"`

	// MaxReconnects of the underlying connection; -1 retries forever.
	MaxReconnects int `yaml:"max_reconnects"`

	// ReconnectWait between connection attempts.
	ReconnectWait time.Duration `yaml:"reconnect_wait"`

	// Timeout for the initial connect.
	Timeout time.Duration `yaml:"timeout"`

	// PublishAttempts bounds the per-event retry loop.
	PublishAttempts uint `yaml:"publish_attempts"`
}

// DefaultConfig returns the publisher defaults: reconnect forever, three
// publish attempts with backoff.
func DefaultConfig() Config {
	return Config{
		URL:             nats.DefaultURL,
		Subject:         "users.created",
		MaxReconnects:   -1,
		ReconnectWait:   2 * time.Second,
		Timeout:         5 * time.Second,
		PublishAttempts: 3,
	}
}

// NATSPublisher publishes created events to a NATS subject.
type NATSPublisher struct {
	conn     *nats.Conn
	subject  string
	attempts uint
	log      *zap.Logger
}

var _ Publisher = (*NATSPublisher)(nil)

// NewNATSPublisher connects to the configured server. logger may be nil.
func NewNATSPublisher(cfg Config, logger *zap.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Subject == "" {
		return nil, fmt.Errorf("notify: subject is required")
	}
	attempts := cfg.PublishAttempts
	if attempts == 0 {
		attempts = 3
	}

	conn, err := nats.Connect(cfg.URL,
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("notify: connect to %s: %w", cfg.URL, err)
	}

	logger.Info("nats publisher connected",
		zap.String("url", cfg.URL),
		zap.String("subject", cfg.Subject))

	return &NATSPublisher{
		conn:     conn,
		subject:  cfg.Subject,
		attempts: attempts,
		log:      logger,
	}, nil
}

// PublishCreated implements Publisher. The publish is retried with backoff
// up to the configured attempts; ctx cancellation stops the loop early.
func (p *NATSPublisher) PublishCreated(ctx context.Context, event CreatedEvent) error {
	payload, err := sonic.Marshal(event)
	if err != nil {
		return fmt.Errorf("notify: encode event: %w", err)
	}

	return retry.Do(
		func() error {
			return p.conn.Publish(p.subject, payload)
		},
		retry.Attempts(p.attempts),
		retry.Delay(time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			p.log.Warn("publish retry",
				zap.String("subject", p.subject),
				zap.Uint("attempt", n+1),
				zap.Error(err))
		}),
	)
}

// Close drains the connection so queued events are flushed before shutdown.
func (p *NATSPublisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return err
	}
	return nil
}
