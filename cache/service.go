package cache

import (
	"bytes"
	"context"
	"time"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/goliatone/go-entity-store/internal/cacheinfra"
)

// zstdMagic is the zstd frame header. Compressed payloads are recognized by
// this prefix on read, so compression can be toggled per write without
// breaking entries stored under the opposite setting.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Store is the caller-facing cache contract. Every operation absorbs its own
// failures: Get reports a miss, Set/Delete report false, DeletePattern
// reports zero. Cache degradation never becomes the caller's error.
type Store interface {
	// Get loads the value stored under key into dest and reports whether it
	// was found. dest must be a pointer compatible with the codec.
	Get(ctx context.Context, key string, dest any) bool

	// Set stores value under key. A zero ttl leaves expiry to the backend.
	Set(ctx context.Context, key string, value any, ttl time.Duration) bool

	// Delete removes one key, reporting whether it existed.
	Delete(ctx context.Context, key string) bool

	// DeletePattern removes all keys matching the glob pattern and returns
	// how many were removed.
	DeletePattern(ctx context.Context, pattern string) int

	// Metrics returns a point-in-time copy of the store's counters.
	Metrics() Snapshot
}

// Service implements Store over a byte-level backend. Values pass through
// the codec, then through opportunistic zstd compression: payloads at or
// above the configured threshold are compressed, smaller ones are stored raw
// to keep CPU off the hot path for tiny entries.
type Service struct {
	backend   cacheinfra.Backend
	codec     Codec
	log       *zap.Logger
	metrics   *Metrics
	compress  bool
	threshold int
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
}

var _ Store = (*Service)(nil)

// NewService builds a Service on an existing backend. Compression settings
// and codec come from cfg; logger may be nil.
func NewService(backend cacheinfra.Backend, cfg Config, logger *zap.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		backend:   backend,
		codec:     cfg.codec(),
		log:       logger,
		metrics:   &Metrics{},
		compress:  cfg.Compression.Enabled,
		threshold: cfg.Compression.Threshold,
	}

	// The decoder is always built: entries compressed before a config
	// change must stay readable after compression is switched off.
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return nil, err
	}
	s.decoder = decoder

	if s.compress {
		encoder, err := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(cfg.Compression.Level)))
		if err != nil {
			return nil, err
		}
		s.encoder = encoder
		logger.Info("cache compression enabled",
			zap.Int("threshold_bytes", s.threshold),
			zap.Int("level", cfg.Compression.Level))
	}

	return s, nil
}

// Get implements Store. Compressed payloads are detected by the zstd magic
// prefix and decompressed transparently. Any failure, from the backend, the
// decompressor, or the codec, counts as an error and reads as a miss.
func (s *Service) Get(ctx context.Context, key string, dest any) bool {
	s.metrics.recordGet()

	raw, err := s.backend.Get(ctx, key)
	if err != nil {
		if err == cacheinfra.ErrKeyNotFound {
			s.metrics.recordMiss()
			return false
		}
		s.metrics.recordError()
		s.log.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false
	}

	if bytes.HasPrefix(raw, zstdMagic) {
		start := time.Now()
		decompressed, err := s.decoder.DecodeAll(raw, nil)
		if err != nil {
			s.metrics.recordError()
			s.log.Warn("cache decompression failed", zap.String("key", key), zap.Error(err))
			return false
		}
		s.metrics.observeDecompression(float64(time.Since(start).Microseconds()) / 1000)
		raw = decompressed
	}

	if err := s.codec.Unmarshal(raw, dest); err != nil {
		s.metrics.recordError()
		s.log.Warn("cache decode failed", zap.String("key", key), zap.Error(err))
		return false
	}

	s.metrics.recordHit()
	return true
}

// Set implements Store.
func (s *Service) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	s.metrics.recordSet()

	raw, err := s.codec.Marshal(value)
	if err != nil {
		s.metrics.recordError()
		s.log.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return false
	}

	if s.compress && len(raw) >= s.threshold {
		start := time.Now()
		compressed := s.encoder.EncodeAll(raw, nil)
		elapsed := float64(time.Since(start).Microseconds()) / 1000

		ratio := 1.0
		if len(compressed) > 0 {
			ratio = float64(len(raw)) / float64(len(compressed))
		}
		s.metrics.observeCompression(ratio, elapsed)
		raw = compressed
	}

	if err := s.backend.Set(ctx, key, raw, ttl); err != nil {
		s.metrics.recordError()
		s.log.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Delete implements Store.
func (s *Service) Delete(ctx context.Context, key string) bool {
	existed, err := s.backend.Delete(ctx, key)
	if err != nil {
		s.metrics.recordError()
		s.log.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return existed
}

// DeletePattern implements Store.
func (s *Service) DeletePattern(ctx context.Context, pattern string) int {
	count, err := s.backend.DeletePattern(ctx, pattern)
	if err != nil {
		s.metrics.recordError()
		s.log.Warn("cache pattern delete failed", zap.String("pattern", pattern), zap.Error(err))
		return count
	}
	return count
}

// Metrics implements Store.
func (s *Service) Metrics() Snapshot {
	return s.metrics.Snapshot()
}

// Ping verifies the underlying backend is reachable. Unlike the data-path
// operations, the error is returned: Ping exists for health checks, which
// want the failure.
func (s *Service) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

// Close releases the compressor and backend resources.
func (s *Service) Close() error {
	if s.encoder != nil {
		s.encoder.Close()
	}
	s.decoder.Close()
	return s.backend.Close()
}
