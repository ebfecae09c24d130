package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// IntentExpirer closes pending intents whose confirmation window has passed.
type IntentExpirer interface {
	ExpireDue(ctx context.Context, now time.Time, limit int) (int, error)
}

// ExpirySweeper periodically expires overdue payment intents.
type ExpirySweeper struct {
	expirer   IntentExpirer
	logger    zerolog.Logger
	interval  time.Duration
	batchSize int
	maxRounds int
	now       func() time.Time
}

// ExpiryConfig configures an ExpirySweeper.
type ExpiryConfig struct {
	Interval  time.Duration
	BatchSize int
	// MaxRounds bounds how many full batches one sweep drains.
	MaxRounds int
}

// NewExpirySweeper creates an ExpirySweeper.
func NewExpirySweeper(expirer IntentExpirer, cfg ExpiryConfig, logger zerolog.Logger) *ExpirySweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = 10
	}

	return &ExpirySweeper{
		expirer:   expirer,
		logger:    logger.With().Str("component", "expiry_sweeper").Logger(),
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		maxRounds: cfg.MaxRounds,
		now:       time.Now,
	}
}

// Start sweeps on every interval until ctx is cancelled.
func (s *ExpirySweeper) Start(ctx context.Context) error {
	s.logger.Info().
		Dur("interval", s.interval).
		Int("batch_size", s.batchSize).
		Msg("expiry sweeper started")

	err := Every(ctx, s.interval, s.logger, func(ctx context.Context) error {
		_, err := s.Sweep(ctx)
		return err
	})

	s.logger.Info().Msg("expiry sweeper shutting down")
	return err
}

// Sweep expires due intents, draining full batches up to the round limit,
// and returns how many were expired.
func (s *ExpirySweeper) Sweep(ctx context.Context) (int, error) {
	total := 0
	for round := 0; round < s.maxRounds; round++ {
		n, err := s.expirer.ExpireDue(ctx, s.now(), s.batchSize)
		total += n
		if err != nil {
			return total, err
		}
		if n < s.batchSize {
			break
		}
	}

	if total > 0 {
		s.logger.Info().Int("expired", total).Msg("expired overdue intents")
	}
	return total, nil
}
