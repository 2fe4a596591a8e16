package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/sci-com/scicom-api/internal/metrics"
)

const defaultSchedule = "@every 15m"

type TokenPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type SessionPurger interface {
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// TokenCleanup periodically removes expired one-time tokens and sessions.
// Either store may be nil.
type TokenCleanup struct {
	tokens   TokenPurger
	sessions SessionPurger
	logger   *zap.Logger
	cron     *cron.Cron
	timeout  time.Duration
	now      func() time.Time
}

func NewTokenCleanup(tokens TokenPurger, sessions SessionPurger, logger *zap.Logger) *TokenCleanup {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenCleanup{
		tokens:   tokens,
		sessions: sessions,
		logger:   logger.Named("token_cleanup"),
		cron:     cron.New(),
		timeout:  time.Minute,
		now:      time.Now,
	}
}

// Start schedules the job with a standard cron expression or descriptor such
// as "@every 30m". An empty schedule runs every 15 minutes.
func (j *TokenCleanup) Start(schedule string) error {
	if schedule == "" {
		schedule = defaultSchedule
	}
	if _, err := j.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
		defer cancel()
		j.Run(ctx)
	}); err != nil {
		return fmt.Errorf("schedule token cleanup %q: %w", schedule, err)
	}
	j.cron.Start()
	j.logger.Info("token cleanup scheduled", zap.String("schedule", schedule))
	return nil
}

// Stop waits for a running pass to finish or ctx to expire.
func (j *TokenCleanup) Stop(ctx context.Context) {
	done := j.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// Run performs a single cleanup pass and reports how many rows were removed.
func (j *TokenCleanup) Run(ctx context.Context) (tokens, sessions int64) {
	now := j.now().UTC()

	if j.tokens != nil {
		n, err := j.tokens.PurgeExpired(ctx, now)
		if err != nil {
			j.logger.Error("purge expired tokens", zap.Error(err))
		} else {
			tokens = n
			metrics.RecordTokensPurged(n)
		}
	}
	if j.sessions != nil {
		n, err := j.sessions.DeleteExpired(ctx, now)
		if err != nil {
			j.logger.Error("delete expired sessions", zap.Error(err))
		} else {
			sessions = n
		}
	}

	if tokens > 0 || sessions > 0 {
		j.logger.Info("expired credentials removed",
			zap.Int64("tokens", tokens),
			zap.Int64("sessions", sessions),
		)
	}
	return tokens, sessions
}
