package service

import (
	"context"
	"time"

	"github.com/and161185/tunehub/internal/repository"
	"go.uber.org/zap"
)

// Housekeeper periodically deletes expired sessions.
type Housekeeper struct {
	sessions repository.SessionRepository
	interval time.Duration
	now      func() time.Time
	log      *zap.Logger
}

// NewHousekeeper constructs a Housekeeper. Non-positive intervals default to one hour.
func NewHousekeeper(sessions repository.SessionRepository, interval time.Duration, log *zap.Logger) *Housekeeper {
	if interval <= 0 {
		interval = time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Housekeeper{sessions: sessions, interval: interval, now: time.Now, log: log.Named("housekeeping")}
}

// RunOnce deletes sessions that expired before now.
func (h *Housekeeper) RunOnce(ctx context.Context) (int64, error) {
	n, err := h.sessions.DeleteExpired(ctx, h.now())
	if err != nil {
		h.log.Warn("purge expired sessions", zap.Error(err))
		return n, err
	}
	if n > 0 {
		h.log.Info("purged expired sessions", zap.Int64("count", n))
	}
	return n, nil
}

// Run calls RunOnce every interval until ctx is done.
func (h *Housekeeper) Run(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_, _ = h.RunOnce(ctx)
		}
	}
}
