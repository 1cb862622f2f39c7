// Package timer accrues elapsed time on in_progress tasks and endpoints.
package timer

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"shipline/internal/repo"
)

// Loop applies relative elapsed-time increments on a fixed tick. Ticks are
// serialized by mu; a slow database makes later ticks carry a larger delta
// instead of overlapping.
type Loop struct {
	Repo     repo.Repo
	Interval time.Duration
	Now      func() time.Time
	OnChange func()
	Log      zerolog.Logger

	mu   sync.Mutex
	last time.Time
}

func New(r repo.Repo, interval time.Duration, log zerolog.Logger) *Loop {
	if interval <= 0 {
		interval = time.Second
	}
	return &Loop{
		Repo:     r,
		Interval: interval,
		Now:      time.Now,
		Log:      log,
	}
}

// Start runs the loop until ctx is canceled.
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	l.last = l.Now()
	l.mu.Unlock()

	ticker := time.NewTicker(l.Interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Tick(ctx)
			}
		}
	}()
}

// Tick advances accrual by the whole seconds elapsed since the last
// accounted tick. Sub-second remainders stay banked for the next tick, so
// no time is lost or double counted. A failure in one entity class does not
// block the other.
func (l *Loop) Tick(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.Now()
	if l.last.IsZero() {
		l.last = now
		return
	}
	delta := int64(now.Sub(l.last) / time.Second)
	if delta <= 0 {
		return
	}
	l.last = l.last.Add(time.Duration(delta) * time.Second)

	var changed int64
	n, err := l.Repo.AccrueTasks(ctx, delta)
	if err != nil {
		l.Log.Error().Err(err).Msg("timer: task accrual failed")
	} else {
		changed += n
	}
	n, err = l.Repo.AccrueEndpoints(ctx, delta)
	if err != nil {
		l.Log.Error().Err(err).Msg("timer: endpoint accrual failed")
	} else {
		changed += n
	}
	if changed > 0 && l.OnChange != nil {
		l.OnChange()
	}
}
