// Package reaper runs the periodic housekeeping jobs: releasing PENDING
// holds whose checkout never completed and pruning old entries from the
// webhook ledger.
package reaper

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// HoldReaper is satisfied by *service.ReservationService.
type HoldReaper interface {
	ReapExpired(ctx context.Context, ttl time.Duration) (int64, error)
}

// LedgerPruner is satisfied by *ledger.Store.
type LedgerPruner interface {
	Prune(cutoff time.Time) (int, error)
}

// Reaper schedules the jobs on a cron spec such as "@every 1m".  A zero
// HoldTTL disables hold expiry and a zero Retention disables pruning.
type Reaper struct {
	Holds     HoldReaper
	Ledger    LedgerPruner
	HoldTTL   time.Duration
	Retention time.Duration
	Log       logrus.FieldLogger

	now  func() time.Time
	cron *cron.Cron
}

// Start registers the jobs and starts the scheduler in its own goroutine.
// It fails only when schedule cannot be parsed.  A run that is still busy
// when the next tick fires is skipped.
func (r *Reaper) Start(schedule string) error {
	logger := cron.PrintfLogger(r.Log)
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	if _, err := c.AddFunc(schedule, func() { r.RunOnce(context.Background()) }); err != nil {
		return err
	}
	r.cron = c
	c.Start()
	r.Log.WithFields(logrus.Fields{"schedule": schedule, "hold_ttl": r.HoldTTL.String(), "retention": r.Retention.String()}).
		Info("reaper started")
	return nil
}

// Stop stops the scheduler and waits for a running job to finish or ctx
// to end.
func (r *Reaper) Stop(ctx context.Context) {
	if r.cron == nil {
		return
	}
	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// RunOnce performs one pass of both jobs.  Errors are logged; the next
// tick retries.
func (r *Reaper) RunOnce(ctx context.Context) {
	if r.Holds != nil && r.HoldTTL > 0 {
		n, err := r.Holds.ReapExpired(ctx, r.HoldTTL)
		if err != nil {
			r.Log.WithError(err).Error("reaping expired holds failed")
		} else if n > 0 {
			r.Log.WithField("released", n).Info("expired holds released")
		}
	}
	if r.Ledger != nil && r.Retention > 0 {
		now := time.Now
		if r.now != nil {
			now = r.now
		}
		n, err := r.Ledger.Prune(now().Add(-r.Retention))
		if err != nil {
			r.Log.WithError(err).Error("pruning webhook ledger failed")
		} else if n > 0 {
			r.Log.WithField("pruned", n).Info("webhook ledger pruned")
		}
	}
}
