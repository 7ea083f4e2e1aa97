// Package retention removes transcript messages past their retention period.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fklc-labs/chatbot-service/internal/app/metrics"
	"github.com/fklc-labs/chatbot-service/internal/app/storage"
	"github.com/fklc-labs/chatbot-service/internal/app/system"
	"github.com/fklc-labs/chatbot-service/internal/logging"
)

// DefaultSchedule runs the purge nightly, off peak.
const DefaultSchedule = "0 3 * * *"

var _ system.Service = (*Purger)(nil)

// Purger is a lifecycle-managed job deleting messages older than the
// configured retention period. A non-positive period disables it.
type Purger struct {
	store    storage.HistoryStore
	days     int
	schedule string
	log      *logging.Logger

	cron *cron.Cron
}

// NewPurger creates a purger removing messages older than days.
func NewPurger(store storage.HistoryStore, days int, log *logging.Logger) *Purger {
	if log == nil {
		log = logging.NewDefault("retention")
	}
	return &Purger{
		store:    store,
		days:     days,
		schedule: DefaultSchedule,
		log:      log,
	}
}

// WithSchedule overrides the cron schedule. Call before Start.
func (p *Purger) WithSchedule(schedule string) {
	p.schedule = schedule
}

func (p *Purger) Name() string { return "retention-purger" }

func (p *Purger) Start(context.Context) error {
	if p.days <= 0 {
		p.log.Info("retention disabled; purger idle")
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc(p.schedule, func() {
		if _, err := p.RunOnce(context.Background()); err != nil {
			p.log.WithError(err).Error("retention purge failed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule retention purge: %w", err)
	}

	p.cron = c
	c.Start()
	p.log.WithField("days", p.days).WithField("schedule", p.schedule).Info("retention purger started")
	return nil
}

func (p *Purger) Stop(ctx context.Context) error {
	if p.cron == nil {
		return nil
	}
	done := p.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce purges immediately and returns how many messages were removed.
func (p *Purger) RunOnce(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -p.days)
	removed, err := p.store.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	metrics.AddPurgedMessages(removed)
	if removed > 0 {
		p.log.WithField("removed", removed).Info("stale transcript messages purged")
	}
	return removed, nil
}
