// Package jobs runs the recurring background work: the nightly
// consistency coin credit for users who logged real activity the
// previous day.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// ConsistencyAwarder credits coins to every active user with a genuine
// activity record on the given UTC day and reports how many accounts
// were credited.
type ConsistencyAwarder interface {
	AwardConsistencyCoins(ctx context.Context, day time.Time, amount int64) (int64, error)
}

// Scheduler owns the cron loop. All schedules run in UTC so the day
// boundary matches how activity dates are bucketed.
type Scheduler struct {
	cron    *cron.Cron
	awarder ConsistencyAwarder
	spec    string
	amount  int64
}

// NewScheduler builds a Scheduler that runs the consistency credit on
// the given cron spec.
func NewScheduler(awarder ConsistencyAwarder, spec string, amount int64) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		awarder: awarder,
		spec:    spec,
		amount:  amount,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		day := time.Now().UTC().AddDate(0, 0, -1)
		awarded, err := s.awarder.AwardConsistencyCoins(ctx, day, s.amount)
		if err != nil {
			log.WithError(err).Error("consistency credit failed")
			return
		}
		log.WithFields(log.Fields{
			"day":     day.Format("2006-01-02"),
			"awarded": awarded,
		}).Info("consistency coins credited")
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	log.WithField("spec", s.spec).Info("scheduler started")
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("scheduler stopped")
}
