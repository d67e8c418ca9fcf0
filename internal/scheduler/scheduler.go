package scheduler

import (
	"context"
	"fmt"
	"time"

	"certalert/internal/entity"

	"go.uber.org/zap"
)

type Runner interface {
	Run(ctx context.Context) (entity.RunResult, error)
}

// Daily fires the runner once per day at a fixed local wall-clock time.
type Daily struct {
	runner     Runner
	hour, min  int
	loc        *time.Location
	runOnStart bool
	now        func() time.Time
	log        *zap.Logger
}

// NewDaily parses runAt as HH:MM in loc.
func NewDaily(runner Runner, runAt string, loc *time.Location, runOnStart bool, log *zap.Logger) (*Daily, error) {
	t, err := time.Parse("15:04", runAt)
	if err != nil {
		return nil, fmt.Errorf("scheduler.NewDaily: run at %q: %w", runAt, err)
	}
	if loc == nil {
		loc = time.UTC
	}

	return &Daily{
		runner:     runner,
		hour:       t.Hour(),
		min:        t.Minute(),
		loc:        loc,
		runOnStart: runOnStart,
		now:        time.Now,
		log:        log,
	}, nil
}

// Next returns the first scheduled instant strictly after from.
func (d *Daily) Next(from time.Time) time.Time {
	local := from.In(d.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), d.hour, d.min, 0, 0, d.loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, d.hour, d.min, 0, 0, d.loc)
	}
	return next
}

// Start blocks until ctx is done.
func (d *Daily) Start(ctx context.Context) error {
	if d.runOnStart {
		d.fire(ctx)
	}

	for {
		next := d.Next(d.now())
		d.log.Info("next daily run scheduled", zap.Time("at", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			d.log.Info("scheduler stopped")
			return nil
		case <-timer.C:
			d.fire(ctx)
		}
	}
}

func (d *Daily) fire(ctx context.Context) {
	res, err := d.runner.Run(ctx)
	if err != nil {
		d.log.Error("scheduled run failed", zap.Error(err))
		return
	}
	d.log.Info("scheduled run finished",
		zap.Int("reminders_created", res.RemindersCreated),
		zap.Int("emails_sent", res.EmailsSent),
		zap.Int("emails_failed", res.EmailsFailed),
	)
}
