package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"certalert/internal/entity"
	"certalert/internal/metrics"

	"go.uber.org/zap"
)

// Generator creates at most one pending reminder per (certification, tier)
// for active certifications inside the alert window.
type Generator struct {
	certs     CertificationStore
	reminders ReminderStore
	log       *zap.Logger
}

func NewGenerator(certs CertificationStore, reminders ReminderStore, log *zap.Logger) *Generator {
	return &Generator{certs: certs, reminders: reminders, log: log}
}

// Generate returns the number of reminders created for today. Any store failure
// is reported as entity.ErrStoreUnavailable and aborts generation.
func (g *Generator) Generate(ctx context.Context, today time.Time) (int, error) {
	const op = "service.Generator.Generate"

	startTime := time.Now()
	defer logSlowOperation(g.log, op, startTime)

	until := today.AddDate(0, 0, entity.AlertWindowDays)
	certs, err := g.certs.ListActiveExpiringBy(ctx, until)
	if err != nil {
		return 0, fmt.Errorf("%s: list certifications: %w: %w", op, entity.ErrStoreUnavailable, err)
	}

	created := 0
	for _, cert := range certs {
		if cert.ExpiryDate == nil {
			continue
		}

		tier, ok := entity.Classify(*cert.ExpiryDate, today)
		if !ok || cert.AlertSent(tier) || !cert.Type.Enables(tier) {
			continue
		}

		_, err := g.reminders.Create(ctx, entity.Reminder{
			CertificationID: cert.ID,
			CompanyID:       cert.CompanyID,
			Tier:            tier,
			ScheduledDate:   today,
			Status:          entity.ReminderPending,
		})
		if err != nil {
			if errors.Is(err, entity.ErrConflictingData) {
				continue
			}
			return created, fmt.Errorf("%s: create reminder for %s: %w: %w", op, cert.ID, entity.ErrStoreUnavailable, err)
		}

		created++
		metrics.RemindersCreated.WithLabelValues(tier.String()).Inc()
		g.log.Debug("reminder created",
			zap.String("op", op),
			zap.String("certification_id", cert.ID.String()),
			zap.String("tier", tier.String()),
		)
	}

	g.log.Info("generation completed",
		zap.String("op", op),
		zap.Int("evaluated", len(certs)),
		zap.Int("created", created),
	)

	return created, nil
}
