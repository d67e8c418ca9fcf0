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

// Sweeper moves certifications expiring today from active to expired and makes
// sure each one has exactly one expired-tier reminder.
type Sweeper struct {
	certs      CertificationStore
	reminders  ReminderStore
	dispatcher *Dispatcher
	tx         TxManager
	log        *zap.Logger
}

func NewSweeper(certs CertificationStore, reminders ReminderStore, dispatcher *Dispatcher, tx TxManager, log *zap.Logger) *Sweeper {
	if tx == nil {
		tx = noTx{}
	}
	return &Sweeper{certs: certs, reminders: reminders, dispatcher: dispatcher, tx: tx, log: log}
}

// Sweep handles every active certification whose expiry date is today. The
// status transition and reminder creation share a transaction; delivery of a
// newly created reminder follows immediately. A second sweep on the same day
// finds nothing active and does nothing.
func (s *Sweeper) Sweep(ctx context.Context, today time.Time) (entity.RunResult, error) {
	const op = "service.Sweeper.Sweep"

	var res entity.RunResult

	certs, err := s.certs.ListActiveExpiringOn(ctx, today)
	if err != nil {
		return res, fmt.Errorf("%s: list certifications: %w: %w", op, entity.ErrStoreUnavailable, err)
	}

	for _, cert := range certs {
		var (
			created      *entity.Reminder
			transitioned bool
		)

		err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
			exists, err := s.reminders.Exists(ctx, cert.ID, entity.TierExpired)
			if err != nil {
				return fmt.Errorf("check existing reminder: %w", err)
			}

			if !exists {
				created, err = s.reminders.Create(ctx, entity.Reminder{
					CertificationID: cert.ID,
					CompanyID:       cert.CompanyID,
					Tier:            entity.TierExpired,
					ScheduledDate:   today,
					Status:          entity.ReminderPending,
				})
				if err != nil && !errors.Is(err, entity.ErrConflictingData) {
					return fmt.Errorf("create reminder: %w", err)
				}
			}

			transitioned, err = s.certs.Expire(ctx, cert.ID)
			if err != nil {
				return fmt.Errorf("expire: %w", err)
			}
			return nil
		})
		if err != nil {
			created = nil
			res.Errors = append(res.Errors, itemError(cert.ID.String(), entity.TierExpired, err))
			s.log.Error("sweep failed for certification",
				zap.String("op", op),
				zap.String("certification_id", cert.ID.String()),
				zap.Error(err),
			)
			continue
		}

		if transitioned {
			metrics.SweepTransitions.WithLabelValues("expired").Inc()
			s.log.Info("certification expired",
				zap.String("op", op),
				zap.String("certification_id", cert.ID.String()),
				zap.Bool("reminder_created", created != nil),
			)
		} else {
			metrics.SweepTransitions.WithLabelValues("unchanged").Inc()
			s.log.Warn("certification no longer active, status left unchanged",
				zap.String("op", op),
				zap.String("certification_id", cert.ID.String()),
				zap.Bool("reminder_created", created != nil),
			)
		}

		if created == nil {
			continue
		}

		res.RemindersCreated++
		metrics.RemindersCreated.WithLabelValues(entity.TierExpired.String()).Inc()

		sent, err := s.dispatcher.Dispatch(ctx, *created)
		switch {
		case err != nil:
			res.EmailsFailed++
			res.Errors = append(res.Errors, itemError(created.ID.String(), created.Tier, err))
		case sent:
			res.EmailsSent++
		default:
			res.Skipped++
		}
	}

	return res, nil
}

func itemError(id string, tier entity.Tier, err error) string {
	return fmt.Sprintf("%s (%s) [%s]: %v", id, tier, entity.ErrorKind(err), err)
}
