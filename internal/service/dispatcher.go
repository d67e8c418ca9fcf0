package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"certalert/internal/entity"
	"certalert/internal/metrics"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Dispatcher delivers a single reminder and records the outcome.
type Dispatcher struct {
	certs     CertificationStore
	reminders ReminderStore
	dir       Directory
	audit     AuditSink
	transport NotificationTransport
	resolver  *Resolver
	renderer  *Renderer
	log       *zap.Logger
	tracer    trace.Tracer
	cfg       settings
}

type DispatcherDeps struct {
	Certifications CertificationStore
	Reminders      ReminderStore
	Directory      Directory
	Audit          AuditSink
	Transport      NotificationTransport
	Renderer       *Renderer
}

func NewDispatcher(deps DispatcherDeps, log *zap.Logger, opts ...Option) (*Dispatcher, error) {
	const op = "service.NewDispatcher"

	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if deps.Transport == nil {
		return nil, fmt.Errorf("%s: invalid transport: must be non-nil", op)
	}

	renderer := deps.Renderer
	if renderer == nil {
		var err error
		if renderer, err = NewRenderer(); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return &Dispatcher{
		certs:     deps.Certifications,
		reminders: deps.Reminders,
		dir:       deps.Directory,
		audit:     deps.Audit,
		transport: deps.Transport,
		resolver:  NewResolver(deps.Directory),
		renderer:  renderer,
		log:       log,
		tracer:    otel.Tracer("certalert/dispatcher"),
		cfg:       cfg,
	}, nil
}

// Dispatch sends rem. It returns true on delivery, false with an error on
// failure, and false with a nil error when a persisted reminder could not be
// claimed because another run owns it.
func (d *Dispatcher) Dispatch(ctx context.Context, rem entity.Reminder) (bool, error) {
	const op = "service.Dispatcher.Dispatch"

	ctx, span := d.tracer.Start(ctx, "Dispatch", trace.WithAttributes(
		attribute.String("reminder.id", rem.ID.String()),
		attribute.String("certification.id", rem.CertificationID.String()),
		attribute.String("reminder.tier", rem.Tier.String()),
		attribute.Bool("reminder.manual", rem.Manual),
	))
	defer span.End()

	log := d.log.With(
		zap.String("op", op),
		zap.String("reminder_id", rem.ID.String()),
		zap.String("certification_id", rem.CertificationID.String()),
		zap.String("tier", rem.Tier.String()),
	)
	startTime := time.Now()
	defer logSlowOperation(log, op, startTime)

	if !rem.Manual {
		claimed, err := d.reminders.Claim(ctx, rem.ID, d.cfg.clock())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return false, fmt.Errorf("%s: claim: %w: %w", op, entity.ErrStoreUnavailable, err)
		}
		if !claimed {
			log.Info("reminder already claimed, skipping")
			return false, nil
		}
	}

	msg, sendErr := d.deliver(ctx, rem)
	entry := entity.NotificationLog{
		ReminderID:      rem.ID,
		CertificationID: rem.CertificationID,
		Tier:            rem.Tier,
		Recipients:      msg.To,
		Subject:         msg.Subject,
		Provider:        d.transport.Name(),
		Manual:          rem.Manual,
	}

	if sendErr != nil {
		span.RecordError(sendErr)
		span.SetStatus(codes.Error, sendErr.Error())
		metrics.NotificationsTotal.WithLabelValues(rem.Tier.String(), d.transport.Name(), string(entity.OutcomeFailed)).Inc()

		if !rem.Manual {
			if err := d.reminders.MarkFailed(ctx, rem.ID, sendErr.Error()); err != nil {
				log.Error("failed to mark reminder failed", zap.Error(err))
			}
		}

		entry.Outcome = entity.OutcomeFailed
		entry.Error = sendErr.Error()
		d.appendAudit(ctx, log, entry)

		log.Warn("dispatch failed", zap.String("kind", entity.ErrorKind(sendErr)), zap.Error(sendErr))
		return false, fmt.Errorf("%s: %w", op, sendErr)
	}

	// The certification flag is the last write and happens only after the transport succeeded.
	now := d.cfg.clock()
	err := d.cfg.tx.WithinTx(ctx, func(ctx context.Context) error {
		if !rem.Manual {
			if err := d.reminders.MarkSent(ctx, rem.ID, now); err != nil {
				return fmt.Errorf("mark sent: %w", err)
			}
		}
		if err := d.certs.MarkAlertSent(ctx, rem.CertificationID, rem.Tier, now); err != nil {
			return fmt.Errorf("mark alert sent: %w", err)
		}
		return nil
	})
	if err != nil {
		// Delivery already happened, so the attempt still counts as sent.
		log.Error("delivered but failed to record", zap.Error(err))
		span.RecordError(err)
	}

	metrics.NotificationsTotal.WithLabelValues(rem.Tier.String(), d.transport.Name(), string(entity.OutcomeSent)).Inc()
	entry.Outcome = entity.OutcomeSent
	d.appendAudit(ctx, log, entry)

	log.Info("reminder delivered",
		zap.Int("recipients", len(msg.To)),
		zap.String("provider", d.transport.Name()),
		zap.Duration("duration", time.Since(startTime)),
	)
	return true, nil
}

// deliver builds and sends the message. The returned message carries whatever
// was resolved before a failure so the audit entry documents the attempt.
func (d *Dispatcher) deliver(ctx context.Context, rem entity.Reminder) (entity.Message, error) {
	msg := entity.Message{ReminderID: rem.ID, Tier: rem.Tier}

	if !rem.Tier.IsValid() {
		return msg, fmt.Errorf("tier %q: %w", rem.Tier, entity.ErrInvalidData)
	}

	cert, err := d.certs.GetByID(ctx, rem.CertificationID)
	if err != nil {
		return msg, missing("certification", err)
	}
	if cert.ExpiryDate == nil {
		return msg, fmt.Errorf("certification %s expiry date: %w", cert.ID, entity.ErrMissingData)
	}

	worker, err := d.dir.GetWorker(ctx, cert.WorkerID)
	if err != nil {
		return msg, missing("worker", err)
	}

	companyID := rem.CompanyID
	if companyID == uuid.Nil {
		companyID = cert.CompanyID
	}
	company, err := d.dir.GetCompany(ctx, companyID)
	if err != nil {
		return msg, missing("company", err)
	}

	recipients, err := d.resolver.Resolve(ctx, rem.Tier, worker, company)
	if err != nil {
		return msg, err
	}
	msg.To = addresses(recipients)

	content, err := d.renderer.Render(rem.Tier, RenderInput{
		Certification: *cert,
		Worker:        *worker,
		Company:       *company,
		Recipients:    recipients,
		Today:         d.cfg.today(),
	})
	if err != nil {
		return msg, err
	}
	msg.Subject = content.Subject
	msg.TextBody = content.TextBody
	msg.HTMLBody = content.HTMLBody
	msg.From = d.fromAddress(company)
	msg.ReplyTo = company.SafetyManagerEmail

	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.itemTimeout)
	defer cancel()

	if err := d.transport.Send(sendCtx, msg); err != nil {
		if errors.Is(err, entity.ErrTransport) {
			return msg, err
		}
		if errors.Is(sendCtx.Err(), context.DeadlineExceeded) {
			return msg, fmt.Errorf("%w: %s: timed out after %s: %w", entity.ErrTransport, d.transport.Name(), d.cfg.itemTimeout, err)
		}
		return msg, fmt.Errorf("%w: %s: %w", entity.ErrTransport, d.transport.Name(), err)
	}

	return msg, nil
}

func (d *Dispatcher) fromAddress(company *entity.Company) string {
	if company != nil && company.Domain != "" {
		return _fromLocalPart + "@" + company.Domain
	}
	return d.cfg.defaultSender
}

func (d *Dispatcher) appendAudit(ctx context.Context, log *zap.Logger, entry entity.NotificationLog) {
	if d.audit == nil {
		return
	}
	entry.CreatedAt = d.cfg.clock().UTC()
	if err := d.audit.Append(ctx, entry); err != nil {
		log.Warn("audit append failed", zap.Error(err))
	}
}

func missing(what string, err error) error {
	if errors.Is(err, entity.ErrDataNotFound) {
		return fmt.Errorf("%s: %w: %w", what, entity.ErrMissingData, err)
	}
	return fmt.Errorf("%s: %w", what, err)
}
