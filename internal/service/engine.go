package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"certalert/internal/entity"
	"certalert/internal/metrics"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const _defaultListLimit = 50

// Deps are the collaborators injected into the engine.
type Deps struct {
	Certifications CertificationStore
	Reminders      ReminderStore
	Directory      Directory
	Audit          AuditSink
	Transport      NotificationTransport
}

// Engine is the daily orchestrator: generate, dispatch due reminders, sweep expired.
type Engine struct {
	reminders  ReminderStore
	certs      CertificationStore
	generator  *Generator
	dispatcher *Dispatcher
	sweeper    *Sweeper
	log        *zap.Logger
	tracer     trace.Tracer
	cfg        settings
}

// ManualResult is the outcome of an operator-triggered send.
type ManualResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

func NewEngine(deps Deps, log *zap.Logger, opts ...Option) (*Engine, error) {
	const op = "service.NewEngine"

	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if deps.Certifications == nil || deps.Reminders == nil || deps.Directory == nil {
		return nil, fmt.Errorf("%s: certification, reminder and directory stores are required", op)
	}

	dispatcher, err := NewDispatcher(DispatcherDeps{
		Certifications: deps.Certifications,
		Reminders:      deps.Reminders,
		Directory:      deps.Directory,
		Audit:          deps.Audit,
		Transport:      deps.Transport,
	}, log, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Engine{
		reminders:  deps.Reminders,
		certs:      deps.Certifications,
		generator:  NewGenerator(deps.Certifications, deps.Reminders, log),
		dispatcher: dispatcher,
		sweeper:    NewSweeper(deps.Certifications, deps.Reminders, dispatcher, cfg.tx, log),
		log:        log,
		tracer:     otel.Tracer("certalert/engine"),
		cfg:        cfg,
	}, nil
}

// Run executes one daily pass. A generation or pending-fetch failure aborts
// the run before anything is dispatched; per-reminder failures are collected
// in the result.
func (e *Engine) Run(ctx context.Context) (entity.RunResult, error) {
	const op = "service.Engine.Run"

	res := entity.RunResult{StartedAt: e.cfg.clock(), Errors: []string{}}
	today := e.cfg.todayAt(res.StartedAt)

	ctx, span := e.tracer.Start(ctx, "Run", trace.WithAttributes(
		attribute.String("run.date", today.Format(time.DateOnly)),
	))
	defer span.End()

	log := e.log.With(zap.String("op", op), zap.String("date", today.Format(time.DateOnly)))
	log.Info("daily run started")

	fail := func(err error) (entity.RunResult, error) {
		res.FinishedAt = e.cfg.clock()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		outcome := "failed"
		if errors.Is(err, entity.ErrRunInProgress) {
			outcome = "skipped"
		}
		metrics.RunsTotal.WithLabelValues(outcome).Inc()
		log.Error("daily run aborted", zap.Error(err))
		return res, fmt.Errorf("%s: %w", op, err)
	}

	if e.cfg.locker != nil {
		release, err := e.cfg.locker.Acquire(ctx)
		if err != nil {
			return fail(err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("failed to release run lock", zap.Error(err))
			}
		}()
	}

	released, err := e.reminders.ReleaseStale(ctx, res.StartedAt.Add(-e.cfg.claimTTL))
	if err != nil {
		log.Warn("failed to release stale claims", zap.Error(err))
	} else if released > 0 {
		log.Info("released stale claims", zap.Int64("count", released))
	}

	created, err := e.generator.Generate(ctx, today)
	res.RemindersCreated = created
	if err != nil {
		return fail(err)
	}

	due, err := e.reminders.ListDue(ctx, today, e.cfg.batchLimit)
	if err != nil {
		return fail(fmt.Errorf("list due reminders: %w: %w", entity.ErrStoreUnavailable, err))
	}
	res.Merge(e.dispatchAll(ctx, due))

	swept, err := e.sweeper.Sweep(ctx, today)
	res.Merge(swept)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("sweep [%s]: %v", entity.ErrorKind(err), err))
		log.Error("expired sweep failed", zap.Error(err))
	}

	res.FinishedAt = e.cfg.clock()
	metrics.RunsTotal.WithLabelValues("completed").Inc()
	metrics.RunDuration.Observe(res.FinishedAt.Sub(res.StartedAt).Seconds())
	span.SetAttributes(
		attribute.Int("run.reminders_created", res.RemindersCreated),
		attribute.Int("run.sent", res.EmailsSent),
		attribute.Int("run.failed", res.EmailsFailed),
	)

	log.Info("daily run completed",
		zap.Int("reminders_created", res.RemindersCreated),
		zap.Int("emails_sent", res.EmailsSent),
		zap.Int("emails_failed", res.EmailsFailed),
		zap.Int("skipped", res.Skipped),
		zap.Int("errors", len(res.Errors)),
		zap.Duration("duration", res.FinishedAt.Sub(res.StartedAt)),
	)

	return res, nil
}

// dispatchAll delivers reminders with bounded parallelism. One failure never
// stops the rest.
func (e *Engine) dispatchAll(ctx context.Context, due []entity.Reminder) entity.RunResult {
	var (
		mu  sync.Mutex
		res entity.RunResult
		g   errgroup.Group
	)
	g.SetLimit(e.cfg.concurrency)

	for _, rem := range due {
		rem := rem
		g.Go(func() error {
			sent, err := e.dispatcher.Dispatch(ctx, rem)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				res.EmailsFailed++
				res.Errors = append(res.Errors, itemError(rem.ID.String(), rem.Tier, err))
			case sent:
				res.EmailsSent++
			default:
				res.Skipped++
			}
			return nil
		})
	}
	_ = g.Wait()

	return res
}

// SendManualReminder dispatches a one-off reminder for certificationID at tier,
// bypassing generation and idempotency. The returned error is set only for an
// invalid tier or an unknown certification; delivery failures land in the result.
func (e *Engine) SendManualReminder(ctx context.Context, certificationID uuid.UUID, tier entity.Tier) (ManualResult, error) {
	const op = "service.Engine.SendManualReminder"

	if !tier.IsValid() {
		return ManualResult{}, fmt.Errorf("%s: tier %q: %w", op, tier, entity.ErrInvalidData)
	}

	cert, err := e.certs.GetByID(ctx, certificationID)
	if err != nil {
		return ManualResult{}, fmt.Errorf("%s: %w", op, err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return ManualResult{}, fmt.Errorf("%s: new v7 uuid: %w", op, err)
	}

	rem := entity.Reminder{
		ID:              id,
		CertificationID: cert.ID,
		CompanyID:       cert.CompanyID,
		Tier:            tier,
		ScheduledDate:   e.cfg.today(),
		Status:          entity.ReminderPending,
		CreatedAt:       e.cfg.clock().UTC(),
		Manual:          true,
	}

	e.log.Info("manual reminder requested",
		zap.String("op", op),
		zap.String("certification_id", cert.ID.String()),
		zap.String("tier", tier.String()),
	)

	if _, err := e.dispatcher.Dispatch(ctx, rem); err != nil {
		return ManualResult{Success: false, Error: err.Error(), Kind: entity.ErrorKind(err)}, nil
	}

	return ManualResult{Success: true}, nil
}

// ListReminders returns reminders in status, newest first. Failed reminders are
// never retried automatically; this listing plus the manual trigger is the resend path.
func (e *Engine) ListReminders(ctx context.Context, status entity.ReminderStatus, limit uint64) ([]entity.Reminder, error) {
	const op = "service.Engine.ListReminders"

	if !status.IsValid() {
		return nil, fmt.Errorf("%s: status %q: %w", op, status, entity.ErrInvalidData)
	}
	if limit == 0 {
		limit = _defaultListLimit
	}
	if limit > _maxBatchLimit {
		limit = _maxBatchLimit
	}

	rems, err := e.reminders.ListByStatus(ctx, status, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if rems == nil {
		rems = []entity.Reminder{}
	}

	return rems, nil
}
