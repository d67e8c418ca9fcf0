package sender

import (
	"context"
	"fmt"
	"time"

	"certalert/internal/entity"
	"certalert/internal/metrics"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type retrying struct {
	next       Transport
	maxRetries uint64
	initial    time.Duration
	log        *zap.Logger
}

// WithRetry retries failed sends with exponential backoff. Retries stop at
// maxRetries or when ctx (the per-item deadline) is done, whichever comes first.
func WithRetry(next Transport, maxRetries uint64, initial time.Duration, log *zap.Logger) Transport {
	if maxRetries == 0 {
		return next
	}
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	return &retrying{next: next, maxRetries: maxRetries, initial: initial, log: log}
}

func (r *retrying) Name() string { return r.next.Name() }

func (r *retrying) Send(ctx context.Context, msg entity.Message) error {
	attempt := 0
	operation := func() error {
		attempt++
		err := r.next.Send(ctx, msg)
		if err != nil && attempt <= int(r.maxRetries) {
			r.log.Warn("send attempt failed",
				zap.String("provider", r.next.Name()),
				zap.String("reminder_id", msg.ReminderID.String()),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initial
	b.MaxElapsedTime = 0

	return backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, r.maxRetries), ctx))
}

type rateLimited struct {
	next    Transport
	limiter *rate.Limiter
}

// WithRateLimit caps sends per second across all dispatch workers.
func WithRateLimit(next Transport, perSecond float64, burst int) Transport {
	if perSecond <= 0 {
		return next
	}
	if burst <= 0 {
		burst = 1
	}
	return &rateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (r *rateLimited) Name() string { return r.next.Name() }

func (r *rateLimited) Send(ctx context.Context, msg entity.Message) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %s: rate limiter: %w", entity.ErrTransport, r.next.Name(), err)
	}
	return r.next.Send(ctx, msg)
}

type instrumented struct {
	next Transport
}

// Instrumented records send latency per provider and outcome.
func Instrumented(next Transport) Transport {
	return &instrumented{next: next}
}

func (i *instrumented) Name() string { return i.next.Name() }

func (i *instrumented) Send(ctx context.Context, msg entity.Message) error {
	start := time.Now()
	err := i.next.Send(ctx, msg)

	outcome := string(entity.OutcomeSent)
	if err != nil {
		outcome = string(entity.OutcomeFailed)
	}
	metrics.TransportLatency.WithLabelValues(i.next.Name(), outcome).Observe(time.Since(start).Seconds())

	return err
}
