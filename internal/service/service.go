package service

import (
	"context"
	"time"

	"certalert/internal/entity"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	_slowOperationThreshold = 2 * time.Second
	_defaultBatchLimit      = 500
	_maxBatchLimit          = 10000
	_defaultConcurrency     = 1
	_defaultItemTimeout     = 30 * time.Second
	_defaultClaimTTL        = 15 * time.Minute
	_defaultSender          = "notifications@certalert.local"
	_fromLocalPart          = "compliance"
)

type (
	// CertificationStore reads certifications and writes the notified flags and status.
	CertificationStore interface {
		ListActiveExpiringBy(ctx context.Context, until time.Time) ([]entity.Certification, error)
		ListActiveExpiringOn(ctx context.Context, day time.Time) ([]entity.Certification, error)
		GetByID(ctx context.Context, id uuid.UUID) (*entity.Certification, error)
		MarkAlertSent(ctx context.Context, id uuid.UUID, tier entity.Tier, at time.Time) error
		Expire(ctx context.Context, id uuid.UUID) (bool, error)
	}

	// ReminderStore persists reminders. Create returns entity.ErrConflictingData
	// when a reminder for the same certification and tier already exists.
	ReminderStore interface {
		Create(ctx context.Context, rem entity.Reminder) (*entity.Reminder, error)
		Exists(ctx context.Context, certificationID uuid.UUID, tier entity.Tier) (bool, error)
		GetByID(ctx context.Context, id uuid.UUID) (*entity.Reminder, error)
		ListDue(ctx context.Context, day time.Time, limit uint64) ([]entity.Reminder, error)
		ListByStatus(ctx context.Context, status entity.ReminderStatus, limit uint64) ([]entity.Reminder, error)
		Claim(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
		MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
		MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
		ReleaseStale(ctx context.Context, cutoff time.Time) (int64, error)
	}

	// Directory resolves workers, companies and role holders.
	// FindContactByRole returns nil without error when nobody holds the role.
	Directory interface {
		GetWorker(ctx context.Context, id uuid.UUID) (*entity.Worker, error)
		GetCompany(ctx context.Context, id uuid.UUID) (*entity.Company, error)
		FindContactByRole(ctx context.Context, companyID uuid.UUID, role entity.Role) (*entity.Contact, error)
	}

	AuditSink interface {
		Append(ctx context.Context, entry entity.NotificationLog) error
	}

	// NotificationTransport delivers one rendered message.
	NotificationTransport interface {
		Name() string
		Send(ctx context.Context, msg entity.Message) error
	}

	// TxManager runs fn in a transaction carried by the derived context.
	TxManager interface {
		WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	}

	// Locker guards against overlapping runs. Acquire returns entity.ErrRunInProgress
	// when another run holds the lock.
	Locker interface {
		Acquire(ctx context.Context) (func(context.Context) error, error)
	}

	Clock func() time.Time
)

type noTx struct{}

func (noTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func logSlowOperation(log *zap.Logger, op string, startTime time.Time, fields ...zap.Field) {
	duration := time.Since(startTime)
	if duration > _slowOperationThreshold {
		log.Warn("slow operation detected",
			append([]zap.Field{zap.String("op", op), zap.Duration("duration", duration)}, fields...)...,
		)
	}
}
