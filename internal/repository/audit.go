package repository

import (
	"context"
	"fmt"
	"time"

	"certalert/internal/entity"
	"certalert/pkg/postgres"

	"github.com/google/uuid"
)

// AuditRepository appends notification attempts. Rows are never updated.
type AuditRepository struct {
	db *postgres.Postgres
}

func NewAuditRepository(db *postgres.Postgres) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, entry entity.NotificationLog) error {
	const op = "repository.AuditRepository.Append"

	var err error
	if entry.ID == uuid.Nil {
		entry.ID, err = uuid.NewV7()
		if err != nil {
			return fmt.Errorf("%s: new v7 uuid: %w", op, err)
		}
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var errText *string
	if entry.Error != "" {
		errText = &entry.Error
	}

	recipients := entry.Recipients
	if recipients == nil {
		recipients = []string{}
	}

	sql, args, err := r.db.Builder.Insert("notification_logs").
		Columns("id", "reminder_id", "certification_id", "tier", "recipients",
			"subject", "provider", "outcome", "error", "manual", "created_at").
		Values(entry.ID, entry.ReminderID, entry.CertificationID, string(entry.Tier), recipients,
			entry.Subject, entry.Provider, string(entry.Outcome), errText, entry.Manual, entry.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: building query: %w", op, err)
	}

	if _, err := r.db.Executor(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("%s: exec: %w", op, err)
	}

	return nil
}
