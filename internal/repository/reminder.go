package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"certalert/internal/entity"
	"certalert/pkg/postgres"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	reminderColumns = "id, certification_id, company_id, tier, scheduled_date, status, attempts, sent_at, claimed_at, error_message, created_at"
	// Duplicate (certification, tier) pairs are dropped by the partial unique index.
	reminderConflictSuffix = "ON CONFLICT (certification_id, tier) WHERE superseded_at IS NULL DO NOTHING RETURNING id"
)

type ReminderRepository struct {
	db *postgres.Postgres
}

func NewReminderRepository(db *postgres.Postgres) *ReminderRepository {
	return &ReminderRepository{db: db}
}

func (r *ReminderRepository) scanReminder(scanner rowScanner) (*entity.Reminder, error) {
	var (
		rem           entity.Reminder
		tier, status  string
		scheduledDate pgtype.Date
		sentAt        pgtype.Timestamptz
		claimedAt     pgtype.Timestamptz
		errorMessage  pgtype.Text
	)

	err := scanner.Scan(
		&rem.ID,
		&rem.CertificationID,
		&rem.CompanyID,
		&tier,
		&scheduledDate,
		&status,
		&rem.Attempts,
		&sentAt,
		&claimedAt,
		&errorMessage,
		&rem.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rem.Tier = entity.Tier(tier)
	rem.Status = entity.ReminderStatus(status)
	rem.ScheduledDate = scheduledDate.Time
	if sentAt.Valid {
		rem.SentAt = &sentAt.Time
	}
	if claimedAt.Valid {
		rem.ClaimedAt = &claimedAt.Time
	}
	if errorMessage.Valid {
		rem.ErrorMessage = errorMessage.String
	}

	return &rem, nil
}

// Create inserts a pending reminder. A second reminder for the same
// (certification, tier) returns entity.ErrConflictingData.
func (r *ReminderRepository) Create(ctx context.Context, rem entity.Reminder) (*entity.Reminder, error) {
	const op = "repository.ReminderRepository.Create"

	var err error
	rem.ID, err = uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("%s: new v7 uuid: %w", op, err)
	}
	if rem.CreatedAt.IsZero() {
		rem.CreatedAt = time.Now().UTC()
	}
	if rem.Status == "" {
		rem.Status = entity.ReminderPending
	}

	sql, args, err := r.db.Builder.Insert("reminders").
		Columns("id", "certification_id", "company_id", "tier", "scheduled_date", "status", "created_at").
		Values(rem.ID, rem.CertificationID, rem.CompanyID, string(rem.Tier), rem.ScheduledDate, string(rem.Status), rem.CreatedAt).
		Suffix(reminderConflictSuffix).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: building query: %w", op, err)
	}

	var id uuid.UUID
	if err := r.db.Executor(ctx).QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrConflictingData)
		}
		return nil, mapErr(op, err)
	}

	return &rem, nil
}

func (r *ReminderRepository) Exists(ctx context.Context, certificationID uuid.UUID, tier entity.Tier) (bool, error) {
	const op = "repository.ReminderRepository.Exists"

	sql, args, err := r.db.Builder.Select("1").
		From("reminders").
		Where(squirrel.Eq{
			"certification_id": certificationID,
			"tier":             string(tier),
			"superseded_at":    nil,
		}).
		Prefix("SELECT EXISTS (").
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%s: building query: %w", op, err)
	}

	var exists bool
	if err := r.db.Executor(ctx).QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: query: %w", op, err)
	}

	return exists, nil
}

func (r *ReminderRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Reminder, error) {
	const op = "repository.ReminderRepository.GetByID"

	sql, args, err := r.db.Builder.Select(reminderColumns).
		From("reminders").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: building query: %w", op, err)
	}

	rem, err := r.scanReminder(r.db.Executor(ctx).QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, mapErr(op, err)
	}

	return rem, nil
}

// ListDue returns pending reminders scheduled on or before day, oldest first.
func (r *ReminderRepository) ListDue(ctx context.Context, day time.Time, limit uint64) ([]entity.Reminder, error) {
	const op = "repository.ReminderRepository.ListDue"

	q := r.db.Builder.Select(reminderColumns).
		From("reminders").
		Where(squirrel.Eq{"status": string(entity.ReminderPending)}).
		Where(squirrel.LtOrEq{"scheduled_date": day}).
		OrderBy("scheduled_date ASC", "created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	return r.list(ctx, op, q)
}

func (r *ReminderRepository) ListByStatus(ctx context.Context, status entity.ReminderStatus, limit uint64) ([]entity.Reminder, error) {
	const op = "repository.ReminderRepository.ListByStatus"

	q := r.db.Builder.Select(reminderColumns).
		From("reminders").
		Where(squirrel.Eq{"status": string(status)}).
		OrderBy("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	return r.list(ctx, op, q)
}

func (r *ReminderRepository) list(ctx context.Context, op string, q squirrel.SelectBuilder) ([]entity.Reminder, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: building query: %w", op, err)
	}

	rows, err := r.db.Executor(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}
	defer rows.Close()

	var results []entity.Reminder
	for rows.Next() {
		rem, err := r.scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, err)
		}
		results = append(results, *rem)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows error: %w", op, err)
	}

	return results, nil
}

// Claim moves a pending reminder to sending. It reports false when another
// run already claimed or finished it.
func (r *ReminderRepository) Claim(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	const op = "repository.ReminderRepository.Claim"

	sql, args, err := r.db.Builder.Update("reminders").
		Set("status", string(entity.ReminderSending)).
		Set("claimed_at", at).
		Set("attempts", squirrel.Expr("attempts + 1")).
		Where(squirrel.Eq{"id": id, "status": string(entity.ReminderPending)}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%s: building query: %w", op, err)
	}

	res, err := r.db.Executor(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("%s: exec: %w", op, err)
	}

	return res.RowsAffected() == 1, nil
}

func (r *ReminderRepository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	const op = "repository.ReminderRepository.MarkSent"

	return r.update(ctx, op, r.db.Builder.Update("reminders").
		Set("status", string(entity.ReminderSent)).
		Set("sent_at", at).
		Set("error_message", nil).
		Where(squirrel.Eq{"id": id}))
}

func (r *ReminderRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	const op = "repository.ReminderRepository.MarkFailed"

	return r.update(ctx, op, r.db.Builder.Update("reminders").
		Set("status", string(entity.ReminderFailed)).
		Set("error_message", errMsg).
		Where(squirrel.Eq{"id": id}))
}

// ReleaseStale returns reminders stuck in sending since before cutoff to pending.
func (r *ReminderRepository) ReleaseStale(ctx context.Context, cutoff time.Time) (int64, error) {
	const op = "repository.ReminderRepository.ReleaseStale"

	sql, args, err := r.db.Builder.Update("reminders").
		Set("status", string(entity.ReminderPending)).
		Set("claimed_at", nil).
		Where(squirrel.Eq{"status": string(entity.ReminderSending)}).
		Where(squirrel.Lt{"claimed_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: building query: %w", op, err)
	}

	res, err := r.db.Executor(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: exec: %w", op, err)
	}

	return res.RowsAffected(), nil
}

func (r *ReminderRepository) update(ctx context.Context, op string, q squirrel.UpdateBuilder) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("%s: building query: %w", op, err)
	}

	res, err := r.db.Executor(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s: exec: %w", op, err)
	}

	if res.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, entity.ErrDataNotFound)
	}

	return nil
}
