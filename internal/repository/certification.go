package repository

import (
	"context"
	"fmt"
	"time"

	"certalert/internal/entity"
	"certalert/pkg/postgres"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

var certificationColumns = []string{
	"c.id", "c.worker_id", "c.company_id", "c.certificate_number",
	"c.issue_date", "c.expiry_date", "c.status",
	"c.alert_60_sent", "c.alert_30_sent", "c.alert_7_sent", "c.alert_expired_sent", "c.last_alert_at",
	"t.id", "t.name", "t.code", "t.category",
	"t.alert_at_60", "t.alert_at_30", "t.alert_at_7", "t.alert_on_expiry", "t.required_for_work",
}

type CertificationRepository struct {
	db *postgres.Postgres
}

func NewCertificationRepository(db *postgres.Postgres) *CertificationRepository {
	return &CertificationRepository{db: db}
}

func (r *CertificationRepository) selectBase() squirrel.SelectBuilder {
	return r.db.Builder.Select(certificationColumns...).
		From("certifications c").
		Join("certification_types t ON t.id = c.type_id")
}

func (r *CertificationRepository) scanCertification(scanner rowScanner) (*entity.Certification, error) {
	var (
		c           entity.Certification
		status      string
		issueDate   pgtype.Date
		expiryDate  pgtype.Date
		lastAlertAt pgtype.Timestamptz
	)

	err := scanner.Scan(
		&c.ID,
		&c.WorkerID,
		&c.CompanyID,
		&c.CertificateNumber,
		&issueDate,
		&expiryDate,
		&status,
		&c.Alert60Sent,
		&c.Alert30Sent,
		&c.Alert7Sent,
		&c.AlertExpiredSent,
		&lastAlertAt,
		&c.Type.ID,
		&c.Type.Name,
		&c.Type.Code,
		&c.Type.Category,
		&c.Type.AlertAt60,
		&c.Type.AlertAt30,
		&c.Type.AlertAt7,
		&c.Type.AlertOnExpiry,
		&c.Type.RequiredForWork,
	)
	if err != nil {
		return nil, err
	}

	c.Status = entity.CertificationStatus(status)
	if issueDate.Valid {
		c.IssueDate = &issueDate.Time
	}
	if expiryDate.Valid {
		c.ExpiryDate = &expiryDate.Time
	}
	if lastAlertAt.Valid {
		c.LastAlertAt = &lastAlertAt.Time
	}

	return &c, nil
}

func (r *CertificationRepository) list(ctx context.Context, op string, q squirrel.SelectBuilder) ([]entity.Certification, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: building query: %w", op, err)
	}

	rows, err := r.db.Executor(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}
	defer rows.Close()

	var results []entity.Certification
	for rows.Next() {
		c, err := r.scanCertification(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, err)
		}
		results = append(results, *c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows error: %w", op, err)
	}

	return results, nil
}

// ListActiveExpiringBy returns active certifications with a non-null expiry on or before until.
func (r *CertificationRepository) ListActiveExpiringBy(ctx context.Context, until time.Time) ([]entity.Certification, error) {
	const op = "repository.CertificationRepository.ListActiveExpiringBy"

	q := r.selectBase().
		Where(squirrel.Eq{"c.status": string(entity.CertificationActive)}).
		Where(squirrel.NotEq{"c.expiry_date": nil}).
		Where(squirrel.LtOrEq{"c.expiry_date": until}).
		OrderBy("c.expiry_date ASC", "c.id ASC")

	return r.list(ctx, op, q)
}

// ListActiveExpiringOn returns active certifications whose expiry date is exactly day.
func (r *CertificationRepository) ListActiveExpiringOn(ctx context.Context, day time.Time) ([]entity.Certification, error) {
	const op = "repository.CertificationRepository.ListActiveExpiringOn"

	q := r.selectBase().
		Where(squirrel.Eq{"c.status": string(entity.CertificationActive)}).
		Where(squirrel.Eq{"c.expiry_date": day}).
		OrderBy("c.id ASC")

	return r.list(ctx, op, q)
}

func (r *CertificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Certification, error) {
	const op = "repository.CertificationRepository.GetByID"

	sql, args, err := r.selectBase().
		Where(squirrel.Eq{"c.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: building query: %w", op, err)
	}

	c, err := r.scanCertification(r.db.Executor(ctx).QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, mapErr(op, err)
	}

	return c, nil
}

// MarkAlertSent sets the tier flag and last alert time. Flags are only ever set, never cleared.
func (r *CertificationRepository) MarkAlertSent(ctx context.Context, id uuid.UUID, tier entity.Tier, at time.Time) error {
	const op = "repository.CertificationRepository.MarkAlertSent"

	column := entity.AlertColumn(tier)
	if column == "" {
		return fmt.Errorf("%s: tier %q: %w", op, tier, entity.ErrInvalidData)
	}

	sql, args, err := r.db.Builder.Update("certifications").
		Set(column, true).
		Set("last_alert_at", at).
		Where(squirrel.Eq{"id": id}).
		ToSql()
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

// Expire moves an active certification to expired. It reports false when the
// certification was not active anymore.
func (r *CertificationRepository) Expire(ctx context.Context, id uuid.UUID) (bool, error) {
	const op = "repository.CertificationRepository.Expire"

	sql, args, err := r.db.Builder.Update("certifications").
		Set("status", string(entity.CertificationExpired)).
		Where(squirrel.Eq{"id": id, "status": string(entity.CertificationActive)}).
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
