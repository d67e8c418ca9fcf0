package repository

import (
	"context"
	"errors"
	"fmt"

	"certalert/internal/entity"
	"certalert/pkg/postgres"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type DirectoryRepository struct {
	db *postgres.Postgres
}

func NewDirectoryRepository(db *postgres.Postgres) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

func (r *DirectoryRepository) GetWorker(ctx context.Context, id uuid.UUID) (*entity.Worker, error) {
	const op = "repository.DirectoryRepository.GetWorker"

	sql, args, err := r.db.Builder.Select("id", "company_id", "first_name", "last_name", "email").
		From("workers").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build query: %w", op, err)
	}

	var w entity.Worker
	err = r.db.Executor(ctx).QueryRow(ctx, sql, args...).Scan(
		&w.ID,
		&w.CompanyID,
		&w.FirstName,
		&w.LastName,
		&w.Email,
	)
	if err != nil {
		return nil, mapErr(op, err)
	}

	return &w, nil
}

func (r *DirectoryRepository) GetCompany(ctx context.Context, id uuid.UUID) (*entity.Company, error) {
	const op = "repository.DirectoryRepository.GetCompany"

	sql, args, err := r.db.Builder.Select(
		"id", "name", "domain",
		"safety_manager_name", "safety_manager_email", "safety_manager_phone", "phone",
	).
		From("companies").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build query: %w", op, err)
	}

	var c entity.Company
	err = r.db.Executor(ctx).QueryRow(ctx, sql, args...).Scan(
		&c.ID,
		&c.Name,
		&c.Domain,
		&c.SafetyManagerName,
		&c.SafetyManagerEmail,
		&c.SafetyManagerPhone,
		&c.Phone,
	)
	if err != nil {
		return nil, mapErr(op, err)
	}

	return &c, nil
}

// FindContactByRole returns one holder of role in the company, or nil when none exists.
// Holders are taken in creation order so the choice is stable between runs.
func (r *DirectoryRepository) FindContactByRole(ctx context.Context, companyID uuid.UUID, role entity.Role) (*entity.Contact, error) {
	const op = "repository.DirectoryRepository.FindContactByRole"

	sql, args, err := r.db.Builder.Select("id", "company_id", "role", "name", "email").
		From("company_contacts").
		Where(squirrel.Eq{"company_id": companyID, "role": string(role)}).
		Where(squirrel.NotEq{"email": ""}).
		OrderBy("created_at ASC", "id ASC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build query: %w", op, err)
	}

	var (
		c       entity.Contact
		roleStr string
	)
	err = r.db.Executor(ctx).QueryRow(ctx, sql, args...).Scan(
		&c.ID,
		&c.CompanyID,
		&roleStr,
		&c.Name,
		&c.Email,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}
	c.Role = entity.Role(roleStr)

	return &c, nil
}
