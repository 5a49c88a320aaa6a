package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/glavarch/gpzu/internal/database"
	"github.com/glavarch/gpzu/internal/models"
)

// ApplicationFilter narrows and pages the application journal.
type ApplicationFilter struct {
	Cadnum string
	Status models.ApplicationStatus
	Search string
	Skip   int
	Limit  int
}

// ApplicationPatch is a partial update; nil fields are left untouched.
type ApplicationPatch struct {
	Date         *string
	Applicant    *string
	Phone        *string
	Email        *string
	Address      *string
	Area         *float64
	PermittedUse *string
	Status       *models.ApplicationStatus
}

// ApplicationRepository defines data access for the application journal.
// Get methods return nil, nil when the record does not exist; errors are
// reserved for actual database failures.
type ApplicationRepository interface {
	Create(ctx context.Context, app *models.Application) (*models.Application, error)
	GetByID(ctx context.Context, id int64) (*models.Application, error)
	GetByNumber(ctx context.Context, number string) (*models.Application, error)
	List(ctx context.Context, filter ApplicationFilter) ([]models.Application, int, error)
	Update(ctx context.Context, id int64, patch ApplicationPatch) (*models.Application, error)
	Delete(ctx context.Context, id int64) error
}

type applicationRepository struct {
	db *database.Database
}

// NewApplicationRepository creates a new instance of ApplicationRepository.
func NewApplicationRepository(db *database.Database) ApplicationRepository {
	return &applicationRepository{db: db}
}

const applicationColumns = `
	id, number, date, applicant, phone, email,
	cadnum, address, area, permitted_use, status,
	created_at, updated_at`

func scanApplication(row pgx.Row) (*models.Application, error) {
	var app models.Application
	err := row.Scan(
		&app.ID,
		&app.Number,
		&app.Date,
		&app.Applicant,
		&app.Phone,
		&app.Email,
		&app.Cadnum,
		&app.Address,
		&app.Area,
		&app.PermittedUse,
		&app.Status,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// Create inserts a new application. The number must be unique; a duplicate
// yields ErrDuplicate.
func (r *applicationRepository) Create(ctx context.Context, app *models.Application) (*models.Application, error) {
	status := app.Status
	if status == "" {
		status = models.StatusInProgress
	}

	query := `
		INSERT INTO applications (
			number, date, applicant, phone, email,
			cadnum, address, area, permitted_use, status,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		RETURNING` + applicationColumns

	created, err := scanApplication(r.db.Pool.QueryRow(ctx, query,
		app.Number, app.Date, app.Applicant, app.Phone, app.Email,
		app.Cadnum, app.Address, app.Area, app.PermittedUse, status,
	))
	if err != nil {
		return nil, mapUniqueViolation(err, fmt.Sprintf("failed to create application %s", app.Number))
	}
	return created, nil
}

func (r *applicationRepository) GetByID(ctx context.Context, id int64) (*models.Application, error) {
	query := `SELECT` + applicationColumns + ` FROM applications WHERE id = $1`

	app, err := scanApplication(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query application %d: %w", id, err)
	}
	return app, nil
}

func (r *applicationRepository) GetByNumber(ctx context.Context, number string) (*models.Application, error) {
	query := `SELECT` + applicationColumns + ` FROM applications WHERE number = $1`

	app, err := scanApplication(r.db.Pool.QueryRow(ctx, query, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query application %q: %w", number, err)
	}
	return app, nil
}

// List returns a page of applications ordered by creation time, newest
// first, along with the total count for the filter.
func (r *applicationRepository) List(ctx context.Context, filter ApplicationFilter) ([]models.Application, int, error) {
	var conditions []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Cadnum != "" {
		conditions = append(conditions, "cadnum ILIKE "+arg("%"+filter.Cadnum+"%"))
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = "+arg(string(filter.Status)))
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		conditions = append(conditions, fmt.Sprintf(
			"(number ILIKE %s OR applicant ILIKE %s OR cadnum ILIKE %s OR address ILIKE %s)",
			arg(pattern), arg(pattern), arg(pattern), arg(pattern)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := `SELECT count(*) FROM applications` + where
	if err := r.db.Pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count applications: %w", err)
	}

	query := `SELECT` + applicationColumns + ` FROM applications` + where + ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += " OFFSET " + arg(filter.Skip) + " LIMIT " + arg(filter.Limit)
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query applications: %w", err)
	}
	defer rows.Close()

	var items []models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan application row: %w", err)
		}
		items = append(items, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating application rows: %w", err)
	}

	if items == nil {
		items = []models.Application{}
	}
	return items, total, nil
}

// Update applies a partial patch and returns the updated record, or
// nil, nil when the application does not exist.
func (r *applicationRepository) Update(ctx context.Context, id int64, patch ApplicationPatch) (*models.Application, error) {
	var sets []string
	var args []interface{}

	set := func(column string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Date != nil {
		set("date", *patch.Date)
	}
	if patch.Applicant != nil {
		set("applicant", *patch.Applicant)
	}
	if patch.Phone != nil {
		set("phone", *patch.Phone)
	}
	if patch.Email != nil {
		set("email", *patch.Email)
	}
	if patch.Address != nil {
		set("address", *patch.Address)
	}
	if patch.Area != nil {
		set("area", *patch.Area)
	}
	if patch.PermittedUse != nil {
		set("permitted_use", *patch.PermittedUse)
	}
	if patch.Status != nil {
		set("status", string(*patch.Status))
	}

	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}
	sets = append(sets, "updated_at = now()")

	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE applications SET %s WHERE id = $%d RETURNING`+applicationColumns,
		strings.Join(sets, ", "), len(args))

	app, err := scanApplication(r.db.Pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapUniqueViolation(err, fmt.Sprintf("failed to update application %d", id))
	}
	return app, nil
}

// Delete removes an application. Child plans, refusals and TU requests go
// with it through the ON DELETE CASCADE foreign keys.
func (r *applicationRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM applications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete application %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
