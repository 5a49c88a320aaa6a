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

// OutcomeFilter narrows and pages the outcome journals (plans, refusals,
// TU requests). Registration numbers are year-scoped, so listings are
// normally filtered by year; Search matches the denormalized application
// fields.
type OutcomeFilter struct {
	Year   *int
	Search string
	Skip   int
	Limit  int
}

// RefusalRegistration is the input of the terminal commit for a refusal:
// everything except the out_number, which the database allocates.
type RefusalRegistration struct {
	ApplicationID int64
	OutDate       string
	OutYear       int
	ReasonCode    models.RefusalReason
	ReasonText    *string
	Attachment    *string
}

// RefusalPatch is a partial update; nil fields are left untouched.
type RefusalPatch struct {
	ApplicationID *int64
	OutNumber     *int
	OutDate       *string
	OutYear       *int
	ReasonCode    *models.RefusalReason
	ReasonText    *string
	Attachment    *string
}

// RefusalRepository defines data access for the refusal journal.
type RefusalRepository interface {
	// Register allocates the next year-scoped registration number, inserts
	// the refusal and flips the application status to refused, all in one
	// transaction. A conflicting unique constraint aborts the transaction
	// with ErrDuplicate and no number is consumed.
	Register(ctx context.Context, reg RefusalRegistration) (*models.Refusal, error)
	GetByID(ctx context.Context, id int64) (*models.Refusal, error)
	List(ctx context.Context, filter OutcomeFilter) ([]models.Refusal, int, error)
	Update(ctx context.Context, id int64, patch RefusalPatch) (*models.Refusal, error)
	Delete(ctx context.Context, id int64) error
}

type refusalRepository struct {
	db *database.Database
}

// NewRefusalRepository creates a new instance of RefusalRepository.
func NewRefusalRepository(db *database.Database) RefusalRepository {
	return &refusalRepository{db: db}
}

const refusalColumns = `
	r.id, r.application_id, r.out_number, r.out_date, r.out_year,
	r.reason_code, r.reason_text, r.attachment, r.created_at, r.updated_at`

func scanRefusal(row pgx.Row) (*models.Refusal, error) {
	var ref models.Refusal
	err := row.Scan(
		&ref.ID,
		&ref.ApplicationID,
		&ref.OutNumber,
		&ref.OutDate,
		&ref.OutYear,
		&ref.ReasonCode,
		&ref.ReasonText,
		&ref.Attachment,
		&ref.CreatedAt,
		&ref.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

func (r *refusalRepository) Register(ctx context.Context, reg RefusalRegistration) (*models.Refusal, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin registration transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// The nested select allocates MAX+1 for the year in the same statement
	// as the insert; the (out_year, out_number) unique constraint turns a
	// concurrent allocation into ErrDuplicate rather than a reused number.
	query := `
		INSERT INTO refusals (
			application_id, out_number, out_date, out_year,
			reason_code, reason_text, attachment, created_at, updated_at
		) VALUES (
			$1,
			(SELECT COALESCE(MAX(out_number), 0) + 1 FROM refusals WHERE out_year = $3),
			$2, $3, $4, $5, $6, now(), now()
		)
		RETURNING id, application_id, out_number, out_date, out_year,
			reason_code, reason_text, attachment, created_at, updated_at`

	var ref models.Refusal
	err = tx.QueryRow(ctx, query,
		reg.ApplicationID, reg.OutDate, reg.OutYear,
		reg.ReasonCode, reg.ReasonText, reg.Attachment,
	).Scan(
		&ref.ID, &ref.ApplicationID, &ref.OutNumber, &ref.OutDate, &ref.OutYear,
		&ref.ReasonCode, &ref.ReasonText, &ref.Attachment, &ref.CreatedAt, &ref.UpdatedAt,
	)
	if err != nil {
		return nil, mapUniqueViolation(err, fmt.Sprintf("failed to register refusal for application %d", reg.ApplicationID))
	}

	_, err = tx.Exec(ctx,
		`UPDATE applications SET status = $1, updated_at = now() WHERE id = $2`,
		models.StatusRefused, reg.ApplicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to update application %d status: %w", reg.ApplicationID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit refusal registration: %w", err)
	}
	return &ref, nil
}

func (r *refusalRepository) GetByID(ctx context.Context, id int64) (*models.Refusal, error) {
	query := `
		SELECT` + refusalColumns + `,` + joinedApplicationColumns + `
		FROM refusals r
		JOIN applications a ON a.id = r.application_id
		WHERE r.id = $1`

	ref, err := scanRefusalWithApplication(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query refusal %d: %w", id, err)
	}
	return ref, nil
}

func scanRefusalWithApplication(row pgx.Row) (*models.Refusal, error) {
	var ref models.Refusal
	var app models.Application
	err := row.Scan(
		&ref.ID, &ref.ApplicationID, &ref.OutNumber, &ref.OutDate, &ref.OutYear,
		&ref.ReasonCode, &ref.ReasonText, &ref.Attachment, &ref.CreatedAt, &ref.UpdatedAt,
		&app.ID, &app.Number, &app.Date, &app.Applicant, &app.Phone, &app.Email,
		&app.Cadnum, &app.Address, &app.Area, &app.PermittedUse, &app.Status,
		&app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	ref.Application = &app
	return &ref, nil
}

func (r *refusalRepository) List(ctx context.Context, filter OutcomeFilter) ([]models.Refusal, int, error) {
	where, args := outcomeWhere(filter)

	var total int
	countQuery := `SELECT count(*) FROM refusals r JOIN applications a ON a.id = r.application_id` + where
	if err := r.db.Pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count refusals: %w", err)
	}

	query := `
		SELECT` + refusalColumns + `,` + joinedApplicationColumns + `
		FROM refusals r
		JOIN applications a ON a.id = r.application_id` + where + `
		ORDER BY r.created_at DESC`
	query, args = applyPaging(query, args, filter)

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query refusals: %w", err)
	}
	defer rows.Close()

	var items []models.Refusal
	for rows.Next() {
		ref, err := scanRefusalWithApplication(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan refusal row: %w", err)
		}
		items = append(items, *ref)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating refusal rows: %w", err)
	}

	if items == nil {
		items = []models.Refusal{}
	}
	return items, total, nil
}

func (r *refusalRepository) Update(ctx context.Context, id int64, patch RefusalPatch) (*models.Refusal, error) {
	var sets []string
	var args []interface{}

	set := func(column string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.ApplicationID != nil {
		set("application_id", *patch.ApplicationID)
	}
	if patch.OutNumber != nil {
		set("out_number", *patch.OutNumber)
	}
	if patch.OutDate != nil {
		set("out_date", *patch.OutDate)
	}
	if patch.OutYear != nil {
		set("out_year", *patch.OutYear)
	}
	if patch.ReasonCode != nil {
		set("reason_code", string(*patch.ReasonCode))
	}
	if patch.ReasonText != nil {
		set("reason_text", *patch.ReasonText)
	}
	if patch.Attachment != nil {
		set("attachment", *patch.Attachment)
	}

	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}
	sets = append(sets, "updated_at = now()")

	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE refusals SET %s WHERE id = $%d
		RETURNING id, application_id, out_number, out_date, out_year,
			reason_code, reason_text, attachment, created_at, updated_at`,
		strings.Join(sets, ", "), len(args))

	ref, err := scanRefusal(r.db.Pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapUniqueViolation(err, fmt.Sprintf("failed to update refusal %d", id))
	}
	return ref, nil
}

func (r *refusalRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM refusals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete refusal %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
