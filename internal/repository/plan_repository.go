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

// PlanRegistration is the input of the terminal commit for a plan.
// The out_number is allocated by the database.
type PlanRegistration struct {
	ApplicationID int64
	OutDate       string
	OutYear       int
	XMLData       *string
	Attachment    *string
}

// PlanPatch is a partial update; nil fields are left untouched.
type PlanPatch struct {
	ApplicationID *int64
	OutNumber     *int
	OutDate       *string
	OutYear       *int
	XMLData       *string
	Attachment    *string
}

// PlanRepository defines data access for the issued plan journal.
type PlanRepository interface {
	// Register allocates the next year-scoped registration number, inserts
	// the plan and flips the application status to gp_issued, all in one
	// transaction.
	Register(ctx context.Context, reg PlanRegistration) (*models.Plan, error)
	GetByID(ctx context.Context, id int64) (*models.Plan, error)
	List(ctx context.Context, filter OutcomeFilter) ([]models.Plan, int, error)
	Update(ctx context.Context, id int64, patch PlanPatch) (*models.Plan, error)
	Delete(ctx context.Context, id int64) error
}

type planRepository struct {
	db *database.Database
}

// NewPlanRepository creates a new instance of PlanRepository.
func NewPlanRepository(db *database.Database) PlanRepository {
	return &planRepository{db: db}
}

const planColumns = `
	r.id, r.application_id, r.out_number, r.out_date, r.out_year,
	r.xml_data, r.attachment, r.created_at, r.updated_at`

func scanPlan(row pgx.Row) (*models.Plan, error) {
	var plan models.Plan
	err := row.Scan(
		&plan.ID,
		&plan.ApplicationID,
		&plan.OutNumber,
		&plan.OutDate,
		&plan.OutYear,
		&plan.XMLData,
		&plan.Attachment,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *planRepository) Register(ctx context.Context, reg PlanRegistration) (*models.Plan, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin registration transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO plans (
			application_id, out_number, out_date, out_year,
			xml_data, attachment, created_at, updated_at
		) VALUES (
			$1,
			(SELECT COALESCE(MAX(out_number), 0) + 1 FROM plans WHERE out_year = $3),
			$2, $3, $4, $5, now(), now()
		)
		RETURNING id, application_id, out_number, out_date, out_year,
			xml_data, attachment, created_at, updated_at`

	var plan models.Plan
	err = tx.QueryRow(ctx, query,
		reg.ApplicationID, reg.OutDate, reg.OutYear, reg.XMLData, reg.Attachment,
	).Scan(
		&plan.ID, &plan.ApplicationID, &plan.OutNumber, &plan.OutDate, &plan.OutYear,
		&plan.XMLData, &plan.Attachment, &plan.CreatedAt, &plan.UpdatedAt,
	)
	if err != nil {
		return nil, mapUniqueViolation(err, fmt.Sprintf("failed to register plan for application %d", reg.ApplicationID))
	}

	_, err = tx.Exec(ctx,
		`UPDATE applications SET status = $1, updated_at = now() WHERE id = $2`,
		models.StatusGPIssued, reg.ApplicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to update application %d status: %w", reg.ApplicationID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit plan registration: %w", err)
	}
	return &plan, nil
}

func (r *planRepository) GetByID(ctx context.Context, id int64) (*models.Plan, error) {
	query := `
		SELECT` + planColumns + `,` + joinedApplicationColumns + `
		FROM plans r
		JOIN applications a ON a.id = r.application_id
		WHERE r.id = $1`

	plan, err := scanPlanWithApplication(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query plan %d: %w", id, err)
	}
	return plan, nil
}

func scanPlanWithApplication(row pgx.Row) (*models.Plan, error) {
	var plan models.Plan
	var app models.Application
	err := row.Scan(
		&plan.ID, &plan.ApplicationID, &plan.OutNumber, &plan.OutDate, &plan.OutYear,
		&plan.XMLData, &plan.Attachment, &plan.CreatedAt, &plan.UpdatedAt,
		&app.ID, &app.Number, &app.Date, &app.Applicant, &app.Phone, &app.Email,
		&app.Cadnum, &app.Address, &app.Area, &app.PermittedUse, &app.Status,
		&app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	plan.Application = &app
	return &plan, nil
}

func (r *planRepository) List(ctx context.Context, filter OutcomeFilter) ([]models.Plan, int, error) {
	where, args := outcomeWhere(filter)

	var total int
	countQuery := `SELECT count(*) FROM plans r JOIN applications a ON a.id = r.application_id` + where
	if err := r.db.Pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count plans: %w", err)
	}

	query := `
		SELECT` + planColumns + `,` + joinedApplicationColumns + `
		FROM plans r
		JOIN applications a ON a.id = r.application_id` + where + `
		ORDER BY r.created_at DESC`
	query, args = applyPaging(query, args, filter)

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query plans: %w", err)
	}
	defer rows.Close()

	var items []models.Plan
	for rows.Next() {
		plan, err := scanPlanWithApplication(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan plan row: %w", err)
		}
		items = append(items, *plan)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating plan rows: %w", err)
	}

	if items == nil {
		items = []models.Plan{}
	}
	return items, total, nil
}

func (r *planRepository) Update(ctx context.Context, id int64, patch PlanPatch) (*models.Plan, error) {
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
	if patch.XMLData != nil {
		set("xml_data", *patch.XMLData)
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
		UPDATE plans SET %s WHERE id = $%d
		RETURNING id, application_id, out_number, out_date, out_year,
			xml_data, attachment, created_at, updated_at`,
		strings.Join(sets, ", "), len(args))

	plan, err := scanPlan(r.db.Pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapUniqueViolation(err, fmt.Sprintf("failed to update plan %d", id))
	}
	return plan, nil
}

func (r *planRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM plans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete plan %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
