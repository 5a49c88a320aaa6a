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

// TuRegistration is the input of the terminal commit for a
// technical-conditions request. The out_number is allocated by the database.
type TuRegistration struct {
	ApplicationID int64
	OutDate       string
	OutYear       int
	RSOType       models.RSOType
	RSOName       *string
	Attachment    *string
}

// TuRequestPatch is a partial update; nil fields are left untouched.
type TuRequestPatch struct {
	ApplicationID *int64
	OutNumber     *int
	OutDate       *string
	OutYear       *int
	RSOType       *models.RSOType
	RSOName       *string
	Attachment    *string
}

// TuRequestRepository defines data access for the TU request journal.
type TuRequestRepository interface {
	// Register allocates the next year-scoped registration number and
	// inserts the request in one transaction. A TU request is not a
	// terminal outcome: the application only moves from new to
	// in_progress, terminal statuses are untouched. A second request for
	// the same (application, utility) pair yields ErrDuplicate.
	Register(ctx context.Context, reg TuRegistration) (*models.TuRequest, error)
	GetByID(ctx context.Context, id int64) (*models.TuRequest, error)
	List(ctx context.Context, filter OutcomeFilter) ([]models.TuRequest, int, error)
	ListByApplication(ctx context.Context, applicationID int64) ([]models.TuRequest, error)
	Update(ctx context.Context, id int64, patch TuRequestPatch) (*models.TuRequest, error)
	Delete(ctx context.Context, id int64) error
}

type tuRequestRepository struct {
	db *database.Database
}

// NewTuRequestRepository creates a new instance of TuRequestRepository.
func NewTuRequestRepository(db *database.Database) TuRequestRepository {
	return &tuRequestRepository{db: db}
}

const tuRequestColumns = `
	r.id, r.application_id, r.out_number, r.out_date, r.out_year,
	r.rso_type, r.rso_name, r.attachment, r.created_at, r.updated_at`

func scanTuRequest(row pgx.Row) (*models.TuRequest, error) {
	var req models.TuRequest
	err := row.Scan(
		&req.ID,
		&req.ApplicationID,
		&req.OutNumber,
		&req.OutDate,
		&req.OutYear,
		&req.RSOType,
		&req.RSOName,
		&req.Attachment,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *tuRequestRepository) Register(ctx context.Context, reg TuRegistration) (*models.TuRequest, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin registration transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO tu_requests (
			application_id, out_number, out_date, out_year,
			rso_type, rso_name, attachment, created_at, updated_at
		) VALUES (
			$1,
			(SELECT COALESCE(MAX(out_number), 0) + 1 FROM tu_requests WHERE out_year = $3),
			$2, $3, $4, $5, $6, now(), now()
		)
		RETURNING id, application_id, out_number, out_date, out_year,
			rso_type, rso_name, attachment, created_at, updated_at`

	var req models.TuRequest
	err = tx.QueryRow(ctx, query,
		reg.ApplicationID, reg.OutDate, reg.OutYear,
		reg.RSOType, reg.RSOName, reg.Attachment,
	).Scan(
		&req.ID, &req.ApplicationID, &req.OutNumber, &req.OutDate, &req.OutYear,
		&req.RSOType, &req.RSOName, &req.Attachment, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, mapUniqueViolation(err, fmt.Sprintf("failed to register TU request for application %d", reg.ApplicationID))
	}

	_, err = tx.Exec(ctx,
		`UPDATE applications SET status = $1, updated_at = now() WHERE id = $2 AND status = $3`,
		models.StatusInProgress, reg.ApplicationID, models.StatusNew)
	if err != nil {
		return nil, fmt.Errorf("failed to update application %d status: %w", reg.ApplicationID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit TU request registration: %w", err)
	}
	return &req, nil
}

func (r *tuRequestRepository) GetByID(ctx context.Context, id int64) (*models.TuRequest, error) {
	query := `
		SELECT` + tuRequestColumns + `,` + joinedApplicationColumns + `
		FROM tu_requests r
		JOIN applications a ON a.id = r.application_id
		WHERE r.id = $1`

	req, err := scanTuRequestWithApplication(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query TU request %d: %w", id, err)
	}
	return req, nil
}

func scanTuRequestWithApplication(row pgx.Row) (*models.TuRequest, error) {
	var req models.TuRequest
	var app models.Application
	err := row.Scan(
		&req.ID, &req.ApplicationID, &req.OutNumber, &req.OutDate, &req.OutYear,
		&req.RSOType, &req.RSOName, &req.Attachment, &req.CreatedAt, &req.UpdatedAt,
		&app.ID, &app.Number, &app.Date, &app.Applicant, &app.Phone, &app.Email,
		&app.Cadnum, &app.Address, &app.Area, &app.PermittedUse, &app.Status,
		&app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	req.Application = &app
	return &req, nil
}

func (r *tuRequestRepository) List(ctx context.Context, filter OutcomeFilter) ([]models.TuRequest, int, error) {
	where, args := outcomeWhere(filter)

	var total int
	countQuery := `SELECT count(*) FROM tu_requests r JOIN applications a ON a.id = r.application_id` + where
	if err := r.db.Pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count TU requests: %w", err)
	}

	query := `
		SELECT` + tuRequestColumns + `,` + joinedApplicationColumns + `
		FROM tu_requests r
		JOIN applications a ON a.id = r.application_id` + where + `
		ORDER BY r.created_at DESC`
	query, args = applyPaging(query, args, filter)

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query TU requests: %w", err)
	}
	defer rows.Close()

	var items []models.TuRequest
	for rows.Next() {
		req, err := scanTuRequestWithApplication(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan TU request row: %w", err)
		}
		items = append(items, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating TU request rows: %w", err)
	}

	if items == nil {
		items = []models.TuRequest{}
	}
	return items, total, nil
}

// ListByApplication returns the requests already registered for an
// application, used to warn about repeated utility kinds before commit.
func (r *tuRequestRepository) ListByApplication(ctx context.Context, applicationID int64) ([]models.TuRequest, error) {
	query := `
		SELECT` + tuRequestColumns + `
		FROM tu_requests r
		WHERE r.application_id = $1
		ORDER BY r.created_at`

	rows, err := r.db.Pool.Query(ctx, query, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query TU requests for application %d: %w", applicationID, err)
	}
	defer rows.Close()

	var items []models.TuRequest
	for rows.Next() {
		req, err := scanTuRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan TU request row: %w", err)
		}
		items = append(items, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating TU request rows: %w", err)
	}
	return items, nil
}

func (r *tuRequestRepository) Update(ctx context.Context, id int64, patch TuRequestPatch) (*models.TuRequest, error) {
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
	if patch.RSOType != nil {
		set("rso_type", string(*patch.RSOType))
	}
	if patch.RSOName != nil {
		set("rso_name", *patch.RSOName)
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
		UPDATE tu_requests SET %s WHERE id = $%d
		RETURNING id, application_id, out_number, out_date, out_year,
			rso_type, rso_name, attachment, created_at, updated_at`,
		strings.Join(sets, ", "), len(args))

	req, err := scanTuRequest(r.db.Pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapUniqueViolation(err, fmt.Sprintf("failed to update TU request %d", id))
	}
	return req, nil
}

func (r *tuRequestRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM tu_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete TU request %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
