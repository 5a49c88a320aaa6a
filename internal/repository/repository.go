package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicate is returned when an insert or update violates a unique
// constraint: a second outcome for an application, a reused registration
// number, or a repeated (application, utility) pair. Callers surface it as
// a rejection, never as a silent overwrite.
var ErrDuplicate = errors.New("duplicate record")

// ErrNotFound is returned by mutations targeting a record that does not
// exist. Read methods return nil, nil instead.
var ErrNotFound = errors.New("record not found")

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// DuplicateError is an ErrDuplicate carrying the violated constraint
// name, so callers can tell an application-level duplicate from a
// transient registration-number collision.
type DuplicateError struct {
	Op         string
	Constraint string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate record: %s (%s)", e.Op, e.Constraint)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicate }

// mapUniqueViolation converts a 23505 database error into a
// DuplicateError; other errors pass through wrapped.
func mapUniqueViolation(err error, context string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return &DuplicateError{Op: context, Constraint: pgErr.ConstraintName}
	}
	return fmt.Errorf("%s: %w", context, err)
}

// joinedApplicationColumns selects the parent application alongside an
// outcome row; alias "a" is the applications table, "r" the outcome.
const joinedApplicationColumns = `
	a.id, a.number, a.date, a.applicant, a.phone, a.email,
	a.cadnum, a.address, a.area, a.permitted_use, a.status,
	a.created_at, a.updated_at`

// outcomeWhere builds the shared WHERE clause for outcome journal listings:
// year scoping plus a case-insensitive search over the joined application.
func outcomeWhere(filter OutcomeFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Year != nil {
		conds = append(conds, "r.out_year = "+arg(*filter.Year))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		conds = append(conds, fmt.Sprintf(
			"(a.number ILIKE %s OR a.applicant ILIKE %s OR a.cadnum ILIKE %s OR a.address ILIKE %s)",
			p, p, p, p))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// applyPaging appends OFFSET/LIMIT to a listing query. Limit <= 0 means
// no limit.
func applyPaging(query string, args []interface{}, filter OutcomeFilter) (string, []interface{}) {
	if filter.Skip > 0 {
		args = append(args, filter.Skip)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return query, args
}
