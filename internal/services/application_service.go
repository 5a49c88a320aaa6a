package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"

	"github.com/glavarch/gpzu/internal/logger"
	"github.com/glavarch/gpzu/internal/models"
	"github.com/glavarch/gpzu/internal/repository"
)

// Journal-level errors.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	ErrInvalid   = errors.New("invalid value")
)

// ApplicationService is the journal of applications.
type ApplicationService interface {
	Create(ctx context.Context, app *models.Application) (*models.Application, error)
	Get(ctx context.Context, id int64) (*models.Application, error)
	List(ctx context.Context, filter repository.ApplicationFilter) ([]models.Application, int, error)
	Update(ctx context.Context, id int64, patch repository.ApplicationPatch) (*models.Application, error)
	// Delete removes the application and, via cascade, its outcomes.
	Delete(ctx context.Context, id int64) error
	ExportCSV(ctx context.Context, filter repository.ApplicationFilter) ([]byte, error)
}

type applicationService struct {
	repo repository.ApplicationRepository
	log  *logger.Logger
}

// NewApplicationService creates a new instance of ApplicationService.
func NewApplicationService(repo repository.ApplicationRepository, log *logger.Logger) ApplicationService {
	return &applicationService{repo: repo, log: log}
}

func (s *applicationService) Create(ctx context.Context, app *models.Application) (*models.Application, error) {
	if app.Status != "" && !app.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalid, app.Status)
	}

	created, err := s.repo.Create(ctx, app)
	if err != nil {
		return nil, journalError(err)
	}

	s.log.Info("Application created", map[string]interface{}{
		"id":     created.ID,
		"number": created.Number,
	})
	return created, nil
}

func (s *applicationService) Get(ctx context.Context, id int64) (*models.Application, error) {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, ErrNotFound
	}
	return app, nil
}

func (s *applicationService) List(ctx context.Context, filter repository.ApplicationFilter) ([]models.Application, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *applicationService) Update(ctx context.Context, id int64, patch repository.ApplicationPatch) (*models.Application, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalid, *patch.Status)
	}

	app, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, journalError(err)
	}
	if app == nil {
		return nil, ErrNotFound
	}
	return app, nil
}

func (s *applicationService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return journalError(err)
	}
	s.log.Info("Application deleted", map[string]interface{}{"id": id})
	return nil
}

func (s *applicationService) ExportCSV(ctx context.Context, filter repository.ApplicationFilter) ([]byte, error) {
	// Export ignores paging: the journal is exported whole under the
	// active filters.
	filter.Skip = 0
	filter.Limit = 0

	items, _, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(items)+1)
	rows = append(rows, []string{
		"id", "number", "date", "applicant", "phone", "email",
		"cadnum", "address", "area", "permitted_use", "status",
	})
	for _, app := range items {
		rows = append(rows, []string{
			strconv.FormatInt(app.ID, 10),
			app.Number,
			app.Date,
			app.Applicant,
			app.Phone,
			app.Email,
			app.Cadnum,
			app.Address,
			floatString(app.Area),
			stringOrEmpty(app.PermittedUse),
			string(app.Status),
		})
	}
	return writeCSV(rows)
}

// writeCSV renders rows with a UTF-8 BOM so spreadsheet applications
// detect the encoding.
func writeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("\xEF\xBB\xBF")

	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to write CSV: %w", err)
	}
	return buf.Bytes(), nil
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func floatString(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

// journalError maps repository sentinels onto the journal error set.
func journalError(err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return fmt.Errorf("%w: %s", ErrDuplicate, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	}
	return err
}
