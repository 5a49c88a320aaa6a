package services

import (
	"context"
	"strconv"

	"github.com/glavarch/gpzu/internal/logger"
	"github.com/glavarch/gpzu/internal/models"
	"github.com/glavarch/gpzu/internal/repository"
)

// PlanService is the journal of issued plans.
type PlanService interface {
	Get(ctx context.Context, id int64) (*models.Plan, error)
	List(ctx context.Context, filter repository.OutcomeFilter) ([]models.Plan, int, error)
	// Update applies a partial patch. Relinking to another application is
	// gated by the conflict advisor unless override is set.
	Update(ctx context.Context, id int64, patch repository.PlanPatch, override bool) (*models.Plan, error)
	Delete(ctx context.Context, id int64) error
	ExportCSV(ctx context.Context, filter repository.OutcomeFilter) ([]byte, error)
}

// RefusalService is the journal of refusals.
type RefusalService interface {
	Get(ctx context.Context, id int64) (*models.Refusal, error)
	List(ctx context.Context, filter repository.OutcomeFilter) ([]models.Refusal, int, error)
	Update(ctx context.Context, id int64, patch repository.RefusalPatch, override bool) (*models.Refusal, error)
	Delete(ctx context.Context, id int64) error
	ExportCSV(ctx context.Context, filter repository.OutcomeFilter) ([]byte, error)
}

// TuRequestService is the journal of technical-conditions requests.
type TuRequestService interface {
	Get(ctx context.Context, id int64) (*models.TuRequest, error)
	List(ctx context.Context, filter repository.OutcomeFilter) ([]models.TuRequest, int, error)
	Update(ctx context.Context, id int64, patch repository.TuRequestPatch, override bool) (*models.TuRequest, error)
	Delete(ctx context.Context, id int64) error
	ExportCSV(ctx context.Context, filter repository.OutcomeFilter) ([]byte, error)
}

type planService struct {
	repo    repository.PlanRepository
	apps    repository.ApplicationRepository
	advisor *ConflictAdvisor
	log     *logger.Logger
}

// NewPlanService creates a new instance of PlanService.
func NewPlanService(repo repository.PlanRepository, apps repository.ApplicationRepository, log *logger.Logger) PlanService {
	return &planService{repo: repo, apps: apps, advisor: NewConflictAdvisor(), log: log}
}

func (s *planService) Get(ctx context.Context, id int64) (*models.Plan, error) {
	plan, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, ErrNotFound
	}
	return plan, nil
}

func (s *planService) List(ctx context.Context, filter repository.OutcomeFilter) ([]models.Plan, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *planService) Update(ctx context.Context, id int64, patch repository.PlanPatch, override bool) (*models.Plan, error) {
	if err := s.checkRelink(ctx, patch.ApplicationID, override); err != nil {
		return nil, err
	}

	plan, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, journalError(err)
	}
	if plan == nil {
		return nil, ErrNotFound
	}
	return plan, nil
}

func (s *planService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return journalError(err)
	}
	s.log.Info("Plan deleted", map[string]interface{}{"id": id})
	return nil
}

func (s *planService) ExportCSV(ctx context.Context, filter repository.OutcomeFilter) ([]byte, error) {
	filter.Skip = 0
	filter.Limit = 0

	items, _, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(items)+1)
	rows = append(rows, []string{
		"id", "out_number", "out_date", "out_year",
		"application_number", "applicant", "cadnum", "address", "attachment",
	})
	for _, p := range items {
		rows = append(rows, append(outcomeRow(p.ID, p.OutNumber, p.OutDate, p.OutYear, p.Application),
			stringOrEmpty(p.Attachment)))
	}
	return writeCSV(rows)
}

func (s *planService) checkRelink(ctx context.Context, applicationID *int64, override bool) error {
	return checkRelink(ctx, s.apps, s.advisor, applicationID, override)
}

type refusalService struct {
	repo    repository.RefusalRepository
	apps    repository.ApplicationRepository
	advisor *ConflictAdvisor
	log     *logger.Logger
}

// NewRefusalService creates a new instance of RefusalService.
func NewRefusalService(repo repository.RefusalRepository, apps repository.ApplicationRepository, log *logger.Logger) RefusalService {
	return &refusalService{repo: repo, apps: apps, advisor: NewConflictAdvisor(), log: log}
}

func (s *refusalService) Get(ctx context.Context, id int64) (*models.Refusal, error) {
	ref, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, ErrNotFound
	}
	return ref, nil
}

func (s *refusalService) List(ctx context.Context, filter repository.OutcomeFilter) ([]models.Refusal, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *refusalService) Update(ctx context.Context, id int64, patch repository.RefusalPatch, override bool) (*models.Refusal, error) {
	if patch.ReasonCode != nil {
		if _, ok := models.ReasonInfoFor(*patch.ReasonCode); !ok {
			return nil, ErrInvalid
		}
	}
	if err := checkRelink(ctx, s.apps, s.advisor, patch.ApplicationID, override); err != nil {
		return nil, err
	}

	ref, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, journalError(err)
	}
	if ref == nil {
		return nil, ErrNotFound
	}
	return ref, nil
}

func (s *refusalService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return journalError(err)
	}
	s.log.Info("Refusal deleted", map[string]interface{}{"id": id})
	return nil
}

func (s *refusalService) ExportCSV(ctx context.Context, filter repository.OutcomeFilter) ([]byte, error) {
	filter.Skip = 0
	filter.Limit = 0

	items, _, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(items)+1)
	rows = append(rows, []string{
		"id", "out_number", "out_date", "out_year",
		"application_number", "applicant", "cadnum", "address",
		"reason_code", "reason_text",
	})
	for _, r := range items {
		rows = append(rows, append(outcomeRow(r.ID, r.OutNumber, r.OutDate, r.OutYear, r.Application),
			string(r.ReasonCode), stringOrEmpty(r.ReasonText)))
	}
	return writeCSV(rows)
}

type tuRequestService struct {
	repo    repository.TuRequestRepository
	apps    repository.ApplicationRepository
	advisor *ConflictAdvisor
	log     *logger.Logger
}

// NewTuRequestService creates a new instance of TuRequestService.
func NewTuRequestService(repo repository.TuRequestRepository, apps repository.ApplicationRepository, log *logger.Logger) TuRequestService {
	return &tuRequestService{repo: repo, apps: apps, advisor: NewConflictAdvisor(), log: log}
}

func (s *tuRequestService) Get(ctx context.Context, id int64) (*models.TuRequest, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrNotFound
	}
	return req, nil
}

func (s *tuRequestService) List(ctx context.Context, filter repository.OutcomeFilter) ([]models.TuRequest, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *tuRequestService) Update(ctx context.Context, id int64, patch repository.TuRequestPatch, override bool) (*models.TuRequest, error) {
	if patch.RSOType != nil {
		if _, ok := models.RSOInfoFor(*patch.RSOType); !ok {
			return nil, ErrInvalid
		}
	}
	if err := checkRelink(ctx, s.apps, s.advisor, patch.ApplicationID, override); err != nil {
		return nil, err
	}

	req, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, journalError(err)
	}
	if req == nil {
		return nil, ErrNotFound
	}
	return req, nil
}

func (s *tuRequestService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return journalError(err)
	}
	s.log.Info("TU request deleted", map[string]interface{}{"id": id})
	return nil
}

func (s *tuRequestService) ExportCSV(ctx context.Context, filter repository.OutcomeFilter) ([]byte, error) {
	filter.Skip = 0
	filter.Limit = 0

	items, _, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(items)+1)
	rows = append(rows, []string{
		"id", "out_number", "out_date", "out_year",
		"application_number", "applicant", "cadnum", "address",
		"rso_type", "rso_name",
	})
	for _, r := range items {
		rows = append(rows, append(outcomeRow(r.ID, r.OutNumber, r.OutDate, r.OutYear, r.Application),
			string(r.RSOType), stringOrEmpty(r.RSOName)))
	}
	return writeCSV(rows)
}

// outcomeRow renders the columns shared by every outcome export.
func outcomeRow(id int64, outNumber int, outDate string, outYear int, app *models.Application) []string {
	row := []string{
		strconv.FormatInt(id, 10),
		strconv.Itoa(outNumber),
		outDate,
		strconv.Itoa(outYear),
	}
	if app != nil {
		return append(row, app.Number, app.Applicant, app.Cadnum, app.Address)
	}
	return append(row, "", "", "", "")
}

// checkRelink gates moving an outcome to another application. The target
// may already carry its own outcome; that is a conflict warning the
// operator must override, the same rule as in the wizard commit.
func checkRelink(ctx context.Context, apps repository.ApplicationRepository, advisor *ConflictAdvisor, applicationID *int64, override bool) error {
	if applicationID == nil || override {
		return nil
	}

	target, err := apps.GetByID(ctx, *applicationID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrNotFound
	}
	if warning := advisor.Advise(target); warning != nil {
		return &ConflictError{Warning: *warning}
	}
	return nil
}
