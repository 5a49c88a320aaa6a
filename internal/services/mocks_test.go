package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/glavarch/gpzu/internal/models"
	"github.com/glavarch/gpzu/internal/remote"
	"github.com/glavarch/gpzu/internal/repository"
)

// MockParserService is a mock implementation of remote.ParserService.
type MockParserService struct {
	mock.Mock
}

func (m *MockParserService) ParseApplication(ctx context.Context, filename string, file []byte) (*remote.ParsedApplication, error) {
	args := m.Called(ctx, filename, file)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*remote.ParsedApplication), args.Error(1)
}

func (m *MockParserService) ParseExtract(ctx context.Context, filename string, file []byte) (*remote.ParsedExtract, error) {
	args := m.Called(ctx, filename, file)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*remote.ParsedExtract), args.Error(1)
}

// MockAnalyzerService is a mock implementation of remote.AnalyzerService.
type MockAnalyzerService struct {
	mock.Mock
}

func (m *MockAnalyzerService) Analyze(ctx context.Context, cadnum string, contours [][]remote.Coord) (*remote.Analysis, error) {
	args := m.Called(ctx, cadnum, contours)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*remote.Analysis), args.Error(1)
}

// MockGeneratorService is a mock implementation of remote.GeneratorService.
type MockGeneratorService struct {
	mock.Mock
}

func (m *MockGeneratorService) Generate(ctx context.Context, kind remote.DocumentKind, payload interface{}) (*remote.Artifact, error) {
	args := m.Called(ctx, kind, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*remote.Artifact), args.Error(1)
}

// MockKaitenService is a mock implementation of remote.KaitenService.
type MockKaitenService struct {
	mock.Mock
}

func (m *MockKaitenService) CreateCard(ctx context.Context, title, description string, properties map[string]string) (*remote.KaitenCard, error) {
	args := m.Called(ctx, title, description, properties)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*remote.KaitenCard), args.Error(1)
}

// MockApplicationRepository is a mock implementation of repository.ApplicationRepository.
type MockApplicationRepository struct {
	mock.Mock
}

func (m *MockApplicationRepository) Create(ctx context.Context, app *models.Application) (*models.Application, error) {
	args := m.Called(ctx, app)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}

func (m *MockApplicationRepository) GetByID(ctx context.Context, id int64) (*models.Application, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}

func (m *MockApplicationRepository) GetByNumber(ctx context.Context, number string) (*models.Application, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}

func (m *MockApplicationRepository) List(ctx context.Context, filter repository.ApplicationFilter) ([]models.Application, int, error) {
	args := m.Called(ctx, filter)
	var items []models.Application
	if args.Get(0) != nil {
		items = args.Get(0).([]models.Application)
	}
	return items, args.Int(1), args.Error(2)
}

func (m *MockApplicationRepository) Update(ctx context.Context, id int64, patch repository.ApplicationPatch) (*models.Application, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}

func (m *MockApplicationRepository) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

// MockPlanRepository is a mock implementation of repository.PlanRepository.
type MockPlanRepository struct {
	mock.Mock
}

func (m *MockPlanRepository) Register(ctx context.Context, reg repository.PlanRegistration) (*models.Plan, error) {
	args := m.Called(ctx, reg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plan), args.Error(1)
}

func (m *MockPlanRepository) GetByID(ctx context.Context, id int64) (*models.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plan), args.Error(1)
}

func (m *MockPlanRepository) List(ctx context.Context, filter repository.OutcomeFilter) ([]models.Plan, int, error) {
	args := m.Called(ctx, filter)
	var items []models.Plan
	if args.Get(0) != nil {
		items = args.Get(0).([]models.Plan)
	}
	return items, args.Int(1), args.Error(2)
}

func (m *MockPlanRepository) Update(ctx context.Context, id int64, patch repository.PlanPatch) (*models.Plan, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plan), args.Error(1)
}

func (m *MockPlanRepository) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

// MockRefusalRepository is a mock implementation of repository.RefusalRepository.
type MockRefusalRepository struct {
	mock.Mock
}

func (m *MockRefusalRepository) Register(ctx context.Context, reg repository.RefusalRegistration) (*models.Refusal, error) {
	args := m.Called(ctx, reg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Refusal), args.Error(1)
}

func (m *MockRefusalRepository) GetByID(ctx context.Context, id int64) (*models.Refusal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Refusal), args.Error(1)
}

func (m *MockRefusalRepository) List(ctx context.Context, filter repository.OutcomeFilter) ([]models.Refusal, int, error) {
	args := m.Called(ctx, filter)
	var items []models.Refusal
	if args.Get(0) != nil {
		items = args.Get(0).([]models.Refusal)
	}
	return items, args.Int(1), args.Error(2)
}

func (m *MockRefusalRepository) Update(ctx context.Context, id int64, patch repository.RefusalPatch) (*models.Refusal, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Refusal), args.Error(1)
}

func (m *MockRefusalRepository) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

// MockTuRequestRepository is a mock implementation of repository.TuRequestRepository.
type MockTuRequestRepository struct {
	mock.Mock
}

func (m *MockTuRequestRepository) Register(ctx context.Context, reg repository.TuRegistration) (*models.TuRequest, error) {
	args := m.Called(ctx, reg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TuRequest), args.Error(1)
}

func (m *MockTuRequestRepository) GetByID(ctx context.Context, id int64) (*models.TuRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TuRequest), args.Error(1)
}

func (m *MockTuRequestRepository) List(ctx context.Context, filter repository.OutcomeFilter) ([]models.TuRequest, int, error) {
	args := m.Called(ctx, filter)
	var items []models.TuRequest
	if args.Get(0) != nil {
		items = args.Get(0).([]models.TuRequest)
	}
	return items, args.Int(1), args.Error(2)
}

func (m *MockTuRequestRepository) ListByApplication(ctx context.Context, applicationID int64) ([]models.TuRequest, error) {
	args := m.Called(ctx, applicationID)
	var items []models.TuRequest
	if args.Get(0) != nil {
		items = args.Get(0).([]models.TuRequest)
	}
	return items, args.Error(1)
}

func (m *MockTuRequestRepository) Update(ctx context.Context, id int64, patch repository.TuRequestPatch) (*models.TuRequest, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TuRequest), args.Error(1)
}

func (m *MockTuRequestRepository) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}
