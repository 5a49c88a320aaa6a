package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/glavarch/gpzu/internal/logger"
	"github.com/glavarch/gpzu/internal/models"
	"github.com/glavarch/gpzu/internal/remote"
	"github.com/glavarch/gpzu/internal/repository"
	"github.com/glavarch/gpzu/internal/wizard"
)

// Service-level errors for wizard session handling.
var (
	ErrSessionNotFound = errors.New("wizard session not found")
	ErrUnknownWizard   = errors.New("unknown wizard kind")
)

// ArtifactRef wraps a generated document inside a step output. Step
// outputs are serialized into the session view; the bytes stay server-side
// and only the filename is exposed.
type ArtifactRef struct {
	*remote.Artifact
}

// MarshalJSON exposes the filename only, never the bytes.
func (a ArtifactRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"filename": a.Filename})
}

// CommitResult is what a completed terminal step hands back: the generated
// document to stream plus the registration identity, when one was created.
type CommitResult struct {
	Artifact  *remote.Artifact
	OutNumber int
	OutYear   int
}

// WizardService runs wizard sessions: it owns the session store, executes
// remote steps and performs the terminal registration transaction.
type WizardService interface {
	CreateSession(kind string) (*wizard.Session, error)
	GetSession(id uuid.UUID) (*wizard.Session, error)
	Submit(ctx context.Context, id uuid.UUID, step string, input wizard.Input) (wizard.Output, error)
	Confirm(id uuid.UUID) error
	Back(id uuid.UUID) error
	Reset(id uuid.UUID) error
	// Commit submits the final step of the session's wizard. The override
	// flag resubmits past a conflict warning.
	Commit(ctx context.Context, id uuid.UUID, override bool) (*CommitResult, error)
	Close()
}

type wizardService struct {
	store     *wizard.Store
	defs      map[string]wizard.Definition
	parser    remote.ParserService
	analyzer  remote.AnalyzerService
	generator remote.GeneratorService
	kaiten    remote.KaitenService
	apps      repository.ApplicationRepository
	plans     repository.PlanRepository
	refusals  repository.RefusalRepository
	tuReqs    repository.TuRequestRepository
	advisor   *ConflictAdvisor
	log       *logger.Logger
}

// WizardDeps bundles the collaborators of the wizard service.
type WizardDeps struct {
	Parser    remote.ParserService
	Analyzer  remote.AnalyzerService
	Generator remote.GeneratorService
	Kaiten    remote.KaitenService
	Apps      repository.ApplicationRepository
	Plans     repository.PlanRepository
	Refusals  repository.RefusalRepository
	TuReqs    repository.TuRequestRepository
}

// NewWizardService creates a wizard service with an in-memory session
// store sweeping on the given TTL.
func NewWizardService(deps WizardDeps, sessionTTL time.Duration, log *logger.Logger) WizardService {
	return &wizardService{
		store:     wizard.NewStore(sessionTTL),
		defs:      wizard.Definitions(),
		parser:    deps.Parser,
		analyzer:  deps.Analyzer,
		generator: deps.Generator,
		kaiten:    deps.Kaiten,
		apps:      deps.Apps,
		plans:     deps.Plans,
		refusals:  deps.Refusals,
		tuReqs:    deps.TuReqs,
		advisor:   NewConflictAdvisor(),
		log:       log,
	}
}

func (s *wizardService) CreateSession(kind string) (*wizard.Session, error) {
	def, ok := s.defs[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownWizard, kind)
	}

	session := s.store.Create(def, s)
	s.log.Info("Wizard session created", map[string]interface{}{
		"session_id": session.ID.String(),
		"kind":       kind,
	})
	return session, nil
}

func (s *wizardService) GetSession(id uuid.UUID) (*wizard.Session, error) {
	session, ok := s.store.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *wizardService) Submit(ctx context.Context, id uuid.UUID, step string, input wizard.Input) (wizard.Output, error) {
	session, err := s.GetSession(id)
	if err != nil {
		return nil, err
	}
	return session.Machine.Submit(ctx, step, input)
}

func (s *wizardService) Confirm(id uuid.UUID) error {
	session, err := s.GetSession(id)
	if err != nil {
		return err
	}
	return session.Machine.Confirm()
}

func (s *wizardService) Back(id uuid.UUID) error {
	session, err := s.GetSession(id)
	if err != nil {
		return err
	}
	return session.Machine.Back()
}

func (s *wizardService) Reset(id uuid.UUID) error {
	session, err := s.GetSession(id)
	if err != nil {
		return err
	}
	session.Machine.Reset()
	return nil
}

func (s *wizardService) Commit(ctx context.Context, id uuid.UUID, override bool) (*CommitResult, error) {
	session, err := s.GetSession(id)
	if err != nil {
		return nil, err
	}

	steps := session.Machine.Definition().Steps
	final := steps[len(steps)-1]

	out, err := session.Machine.Submit(ctx, final.Name, wizard.Input{
		Fields: map[string]interface{}{"override": override},
	})
	if err != nil {
		return nil, err
	}

	result := &CommitResult{}
	if ref, ok := out["artifact"].(ArtifactRef); ok {
		result.Artifact = ref.Artifact
	}
	switch rec := out["record"].(type) {
	case *models.Plan:
		result.OutNumber, result.OutYear = rec.OutNumber, rec.OutYear
	case *models.Refusal:
		result.OutNumber, result.OutYear = rec.OutNumber, rec.OutYear
	case *models.TuRequest:
		result.OutNumber, result.OutYear = rec.OutNumber, rec.OutYear
	}

	s.log.Info("Wizard committed", map[string]interface{}{
		"session_id": id.String(),
		"kind":       session.Kind,
		"step":       final.Name,
		"out_number": result.OutNumber,
		"out_year":   result.OutYear,
	})
	return result, nil
}

func (s *wizardService) Close() {
	s.store.Close()
}

// Execute dispatches one wizard step. Registration steps generate the
// document first and only then open the registration transaction, so a
// failed or unreachable generator leaves nothing registered and the step
// is safe to retry.
func (s *wizardService) Execute(ctx context.Context, def wizard.Definition, step wizard.StepDef, input wizard.Input, collected map[string]wizard.Output) (wizard.Output, error) {
	switch step.Kind {
	case wizard.KindParseApplication:
		parsed, err := s.parser.ParseApplication(ctx, input.Filename, input.File)
		if err != nil {
			return nil, err
		}
		return wizard.Output{"application": parsed}, nil

	case wizard.KindParseExtract:
		parsed, err := s.parser.ParseExtract(ctx, input.Filename, input.File)
		if err != nil {
			return nil, err
		}
		return wizard.Output{"extract": parsed}, nil

	case wizard.KindAnalyze:
		extract := collectedExtract(collected)
		if extract == nil {
			return nil, &remote.Error{Kind: remote.ErrValidation, Message: "no parsed extract to analyze"}
		}
		analysis, err := s.analyzer.Analyze(ctx, extract.Cadnum, extract.Contours)
		if err != nil {
			return nil, err
		}
		return wizard.Output{"analysis": analysis}, nil

	case wizard.KindSelectReason:
		return selectReason(input)

	case wizard.KindSelectRSO:
		return selectRSO(input)

	case wizard.KindRegisterTu:
		return s.registerTu(ctx, input, collected)

	case wizard.KindRegisterRefusal:
		return s.registerRefusal(ctx, input, collected)

	case wizard.KindRegisterPlan:
		return s.registerPlan(ctx, input, collected)

	case wizard.KindExportMidMif:
		return s.export(ctx, remote.DocMidMif, collected)

	case wizard.KindExportWorkspace:
		return s.export(ctx, remote.DocWorkspace, collected)

	case wizard.KindCreateTask:
		return s.createTask(ctx, collected)
	}
	return nil, fmt.Errorf("no executor for step kind %q", step.Kind)
}

func selectReason(input wizard.Input) (wizard.Output, error) {
	code, _ := input.Fields["reason_code"].(string)
	info, ok := models.ReasonInfoFor(models.RefusalReason(code))
	if !ok {
		return nil, &remote.Error{
			Kind:    remote.ErrValidation,
			Message: fmt.Sprintf("unknown refusal reason %q", code),
		}
	}

	text := info.Text
	if custom, _ := input.Fields["reason_text"].(string); custom != "" {
		text = custom
	}
	return wizard.Output{
		"reason_code": info.Code,
		"reason_text": text,
	}, nil
}

func selectRSO(input wizard.Input) (wizard.Output, error) {
	code, _ := input.Fields["rso_type"].(string)
	info, ok := models.RSOInfoFor(models.RSOType(code))
	if !ok {
		return nil, &remote.Error{
			Kind:    remote.ErrValidation,
			Message: fmt.Sprintf("unknown utility provider %q", code),
		}
	}
	return wizard.Output{
		"rso_type": info.Code,
		"rso_name": info.Name,
	}, nil
}

// ensureApplication resolves the application for a registration step:
// the record matching the parsed number, created on first registration.
// Conflict warnings gate here unless the operator overrides.
func (s *wizardService) ensureApplication(ctx context.Context, input wizard.Input, collected map[string]wizard.Output) (*models.Application, error) {
	parsed := collectedApplication(collected)
	if parsed == nil {
		return nil, &remote.Error{Kind: remote.ErrValidation, Message: "no parsed application to register against"}
	}
	extract := collectedExtract(collected)

	app, err := s.apps.GetByNumber(ctx, parsed.Number)
	if err != nil {
		return nil, err
	}

	override, _ := input.Fields["override"].(bool)
	if warning := s.advisor.Advise(app); warning != nil && !override {
		return nil, &ConflictError{Warning: *warning}
	}
	if app != nil {
		return app, nil
	}

	// Later steps win on shared fields: the registry extract is fresher
	// than the operator-typed application for parcel attributes.
	fresh := &models.Application{
		Number:    parsed.Number,
		Date:      parsed.Date,
		Applicant: parsed.Applicant,
		Phone:     parsed.Phone,
		Email:     parsed.Email,
		Cadnum:    parsed.Cadnum,
	}
	if extract != nil {
		if extract.Cadnum != "" {
			fresh.Cadnum = extract.Cadnum
		}
		fresh.Address = extract.Address
		fresh.Area = extract.Area
		if extract.PermittedUse != "" {
			fresh.PermittedUse = &extract.PermittedUse
		}
	}
	return s.apps.Create(ctx, fresh)
}

func (s *wizardService) registerTu(ctx context.Context, input wizard.Input, collected map[string]wizard.Output) (wizard.Output, error) {
	app, err := s.ensureApplication(ctx, input, collected)
	if err != nil {
		return nil, err
	}

	rsoOut, ok := collected["rso"]
	if !ok {
		return nil, &remote.Error{Kind: remote.ErrValidation, Message: "no utility provider selected"}
	}
	rsoType, _ := rsoOut["rso_type"].(models.RSOType)
	rsoName, _ := rsoOut["rso_name"].(string)

	payload := s.generationPayload(collected)
	payload["rso_type"] = string(rsoType)
	payload["rso_name"] = rsoName

	artifact, err := s.generator.Generate(ctx, remote.DocTuRequest, payload)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	record, err := s.tuReqs.Register(ctx, repository.TuRegistration{
		ApplicationID: app.ID,
		OutDate:       now.Format("2006-01-02"),
		OutYear:       now.Year(),
		RSOType:       rsoType,
		RSOName:       &rsoName,
		Attachment:    &artifact.Filename,
	})
	if err != nil {
		return nil, registrationError(err)
	}

	return wizard.Output{
		"record":   record,
		"artifact": ArtifactRef{artifact},
	}, nil
}

func (s *wizardService) registerRefusal(ctx context.Context, input wizard.Input, collected map[string]wizard.Output) (wizard.Output, error) {
	app, err := s.ensureApplication(ctx, input, collected)
	if err != nil {
		return nil, err
	}

	reasonOut, ok := collected["reason"]
	if !ok {
		return nil, &remote.Error{Kind: remote.ErrValidation, Message: "no refusal reason selected"}
	}
	reasonCode, _ := reasonOut["reason_code"].(models.RefusalReason)
	reasonText, _ := reasonOut["reason_text"].(string)

	payload := s.generationPayload(collected)
	payload["reason_code"] = string(reasonCode)
	payload["reason_text"] = reasonText

	artifact, err := s.generator.Generate(ctx, remote.DocRefusal, payload)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	record, err := s.refusals.Register(ctx, repository.RefusalRegistration{
		ApplicationID: app.ID,
		OutDate:       now.Format("2006-01-02"),
		OutYear:       now.Year(),
		ReasonCode:    reasonCode,
		ReasonText:    &reasonText,
		Attachment:    &artifact.Filename,
	})
	if err != nil {
		return nil, registrationError(err)
	}

	return wizard.Output{
		"record":   record,
		"artifact": ArtifactRef{artifact},
	}, nil
}

func (s *wizardService) registerPlan(ctx context.Context, input wizard.Input, collected map[string]wizard.Output) (wizard.Output, error) {
	app, err := s.ensureApplication(ctx, input, collected)
	if err != nil {
		return nil, err
	}

	payload := s.generationPayload(collected)

	artifact, err := s.generator.Generate(ctx, remote.DocGradplan, payload)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	record, err := s.plans.Register(ctx, repository.PlanRegistration{
		ApplicationID: app.ID,
		OutDate:       now.Format("2006-01-02"),
		OutYear:       now.Year(),
		Attachment:    &artifact.Filename,
	})
	if err != nil {
		return nil, registrationError(err)
	}

	return wizard.Output{
		"record":   record,
		"artifact": ArtifactRef{artifact},
	}, nil
}

func (s *wizardService) export(ctx context.Context, kind remote.DocumentKind, collected map[string]wizard.Output) (wizard.Output, error) {
	artifact, err := s.generator.Generate(ctx, kind, s.generationPayload(collected))
	if err != nil {
		return nil, err
	}
	return wizard.Output{"artifact": ArtifactRef{artifact}}, nil
}

func (s *wizardService) createTask(ctx context.Context, collected map[string]wizard.Output) (wizard.Output, error) {
	parsed := collectedApplication(collected)
	if parsed == nil {
		return nil, &remote.Error{Kind: remote.ErrValidation, Message: "no parsed application for the task"}
	}

	title := fmt.Sprintf("GPZU application %s", parsed.Number)
	description := fmt.Sprintf("Applicant: %s\nCadastral number: %s", parsed.Applicant, parsed.Cadnum)
	card, err := s.kaiten.CreateCard(ctx, title, description, map[string]string{
		"number": parsed.Number,
		"cadnum": parsed.Cadnum,
	})
	if err != nil {
		return nil, err
	}
	return wizard.Output{"card": card}, nil
}

// generationPayload flattens the collected outputs into the generator's
// payload. Steps are folded in definition order, so a field parsed from
// the registry extract overrides the same field from the application.
func (s *wizardService) generationPayload(collected map[string]wizard.Output) map[string]interface{} {
	payload := make(map[string]interface{})

	if app := collectedApplication(collected); app != nil {
		payload["number"] = app.Number
		payload["date"] = app.Date
		payload["date_text"] = app.DateText
		payload["applicant"] = app.Applicant
		payload["phone"] = app.Phone
		payload["email"] = app.Email
		payload["cadnum"] = app.Cadnum
		payload["purpose"] = app.Purpose
	}
	if extract := collectedExtract(collected); extract != nil {
		if extract.Cadnum != "" {
			payload["cadnum"] = extract.Cadnum
		}
		payload["address"] = extract.Address
		if extract.Area != nil {
			payload["area"] = *extract.Area
		}
		payload["permitted_use"] = extract.PermittedUse
		payload["contours"] = extract.Contours
	}
	if out, ok := collected["analysis"]; ok {
		if analysis, ok := out["analysis"].(*remote.Analysis); ok {
			payload["analysis"] = analysis
		}
	}
	return payload
}

func collectedApplication(collected map[string]wizard.Output) *remote.ParsedApplication {
	out, ok := collected["application"]
	if !ok {
		return nil
	}
	parsed, _ := out["application"].(*remote.ParsedApplication)
	return parsed
}

func collectedExtract(collected map[string]wizard.Output) *remote.ParsedExtract {
	out, ok := collected["extract"]
	if !ok {
		return nil
	}
	parsed, _ := out["extract"].(*remote.ParsedExtract)
	return parsed
}

// registrationError translates a duplicate-key rejection into the remote
// taxonomy so the operator sees a concrete message instead of a bare 500.
// The number allocation happened inside the rolled-back transaction, so no
// number is consumed. A collision on the (out_year, out_number) constraint
// means two registrations raced for the same number; that one is transient
// and maps to the retryable class instead of a rejection.
func registrationError(err error) error {
	var dup *repository.DuplicateError
	if errors.As(err, &dup) && strings.Contains(dup.Constraint, "out_number") {
		return &remote.Error{
			Kind:    remote.ErrUnavailable,
			Message: "registration number collision, retry the registration",
		}
	}
	if errors.Is(err, repository.ErrDuplicate) {
		return &remote.Error{
			Kind:    remote.ErrRejected,
			Message: "a record for this application already exists",
		}
	}
	return err
}
