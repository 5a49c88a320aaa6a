package wizard

// Step kinds understood by the orchestration executor.
const (
	KindParseApplication = "parse-application"
	KindParseExtract     = "parse-extract"
	KindAnalyze          = "analyze"
	KindSelectReason     = "select-reason"
	KindSelectRSO        = "select-rso"
	KindRegisterTu       = "register-tu"
	KindRegisterRefusal  = "register-refusal"
	KindRegisterPlan     = "register-plan"
	KindExportMidMif     = "export-midmif"
	KindExportWorkspace  = "export-workspace"
	KindCreateTask       = "create-task"
)

// Wizard kinds offered by the application.
const (
	WizardTu        = "tu"
	WizardRefusal   = "refusal"
	WizardGradplan  = "gradplan"
	WizardMidMif    = "midmif"
	WizardWorkspace = "workspace"
	WizardKaiten    = "kaiten"
)

// Definitions returns the step catalog for every wizard kind.
//
// The selection steps hold for confirmation: picking a reason or a utility
// provider is not itself a completed remote operation, so the machine
// waits for an explicit confirm before moving to registration. The export
// wizards have no registration record, so their terminal step is not a
// commit; stepping back re-enables the export.
func Definitions() map[string]Definition {
	return map[string]Definition{
		WizardTu: {
			Kind: WizardTu,
			Steps: []StepDef{
				{Name: "application", Kind: KindParseApplication},
				{Name: "extract", Kind: KindParseExtract},
				{Name: "rso", Kind: KindSelectRSO, HoldsForConfirmation: true},
				{Name: "register", Kind: KindRegisterTu, Commit: true},
			},
		},
		WizardRefusal: {
			Kind: WizardRefusal,
			Steps: []StepDef{
				{Name: "application", Kind: KindParseApplication},
				{Name: "extract", Kind: KindParseExtract},
				{Name: "reason", Kind: KindSelectReason, HoldsForConfirmation: true},
				{Name: "register", Kind: KindRegisterRefusal, Commit: true},
			},
		},
		WizardGradplan: {
			Kind: WizardGradplan,
			Steps: []StepDef{
				{Name: "application", Kind: KindParseApplication},
				{Name: "extract", Kind: KindParseExtract},
				{Name: "analysis", Kind: KindAnalyze},
				{Name: "register", Kind: KindRegisterPlan, Commit: true},
			},
		},
		WizardMidMif: {
			Kind: WizardMidMif,
			Steps: []StepDef{
				{Name: "extract", Kind: KindParseExtract},
				{Name: "export", Kind: KindExportMidMif},
			},
		},
		WizardWorkspace: {
			Kind: WizardWorkspace,
			Steps: []StepDef{
				{Name: "extract", Kind: KindParseExtract},
				{Name: "analysis", Kind: KindAnalyze},
				{Name: "export", Kind: KindExportWorkspace},
			},
		},
		WizardKaiten: {
			Kind: WizardKaiten,
			Steps: []StepDef{
				{Name: "application", Kind: KindParseApplication},
				{Name: "task", Kind: KindCreateTask, Commit: true},
			},
		},
	}
}
