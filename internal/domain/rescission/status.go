package rescission

// PlanStatus classifies a plan inside the rescission lifecycle. Values are
// stored as plain text so unknown legacy statuses survive round-trips.
type PlanStatus string

const (
	StatusPassivelResc  PlanStatus = "passivel_rescisao"
	StatusNovo          PlanStatus = "novo"
	StatusSemTratamento PlanStatus = "sem_tratamento"
	StatusRescindido    PlanStatus = "rescindido"
	StatusLiquidado     PlanStatus = "liquidado"
	StatusNaoRescindido PlanStatus = "nao_rescindido"
	StatusEspecial      PlanStatus = "especial"
)

// Actionable reports whether a plan in this status should enter the
// treatment queue. Terminal or special statuses are carried over to the
// treatment record but never enqueued.
func (s PlanStatus) Actionable() bool {
	switch s {
	case StatusPassivelResc, StatusNovo, StatusSemTratamento:
		return true
	default:
		return false
	}
}

// ParsePlanStatus maps stored text onto a known status. The second return
// is false for unknown or legacy values.
func ParsePlanStatus(raw string) (PlanStatus, bool) {
	switch PlanStatus(raw) {
	case StatusPassivelResc, StatusNovo, StatusSemTratamento,
		StatusRescindido, StatusLiquidado, StatusNaoRescindido, StatusEspecial:
		return PlanStatus(raw), true
	default:
		return "", false
	}
}

// Treatment record statuses. Any plan status text may pass through
// unchanged when a treatment is created for a plan already outside the
// actionable set.
const (
	TreatmentPendente    = "pendente"
	TreatmentProcessando = "processando"
	TreatmentRescindido  = "rescindido"
	TreatmentDescartado  = "descartado"
)

// Per-stage statuses inside a treatment record.
const (
	StagePendente    = "pendente"
	StageProcessando = "processando"
	StageConcluido   = "concluido"
	StageCancelado   = "cancelado"
)

// Situation text written by the capture simulation when a plan is
// discarded, and the screen text marking a plan eligible for rescission.
const (
	SituacaoPassivelResc = "P. RESC"
	SituacaoEspecial     = "SIT ESPECIAL"
	SituacaoLiquidado    = "LIQUIDADO"
	SituacaoRescindido   = "RESCINDIDO"
	SituacaoGRDE         = "GRDE Emitida"
)
