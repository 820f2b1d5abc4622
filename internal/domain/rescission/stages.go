package rescission

import "strings"

// Audit context tags. Empty tags default to ContextGeral.
const (
	ContextGestao     = "gestao"
	ContextTratamento = "tratamento"
	ContextGeral      = "geral"
)

// NormalizeContext lower-cases and defaults an audit context tag.
func NormalizeContext(raw string) string {
	tag := strings.ToLower(strings.TrimSpace(raw))
	if tag == "" {
		return ContextGeral
	}
	return tag
}

// Audit status tags used by both engines. Free text is allowed; these are
// the tags the pipelines emit themselves.
const (
	AuditInfo       = "INFO"
	AuditInicio     = "INICIO"
	AuditSucesso    = "SUCESSO"
	AuditFalha      = "FALHA"
	AuditDescartado = "DESCARTADO"
	AuditPausado    = "PAUSADO"
	AuditRetomado   = "RETOMADO"
	AuditConcluido  = "CONCLUIDO"
)

// Stage identifies one step of the 7-stage treatment pipeline.
type Stage struct {
	ID   int
	Name string
}

// TreatmentStages is the fixed stage sequence every treatment record
// carries. Order is load-bearing: stage 5 is the only one that may
// discard, stages 6 and 7 mutate the owning plan.
var TreatmentStages = []Stage{
	{ID: 1, Name: "Etapa 1 – Aproveitamento de Recolhimentos"},
	{ID: 2, Name: "Etapa 2 – Substituição – Confissão x Notificação Fiscal"},
	{ID: 3, Name: "Etapa 3 – Pesquisa de Guias no SFG (PIG)"},
	{ID: 4, Name: "Etapa 4 – Lançamento de Guias no FGE (PIG)"},
	{ID: 5, Name: "Etapa 5 – Situação do Plano"},
	{ID: 6, Name: "Etapa 6 – Rescisão"},
	{ID: 7, Name: "Etapa 7 – Comunicação da Rescisão"},
}

// CaptureCheckpoints labels the 4-checkpoint sub-state machine each
// simulated capture goes through.
var CaptureCheckpoints = []string{"Captura", "Situação especial", "Liquidação anterior", "GRDE"}

// StageLabel returns the display label for a treatment stage number, or
// an empty string for unknown numbers.
func StageLabel(id int) string {
	for _, s := range TreatmentStages {
		if s.ID == id {
			return "Tratamento – " + s.Name
		}
	}
	return ""
}
