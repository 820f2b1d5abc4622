package ports

import (
	"context"
	"errors"
	"time"
)

var ErrTreatmentNotFound = errors.New("treatment plan not found")

// TreatmentStage is one step of the fixed treatment pipeline carried by
// every treatment record. Timestamps are RFC3339 strings so the list can
// round-trip through the JSON column unchanged; empty means unset.
type TreatmentStage struct {
	ID           int    `json:"id"`
	Nome         string `json:"nome"`
	Status       string `json:"status"`
	IniciadoEm   string `json:"iniciado_em"`
	FinalizadoEm string `json:"finalizado_em"`
	Mensagem     string `json:"mensagem"`
}

// TreatmentPlan is one plan undergoing the treatment pipeline. Notas is
// an open-ended key/value mapping filled stage by stage and later
// rendered into the dossier document; new keys appear as stages run.
type TreatmentPlan struct {
	ID           uint64
	PlanID       uint64
	NumeroPlano  string
	RazaoSocial  string
	Status       string
	EtapaAtual   int
	Periodo      string
	CNPJs        []string
	Bases        []string
	Notas        map[string]string
	Etapas       []TreatmentStage
	RescisaoData *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type TreatmentRepository interface {
	Add(ctx context.Context, plan *TreatmentPlan) error
	Get(ctx context.Context, id uint64) (TreatmentPlan, error)
	// ByPlanID returns the treatment owning the given plan, or false when
	// none exists. At most one treatment per plan is ever created.
	ByPlanID(ctx context.Context, planID uint64) (TreatmentPlan, bool, error)
	ListAll(ctx context.Context) ([]TreatmentPlan, error)
	ListRescindedBetween(ctx context.Context, from time.Time, to time.Time) ([]TreatmentPlan, error)
	Update(ctx context.Context, plan TreatmentPlan) error
}
