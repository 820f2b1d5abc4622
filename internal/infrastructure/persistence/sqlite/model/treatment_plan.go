package model

import "time"

// TreatmentPlan persists one plan undergoing the treatment pipeline.
// CNPJs, Bases, Notas and Etapas are JSON-encoded text columns; the
// repository owns the encoding.
type TreatmentPlan struct {
	ID           uint64     `gorm:"column:id;primaryKey;autoIncrement"`
	PlanID       uint64     `gorm:"column:plan_id;not null;index"`
	NumeroPlano  string     `gorm:"column:numero_plano;type:text;not null;index"`
	RazaoSocial  string     `gorm:"column:razao_social;type:text;not null"`
	Status       string     `gorm:"column:status;type:text;not null;default:pendente;index"`
	EtapaAtual   int        `gorm:"column:etapa_atual;not null;default:0"`
	Periodo      string     `gorm:"column:periodo;type:text"`
	CNPJs        string     `gorm:"column:cnpjs;type:text;not null"`
	Bases        string     `gorm:"column:bases;type:text;not null"`
	Notas        string     `gorm:"column:notas;type:text;not null"`
	Etapas       string     `gorm:"column:etapas;type:text;not null"`
	RescisaoData *time.Time `gorm:"column:rescisao_data"`
	CreatedAt    time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;not null"`
}

func (TreatmentPlan) TableName() string {
	return "treatment_plans"
}
