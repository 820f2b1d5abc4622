package model

import "time"

type PlanLog struct {
	ID          uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	Contexto    string    `gorm:"column:contexto;type:text;not null;index"`
	NumeroPlano string    `gorm:"column:numero_plano;type:text;index"`
	TreatmentID *uint64   `gorm:"column:treatment_id;index"`
	EtapaNumero *int      `gorm:"column:etapa_numero"`
	EtapaNome   string    `gorm:"column:etapa_nome;type:text"`
	Status      string    `gorm:"column:status;type:text;not null"`
	Mensagem    string    `gorm:"column:mensagem;type:text;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;not null;index"`
}

func (PlanLog) TableName() string {
	return "plan_logs"
}
