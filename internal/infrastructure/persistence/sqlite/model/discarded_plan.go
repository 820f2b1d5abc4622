package model

import "time"

type DiscardedPlan struct {
	ID              uint64     `gorm:"column:id;primaryKey;autoIncrement"`
	NumeroPlano     string     `gorm:"column:numero_plano;type:text;not null;index"`
	Situacao        string     `gorm:"column:situacao;type:text;not null"`
	CNPJ            string     `gorm:"column:cnpj;type:text;not null"`
	Tipo            string     `gorm:"column:tipo;type:text"`
	Saldo           float64    `gorm:"column:saldo;not null;default:0"`
	DtSituacaoAtual *time.Time `gorm:"column:dt_situacao_atual"`
	CreatedAt       time.Time  `gorm:"column:created_at;not null"`
}

func (DiscardedPlan) TableName() string {
	return "discarded_plans"
}
