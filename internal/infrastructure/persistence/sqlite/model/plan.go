package model

import "time"

type Plan struct {
	ID                    uint64     `gorm:"column:id;primaryKey;autoIncrement"`
	NumeroPlano           string     `gorm:"column:numero_plano;type:text;not null;uniqueIndex"`
	Gifug                 string     `gorm:"column:gifug;type:text"`
	RazaoSocial           string     `gorm:"column:razao_social;type:text"`
	SituacaoAtual         string     `gorm:"column:situacao_atual;type:text"`
	SituacaoAnterior      string     `gorm:"column:situacao_anterior;type:text"`
	DiasEmAtraso          int        `gorm:"column:dias_em_atraso;not null;default:0"`
	Tipo                  string     `gorm:"column:tipo;type:text"`
	DtSituacaoAtual       *time.Time `gorm:"column:dt_situacao_atual"`
	Saldo                 float64    `gorm:"column:saldo;not null;default:0"`
	DtProposta            *time.Time `gorm:"column:dt_proposta"`
	Resolucao             string     `gorm:"column:resolucao;type:text"`
	NumeroInscricao       string     `gorm:"column:numero_inscricao;type:text"`
	Representacao         string     `gorm:"column:representacao;type:text"`
	TipoParcelamento      string     `gorm:"column:tipo_parcelamento;type:text"`
	SaldoTotal            float64    `gorm:"column:saldo_total;not null;default:0"`
	Status                string     `gorm:"column:status;type:text;index"`
	DataRescisao          *time.Time `gorm:"column:data_rescisao"`
	DataComunicacao       *time.Time `gorm:"column:data_comunicacao"`
	MetodoComunicacao     string     `gorm:"column:metodo_comunicacao;type:text"`
	ReferenciaComunicacao string     `gorm:"column:referencia_comunicacao;type:text"`
	ParcelasAtraso        string     `gorm:"column:parcelas_atraso;type:text"`
	CreatedAt             time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt             time.Time  `gorm:"column:updated_at;not null"`
}

func (Plan) TableName() string {
	return "plans"
}
