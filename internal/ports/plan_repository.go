package ports

import (
	"context"
	"errors"
	"time"
)

var ErrPlanNotFound = errors.New("plan not found")

// Plan is a debt-collection installment plan tracked for potential
// rescission. NumeroPlano is the natural key.
type Plan struct {
	ID                    uint64
	NumeroPlano           string
	Gifug                 string
	RazaoSocial           string
	SituacaoAtual         string
	SituacaoAnterior      string
	DiasEmAtraso          int
	Tipo                  string
	DtSituacaoAtual       *time.Time
	Saldo                 float64
	DtProposta            *time.Time
	Resolucao             string
	NumeroInscricao       string
	Representacao         string
	TipoParcelamento      string
	SaldoTotal            float64
	Status                string
	DataRescisao          *time.Time
	DataComunicacao       *time.Time
	MetodoComunicacao     string
	ReferenciaComunicacao string
	ParcelasAtraso        string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// PlanRepository persists plans with upsert-by-natural-key semantics.
type PlanRepository interface {
	GetByNumero(ctx context.Context, numeroPlano string) (Plan, error)
	// Upsert loads the plan by natural key (creating it when absent),
	// applies the mutator and persists the result in one unit.
	Upsert(ctx context.Context, numeroPlano string, apply func(*Plan)) (Plan, error)
	ListAll(ctx context.Context) ([]Plan, error)
	ListByStatus(ctx context.Context, status string) ([]Plan, error)
	// Paginate returns one dashboard page ordered by balance descending,
	// plus the unpaged total.
	Paginate(ctx context.Context, pagina int, tamanho int) ([]Plan, int64, error)
	CountAll(ctx context.Context) (int64, error)
	CountBySituacao(ctx context.Context, situacaoAtual string) (int64, error)
}
