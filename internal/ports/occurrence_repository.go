package ports

import (
	"context"
	"time"
)

// Occurrence is an immutable record that a plan was excluded from the
// active pipeline, with the status that triggered the exclusion.
type Occurrence struct {
	ID              uint64
	NumeroPlano     string
	Situacao        string
	CNPJ            string
	Tipo            string
	Saldo           float64
	DtSituacaoAtual *time.Time
	CreatedAt       time.Time
}

type OccurrenceRepository interface {
	Add(ctx context.Context, occ Occurrence) (Occurrence, error)
	ListAll(ctx context.Context) ([]Occurrence, error)
	Paginate(ctx context.Context, pagina int, tamanho int) ([]Occurrence, int64, error)
	CountAll(ctx context.Context) (int64, error)
}
