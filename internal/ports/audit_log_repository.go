package ports

import (
	"context"
	"time"
)

// AuditEntry is one immutable line of the plan audit trail. Contexto
// tags the producing pipeline; Status is a free-text upper-cased tag.
type AuditEntry struct {
	ID          uint64
	Contexto    string
	NumeroPlano string
	TreatmentID *uint64
	EtapaNumero *int
	EtapaNome   string
	Status      string
	Mensagem    string
	CreatedAt   time.Time
}

// AuditOrder selects the sort direction for Recent queries.
type AuditOrder string

const (
	AuditOrderAsc  AuditOrder = "asc"
	AuditOrderDesc AuditOrder = "desc"
)

type AuditLogRepository interface {
	Add(ctx context.Context, entry AuditEntry) (AuditEntry, error)
	// Recent returns up to limit entries, optionally filtered by context
	// tag. Order applies to created_at (id as tiebreaker).
	Recent(ctx context.Context, limit int, contexto string, order AuditOrder) ([]AuditEntry, error)
	Range(ctx context.Context, from time.Time, to time.Time, contexto string) ([]AuditEntry, error)
}
