package web

import (
	"errors"
	"net/http"
	"time"

	"sirep/internal/audit"
	"sirep/internal/ports"
)

// LogOut is the dashboard projection of one audit entry.
type LogOut struct {
	ID          uint64  `json:"id"`
	Contexto    string  `json:"contexto"`
	NumeroPlano string  `json:"numero_plano,omitempty"`
	TreatmentID *uint64 `json:"treatment_id,omitempty"`
	EtapaNumero *int    `json:"etapa_numero,omitempty"`
	EtapaNome   string  `json:"etapa_nome,omitempty"`
	Status      string  `json:"status"`
	Mensagem    string  `json:"mensagem"`
	CreatedAt   string  `json:"created_at"`
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	contexto := r.URL.Query().Get("contexto")
	limit := queryInt(r, "limit", 40)
	if limit > 200 {
		limit = 200
	}

	entries, err := s.logs.Recent(r.Context(), limit, contexto, ports.AuditOrderDesc)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}

	items := make([]LogOut, 0, len(entries))
	for _, entry := range entries {
		items = append(items, logOut(entry))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": len(items),
	})
}

func (s *Server) handleLogsExport(w http.ResponseWriter, r *http.Request) {
	from, err := parseDateParam(r, "from")
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	to, err := parseDateParam(r, "to")
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	contexto := r.URL.Query().Get("contexto")

	if to.Before(from) {
		respondError(w, http.StatusBadRequest, audit.ErrInvalidRange.Error())
		return
	}

	// The range bound is inclusive; stretch the end date to cover the
	// whole day.
	txt, err := audit.Export(r.Context(), s.logs, from, to.Add(24*time.Hour-time.Nanosecond), contexto)
	if err != nil {
		if errors.Is(err, audit.ErrInvalidRange) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=Logs_SIREP.txt")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(txt))
}

func logOut(entry ports.AuditEntry) LogOut {
	out := LogOut{
		ID:          entry.ID,
		Contexto:    entry.Contexto,
		NumeroPlano: entry.NumeroPlano,
		TreatmentID: entry.TreatmentID,
		EtapaNumero: entry.EtapaNumero,
		EtapaNome:   entry.EtapaNome,
		Status:      entry.Status,
		Mensagem:    entry.Mensagem,
	}
	if !entry.CreatedAt.IsZero() {
		out.CreatedAt = entry.CreatedAt.Format(time.RFC3339)
	}
	return out
}
