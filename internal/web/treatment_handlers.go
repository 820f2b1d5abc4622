package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"sirep/internal/usecase/treatment"
)

func (s *Server) handleTratamentoSeed(w http.ResponseWriter, r *http.Request) {
	quantidade := queryInt(r, "quantidade", 3)

	ids, err := s.treatment.Seed(r.Context(), quantidade)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"criados": len(ids),
		"ids":     idsOut(ids),
	})
}

func (s *Server) handleTratamentoMigrar(w http.ResponseWriter, r *http.Request) {
	ids, err := s.treatment.Migrate(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"criados": len(ids),
		"ids":     idsOut(ids),
	})
}

func (s *Server) handleTratamentoIniciar(w http.ResponseWriter, r *http.Request) {
	s.treatment.Start(r.Context())
	s.respondTratamentoEstado(w, r)
}

func (s *Server) handleTratamentoPausar(w http.ResponseWriter, r *http.Request) {
	s.treatment.Pause(r.Context())
	s.respondTratamentoEstado(w, r)
}

func (s *Server) handleTratamentoContinuar(w http.ResponseWriter, r *http.Request) {
	s.treatment.Resume(r.Context())
	s.respondTratamentoEstado(w, r)
}

func (s *Server) respondTratamentoEstado(w http.ResponseWriter, r *http.Request) {
	st, err := s.treatment.Status(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"estado": st.Estado})
}

func (s *Server) handleTratamentoStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.treatment.Status(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}
	if st.Fila == nil {
		st.Fila = []uint64{}
	}
	if st.Planos == nil {
		st.Planos = []treatment.PlanoStatus{}
	}
	if st.Logs == nil {
		st.Logs = []treatment.LogStatus{}
	}
	respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleNotepad(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "id inválido")
		return
	}

	txt, err := s.treatment.Notepad(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "tratamento não encontrado")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=notepad_%d.txt", id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(txt))
}

func (s *Server) handleRescindidosTXT(w http.ResponseWriter, r *http.Request) {
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

	txt, err := s.treatment.RescindedTXT(r.Context(), from, to)
	if err != nil {
		if errors.Is(err, treatment.ErrInvalidRange) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=Rescindidos_CNPJ_CEI.txt")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(txt))
}

func parseDateParam(r *http.Request, key string) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}, fmt.Errorf("parâmetro %q é obrigatório", key)
	}
	value, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parâmetro %q inválido: %s", key, raw)
	}
	return value, nil
}

func idsOut(ids []uint64) []uint64 {
	if ids == nil {
		return []uint64{}
	}
	return ids
}
