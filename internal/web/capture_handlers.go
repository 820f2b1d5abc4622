package web

import (
	"net/http"
	"strconv"
	"time"

	"sirep/internal/ports"
)

// PlanOut is the dashboard projection of a plan.
type PlanOut struct {
	ID                    uint64   `json:"id"`
	NumeroPlano           string   `json:"numero_plano"`
	Gifug                 string   `json:"gifug,omitempty"`
	RazaoSocial           string   `json:"razao_social,omitempty"`
	SituacaoAtual         string   `json:"situacao_atual,omitempty"`
	SituacaoAnterior      string   `json:"situacao_anterior,omitempty"`
	DiasEmAtraso          int      `json:"dias_em_atraso,omitempty"`
	Tipo                  string   `json:"tipo,omitempty"`
	DtSituacaoAtual       *string  `json:"dt_situacao_atual"`
	Saldo                 float64  `json:"saldo"`
	DtProposta            *string  `json:"dt_proposta"`
	Resolucao             string   `json:"resolucao,omitempty"`
	NumeroInscricao       string   `json:"numero_inscricao,omitempty"`
	Representacao         string   `json:"representacao,omitempty"`
	Status                string   `json:"status,omitempty"`
	DataRescisao          *string  `json:"data_rescisao"`
	DataComunicacao       *string  `json:"data_comunicacao"`
	MetodoComunicacao     string   `json:"metodo_comunicacao,omitempty"`
	ReferenciaComunicacao string   `json:"referencia_comunicacao,omitempty"`
}

// OccurrenceOut is the dashboard projection of a discard occurrence.
type OccurrenceOut struct {
	ID              uint64  `json:"id"`
	NumeroPlano     string  `json:"numero_plano"`
	Situacao        string  `json:"situacao"`
	CNPJ            string  `json:"cnpj,omitempty"`
	Tipo            string  `json:"tipo,omitempty"`
	Saldo           float64 `json:"saldo"`
	DtSituacaoAtual *string `json:"dt_situacao_atual"`
	CreatedAt       string  `json:"created_at"`
}

func (s *Server) handleCapturaIniciar(w http.ResponseWriter, r *http.Request) {
	if err := s.capture.Start(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	st := s.capture.Status(r.Context())
	respondJSON(w, http.StatusOK, map[string]any{"estado": st.Estado})
}

func (s *Server) handleCapturaPausar(w http.ResponseWriter, r *http.Request) {
	s.capture.Pause(r.Context())
	st := s.capture.Status(r.Context())
	respondJSON(w, http.StatusOK, map[string]any{"estado": st.Estado})
}

func (s *Server) handleCapturaContinuar(w http.ResponseWriter, r *http.Request) {
	s.capture.Resume(r.Context())
	st := s.capture.Status(r.Context())
	respondJSON(w, http.StatusOK, map[string]any{"estado": st.Estado})
}

func (s *Server) handleCapturaStatus(w http.ResponseWriter, r *http.Request) {
	st := s.capture.Status(r.Context())
	respondJSON(w, http.StatusOK, map[string]any{
		"estado":             st.Estado,
		"processados":        st.Processados,
		"novos":              st.Novos,
		"falhas":             st.Falhas,
		"progresso_total":    st.Progresso,
		"em_progresso":       st.EmProgresso,
		"ultima_atualizacao": st.UltimaAtualizacao,
		"ocorrencias_total":  st.Ocorrencias,
		"total":              st.TotalPlanos,
		"total_passiveis":    st.TotalPassiveis,
		"last_error":         st.LastError,
		"historico":          st.Historico,
	})
}

func (s *Server) handleCapturaPlanos(w http.ResponseWriter, r *http.Request) {
	pagina := queryInt(r, "pagina", 1)
	tamanho := queryInt(r, "tamanho", 10)

	planos, total, err := s.plans.Paginate(r.Context(), pagina, tamanho)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}
	passiveis, err := s.plans.CountBySituacao(r.Context(), "P. RESC")
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}

	items := make([]PlanOut, 0, len(planos))
	for _, plan := range planos {
		items = append(items, planOut(plan))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"items":           items,
		"total":           total,
		"total_passiveis": passiveis,
	})
}

func (s *Server) handleCapturaOcorrencias(w http.ResponseWriter, r *http.Request) {
	pagina := queryInt(r, "pagina", 1)
	tamanho := queryInt(r, "tamanho", 10)

	rows, total, err := s.occurrences.Paginate(r.Context(), pagina, tamanho)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}

	items := make([]OccurrenceOut, 0, len(rows))
	for _, occ := range rows {
		items = append(items, occurrenceOut(occ))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": total,
	})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return def
	}
	return value
}

func planOut(plan ports.Plan) PlanOut {
	return PlanOut{
		ID:                    plan.ID,
		NumeroPlano:           plan.NumeroPlano,
		Gifug:                 plan.Gifug,
		RazaoSocial:           plan.RazaoSocial,
		SituacaoAtual:         plan.SituacaoAtual,
		SituacaoAnterior:      plan.SituacaoAnterior,
		DiasEmAtraso:          plan.DiasEmAtraso,
		Tipo:                  plan.Tipo,
		DtSituacaoAtual:       dateOut(plan.DtSituacaoAtual),
		Saldo:                 plan.Saldo,
		DtProposta:            dateOut(plan.DtProposta),
		Resolucao:             plan.Resolucao,
		NumeroInscricao:       plan.NumeroInscricao,
		Representacao:         plan.Representacao,
		Status:                plan.Status,
		DataRescisao:          dateOut(plan.DataRescisao),
		DataComunicacao:       dateOut(plan.DataComunicacao),
		MetodoComunicacao:     plan.MetodoComunicacao,
		ReferenciaComunicacao: plan.ReferenciaComunicacao,
	}
}

func occurrenceOut(occ ports.Occurrence) OccurrenceOut {
	out := OccurrenceOut{
		ID:              occ.ID,
		NumeroPlano:     occ.NumeroPlano,
		Situacao:        occ.Situacao,
		CNPJ:            occ.CNPJ,
		Tipo:            occ.Tipo,
		Saldo:           occ.Saldo,
		DtSituacaoAtual: dateOut(occ.DtSituacaoAtual),
	}
	if !occ.CreatedAt.IsZero() {
		out.CreatedAt = occ.CreatedAt.Format(time.RFC3339)
	}
	return out
}

func dateOut(value *time.Time) *string {
	if value == nil {
		return nil
	}
	formatted := value.Format("2006-01-02")
	return &formatted
}
