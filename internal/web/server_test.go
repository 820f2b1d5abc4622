package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sirep/internal/ports"
	"sirep/internal/usecase/capture"
	"sirep/internal/usecase/treatment"
)

type stubCapture struct {
	status  capture.Status
	started bool
}

func (s *stubCapture) Start(context.Context) error { s.started = true; return nil }
func (s *stubCapture) Pause(context.Context)       {}
func (s *stubCapture) Resume(context.Context)      {}
func (s *stubCapture) Status(context.Context) capture.Status {
	return s.status
}

type stubTreatment struct {
	seeded   []uint64
	migrated []uint64
	status   treatment.Status
	notepad  map[uint64]string
	txt      string
}

func (s *stubTreatment) Seed(_ context.Context, _ int) ([]uint64, error) { return s.seeded, nil }
func (s *stubTreatment) Migrate(context.Context) ([]uint64, error)       { return s.migrated, nil }
func (s *stubTreatment) Start(context.Context)                           {}
func (s *stubTreatment) Pause(context.Context)                           {}
func (s *stubTreatment) Resume(context.Context)                          {}
func (s *stubTreatment) Status(context.Context) (treatment.Status, error) {
	return s.status, nil
}

func (s *stubTreatment) Notepad(_ context.Context, id uint64) (string, error) {
	txt, ok := s.notepad[id]
	if !ok {
		return "", ports.ErrTreatmentNotFound
	}
	return txt, nil
}

func (s *stubTreatment) RescindedTXT(_ context.Context, from time.Time, to time.Time) (string, error) {
	if to.Before(from) {
		return "", treatment.ErrInvalidRange
	}
	return s.txt, nil
}

type stubPlans struct {
	items []ports.Plan
	total int64
}

func (s *stubPlans) GetByNumero(context.Context, string) (ports.Plan, error) {
	return ports.Plan{}, ports.ErrPlanNotFound
}

func (s *stubPlans) Upsert(context.Context, string, func(*ports.Plan)) (ports.Plan, error) {
	return ports.Plan{}, nil
}

func (s *stubPlans) ListAll(context.Context) ([]ports.Plan, error)            { return s.items, nil }
func (s *stubPlans) ListByStatus(context.Context, string) ([]ports.Plan, error) { return nil, nil }

func (s *stubPlans) Paginate(context.Context, int, int) ([]ports.Plan, int64, error) {
	return s.items, s.total, nil
}

func (s *stubPlans) CountAll(context.Context) (int64, error)             { return s.total, nil }
func (s *stubPlans) CountBySituacao(context.Context, string) (int64, error) { return 1, nil }

type stubOccurrences struct {
	items []ports.Occurrence
}

func (s *stubOccurrences) Add(_ context.Context, occ ports.Occurrence) (ports.Occurrence, error) {
	return occ, nil
}

func (s *stubOccurrences) ListAll(context.Context) ([]ports.Occurrence, error) {
	return s.items, nil
}

func (s *stubOccurrences) Paginate(context.Context, int, int) ([]ports.Occurrence, int64, error) {
	return s.items, int64(len(s.items)), nil
}

func (s *stubOccurrences) CountAll(context.Context) (int64, error) {
	return int64(len(s.items)), nil
}

type stubLogs struct {
	entries []ports.AuditEntry
}

func (s *stubLogs) Add(_ context.Context, entry ports.AuditEntry) (ports.AuditEntry, error) {
	return entry, nil
}

func (s *stubLogs) Recent(_ context.Context, limit int, contexto string, _ ports.AuditOrder) ([]ports.AuditEntry, error) {
	out := make([]ports.AuditEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		if contexto != "" && entry.Contexto != contexto {
			continue
		}
		out = append(out, entry)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *stubLogs) Range(_ context.Context, from time.Time, to time.Time, contexto string) ([]ports.AuditEntry, error) {
	var out []ports.AuditEntry
	for _, entry := range s.entries {
		if entry.CreatedAt.Before(from) || entry.CreatedAt.After(to) {
			continue
		}
		if contexto != "" && entry.Contexto != contexto {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func newTestServer(t *testing.T, capSvc *stubCapture, treat *stubTreatment) *httptest.Server {
	t.Helper()
	if capSvc == nil {
		capSvc = &stubCapture{}
	}
	if treat == nil {
		treat = &stubTreatment{}
	}
	saldo := 5000.0
	srv := NewServer(Options{
		Version:   "2.0.0",
		Capture:   capSvc,
		Treatment: treat,
		Plans: &stubPlans{
			items: []ports.Plan{{ID: 1, NumeroPlano: "1234567890", Saldo: saldo, SituacaoAtual: "P. RESC"}},
			total: 1,
		},
		Occurrences: &stubOccurrences{
			items: []ports.Occurrence{{ID: 1, NumeroPlano: "111", Situacao: "LIQUIDADO", CreatedAt: time.Now()}},
		},
		Logs: &stubLogs{
			entries: []ports.AuditEntry{
				{ID: 2, Contexto: "tratamento", Status: "INICIO", Mensagem: "Iniciada Registro de aproveitamento", CreatedAt: time.Now()},
				{ID: 1, Contexto: "gestao", Status: "INFO", Mensagem: "Captura iniciada", CreatedAt: time.Now()},
			},
		},
	})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp
}

func postJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", nil)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp
}

func TestHealthAndVersion(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	var health map[string]string
	if resp := getJSON(t, ts.URL+"/health", &health); resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}
	if health["status"] != "ok" {
		t.Fatalf("health = %v", health)
	}

	var version map[string]string
	getJSON(t, ts.URL+"/version", &version)
	if version["version"] != "2.0.0" {
		t.Fatalf("version = %v", version)
	}
}

func TestCapturaIniciarReturnsEstado(t *testing.T) {
	capSvc := &stubCapture{status: capture.Status{Estado: capture.EstadoExecutando}}
	ts := newTestServer(t, capSvc, nil)

	var body map[string]any
	resp := postJSON(t, ts.URL+"/captura/iniciar", &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !capSvc.started {
		t.Fatalf("Start must be invoked")
	}
	if body["estado"] != string(capture.EstadoExecutando) {
		t.Fatalf("estado = %v", body["estado"])
	}
}

func TestCapturaStatusPayloadShape(t *testing.T) {
	capSvc := &stubCapture{status: capture.Status{
		Estado:         capture.EstadoExecutando,
		Processados:    10,
		Novos:          8,
		Falhas:         2,
		Progresso:      20,
		TotalPlanos:    42,
		TotalPassiveis: 40,
		Ocorrencias:    2,
		LastError:      "terminal offline",
	}}
	ts := newTestServer(t, capSvc, nil)

	var body map[string]any
	getJSON(t, ts.URL+"/captura/status", &body)

	for _, key := range []string{
		"estado", "processados", "novos", "falhas", "progresso_total",
		"em_progresso", "ultima_atualizacao", "ocorrencias_total",
		"total", "total_passiveis", "last_error", "historico",
	} {
		if _, ok := body[key]; !ok {
			t.Fatalf("status payload missing %q: %v", key, body)
		}
	}
	if body["progresso_total"] != float64(20) {
		t.Fatalf("progresso_total = %v", body["progresso_total"])
	}
	if body["total"] != float64(42) {
		t.Fatalf("total = %v", body["total"])
	}
}

func TestCapturaPlanosPagination(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	var body struct {
		Items          []PlanOut `json:"items"`
		Total          int64     `json:"total"`
		TotalPassiveis int64     `json:"total_passiveis"`
	}
	getJSON(t, ts.URL+"/captura/planos?pagina=1&tamanho=10", &body)

	if len(body.Items) != 1 || body.Total != 1 || body.TotalPassiveis != 1 {
		t.Fatalf("planos payload = %+v", body)
	}
	if body.Items[0].NumeroPlano != "1234567890" {
		t.Fatalf("item = %+v", body.Items[0])
	}
}

func TestCapturaOcorrencias(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	var body struct {
		Items []OccurrenceOut `json:"items"`
		Total int64           `json:"total"`
	}
	getJSON(t, ts.URL+"/captura/ocorrencias", &body)
	if len(body.Items) != 1 || body.Total != 1 {
		t.Fatalf("ocorrencias payload = %+v", body)
	}
	if body.Items[0].Situacao != "LIQUIDADO" {
		t.Fatalf("item = %+v", body.Items[0])
	}
}

func TestLogsFilterByContexto(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	var body struct {
		Items []LogOut `json:"items"`
		Total int      `json:"total"`
	}
	getJSON(t, ts.URL+"/logs?contexto=gestao", &body)
	if body.Total != 1 || len(body.Items) != 1 {
		t.Fatalf("logs payload = %+v", body)
	}
	if body.Items[0].Contexto != "gestao" {
		t.Fatalf("item = %+v", body.Items[0])
	}

	var all struct {
		Items []LogOut `json:"items"`
	}
	getJSON(t, ts.URL+"/logs", &all)
	if len(all.Items) != 2 {
		t.Fatalf("unfiltered logs = %+v", all)
	}
}

func TestLogsExportDownload(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	resp, err := http.Get(ts.URL + "/logs/export?from=2020-01-01&to=2030-01-01&contexto=gestao")
	if err != nil {
		t.Fatalf("GET logs export: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if disp := resp.Header.Get("Content-Disposition"); !strings.HasPrefix(disp, "attachment") {
		t.Fatalf("content-disposition = %q", disp)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read export body: %v", err)
	}
	body := string(raw)
	if !strings.Contains(body, "DATA/HORA") || !strings.Contains(body, "Captura iniciada") {
		t.Fatalf("export body = %q", body)
	}
	if strings.Contains(body, "Iniciada Registro de aproveitamento") {
		t.Fatalf("tratamento entry leaked into gestao export: %q", body)
	}

	inverted, err := http.Get(ts.URL + "/logs/export?from=2024-01-10&to=2024-01-09")
	if err != nil {
		t.Fatalf("GET inverted range: %v", err)
	}
	defer inverted.Body.Close()
	if inverted.StatusCode != http.StatusBadRequest {
		t.Fatalf("inverted range status = %d", inverted.StatusCode)
	}

	missingParam, err := http.Get(ts.URL + "/logs/export?from=2024-01-10")
	if err != nil {
		t.Fatalf("GET missing param: %v", err)
	}
	defer missingParam.Body.Close()
	if missingParam.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("missing param status = %d", missingParam.StatusCode)
	}
}

func TestTratamentoMigrarPayload(t *testing.T) {
	treat := &stubTreatment{migrated: []uint64{7, 9}}
	ts := newTestServer(t, nil, treat)

	var body struct {
		Criados int      `json:"criados"`
		IDs     []uint64 `json:"ids"`
	}
	resp := postJSON(t, ts.URL+"/tratamentos/migrar", &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body.Criados != 2 || len(body.IDs) != 2 {
		t.Fatalf("migrar payload = %+v", body)
	}
}

func TestTratamentoStatusDefaultsEmptyCollections(t *testing.T) {
	treat := &stubTreatment{status: treatment.Status{Estado: treatment.EstadoOcioso}}
	ts := newTestServer(t, nil, treat)

	var body map[string]any
	getJSON(t, ts.URL+"/tratamentos/status", &body)

	for _, key := range []string{"fila", "planos", "logs"} {
		if body[key] == nil {
			t.Fatalf("%q must encode as an empty list, got null", key)
		}
	}
}

func TestNotepadDownload(t *testing.T) {
	treat := &stubTreatment{notepad: map[uint64]string{3: "DEPURAÇÃO PARCELAMENTO PASSÍVEL DE RESCISÃO\n"}}
	ts := newTestServer(t, nil, treat)

	resp, err := http.Get(ts.URL + "/tratamentos/3/notepad")
	if err != nil {
		t.Fatalf("GET notepad: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if disp := resp.Header.Get("Content-Disposition"); !strings.HasPrefix(disp, "attachment") {
		t.Fatalf("content-disposition = %q", disp)
	}

	missing, err := http.Get(ts.URL + "/tratamentos/99/notepad")
	if err != nil {
		t.Fatalf("GET missing notepad: %v", err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("missing notepad status = %d", missing.StatusCode)
	}
}

func TestRescindidosTXT(t *testing.T) {
	treat := &stubTreatment{txt: "12345678000190\n98765432000109\n"}
	ts := newTestServer(t, nil, treat)

	resp, err := http.Get(ts.URL + "/tratamentos/rescindidos-txt?from=2024-01-01&to=2024-01-31")
	if err != nil {
		t.Fatalf("GET rescindidos: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if disp := resp.Header.Get("Content-Disposition"); !strings.HasPrefix(disp, "attachment") {
		t.Fatalf("content-disposition = %q", disp)
	}

	inverted, err := http.Get(ts.URL + "/tratamentos/rescindidos-txt?from=2024-01-10&to=2024-01-09")
	if err != nil {
		t.Fatalf("GET inverted range: %v", err)
	}
	defer inverted.Body.Close()
	if inverted.StatusCode != http.StatusBadRequest {
		t.Fatalf("inverted range status = %d", inverted.StatusCode)
	}

	missingParam, err := http.Get(ts.URL + "/tratamentos/rescindidos-txt?from=2024-01-10")
	if err != nil {
		t.Fatalf("GET missing param: %v", err)
	}
	defer missingParam.Body.Close()
	if missingParam.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("missing param status = %d", missingParam.StatusCode)
	}
}
