package treatment

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"sirep/internal/audit"
	"sirep/internal/domain/rescission"
	"sirep/internal/ports"
	"sirep/internal/simulation"
)

type memPlans struct {
	mu    sync.Mutex
	plans map[string]ports.Plan
	next  uint64
}

func newMemPlans() *memPlans {
	return &memPlans{plans: map[string]ports.Plan{}}
}

func (m *memPlans) GetByNumero(_ context.Context, numero string) (ports.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	plan, ok := m.plans[numero]
	if !ok {
		return ports.Plan{}, ports.ErrPlanNotFound
	}
	return plan, nil
}

func (m *memPlans) Upsert(_ context.Context, numero string, apply func(*ports.Plan)) (ports.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	plan, ok := m.plans[numero]
	if !ok {
		m.next++
		plan = ports.Plan{ID: m.next, NumeroPlano: numero}
	}
	if apply != nil {
		apply(&plan)
	}
	plan.NumeroPlano = numero
	m.plans[numero] = plan
	return plan, nil
}

func (m *memPlans) ListAll(_ context.Context) ([]ports.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ports.Plan, 0, len(m.plans))
	for _, plan := range m.plans {
		out = append(out, plan)
	}
	return out, nil
}

func (m *memPlans) ListByStatus(_ context.Context, status string) ([]ports.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ports.Plan
	for _, plan := range m.plans {
		if plan.Status == status {
			out = append(out, plan)
		}
	}
	return out, nil
}

func (m *memPlans) Paginate(_ context.Context, _ int, _ int) ([]ports.Plan, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ports.Plan, 0, len(m.plans))
	for _, plan := range m.plans {
		out = append(out, plan)
	}
	return out, int64(len(out)), nil
}

func (m *memPlans) CountAll(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.plans)), nil
}

func (m *memPlans) CountBySituacao(_ context.Context, situacao string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, plan := range m.plans {
		if plan.SituacaoAtual == situacao {
			count++
		}
	}
	return count, nil
}

type memTreatments struct {
	mu   sync.Mutex
	rows map[uint64]ports.TreatmentPlan
	next uint64
}

func newMemTreatments() *memTreatments {
	return &memTreatments{rows: map[uint64]ports.TreatmentPlan{}}
}

func (m *memTreatments) Add(_ context.Context, plan *ports.TreatmentPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	plan.ID = m.next
	m.rows[plan.ID] = cloneTreatment(*plan)
	return nil
}

func (m *memTreatments) Get(_ context.Context, id uint64) (ports.TreatmentPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return ports.TreatmentPlan{}, ports.ErrTreatmentNotFound
	}
	return cloneTreatment(row), nil
}

func (m *memTreatments) ByPlanID(_ context.Context, planID uint64) (ports.TreatmentPlan, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.PlanID == planID {
			return cloneTreatment(row), true, nil
		}
	}
	return ports.TreatmentPlan{}, false, nil
}

func (m *memTreatments) ListAll(_ context.Context) ([]ports.TreatmentPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ports.TreatmentPlan, 0, len(m.rows))
	for id := uint64(1); id <= m.next; id++ {
		if row, ok := m.rows[id]; ok {
			out = append(out, cloneTreatment(row))
		}
	}
	return out, nil
}

func (m *memTreatments) ListRescindedBetween(_ context.Context, from time.Time, to time.Time) ([]ports.TreatmentPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ports.TreatmentPlan
	for id := uint64(1); id <= m.next; id++ {
		row, ok := m.rows[id]
		if !ok || row.Status != rescission.TreatmentRescindido || row.RescisaoData == nil {
			continue
		}
		if row.RescisaoData.Before(from) || row.RescisaoData.After(to) {
			continue
		}
		out = append(out, cloneTreatment(row))
	}
	return out, nil
}

func (m *memTreatments) Update(_ context.Context, plan ports.TreatmentPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[plan.ID]; !ok {
		return ports.ErrTreatmentNotFound
	}
	m.rows[plan.ID] = cloneTreatment(plan)
	return nil
}

func cloneTreatment(row ports.TreatmentPlan) ports.TreatmentPlan {
	out := row
	out.CNPJs = append([]string{}, row.CNPJs...)
	out.Bases = append([]string{}, row.Bases...)
	out.Etapas = append([]ports.TreatmentStage{}, row.Etapas...)
	out.Notas = map[string]string{}
	for k, v := range row.Notas {
		out.Notas[k] = v
	}
	return out
}

type memOccurrences struct {
	mu   sync.Mutex
	rows []ports.Occurrence
}

func (m *memOccurrences) Add(_ context.Context, occ ports.Occurrence) (ports.Occurrence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	occ.ID = uint64(len(m.rows) + 1)
	m.rows = append(m.rows, occ)
	return occ, nil
}

func (m *memOccurrences) ListAll(_ context.Context) ([]ports.Occurrence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.Occurrence{}, m.rows...), nil
}

func (m *memOccurrences) Paginate(_ context.Context, _ int, _ int) ([]ports.Occurrence, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.Occurrence{}, m.rows...), int64(len(m.rows)), nil
}

func (m *memOccurrences) CountAll(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.rows)), nil
}

type memAuditRepo struct {
	mu   sync.Mutex
	rows []ports.AuditEntry
}

func (m *memAuditRepo) Add(_ context.Context, entry ports.AuditEntry) (ports.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = uint64(len(m.rows) + 1)
	m.rows = append(m.rows, entry)
	return entry, nil
}

func (m *memAuditRepo) Recent(_ context.Context, limit int, contexto string, _ ports.AuditOrder) ([]ports.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ports.AuditEntry
	for i := len(m.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if contexto == "" || m.rows[i].Contexto == contexto {
			out = append(out, m.rows[i])
		}
	}
	return out, nil
}

func (m *memAuditRepo) Range(_ context.Context, _ time.Time, _ time.Time, _ string) ([]ports.AuditEntry, error) {
	return nil, nil
}

// passUow runs the callback without any transaction.
type passUow struct{}

func (passUow) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// stubTreatStrategy is deterministic: zero think time and fixed stage
// outcomes. descartar toggles the stage-5 short-circuit.
type stubTreatStrategy struct {
	descartar bool
}

func (s *stubTreatStrategy) ThinkTime() time.Duration         { return 0 }
func (s *stubTreatStrategy) HouveAproveitamento() bool        { return true }
func (s *stubTreatStrategy) CompetenciasCongruentes() string  { return "01/2024 a 06/2024" }
func (s *stubTreatStrategy) HouveSubstituicao() bool          { return false }
func (s *stubTreatStrategy) GuiasSFG() int                    { return 2 }
func (s *stubTreatStrategy) GuiasFGE() int                    { return 1 }
func (s *stubTreatStrategy) DataSolicitacao() time.Time       { return time.Date(2023, 5, 10, 0, 0, 0, 0, time.UTC) }
func (s *stubTreatStrategy) ParcelasAtraso() string           { return "004           512,33              10/06/2024" }
func (s *stubTreatStrategy) DescartarPlano() bool             { return s.descartar }
func (s *stubTreatStrategy) Comunicacao() (string, string)    { return "CNS", "NSU-12345678" }

type fixture struct {
	svc         *Service
	plans       *memPlans
	treatments  *memTreatments
	occurrences *memOccurrences
	auditRepo   *memAuditRepo
}

func newFixture(t *testing.T, strategy Strategy) fixture {
	t.Helper()
	plans := newMemPlans()
	treatments := newMemTreatments()
	occurrences := &memOccurrences{}
	auditRepo := &memAuditRepo{}
	recorder := audit.NewRecorder(rescission.ContextTratamento, auditRepo)
	faker := simulation.NewFaker(42)
	svc := NewService(plans, treatments, occurrences, passUow{}, recorder, faker, strategy)
	t.Cleanup(svc.Close)
	return fixture{svc: svc, plans: plans, treatments: treatments, occurrences: occurrences, auditRepo: auditRepo}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSeedCreatesTreatmentsWithoutProcessing(t *testing.T) {
	f := newFixture(t, &stubTreatStrategy{})
	ctx := context.Background()

	ids, err := f.svc.Seed(ctx, 2)
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("seeded ids = %d, want 2", len(ids))
	}

	st, err := f.svc.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.Estado != EstadoAguardando {
		t.Fatalf("estado = %q, want aguardando", st.Estado)
	}
	if len(st.Planos) != 2 {
		t.Fatalf("planos = %d, want 2", len(st.Planos))
	}
	for _, plano := range st.Planos {
		if plano.Status != rescission.TreatmentPendente {
			t.Fatalf("treatment status = %q, want pendente", plano.Status)
		}
		if len(plano.Etapas) != len(rescission.TreatmentStages) {
			t.Fatalf("etapas = %d, want %d", len(plano.Etapas), len(rescission.TreatmentStages))
		}
		if !strings.HasPrefix(plano.NumeroPlano, "TP") {
			t.Fatalf("seeded numero = %q", plano.NumeroPlano)
		}
	}
}

func TestTreatmentRunsToRescinded(t *testing.T) {
	f := newFixture(t, &stubTreatStrategy{})
	ctx := context.Background()

	ids, err := f.svc.Seed(ctx, 1)
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	f.svc.Start(ctx)

	waitFor(t, "treatment to rescind", func() bool {
		row, err := f.treatments.Get(ctx, ids[0])
		return err == nil && row.Status == rescission.TreatmentRescindido
	})
	waitFor(t, "estado ocioso", func() bool { return f.svc.Estado() == EstadoOcioso })

	row, _ := f.treatments.Get(ctx, ids[0])
	if row.EtapaAtual != 7 {
		t.Fatalf("etapa_atual = %d, want 7", row.EtapaAtual)
	}
	if row.RescisaoData == nil {
		t.Fatalf("rescisao_data must be set")
	}
	for _, etapa := range row.Etapas {
		if etapa.Status != rescission.StageConcluido {
			t.Fatalf("stage %d status = %q, want concluido", etapa.ID, etapa.Status)
		}
		if etapa.IniciadoEm == "" || etapa.FinalizadoEm == "" {
			t.Fatalf("stage %d missing timestamps", etapa.ID)
		}
	}

	for _, key := range []string{
		"E213_APROVEITAMENTO_RECOLHIMENTOS",
		"E206_SUBSTITUICAO_CONFISSAO_NOTIFICACAO",
		"PESQUISA_GUIAS_SFG",
		"LANCAMENTO_GUIAS_FGE",
		"E544_DATA_SOLICITACAO",
		"E50H_PARCELAS_ATRASO",
		"E554_DATA_RESCISAO_FGE",
		"E554_DATA_COMUNICACAO",
		"E554_METODO_COMUNICACAO",
		"E554_NSU_OU_EMAIL",
		"E554_NOME_DOSSIE",
		"E554_DATA_FINALIZACAO_SIREP",
	} {
		if _, ok := row.Notas[key]; !ok {
			t.Fatalf("nota %q missing", key)
		}
	}

	plan, err := f.plans.GetByNumero(ctx, row.NumeroPlano)
	if err != nil {
		t.Fatalf("plan missing: %v", err)
	}
	if plan.Status != string(rescission.StatusRescindido) {
		t.Fatalf("plan status = %q, want rescindido", plan.Status)
	}
	if plan.SituacaoAtual != rescission.SituacaoRescindido {
		t.Fatalf("plan situacao = %q", plan.SituacaoAtual)
	}
	if plan.DataRescisao == nil || plan.DataComunicacao == nil {
		t.Fatalf("plan rescission/communication dates must be set")
	}
	if plan.MetodoComunicacao != "CNS" || plan.ReferenciaComunicacao != "NSU-12345678" {
		t.Fatalf("communication = %q/%q", plan.MetodoComunicacao, plan.ReferenciaComunicacao)
	}
}

func TestStageFiveDiscardShortCircuits(t *testing.T) {
	f := newFixture(t, &stubTreatStrategy{descartar: true})
	ctx := context.Background()

	ids, err := f.svc.Seed(ctx, 1)
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	f.svc.Start(ctx)

	waitFor(t, "treatment discard", func() bool {
		row, err := f.treatments.Get(ctx, ids[0])
		return err == nil && row.Status == rescission.TreatmentDescartado
	})

	row, _ := f.treatments.Get(ctx, ids[0])
	for _, etapa := range row.Etapas {
		switch {
		case etapa.ID <= 5:
			if etapa.Status != rescission.StageConcluido {
				t.Fatalf("stage %d status = %q, want concluido", etapa.ID, etapa.Status)
			}
		default:
			if etapa.Status != rescission.StageCancelado {
				t.Fatalf("stage %d status = %q, want cancelado", etapa.ID, etapa.Status)
			}
			if etapa.Mensagem != "Etapa não executada por descarte" {
				t.Fatalf("cancel message = %q", etapa.Mensagem)
			}
		}
	}

	plan, err := f.plans.GetByNumero(ctx, row.NumeroPlano)
	if err != nil {
		t.Fatalf("plan missing: %v", err)
	}
	if plan.Status == string(rescission.StatusRescindido) {
		t.Fatalf("discarded plan must not be rescinded")
	}
}

func TestMigrateInheritsTerminalStatuses(t *testing.T) {
	f := newFixture(t, &stubTreatStrategy{})
	ctx := context.Background()
	hoje := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	seedPlan := func(numero, situacao, status string, apply func(*ports.Plan)) {
		_, err := f.plans.Upsert(ctx, numero, func(p *ports.Plan) {
			p.SituacaoAtual = situacao
			p.Status = status
			p.RazaoSocial = "EMPRESA " + numero
			if apply != nil {
				apply(p)
			}
		})
		if err != nil {
			t.Fatalf("seed plan %s: %v", numero, err)
		}
	}
	seedPlan("PEND001", "P.RESC.", string(rescission.StatusPassivelResc), nil)
	seedPlan("RESC001", "RESCINDIDO", string(rescission.StatusRescindido), func(p *ports.Plan) {
		p.DataRescisao = &hoje
	})
	seedPlan("LIQ001", "LIQUIDADO", string(rescission.StatusLiquidado), nil)
	seedPlan("GRDE001", "GRDE Emitida", string(rescission.StatusNaoRescindido), nil)
	seedPlan("ESP001", "Sit especial", string(rescission.StatusEspecial), nil)

	ids, err := f.svc.Migrate(ctx)
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if len(ids) != 5 {
		t.Fatalf("criados = %d, want 5", len(ids))
	}

	rows, _ := f.treatments.ListAll(ctx)
	byNumero := map[string]ports.TreatmentPlan{}
	for _, row := range rows {
		byNumero[row.NumeroPlano] = row
	}

	if got := byNumero["PEND001"].Status; got != rescission.TreatmentPendente {
		t.Fatalf("PEND001 status = %q", got)
	}
	resc := byNumero["RESC001"]
	if resc.Status != rescission.TreatmentRescindido {
		t.Fatalf("RESC001 status = %q", resc.Status)
	}
	if resc.RescisaoData == nil || !resc.RescisaoData.Equal(hoje) {
		t.Fatalf("RESC001 rescisao_data = %v", resc.RescisaoData)
	}
	if got := byNumero["LIQ001"].Status; got != string(rescission.StatusLiquidado) {
		t.Fatalf("LIQ001 status = %q", got)
	}
	if got := byNumero["GRDE001"].Status; got != string(rescission.StatusNaoRescindido) {
		t.Fatalf("GRDE001 status = %q", got)
	}
	if got := byNumero["ESP001"].Status; got != string(rescission.StatusEspecial) {
		t.Fatalf("ESP001 status = %q", got)
	}

	st, err := f.svc.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if len(st.Fila) != 1 || st.Fila[0] != byNumero["PEND001"].ID {
		t.Fatalf("fila = %v, want only PEND001", st.Fila)
	}
}

func TestMigrateTwiceCreatesSingleTreatmentPerPlan(t *testing.T) {
	f := newFixture(t, &stubTreatStrategy{})
	ctx := context.Background()

	if _, err := f.plans.Upsert(ctx, "PEND001", func(p *ports.Plan) {
		p.SituacaoAtual = "P.RESC."
		p.Status = string(rescission.StatusPassivelResc)
		p.RazaoSocial = "EMPRESA PEND001"
	}); err != nil {
		t.Fatalf("seed plan: %v", err)
	}

	first, err := f.svc.Migrate(ctx)
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("first Migrate() criados = %d, want 1", len(first))
	}

	second, err := f.svc.Migrate(ctx)
	if err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("second Migrate() criados = %d, want 0", len(second))
	}

	rows, _ := f.treatments.ListAll(ctx)
	if len(rows) != 1 {
		t.Fatalf("treatments = %d, want exactly 1 per plan", len(rows))
	}
	if rows[0].ID != first[0] {
		t.Fatalf("surviving treatment id = %d, want %d", rows[0].ID, first[0])
	}

	st, err := f.svc.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if len(st.Fila) != 1 || st.Fila[0] != first[0] {
		t.Fatalf("fila = %v, want the single treatment queued once", st.Fila)
	}
}

func TestMigrateMaterializesPlansFromOccurrences(t *testing.T) {
	f := newFixture(t, &stubTreatStrategy{})
	ctx := context.Background()
	hoje := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	if _, err := f.occurrences.Add(ctx, ports.Occurrence{
		NumeroPlano:     "OCOR001",
		Situacao:        "RESCINDIDO",
		CNPJ:            "12.345.678/0001-90",
		Tipo:            "ADM",
		Saldo:           1234.56,
		DtSituacaoAtual: &hoje,
	}); err != nil {
		t.Fatalf("seed occurrence: %v", err)
	}

	ids, err := f.svc.Migrate(ctx)
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("criados = %d, want 1", len(ids))
	}

	plan, err := f.plans.GetByNumero(ctx, "OCOR001")
	if err != nil {
		t.Fatalf("materialized plan missing: %v", err)
	}
	if plan.Status != string(rescission.StatusRescindido) {
		t.Fatalf("plan status = %q, want rescindido", plan.Status)
	}
	if plan.NumeroInscricao != "12345678000190" {
		t.Fatalf("numero_inscricao = %q", plan.NumeroInscricao)
	}
	if plan.Representacao != "12.345.678/0001-90" {
		t.Fatalf("representacao = %q", plan.Representacao)
	}

	row, _ := f.treatments.Get(ctx, ids[0])
	if row.Status != rescission.TreatmentRescindido {
		t.Fatalf("treatment status = %q, want rescindido", row.Status)
	}

	st, _ := f.svc.Status(ctx)
	if len(st.Fila) != 0 {
		t.Fatalf("rescinded plan must not enqueue, fila = %v", st.Fila)
	}
}

func TestStatusRestoresPersistedQueueAsPaused(t *testing.T) {
	f := newFixture(t, &stubTreatStrategy{})
	ctx := context.Background()

	// Rows persisted by a previous process: one stuck mid-flight, one
	// never started.
	pend := &ports.TreatmentPlan{
		PlanID: 1, NumeroPlano: "REST002", Status: rescission.TreatmentPendente,
		Notas: map[string]string{},
	}
	proc := &ports.TreatmentPlan{
		PlanID: 2, NumeroPlano: "REST001", Status: rescission.TreatmentProcessando,
		Notas: map[string]string{},
	}
	if err := f.treatments.Add(ctx, pend); err != nil {
		t.Fatalf("seed pendente: %v", err)
	}
	if err := f.treatments.Add(ctx, proc); err != nil {
		t.Fatalf("seed processando: %v", err)
	}

	st, err := f.svc.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.Estado != EstadoPausado {
		t.Fatalf("estado = %q, want pausado after restore", st.Estado)
	}
	if len(st.Fila) != 2 || st.Fila[0] != proc.ID || st.Fila[1] != pend.ID {
		t.Fatalf("fila = %v, want processando-first [%d %d]", st.Fila, proc.ID, pend.ID)
	}
}

func TestResumeAfterRestoreDrainsQueue(t *testing.T) {
	f := newFixture(t, &stubTreatStrategy{})
	ctx := context.Background()

	row := &ports.TreatmentPlan{
		PlanID:      1,
		NumeroPlano: "REST001",
		RazaoSocial: "EMPRESA RESTAURA LTDA",
		Status:      rescission.TreatmentPendente,
		CNPJs:       []string{"12.345.678/0001-90"},
		Bases:       []string{"RJ"},
		Notas:       map[string]string{},
	}
	if err := f.treatments.Add(ctx, row); err != nil {
		t.Fatalf("seed treatment: %v", err)
	}

	f.svc.Resume(ctx)

	waitFor(t, "restored treatment to finish", func() bool {
		got, err := f.treatments.Get(ctx, row.ID)
		if err != nil {
			return false
		}
		return got.Status == rescission.TreatmentRescindido || got.Status == rescission.TreatmentDescartado
	})
	waitFor(t, "estado ocioso", func() bool { return f.svc.Estado() == EstadoOcioso })
}

func TestPauseHoldsWorkerBetweenStages(t *testing.T) {
	f := newFixture(t, &stubTreatStrategy{})
	ctx := context.Background()

	ids, err := f.svc.Seed(ctx, 1)
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	f.svc.Pause(ctx)
	if got := f.svc.Estado(); got != EstadoPausado {
		t.Fatalf("estado = %q, want pausado", got)
	}

	// Paused before Start: the worker must not touch the row.
	time.Sleep(50 * time.Millisecond)
	row, _ := f.treatments.Get(ctx, ids[0])
	if row.Status != rescission.TreatmentPendente {
		t.Fatalf("paused treatment status = %q, want pendente", row.Status)
	}

	f.svc.Resume(ctx)
	waitFor(t, "resumed treatment to finish", func() bool {
		got, err := f.treatments.Get(ctx, ids[0])
		return err == nil && got.Status == rescission.TreatmentRescindido
	})
}

func TestRescindedInscriptions(t *testing.T) {
	f := newFixture(t, &stubTreatStrategy{})
	ctx := context.Background()
	hoje := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	row := &ports.TreatmentPlan{
		PlanID:       1,
		NumeroPlano:  "900001",
		Status:       rescission.TreatmentRescindido,
		CNPJs:        []string{"12.345.678/0001-90", "98.765.432/0001-09", "12.345.678/0001-90"},
		Notas:        map[string]string{},
		RescisaoData: &hoje,
	}
	if err := f.treatments.Add(ctx, row); err != nil {
		t.Fatalf("seed treatment: %v", err)
	}

	inscricoes, err := f.svc.RescindedInscriptions(ctx, hoje, hoje)
	if err != nil {
		t.Fatalf("RescindedInscriptions() error = %v", err)
	}
	want := []string{"12345678000190", "98765432000109"}
	if len(inscricoes) != len(want) {
		t.Fatalf("inscricoes = %v, want %v", inscricoes, want)
	}
	for i := range want {
		if inscricoes[i] != want[i] {
			t.Fatalf("inscricoes = %v, want %v", inscricoes, want)
		}
	}

	if _, err := f.svc.RescindedInscriptions(ctx, hoje, hoje.AddDate(0, 0, -1)); err != ErrInvalidRange {
		t.Fatalf("inverted range error = %v, want ErrInvalidRange", err)
	}
}

func TestStatusPorSituacao(t *testing.T) {
	cases := []struct {
		situacao string
		want     rescission.PlanStatus
	}{
		{"P.RESC.", rescission.StatusPassivelResc},
		{"PRESC", rescission.StatusPassivelResc},
		{"Sit especial", rescission.StatusEspecial},
		{"LIQUIDADO", rescission.StatusLiquidado},
		{"GRDE Emitida", rescission.StatusNaoRescindido},
		{"RESCINDIDO", rescission.StatusRescindido},
		{"", rescission.StatusPassivelResc},
		{"algo desconhecido", rescission.StatusPassivelResc},
	}
	for _, tc := range cases {
		if got := statusPorSituacao(tc.situacao); got != tc.want {
			t.Fatalf("statusPorSituacao(%q) = %q, want %q", tc.situacao, got, tc.want)
		}
	}
}

func TestRenderNotepad(t *testing.T) {
	notas := map[string]string{
		"PLANO":                "TP123456",
		"CNPJ_CEI":             "12.345.678/0001-90",
		"RAZAO_SOCIAL":         "EMPRESA ALFA LTDA",
		"E544_TIPO":            "ADM",
		"E544_PERIODO":         "01/2020 a 12/2020",
		"E544_CNPJS":           "12.345.678/0001-90",
		"E398_BASES":           "RJ\nSP",
		"E50H_PARCELAS_ATRASO": "004           512,33              10/06/2024",
	}
	txt := RenderNotepad(notas)

	for _, want := range []string{
		"DEPURAÇÃO PARCELAMENTO PASSÍVEL DE RESCISÃO",
		"PLANO: TP123456",
		"RAZÃO SOCIAL: EMPRESA ALFA LTDA",
		"TIPO: ADM",
		"004           512,33              10/06/2024",
		"RJ\nSP",
		"NOME DO DOSSIÊ: ",
	} {
		if !strings.Contains(txt, want) {
			t.Fatalf("notepad missing %q:\n%s", want, txt)
		}
	}
	if !strings.HasSuffix(txt, "\n") {
		t.Fatalf("notepad must end with newline")
	}
	if strings.Contains(txt, "BASES: RJ") {
		t.Fatalf("multi-line bases must not render inline")
	}
}

func TestRenderNotepadEmptyNotes(t *testing.T) {
	txt := RenderNotepad(nil)
	if !strings.Contains(txt, "PLANO: \n") {
		t.Fatalf("empty notes must keep labeled lines:\n%s", txt)
	}
}
