// Package treatment implements the rescission treatment pipeline: a
// FIFO queue of treatment records walked through seven fixed compliance
// stages, producing the dossier notes and mutating the owning plan on
// rescission.
package treatment

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"sirep/internal/audit"
	"sirep/internal/bootstrap/logging"
	"sirep/internal/domain/rescission"
	"sirep/internal/errs"
	"sirep/internal/ports"
	"sirep/internal/runloop"
	"sirep/internal/simulation"
)

type Estado string

const (
	EstadoOcioso      Estado = "ocioso"
	EstadoAguardando  Estado = "aguardando"
	EstadoProcessando Estado = "processando"
	EstadoPausado     Estado = "pausado"
)

const queueCapacity = 1024

// PlanoStatus is one treatment record in the status payload, enriched
// with fields from the owning plan.
type PlanoStatus struct {
	ID              uint64                 `json:"id"`
	PlanID          uint64                 `json:"plan_id"`
	NumeroPlano     string                 `json:"numero_plano"`
	RazaoSocial     string                 `json:"razao_social"`
	Status          string                 `json:"status"`
	EtapaAtual      int                    `json:"etapa_atual"`
	Periodo         string                 `json:"periodo"`
	CNPJs           []string               `json:"cnpjs"`
	Bases           []string               `json:"bases"`
	RescisaoData    string                 `json:"rescisao_data,omitempty"`
	Tipo            string                 `json:"tipo,omitempty"`
	SituacaoAtual   string                 `json:"situacao_atual,omitempty"`
	DtSituacaoAtual string                 `json:"dt_situacao_atual,omitempty"`
	Saldo           float64                `json:"saldo,omitempty"`
	CNPJ            string                 `json:"cnpj,omitempty"`
	Etapas          []ports.TreatmentStage `json:"etapas"`
}

// LogStatus is one audit line in the status payload.
type LogStatus struct {
	ID          uint64 `json:"id"`
	TreatmentID uint64 `json:"treatment_id,omitempty"`
	NumeroPlano string `json:"numero_plano,omitempty"`
	Etapa       int    `json:"etapa,omitempty"`
	EtapaNome   string `json:"etapa_nome,omitempty"`
	Status      string `json:"status"`
	Mensagem    string `json:"mensagem"`
	CreatedAt   string `json:"created_at,omitempty"`
	Contexto    string `json:"contexto"`
}

// Status is the public snapshot of the treatment pipeline.
type Status struct {
	Estado Estado        `json:"estado"`
	Atual  uint64        `json:"atual,omitempty"`
	Fila   []uint64      `json:"fila"`
	Planos []PlanoStatus `json:"planos"`
	Logs   []LogStatus   `json:"logs"`
}

// Service drives the treatment queue. A single worker goroutine
// consumes treatment ids in FIFO order; the pause gate holds it between
// stages.
type Service struct {
	plans      ports.PlanRepository
	treatments ports.TreatmentRepository
	occurrence ports.OccurrenceRepository
	uow        ports.UnitOfWork
	recorder   *audit.Recorder
	faker      *simulation.Faker
	strategy   Strategy

	queue chan uint64
	gate  *runloop.Gate

	mu                sync.Mutex
	shadow            []uint64
	currentID         uint64
	hasCurrent        bool
	estadoBase        Estado
	processingEnabled bool
	workerStarted     bool
	workerCtx         context.Context
	workerCancel      context.CancelFunc
}

func NewService(
	plans ports.PlanRepository,
	treatments ports.TreatmentRepository,
	occurrence ports.OccurrenceRepository,
	uow ports.UnitOfWork,
	recorder *audit.Recorder,
	faker *simulation.Faker,
	strategy Strategy,
) *Service {
	return &Service{
		plans:      plans,
		treatments: treatments,
		occurrence: occurrence,
		uow:        uow,
		recorder:   recorder,
		faker:      faker,
		strategy:   strategy,
		queue:      make(chan uint64, queueCapacity),
		gate:       runloop.NewGate(false),
		estadoBase: EstadoOcioso,
	}
}

// Close stops the worker. Queued items stay persisted as pendente and
// are restored on the next resume.
func (s *Service) Close() {
	s.mu.Lock()
	cancel := s.workerCancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.gate.Set()
}

// Estado derives the public state: an explicit pause wins, then a plan
// being processed, then a waiting queue.
func (s *Service) Estado() Estado {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.estadoLocked()
}

func (s *Service) estadoLocked() Estado {
	if s.estadoBase == EstadoPausado {
		return EstadoPausado
	}
	if s.hasCurrent {
		return EstadoProcessando
	}
	if len(s.shadow) > 0 {
		return EstadoAguardando
	}
	return s.estadoBase
}

// Seed creates synthetic plan/treatment pairs and enqueues them. The
// queue only moves once Start enables processing.
func (s *Service) Seed(ctx context.Context, quantidade int) ([]uint64, error) {
	if quantidade <= 0 {
		quantidade = 3
	}

	var created []uint64
	err := s.uow.WithTx(ctx, func(ctx context.Context) error {
		for i := 0; i < quantidade; i++ {
			numero, err := s.gerarNumeroPlano(ctx)
			if err != nil {
				return err
			}

			razao := s.faker.RazaoSocial()
			periodo := s.faker.Periodo()
			cnpjs := s.faker.CNPJs()
			bases := s.faker.Bases()
			tipo := s.faker.TipoParcelamento()
			principal := cnpjs[0]
			dtSituacao := time.Now().UTC().AddDate(0, 0, -s.faker.IntBetween(10, 90))
			gifugs := []string{"RJ", "SP", "MG", "BA", "RS"}
			resolucoes := []string{"123/45", "987/65", "321/09"}

			plan, err := s.plans.Upsert(ctx, numero, func(p *ports.Plan) {
				p.Gifug = gifugs[s.faker.IntBetween(0, len(gifugs)-1)]
				p.SituacaoAtual = "P.RESC."
				p.SituacaoAnterior = "P.RESC."
				p.DiasEmAtraso = s.faker.IntBetween(30, 180)
				p.Tipo = tipo
				p.DtSituacaoAtual = &dtSituacao
				p.Saldo = float64(s.faker.IntBetween(5_000, 60_000))
				p.Status = string(rescission.StatusPassivelResc)
				p.RazaoSocial = razao
				p.Representacao = principal
				p.NumeroInscricao = principal
				dtProposta := time.Now().UTC().AddDate(0, 0, -s.faker.IntBetween(30, 180))
				p.DtProposta = &dtProposta
				p.Resolucao = resolucoes[s.faker.IntBetween(0, len(resolucoes)-1)]
			})
			if err != nil {
				return errs.Wrap(err, "seed plan")
			}

			notas := map[string]string{
				"PLANO":        numero,
				"CNPJ_CEI":     strings.Join(cnpjs, ", "),
				"RAZAO_SOCIAL": razao,
				"E544_TIPO":    tipo,
				"E544_PERIODO": periodo,
				"E544_CNPJS":   strings.Join(cnpjs, "\n"),
				"E398_BASES":   strings.Join(bases, "\n"),
			}

			treatment, err := s.criarTratamento(ctx, plan, razao, periodo, cnpjs, bases, notas)
			if err != nil {
				return err
			}
			created = append(created, treatment.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.ensureWorker()
	for _, id := range created {
		s.enqueue(id)
	}
	return created, nil
}

func (s *Service) gerarNumeroPlano(ctx context.Context) (string, error) {
	for {
		numero := fmt.Sprintf("TP%06d", s.faker.IntBetween(100000, 999999))
		_, err := s.plans.GetByNumero(ctx, numero)
		if err == ports.ErrPlanNotFound {
			return numero, nil
		}
		if err != nil {
			return "", errs.Wrap(err, "check seed plan number")
		}
	}
}

func (s *Service) criarTratamento(
	ctx context.Context,
	plan ports.Plan,
	razao string,
	periodo string,
	cnpjs []string,
	bases []string,
	notas map[string]string,
) (*ports.TreatmentPlan, error) {
	etapas := make([]ports.TreatmentStage, 0, len(rescission.TreatmentStages))
	for _, stage := range rescission.TreatmentStages {
		etapas = append(etapas, ports.TreatmentStage{
			ID:     stage.ID,
			Nome:   stage.Name,
			Status: rescission.StagePendente,
		})
	}

	treatment := &ports.TreatmentPlan{
		PlanID:      plan.ID,
		NumeroPlano: plan.NumeroPlano,
		RazaoSocial: razao,
		Status:      rescission.TreatmentPendente,
		EtapaAtual:  0,
		Periodo:     periodo,
		CNPJs:       cnpjs,
		Bases:       bases,
		Notas:       notas,
		Etapas:      etapas,
	}
	if err := s.treatments.Add(ctx, treatment); err != nil {
		return nil, errs.Wrap(err, "create treatment")
	}
	return treatment, nil
}

// Migrate materializes plans from orphan occurrences and creates one
// treatment per plan that lacks one. Only actionable statuses enqueue;
// terminal statuses pass through onto the treatment record.
func (s *Service) Migrate(ctx context.Context) ([]uint64, error) {
	var created []uint64
	var toQueue []uint64

	err := s.uow.WithTx(ctx, func(ctx context.Context) error {
		if err := s.materializarOcorrencias(ctx); err != nil {
			return err
		}

		planos, err := s.plans.ListAll(ctx)
		if err != nil {
			return errs.Wrap(err, "list plans for migration")
		}

		for _, plan := range planos {
			if _, exists, err := s.treatments.ByPlanID(ctx, plan.ID); err != nil {
				return err
			} else if exists {
				continue
			}

			razao := plan.RazaoSocial
			if razao == "" {
				razao = s.faker.RazaoSocial()
			}
			periodo := s.faker.Periodo()
			cnpjs := s.faker.CNPJs()
			bases := s.faker.Bases()
			tipo := plan.Tipo
			if tipo == "" {
				tipo = s.faker.TipoParcelamento()
			}

			if plan.RazaoSocial == "" || plan.Tipo == "" || (plan.Representacao == "" && len(cnpjs) > 0) {
				plan, err = s.plans.Upsert(ctx, plan.NumeroPlano, func(p *ports.Plan) {
					if p.RazaoSocial == "" {
						p.RazaoSocial = razao
					}
					if p.Tipo == "" {
						p.Tipo = tipo
					}
					if p.Representacao == "" && len(cnpjs) > 0 {
						p.Representacao = cnpjs[0]
					}
				})
				if err != nil {
					return errs.Wrap(err, "backfill plan for migration")
				}
			}

			notas := map[string]string{
				"PLANO":        plan.NumeroPlano,
				"CNPJ_CEI":     strings.Join(cnpjs, ", "),
				"RAZAO_SOCIAL": razao,
				"E544_TIPO":    tipo,
				"E544_PERIODO": periodo,
				"E544_CNPJS":   strings.Join(cnpjs, "\n"),
				"E398_BASES":   strings.Join(bases, "\n"),
			}

			treatment, err := s.criarTratamento(ctx, plan, razao, periodo, cnpjs, bases, notas)
			if err != nil {
				return err
			}

			status, recognized := rescission.ParsePlanStatus(plan.Status)
			shouldQueue := recognized && status.Actionable()

			changed := false
			switch {
			case status == rescission.StatusRescindido:
				treatment.Status = rescission.TreatmentRescindido
				if plan.DataRescisao != nil {
					treatment.RescisaoData = plan.DataRescisao
				}
				changed = true
			case status == rescission.StatusLiquidado,
				status == rescission.StatusNaoRescindido,
				status == rescission.StatusEspecial:
				treatment.Status = plan.Status
				changed = true
			case !shouldQueue && plan.Status != "":
				treatment.Status = plan.Status
				changed = true
			}
			if plan.DataRescisao != nil && treatment.RescisaoData == nil {
				treatment.RescisaoData = plan.DataRescisao
				changed = true
			}
			if changed {
				if err := s.treatments.Update(ctx, *treatment); err != nil {
					return errs.Wrap(err, "apply migrated status")
				}
			}

			created = append(created, treatment.ID)
			if shouldQueue {
				toQueue = append(toQueue, treatment.ID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(toQueue) > 0 {
		s.ensureWorker()
		for _, id := range toQueue {
			s.enqueue(id)
		}
	}
	return created, nil
}

// materializarOcorrencias creates plans for discard occurrences whose
// plan number is otherwise unknown, inferring the status from the
// situation text.
func (s *Service) materializarOcorrencias(ctx context.Context) error {
	ocorrencias, err := s.occurrence.ListAll(ctx)
	if err != nil {
		return errs.Wrap(err, "list occurrences for migration")
	}

	for _, occ := range ocorrencias {
		numero := strings.TrimSpace(occ.NumeroPlano)
		if numero == "" {
			continue
		}
		if _, err := s.plans.GetByNumero(ctx, numero); err == nil {
			continue
		} else if err != ports.ErrPlanNotFound {
			return errs.Wrap(err, "check plan for occurrence")
		}

		occ := occ
		if _, err := s.plans.Upsert(ctx, numero, func(p *ports.Plan) {
			situacao := strings.TrimSpace(occ.Situacao)
			if situacao != "" {
				p.SituacaoAtual = situacao
				p.Status = string(statusPorSituacao(situacao))
			}
			if occ.Tipo != "" {
				p.Tipo = occ.Tipo
			}
			if occ.Saldo != 0 {
				p.Saldo = occ.Saldo
			}
			if occ.DtSituacaoAtual != nil {
				p.DtSituacaoAtual = occ.DtSituacaoAtual
			}
			representacao := strings.TrimSpace(occ.CNPJ)
			if representacao != "" {
				p.Representacao = representacao
			}
			if digits := onlyDigits(representacao); digits != "" {
				p.NumeroInscricao = digits
			}
		}); err != nil {
			return errs.Wrap(err, "materialize plan from occurrence")
		}
	}
	return nil
}

// statusPorSituacao infers a plan status from free-form situation text.
func statusPorSituacao(situacao string) rescission.PlanStatus {
	texto := strings.ToUpper(strings.TrimSpace(situacao))
	switch {
	case texto == "":
		return rescission.StatusPassivelResc
	case strings.HasPrefix(texto, "P.RESC"), strings.HasPrefix(texto, "PRESC"), strings.HasPrefix(texto, "P. RESC"):
		return rescission.StatusPassivelResc
	case strings.Contains(texto, "ESPECIAL"):
		return rescission.StatusEspecial
	case strings.Contains(texto, "LIQ"):
		return rescission.StatusLiquidado
	case strings.Contains(texto, "GRDE"):
		return rescission.StatusNaoRescindido
	case strings.HasPrefix(texto, "RESC"):
		return rescission.StatusRescindido
	default:
		return rescission.StatusPassivelResc
	}
}

var digitsOnlyRE = regexp.MustCompile(`\D`)

func onlyDigits(raw string) string {
	return digitsOnlyRE.ReplaceAllString(raw, "")
}

// Start enables processing and wakes the worker.
func (s *Service) Start(ctx context.Context) {
	s.ensureWorker()
	s.mu.Lock()
	s.processingEnabled = true
	if s.estadoBase == EstadoPausado {
		s.estadoBase = EstadoOcioso
	}
	s.mu.Unlock()
	s.gate.Set()
	logging.Info(ctx, "tratamento iniciado", slog.String("estado", string(s.Estado())))
}

// Pause holds the worker at the next stage boundary and records the
// pause against the in-flight treatment.
func (s *Service) Pause(ctx context.Context) {
	s.mu.Lock()
	estado := s.estadoLocked()
	if estado != EstadoProcessando && estado != EstadoAguardando {
		s.mu.Unlock()
		return
	}
	s.processingEnabled = false
	s.estadoBase = EstadoPausado
	currentID, hasCurrent := s.currentID, s.hasCurrent
	s.mu.Unlock()

	s.gate.Clear()
	s.registrarTransicao(ctx, currentID, hasCurrent, rescission.AuditPausado, "pausada", "Fila de tratamento pausada.")
	logging.Info(ctx, "tratamento pausado")
}

// Resume restores the persisted queue and releases the gate.
func (s *Service) Resume(ctx context.Context) {
	s.restorePendingQueue(ctx, nil)

	s.mu.Lock()
	if s.estadoBase != EstadoPausado {
		s.mu.Unlock()
		return
	}
	s.processingEnabled = true
	s.estadoBase = EstadoOcioso
	currentID, hasCurrent := s.currentID, s.hasCurrent
	s.mu.Unlock()

	s.ensureWorker()
	s.gate.Set()
	s.registrarTransicao(ctx, currentID, hasCurrent, rescission.AuditRetomado, "retomada", "Fila de tratamento retomada.")
	logging.Info(ctx, "tratamento retomado")
}

func (s *Service) registrarTransicao(ctx context.Context, currentID uint64, hasCurrent bool, status string, acao string, mensagemFila string) {
	entry := ports.AuditEntry{Status: status, Mensagem: mensagemFila}
	if hasCurrent {
		if treatment, err := s.treatments.Get(ctx, currentID); err == nil && treatment.EtapaAtual > 0 {
			etapa := treatment.EtapaAtual
			entry.TreatmentID = &treatment.ID
			entry.NumeroPlano = treatment.NumeroPlano
			entry.EtapaNumero = &etapa
			entry.EtapaNome = rescission.StageLabel(etapa)
			entry.Mensagem = fmt.Sprintf("Etapa %d %s", etapa, acao)
		}
	}
	s.recorder.Record(ctx, entry)
}

func (s *Service) ensureWorker() {
	s.mu.Lock()
	if s.workerStarted {
		s.mu.Unlock()
		return
	}
	s.workerStarted = true
	ctx, cancel := context.WithCancel(context.Background())
	s.workerCtx = ctx
	s.workerCancel = cancel
	s.mu.Unlock()

	go s.worker(ctx)
}

func (s *Service) enqueue(id uint64) {
	select {
	case s.queue <- id:
		s.mu.Lock()
		s.shadow = append(s.shadow, id)
		s.mu.Unlock()
	default:
		logging.Warn(context.Background(), "fila de tratamento cheia", slog.Uint64("treatment_id", id))
	}
}

// worker consumes the queue one treatment at a time.
func (s *Service) worker(ctx context.Context) {
	for {
		var id uint64
		select {
		case <-ctx.Done():
			return
		case id = <-s.queue:
		}

		if err := s.gate.Wait(ctx); err != nil {
			return
		}

		s.mu.Lock()
		s.shadow = removeID(s.shadow, id)
		s.currentID = id
		s.hasCurrent = true
		s.mu.Unlock()

		if err := s.processPlan(ctx, id); err != nil && ctx.Err() == nil {
			logging.Error(ctx, "falha ao processar tratamento",
				slog.Uint64("treatment_id", id), slog.Any("err", errs.Loggable(errs.WithStack(err))))
		}

		s.mu.Lock()
		s.hasCurrent = false
		s.currentID = 0
		if len(s.shadow) == 0 {
			if s.estadoBase != EstadoPausado {
				s.estadoBase = EstadoOcioso
			}
			s.processingEnabled = false
		}
		clearGate := len(s.shadow) == 0
		s.mu.Unlock()

		if clearGate {
			s.gate.Clear()
		}
	}
}

func removeID(ids []uint64, id uint64) []uint64 {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// restorePendingQueue re-enqueues persisted work after a restart:
// records stuck in processando first, then pendente, in stored order.
func (s *Service) restorePendingQueue(ctx context.Context, planos []ports.TreatmentPlan) {
	if planos == nil {
		var err error
		planos, err = s.treatments.ListAll(ctx)
		if err != nil {
			logging.Warn(ctx, "falha ao restaurar fila de tratamento", slog.String("error", err.Error()))
			return
		}
	}

	pending := pendingIDs(planos)
	if len(pending) == 0 {
		return
	}

	s.mu.Lock()
	existing := map[uint64]bool{}
	for _, id := range s.shadow {
		existing[id] = true
	}
	if s.hasCurrent {
		existing[s.currentID] = true
	}
	var added bool
	s.mu.Unlock()

	for _, id := range pending {
		if existing[id] {
			continue
		}
		existing[id] = true
		s.enqueue(id)
		added = true
	}

	if added {
		s.mu.Lock()
		if !s.processingEnabled {
			s.estadoBase = EstadoPausado
		}
		s.mu.Unlock()
	}
}

// pendingIDs orders restorable work: processando first, then pendente,
// deduplicated preserving order.
func pendingIDs(planos []ports.TreatmentPlan) []uint64 {
	var ordem []uint64
	for _, plano := range planos {
		if plano.Status == rescission.TreatmentProcessando {
			ordem = append(ordem, plano.ID)
		}
	}
	for _, plano := range planos {
		if plano.Status == rescission.TreatmentPendente {
			ordem = append(ordem, plano.ID)
		}
	}
	seen := map[uint64]bool{}
	out := ordem[:0]
	for _, id := range ordem {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// processPlan walks one treatment through the stage sequence.
func (s *Service) processPlan(ctx context.Context, id uint64) error {
	treatment, err := s.treatments.Get(ctx, id)
	if err != nil {
		if err == ports.ErrTreatmentNotFound {
			logging.Warn(ctx, "tratamento não encontrado", slog.Uint64("treatment_id", id))
			return nil
		}
		return err
	}

	treatment.Status = rescission.TreatmentProcessando
	if err := s.treatments.Update(ctx, treatment); err != nil {
		return err
	}

	for _, stage := range rescission.TreatmentStages {
		current := buscarStage(&treatment, stage.ID)
		if current.Status == rescission.StageConcluido || current.Status == rescission.StageCancelado {
			continue
		}

		if err := s.gate.Wait(ctx); err != nil {
			return err
		}
		s.marcarInicio(&treatment, stage.ID)
		s.registrarEtapa(ctx, &treatment, stage.ID, rescission.AuditInicio, "Iniciada "+stage.Name)
		if err := s.treatments.Update(ctx, treatment); err != nil {
			return err
		}

		if err := runloop.SleepWithPause(ctx, s.strategy.ThinkTime(), s.gate); err != nil {
			return err
		}
		if err := s.gate.Wait(ctx); err != nil {
			return err
		}

		descartado, err := s.executarEtapa(ctx, &treatment, stage)
		if err != nil {
			return err
		}
		if err := s.treatments.Update(ctx, treatment); err != nil {
			return err
		}
		if descartado {
			break
		}
	}

	final, err := s.treatments.Get(ctx, id)
	if err != nil {
		return err
	}
	if final.Status != rescission.TreatmentRescindido && final.Status != rescission.TreatmentDescartado {
		final.Status = rescission.TreatmentRescindido
		final.EtapaAtual = 7
		s.marcarConclusao(&final, 7, "Comunicação concluída")
		if err := s.treatments.Update(ctx, final); err != nil {
			return err
		}
	}
	return nil
}

// executarEtapa runs the business logic of one stage. Returns true when
// stage 5 discarded the plan.
func (s *Service) executarEtapa(ctx context.Context, treatment *ports.TreatmentPlan, stage rescission.Stage) (bool, error) {
	var mensagem string
	switch stage.ID {
	case 1:
		s.etapa1(treatment)
		mensagem = "Dados de aproveitamento registrados"
	case 2:
		s.etapa2(treatment)
		mensagem = "Análise de substituição concluída"
	case 3:
		s.etapa3(treatment)
		mensagem = "Pesquisa de guias registrada"
	case 4:
		s.etapa4(treatment)
		mensagem = "Lançamento de guias concluído"
	case 5:
		if s.etapa5(treatment) {
			s.registrarEtapa(ctx, treatment, stage.ID, rescission.AuditDescartado, "Plano descartado após revalidação")
			s.marcarConclusao(treatment, stage.ID, "Plano descartado")
			treatment.Status = rescission.TreatmentDescartado
			s.cancelarRestante(treatment, stage.ID+1)
			return true, nil
		}
		mensagem = "Situação do plano validada"
	case 6:
		if err := s.etapa6(ctx, treatment); err != nil {
			return false, err
		}
		mensagem = "Plano atualizado para RESCINDIDO"
	case 7:
		if err := s.etapa7(ctx, treatment); err != nil {
			return false, err
		}
		mensagem = "Comunicação registrada"
	default:
		mensagem = "Etapa desconhecida"
	}

	s.registrarEtapa(ctx, treatment, stage.ID, rescission.AuditSucesso, mensagem)
	s.marcarConclusao(treatment, stage.ID, mensagem)
	return false, nil
}

func (s *Service) registrarEtapa(ctx context.Context, treatment *ports.TreatmentPlan, stageID int, status string, mensagem string) {
	etapa := stageID
	s.recorder.Record(ctx, ports.AuditEntry{
		TreatmentID: &treatment.ID,
		NumeroPlano: treatment.NumeroPlano,
		EtapaNumero: &etapa,
		EtapaNome:   rescission.StageLabel(stageID),
		Status:      status,
		Mensagem:    mensagem,
	})
}

func (s *Service) marcarInicio(treatment *ports.TreatmentPlan, stageID int) {
	stage := buscarStage(treatment, stageID)
	stage.Status = rescission.StageProcessando
	if stage.IniciadoEm == "" {
		stage.IniciadoEm = time.Now().UTC().Format(time.RFC3339)
	}
	stage.Mensagem = ""
	treatment.EtapaAtual = stageID
}

func (s *Service) marcarConclusao(treatment *ports.TreatmentPlan, stageID int, mensagem string) {
	stage := buscarStage(treatment, stageID)
	stage.Status = rescission.StageConcluido
	stage.FinalizadoEm = time.Now().UTC().Format(time.RFC3339)
	stage.Mensagem = mensagem
}

func (s *Service) cancelarRestante(treatment *ports.TreatmentPlan, aPartir int) {
	for _, def := range rescission.TreatmentStages {
		if def.ID < aPartir {
			continue
		}
		stage := buscarStage(treatment, def.ID)
		if stage.Status != rescission.StageConcluido {
			stage.Status = rescission.StageCancelado
			stage.Mensagem = "Etapa não executada por descarte"
		}
	}
}

// buscarStage returns a pointer into the treatment's stage list,
// appending a pendente entry for unknown ids.
func buscarStage(treatment *ports.TreatmentPlan, stageID int) *ports.TreatmentStage {
	for i := range treatment.Etapas {
		if treatment.Etapas[i].ID == stageID {
			return &treatment.Etapas[i]
		}
	}
	nome := rescission.StageLabel(stageID)
	if nome == "" {
		nome = fmt.Sprintf("Etapa %d", stageID)
	}
	treatment.Etapas = append(treatment.Etapas, ports.TreatmentStage{
		ID:     stageID,
		Nome:   nome,
		Status: rescission.StagePendente,
	})
	return &treatment.Etapas[len(treatment.Etapas)-1]
}

func (s *Service) etapa1(treatment *ports.TreatmentPlan) {
	houve := "Não"
	if s.strategy.HouveAproveitamento() {
		houve = "Sim"
	}
	texto := "CNPJs analisados: " + strings.Join(treatment.CNPJs, ", ") +
		"\nPeríodo: " + treatment.Periodo +
		"\nRazão social: " + treatment.RazaoSocial +
		"\nHouve aproveitamento? " + houve

	treatment.Notas["E213_APROVEITAMENTO_RECOLHIMENTOS"] = texto
	treatment.Notas["E544_DATA_SOLICITACAO"] = ""
	setDefaultNota(treatment, "E544_PERIODO", treatment.Periodo)
	setDefaultNota(treatment, "E544_CNPJS", strings.Join(treatment.CNPJs, "\n"))
	setDefaultNota(treatment, "CNPJ_CEI", strings.Join(treatment.CNPJs, ", "))
	setDefaultNota(treatment, "RAZAO_SOCIAL", treatment.RazaoSocial)
	setDefaultNota(treatment, "PLANO", treatment.NumeroPlano)
	treatment.Notas["E398_BASES"] = strings.Join(treatment.Bases, "\n")
}

func (s *Service) etapa2(treatment *ports.TreatmentPlan) {
	competencias := s.strategy.CompetenciasCongruentes()
	resultado := "Sem substituição"
	if s.strategy.HouveSubstituicao() {
		resultado = "Débitos confessados substituídos por notificação fiscal"
	}
	treatment.Notas["E206_SUBSTITUICAO_CONFISSAO_NOTIFICACAO"] =
		"Há indícios de competências congruentes? " + competencias + "\nResultado: " + resultado
}

func (s *Service) etapa3(treatment *ports.TreatmentPlan) {
	quantidade := s.strategy.GuiasSFG()
	texto := "PESQUISA DE GUIAS SFG: NÃO HÁ GUIAS"
	if quantidade > 0 {
		texto = fmt.Sprintf("PESQUISA DE GUIAS SFG: %02d GUIAS LOCALIZADAS", quantidade)
	}
	treatment.Notas["PESQUISA_GUIAS_SFG"] = texto
}

func (s *Service) etapa4(treatment *ports.TreatmentPlan) {
	quantidade := s.strategy.GuiasFGE()
	texto := "GUIAS LANÇADAS: NENHUMA GUIA PROCESSADA"
	if quantidade > 0 {
		texto = fmt.Sprintf("GUIAS LANÇADAS: %02d GUIAS PROCESSADAS", quantidade)
	}
	treatment.Notas["LANCAMENTO_GUIAS_FGE"] = texto
}

func (s *Service) etapa5(treatment *ports.TreatmentPlan) bool {
	treatment.Notas["E544_DATA_SOLICITACAO"] = s.strategy.DataSolicitacao().Format(dateDisplayLayout)
	treatment.Notas["E50H_PARCELAS_ATRASO"] = s.strategy.ParcelasAtraso()
	return s.strategy.DescartarPlano()
}

func (s *Service) etapa6(ctx context.Context, treatment *ports.TreatmentPlan) error {
	hoje := time.Now().UTC().Truncate(24 * time.Hour)
	_, err := s.plans.Upsert(ctx, treatment.NumeroPlano, func(p *ports.Plan) {
		p.SituacaoAtual = rescission.SituacaoRescindido
		p.DtSituacaoAtual = &hoje
		p.Status = string(rescission.StatusRescindido)
		p.DataRescisao = &hoje
	})
	if err != nil {
		return errs.Wrap(err, "rescind plan")
	}
	treatment.RescisaoData = &hoje
	treatment.Notas["E554_DATA_RESCISAO_FGE"] = hoje.Format(dateDisplayLayout)
	return nil
}

func (s *Service) etapa7(ctx context.Context, treatment *ports.TreatmentPlan) error {
	metodo, referencia := s.strategy.Comunicacao()
	hoje := time.Now().UTC().Truncate(24 * time.Hour)

	treatment.Notas["E554_DATA_COMUNICACAO"] = hoje.Format(dateDisplayLayout)
	treatment.Notas["E554_METODO_COMUNICACAO"] = metodo
	treatment.Notas["E554_NSU_OU_EMAIL"] = referencia
	setDefaultNota(treatment, "E554_NOME_DOSSIE", "Dossie_"+treatment.NumeroPlano)
	setDefaultNota(treatment, "E554_DATA_FINALIZACAO_SIREP", hoje.Format(dateDisplayLayout))

	_, err := s.plans.Upsert(ctx, treatment.NumeroPlano, func(p *ports.Plan) {
		p.DataComunicacao = &hoje
		p.MetodoComunicacao = metodo
		p.ReferenciaComunicacao = referencia
	})
	if err != nil {
		return errs.Wrap(err, "record communication")
	}
	return nil
}

func setDefaultNota(treatment *ports.TreatmentPlan, key string, value string) {
	if _, ok := treatment.Notas[key]; !ok {
		treatment.Notas[key] = value
	}
}

// Status snapshots the queue and every treatment record, enriched with
// plan fields, plus the recent audit feed.
func (s *Service) Status(ctx context.Context) (Status, error) {
	planos, err := s.treatments.ListAll(ctx)
	if err != nil {
		return Status{}, errs.Wrap(err, "list treatments")
	}

	s.restorePendingQueue(ctx, planos)

	planMap := map[uint64]ports.Plan{}
	if all, err := s.plans.ListAll(ctx); err == nil {
		for _, plan := range all {
			planMap[plan.ID] = plan
		}
	}

	s.mu.Lock()
	st := Status{
		Estado: s.estadoLocked(),
		Fila:   append([]uint64{}, s.shadow...),
	}
	if s.hasCurrent {
		st.Atual = s.currentID
	}
	s.mu.Unlock()

	for _, plano := range planos {
		item := PlanoStatus{
			ID:          plano.ID,
			PlanID:      plano.PlanID,
			NumeroPlano: plano.NumeroPlano,
			RazaoSocial: plano.RazaoSocial,
			Status:      plano.Status,
			EtapaAtual:  plano.EtapaAtual,
			Periodo:     plano.Periodo,
			CNPJs:       plano.CNPJs,
			Bases:       plano.Bases,
			Etapas:      plano.Etapas,
		}
		if plano.RescisaoData != nil {
			item.RescisaoData = plano.RescisaoData.Format("2006-01-02")
		}
		if plan, ok := planMap[plano.PlanID]; ok {
			item.Tipo = plan.Tipo
			item.SituacaoAtual = plan.SituacaoAtual
			if plan.DtSituacaoAtual != nil {
				item.DtSituacaoAtual = plan.DtSituacaoAtual.Format("2006-01-02")
			}
			item.Saldo = plan.Saldo
			item.CNPJ = plan.Representacao
			if item.CNPJ == "" {
				item.CNPJ = plan.NumeroInscricao
			}
		}
		st.Planos = append(st.Planos, item)
	}

	for _, entry := range s.recorder.Recent(ctx, 40) {
		log := LogStatus{
			ID:       entry.ID,
			Status:   entry.Status,
			Mensagem: entry.Mensagem,
			Contexto: entry.Contexto,
		}
		if entry.TreatmentID != nil {
			log.TreatmentID = *entry.TreatmentID
		}
		log.NumeroPlano = entry.NumeroPlano
		if entry.EtapaNumero != nil {
			log.Etapa = *entry.EtapaNumero
		}
		log.EtapaNome = entry.EtapaNome
		if !entry.CreatedAt.IsZero() {
			log.CreatedAt = entry.CreatedAt.Format(time.RFC3339)
		}
		st.Logs = append(st.Logs, log)
	}
	return st, nil
}

// Notepad renders the dossier document of one treatment.
func (s *Service) Notepad(ctx context.Context, id uint64) (string, error) {
	treatment, err := s.treatments.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return RenderNotepad(treatment.Notas), nil
}
