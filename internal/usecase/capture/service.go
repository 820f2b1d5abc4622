// Package capture implements the base-management pipeline: it pulls
// candidate plans from the external source (or simulates the pull),
// discards plans whose situation excludes them from rescission and
// persists the survivors as actionable plans.
package capture

import (
	"context"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"sirep/internal/audit"
	"sirep/internal/bootstrap/logging"
	"sirep/internal/domain/rescission"
	"sirep/internal/idempotency"
	"sirep/internal/ports"
	"sirep/internal/runloop"
)

type Estado string

const (
	EstadoOcioso     Estado = "ocioso"
	EstadoExecutando Estado = "executando"
	EstadoPausado    Estado = "pausado"
	EstadoConcluido  Estado = "concluido"
)

const (
	msgIniciado  = "Processamento iniciado."
	msgPausado   = "Processamento pausado."
	msgRetomado  = "Processamento retomado."
	msgConcluido = "Processamento concluído."

	inputHashKey = "captura:input_hash"
)

// PlanoProgresso is the live checkpoint position of one plan being
// captured.
type PlanoProgresso struct {
	NumeroPlano string   `json:"numero_plano"`
	Progresso   int      `json:"progresso"`
	Etapas      []string `json:"etapas"`
}

// HistoricoEntry is one line of the capture history feed.
type HistoricoEntry struct {
	NumeroPlano string `json:"numero_plano"`
	Mensagem    string `json:"mensagem"`
	Progresso   int    `json:"progresso"`
	Etapa       string `json:"etapa"`
	Timestamp   string `json:"timestamp"`
}

// Status is the public snapshot of the capture pipeline.
type Status struct {
	Estado            Estado           `json:"estado"`
	Processados       int              `json:"processados"`
	Novos             int              `json:"novos"`
	Falhas            int              `json:"falhas"`
	Progresso         int              `json:"progresso"`
	EmProgresso       []PlanoProgresso `json:"em_progresso"`
	UltimaAtualizacao string           `json:"ultima_atualizacao,omitempty"`
	LastError         string           `json:"last_error,omitempty"`
	Historico         []HistoricoEntry `json:"historico"`
	TotalPlanos       int64            `json:"total_planos"`
	TotalPassiveis    int64            `json:"total_passiveis"`
	Ocorrencias       int64            `json:"ocorrencias"`
}

// Config tunes the simulated generation pace.
type Config struct {
	TotalAlvos int
	Velocidade int
}

// Service drives the capture pipeline. One batch runs at a time on a
// dedicated run loop; per-plan work runs on short-lived goroutines
// gated by the pause gate.
type Service struct {
	plans       ports.PlanRepository
	occurrences ports.OccurrenceRepository
	jobs        ports.JobRunRepository
	cache       ports.Cache
	recorder    *audit.Recorder
	collector   ports.Collector
	strategy    Strategy

	totalAlvos int
	velocidade int

	loop   *runloop.Loop
	cancel context.CancelFunc

	mu                sync.Mutex
	estado            Estado
	processados       int
	novos             int
	falhas            int
	progressoColeta   int
	emProgresso       map[string]int
	ultimaAtualizacao time.Time
	lastError         string
	gate              *runloop.Gate
	runActive         bool
	wg                sync.WaitGroup
}

func NewService(
	plans ports.PlanRepository,
	occurrences ports.OccurrenceRepository,
	jobs ports.JobRunRepository,
	cache ports.Cache,
	recorder *audit.Recorder,
	collector ports.Collector,
	strategy Strategy,
	cfg Config,
) *Service {
	if cfg.TotalAlvos <= 0 {
		cfg.TotalAlvos = 50
	}
	if cfg.Velocidade <= 0 {
		cfg.Velocidade = 1
	}
	return &Service{
		plans:       plans,
		occurrences: occurrences,
		jobs:        jobs,
		cache:       cache,
		recorder:    recorder,
		collector:   collector,
		strategy:    strategy,
		totalAlvos:  cfg.TotalAlvos,
		velocidade:  cfg.Velocidade,
		loop:        runloop.NewLoop(8),
		estado:      EstadoOcioso,
		emProgresso: map[string]int{},
	}
}

// Close tears down the run loop. Any in-flight batch is released from
// its pause gate first so goroutines can drain.
func (s *Service) Close() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		gate.Set()
	}
	s.loop.Close()
}

// Start launches a new capture batch. Calling it while a batch is
// executing or paused is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.estado == EstadoExecutando || s.estado == EstadoPausado {
		estado := s.estado
		s.mu.Unlock()
		logging.Info(ctx, "captura já em execução", slog.String("estado", string(estado)))
		return nil
	}

	s.estado = EstadoExecutando
	s.processados = 0
	s.novos = 0
	s.falhas = 0
	s.progressoColeta = 0
	s.lastError = ""
	s.emProgresso = map[string]int{}
	s.gate = runloop.NewGate(true)
	s.runActive = true

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.mu.Unlock()

	s.registrar(ctx, "", 0, "", rescission.AuditInicio, msgIniciado)

	if err := s.loop.Submit(func() { s.run(runCtx) }); err != nil {
		s.mu.Lock()
		s.estado = EstadoConcluido
		s.runActive = false
		s.mu.Unlock()
		return err
	}
	logging.Info(ctx, "captura iniciada")
	return nil
}

// Pause holds the batch at the next checkpoint. Pausing a batch that
// already finished settles the state on concluido.
func (s *Service) Pause(ctx context.Context) {
	s.mu.Lock()
	if s.estado != EstadoExecutando {
		s.mu.Unlock()
		return
	}
	if !s.runActive {
		s.estado = EstadoConcluido
		s.mu.Unlock()
		logging.Info(ctx, "captura já finalizada; ignorando pedido de pausa")
		return
	}
	s.estado = EstadoPausado
	gate := s.gate
	s.mu.Unlock()

	if gate != nil {
		gate.Clear()
	}
	s.registrar(ctx, "", 0, "", rescission.AuditPausado, msgPausado)
	logging.Info(ctx, "captura pausada")
}

// Resume releases a paused batch. If the batch tore down while paused
// the state settles on concluido.
func (s *Service) Resume(ctx context.Context) {
	s.mu.Lock()
	if s.estado != EstadoPausado {
		s.mu.Unlock()
		return
	}
	if s.gate == nil {
		s.estado = EstadoConcluido
		s.mu.Unlock()
		logging.Info(ctx, "nenhuma captura ativa para continuar; estado definido como concluído")
		return
	}
	s.estado = EstadoExecutando
	gate := s.gate
	s.mu.Unlock()

	gate.Set()
	s.registrar(ctx, "", 0, "", rescission.AuditRetomado, msgRetomado)
	logging.Info(ctx, "captura continuada")
}

// Status snapshots the pipeline, enriched with storage totals.
func (s *Service) Status(ctx context.Context) Status {
	historico := s.historico(ctx)

	s.mu.Lock()
	st := Status{
		Estado:      s.estado,
		Processados: s.processados,
		Novos:       s.novos,
		Falhas:      s.falhas,
		LastError:   s.lastError,
		Historico:   historico,
	}
	for numero, progresso := range s.emProgresso {
		st.EmProgresso = append(st.EmProgresso, PlanoProgresso{
			NumeroPlano: numero,
			Progresso:   progresso,
			Etapas:      rescission.CaptureCheckpoints,
		})
	}
	if !s.ultimaAtualizacao.IsZero() {
		st.UltimaAtualizacao = s.ultimaAtualizacao.Format(time.RFC3339)
	}
	st.Progresso = s.progressoColeta
	if s.totalAlvos > 0 {
		pct := s.processados * 100 / s.totalAlvos
		if pct > st.Progresso {
			st.Progresso = pct
		}
	}
	if st.Progresso > 100 {
		st.Progresso = 100
	}
	s.mu.Unlock()

	if total, err := s.plans.CountAll(ctx); err == nil {
		st.TotalPlanos = total
	}
	if passiveis, err := s.plans.CountBySituacao(ctx, rescission.SituacaoPassivelResc); err == nil {
		st.TotalPassiveis = passiveis
	}
	if ocorrencias, err := s.occurrences.CountAll(ctx); err == nil {
		st.Ocorrencias = ocorrencias
	}
	return st
}

func (s *Service) historico(ctx context.Context) []HistoricoEntry {
	entries := s.recorder.Recent(ctx, 0)
	out := make([]HistoricoEntry, 0, len(entries))
	for _, entry := range entries {
		progresso := 0
		if entry.EtapaNumero != nil {
			progresso = *entry.EtapaNumero
		}
		out = append(out, HistoricoEntry{
			NumeroPlano: entry.NumeroPlano,
			Mensagem:    entry.Mensagem,
			Progresso:   progresso,
			Etapa:       entry.EtapaNome,
			Timestamp:   entry.CreatedAt.Format(time.RFC3339),
		})
	}
	return out
}

// run executes one batch on the run loop.
func (s *Service) run(ctx context.Context) {
	job := s.startJob(ctx)

	if s.collector != nil {
		if finished := s.runColeta(ctx, job); finished {
			return
		}
	}
	s.runSimulacao(ctx, job)
}

func (s *Service) startJob(ctx context.Context) *ports.JobRun {
	hash, err := idempotency.Hash(map[string]any{
		"total_alvos": s.totalAlvos,
		"velocidade":  s.velocidade,
	})
	if err != nil {
		logging.Warn(ctx, "falha ao calcular hash de entrada", slog.String("error", err.Error()))
	}

	if hash != "" && s.cache != nil {
		if anterior, found, cacheErr := s.cache.Get(ctx, inputHashKey); cacheErr == nil && found && anterior == hash {
			logging.Info(ctx, "captura reexecutada com os mesmos parâmetros", slog.String("input_hash", hash))
		}
		if cacheErr := s.cache.Set(ctx, inputHashKey, hash, 0); cacheErr != nil {
			logging.Warn(ctx, "falha ao registrar hash de entrada", slog.String("error", cacheErr.Error()))
		}
	}

	job, err := s.jobs.Start(ctx, ports.JobRunStart{
		JobName:   "captura",
		Step:      "gestao_base",
		InputHash: hash,
		Info:      map[string]any{"run_id": uuid.NewString()},
	})
	if err != nil {
		logging.Warn(ctx, "falha ao abrir job de captura", slog.String("error", err.Error()))
		return nil
	}
	return &job
}

func (s *Service) finishJob(ctx context.Context, job *ports.JobRun, status string, info map[string]any) {
	if job == nil {
		return
	}
	if _, err := s.jobs.Finish(ctx, job.ID, status, info); err != nil {
		logging.Warn(ctx, "falha ao encerrar job de captura", slog.String("error", err.Error()))
	}
}

// runColeta attempts the real collector. Returns true when the batch is
// fully handled; false falls through to the simulation.
func (s *Service) runColeta(ctx context.Context, job *ports.JobRun) bool {
	type outcome struct {
		result ports.CollectResult
		err    error
	}
	ch := make(chan outcome, 1)
	go func() {
		result, err := s.collector.Collect(ctx, s.onColetaProgress)
		ch <- outcome{result: result, err: err}
	}()

	out := <-ch
	if out.err != nil {
		s.mu.Lock()
		s.lastError = out.err.Error()
		s.mu.Unlock()
		logging.Warn(ctx, "coletor indisponível; usando simulação", slog.String("error", out.err.Error()))
		s.registrar(ctx, "", 0, "", rescission.AuditFalha, "Coleta externa indisponível; executando em modo simulado.")
		return false
	}

	importados := s.persistirColeta(ctx, out.result)
	s.finishJob(ctx, job, ports.JobRunFinished, map[string]any{
		"importados":      importados,
		"descartados_974": out.result.Descartados974,
	})
	s.concluir(ctx)
	return true
}

// onColetaProgress receives collector callbacks from an arbitrary
// goroutine. Percentages only move forward.
func (s *Service) onColetaProgress(percent int, etapa string, mensagem string) {
	s.mu.Lock()
	if percent > s.progressoColeta {
		if percent > 100 {
			percent = 100
		}
		s.progressoColeta = percent
	}
	s.ultimaAtualizacao = time.Now().UTC()
	s.mu.Unlock()

	if mensagem != "" {
		s.registrar(context.Background(), "", 0, etapa, rescission.AuditInfo, mensagem)
	}
}

func (s *Service) persistirColeta(ctx context.Context, result ports.CollectResult) int {
	importados := 0
	hoje := time.Now().UTC().Truncate(24 * time.Hour)
	for _, row := range result.Rows {
		row := row
		dtProposta := parseDateAny(row.DtProposta)
		saldo, saldoOK := parseMoneyBRL(row.SaldoTotal)
		inscricao := strings.TrimSpace(row.CNPJ)

		_, err := s.plans.Upsert(ctx, row.Numero, func(p *ports.Plan) {
			p.SituacaoAtual = row.Situacao
			p.SituacaoAnterior = row.Situacao
			p.Tipo = row.Tipo
			p.DtSituacaoAtual = &hoje
			p.DtProposta = dtProposta
			if saldoOK {
				p.Saldo = saldo
				p.SaldoTotal = saldo
			}
			p.Resolucao = row.Resolucao
			p.RazaoSocial = row.RazaoSocial
			p.NumeroInscricao = onlyDigits(inscricao)
			p.Representacao = inscricao
			p.Status = string(rescission.StatusPassivelResc)
		})
		if err != nil {
			s.mu.Lock()
			s.falhas++
			s.lastError = err.Error()
			s.mu.Unlock()
			logging.Error(ctx, "falha ao importar plano",
				slog.String("numero_plano", row.Numero), slog.String("error", err.Error()))
			continue
		}
		s.registrar(ctx, row.Numero, 4, "Captura", rescission.AuditSucesso, "Plano importado via Gestão da Base")
		importados++
	}

	s.mu.Lock()
	s.processados += importados
	s.novos += importados
	s.mu.Unlock()
	return importados
}

// runSimulacao generates synthetic plans at the configured pace until
// the target count is reached or the run is cancelled.
func (s *Service) runSimulacao(ctx context.Context, job *ports.JobRun) {
	gerados := 0
	for gerados < s.totalAlvos && ctx.Err() == nil {
		if err := s.waitGate(ctx); err != nil {
			break
		}
		for i := 0; i < s.velocidade && gerados < s.totalAlvos; i++ {
			if err := s.waitGate(ctx); err != nil {
				break
			}
			numero := s.strategy.NumeroPlano()
			s.wg.Add(1)
			go s.processarPlano(ctx, numero)
			gerados++
		}
		if err := runloop.SleepWithPause(ctx, s.strategy.TickDelay(), s.currentGate()); err != nil {
			break
		}
	}

	s.aguardarPlanos(ctx)

	s.mu.Lock()
	processados, novos, falhas := s.processados, s.novos, s.falhas
	estado := s.estado
	s.mu.Unlock()

	status := ports.JobRunFinished
	if estado == EstadoPausado {
		// Torn down while paused; the next resume settles on concluido.
		status = ports.JobRunFail
	}
	s.finishJob(ctx, job, status, map[string]any{
		"processados": processados,
		"novos":       novos,
		"falhas":      falhas,
	})
	logging.Info(ctx, "captura finalizada", slog.String("estado", string(estado)))
}

// aguardarPlanos waits for the per-plan goroutines. A pause while they
// drain tears the gate down and leaves the batch parked on pausado.
func (s *Service) aguardarPlanos(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			s.concluir(ctx)
			return
		case <-ticker.C:
			s.mu.Lock()
			paused := s.estado == EstadoPausado
			pending := len(s.emProgresso) > 0
			var gate *runloop.Gate
			if paused && pending {
				gate = s.gate
				s.gate = nil
				s.runActive = false
			}
			s.mu.Unlock()

			if paused && pending {
				// Release blocked goroutines so they can finish; the
				// estado stays pausado until someone resumes.
				if gate != nil {
					gate.Set()
				}
				<-done
				return
			}
		}
	}
}

func (s *Service) concluir(ctx context.Context) {
	s.mu.Lock()
	jaConcluido := s.estado == EstadoConcluido
	s.estado = EstadoConcluido
	gate := s.gate
	s.gate = nil
	s.runActive = false
	s.mu.Unlock()

	if gate != nil {
		gate.Set()
	}

	ultima, ok := s.recorder.Last(ctx)
	if jaConcluido && ok && ultima.Mensagem == msgConcluido {
		return
	}
	s.registrar(ctx, "", 4, "", rescission.AuditConcluido, msgConcluido)
}

func (s *Service) currentGate() *runloop.Gate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gate
}

func (s *Service) waitGate(ctx context.Context) error {
	gate := s.currentGate()
	if gate == nil {
		return nil
	}
	return gate.Wait(ctx)
}

func (s *Service) sleepStep(ctx context.Context) error {
	return runloop.SleepWithPause(ctx, s.strategy.StepDelay(), s.currentGate())
}

// processarPlano walks one plan through the 4 capture checkpoints.
func (s *Service) processarPlano(ctx context.Context, numero string) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.emProgresso, numero)
		s.ultimaAtualizacao = time.Now().UTC()
		s.mu.Unlock()
	}()

	if err := s.waitGate(ctx); err != nil {
		return
	}
	s.setProgresso(numero, 0)

	cnpj := s.strategy.CNPJ()
	saldo := math.Round(s.strategy.Saldo()*100) / 100
	tipo := s.strategy.Tipo()
	hoje := time.Now().UTC().Truncate(24 * time.Hour)

	if err := s.sleepStep(ctx); err != nil {
		return
	}
	s.setProgresso(numero, 1)

	if err := s.sleepStep(ctx); err != nil {
		return
	}
	s.setProgresso(numero, 2)
	if s.strategy.DiscardSituacaoEspecial() {
		s.descartar(ctx, numero, 2, rescission.SituacaoEspecial, cnpj, tipo, saldo, hoje)
		return
	}

	if err := s.sleepStep(ctx); err != nil {
		return
	}
	s.setProgresso(numero, 3)
	if situacao, discard := s.strategy.DiscardLiquidacao(); discard {
		s.descartar(ctx, numero, 3, situacao, cnpj, tipo, saldo, hoje)
		return
	}

	if err := s.sleepStep(ctx); err != nil {
		return
	}
	if s.strategy.DiscardGRDE() {
		s.descartar(ctx, numero, 4, rescission.SituacaoGRDE, cnpj, tipo, saldo, hoje)
		return
	}
	s.setProgresso(numero, 4)

	if situacao, discard := s.strategy.DiscardSituacaoFinal(); discard {
		s.descartar(ctx, numero, 4, situacao, cnpj, tipo, saldo, hoje)
		return
	}

	_, err := s.plans.Upsert(ctx, numero, func(p *ports.Plan) {
		p.Gifug = "MZ"
		p.SituacaoAtual = rescission.SituacaoPassivelResc
		p.SituacaoAnterior = rescission.SituacaoPassivelResc
		p.DiasEmAtraso = s.strategy.DiasEmAtraso()
		p.Tipo = tipo
		p.DtSituacaoAtual = &hoje
		p.Saldo = saldo
		p.SaldoTotal = saldo
		p.TipoParcelamento = tipo
		p.NumeroInscricao = onlyDigits(cnpj)
		p.Representacao = cnpj
		p.Status = string(rescission.StatusPassivelResc)
	})
	if err != nil {
		s.falhaPlano(ctx, numero, err)
		return
	}

	s.mu.Lock()
	s.novos++
	s.processados++
	s.mu.Unlock()
	s.registrar(ctx, numero, 4, s.etapaLabel(4), rescission.AuditSucesso, "Capturado com sucesso")
}

func (s *Service) descartar(ctx context.Context, numero string, progresso int, situacao string, cnpj string, tipo string, saldo float64, hoje time.Time) {
	if _, err := s.occurrences.Add(ctx, ports.Occurrence{
		NumeroPlano:     numero,
		Situacao:        situacao,
		CNPJ:            cnpj,
		Tipo:            tipo,
		Saldo:           saldo,
		DtSituacaoAtual: &hoje,
	}); err != nil {
		s.falhaPlano(ctx, numero, err)
		return
	}

	s.registrar(ctx, numero, progresso, s.etapaLabel(progresso), rescission.AuditDescartado, "Descartado: "+situacao)

	s.mu.Lock()
	s.falhas++
	s.processados++
	s.mu.Unlock()
}

func (s *Service) falhaPlano(ctx context.Context, numero string, err error) {
	s.mu.Lock()
	s.falhas++
	s.processados++
	s.lastError = err.Error()
	progresso := s.emProgresso[numero]
	s.mu.Unlock()

	logging.Error(ctx, "erro ao processar plano",
		slog.String("numero_plano", numero), slog.String("error", err.Error()))
	if progresso < 1 {
		progresso = 1
	}
	s.registrar(ctx, numero, progresso, s.etapaLabel(progresso), rescission.AuditFalha, "Falha inesperada")
}

func (s *Service) setProgresso(numero string, progresso int) {
	s.mu.Lock()
	s.emProgresso[numero] = progresso
	s.mu.Unlock()
}

func (s *Service) etapaLabel(progresso int) string {
	idx := progresso - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(rescission.CaptureCheckpoints) {
		idx = len(rescission.CaptureCheckpoints) - 1
	}
	return rescission.CaptureCheckpoints[idx]
}

func (s *Service) registrar(ctx context.Context, numero string, progresso int, etapa string, status string, mensagem string) {
	entry := ports.AuditEntry{
		NumeroPlano: numero,
		EtapaNome:   etapa,
		Status:      status,
		Mensagem:    mensagem,
	}
	if progresso > 0 {
		entry.EtapaNumero = &progresso
	}
	s.recorder.Record(ctx, entry)

	s.mu.Lock()
	s.ultimaAtualizacao = time.Now().UTC()
	s.mu.Unlock()
}

var nonDigits = regexp.MustCompile(`\D`)

func onlyDigits(raw string) string {
	return nonDigits.ReplaceAllString(raw, "")
}

var dateLayouts = []string{"02/01/2006", "2006-01-02", "02-01-2006", "02.01.2006"}

func parseDateAny(raw string) *time.Time {
	texto := strings.TrimSpace(raw)
	if texto == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, texto); err == nil {
			parsed = parsed.UTC()
			return &parsed
		}
	}
	return nil
}

var moneyJunk = regexp.MustCompile(`[^\d.,-]`)

// parseMoneyBRL converts "12.345,67" style amounts; parenthesised
// values are negative.
func parseMoneyBRL(raw string) (float64, bool) {
	texto := strings.TrimSpace(raw)
	if texto == "" {
		return 0, false
	}
	negativo := strings.Contains(texto, "(") && strings.Contains(texto, ")")
	limpo := moneyJunk.ReplaceAllString(texto, "")
	limpo = strings.ReplaceAll(limpo, ".", "")
	limpo = strings.ReplaceAll(limpo, ",", ".")

	valor, err := strconv.ParseFloat(limpo, 64)
	if err != nil {
		return 0, false
	}
	if negativo {
		valor = -valor
	}
	return valor, true
}
