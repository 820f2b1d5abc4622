package capture

import (
	"time"

	"sirep/internal/domain/rescission"
	"sirep/internal/simulation"
)

// Strategy supplies the randomized business outcomes of a simulated
// capture run. Tests plug in deterministic implementations.
type Strategy interface {
	// StepDelay is the think time between two checkpoints of one plan.
	StepDelay() time.Duration
	// TickDelay is the pause between generation ticks of the main loop.
	TickDelay() time.Duration

	DiscardSituacaoEspecial() bool
	DiscardLiquidacao() (situacao string, discard bool)
	DiscardGRDE() bool
	DiscardSituacaoFinal() (situacao string, discard bool)

	NumeroPlano() string
	CNPJ() string
	Tipo() string
	Saldo() float64
	DiasEmAtraso() int
}

type randomStrategy struct {
	faker   *simulation.Faker
	profile simulation.CaptureProfile
}

// NewRandomStrategy builds the production strategy from the simulation
// profile.
func NewRandomStrategy(faker *simulation.Faker, profile simulation.CaptureProfile) Strategy {
	return &randomStrategy{faker: faker, profile: profile}
}

func (s *randomStrategy) StepDelay() time.Duration {
	ms := s.faker.IntBetween(s.profile.StepMinMS, s.profile.StepMaxMS)
	return time.Duration(ms) * time.Millisecond
}

func (s *randomStrategy) TickDelay() time.Duration {
	return time.Second
}

func (s *randomStrategy) DiscardSituacaoEspecial() bool {
	return s.faker.Chance(s.profile.ProbSituacaoEspecial)
}

func (s *randomStrategy) DiscardLiquidacao() (string, bool) {
	if !s.faker.Chance(s.profile.ProbLiquidacao) {
		return "", false
	}
	if s.faker.Chance(0.5) {
		return rescission.SituacaoLiquidado, true
	}
	return rescission.SituacaoRescindido, true
}

func (s *randomStrategy) DiscardGRDE() bool {
	return s.faker.Chance(s.profile.ProbGRDE)
}

func (s *randomStrategy) DiscardSituacaoFinal() (string, bool) {
	if !s.faker.Chance(s.profile.ProbSituacaoFinal) {
		return "", false
	}
	alternativas := []string{
		rescission.SituacaoEspecial,
		rescission.SituacaoLiquidado,
		rescission.SituacaoRescindido,
		rescission.SituacaoGRDE,
	}
	return alternativas[s.faker.IntBetween(0, len(alternativas)-1)], true
}

func (s *randomStrategy) NumeroPlano() string {
	return s.faker.NumeroCaptura()
}

func (s *randomStrategy) CNPJ() string {
	return s.faker.CNPJComDV()
}

func (s *randomStrategy) Tipo() string {
	return s.faker.TipoPlano()
}

func (s *randomStrategy) Saldo() float64 {
	return s.faker.Saldo(s.profile.SaldoMin, s.profile.SaldoMax)
}

func (s *randomStrategy) DiasEmAtraso() int {
	return s.faker.IntBetween(90, 120)
}
