package treatment

import (
	"fmt"
	"strings"
	"time"

	"sirep/internal/simulation"
)

const dateDisplayLayout = "02/01/2006"

// Strategy supplies the randomized outcomes of the treatment stages.
// Tests plug in deterministic implementations.
type Strategy interface {
	// ThinkTime is the pausable wait before each stage executes.
	ThinkTime() time.Duration

	HouveAproveitamento() bool
	// CompetenciasCongruentes returns the overlap period text, or the
	// no-overlap marker.
	CompetenciasCongruentes() string
	HouveSubstituicao() bool
	GuiasSFG() int
	GuiasFGE() int
	DataSolicitacao() time.Time
	ParcelasAtraso() string
	// DescartarPlano decides the stage-5 revalidation discard.
	DescartarPlano() bool
	// Comunicacao returns the channel and its reference (CNS protocol
	// or email address).
	Comunicacao() (metodo string, referencia string)
}

type randomStrategy struct {
	faker   *simulation.Faker
	profile simulation.TreatmentProfile
	now     func() time.Time
}

func NewRandomStrategy(faker *simulation.Faker, profile simulation.TreatmentProfile) Strategy {
	return &randomStrategy{faker: faker, profile: profile, now: time.Now}
}

func (s *randomStrategy) ThinkTime() time.Duration {
	ms := s.faker.IntBetween(s.profile.ThinkMinMS, s.profile.ThinkMaxMS)
	return time.Duration(ms) * time.Millisecond
}

func (s *randomStrategy) HouveAproveitamento() bool {
	return s.faker.Chance(0.5)
}

func (s *randomStrategy) CompetenciasCongruentes() string {
	if !s.faker.Chance(0.5) {
		return "Sem competências congruentes"
	}
	inicio := s.now().AddDate(0, 0, -s.faker.IntBetween(60, 240))
	fim := inicio.AddDate(0, 0, s.faker.IntBetween(60, 180))
	return inicio.Format("01/2006") + " a " + fim.Format("01/2006")
}

func (s *randomStrategy) HouveSubstituicao() bool {
	return s.faker.Chance(0.5)
}

func (s *randomStrategy) GuiasSFG() int {
	return s.faker.IntBetween(0, 5)
}

func (s *randomStrategy) GuiasFGE() int {
	return s.faker.IntBetween(0, 5)
}

func (s *randomStrategy) DataSolicitacao() time.Time {
	return s.now().AddDate(0, 0, -s.faker.IntBetween(100, 600))
}

// ParcelasAtraso renders three overdue installments in the fixed-width
// shape of the E50H screen.
func (s *randomStrategy) ParcelasAtraso() string {
	base := s.faker.Saldo(350, 980)
	linhas := make([]string, 0, 3)
	for idx := 4; idx <= 6; idx++ {
		valor := base + s.faker.Saldo(-40, 40)
		texto := strings.ReplaceAll(fmt.Sprintf("%.2f", valor), ".", ",")
		vencimento := s.now().AddDate(0, 0, 30*(idx-3)).Format(dateDisplayLayout)
		linhas = append(linhas, fmt.Sprintf("%03d           %s              %s", idx, texto, vencimento))
	}
	return strings.Join(linhas, "\n")
}

func (s *randomStrategy) DescartarPlano() bool {
	return s.faker.Chance(s.profile.ProbDescarte)
}

func (s *randomStrategy) Comunicacao() (string, string) {
	if s.faker.Chance(0.5) {
		digitos := make([]byte, 8)
		for i := range digitos {
			digitos[i] = byte('0' + s.faker.IntBetween(0, 9))
		}
		return "CNS", "NSU-" + string(digitos)
	}
	return "Email", fmt.Sprintf("contato_%d@empresa.com", s.faker.IntBetween(100, 999))
}
