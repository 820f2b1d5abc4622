// Package simulation generates the synthetic business data used by the
// capture fallback and the treatment seeder, plus the tunable profile
// that controls timing and discard odds.
package simulation

import (
	"fmt"
	"math/rand"
	"time"
)

var TiposParcelamento = []string{
	"PARCELAMENTO ORDINÁRIO",
	"PARCELAMENTO ESPECIAL",
	"PARCELAMENTO SIMPLIFICADO",
}

var razaoPrefix = []string{
	"INDÚSTRIA", "COMÉRCIO", "SERVIÇOS", "TECNOLOGIA",
	"GRUPO", "CONSÓRCIO", "ALIMENTOS", "ENGENHARIA",
}

var razaoMiddle = []string{
	"ALFA", "BETA", "ÔMEGA", "DELTA",
	"PRIME", "UNIÃO", "GERAL", "MASTER",
}

var razaoSuffix = []string{
	"DO BRASIL", "GLOBAL", "NACIONAL", "LTDA",
	"S.A.", "ME", "EIRELI", "& CIA",
}

var ufCodes = []string{
	"AC", "AL", "AM", "AP", "BA", "CE", "DF", "ES", "GO", "MA",
	"MG", "MS", "MT", "PA", "PB", "PE", "PI", "PR", "RJ", "RN",
	"RO", "RR", "RS", "SC", "SE", "SP", "TO", "BH", "BR",
}

// Faker produces randomized business values from its own source, so
// tests can seed it deterministically.
type Faker struct {
	rng *rand.Rand
	now func() time.Time
}

func NewFaker(seed int64) *Faker {
	return &Faker{
		rng: rand.New(rand.NewSource(seed)),
		now: time.Now,
	}
}

func (f *Faker) RazaoSocial() string {
	prefix := razaoPrefix[f.rng.Intn(len(razaoPrefix))]
	middle := razaoMiddle[f.rng.Intn(len(razaoMiddle))]
	suffix := razaoSuffix[f.rng.Intn(len(razaoSuffix))]
	return prefix + " " + middle + " " + suffix
}

// Periodo renders "MM/YYYY a MM/YYYY": start 1 to 4 years back, span 3
// to 24 months.
func (f *Faker) Periodo() string {
	inicio := f.now().AddDate(0, 0, -(365 + f.rng.Intn(1500-365+1)))
	fim := inicio.AddDate(0, 0, 90+f.rng.Intn(720-90+1))
	return inicio.Format("01/2006") + " a " + fim.Format("01/2006")
}

func (f *Faker) CNPJs() []string {
	quantidade := 1 + f.rng.Intn(3)
	valores := make([]string, 0, quantidade)
	for i := 0; i < quantidade; i++ {
		valores = append(valores, formatCNPJ(f.rng.Int63n(100000000000000)))
	}
	return valores
}

func (f *Faker) CNPJ() string {
	return formatCNPJ(f.rng.Int63n(100000000000000))
}

// Bases samples 1 to 3 distinct UF codes.
func (f *Faker) Bases() []string {
	quantidade := 1 + f.rng.Intn(3)
	picks := f.rng.Perm(len(ufCodes))[:quantidade]
	bases := make([]string, 0, quantidade)
	for _, idx := range picks {
		bases = append(bases, ufCodes[idx])
	}
	return bases
}

func (f *Faker) NumeroPlano() string {
	return fmt.Sprintf("%010d", f.rng.Int63n(10000000000))
}

// NumeroCaptura builds the plan number shape the collector screens
// show: a 4-digit year followed by a 5-digit sequence.
func (f *Faker) NumeroCaptura() string {
	ano := 2003 + f.rng.Intn(2025-2003+1)
	sufixo := 1010 + f.rng.Intn(96052-1010+1)
	return fmt.Sprintf("%04d%05d", ano, sufixo)
}

// CNPJComDV generates a headquarters CNPJ (branch 0001) with valid
// check digits.
func (f *Faker) CNPJComDV() string {
	digits := make([]int, 0, 14)
	for i := 0; i < 8; i++ {
		digits = append(digits, f.rng.Intn(10))
	}
	digits = append(digits, 0, 0, 0, 1)

	dv := func(digs []int, pesos []int) int {
		sum := 0
		for i, d := range digs {
			sum += d * pesos[i]
		}
		r := sum % 11
		if r < 2 {
			return 0
		}
		return 11 - r
	}
	d1 := dv(digits, []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2})
	d2 := dv(append(append([]int{}, digits...), d1), []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2})
	c := append(append([]int{}, digits...), d1, d2)

	return fmt.Sprintf("%d%d.%d%d%d.%d%d%d/%d%d%d%d-%d%d",
		c[0], c[1], c[2], c[3], c[4], c[5], c[6], c[7], c[8], c[9], c[10], c[11], c[12], c[13])
}

func (f *Faker) TipoPlano() string {
	tipos := []string{"ADM", "INS", "JUD", "AI", "AJ"}
	return tipos[f.rng.Intn(len(tipos))]
}

func (f *Faker) TipoParcelamento() string {
	return TiposParcelamento[f.rng.Intn(len(TiposParcelamento))]
}

func (f *Faker) Saldo(min float64, max float64) float64 {
	if max <= min {
		return min
	}
	return min + f.rng.Float64()*(max-min)
}

func (f *Faker) Chance(probability float64) bool {
	return f.rng.Float64() < probability
}

func (f *Faker) IntBetween(min int, max int) int {
	if max <= min {
		return min
	}
	return min + f.rng.Intn(max-min+1)
}

func formatCNPJ(valor int64) string {
	s := fmt.Sprintf("%014d", valor)
	return s[:2] + "." + s[2:5] + "." + s[5:8] + "/" + s[8:12] + "-" + s[12:]
}
