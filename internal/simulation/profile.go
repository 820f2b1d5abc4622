package simulation

import (
	"errors"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// CaptureProfile tunes the simulated collection run.
type CaptureProfile struct {
	TotalAlvos int     `toml:"total_alvos"`
	Velocidade int     `toml:"velocidade"`
	StepMinMS  int     `toml:"step_min_ms"`
	StepMaxMS  int     `toml:"step_max_ms"`
	SaldoMin   float64 `toml:"saldo_min"`
	SaldoMax   float64 `toml:"saldo_max"`

	// Discard odds per checkpoint, 0..1.
	ProbSituacaoEspecial float64 `toml:"prob_situacao_especial"`
	ProbLiquidacao       float64 `toml:"prob_liquidacao"`
	ProbGRDE             float64 `toml:"prob_grde"`
	ProbSituacaoFinal    float64 `toml:"prob_situacao_final"`
}

// TreatmentProfile tunes the treatment worker.
type TreatmentProfile struct {
	ThinkMinMS   int     `toml:"think_min_ms"`
	ThinkMaxMS   int     `toml:"think_max_ms"`
	ProbDescarte float64 `toml:"prob_descarte"`
}

type Profile struct {
	Version    int              `toml:"version"`
	Seed       int64            `toml:"seed"`
	Captura    CaptureProfile   `toml:"captura"`
	Tratamento TreatmentProfile `toml:"tratamento"`
}

// DefaultProfile mirrors the production timings and discard odds.
func DefaultProfile() Profile {
	return Profile{
		Version: 1,
		Captura: CaptureProfile{
			TotalAlvos:           50,
			Velocidade:           1,
			StepMinMS:            400,
			StepMaxMS:            800,
			SaldoMin:             1_000,
			SaldoMax:             150_000,
			ProbSituacaoEspecial: 0.05,
			ProbLiquidacao:       0.04,
			ProbGRDE:             0.04,
			ProbSituacaoFinal:    0.03,
		},
		Tratamento: TreatmentProfile{
			ThinkMinMS:   300,
			ThinkMaxMS:   900,
			ProbDescarte: 0.01,
		},
	}
}

// LoadProfile reads a TOML profile, filling omitted fields from the
// defaults. An empty path returns the defaults untouched.
func LoadProfile(path string) (Profile, error) {
	profile := DefaultProfile()

	path = strings.TrimSpace(path)
	if path == "" {
		return profile, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, err
	}
	if err := toml.Unmarshal(raw, &profile); err != nil {
		return Profile{}, err
	}
	if err := validateProfile(profile); err != nil {
		return Profile{}, err
	}
	return profile, nil
}

func validateProfile(profile Profile) error {
	if profile.Version != 1 {
		return errors.New("unsupported simulation profile: expected version = 1")
	}
	if profile.Captura.TotalAlvos < 0 {
		return errors.New("captura.total_alvos must not be negative")
	}
	if profile.Captura.StepMinMS > profile.Captura.StepMaxMS {
		return errors.New("captura.step_min_ms must not exceed captura.step_max_ms")
	}
	if profile.Tratamento.ThinkMinMS > profile.Tratamento.ThinkMaxMS {
		return errors.New("tratamento.think_min_ms must not exceed tratamento.think_max_ms")
	}
	for _, p := range []float64{
		profile.Captura.ProbSituacaoEspecial,
		profile.Captura.ProbLiquidacao,
		profile.Captura.ProbGRDE,
		profile.Captura.ProbSituacaoFinal,
		profile.Tratamento.ProbDescarte,
	} {
		if p < 0 || p > 1 {
			return errors.New("discard probabilities must be between 0 and 1")
		}
	}
	return nil
}
