package simulation

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func TestFakerRazaoSocialShape(t *testing.T) {
	f := NewFaker(1)
	for i := 0; i < 20; i++ {
		razao := f.RazaoSocial()
		if len(strings.Fields(razao)) < 3 {
			t.Fatalf("RazaoSocial() = %q, want prefix middle suffix", razao)
		}
	}
}

func TestFakerPeriodoFormat(t *testing.T) {
	f := NewFaker(2)
	pattern := regexp.MustCompile(`^\d{2}/\d{4} a \d{2}/\d{4}$`)
	for i := 0; i < 20; i++ {
		periodo := f.Periodo()
		if !pattern.MatchString(periodo) {
			t.Fatalf("Periodo() = %q", periodo)
		}
	}
}

func TestFakerCNPJFormats(t *testing.T) {
	f := NewFaker(3)
	pattern := regexp.MustCompile(`^\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}$`)

	for i := 0; i < 20; i++ {
		if got := f.CNPJ(); !pattern.MatchString(got) {
			t.Fatalf("CNPJ() = %q", got)
		}
		if got := f.CNPJComDV(); !pattern.MatchString(got) {
			t.Fatalf("CNPJComDV() = %q", got)
		}
		cnpjs := f.CNPJs()
		if len(cnpjs) < 1 || len(cnpjs) > 3 {
			t.Fatalf("CNPJs() len = %d", len(cnpjs))
		}
	}
}

func TestFakerBasesDistinct(t *testing.T) {
	f := NewFaker(4)
	for i := 0; i < 20; i++ {
		bases := f.Bases()
		if len(bases) < 1 || len(bases) > 3 {
			t.Fatalf("Bases() len = %d", len(bases))
		}
		seen := map[string]bool{}
		for _, b := range bases {
			if seen[b] {
				t.Fatalf("Bases() repeated %q in %v", b, bases)
			}
			seen[b] = true
		}
	}
}

func TestFakerNumeroCaptura(t *testing.T) {
	f := NewFaker(5)
	pattern := regexp.MustCompile(`^\d{9}$`)
	for i := 0; i < 20; i++ {
		numero := f.NumeroCaptura()
		if !pattern.MatchString(numero) {
			t.Fatalf("NumeroCaptura() = %q", numero)
		}
		year := numero[:4]
		if year < "2003" || year > "2025" {
			t.Fatalf("NumeroCaptura() year = %s", year)
		}
	}
}

func TestFakerDeterministicWithSameSeed(t *testing.T) {
	a, b := NewFaker(42), NewFaker(42)
	for i := 0; i < 10; i++ {
		if a.RazaoSocial() != b.RazaoSocial() {
			t.Fatalf("same seed must generate the same sequence")
		}
	}
}

func TestLoadProfileDefaults(t *testing.T) {
	profile, err := LoadProfile("")
	if err != nil {
		t.Fatalf("LoadProfile(\"\") error = %v", err)
	}
	if profile.Captura.TotalAlvos != 50 {
		t.Fatalf("default total_alvos = %d, want 50", profile.Captura.TotalAlvos)
	}
	if profile.Captura.ProbSituacaoEspecial != 0.05 {
		t.Fatalf("default prob_situacao_especial = %v", profile.Captura.ProbSituacaoEspecial)
	}
	if profile.Tratamento.ProbDescarte != 0.01 {
		t.Fatalf("default prob_descarte = %v", profile.Tratamento.ProbDescarte)
	}
}

func TestLoadProfileOverridesAndValidates(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "sim.toml")
	if err := os.WriteFile(good, []byte("version = 1\n[captura]\ntotal_alvos = 5\nstep_min_ms = 0\nstep_max_ms = 0\n"), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	profile, err := LoadProfile(good)
	if err != nil {
		t.Fatalf("LoadProfile() error = %v", err)
	}
	if profile.Captura.TotalAlvos != 5 {
		t.Fatalf("total_alvos = %d, want 5", profile.Captura.TotalAlvos)
	}
	if profile.Captura.ProbGRDE != 0.04 {
		t.Fatalf("omitted field must keep default, got %v", profile.Captura.ProbGRDE)
	}

	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(bad, []byte("version = 1\n[captura]\nprob_grde = 1.5\n"), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	if _, err := LoadProfile(bad); err == nil {
		t.Fatalf("LoadProfile() must reject probabilities above 1")
	}

	wrongVersion := filepath.Join(dir, "v2.toml")
	if err := os.WriteFile(wrongVersion, []byte("version = 2\n"), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	if _, err := LoadProfile(wrongVersion); err == nil {
		t.Fatalf("LoadProfile() must reject unknown versions")
	}
}
