package audit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"sirep/internal/ports"
)

func TestExportRendersWindowAsTable(t *testing.T) {
	base := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	etapa := 5
	repo := &fakeAuditRepo{rows: []ports.AuditEntry{
		{ID: 1, Contexto: "gestao", NumeroPlano: "1234567890", Status: "INFO", Mensagem: "Captura iniciada", CreatedAt: base},
		{ID: 2, Contexto: "tratamento", NumeroPlano: "TP000001", EtapaNumero: &etapa, Status: "DESCARTADO", Mensagem: "Plano descartado após revalidação", CreatedAt: base.Add(time.Hour)},
		{ID: 3, Contexto: "tratamento", NumeroPlano: "TP000002", Status: "INFO", Mensagem: "Fora da janela", CreatedAt: base.Add(48 * time.Hour)},
	}}

	txt, err := Export(context.Background(), repo, base, base.Add(2*time.Hour), "")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(txt, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("Export() = %d lines, want header + 2 rows:\n%s", len(lines), txt)
	}
	if !strings.HasPrefix(lines[0], "DATA/HORA") || !strings.Contains(lines[0], "MENSAGEM") {
		t.Fatalf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "gestao") || !strings.Contains(lines[1], "2024-05-10 09:00:00") {
		t.Fatalf("first row = %q", lines[1])
	}
	if !strings.Contains(lines[2], "TP000001") || !strings.Contains(lines[2], "5") {
		t.Fatalf("second row = %q", lines[2])
	}
	if strings.Contains(txt, "Fora da janela") {
		t.Fatalf("entry outside the window leaked into the export:\n%s", txt)
	}
}

func TestExportFiltersByContexto(t *testing.T) {
	base := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	repo := &fakeAuditRepo{rows: []ports.AuditEntry{
		{ID: 1, Contexto: "gestao", Status: "INFO", Mensagem: "Captura iniciada", CreatedAt: base},
		{ID: 2, Contexto: "tratamento", Status: "INFO", Mensagem: "Fila de tratamento pausada.", CreatedAt: base},
	}}

	txt, err := Export(context.Background(), repo, base, base.Add(time.Hour), "tratamento")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if strings.Contains(txt, "Captura iniciada") {
		t.Fatalf("gestao entry leaked into tratamento export:\n%s", txt)
	}
	if !strings.Contains(txt, "Fila de tratamento pausada.") {
		t.Fatalf("tratamento entry missing:\n%s", txt)
	}
}

func TestExportRejectsInvertedWindow(t *testing.T) {
	base := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	_, err := Export(context.Background(), &fakeAuditRepo{}, base, base.Add(-time.Hour), "")
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("Export() error = %v, want ErrInvalidRange", err)
	}
}
