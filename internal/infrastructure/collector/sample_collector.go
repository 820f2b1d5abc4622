// Package collector provides capture-source adapters. Production runs
// scrape a terminal session; environments without terminal access use
// the sample collector, which returns a small fixed batch.
package collector

import (
	"context"
	"log/slog"

	"sirep/internal/bootstrap/logging"
	"sirep/internal/ports"
)

// SampleCollector is a dry-run capture source with two representative
// rows: one importable plan and one special-situation plan.
type SampleCollector struct{}

func NewSampleCollector() *SampleCollector {
	return &SampleCollector{}
}

var _ ports.Collector = (*SampleCollector)(nil)

func (c *SampleCollector) Collect(ctx context.Context, progress ports.CollectProgress) (ports.CollectResult, error) {
	logging.Info(ctx, "running capture in dry-run mode", slog.String("collector", "sample"))

	if progress != nil {
		progress(50, "Captura", "Lendo base de exemplo")
	}

	result := ports.CollectResult{
		Rows: []ports.CollectorRow{
			{
				Numero:      "1234567890",
				DtProposta:  "01/02/2024",
				Tipo:        "PR1",
				Situacao:    "P.RESC.",
				Resolucao:   "123/45",
				RazaoSocial: "Empresa Alfa Ltda",
				SaldoTotal:  "12.345,67",
				CNPJ:        "12.345.678/0001-90",
			},
			{
				Numero:      "2345678901",
				DtProposta:  "15/03/2024",
				Tipo:        "PR2",
				Situacao:    "SIT. ESPECIAL (Portal PO)",
				Resolucao:   "",
				RazaoSocial: "Empresa Beta S.A.",
				SaldoTotal:  "8.900,10",
				CNPJ:        "98.765.432/0001-10",
			},
		},
		Descartados974: 0,
	}

	if progress != nil {
		progress(100, "Captura", "Coleta de exemplo concluída")
	}
	return result, nil
}
