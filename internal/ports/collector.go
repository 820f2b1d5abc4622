package ports

import (
	"context"
	"errors"
)

// ErrCollectorUnavailable marks the capture source as not usable in the
// current environment; the capture engine falls back to simulation.
var ErrCollectorUnavailable = errors.New("capture collector unavailable")

// CollectorRow is one plan row scraped from the external system, still
// in screen-text form. Parsing into typed fields happens in the engine.
type CollectorRow struct {
	Numero      string
	DtProposta  string
	Tipo        string
	Situacao    string
	Resolucao   string
	RazaoSocial string
	SaldoTotal  string
	CNPJ        string
}

// CollectResult is the structured batch returned by one collection run.
type CollectResult struct {
	Rows           []CollectorRow
	Descartados974 int
	RawLines       []string
}

// CollectProgress reports collection progress. Callbacks may arrive from
// an arbitrary goroutine; percent is 0..100 and may repeat or regress
// (the engine clamps it monotonic).
type CollectProgress func(percent int, etapa string, mensagem string)

// Collector is the external capture source boundary (terminal
// automation in production). Collect blocks for the whole run; there is
// no timeout imposed here, callers offload it off their run loop.
type Collector interface {
	Collect(ctx context.Context, progress CollectProgress) (CollectResult, error)
}
