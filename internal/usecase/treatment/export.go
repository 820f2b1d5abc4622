package treatment

import (
	"context"
	"errors"
	"strings"
	"time"

	"sirep/internal/errs"
)

// ErrInvalidRange is returned when the export window ends before it
// starts.
var ErrInvalidRange = errors.New("intervalo inválido: data inicial posterior à final")

// RescindedInscriptions lists the digits-only CNPJ/CEI inscriptions of
// every treatment rescinded inside the window, deduplicated in
// rescission order. The result feeds the Rescindidos TXT download.
func (s *Service) RescindedInscriptions(ctx context.Context, from time.Time, to time.Time) ([]string, error) {
	if to.Before(from) {
		return nil, ErrInvalidRange
	}

	planos, err := s.treatments.ListRescindedBetween(ctx, from, to)
	if err != nil {
		return nil, errs.Wrap(err, "list rescinded treatments")
	}

	seen := map[string]bool{}
	var inscricoes []string
	for _, plano := range planos {
		for _, cnpj := range plano.CNPJs {
			digits := onlyDigits(strings.TrimSpace(cnpj))
			if digits == "" || seen[digits] {
				continue
			}
			seen[digits] = true
			inscricoes = append(inscricoes, digits)
		}
	}
	return inscricoes, nil
}

// RescindedTXT renders the inscriptions one per line.
func (s *Service) RescindedTXT(ctx context.Context, from time.Time, to time.Time) (string, error) {
	inscricoes, err := s.RescindedInscriptions(ctx, from, to)
	if err != nil {
		return "", err
	}
	return strings.Join(inscricoes, "\n") + "\n", nil
}
