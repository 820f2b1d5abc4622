package audit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"sirep/internal/errs"
	"sirep/internal/ports"
)

// ErrInvalidRange is returned when the export window ends before it
// starts.
var ErrInvalidRange = errors.New("intervalo inválido: data inicial posterior à final")

// Export renders the audit entries recorded between from and to
// (inclusive) as an aligned text table, oldest first. An empty contexto
// exports every context.
func Export(ctx context.Context, repo ports.AuditLogRepository, from time.Time, to time.Time, contexto string) (string, error) {
	if to.Before(from) {
		return "", ErrInvalidRange
	}

	entries, err := repo.Range(ctx, from, to, contexto)
	if err != nil {
		return "", errs.Wrap(err, "query audit range")
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATA/HORA\tCONTEXTO\tPLANO\tETAPA\tSTATUS\tMENSAGEM")
	for _, entry := range entries {
		etapa := ""
		if entry.EtapaNumero != nil {
			etapa = strconv.Itoa(*entry.EtapaNumero)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			entry.CreatedAt.Format("2006-01-02 15:04:05"),
			entry.Contexto,
			entry.NumeroPlano,
			etapa,
			entry.Status,
			entry.Mensagem,
		)
	}
	if err := w.Flush(); err != nil {
		return "", errs.Wrap(err, "render audit table")
	}
	return buf.String(), nil
}
