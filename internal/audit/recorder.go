// Package audit records pipeline history twice: an in-memory ring that
// status endpoints read without touching storage, and durable rows via
// the audit log repository. The ring survives storage outages; the
// durable write retries briefly and then drops.
package audit

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"sirep/internal/bootstrap/logging"
	"sirep/internal/domain/rescission"
	"sirep/internal/ports"
)

const (
	// RingLimit bounds the in-memory mirror.
	RingLimit = 200

	writeAttempts    = 4
	backoffStep      = 125 * time.Millisecond
	backoffCap       = 500 * time.Millisecond
	hydrateRetryWait = 5 * time.Second
)

// Recorder is the audit trail of one pipeline. Safe for concurrent use.
type Recorder struct {
	contexto string
	repo     ports.AuditLogRepository

	mu         sync.Mutex
	ring       []ports.AuditEntry
	hydrated   bool
	retryAfter time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

func NewRecorder(contexto string, repo ports.AuditLogRepository) *Recorder {
	return &Recorder{
		contexto: rescission.NormalizeContext(contexto),
		repo:     repo,
		now:      func() time.Time { return time.Now().UTC() },
		sleep:    time.Sleep,
	}
}

func (r *Recorder) Contexto() string {
	return r.contexto
}

// Record mirrors the entry into the ring and then writes it durably.
// The ring write never fails; the durable write retries on transient
// contention and drops after exhaustion.
func (r *Recorder) Record(ctx context.Context, entry ports.AuditEntry) {
	entry.Contexto = r.contexto
	entry.Status = strings.ToUpper(strings.TrimSpace(entry.Status))
	if entry.Status == "" {
		entry.Status = rescission.AuditInfo
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now()
	}

	r.mu.Lock()
	r.appendLocked(entry)
	r.mu.Unlock()

	r.persist(ctx, entry)
}

// Message is shorthand for a bare status+message entry.
func (r *Recorder) Message(ctx context.Context, status string, mensagem string) {
	r.Record(ctx, ports.AuditEntry{Status: status, Mensagem: mensagem})
}

// Recent returns the newest entries from the ring, hydrating it from
// storage on first use. limit <= 0 returns the whole ring.
func (r *Recorder) Recent(ctx context.Context, limit int) []ports.AuditEntry {
	r.hydrate(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.ring
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	out := make([]ports.AuditEntry, len(entries))
	copy(out, entries)
	return out
}

// Last returns the newest ring entry, if any.
func (r *Recorder) Last(ctx context.Context) (ports.AuditEntry, bool) {
	r.hydrate(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ring) == 0 {
		return ports.AuditEntry{}, false
	}
	return r.ring[len(r.ring)-1], true
}

func (r *Recorder) appendLocked(entry ports.AuditEntry) {
	r.ring = append(r.ring, entry)
	if len(r.ring) > RingLimit {
		r.ring = r.ring[len(r.ring)-RingLimit:]
	}
}

func (r *Recorder) persist(ctx context.Context, entry ports.AuditEntry) {
	var err error
	for attempt := 1; attempt <= writeAttempts; attempt++ {
		if _, err = r.repo.Add(ctx, entry); err == nil {
			return
		}
		if !ports.IsStorageBusy(err) {
			break
		}
		if attempt < writeAttempts {
			backoff := time.Duration(attempt) * backoffStep
			if backoff > backoffCap {
				backoff = backoffCap
			}
			r.sleep(backoff)
		}
	}

	logging.Warn(ctx, "audit entry dropped",
		slog.String("contexto", r.contexto),
		slog.String("status", entry.Status),
		slog.String("error", err.Error()),
	)
}

// hydrate backfills the ring from the newest durable rows, once. On
// storage failure the next attempt waits out a cooldown so a broken
// database does not get hammered by every status poll.
func (r *Recorder) hydrate(ctx context.Context) {
	r.mu.Lock()
	if r.hydrated || r.now().Before(r.retryAfter) {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	rows, err := r.repo.Recent(ctx, RingLimit, r.contexto, ports.AuditOrderDesc)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hydrated {
		return
	}
	if err != nil {
		r.retryAfter = r.now().Add(hydrateRetryWait)
		logging.Warn(ctx, "audit hydration failed",
			slog.String("contexto", r.contexto),
			slog.String("error", err.Error()),
		)
		return
	}

	// Rows arrive newest first; fold them in chronologically and keep
	// anything recorded while hydration was in flight on top.
	pending := r.ring
	r.ring = nil
	for i := len(rows) - 1; i >= 0; i-- {
		r.appendLocked(rows[i])
	}
	for _, entry := range pending {
		r.appendLocked(entry)
	}
	r.hydrated = true
}
