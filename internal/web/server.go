// Package web exposes the operator-facing HTTP API: pipeline control,
// status polling and document downloads.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"sirep/internal/bootstrap/logging"
	"sirep/internal/ports"
	"sirep/internal/usecase/capture"
	"sirep/internal/usecase/treatment"
)

// CaptureService is the capture pipeline surface the API consumes.
type CaptureService interface {
	Start(ctx context.Context) error
	Pause(ctx context.Context)
	Resume(ctx context.Context)
	Status(ctx context.Context) capture.Status
}

// TreatmentService is the treatment pipeline surface the API consumes.
type TreatmentService interface {
	Seed(ctx context.Context, quantidade int) ([]uint64, error)
	Migrate(ctx context.Context) ([]uint64, error)
	Start(ctx context.Context)
	Pause(ctx context.Context)
	Resume(ctx context.Context)
	Status(ctx context.Context) (treatment.Status, error)
	Notepad(ctx context.Context, id uint64) (string, error)
	RescindedTXT(ctx context.Context, from time.Time, to time.Time) (string, error)
}

type Options struct {
	Version     string
	Capture     CaptureService
	Treatment   TreatmentService
	Plans       ports.PlanRepository
	Occurrences ports.OccurrenceRepository
	Logs        ports.AuditLogRepository
}

type Server struct {
	version     string
	capture     CaptureService
	treatment   TreatmentService
	plans       ports.PlanRepository
	occurrences ports.OccurrenceRepository
	logs        ports.AuditLogRepository
}

func NewServer(opts Options) *Server {
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	return &Server{
		version:     version,
		capture:     opts.Capture,
		treatment:   opts.Treatment,
		plans:       opts.Plans,
		occurrences: opts.Occurrences,
		logs:        opts.Logs,
	}
}

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/version", s.handleVersion)
	r.Get("/logs", s.handleLogs)
	r.Get("/logs/export", s.handleLogsExport)

	r.Route("/captura", func(r chi.Router) {
		r.Post("/iniciar", s.handleCapturaIniciar)
		r.Post("/pausar", s.handleCapturaPausar)
		r.Post("/continuar", s.handleCapturaContinuar)
		r.Get("/status", s.handleCapturaStatus)
		r.Get("/planos", s.handleCapturaPlanos)
		r.Get("/ocorrencias", s.handleCapturaOcorrencias)
	})

	r.Route("/tratamentos", func(r chi.Router) {
		r.Post("/seed", s.handleTratamentoSeed)
		r.Post("/migrar", s.handleTratamentoMigrar)
		r.Post("/iniciar", s.handleTratamentoIniciar)
		r.Post("/pausar", s.handleTratamentoPausar)
		r.Post("/continuar", s.handleTratamentoContinuar)
		r.Get("/status", s.handleTratamentoStatus)
		r.Get("/rescindidos-txt", s.handleRescindidosTXT)
		r.Get("/{id}/notepad", s.handleNotepad)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}

// Run serves the API until the context is cancelled, then drains.
func Run(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logging.Info(ctx, "http server listening", slog.String("addr", addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
