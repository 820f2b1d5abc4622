package bootstrap

import (
	"context"
	"log/slog"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"sirep/internal/audit"
	"sirep/internal/bootstrap/config"
	"sirep/internal/bootstrap/database"
	"sirep/internal/bootstrap/logging"
	"sirep/internal/domain/rescission"
	cacheinfra "sirep/internal/infrastructure/cache"
	"sirep/internal/infrastructure/collector"
	sqliterepo "sirep/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "sirep/internal/infrastructure/persistence/sqlite/uow"
	"sirep/internal/ports"
	"sirep/internal/simulation"
	"sirep/internal/usecase/capture"
	"sirep/internal/usecase/treatment"
	"sirep/internal/web"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewPlanRepository,
			fx.As(new(ports.PlanRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewTreatmentRepository,
			fx.As(new(ports.TreatmentRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewOccurrenceRepository,
			fx.As(new(ports.OccurrenceRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewAuditLogRepository,
			fx.As(new(ports.AuditLogRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewJobRunRepository,
			fx.As(new(ports.JobRunRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliteuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(
		fx.Annotate(
			cacheinfra.NewSQLiteCache,
			fx.As(new(ports.Cache)),
		),
	),
	fx.Provide(provideProfile),
	fx.Provide(provideFaker),
	fx.Provide(
		fx.Annotate(
			provideCapturaRecorder,
			fx.ResultTags(`name:"capturaRecorder"`),
		),
	),
	fx.Provide(
		fx.Annotate(
			provideTratamentoRecorder,
			fx.ResultTags(`name:"tratamentoRecorder"`),
		),
	),
	fx.Provide(provideCollector),
	fx.Provide(provideCaptureService),
	fx.Provide(provideTreatmentService),
	fx.Provide(provideServer),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideApp(cfg config.Config, db *gorm.DB) *App {
	return &App{
		Config: cfg,
		DB:     db,
	}
}

func provideProfile(ctx context.Context, cfg config.Config) (simulation.Profile, error) {
	profile, err := simulation.LoadProfile(cfg.Simulation.Profile)
	if err != nil {
		return simulation.Profile{}, err
	}
	if cfg.Simulation.Seed != 0 {
		profile.Seed = cfg.Simulation.Seed
	}
	logging.Info(
		logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx")),
		"simulation profile loaded",
		slog.String("path", cfg.Simulation.Profile),
		slog.Int64("seed", profile.Seed),
	)
	return profile, nil
}

func provideFaker(profile simulation.Profile) *simulation.Faker {
	return simulation.NewFaker(profile.Seed)
}

func provideCapturaRecorder(repo ports.AuditLogRepository) *audit.Recorder {
	return audit.NewRecorder(rescission.ContextGestao, repo)
}

func provideTratamentoRecorder(repo ports.AuditLogRepository) *audit.Recorder {
	return audit.NewRecorder(rescission.ContextTratamento, repo)
}

// provideCollector returns nil unless dry-run capture is enabled; a nil
// collector makes the capture engine run in simulation mode.
func provideCollector(cfg config.Config) ports.Collector {
	if !cfg.Capture.DryRun {
		return nil
	}
	return collector.NewSampleCollector()
}

type captureParams struct {
	fx.In

	Lc          fx.Lifecycle
	Plans       ports.PlanRepository
	Occurrences ports.OccurrenceRepository
	Jobs        ports.JobRunRepository
	Cache       ports.Cache
	Recorder    *audit.Recorder `name:"capturaRecorder"`
	Collector   ports.Collector
	Faker       *simulation.Faker
	Profile     simulation.Profile
	Cfg         config.Config
}

func provideCaptureService(p captureParams) *capture.Service {
	svc := capture.NewService(
		p.Plans,
		p.Occurrences,
		p.Jobs,
		p.Cache,
		p.Recorder,
		p.Collector,
		capture.NewRandomStrategy(p.Faker, p.Profile.Captura),
		capture.Config{
			TotalAlvos: p.Cfg.Capture.TotalAlvos,
			Velocidade: p.Cfg.Capture.Velocidade,
		},
	)
	p.Lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			svc.Close()
			return nil
		},
	})
	return svc
}

type treatmentParams struct {
	fx.In

	Lc          fx.Lifecycle
	Plans       ports.PlanRepository
	Treatments  ports.TreatmentRepository
	Occurrences ports.OccurrenceRepository
	Uow         ports.UnitOfWork
	Recorder    *audit.Recorder `name:"tratamentoRecorder"`
	Faker       *simulation.Faker
	Profile     simulation.Profile
}

func provideTreatmentService(p treatmentParams) *treatment.Service {
	svc := treatment.NewService(
		p.Plans,
		p.Treatments,
		p.Occurrences,
		p.Uow,
		p.Recorder,
		p.Faker,
		treatment.NewRandomStrategy(p.Faker, p.Profile.Tratamento),
	)
	p.Lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			svc.Close()
			return nil
		},
	})
	return svc
}

func provideServer(
	captureSvc *capture.Service,
	treatmentSvc *treatment.Service,
	plans ports.PlanRepository,
	occurrences ports.OccurrenceRepository,
	logs ports.AuditLogRepository,
) *web.Server {
	return web.NewServer(web.Options{
		Version:     Version,
		Capture:     captureSvc,
		Treatment:   treatmentSvc,
		Plans:       plans,
		Occurrences: occurrences,
		Logs:        logs,
	})
}
