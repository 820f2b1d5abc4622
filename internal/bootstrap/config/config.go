package config

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"sirep/internal/bootstrap/logging"
	"sirep/internal/errs"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Database   DatabaseConfig   `mapstructure:"database"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Capture    CaptureConfig    `mapstructure:"capture"`
	Simulation SimulationConfig `mapstructure:"simulation"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type CaptureConfig struct {
	// TotalAlvos is the batch size of one simulated capture run.
	TotalAlvos int `mapstructure:"total_alvos"`
	// Velocidade scales the simulated delays up (>1 means faster).
	Velocidade int `mapstructure:"velocidade"`
	// DryRun selects the sample collector instead of simulation-only
	// capture; there is no terminal automation in this build.
	DryRun bool `mapstructure:"dry_run"`
}

type SimulationConfig struct {
	// Profile points at the optional TOML tuning file.
	Profile string `mapstructure:"profile"`
	Seed    int64  `mapstructure:"seed"`
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v := viper.New()
	setDefaults(logCtx, v)

	v.SetEnvPrefix("SIREP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			// Keep default and env-backed config when no file is provided.
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}

	if cfg.Database.DSN == "" {
		return Config{}, errors.New("database.dsn is required")
	}
	if cfg.Capture.TotalAlvos < 0 {
		return Config{}, errors.New("capture.total_alvos must not be negative")
	}
	if cfg.Capture.Velocidade < 0 {
		return Config{}, errors.New("capture.velocidade must not be negative")
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("http_addr", cfg.HTTP.Addr),
	)

	return cfg, nil
}

func setDefaults(ctx context.Context, v *viper.Viper) {
	if ctx == nil {
		return
	}

	v.SetDefault("app.name", "sirep")
	v.SetDefault("app.env", "local")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", ".data/sirep.sqlite")
	v.SetDefault("http.addr", ":8000")
	v.SetDefault("capture.total_alvos", 50)
	v.SetDefault("capture.velocidade", 1)
	v.SetDefault("capture.dry_run", false)
	v.SetDefault("simulation.profile", "")
	v.SetDefault("simulation.seed", 0)
}
