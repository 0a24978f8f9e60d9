package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v6"
	dotenv "github.com/joho/godotenv"
)

const (
	EvaluatorLocal = "local"
	EvaluatorGRPC  = "grpc"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	GRPCAddr string `env:"GRPC_ADDR" envDefault:"localhost:8081"`
	// local — считаем в процессе, grpc — отдаем выражение агенту
	Evaluator string `env:"EVALUATOR" envDefault:"local"`
	DBPath    string `env:"DB_PATH" envDefault:"./calculator.db"`

	// Версия кэша приложения, задается при деплое
	CacheVersion string `env:"CACHE_VERSION" envDefault:"custom-calc-v1"`

	JWTSecret      string        `env:"JWT_SECRET,required"`
	TokenTTL       time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	SessionIdleTTL time.Duration `env:"SESSION_IDLE_TTL" envDefault:"2h"`
	// Расписание выгрузки простаивающих сессий из памяти (формат cron)
	EvictionSchedule string `env:"EVICTION_SCHEDULE" envDefault:"@every 10m"`

	DisplayLogSize   int    `env:"DISPLAY_LOG_SIZE" envDefault:"5"`
	Precision        int    `env:"PRECISION" envDefault:"8"`
	DefaultAngleMode string `env:"DEFAULT_ANGLE_MODE" envDefault:"deg"`
	FormulasFile     string `env:"FORMULAS_FILE"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Загружаем .env (если он есть) и переменные окружения
func LoadConfig(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	if err := dotenv.Load(files...); err != nil {
		slog.Warn("env file not loaded, using process environment", "files", files, "error", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	slog.Info("Config loaded", "http", cfg.HTTPAddr, "evaluator", cfg.Evaluator, "cache_version", cfg.CacheVersion)
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DisplayLogSize <= 0 {
		return errors.New("DISPLAY_LOG_SIZE must be positive")
	}
	if c.Precision < 0 || c.Precision > 15 {
		return fmt.Errorf("PRECISION out of range: %d", c.Precision)
	}
	if c.Evaluator != EvaluatorLocal && c.Evaluator != EvaluatorGRPC {
		return fmt.Errorf("unknown EVALUATOR %q", c.Evaluator)
	}
	if c.DefaultAngleMode != "deg" && c.DefaultAngleMode != "rad" {
		return fmt.Errorf("unknown DEFAULT_ANGLE_MODE %q", c.DefaultAngleMode)
	}
	if c.CacheVersion == "" {
		return errors.New("CACHE_VERSION is not set")
	}
	if c.TokenTTL <= 0 || c.SessionIdleTTL <= 0 {
		return errors.New("TOKEN_TTL and SESSION_IDLE_TTL must be positive")
	}
	return nil
}
