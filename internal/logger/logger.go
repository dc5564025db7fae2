// Package logger builds the process slog.Logger with either the standard
// library handlers or a zap core behind slog.
package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

type Backend string

const (
	BackendStd Backend = "std"
	BackendZap Backend = "zap"
)

type Config struct {
	Service string
	Env     string // dev|prod
	Backend Backend
	Debug   bool

	// Output defaults to stdout.
	Output io.Writer
}

// New returns a logger for cfg and installs it as the slog default.
// prod gets JSON at INFO; anything else gets text at DEBUG.
func New(cfg Config) *slog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.Service == "" {
		cfg.Service = "duocall"
	}

	level := slog.LevelInfo
	if cfg.Debug || cfg.Env != "prod" {
		level = slog.LevelDebug
	}

	var h slog.Handler
	switch cfg.Backend {
	case BackendZap:
		h = newZapHandler(cfg.Output, level)
	default:
		opts := &slog.HandlerOptions{Level: level}
		if cfg.Env == "prod" {
			h = slog.NewJSONHandler(cfg.Output, opts)
		} else {
			h = slog.NewTextHandler(cfg.Output, opts)
		}
	}

	l := slog.New(h).With(
		slog.String("service", cfg.Service),
		slog.String("env", cfg.Env),
		slog.String("instance_id", instanceID()),
	)
	slog.SetDefault(l)
	return l
}

func instanceID() string {
	hn, _ := os.Hostname()
	return hn + "-" + uuid.New().String()[:8]
}
