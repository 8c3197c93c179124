// Package logger assembles the slog pipeline used across the application.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	slogsentry "github.com/samber/slog-sentry/v2"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/sabordigital/zappedido/pkg/config"
)

// New builds the root logger: level and format from config, optional rotated
// file output, sensitive-attribute masking, and Sentry fan-out for warnings
// and above when enabled.
func New(cfg config.Config) *slog.Logger {
	level := parseLevel(cfg.Logger.Level)

	var out io.Writer = os.Stdout
	if cfg.Logger.File.Enabled && cfg.Logger.File.Path != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.Logger.File.Path,
			MaxSize:    cfg.Logger.File.MaxSizeMB,
			MaxBackups: cfg.Logger.File.MaxBackups,
			MaxAge:     cfg.Logger.File.MaxAgeDays,
			Compress:   true,
		})
	}

	opts := &slog.HandlerOptions{Level: level}

	var base slog.Handler
	if strings.EqualFold(cfg.Logger.Format, "json") {
		base = slog.NewJSONHandler(out, opts)
	} else {
		base = slog.NewTextHandler(out, opts)
	}

	handler := slog.Handler(NewMaskingHandler(base))

	if cfg.Sentry.Enabled {
		sentryHandler := slogsentry.Option{Level: slog.LevelWarn}.NewSentryHandler()
		handler = newFanoutHandler(handler, sentryHandler)
	}

	return slog.New(handler)
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
