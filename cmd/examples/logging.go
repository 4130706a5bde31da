package main

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// setupWriter resolves the configured log sink. "file" rotates through
// lumberjack so a long-running host process doesn't grow one file
// without bound; anything else goes straight to stdout/stderr.
func setupWriter(cfg hostConfig) io.Writer {
	switch strings.ToLower(cfg.LogOutput) {
	case "file":
		if cfg.LogFile == "" {
			return os.Stdout
		}
		return &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
			Compress:   cfg.LogCompress,
		}
	case "stderr":
		return os.Stderr
	default:
		return os.Stdout
	}
}

func setupLogger(cfg hostConfig) *slog.Logger {
	return slog.New(slog.NewJSONHandler(setupWriter(cfg), &slog.HandlerOptions{Level: slog.LevelInfo}))
}
