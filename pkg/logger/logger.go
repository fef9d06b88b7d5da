// Package logger provides opinionated logging capabilities for gemchat
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a console logger on stdout.
func NewLogger(debug bool) *zap.Logger {
	return newLogger(zapcore.AddSync(os.Stdout), debug, true)
}

// NewFileLogger returns a logger that appends to the file at path. The terminal
// UI owns stdout, so it logs here instead. An empty path discards all output.
func NewFileLogger(path string, debug bool) (*zap.Logger, func() error, error) {
	if path == "" {
		return zap.NewNop(), func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	return newLogger(zapcore.AddSync(f), debug, false), f.Close, nil
}

// NewWriterLogger returns a logger writing uncolored console output to w.
func NewWriterLogger(w io.Writer, debug bool) *zap.Logger {
	return newLogger(zapcore.AddSync(w), debug, false)
}

func newLogger(sink zapcore.WriteSyncer, debug, color bool) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if color {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		sink,
		level,
	)

	return zap.New(core, zap.AddCaller())
}
