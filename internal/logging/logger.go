// Package logging builds the diagnostic logger. Output goes to
// .workbench/logs/workbench.log as JSON lines since the TUI owns the
// terminal.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kingrea/workbench/internal/config"
)

// FileName is the diagnostic log inside the logs directory.
const FileName = "workbench.log"

// ParseLevel maps a level name to a zap level. Empty means info.
func ParseLevel(value string) (zapcore.Level, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(value))); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("logging: unknown level %q", value)
	}
	return lvl, nil
}

// Path returns the log file location for projectDir.
func Path(projectDir string) string {
	return filepath.Join(projectDir, config.WorkbenchDir, "logs", FileName)
}

// New builds a JSON file logger for the project directory.
func New(projectDir, level string) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	path := Path(projectDir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Sampling = nil
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: build logger: %w", err)
	}
	return logger.Named("workbench"), nil
}

// NewOrNop is New that falls back to a no-op logger, returning the
// construction error for the caller to report.
func NewOrNop(projectDir, level string) (*zap.Logger, error) {
	logger, err := New(projectDir, level)
	if err != nil {
		return zap.NewNop(), err
	}
	return logger, nil
}
