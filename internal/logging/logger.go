// internal/logging/logger.go
package logging

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbosity levels passed to logr's V().
const (
	DEFAULT = 0
	VERBOSE = 3
	DEBUG   = 4
	TRACE   = 5
)

// MaxVerbosity is the highest level zap can represent.
const MaxVerbosity = 127

// ParseLevel maps a level name or number to a logr verbosity.
func ParseLevel(level string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info", "default":
		return DEFAULT, nil
	case "verbose":
		return VERBOSE, nil
	case "debug":
		return DEBUG, nil
	case "trace":
		return TRACE, nil
	}
	v, err := strconv.Atoi(level)
	if err != nil || v < 0 || v > MaxVerbosity {
		return 0, fmt.Errorf("unknown log level %q", level)
	}
	return v, nil
}

// New builds a zap-backed logr.Logger. Development mode uses the console
// encoder with caller information; otherwise output is JSON.
func New(level string, development bool) (logr.Logger, error) {
	v, err := ParseLevel(level)
	if err != nil {
		return logr.Discard(), err
	}

	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Sampling = nil
	}
	// logr verbosity V(n) maps to zap level -n.
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-v))
	cfg.DisableStacktrace = !development

	zl, err := cfg.Build(zap.AddCaller())
	if err != nil {
		return logr.Discard(), fmt.Errorf("building zap logger: %w", err)
	}
	return zapr.NewLogger(zl), nil
}
