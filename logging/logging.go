// Package logging configures the structured, levelled loggers used throughout sifplan.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

const (
	// DebugLevel indicates a log message's level of criticality
	DebugLevel = iota
	// InfoLevel indicates a log message's level of criticality
	InfoLevel
	// WarnLevel indicates a log message's level of criticality
	WarnLevel
	// ErrorLevel indicates a log message's level of criticality
	ErrorLevel
)

// Config configures a Logger
type Config struct {
	Level  string `yaml:"level"`  // debug, info, warn or error. Defaults to info.
	Format string `yaml:"format"` // logfmt or json. Defaults to logfmt.
}

// LogLevelToString translates a log level enum to a string representation
func LogLevelToString(lvl int) string {
	switch lvl {
	case DebugLevel:
		return "debug"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	default:
		return "info"
	}
}

// ParseLevel translates a string representation of a log level to a log level enum
func ParseLevel(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "", "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	}
	return InfoLevel, fmt.Errorf("unknown log level %q", s)
}

func levelOption(lvl int) level.Option {
	switch lvl {
	case DebugLevel:
		return level.AllowDebug()
	case WarnLevel:
		return level.AllowWarn()
	case ErrorLevel:
		return level.AllowError()
	default:
		return level.AllowInfo()
	}
}

// New produces a Logger writing to w, filtered according to conf
func New(w io.Writer, conf Config) (log.Logger, error) {
	lvl, err := ParseLevel(conf.Level)
	if err != nil {
		return nil, err
	}
	var logger log.Logger
	switch strings.ToLower(conf.Format) {
	case "", "logfmt":
		logger = log.NewLogfmtLogger(log.NewSyncWriter(w))
	case "json":
		logger = log.NewJSONLogger(log.NewSyncWriter(w))
	default:
		return nil, fmt.Errorf("unknown log format %q", conf.Format)
	}
	logger = level.NewFilter(logger, levelOption(lvl))
	return log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller), nil
}

// Nop returns a Logger which discards everything
func Nop() log.Logger {
	return log.NewNopLogger()
}
