// Package sysutil holds process-level helpers shared by the booking commands.
package sysutil

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ParseLevel maps a LOG_LEVEL value onto a zerolog level. Blank and unknown
// values fall back to info; "warning" is accepted for warn.
func ParseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || s == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// SetupLogger installs the global logger for a booking process and returns
// it. Lines are JSON on w (stderr when nil) unless pretty is set, in which
// case a console writer is used and colors are dropped when NO_COLOR is
// present. Every line carries the process name.
func SetupLogger(w io.Writer, level string, pretty bool, process string) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	zerolog.SetGlobalLevel(ParseLevel(level))
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if pretty {
		_, noColor := os.LookupEnv("NO_COLOR")
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: noColor}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Str("process", process).Logger()
	return log.Logger
}

// FirstNonEmpty returns the first argument that is not blank, unmodified,
// or "" when there is none.
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
