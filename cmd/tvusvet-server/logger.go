package main

import (
	"io"
	stdlog "log"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// newLogger writes JSON, or console output in development, at the given
// level. Unknown levels fall back to info.
func newLogger(env, level string, out io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if env == "development" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// redirectStdLog sends output from libraries that use the standard log
// package (the DICOM parser reports value read errors this way) through the
// process logger at warn level.
func redirectStdLog(logger zerolog.Logger) {
	stdlog.SetFlags(0)
	stdlog.SetOutput(stdLogWriter{log: logger.With().Str("component", "stdlog").Logger()})
}

type stdLogWriter struct {
	log zerolog.Logger
}

func (w stdLogWriter) Write(p []byte) (int, error) {
	w.log.Warn().Msg(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
