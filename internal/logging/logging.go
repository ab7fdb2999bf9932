// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"support-chat/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Init builds a logger from cfg, installs it as log.Logger and sets the
// global level. Output goes to cfg.File when set, otherwise to fallback.
// The returned closer releases the log file.
func Init(cfg config.Logging, fallback io.Writer) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if s := strings.TrimSpace(cfg.Level); s != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(s))
		if err != nil {
			return zerolog.Nop(), nil, errors.Wrapf(err, "logging: invalid level %q", cfg.Level)
		}
		level = l
	}

	var (
		w                = fallback
		closer io.Closer = nopCloser{}
	)
	if path := strings.TrimSpace(cfg.File); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return zerolog.Nop(), nil, errors.Wrapf(err, "logging: open %s", path)
		}
		w, closer = f, f
	}
	if w == nil {
		w = io.Discard
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "json":
	case "text", "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: cfg.File != ""}
	default:
		_ = closer.Close()
		return zerolog.Nop(), nil, errors.Errorf("logging: unknown format %q", cfg.Format)
	}

	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(w).With().Timestamp().Logger()
	log.Logger = logger
	return logger, closer, nil
}
