// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/vdye/commitview/internal/config"
)

// Setup applies cfg to the standard logger. Output goes to stderr unless a
// log file is configured, in which case it is rotated with lumberjack. The
// returned closer must be closed on exit.
func Setup(cfg config.LogConfig, stderr io.Writer) (io.Closer, error) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	log.SetLevel(level)

	if cfg.File == "" {
		log.SetOutput(stderr)
		log.SetFormatter(&log.TextFormatter{
			DisableTimestamp: true,
			ForceColors:      isTerminal(stderr),
			DisableColors:    !isTerminal(stderr),
		})
		return nopCloser{}, nil
	}

	logger := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   false,
	}
	log.SetOutput(logger)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
		DisableColors: true,
	})
	return logger, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
