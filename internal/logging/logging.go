package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tejusbharadwaj/pvrelay/internal/apperrors"
	"github.com/tejusbharadwaj/pvrelay/internal/config"
)

// New builds the process logger. Logs go to stderr; stdout is reserved for
// the single result line.
func New(cfg config.LoggingConfig) (*logrus.Logger, error) {
	return NewWithOutput(cfg, os.Stderr)
}

// NewWithOutput is New with an explicit writer.
func NewWithOutput(cfg config.LoggingConfig, out io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(out)

	level := cfg.Level
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, apperrors.NewConfigError("LOG_LEVEL", "%v", err)
	}
	logger.SetLevel(lvl)

	switch strings.ToLower(cfg.Format) {
	case "", "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, apperrors.NewConfigError("LOG_FORMAT", "unsupported format %q", cfg.Format)
	}

	return logger, nil
}
