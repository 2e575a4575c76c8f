package observability

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig selects the logger output.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json or console
	File   string // optional path; rotated by size
}

// NewLogger builds the process logger. console format writes human-readable lines;
// a configured file receives JSON in addition to the primary writer.
func NewLogger(cfg LogConfig, stdout io.Writer) (zerolog.Logger, io.Closer, error) {
	if stdout == nil {
		stdout = os.Stdout
	}

	level := zerolog.InfoLevel
	if cfg.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
		}
		level = l
	}

	var primary io.Writer = stdout
	switch strings.ToLower(cfg.Format) {
	case "", "json":
	case "console":
		primary = zerolog.ConsoleWriter{Out: stdout, TimeFormat: time.RFC3339}
	default:
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	var closer io.Closer = nopCloser{}
	out := primary
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    100, // MB
			MaxBackups: 5,
			MaxAge:     14, // days
			Compress:   true,
		}
		closer = rotator
		out = zerolog.MultiLevelWriter(primary, rotator)
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
