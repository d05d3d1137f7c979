package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the process-wide log output.
type Options struct {
	Level string
	// Format is "json" or "console"; empty follows APP_ENV.
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var (
	baseMu sync.RWMutex
	base   = newBase(os.Stdout, "", zerolog.InfoLevel)
)

func newBase(w io.Writer, format string, level zerolog.Level) zerolog.Logger {
	if format == "" && strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
		format = "console"
	}
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Configure replaces the base logger used by New. When a file is set, output
// also goes to a lumberjack-rotated file; the returned closer releases it.
func Configure(o Options) (io.Closer, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(o.Level))
	if err != nil || o.Level == "" {
		level = zerolog.InfoLevel
	}
	var (
		w      io.Writer = os.Stdout
		closer io.Closer = io.NopCloser(nil)
	)
	if o.File != "" {
		rot := &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    o.MaxSizeMB,
			MaxBackups: o.MaxBackups,
			MaxAge:     o.MaxAgeDays,
		}
		w = zerolog.MultiLevelWriter(os.Stdout, rot)
		closer = rot
	}
	l := newBase(w, o.Format, level)
	baseMu.Lock()
	base = l
	baseMu.Unlock()
	return closer, nil
}

// ZerologLogger implements Logger using rs/zerolog.
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger derives a logger from the configured base with a component field.
func NewZerologLogger(component string) Logger {
	baseMu.RLock()
	l := base
	baseMu.RUnlock()
	return &ZerologLogger{log: l.With().Str("component", component).Logger()}
}

// NewWithWriter writes JSON lines to w at debug level.
func NewWithWriter(component string, w io.Writer) Logger {
	l := zerolog.New(w).With().Timestamp().Str("component", component).Logger()
	return &ZerologLogger{log: l}
}

func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Debugw(msg string, fields map[string]any) {
	l.log.Debug().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *ZerologLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}
