package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the logging capability handed to every pipeline component.
// kv is a flat list of alternating keys and values.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, err error, kv ...any)
	With(kv ...any) Logger
}

type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

type Config struct {
	Level  string
	Format Format
	Quiet  bool
	Out    io.Writer
}

// New builds a zerolog backed Logger. Quiet raises the level to warn.
func New(cfg Config) *ZerologLogger {
	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}
	if cfg.Format != FormatJSON {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "2006-01-02 15:04:05"}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if cfg.Quiet && level < zerolog.WarnLevel {
		level = zerolog.WarnLevel
	}

	zl := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return &ZerologLogger{log: zl}
}

type ZerologLogger struct {
	log zerolog.Logger
}

func (l *ZerologLogger) Debug(msg string, kv ...any) {
	l.log.Debug().Fields(kv).Msg(msg)
}

func (l *ZerologLogger) Info(msg string, kv ...any) {
	l.log.Info().Fields(kv).Msg(msg)
}

func (l *ZerologLogger) Warn(msg string, kv ...any) {
	l.log.Warn().Fields(kv).Msg(msg)
}

func (l *ZerologLogger) Error(msg string, err error, kv ...any) {
	l.log.Error().Err(err).Fields(kv).Msg(msg)
}

func (l *ZerologLogger) With(kv ...any) Logger {
	return &ZerologLogger{log: l.log.With().Fields(kv).Logger()}
}

type NullLogger struct{}

func (NullLogger) Debug(msg string, kv ...any) {}

func (NullLogger) Info(msg string, kv ...any) {}

func (NullLogger) Warn(msg string, kv ...any) {}

func (NullLogger) Error(msg string, err error, kv ...any) {}

func (n NullLogger) With(kv ...any) Logger { return n }

// Duration renders d for log fields in milliseconds
func Duration(d time.Duration) int64 {
	return d.Milliseconds()
}
