package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger defines the interface for logging messages.
type Logger interface {
	Error(msg string, err error)
	Warn(msg string)
	Info(msg string)
	Debug(msg string)
}

type zeroLogger struct {
	zl zerolog.Logger
}

// New creates a console logger writing to stdout at the given level
// ("debug", "info", "warn", "error"). Unknown levels fall back to info.
func New(level string) Logger {
	return NewWithWriter(level, os.Stdout)
}

// NewWithWriter creates a logger writing to out.
func NewWithWriter(level string, out io.Writer) Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}
	zl := zerolog.New(output).
		Level(lvl).
		With().
		Timestamp().
		CallerWithSkipFrameCount(3).
		Logger()
	return &zeroLogger{zl: zl}
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return &zeroLogger{zl: zerolog.Nop()}
}

// Error logs an error message along with its cause.
func (l *zeroLogger) Error(msg string, err error) {
	l.zl.Error().Err(err).Msg(msg)
}

func (l *zeroLogger) Warn(msg string) {
	l.zl.Warn().Msg(msg)
}

func (l *zeroLogger) Info(msg string) {
	l.zl.Info().Msg(msg)
}

func (l *zeroLogger) Debug(msg string) {
	l.zl.Debug().Msg(msg)
}
