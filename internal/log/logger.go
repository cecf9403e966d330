package log

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

type LogFormat uint8

const (
	TextFormat LogFormat = iota
	JSONFormat
)

const TimestampFormat = "2006-01-02T15:04:05.000000000Z07:00"

type Logger interface {
	Debug(msg string)
	Debugf(string, ...interface{})
	Info(msg string)
	Infof(string, ...interface{})
	Warn(msg string)
	Warnf(string, ...interface{})
	Error(msg string)
	Errorf(string, ...interface{})
	Fatal(msg string)
	Fatalf(string, ...interface{})
}

func (l LogFormat) String() string {
	switch l {
	case TextFormat:
		return "text"
	case JSONFormat:
		return "json"
	}
	return "unknown"
}

// ParseFormat maps a config string to a LogFormat.
func ParseFormat(s string) (LogFormat, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return TextFormat, nil
	case "json":
		return JSONFormat, nil
	}
	return 0, errors.New("unknown log format " + s)
}

// ParseLevel maps a config string to a zerolog level.
func ParseLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(strings.ToLower(s))
}

type zeroLogger struct {
	log zerolog.Logger
}

func (zl *zeroLogger) Debug(msg string) { zl.log.Debug().Msg(msg) }

func (zl *zeroLogger) Debugf(format string, args ...interface{}) { zl.log.Debug().Msgf(format, args...) }

func (zl *zeroLogger) Info(msg string) { zl.log.Info().Msg(msg) }

func (zl *zeroLogger) Infof(format string, args ...interface{}) { zl.log.Info().Msgf(format, args...) }

func (zl *zeroLogger) Warn(msg string) { zl.log.Warn().Msg(msg) }

func (zl *zeroLogger) Warnf(format string, args ...interface{}) { zl.log.Warn().Msgf(format, args...) }

func (zl *zeroLogger) Error(msg string) { zl.log.Error().Msg(msg) }

func (zl *zeroLogger) Errorf(format string, args ...interface{}) { zl.log.Error().Msgf(format, args...) }

func (zl *zeroLogger) Fatal(msg string) { zl.log.Fatal().Msg(msg) }

func (zl *zeroLogger) Fatalf(format string, args ...interface{}) { zl.log.Fatal().Msgf(format, args...) }

func newTextOutput(out io.Writer) io.Writer {
	return &zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    true,
		TimeFormat: TimestampFormat,
		PartsOrder: []string{
			zerolog.TimestampFieldName,
			zerolog.LevelFieldName,
			zerolog.MessageFieldName,
		},
	}
}

// CreateMainLogger builds the root logger. An empty path logs to stderr.
func CreateMainLogger(level zerolog.Level, format LogFormat, path string) (Logger, io.Closer, error) {
	var (
		out    io.Writer = os.Stderr
		closer io.Closer = io.NopCloser(nil)
	)
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, nil, err
		}
		out, closer = f, f
	}

	switch format {
	case TextFormat:
		out = newTextOutput(out)
	case JSONFormat:
	default:
		return nil, nil, errors.New("unknown formatter " + format.String())
	}

	zl := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return &zeroLogger{log: zl}, closer, nil
}

// CreateModuleLogger returns a child logger tagged with module.
func CreateModuleLogger(module string, l Logger) Logger {
	if zl, ok := l.(*zeroLogger); ok {
		return &zeroLogger{log: zl.log.With().Str("module", module).Logger()}
	}
	return l
}

// NewNopLogger discards everything.
func NewNopLogger() Logger {
	return &zeroLogger{log: zerolog.Nop()}
}

// NewWriterLogger logs JSON lines to w at debug level, for tests.
func NewWriterLogger(w io.Writer) Logger {
	return &zeroLogger{log: zerolog.New(w).Level(zerolog.DebugLevel)}
}
