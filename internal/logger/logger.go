package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/hwmond/internal/errors"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var log zerolog.Logger

const (
	logFileMaxSizeMB = 10
	logFileBackups   = 3
	logFileMaxAgeDay = 14
)

type LogEvent struct {
	*zerolog.Event
}

func (e *LogEvent) Msg(msg string) {
	e.Event.Msg(msg)
}

func (e *LogEvent) Msgf(format string, v ...any) {
	e.Event.Msgf(format, v...)
}

func (e *LogEvent) Send() {
	e.Event.Send()
}

// Init initializes the logger. Console output always goes to stderr; when
// file is non-empty, entries are also appended to a size-rotated log file.
func Init(level, file string) error {
	console := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}

	var out io.Writer = console
	if file != "" {
		rotated := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    logFileMaxSizeMB,
			MaxBackups: logFileBackups,
			MaxAge:     logFileMaxAgeDay,
		}
		out = zerolog.MultiLevelWriter(console, rotated)
	}

	log = zerolog.New(out).With().Timestamp().Logger()

	return SetLevel(level)
}

// SetLevel sets the global log level from its name
func SetLevel(level string) error {
	switch strings.ToLower(level) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "", "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		return errors.WithData(errors.ErrInvalidLogLevel, level)
	}

	return nil
}

// Debug logs a debug message
func Debug() *LogEvent {
	return &LogEvent{log.Debug()}
}

// Info logs an info message
func Info() *LogEvent {
	return &LogEvent{log.Info()}
}

// Warn logs a warning message
func Warn() *LogEvent {
	return &LogEvent{log.Warn()}
}

// Error logs an error message
func Error() *LogEvent {
	return &LogEvent{log.Error()}
}

// ErrorWithCode logs an error message with a specific error code
func ErrorWithCode(err errors.Error) *LogEvent {
	return &LogEvent{log.Error().
		Str("error_code", string(err.Code())).
		Str("error_message", err.Error())}
}

// Fatal logs a fatal message and exits the program
func Fatal() *LogEvent {
	return &LogEvent{log.Fatal()}
}
