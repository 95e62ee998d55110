// Package log provides structured logging for the merge engine.
//
// Two surfaces are available:
//   - Logger: zap-backed structured logging for the CLI and long reports
//   - Console: the single-line sink the merge core writes its mapping
//     report to; defaults to a no-op when the caller does not care
package log

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap.SugaredLogger for CLI and debug surfaces.
type Logger struct {
	sugar *zap.SugaredLogger
	level zapcore.Level
}

// NewLogger creates a logger writing JSON lines to os.Stderr.
func NewLogger() *Logger {
	return newLoggerWithWriter(os.Stderr, zapcore.InfoLevel)
}

// NewVerboseLogger creates a logger that also emits debug entries.
func NewVerboseLogger() *Logger {
	return newLoggerWithWriter(os.Stderr, zapcore.DebugLevel)
}

// WithOutput returns a logger with the same level writing to w.
// Used by tests to capture output.
func (l *Logger) WithOutput(w io.Writer) *Logger {
	return newLoggerWithWriter(w, l.level)
}

func newLoggerWithWriter(w io.Writer, level zapcore.Level) *Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(w),
		level,
	)
	return &Logger{sugar: zap.New(core).Sugar(), level: level}
}

// Debugf logs a debug message with printf-style formatting.
func (l *Logger) Debugf(template string, args ...any) {
	l.sugar.Debugf(template, args...)
}

// Infof logs an info message with printf-style formatting.
func (l *Logger) Infof(template string, args ...any) {
	l.sugar.Infof(template, args...)
}

// Warnf logs a warning message with printf-style formatting.
func (l *Logger) Warnf(template string, args ...any) {
	l.sugar.Warnf(template, args...)
}

// Errorf logs an error message with printf-style formatting.
func (l *Logger) Errorf(template string, args ...any) {
	l.sugar.Errorf(template, args...)
}

// With returns a Logger with additional context fields.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{sugar: l.sugar.With(args...), level: l.level}
}

// Console is the line sink the merge core reports through. The core
// never emits structured fields; it prints human-readable lines
// describing the mapping it built and the entries it synthesized.
type Console interface {
	Println(line string)
}

// Nop returns a Console that discards every line. This is the default
// when no console is configured.
func Nop() Console {
	return nopConsole{}
}

type nopConsole struct{}

func (nopConsole) Println(string) {}

// Writer returns a Console writing each line to w. Write errors are
// ignored; console output never fails a merge.
func Writer(w io.Writer) Console {
	return writerConsole{w: w}
}

type writerConsole struct {
	w io.Writer
}

func (c writerConsole) Println(line string) {
	fmt.Fprintln(c.w, line)
}

// LoggerConsole returns a Console routing lines through l at debug
// level, for --verbose merges.
func LoggerConsole(l *Logger) Console {
	return loggerConsole{l: l}
}

type loggerConsole struct {
	l *Logger
}

func (c loggerConsole) Println(line string) {
	c.l.Debugf("%s", line)
}
