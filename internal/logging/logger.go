package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Numeric log levels. Console and file sinks are configured independently
// (global/output_log_level and global/file_log_level).
const (
	LevelSilent  = 0
	LevelError   = 1
	LevelWarning = 2
	LevelInfo    = 3
	LevelDebug   = 4
	LevelTrace   = 5
	LevelDump    = 6
)

// slog has no trace or dump levels; they sit below slog.LevelDebug so that a
// handler configured for them still passes everything above.
const (
	slogLevelTrace = slog.LevelDebug - 4
	slogLevelDump  = slog.LevelDebug - 8
	slogLevelOff   = slog.Level(128)
)

// Logger writes leveled, structured log entries to the console and to an
// optional rotating file sink. It is safe for concurrent use.
type Logger struct {
	console *slog.Logger
	file    *slog.Logger
	writer  *RotatingWriter
	mu      sync.Mutex  // protects writer on Close
	attrs   []slog.Attr // persistent attributes (task, phase)
}

// Options configures a Logger.
type Options struct {
	// OutputLevel is the numeric console level (0..6).
	OutputLevel int
	// FileLevel is the numeric file level (0..6). Ignored if FilePath is empty.
	FileLevel int
	// FilePath is the log file location. Empty disables the file sink.
	FilePath string
	// Rotation configures the file sink. Zero value uses DefaultRotationConfig.
	Rotation RotationConfig
	// ConsoleWriter overrides the console destination. Defaults to os.Stdout.
	ConsoleWriter io.Writer
}

// New creates a Logger from the given options.
//
// The console sink renders text without timestamps (the file carries them);
// the file sink renders JSON through a RotatingWriter.
func New(opts Options) (*Logger, error) {
	console := opts.ConsoleWriter
	if console == nil {
		console = os.Stdout
	}

	l := &Logger{
		console: slog.New(newConsoleHandler(console, toSlogLevel(opts.OutputLevel))),
		attrs:   make([]slog.Attr, 0),
	}

	if opts.FilePath != "" && opts.FileLevel > LevelSilent {
		rotation := opts.Rotation
		if rotation == (RotationConfig{}) {
			rotation = DefaultRotationConfig()
		}
		writer, err := NewRotatingWriter(opts.FilePath, rotation)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.writer = writer
		l.file = slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{
			Level:       toSlogLevel(opts.FileLevel),
			ReplaceAttr: renameCustomLevels,
		}))
	}

	return l, nil
}

// newConsoleHandler builds the console text handler. Timestamps are dropped
// and the custom trace/dump levels get proper names.
func newConsoleHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return renameCustomLevels(groups, a)
		},
	})
}

// renameCustomLevels maps the below-debug levels to TRACE and DUMP instead of
// slog's arithmetic names (DEBUG-4, DEBUG-8).
func renameCustomLevels(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	level, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}
	switch level {
	case slogLevelTrace:
		a.Value = slog.StringValue("TRACE")
	case slogLevelDump:
		a.Value = slog.StringValue("DUMP")
	}
	return a
}

// toSlogLevel converts a numeric mob level to the slog threshold that admits
// exactly the levels at or above it.
func toSlogLevel(level int) slog.Level {
	switch {
	case level <= LevelSilent:
		return slogLevelOff
	case level == LevelError:
		return slog.LevelError
	case level == LevelWarning:
		return slog.LevelWarn
	case level == LevelInfo:
		return slog.LevelInfo
	case level == LevelDebug:
		return slog.LevelDebug
	case level == LevelTrace:
		return slogLevelTrace
	default:
		return slogLevelDump
	}
}

// ClampLevel normalizes a configured level into the valid 0..6 range.
func ClampLevel(level int) int {
	if level < LevelSilent {
		return LevelSilent
	}
	if level > LevelDump {
		return LevelDump
	}
	return level
}

// WithTask returns a new Logger with the task name added to all log entries.
// This creates a child logger that inherits all existing attributes.
func (l *Logger) WithTask(name string) *Logger {
	return l.withAttr(slog.String("task", name))
}

// WithPhase returns a new Logger with the phase name added to all log entries.
// Phases are "clean", "fetch" and "build".
func (l *Logger) WithPhase(phase string) *Logger {
	return l.withAttr(slog.String("phase", phase))
}

// With returns a new Logger with arbitrary key-value attributes.
// Keys and values are provided as alternating arguments.
func (l *Logger) With(args ...any) *Logger {
	if len(args) == 0 {
		return l
	}

	newAttrs := make([]slog.Attr, 0, len(l.attrs)+len(args)/2)
	newAttrs = append(newAttrs, l.attrs...)

	for i := 0; i < len(args)-1; i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		newAttrs = append(newAttrs, slog.Any(key, args[i+1]))
	}

	return &Logger{
		console: l.console,
		file:    l.file,
		writer:  l.writer,
		attrs:   newAttrs,
	}
}

// withAttr creates a new Logger with an additional attribute.
func (l *Logger) withAttr(attr slog.Attr) *Logger {
	newAttrs := make([]slog.Attr, len(l.attrs)+1)
	copy(newAttrs, l.attrs)
	newAttrs[len(l.attrs)] = attr

	return &Logger{
		console: l.console,
		file:    l.file,
		writer:  l.writer,
		attrs:   newAttrs,
	}
}

// Error logs a message at error level with optional key-value pairs.
func (l *Logger) Error(msg string, args ...any) {
	l.log(slog.LevelError, msg, args...)
}

// Warn logs a message at warning level with optional key-value pairs.
func (l *Logger) Warn(msg string, args ...any) {
	l.log(slog.LevelWarn, msg, args...)
}

// Info logs a message at info level with optional key-value pairs.
func (l *Logger) Info(msg string, args ...any) {
	l.log(slog.LevelInfo, msg, args...)
}

// Debug logs a message at debug level with optional key-value pairs.
func (l *Logger) Debug(msg string, args ...any) {
	l.log(slog.LevelDebug, msg, args...)
}

// Trace logs a message at trace level. Used for individual external commands.
func (l *Logger) Trace(msg string, args ...any) {
	l.log(slogLevelTrace, msg, args...)
}

// Dump logs a message at dump level. Used for raw command output.
func (l *Logger) Dump(msg string, args ...any) {
	l.log(slogLevelDump, msg, args...)
}

// log combines persistent attributes with per-call arguments and dispatches
// to both sinks.
func (l *Logger) log(level slog.Level, msg string, args ...any) {
	allArgs := make([]any, 0, len(l.attrs)*2+len(args))
	for _, attr := range l.attrs {
		allArgs = append(allArgs, attr.Key, attr.Value.Any())
	}
	allArgs = append(allArgs, args...)

	ctx := context.Background()
	l.console.Log(ctx, level, msg, allArgs...)
	if l.file != nil {
		l.file.Log(ctx, level, msg, allArgs...)
	}
}

// Close flushes and closes the file sink. A console-only logger is a no-op.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.writer != nil {
		if err := l.writer.Close(); err != nil {
			return fmt.Errorf("failed to close log file: %w", err)
		}
		l.writer = nil
	}
	return nil
}

// Nop returns a Logger that discards all log output.
// Useful for testing or when logging is disabled.
func Nop() *Logger {
	return &Logger{
		console: slog.New(slog.NewTextHandler(io.Discard, nil)),
		attrs:   make([]slog.Attr, 0),
	}
}
