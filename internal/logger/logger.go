package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"fyne.io/fyne/v2/data/binding"

	"github.com/ConserveLee/img-trace-macro/internal/constants"
)

// Options describe how the console side of the logger is configured.
type Options struct {
	Level  string
	Format string
	Output io.Writer
}

// NewConsole creates the structured console logger backed by slog.
func NewConsole(opts Options) (*slog.Logger, error) {
	lvl, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	handlerOpts := slog.HandlerOptions{
		Level:       lvl,
		ReplaceAttr: replaceTimeAttr,
	}

	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "text", "console":
		handler = slog.NewTextHandler(out, &handlerOpts)
	case "json":
		handler = slog.NewJSONHandler(out, &handlerOpts)
	default:
		return nil, fmt.Errorf("unsupported log format %q", opts.Format)
	}
	return slog.New(handler), nil
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unhandled log level %q", level)
	}
}

func replaceTimeAttr(_ []string, attr slog.Attr) slog.Attr {
	if attr.Key == slog.TimeKey && attr.Value.Kind() == slog.KindTime {
		attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
	}
	return attr
}

// AppLogger handles application logging to UI and console
type AppLogger struct {
	console     *slog.Logger
	dataBinding binding.StringList // nil when running headless
}

// NewAppLogger creates a new logger instance. Either argument may be nil.
func NewAppLogger(data binding.StringList, console *slog.Logger) *AppLogger {
	if console == nil {
		console = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{ReplaceAttr: replaceTimeAttr}))
	}
	return &AppLogger{
		console:     console,
		dataBinding: data,
	}
}

// Info logs an informational message
func (l *AppLogger) Info(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.console.Info(msg)
	l.appendUI("INFO", msg)
}

// Error logs an error message
func (l *AppLogger) Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.console.Error(msg)
	l.appendUI("ERROR", msg)
}

// Debug logs a debug message to the console only (to keep UI clean)
func (l *AppLogger) Debug(format string, args ...interface{}) {
	l.console.Debug(fmt.Sprintf(format, args...))
}

// appendUI handles the formatting and appending to the bound list
func (l *AppLogger) appendUI(level, msg string) {
	if l.dataBinding == nil {
		return
	}
	timestamp := time.Now().Format("15:04:05")
	l.dataBinding.Append(fmt.Sprintf("[%s] %s: %s", timestamp, level, msg))

	// Keep log size manageable
	list, _ := l.dataBinding.Get()
	if len(list) > constants.LogHistoryLimit {
		_ = l.dataBinding.Set(list[len(list)-constants.LogHistoryLimit:])
	}
}
