// Package logger provides context-aware structured logging built on logrus.
// Diagnostic logs go to stderr so they never interleave with the status
// lines commands print to stdout.
package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Supported log formats
const (
	FormatText = "fmt"
	FormatJSON = "json"
)

var (
	// G is a convenience alias for GetLogger
	G = GetLogger
	// L is the process logger, used when the context carries none
	L = logrus.NewEntry(newLogger())
)

type loggerKey struct{}

// WithLogger stores entry in the context so GetLogger returns it
func WithLogger(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey{}, entry.WithContext(ctx))
}

// WithCommand tags every log line emitted under ctx with the running command
func WithCommand(ctx context.Context, command string) context.Context {
	return WithLogger(ctx, G(ctx).WithField("command", command))
}

// GetLogger returns the entry stored in ctx, or L
func GetLogger(ctx context.Context) *logrus.Entry {
	if ctx == nil {
		return L
	}
	if entry, ok := ctx.Value(loggerKey{}).(*logrus.Entry); ok {
		return entry
	}
	return L.WithContext(ctx)
}

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	l.Formatter = formatter(FormatText)
	return l
}

func formatter(format string) logrus.Formatter {
	if format == FormatJSON {
		return &logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "logLevel",
				logrus.FieldKeyMsg:   "message",
			},
			TimestampFormat: time.RFC3339Nano,
		}
	}
	return &logrus.TextFormatter{
		TimestampFormat: time.RFC3339Nano,
		FullTimestamp:   true,
	}
}

// Options configures the process logger. Empty fields keep the current value.
type Options struct {
	Level  string
	Format string
	Output io.Writer
}

// Setup applies opts to L. Nothing is changed when any option is invalid.
func Setup(opts Options) error {
	var level logrus.Level
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return errors.Wrapf(err, "invalid log level %q", opts.Level)
		}
		level = parsed
	}
	switch opts.Format {
	case "", FormatText, "text", FormatJSON:
	default:
		return errors.Errorf("invalid log format %q: expected %s or %s", opts.Format, FormatText, FormatJSON)
	}

	if opts.Level != "" {
		L.Logger.SetLevel(level)
	}
	if opts.Format != "" {
		L.Logger.Formatter = formatter(opts.Format)
	}
	if opts.Output != nil {
		L.Logger.SetOutput(opts.Output)
	}
	return nil
}
