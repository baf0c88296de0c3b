// Package logger carries a logrus entry through context.Context so that
// request and build scoped fields follow the work they describe.
package logger

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	// G returns the logger stored in ctx, falling back to L.
	G = FromContext
	// L is the process wide logger entry.
	L = logrus.NewEntry(newLogger())
)

type loggerKey struct{}

// WithLogger returns a copy of ctx carrying entry.
func WithLogger(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey{}, entry.WithContext(ctx))
}

// WithFields returns a copy of ctx whose logger carries fields in
// addition to whatever the current logger already has.
func WithFields(ctx context.Context, fields logrus.Fields) context.Context {
	return WithLogger(ctx, G(ctx).WithFields(fields))
}

// FromContext retrieves the logger entry stored in ctx. If there is none
// the global logger L is returned with ctx attached.
func FromContext(ctx context.Context) *logrus.Entry {
	if entry, ok := ctx.Value(loggerKey{}).(*logrus.Entry); ok {
		return entry
	}
	return L.WithContext(ctx)
}

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.Formatter = formatter("text")
	return l
}

func formatter(format string) logrus.Formatter {
	if format == "json" {
		return &logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
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

// Options configures the global logger. Empty fields leave the current
// setting untouched.
type Options struct {
	Level  string
	Format string
	Output io.Writer
}

// Configure applies opts to the global logger.
func Configure(opts Options) error {
	return configure(L.Logger, opts)
}

func configure(l *logrus.Logger, opts Options) error {
	if opts.Level != "" {
		level, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return errors.Wrapf(err, "invalid log level %q", opts.Level)
		}
		l.SetLevel(level)
	}
	switch opts.Format {
	case "":
	case "json", "text", "fmt":
		l.Formatter = formatter(opts.Format)
	default:
		return errors.Errorf("invalid log format %q, expected text or json", opts.Format)
	}
	if opts.Output != nil {
		l.SetOutput(opts.Output)
	}
	return nil
}
