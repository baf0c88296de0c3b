package skills

import (
	"slices"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
)

// DefaultMaxAttachmentSize caps the bytes returned by a single fetch.
const DefaultMaxAttachmentSize int64 = 10 << 20

// DefaultExcludes are attachment patterns that never describe skill content.
var DefaultExcludes = []string{
	"**/.DS_Store",
	"**/__pycache__/**",
	"**/*.pyc",
	"**/node_modules/**",
}

type options struct {
	excludes          []string
	maxAttachmentSize int64
	now               func() time.Time
}

func defaultOptions() *options {
	return &options{
		excludes:          slices.Clone(DefaultExcludes),
		maxAttachmentSize: DefaultMaxAttachmentSize,
		now:               time.Now,
	}
}

// Option configures a Builder or Catalog
type Option func(*options) error

// WithExcludes replaces the attachment exclude patterns. Patterns use
// doublestar syntax and match slash separated paths relative to the
// skill root, e.g. "scripts/**/*.pyc".
func WithExcludes(patterns ...string) Option {
	return func(o *options) error {
		for _, p := range patterns {
			if !doublestar.ValidatePattern(p) {
				return errors.Errorf("invalid exclude pattern %q", p)
			}
		}
		o.excludes = patterns
		return nil
	}
}

// WithMaxAttachmentSize sets the largest attachment Fetch will return.
// Zero or a negative value disables the limit.
func WithMaxAttachmentSize(n int64) Option {
	return func(o *options) error {
		o.maxAttachmentSize = n
		return nil
	}
}

// WithClock overrides the time source used to stamp build reports
func WithClock(now func() time.Time) Option {
	return func(o *options) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		o.now = now
		return nil
	}
}

func applyOptions(opts []Option) (*options, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}
