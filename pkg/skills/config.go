package skills

import (
	"context"
	"slices"

	"github.com/jingkaihe/skillcat/pkg/logger"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the catalog section of the skillcat configuration.
type Config struct {
	Root              string   `mapstructure:"root"`
	Excludes          []string `mapstructure:"excludes"`
	MaxAttachmentSize int64    `mapstructure:"max_attachment_size"`
}

// ConfigFromViper decodes the catalog settings from v. Values coming from
// environment variables are strings, so decoding is weakly typed.
func ConfigFromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Root:              ".",
		MaxAttachmentSize: DefaultMaxAttachmentSize,
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create config decoder")
	}

	settings := map[string]any{}
	for _, key := range []string{"root", "excludes", "max_attachment_size"} {
		if v.IsSet(key) {
			settings[key] = v.Get(key)
		}
	}
	if err := decoder.Decode(settings); err != nil {
		return nil, errors.Wrap(err, "failed to decode catalog configuration")
	}

	// Configured excludes replace the defaults rather than extending them.
	if !v.IsSet("excludes") {
		cfg.Excludes = slices.Clone(DefaultExcludes)
	}

	if cfg.Root == "" {
		return nil, errors.New("root cannot be empty")
	}
	return cfg, nil
}

// Options converts the configuration into catalog options.
func (c *Config) Options() []Option {
	return []Option{
		WithExcludes(c.Excludes...),
		WithMaxAttachmentSize(c.MaxAttachmentSize),
	}
}

// Initialize opens a catalog using the global viper configuration and
// logs the outcome of the first build.
func Initialize(ctx context.Context) (*Catalog, *Report, error) {
	cfg, err := ConfigFromViper(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}

	catalog, report, err := Open(ctx, cfg.Root, cfg.Options()...)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to build catalog from %s", cfg.Root)
	}

	entry := logger.G(ctx).WithField("root", catalog.Root()).
		WithField("skills", report.Skills).
		WithField("failures", len(report.Failures))
	if report.OK() {
		entry.Debug("catalog ready")
	} else {
		entry.Warn("catalog ready with skipped skills")
	}

	return catalog, report, nil
}
