package skills

import (
	"slices"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromViper(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := ConfigFromViper(viper.New())
		require.NoError(t, err)
		assert.Equal(t, ".", cfg.Root)
		assert.Equal(t, DefaultExcludes, cfg.Excludes)
		assert.Equal(t, DefaultMaxAttachmentSize, cfg.MaxAttachmentSize)
	})

	t.Run("explicit values", func(t *testing.T) {
		v := viper.New()
		v.Set("root", "/srv/skills")
		v.Set("excludes", []string{"**/*.bak"})
		v.Set("max_attachment_size", 1024)

		cfg, err := ConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "/srv/skills", cfg.Root)
		assert.Equal(t, []string{"**/*.bak"}, cfg.Excludes)
		assert.Equal(t, int64(1024), cfg.MaxAttachmentSize)
	})

	t.Run("string values from the environment", func(t *testing.T) {
		v := viper.New()
		v.Set("excludes", "**/*.bak,**/*.tmp")
		v.Set("max_attachment_size", "2048")

		cfg, err := ConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, []string{"**/*.bak", "**/*.tmp"}, cfg.Excludes)
		assert.Equal(t, int64(2048), cfg.MaxAttachmentSize)
	})

	t.Run("configured excludes leave the defaults untouched", func(t *testing.T) {
		defaults := slices.Clone(DefaultExcludes)

		v := viper.New()
		v.Set("excludes", []string{"**/*.bak"})
		cfg, err := ConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, []string{"**/*.bak"}, cfg.Excludes)
		assert.Equal(t, defaults, DefaultExcludes)

		cfg.Excludes[0] = "changed"
		cfg, err = ConfigFromViper(viper.New())
		require.NoError(t, err)
		cfg.Excludes[0] = "changed"
		assert.Equal(t, defaults, DefaultExcludes)
	})

	t.Run("empty root", func(t *testing.T) {
		v := viper.New()
		v.Set("root", "")
		_, err := ConfigFromViper(v)
		assert.Error(t, err)
	})
}

func TestConfigOptions(t *testing.T) {
	root := scenarioTree(t)
	writeFile(t, root, "experimental/nano-banana-pro/scripts/notes.bak", "")

	cfg := &Config{Root: root, Excludes: []string{"**/*.bak"}, MaxAttachmentSize: 4}
	c, _ := openCatalog(t, cfg.Root, cfg.Options()...)

	rec, err := c.Get("nano-banana-pro")
	require.NoError(t, err)
	assert.Equal(t, []string{"scripts/generate_image.py"}, rec.Attachments)

	_, err = c.Fetch(t.Context(), "nano-banana-pro", "scripts/generate_image.py")
	assert.True(t, IsAttachmentTooLarge(err))
}
