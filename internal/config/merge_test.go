package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salarysys/payrun/internal/config"
)

// writeOverlay writes YAML content to a temp file and returns its path.
func writeOverlay(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestShallowMergeYAML_SingleSection(t *testing.T) {
	target := config.Default()
	overlay := writeOverlay(t, `
database:
  url: postgres://payroll@db/hr
`)

	require.NoError(t, config.ShallowMergeYAML(target, overlay))

	assert.Equal(t, "postgres://payroll@db/hr", target.Database.URL)
	// Fields the file does not name keep their values.
	assert.Equal(t, 4, target.Database.MaxConns)
	assert.Equal(t, 10, target.Database.ConnectTimeoutSeconds)
	assert.Equal(t, "info", target.Logging.Level)
	assert.Equal(t, 50, target.Batch.InitialSize)
}

func TestShallowMergeYAML_MultipleSections(t *testing.T) {
	target := config.Default()
	overlay := writeOverlay(t, `
batch:
  initial_size: 100
  max_size: 500
logging:
  level: debug
  format: json
metrics:
  textfile_path: /var/lib/node_exporter/payrun.prom
`)

	require.NoError(t, config.ShallowMergeYAML(target, overlay))

	assert.Equal(t, 100, target.Batch.InitialSize)
	assert.Equal(t, 500, target.Batch.MaxSize)
	assert.Equal(t, 10, target.Batch.MinSize)
	assert.Equal(t, "debug", target.Logging.Level)
	assert.Equal(t, "json", target.Logging.Format)
	assert.Equal(t, "/var/lib/node_exporter/payrun.prom", target.Metrics.TextfilePath)
}

func TestShallowMergeYAML_UnknownKeysIgnored(t *testing.T) {
	target := config.Default()
	overlay := writeOverlay(t, `
plugins:
  aws: {}
export:
  output_dir: /srv/exports
`)

	require.NoError(t, config.ShallowMergeYAML(target, overlay))
	assert.Equal(t, "/srv/exports", target.Export.OutputDir)
}

func TestShallowMergeYAML_EmptyFile(t *testing.T) {
	target := config.Default()
	overlay := writeOverlay(t, "# nothing here\n")

	require.NoError(t, config.ShallowMergeYAML(target, overlay))
	assert.Equal(t, config.Default().Batch, target.Batch)
}

func TestShallowMergeYAML_Errors(t *testing.T) {
	t.Run("nil target", func(t *testing.T) {
		err := config.ShallowMergeYAML(nil, "unused.yaml")
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		err := config.ShallowMergeYAML(config.Default(), filepath.Join(t.TempDir(), "absent.yaml"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		overlay := writeOverlay(t, "batch: [unclosed\n")
		err := config.ShallowMergeYAML(config.Default(), overlay)
		require.Error(t, err)
	})

	t.Run("wrong type leaves section untouched", func(t *testing.T) {
		target := config.Default()
		overlay := writeOverlay(t, `
batch:
  initial_size: lots
`)
		err := config.ShallowMergeYAML(target, overlay)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"batch"`)
		assert.Equal(t, 50, target.Batch.InitialSize)
	})
}
