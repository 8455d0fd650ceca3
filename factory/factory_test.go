package factory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lychee-technology/astroschema"
	"github.com/lychee-technology/astroschema/internal/s3source"
)

// ---------------------------------------------------------------------------
// Fake Syncer for testing
// ---------------------------------------------------------------------------

type fakeSyncer struct {
	files map[string]string
	err   error
	calls int
}

func (f *fakeSyncer) Sync(ctx context.Context, dir string) (int, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	for name, content := range f.files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return 0, err
		}
	}
	return len(f.files), nil
}

func TestNewRegistryWithConfig(t *testing.T) {
	t.Run("bundled", func(t *testing.T) {
		reg, err := NewRegistryWithConfig(context.Background(), astroschema.DefaultConfig())
		require.NoError(t, err)
		assert.True(t, reg.Has("source"))
		assert.Equal(t, "", reg.Dir())
	})

	t.Run("schema directory", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "galaxy.json"), []byte(`{"title": "galaxy"}`), 0o644))

		config := astroschema.DefaultConfig()
		config.Registry.SchemaDir = dir
		reg, err := NewRegistryWithConfig(context.Background(), config)
		require.NoError(t, err)
		assert.Equal(t, []string{"galaxy"}, reg.Titles())
		assert.Equal(t, dir, reg.Dir())
	})

	t.Run("invalid config", func(t *testing.T) {
		config := astroschema.DefaultConfig()
		config.S3.Enabled = true
		_, err := NewRegistryWithConfig(context.Background(), config)
		var configErr *astroschema.ConfigError
		require.ErrorAs(t, err, &configErr)
		assert.Equal(t, "s3.bucket", configErr.Field)
	})
}

func TestNewRegistryFromSyncer(t *testing.T) {
	newConfig := func(t *testing.T) *astroschema.Config {
		config := astroschema.DefaultConfig()
		config.S3.Enabled = true
		config.S3.Bucket = "schemas"
		config.S3.CacheDir = filepath.Join(t.TempDir(), "cache")
		return config
	}

	t.Run("synced", func(t *testing.T) {
		config := newConfig(t)
		src := &fakeSyncer{files: map[string]string{
			"VERSION":     "1.0.0",
			"galaxy.json": `{"title": "galaxy"}`,
		}}
		reg, err := NewRegistryFromSyncer(context.Background(), config, src)
		require.NoError(t, err)
		assert.Equal(t, 1, src.calls)
		assert.Equal(t, "1.0.0", reg.Version())
		assert.Equal(t, config.S3.CacheDir, reg.Dir())
	})

	t.Run("empty bucket", func(t *testing.T) {
		_, err := NewRegistryFromSyncer(context.Background(), newConfig(t), &fakeSyncer{})
		require.Error(t, err)
		assert.True(t, astroschema.IsSchemaNotFoundError(err))
	})

	t.Run("missing object", func(t *testing.T) {
		src := &fakeSyncer{err: fmt.Errorf("%w: s3://schemas/schema/x.json", s3source.ErrObjectNotFound)}
		_, err := NewRegistryFromSyncer(context.Background(), newConfig(t), src)
		require.Error(t, err)
		e, ok := astroschema.AsError(err)
		require.True(t, ok)
		assert.Equal(t, astroschema.ErrCodeObjectNotFound, e.Code)
		assert.ErrorIs(t, err, s3source.ErrObjectNotFound)
	})

	t.Run("network failure", func(t *testing.T) {
		boom := errors.New("connection reset")
		_, err := NewRegistryFromSyncer(context.Background(), newConfig(t), &fakeSyncer{err: boom})
		assert.ErrorIs(t, err, boom)
		assert.False(t, astroschema.IsSchemaNotFoundError(err))
	})
}

func TestS3SourceConfig(t *testing.T) {
	config := astroschema.DefaultConfig()
	config.S3.Bucket = "schemas"
	config.S3.Endpoint = "http://localhost:9000"
	config.S3.UsePathStyle = true
	config.S3.Timeout = 5 * time.Second

	got := S3SourceConfig(config)
	assert.Equal(t, s3source.Config{
		Bucket:       "schemas",
		Prefix:       "schema/",
		Region:       "us-east-1",
		Endpoint:     "http://localhost:9000",
		UsePathStyle: true,
		Timeout:      5 * time.Second,
	}, got)
}

func TestNewStructTypeWithConfig(t *testing.T) {
	reg, err := astroschema.BundledRegistry()
	require.NoError(t, err)

	config := astroschema.DefaultConfig()
	config.Struct.Extendable = false
	config.Struct.DuplicateUsesHash = false

	typ, err := NewStructTypeWithConfig(config, reg, "source")
	require.NoError(t, err)
	assert.False(t, typ.Extendable())
	assert.False(t, typ.DuplicateUsesHash())

	s, err := typ.New(map[string]any{"alias": 0, "name": "x"})
	require.NoError(t, err)
	assert.True(t, astroschema.IsUnknownFieldError(s.Set("colour", "red")))

	typ, err = NewStructTypeWithConfig(config, reg, "source", astroschema.WithExtendable(true))
	require.NoError(t, err)
	assert.True(t, typ.Extendable(), "explicit options win")
}
