package factory

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/lychee-technology/astroschema"
	"github.com/lychee-technology/astroschema/internal/s3source"
)

// Syncer copies a remote schema set into a local directory.
type Syncer interface {
	Sync(ctx context.Context, dir string) (int, error)
}

// S3SourceConfig translates the S3 section of config.
func S3SourceConfig(config *astroschema.Config) s3source.Config {
	return s3source.Config{
		Bucket:       config.S3.Bucket,
		Prefix:       config.S3.Prefix,
		Region:       config.S3.Region,
		Endpoint:     config.S3.Endpoint,
		AccessKey:    config.S3.AccessKey,
		SecretKey:    config.S3.SecretKey,
		UsePathStyle: config.S3.UsePathStyle,
		Timeout:      config.S3.Timeout,
	}
}

// NewS3Source builds the S3 schema source described by config.
func NewS3Source(ctx context.Context, config *astroschema.Config) (*s3source.Source, error) {
	cfg := S3SourceConfig(config)
	client, err := s3source.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}
	return s3source.New(client, cfg), nil
}

// NewRegistryWithConfig opens the registry the configuration points at.
// This is the primary way for callers to obtain a Registry.
//
// With S3 enabled the bucket is synced into config.S3.CacheDir first and
// the cache is opened. Otherwise config.Registry.SchemaDir is opened, or
// the bundled schema set when it is empty.
//
// Usage:
//
//	import (
//	    "github.com/lychee-technology/astroschema"
//	    "github.com/lychee-technology/astroschema/factory"
//	)
//
//	config := astroschema.DefaultConfig()
//	config.Registry.SchemaDir = "./schema"
//	reg, err := factory.NewRegistryWithConfig(ctx, config)
//	if err != nil {
//	    // handle error
//	}
func NewRegistryWithConfig(ctx context.Context, config *astroschema.Config) (*astroschema.Registry, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.S3.Enabled {
		src, err := NewS3Source(ctx, config)
		if err != nil {
			return nil, err
		}
		return NewRegistryFromSyncer(ctx, config, src)
	}
	if config.Registry.SchemaDir != "" {
		zap.S().Infow("using schema directory", "dir", config.Registry.SchemaDir)
		return astroschema.NewRegistry(config.Registry.SchemaDir)
	}
	zap.S().Infow("using bundled schemas")
	return astroschema.BundledRegistry()
}

// NewRegistryFromSyncer syncs src into config.S3.CacheDir and opens the
// result.
func NewRegistryFromSyncer(ctx context.Context, config *astroschema.Config, src Syncer) (*astroschema.Registry, error) {
	n, err := src.Sync(ctx, config.S3.CacheDir)
	if err != nil {
		if errors.Is(err, s3source.ErrObjectNotFound) {
			return nil, astroschema.NewError(astroschema.ErrorKindSchemaNotFound, astroschema.ErrCodeObjectNotFound,
				"schema object vanished during sync").WithCause(err)
		}
		return nil, fmt.Errorf("failed to sync schemas from s3: %w", err)
	}
	if n == 0 {
		return nil, astroschema.NewError(astroschema.ErrorKindSchemaNotFound, astroschema.ErrCodeObjectNotFound,
			fmt.Sprintf("no schema files under s3://%s/%s", config.S3.Bucket, config.S3.Prefix))
	}
	return astroschema.NewRegistry(config.S3.CacheDir)
}

// NewStructTypeWithConfig builds a record type against reg using the
// record defaults of config. Later opts override them.
func NewStructTypeWithConfig(config *astroschema.Config, reg *astroschema.Registry, source any, opts ...astroschema.TypeOption) (*astroschema.StructType, error) {
	base := []astroschema.TypeOption{
		astroschema.WithSchemaRegistry(reg),
		astroschema.WithExtendable(config.Struct.Extendable),
		astroschema.WithDuplicateUsesHash(config.Struct.DuplicateUsesHash),
	}
	return astroschema.NewStructType(source, append(base, opts...)...)
}
