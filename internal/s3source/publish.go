package s3source

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/lychee-technology/astroschema/internal/registry"
	"github.com/lychee-technology/astroschema/internal/telemetry"
)

// Uploader is the part of manager.Uploader used by Publisher.
type Uploader interface {
	Upload(ctx context.Context, in *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Publisher uploads a schema directory under a key prefix.
type Publisher struct {
	up     Uploader
	bucket string
	prefix string
}

// NewPublisher wraps an uploader, usually manager.NewUploader(client).
func NewPublisher(up Uploader, cfg Config) *Publisher {
	return &Publisher{up: up, bucket: cfg.Bucket, prefix: normalizePrefix(cfg.Prefix)}
}

// NewClientPublisher builds a publisher on an S3 client.
func NewClientPublisher(client *s3.Client, cfg Config) *Publisher {
	return NewPublisher(manager.NewUploader(client), cfg)
}

func contentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return "application/json"
	case ".yaml", ".yml":
		return "application/yaml"
	}
	return "text/plain"
}

// Publish uploads the schema files of fsys, its VERSION file and its
// index file when present, and returns the number of objects written.
// The directory is checked first so a broken schema is never published.
func (p *Publisher) Publish(ctx context.Context, fsys fs.FS) (int, error) {
	if err := registry.CheckAll(fsys); err != nil {
		return 0, fmt.Errorf("refusing to publish invalid schema directory: %w", err)
	}
	names, err := registry.ListSchemaFiles(fsys)
	if err != nil {
		return 0, err
	}
	for _, extra := range []string{registry.VersionFilename, registry.IndexFilename} {
		if _, err := fs.Stat(fsys, extra); err == nil {
			names = append(names, extra)
		}
	}

	for i, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			telemetry.EmitObjectTransfer(ctx, "upload", i)
			return i, fmt.Errorf("read %s: %w", name, err)
		}
		key := p.prefix + name
		_, err = p.up.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(p.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(contentType(name)),
		})
		if err != nil {
			telemetry.EmitObjectTransfer(ctx, "upload", i)
			return i, fmt.Errorf("s3 upload %s: %w", key, err)
		}
		zap.S().Debugw("uploaded schema object", "bucket", p.bucket, "key", key)
	}

	telemetry.EmitObjectTransfer(ctx, "upload", len(names))
	zap.S().Infow("published schema directory to s3", "bucket", p.bucket, "prefix", p.prefix, "files", len(names))
	return len(names), nil
}
