// Package s3source mirrors a schema directory kept in an S3 bucket. Source
// downloads the schema files under a key prefix into a local directory the
// registry can open; Publisher uploads a local schema directory.
package s3source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/lychee-technology/astroschema/internal/registry"
	"github.com/lychee-technology/astroschema/internal/telemetry"
)

// ErrObjectNotFound is returned when a requested key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Config locates the bucket and says how to reach it.
type Config struct {
	Bucket       string
	Prefix       string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
	Timeout      time.Duration
}

// API is the subset of the S3 client used by Source.
type API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// NewClient builds an S3 client from cfg. Static credentials are used when
// given, the default AWS chain otherwise.
func NewClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	if cfg.Endpoint != "" {
		loadOpts = append(loadOpts, config.WithBaseEndpoint(cfg.Endpoint))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// Source reads schema files stored under a prefix of one bucket.
type Source struct {
	api     API
	bucket  string
	prefix  string
	timeout time.Duration
}

// New wraps api. The prefix is normalized to end with "/" unless empty.
func New(api API, cfg Config) *Source {
	return &Source{
		api:     api,
		bucket:  cfg.Bucket,
		prefix:  normalizePrefix(cfg.Prefix),
		timeout: cfg.Timeout,
	}
}

func normalizePrefix(prefix string) string {
	prefix = strings.TrimLeft(prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}

func (s *Source) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Bucket is the bucket name.
func (s *Source) Bucket() string { return s.bucket }

// Prefix is the normalized key prefix.
func (s *Source) Prefix() string { return s.prefix }

// Check verifies the bucket exists and is reachable.
func (s *Source) Check(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if _, err := s.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("head bucket %s: %w", s.bucket, err)
	}
	return nil
}

// wanted reports whether a name relative to the prefix belongs to a schema
// directory. Nested keys are ignored.
func wanted(name string) bool {
	if name == "" || strings.Contains(name, "/") {
		return false
	}
	return registry.IsSchemaFile(name) || name == registry.VersionFilename
}

// List returns the schema file names under the prefix, without it.
func (s *Source) List(ctx context.Context) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var names []string
	p := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", s.bucket, s.prefix, err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
			if wanted(name) {
				names = append(names, name)
			}
		}
	}
	return names, nil
}

// Fetch downloads one object by its name relative to the prefix.
func (s *Source) Fetch(ctx context.Context, name string) ([]byte, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	key := s.prefix + name
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NoSuchKey" || apiErr.ErrorCode() == "NotFound") {
			return nil, fmt.Errorf("%w: s3://%s/%s", ErrObjectNotFound, s.bucket, key)
		}
		return nil, fmt.Errorf("get s3://%s/%s: %w", s.bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", s.bucket, key, err)
	}
	return data, nil
}

// Sync downloads every schema file under the prefix into dir and returns
// the number of files written. Files are replaced atomically; local files
// the bucket no longer has are left alone.
func (s *Source) Sync(ctx context.Context, dir string) (int, error) {
	names, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create cache directory: %w", err)
	}

	for i, name := range names {
		data, err := s.Fetch(ctx, name)
		if err != nil {
			telemetry.EmitObjectTransfer(ctx, "download", i)
			return i, err
		}
		if err := writeAtomic(filepath.Join(dir, name), data); err != nil {
			telemetry.EmitObjectTransfer(ctx, "download", i)
			return i, err
		}
		zap.S().Debugw("downloaded schema object", "bucket", s.bucket, "key", path.Join(s.prefix, name))
	}

	telemetry.EmitObjectTransfer(ctx, "download", len(names))
	zap.S().Infow("synced schema directory from s3", "bucket", s.bucket, "prefix", s.prefix, "dir", dir, "files", len(names))
	return len(names), nil
}

func writeAtomic(dst string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("rename %s: %w", dst, err)
	}
	return nil
}
