package s3source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"testing"
	"testing/fstest"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lychee-technology/astroschema/internal/telemetry"
)

// fakeS3 serves objects from memory, two keys per listing page.
type fakeS3 struct {
	objects   map[string]string
	listCalls int
	headErr   error
}

func (f *fakeS3) keys(prefix string) []string {
	var out []string
	for k := range f.objects {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.listCalls++
	keys := f.keys(aws.ToString(in.Prefix))
	start := 0
	if in.ContinuationToken != nil {
		start, _ = strconv.Atoi(*in.ContinuationToken)
	}
	end := start + 2
	if end > len(keys) {
		end = len(keys)
	}
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader([]byte(body)))}, nil
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func newFake() *fakeS3 {
	return &fakeS3{objects: map[string]string{
		"schema/VERSION":                "0.4.0\n",
		"schema/source.json":            `{"title": "source", "type": "object"}`,
		"schema/quantity.yaml":          "title: quantity\ntype: object\n",
		"schema/astroschema_index.json": `{"title": "astroschema"}`,
		"schema/README.md":              "# schemas",
		"schema/old/source.json":        `{"title": "old"}`,
		"other/entry.json":              `{"title": "entry"}`,
	}}
}

func TestNormalizePrefix(t *testing.T) {
	tests := map[string]string{
		"":         "",
		"schema":   "schema/",
		"schema/":  "schema/",
		"/a/b":     "a/b/",
		"/schema/": "schema/",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizePrefix(in), "prefix %q", in)
	}
}

func TestList(t *testing.T) {
	fake := newFake()
	src := New(fake, Config{Bucket: "b", Prefix: "schema"})

	names, err := src.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"VERSION", "quantity.yaml", "source.json"}, names)
	assert.Greater(t, fake.listCalls, 1, "listing should page")
}

func TestFetch(t *testing.T) {
	src := New(newFake(), Config{Bucket: "b", Prefix: "schema/"})

	data, err := src.Fetch(context.Background(), "VERSION")
	require.NoError(t, err)
	assert.Equal(t, "0.4.0\n", string(data))

	_, err = src.Fetch(context.Background(), "entry.json")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestSync(t *testing.T) {
	var downloaded int64
	telemetry.RegisterEmitter(func(ctx context.Context, name string, labels map[string]string, value any) {
		if name == "astroschema_s3_objects" && labels["direction"] == "download" {
			downloaded += value.(int64)
		}
	})
	t.Cleanup(func() { telemetry.RegisterEmitter(nil) })

	dir := filepath.Join(t.TempDir(), "cache")
	src := New(newFake(), Config{Bucket: "b", Prefix: "schema/"})

	n, err := src.Sync(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.EqualValues(t, 3, downloaded)

	data, err := os.ReadFile(filepath.Join(dir, "source.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"title": "source", "type": "object"}`, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3, "no temp files left behind")
}

func TestCheck(t *testing.T) {
	fake := newFake()
	src := New(fake, Config{Bucket: "b"})
	require.NoError(t, src.Check(context.Background()))

	fake.headErr = errors.New("forbidden")
	err := src.Check(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "head bucket b")
}

type fakeUploader struct {
	puts map[string]string
	fail string
}

func (f *fakeUploader) Upload(ctx context.Context, in *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	key := aws.ToString(in.Key)
	if key == f.fail {
		return nil, errors.New("boom")
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.puts == nil {
		f.puts = make(map[string]string)
	}
	f.puts[key] = string(data)
	return &manager.UploadOutput{Key: in.Key}, nil
}

func TestPublish(t *testing.T) {
	fsys := fstest.MapFS{
		"VERSION":     {Data: []byte("0.4.0\n")},
		"source.json": {Data: []byte(`{"title": "source"}`)},
		"notes.txt":   {Data: []byte("skip me")},
	}
	up := &fakeUploader{}
	pub := NewPublisher(up, Config{Bucket: "b", Prefix: "schema"})

	n, err := pub.Publish(context.Background(), fsys)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, map[string]string{
		"schema/source.json": `{"title": "source"}`,
		"schema/VERSION":     "0.4.0\n",
	}, up.puts)
}

func TestPublishFailures(t *testing.T) {
	t.Run("invalid directory", func(t *testing.T) {
		up := &fakeUploader{}
		fsys := fstest.MapFS{"bad.json": {Data: []byte(`{"type": "object"}`)}}
		_, err := NewPublisher(up, Config{Bucket: "b"}).Publish(context.Background(), fsys)
		require.Error(t, err)
		assert.Empty(t, up.puts)
	})

	t.Run("upload error", func(t *testing.T) {
		up := &fakeUploader{fail: "b.json"}
		fsys := fstest.MapFS{
			"a.json": {Data: []byte(`{"title": "a"}`)},
			"b.json": {Data: []byte(`{"title": "b"}`)},
		}
		n, err := NewPublisher(up, Config{Bucket: "b"}).Publish(context.Background(), fsys)
		require.Error(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", contentType("a.json"))
	assert.Equal(t, "application/yaml", contentType("a.YML"))
	assert.Equal(t, "text/plain", contentType("VERSION"))
}
