package store

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultName(t *testing.T) {
	tests := []struct {
		current  string
		expected string
	}{
		{current: "/scans/receipt.png", expected: "receipt.txt"},
		{current: "page.pdf", expected: "page.txt"},
		{current: "archive.tar.gif", expected: "archive.tar.txt"},
		{current: "", expected: DefaultFileName},
	}
	for _, tt := range tests {
		t.Run(tt.current, func(t *testing.T) {
			assert.Equal(t, tt.expected, DefaultName(tt.current))
		})
	}
}

func TestFileStore_SaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)

	content := "first line\nsecond"
	path, err := s.Save(context.Background(), "nested/out.txt", strings.NewReader(content), int64(len(content)))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "nested", "out.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestFileStore_SaveOverwrites(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)
	ctx := context.Background()

	_, err := s.Save(ctx, "out.txt", strings.NewReader("a much longer first version"), 0)
	require.NoError(t, err)
	path, err := s.Save(ctx, "out.txt", strings.NewReader("short"), 0)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "short", string(data))
}

func TestFileStore_SaveErrors(t *testing.T) {
	s := NewFileStore(t.TempDir())

	_, err := s.Save(context.Background(), "", strings.NewReader("x"), 1)
	assert.Error(t, err)

	// A directory cannot be opened for writing.
	_, err = s.Save(context.Background(), t.TempDir(), strings.NewReader("x"), 1)
	assert.Error(t, err)
}

func TestFileStore_FailedWriteKeepsPreviousFile(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)
	ctx := context.Background()

	path, err := s.Save(ctx, "out.txt", strings.NewReader("saved earlier"), 0)
	require.NoError(t, err)

	broken := io.MultiReader(strings.NewReader("half"), iotest.ErrReader(errors.New("connection reset")))
	_, err = s.Save(ctx, "out.txt", broken, 0)
	require.ErrorContains(t, err, "connection reset")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "saved earlier", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary file must be removed")
	assert.Equal(t, "out.txt", entries[0].Name())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

type fakePutter struct {
	bucket, object, body, contentType string
	err                               error
}

func (f *fakePutter) PutObject(_ context.Context, bucket, object string, reader io.Reader, _ int64,
	opts minio.PutObjectOptions,
) (minio.UploadInfo, error) {
	if f.err != nil {
		return minio.UploadInfo{}, f.err
	}
	data, _ := io.ReadAll(reader)
	f.bucket, f.object, f.body, f.contentType = bucket, object, string(data), opts.ContentType
	return minio.UploadInfo{Bucket: bucket, Key: object}, nil
}

func TestMinioStore_Save(t *testing.T) {
	put := &fakePutter{}
	s := &MinioStore{client: put, bucket: "notes", prefix: "pad"}

	loc, err := s.Save(context.Background(), "s3://notes/receipt.txt", strings.NewReader("hello"), 5)
	require.NoError(t, err)
	assert.Equal(t, "s3://notes/pad/receipt.txt", loc)
	assert.Equal(t, "notes", put.bucket)
	assert.Equal(t, "pad/receipt.txt", put.object)
	assert.Equal(t, "hello", put.body)
	assert.Contains(t, put.contentType, "text/plain")
}

func TestMinioStore_SaveErrors(t *testing.T) {
	s := &MinioStore{client: &fakePutter{err: errors.New("denied")}, bucket: "notes"}
	_, err := s.Save(context.Background(), "x.txt", strings.NewReader("x"), 1)
	assert.ErrorContains(t, err, "denied")

	_, err = s.Save(context.Background(), "s3://notes/", strings.NewReader("x"), 1)
	assert.Error(t, err)
}

func TestNewMinioStore_RequiresEndpointAndBucket(t *testing.T) {
	_, err := NewMinioStore(context.Background(), MinioConfig{Bucket: "b"})
	assert.Error(t, err)
	_, err = NewMinioStore(context.Background(), MinioConfig{Endpoint: "localhost:9000"})
	assert.Error(t, err)
}

func TestRouter(t *testing.T) {
	dir := t.TempDir()
	put := &fakePutter{}
	rt := &Router{Local: NewFileStore(dir), Remote: &MinioStore{client: put, bucket: "b"}}
	ctx := context.Background()

	loc, err := rt.Save(ctx, "s3://b/x.txt", strings.NewReader("remote"), 6)
	require.NoError(t, err)
	assert.Equal(t, "s3://b/x.txt", loc)
	assert.Equal(t, "remote", put.body)

	loc, err = rt.Save(ctx, "local.txt", strings.NewReader("local"), 5)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "local.txt"), loc)

	_, err = (&Router{Local: NewFileStore(dir)}).Save(ctx, "s3://b/x.txt", strings.NewReader(""), 0)
	assert.Error(t, err)
}
