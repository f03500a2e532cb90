package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalPut(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "qr")
	store, err := NewLocal(dir, "/generated-qrcodes/")
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "hello_123.png", "image/png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, "/generated-qrcodes/hello_123.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "hello_123.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)
}

func TestLocalPutStripsDirectories(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocal(dir, "")
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "../../etc/evil.png", "image/png", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "/generated-qrcodes/evil.png", url)
	assert.FileExists(t, filepath.Join(dir, "evil.png"))
}

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Put(t *testing.T) {
	fp := &fakePutter{}
	store := newS3(fp, Config{Bucket: "certs", Region: "eu-west-1", Prefix: "/qr/"})

	url, err := store.Put(context.Background(), "a.png", "image/png", []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "https://certs.s3.eu-west-1.amazonaws.com/qr/a.png", url)
	assert.Equal(t, "certs", aws.ToString(fp.input.Bucket))
	assert.Equal(t, "qr/a.png", aws.ToString(fp.input.Key))
	assert.Equal(t, "image/png", aws.ToString(fp.input.ContentType))
	assert.Equal(t, []byte("img"), fp.body)
}

func TestS3PutError(t *testing.T) {
	store := newS3(&fakePutter{err: errors.New("denied")}, Config{Bucket: "b", PublicBaseURL: "https://cdn.example.com"})
	_, err := store.Put(context.Background(), "a.png", "image/png", nil)
	assert.ErrorContains(t, err, "denied")
}

func TestNewUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), Config{Driver: "ftp"})
	assert.Error(t, err)
}
