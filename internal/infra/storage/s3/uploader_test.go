package s3

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectURL(t *testing.T) {
	assert.Equal(t, "http://cdn.local:9000/images/L1/1-0.jpg", ObjectURL("http://cdn.local:9000/", "images", "/L1/1-0.jpg"))
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "minio:9000", hostOf("http://minio:9000"))
	assert.Equal(t, "minio:9000", hostOf("minio:9000"))
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(Options{Bucket: "b"}, nil)
	assert.Error(t, err)
	_, err = NewClient(Options{Endpoint: "http://localhost:9000"}, nil)
	assert.Error(t, err)

	c, err := NewClient(Options{Endpoint: "http://localhost:9000", Bucket: "images", AccessKey: "k", SecretKey: "s"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000", c.publicBaseURL)

	_, err = c.Upload(context.Background(), " / ", strings.NewReader("x"), "")
	assert.Error(t, err)
}

func TestNoopUploader(t *testing.T) {
	_, err := NoopUploader{}.Upload(context.Background(), "k", strings.NewReader("x"), "")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Contains(t, publicReadPolicy("images"), "arn:aws:s3:::images/*")
}
