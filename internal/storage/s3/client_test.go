package s3

import (
	"testing"

	"github.com/Gpanazio/brickreview-sub001/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicURL(t *testing.T) {
	client, err := New(config.S3Config{
		Endpoint:      "http://localhost:9000",
		Region:        "us-east-1",
		AccessKey:     "key",
		SecretKey:     "secret",
		Bucket:        "media",
		PublicBaseURL: "https://cdn.example.com/",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/thumbnails/7/abc.jpg", client.PublicURL("thumbnails/7/abc.jpg"))
}

func TestPublicURLDefaultsToEndpoint(t *testing.T) {
	client, err := New(config.S3Config{
		Endpoint:  "http://localhost:9000",
		Region:    "us-east-1",
		AccessKey: "key",
		SecretKey: "secret",
		Bucket:    "media",
	})
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000/media/videos/1/a.mp4", client.PublicURL("videos/1/a.mp4"))
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "video/mp4", detectContentType("proxies/1/a.mp4"))
	assert.Equal(t, "image/jpeg", detectContentType("sprites/1/a.jpg"))
	assert.Equal(t, "text/vtt", detectContentType("sprites/1/a.vtt"))
	assert.Equal(t, "application/octet-stream", detectContentType("videos/1/raw.bin"))
}
