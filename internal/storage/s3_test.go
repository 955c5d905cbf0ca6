package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theobourgeois/vexilo/internal/config"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(context.Background(), &config.Config{
		S3Region:    "us-east-1",
		S3Bucket:    "test-bucket",
		S3Endpoint:  "http://localhost:9000",
		S3AccessKey: "test",
		S3SecretKey: "test",
		CDNBaseURL:  "https://cdn.test.example/",
	})
	require.NoError(t, err)
	return client
}

func TestNewKey(t *testing.T) {
	assert.True(t, strings.HasPrefix(NewKey("png"), "images/image-"))
	assert.True(t, strings.HasSuffix(NewKey("webp"), ".webp"))
	assert.True(t, strings.HasSuffix(NewKey(".svg"), ".svg"))
	assert.True(t, strings.HasSuffix(NewKey(""), ".png"))
}

func TestURLToKey(t *testing.T) {
	c := newTestClient(t)

	key, err := c.URLToKey("https://cdn.test.example/images/image-123.png")
	require.NoError(t, err)
	assert.Equal(t, "images/image-123.png", key)

	tests := []struct {
		name string
		url  string
	}{
		{"foreign host", "https://upload.wikimedia.org/images/image-123.png"},
		{"outside image prefix", "https://cdn.test.example/assets/logo.png"},
		{"bare prefix", "https://cdn.test.example/images/"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.URLToKey(tt.url)
			assert.ErrorIs(t, err, ErrNotHosted)
		})
	}
}

func TestURLRoundTrip(t *testing.T) {
	c := newTestClient(t)

	key := NewKey("png")
	url := c.URL(key)
	assert.True(t, c.Hosted(url))

	back, err := c.URLToKey(url)
	require.NoError(t, err)
	assert.Equal(t, key, back)

	assert.False(t, c.Hosted("https://upload.wikimedia.org/canada.svg"))
}

func TestDecodeDataURI(t *testing.T) {
	// "hi" base64-encoded.
	data, contentType, ext, err := DecodeDataURI("data:image/png;base64,aGk=")
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), data)
	assert.Equal(t, "image/png", contentType)
	assert.Equal(t, "png", ext)

	_, _, ext, err = DecodeDataURI("data:image/jpeg;base64,aGk=")
	require.NoError(t, err)
	assert.Equal(t, "jpg", ext)

	tests := []struct {
		name string
		uri  string
	}{
		{"not a data uri", "https://example.com/flag.png"},
		{"no payload separator", "data:image/png;base64"},
		{"not base64 encoded", "data:image/png,rawbytes"},
		{"invalid base64", "data:image/png;base64,???"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := DecodeDataURI(tt.uri)
			assert.Error(t, err)
		})
	}
}

func TestIsDataURI(t *testing.T) {
	assert.True(t, IsDataURI("data:image/png;base64,aGk="))
	assert.False(t, IsDataURI("https://cdn.test.example/images/image-1.png"))
	assert.False(t, IsDataURI(""))
}
