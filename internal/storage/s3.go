package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	appconfig "github.com/theobourgeois/vexilo/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var ErrNotHosted = errors.New("url is not hosted by this deployment")

const keyPrefix = "images/"

// Client wraps the S3 bucket holding flag images. Public URLs are
// rewritten through the CDN prefix; only URLs under that prefix map
// back to keys.
type Client struct {
	s3         *s3.Client
	bucket     string
	cdnBaseURL string
}

func New(ctx context.Context, cfg *appconfig.Config) (*Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKey,
			cfg.S3SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			// MinIO and other S3-compatible stores.
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Client{
		s3:         client,
		bucket:     cfg.S3Bucket,
		cdnBaseURL: strings.TrimSuffix(cfg.CDNBaseURL, "/"),
	}, nil
}

// NewKey generates a fresh object key for an uploaded image.
func NewKey(ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "png"
	}
	return fmt.Sprintf("%simage-%d.%s", keyPrefix, time.Now().UnixMilli(), ext)
}

// PutObject uploads the image bytes and returns its public CDN URL.
func (c *Client) PutObject(ctx context.Context, data []byte, key, contentType string) (string, error) {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	return c.URL(key), nil
}

func (c *Client) DeleteObject(ctx context.Context, key string) error {
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// URL maps an object key to its public CDN URL.
func (c *Client) URL(key string) string {
	return c.cdnBaseURL + "/" + key
}

// URLToKey maps a public URL back to its object key. Returns
// ErrNotHosted for anything outside this deployment's CDN prefix, so
// callers never delete objects they do not own.
func (c *Client) URLToKey(url string) (string, error) {
	prefix := c.cdnBaseURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", ErrNotHosted
	}
	key := strings.TrimPrefix(url, prefix)
	if !strings.HasPrefix(key, keyPrefix) || key == keyPrefix {
		return "", ErrNotHosted
	}
	return key, nil
}

// Hosted reports whether the URL points at this deployment's storage.
func (c *Client) Hosted(url string) bool {
	_, err := c.URLToKey(url)
	return err == nil
}

// DecodeDataURI splits an inline "data:image/png;base64,..." payload
// into raw bytes, content type and file extension. Request submission
// must never persist inline binary payloads, so submit paths upload
// the decoded bytes and keep only the resulting URL.
func DecodeDataURI(uri string) (data []byte, contentType, ext string, err error) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, "", "", errors.New("not a data URI")
	}
	rest := strings.TrimPrefix(uri, "data:")
	meta, payload, found := strings.Cut(rest, ",")
	if !found {
		return nil, "", "", errors.New("malformed data URI")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil, "", "", errors.New("only base64 data URIs are supported")
	}
	contentType = strings.TrimSuffix(meta, ";base64")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to decode data URI: %w", err)
	}

	switch contentType {
	case "image/png":
		ext = "png"
	case "image/jpeg":
		ext = "jpg"
	case "image/gif":
		ext = "gif"
	case "image/webp":
		ext = "webp"
	case "image/svg+xml":
		ext = "svg"
	default:
		ext = "png"
	}
	return data, contentType, ext, nil
}

// IsDataURI reports whether the image field carries an inline payload
// rather than a hosted reference.
func IsDataURI(s string) bool {
	return strings.HasPrefix(s, "data:")
}
