package services

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/desertthunder/achieve/internal/shared"
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// S3ImageHost stores images in an S3 bucket under the images/ prefix.
type S3ImageHost struct {
	client   S3Client
	bucket   string
	region   string
	endpoint string // Optional: for S3-compatible services
}

// NewS3ImageHost creates an S3 image host. When endpoint is empty URLs use the standard AWS virtual-hosted form.
func NewS3ImageHost(client S3Client, bucket, region, endpoint string) (*S3ImageHost, error) {
	if bucket == "" {
		return nil, fmt.Errorf("%w: images.s3_bucket is required for the s3 backend", shared.ErrMissingConfig)
	}
	if region == "" {
		region = defaultRegion
	}
	return &S3ImageHost{client: client, bucket: bucket, region: region, endpoint: endpoint}, nil
}

func (h *S3ImageHost) Name() string { return "S3" }

func (h *S3ImageHost) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	key := "images/" + sanitizeName(name)

	_, err := h.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(h.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrImageUpload, err)
	}
	return h.URL(key), nil
}

// URL returns the public URL for key.
func (h *S3ImageHost) URL(key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	if h.endpoint != "" {
		return strings.TrimSuffix(h.endpoint, "/") + "/" + h.bucket + "/" + escaped
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", h.bucket, h.region, escaped)
}

// LocalImageHost copies images into a directory and returns file:// URLs.
type LocalImageHost struct {
	dir string
}

func NewLocalImageHost(dir string) *LocalImageHost {
	return &LocalImageHost{dir: dir}
}

func (h *LocalImageHost) Name() string { return "Local" }

// Upload writes r to "<name>_<id><ext>" inside the host directory.
func (h *LocalImageHost) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(h.dir, 0755); err != nil {
		return "", fmt.Errorf("%w: failed to create image directory: %v", shared.ErrImageUpload, err)
	}

	ext, ok := extensions[contentType]
	if !ok {
		ext = ".img"
	}
	filename := fmt.Sprintf("%s_%s%s", sanitizeName(name), shared.GenerateID()[:8], ext)
	path := filepath.Join(h.dir, filename)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrImageUpload, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("%w: %v", shared.ErrImageUpload, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrImageUpload, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrImageUpload, err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

// sanitizeName replaces path separators and spaces so a name is safe as a file name or object key.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
}
