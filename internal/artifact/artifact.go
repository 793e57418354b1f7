// Package artifact stores rendered documents in S3-compatible object storage.
package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dusk-indust/bizdoc/internal/config"
)

// Format is a rendered document format.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
	FormatMermaid  Format = "mmd"
)

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// objectAPI is the subset of *minio.Client the uploader uses.
type objectAPI interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucket, object string, expiry time.Duration, params url.Values) (*url.URL, error)
}

// Uploader writes documents under runs/<id>/document.<ext>.
type Uploader struct {
	api    objectAPI
	bucket string
}

// NewUploader connects to the MinIO endpoint in cfg.
func NewUploader(cfg config.MinIOConfig) (*Uploader, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &Uploader{api: mc, bucket: cfg.Bucket}, nil
}

func (u *Uploader) EnsureBucket(ctx context.Context) error {
	exists, err := u.api.BucketExists(ctx, u.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := u.api.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
	}
	return nil
}

// ObjectName returns the key a run's document is stored under.
func ObjectName(runID uuid.UUID, format Format) string {
	return fmt.Sprintf("runs/%s/document.%s", runID, format)
}

// PutDocument uploads body and returns its object name.
func (u *Uploader) PutDocument(ctx context.Context, runID uuid.UUID, format Format, body []byte) (string, error) {
	name := ObjectName(runID, format)
	_, err := u.api.PutObject(ctx, u.bucket, name, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: format.ContentType(),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	return name, nil
}

// URL returns a presigned download URL for a run's document.
func (u *Uploader) URL(ctx context.Context, runID uuid.UUID, format Format, expiry time.Duration) (string, error) {
	link, err := u.api.PresignedGetObject(ctx, u.bucket, ObjectName(runID, format), expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", ObjectName(runID, format), err)
	}
	return link.String(), nil
}

func (u *Uploader) Bucket() string {
	return u.bucket
}
