// Package s3util uploads finished archives to S3 and hands back presigned
// download links.
package s3util

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// ObjectPutter is the subset of *s3.Client used for uploads.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ObjectPresigner is the subset of *s3.PresignClient used for download links.
type ObjectPresigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Upload describes an exported object.
type Upload struct {
	Bucket    string    `json:"bucket"`
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ArchiveKey builds "<prefix>/<batchID>/<filename>", dropping an empty prefix.
func ArchiveKey(prefix, batchID, filename string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return path.Join(batchID, filename)
	}
	return path.Join(prefix, batchID, filename)
}

// UploadArchive puts body under key and returns a presigned GET URL valid for expiry.
func UploadArchive(ctx context.Context, client ObjectPutter, presigner ObjectPresigner, bucket, key string, body io.Reader, size int64, contentType string, expiry time.Duration) (Upload, error) {
	log.Debug().
		Str("bucket", bucket).
		Str("key", key).
		Int64("size", size).
		Msg("Uploading archive to S3")

	input := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		Tagging:     ProjectTagging(),
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := client.PutObject(ctx, input); err != nil {
		return Upload{}, fmt.Errorf("failed to upload archive to S3: %w", err)
	}

	url, err := GeneratePresignedURL(ctx, presigner, bucket, key, expiry)
	if err != nil {
		return Upload{}, err
	}

	log.Info().Str("bucket", bucket).Str("key", key).Msg("Archive uploaded to S3")

	return Upload{
		Bucket:    bucket,
		Key:       key,
		URL:       url,
		ExpiresAt: time.Now().Add(expiry).UTC(),
	}, nil
}

// GeneratePresignedURL creates a pre-signed GET URL for an S3 object.
func GeneratePresignedURL(ctx context.Context, presigner ObjectPresigner, bucket, key string, expiry time.Duration) (string, error) {
	result, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket, Key: &key,
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiry
	})
	if err != nil {
		return "", fmt.Errorf("presign GetObject: %w", err)
	}
	return result.URL, nil
}

// Exporter uploads batch archives under a fixed bucket and prefix.
type Exporter struct {
	Client    ObjectPutter
	Presigner ObjectPresigner
	Bucket    string
	Prefix    string
	TTL       time.Duration
}

// ExportArchive uploads data as <prefix>/<batchID>/<filename>.
func (e *Exporter) ExportArchive(ctx context.Context, batchID, filename string, data []byte) (Upload, error) {
	key := ArchiveKey(e.Prefix, batchID, filename)
	return UploadArchive(ctx, e.Client, e.Presigner, e.Bucket, key, bytes.NewReader(data), int64(len(data)), "application/zip", e.TTL)
}
