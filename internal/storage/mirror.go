// Package storage mirrors completed backups to an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"

	"github.com/pandeptwidyaop/school-portal/internal/config"
)

// ErrNotConfigured is returned by NewMirror when no endpoint or bucket is set.
var ErrNotConfigured = errors.New("offsite storage is not configured")

// Mirror uploads backup files to a bucket.
type Mirror struct {
	client     *minio.Client
	log        logrus.FieldLogger
	bucket     string
	pathPrefix string
}

// NewMirror creates a Mirror from cfg. The client is lazy, so no request is
// made until the first upload.
func NewMirror(cfg config.OffsiteConfig, log logrus.FieldLogger) (*Mirror, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}

	endpoint, secure := splitEndpoint(cfg.Endpoint)

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio client: %w", err)
	}

	return &Mirror{
		client:     client,
		log:        log.WithField("component", "mirror"),
		bucket:     cfg.Bucket,
		pathPrefix: strings.Trim(cfg.PathPrefix, "/"),
	}, nil
}

// splitEndpoint removes the scheme, since minio-go expects host:port.
func splitEndpoint(endpoint string) (string, bool) {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return strings.TrimPrefix(endpoint, "https://"), true
	case strings.HasPrefix(endpoint, "http://"):
		return strings.TrimPrefix(endpoint, "http://"), false
	default:
		return endpoint, true
	}
}

// Key returns the object key used for filename.
func (m *Mirror) Key(filename string) string {
	if m.pathPrefix == "" {
		return filename
	}
	return path.Join(m.pathPrefix, filename)
}

// Upload copies the file at localPath to the bucket under filename.
func (m *Mirror) Upload(ctx context.Context, filename, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return err
	}

	key := m.Key(filename)
	info, err := m.client.PutObject(ctx, m.bucket, key, f, stat.Size(), minio.PutObjectOptions{
		ContentType: "application/x-sqlite3",
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s: %w", key, err)
	}

	m.log.WithFields(logrus.Fields{"key": key, "bucket": m.bucket, "size": info.Size}).Info("backup uploaded")
	return nil
}
