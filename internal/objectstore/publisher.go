package objectstore

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/specialistvlad/stagegrid/internal/ctxlog"
)

// putter is the part of *minio.Client the publisher needs.
type putter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Publisher uploads a directory of outputs under <prefix>/<runID>/.
type Publisher struct {
	client putter
	bucket string
	prefix string
}

// NewPublisher connects to the bucket described by cfg, creating the bucket
// if it does not exist.
func NewPublisher(ctx context.Context, cfg Config) (*Publisher, error) {
	client, err := NewMinIOClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}
	if err := ensureBucket(ctx, client, cfg.Bucket, cfg.Region); err != nil {
		return nil, fmt.Errorf("ensure bucket %q: %w", cfg.Bucket, err)
	}
	return &Publisher{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Publish uploads every file under dir and returns the object keys written,
// in walk order.
func (p *Publisher) Publish(ctx context.Context, runID, dir string) ([]string, error) {
	logger := ctxlog.FromContext(ctx).With("bucket", p.bucket)
	var keys []string

	err := filepath.WalkDir(dir, func(file string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, file)
		if err != nil {
			return err
		}
		key := path.Join(p.prefix, runID, filepath.ToSlash(rel))
		if err := p.upload(ctx, file, key); err != nil {
			return fmt.Errorf("upload %s: %w", rel, err)
		}
		logger.Debug("Published object.", "key", key)
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Published outputs.", "objects", len(keys), "prefix", path.Join(p.prefix, runID))
	return keys, nil
}

func (p *Publisher) upload(ctx context.Context, file, key string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return err
	}
	contentType := mime.TypeByExtension(filepath.Ext(file))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err = p.client.PutObject(ctx, p.bucket, key, f, stat.Size(), minio.PutObjectOptions{ContentType: contentType})
	return err
}
