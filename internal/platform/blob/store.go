package blob

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/brightloop/geoscore-backend/internal/pkg/envutil"
	"github.com/brightloop/geoscore-backend/internal/pkg/logger"
)

// Store is the bucket behind the pipeline: the crawl stage writes raw pages,
// normalize reads them back, and the report stage exports score snapshots.
type Store interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte, contentType string) error
}

type gcsStore struct {
	log    *logger.Logger
	client *storage.Client
	bucket string
}

func NewGCSStore(ctx context.Context, log *logger.Logger) (Store, error) {
	bucket := strings.TrimSpace(envutil.Str("GCS_BUCKET_NAME", ""))
	if bucket == "" {
		return nil, fmt.Errorf("GCS_BUCKET_NAME is not set")
	}
	var opts []option.ClientOption
	if creds := strings.TrimSpace(envutil.Str("GOOGLE_APPLICATION_CREDENTIALS_FILE", "")); creds != "" {
		opts = append(opts, option.WithCredentialsFile(creds))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return &gcsStore{
		log:    log.With("store", "gcs"),
		client: client,
		bucket: bucket,
	}, nil
}

func (s *gcsStore) Read(ctx context.Context, key string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open gs://%s/%s: %w", s.bucket, key, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read gs://%s/%s: %w", s.bucket, key, err)
	}
	return data, nil
}

func (s *gcsStore) Write(ctx context.Context, key string, data []byte, contentType string) error {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("write gs://%s/%s: %w", s.bucket, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close gs://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}
