package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// ReceiptStore persists a rendered receipt under a key.
type ReceiptStore interface {
	Save(ctx context.Context, key string, data []byte) error
}

// fileReceiptStore writes receipts below a local directory.
type fileReceiptStore struct {
	dir    string
	logger zerolog.Logger
}

// NewFileReceiptStore creates a store rooted at dir.
func NewFileReceiptStore(dir string, logger zerolog.Logger) ReceiptStore {
	return &fileReceiptStore{
		dir:    dir,
		logger: logger.With().Str("component", "file-receipt-store").Logger(),
	}
}

func (s *fileReceiptStore) Save(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		s.logger.Error().Err(err).Str("file", path).Msg("failed to create receipt directory")
		return fmt.Errorf("failed to create receipt directory for %s: %w", path, err)
	}

	// Write then rename so a reader never sees half a receipt.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		s.logger.Error().Err(err).Str("file", path).Msg("failed to write receipt")
		return fmt.Errorf("failed to write receipt %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to move receipt into place %s: %w", path, err)
	}

	s.logger.Info().Str("file", path).Int("bytes", len(data)).Msg("receipt written")
	return nil
}

// s3ReceiptStore uploads receipts to an S3 bucket.
type s3ReceiptStore struct {
	client *s3.Client
	bucket string
	logger zerolog.Logger
}

// NewS3ReceiptStore creates an S3-backed store using the default AWS
// credential chain.
func NewS3ReceiptStore(ctx context.Context, bucket, region string, logger zerolog.Logger) (ReceiptStore, error) {
	logger = logger.With().Str("component", "s3-receipt-store").Logger()

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		logger.Error().Err(err).Msg("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := s3.NewFromConfig(cfg)

	logger.Info().
		Str("bucket", bucket).
		Str("region", region).
		Msg("S3 receipt store initialised")

	return &s3ReceiptStore{
		client: client,
		bucket: bucket,
		logger: logger,
	}, nil
}

func (s *s3ReceiptStore) Save(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("bucket", s.bucket).
			Str("key", key).
			Msg("failed to put receipt to S3")
		return fmt.Errorf("failed to put object to S3 (bucket=%s, key=%s): %w", s.bucket, key, err)
	}

	s.logger.Info().
		Str("bucket", s.bucket).
		Str("key", key).
		Msg("receipt uploaded to S3")
	return nil
}

// fallbackReceiptStore tries S3 first and falls back to the local store.
type fallbackReceiptStore struct {
	s3Store   ReceiptStore
	fileStore ReceiptStore
	s3Prefix  string
	s3Enabled bool
	logger    zerolog.Logger
}

// NewFallbackReceiptStore creates a store that writes to S3 under s3Prefix
// when enabled, and to fileStore otherwise or when the upload fails.
func NewFallbackReceiptStore(s3Store, fileStore ReceiptStore, s3Prefix string, s3Enabled bool, logger zerolog.Logger) ReceiptStore {
	return &fallbackReceiptStore{
		s3Store:   s3Store,
		fileStore: fileStore,
		s3Prefix:  s3Prefix,
		s3Enabled: s3Enabled,
		logger:    logger.With().Str("component", "fallback-receipt-store").Logger(),
	}
}

func (s *fallbackReceiptStore) Save(ctx context.Context, key string, data []byte) error {
	if s.s3Enabled && s.s3Store != nil {
		s3Key := s.s3Prefix + key

		err := s.s3Store.Save(ctx, s3Key, data)
		if err == nil {
			return nil
		}

		s.logger.Warn().
			Err(err).
			Str("s3_key", s3Key).
			Msg("failed to upload receipt to S3, falling back to local file system")
	} else {
		s.logger.Debug().
			Bool("s3_enabled", s.s3Enabled).
			Bool("has_s3_store", s.s3Store != nil).
			Msg("S3 disabled or not configured, using local file system")
	}

	return s.fileStore.Save(ctx, key, data)
}

// ReceiptArchiveHook stores a JSON copy of every paid order.
type ReceiptArchiveHook struct {
	store ReceiptStore
}

// NewReceiptArchiveHook creates the archive hook.
func NewReceiptArchiveHook(store ReceiptStore) *ReceiptArchiveHook {
	return &ReceiptArchiveHook{store: store}
}

func (h *ReceiptArchiveHook) Name() string { return "receipt-archive" }

// ReceiptKey is the archive key of an order: receipts are bucketed by month.
func ReceiptKey(r OrderReceipt) string {
	return r.PaidAt.UTC().Format("2006/01") + "/" + r.OrderUUID.String() + ".json"
}

func (h *ReceiptArchiveHook) OrderPaid(ctx context.Context, receipt OrderReceipt) error {
	data, err := json.MarshalIndent(receipt, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode receipt: %w", err)
	}
	if err := h.store.Save(ctx, ReceiptKey(receipt), data); err != nil {
		return fmt.Errorf("failed to archive receipt: %w", err)
	}
	return nil
}
