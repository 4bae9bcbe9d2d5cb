package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/kawafuchieirin/real-estate-scraping/config"
	"github.com/kawafuchieirin/real-estate-scraping/utils"
)

// s3Client is the slice of the S3 API the uploader uses.
type s3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader pushes exported batch files to an S3 bucket, retrying
// transient failures with the shared backoff policy.
type S3Uploader struct {
	client s3Client
	bucket string
	retry  utils.RetryConfig
	logger zerolog.Logger
}

// NewS3Uploader resolves AWS credentials from the default chain (env,
// shared config, instance role).
func NewS3Uploader(ctx context.Context, cfg config.ExportConfig, logger zerolog.Logger) (*S3Uploader, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("storage: s3 bucket not configured")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	return &S3Uploader{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.S3Bucket,
		retry: utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   cfg.RetryBaseDelay,
			Logger:      logger,
		},
		logger: logger.With().Str("component", "s3").Logger(),
	}, nil
}

// Upload stores the local file under the given key. The file is reopened
// on every attempt so a retry never sends a half-read body.
func (u *S3Uploader) Upload(ctx context.Context, localPath, remoteKey string) error {
	err := u.retry.Do(ctx, "s3 upload", func() error {
		f, err := os.Open(localPath)
		if err != nil {
			return fmt.Errorf("storage: open %s: %w", localPath, err)
		}
		defer f.Close()

		_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(u.bucket),
			Key:         aws.String(remoteKey),
			Body:        f,
			ContentType: aws.String(contentTypeFor(localPath)),
		})
		return err
	})
	if err != nil {
		return err
	}

	u.logger.Info().Str("bucket", u.bucket).Str("key", remoteKey).Msg("uploaded batch file")
	return nil
}

func contentTypeFor(path string) string {
	switch filepath.Ext(path) {
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	case ".parquet":
		return "application/octet-stream"
	}
	return "application/octet-stream"
}
