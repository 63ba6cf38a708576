package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	appConfig "github.com/fundtrail/trace-service/internal/config"
	"github.com/fundtrail/trace-service/internal/domain"
)

// ArchiveRepository keeps the raw spreadsheet payload of every upload batch
// in object storage, so the original evidence survives case replacement.
type ArchiveRepository struct {
	client *s3.Client
	bucket string
}

// NewArchiveRepository creates a new S3 archive repository
func NewArchiveRepository(ctx context.Context, cfg appConfig.S3Config) (*ArchiveRepository, error) {
	// Custom resolver for MinIO/Localstack support
	customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if cfg.Endpoint != "" {
			return aws.Endpoint{
				PartitionID:   "aws",
				URL:           cfg.Endpoint,
				SigningRegion: cfg.Region,
			}, nil
		}
		// returning EndpointNotFoundError will allow the service to fallback to it's default resolution
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithEndpointResolverWithOptions(customResolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true // Required for MinIO
	})

	return &ArchiveRepository{
		client: client,
		bucket: cfg.ArchiveBucket,
	}, nil
}

// ArchiveUpload stores the raw payload of one upload batch. Key format:
// uploads/<year>/<month>/<day>/<batch-id>/<filename>.
func (r *ArchiveRepository) ArchiveUpload(ctx context.Context, batch *domain.UploadBatch) error {
	if len(batch.Payload) == 0 {
		return nil
	}

	ts := batch.UploadedAt.UTC()
	key := fmt.Sprintf("uploads/%d/%02d/%02d/%s/%s",
		ts.Year(), ts.Month(), ts.Day(), batch.ID, batch.Filename)

	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(batch.Payload),
		ContentType: aws.String(batch.MimeType),
	})
	if err != nil {
		return fmt.Errorf("failed to archive upload to s3: %w", err)
	}

	return nil
}

// ArchiveManifest stores a JSON manifest of the transactions produced by a
// batch, next to the raw payload.
func (r *ArchiveRepository) ArchiveManifest(ctx context.Context, batch *domain.UploadBatch, txns []domain.Transaction) error {
	data, err := json.Marshal(txns)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	ts := batch.UploadedAt.UTC()
	key := fmt.Sprintf("uploads/%d/%02d/%02d/%s/manifest.json",
		ts.Year(), ts.Month(), ts.Day(), batch.ID)

	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to archive manifest to s3: %w", err)
	}

	return nil
}
