package storage

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"

	"github.com/customeros/lexsync/config"
	"github.com/customeros/lexsync/interfaces"
	"github.com/customeros/lexsync/services/storage/aws_client"
)

// NewR2StorageService creates a StorageService for a Cloudflare R2 bucket.
func NewR2StorageService(cfg *config.R2StorageConfig) (interfaces.StorageService, error) {
	r2Client, err := aws_client.NewS3Client(&aws.Config{
		Endpoint:         aws.String("https://" + cfg.AccountID + ".r2.cloudflarestorage.com"),
		Region:           aws.String("auto"),
		Credentials:      credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.AccessKeySecret, ""),
		S3ForcePathStyle: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}

	return NewStorageService(r2Client, ObjectStorageConfig{BucketName: cfg.VoucherBucket}), nil
}
