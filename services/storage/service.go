package storage

import (
	"bytes"
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/lexsync/interfaces"
	"github.com/customeros/lexsync/internal/tracing"
	"github.com/customeros/lexsync/services/storage/aws_client"
)

// ObjectStorageService mirrors voucher files into an S3 compatible bucket.
type ObjectStorageService struct {
	client     aws_client.S3Client
	bucketName string
}

type ObjectStorageConfig struct {
	BucketName string
}

func NewStorageService(client aws_client.S3Client, config ObjectStorageConfig) interfaces.StorageService {
	return &ObjectStorageService{
		client:     client,
		bucketName: config.BucketName,
	}
}

func (s *ObjectStorageService) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ObjectStorageService.Upload")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("bucket", s.bucketName, "key", key)

	err := s.client.Upload(ctx, s3manager.UploadInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		tracing.TraceErr(span, err)
	}
	return err
}
