package aws_client

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/lexsync/internal/tracing"
)

type S3Client interface {
	Upload(ctx context.Context, uploadContainer s3manager.UploadInput) error
}

type s3Client struct {
	uploader *s3manager.Uploader
}

func NewS3Client(config *aws.Config) (S3Client, error) {
	s, err := session.NewSession(config)
	if err != nil {
		return nil, err
	}
	return &s3Client{uploader: s3manager.NewUploader(s)}, nil
}

func (s *s3Client) Upload(ctx context.Context, uploadContainer s3manager.UploadInput) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "s3Client.Upload")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("bucket", aws.StringValue(uploadContainer.Bucket), "key", aws.StringValue(uploadContainer.Key))

	_, err := s.uploader.UploadWithContext(ctx, &uploadContainer)
	if err != nil {
		tracing.TraceErr(span, err)
	}
	return err
}
