package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
)

// S3Config selects the bucket captures are uploaded to. Credentials come
// from the default AWS chain (environment, shared config, instance role).
type S3Config struct {
	Bucket string
	Region string
	Prefix string
}

// S3Storage uploads captures to an S3 bucket.
type S3Storage struct {
	uploader s3manageriface.UploaderAPI
	bucket   string
	prefix   string
}

// NewS3Storage opens an AWS session for cfg.Region.
func NewS3Storage(cfg S3Config) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}

	return newS3Storage(s3manager.NewUploader(sess), cfg), nil
}

func newS3Storage(uploader s3manageriface.UploaderAPI, cfg S3Config) *S3Storage {
	return &S3Storage{
		uploader: uploader,
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
	}
}

// Key returns the object key for a capture name.
func (s *S3Storage) Key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// Save uploads obj and returns the object URL.
func (s *S3Storage) Save(ctx context.Context, obj Object) (string, error) {
	input := &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.Key(obj.Name)),
		Body:        bytes.NewReader(obj.Data),
		ContentType: aws.String(obj.ContentType),
	}
	if obj.ID != "" {
		input.Metadata = map[string]*string{"capture-id": aws.String(obj.ID)}
	}

	out, err := s.uploader.UploadWithContext(ctx, input)
	if err != nil {
		return "", fmt.Errorf("upload s3://%s/%s: %w", s.bucket, s.Key(obj.Name), err)
	}

	return out.Location, nil
}
