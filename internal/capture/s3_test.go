package capture

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
)

type fakeUploader struct {
	s3manageriface.UploaderAPI
	input *s3manager.UploadInput
	body  []byte
	err   error
}

func (f *fakeUploader) UploadWithContext(ctx aws.Context, in *s3manager.UploadInput, _ ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	if f.err != nil {
		return nil, f.err
	}
	return &s3manager.UploadOutput{
		Location: "https://" + aws.StringValue(in.Bucket) + ".s3.amazonaws.com/" + aws.StringValue(in.Key),
	}, nil
}

func TestS3Storage_Save(t *testing.T) {
	up := &fakeUploader{}
	s := newS3Storage(up, S3Config{Bucket: "selfies", Prefix: "booth-1"})

	loc, err := s.Save(context.Background(), Object{
		ID:          "0192-abc",
		Name:        "selfie_20261016_090507_042.jpg",
		Data:        []byte("jpeg"),
		ContentType: "image/jpeg",
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if want := "https://selfies.s3.amazonaws.com/booth-1/selfie_20261016_090507_042.jpg"; loc != want {
		t.Errorf("location = %q, want %q", loc, want)
	}
	if got := aws.StringValue(up.input.ContentType); got != "image/jpeg" {
		t.Errorf("content type = %q", got)
	}
	if got := aws.StringValue(up.input.Metadata["capture-id"]); got != "0192-abc" {
		t.Errorf("capture-id metadata = %q", got)
	}
	if string(up.body) != "jpeg" {
		t.Errorf("body = %q", up.body)
	}
}

func TestS3Storage_KeyWithoutPrefix(t *testing.T) {
	s := newS3Storage(&fakeUploader{}, S3Config{Bucket: "b"})
	if got := s.Key("a.jpg"); got != "a.jpg" {
		t.Errorf("Key() = %q, want a.jpg", got)
	}
}

func TestS3Storage_UploadError(t *testing.T) {
	boom := errors.New("access denied")
	s := newS3Storage(&fakeUploader{err: boom}, S3Config{Bucket: "b"})

	_, err := s.Save(context.Background(), Object{Name: "a.jpg", Data: []byte("x")})
	if !errors.Is(err, boom) {
		t.Errorf("Save() error = %v, want wrapping %v", err, boom)
	}
}

func TestNewS3Storage_RequiresBucket(t *testing.T) {
	if _, err := NewS3Storage(S3Config{Region: "us-east-1"}); err == nil {
		t.Error("NewS3Storage() should fail without a bucket")
	}
}
