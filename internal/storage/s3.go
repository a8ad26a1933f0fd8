package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Service uploads files to Amazon S3 (or compatible APIs) under the same
// progress contract as the default backend.
type S3Service struct {
	client    *s3.Client
	uploader  *manager.Uploader
	bucket    string
	keyPrefix string
}

func NewS3Service(client *s3.Client, bucket, keyPrefix string) *S3Service {
	return &S3Service{
		client:    client,
		uploader:  manager.NewUploader(client),
		bucket:    bucket,
		keyPrefix: strings.Trim(keyPrefix, "/"),
	}
}

func (s *S3Service) Upload(ctx context.Context, localPath, remoteName string, onProgress ProgressFunc) (int64, string, error) {
	if s.bucket == "" {
		return 0, "", fmt.Errorf("storage bucket is required")
	}

	info, err := os.Stat(localPath)
	if err != nil {
		return 0, "", fmt.Errorf("stat upload source: %w", err)
	}
	f, err := os.Open(localPath)
	if err != nil {
		return 0, "", fmt.Errorf("open upload source: %w", err)
	}
	defer f.Close()

	key := remoteName
	if s.keyPrefix != "" {
		key = s.keyPrefix + "/" + remoteName
	}

	var body io.Reader = f
	if onProgress != nil {
		body = newCountingReader(f, remoteName, info.Size(), onProgress)
	}

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
		ACL:    types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return 0, "", fmt.Errorf("upload %s: %w", remoteName, err)
	}

	return info.Size(), fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

var _ Service = (*S3Service)(nil)
