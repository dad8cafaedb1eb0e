// Package objectstore is the remote backing store the cached write
// filesystem mirrors writes to and the scan path reads misses from (spec
// §4.1 "remote object store").
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/nbiscaro/pg-mooncake/gologger"
	"github.com/nbiscaro/pg-mooncake/utils"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

var logger = gologger.NewLogger()

// Store is the remote object store contract: bytes in, bytes out, keyed by
// an opaque path under the table's base_path.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// S3Store is the production Store, grounded on the teacher's
// s3/s3.go and s3_helper/s3.go uploader/downloader wiring.
type S3Store struct {
	bucket     string
	uploader   *s3manager.Uploader
	downloader *s3manager.Downloader
	client     *s3.S3
}

func NewS3Store(bucket string) (*S3Store, error) {
	s3Config := &aws.Config{
		Region:      aws.String(utils.AWS_DEFAULT_REGION),
		Credentials: credentials.NewEnvCredentials(),
	}
	if utils.S3_ENDPOINT != "" {
		s3Config.Endpoint = aws.String(utils.S3_ENDPOINT)
	}

	sess, err := session.NewSession(s3Config)
	if err != nil {
		return nil, fmt.Errorf("error making new s3 session: %w", err)
	}

	return &S3Store{
		bucket:     bucket,
		uploader:   s3manager.NewUploader(sess),
		downloader: s3manager.NewDownloader(sess),
		client:     s3.New(sess),
	}, nil
}

func (s *S3Store) Put(ctx context.Context, key string, data []byte) error {
	start := time.Now()
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("error uploading to s3: %w", err)
	}
	logger.Debug().Str("key", key).Dur("duration", time.Since(start)).Msg("uploaded file to s3")
	return nil
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	buf := &aws.WriteAtBuffer{}
	_, err := s.downloader.DownloadWithContext(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("error downloading from s3: %w", err)
	}
	logger.Debug().Str("key", key).Dur("duration", time.Since(start)).Msg("downloaded file from s3")
	return buf.Bytes(), nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("error deleting from s3: %w", err)
	}
	return nil
}
