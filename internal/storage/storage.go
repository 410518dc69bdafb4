// Package storage keeps uploaded covers and audio in an S3 compatible bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/sbilibin2017/musicon/internal/config"
	"github.com/sbilibin2017/musicon/internal/logger"
)

//go:generate mockgen -source=storage.go -destination=storage_mock.go -package=storage

// S3API is the part of the S3 client the storage uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)             // Stores one object
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) // Deletes a batch of objects
}

// Storage uploads public objects and deletes them by URL.
type Storage struct {
	client    S3API
	bucket    string
	publicURL string
	now       func() time.Time
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// New builds an S3 client from cfg. Static credentials and a custom
// endpoint are used when configured, which is how MinIO is reached.
func New(ctx context.Context, cfg *config.Config) (*Storage, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = cfg.S3UsePathStyle
	})

	return NewWithClient(client, cfg.S3Bucket, cfg.S3PublicURL), nil
}

// NewWithClient wraps an existing client. publicURL is the prefix under
// which objects of bucket are served.
func NewWithClient(client S3API, bucket, publicURL string) *Storage {
	return &Storage{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		now:       time.Now,
	}
}

// Key returns a unique object key under prefix that keeps a readable
// form of the original file name.
func (s *Storage) Key(prefix, filename string) string {
	name := strings.Trim(unsafeKeyChars.ReplaceAllString(filename, "-"), "-")
	if name == "" {
		name = "file"
	}
	return fmt.Sprintf("%s/%d-%s-%s", strings.Trim(prefix, "/"), s.now().UnixMilli(), uuid.NewString(), name)
}

// URL is the public address of key.
func (s *Storage) URL(key string) string {
	return s.publicURL + "/" + key
}

// KeyFromURL reverses URL. Addresses outside the bucket are reported as
// not found.
func (s *Storage) KeyFromURL(u string) (string, bool) {
	key, ok := strings.CutPrefix(u, s.publicURL+"/")
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

// Upload stores body as a public-read object and returns its public URL.
func (s *Storage) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
		ACL:           types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		logger.Log.Errorw("Failed to upload object", "bucket", s.bucket, "key", key, "error", err)
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	logger.Log.Infow("Object uploaded", "bucket", s.bucket, "key", key, "size", size)
	return s.URL(key), nil
}

// Remove deletes the objects behind urls in one request. URLs that do not
// point into the bucket are skipped.
func (s *Storage) Remove(ctx context.Context, urls ...string) error {
	objects := make([]types.ObjectIdentifier, 0, len(urls))
	for _, u := range urls {
		key, ok := s.KeyFromURL(u)
		if !ok {
			logger.Log.Warnw("Skipping foreign object URL", "url", u)
			continue
		}
		objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
	}
	if len(objects) == 0 {
		return nil
	}

	out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &types.Delete{
			Objects: objects,
			Quiet:   aws.Bool(true),
		},
	})
	if err != nil {
		return fmt.Errorf("delete objects: %w", err)
	}
	if len(out.Errors) > 0 {
		first := out.Errors[0]
		return fmt.Errorf("delete %s: %s", aws.ToString(first.Key), aws.ToString(first.Message))
	}
	return nil
}
