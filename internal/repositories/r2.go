package repositories

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rohits-web03/estately/internal/config"
)

// ObjectStorage is the S3-compatible bucket holding listing images.
// Objects are publicly readable under PublicBaseURL.
type ObjectStorage struct {
	client        *s3.Client
	presigner     *s3.PresignClient
	bucket        string
	publicBaseURL string
	timeout       time.Duration
}

// NewObjectStorage builds the R2 client using static credentials and a custom endpoint.
func NewObjectStorage(cfg config.R2Config) (*ObjectStorage, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("object storage: bucket name is required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		if cfg.AccountID == "" {
			return nil, errors.New("object storage: account id or endpoint is required")
		}
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	}
	publicBase := strings.TrimRight(cfg.PublicBaseURL, "/")
	if publicBase == "" {
		publicBase = strings.TrimRight(endpoint, "/") + "/" + cfg.BucketName
	}

	awsCfg := aws.Config{
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Region:      cfg.Region,
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	slog.Info("initialized object storage", "bucket", cfg.BucketName, "endpoint", endpoint)
	return &ObjectStorage{
		client:        client,
		presigner:     s3.NewPresignClient(client),
		bucket:        cfg.BucketName,
		publicBaseURL: publicBase,
		timeout:       timeout,
	}, nil
}

func (o *ObjectStorage) PublicURL(key string) string {
	return o.publicBaseURL + "/" + key
}

// KeyFromURL is the inverse of PublicURL. URLs outside the bucket report false.
func (o *ObjectStorage) KeyFromURL(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, o.publicBaseURL+"/")
	if !ok || key == "" {
		return "", false
	}
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	return key, key != ""
}

// Upload stores body under key and returns its public URL.
func (o *ObjectStorage) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	_, err := o.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(o.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return o.PublicURL(key), nil
}

func (o *ObjectStorage) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	_, err := o.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// DeleteByURL deletes the object behind a public URL. Foreign URLs are
// skipped without error; there is nothing of ours to remove.
func (o *ObjectStorage) DeleteByURL(ctx context.Context, url string) error {
	key, ok := o.KeyFromURL(url)
	if !ok {
		slog.Debug("skipping delete of foreign url", "url", url)
		return nil
	}
	return o.Delete(ctx, key)
}

// GeneratePresignedPutURL creates a presigned URL for uploading an image directly to R2.
func (o *ObjectStorage) GeneratePresignedPutURL(ctx context.Context, key, contentType string, expires time.Duration) (string, error) {
	req, err := o.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(o.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// VerifyObjectExists checks if a given object key exists in the bucket.
func (o *ObjectStorage) VerifyObjectExists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	_, err := o.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *s3types.NotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
