package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/getevo/evo/v2/lib/log"
	"github.com/getevo/evo/v2/lib/settings"
)

// ObjectStore is the surface the attachment pipeline depends on. The S3
// client satisfies it in production; tests swap in an in-memory fake.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Remove(ctx context.Context, key string) error
	PublicURL(key string) string
}

// S3Store wraps an S3-compatible bucket (AWS, iDrive E2, MinIO).
type S3Store struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

var defaultStore *S3Store

// Config holds S3 configuration
type Config struct {
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	PublicURL string
}

// Initialize sets up the process-wide S3 store from settings
func Initialize() error {
	if !settings.Get("S3.ENABLED").Bool() {
		log.Notice("S3 storage is disabled")
		return nil
	}

	cfg := Config{
		Bucket:    settings.Get("S3.BUCKET").String(),
		Endpoint:  settings.Get("S3.ENDPOINT").String(),
		Region:    settings.Get("S3.REGION").String(),
		AccessKey: settings.Get("S3.ACCESS_KEY").String(),
		SecretKey: settings.Get("S3.SECRET_KEY").String(),
		PublicURL: settings.Get("S3.PUBLIC_URL").String(),
	}

	store, err := New(cfg)
	if err != nil {
		return err
	}

	defaultStore = store
	log.Notice("S3 storage initialized: bucket=%s, endpoint=%s", cfg.Bucket, cfg.Endpoint)
	return nil
}

// New creates an S3Store from explicit configuration
func New(cfg Config) (*S3Store, error) {
	if cfg.Bucket == "" || cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("S3 configuration incomplete")
	}

	endpoint := cfg.Endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	// Custom endpoint resolver for S3-compatible services
	awsCfg := aws.Config{
		Region:      cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		EndpointResolverWithOptions: aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL:               endpoint,
					SigningRegion:     region,
					HostnameImmutable: true,
				}, nil
			},
		),
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true // Required for S3-compatible services
	})

	return &S3Store{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}, nil
}

// Default returns the process-wide store, nil when S3 is disabled
func Default() *S3Store {
	return defaultStore
}

// IsEnabled returns whether S3 storage is available
func IsEnabled() bool {
	return defaultStore != nil
}

// Put uploads an object
func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})

	return err
}

// GetReader returns a streaming reader for an object
func (s *S3Store) GetReader(ctx context.Context, key string) (io.ReadCloser, string, int64, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", 0, err
	}

	contentType := ""
	if result.ContentType != nil {
		contentType = *result.ContentType
	}

	contentLength := int64(0)
	if result.ContentLength != nil {
		contentLength = *result.ContentLength
	}

	return result.Body, contentType, contentLength, nil
}

// Remove deletes an object
func (s *S3Store) Remove(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})

	return err
}

// PublicURL returns the fetchable reference for a stored object. When no
// public bucket URL is configured the media proxy serves it instead.
func (s *S3Store) PublicURL(key string) string {
	if s.publicURL != "" {
		return s.publicURL + "/" + key
	}
	base := strings.TrimRight(settings.Get("APP.BASE_PATH", "http://localhost:8000").String(), "/")
	return base + "/files/" + key
}

// GenerateKey generates a collision-resistant key for storing files,
// namespaced by company and owner.
func GenerateKey(companyID, leadID uint, filename string) string {
	name := filepath.Base(filename)
	return fmt.Sprintf("attachments/%d/%d/%d_%s", companyID, leadID, time.Now().UnixNano(), name)
}
