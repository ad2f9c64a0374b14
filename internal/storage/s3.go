package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/oggyb/matchchat/internal/config"
)

// PhotoPrefix is the key prefix under which profile photos are stored.
const PhotoPrefix = "profile-pics/"

// Presigner hands out short-lived S3 URLs so clients upload and read
// profile photos directly against the bucket.
type Presigner struct {
	client *s3.PresignClient
	bucket string
	ttl    time.Duration
	now    func() time.Time
}

// NewPresigner loads AWS credentials from the default chain. It returns
// (nil, nil) when no bucket is configured so callers can run without storage.
func NewPresigner(ctx context.Context, cfg *config.Config) (*Presigner, error) {
	if cfg.Storage.S3Bucket == "" {
		return nil, nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Storage.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Storage.S3Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewPresignerFromAWS(awsCfg, cfg.Storage.S3Bucket, cfg.Storage.PresignTTL), nil
}

// NewPresignerFromAWS builds a Presigner from an already resolved aws.Config.
func NewPresignerFromAWS(awsCfg aws.Config, bucket string, ttl time.Duration) *Presigner {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Presigner{
		client: s3.NewPresignClient(s3.NewFromConfig(awsCfg)),
		bucket: bucket,
		ttl:    ttl,
		now:    time.Now,
	}
}

// PhotoKey builds the object key for a user's upload.
//
// Example:
//
//	p.PhotoKey(42, "me.jpg") // profile-pics/42/20250101120000-me.jpg
func (p *Presigner) PhotoKey(userID uint64, fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	return fmt.Sprintf("%s%d/%s-%s", PhotoPrefix, userID, p.now().UTC().Format("20060102150405"), name)
}

// UploadURL presigns a PUT for key with the given content type.
func (p *Presigner) UploadURL(ctx context.Context, key, contentType string) (string, error) {
	req, err := p.client.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(p.ttl))
	if err != nil {
		return "", fmt.Errorf("presign put %s: %w", key, err)
	}
	return req.URL, nil
}

// ReadURL presigns a GET for key.
func (p *Presigner) ReadURL(ctx context.Context, key string) (string, error) {
	req, err := p.client.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(p.ttl))
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", key, err)
	}
	return req.URL, nil
}
