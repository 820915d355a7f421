package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Config contains minimal configuration for creating an S3 client.
// Values are optional and will fall back to the standard AWS config/credential chain.
type S3Config struct {
	Bucket string
	// Prefix is prepended to every object key, e.g. "weekly/".
	Prefix string
	// Region to use for requests, e.g. "us-east-1". If empty, AWS defaults apply.
	Region string
	// Profile selects a named shared config/credentials profile. If empty, default chain applies.
	Profile string
	// UsePathStyle forces path-style addressing (useful for some S3-compatible providers).
	UsePathStyle bool
}

// objectPutter is the slice of the S3 API the mirror needs
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Mirror copies saved artifacts into a bucket
type S3Mirror struct {
	client objectPutter
	bucket string
	prefix string
}

// NewS3Mirror creates a mirror using the default AWS configuration chain,
// with optional overrides from S3Config.
func NewS3Mirror(ctx context.Context, cfg S3Config) (*S3Mirror, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	c := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newS3Mirror(c, cfg.Bucket, cfg.Prefix), nil
}

func newS3Mirror(client objectPutter, bucket, prefix string) *S3Mirror {
	return &S3Mirror{client: client, bucket: bucket, prefix: prefix}
}

// Upload writes body to <prefix><name>
func (m *S3Mirror) Upload(ctx context.Context, name string, body []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	key := m.prefix + name
	in := &s3.PutObjectInput{
		Bucket:       aws.String(m.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		CacheControl: aws.String("public, max-age=300"),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	if _, err := m.client.PutObject(ctx, in); err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("s3 put %s/%s: %s: %w", m.bucket, key, apiErr.ErrorCode(), err)
		}
		return fmt.Errorf("s3 put %s/%s: %w", m.bucket, key, err)
	}
	return nil
}

// Target describes where uploads land, for logs
func (m *S3Mirror) Target() string {
	return fmt.Sprintf("s3://%s/%s", m.bucket, m.prefix)
}
