package media

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/raine/telegram-ebay-bot/internal/ebay"
	"github.com/rs/zerolog/log"
)

// S3Config describes an S3 compatible bucket whose objects are publicly
// readable under PublicBaseURL.
type S3Config struct {
	Bucket        string
	Region        string
	Endpoint      string // Optional, for S3 compatible providers
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
}

// putObjectAPI is the part of the S3 client the uploader uses.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader hosts images in an S3 bucket.
type S3Uploader struct {
	client        putObjectAPI
	bucket        string
	publicBaseURL string
	newKey        func(ext string) string
}

var _ ebay.ImageUploader = (*S3Uploader)(nil)

// NewS3Uploader returns a ConfigurationError when the bucket, region or
// public URL is missing.
func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	var missing []string
	if cfg.Bucket == "" {
		missing = append(missing, "S3_BUCKET")
	}
	if cfg.Region == "" {
		missing = append(missing, "S3_REGION")
	}
	if cfg.PublicBaseURL == "" {
		missing = append(missing, "S3_PUBLIC_BASE_URL")
	}
	if len(missing) > 0 {
		return nil, &ebay.ConfigurationError{Missing: missing}
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Uploader(client, cfg.Bucket, cfg.PublicBaseURL), nil
}

func newS3Uploader(client putObjectAPI, bucket, publicBaseURL string) *S3Uploader {
	return &S3Uploader{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		newKey: func(ext string) string {
			return "listings/" + uuid.New().String() + ext
		},
	}
}

// UploadImage stores the image under listings/{uuid}.{ext} and returns its
// public URL.
func (u *S3Uploader) UploadImage(ctx context.Context, img ebay.Image) (string, error) {
	if len(img.Data) == 0 {
		return "", fmt.Errorf("image %d is empty", img.Position)
	}

	mimeType := img.MimeType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	key := u.newKey(extensionFor(mimeType))

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(img.Data),
		ContentLength: aws.Int64(int64(len(img.Data))),
		ContentType:   aws.String(mimeType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object %s: %w", key, err)
	}

	log.Info().Str("bucket", u.bucket).Str("key", key).Int("position", img.Position).Msg("image uploaded to s3")
	return u.publicBaseURL + "/" + key, nil
}

func extensionFor(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
