// Package media hosts listing photos on a public image service before they
// are referenced from eBay listings.
package media

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/raine/telegram-ebay-bot/internal/ebay"
)

const (
	ProviderCloudinary = "cloudinary"
	ProviderS3         = "s3"
)

// NewUploaderFromEnv builds the uploader selected by MEDIA_PROVIDER
// (cloudinary by default) from environment variables.
func NewUploaderFromEnv(ctx context.Context) (ebay.ImageUploader, error) {
	provider := strings.ToLower(strings.TrimSpace(os.Getenv("MEDIA_PROVIDER")))
	switch provider {
	case "", ProviderCloudinary:
		u, err := NewCloudinaryUploader(CloudinaryConfig{
			CloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
			APIKey:    os.Getenv("CLOUDINARY_API_KEY"),
			APISecret: os.Getenv("CLOUDINARY_API_SECRET"),
		})
		if err != nil {
			return nil, err
		}
		return u, nil
	case ProviderS3:
		u, err := NewS3Uploader(ctx, S3Config{
			Bucket:        os.Getenv("S3_BUCKET"),
			Region:        os.Getenv("S3_REGION"),
			Endpoint:      os.Getenv("S3_ENDPOINT"),
			AccessKey:     os.Getenv("S3_ACCESS_KEY"),
			SecretKey:     os.Getenv("S3_SECRET_KEY"),
			PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),
		})
		if err != nil {
			return nil, err
		}
		return u, nil
	default:
		return nil, fmt.Errorf("unknown media provider %q", provider)
	}
}
