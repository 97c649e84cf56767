package media

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/raine/telegram-ebay-bot/internal/ebay"
	"github.com/rs/zerolog/log"
)

const (
	cloudinaryBaseURL = "https://api.cloudinary.com"
	// Folder images are uploaded into.
	cloudinaryFolder = "ai-photo-to-ebay"
	// Incoming transformation: cap the longest side at 1200px.
	cloudinaryTransformation = "c_limit,h_1200,w_1200"
)

// CloudinaryConfig holds Cloudinary account credentials.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	// BaseURL overrides the API host, used by tests.
	BaseURL string
}

// CloudinaryUploader hosts images on Cloudinary with signed uploads.
type CloudinaryUploader struct {
	cfg        CloudinaryConfig
	httpClient *resty.Client
	now        func() time.Time
}

var _ ebay.ImageUploader = (*CloudinaryUploader)(nil)

type cloudinaryUploadResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Format    string `json:"format"`
}

// NewCloudinaryUploader returns a ConfigurationError when any credential is
// missing.
func NewCloudinaryUploader(cfg CloudinaryConfig) (*CloudinaryUploader, error) {
	var missing []string
	if cfg.CloudName == "" {
		missing = append(missing, "CLOUDINARY_CLOUD_NAME")
	}
	if cfg.APIKey == "" {
		missing = append(missing, "CLOUDINARY_API_KEY")
	}
	if cfg.APISecret == "" {
		missing = append(missing, "CLOUDINARY_API_SECRET")
	}
	if len(missing) > 0 {
		return nil, &ebay.ConfigurationError{Missing: missing}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = cloudinaryBaseURL
	}

	return &CloudinaryUploader{
		cfg: cfg,
		now: time.Now,
		httpClient: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(30 * time.Second).
			SetHeader("Accept", "application/json"),
	}, nil
}

// UploadImage uploads the image and returns its https URL.
func (u *CloudinaryUploader) UploadImage(ctx context.Context, img ebay.Image) (string, error) {
	if len(img.Data) == 0 {
		return "", fmt.Errorf("image %d is empty", img.Position)
	}

	params := map[string]string{
		"folder":         cloudinaryFolder,
		"timestamp":      strconv.FormatInt(u.now().Unix(), 10),
		"transformation": cloudinaryTransformation,
	}
	signature := cloudinarySignature(params, u.cfg.APISecret)

	form := map[string]string{
		"file":      dataURI(img),
		"api_key":   u.cfg.APIKey,
		"signature": signature,
	}
	for k, v := range params {
		form[k] = v
	}

	result := &cloudinaryUploadResponse{}
	res, err := u.httpClient.R().
		SetContext(ctx).
		SetPathParam("cloud", u.cfg.CloudName).
		SetMultipartFormData(form).
		SetResult(result).
		Post("/v1_1/{cloud}/image/upload")
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	if res.IsError() {
		return "", &ebay.UpstreamError{Operation: "cloudinary upload", StatusCode: res.StatusCode(), Body: res.String()}
	}
	if result.SecureURL == "" {
		return "", &ebay.ParseError{Raw: res.String(), Err: fmt.Errorf("upload response has no secure_url")}
	}

	log.Info().
		Str("publicId", result.PublicID).
		Int("position", img.Position).
		Int("width", result.Width).
		Int("height", result.Height).
		Msg("image uploaded to cloudinary")

	return result.SecureURL, nil
}

// cloudinarySignature signs upload parameters: the params sorted by name,
// joined as k=v with &, followed by the API secret, SHA-1 hex encoded.
func cloudinarySignature(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + params[k]
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}

func dataURI(img ebay.Image) string {
	mimeType := img.MimeType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
