package bot

import (
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/raine/telegram-ebay-bot/internal/ebay"
	"github.com/rs/zerolog/log"
)

// maxPhotoSize caps downloads from Telegram; photos are at most a few MB.
const maxPhotoSize = 20 * 1024 * 1024

// httpClient is reused for file downloads to avoid creating new clients per request
var httpClient = resty.New().SetTimeout(30 * time.Second)

func downloadFileID(
	getFileDirectURL func(fileId string) (string, error),
	fileID string,
) ([]byte, error) {
	log.Info().Str("fileId", fileID).Msg("downloading file id")
	url, err := getFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get file URL: %w", err)
	}
	res, err := httpClient.R().Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("download failed: status %d", res.StatusCode())
	}
	if len(res.Body()) > maxPhotoSize {
		return nil, fmt.Errorf("file too large: %d bytes", len(res.Body()))
	}
	return res.Body(), nil
}

// downloadImage fetches a Telegram photo and tags it with its MIME type.
func downloadImage(getFileDirectURL func(fileId string) (string, error), fileID string) (ebay.Image, error) {
	data, err := downloadFileID(getFileDirectURL, fileID)
	if err != nil {
		return ebay.Image{}, err
	}
	return ebay.Image{Data: data, MimeType: imageMimeType(data)}, nil
}

// imageMimeType sniffs the content. Telegram serves photos as JPEG, but
// documents sent as photos can be anything.
func imageMimeType(data []byte) string {
	mt := http.DetectContentType(data)
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		mt = parsed
	}
	if !strings.HasPrefix(mt, "image/") {
		return "image/jpeg"
	}
	return mt
}
