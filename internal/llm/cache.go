package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/raine/telegram-ebay-bot/internal/ebay"
	"github.com/rs/zerolog/log"
)

// DraftCache stores drafted listings keyed by image hash.
type DraftCache interface {
	GetVisionDraft(ctx context.Context, hash string) (*ebay.ListingDraft, error)
	SetVisionDraft(ctx context.Context, hash string, draft ebay.ListingDraft) error
}

// CachingAnalyzer skips the model call for photos that were analyzed before.
// Placeholder drafts are not cached so that a retry can do better.
type CachingAnalyzer struct {
	Analyzer
	cache DraftCache
}

func NewCachingAnalyzer(analyzer Analyzer, cache DraftCache) *CachingAnalyzer {
	return &CachingAnalyzer{Analyzer: analyzer, cache: cache}
}

func (c *CachingAnalyzer) AnalyzeImages(ctx context.Context, images []ebay.Image) (*AnalysisResult, error) {
	hash := ImagesHash(images)

	draft, err := c.cache.GetVisionDraft(ctx, hash)
	if err != nil {
		log.Warn().Err(err).Str("hash", hash).Msg("vision cache read failed")
	} else if draft != nil {
		log.Info().Str("hash", hash).Msg("vision cache hit")
		return &AnalysisResult{Draft: *draft, Cached: true}, nil
	}

	result, err := c.Analyzer.AnalyzeImages(ctx, images)
	if err != nil {
		return nil, err
	}

	if !result.Recovered {
		if err := c.cache.SetVisionDraft(ctx, hash, result.Draft); err != nil {
			log.Warn().Err(err).Str("hash", hash).Msg("vision cache write failed")
		}
	}
	return result, nil
}

// ImagesHash returns the hex SHA-256 of the image bytes in order.
func ImagesHash(images []ebay.Image) string {
	h := sha256.New()
	for _, img := range images {
		h.Write(img.Data)
		// Separator so that ["ab","c"] and ["a","bc"] differ
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
