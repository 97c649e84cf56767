package llm

import (
	"context"

	"github.com/raine/telegram-ebay-bot/internal/ebay"
)

// Usage contains token usage and cost information.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	CostUSD      float64
}

// AnalysisResult contains the drafted listing and usage information.
type AnalysisResult struct {
	Draft ebay.ListingDraft
	Usage Usage
	// Recovered is set when the model answer could not be parsed and the
	// draft is a placeholder for the user to edit.
	Recovered bool
	// Cached is set when the draft came from the vision cache.
	Cached bool
}

// Analyzer can analyze item photos and draft an eBay listing.
type Analyzer interface {
	// AnalyzeImages analyzes one or more photos of the same item together.
	AnalyzeImages(ctx context.Context, images []ebay.Image) (*AnalysisResult, error)
}
