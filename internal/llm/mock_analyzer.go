package llm

import (
	"context"
	"sync"

	"github.com/raine/telegram-ebay-bot/internal/ebay"
)

// MockAnalyzer is a test double for Analyzer and EditIntentParser.
type MockAnalyzer struct {
	AnalyzeImagesFunc   func(ctx context.Context, images []ebay.Image) (*AnalysisResult, error)
	ParseEditIntentFunc func(ctx context.Context, message string, draft ebay.ListingDraft) (*EditIntent, error)

	mu    sync.Mutex
	calls map[string]int
}

var (
	_ Analyzer         = (*MockAnalyzer)(nil)
	_ EditIntentParser = (*MockAnalyzer)(nil)
)

func (m *MockAnalyzer) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[method]++
}

// CallCount returns how many times a method was invoked.
func (m *MockAnalyzer) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *MockAnalyzer) AnalyzeImages(ctx context.Context, images []ebay.Image) (*AnalysisResult, error) {
	m.record("AnalyzeImages")
	if m.AnalyzeImagesFunc != nil {
		return m.AnalyzeImagesFunc(ctx, images)
	}
	return &AnalysisResult{Draft: ebay.ListingDraft{
		Title:          "Vintage Camera",
		Description:    "Works great",
		Category:       ebay.CategoryElectronics,
		SuggestedPrice: "$45.00",
		Condition:      ebay.ConditionGood,
		Keywords:       []string{"camera", "vintage"},
	}}, nil
}

func (m *MockAnalyzer) ParseEditIntent(ctx context.Context, message string, draft ebay.ListingDraft) (*EditIntent, error) {
	m.record("ParseEditIntent")
	if m.ParseEditIntentFunc != nil {
		return m.ParseEditIntentFunc(ctx, message, draft)
	}
	return &EditIntent{}, nil
}
