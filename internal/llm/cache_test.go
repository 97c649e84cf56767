package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/raine/telegram-ebay-bot/internal/ebay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryDraftCache struct {
	drafts map[string]ebay.ListingDraft
	getErr error
}

func (m *memoryDraftCache) GetVisionDraft(ctx context.Context, hash string) (*ebay.ListingDraft, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	d, ok := m.drafts[hash]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (m *memoryDraftCache) SetVisionDraft(ctx context.Context, hash string, draft ebay.ListingDraft) error {
	m.drafts[hash] = draft
	return nil
}

func TestCachingAnalyzer(t *testing.T) {
	ctx := context.Background()
	mock := &MockAnalyzer{}
	cache := &memoryDraftCache{drafts: map[string]ebay.ListingDraft{}}
	analyzer := NewCachingAnalyzer(mock, cache)

	images := []ebay.Image{{Data: []byte("photo-1")}}

	first, err := analyzer.AnalyzeImages(ctx, images)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := analyzer.AnalyzeImages(ctx, images)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Draft, second.Draft)
	assert.Equal(t, 1, mock.CallCount("AnalyzeImages"))

	_, err = analyzer.AnalyzeImages(ctx, []ebay.Image{{Data: []byte("photo-2")}})
	require.NoError(t, err)
	assert.Equal(t, 2, mock.CallCount("AnalyzeImages"))
}

func TestCachingAnalyzer_SkipsPlaceholder(t *testing.T) {
	ctx := context.Background()
	mock := &MockAnalyzer{
		AnalyzeImagesFunc: func(ctx context.Context, images []ebay.Image) (*AnalysisResult, error) {
			return &AnalysisResult{Draft: placeholderDraft("garbled"), Recovered: true}, nil
		},
	}
	cache := &memoryDraftCache{drafts: map[string]ebay.ListingDraft{}}
	analyzer := NewCachingAnalyzer(mock, cache)

	_, err := analyzer.AnalyzeImages(ctx, []ebay.Image{{Data: []byte("x")}})
	require.NoError(t, err)
	assert.Empty(t, cache.drafts)
}

func TestCachingAnalyzer_CacheErrorFallsThrough(t *testing.T) {
	mock := &MockAnalyzer{}
	cache := &memoryDraftCache{drafts: map[string]ebay.ListingDraft{}, getErr: errors.New("database is locked")}
	analyzer := NewCachingAnalyzer(mock, cache)

	res, err := analyzer.AnalyzeImages(context.Background(), []ebay.Image{{Data: []byte("x")}})
	require.NoError(t, err)
	assert.Equal(t, "Vintage Camera", res.Draft.Title)
	assert.Equal(t, 1, mock.CallCount("AnalyzeImages"))
}

func TestImagesHash(t *testing.T) {
	a := ImagesHash([]ebay.Image{{Data: []byte("ab")}, {Data: []byte("c")}})
	b := ImagesHash([]ebay.Image{{Data: []byte("a")}, {Data: []byte("bc")}})
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 64)
	assert.Equal(t, a, ImagesHash([]ebay.Image{{Data: []byte("ab")}, {Data: []byte("c")}}))
}
