package llm

import (
	"strings"
	"testing"

	"github.com/raine/telegram-ebay-bot/internal/ebay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject(t *testing.T) {
	got, err := extractJSONObject("```json\n{\"title\": \"x\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, `{"title": "x"}`, got)

	_, err = extractJSONObject("I cannot identify this item.")
	assert.ErrorIs(t, err, errNoJSONObject)

	_, err = extractJSONObject("} backwards {")
	assert.Error(t, err)
}

func TestDraftFromText(t *testing.T) {
	text := `Here is your listing:
{
  "title": "Vintage Canon AE-1 35mm Film Camera",
  "description": "Classic SLR in working condition.",
  "category": "Electronics",
  "suggestedPrice": "$45",
  "condition": "Used - Good",
  "keywords": ["canon", "ae-1", " ", "canon"]
}`

	res := draftFromText(text)
	assert.False(t, res.Recovered)
	assert.Equal(t, ebay.ListingDraft{
		Title:          "Vintage Canon AE-1 35mm Film Camera",
		Description:    "Classic SLR in working condition.",
		Category:       "Electronics",
		SuggestedPrice: "$45.00",
		Condition:      "Used - Good",
		Keywords:       []string{"canon", "ae-1"},
	}, res.Draft)
}

func TestDraftFromText_CoercesUnknownValues(t *testing.T) {
	res := draftFromText(`{"title":"Necklace","description":"Silver","category":"Jewelry","suggestedPrice":19.5,"condition":"Mint","keywords":[]}`)
	assert.False(t, res.Recovered)
	assert.Equal(t, "Other", res.Draft.Category)
	assert.Equal(t, "Used - Good", res.Draft.Condition)
	assert.Equal(t, "$19.50", res.Draft.SuggestedPrice)
}

func TestDraftFromText_CaseInsensitiveCategory(t *testing.T) {
	res := draftFromText(`{"title":"Lamp","description":"Brass","category":"home & garden","suggestedPrice":"$20.00","condition":"used - fair"}`)
	assert.Equal(t, "Home & Garden", res.Draft.Category)
	assert.Equal(t, "Used - Fair", res.Draft.Condition)
}

func TestDraftFromText_Placeholder(t *testing.T) {
	text := "This appears to be a camera, but I am not able to produce JSON right now."
	res := draftFromText(text)

	assert.True(t, res.Recovered)
	assert.Equal(t, "AI-Identified Product", res.Draft.Title)
	assert.Equal(t, text+"...", res.Draft.Description)
	assert.Equal(t, "Other", res.Draft.Category)
	assert.Equal(t, "$25.00", res.Draft.SuggestedPrice)
	assert.Equal(t, "Used - Good", res.Draft.Condition)
	assert.Equal(t, []string{"item", "product"}, res.Draft.Keywords)

	// The placeholder is a valid draft the user can publish after editing
	assert.NoError(t, res.Draft.Validate())
}

func TestDraftFromText_PlaceholderTruncatesDescription(t *testing.T) {
	text := strings.Repeat("é", 500)
	res := draftFromText(text)
	require.True(t, res.Recovered)
	assert.Equal(t, strings.Repeat("é", 200)+"...", res.Draft.Description)
}

func TestDraftFromText_MissingTitleIsPlaceholder(t *testing.T) {
	res := draftFromText(`{"description":"something"}`)
	assert.True(t, res.Recovered)
}

func TestEditIntent_Apply(t *testing.T) {
	draft := ebay.ListingDraft{
		Title:          "Vintage Camera",
		Description:    "Works great",
		Category:       "Electronics",
		SuggestedPrice: "$45.00",
		Condition:      "Used - Good",
	}

	intent, err := parseEditIntent(`{"new_title": null, "new_description": null, "new_price": "40", "new_category": "Jewelry", "new_condition": "New"}`)
	require.NoError(t, err)
	assert.False(t, intent.Empty())

	got := intent.Apply(draft)
	assert.Equal(t, "$40.00", got.SuggestedPrice)
	assert.Equal(t, "Electronics", got.Category)
	assert.Equal(t, "New", got.Condition)
	assert.Equal(t, "Vintage Camera", got.Title)
}

func TestParseEditIntent_Empty(t *testing.T) {
	intent, err := parseEditIntent(`{"new_title": null, "new_description": null, "new_price": null, "new_category": null, "new_condition": null}`)
	require.NoError(t, err)
	assert.True(t, intent.Empty())

	_, err = parseEditIntent("no idea")
	var perr *ebay.ParseError
	assert.ErrorAs(t, err, &perr)
}
