package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/raine/telegram-ebay-bot/internal/ebay"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const (
	geminiModel     = "gemini-3-flash-preview"
	geminiLiteModel = "gemini-2.5-flash-lite"
)

// Gemini pricing (per million tokens)
const (
	geminiInputPricePerMillion      = 0.50
	geminiOutputPricePerMillion     = 3.00
	geminiLiteInputPricePerMillion  = 0.075
	geminiLiteOutputPricePerMillion = 0.30
)

// maxAnalyzedImages caps how many photos go into one vision request.
const maxAnalyzedImages = 10

const listingPrompt = `You are an expert eBay listing creator. Analyze this image and create a compelling eBay listing.

IMPORTANT: Respond ONLY with a valid JSON object in this exact format:
{
  "title": "SEO-optimized product title (max 80 chars)",
  "description": "Detailed product description highlighting key features, condition, and selling points (2-4 sentences)",
  "category": "Electronics|Clothing|Home & Garden|Sports|Toys|Books|Other",
  "suggestedPrice": "$XX.XX",
  "condition": "New|Used - Like New|Used - Good|Used - Fair|For Parts",
  "keywords": ["brand", "model", "type", "key", "features"]
}

Guidelines:
- Be specific about brand, model, size, color when visible
- Include condition assessment based on visual appearance
- Price should reflect current market value in US dollars
- Title should be searchable and compelling
- Keywords should help with eBay search visibility
- If unsure about something, make reasonable estimates based on what you can see`

const multiImageNote = `

The images show the same item from different angles. Use all of them together to judge condition, brand, model and features.`

const editIntentPrompt = `You help a seller edit an eBay listing draft using plain language.

Current draft:
- Title: %s
- Description: %s
- Price: %s
- Category: %s (one of: %s)
- Condition: %s (one of: %s)

Seller's message: %q

Work out which fields the seller wants to change. Respond with a JSON object with these fields, using null for fields that do not change:
- new_title: the full new title
- new_description: the full new description (when adding or removing details, return the whole edited description)
- new_price: the new price as "$XX.XX"
- new_category: one of the listed categories
- new_condition: one of the listed conditions

Examples (assume the description is "Works great, small scratch"):
- "make it 40 bucks" -> {"new_title": null, "new_description": null, "new_price": "$40.00", "new_category": null, "new_condition": null}
- "remove the part about the scratch" -> {"new_title": null, "new_description": "Works great.", "new_price": null, "new_category": null, "new_condition": null}
- "it's basically new" -> {"new_title": null, "new_description": null, "new_price": null, "new_category": null, "new_condition": "Used - Like New"}

Respond ONLY with the JSON object.`

// draftSchema constrains the vision answer to the listing draft shape.
var draftSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"title":          {Type: genai.TypeString, Description: "Listing title, at most 80 characters"},
		"description":    {Type: genai.TypeString},
		"category":       {Type: genai.TypeString, Enum: ebay.Categories},
		"suggestedPrice": {Type: genai.TypeString, Description: "Price in US dollars formatted as $XX.XX"},
		"condition":      {Type: genai.TypeString, Enum: ebay.Conditions},
		"keywords":       {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
	},
	Required:         []string{"title", "description", "category", "suggestedPrice", "condition", "keywords"},
	PropertyOrdering: []string{"title", "description", "category", "suggestedPrice", "condition", "keywords"},
}

// GeminiAnalyzer uses Google's Gemini API for image analysis and draft edits.
type GeminiAnalyzer struct {
	client *genai.Client
}

// NewGeminiAnalyzer creates a new Gemini-based analyzer.
// It uses the GEMINI_API_KEY environment variable for authentication.
func NewGeminiAnalyzer(ctx context.Context) (*GeminiAnalyzer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: os.Getenv("GEMINI_API_KEY"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiAnalyzer{client: client}, nil
}

// AnalyzeImages drafts a listing from one or more photos. An answer that
// cannot be parsed yields a placeholder draft with Recovered set instead of
// an error.
func (g *GeminiAnalyzer) AnalyzeImages(ctx context.Context, images []ebay.Image) (*AnalysisResult, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("no images provided")
	}
	if len(images) > maxAnalyzedImages {
		images = images[:maxAnalyzedImages]
	}

	prompt := listingPrompt
	if len(images) > 1 {
		prompt += multiImageNote
	}

	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	for _, img := range images {
		mimeType := img.MimeType
		if mimeType == "" {
			mimeType = "image/jpeg"
		}
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{Data: img.Data, MIMEType: mimeType},
		})
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   draftSchema,
	}

	result, err := g.client.Models.GenerateContent(ctx, geminiModel, []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}, config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from Gemini")
	}

	usage := Usage{}
	if result.UsageMetadata != nil {
		usage.InputTokens = int64(result.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int64(result.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int64(result.UsageMetadata.TotalTokenCount)
		usage.CostUSD = calculateGeminiCost(usage.InputTokens, usage.OutputTokens, geminiInputPricePerMillion, geminiOutputPricePerMillion)
	}

	log.Info().
		Str("model", geminiModel).
		Int("imageCount", len(images)).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Float64("costUSD", usage.CostUSD).
		Msg("vision llm call")

	analysis := draftFromText(result.Text())
	analysis.Usage = usage
	return analysis, nil
}

// draftFromText parses the model answer, falling back to a placeholder.
func draftFromText(text string) *AnalysisResult {
	draft, err := parseDraft(text)
	if err != nil {
		var perr *ebay.ParseError
		if errors.As(err, &perr) {
			log.Warn().Err(err).Str("response", perr.Raw).Msg("vision answer unparseable, using placeholder draft")
		}
		return &AnalysisResult{Draft: placeholderDraft(text), Recovered: true}
	}
	return &AnalysisResult{Draft: draft}
}

func calculateGeminiCost(inputTokens, outputTokens int64, inputPrice, outputPrice float64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * inputPrice
	outputCost := float64(outputTokens) / 1_000_000 * outputPrice
	return inputCost + outputCost
}

// EditIntent contains the changes a seller asked for. Nil fields are left
// unchanged.
type EditIntent struct {
	NewTitle       *string `json:"new_title"`
	NewDescription *string `json:"new_description"`
	NewPrice       *string `json:"new_price"`
	NewCategory    *string `json:"new_category"`
	NewCondition   *string `json:"new_condition"`
}

// Apply returns the draft with the intended changes. Category and condition
// values outside the known tables are ignored.
func (e *EditIntent) Apply(draft ebay.ListingDraft) ebay.ListingDraft {
	if e.NewTitle != nil && strings.TrimSpace(*e.NewTitle) != "" {
		draft.Title = strings.TrimSpace(*e.NewTitle)
	}
	if e.NewDescription != nil && strings.TrimSpace(*e.NewDescription) != "" {
		draft.Description = strings.TrimSpace(*e.NewDescription)
	}
	if e.NewPrice != nil {
		if p, err := ebay.NormalizePrice(*e.NewPrice); err == nil {
			draft.SuggestedPrice = "$" + p
		}
	}
	if e.NewCategory != nil && ebay.IsKnownCategory(*e.NewCategory) {
		draft.Category = *e.NewCategory
	}
	if e.NewCondition != nil && ebay.IsKnownCondition(*e.NewCondition) {
		draft.Condition = *e.NewCondition
	}
	return draft
}

// Empty reports whether the intent changes nothing.
func (e *EditIntent) Empty() bool {
	return e.NewTitle == nil && e.NewDescription == nil && e.NewPrice == nil &&
		e.NewCategory == nil && e.NewCondition == nil
}

// EditIntentParser can parse natural language edit commands.
type EditIntentParser interface {
	ParseEditIntent(ctx context.Context, message string, draft ebay.ListingDraft) (*EditIntent, error)
}

// ParseEditIntent parses a natural language edit command and returns the intended changes.
func (g *GeminiAnalyzer) ParseEditIntent(ctx context.Context, message string, draft ebay.ListingDraft) (*EditIntent, error) {
	prompt := fmt.Sprintf(editIntentPrompt,
		draft.Title, draft.Description, draft.SuggestedPrice,
		draft.Category, strings.Join(ebay.Categories, ", "),
		draft.Condition, strings.Join(ebay.Conditions, ", "),
		message)

	result, err := g.client.Models.GenerateContent(ctx, geminiLiteModel, []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(prompt)}, genai.RoleUser),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini edit intent failed: %w", err)
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from gemini")
	}

	intent, err := parseEditIntent(result.Text())
	if err != nil {
		return nil, err
	}

	if result.UsageMetadata != nil {
		cost := calculateGeminiCost(
			int64(result.UsageMetadata.PromptTokenCount),
			int64(result.UsageMetadata.CandidatesTokenCount),
			geminiLiteInputPricePerMillion,
			geminiLiteOutputPricePerMillion,
		)
		log.Info().
			Str("model", geminiLiteModel).
			Int("inputTokens", int(result.UsageMetadata.PromptTokenCount)).
			Int("outputTokens", int(result.UsageMetadata.CandidatesTokenCount)).
			Float64("costUSD", cost).
			Str("message", message).
			Msg("edit intent llm call")
	}

	return intent, nil
}

func parseEditIntent(text string) (*EditIntent, error) {
	jsonStr, err := extractJSONObject(text)
	if err != nil {
		return nil, &ebay.ParseError{Raw: text, Err: err}
	}

	var intent EditIntent
	if err := json.Unmarshal([]byte(jsonStr), &intent); err != nil {
		return nil, &ebay.ParseError{Raw: text, Err: err}
	}
	return &intent, nil
}
