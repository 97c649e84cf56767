package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/raine/telegram-ebay-bot/internal/ebay"
)

const (
	placeholderTitle     = "AI-Identified Product"
	placeholderPrice     = "$25.00"
	placeholderSnippet   = 200
	defaultDraftCategory = ebay.CategoryOther
	defaultDraftCond     = ebay.ConditionGood
)

var errNoJSONObject = errors.New("no JSON object found in response")

// extractJSONObject extracts a JSON object from text that may contain markdown
// code blocks or other formatting.
func extractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", errNoJSONObject
	}
	return text[start : end+1], nil
}

// rawDraft accepts the price as either a string or a number, since models
// are not consistent about it.
type rawDraft struct {
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Category       string          `json:"category"`
	SuggestedPrice json.RawMessage `json:"suggestedPrice"`
	Condition      string          `json:"condition"`
	Keywords       []string        `json:"keywords"`
}

// parseDraft decodes a model answer into a listing draft. Category and
// condition values outside the known tables are coerced to the defaults.
func parseDraft(text string) (ebay.ListingDraft, error) {
	jsonStr, err := extractJSONObject(text)
	if err != nil {
		return ebay.ListingDraft{}, &ebay.ParseError{Raw: text, Err: err}
	}

	var raw rawDraft
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return ebay.ListingDraft{}, &ebay.ParseError{Raw: text, Err: err}
	}

	draft := ebay.ListingDraft{
		Title:          strings.TrimSpace(raw.Title),
		Description:    strings.TrimSpace(raw.Description),
		Category:       coerce(raw.Category, ebay.Categories, defaultDraftCategory),
		SuggestedPrice: parsePrice(raw.SuggestedPrice),
		Condition:      coerce(raw.Condition, ebay.Conditions, defaultDraftCond),
		Keywords:       cleanKeywords(raw.Keywords),
	}
	if draft.Title == "" {
		return ebay.ListingDraft{}, &ebay.ParseError{Raw: text, Err: fmt.Errorf("draft has no title")}
	}
	return draft, nil
}

// placeholderDraft is offered when the answer is unusable. The description
// keeps the beginning of the raw answer so the user has something to edit.
func placeholderDraft(text string) ebay.ListingDraft {
	snippet := strings.TrimSpace(text)
	if utf8.RuneCountInString(snippet) > placeholderSnippet {
		snippet = string([]rune(snippet)[:placeholderSnippet])
	}
	return ebay.ListingDraft{
		Title:          placeholderTitle,
		Description:    snippet + "...",
		Category:       defaultDraftCategory,
		SuggestedPrice: placeholderPrice,
		Condition:      defaultDraftCond,
		Keywords:       []string{"item", "product"},
	}
}

// coerce returns the allowed value matching v case-insensitively, or def.
func coerce(v string, allowed []string, def string) string {
	v = strings.TrimSpace(v)
	i := slices.IndexFunc(allowed, func(a string) bool { return strings.EqualFold(a, v) })
	if i < 0 {
		return def
	}
	return allowed[i]
}

func parsePrice(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return normalizedOrRaw(s)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return normalizedOrRaw(fmt.Sprintf("%v", f))
	}
	return ""
}

// normalizedOrRaw formats valid prices as "$XX.XX" and leaves anything else
// for draft validation to reject.
func normalizedOrRaw(s string) string {
	if p, err := ebay.NormalizePrice(s); err == nil {
		return "$" + p
	}
	return strings.TrimSpace(s)
}

func cleanKeywords(keywords []string) []string {
	var out []string
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" && !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	return out
}
