package ebay

import (
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	MaxTitleLength       = 80
	MaxDescriptionLength = 4000
	maxSKUPrefixLength   = 20
	DefaultCategoryID    = "99"
)

// ListingDraft is the user-facing listing produced by vision analysis or by
// manual edits in chat.
type ListingDraft struct {
	Title          string   `json:"title" validate:"required"`
	Description    string   `json:"description" validate:"required"`
	Category       string   `json:"category" validate:"required"`
	SuggestedPrice string   `json:"suggestedPrice" validate:"required"`
	Condition      string   `json:"condition"`
	Keywords       []string `json:"keywords"`
}

// Category names understood by the category table.
const (
	CategoryElectronics = "Electronics"
	CategoryClothing    = "Clothing"
	CategoryHomeGarden  = "Home & Garden"
	CategorySports      = "Sports"
	CategoryToys        = "Toys"
	CategoryBooks       = "Books"
	CategoryOther       = "Other"
)

// Categories lists the category names in display order.
var Categories = []string{
	CategoryElectronics,
	CategoryClothing,
	CategoryHomeGarden,
	CategorySports,
	CategoryToys,
	CategoryBooks,
	CategoryOther,
}

var categoryIDs = map[string]string{
	CategoryElectronics: "15032",
	CategoryClothing:    "15724",
	CategoryHomeGarden:  "159912",
	CategorySports:      "888",
	CategoryToys:        "220",
	CategoryBooks:       "267",
	CategoryOther:       "99",
}

// CategoryID returns the eBay category id for a category name, falling back
// to Collectibles (99) for anything unmapped.
func CategoryID(category string) string {
	if id, ok := categoryIDs[category]; ok {
		return id
	}
	return DefaultCategoryID
}

// IsKnownCategory reports whether the category is in the table.
func IsKnownCategory(category string) bool {
	_, ok := categoryIDs[category]
	return ok
}

// Condition labels understood by the condition table.
const (
	ConditionNew      = "New"
	ConditionLikeNew  = "Used - Like New"
	ConditionGood     = "Used - Good"
	ConditionFair     = "Used - Fair"
	ConditionForParts = "For Parts"
)

// Conditions lists the condition labels in display order.
var Conditions = []string{
	ConditionNew,
	ConditionLikeNew,
	ConditionGood,
	ConditionFair,
	ConditionForParts,
}

// ConditionCode is the representation of a condition in both API families.
type ConditionCode struct {
	Enum string // Inventory API ConditionEnum
	ID   int    // Trading API ConditionID
}

var conditionCodes = map[string]ConditionCode{
	ConditionNew:      {Enum: "NEW", ID: 1000},
	ConditionLikeNew:  {Enum: "LIKE_NEW", ID: 1500},
	ConditionGood:     {Enum: "USED_EXCELLENT", ID: 3000},
	ConditionFair:     {Enum: "USED_GOOD", ID: 4000},
	ConditionForParts: {Enum: "FOR_PARTS_OR_NOT_WORKING", ID: 7000},
}

var defaultConditionCode = ConditionCode{Enum: "USED_GOOD", ID: 4000}

// MapCondition maps a condition label to eBay codes. Unknown labels map to
// USED_GOOD.
func MapCondition(condition string) ConditionCode {
	if c, ok := conditionCodes[condition]; ok {
		return c
	}
	return defaultConditionCode
}

// IsKnownCondition reports whether the condition label is in the table.
func IsKnownCondition(condition string) bool {
	_, ok := conditionCodes[condition]
	return ok
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks that the draft can be submitted: non-empty title,
// description and category, and a price greater than zero.
func (d ListingDraft) Validate() error {
	trimmed := ListingDraft{
		Title:          strings.TrimSpace(d.Title),
		Description:    strings.TrimSpace(d.Description),
		Category:       strings.TrimSpace(d.Category),
		SuggestedPrice: strings.TrimSpace(d.SuggestedPrice),
	}

	var fields []FieldError
	if err := validate.Struct(trimmed); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return fmt.Errorf("failed to validate listing: %w", err)
		}
		for _, e := range verrs {
			fields = append(fields, FieldError{Field: e.Field(), Message: "is required"})
		}
	}

	if trimmed.SuggestedPrice != "" {
		if _, err := NormalizePrice(trimmed.SuggestedPrice); err != nil {
			fields = append(fields, FieldError{Field: "suggestedPrice", Message: err.Error()})
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// NormalizePrice strips currency symbols and thousands separators and
// returns the value rounded to cents, e.g. "$19.999" -> "20.00".
func NormalizePrice(price string) (string, error) {
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(price))
	if cleaned == "" {
		return "", fmt.Errorf("price is empty")
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return "", fmt.Errorf("price %q is not a number", price)
	}
	rounded := d.Round(2)
	if !rounded.IsPositive() {
		return "", fmt.Errorf("price must be greater than zero")
	}
	return rounded.StringFixed(2), nil
}

// TruncateTitle shortens titles longer than 80 characters to 77 characters
// followed by "...". Length is counted in runes.
func TruncateTitle(title string) string {
	if utf8.RuneCountInString(title) <= MaxTitleLength {
		return title
	}
	runes := []rune(title)
	return string(runes[:MaxTitleLength-3]) + "..."
}

// ClampDescription cuts descriptions to eBay's 4000 character limit.
func ClampDescription(description string) string {
	if utf8.RuneCountInString(description) <= MaxDescriptionLength {
		return description
	}
	return string([]rune(description)[:MaxDescriptionLength])
}

// GenerateSKU builds a SKU from the alphanumeric characters of the title and
// the last six digits of the timestamp in milliseconds.
func GenerateSKU(title string, t time.Time) string {
	var b strings.Builder
	for _, r := range title {
		if b.Len() >= maxSKUPrefixLength {
			break
		}
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	prefix := strings.ToUpper(b.String())
	if prefix == "" {
		prefix = "ITEM"
	}
	return fmt.Sprintf("%s%06d", prefix, t.UnixMilli()%1_000_000)
}

// ListingURL returns the public URL of a listing.
func ListingURL(listingID string, sandbox bool) string {
	if sandbox {
		return "https://sandbox.ebay.com/itm/" + listingID
	}
	return "https://www.ebay.com/itm/" + listingID
}
