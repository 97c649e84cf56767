package bot

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/raine/telegram-ebay-bot/internal/ebay"
	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input   string
		command string
		args    []string
	}{
		{"/price 25", "/price", []string{"25"}},
		{"/Publish@ebay_lister_bot", "/publish", []string{}},
		{"/admin users add 12", "/admin", []string{"users", "add", "12"}},
		{"  ", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			command, args := parseCommand(tt.input)
			assert.Equal(t, tt.command, command)
			if tt.args == nil {
				assert.Nil(t, args)
			} else {
				assert.ElementsMatch(t, tt.args, args)
			}
		})
	}
}

func TestCommandArgument(t *testing.T) {
	assert.Equal(t, "Canon  AE-1", commandArgument("/title Canon  AE-1"))
	assert.Equal(t, "line one\nline two", commandArgument("/description\nline one\nline two"))
	assert.Equal(t, "", commandArgument("/title"))
}

func TestFormatReplyText(t *testing.T) {
	assert.Equal(t, "100% cotton", formatReplyText("100% cotton"))
	assert.Equal(t, "a\nb", formatReplyText("\n\t\ta\n\t\tb\n"))
	assert.Equal(t, "7 photos", formatReplyText("%d photos", 7))
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains []string
	}{
		{
			name:     "expired token",
			err:      fmt.Errorf("publish: %w", &ebay.AuthExpiredError{}),
			contains: []string{MsgSessionExpired},
		},
		{
			name: "invalid draft",
			err: &ebay.ValidationError{Fields: []ebay.FieldError{
				{Field: "title", Message: "is required"},
				{Field: "price", Message: "must be greater than zero"},
			}},
			contains: []string{"• title: is required", "• price: must be greater than zero"},
		},
		{
			name:     "missing configuration",
			err:      &ebay.ConfigurationError{Missing: []string{"EBAY_PAYMENT_POLICY_ID"}},
			contains: []string{"EBAY\\_PAYMENT\\_POLICY\\_ID"},
		},
		{
			name:     "upstream body shown as received",
			err:      &ebay.UpstreamError{Operation: "create offer", StatusCode: 400, Body: `{"errors":[{"errorId":25002}]}`},
			contains: []string{"create offer", "status 400", `{"errors":[{"errorId":25002}]}`},
		},
		{
			name: "all strategies failed",
			err: &ebay.PublishError{Attempts: []ebay.StrategyResult{
				{Strategy: ebay.StrategyInventory, Err: errors.New("offer rejected")},
				{Strategy: ebay.StrategyTrading},
			}},
			contains: []string{"• inventory: offer rejected", "• trading: <nil>"},
		},
		{
			name:     "anything else",
			err:      errors.New("connection reset"),
			contains: []string{"Publishing failed: connection reset"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := describeError(tt.err)
			for _, want := range tt.contains {
				assert.Contains(t, text, want)
			}
		})
	}
}

func TestCodeSafe(t *testing.T) {
	assert.Equal(t, "it's 'quoted'", codeSafe("it's `quoted`"))

	long := codeSafe(strings.Repeat("x", maxErrorBodyLength+10))
	assert.Equal(t, maxErrorBodyLength+1, len([]rune(long)))
	assert.True(t, strings.HasSuffix(long, "…"))
}
