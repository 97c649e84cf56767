package bot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/raine/telegram-ebay-bot/internal/ebay"
)

// maxErrorBodyLength keeps raw upstream bodies within one chat message.
const maxErrorBodyLength = 1500

// describeError turns a pipeline error into a chat message. eBay's own
// messages are shown as they were received.
func describeError(err error) string {
	var authErr *ebay.AuthExpiredError
	var validationErr *ebay.ValidationError
	var configErr *ebay.ConfigurationError
	var uploadErr *ebay.UploadError
	var publishErr *ebay.PublishError
	var upstreamErr *ebay.UpstreamError

	switch {
	case errors.As(err, &authErr):
		return MsgSessionExpired
	case errors.As(err, &validationErr):
		lines := make([]string, len(validationErr.Fields))
		for i, f := range validationErr.Fields {
			lines[i] = fmt.Sprintf("• %s: %s", f.Field, escapeMarkdown(f.Message))
		}
		return fmt.Sprintf(MsgDraftInvalid, strings.Join(lines, "\n"))
	case errors.As(err, &configErr):
		return fmt.Sprintf(MsgConfigMissing, escapeMarkdown(strings.Join(configErr.Missing, ", ")))
	case errors.As(err, &uploadErr):
		return fmt.Sprintf(MsgUploadFailed, escapeMarkdown(uploadErr.Error()))
	case errors.As(err, &publishErr):
		lines := make([]string, len(publishErr.Attempts))
		for i, a := range publishErr.Attempts {
			lines[i] = fmt.Sprintf("• %s: %s", a.Strategy, escapeMarkdown(fmt.Sprint(a.Err)))
		}
		return fmt.Sprintf(MsgAllStrategiesErr, strings.Join(lines, "\n"))
	case errors.As(err, &upstreamErr):
		return fmt.Sprintf(MsgUpstreamFailed, upstreamErr.Operation, upstreamErr.StatusCode, codeSafe(upstreamErr.Body))
	default:
		return fmt.Sprintf(MsgPublishFailed, escapeMarkdown(err.Error()))
	}
}

// codeSafe prepares text for a Markdown code span.
func codeSafe(s string) string {
	s = strings.ReplaceAll(s, "`", "'")
	if r := []rune(s); len(r) > maxErrorBodyLength {
		s = string(r[:maxErrorBodyLength]) + "…"
	}
	return s
}
