package bot

import (
	"fmt"
	"strings"

	"github.com/lithammer/dedent"
)

func formatReplyText(text string, a ...any) string {
	text = strings.TrimSpace(dedent.Dedent(text))
	if len(a) == 0 {
		return text
	}
	return fmt.Sprintf(text, a...)
}

// parseCommand splits "/price 25" into "/price" and its arguments. A bot
// username suffix ("/price@my_bot") is dropped.
func parseCommand(s string) (string, []string) {
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return "", nil
	}
	command := parts[0]
	if i := strings.Index(command, "@"); i > 0 {
		command = command[:i]
	}
	return strings.ToLower(command), parts[1:]
}

// commandArgument returns everything after the command word with the
// original spacing and newlines intact.
func commandArgument(s string) string {
	s = strings.TrimSpace(s)
	i := strings.IndexAny(s, " \n\t")
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(s[i:])
}

// escapeMarkdown escapes special characters for Telegram Markdown V1
func escapeMarkdown(text string) string {
	text = strings.ReplaceAll(text, "*", "\\*")
	text = strings.ReplaceAll(text, "_", "\\_")
	text = strings.ReplaceAll(text, "`", "\\`")
	text = strings.ReplaceAll(text, "[", "\\[")
	return text
}

func pluralize(singular string, plural string, count int) string {
	s := plural
	if count == 1 {
		s = singular
	}
	return fmt.Sprintf("%d %s", count, s)
}
