package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// Command is an entry in the Telegram command menu.
type Command struct {
	Name        string
	Description string
}

// botCommands is the command menu shown by Telegram clients.
var botCommands = []Command{
	{Name: "publish", Description: "Publish the listing to eBay"},
	{Name: "cancel", Description: "Discard the current draft"},
	{Name: "title", Description: "Set the title"},
	{Name: "description", Description: "Set the description"},
	{Name: "price", Description: "Set the price"},
	{Name: "category", Description: "Pick a category"},
	{Name: "condition", Description: "Pick the condition"},
	{Name: "removephotos", Description: "Remove the draft's photos"},
	{Name: "listings", Description: "Recently published listings"},
	{Name: "login", Description: "Connect your eBay account"},
	{Name: "logout", Description: "Disconnect your eBay account"},
	{Name: "setup", Description: "Create location and default policies"},
	{Name: "categories", Description: "Show common eBay categories"},
	{Name: "shipping", Description: "Show shipping services"},
	{Name: "help", Description: "How to use the bot"},
	{Name: "version", Description: "Show version information"},
}

// RegisterCommands sets the bot's command menu in Telegram.
func RegisterCommands(tg BotAPI) {
	commands := make([]tgbotapi.BotCommand, len(botCommands))
	for i, cmd := range botCommands {
		commands[i] = tgbotapi.BotCommand{
			Command:     cmd.Name,
			Description: cmd.Description,
		}
	}

	config := tgbotapi.NewSetMyCommands(commands...)
	if _, err := tg.Request(config); err != nil {
		log.Error().Err(err).Msg("failed to set bot commands")
	} else {
		log.Info().Int("count", len(commands)).Msg("registered bot commands")
	}
}
