package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/telegram-ebay-bot/internal/ebay"
	"github.com/raine/telegram-ebay-bot/internal/llm"
	"github.com/raine/telegram-ebay-bot/internal/storage"
	"github.com/rs/zerolog/log"
)

// Set with -ldflags at build time.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// BotAPI defines the interface for Telegram bot API operations.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Store is the persistence the bot needs besides the per-user token stores.
type Store interface {
	IsUserAllowed(telegramID int64) (bool, error)
	AddAllowedUser(telegramID, addedBy int64) error
	RemoveAllowedUser(telegramID int64) error
	GetAllowedUsers() ([]storage.AllowedUser, error)
	CreateOAuthState(ctx context.Context, telegramID int64) (string, error)
	RecordListing(ctx context.Context, l *storage.PublishedListing) error
	RecentListings(ctx context.Context, telegramID int64, limit int) ([]storage.PublishedListing, error)
}

// ServiceFactory returns the eBay service acting for a Telegram user.
type ServiceFactory func(telegramID int64) ebay.ListingService

// Bot is the main Telegram bot handler.
type Bot struct {
	tg       BotAPI
	state    BotState
	store    Store
	services ServiceFactory
	adminID  int64

	authHandler    *AuthHandler
	listingHandler *ListingHandler
}

// NewBot creates a new Bot instance. Image analysis is unavailable until
// SetLLMClients is called.
func NewBot(tg BotAPI, store Store, services ServiceFactory, adminID int64) *Bot {
	bot := &Bot{
		tg:       tg,
		store:    store,
		services: services,
		adminID:  adminID,
	}
	bot.state = bot.NewBotState()
	bot.authHandler = NewAuthHandler(store, services)
	bot.listingHandler = NewListingHandler(tg, nil, nil, store, services)
	return bot
}

// SetLLMClients sets the vision analyzer (usually cached) and the edit
// intent parser.
func (b *Bot) SetLLMClients(visionAnalyzer llm.Analyzer, editParser llm.EditIntentParser) {
	b.listingHandler.visionAnalyzer = visionAnalyzer
	b.listingHandler.editIntentParser = editParser
}

// Shutdown stops all session workers.
func (b *Bot) Shutdown() {
	b.state.Shutdown()
}

// HandleUpdate dispatches an update to the user's session worker.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, false)
}

// handleUpdateSync waits for the update to be processed. Used in tests.
func (b *Bot) handleUpdateSync(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, true)
}

func (b *Bot) dispatchUpdate(ctx context.Context, update tgbotapi.Update, sync bool) {
	var userId int64
	switch {
	case update.CallbackQuery != nil:
		userId = update.CallbackQuery.From.ID
	case update.Message != nil && update.Message.From != nil:
		userId = update.Message.From.ID
	default:
		return
	}

	// Before getUserSession so that unknown users never get a worker
	if !b.isAllowed(userId) {
		return
	}

	session := b.state.getUserSession(userId)
	send := session.Send
	if sync {
		send = session.SendSync
	}

	if update.CallbackQuery != nil {
		send(SessionMessage{Type: msgTypeCallback, Ctx: ctx, CallbackQuery: update.CallbackQuery})
		return
	}

	log.Info().
		Int64("userId", userId).
		Str("text", update.Message.Text).
		Int("photos", len(update.Message.Photo)).
		Msg("got message")

	if len(update.Message.Photo) > 0 {
		send(SessionMessage{Type: msgTypePhoto, Ctx: ctx, Message: update.Message})
	} else {
		send(SessionMessage{Type: msgTypeText, Ctx: ctx, Message: update.Message})
	}
}

// isAllowed fails closed when the whitelist cannot be read.
func (b *Bot) isAllowed(userId int64) bool {
	if userId == b.adminID {
		return true
	}
	allowed, err := b.store.IsUserAllowed(userId)
	if err != nil {
		log.Error().Err(err).Int64("userId", userId).Msg("whitelist check failed")
		return false
	}
	return allowed
}

// NotifyAuthorized reports the outcome of an OAuth callback to the user.
// It is called from the callback server's goroutine, so the message is
// routed through the session worker.
func (b *Bot) NotifyAuthorized(telegramID int64, err error) {
	session := b.state.getUserSession(telegramID)
	session.Send(SessionMessage{Type: msgTypeAuthorized, AuthErr: err})
}

// HandleSessionMessage is called by the session worker, one message at a
// time per user.
func (b *Bot) HandleSessionMessage(ctx context.Context, session *UserSession, msg SessionMessage) {
	switch msg.Type {
	case msgTypeCallback:
		b.handleCallbackQuery(ctx, session, msg.CallbackQuery)
	case msgTypePhoto:
		b.listingHandler.HandlePhoto(ctx, session, msg.Message)
	case msgTypeText:
		b.handleTextMessage(ctx, session, msg.Message)
	case msgTypeAuthorized:
		b.authHandler.HandleAuthorized(session, msg.AuthErr)
	}
}

func (b *Bot) handleTextMessage(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	text := strings.TrimSpace(message.Text)
	if text == "" {
		return
	}

	if strings.HasPrefix(text, "/") {
		b.handleCommand(ctx, session, text)
		return
	}

	if session.draft != nil {
		if b.listingHandler.HandleEditCommand(ctx, session, text) {
			return
		}
		session.reply(MsgEditNotUnderstood)
		return
	}

	session.reply(MsgStartPrompt)
}

func (b *Bot) handleCommand(ctx context.Context, session *UserSession, text string) {
	command, args := parseCommand(text)
	switch command {
	case "/start", "/help":
		session.reply(MsgHelp)
	case "/login":
		b.authHandler.HandleLoginCommand(ctx, session)
	case "/logout":
		b.authHandler.HandleLogoutCommand(ctx, session)
	case "/setup":
		b.authHandler.HandleSetupCommand(ctx, session)
	case "/categories":
		b.authHandler.HandleCategoriesCommand(ctx, session)
	case "/shipping":
		b.authHandler.HandleShippingCommand(ctx, session)
	case "/publish":
		b.listingHandler.HandlePublish(ctx, session)
	case "/cancel":
		session.reset()
		session.replyAndRemoveCustomKeyboard(MsgOk)
	case "/title", "/description", "/price":
		b.listingHandler.HandleFieldCommand(session, command, commandArgument(text))
	case "/category":
		b.listingHandler.HandleCategoryCommand(session)
	case "/condition":
		b.listingHandler.HandleConditionCommand(session)
	case "/removephotos":
		b.listingHandler.HandleRemovePhotos(session)
	case "/listings":
		b.listingHandler.HandleListingsCommand(ctx, session)
	case "/admin":
		b.handleAdminCommand(session, args)
	case "/version":
		session.reply(MsgVersionInfo, Version, BuildTime)
	default:
		session.reply(MsgHelp)
	}
}

// handleCallbackQuery handles inline keyboard button presses.
func (b *Bot) handleCallbackQuery(ctx context.Context, session *UserSession, query *tgbotapi.CallbackQuery) {
	// Answer the callback to remove the loading state
	b.tg.Request(tgbotapi.NewCallback(query.ID, ""))

	switch {
	case strings.HasPrefix(query.Data, callbackCategory):
		b.listingHandler.HandleCategorySelection(session, query)
	case strings.HasPrefix(query.Data, callbackCondition):
		b.listingHandler.HandleConditionSelection(session, query)
	case strings.HasPrefix(query.Data, callbackPublish):
		b.listingHandler.HandlePublishCallback(ctx, session, query)
	}
}

// handleAdminCommand handles /admin. The whitelist already let the user
// through, but only the admin may manage it.
func (b *Bot) handleAdminCommand(session *UserSession, args []string) {
	if session.userId != b.adminID {
		return
	}

	if len(args) < 2 || args[0] != "users" {
		session.reply(MsgAdminUsage)
		return
	}
	b.handleAdminUsersCommand(session, args[1], args[2:])
}

func (b *Bot) handleAdminUsersCommand(session *UserSession, action string, args []string) {
	switch action {
	case "add":
		if len(args) < 1 {
			session.reply(MsgAdminUserAddUsage)
			return
		}
		userID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			session.reply(MsgAdminUserInvalidID)
			return
		}
		if err := b.store.AddAllowedUser(userID, session.userId); err != nil {
			session.replyWithError(err)
			return
		}
		session.reply(MsgAdminUserAdded, userID)

	case "remove":
		if len(args) < 1 {
			session.reply(MsgAdminUserRemoveUsage)
			return
		}
		userID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			session.reply(MsgAdminUserInvalidID)
			return
		}
		if err := b.store.RemoveAllowedUser(userID); err != nil {
			session.replyWithError(err)
			return
		}
		session.reply(MsgAdminUserRemoved, userID)

	case "list":
		users, err := b.store.GetAllowedUsers()
		if err != nil {
			session.replyWithError(err)
			return
		}
		if len(users) == 0 {
			session.reply(MsgAdminNoUsers)
			return
		}
		var sb strings.Builder
		sb.WriteString(MsgAdminAllowedUsers)
		for _, u := range users {
			sb.WriteString(fmt.Sprintf("• `%d` (added %s)\n", u.TelegramID, u.AddedAt.Format("2006-01-02")))
		}
		session.reply(sb.String())

	default:
		session.reply(MsgAdminUsage)
	}
}
