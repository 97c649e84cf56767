package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/telegram-ebay-bot/internal/ebay"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles eBay account linking and account level commands.
type AuthHandler struct {
	store    Store
	services ServiceFactory
}

func NewAuthHandler(store Store, services ServiceFactory) *AuthHandler {
	return &AuthHandler{
		store:    store,
		services: services,
	}
}

// HandleLoginCommand sends the eBay consent link. The OAuth callback server
// completes the login and reports back through HandleAuthorized.
func (h *AuthHandler) HandleLoginCommand(ctx context.Context, session *UserSession) {
	svc := h.services(session.userId)

	authorized, err := svc.IsAuthorized(ctx)
	if err != nil {
		session.replyWithError(err)
		return
	}
	if authorized {
		session.reply(MsgLoginAlreadyLoggedIn)
		return
	}

	state, err := h.store.CreateOAuthState(ctx, session.userId)
	if err != nil {
		session.replyWithError(err)
		return
	}

	authURL, err := svc.AuthURL(state)
	if err != nil {
		session.reply(describeError(err))
		return
	}

	msg := tgbotapi.NewMessage(session.userId, MsgLoginPrompt)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(MsgLoginButton, authURL)),
	)
	session.replyWithMessage(msg)
	log.Info().Int64("userId", session.userId).Msg("sent ebay consent link")
}

// HandleAuthorized tells the user how the OAuth callback went.
func (h *AuthHandler) HandleAuthorized(session *UserSession, err error) {
	if err != nil {
		session.reply(MsgLoginFailed, escapeMarkdown(err.Error()))
		return
	}
	session.reply(MsgLoginSuccess)
}

func (h *AuthHandler) HandleLogoutCommand(ctx context.Context, session *UserSession) {
	if err := h.services(session.userId).Logout(ctx); err != nil {
		session.replyWithError(err)
		return
	}
	log.Info().Int64("userId", session.userId).Msg("user logged out")
	session.reply(MsgLoggedOut)
}

// HandleSetupCommand creates the inventory location and default business
// policies. Each step is reported separately since they are independent.
func (h *AuthHandler) HandleSetupCommand(ctx context.Context, session *UserSession) {
	svc, ok := h.authorizedService(ctx, session)
	if !ok {
		return
	}

	session.reply(MsgSetupRunning)
	session.sendTypingAction()

	result, err := svc.SetupAccount(ctx)
	if err != nil {
		session.reply(describeError(err))
		return
	}

	lines := make([]string, 0, len(result.Steps)+2)
	for _, step := range result.Steps {
		if step.Err != nil {
			lines = append(lines, fmt.Sprintf(MsgSetupStepFailed, step.Name, escapeMarkdown(step.Err.Error())))
		} else {
			lines = append(lines, fmt.Sprintf(MsgSetupStepOK, step.Name, step.ID))
		}
	}
	lines = append(lines, "")
	if result.OK() {
		lines = append(lines, MsgSetupDone)
	} else {
		lines = append(lines, MsgSetupPartial)
	}
	session.reply(strings.Join(lines, "\n"))
}

func (h *AuthHandler) HandleCategoriesCommand(ctx context.Context, session *UserSession) {
	svc, ok := h.authorizedService(ctx, session)
	if !ok {
		return
	}
	session.sendTypingAction()

	categories, err := svc.GetLeafCategories(ctx)
	if err != nil {
		session.reply(describeError(err))
		return
	}

	var sb strings.Builder
	sb.WriteString(MsgCategoriesTitle)
	for _, c := range categories {
		sb.WriteString(fmt.Sprintf("• %s (`%s`)\n", escapeMarkdown(c.Name), c.ID))
	}
	session.reply(sb.String())
}

func (h *AuthHandler) HandleShippingCommand(ctx context.Context, session *UserSession) {
	svc, ok := h.authorizedService(ctx, session)
	if !ok {
		return
	}
	session.sendTypingAction()

	services, err := svc.GetShippingServices(ctx)
	if err != nil {
		session.reply(describeError(err))
		return
	}

	var sb strings.Builder
	sb.WriteString(MsgShippingTitle)
	for _, s := range services {
		sb.WriteString(fmt.Sprintf("• `%s`\n", s))
	}
	session.reply(sb.String())
}

// authorizedService returns the user's eBay service, or replies with a
// login prompt when no live token is stored.
func (h *AuthHandler) authorizedService(ctx context.Context, session *UserSession) (ebay.ListingService, bool) {
	svc := h.services(session.userId)
	authorized, err := svc.IsAuthorized(ctx)
	if err != nil {
		session.replyWithError(err)
		return nil, false
	}
	if !authorized {
		session.reply(MsgLoginRequired)
		return nil, false
	}
	return svc, true
}
