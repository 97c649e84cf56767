package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/telegram-ebay-bot/internal/ebay"
	"github.com/raine/telegram-ebay-bot/internal/llm"
	"github.com/raine/telegram-ebay-bot/internal/storage"
	"github.com/rs/zerolog/log"
)

// Callback data prefixes for inline keyboards.
const (
	callbackCategory  = "cat:"
	callbackCondition = "cond:"
	callbackPublish   = "publish:"
)

const (
	recentListingsLimit = 10
	// summaryDescriptionLength keeps the draft summary readable; the full
	// description is still published.
	summaryDescriptionLength = 600
)

// ListingHandler handles the photo → draft → publish flow.
type ListingHandler struct {
	tg               BotAPI
	visionAnalyzer   llm.Analyzer
	editIntentParser llm.EditIntentParser
	store            Store
	services         ServiceFactory
}

func NewListingHandler(tg BotAPI, visionAnalyzer llm.Analyzer, editIntentParser llm.EditIntentParser, store Store, services ServiceFactory) *ListingHandler {
	return &ListingHandler{
		tg:               tg,
		visionAnalyzer:   visionAnalyzer,
		editIntentParser: editIntentParser,
		store:            store,
		services:         services,
	}
}

// HandlePhoto starts a new listing from the first photo, or adds the photo
// to the current draft.
func (h *ListingHandler) HandlePhoto(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	// Telegram sends several sizes; the last one is the largest
	largest := message.Photo[len(message.Photo)-1]

	if session.draft != nil {
		h.addPhotoToDraft(session, largest)
		return
	}
	h.startListing(ctx, session, largest)
}

func (h *ListingHandler) startListing(ctx context.Context, session *UserSession, photo tgbotapi.PhotoSize) {
	if h.visionAnalyzer == nil {
		session.reply(MsgImageAnalysisNotAvail)
		return
	}

	session.reply(MsgAnalyzingImage)

	// Replies clear the typing status, so start the loop after the reply
	typingCtx, cancelTyping := context.WithCancel(ctx)
	defer cancelTyping()
	go session.startTypingLoop(typingCtx)

	img, err := downloadImage(h.tg.GetFileDirectURL, photo.FileID)
	if err != nil {
		log.Error().Err(err).Str("fileId", photo.FileID).Msg("failed to download photo")
		session.reply(MsgImageDownloadFailed)
		return
	}

	result, err := h.visionAnalyzer.AnalyzeImages(ctx, []ebay.Image{img})
	if err != nil {
		log.Error().Err(err).Int64("userId", session.userId).Msg("failed to analyze image")
		session.replyWithError(err)
		return
	}

	log.Info().
		Int64("userId", session.userId).
		Str("title", result.Draft.Title).
		Str("category", result.Draft.Category).
		Bool("cached", result.Cached).
		Bool("recovered", result.Recovered).
		Float64("cost", result.Usage.CostUSD).
		Msg("image analyzed")

	session.draft = &ListingSession{Draft: result.Draft, Recovered: result.Recovered}
	session.draft.addImage(img)

	if result.Recovered {
		session.reply(MsgAnalysisRecovered)
	}
	h.showDraftSummary(session)
}

func (h *ListingHandler) addPhotoToDraft(session *UserSession, photo tgbotapi.PhotoSize) {
	if len(session.draft.Images) >= maxListingPhotos {
		session.reply(MsgTooManyPhotos, maxListingPhotos)
		return
	}

	session.sendTypingAction()
	img, err := downloadImage(h.tg.GetFileDirectURL, photo.FileID)
	if err != nil {
		log.Error().Err(err).Str("fileId", photo.FileID).Msg("failed to download photo")
		session.reply(MsgImageDownloadFailed)
		return
	}

	session.draft.addImage(img)
	session.reply(MsgPhotoAdded, pluralize("photo", "photos", len(session.draft.Images)))
	h.showDraftSummary(session)
}

// HandleRemovePhotos drops the draft's photos but keeps its text.
func (h *ListingHandler) HandleRemovePhotos(session *UserSession) {
	if session.draft == nil {
		session.reply(MsgNoActiveListing)
		return
	}
	session.draft.Images = nil
	session.reply(MsgPhotosRemoved)
	h.showDraftSummary(session)
}

// HandleFieldCommand handles /title, /description and /price.
func (h *ListingHandler) HandleFieldCommand(session *UserSession, command, arg string) {
	if session.draft == nil {
		session.reply(MsgNoActiveListing)
		return
	}
	draft := &session.draft.Draft

	var change string
	switch command {
	case "/title":
		if arg == "" {
			session.reply(MsgTitleUsage)
			return
		}
		draft.Title = arg
		change = fmt.Sprintf(MsgChangeTitle, escapeMarkdown(arg))
		if utf8.RuneCountInString(arg) > ebay.MaxTitleLength {
			session.reply(MsgTitleTooLong, ebay.MaxTitleLength)
		}
	case "/description":
		if arg == "" {
			session.reply(MsgDescriptionUsage)
			return
		}
		draft.Description = arg
		change = MsgChangeDescription
	case "/price":
		if arg == "" {
			session.reply(MsgPriceUsage)
			return
		}
		price, err := ebay.NormalizePrice(arg)
		if err != nil {
			session.reply(MsgPriceInvalid)
			return
		}
		old := draft.SuggestedPrice
		draft.SuggestedPrice = "$" + price
		change = fmt.Sprintf(MsgChangePrice, escapeMarkdown(old), draft.SuggestedPrice)
	default:
		return
	}

	session.reply(MsgChangesApplied, change)
	h.showDraftSummary(session)
}

// HandleEditCommand applies a free-text edit such as "make it 30 dollars".
// Returns false when nothing in the message could be applied.
func (h *ListingHandler) HandleEditCommand(ctx context.Context, session *UserSession, message string) bool {
	if h.editIntentParser == nil || session.draft == nil {
		return false
	}

	session.sendTypingAction()
	intent, err := h.editIntentParser.ParseEditIntent(ctx, message, session.draft.Draft)
	if err != nil {
		log.Warn().Err(err).Str("message", message).Msg("failed to parse edit intent")
		return false
	}
	if intent.Empty() {
		log.Debug().Str("message", message).Msg("no edit intent detected in message")
		return false
	}

	before := session.draft.Draft
	after := intent.Apply(before)
	changes := draftChanges(before, after)
	if len(changes) == 0 {
		return false
	}

	session.draft.Draft = after
	log.Info().Int64("userId", session.userId).Strs("changes", changes).Msg("draft updated via edit command")
	session.reply(MsgChangesApplied, strings.Join(changes, "\n- "))
	h.showDraftSummary(session)
	return true
}

// draftChanges describes the differences between two drafts for the user.
func draftChanges(before, after ebay.ListingDraft) []string {
	var changes []string
	if before.Title != after.Title {
		changes = append(changes, fmt.Sprintf(MsgChangeTitle, escapeMarkdown(after.Title)))
	}
	if before.Description != after.Description {
		changes = append(changes, MsgChangeDescription)
	}
	if before.SuggestedPrice != after.SuggestedPrice {
		changes = append(changes, fmt.Sprintf(MsgChangePrice, escapeMarkdown(before.SuggestedPrice), escapeMarkdown(after.SuggestedPrice)))
	}
	if before.Category != after.Category {
		changes = append(changes, fmt.Sprintf(MsgChangeCategory, after.Category))
	}
	if before.Condition != after.Condition {
		changes = append(changes, fmt.Sprintf(MsgChangeCondition, after.Condition))
	}
	return changes
}

func (h *ListingHandler) HandleCategoryCommand(session *UserSession) {
	if session.draft == nil {
		session.reply(MsgNoActiveListing)
		return
	}
	msg := tgbotapi.NewMessage(session.userId, MsgSelectCategory)
	msg.ReplyMarkup = makeChoiceKeyboard(callbackCategory, ebay.Categories, session.draft.Draft.Category)
	session.replyWithMessage(msg)
}

func (h *ListingHandler) HandleConditionCommand(session *UserSession) {
	if session.draft == nil {
		session.reply(MsgNoActiveListing)
		return
	}
	msg := tgbotapi.NewMessage(session.userId, MsgSelectCondition)
	msg.ReplyMarkup = makeChoiceKeyboard(callbackCondition, ebay.Conditions, session.draft.Draft.Condition)
	session.replyWithMessage(msg)
}

func (h *ListingHandler) HandleCategorySelection(session *UserSession, query *tgbotapi.CallbackQuery) {
	category, ok := h.selectedChoice(session, query, callbackCategory, ebay.Categories)
	if !ok {
		return
	}
	session.draft.Draft.Category = category
	session.reply(MsgCategorySelected, escapeMarkdown(category))
	h.showDraftSummary(session)
}

func (h *ListingHandler) HandleConditionSelection(session *UserSession, query *tgbotapi.CallbackQuery) {
	condition, ok := h.selectedChoice(session, query, callbackCondition, ebay.Conditions)
	if !ok {
		return
	}
	session.draft.Draft.Condition = condition
	session.reply(MsgConditionSelected, escapeMarkdown(condition))
	h.showDraftSummary(session)
}

// selectedChoice removes the keyboard and resolves the pressed button to
// one of the choices.
func (h *ListingHandler) selectedChoice(session *UserSession, query *tgbotapi.CallbackQuery, prefix string, choices []string) (string, bool) {
	if query.Message != nil {
		session.removeInlineKeyboard(query.Message.Chat.ID, query.Message.MessageID)
	}
	if session.draft == nil {
		session.reply(MsgNoActiveListing)
		return "", false
	}
	idx, err := strconv.Atoi(strings.TrimPrefix(query.Data, prefix))
	if err != nil || idx < 0 || idx >= len(choices) {
		log.Warn().Str("data", query.Data).Msg("invalid choice callback")
		return "", false
	}
	return choices[idx], true
}

// makeChoiceKeyboard lays out choices two per row. The current value is
// marked with a check.
func makeChoiceKeyboard(prefix string, choices []string, current string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for i, choice := range choices {
		label := choice
		if choice == current {
			label = "✓ " + choice
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, prefix+strconv.Itoa(i)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func formatDraftSummary(l *ListingSession) string {
	description := l.Draft.Description
	if r := []rune(description); len(r) > summaryDescriptionLength {
		description = string(r[:summaryDescriptionLength]) + "…"
	}
	return fmt.Sprintf(draftSummaryFmt,
		escapeMarkdown(l.Draft.Title),
		escapeMarkdown(description),
		escapeMarkdown(l.Draft.Category),
		escapeMarkdown(l.Draft.Condition),
		escapeMarkdown(l.Draft.SuggestedPrice),
		len(l.Images),
	)
}

// showDraftSummary sends the draft with publish buttons. An earlier summary
// is edited in place when possible.
func (h *ListingHandler) showDraftSummary(session *UserSession) {
	text := formatDraftSummary(session.draft)
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(BtnPublish, callbackPublish+"confirm"),
			tgbotapi.NewInlineKeyboardButtonData(BtnCancel, callbackPublish+"cancel"),
		),
	)

	if session.draft.SummaryMessageID != 0 {
		edit := tgbotapi.NewEditMessageTextAndMarkup(session.userId, session.draft.SummaryMessageID, text, keyboard)
		edit.ParseMode = tgbotapi.ModeMarkdown
		_, err := h.tg.Request(edit)
		if err == nil || strings.Contains(err.Error(), "message is not modified") {
			return
		}
		// Usually "message to edit not found"; send a fresh summary instead
		log.Warn().Err(err).Int("msgId", session.draft.SummaryMessageID).Msg("failed to edit summary, sending new one")
	}

	msg := tgbotapi.NewMessage(session.userId, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = keyboard
	sent := session.replyWithMessage(msg)
	session.draft.SummaryMessageID = sent.MessageID
}

// HandlePublishCallback handles the buttons under the draft summary.
func (h *ListingHandler) HandlePublishCallback(ctx context.Context, session *UserSession, query *tgbotapi.CallbackQuery) {
	if query.Message != nil {
		session.removeInlineKeyboard(query.Message.Chat.ID, query.Message.MessageID)
	}

	// Buttons on summaries of earlier drafts do nothing
	if session.draft == nil || query.Message == nil || query.Message.MessageID != session.draft.SummaryMessageID {
		return
	}

	switch strings.TrimPrefix(query.Data, callbackPublish) {
	case "confirm":
		h.HandlePublish(ctx, session)
	case "cancel":
		session.reset()
		session.replyAndRemoveCustomKeyboard(MsgOk)
	}
}

// HandlePublish runs the eBay listing pipeline for the current draft. The
// draft is kept on failure so the user can fix it and retry.
func (h *ListingHandler) HandlePublish(ctx context.Context, session *UserSession) {
	if session.draft == nil {
		session.reply(MsgNoActiveListing)
		return
	}

	svc := h.services(session.userId)
	authorized, err := svc.IsAuthorized(ctx)
	if err != nil {
		session.replyWithError(err)
		return
	}
	if !authorized {
		session.reply(MsgLoginRequired)
		return
	}

	draft := session.draft.Draft
	images := make([]ebay.Image, len(session.draft.Images))
	copy(images, session.draft.Images)

	session.reply(MsgPublishing)
	typingCtx, cancelTyping := context.WithCancel(ctx)
	defer cancelTyping()
	go session.startTypingLoop(typingCtx)

	logger := log.With().Int64("userId", session.userId).Str("title", draft.Title).Logger()

	result, err := svc.Publish(ctx, draft, images)
	if err != nil {
		logger.Error().Err(err).Msg("failed to publish listing")
		session.reply(describeError(err))
		return
	}

	logger.Info().
		Str("listingId", result.ListingID).
		Str("sku", result.SKU).
		Str("method", result.Method).
		Msg("listing published")

	if err := h.store.RecordListing(ctx, &storage.PublishedListing{
		TelegramID: session.userId,
		ListingID:  result.ListingID,
		ListingURL: result.ListingURL,
		SKU:        result.SKU,
		OfferID:    result.OfferID,
		Method:     result.Method,
		Title:      draft.Title,
		Price:      draft.SuggestedPrice,
	}); err != nil {
		logger.Warn().Err(err).Msg("failed to record published listing")
	}
	logPublishedListing(session.userId, draft, result)

	session.reset()
	session.replyAndRemoveCustomKeyboard(MsgPublished, result.ListingURL, result.SKU, result.Method)
}

// HandleListingsCommand lists the user's recently published listings.
func (h *ListingHandler) HandleListingsCommand(ctx context.Context, session *UserSession) {
	listings, err := h.store.RecentListings(ctx, session.userId, recentListingsLimit)
	if err != nil {
		session.replyWithError(err)
		return
	}
	if len(listings) == 0 {
		session.reply(MsgNoListings)
		return
	}

	var sb strings.Builder
	sb.WriteString(MsgListingsTitle)
	for _, l := range listings {
		sb.WriteString(fmt.Sprintf("• [%s](%s) %s, %s\n",
			escapeMarkdown(l.Title), l.ListingURL, escapeMarkdown(l.Price), l.CreatedAt.Format("2006-01-02")))
	}
	session.reply(sb.String())
}
