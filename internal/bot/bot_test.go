package bot

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/telegram-ebay-bot/internal/ebay"
	"github.com/raine/telegram-ebay-bot/internal/llm"
	"github.com/raine/telegram-ebay-bot/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testAdminID = int64(1000)
	testUserID  = int64(42)
	summaryID   = 77
)

var _ Store = (*storage.SQLiteStore)(nil)

type botApiMock struct {
	mock.Mock
}

func (m *botApiMock) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

func (m *botApiMock) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	args := m.Called(c)
	return args.Get(0).(*tgbotapi.APIResponse), args.Error(1)
}

func (m *botApiMock) GetFileDirectURL(fileID string) (string, error) {
	args := m.Called(fileID)
	if fn, ok := args.Get(0).(func(string) string); ok {
		return fn(fileID), args.Error(1)
	}
	return args.Get(0).(string), args.Error(1)
}

// chatLog collects what the bot sent or edited, in order.
type chatLog struct {
	mu       sync.Mutex
	messages []tgbotapi.MessageConfig
	edits    []string
}

func (c *chatLog) texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	texts := make([]string, len(c.messages))
	for i, m := range c.messages {
		texts[i] = m.Text
	}
	return texts
}

func (c *chatLog) all() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var sb strings.Builder
	for _, m := range c.messages {
		sb.WriteString(m.Text + "\n")
	}
	for _, e := range c.edits {
		sb.WriteString(e + "\n")
	}
	return sb.String()
}

func (c *chatLog) last() tgbotapi.MessageConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messages[len(c.messages)-1]
}

type testEnv struct {
	bot      *Bot
	tg       *botApiMock
	chat     *chatLog
	store    *storage.SQLiteStore
	service  *ebay.MockListingService
	analyzer *llm.MockAnalyzer
}

var jpegBytes = []byte{0xff, 0xd8, 0xff, 0xe0, 0, 0x10, 'J', 'F', 'I', 'F'}

// photoBytes is the content served for a Telegram file, unique per file id.
func photoBytes(fileID string) []byte {
	return append(append([]byte{}, jpegBytes...), "/"+fileID...)
}

func setupBotTest(t *testing.T) *testEnv {
	t.Helper()

	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "bot.db"), storage.DeriveKey("test"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.AddAllowedUser(testUserID, testAdminID))

	photos := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(photoBytes(strings.TrimPrefix(r.URL.Path, "/")))
	}))
	t.Cleanup(photos.Close)

	chat := &chatLog{}
	tg := new(botApiMock)
	tg.On("Send", mock.Anything).Run(func(args mock.Arguments) {
		if msg, ok := args.Get(0).(tgbotapi.MessageConfig); ok {
			chat.mu.Lock()
			chat.messages = append(chat.messages, msg)
			chat.mu.Unlock()
		}
	}).Return(tgbotapi.Message{MessageID: summaryID}, nil)
	tg.On("Request", mock.Anything).Run(func(args mock.Arguments) {
		if edit, ok := args.Get(0).(tgbotapi.EditMessageTextConfig); ok {
			chat.mu.Lock()
			chat.edits = append(chat.edits, edit.Text)
			chat.mu.Unlock()
		}
	}).Return(&tgbotapi.APIResponse{Ok: true}, nil)
	tg.On("GetFileDirectURL", mock.Anything).Return(func(fileID string) string {
		return photos.URL + "/" + fileID
	}, nil)

	service := &ebay.MockListingService{}
	analyzer := &llm.MockAnalyzer{}

	b := NewBot(tg, store, func(int64) ebay.ListingService { return service }, testAdminID)
	b.SetLLMClients(analyzer, analyzer)
	t.Cleanup(b.Shutdown)

	return &testEnv{bot: b, tg: tg, chat: chat, store: store, service: service, analyzer: analyzer}
}

func photoUpdate(userID int64, fileID string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From:  &tgbotapi.User{ID: userID},
		Chat:  &tgbotapi.Chat{ID: userID},
		Photo: []tgbotapi.PhotoSize{{FileID: fileID + "-small"}, {FileID: fileID}},
	}}
}

func textUpdate(userID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: userID},
		Text: text,
	}}
}

func callbackUpdate(userID int64, data string, messageID int) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb",
		From: &tgbotapi.User{ID: userID},
		Data: data,
		Message: &tgbotapi.Message{
			MessageID: messageID,
			Chat:      &tgbotapi.Chat{ID: userID},
		},
	}}
}

func (e *testEnv) send(update tgbotapi.Update) {
	e.bot.handleUpdateSync(context.Background(), update)
}

func (e *testEnv) session() *UserSession {
	return e.bot.state.getUserSession(testUserID)
}

func TestDispatch_DropsUsersNotOnWhitelist(t *testing.T) {
	env := setupBotTest(t)

	env.send(textUpdate(9999, "/start"))

	assert.Empty(t, env.chat.texts())
	env.bot.state.mu.Lock()
	assert.NotContains(t, env.bot.state.sessions, int64(9999))
	env.bot.state.mu.Unlock()
}

func TestDispatch_AdminAlwaysAllowed(t *testing.T) {
	env := setupBotTest(t)

	env.send(textUpdate(testAdminID, "/start"))

	require.Len(t, env.chat.texts(), 1)
	assert.Contains(t, env.chat.texts()[0], "draft an eBay listing")
}

func TestPhoto_StartsDraftFromAnalysis(t *testing.T) {
	env := setupBotTest(t)
	var analyzed []ebay.Image
	env.analyzer.AnalyzeImagesFunc = func(ctx context.Context, images []ebay.Image) (*llm.AnalysisResult, error) {
		analyzed = images
		return &llm.AnalysisResult{Draft: ebay.ListingDraft{
			Title:          "Vintage Camera",
			Description:    "Works great",
			Category:       ebay.CategoryElectronics,
			SuggestedPrice: "$45.00",
			Condition:      ebay.ConditionGood,
		}}, nil
	}

	env.send(photoUpdate(testUserID, "file-1"))

	env.tg.AssertCalled(t, "GetFileDirectURL", "file-1")
	require.Len(t, analyzed, 1)
	assert.Equal(t, photoBytes("file-1"), analyzed[0].Data)
	assert.Equal(t, "image/jpeg", analyzed[0].MimeType)

	texts := env.chat.texts()
	require.Len(t, texts, 2)
	assert.Equal(t, MsgAnalyzingImage, texts[0])
	assert.Contains(t, texts[1], "Vintage Camera")
	assert.Contains(t, texts[1], "$45.00")
	assert.Contains(t, texts[1], "*Photos:* 1")

	draft := env.session().draft
	require.NotNil(t, draft)
	assert.Equal(t, summaryID, draft.SummaryMessageID)
	assert.Equal(t, "Vintage Camera", draft.Draft.Title)
}

func TestPhoto_RecoveredDraftWarnsUser(t *testing.T) {
	env := setupBotTest(t)
	env.analyzer.AnalyzeImagesFunc = func(ctx context.Context, images []ebay.Image) (*llm.AnalysisResult, error) {
		return &llm.AnalysisResult{Recovered: true, Draft: ebay.ListingDraft{
			Title:          "AI-Identified Product",
			Description:    "something...",
			Category:       ebay.CategoryOther,
			SuggestedPrice: "$25.00",
			Condition:      ebay.ConditionGood,
		}}, nil
	}

	env.send(photoUpdate(testUserID, "file-1"))

	assert.Contains(t, env.chat.texts(), MsgAnalysisRecovered)
	assert.True(t, env.session().draft.Recovered)
}

func TestPhoto_SecondPhotoIsAddedToDraft(t *testing.T) {
	env := setupBotTest(t)

	env.send(photoUpdate(testUserID, "file-1"))
	env.send(photoUpdate(testUserID, "file-2"))

	assert.Equal(t, 1, env.analyzer.CallCount("AnalyzeImages"))
	images := env.session().draft.Images
	require.Len(t, images, 2)
	assert.Equal(t, 0, images[0].Position)
	assert.Equal(t, 1, images[1].Position)
	assert.Contains(t, env.chat.texts(), "Photo added! 2 photos in total.")
}

func TestPhotoBurst_FirstPhotoIsPrimary(t *testing.T) {
	env := setupBotTest(t)
	var analyzed [][]byte
	env.analyzer.AnalyzeImagesFunc = func(ctx context.Context, images []ebay.Image) (*llm.AnalysisResult, error) {
		for _, img := range images {
			analyzed = append(analyzed, img.Data)
		}
		return &llm.AnalysisResult{Draft: ebay.ListingDraft{
			Title:          "Vintage Camera",
			Description:    "Works great",
			Category:       ebay.CategoryElectronics,
			SuggestedPrice: "$45.00",
			Condition:      ebay.ConditionGood,
		}}, nil
	}

	// An album arrives as separate updates that are dispatched back to back
	ctx := context.Background()
	env.bot.HandleUpdate(ctx, photoUpdate(testUserID, "file-1"))
	env.bot.HandleUpdate(ctx, photoUpdate(testUserID, "file-2"))
	env.bot.HandleUpdate(ctx, photoUpdate(testUserID, "file-3"))
	env.session().SendSync(SessionMessage{Type: "barrier"})

	require.Equal(t, [][]byte{photoBytes("file-1")}, analyzed)
	images := env.session().draft.Images
	require.Len(t, images, 3)
	for i, id := range []string{"file-1", "file-2", "file-3"} {
		assert.Equal(t, photoBytes(id), images[i].Data)
		assert.Equal(t, i, images[i].Position)
	}
}

func TestPhoto_LimitIsEnforced(t *testing.T) {
	env := setupBotTest(t)
	env.send(photoUpdate(testUserID, "file-1"))
	for i := 1; i < maxListingPhotos; i++ {
		require.True(t, env.session().draft.addImage(ebay.Image{Data: jpegBytes}))
	}

	env.send(photoUpdate(testUserID, "file-13"))

	assert.Len(t, env.session().draft.Images, maxListingPhotos)
	assert.Equal(t, "A listing can have at most 12 photos.", env.chat.last().Text)
}

func TestFieldCommands(t *testing.T) {
	env := setupBotTest(t)
	env.send(photoUpdate(testUserID, "file-1"))

	env.send(textUpdate(testUserID, "/title Canon AE-1 Program 35mm"))
	env.send(textUpdate(testUserID, "/description Film tested.\nLight seals replaced."))
	env.send(textUpdate(testUserID, "/price 89,5"))

	draft := env.session().draft.Draft
	assert.Equal(t, "Canon AE-1 Program 35mm", draft.Title)
	assert.Equal(t, "Film tested.\nLight seals replaced.", draft.Description)
	assert.Equal(t, "$895.00", draft.SuggestedPrice)
	assert.Contains(t, env.chat.all(), "Price: $45.00 → $895.00")
}

func TestFieldCommands_InvalidPrice(t *testing.T) {
	env := setupBotTest(t)
	env.send(photoUpdate(testUserID, "file-1"))

	env.send(textUpdate(testUserID, "/price free"))
	env.send(textUpdate(testUserID, "/price -3"))

	assert.Equal(t, "$45.00", env.session().draft.Draft.SuggestedPrice)
	assert.Equal(t, MsgPriceInvalid, env.chat.last().Text)
}

func TestFieldCommands_NoDraft(t *testing.T) {
	env := setupBotTest(t)

	env.send(textUpdate(testUserID, "/title Something"))

	assert.Equal(t, []string{MsgNoActiveListing}, env.chat.texts())
}

func TestEditIntent_AppliesChanges(t *testing.T) {
	env := setupBotTest(t)
	env.analyzer.ParseEditIntentFunc = func(ctx context.Context, message string, draft ebay.ListingDraft) (*llm.EditIntent, error) {
		assert.Equal(t, "make it 30 dollars and like new", message)
		assert.Equal(t, "Vintage Camera", draft.Title)
		price, condition := "30", ebay.ConditionLikeNew
		return &llm.EditIntent{NewPrice: &price, NewCondition: &condition}, nil
	}
	env.send(photoUpdate(testUserID, "file-1"))

	env.send(textUpdate(testUserID, "make it 30 dollars and like new"))

	draft := env.session().draft.Draft
	assert.Equal(t, "$30.00", draft.SuggestedPrice)
	assert.Equal(t, ebay.ConditionLikeNew, draft.Condition)
	assert.Contains(t, env.chat.all(), "Price: $45.00 → $30.00")
	assert.Contains(t, env.chat.all(), "Condition: Used - Like New")
}

func TestEditIntent_NothingToChange(t *testing.T) {
	env := setupBotTest(t)
	env.send(photoUpdate(testUserID, "file-1"))

	env.send(textUpdate(testUserID, "hello there"))

	assert.Equal(t, MsgEditNotUnderstood, env.chat.last().Text)
}

func TestCategoryKeyboardAndSelection(t *testing.T) {
	env := setupBotTest(t)
	env.send(photoUpdate(testUserID, "file-1"))

	env.send(textUpdate(testUserID, "/category"))
	keyboard, ok := env.chat.last().ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, "✓ Electronics", keyboard.InlineKeyboard[0][0].Text)
	assert.Equal(t, "cat:5", *keyboard.InlineKeyboard[2][1].CallbackData)

	env.send(callbackUpdate(testUserID, "cat:5", 200))
	assert.Equal(t, ebay.CategoryBooks, env.session().draft.Draft.Category)

	env.send(callbackUpdate(testUserID, "cond:4", 201))
	assert.Equal(t, ebay.ConditionForParts, env.session().draft.Draft.Condition)

	env.send(callbackUpdate(testUserID, "cat:99", 202))
	assert.Equal(t, ebay.CategoryBooks, env.session().draft.Draft.Category)
}

func TestPublish_Success(t *testing.T) {
	env := setupBotTest(t)
	var logBuf bytes.Buffer
	setListingLogWriter(&logBuf)
	defer setListingLogWriter(&bytes.Buffer{})

	env.send(photoUpdate(testUserID, "file-1"))
	env.send(callbackUpdate(testUserID, "publish:confirm", summaryID))

	require.Equal(t, 1, env.service.CallCount("Publish"))
	for _, c := range env.service.Calls {
		if c.Method == "Publish" {
			assert.Equal(t, "Vintage Camera", c.Args[0].(ebay.ListingDraft).Title)
			assert.Equal(t, 1, c.Args[1])
		}
	}

	assert.Nil(t, env.session().draft)
	last := env.chat.last().Text
	assert.Contains(t, last, "https://sandbox.ebay.com/itm/110000000001")
	assert.Contains(t, last, "via inventory")

	listings, err := env.store.RecentListings(context.Background(), testUserID, 10)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "110000000001", listings[0].ListingID)
	assert.Equal(t, "$45.00", listings[0].Price)

	assert.Contains(t, logBuf.String(), `"listingId":"110000000001"`)
	assert.Contains(t, logBuf.String(), `"userId":42`)
}

func TestPublish_StaleButtonIgnored(t *testing.T) {
	env := setupBotTest(t)
	env.send(photoUpdate(testUserID, "file-1"))

	env.send(callbackUpdate(testUserID, "publish:confirm", summaryID+1))

	assert.Equal(t, 0, env.service.CallCount("Publish"))
	assert.NotNil(t, env.session().draft)
}

func TestPublish_Cancel(t *testing.T) {
	env := setupBotTest(t)
	env.send(photoUpdate(testUserID, "file-1"))

	env.send(callbackUpdate(testUserID, "publish:cancel", summaryID))

	assert.Nil(t, env.session().draft)
	assert.Equal(t, MsgOk, env.chat.last().Text)
}

func TestPublish_RequiresLogin(t *testing.T) {
	env := setupBotTest(t)
	env.service.IsAuthorizedFunc = func(ctx context.Context) (bool, error) { return false, nil }
	env.send(photoUpdate(testUserID, "file-1"))

	env.send(textUpdate(testUserID, "/publish"))

	assert.Equal(t, 0, env.service.CallCount("Publish"))
	assert.Equal(t, MsgLoginRequired, env.chat.last().Text)
}

func TestPublish_ShowsEbayErrorAndKeepsDraft(t *testing.T) {
	env := setupBotTest(t)
	env.service.PublishFunc = func(ctx context.Context, draft ebay.ListingDraft, images []ebay.Image) (*ebay.PublishResult, error) {
		return nil, &ebay.PublishError{Attempts: []ebay.StrategyResult{
			{Strategy: ebay.StrategyInventory, Err: &ebay.UpstreamError{Operation: "publish offer", StatusCode: 400, Body: `{"errors":[{"message":"Invalid category"}]}`}},
			{Strategy: ebay.StrategyTrading, Err: &ebay.UpstreamError{Operation: "AddFixedPriceItem", StatusCode: 200, Body: "Category is not valid"}},
		}}
	}
	env.send(photoUpdate(testUserID, "file-1"))

	env.send(textUpdate(testUserID, "/publish"))

	last := env.chat.last().Text
	assert.Contains(t, last, "every publishing method")
	assert.Contains(t, last, "Invalid category")
	assert.Contains(t, last, "Category is not valid")
	assert.NotNil(t, env.session().draft)

	listings, err := env.store.RecentListings(context.Background(), testUserID, 10)
	require.NoError(t, err)
	assert.Empty(t, listings)
}

func TestLogin_SendsConsentLinkWithState(t *testing.T) {
	env := setupBotTest(t)
	env.service.IsAuthorizedFunc = func(ctx context.Context) (bool, error) { return false, nil }

	env.send(textUpdate(testUserID, "/login"))

	msg := env.chat.last()
	assert.Equal(t, MsgLoginPrompt, msg.Text)
	keyboard, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	consentURL, err := url.Parse(*keyboard.InlineKeyboard[0][0].URL)
	require.NoError(t, err)

	state := consentURL.Query().Get("state")
	require.NotEmpty(t, state)
	telegramID, err := env.store.ConsumeOAuthState(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, testUserID, telegramID)
}

func TestLogin_AlreadyAuthorized(t *testing.T) {
	env := setupBotTest(t)

	env.send(textUpdate(testUserID, "/login"))

	assert.Equal(t, MsgLoginAlreadyLoggedIn, env.chat.last().Text)
	assert.Equal(t, 0, env.service.CallCount("AuthURL"))
}

func TestLogin_MissingConfiguration(t *testing.T) {
	env := setupBotTest(t)
	env.service.IsAuthorizedFunc = func(ctx context.Context) (bool, error) { return false, nil }
	env.service.AuthURLFunc = func(state string) (string, error) {
		return "", &ebay.ConfigurationError{Missing: []string{"EBAY_CLIENT_ID"}}
	}

	env.send(textUpdate(testUserID, "/login"))

	assert.Equal(t, "The bot is missing configuration: EBAY\\_CLIENT\\_ID", env.chat.last().Text)
}

func TestNotifyAuthorized(t *testing.T) {
	env := setupBotTest(t)

	env.bot.NotifyAuthorized(testUserID, nil)
	env.bot.NotifyAuthorized(testUserID, &ebay.UpstreamError{Operation: "exchange authorization code", StatusCode: 400, Body: "invalid_grant"})
	env.session().SendSync(SessionMessage{Type: "barrier"})

	texts := env.chat.texts()
	require.Len(t, texts, 2)
	assert.Equal(t, MsgLoginSuccess, texts[0])
	assert.Contains(t, texts[1], "Login failed")
	assert.Contains(t, texts[1], "invalid\\_grant")
}

func TestLogout(t *testing.T) {
	env := setupBotTest(t)

	env.send(textUpdate(testUserID, "/logout"))

	assert.Equal(t, 1, env.service.CallCount("Logout"))
	assert.Equal(t, MsgLoggedOut, env.chat.last().Text)
}

func TestSetupCommand_ReportsEachStep(t *testing.T) {
	env := setupBotTest(t)
	env.service.SetupAccountFunc = func(ctx context.Context) (*ebay.SetupResult, error) {
		return &ebay.SetupResult{Steps: []ebay.SetupStep{
			{Name: "inventory location", ID: ebay.DefaultLocationKey},
			{Name: "payment policy", Err: &ebay.UpstreamError{Operation: "create payment policy", StatusCode: 403, Body: "not opted in"}},
		}}, nil
	}

	env.send(textUpdate(testUserID, "/setup"))

	last := env.chat.last().Text
	assert.Contains(t, last, "✅ inventory location: `default_location`")
	assert.Contains(t, last, "❌ payment policy")
	assert.Contains(t, last, MsgSetupPartial)
}

func TestCategoriesAndShippingCommands(t *testing.T) {
	env := setupBotTest(t)

	env.send(textUpdate(testUserID, "/categories"))
	assert.Contains(t, env.chat.last().Text, "Collectibles (`99`)")

	env.send(textUpdate(testUserID, "/shipping"))
	assert.Contains(t, env.chat.last().Text, "`USPSPriority`")
}

func TestListingsCommand(t *testing.T) {
	env := setupBotTest(t)

	env.send(textUpdate(testUserID, "/listings"))
	assert.Equal(t, MsgNoListings, env.chat.last().Text)

	require.NoError(t, env.store.RecordListing(context.Background(), &storage.PublishedListing{
		TelegramID: testUserID,
		ListingID:  "110000000009",
		ListingURL: "https://www.ebay.com/itm/110000000009",
		SKU:        "LAMP123456",
		Method:     ebay.StrategyTrading,
		Title:      "Desk Lamp",
		Price:      "$19.99",
	}))

	env.send(textUpdate(testUserID, "/listings"))
	assert.Contains(t, env.chat.last().Text, "[Desk Lamp](https://www.ebay.com/itm/110000000009) $19.99")
}

func TestAdminUsersCommands(t *testing.T) {
	env := setupBotTest(t)

	env.send(textUpdate(testAdminID, "/admin users add 555"))
	allowed, err := env.store.IsUserAllowed(555)
	require.NoError(t, err)
	assert.True(t, allowed)

	env.send(textUpdate(testAdminID, "/admin users list"))
	assert.Contains(t, env.chat.last().Text, "`555`")

	env.send(textUpdate(testAdminID, "/admin users remove 555"))
	allowed, err = env.store.IsUserAllowed(555)
	require.NoError(t, err)
	assert.False(t, allowed)

	env.send(textUpdate(testAdminID, "/admin users add abc"))
	assert.Equal(t, MsgAdminUserInvalidID, env.chat.last().Text)
}

func TestAdminCommand_IgnoredForOtherUsers(t *testing.T) {
	env := setupBotTest(t)

	env.send(textUpdate(testUserID, "/admin users add 555"))

	assert.Empty(t, env.chat.texts())
	allowed, err := env.store.IsUserAllowed(555)
	require.NoError(t, err)
	assert.False(t, allowed)
}
