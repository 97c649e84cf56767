package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/telegram-ebay-bot/config"
	"github.com/raine/telegram-ebay-bot/internal/bot"
	"github.com/raine/telegram-ebay-bot/internal/callback"
	"github.com/raine/telegram-ebay-bot/internal/ebay"
	"github.com/raine/telegram-ebay-bot/internal/llm"
	"github.com/raine/telegram-ebay-bot/internal/media"
	"github.com/raine/telegram-ebay-bot/internal/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	logFileName         = "telegram-ebay-bot.log"
	defaultDBPath       = "ebay-bot.db"
	defaultCallbackAddr = ":8080"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	config.LoadEnvFile()

	if missing := config.Missing(); len(missing) > 0 {
		if isInteractiveTerminal() {
			if !runSetupWizard() {
				waitOnWindows()
				os.Exit(1)
			}
		} else {
			fatalWithWait("missing required config: %s", strings.Join(missing, ", "))
		}
	}

	// JOURNAL_STREAM is set by systemd; journald keeps the logs there and the
	// working directory may be read-only.
	if _, underSystemd := os.LookupEnv("JOURNAL_STREAM"); underSystemd {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			fatalWithWait("failed to open log file: %v", err)
		}
		defer logFile.Close()

		consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}
		fileWriter := zerolog.ConsoleWriter{Out: logFile, NoColor: true}
		log.Logger = log.Output(io.MultiWriter(consoleWriter, fileWriter))

		log.Info().Str("logFile", logFileName).Msg("logging to file")
	}

	adminID, err := strconv.ParseInt(os.Getenv("ADMIN_TELEGRAM_ID"), 10, 64)
	if err != nil {
		fatalWithWait("ADMIN_TELEGRAM_ID must be a valid integer: %v", err)
	}

	dbPath := os.Getenv("EBAY_DB_PATH")
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	callbackAddr := os.Getenv("CALLBACK_ADDR")
	if callbackAddr == "" {
		callbackAddr = defaultCallbackAddr
	}

	tg, err := tgbotapi.NewBotAPI(os.Getenv("BOT_TOKEN"))
	if err != nil {
		fatalWithWait("failed to initialize telegram bot: %v", err)
	}
	tg.Debug = false
	log.Info().Str("username", tg.Self.UserName).Msg("authorized on account")

	bot.RegisterCommands(tg)

	store, err := storage.NewSQLiteStore(dbPath, storage.DeriveKey(os.Getenv("EBAY_TOKEN_KEY")))
	if err != nil {
		fatalWithWait("failed to initialize store: %v", err)
	}
	defer store.Close()
	log.Info().Str("dbPath", dbPath).Msg("store initialized")

	listingLog, err := bot.InitListingLog(".")
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize listing log")
	} else {
		defer listingLog.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	geminiAnalyzer, err := llm.NewGeminiAnalyzer(ctx)
	if err != nil {
		fatalWithWait("failed to initialize gemini vision analyzer: %v", err)
	}
	visionAnalyzer := llm.NewCachingAnalyzer(geminiAnalyzer, store)
	log.Info().Msg("gemini vision analyzer initialized with caching")

	ebayConfig, err := ebay.ConfigFromEnv()
	if err != nil {
		fatalWithWait("invalid eBay configuration: %v", err)
	}
	log.Info().
		Bool("sandbox", ebayConfig.Sandbox).
		Strs("publishOrder", ebayConfig.PublishOrder).
		Msg("ebay configuration loaded")

	// Photos can still be analyzed without an image host; publishing reports
	// the missing settings.
	uploader, err := media.NewUploaderFromEnv(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("image hosting is not configured")
	}

	services := newServiceFactory(ebayConfig, store, uploader)

	b := bot.NewBot(tg, store, services, adminID)
	b.SetLLMClients(visionAnalyzer, geminiAnalyzer)
	defer b.Shutdown()

	callbackServer := callback.NewServer(callbackAddr, store, services, b)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runBot(ctx, tg, b)
	})
	g.Go(func() error {
		return callbackServer.Start(ctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}

// newServiceFactory returns a function building a user's eBay service over
// their encrypted token store.
func newServiceFactory(cfg ebay.Config, store *storage.SQLiteStore, uploader ebay.ImageUploader) func(int64) ebay.ListingService {
	return func(telegramID int64) ebay.ListingService {
		svc, err := ebay.NewService(cfg, store.TokenStore(telegramID), uploader)
		if err != nil {
			// The publish order was validated by ConfigFromEnv
			log.Fatal().Err(err).Msg("failed to create ebay service")
		}
		return svc
	}
}

// updateHandler processes a single Telegram update.
type updateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
}

func runBot(ctx context.Context, tg *tgbotapi.BotAPI, b *bot.Bot) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := tg.GetUpdatesChan(updateConfig)

	err := handleUpdates(ctx, updates, b)
	if ctx.Err() != nil {
		tg.StopReceivingUpdates()
	}
	return err
}

// handleUpdates dispatches updates one at a time in arrival order so each
// user's session inbox sees them in the order Telegram sent them.
func handleUpdates(ctx context.Context, updates <-chan tgbotapi.Update, h updateHandler) error {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopping bot update loop")
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				log.Warn().Msg("updates channel closed")
				return nil
			}
			h.HandleUpdate(ctx, update)
		}
	}
}
