package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-resty/resty/v2"
	"github.com/raine/telegram-ebay-bot/config"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// isInteractiveTerminal returns true if both stdin and stdout are TTYs.
func isInteractiveTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

var setupClient = resty.New().SetTimeout(10 * time.Second)

// runSetupWizard collects the configuration needed to start and writes it to
// the env file. Returns true if the bot should continue starting.
func runSetupWizard() bool {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99")).
		MarginBottom(1)

	fmt.Println()
	fmt.Println(titleStyle.Render("🤖 Telegram eBay Bot - First-time Setup"))
	fmt.Println()

	var botToken, geminiKey, adminID string
	var clientID, clientSecret, ruName string
	sandbox := true

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Telegram Bot Token").
				Description("Message @BotFather on Telegram → /newbot → copy token").
				Value(&botToken).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("token is required")
					}
					return validateTelegramToken(s)
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Gemini API Key").
				Description("Get yours at https://aistudio.google.com/apikey").
				Value(&geminiKey).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("API key is required")
					}
					return validateGeminiKey(s)
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Your Telegram User ID").
				Description("Message @userinfobot to get your ID: https://t.me/userinfobot").
				Value(&adminID).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("user ID is required")
					}
					if _, err := strconv.ParseInt(s, 10, 64); err != nil {
						return errors.New("must be a number")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewNote().
				Title("eBay application").
				Description("Create keys at https://developer.ebay.com/my/keys.\nLeave these empty to fill them in later in the config file."),
			huh.NewInput().Title("App ID (Client ID)").Value(&clientID),
			huh.NewInput().Title("Cert ID (Client Secret)").Value(&clientSecret).EchoMode(huh.EchoModePassword),
			huh.NewInput().
				Title("RuName").
				Description("The redirect URL name whose accept URL points at this bot's /callback").
				Value(&ruName),
			huh.NewConfirm().Title("Use the eBay sandbox?").Value(&sandbox),
		),
	).WithTheme(huh.ThemeBase16())

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("\nSetup cancelled.")
			return false
		}
		fmt.Printf("\nError: %v\n", err)
		return false
	}

	values := map[string]string{
		"BOT_TOKEN":         botToken,
		"GEMINI_API_KEY":    geminiKey,
		"ADMIN_TELEGRAM_ID": adminID,
		"EBAY_TOKEN_KEY":    generateTokenKey(),
		"EBAY_SANDBOX":      strconv.FormatBool(sandbox),
	}
	for k, v := range map[string]string{
		"EBAY_CLIENT_ID":     clientID,
		"EBAY_CLIENT_SECRET": clientSecret,
		"EBAY_REDIRECT_URI":  ruName,
	} {
		if v = strings.TrimSpace(v); v != "" {
			values[k] = v
		}
	}

	configPath, err := config.WriteEnvFile(values)
	if err != nil {
		fmt.Printf("\nError saving configuration: %v\n", err)
		waitOnWindows()
		return false
	}

	for k, v := range values {
		os.Setenv(k, v)
	}

	successStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("42")).
		Bold(true)
	pathStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245"))

	fmt.Println()
	fmt.Println(successStyle.Render("✓ Configuration saved"))
	fmt.Println(pathStyle.Render("  " + configPath))
	fmt.Println()
	fmt.Println("Starting bot...")
	fmt.Println()

	return true
}

func generateTokenKey() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("ebay-%d", time.Now().UnixNano())
	}
	return base64.URLEncoding.EncodeToString(b)
}

// validateTelegramToken checks a bot token with the getMe API.
func validateTelegramToken(token string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description,omitempty"`
	}
	_, err := setupClient.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(&result).
		Get(fmt.Sprintf("https://api.telegram.org/bot%s/getMe", token))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return errors.New("connection timed out - check your internet")
		}
		return errors.New("connection failed - check your internet")
	}

	if !result.OK {
		if result.Description != "" {
			return errors.New(result.Description)
		}
		return errors.New("token rejected by Telegram")
	}
	return nil
}

// validateGeminiKey checks an API key against the lightweight models list
// endpoint.
func validateGeminiKey(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var apiErr struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	resp, err := setupClient.R().
		SetContext(ctx).
		SetQueryParam("key", key).
		SetError(&apiErr).
		Get("https://generativelanguage.googleapis.com/v1beta/models")
	if err != nil {
		return errors.New("connection failed - check your internet")
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		return nil
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		if apiErr.Error.Message != "" {
			return errors.New(apiErr.Error.Message)
		}
		return fmt.Errorf("API key rejected (HTTP %d)", resp.StatusCode())
	default:
		return fmt.Errorf("unexpected response (HTTP %d)", resp.StatusCode())
	}
}

// waitOnWindows pauses so users can read errors before the console window
// closes.
func waitOnWindows() {
	if runtime.GOOS == "windows" {
		fmt.Println()
		fmt.Println("Press Enter to exit...")
		fmt.Scanln()
	}
}

// fatalWithWait logs a fatal error and waits on Windows before exiting.
func fatalWithWait(format string, args ...any) {
	log.Error().Msgf(format, args...)
	waitOnWindows()
	os.Exit(1)
}
