package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/raine/telegram-ebay-bot/config"
	"github.com/raine/telegram-ebay-bot/internal/ebay"
	"github.com/raine/telegram-ebay-bot/internal/llm"
	"github.com/raine/telegram-ebay-bot/internal/media"
	"github.com/raine/telegram-ebay-bot/internal/storage"
)

func main() {
	userFlag := flag.Int64("user", 0, "Telegram user id whose eBay token is used (defaults to ADMIN_TELEGRAM_ID)")
	publish := flag.Bool("publish", false, "publish the listing instead of stopping after the draft")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-user <id>] [-publish] <image-path>...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	fmt.Println("=== eBay Listing Creator ===")
	fmt.Println()

	config.LoadEnvFile()
	ctx := context.Background()

	var images []ebay.Image
	for i, path := range flag.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("Failed to read image: %v\n", err)
			os.Exit(1)
		}
		images = append(images, ebay.Image{Data: data, MimeType: http.DetectContentType(data), Position: i})
		fmt.Printf("Image loaded: %s (%d bytes)\n", path, len(data))
	}
	fmt.Println()

	// Step 1: Draft from the first photo
	fmt.Println("Analyzing first photo...")
	analyzer, err := llm.NewGeminiAnalyzer(ctx)
	if err != nil {
		fmt.Printf("Failed to create analyzer: %v\n", err)
		os.Exit(1)
	}
	result, err := analyzer.AnalyzeImages(ctx, images[:1])
	if err != nil {
		fmt.Printf("Failed to analyze image: %v\n", err)
		os.Exit(1)
	}
	if result.Recovered {
		fmt.Println("⚠ Model output could not be parsed; using placeholder values")
	}
	fmt.Printf("✓ Draft created ($%.6f)\n\n", result.Usage.CostUSD)

	// Step 2: Let the user adjust it
	draft := result.Draft
	draft.Title = promptDefault("Title", draft.Title)
	for {
		price := promptDefault("Price", draft.SuggestedPrice)
		normalized, err := ebay.NormalizePrice(price)
		if err == nil {
			draft.SuggestedPrice = "$" + normalized
			break
		}
		fmt.Printf("Invalid price: %v\n", err)
	}
	draft.Category = promptChoice("Category", ebay.Categories, draft.Category)
	draft.Condition = promptChoice("Condition", ebay.Conditions, draft.Condition)

	printDraft(draft, len(images))

	if !*publish {
		fmt.Println("=== SKIPPING PUBLISH (run with -publish) ===")
		return
	}

	// Step 3: Publish with the stored token
	telegramID := *userFlag
	if telegramID == 0 {
		telegramID, err = strconv.ParseInt(os.Getenv("ADMIN_TELEGRAM_ID"), 10, 64)
		if err != nil {
			fmt.Println("Pass -user or set ADMIN_TELEGRAM_ID")
			os.Exit(1)
		}
	}

	dbPath := os.Getenv("EBAY_DB_PATH")
	if dbPath == "" {
		dbPath = "ebay-bot.db"
	}
	store, err := storage.NewSQLiteStore(dbPath, storage.DeriveKey(os.Getenv("EBAY_TOKEN_KEY")))
	if err != nil {
		fmt.Printf("Failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	cfg, err := ebay.ConfigFromEnv()
	if err != nil {
		fmt.Printf("Invalid eBay configuration: %v\n", err)
		os.Exit(1)
	}
	uploader, err := media.NewUploaderFromEnv(ctx)
	if err != nil {
		fmt.Printf("Failed to configure image hosting: %v\n", err)
		os.Exit(1)
	}
	svc, err := ebay.NewService(cfg, store.TokenStore(telegramID), uploader)
	if err != nil {
		fmt.Printf("Failed to create eBay service: %v\n", err)
		os.Exit(1)
	}

	if ok, err := svc.IsAuthorized(ctx); err != nil || !ok {
		fmt.Println("No valid eBay token stored for this user. Run /login in the bot first.")
		os.Exit(1)
	}

	fmt.Println("Publishing...")
	published, err := svc.Publish(ctx, draft, images)
	if err != nil {
		fmt.Printf("Failed to publish: %v\n", err)
		os.Exit(1)
	}

	for _, a := range published.Attempts {
		status := "ok"
		if a.Err != nil {
			status = a.Err.Error()
		}
		fmt.Printf("  %s: %s\n", a.Strategy, status)
	}
	fmt.Println()
	fmt.Printf("✓ Listed via %s\n", published.Method)
	fmt.Printf("Listing ID: %s\n", published.ListingID)
	fmt.Printf("SKU:        %s\n", published.SKU)
	fmt.Printf("URL:        %s\n", published.ListingURL)
}

func printDraft(d ebay.ListingDraft, photos int) {
	fmt.Println()
	fmt.Printf("Title:       %s\n", d.Title)
	fmt.Printf("Category:    %s (%s)\n", d.Category, ebay.CategoryID(d.Category))
	fmt.Printf("Condition:   %s\n", d.Condition)
	fmt.Printf("Price:       %s\n", d.SuggestedPrice)
	fmt.Printf("Photos:      %d\n", photos)
	fmt.Printf("Description: %s\n", d.Description)
	fmt.Println()
}

var stdin = bufio.NewReader(os.Stdin)

func prompt(label string) string {
	fmt.Printf("%s: ", label)
	text, _ := stdin.ReadString('\n')
	return strings.TrimSpace(text)
}

func promptDefault(label, current string) string {
	if input := prompt(fmt.Sprintf("%s [%s]", label, current)); input != "" {
		return input
	}
	return current
}

func promptChoice(label string, choices []string, current string) string {
	fmt.Printf("%s:\n", label)
	for i, c := range choices {
		marker := " "
		if c == current {
			marker = "*"
		}
		fmt.Printf(" %s[%d] %s\n", marker, i+1, c)
	}
	for {
		input := prompt("Select (empty keeps current)")
		if input == "" {
			return current
		}
		n, err := strconv.Atoi(input)
		if err == nil && n >= 1 && n <= len(choices) {
			return choices[n-1]
		}
		fmt.Printf("Please enter a number between 1 and %d\n", len(choices))
	}
}
