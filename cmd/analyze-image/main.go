package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/raine/telegram-ebay-bot/config"
	"github.com/raine/telegram-ebay-bot/internal/ebay"
	"github.com/raine/telegram-ebay-bot/internal/llm"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <image-path>...\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment variables:\n")
		fmt.Fprintf(os.Stderr, "  GEMINI_API_KEY - Required\n")
		os.Exit(1)
	}

	config.LoadEnvFile()

	var images []ebay.Image
	for i, path := range os.Args[1:] {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read image: %v\n", err)
			os.Exit(1)
		}
		images = append(images, ebay.Image{Data: data, MimeType: getMimeType(path), Position: i})
	}

	ctx := context.Background()
	analyzer, err := llm.NewGeminiAnalyzer(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating Gemini analyzer: %v\n", err)
		os.Exit(1)
	}

	result, err := analyzer.AnalyzeImages(ctx, images)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error analyzing image: %v\n", err)
		os.Exit(1)
	}

	printResult(result)
}

func printResult(result *llm.AnalysisResult) {
	d := result.Draft
	if result.Recovered {
		fmt.Println("(placeholder draft, model output could not be parsed)")
	}
	fmt.Printf("Title:       %s\n", d.Title)
	fmt.Printf("Category:    %s (%s)\n", d.Category, ebay.CategoryID(d.Category))
	fmt.Printf("Condition:   %s\n", d.Condition)
	fmt.Printf("Price:       %s\n", d.SuggestedPrice)
	fmt.Printf("Keywords:    %s\n", strings.Join(d.Keywords, ", "))
	fmt.Printf("Description: %s\n", d.Description)
	fmt.Println()
	fmt.Printf("Tokens:      %d in / %d out / %d total\n",
		result.Usage.InputTokens, result.Usage.OutputTokens, result.Usage.TotalTokens)
	fmt.Printf("Cost:        $%.6f\n", result.Usage.CostUSD)
}

func getMimeType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
