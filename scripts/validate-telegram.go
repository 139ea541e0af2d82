// Command validate-telegram checks the Telegram notification configuration:
// token present, bot reachable, chat id set. Run it once after configuring
// TELEGRAM_BOT_TOKEN to confirm notifications will deliver.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-telegram/bot"
	"github.com/joho/godotenv"

	"github.com/finexa/fxarb/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	fmt.Println("\n🎉 Telegram notification configuration checks passed!")
}

func run() error {
	fmt.Println("🔧 Validating Telegram notification configuration...")

	if err := godotenv.Load(); err != nil {
		fmt.Printf("⚠️  Could not load .env file: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := checkConfig(cfg); err != nil {
		return err
	}
	fmt.Printf("✅ TELEGRAM_BOT_TOKEN is configured (length: %d)\n", len(cfg.Telegram.BotToken))
	fmt.Printf("✅ telegram.chat_id is configured: %s\n", cfg.Telegram.ChatID)

	b, err := bot.New(cfg.Telegram.BotToken)
	if err != nil {
		return fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	fmt.Println("✅ Telegram bot created")

	fmt.Println("🔍 Testing bot API connection...")
	info, err := b.GetMe(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get bot info: %w", err)
	}
	fmt.Printf("✅ Connected as @%s (%s, id %d)\n", info.Username, info.FirstName, info.ID)
	fmt.Printf("   Notifying opportunities above %.4f%% profit\n", cfg.Telegram.MinProfitPct)
	return nil
}

func checkConfig(cfg *config.Config) error {
	if cfg.Telegram.BotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is not configured")
	}
	if cfg.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is not configured")
	}
	return nil
}
