package commands

// Command to run the full bot: Telegram handler + balance monitor.
// Initializes configuration, the wallet registry and the RPC client, then
// runs both loops until SIGINT/SIGTERM. Shutdown waits for the in-flight
// scan to finish.

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"solwatch/internal/infra/config"
	logging "solwatch/internal/infra/log"
	"solwatch/internal/infra/metrics"
	"solwatch/internal/monitor"
	"solwatch/internal/registry"
	"solwatch/internal/solana"
	"solwatch/tgbot"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bot and the balance monitor",
	Long:  `Run the Telegram bot together with the periodic balance scan over every enabled wallet.`,
	RunE:  runBot,
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.LogError("Failed to load config", zap.Error(err))
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reg, err := registry.Open(cfg.App.DataDir)
	if err != nil {
		logging.LogError("Failed to open wallet registry", zap.Error(err))
		return fmt.Errorf("failed to open wallet registry: %w", err)
	}

	client := solana.NewClient(cfg.Solana.RPCURL,
		time.Duration(cfg.Solana.RequestTimeout)*time.Second,
		cfg.Solana.MaxResponseSize)

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logging.LogError("Failed to initialize bot", zap.Error(err))
		return fmt.Errorf("failed to initialize bot: %w", err)
	}
	logging.LogSuccess("Bot authorized", zap.String("username", bot.Self.UserName))

	recorder := metrics.New()
	if cfg.App.MetricsAddr != "" {
		go metrics.Serve(cfg.App.MetricsAddr)
	}

	interval := time.Duration(cfg.Monitor.CheckInterval) * time.Second
	scanner := monitor.NewScanner(client, reg, tgbot.NewNotifier(bot), recorder, interval, cfg.Monitor.Concurrency)
	handler := tgbot.NewHandler(bot, reg, client, scanner, interval, cfg.App.DataDir)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		handler.Run(ctx)
	}()

	logging.LogSuccess("solwatch is running",
		zap.Duration("interval", interval),
		zap.Int("concurrency", cfg.Monitor.Concurrency))

	<-ctx.Done()
	logging.LogInfo("Shutdown signal received, waiting for in-flight work...")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.LogSuccess("Stopped gracefully")
	case <-time.After(30 * time.Second):
		logging.LogWarn("Timeout waiting for in-flight work, forcing shutdown")
	}

	return nil
}
