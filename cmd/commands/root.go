package commands

import (
	"os"

	logging "solwatch/internal/infra/log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "solwatch",
	Short: "Solana wallet balance watcher with Telegram alerts",
	Long: `solwatch polls Solana wallet balances on a fixed interval and sends a
Telegram message whenever a tracked wallet's balance changes. Wallets are
managed per user through the bot's inline dashboard.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logging.LogError("Command failed", zap.Error(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(balanceCmd)
}
