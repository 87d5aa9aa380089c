package commands

// One-shot balance lookup, mainly for checking an RPC endpoint before
// pointing the bot at it. Reads SOLANA_RPC_URL directly so no bot token is
// needed.

import (
	"context"
	"fmt"
	"os"
	"time"

	"solwatch/internal/solana"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var balanceCmd = &cobra.Command{
	Use:   "balance <address>",
	Short: "Fetch the current balance of a Solana address once",
	Args:  cobra.ExactArgs(1),
	RunE:  runBalance,
}

func runBalance(cmd *cobra.Command, args []string) error {
	address := args[0]
	if !solana.IsProbablyAddress(address) {
		return fmt.Errorf("%q does not look like a Solana address", address)
	}

	godotenv.Load(".env")
	endpoint := os.Getenv("SOLANA_RPC_URL")

	client := solana.NewClient(endpoint, solana.DefaultFetchTimeout, 0)

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	lamports, err := client.GetBalance(ctx, address)
	if err != nil {
		return err
	}

	fmt.Printf("%s\n%d lamports (%s SOL)\n", address, lamports, solana.FormatSOL(lamports))
	return nil
}
