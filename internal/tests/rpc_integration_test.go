//go:build integration

package tests

// Live checks against a real Solana RPC endpoint. Run with:
//
//	SOLANA_RPC_URL=... go test -tags integration ./internal/tests/
//
// SOLANA_RPC_URL is optional; the public mainnet endpoint is used when
// unset, which rate limits aggressively.

import (
	"context"
	"os"
	"testing"
	"time"

	"solwatch/internal/solana"
)

// The SPL token program account, funded since genesis, so its balance is
// never zero.
const knownFundedAddress = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

func newLiveClient() *solana.Client {
	return solana.NewClient(os.Getenv("SOLANA_RPC_URL"), solana.DefaultFetchTimeout, 0)
}

func TestLiveGetBalance(t *testing.T) {
	client := newLiveClient()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	lamports, err := client.GetBalance(ctx, knownFundedAddress)
	if err != nil {
		t.Fatalf("GetBalance against live RPC failed: %v", err)
	}
	if lamports == 0 {
		t.Fatal("expected a nonzero balance for the token program account")
	}
	t.Logf("balance: %d lamports (%s SOL)", lamports, solana.FormatSOL(lamports))
}

func TestLiveGetBalanceInvalidAddress(t *testing.T) {
	client := newLiveClient()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := client.GetBalance(ctx, "definitely-not-an-address")
	if err == nil {
		t.Fatal("expected the endpoint to reject a malformed address")
	}
	t.Logf("rejected as expected: %v", err)
}
