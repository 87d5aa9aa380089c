package tgbot

import (
	"strings"
	"testing"

	"solwatch/internal/monitor"
)

func TestFormatChangeMessageDecrease(t *testing.T) {
	msg := FormatChangeMessage(monitor.ChangeEvent{
		WalletID: 1,
		UserID:   10,
		Name:     "main",
		Address:  "4Nd1mYQx1ZQDLLgN3bfLDolqEqRQkCzLd4b3FhZzVLaP",
		Previous: 5_000_000_000,
		Current:  4_500_000_000,
		Delta:    -500_000_000,
	})

	for _, want := range []string{"main", "4Nd1…VLaP", "-0.5 SOL", "4.5 SOL", "Decreased"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
	if strings.Contains(msg, "Increased") {
		t.Errorf("decrease must not read as increase:\n%s", msg)
	}
}

func TestFormatChangeMessageIncrease(t *testing.T) {
	msg := FormatChangeMessage(monitor.ChangeEvent{
		Name:     "savings",
		Address:  "7f4EciNCMdfQ5sFnrnRPf8JDpmQF1AcGNqcGKWzeW618",
		Previous: 1_000_000_000,
		Current:  2_000_000_000,
		Delta:    1_000_000_000,
	})

	for _, want := range []string{"savings", "+1 SOL", "2 SOL", "Increased"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}
