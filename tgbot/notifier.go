package tgbot

import (
	"fmt"

	"solwatch/internal/monitor"
	"solwatch/internal/solana"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier delivers balance-change events as Telegram messages. It is the
// monitor's NotificationSink; a failed send is returned to the scanner and
// counted there, never retried here.
type Notifier struct {
	bot *tgbotapi.BotAPI
}

func NewNotifier(bot *tgbotapi.BotAPI) *Notifier {
	return &Notifier{bot: bot}
}

func (n *Notifier) Notify(userID int64, ev monitor.ChangeEvent) error {
	msg := tgbotapi.NewMessage(userID, FormatChangeMessage(ev))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send change notification: %w", err)
	}
	return nil
}

// FormatChangeMessage renders one balance change. Deltas are signed and
// shown in SOL alongside the new balance.
func FormatChangeMessage(ev monitor.ChangeEvent) string {
	direction := "📈 Increased"
	sign := "+"
	if ev.Delta < 0 {
		direction = "📉 Decreased"
		sign = "-"
	}

	deltaLamports := ev.Delta
	if deltaLamports < 0 {
		deltaLamports = -deltaLamports
	}

	return "🔔 *Balance Update*\n" +
		"━━━━━━━━━━━━━━━━━━━━\n" +
		fmt.Sprintf("👛 *%s*\n", ev.Name) +
		fmt.Sprintf("`%s`\n\n", solana.TruncateAddress(ev.Address)) +
		fmt.Sprintf("%s by *%s%s SOL*\n", direction, sign, solana.FormatSOL(uint64(deltaLamports))) +
		fmt.Sprintf("💰 New balance: *%s SOL*", solana.FormatSOL(ev.Current))
}
