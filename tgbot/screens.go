package tgbot

// Screen texts and inline keyboards for the dashboard UI.

import (
	"fmt"
	"strings"
	"time"

	"solwatch/internal/registry"
	"solwatch/internal/solana"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback data keys.
const (
	cbAdd      = "add"
	cbRefresh  = "refresh"
	cbBackMenu = "back_menu"
	cbWallets  = "wallets"
	cbAlerts   = "alerts"
	cbSettings = "settings"
	cbHelp     = "help"
	cbChart    = "chart"

	cbWalletsPagePrefix = "wpage:"  // wpage:<n>
	cbTogglePrefix      = "toggle:" // toggle:<wallet_id>
	cbDeletePrefix      = "delete:" // delete:<wallet_id>
)

const walletsPerPage = 6

func dashboardText(wallets []registry.Wallet, lastScan string) string {
	total := len(wallets)
	enabled := 0
	for _, w := range wallets {
		if w.Enabled {
			enabled++
		}
	}
	disabled := total - enabled

	lastLine := lastScan
	if lastLine == "" {
		lastLine = "—"
	}

	return "🌊 *Sol Watch*\n" +
		"━━━━━━━━━━━━━━━━━━━━\n" +
		"📊 *Dashboard*\n\n" +
		fmt.Sprintf("👛 *Wallets:* %d\n", total) +
		fmt.Sprintf("🔔 *Alerts On:* %d\n", enabled) +
		fmt.Sprintf("🔕 *Alerts Off:* %d\n\n", disabled) +
		fmt.Sprintf("🕒 *Last scan:* %s\n\n", lastLine) +
		"⚡ Choose an option below:"
}

func mainMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⚡ Add Wallet", cbAdd),
			tgbotapi.NewInlineKeyboardButtonData("👛 My Wallets", cbWallets),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔔 Alerts", cbAlerts),
			tgbotapi.NewInlineKeyboardButtonData("⚙️ Settings", cbSettings),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📈 Chart", cbChart),
			tgbotapi.NewInlineKeyboardButtonData("🆘 Help", cbHelp),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Refresh", cbRefresh),
		),
	)
}

func walletsScreenText(wallets []registry.Wallet, page int) string {
	total := len(wallets)
	if total == 0 {
		return "👛 *My Wallets*\n" +
			"━━━━━━━━━━━━━━━━━━━━\n\n" +
			"You have *0* wallets saved.\n\n" +
			"Tap ⚡ *Add Wallet* to get started."
	}

	pages := (total + walletsPerPage - 1) / walletsPerPage
	page = clampPage(page, pages)

	start := page * walletsPerPage
	end := start + walletsPerPage
	if end > total {
		end = total
	}
	chunk := wallets[start:end]

	var b strings.Builder
	fmt.Fprintf(&b, "👛 *My Wallets*  (Page %d/%d)\n", page+1, pages)
	b.WriteString("━━━━━━━━━━━━━━━━━━━━\n\n")

	for _, w := range chunk {
		status := "🔕 OFF"
		if w.Enabled {
			status = "🔔 ON"
		}
		lastSOL := "—"
		if w.LastLamports != nil {
			lastSOL = solana.FormatSOL(*w.LastLamports)
		}
		fmt.Fprintf(&b, "• *%s*  %s\n  `%s`\n  💰 last: *%s* SOL\n\n",
			w.Name, status, solana.TruncateAddress(w.Address), lastSOL)
	}

	b.WriteString("Tip: Toggle alerts per wallet or remove it 👇")
	return b.String()
}

func walletsScreenKeyboard(wallets []registry.Wallet, page int) tgbotapi.InlineKeyboardMarkup {
	total := len(wallets)
	pages := (total + walletsPerPage - 1) / walletsPerPage
	if pages < 1 {
		pages = 1
	}
	page = clampPage(page, pages)

	start := page * walletsPerPage
	end := start + walletsPerPage
	if end > total {
		end = total
	}
	chunk := wallets[start:end]

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, w := range chunk {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("🔔 Toggle — %s", w.Name),
				fmt.Sprintf("%s%d", cbTogglePrefix, w.ID)),
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("🗑 Remove — %s", w.Name),
				fmt.Sprintf("%s%d", cbDeletePrefix, w.ID)),
		))
	}

	var nav []tgbotapi.InlineKeyboardButton
	if page > 0 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️ Prev", fmt.Sprintf("%s%d", cbWalletsPagePrefix, page-1)))
	}
	nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("➕ Add", cbAdd))
	if page < pages-1 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Next ➡️", fmt.Sprintf("%s%d", cbWalletsPagePrefix, page+1)))
	}
	rows = append(rows, nav)

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🏠 Back to Dashboard", cbBackMenu),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func alertsScreenText(wallets []registry.Wallet) string {
	total := len(wallets)
	enabled := 0
	for _, w := range wallets {
		if w.Enabled {
			enabled++
		}
	}
	disabled := total - enabled

	return "🔔 *Alerts*\n" +
		"━━━━━━━━━━━━━━━━━━━━\n\n" +
		"This bot sends a message when a wallet balance changes by *any* SOL amount.\n\n" +
		fmt.Sprintf("✅ Alerts ON: *%d*\n", enabled) +
		fmt.Sprintf("🚫 Alerts OFF: *%d*\n", disabled) +
		fmt.Sprintf("👛 Total wallets: *%d*\n\n", total) +
		"Manage toggles under 👛 *My Wallets*."
}

func settingsScreenText(interval time.Duration) string {
	return "⚙️ *Settings*\n" +
		"━━━━━━━━━━━━━━━━━━━━\n\n" +
		"Currently available:\n" +
		fmt.Sprintf("⏱ Scan interval: *%ds*\n\n", int(interval.Seconds())) +
		"Coming soon (if you want):\n" +
		"• Minimum change threshold per wallet\n" +
		"• Silent hours (do not disturb)\n" +
		"• Rename wallet\n"
}

func helpScreenText() string {
	return "🆘 *Help*\n" +
		"━━━━━━━━━━━━━━━━━━━━\n\n" +
		"✅ *How to use*\n" +
		"1) Tap ⚡ Add Wallet\n" +
		"2) Send a wallet name\n" +
		"3) Send a Solana wallet address\n" +
		"4) You'll get alerts when balance changes\n\n" +
		"🧠 *Commands*\n" +
		"/start — open dashboard\n" +
		"/cancel — cancel add-wallet flow"
}

func backKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏠 Back to Dashboard", cbBackMenu),
		),
	)
}

func clampPage(page, pages int) int {
	if page < 0 {
		return 0
	}
	if page > pages-1 {
		return pages - 1
	}
	return page
}
