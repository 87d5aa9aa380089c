package tgbot

// Package tgbot is the Telegram surface: dashboard screens, the add-wallet
// conversation and balance-change notifications.

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"solwatch/internal/infra/log"
	"solwatch/internal/infra/retry"
	"solwatch/internal/monitor"
	"solwatch/internal/registry"
	"solwatch/internal/solana"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// ScanStatus is the slice of the scanner the dashboard reads.
type ScanStatus interface {
	LastScan() (time.Time, bool)
	LastStats() (monitor.Stats, bool)
}

// Conversation steps for the add-wallet flow.
const (
	stepAskName = iota
	stepAskAddress
)

type addState struct {
	step int
	name string
}

// Handler owns the long-poll update loop. One conversation state per user;
// any /start or dashboard tap drops a half-finished add flow.
type Handler struct {
	bot      *tgbotapi.BotAPI
	reg      *registry.Registry
	source   monitor.BalanceSource
	status   ScanStatus
	interval time.Duration
	dataDir  string

	mu      sync.Mutex
	pending map[int64]*addState
}

func NewHandler(bot *tgbotapi.BotAPI, reg *registry.Registry, source monitor.BalanceSource, status ScanStatus, interval time.Duration, dataDir string) *Handler {
	return &Handler{
		bot:      bot,
		reg:      reg,
		source:   source,
		status:   status,
		interval: interval,
		dataDir:  dataDir,
		pending:  make(map[int64]*addState),
	}
}

// Run consumes updates until ctx is cancelled.
func (h *Handler) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := h.bot.GetUpdatesChan(u)
	log.LogSuccess("Telegram handler started", zap.String("bot", h.bot.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			h.bot.StopReceivingUpdates()
			log.LogInfo("Telegram handler stopped")
			return
		case update, ok := <-updates:
			if !ok {
				log.LogWarn("Telegram updates channel closed")
				return
			}
			h.handleUpdate(ctx, update)
		}
	}
}

func (h *Handler) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		h.handleMessage(ctx, update.Message)
	}
}

func (h *Handler) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID
	chatID := message.Chat.ID

	if message.IsCommand() {
		switch message.Command() {
		case "start":
			h.clearPending(userID)
			h.sendDashboard(chatID, userID)
		case "cancel":
			if h.clearPending(userID) {
				h.sendText(chatID, "❌ Cancelled. Nothing was added.")
			} else {
				h.sendText(chatID, "Nothing to cancel.")
			}
			h.sendDashboard(chatID, userID)
		default:
			h.sendText(chatID, "Unknown command. Try /start.")
		}
		return
	}

	// Non-command text only matters inside the add-wallet flow.
	state := h.getPending(userID)
	if state == nil {
		h.sendText(chatID, "Tap a button below 👇 or /start.")
		h.sendDashboard(chatID, userID)
		return
	}
	h.continueAddFlow(ctx, chatID, userID, state, strings.TrimSpace(message.Text))
}

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	userID := cb.From.ID
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID
	data := cb.Data

	// Ack first so the client stops its spinner even if rendering fails.
	if _, err := h.bot.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.LogDebug("Failed to answer callback query", zap.Error(err))
	}

	// Any dashboard tap abandons a half-finished add flow, except the add
	// button itself.
	if data != cbAdd {
		h.clearPending(userID)
	}

	switch {
	case data == cbRefresh, data == cbBackMenu:
		h.editDashboard(chatID, messageID, userID)

	case data == cbAdd:
		h.startAddFlow(chatID, userID)

	case data == cbWallets:
		h.showWallets(chatID, messageID, userID, 0)

	case data == cbAlerts:
		h.edit(chatID, messageID, alertsScreenText(h.reg.ListByUser(userID)), backKeyboard())

	case data == cbSettings:
		h.edit(chatID, messageID, settingsScreenText(h.interval), backKeyboard())

	case data == cbHelp:
		h.edit(chatID, messageID, helpScreenText(), backKeyboard())

	case data == cbChart:
		h.sendChart(chatID, userID)

	case strings.HasPrefix(data, cbWalletsPagePrefix):
		page, err := strconv.Atoi(strings.TrimPrefix(data, cbWalletsPagePrefix))
		if err != nil {
			page = 0
		}
		h.showWallets(chatID, messageID, userID, page)

	case strings.HasPrefix(data, cbTogglePrefix):
		h.toggleWallet(chatID, messageID, userID, strings.TrimPrefix(data, cbTogglePrefix))

	case strings.HasPrefix(data, cbDeletePrefix):
		h.deleteWallet(chatID, messageID, userID, strings.TrimPrefix(data, cbDeletePrefix))

	default:
		log.LogDebug("Unknown callback data", zap.String("data", data))
	}
}

// --- add-wallet conversation ---

func (h *Handler) startAddFlow(chatID, userID int64) {
	h.mu.Lock()
	h.pending[userID] = &addState{step: stepAskName}
	h.mu.Unlock()

	h.sendText(chatID, "⚡ *Add Wallet*\n\nSend a *name* for this wallet (1-40 characters).\n\n/cancel to abort.")
}

func (h *Handler) continueAddFlow(ctx context.Context, chatID, userID int64, state *addState, text string) {
	switch state.step {
	case stepAskName:
		if len(text) < 1 || len(text) > 40 {
			h.sendText(chatID, "⚠️ Name must be 1-40 characters. Try again, or /cancel.")
			return
		}
		h.mu.Lock()
		state.name = text
		state.step = stepAskAddress
		h.mu.Unlock()
		h.sendText(chatID, fmt.Sprintf("Got it: *%s*\n\nNow send the *Solana wallet address*.", text))

	case stepAskAddress:
		if !solana.IsProbablyAddress(text) {
			h.sendText(chatID, "⚠️ That doesn't look like a Solana address. Try again, or /cancel.")
			return
		}

		w, err := h.reg.Add(userID, state.name, text)
		if err != nil {
			h.clearPending(userID)
			switch {
			case errors.Is(err, registry.ErrDuplicateAddress):
				h.sendText(chatID, "⚠️ You are already tracking this address.")
			case errors.Is(err, registry.ErrInvalidName):
				h.sendText(chatID, "⚠️ Name must be 1-40 characters.")
			default:
				log.LogError("Failed to add wallet",
					zap.Int64("userID", userID),
					zap.Error(err))
				h.sendText(chatID, "An error occurred, please try again later.")
			}
			h.sendDashboard(chatID, userID)
			return
		}
		h.clearPending(userID)

		log.LogInfo("Wallet added",
			zap.Uint64("walletID", w.ID),
			zap.Int64("userID", userID),
			zap.String("address", solana.TruncateAddress(w.Address)))

		h.seedInitialBalance(ctx, chatID, w)
		h.sendDashboard(chatID, userID)
	}
}

// seedInitialBalance fetches the wallet's starting balance right after
// registration so the first scan does not report the whole balance as a
// change. Transient fetch errors are retried a couple of times; on failure
// the first scan seeds it instead.
func (h *Handler) seedInitialBalance(ctx context.Context, chatID int64, w registry.Wallet) {
	var lamports uint64
	err := retry.Do(ctx, retry.Options{
		MaxRetries: 2,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   3 * time.Second,
		RetryIf:    transientFetch,
	}, func() error {
		fetchCtx, cancel := context.WithTimeout(ctx, solana.DefaultFetchTimeout)
		defer cancel()
		var err error
		lamports, err = h.source.GetBalance(fetchCtx, w.Address)
		return err
	})
	if err != nil {
		log.LogWarn("Failed to seed initial balance, first scan will pick it up",
			zap.Uint64("walletID", w.ID),
			zap.Error(err))
		h.sendText(chatID, fmt.Sprintf("✅ *%s* added!\n\nCouldn't fetch the balance right now; it will be picked up on the next scan.", w.Name))
		return
	}

	if err := h.reg.SetLastLamports(w.ID, lamports); err != nil {
		log.LogWarn("Failed to persist seeded balance",
			zap.Uint64("walletID", w.ID),
			zap.Error(err))
	}
	h.sendText(chatID, fmt.Sprintf("✅ *%s* added!\n\n`%s`\n💰 Current balance: *%s SOL*",
		w.Name, solana.TruncateAddress(w.Address), solana.FormatSOL(lamports)))
}

func transientFetch(err error) bool {
	var fe *solana.FetchError
	if errors.As(err, &fe) {
		switch fe.Kind {
		case solana.FetchTimeout, solana.FetchUnreachable:
			return true
		}
	}
	return false
}

// --- wallet list actions ---

func (h *Handler) showWallets(chatID int64, messageID int, userID int64, page int) {
	wallets := h.reg.ListByUser(userID)
	h.edit(chatID, messageID, walletsScreenText(wallets, page), walletsScreenKeyboard(wallets, page))
}

func (h *Handler) toggleWallet(chatID int64, messageID int, userID int64, rawID string) {
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil {
		return
	}

	enabled, err := h.reg.Toggle(userID, id)
	if err != nil {
		if !errors.Is(err, registry.ErrNotFound) {
			log.LogError("Failed to toggle wallet",
				zap.Uint64("walletID", id),
				zap.Int64("userID", userID),
				zap.Error(err))
		}
		h.showWallets(chatID, messageID, userID, 0)
		return
	}

	log.LogInfo("Wallet alerts toggled",
		zap.Uint64("walletID", id),
		zap.Int64("userID", userID),
		zap.Bool("enabled", enabled))
	h.showWallets(chatID, messageID, userID, 0)
}

func (h *Handler) deleteWallet(chatID int64, messageID int, userID int64, rawID string) {
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil {
		return
	}

	if err := h.reg.Delete(userID, id); err != nil {
		if !errors.Is(err, registry.ErrNotFound) {
			log.LogError("Failed to delete wallet",
				zap.Uint64("walletID", id),
				zap.Int64("userID", userID),
				zap.Error(err))
		}
		h.showWallets(chatID, messageID, userID, 0)
		return
	}

	log.LogInfo("Wallet deleted",
		zap.Uint64("walletID", id),
		zap.Int64("userID", userID))
	h.showWallets(chatID, messageID, userID, 0)
}

// --- screens ---

func (h *Handler) sendDashboard(chatID, userID int64) {
	msg := tgbotapi.NewMessage(chatID, dashboardText(h.reg.ListByUser(userID), h.lastScanLine()))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = mainMenuKeyboard()
	if _, err := h.bot.Send(msg); err != nil {
		log.LogError("Failed to send dashboard", zap.Int64("chatID", chatID), zap.Error(err))
	}
}

func (h *Handler) editDashboard(chatID int64, messageID int, userID int64) {
	h.edit(chatID, messageID, dashboardText(h.reg.ListByUser(userID), h.lastScanLine()), mainMenuKeyboard())
}

func (h *Handler) lastScanLine() string {
	t, ok := h.status.LastScan()
	if !ok {
		return ""
	}
	line := t.Format("15:04:05")
	if stats, ok := h.status.LastStats(); ok {
		line += fmt.Sprintf(" (%d checked, %d changes)", stats.Scanned, stats.Changes)
	}
	return line
}

func (h *Handler) sendChart(chatID, userID int64) {
	wallets := h.reg.ListByUser(userID)

	chartPath, err := renderPortfolioChart(h.dataDir, userID, wallets)
	if err != nil {
		log.LogWarn("Failed to render portfolio chart",
			zap.Int64("userID", userID),
			zap.Error(err))
		// Degrade to a text summary.
		var b strings.Builder
		b.WriteString("📈 *Portfolio*\n━━━━━━━━━━━━━━━━━━━━\n\n")
		if len(wallets) == 0 {
			b.WriteString("No wallets yet. Tap ⚡ Add Wallet first.")
		}
		for _, w := range wallets {
			if w.LastLamports == nil {
				continue
			}
			fmt.Fprintf(&b, "• *%s*: %s SOL\n", w.Name, solana.FormatSOL(*w.LastLamports))
		}
		h.sendText(chatID, b.String())
		return
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(chartPath))
	photo.Caption = "📈 Last observed balances"
	if _, err := h.bot.Send(photo); err != nil {
		log.LogError("Failed to send portfolio chart",
			zap.String("chartPath", chartPath),
			zap.Error(err))
	}
}

// --- helpers ---

func (h *Handler) sendText(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := h.bot.Send(msg); err != nil {
		log.LogError("Failed to send message", zap.Int64("chatID", chatID), zap.Error(err))
	}
}

func (h *Handler) edit(chatID int64, messageID int, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, keyboard)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := h.bot.Send(edit); err != nil {
		// "message is not modified" comes back as an error; harmless.
		log.LogDebug("Failed to edit message", zap.Int64("chatID", chatID), zap.Error(err))
	}
}

func (h *Handler) getPending(userID int64) *addState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pending[userID]
}

func (h *Handler) clearPending(userID int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.pending[userID]; !ok {
		return false
	}
	delete(h.pending, userID)
	return true
}
