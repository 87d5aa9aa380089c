package tgbot

// Portfolio chart: a PNG bar chart of each wallet's last observed balance.
// Rendering is best effort; the handler falls back to a text summary when
// it fails.

import (
	"fmt"
	"os"
	"path/filepath"

	"solwatch/internal/registry"
	"solwatch/internal/solana"

	"github.com/fogleman/gg"
)

const (
	chartWidth  = 900
	chartHeight = 500
	chartMaxBars = 8
)

// renderPortfolioChart draws the user's wallets as a bar chart and writes
// the PNG under dir, returning the file path. Wallets with no observed
// balance are skipped; only the first chartMaxBars wallets are drawn.
func renderPortfolioChart(dir string, userID int64, wallets []registry.Wallet) (string, error) {
	var observed []registry.Wallet
	for _, w := range wallets {
		if w.LastLamports != nil {
			observed = append(observed, w)
		}
	}
	if len(observed) == 0 {
		return "", fmt.Errorf("no observed balances to chart")
	}
	if len(observed) > chartMaxBars {
		observed = observed[:chartMaxBars]
	}

	maxSOL := 0.0
	for _, w := range observed {
		if v := solana.LamportsToSOL(*w.LastLamports); v > maxSOL {
			maxSOL = v
		}
	}
	if maxSOL == 0 {
		maxSOL = 1
	}

	dc := gg.NewContext(chartWidth, chartHeight)
	dc.SetRGB(0.08, 0.09, 0.12)
	dc.Clear()

	dc.SetRGB(0.9, 0.9, 0.95)
	dc.DrawStringAnchored("Portfolio — last observed balances (SOL)", chartWidth/2, 30, 0.5, 0.5)

	const (
		marginLeft   = 60.0
		marginRight  = 40.0
		marginTop    = 70.0
		marginBottom = 80.0
	)
	plotW := float64(chartWidth) - marginLeft - marginRight
	plotH := float64(chartHeight) - marginTop - marginBottom

	// Axis
	dc.SetRGB(0.35, 0.37, 0.42)
	dc.SetLineWidth(1)
	dc.DrawLine(marginLeft, marginTop, marginLeft, marginTop+plotH)
	dc.DrawLine(marginLeft, marginTop+plotH, marginLeft+plotW, marginTop+plotH)
	dc.Stroke()

	slot := plotW / float64(len(observed))
	barW := slot * 0.6

	for i, w := range observed {
		v := solana.LamportsToSOL(*w.LastLamports)
		h := (v / maxSOL) * (plotH - 10)
		x := marginLeft + float64(i)*slot + (slot-barW)/2
		y := marginTop + plotH - h

		dc.SetRGB(0.23, 0.51, 0.96)
		dc.DrawRectangle(x, y, barW, h)
		dc.Fill()

		dc.SetRGB(0.85, 0.87, 0.9)
		dc.DrawStringAnchored(solana.FormatSOL(*w.LastLamports), x+barW/2, y-12, 0.5, 0.5)

		label := w.Name
		if len(label) > 12 {
			label = label[:12] + "…"
		}
		dc.DrawStringAnchored(label, x+barW/2, marginTop+plotH+20, 0.5, 0.5)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create chart directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("portfolio_%d.png", userID))
	if err := dc.SavePNG(path); err != nil {
		return "", fmt.Errorf("failed to save chart PNG: %w", err)
	}
	return path, nil
}
