package monitor

// Package monitor is the balance-change engine: a periodic scan over every
// enabled wallet that fetches current balances, compares them with the last
// observed state, persists the new state and emits one change event per
// detected change. Failures stay local to their wallet.

import (
	"context"
	"sync/atomic"
	"time"

	"solwatch/internal/infra/log"
	"solwatch/internal/registry"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BalanceSource fetches the current balance of an address in lamports.
type BalanceSource interface {
	GetBalance(ctx context.Context, address string) (uint64, error)
}

// WalletStore is the slice of the registry the scanner needs.
type WalletStore interface {
	ListEnabled() ([]registry.Wallet, error)
	SetLastLamports(id uint64, lamports uint64) error
}

// ChangeEvent describes one detected balance change, addressed to the
// wallet's owner.
type ChangeEvent struct {
	WalletID uint64
	UserID   int64
	Name     string
	Address  string
	Previous uint64
	Current  uint64
	Delta    int64
}

// NotificationSink delivers a change event to its owner. Delivery failures
// are logged, never retried, and never affect persisted state.
type NotificationSink interface {
	Notify(userID int64, ev ChangeEvent) error
}

// Recorder receives scan outcomes for the metrics surface. Implementations
// must be safe for concurrent use.
type Recorder interface {
	ScanCompleted(stats Stats, at time.Time)
	NotifyFailed()
}

// Stats summarizes one scan.
type Stats struct {
	Scanned       int
	Changes       int
	FetchFailures int
}

// DefaultConcurrency bounds simultaneous balance fetches within one scan.
// Public RPC nodes throttle by source, so one slow or greedy scan would
// degrade every wallet's check, not just one.
const DefaultConcurrency = 8

// Scanner runs balance scans. Construct with NewScanner; all dependencies
// are explicit so tests can substitute fakes.
type Scanner struct {
	source      BalanceSource
	store       WalletStore
	sink        NotificationSink
	recorder    Recorder
	interval    time.Duration
	concurrency int

	lastScan  atomic.Pointer[time.Time]
	lastStats atomic.Pointer[Stats]
	scanning  atomic.Bool
}

// NewScanner wires a scanner. recorder may be nil. concurrency <= 0 falls
// back to DefaultConcurrency.
func NewScanner(source BalanceSource, store WalletStore, sink NotificationSink, recorder Recorder, interval time.Duration, concurrency int) *Scanner {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Scanner{
		source:      source,
		store:       store,
		sink:        sink,
		recorder:    recorder,
		interval:    interval,
		concurrency: concurrency,
	}
}

// LastScan returns the time the most recent scan started, if any. Used by
// the dashboard.
func (s *Scanner) LastScan() (time.Time, bool) {
	t := s.lastScan.Load()
	if t == nil {
		return time.Time{}, false
	}
	return *t, true
}

// LastStats returns the most recent scan's stats, if any.
func (s *Scanner) LastStats() (Stats, bool) {
	st := s.lastStats.Load()
	if st == nil {
		return Stats{}, false
	}
	return *st, true
}

// RunScan performs one full scan over all enabled wallets. It returns an
// error only when the wallet list itself cannot be loaded; every per-wallet
// failure is absorbed into the stats.
func (s *Scanner) RunScan(ctx context.Context) (Stats, error) {
	started := time.Now()
	s.lastScan.Store(&started)

	wallets, err := s.store.ListEnabled()
	if err != nil {
		// Registry outage: abandon this scan, the next tick retries.
		return Stats{}, err
	}

	var stats Stats
	stats.Scanned = len(wallets)
	if len(wallets) == 0 {
		s.finishScan(stats, started)
		return stats, nil
	}

	var changes, fetchFailures atomic.Int64

	g := &errgroup.Group{}
	g.SetLimit(s.concurrency)
	for _, w := range wallets {
		w := w
		g.Go(func() error {
			changed, failed := s.checkWallet(ctx, w)
			if changed {
				changes.Add(1)
			}
			if failed {
				fetchFailures.Add(1)
			}
			return nil
		})
	}
	g.Wait()

	stats.Changes = int(changes.Load())
	stats.FetchFailures = int(fetchFailures.Load())

	s.finishScan(stats, started)
	return stats, nil
}

func (s *Scanner) finishScan(stats Stats, started time.Time) {
	s.lastStats.Store(&stats)
	if s.recorder != nil {
		s.recorder.ScanCompleted(stats, started)
	}
	log.LogInfo("Scan completed",
		zap.Int("scanned", stats.Scanned),
		zap.Int("changes", stats.Changes),
		zap.Int("fetchFailures", stats.FetchFailures),
		zap.Int64("duration_ms", time.Since(started).Milliseconds()))
}

// checkWallet runs one wallet's fetch-compare-persist-notify pipeline and
// reports whether a change was detected and whether the fetch failed.
// Nothing in here may affect any other wallet.
func (s *Scanner) checkWallet(ctx context.Context, w registry.Wallet) (changed, fetchFailed bool) {
	current, err := s.source.GetBalance(ctx, w.Address)
	if err != nil {
		// Leave LastLamports untouched so the next successful fetch is
		// compared against the last known-good value.
		log.LogWarn("Balance fetch failed",
			zap.Uint64("walletID", w.ID),
			zap.String("address", w.Address),
			zap.Error(err))
		return false, true
	}

	sig := Detect(w.LastLamports, current)
	switch sig.Kind {
	case Unchanged:
		return false, false

	case FirstObservation:
		if err := s.store.SetLastLamports(w.ID, current); err != nil {
			log.LogWarn("Failed to persist first observed balance",
				zap.Uint64("walletID", w.ID),
				zap.Error(err))
		}
		return false, false

	case Changed:
		// Persist before notifying: state correctness must not depend on
		// delivery succeeding.
		if err := s.store.SetLastLamports(w.ID, current); err != nil {
			log.LogWarn("Failed to persist balance change",
				zap.Uint64("walletID", w.ID),
				zap.Error(err))
		}

		ev := ChangeEvent{
			WalletID: w.ID,
			UserID:   w.UserID,
			Name:     w.Name,
			Address:  w.Address,
			Previous: *w.LastLamports,
			Current:  current,
			Delta:    sig.Delta,
		}
		if err := s.sink.Notify(w.UserID, ev); err != nil {
			log.LogWarn("Failed to deliver change notification",
				zap.Uint64("walletID", w.ID),
				zap.Int64("userID", w.UserID),
				zap.Error(err))
			if s.recorder != nil {
				s.recorder.NotifyFailed()
			}
		}
		return true, false
	}
	return false, false
}
