package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"solwatch/internal/registry"
)

// fakeSource serves canned balances per address. Addresses mapped to an
// error fail their fetch.
type fakeSource struct {
	mu       sync.Mutex
	balances map[string]uint64
	failures map[string]error

	// Concurrency tracking.
	inFlight    atomic.Int64
	maxInFlight atomic.Int64
	delay       time.Duration
}

func (f *fakeSource) GetBalance(ctx context.Context, address string) (uint64, error) {
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		max := f.maxInFlight.Load()
		if cur <= max || f.maxInFlight.CompareAndSwap(max, cur) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failures[address]; ok {
		return 0, err
	}
	return f.balances[address], nil
}

// fakeStore is an in-memory WalletStore.
type fakeStore struct {
	mu      sync.Mutex
	wallets []registry.Wallet
}

func (f *fakeStore) ListEnabled() ([]registry.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]registry.Wallet, 0, len(f.wallets))
	for _, w := range f.wallets {
		if w.Enabled {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeStore) SetLastLamports(id uint64, lamports uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.wallets {
		if f.wallets[i].ID == id {
			v := lamports
			f.wallets[i].LastLamports = &v
			return nil
		}
	}
	return nil
}

func (f *fakeStore) lamports(id uint64) *uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range f.wallets {
		if w.ID == id {
			return w.LastLamports
		}
	}
	return nil
}

// fakeSink collects delivered events.
type fakeSink struct {
	mu     sync.Mutex
	events []ChangeEvent
	err    error
}

func (f *fakeSink) Notify(userID int64, ev ChangeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeSink) all() []ChangeEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ChangeEvent(nil), f.events...)
}

func u64(v uint64) *uint64 { return &v }

func newTestScanner(source BalanceSource, store WalletStore, sink NotificationSink, concurrency int) *Scanner {
	return NewScanner(source, store, sink, nil, time.Second, concurrency)
}

func TestScanFirstObservationStoresWithoutNotifying(t *testing.T) {
	store := &fakeStore{wallets: []registry.Wallet{
		{ID: 1, UserID: 10, Name: "main", Address: "addr1", Enabled: true},
	}}
	source := &fakeSource{balances: map[string]uint64{"addr1": 5_000_000_000}}
	sink := &fakeSink{}

	s := newTestScanner(source, store, sink, 2)
	stats, err := s.RunScan(context.Background())
	if err != nil {
		t.Fatalf("RunScan failed: %v", err)
	}

	if got := store.lamports(1); got == nil || *got != 5_000_000_000 {
		t.Fatalf("expected stored balance 5000000000, got %v", got)
	}
	if len(sink.all()) != 0 {
		t.Fatalf("first observation must not notify, got %d events", len(sink.all()))
	}
	if stats.Scanned != 1 || stats.Changes != 0 || stats.FetchFailures != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestScanChangeNotifiesWithDelta(t *testing.T) {
	store := &fakeStore{wallets: []registry.Wallet{
		{ID: 1, UserID: 10, Name: "main", Address: "addr1", Enabled: true, LastLamports: u64(5_000_000_000)},
	}}
	source := &fakeSource{balances: map[string]uint64{"addr1": 4_500_000_000}}
	sink := &fakeSink{}

	s := newTestScanner(source, store, sink, 2)
	stats, err := s.RunScan(context.Background())
	if err != nil {
		t.Fatalf("RunScan failed: %v", err)
	}

	events := sink.all()
	if len(events) != 1 {
		t.Fatalf("expected exactly one notification, got %d", len(events))
	}
	ev := events[0]
	if ev.Delta != -500_000_000 {
		t.Fatalf("expected delta -500000000, got %d", ev.Delta)
	}
	if ev.Previous != 5_000_000_000 || ev.Current != 4_500_000_000 {
		t.Fatalf("unexpected event balances: %+v", ev)
	}
	if ev.UserID != 10 {
		t.Fatalf("event addressed to wrong user: %d", ev.UserID)
	}

	if got := store.lamports(1); got == nil || *got != 4_500_000_000 {
		t.Fatalf("expected stored balance 4500000000, got %v", got)
	}
	if stats.Changes != 1 {
		t.Fatalf("expected 1 change in stats, got %d", stats.Changes)
	}
}

func TestScanFetchFailureLeavesStateUntouched(t *testing.T) {
	store := &fakeStore{wallets: []registry.Wallet{
		{ID: 1, UserID: 10, Name: "main", Address: "addr1", Enabled: true, LastLamports: u64(1_000_000_000)},
	}}
	source := &fakeSource{failures: map[string]error{"addr1": errors.New("fetch timed out")}}
	sink := &fakeSink{}

	s := newTestScanner(source, store, sink, 2)
	stats, err := s.RunScan(context.Background())
	if err != nil {
		t.Fatalf("RunScan failed: %v", err)
	}

	if got := store.lamports(1); got == nil || *got != 1_000_000_000 {
		t.Fatalf("fetch failure must not change stored balance, got %v", got)
	}
	if len(sink.all()) != 0 {
		t.Fatalf("fetch failure must not notify, got %d events", len(sink.all()))
	}
	if stats.FetchFailures != 1 {
		t.Fatalf("expected 1 fetch failure, got %d", stats.FetchFailures)
	}
}

func TestScanFailureIsolation(t *testing.T) {
	store := &fakeStore{wallets: []registry.Wallet{
		{ID: 1, UserID: 10, Name: "a", Address: "addr1", Enabled: true, LastLamports: u64(100)},
		{ID: 2, UserID: 10, Name: "b", Address: "addr2", Enabled: true, LastLamports: u64(200)},
		{ID: 3, UserID: 11, Name: "c", Address: "addr3", Enabled: true, LastLamports: u64(300)},
	}}
	source := &fakeSource{
		balances: map[string]uint64{"addr1": 150, "addr3": 300},
		failures: map[string]error{"addr2": errors.New("unreachable")},
	}
	sink := &fakeSink{}

	s := newTestScanner(source, store, sink, 2)
	stats, err := s.RunScan(context.Background())
	if err != nil {
		t.Fatalf("RunScan failed: %v", err)
	}

	if stats.Scanned != 3 || stats.Changes != 1 || stats.FetchFailures != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if got := store.lamports(1); got == nil || *got != 150 {
		t.Fatalf("wallet 1 should have been updated, got %v", got)
	}
	if got := store.lamports(2); got == nil || *got != 200 {
		t.Fatalf("failed wallet 2 must keep its last balance, got %v", got)
	}
	events := sink.all()
	if len(events) != 1 || events[0].WalletID != 1 {
		t.Fatalf("expected one event for wallet 1, got %+v", events)
	}
}

func TestScanZeroWallets(t *testing.T) {
	store := &fakeStore{}
	source := &fakeSource{}
	sink := &fakeSink{}

	s := newTestScanner(source, store, sink, 2)
	stats, err := s.RunScan(context.Background())
	if err != nil {
		t.Fatalf("RunScan failed: %v", err)
	}
	if stats.Scanned != 0 || stats.Changes != 0 || stats.FetchFailures != 0 {
		t.Fatalf("expected all-zero stats, got %+v", stats)
	}
	if _, ok := s.LastScan(); !ok {
		t.Fatal("scan over zero wallets must still record its timestamp")
	}
}

func TestScanRespectsConcurrencyBound(t *testing.T) {
	var wallets []registry.Wallet
	balances := make(map[string]uint64)
	for i := 0; i < 10; i++ {
		addr := string(rune('a' + i))
		wallets = append(wallets, registry.Wallet{
			ID: uint64(i + 1), UserID: 10, Name: addr, Address: addr, Enabled: true,
		})
		balances[addr] = uint64(i)
	}
	store := &fakeStore{wallets: wallets}
	source := &fakeSource{balances: balances, delay: 20 * time.Millisecond}
	sink := &fakeSink{}

	s := newTestScanner(source, store, sink, 2)
	if _, err := s.RunScan(context.Background()); err != nil {
		t.Fatalf("RunScan failed: %v", err)
	}

	if max := source.maxInFlight.Load(); max > 2 {
		t.Fatalf("concurrency bound violated: %d fetches in flight", max)
	}
}

func TestScanNotifyFailureDoesNotAffectState(t *testing.T) {
	store := &fakeStore{wallets: []registry.Wallet{
		{ID: 1, UserID: 10, Name: "main", Address: "addr1", Enabled: true, LastLamports: u64(100)},
	}}
	source := &fakeSource{balances: map[string]uint64{"addr1": 200}}
	sink := &fakeSink{err: errors.New("telegram down")}

	s := newTestScanner(source, store, sink, 2)
	stats, err := s.RunScan(context.Background())
	if err != nil {
		t.Fatalf("RunScan failed: %v", err)
	}

	// State is persisted before delivery, so a failed send must not leave
	// the old balance behind (which would repeat the alert forever).
	if got := store.lamports(1); got == nil || *got != 200 {
		t.Fatalf("expected balance persisted despite notify failure, got %v", got)
	}
	if stats.Changes != 1 {
		t.Fatalf("change must still count despite notify failure, got %d", stats.Changes)
	}
}
