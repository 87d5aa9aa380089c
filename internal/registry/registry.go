package registry

// Package registry is the wallet store: which addresses are tracked, who
// owns them, and the last balance the monitor observed for each. Backed by
// a single JSON file written atomically (tmp + rename).

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	logging "solwatch/internal/infra/log"

	"go.uber.org/zap"
)

const registryFile = "wallets.json"

var (
	ErrDuplicateAddress = errors.New("address already tracked by this user")
	ErrNotFound         = errors.New("wallet not found")
	ErrInvalidName      = errors.New("name must be 1-40 characters")
)

// Wallet is one tracked account. LastLamports == nil means the balance has
// never been successfully observed; the first successful fetch seeds it
// without notifying.
type Wallet struct {
	ID           uint64  `json:"id"`
	UserID       int64   `json:"user_id"`
	Name         string  `json:"name"`
	Address      string  `json:"address"`
	Enabled      bool    `json:"enabled"`
	LastLamports *uint64 `json:"last_lamports,omitempty"`
}

type registryData struct {
	NextID  uint64   `json:"next_id"`
	Wallets []Wallet `json:"wallets"`
}

// Registry is safe for concurrent use. The scan loop is the only writer of
// LastLamports; the Telegram handlers add, toggle and delete.
type Registry struct {
	mu   sync.RWMutex
	path string
	data registryData
}

// Open loads the registry from dataDir, creating an empty one if the file
// does not exist yet.
func Open(dataDir string) (*Registry, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	r := &Registry{
		path: filepath.Join(dataDir, registryFile),
		data: registryData{NextID: 1},
	}

	raw, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		logging.LogDebug("Registry file does not exist, starting empty", zap.String("file", r.path))
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file: %w", err)
	}
	if strings.TrimSpace(string(raw)) == "" {
		return r, nil
	}

	if err := json.Unmarshal(raw, &r.data); err != nil {
		return nil, fmt.Errorf("failed to parse registry JSON: %w", err)
	}
	if r.data.NextID == 0 {
		r.data.NextID = 1
	}
	for _, w := range r.data.Wallets {
		if w.ID >= r.data.NextID {
			r.data.NextID = w.ID + 1
		}
	}

	logging.LogInfo("Loaded wallet registry",
		zap.String("file", r.path),
		zap.Int("wallets", len(r.data.Wallets)))
	return r, nil
}

// save writes the registry to disk. Caller must hold the write lock.
func (r *Registry) save() error {
	raw, err := json.MarshalIndent(&r.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry JSON: %w", err)
	}

	tmpPath := r.path + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0644); err != nil {
		return fmt.Errorf("failed to write temporary registry file: %w", err)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temporary registry file: %w", err)
	}
	return nil
}

// Add registers a new wallet for the user. New wallets start enabled with
// no observed balance. (UserID, Address) must be unique.
func (r *Registry) Add(userID int64, name, address string) (Wallet, error) {
	name = strings.TrimSpace(name)
	address = strings.TrimSpace(address)
	if len(name) < 1 || len(name) > 40 {
		return Wallet{}, ErrInvalidName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, w := range r.data.Wallets {
		if w.UserID == userID && w.Address == address {
			return Wallet{}, ErrDuplicateAddress
		}
	}

	w := Wallet{
		ID:      r.data.NextID,
		UserID:  userID,
		Name:    name,
		Address: address,
		Enabled: true,
	}
	r.data.NextID++
	r.data.Wallets = append(r.data.Wallets, w)

	if err := r.save(); err != nil {
		// Roll back the in-memory state so memory and disk agree.
		r.data.Wallets = r.data.Wallets[:len(r.data.Wallets)-1]
		r.data.NextID--
		return Wallet{}, err
	}
	return w, nil
}

// ListByUser returns the user's wallets, newest first.
func (r *Registry) ListByUser(userID int64) []Wallet {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Wallet
	for _, w := range r.data.Wallets {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// ListEnabled returns every enabled wallet across all users. This is the
// scan input; disabled wallets are retained but skipped.
func (r *Registry) ListEnabled() ([]Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Wallet
	for _, w := range r.data.Wallets {
		if w.Enabled {
			out = append(out, w)
		}
	}
	return out, nil
}

// Toggle flips the enabled flag of the user's wallet and returns the new
// state.
func (r *Registry) Toggle(userID int64, id uint64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.data.Wallets {
		w := &r.data.Wallets[i]
		if w.ID == id && w.UserID == userID {
			w.Enabled = !w.Enabled
			if err := r.save(); err != nil {
				w.Enabled = !w.Enabled
				return false, err
			}
			return w.Enabled, nil
		}
	}
	return false, ErrNotFound
}

// Delete removes the user's wallet.
func (r *Registry) Delete(userID int64, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.data.Wallets {
		if r.data.Wallets[i].ID == id && r.data.Wallets[i].UserID == userID {
			removed := r.data.Wallets[i]
			r.data.Wallets = append(r.data.Wallets[:i], r.data.Wallets[i+1:]...)
			if err := r.save(); err != nil {
				r.data.Wallets = append(r.data.Wallets, removed)
				return err
			}
			return nil
		}
	}
	return ErrNotFound
}

// SetLastLamports replaces the wallet's last observed balance. A missing id
// is a logged no-op: the wallet may have been deleted while a scan was in
// flight, and that is not an error.
func (r *Registry) SetLastLamports(id uint64, lamports uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.data.Wallets {
		w := &r.data.Wallets[i]
		if w.ID == id {
			v := lamports
			prev := w.LastLamports
			w.LastLamports = &v
			if err := r.save(); err != nil {
				w.LastLamports = prev
				return err
			}
			return nil
		}
	}

	logging.LogDebug("SetLastLamports on missing wallet, skipping",
		zap.Uint64("walletID", id),
		zap.Uint64("lamports", lamports))
	return nil
}
