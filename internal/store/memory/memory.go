// Package memory is an in-process Store implementation used by tests
// and by single-node deployments that opt out of Postgres via
// STORE_DRIVER=memory.
package memory

import (
	"context"
	"sync"

	"github.com/foamcold/gproxy/internal/model"
	"github.com/foamcold/gproxy/internal/store"
)

// Store is a mutex-guarded, in-memory implementation of store.Store.
type Store struct {
	mu          sync.RWMutex
	accounts    map[string]model.Account
	tenantKeys  map[string]model.TenantKey // keyed by secret
	presets     map[string]model.Preset
	accountRegex map[string][]model.RegexRule
	credentials map[string]model.UpstreamCredential
	logs        []model.LogEntry
}

// New builds an empty Store. Use the Seed* helpers to populate it.
func New() *Store {
	return &Store{
		accounts:     make(map[string]model.Account),
		tenantKeys:   make(map[string]model.TenantKey),
		presets:      make(map[string]model.Preset),
		accountRegex: make(map[string][]model.RegexRule),
		credentials:  make(map[string]model.UpstreamCredential),
	}
}

func (s *Store) SeedAccount(a model.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = a
}

func (s *Store) SeedTenantKey(k model.TenantKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenantKeys[k.Secret] = k
}

func (s *Store) SeedPreset(p model.Preset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presets[p.ID] = p
}

func (s *Store) SeedAccountRegex(accountID string, rules []model.RegexRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accountRegex[accountID] = rules
}

func (s *Store) SeedCredential(c model.UpstreamCredential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[c.ID] = c
}

func (s *Store) Authenticate(ctx context.Context, keySecret string) (model.TenantKey, model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.tenantKeys[keySecret]
	if !ok || !k.Enabled {
		return model.TenantKey{}, model.Account{}, store.ErrNotFound
	}
	a, ok := s.accounts[k.AccountID]
	if !ok {
		return model.TenantKey{}, model.Account{}, store.ErrNotFound
	}
	return k, a, nil
}

func (s *Store) GetPreset(ctx context.Context, id string) (model.Preset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.presets[id]
	if !ok {
		return model.Preset{}, store.ErrNotFound
	}
	return p, nil
}

func (s *Store) ListAccountRegex(ctx context.Context, accountID string) ([]model.RegexRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rules := s.accountRegex[accountID]
	out := make([]model.RegexRule, len(rules))
	copy(out, rules)
	return out, nil
}

func (s *Store) ListEnabledCredentials(ctx context.Context) ([]model.UpstreamCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.UpstreamCredential, 0, len(s.credentials))
	for _, c := range s.credentials {
		if c.Enabled {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) UpdateCredentialStats(ctx context.Context, cred model.UpstreamCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[cred.ID] = cred
	return nil
}

func (s *Store) AppendLog(ctx context.Context, entry model.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entry)
	return nil
}

// Logs returns a copy of every log row appended so far, for assertions
// in tests.
func (s *Store) Logs() []model.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.LogEntry(nil), s.logs...)
}
