// Package memorystore provides in-process implementations of the retention
// Store and KV interfaces. They are only safe for single-process deployments
// and are the default backing for tests and dev servers.
package memorystore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/casavia/retention/core"
)

// Store is a mutex-guarded map implementation of core.Store. It enforces the
// same semantics as the Postgres store: unique live emails and ids on insert,
// set-once purge stamps, append-only audit.
type Store struct {
	mu       sync.Mutex
	accounts map[string]core.Account // by id
	records  map[string]core.DeletedAccountRecord
	tokens   map[string]core.RevocationToken // by raw token
	audit    []core.AuditEntry
}

func NewStore() *Store {
	return &Store{
		accounts: make(map[string]core.Account),
		records:  make(map[string]core.DeletedAccountRecord),
		tokens:   make(map[string]core.RevocationToken),
	}
}

func (s *Store) GetAccount(ctx context.Context, id string) (*core.Account, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[id]; ok {
		return &a, nil
	}
	return nil, nil
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*core.Account, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if strings.EqualFold(a.Email, email) {
			a := a
			return &a, nil
		}
	}
	return nil, nil
}

func (s *Store) InsertAccount(ctx context.Context, acct *core.Account) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[acct.ID]; ok {
		return core.ErrEmailTaken
	}
	for _, a := range s.accounts {
		if strings.EqualFold(a.Email, acct.Email) {
			return core.ErrEmailTaken
		}
	}
	s.accounts[acct.ID] = *acct
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.accounts, id)
	return nil
}

func (s *Store) InsertRecord(ctx context.Context, rec *core.DeletedAccountRecord) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = *rec
	return nil
}

func (s *Store) GetRecord(ctx context.Context, id string) (*core.DeletedAccountRecord, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[id]; ok {
		return &r, nil
	}
	return nil, nil
}

func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

func (s *Store) ListRecords(ctx context.Context, includePurged bool) ([]core.DeletedAccountRecord, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.DeletedAccountRecord, 0, len(s.records))
	for _, r := range s.records {
		if !includePurged && r.Purged() {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeletedAt.Before(out[j].DeletedAt) })
	return out, nil
}

func (s *Store) ListUnpurgedDeletedBefore(ctx context.Context, cutoff time.Time, limit int) ([]core.DeletedAccountRecord, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.DeletedAccountRecord
	for _, r := range s.records {
		if r.Purged() || r.DeletedAt.After(cutoff) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeletedAt.Before(out[j].DeletedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkPurged(ctx context.Context, id string, at time.Time, by core.Actor) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return core.ErrRecordNotFound
	}
	if r.PurgedAt != nil {
		return core.ErrAlreadyPurged
	}
	r.PurgedAt = &at
	r.PurgedBy = &by
	s.records[id] = r
	return nil
}

func (s *Store) InsertToken(ctx context.Context, tok *core.RevocationToken) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tok.Token] = *tok
	return nil
}

func (s *Store) GetToken(ctx context.Context, raw string) (*core.RevocationToken, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tokens[raw]; ok {
		return &t, nil
	}
	return nil, nil
}

func (s *Store) MarkAllTokensUsed(ctx context.Context, accountID string, at time.Time, via string) (int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for raw, t := range s.tokens {
		if t.AccountID != accountID || t.IsUsed {
			continue
		}
		t.IsUsed = true
		t.UsedAt = &at
		t.RestoredAt = &at
		t.RestoredBy = via
		s.tokens[raw] = t
		n++
	}
	return n, nil
}

func (s *Store) FindValidToken(ctx context.Context, accountID string, now time.Time) (*core.RevocationToken, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *core.RevocationToken
	for raw, t := range s.tokens {
		_ = raw
		if t.AccountID != accountID || !t.Usable(now) {
			continue
		}
		t := t
		if best == nil || t.CreatedAt.After(best.CreatedAt) {
			best = &t
		}
	}
	return best, nil
}

func (s *Store) DeleteExpiredTokens(ctx context.Context, now time.Time) (int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for raw, t := range s.tokens {
		if t.IsUsed || !now.Before(t.ExpiresAt) {
			delete(s.tokens, raw)
			n++
		}
	}
	return n, nil
}

func (s *Store) AppendAudit(ctx context.Context, e *core.AuditEntry) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, *e)
	return nil
}

func (s *Store) ListAudit(ctx context.Context, limit int) ([]core.AuditEntry, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.AuditEntry, len(s.audit))
	copy(out, s.audit)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
