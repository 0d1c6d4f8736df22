package core

import (
	"context"
	"fmt"
)

// RestoreResult reports a successful restoration.
type RestoreResult struct {
	Account           *Account `json:"account"`
	RecordID          string   `json:"record_id"`
	TokensInvalidated int      `json:"tokens_invalidated"`
}

// RestoreByToken is the self-service entry point: possession of a valid token
// is the only credential. Failure modes are ErrTokenNotFound, ErrTokenUsed,
// ErrTokenExpired and ErrEmailTaken; the HTTP surface collapses the token
// ones into a single "invalid or expired" answer.
func (s *Service) RestoreByToken(ctx context.Context, raw string) (*RestoreResult, error) {
	tok, err := s.store.GetToken(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	if tok == nil {
		return nil, ErrTokenNotFound
	}
	if tok.IsUsed {
		return nil, ErrTokenUsed
	}
	if !s.now().Before(tok.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	rec, err := s.store.GetRecord(ctx, tok.RecordID)
	if err != nil {
		return nil, fmt.Errorf("load record: %w", err)
	}
	if rec == nil {
		return nil, ErrTokenNotFound
	}
	if rec.Purged() {
		// purging closes the window even when the token outlives it
		return nil, ErrTokenExpired
	}
	return s.restore(ctx, tok.RecordID, tok.AccountID, tok.Snapshot, tok.Email,
		SelfActor(tok.AccountID), RestoredViaToken)
}

// RestoreByAdmin is the manual recovery path; only the root actor may use it.
func (s *Service) RestoreByAdmin(ctx context.Context, recordID string, actor Actor) (*RestoreResult, error) {
	if !actor.IsRoot() {
		return nil, ErrForbidden
	}
	rec, err := s.store.GetRecord(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("load record: %w", err)
	}
	if rec == nil {
		return nil, ErrRecordNotFound
	}
	if rec.Purged() {
		return nil, ErrAlreadyPurged
	}
	return s.restore(ctx, rec.ID, rec.AccountID, rec.Snapshot, rec.Email, actor, RestoredViaAdmin)
}

// restore is the shared contract of both entry points: recreate the account
// under its original id, invalidate every outstanding token for it, drop the
// ledger record and append the audit entry. The account insert goes first so
// a racing restore loses on the unique id/email constraint with ErrEmailTaken.
func (s *Service) restore(ctx context.Context, recordID, accountID string, snap AccountSnapshot, email string, actor Actor, via string) (*RestoreResult, error) {
	if live, err := s.store.GetAccountByEmail(ctx, snap.Email); err != nil {
		return nil, fmt.Errorf("collision check: %w", err)
	} else if live != nil {
		return nil, ErrEmailTaken
	}

	now := s.now()
	acct, err := accountFromSnapshot(accountID, snap, now)
	if err != nil {
		return nil, err
	}

	var invalidated int
	err = s.withinTx(ctx, func(st Store) error {
		if err := st.InsertAccount(ctx, acct); err != nil {
			return err
		}
		n, err := st.MarkAllTokensUsed(ctx, accountID, now, via)
		if err != nil {
			return fmt.Errorf("invalidate tokens: %w", err)
		}
		invalidated = n
		if err := st.DeleteRecord(ctx, recordID); err != nil {
			return fmt.Errorf("ledger remove: %w", err)
		}
		return s.appendAudit(ctx, st, AuditRestore, actor, recordID, email,
			fmt.Sprintf("account %s restored %s, %d token(s) invalidated", accountID, via, n))
	})
	if err != nil {
		return nil, err
	}

	s.notifyRestored(ctx, acct.Email, acct.Username)

	return &RestoreResult{Account: acct, RecordID: recordID, TokensInvalidated: invalidated}, nil
}
