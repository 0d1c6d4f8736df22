package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DeleteOptions carries the optional deletion metadata.
type DeleteOptions struct {
	Reason string
	Policy *RetentionPolicy
}

// DeleteResult reports what the deletion produced.
type DeleteResult struct {
	RecordID  string    `json:"record_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DeleteAccount soft-deletes the target: snapshots it into the ledger, mints
// a revocation token with the grace window, removes the live row and appends
// an audit entry, in that fixed order (transactionally when the store allows).
// A deletion notice with the restoration link is sent best-effort afterwards.
//
// Permission rules: a self actor may only delete itself; admins delete users;
// only a rootadmin deletes admins or other rootadmins; the current
// default-admin identity is never deletable until it transfers the flag.
func (s *Service) DeleteAccount(ctx context.Context, accountID string, actor Actor, opts DeleteOptions) (*DeleteResult, error) {
	acct, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if acct == nil {
		return nil, ErrAccountNotFound
	}
	if acct.DefaultAdmin {
		return nil, ErrDefaultAdminUndeletable
	}
	if err := checkDeletePermission(actor, acct); err != nil {
		return nil, err
	}

	raw, err := NewTokenString()
	if err != nil {
		return nil, err
	}
	now := s.now()
	snap := SnapshotAccount(acct)
	rec := &DeletedAccountRecord{
		ID:        uuid.NewString(),
		AccountID: acct.ID,
		Name:      acct.Username,
		Email:     acct.Email,
		Role:      acct.Role,
		DeletedAt: now,
		DeletedBy: actor,
		Reason:    opts.Reason,
		Policy:    opts.Policy,
		Snapshot:  snap,
	}
	tok := &RevocationToken{
		Token:     raw,
		RecordID:  rec.ID,
		AccountID: acct.ID,
		Email:     acct.Email,
		Username:  acct.Username,
		Role:      acct.Role,
		Snapshot:  snap,
		Reason:    opts.Reason,
		CreatedAt: now,
		ExpiresAt: now.Add(s.opts.GraceWindow),
	}

	err = s.withinTx(ctx, func(st Store) error {
		if err := st.InsertRecord(ctx, rec); err != nil {
			return fmt.Errorf("ledger insert: %w", err)
		}
		if err := st.InsertToken(ctx, tok); err != nil {
			return fmt.Errorf("token insert: %w", err)
		}
		if err := st.DeleteAccount(ctx, acct.ID); err != nil {
			return fmt.Errorf("account delete: %w", err)
		}
		return s.appendAudit(ctx, st, AuditSoftDelete, actor, rec.ID, acct.Email,
			fmt.Sprintf("account %s soft-deleted, reason=%q", acct.ID, opts.Reason))
	})
	if err != nil {
		return nil, err
	}

	s.notifyDeleted(ctx, acct.Email, acct.Username, s.RestoreURL(raw))

	return &DeleteResult{RecordID: rec.ID, Token: raw, ExpiresAt: tok.ExpiresAt}, nil
}

func checkDeletePermission(actor Actor, target *Account) error {
	switch actor.Kind {
	case ActorSelf:
		if actor.ID != target.ID {
			return ErrForbidden
		}
		return nil
	case ActorAdmin:
		if target.Role == RoleUser {
			if actor.Role == RoleAdmin || actor.Role == RoleRootAdmin {
				return nil
			}
			return ErrForbidden
		}
		// admin and rootadmin targets need the root actor
		if actor.Role == RoleRootAdmin {
			return nil
		}
		return ErrForbidden
	default:
		return ErrForbidden
	}
}
