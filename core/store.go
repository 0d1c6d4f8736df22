package core

import (
	"context"
	"time"
)

type AccountStore interface {
	// InsertAccount fails with ErrEmailTaken when a live account already
	// holds the same id or email (case-insensitive).
	InsertAccount(ctx context.Context, a *Account) error
	// GetAccount returns nil, nil when the id is unknown.
	GetAccount(ctx context.Context, id string) (*Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)
	DeleteAccount(ctx context.Context, id string) error
}

type DeletionLedger interface {
	InsertRecord(ctx context.Context, rec *DeletedAccountRecord) error
	GetRecord(ctx context.Context, id string) (*DeletedAccountRecord, error)
	// DeleteRecord removes a ledger row after a successful restore; it is
	// the only path that physically deletes from the ledger.
	DeleteRecord(ctx context.Context, id string) error
	// MarkPurged stamps PurgedAt/PurgedBy exactly once. An already-purged
	// row returns ErrAlreadyPurged, an unknown id ErrRecordNotFound.
	MarkPurged(ctx context.Context, id string, at time.Time, by Actor) error
	// ListRecords returns ledger rows oldest first, unpurged only unless
	// includePurged is set.
	ListRecords(ctx context.Context, includePurged bool) ([]DeletedAccountRecord, error)
	// ListUnpurgedDeletedBefore returns unpurged rows deleted at or before
	// cutoff, oldest first, at most limit.
	ListUnpurgedDeletedBefore(ctx context.Context, cutoff time.Time, limit int) ([]DeletedAccountRecord, error)
}

type TokenRegistry interface {
	InsertToken(ctx context.Context, t *RevocationToken) error
	GetToken(ctx context.Context, raw string) (*RevocationToken, error)
	// MarkAllTokensUsed burns every unused token for the account, stamping
	// when and via which channel, and reports how many flipped.
	MarkAllTokensUsed(ctx context.Context, accountID string, at time.Time, via string) (int, error)
	// FindValidToken returns the newest usable token for the account, or
	// nil when none remains.
	FindValidToken(ctx context.Context, accountID string, now time.Time) (*RevocationToken, error)
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int, error)
}

type AuditTrail interface {
	AppendAudit(ctx context.Context, e *AuditEntry) error
	// ListAudit returns entries newest first, at most limit.
	ListAudit(ctx context.Context, limit int) ([]AuditEntry, error)
}

// Store is the full persistence surface of the retention engine.
type Store interface {
	AccountStore
	DeletionLedger
	TokenRegistry
	AuditTrail
}

// Atomic is an optional capability: stores that can group writes into one
// transaction implement it and the engine uses it for multi-row operations.
// fn receives a Store bound to the transaction.
type Atomic interface {
	WithinTx(ctx context.Context, fn func(Store) error) error
}

// KV is a small expiring key-value surface used for reminder dedupe markers.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}
