// Package pgstore implements the retention Store on Postgres via pgx.
// Multi-step lifecycle writes run inside one transaction (core.Atomic); the
// unique live-email index doubles as the optimistic guard for racing
// restores.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/casavia/retention/core"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db   querier
	pool *pgxpool.Pool // nil inside a transaction
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{db: pool, pool: pool}
}

// WithinTx implements core.Atomic.
func (s *Store) WithinTx(ctx context.Context, fn func(core.Store) error) error {
	if s.pool == nil {
		// already inside a transaction
		return fn(s)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(&Store{db: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// --- accounts ---

const accountCols = `id, username, email, phone, role, status, default_admin, approved,
	credential_hash, credential_synthesized, contact_synthesized, created_at, updated_at`

func scanAccount(row pgx.Row) (*core.Account, error) {
	var a core.Account
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.Phone, &a.Role, &a.Status, &a.DefaultAdmin,
		&a.Approved, &a.CredentialHash, &a.CredentialSynthesized, &a.ContactSynthesized,
		&a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (*core.Account, error) {
	return scanAccount(s.db.QueryRow(ctx,
		`SELECT `+accountCols+` FROM retention.accounts WHERE id=$1`, id))
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*core.Account, error) {
	return scanAccount(s.db.QueryRow(ctx,
		`SELECT `+accountCols+` FROM retention.accounts WHERE lower(email)=lower($1)`, email))
}

func (s *Store) InsertAccount(ctx context.Context, a *core.Account) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO retention.accounts
			(id, username, email, phone, role, status, default_admin, approved,
			 credential_hash, credential_synthesized, contact_synthesized, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		a.ID, a.Username, a.Email, a.Phone, a.Role, a.Status, a.DefaultAdmin, a.Approved,
		a.CredentialHash, a.CredentialSynthesized, a.ContactSynthesized, a.CreatedAt, a.UpdatedAt)
	if isUniqueViolation(err) {
		return core.ErrEmailTaken
	}
	return err
}

func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM retention.accounts WHERE id=$1`, id)
	return err
}

// --- ledger ---

const recordCols = `id, account_id, name, email, role, deleted_at, deleted_by, reason,
	policy, snapshot, purged_at, purged_by`

func (s *Store) InsertRecord(ctx context.Context, rec *core.DeletedAccountRecord) error {
	snap, err := json.Marshal(rec.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	var policy []byte
	if rec.Policy != nil {
		if policy, err = json.Marshal(rec.Policy); err != nil {
			return fmt.Errorf("marshal policy: %w", err)
		}
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO retention.deleted_accounts
			(id, account_id, name, email, role, deleted_at, deleted_by, reason, policy, snapshot)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		rec.ID, rec.AccountID, rec.Name, rec.Email, rec.Role, rec.DeletedAt,
		rec.DeletedBy.String(), rec.Reason, policy, snap)
	return err
}

func scanRecord(row pgx.Row) (*core.DeletedAccountRecord, error) {
	var (
		rec              core.DeletedAccountRecord
		deletedBy        string
		policy, snapshot []byte
		purgedBy         *string
	)
	err := row.Scan(&rec.ID, &rec.AccountID, &rec.Name, &rec.Email, &rec.Role, &rec.DeletedAt,
		&deletedBy, &rec.Reason, &policy, &snapshot, &rec.PurgedAt, &purgedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.DeletedBy = core.ParseActor(deletedBy)
	if purgedBy != nil {
		a := core.ParseActor(*purgedBy)
		rec.PurgedBy = &a
	}
	if len(policy) > 0 {
		rec.Policy = &core.RetentionPolicy{}
		if err := json.Unmarshal(policy, rec.Policy); err != nil {
			return nil, fmt.Errorf("unmarshal policy: %w", err)
		}
	}
	if err := json.Unmarshal(snapshot, &rec.Snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &rec, nil
}

func (s *Store) GetRecord(ctx context.Context, id string) (*core.DeletedAccountRecord, error) {
	return scanRecord(s.db.QueryRow(ctx,
		`SELECT `+recordCols+` FROM retention.deleted_accounts WHERE id=$1`, id))
}

func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM retention.deleted_accounts WHERE id=$1`, id)
	return err
}

func (s *Store) ListRecords(ctx context.Context, includePurged bool) ([]core.DeletedAccountRecord, error) {
	q := `SELECT ` + recordCols + ` FROM retention.deleted_accounts`
	if !includePurged {
		q += ` WHERE purged_at IS NULL`
	}
	q += ` ORDER BY deleted_at ASC`
	return s.queryRecords(ctx, q)
}

func (s *Store) ListUnpurgedDeletedBefore(ctx context.Context, cutoff time.Time, limit int) ([]core.DeletedAccountRecord, error) {
	if limit <= 0 {
		limit = 500
	}
	return s.queryRecords(ctx, `
		SELECT `+recordCols+`
		FROM retention.deleted_accounts
		WHERE purged_at IS NULL AND deleted_at <= $1
		ORDER BY deleted_at ASC
		LIMIT $2`, cutoff, limit)
}

func (s *Store) queryRecords(ctx context.Context, q string, args ...any) ([]core.DeletedAccountRecord, error) {
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.DeletedAccountRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (s *Store) MarkPurged(ctx context.Context, id string, at time.Time, by core.Actor) error {
	ct, err := s.db.Exec(ctx, `
		UPDATE retention.deleted_accounts
		SET purged_at=$2, purged_by=$3
		WHERE id=$1 AND purged_at IS NULL`, id, at, by.String())
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		var exists bool
		if err := s.db.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM retention.deleted_accounts WHERE id=$1)`, id).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return core.ErrAlreadyPurged
		}
		return core.ErrRecordNotFound
	}
	return nil
}

// --- tokens ---

const tokenCols = `token, record_id, account_id, email, username, role, snapshot, reason,
	created_at, expires_at, is_used, used_at, restored_at, restored_by`

func (s *Store) InsertToken(ctx context.Context, t *core.RevocationToken) error {
	snap, err := json.Marshal(t.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO retention.revocation_tokens
			(token, record_id, account_id, email, username, role, snapshot, reason, created_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		t.Token, t.RecordID, t.AccountID, t.Email, t.Username, t.Role, snap, t.Reason,
		t.CreatedAt, t.ExpiresAt)
	return err
}

func scanToken(row pgx.Row) (*core.RevocationToken, error) {
	var (
		t          core.RevocationToken
		snapshot   []byte
		restoredBy *string
	)
	err := row.Scan(&t.Token, &t.RecordID, &t.AccountID, &t.Email, &t.Username, &t.Role,
		&snapshot, &t.Reason, &t.CreatedAt, &t.ExpiresAt, &t.IsUsed, &t.UsedAt, &t.RestoredAt, &restoredBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if restoredBy != nil {
		t.RestoredBy = *restoredBy
	}
	if err := json.Unmarshal(snapshot, &t.Snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &t, nil
}

func (s *Store) GetToken(ctx context.Context, raw string) (*core.RevocationToken, error) {
	return scanToken(s.db.QueryRow(ctx,
		`SELECT `+tokenCols+` FROM retention.revocation_tokens WHERE token=$1`, raw))
}

func (s *Store) MarkAllTokensUsed(ctx context.Context, accountID string, at time.Time, via string) (int, error) {
	ct, err := s.db.Exec(ctx, `
		UPDATE retention.revocation_tokens
		SET is_used=true, used_at=$2, restored_at=$2, restored_by=$3
		WHERE account_id=$1 AND is_used=false`, accountID, at, via)
	if err != nil {
		return 0, err
	}
	return int(ct.RowsAffected()), nil
}

func (s *Store) FindValidToken(ctx context.Context, accountID string, now time.Time) (*core.RevocationToken, error) {
	return scanToken(s.db.QueryRow(ctx, `
		SELECT `+tokenCols+`
		FROM retention.revocation_tokens
		WHERE account_id=$1 AND is_used=false AND expires_at > $2
		ORDER BY created_at DESC
		LIMIT 1`, accountID, now))
}

func (s *Store) DeleteExpiredTokens(ctx context.Context, now time.Time) (int, error) {
	ct, err := s.db.Exec(ctx, `
		DELETE FROM retention.revocation_tokens
		WHERE is_used=true OR expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return int(ct.RowsAffected()), nil
}

// --- audit ---

func (s *Store) AppendAudit(ctx context.Context, e *core.AuditEntry) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO retention.audit_log
			(id, action, performed_by, target_record_id, target_email, details, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		e.ID, e.Action, e.PerformedBy.String(), e.TargetRecordID, e.TargetEmail, e.Details, e.CreatedAt)
	return err
}

func (s *Store) ListAudit(ctx context.Context, limit int) ([]core.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, action, performed_by, target_record_id, target_email, details, created_at
		FROM retention.audit_log
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.AuditEntry
	for rows.Next() {
		var (
			e  core.AuditEntry
			by string
		)
		if err := rows.Scan(&e.ID, &e.Action, &by, &e.TargetRecordID, &e.TargetEmail, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.PerformedBy = core.ParseActor(by)
		out = append(out, e)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
