package core

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAdmin     Role = "admin"
	RoleRootAdmin Role = "rootadmin"
)

type AccountStatus string

const (
	StatusActive    AccountStatus = "active"
	StatusSuspended AccountStatus = "suspended"
)

// Account is the live marketplace identity. Deleting one moves its state
// into a DeletedAccountRecord; the live row itself goes away.
type Account struct {
	ID             string
	Username       string
	Email          string
	Phone          string
	Role           Role
	Status         AccountStatus
	DefaultAdmin   bool
	Approved       bool
	CredentialHash string
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// Set when a restore had to synthesize the field because the snapshot
	// omitted it.
	CredentialSynthesized bool
	ContactSynthesized    bool
}

// RetentionPolicy captures the ban decision attached to an admin deletion.
// It is frozen onto the ledger record at delete time, so a later policy
// change never alters what was decided for this account.
type RetentionPolicy struct {
	BanCategory       string `json:"ban_category,omitempty"`
	AllowResignup     bool   `json:"allow_resignup"`
	ResignupAfterDays int    `json:"resignup_after_days,omitempty"`
}

const (
	RestoredViaToken = "token"
	RestoredViaAdmin = "admin"
)

// DeletedAccountRecord is the ledger entry for a soft-deleted account. Rows
// are never physically removed by purging: MarkPurged stamps PurgedAt and
// PurgedBy exactly once and scrubs nothing else. Only a successful restore
// deletes a row.
type DeletedAccountRecord struct {
	ID        string
	AccountID string
	Name      string
	Email     string
	Role      Role
	DeletedAt time.Time
	DeletedBy Actor
	Reason    string
	Policy    *RetentionPolicy
	Snapshot  AccountSnapshot
	PurgedAt  *time.Time
	PurgedBy  *Actor
}

func (r DeletedAccountRecord) Purged() bool { return r.PurgedAt != nil }

// RevocationToken lets the account owner undo a deletion during the grace
// window. Single use; restoring through any token burns every sibling for
// the same account.
type RevocationToken struct {
	Token      string
	RecordID   string
	AccountID  string
	Email      string
	Username   string
	Role       Role
	Snapshot   AccountSnapshot
	Reason     string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	IsUsed     bool
	UsedAt     *time.Time
	RestoredAt *time.Time
	RestoredBy string
}

func (t RevocationToken) Usable(now time.Time) bool {
	return !t.IsUsed && now.Before(t.ExpiresAt)
}

type AuditAction string

const (
	AuditSoftDelete AuditAction = "soft_delete"
	AuditRestore    AuditAction = "restore"
	AuditPurge      AuditAction = "purge"
)

// AuditEntry is append-only; nothing in the engine updates or deletes one.
type AuditEntry struct {
	ID             string
	Action         AuditAction
	PerformedBy    Actor
	TargetRecordID string
	TargetEmail    string
	Details        string
	CreatedAt      time.Time
}
