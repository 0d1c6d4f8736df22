package core

import (
	"crypto/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// SnapshotVersion is bumped whenever AccountSnapshot gains or loses fields,
// so a restore can tell how much of the account it can rebuild verbatim.
const SnapshotVersion = 1

// AccountSnapshot is the JSON payload frozen onto ledger records and tokens
// at deletion time. Optional pointers distinguish "absent in this snapshot"
// from "empty".
type AccountSnapshot struct {
	Version        int           `json:"version"`
	Username       string        `json:"username"`
	Email          string        `json:"email"`
	Role           Role          `json:"role"`
	Status         AccountStatus `json:"status"`
	Approved       bool          `json:"approved"`
	CredentialHash *string       `json:"credential_hash,omitempty"`
	Phone          *string       `json:"phone,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

func SnapshotAccount(a *Account) AccountSnapshot {
	s := AccountSnapshot{
		Version:   SnapshotVersion,
		Username:  a.Username,
		Email:     a.Email,
		Role:      a.Role,
		Status:    a.Status,
		Approved:  a.Approved,
		CreatedAt: a.CreatedAt,
	}
	if a.CredentialHash != "" {
		h := a.CredentialHash
		s.CredentialHash = &h
	}
	if a.Phone != "" {
		p := a.Phone
		s.Phone = &p
	}
	return s
}

// accountFromSnapshot rebuilds a live account from a snapshot. Missing
// credential or contact fields are synthesized rather than left empty, and
// the account always comes back active regardless of its snapshotted status.
func accountFromSnapshot(accountID string, s AccountSnapshot, now time.Time) (*Account, error) {
	a := &Account{
		ID:        accountID,
		Username:  s.Username,
		Email:     s.Email,
		Role:      s.Role,
		Status:    StatusActive,
		Approved:  s.Approved,
		CreatedAt: s.CreatedAt,
		UpdatedAt: now,
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if s.CredentialHash != nil && *s.CredentialHash != "" {
		a.CredentialHash = *s.CredentialHash
	} else {
		hash, err := placeholderCredential()
		if err != nil {
			return nil, err
		}
		a.CredentialHash = hash
		a.CredentialSynthesized = true
	}
	if s.Phone != nil && *s.Phone != "" {
		a.Phone = *s.Phone
	} else {
		a.ContactSynthesized = true
	}
	return a, nil
}

// placeholderCredential produces a hash no password matches, forcing the
// restored owner through a credential reset before signing in.
func placeholderCredential() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword(raw, bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
