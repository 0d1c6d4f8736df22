package core_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/casavia/retention/core"
)

func TestDeleteAccount_Self(t *testing.T) {
	e := newTestEngine(t)
	u := e.seedAccount(t, core.Account{ID: "u1", Username: "jane", Email: "jane@x.com", Phone: "+254700000001", CredentialHash: "$2a$10$hash"})

	res, err := e.svc.DeleteAccount(context.Background(), "u1", core.SelfActor("u1"), core.DeleteOptions{Reason: "leaving"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)
	require.Equal(t, e.clock.Now().Add(30*24*time.Hour), res.ExpiresAt)

	// live row gone
	live, err := e.store.GetAccount(context.Background(), "u1")
	require.NoError(t, err)
	require.Nil(t, live)

	// ledger record carries the snapshot
	rec, err := e.store.GetRecord(context.Background(), res.RecordID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, "u1", rec.AccountID)
	require.Equal(t, core.ActorSelf, rec.DeletedBy.Kind)
	require.Equal(t, "leaving", rec.Reason)
	require.NotNil(t, rec.Snapshot.CredentialHash)
	require.Equal(t, u.CredentialHash, *rec.Snapshot.CredentialHash)
	require.Nil(t, rec.PurgedAt)

	// token minted with the full grace window and a usable state
	tok, err := e.store.GetToken(context.Background(), res.Token)
	require.NoError(t, err)
	require.NotNil(t, tok)
	require.True(t, tok.Usable(e.clock.Now()))
	require.Equal(t, res.RecordID, tok.RecordID)

	// audit + notification
	entries, err := e.svc.ListAuditEntries(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, core.AuditSoftDelete, entries[0].Action)
	require.Equal(t, "jane@x.com", entries[0].TargetEmail)
	require.Equal(t, []string{"jane@x.com"}, e.sink.deletions)
}

func TestDeleteAccount_SelfMustMatchTarget(t *testing.T) {
	e := newTestEngine(t)
	e.seedAccount(t, core.Account{ID: "u1", Username: "jane", Email: "jane@x.com"})

	_, err := e.svc.DeleteAccount(context.Background(), "u1", core.SelfActor("someone-else"), core.DeleteOptions{})
	require.ErrorIs(t, err, core.ErrForbidden)
}

func TestDeleteAccount_RoleRules(t *testing.T) {
	e := newTestEngine(t)
	e.seedAccount(t, core.Account{ID: "u1", Username: "jane", Email: "jane@x.com", Role: core.RoleUser})
	e.seedAccount(t, core.Account{ID: "a1", Username: "mod", Email: "mod@x.com", Role: core.RoleAdmin})

	// admin can delete a user
	_, err := e.svc.DeleteAccount(context.Background(), "u1", adminActor(), core.DeleteOptions{Reason: "spam"})
	require.NoError(t, err)

	// admin cannot delete an admin
	_, err = e.svc.DeleteAccount(context.Background(), "a1", adminActor(), core.DeleteOptions{})
	require.ErrorIs(t, err, core.ErrForbidden)

	// rootadmin can
	_, err = e.svc.DeleteAccount(context.Background(), "a1", rootActor(), core.DeleteOptions{})
	require.NoError(t, err)
}

func TestDeleteAccount_DefaultAdminAlwaysConflicts(t *testing.T) {
	e := newTestEngine(t)
	e.seedAccount(t, core.Account{ID: "root", Username: "root", Email: "root@x.com", Role: core.RoleRootAdmin, DefaultAdmin: true})

	for _, actor := range []core.Actor{rootActor(), adminActor(), core.SelfActor("root")} {
		_, err := e.svc.DeleteAccount(context.Background(), "root", actor, core.DeleteOptions{})
		require.ErrorIs(t, err, core.ErrDefaultAdminUndeletable, "actor %s", actor)
	}
}

func TestDeleteAccount_NotFound(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.svc.DeleteAccount(context.Background(), "ghost", rootActor(), core.DeleteOptions{})
	require.ErrorIs(t, err, core.ErrAccountNotFound)
}

func TestDeleteAccount_NotificationFailureDoesNotRollBack(t *testing.T) {
	e := newTestEngine(t)
	e.seedAccount(t, core.Account{ID: "u1", Username: "jane", Email: "jane@x.com"})
	e.sink.failFor["jane@x.com"] = true

	res, err := e.svc.DeleteAccount(context.Background(), "u1", core.SelfActor("u1"), core.DeleteOptions{})
	require.NoError(t, err)

	live, err := e.store.GetAccount(context.Background(), "u1")
	require.NoError(t, err)
	require.Nil(t, live)
	rec, err := e.store.GetRecord(context.Background(), res.RecordID)
	require.NoError(t, err)
	require.NotNil(t, rec)
}

func TestDeleteAccount_PolicyRecorded(t *testing.T) {
	e := newTestEngine(t)
	e.seedAccount(t, core.Account{ID: "u1", Username: "jane", Email: "jane@x.com"})

	res, err := e.svc.DeleteAccount(context.Background(), "u1", rootActor(), core.DeleteOptions{
		Reason: "fraudulent listings",
		Policy: &core.RetentionPolicy{BanCategory: "fraud", AllowResignup: true, ResignupAfterDays: 365},
	})
	require.NoError(t, err)

	rec, err := e.store.GetRecord(context.Background(), res.RecordID)
	require.NoError(t, err)
	require.NotNil(t, rec.Policy)
	require.Equal(t, "fraud", rec.Policy.BanCategory)
	require.Equal(t, 365, rec.Policy.ResignupAfterDays)
}
