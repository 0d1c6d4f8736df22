package retentionhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	core "github.com/casavia/retention/core"
	memorystore "github.com/casavia/retention/storage/memory"
)

func newTestService(t *testing.T) (*Service, *memorystore.Store) {
	t.Helper()
	store := memorystore.NewStore()
	svc := core.NewService(store, core.Options{ClientOrigin: "https://casavia.example"})
	return NewService(svc), store
}

func seedAccount(t *testing.T, store *memorystore.Store, id, email string, role core.Role) {
	t.Helper()
	err := store.InsertAccount(context.Background(), &core.Account{
		ID: id, Username: id, Email: email, Role: role,
		Status: core.StatusActive, CreatedAt: time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)
}

func asRoot(r *http.Request) *http.Request {
	r.Header.Set("X-Actor-ID", "root-1")
	r.Header.Set("X-Actor-Role", "rootadmin")
	r.Header.Set("X-Actor-Email", "root@casavia.example")
	return r
}

func TestAccountDELETE_SelfAndForbidden(t *testing.T) {
	s, store := newTestService(t)
	seedAccount(t, store, "u1", "jane@x.com", core.RoleUser)
	h := s.APIHandler()

	// wrong self actor
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodDelete, "/accounts/u1", nil)
	r.Header.Set("X-Actor-ID", "intruder")
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusForbidden, w.Code)

	// owner succeeds
	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodDelete, "/accounts/u1", strings.NewReader(`{"reason":"leaving"}`))
	r.Header.Set("X-Actor-ID", "u1")
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"record_id"`)

	// repeat delete: account is gone
	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodDelete, "/accounts/u1", nil)
	r.Header.Set("X-Actor-ID", "u1")
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAccountDELETE_AdminDeletesOwnAccount(t *testing.T) {
	s, store := newTestService(t)
	seedAccount(t, store, "a1", "mod@x.com", core.RoleAdmin)
	h := s.APIHandler()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodDelete, "/accounts/a1", nil)
	r.Header.Set("X-Actor-ID", "a1")
	r.Header.Set("X-Actor-Role", "admin")
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	live, err := store.GetAccount(context.Background(), "a1")
	require.NoError(t, err)
	require.Nil(t, live)
}

func TestAccountDELETE_DefaultAdminConflict(t *testing.T) {
	s, store := newTestService(t)
	err := store.InsertAccount(context.Background(), &core.Account{
		ID: "root-acc", Username: "root", Email: "root@x.com",
		Role: core.RoleRootAdmin, Status: core.StatusActive, DefaultAdmin: true,
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r := asRoot(httptest.NewRequest(http.MethodDelete, "/accounts/root-acc", nil))
	s.APIHandler().ServeHTTP(w, r)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Contains(t, w.Body.String(), "default_admin_undeletable")
}

func TestRestorePOST_IndistinctTokenFailures(t *testing.T) {
	s, _ := newTestService(t)
	h := s.APIHandler()

	// unknown token and (after consuming) used token answer identically
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/restore-account", strings.NewReader(`{"token":"no-such"}`))
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "invalid_or_expired_token")

	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodPost, "/restore-account", strings.NewReader(`{}`))
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "invalid_request")
}

func TestRestorePOST_HappyPath(t *testing.T) {
	s, store := newTestService(t)
	seedAccount(t, store, "u1", "jane@x.com", core.RoleUser)
	h := s.APIHandler()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodDelete, "/accounts/u1", nil)
	r.Header.Set("X-Actor-ID", "u1")
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	tok, err := store.FindValidToken(context.Background(), "u1", time.Now())
	require.NoError(t, err)
	require.NotNil(t, tok)

	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodPost, "/restore-account", strings.NewReader(`{"token":"`+tok.Token+`"}`))
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		AccountID string `json:"account_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "u1", body.AccountID)

	// replay is indistinct again
	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodPost, "/restore-account", strings.NewReader(`{"token":"`+tok.Token+`"}`))
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "invalid_or_expired_token")
}

func TestAdminRestoreAndPurge(t *testing.T) {
	s, store := newTestService(t)
	seedAccount(t, store, "u1", "jane@x.com", core.RoleUser)
	h := s.APIHandler()

	w := httptest.NewRecorder()
	r := asRoot(httptest.NewRequest(http.MethodDelete, "/accounts/u1", nil))
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	var del struct {
		RecordID string `json:"record_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &del))

	// plain admin cannot purge
	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodPost, "/admin/purge/"+del.RecordID, nil)
	r.Header.Set("X-Actor-ID", "a1")
	r.Header.Set("X-Actor-Role", "admin")
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusForbidden, w.Code)

	// root restores
	w = httptest.NewRecorder()
	r = asRoot(httptest.NewRequest(http.MethodPost, "/admin/restore/"+del.RecordID, nil))
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"tokens_invalidated":1`)

	// record is gone, so purge now 404s
	w = httptest.NewRecorder()
	r = asRoot(httptest.NewRequest(http.MethodPost, "/admin/purge/"+del.RecordID, nil))
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminRestorePOST_PurgedRecordConflicts(t *testing.T) {
	s, store := newTestService(t)
	seedAccount(t, store, "u1", "jane@x.com", core.RoleUser)
	h := s.APIHandler()

	w := httptest.NewRecorder()
	r := asRoot(httptest.NewRequest(http.MethodDelete, "/accounts/u1", nil))
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	var del struct {
		RecordID string `json:"record_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &del))

	w = httptest.NewRecorder()
	r = asRoot(httptest.NewRequest(http.MethodPost, "/admin/purge/"+del.RecordID, nil))
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	// purged records cannot come back, and the row stays put
	w = httptest.NewRecorder()
	r = asRoot(httptest.NewRequest(http.MethodPost, "/admin/restore/"+del.RecordID, nil))
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Contains(t, w.Body.String(), "record_already_purged")

	rec, err := store.GetRecord(context.Background(), del.RecordID)
	require.NoError(t, err)
	require.NotNil(t, rec)
}

func TestManualSweepTriggers(t *testing.T) {
	s, _ := newTestService(t)
	h := s.APIHandler()

	// non-root rejected
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/admin/sweeps/auto-purge", nil)
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusForbidden, w.Code)

	for _, path := range []string{"/admin/sweeps/auto-purge", "/admin/sweeps/reminders"} {
		w = httptest.NewRecorder()
		r = asRoot(httptest.NewRequest(http.MethodPost, path, nil))
		h.ServeHTTP(w, r)
		require.Equal(t, http.StatusOK, w.Code, path)

		var res core.SweepResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		require.Zero(t, res.Scanned)
	}
}

func TestAdminListings(t *testing.T) {
	s, store := newTestService(t)
	seedAccount(t, store, "u1", "jane@x.com", core.RoleUser)
	h := s.APIHandler()

	w := httptest.NewRecorder()
	r := asRoot(httptest.NewRequest(http.MethodDelete, "/accounts/u1", nil))
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	// non-admin cannot read the ledger
	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/admin/deleted-accounts", nil)
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	r = asRoot(httptest.NewRequest(http.MethodGet, "/admin/deleted-accounts", nil))
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"jane@x.com"`)
	// snapshots (credential material) never leave the server
	require.NotContains(t, w.Body.String(), "snapshot")

	w = httptest.NewRecorder()
	r = asRoot(httptest.NewRequest(http.MethodGet, "/admin/audit", nil))
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"soft_delete"`)
	require.Contains(t, w.Body.String(), `"admin:root-1"`)
}
