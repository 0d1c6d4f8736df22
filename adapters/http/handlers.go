// Package retentionhttp exposes the lifecycle operations as JSON endpoints.
// The host's auth middleware authenticates callers and forwards the actor via
// X-Actor-ID / X-Actor-Role / X-Actor-Email; the engine trusts those headers.
package retentionhttp

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	core "github.com/casavia/retention/core"
)

// Service wraps the core engine for HTTP consumption.
type Service struct {
	svc *core.Service
}

func NewService(svc *core.Service) *Service { return &Service{svc: svc} }

// APIHandler returns a handler serving all lifecycle routes. It is intended
// to be mounted under the host's mux at any prefix.
func (s *Service) APIHandler() http.Handler {
	if s == nil || s.svc == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			serverErr(w, "retention_not_initialized")
		})
	}

	mux := http.NewServeMux()

	mux.Handle("DELETE /accounts/{id}", http.HandlerFunc(s.handleAccountDELETE))
	mux.Handle("POST /restore-account", http.HandlerFunc(s.handleRestorePOST))

	mux.Handle("POST /admin/restore/{recordID}", http.HandlerFunc(s.handleAdminRestorePOST))
	mux.Handle("POST /admin/purge/{recordID}", http.HandlerFunc(s.handleAdminPurgePOST))

	// Manual sweep triggers mirror the scheduled sweeps exactly.
	mux.Handle("POST /admin/sweeps/auto-purge", http.HandlerFunc(s.handleAutoPurgePOST))
	mux.Handle("POST /admin/sweeps/reminders", http.HandlerFunc(s.handleRemindersPOST))

	mux.Handle("GET /admin/deleted-accounts", http.HandlerFunc(s.handleDeletedAccountsGET))
	mux.Handle("GET /admin/audit", http.HandlerFunc(s.handleAuditGET))

	return mux
}

func decodeJSON(r *http.Request, v any) error {
	defer func() { _, _ = io.Copy(io.Discard, r.Body) }()
	return json.NewDecoder(r.Body).Decode(v)
}

// actorFromRequest reconstructs the actor the auth middleware authenticated.
func actorFromRequest(r *http.Request) core.Actor {
	id := strings.TrimSpace(r.Header.Get("X-Actor-ID"))
	role := core.Role(strings.TrimSpace(r.Header.Get("X-Actor-Role")))
	email := strings.TrimSpace(r.Header.Get("X-Actor-Email"))
	switch role {
	case core.RoleAdmin, core.RoleRootAdmin:
		return core.AdminActor(id, email, role)
	default:
		return core.SelfActor(id)
	}
}

func (s *Service) handleAccountDELETE(w http.ResponseWriter, r *http.Request) {
	targetID := r.PathValue("id")
	if targetID == "" {
		badRequest(w, "invalid_request")
		return
	}
	var req struct {
		Reason string                `json:"reason"`
		Policy *core.RetentionPolicy `json:"policy"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			badRequest(w, "invalid_request")
			return
		}
	}

	actor := actorFromRequest(r)
	if actor.Kind == core.ActorAdmin && actor.ID == targetID {
		// an admin closing their own account acts as the owner, not by role
		actor = core.SelfActor(targetID)
	}

	res, err := s.svc.DeleteAccount(r.Context(), targetID, actor,
		core.DeleteOptions{Reason: req.Reason, Policy: req.Policy})
	if err != nil {
		switch {
		case errors.Is(err, core.ErrAccountNotFound):
			notFound(w, err.Error())
		case errors.Is(err, core.ErrForbidden):
			forbidden(w, err.Error())
		case errors.Is(err, core.ErrDefaultAdminUndeletable):
			conflict(w, err.Error())
		default:
			serverErr(w, "delete_failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "record_id": res.RecordID, "expires_at": res.ExpiresAt})
}

func (s *Service) handleRestorePOST(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Token) == "" {
		badRequest(w, "invalid_request")
		return
	}

	res, err := s.svc.RestoreByToken(r.Context(), strings.TrimSpace(req.Token))
	if err != nil {
		// Deliberately indistinct: do not reveal whether the token ever
		// existed, was consumed, or expired.
		if core.IsTokenInvalid(err) {
			badRequest(w, "invalid_or_expired_token")
			return
		}
		if errors.Is(err, core.ErrEmailTaken) {
			conflict(w, err.Error())
			return
		}
		serverErr(w, "restore_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"account_id": res.Account.ID,
		"email":      res.Account.Email,
	})
}

func (s *Service) handleAdminRestorePOST(w http.ResponseWriter, r *http.Request) {
	recordID := r.PathValue("recordID")
	res, err := s.svc.RestoreByAdmin(r.Context(), recordID, actorFromRequest(r))
	if err != nil {
		switch {
		case errors.Is(err, core.ErrForbidden):
			forbidden(w, err.Error())
		case errors.Is(err, core.ErrRecordNotFound):
			notFound(w, err.Error())
		case errors.Is(err, core.ErrAlreadyPurged):
			conflict(w, err.Error())
		case errors.Is(err, core.ErrEmailTaken):
			conflict(w, err.Error())
		default:
			serverErr(w, "restore_failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":                 true,
		"account_id":         res.Account.ID,
		"tokens_invalidated": res.TokensInvalidated,
	})
}

func (s *Service) handleAdminPurgePOST(w http.ResponseWriter, r *http.Request) {
	recordID := r.PathValue("recordID")
	err := s.svc.PurgeRecord(r.Context(), recordID, actorFromRequest(r))
	if err != nil {
		switch {
		case errors.Is(err, core.ErrForbidden):
			forbidden(w, err.Error())
		case errors.Is(err, core.ErrRecordNotFound):
			notFound(w, err.Error())
		case errors.Is(err, core.ErrAlreadyPurged):
			conflict(w, err.Error())
		default:
			serverErr(w, "purge_failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Service) handleAutoPurgePOST(w http.ResponseWriter, r *http.Request) {
	if !actorFromRequest(r).IsRoot() {
		forbidden(w, "forbidden")
		return
	}
	res, err := s.svc.RunAutoPurge(r.Context())
	if err != nil {
		serverErr(w, "sweep_failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Service) handleRemindersPOST(w http.ResponseWriter, r *http.Request) {
	if !actorFromRequest(r).IsRoot() {
		forbidden(w, "forbidden")
		return
	}
	res, err := s.svc.RunReminderSweep(r.Context())
	if err != nil {
		serverErr(w, "sweep_failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Service) handleDeletedAccountsGET(w http.ResponseWriter, r *http.Request) {
	actor := actorFromRequest(r)
	if !actor.IsAdmin() {
		forbidden(w, "forbidden")
		return
	}
	includePurged := r.URL.Query().Get("include_purged") == "true"
	recs, err := s.svc.ListDeletedRecords(r.Context(), includePurged)
	if err != nil {
		serverErr(w, "list_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": toRecordViews(recs)})
}

func (s *Service) handleAuditGET(w http.ResponseWriter, r *http.Request) {
	actor := actorFromRequest(r)
	if !actor.IsAdmin() {
		forbidden(w, "forbidden")
		return
	}
	entries, err := s.svc.ListAuditEntries(r.Context(), 0)
	if err != nil {
		serverErr(w, "list_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": toAuditViews(entries)})
}
