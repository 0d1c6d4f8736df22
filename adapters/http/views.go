package retentionhttp

import (
	"time"

	core "github.com/casavia/retention/core"
)

// recordView is the admin-panel shape of a ledger row. The snapshot itself is
// withheld; it contains credential material.
type recordView struct {
	ID        string                `json:"id"`
	AccountID string                `json:"account_id"`
	Name      string                `json:"name"`
	Email     string                `json:"email"`
	Role      core.Role             `json:"role"`
	DeletedAt time.Time             `json:"deleted_at"`
	DeletedBy string                `json:"deleted_by"`
	Reason    string                `json:"reason,omitempty"`
	Policy    *core.RetentionPolicy `json:"policy,omitempty"`
	PurgedAt  *time.Time            `json:"purged_at,omitempty"`
	PurgedBy  string                `json:"purged_by,omitempty"`
}

func toRecordViews(recs []core.DeletedAccountRecord) []recordView {
	out := make([]recordView, 0, len(recs))
	for _, r := range recs {
		v := recordView{
			ID:        r.ID,
			AccountID: r.AccountID,
			Name:      r.Name,
			Email:     r.Email,
			Role:      r.Role,
			DeletedAt: r.DeletedAt,
			DeletedBy: r.DeletedBy.String(),
			Reason:    r.Reason,
			Policy:    r.Policy,
			PurgedAt:  r.PurgedAt,
		}
		if r.PurgedBy != nil {
			v.PurgedBy = r.PurgedBy.String()
		}
		out = append(out, v)
	}
	return out
}

type auditView struct {
	ID             string           `json:"id"`
	Action         core.AuditAction `json:"action"`
	PerformedBy    string           `json:"performed_by"`
	TargetRecordID string           `json:"target_record_id"`
	TargetEmail    string           `json:"target_email"`
	Details        string           `json:"details,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

func toAuditViews(entries []core.AuditEntry) []auditView {
	out := make([]auditView, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditView{
			ID:             e.ID,
			Action:         e.Action,
			PerformedBy:    e.PerformedBy.String(),
			TargetRecordID: e.TargetRecordID,
			TargetEmail:    e.TargetEmail,
			Details:        e.Details,
			CreatedAt:      e.CreatedAt,
		})
	}
	return out
}
