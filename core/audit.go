package core

import (
	"context"

	"github.com/google/uuid"
)

func (s *Service) appendAudit(ctx context.Context, st Store, action AuditAction, by Actor, recordID, email, details string) error {
	return st.AppendAudit(ctx, &AuditEntry{
		ID:             uuid.NewString(),
		Action:         action,
		PerformedBy:    by,
		TargetRecordID: recordID,
		TargetEmail:    email,
		Details:        details,
		CreatedAt:      s.now(),
	})
}
