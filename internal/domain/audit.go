package domain

import "time"

// Audit actions.
const (
	AuditDeleteInvalidLoan = "loan.invalid.delete"
	AuditPurgeInvalidLoans = "loan.invalid.purge"
	AuditDeleteBook        = "book.delete"
	AuditDeleteMember      = "member.delete"
	AuditRestoreBackup     = "backup.restore"
	AuditResetSettings     = "settings.reset"
)

// AuditEntry records an administrative action that removed or replaced data.
type AuditEntry struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	EntityType string    `json:"entityType"`
	EntityID   string    `json:"entityID"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}
