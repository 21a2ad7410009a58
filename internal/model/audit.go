package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateFiling = "CREATE_FILING"
	ActionSubmitFiling = "SUBMIT_FILING"
	ActionAcceptFiling = "ACCEPT_FILING"
	ActionRejectFiling = "REJECT_FILING"

	// TIN application actions
	ActionApplyTin     = "APPLY_TIN"
	ActionAttachTinDoc = "ATTACH_TIN_DOCUMENT"
	ActionProcessTin   = "PROCESS_TIN"
	ActionVerifyTin    = "VERIFY_TIN"
	ActionRejectTin    = "REJECT_TIN"
)

// AuditLog tracks Who, What, and When for every lifecycle transition
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // nil when the tax authority triggered the change
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:jsonb" json:"details"` // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
