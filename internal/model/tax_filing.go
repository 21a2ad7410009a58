package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FilingStatus of a tax return
type FilingStatus string

const (
	FilingDraft     FilingStatus = "draft"
	FilingSubmitted FilingStatus = "submitted"
	FilingAccepted  FilingStatus = "accepted"
	FilingRejected  FilingStatus = "rejected"
)

// ActiveFilingStatuses block another submission for the same (user, tax type, year).
var ActiveFilingStatuses = []FilingStatus{FilingSubmitted, FilingAccepted}

// TaxFiling is one return. A rejected filing is never reopened; re-filing creates a new row.
// A partial unique index on (user_id, tax_type, tax_year) covers the active statuses.
type TaxFiling struct {
	ID                 uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID             uuid.UUID       `gorm:"type:uuid;not null;index:idx_tax_filings_key,priority:1" json:"user_id"`
	TaxType            string          `gorm:"type:varchar(10);not null;index:idx_tax_filings_key,priority:2" json:"tax_type"` // PIT, PAYE, VAT, CIT
	TaxYear            int             `gorm:"not null;index:idx_tax_filings_key,priority:3" json:"tax_year"`
	DeclaredIncome     decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"declared_income"`
	DeclaredDeductions decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"declared_deductions"`
	Amount             decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"amount"`
	Status             FilingStatus    `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	ReferenceNumber    *string         `gorm:"type:varchar(30);uniqueIndex" json:"reference_number"`
	ExternalReference  *string         `gorm:"type:varchar(100)" json:"external_reference"`
	RejectionReason    string          `gorm:"type:text" json:"rejection_reason,omitempty"`
	Declaration        string          `gorm:"type:jsonb" json:"declaration"` // declared figures and where they came from
	FiledAt            *time.Time      `json:"filed_at"`
	ProcessedAt        *time.Time      `json:"processed_at"`
	CreatedAt          time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}
