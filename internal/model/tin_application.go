package model

import (
	"time"

	"github.com/google/uuid"
)

// TinStatus of a TIN application
type TinStatus string

const (
	TinSubmitted  TinStatus = "submitted"
	TinProcessing TinStatus = "processing"
	TinVerified   TinStatus = "verified"
	TinRejected   TinStatus = "rejected"
)

// OpenTinStatuses are the non-terminal statuses; a user holds at most one such application.
var OpenTinStatuses = []TinStatus{TinSubmitted, TinProcessing}

// TinApplication is a request to the tax authority for a Tax Identification Number.
// The raw NIN is never stored: only a keyed fingerprint and its last digits.
type TinApplication struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	NINFingerprint  string     `gorm:"column:nin_fingerprint;type:varchar(64);not null;index" json:"-"`
	NINLastDigits   string     `gorm:"column:nin_last_digits;type:varchar(4);not null" json:"nin_last_digits"`
	DateOfBirth     time.Time  `gorm:"type:date;not null" json:"date_of_birth"`
	IDDocumentRef   string     `gorm:"column:id_document_ref;type:text;not null" json:"id_document_ref"`
	UtilityBillRef  string     `gorm:"type:text" json:"utility_bill_ref,omitempty"`
	Status          TinStatus  `gorm:"type:varchar(20);not null;default:'submitted';index" json:"status"`
	TIN             *string    `gorm:"column:tin;type:varchar(20)" json:"tin"`
	ReferenceNumber string     `gorm:"type:varchar(30);uniqueIndex;not null" json:"reference_number"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason,omitempty"`
	AppliedAt       time.Time  `gorm:"not null" json:"applied_at"`
	ProcessedAt     *time.Time `json:"processed_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
