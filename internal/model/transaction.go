package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is a ledger row owned by the transactions service; this module only reads it.
type Transaction struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_transactions_user_date,priority:1" json:"user_id"`
	Type        string          `gorm:"type:varchar(10);not null" json:"type"` // income, expense
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Category    string          `gorm:"type:varchar(100)" json:"category"`
	Description string          `gorm:"type:text" json:"description"`
	Date        time.Time       `gorm:"type:date;not null;index:idx_transactions_user_date,priority:2" json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
