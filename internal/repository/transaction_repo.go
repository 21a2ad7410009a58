package repository

import (
	"context"
	"fmt"

	"sabitax/internal/ledger"
	"sabitax/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransactionRepository reads the ledger maintained by the transactions service.
type TransactionRepository interface {
	ledger.Reader
}

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) ListTransactions(ctx context.Context, userID uuid.UUID, period ledger.Period) ([]ledger.Entry, error) {
	var rows []model.Transaction
	err := GetDB(ctx, r.db).
		Where("user_id = ? AND date >= ? AND date < ?", userID, period.Start(), period.End()).
		Order("date asc, created_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for %s: %w", period, err)
	}

	entries := make([]ledger.Entry, 0, len(rows))
	for _, t := range rows {
		entries = append(entries, ledger.Entry{
			Amount:   t.Amount,
			Type:     t.Type,
			Category: t.Category,
			Date:     t.Date,
		})
	}
	return entries, nil
}
