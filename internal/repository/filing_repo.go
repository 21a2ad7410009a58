package repository

import (
	"context"

	"sabitax/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FilingFilter narrows List. Zero values mean "any".
type FilingFilter struct {
	UserID  uuid.UUID
	TaxType string
	TaxYear int
	Status  model.FilingStatus
	Offset  int
	Limit   int
}

type FilingRepository interface {
	Create(ctx context.Context, filing *model.TaxFiling) error
	Update(ctx context.Context, filing *model.TaxFiling) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.TaxFiling, error)
	FindByReference(ctx context.Context, reference string) (*model.TaxFiling, error)
	// FindActive returns the submitted or accepted filing for the key, or gorm.ErrRecordNotFound.
	FindActive(ctx context.Context, userID uuid.UUID, taxType string, year int) (*model.TaxFiling, error)
	List(ctx context.Context, filter FilingFilter) ([]model.TaxFiling, int64, error)
	// AcceptedTypes lists tax types with an accepted filing for the year.
	AcceptedTypes(ctx context.Context, userID uuid.UUID, year int) ([]string, error)
}

type filingRepository struct {
	db *gorm.DB
}

func NewFilingRepository(db *gorm.DB) FilingRepository {
	return &filingRepository{db: db}
}

func (r *filingRepository) Create(ctx context.Context, filing *model.TaxFiling) error {
	return GetDB(ctx, r.db).Create(filing).Error
}

func (r *filingRepository) Update(ctx context.Context, filing *model.TaxFiling) error {
	return GetDB(ctx, r.db).Save(filing).Error
}

func (r *filingRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.TaxFiling, error) {
	var filing model.TaxFiling
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).First(&filing, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &filing, nil
}

func (r *filingRepository) FindByReference(ctx context.Context, reference string) (*model.TaxFiling, error) {
	var filing model.TaxFiling
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).First(&filing, "reference_number = ?", reference).Error; err != nil {
		return nil, err
	}
	return &filing, nil
}

func (r *filingRepository) FindActive(ctx context.Context, userID uuid.UUID, taxType string, year int) (*model.TaxFiling, error) {
	var filing model.TaxFiling
	err := GetDB(ctx, r.db).
		Where("user_id = ? AND tax_type = ? AND tax_year = ? AND status IN ?", userID, taxType, year, model.ActiveFilingStatuses).
		First(&filing).Error
	if err != nil {
		return nil, err
	}
	return &filing, nil
}

func (r *filingRepository) List(ctx context.Context, filter FilingFilter) ([]model.TaxFiling, int64, error) {
	var filings []model.TaxFiling
	var total int64

	query := GetDB(ctx, r.db).Model(&model.TaxFiling{}).Where("user_id = ?", filter.UserID)
	if filter.TaxType != "" {
		query = query.Where("tax_type = ?", filter.TaxType)
	}
	if filter.TaxYear != 0 {
		query = query.Where("tax_year = ?", filter.TaxYear)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("created_at desc").Offset(filter.Offset).Limit(filter.Limit).Find(&filings).Error; err != nil {
		return nil, 0, err
	}

	return filings, total, nil
}

func (r *filingRepository) AcceptedTypes(ctx context.Context, userID uuid.UUID, year int) ([]string, error) {
	var types []string
	err := GetDB(ctx, r.db).Model(&model.TaxFiling{}).
		Where("user_id = ? AND tax_year = ? AND status = ?", userID, year, model.FilingAccepted).
		Distinct().
		Pluck("tax_type", &types).Error
	return types, err
}
