package repository

import (
	"context"

	"sabitax/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TinRepository interface {
	Create(ctx context.Context, app *model.TinApplication) error
	Update(ctx context.Context, app *model.TinApplication) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.TinApplication, error)
	FindByReference(ctx context.Context, reference string) (*model.TinApplication, error)
	// FindOpen returns the user's submitted or processing application, or gorm.ErrRecordNotFound.
	FindOpen(ctx context.Context, userID uuid.UUID) (*model.TinApplication, error)
	FindVerified(ctx context.Context, userID uuid.UUID) (*model.TinApplication, error)
	FindLatest(ctx context.Context, userID uuid.UUID) (*model.TinApplication, error)
}

type tinRepository struct {
	db *gorm.DB
}

func NewTinRepository(db *gorm.DB) TinRepository {
	return &tinRepository{db: db}
}

func (r *tinRepository) Create(ctx context.Context, app *model.TinApplication) error {
	return GetDB(ctx, r.db).Create(app).Error
}

func (r *tinRepository) Update(ctx context.Context, app *model.TinApplication) error {
	return GetDB(ctx, r.db).Save(app).Error
}

func (r *tinRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.TinApplication, error) {
	return r.first(GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

func (r *tinRepository) FindByReference(ctx context.Context, reference string) (*model.TinApplication, error) {
	return r.first(GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).Where("reference_number = ?", reference))
}

func (r *tinRepository) FindOpen(ctx context.Context, userID uuid.UUID) (*model.TinApplication, error) {
	return r.first(GetDB(ctx, r.db).Where("user_id = ? AND status IN ?", userID, model.OpenTinStatuses))
}

func (r *tinRepository) FindVerified(ctx context.Context, userID uuid.UUID) (*model.TinApplication, error) {
	return r.first(GetDB(ctx, r.db).Where("user_id = ? AND status = ?", userID, model.TinVerified))
}

func (r *tinRepository) FindLatest(ctx context.Context, userID uuid.UUID) (*model.TinApplication, error) {
	return r.first(GetDB(ctx, r.db).Where("user_id = ?", userID).Order("applied_at desc"))
}

func (r *tinRepository) first(query *gorm.DB) (*model.TinApplication, error) {
	var app model.TinApplication
	if err := query.First(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}
