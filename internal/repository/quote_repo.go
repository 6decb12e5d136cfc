package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type QuoteRepository interface {
	Create(ctx context.Context, quote *model.PriceQuote) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.PriceQuote, error)
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]model.PriceQuote, error)
	Update(ctx context.Context, quote *model.PriceQuote) error
	Delete(ctx context.Context, id uuid.UUID) error
	Select(ctx context.Context, requestID, quoteID uuid.UUID) error
}

type quoteRepository struct {
	db *gorm.DB
}

func NewQuoteRepository(db *gorm.DB) QuoteRepository {
	return &quoteRepository{db: db}
}

func (r *quoteRepository) Create(ctx context.Context, quote *model.PriceQuote) error {
	return GetDB(ctx, r.db).Create(quote).Error
}

func (r *quoteRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.PriceQuote, error) {
	var quote model.PriceQuote
	if err := GetDB(ctx, r.db).First(&quote, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *quoteRepository) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]model.PriceQuote, error) {
	var quotes []model.PriceQuote
	err := GetDB(ctx, r.db).
		Preload("Creator").
		Where("request_id = ?", requestID).
		Order("created_at asc").
		Find(&quotes).Error
	if err != nil {
		return nil, err
	}
	return quotes, nil
}

func (r *quoteRepository) Update(ctx context.Context, quote *model.PriceQuote) error {
	return GetDB(ctx, r.db).Save(quote).Error
}

func (r *quoteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.PriceQuote{}).Error
}

// Select marks exactly one quote as selected, clearing any previous
// selection on the same request. Runs inside the caller's transaction.
func (r *quoteRepository) Select(ctx context.Context, requestID, quoteID uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Model(&model.PriceQuote{}).
		Where("request_id = ? AND is_selected = true", requestID).
		Update("is_selected", false).Error; err != nil {
		return err
	}
	res := db.Model(&model.PriceQuote{}).
		Where("id = ? AND request_id = ?", quoteID, requestID).
		Update("is_selected", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
