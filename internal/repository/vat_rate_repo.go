package repository

import (
	"context"
	"time"

	"billing/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VATRateRepository interface {
	Create(ctx context.Context, rate *model.VATRate) error
	Update(ctx context.Context, rate *model.VATRate) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.VATRate, error)
	List(ctx context.Context, page, limit int) ([]model.VATRate, int64, error)
	FindActiveBySupplyType(ctx context.Context, supplyType string, targetDate time.Time) (*model.VATRate, error)
	FindOverlapping(ctx context.Context, supplyType string, from time.Time, to *time.Time, excludeID *uuid.UUID) (int64, error)
}

type vatRateRepository struct {
	db *gorm.DB
}

func NewVATRateRepository(db *gorm.DB) VATRateRepository {
	return &vatRateRepository{db: db}
}

func (r *vatRateRepository) Create(ctx context.Context, rate *model.VATRate) error {
	return GetDB(ctx, r.db).Create(rate).Error
}

func (r *vatRateRepository) Update(ctx context.Context, rate *model.VATRate) error {
	return GetDB(ctx, r.db).Save(rate).Error
}

func (r *vatRateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.VATRate{}).Error
}

func (r *vatRateRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.VATRate, error) {
	var rate model.VATRate
	if err := GetDB(ctx, r.db).First(&rate, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *vatRateRepository) List(ctx context.Context, page, limit int) ([]model.VATRate, int64, error) {
	var rates []model.VATRate
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.VATRate{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("effective_from desc").Offset(offset).Limit(limit).Find(&rates).Error; err != nil {
		return nil, 0, err
	}

	return rates, total, nil
}

func (r *vatRateRepository) FindActiveBySupplyType(ctx context.Context, supplyType string, targetDate time.Time) (*model.VATRate, error) {
	var rate model.VATRate
	if err := GetDB(ctx, r.db).
		Where("supply_type = ? AND effective_from <= ? AND (effective_to IS NULL OR effective_to >= ?)", supplyType, targetDate, targetDate).
		Order("effective_from DESC").
		First(&rate).Error; err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *vatRateRepository) FindOverlapping(ctx context.Context, supplyType string, from time.Time, to *time.Time, excludeID *uuid.UUID) (int64, error) {
	var count int64
	query := GetDB(ctx, r.db).Model(&model.VATRate{}).Where("supply_type = ?", supplyType)

	if excludeID != nil {
		query = query.Where("id != ?", *excludeID)
	}

	if to != nil {
		// New rate has end date: overlap if existing.from <= new.to AND (existing.to IS NULL OR existing.to >= new.from)
		query = query.Where("effective_from <= ? AND (effective_to IS NULL OR effective_to >= ?)", *to, from)
	} else {
		// New rate has no end date: overlap if (existing.to IS NULL OR existing.to >= new.from)
		query = query.Where("(effective_to IS NULL OR effective_to >= ?)", from)
	}

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
