package repository

import (
	"context"

	"billing/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TemplateRepository interface {
	Create(ctx context.Context, settings *model.TemplateSettings) error
	Update(ctx context.Context, settings *model.TemplateSettings) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.TemplateSettings, error)
	FindDefault(ctx context.Context) (*model.TemplateSettings, error)
	List(ctx context.Context) ([]model.TemplateSettings, error)
	ClearDefault(ctx context.Context) error
}

type templateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &templateRepository{db: db}
}

func (r *templateRepository) Create(ctx context.Context, settings *model.TemplateSettings) error {
	return GetDB(ctx, r.db).Create(settings).Error
}

func (r *templateRepository) Update(ctx context.Context, settings *model.TemplateSettings) error {
	return GetDB(ctx, r.db).Save(settings).Error
}

func (r *templateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.TemplateSettings{}).Error
}

func (r *templateRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.TemplateSettings, error) {
	var settings model.TemplateSettings
	if err := GetDB(ctx, r.db).First(&settings, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *templateRepository) FindDefault(ctx context.Context) (*model.TemplateSettings, error) {
	var settings model.TemplateSettings
	if err := GetDB(ctx, r.db).Where("is_default = true").First(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *templateRepository) List(ctx context.Context) ([]model.TemplateSettings, error) {
	var settings []model.TemplateSettings
	if err := GetDB(ctx, r.db).Order("name asc").Find(&settings).Error; err != nil {
		return nil, err
	}
	return settings, nil
}

// ClearDefault unsets the default flag on every template, ahead of marking a
// new one.
func (r *templateRepository) ClearDefault(ctx context.Context) error {
	return GetDB(ctx, r.db).Model(&model.TemplateSettings{}).Where("is_default = true").Update("is_default", false).Error
}
