package repository

import (
	"context"
	"time"

	"billing/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ExpenseListFilter narrows the expense list query.
type ExpenseListFilter struct {
	Category string
	From     *time.Time
	To       *time.Time
	Page     int
	Limit    int
}

type ExpenseRepository interface {
	Create(ctx context.Context, expense *model.Expense) error
	Update(ctx context.Context, expense *model.Expense) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Expense, error)
	List(ctx context.Context, filter ExpenseListFilter) ([]model.Expense, int64, error)
	SumRecoverableVAT(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
	SumByCategory(ctx context.Context, from, to time.Time) (map[string]decimal.Decimal, error)
}

type expenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) ExpenseRepository {
	return &expenseRepository{db: db}
}

func (r *expenseRepository) Create(ctx context.Context, expense *model.Expense) error {
	return GetDB(ctx, r.db).Create(expense).Error
}

func (r *expenseRepository) Update(ctx context.Context, expense *model.Expense) error {
	return GetDB(ctx, r.db).Save(expense).Error
}

func (r *expenseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Expense{}).Error
}

func (r *expenseRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Expense, error) {
	var expense model.Expense
	if err := GetDB(ctx, r.db).First(&expense, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &expense, nil
}

func (r *expenseRepository) List(ctx context.Context, filter ExpenseListFilter) ([]model.Expense, int64, error) {
	var expenses []model.Expense
	var total int64

	db := GetDB(ctx, r.db)
	apply := func(q *gorm.DB) *gorm.DB {
		if filter.Category != "" {
			q = q.Where("category = ?", filter.Category)
		}
		if filter.From != nil {
			q = q.Where("expense_date >= ?", *filter.From)
		}
		if filter.To != nil {
			q = q.Where("expense_date <= ?", *filter.To)
		}
		return q
	}

	if err := apply(db.Model(&model.Expense{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := apply(db.Model(&model.Expense{})).
		Order("expense_date desc").Offset(offset).Limit(filter.Limit).Find(&expenses).Error; err != nil {
		return nil, 0, err
	}

	return expenses, total, nil
}

// SumRecoverableVAT totals input VAT backed by a supplier tax invoice, in AED.
func (r *expenseRepository) SumRecoverableVAT(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	err := GetDB(ctx, r.db).Model(&model.Expense{}).
		Select("COALESCE(SUM(vat_amount), 0) as total").
		Where("is_vat_recoverable = true AND expense_date >= ? AND expense_date <= ?", from, to).
		Scan(&result).Error
	if err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

func (r *expenseRepository) SumByCategory(ctx context.Context, from, to time.Time) (map[string]decimal.Decimal, error) {
	var rows []struct {
		Category string
		Total    decimal.Decimal
	}
	err := GetDB(ctx, r.db).Model(&model.Expense{}).
		Select("category, COALESCE(SUM(converted_amount_aed), 0) as total").
		Where("expense_date >= ? AND expense_date <= ?", from, to).
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		totals[row.Category] = row.Total
	}
	return totals, nil
}
