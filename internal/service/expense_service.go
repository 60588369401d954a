package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"billing/internal/model"
	"billing/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type SaveExpenseRequest struct {
	Category string `json:"category" binding:"required,oneof=RENT SALARIES TRANSPORT UTILITIES OTHER"`

	Currency       string `json:"currency" binding:"required"`
	ExchangeRate   string `json:"exchange_rate"` // decimal string, defaults to 1 for AED
	OriginalAmount string `json:"original_amount" binding:"required"`

	DocumentType string `json:"document_type" binding:"required,oneof=TAX_INVOICE RECEIPT NONE"`
	VATRate      string `json:"vat_rate"` // percentage, applies when a tax invoice backs the expense
	SupplierName string `json:"supplier_name"`
	SupplierTRN  string `json:"supplier_trn"`
	DocumentURL  string `json:"document_url"`

	ExpenseDate string `json:"expense_date" binding:"required"` // YYYY-MM-DD
	Description string `json:"description"`
}

type ExpenseResponse struct {
	ID                 string  `json:"id"`
	Category           string  `json:"category"`
	Currency           string  `json:"currency"`
	ExchangeRate       string  `json:"exchange_rate"`
	OriginalAmount     string  `json:"original_amount"`
	ConvertedAmountAED string  `json:"converted_amount_aed"`
	VATRate            string  `json:"vat_rate"`
	VATAmount          string  `json:"vat_amount"`
	DocumentType       string  `json:"document_type"`
	SupplierName       string  `json:"supplier_name"`
	SupplierTRN        *string `json:"supplier_trn"`
	DocumentURL        string  `json:"document_url"`
	IsVATRecoverable   bool    `json:"is_vat_recoverable"`
	ExpenseDate        string  `json:"expense_date"`
	Description        string  `json:"description"`
	CreatedAt          string  `json:"created_at"`
}

type ExpenseFilter struct {
	Category string
	From     string // YYYY-MM-DD
	To       string
	Page     int
	Limit    int
}

type ExpenseSummaryResponse struct {
	From           string            `json:"from"`
	To             string            `json:"to"`
	TotalAED       string            `json:"total_aed"`
	RecoverableVAT string            `json:"recoverable_vat"`
	ByCategory     map[string]string `json:"by_category"`
}

// --- Interface ---

type ExpenseService interface {
	CreateExpense(ctx context.Context, req SaveExpenseRequest, userID string) (ExpenseResponse, error)
	UpdateExpense(ctx context.Context, id string, req SaveExpenseRequest, userID string) (ExpenseResponse, error)
	DeleteExpense(ctx context.Context, id string, userID string) error
	GetExpenses(ctx context.Context, filter ExpenseFilter) ([]ExpenseResponse, int64, error)
	GetExpenseSummary(ctx context.Context, from, to string) (ExpenseSummaryResponse, error)
}

type expenseService struct {
	expenseRepo repository.ExpenseRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
}

func NewExpenseService(
	expenseRepo repository.ExpenseRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) ExpenseService {
	return &expenseService{
		expenseRepo: expenseRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
	}
}

// --- Implementation ---

func (s *expenseService) CreateExpense(ctx context.Context, req SaveExpenseRequest, userID string) (ExpenseResponse, error) {
	expense, err := buildExpense(req, nil)
	if err != nil {
		return ExpenseResponse{}, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.expenseRepo.Create(txCtx, expense); createErr != nil {
			return fmt.Errorf("failed to create expense: %w", createErr)
		}
		s.writeAudit(txCtx, userID, model.ActionCreateExpense, expense, req)
		return nil
	})
	if err != nil {
		return ExpenseResponse{}, err
	}

	return toExpenseResponse(*expense), nil
}

func (s *expenseService) UpdateExpense(ctx context.Context, id string, req SaveExpenseRequest, userID string) (ExpenseResponse, error) {
	expenseID, err := uuid.Parse(id)
	if err != nil {
		return ExpenseResponse{}, fmt.Errorf("invalid expense id: %w", err)
	}

	existing, err := s.expenseRepo.FindByID(ctx, expenseID)
	if err != nil {
		return ExpenseResponse{}, fmt.Errorf("expense not found: %w", err)
	}

	expense, err := buildExpense(req, existing)
	if err != nil {
		return ExpenseResponse{}, err
	}

	if err := s.expenseRepo.Update(ctx, expense); err != nil {
		return ExpenseResponse{}, fmt.Errorf("failed to update expense: %w", err)
	}

	return toExpenseResponse(*expense), nil
}

func (s *expenseService) DeleteExpense(ctx context.Context, id string, userID string) error {
	expenseID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid expense id: %w", err)
	}
	return s.expenseRepo.Delete(ctx, expenseID)
}

func (s *expenseService) GetExpenses(ctx context.Context, filter ExpenseFilter) ([]ExpenseResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	repoFilter := repository.ExpenseListFilter{
		Category: filter.Category,
		Page:     filter.Page,
		Limit:    filter.Limit,
	}
	if filter.From != "" {
		from, err := time.Parse("2006-01-02", filter.From)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid from date: %w", err)
		}
		repoFilter.From = &from
	}
	if filter.To != "" {
		to, err := time.Parse("2006-01-02", filter.To)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid to date: %w", err)
		}
		repoFilter.To = &to
	}

	expenses, total, err := s.expenseRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch expenses: %w", err)
	}

	result := make([]ExpenseResponse, 0, len(expenses))
	for _, e := range expenses {
		result = append(result, toExpenseResponse(e))
	}
	return result, total, nil
}

func (s *expenseService) GetExpenseSummary(ctx context.Context, from, to string) (ExpenseSummaryResponse, error) {
	fromDate, err := time.Parse("2006-01-02", from)
	if err != nil {
		return ExpenseSummaryResponse{}, fmt.Errorf("invalid from date: %w", err)
	}
	toDate, err := time.Parse("2006-01-02", to)
	if err != nil {
		return ExpenseSummaryResponse{}, fmt.Errorf("invalid to date: %w", err)
	}

	byCategory, err := s.expenseRepo.SumByCategory(ctx, fromDate, toDate)
	if err != nil {
		return ExpenseSummaryResponse{}, fmt.Errorf("failed to sum expenses: %w", err)
	}
	recoverable, err := s.expenseRepo.SumRecoverableVAT(ctx, fromDate, toDate)
	if err != nil {
		return ExpenseSummaryResponse{}, fmt.Errorf("failed to sum recoverable vat: %w", err)
	}

	summary := ExpenseSummaryResponse{
		From:           from,
		To:             to,
		RecoverableVAT: recoverable.StringFixed(2),
		ByCategory:     make(map[string]string, len(byCategory)),
	}
	total := decimal.Zero
	for category, amount := range byCategory {
		summary.ByCategory[category] = amount.StringFixed(2)
		total = total.Add(amount)
	}
	summary.TotalAED = total.StringFixed(2)
	return summary, nil
}

// --- Helpers ---

func buildExpense(req SaveExpenseRequest, existing *model.Expense) (*model.Expense, error) {
	originalAmount, err := decimal.NewFromString(req.OriginalAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid original_amount: %w", err)
	}
	if originalAmount.IsNegative() {
		return nil, fmt.Errorf("original_amount cannot be negative")
	}

	exchangeRate := decimal.NewFromInt(1)
	if req.ExchangeRate != "" {
		exchangeRate, err = decimal.NewFromString(req.ExchangeRate)
		if err != nil {
			return nil, fmt.Errorf("invalid exchange_rate: %w", err)
		}
		if exchangeRate.LessThanOrEqual(decimal.Zero) {
			return nil, fmt.Errorf("exchange_rate must be greater than 0")
		}
	}

	expenseDate, err := time.Parse("2006-01-02", req.ExpenseDate)
	if err != nil {
		return nil, fmt.Errorf("invalid expense_date (expected YYYY-MM-DD): %w", err)
	}

	convertedAED := originalAmount.Mul(exchangeRate)

	// Input VAT applies only when a supplier tax invoice backs the expense,
	// and is recoverable only when the supplier TRN is on record.
	vatRate := decimal.Zero
	vatAmount := decimal.Zero
	recoverable := false
	if req.DocumentType == model.ExpenseDocTaxInvoice {
		vatRate = decimal.NewFromInt(5)
		if req.VATRate != "" {
			vatRate, err = decimal.NewFromString(req.VATRate)
			if err != nil {
				return nil, fmt.Errorf("invalid vat_rate: %w", err)
			}
		}
		vatAmount = convertedAED.Mul(vatRate).Div(decimal.NewFromInt(100))

		if req.SupplierTRN == "" {
			return nil, fmt.Errorf("supplier_trn is required when document_type is TAX_INVOICE")
		}
		recoverable = true
	}

	expense := &model.Expense{}
	if existing != nil {
		*expense = *existing
	}

	expense.Category = req.Category
	expense.Currency = req.Currency
	expense.ExchangeRate = exchangeRate
	expense.OriginalAmount = originalAmount
	expense.ConvertedAmountAED = convertedAED
	expense.VATRate = vatRate
	expense.VATAmount = vatAmount
	expense.DocumentType = req.DocumentType
	expense.SupplierName = req.SupplierName
	expense.DocumentURL = req.DocumentURL
	expense.IsVATRecoverable = recoverable
	expense.ExpenseDate = expenseDate
	expense.Description = req.Description

	expense.SupplierTRN = nil
	if req.SupplierTRN != "" {
		trn := req.SupplierTRN
		expense.SupplierTRN = &trn
	}

	return expense, nil
}

func (s *expenseService) writeAudit(ctx context.Context, userID, action string, expense *model.Expense, req SaveExpenseRequest) {
	details, _ := json.Marshal(map[string]interface{}{
		"category":        req.Category,
		"currency":        req.Currency,
		"original_amount": req.OriginalAmount,
		"document_type":   req.DocumentType,
		"description":     req.Description,
	})
	entry := &model.AuditLog{
		Action:     action,
		EntityID:   expense.ID.String(),
		EntityName: req.Description,
		Details:    string(details),
	}
	if parsed, err := uuid.Parse(userID); err == nil {
		entry.UserID = &parsed
	}
	_ = s.auditRepo.Log(ctx, entry)
}

func toExpenseResponse(e model.Expense) ExpenseResponse {
	return ExpenseResponse{
		ID:                 e.ID.String(),
		Category:           e.Category,
		Currency:           e.Currency,
		ExchangeRate:       e.ExchangeRate.StringFixed(6),
		OriginalAmount:     e.OriginalAmount.StringFixed(2),
		ConvertedAmountAED: e.ConvertedAmountAED.StringFixed(2),
		VATRate:            e.VATRate.StringFixed(2),
		VATAmount:          e.VATAmount.StringFixed(2),
		DocumentType:       e.DocumentType,
		SupplierName:       e.SupplierName,
		SupplierTRN:        e.SupplierTRN,
		DocumentURL:        e.DocumentURL,
		IsVATRecoverable:   e.IsVATRecoverable,
		ExpenseDate:        e.ExpenseDate.Format("2006-01-02"),
		Description:        e.Description,
		CreatedAt:          e.CreatedAt.Format(time.RFC3339),
	}
}
