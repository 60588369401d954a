package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"billing/internal/billing"
	"billing/internal/model"
	"billing/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type LineItemInput struct {
	Name       string `json:"name"`
	Quantity   int64  `json:"quantity"`
	Rate       string `json:"rate"`
	SupplyType string `json:"supply_type"` // standard, zero_rated, exempt; defaults to standard
	VATRate    string `json:"vat_rate"`    // optional override; empty resolves from the rate table
}

// SaveInvoiceRequest is shared by create and update. Monetary fields travel as
// decimal strings.
type SaveInvoiceRequest struct {
	CustomerID      string `json:"customer_id"` // optional; hard-copy fields are frozen from the customer when set
	CustomerName    string `json:"customer_name"`
	CustomerContact string `json:"customer_contact"`
	CustomerTRN     string `json:"customer_trn"`
	CustomerAddress string `json:"customer_address"`

	Status  string `json:"status"` // defaults to draft on create
	Date    string `json:"date"`   // YYYY-MM-DD
	DueDate string `json:"due_date"`

	Items []LineItemInput `json:"items"`

	DiscountType       string `json:"discount_type"` // amount, percentage
	DiscountPercentage string `json:"discount_percentage"`
	DiscountAmount     string `json:"discount_amount"`

	IsReverseCharge bool `json:"is_reverse_charge"`
	IsExport        bool `json:"is_export"`

	PackingCharges   string `json:"packing_charges"`
	FreightCharges   string `json:"freight_charges"`
	InsuranceCharges string `json:"insurance_charges"`
	LoadingCharges   string `json:"loading_charges"`
	OtherCharges     string `json:"other_charges"`

	Currency     string `json:"currency"`
	ExchangeRate string `json:"exchange_rate"`
	Notes        string `json:"notes"`
}

type ChangeStatusRequest struct {
	Status    string `json:"status" binding:"required,oneof=draft proforma issued"`
	Confirmed bool   `json:"confirmed"` // issuing is irreversible and must be acknowledged
}

type RecordPaymentRequest struct {
	Amount string `json:"amount" binding:"required"`
}

type InvoiceFilter struct {
	Status        string // draft, proforma, issued or empty for all
	PaymentStatus string // unpaid, partially_paid, paid or empty for all
	CustomerID    string
	Search        string // partial match on invoice_number or customer_name
	Page          int
	Limit         int
}

type LineItemResponse struct {
	ID         string `json:"id"`
	Position   int    `json:"position"`
	Name       string `json:"name"`
	Quantity   int64  `json:"quantity"`
	Rate       string `json:"rate"`
	Amount     string `json:"amount"`
	SupplyType string `json:"supply_type"`
	VATRate    string `json:"vat_rate"`
}

type InvoiceResponse struct {
	ID            string  `json:"id"`
	InvoiceNumber string  `json:"invoice_number"`
	Status        string  `json:"status"`
	Date          *string `json:"date"`
	DueDate       *string `json:"due_date"`
	IssuedAt      *string `json:"issued_at"`

	CustomerID      *string `json:"customer_id"`
	CustomerName    string  `json:"customer_name"`
	CustomerContact string  `json:"customer_contact"`
	CustomerTRN     string  `json:"customer_trn"`
	CustomerAddress string  `json:"customer_address"`

	Items []LineItemResponse `json:"items"`

	DiscountType       string `json:"discount_type"`
	DiscountPercentage string `json:"discount_percentage"`
	DiscountAmount     string `json:"discount_amount"`

	IsReverseCharge     bool   `json:"is_reverse_charge"`
	IsExport            bool   `json:"is_export"`
	ReverseChargeAmount string `json:"reverse_charge_amount"`

	PackingCharges      string `json:"packing_charges"`
	PackingChargesVAT   string `json:"packing_charges_vat"`
	FreightCharges      string `json:"freight_charges"`
	FreightChargesVAT   string `json:"freight_charges_vat"`
	InsuranceCharges    string `json:"insurance_charges"`
	InsuranceChargesVAT string `json:"insurance_charges_vat"`
	LoadingCharges      string `json:"loading_charges"`
	LoadingChargesVAT   string `json:"loading_charges_vat"`
	OtherCharges        string `json:"other_charges"`
	OtherChargesVAT     string `json:"other_charges_vat"`

	Currency     string `json:"currency"`
	ExchangeRate string `json:"exchange_rate"`

	Subtotal      string `json:"subtotal"`
	DiscountValue string `json:"discount_value"`
	VATAmount     string `json:"vat_amount"`
	GrandTotal    string `json:"grand_total"`

	PaymentStatus string `json:"payment_status"`
	PaidAmount    string `json:"paid_amount"`

	IsLocked       bool `json:"is_locked"`
	IsRevisionMode bool `json:"is_revision_mode"`

	Notes     string `json:"notes"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// InvoiceDetailResponse adds the print layout to the document itself.
type InvoiceDetailResponse struct {
	InvoiceResponse
	Pagination billing.Plan `json:"pagination"`
	PageSummary string      `json:"page_summary"`
}

// PreviewResponse is the computed view of an unsaved document: totals,
// validation and page plan without touching storage.
type PreviewResponse struct {
	Subtotal            string                   `json:"subtotal"`
	DiscountValue       string                   `json:"discount_value"`
	VATAmount           string                   `json:"vat_amount"`
	ReverseChargeAmount string                   `json:"reverse_charge_amount"`
	ChargesTotal        string                   `json:"charges_total"`
	ChargesVAT          string                   `json:"charges_vat"`
	GrandTotal          string                   `json:"grand_total"`
	Validation          billing.ValidationResult `json:"validation"`
	Pagination          billing.Plan             `json:"pagination"`
	Pages               []billing.Page           `json:"pages"`
	PageSummary         string                   `json:"page_summary"`
}

// ValidationError is returned when a save fails document validation; the
// handler maps it to a 400 carrying the field paths.
type ValidationError struct {
	Result billing.ValidationResult
}

func (e *ValidationError) Error() string {
	return "invoice validation failed: " + strings.Join(e.Result.Errors, "; ")
}

// ErrConfirmationRequired gates the irreversible issue transition behind an
// explicit acknowledgement from the caller.
var ErrConfirmationRequired = fmt.Errorf("issuing an invoice is irreversible and requires confirmation")

// --- Interface ---

type InvoiceService interface {
	CreateInvoice(ctx context.Context, req SaveInvoiceRequest, userID string) (InvoiceDetailResponse, error)
	UpdateInvoice(ctx context.Context, id string, req SaveInvoiceRequest, userID string) (InvoiceDetailResponse, error)
	ChangeStatus(ctx context.Context, id string, req ChangeStatusRequest, userID string) (InvoiceDetailResponse, error)
	GetInvoice(ctx context.Context, id string) (InvoiceDetailResponse, error)
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]InvoiceResponse, int64, error)
	DeleteInvoice(ctx context.Context, id string, userID string) error
	RecordPayment(ctx context.Context, id string, req RecordPaymentRequest, userID string) (InvoiceDetailResponse, error)
	PreviewInvoice(ctx context.Context, req SaveInvoiceRequest) (PreviewResponse, error)
}

type invoiceService struct {
	invoiceRepo  repository.InvoiceRepository
	customerRepo repository.CustomerRepository
	vatRateRepo  repository.VATRateRepository
	templateRepo repository.TemplateRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	now          func() time.Time
}

func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	customerRepo repository.CustomerRepository,
	vatRateRepo repository.VATRateRepository,
	templateRepo repository.TemplateRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) InvoiceService {
	return &invoiceService{
		invoiceRepo:  invoiceRepo,
		customerRepo: customerRepo,
		vatRateRepo:  vatRateRepo,
		templateRepo: templateRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		now:          time.Now,
	}
}

// --- Implementation ---

func (s *invoiceService) CreateInvoice(ctx context.Context, req SaveInvoiceRequest, userID string) (InvoiceDetailResponse, error) {
	invoice, items, err := s.buildInvoice(ctx, req, nil)
	if err != nil {
		return InvoiceDetailResponse{}, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		number, numErr := s.generateInvoiceNumber(txCtx, invoice.Status)
		if numErr != nil {
			return fmt.Errorf("failed to generate invoice number: %w", numErr)
		}
		invoice.InvoiceNumber = number

		if invoice.Status == billing.StatusIssued {
			now := s.now()
			invoice.IssuedAt = &now
		}

		if createErr := s.invoiceRepo.Create(txCtx, invoice); createErr != nil {
			return fmt.Errorf("failed to create invoice: %w", createErr)
		}
		if itemsErr := s.invoiceRepo.ReplaceItems(txCtx, invoice.ID, items); itemsErr != nil {
			return fmt.Errorf("failed to save line items: %w", itemsErr)
		}

		s.audit(txCtx, userID, model.ActionCreateInvoice, invoice)
		return nil
	})
	if err != nil {
		return InvoiceDetailResponse{}, err
	}

	return s.detail(ctx, invoice.ID)
}

func (s *invoiceService) UpdateInvoice(ctx context.Context, id string, req SaveInvoiceRequest, userID string) (InvoiceDetailResponse, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return InvoiceDetailResponse{}, fmt.Errorf("invalid invoice id: %w", err)
	}

	existing, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return InvoiceDetailResponse{}, fmt.Errorf("invoice not found: %w", err)
	}

	now := s.now()
	if billing.ComputeLockState(true, existing.Status, existing.IssuedAt, now) {
		return InvoiceDetailResponse{}, fmt.Errorf("invoice %s is locked: issued invoices become immutable after %s", existing.InvoiceNumber, billing.RevisionWindow)
	}

	invoice, items, err := s.buildInvoice(ctx, req, existing)
	if err != nil {
		return InvoiceDetailResponse{}, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// A status change relabels the number atomically with the status.
		if invoice.Status != existing.Status {
			number, status, trErr := billing.Transition(existing.InvoiceNumber, existing.Status, invoice.Status)
			if trErr != nil {
				return trErr
			}
			invoice.InvoiceNumber = number
			invoice.Status = status
			if status == billing.StatusIssued && invoice.IssuedAt == nil {
				invoice.IssuedAt = &now
			}
		}

		if updateErr := s.invoiceRepo.Update(txCtx, invoice); updateErr != nil {
			return fmt.Errorf("failed to update invoice: %w", updateErr)
		}
		if itemsErr := s.invoiceRepo.ReplaceItems(txCtx, invoice.ID, items); itemsErr != nil {
			return fmt.Errorf("failed to save line items: %w", itemsErr)
		}

		s.audit(txCtx, userID, model.ActionUpdateInvoice, invoice)
		return nil
	})
	if err != nil {
		return InvoiceDetailResponse{}, err
	}

	return s.detail(ctx, invoice.ID)
}

func (s *invoiceService) ChangeStatus(ctx context.Context, id string, req ChangeStatusRequest, userID string) (InvoiceDetailResponse, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return InvoiceDetailResponse{}, fmt.Errorf("invalid invoice id: %w", err)
	}

	target := billing.Status(req.Status)

	var result *model.Invoice
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, findErr := s.invoiceRepo.FindByIDWithItems(txCtx, invoiceID)
		if findErr != nil {
			return fmt.Errorf("invoice not found: %w", findErr)
		}

		if billing.NeedsConfirmation(invoice.Status, target) && !req.Confirmed {
			return ErrConfirmationRequired
		}

		// Issuing demands a complete document.
		if target == billing.StatusIssued {
			validation := billing.ValidateRequiredFields(invoice.BillingDocument())
			if !validation.IsValid {
				return &ValidationError{Result: validation}
			}
		}

		number, status, trErr := billing.Transition(invoice.InvoiceNumber, invoice.Status, target)
		if trErr != nil {
			return trErr
		}
		invoice.InvoiceNumber = number
		invoice.Status = status

		action := model.ActionUpdateInvoice
		if status == billing.StatusIssued && invoice.IssuedAt == nil {
			now := s.now()
			invoice.IssuedAt = &now
			action = model.ActionIssueInvoice
		}

		if updateErr := s.invoiceRepo.Update(txCtx, invoice); updateErr != nil {
			return fmt.Errorf("failed to update invoice: %w", updateErr)
		}

		s.audit(txCtx, userID, action, invoice)
		result = invoice
		return nil
	})
	if err != nil {
		return InvoiceDetailResponse{}, err
	}

	return s.detail(ctx, result.ID)
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (InvoiceDetailResponse, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return InvoiceDetailResponse{}, fmt.Errorf("invalid invoice id: %w", err)
	}
	return s.detail(ctx, invoiceID)
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]InvoiceResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	repoFilter := repository.InvoiceListFilter{
		Status:        filter.Status,
		PaymentStatus: filter.PaymentStatus,
		Search:        filter.Search,
		Page:          filter.Page,
		Limit:         filter.Limit,
	}
	if filter.CustomerID != "" {
		customerID, err := uuid.Parse(filter.CustomerID)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid customer id: %w", err)
		}
		repoFilter.CustomerID = &customerID
	}

	invoices, total, err := s.invoiceRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch invoices: %w", err)
	}

	now := s.now()
	result := make([]InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		result = append(result, s.toResponse(&invoices[i], now))
	}
	return result, total, nil
}

func (s *invoiceService) DeleteInvoice(ctx context.Context, id string, userID string) error {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid invoice id: %w", err)
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return fmt.Errorf("invoice not found: %w", err)
	}

	if invoice.Status == billing.StatusIssued {
		return fmt.Errorf("issued invoice %s cannot be deleted; corrections require a credit note", invoice.InvoiceNumber)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if delErr := s.invoiceRepo.Delete(txCtx, invoiceID); delErr != nil {
			return fmt.Errorf("failed to delete invoice: %w", delErr)
		}
		s.audit(txCtx, userID, model.ActionDeleteInvoice, invoice)
		return nil
	})
}

func (s *invoiceService) RecordPayment(ctx context.Context, id string, req RecordPaymentRequest, userID string) (InvoiceDetailResponse, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return InvoiceDetailResponse{}, fmt.Errorf("invalid invoice id: %w", err)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return InvoiceDetailResponse{}, fmt.Errorf("invalid amount: %w", err)
	}
	if !amount.IsPositive() {
		return InvoiceDetailResponse{}, fmt.Errorf("payment amount must be positive")
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, findErr := s.invoiceRepo.FindByID(txCtx, invoiceID)
		if findErr != nil {
			return fmt.Errorf("invoice not found: %w", findErr)
		}

		if invoice.Status != billing.StatusIssued {
			return fmt.Errorf("payments can only be recorded against issued invoices, not %s", invoice.Status)
		}

		invoice.PaidAmount = invoice.PaidAmount.Add(amount)
		switch {
		case invoice.PaidAmount.GreaterThanOrEqual(invoice.GrandTotal) && invoice.GrandTotal.IsPositive():
			invoice.PaymentStatus = model.PaymentPaid
		case invoice.PaidAmount.IsPositive():
			invoice.PaymentStatus = model.PaymentPartiallyPaid
		default:
			invoice.PaymentStatus = model.PaymentUnpaid
		}

		if updateErr := s.invoiceRepo.Update(txCtx, invoice); updateErr != nil {
			return fmt.Errorf("failed to record payment: %w", updateErr)
		}

		s.audit(txCtx, userID, model.ActionRecordPayment, invoice)
		return nil
	})
	if err != nil {
		return InvoiceDetailResponse{}, err
	}

	return s.detail(ctx, invoiceID)
}

func (s *invoiceService) PreviewInvoice(ctx context.Context, req SaveInvoiceRequest) (PreviewResponse, error) {
	doc, _, err := s.parseDocument(ctx, req)
	if err != nil {
		return PreviewResponse{}, err
	}

	totals := billing.ComputeTotals(doc)
	validation := billing.ValidateRequiredFields(doc)
	plan := billing.CalculatePagination(len(doc.Items), s.pageConfig(ctx))

	return PreviewResponse{
		Subtotal:            totals.Subtotal.StringFixed(2),
		DiscountValue:       totals.DiscountValue.StringFixed(2),
		VATAmount:           totals.VATAmount.StringFixed(2),
		ReverseChargeAmount: totals.ReverseChargeAmount.StringFixed(2),
		ChargesTotal:        totals.ChargesTotal.StringFixed(2),
		ChargesVAT:          totals.ChargesVAT.StringFixed(2),
		GrandTotal:          totals.GrandTotal.StringFixed(2),
		Validation:          validation,
		Pagination:          plan,
		Pages:               billing.SplitItemsIntoPages(doc.Items, plan),
		PageSummary:         billing.PaginationSummary(plan),
	}, nil
}

// --- Helpers ---

// parseDocument converts a request into the engine's document view, filtering
// blank rows and resolving per-line VAT rates.
func (s *invoiceService) parseDocument(ctx context.Context, req SaveInvoiceRequest) (billing.Document, []model.LineItem, error) {
	status := billing.StatusDraft
	if req.Status != "" {
		status = billing.Status(req.Status)
	}

	date, err := parseDate(req.Date)
	if err != nil {
		return billing.Document{}, nil, fmt.Errorf("invalid date: %w", err)
	}
	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		return billing.Document{}, nil, fmt.Errorf("invalid due_date: %w", err)
	}

	items := make([]billing.LineItem, 0, len(req.Items))
	for i, in := range req.Items {
		rate := decimal.Zero
		if in.Rate != "" {
			rate, err = decimal.NewFromString(in.Rate)
			if err != nil {
				return billing.Document{}, nil, fmt.Errorf("invalid rate on item %d: %w", i+1, err)
			}
		}

		supplyType := in.SupplyType
		if supplyType == "" {
			supplyType = billing.SupplyStandard
		}

		vatRate, rateErr := s.resolveVATRate(ctx, in.VATRate, supplyType, date)
		if rateErr != nil {
			return billing.Document{}, nil, fmt.Errorf("invalid vat_rate on item %d: %w", i+1, rateErr)
		}

		items = append(items, billing.LineItem{
			Name:       in.Name,
			Quantity:   in.Quantity,
			Rate:       rate,
			SupplyType: supplyType,
			VATRate:    vatRate,
		})
	}
	items = billing.FilterBlankItems(items)

	discountType := req.DiscountType
	if discountType == "" {
		discountType = billing.DiscountAmount
	}
	discountPct, err := parseDecimal(req.DiscountPercentage)
	if err != nil {
		return billing.Document{}, nil, fmt.Errorf("invalid discount_percentage: %w", err)
	}
	discountAmt, err := parseDecimal(req.DiscountAmount)
	if err != nil {
		return billing.Document{}, nil, fmt.Errorf("invalid discount_amount: %w", err)
	}
	// Only one discount mode is active at a time; the other resets to zero so
	// a stale value cannot resurface on the next mode switch.
	if discountType == billing.DiscountPercentage {
		discountAmt = decimal.Zero
	} else {
		discountPct = decimal.Zero
	}

	charges, err := parseCharges(req)
	if err != nil {
		return billing.Document{}, nil, err
	}

	doc := billing.Document{
		CustomerName:       req.CustomerName,
		Status:             status,
		Date:               date,
		DueDate:            dueDate,
		Items:              items,
		DiscountType:       discountType,
		DiscountPercentage: discountPct,
		DiscountAmount:     discountAmt,
		IsReverseCharge:    req.IsReverseCharge,
		IsExport:           req.IsExport,
		Charges:            charges,
	}

	rows := make([]model.LineItem, 0, len(items))
	for i, item := range items {
		rows = append(rows, model.LineItem{
			Position:   i,
			Name:       item.Name,
			Quantity:   item.Quantity,
			Rate:       item.Rate,
			Amount:     billing.LineAmount(item.Quantity, item.Rate),
			SupplyType: item.SupplyType,
			VATRate:    item.VATRate,
		})
	}

	return doc, rows, nil
}

// buildInvoice assembles the persisted record from a request. For updates the
// existing record supplies identity and issue state.
func (s *invoiceService) buildInvoice(ctx context.Context, req SaveInvoiceRequest, existing *model.Invoice) (*model.Invoice, []model.LineItem, error) {
	doc, rows, err := s.parseDocument(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	if validation := billing.ValidateRequiredFields(doc); !validation.IsValid {
		return nil, nil, &ValidationError{Result: validation}
	}

	invoice := &model.Invoice{}
	if existing != nil {
		*invoice = *existing
		invoice.Items = nil
	}

	invoice.Status = doc.Status
	invoice.Date = doc.Date
	invoice.DueDate = doc.DueDate
	invoice.CustomerName = req.CustomerName
	invoice.CustomerContact = req.CustomerContact
	invoice.CustomerTRN = req.CustomerTRN
	invoice.CustomerAddress = req.CustomerAddress
	invoice.DiscountType = doc.DiscountType
	invoice.DiscountPercentage = doc.DiscountPercentage
	invoice.DiscountAmount = doc.DiscountAmount
	invoice.IsReverseCharge = doc.IsReverseCharge
	invoice.IsExport = doc.IsExport
	invoice.PackingCharges = doc.Charges.Packing
	invoice.FreightCharges = doc.Charges.Freight
	invoice.InsuranceCharges = doc.Charges.Insurance
	invoice.LoadingCharges = doc.Charges.Loading
	invoice.OtherCharges = doc.Charges.Other
	invoice.Notes = req.Notes

	if req.Currency != "" {
		invoice.Currency = req.Currency
	} else if invoice.Currency == "" {
		invoice.Currency = "AED"
	}
	exchangeRate, err := parseDecimal(req.ExchangeRate)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid exchange_rate: %w", err)
	}
	if exchangeRate.IsZero() {
		exchangeRate = decimal.NewFromInt(1)
	}
	invoice.ExchangeRate = exchangeRate

	// Freeze customer hard-copy fields from the linked record when the caller
	// gives an id but no overrides.
	if req.CustomerID != "" {
		customerID, parseErr := uuid.Parse(req.CustomerID)
		if parseErr != nil {
			return nil, nil, fmt.Errorf("invalid customer_id: %w", parseErr)
		}
		invoice.CustomerID = &customerID

		customer, custErr := s.customerRepo.FindByID(ctx, customerID)
		if custErr != nil {
			return nil, nil, fmt.Errorf("customer not found: %w", custErr)
		}
		if invoice.CustomerName == "" {
			invoice.CustomerName = customer.Name
		}
		if invoice.CustomerTRN == "" {
			invoice.CustomerTRN = customer.TRN
		}
		if invoice.CustomerAddress == "" {
			if addr := customer.BillingAddress(); addr != "" {
				invoice.CustomerAddress = addr
			}
		}
	}

	totals := billing.ComputeTotals(doc)
	invoice.Subtotal = totals.Subtotal
	invoice.DiscountValue = totals.DiscountValue
	invoice.VATAmount = totals.VATAmount
	invoice.ReverseChargeAmount = totals.ReverseChargeAmount
	invoice.GrandTotal = totals.GrandTotal
	invoice.PackingChargesVAT = billing.ChargeVAT(doc.Charges.Packing, doc.IsExport)
	invoice.FreightChargesVAT = billing.ChargeVAT(doc.Charges.Freight, doc.IsExport)
	invoice.InsuranceChargesVAT = billing.ChargeVAT(doc.Charges.Insurance, doc.IsExport)
	invoice.LoadingChargesVAT = billing.ChargeVAT(doc.Charges.Loading, doc.IsExport)
	invoice.OtherChargesVAT = billing.ChargeVAT(doc.Charges.Other, doc.IsExport)

	if invoice.PaymentStatus == "" {
		invoice.PaymentStatus = model.PaymentUnpaid
	}

	return invoice, rows, nil
}

// resolveVATRate picks the line VAT rate: explicit override first, then the
// configured rate table for the supply type at the invoice date, then the
// built-in default.
func (s *invoiceService) resolveVATRate(ctx context.Context, override, supplyType string, date *time.Time) (decimal.Decimal, error) {
	if override != "" {
		return decimal.NewFromString(override)
	}

	at := s.now()
	if date != nil {
		at = *date
	}
	if configured, err := s.vatRateRepo.FindActiveBySupplyType(ctx, supplyType, at); err == nil {
		return configured.Rate, nil
	}

	return billing.DefaultVATRate(supplyType), nil
}

// pageConfig derives pagination capacities from the default template when one
// is configured, otherwise the fixed A4 policy.
func (s *invoiceService) pageConfig(ctx context.Context) billing.PageConfig {
	cfg := billing.DefaultPageConfig()
	tpl, err := s.templateRepo.FindDefault(ctx)
	if err != nil {
		return cfg
	}
	if tpl.MarginTop > 0 {
		cfg.MarginTop = tpl.MarginTop
	}
	if tpl.MarginBottom > 0 {
		cfg.MarginBottom = tpl.MarginBottom
	}
	return cfg
}

// plan prefers explicit template capacity overrides over the layout-derived
// ones.
func (s *invoiceService) plan(ctx context.Context, itemCount int) billing.Plan {
	if tpl, err := s.templateRepo.FindDefault(ctx); err == nil {
		if tpl.ItemsPerFirstPage > 0 && tpl.ItemsPerSubsequentPage > 0 {
			return billing.PlanForCapacities(itemCount, tpl.ItemsPerFirstPage, tpl.ItemsPerSubsequentPage)
		}
	}
	return billing.CalculatePagination(itemCount, s.pageConfig(ctx))
}

func (s *invoiceService) generateInvoiceNumber(ctx context.Context, status billing.Status) (string, error) {
	// A fresh number is PREFIX-YYYYMM-0001; the sequence comes from the count
	// of numbers already carrying the same prefix and month.
	base := billing.WithStatusPrefixAt("", status, s.now())
	prefix := strings.TrimSuffix(base, "0001")

	count, err := s.invoiceRepo.CountByPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", prefix, count+1), nil
}

func (s *invoiceService) detail(ctx context.Context, id uuid.UUID) (InvoiceDetailResponse, error) {
	invoice, err := s.invoiceRepo.FindByIDWithItems(ctx, id)
	if err != nil {
		return InvoiceDetailResponse{}, fmt.Errorf("failed to reload invoice: %w", err)
	}

	plan := s.plan(ctx, len(invoice.Items))
	return InvoiceDetailResponse{
		InvoiceResponse: s.toResponse(invoice, s.now()),
		Pagination:      plan,
		PageSummary:     billing.PaginationSummary(plan),
	}, nil
}

func (s *invoiceService) audit(ctx context.Context, userID string, action string, invoice *model.Invoice) {
	entry := &model.AuditLog{
		Action:     action,
		EntityID:   invoice.ID.String(),
		EntityName: invoice.InvoiceNumber,
	}
	if parsed, err := uuid.Parse(userID); err == nil {
		entry.UserID = &parsed
	}
	if payload, err := json.Marshal(map[string]string{
		"invoice_number": invoice.InvoiceNumber,
		"status":         invoice.Status.String(),
		"grand_total":    invoice.GrandTotal.StringFixed(2),
	}); err == nil {
		entry.Details = string(payload)
	}
	// Audit failures never roll back the business write.
	_ = s.auditRepo.Log(ctx, entry)
}

// --- Mapping ---

func (s *invoiceService) toResponse(inv *model.Invoice, now time.Time) InvoiceResponse {
	resp := InvoiceResponse{
		ID:            inv.ID.String(),
		InvoiceNumber: inv.InvoiceNumber,
		Status:        inv.Status.String(),

		CustomerName:    inv.CustomerName,
		CustomerContact: inv.CustomerContact,
		CustomerTRN:     inv.CustomerTRN,
		CustomerAddress: inv.CustomerAddress,

		DiscountType:       inv.DiscountType,
		DiscountPercentage: inv.DiscountPercentage.StringFixed(2),
		DiscountAmount:     inv.DiscountAmount.StringFixed(2),

		IsReverseCharge:     inv.IsReverseCharge,
		IsExport:            inv.IsExport,
		ReverseChargeAmount: inv.ReverseChargeAmount.StringFixed(2),

		PackingCharges:      inv.PackingCharges.StringFixed(2),
		PackingChargesVAT:   inv.PackingChargesVAT.StringFixed(2),
		FreightCharges:      inv.FreightCharges.StringFixed(2),
		FreightChargesVAT:   inv.FreightChargesVAT.StringFixed(2),
		InsuranceCharges:    inv.InsuranceCharges.StringFixed(2),
		InsuranceChargesVAT: inv.InsuranceChargesVAT.StringFixed(2),
		LoadingCharges:      inv.LoadingCharges.StringFixed(2),
		LoadingChargesVAT:   inv.LoadingChargesVAT.StringFixed(2),
		OtherCharges:        inv.OtherCharges.StringFixed(2),
		OtherChargesVAT:     inv.OtherChargesVAT.StringFixed(2),

		Currency:     inv.Currency,
		ExchangeRate: inv.ExchangeRate.String(),

		Subtotal:      inv.Subtotal.StringFixed(2),
		DiscountValue: inv.DiscountValue.StringFixed(2),
		VATAmount:     inv.VATAmount.StringFixed(2),
		GrandTotal:    inv.GrandTotal.StringFixed(2),

		PaymentStatus: inv.PaymentStatus,
		PaidAmount:    inv.PaidAmount.StringFixed(2),

		IsLocked:       billing.ComputeLockState(true, inv.Status, inv.IssuedAt, now),
		IsRevisionMode: billing.ComputeRevisionMode(true, inv.Status, inv.IssuedAt, now),

		Notes:     inv.Notes,
		CreatedAt: inv.CreatedAt.Format(time.RFC3339),
		UpdatedAt: inv.UpdatedAt.Format(time.RFC3339),
	}

	if inv.Date != nil {
		d := inv.Date.Format("2006-01-02")
		resp.Date = &d
	}
	if inv.DueDate != nil {
		d := inv.DueDate.Format("2006-01-02")
		resp.DueDate = &d
	}
	if inv.IssuedAt != nil {
		d := inv.IssuedAt.Format(time.RFC3339)
		resp.IssuedAt = &d
	}
	if inv.CustomerID != nil {
		id := inv.CustomerID.String()
		resp.CustomerID = &id
	}

	resp.Items = make([]LineItemResponse, 0, len(inv.Items))
	for _, item := range inv.Items {
		resp.Items = append(resp.Items, LineItemResponse{
			ID:         item.ID.String(),
			Position:   item.Position,
			Name:       item.Name,
			Quantity:   item.Quantity,
			Rate:       item.Rate.StringFixed(2),
			Amount:     item.Amount.StringFixed(2),
			SupplyType: item.SupplyType,
			VATRate:    item.VATRate.StringFixed(2),
		})
	}

	return resp
}

func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseDecimal(value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(value)
}

func parseCharges(req SaveInvoiceRequest) (billing.Charges, error) {
	var charges billing.Charges
	var err error
	if charges.Packing, err = parseDecimal(req.PackingCharges); err != nil {
		return billing.Charges{}, fmt.Errorf("invalid packing_charges: %w", err)
	}
	if charges.Freight, err = parseDecimal(req.FreightCharges); err != nil {
		return billing.Charges{}, fmt.Errorf("invalid freight_charges: %w", err)
	}
	if charges.Insurance, err = parseDecimal(req.InsuranceCharges); err != nil {
		return billing.Charges{}, fmt.Errorf("invalid insurance_charges: %w", err)
	}
	if charges.Loading, err = parseDecimal(req.LoadingCharges); err != nil {
		return billing.Charges{}, fmt.Errorf("invalid loading_charges: %w", err)
	}
	if charges.Other, err = parseDecimal(req.OtherCharges); err != nil {
		return billing.Charges{}, fmt.Errorf("invalid other_charges: %w", err)
	}
	return charges, nil
}
