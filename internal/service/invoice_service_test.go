package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"billing/internal/billing"
	"billing/internal/model"
	"billing/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Fakes ---

type fakeTxManager struct{}

func (f *fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type fakeInvoiceRepo struct {
	invoices map[uuid.UUID]*model.Invoice
	items    map[uuid.UUID][]model.LineItem
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{
		invoices: make(map[uuid.UUID]*model.Invoice),
		items:    make(map[uuid.UUID][]model.LineItem),
	}
}

func (f *fakeInvoiceRepo) Create(ctx context.Context, invoice *model.Invoice) error {
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	stored := *invoice
	f.invoices[invoice.ID] = &stored
	return nil
}

func (f *fakeInvoiceRepo) Update(ctx context.Context, invoice *model.Invoice) error {
	if _, ok := f.invoices[invoice.ID]; !ok {
		return errors.New("record not found")
	}
	stored := *invoice
	f.invoices[invoice.ID] = &stored
	return nil
}

func (f *fakeInvoiceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.invoices, id)
	delete(f.items, id)
	return nil
}

func (f *fakeInvoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	inv, ok := f.invoices[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	found := *inv
	return &found, nil
}

func (f *fakeInvoiceRepo) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	inv, err := f.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	inv.Items = append([]model.LineItem(nil), f.items[id]...)
	return inv, nil
}

func (f *fakeInvoiceRepo) List(ctx context.Context, filter repository.InvoiceListFilter) ([]model.Invoice, int64, error) {
	result := make([]model.Invoice, 0, len(f.invoices))
	for _, inv := range f.invoices {
		result = append(result, *inv)
	}
	return result, int64(len(result)), nil
}

func (f *fakeInvoiceRepo) CountByPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	for _, inv := range f.invoices {
		if strings.HasPrefix(inv.InvoiceNumber, prefix) {
			count++
		}
	}
	return count, nil
}

func (f *fakeInvoiceRepo) ReplaceItems(ctx context.Context, invoiceID uuid.UUID, items []model.LineItem) error {
	stored := make([]model.LineItem, len(items))
	for i, item := range items {
		item.ID = uuid.New()
		item.InvoiceID = invoiceID
		item.Position = i
		stored[i] = item
	}
	f.items[invoiceID] = stored
	return nil
}

type fakeCustomerRepo struct {
	customers map[uuid.UUID]*model.Customer
}

func (f *fakeCustomerRepo) Create(ctx context.Context, customer *model.Customer) error { return nil }
func (f *fakeCustomerRepo) Update(ctx context.Context, customer *model.Customer) error { return nil }
func (f *fakeCustomerRepo) Delete(ctx context.Context, id uuid.UUID) error             { return nil }
func (f *fakeCustomerRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	if c, ok := f.customers[id]; ok {
		return c, nil
	}
	return nil, errors.New("record not found")
}
func (f *fakeCustomerRepo) List(ctx context.Context, search string, page, limit int) ([]model.Customer, int64, error) {
	return nil, 0, nil
}
func (f *fakeCustomerRepo) DeleteAddressesByCustomerID(ctx context.Context, customerID uuid.UUID) error {
	return nil
}
func (f *fakeCustomerRepo) CreateAddresses(ctx context.Context, addresses []model.CustomerAddress) error {
	return nil
}

type fakeVATRateRepo struct {
	active *model.VATRate
}

func (f *fakeVATRateRepo) Create(ctx context.Context, rate *model.VATRate) error { return nil }
func (f *fakeVATRateRepo) Update(ctx context.Context, rate *model.VATRate) error { return nil }
func (f *fakeVATRateRepo) Delete(ctx context.Context, id uuid.UUID) error        { return nil }
func (f *fakeVATRateRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.VATRate, error) {
	return nil, errors.New("record not found")
}
func (f *fakeVATRateRepo) List(ctx context.Context, page, limit int) ([]model.VATRate, int64, error) {
	return nil, 0, nil
}
func (f *fakeVATRateRepo) FindActiveBySupplyType(ctx context.Context, supplyType string, targetDate time.Time) (*model.VATRate, error) {
	if f.active != nil && f.active.SupplyType == supplyType {
		return f.active, nil
	}
	return nil, errors.New("record not found")
}
func (f *fakeVATRateRepo) FindOverlapping(ctx context.Context, supplyType string, from time.Time, to *time.Time, excludeID *uuid.UUID) (int64, error) {
	return 0, nil
}

type fakeTemplateRepo struct {
	defaultTemplate *model.TemplateSettings
}

func (f *fakeTemplateRepo) Create(ctx context.Context, settings *model.TemplateSettings) error {
	return nil
}
func (f *fakeTemplateRepo) Update(ctx context.Context, settings *model.TemplateSettings) error {
	return nil
}
func (f *fakeTemplateRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }
func (f *fakeTemplateRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.TemplateSettings, error) {
	return nil, errors.New("record not found")
}
func (f *fakeTemplateRepo) FindDefault(ctx context.Context) (*model.TemplateSettings, error) {
	if f.defaultTemplate != nil {
		return f.defaultTemplate, nil
	}
	return nil, errors.New("record not found")
}
func (f *fakeTemplateRepo) List(ctx context.Context) ([]model.TemplateSettings, error) {
	return nil, nil
}
func (f *fakeTemplateRepo) ClearDefault(ctx context.Context) error { return nil }

type fakeAuditRepo struct {
	entries []model.AuditLog
}

func (f *fakeAuditRepo) Log(ctx context.Context, entry *model.AuditLog) error {
	f.entries = append(f.entries, *entry)
	return nil
}
func (f *fakeAuditRepo) List(ctx context.Context, filter repository.AuditListFilter) ([]model.AuditLog, int64, error) {
	return nil, 0, nil
}

// --- Harness ---

var testNow = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

type invoiceServiceFixture struct {
	svc       *invoiceService
	invoices  *fakeInvoiceRepo
	customers *fakeCustomerRepo
	vatRates  *fakeVATRateRepo
	templates *fakeTemplateRepo
	audit     *fakeAuditRepo
}

func newInvoiceServiceFixture() *invoiceServiceFixture {
	invoices := newFakeInvoiceRepo()
	customers := &fakeCustomerRepo{customers: make(map[uuid.UUID]*model.Customer)}
	vatRates := &fakeVATRateRepo{}
	templates := &fakeTemplateRepo{}
	audit := &fakeAuditRepo{}

	svc := &invoiceService{
		invoiceRepo:  invoices,
		customerRepo: customers,
		vatRateRepo:  vatRates,
		templateRepo: templates,
		auditRepo:    audit,
		txManager:    &fakeTxManager{},
		now:          func() time.Time { return testNow },
	}

	return &invoiceServiceFixture{
		svc:       svc,
		invoices:  invoices,
		customers: customers,
		vatRates:  vatRates,
		templates: templates,
		audit:     audit,
	}
}

func validSaveRequest() SaveInvoiceRequest {
	return SaveInvoiceRequest{
		CustomerName: "Emirates Steel Trading LLC",
		Date:         "2026-03-15",
		DueDate:      "2026-04-14",
		Items: []LineItemInput{
			{Name: "Rebar 12mm", Quantity: 10, Rate: "100"},
		},
	}
}

// seedInvoice stores an invoice (and its items) directly in the fake repo.
func (fx *invoiceServiceFixture) seedInvoice(inv model.Invoice, items []model.LineItem) uuid.UUID {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	stored := inv
	fx.invoices.invoices[inv.ID] = &stored
	fx.invoices.items[inv.ID] = items
	return inv.ID
}

func seedLineItems(invoiceID uuid.UUID) []model.LineItem {
	return []model.LineItem{{
		ID:         uuid.New(),
		InvoiceID:  invoiceID,
		Position:   0,
		Name:       "Rebar 12mm",
		Quantity:   10,
		Rate:       decimal.NewFromInt(100),
		Amount:     decimal.NewFromInt(1000),
		SupplyType: billing.SupplyStandard,
		VATRate:    decimal.NewFromInt(5),
	}}
}

// --- Tests ---

func TestCreateInvoiceAssignsSequentialDraftNumbers(t *testing.T) {
	fx := newInvoiceServiceFixture()

	first, err := fx.svc.CreateInvoice(context.Background(), validSaveRequest(), uuid.New().String())
	require.NoError(t, err)
	assert.Equal(t, "DFT-202603-0001", first.InvoiceNumber)
	assert.Equal(t, "draft", first.Status)

	second, err := fx.svc.CreateInvoice(context.Background(), validSaveRequest(), uuid.New().String())
	require.NoError(t, err)
	assert.Equal(t, "DFT-202603-0002", second.InvoiceNumber)
}

func TestCreateInvoiceComputesTotals(t *testing.T) {
	fx := newInvoiceServiceFixture()

	resp, err := fx.svc.CreateInvoice(context.Background(), validSaveRequest(), "")
	require.NoError(t, err)

	assert.Equal(t, "1000.00", resp.Subtotal)
	assert.Equal(t, "50.00", resp.VATAmount) // 5% standard rate fallback
	assert.Equal(t, "1050.00", resp.GrandTotal)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "1000.00", resp.Items[0].Amount)
	assert.Equal(t, "unpaid", resp.PaymentStatus)
	assert.False(t, resp.IsLocked)
}

func TestCreateInvoiceUsesConfiguredVATRate(t *testing.T) {
	fx := newInvoiceServiceFixture()
	fx.vatRates.active = &model.VATRate{
		SupplyType: billing.SupplyStandard,
		Rate:       decimal.NewFromInt(10),
	}

	resp, err := fx.svc.CreateInvoice(context.Background(), validSaveRequest(), "")
	require.NoError(t, err)
	assert.Equal(t, "100.00", resp.VATAmount)
	assert.Equal(t, "1100.00", resp.GrandTotal)
}

func TestCreateInvoiceIssuedSetsIssuedAtOnce(t *testing.T) {
	fx := newInvoiceServiceFixture()

	req := validSaveRequest()
	req.Status = "issued"

	resp, err := fx.svc.CreateInvoice(context.Background(), req, "")
	require.NoError(t, err)

	assert.Equal(t, "INV-202603-0001", resp.InvoiceNumber)
	require.NotNil(t, resp.IssuedAt)
	assert.True(t, resp.IsRevisionMode, "freshly issued invoice is inside the revision window")
	assert.False(t, resp.IsLocked)
}

func TestCreateInvoiceRejectsIncompleteDocument(t *testing.T) {
	fx := newInvoiceServiceFixture()

	req := SaveInvoiceRequest{
		Items: []LineItemInput{{}}, // a single blank row counts as no items
	}

	_, err := fx.svc.CreateInvoice(context.Background(), req, "")
	require.Error(t, err)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.False(t, validationErr.Result.IsValid)
	assert.Contains(t, validationErr.Result.InvalidFields, "customer.name")
	assert.Contains(t, validationErr.Result.InvalidFields, "date")
	assert.Contains(t, validationErr.Result.InvalidFields, "due_date")
	assert.Contains(t, validationErr.Result.Errors, "At least one line item is required")
}

func TestCreateInvoiceFreezesCustomerSnapshot(t *testing.T) {
	fx := newInvoiceServiceFixture()

	customerID := uuid.New()
	fx.customers.customers[customerID] = &model.Customer{
		ID:   customerID,
		Name: "Gulf Metals FZE",
		TRN:  "100123456700003",
	}

	req := validSaveRequest()
	req.CustomerID = customerID.String() // TRN and address come from the linked record

	resp, err := fx.svc.CreateInvoice(context.Background(), req, "")
	require.NoError(t, err)
	assert.Equal(t, "Emirates Steel Trading LLC", resp.CustomerName)
	assert.Equal(t, "100123456700003", resp.CustomerTRN)
	require.NotNil(t, resp.CustomerID)
	assert.Equal(t, customerID.String(), *resp.CustomerID)
}

func TestUpdateInvoiceRejectsLockedInvoice(t *testing.T) {
	fx := newInvoiceServiceFixture()

	issuedAt := testNow.Add(-25 * time.Hour)
	id := fx.seedInvoice(model.Invoice{
		InvoiceNumber: "INV-202603-0001",
		Status:        billing.StatusIssued,
		IssuedAt:      &issuedAt,
		CustomerName:  "Emirates Steel Trading LLC",
	}, nil)

	_, err := fx.svc.UpdateInvoice(context.Background(), id.String(), validSaveRequest(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked")
}

func TestUpdateInvoiceAllowsEditsInsideRevisionWindow(t *testing.T) {
	fx := newInvoiceServiceFixture()

	issuedAt := testNow.Add(-2 * time.Hour)
	id := fx.seedInvoice(model.Invoice{
		InvoiceNumber: "INV-202603-0001",
		Status:        billing.StatusIssued,
		IssuedAt:      &issuedAt,
		CustomerName:  "Emirates Steel Trading LLC",
	}, nil)

	req := validSaveRequest()
	req.Status = "issued"
	req.Notes = "corrected quantity"

	resp, err := fx.svc.UpdateInvoice(context.Background(), id.String(), req, "")
	require.NoError(t, err)
	assert.Equal(t, "corrected quantity", resp.Notes)
	assert.Equal(t, "INV-202603-0001", resp.InvoiceNumber)
	assert.True(t, resp.IsRevisionMode)
}

func TestUpdateInvoiceRelabelsNumberOnStatusChange(t *testing.T) {
	fx := newInvoiceServiceFixture()

	id := fx.seedInvoice(model.Invoice{
		InvoiceNumber: "DFT-202603-0007",
		Status:        billing.StatusDraft,
		CustomerName:  "Emirates Steel Trading LLC",
	}, nil)

	req := validSaveRequest()
	req.Status = "proforma"

	resp, err := fx.svc.UpdateInvoice(context.Background(), id.String(), req, "")
	require.NoError(t, err)
	assert.Equal(t, "PFM-202603-0007", resp.InvoiceNumber, "sequence survives the relabel")
	assert.Equal(t, "proforma", resp.Status)
}

func TestChangeStatusRequiresConfirmationToIssue(t *testing.T) {
	fx := newInvoiceServiceFixture()

	id := fx.seedInvoice(model.Invoice{
		InvoiceNumber: "DFT-202603-0001",
		Status:        billing.StatusDraft,
	}, nil)

	_, err := fx.svc.ChangeStatus(context.Background(), id.String(), ChangeStatusRequest{Status: "issued"}, "")
	require.ErrorIs(t, err, ErrConfirmationRequired)
}

func TestChangeStatusIssuesConfirmedInvoice(t *testing.T) {
	fx := newInvoiceServiceFixture()

	date := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	due := date.AddDate(0, 1, 0)
	id := fx.seedInvoice(model.Invoice{
		InvoiceNumber: "PFM-202603-0003",
		Status:        billing.StatusProforma,
		CustomerName:  "Emirates Steel Trading LLC",
		Date:          &date,
		DueDate:       &due,
	}, seedLineItems(uuid.Nil))

	resp, err := fx.svc.ChangeStatus(context.Background(), id.String(), ChangeStatusRequest{Status: "issued", Confirmed: true}, uuid.New().String())
	require.NoError(t, err)

	assert.Equal(t, "INV-202603-0003", resp.InvoiceNumber)
	assert.Equal(t, "issued", resp.Status)
	require.NotNil(t, resp.IssuedAt)

	require.NotEmpty(t, fx.audit.entries)
	assert.Equal(t, model.ActionIssueInvoice, fx.audit.entries[len(fx.audit.entries)-1].Action)
}

func TestChangeStatusRejectsIssuingIncompleteInvoice(t *testing.T) {
	fx := newInvoiceServiceFixture()

	// No customer, dates or items: the issue gate must refuse it.
	id := fx.seedInvoice(model.Invoice{
		InvoiceNumber: "DFT-202603-0001",
		Status:        billing.StatusDraft,
	}, nil)

	_, err := fx.svc.ChangeStatus(context.Background(), id.String(), ChangeStatusRequest{Status: "issued", Confirmed: true}, "")
	require.Error(t, err)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Result.InvalidFields, "customer.name")
}

func TestChangeStatusRejectsBackwardTransition(t *testing.T) {
	fx := newInvoiceServiceFixture()

	issuedAt := testNow.Add(-time.Hour)
	id := fx.seedInvoice(model.Invoice{
		InvoiceNumber: "INV-202603-0001",
		Status:        billing.StatusIssued,
		IssuedAt:      &issuedAt,
	}, nil)

	_, err := fx.svc.ChangeStatus(context.Background(), id.String(), ChangeStatusRequest{Status: "draft", Confirmed: true}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "illegal status transition")
}

func TestRecordPaymentDerivesPaymentStatus(t *testing.T) {
	fx := newInvoiceServiceFixture()

	issuedAt := testNow.Add(-time.Hour)
	id := fx.seedInvoice(model.Invoice{
		InvoiceNumber: "INV-202603-0001",
		Status:        billing.StatusIssued,
		IssuedAt:      &issuedAt,
		GrandTotal:    decimal.NewFromInt(1050),
		PaymentStatus: model.PaymentUnpaid,
	}, nil)

	partial, err := fx.svc.RecordPayment(context.Background(), id.String(), RecordPaymentRequest{Amount: "500"}, "")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPartiallyPaid, partial.PaymentStatus)
	assert.Equal(t, "500.00", partial.PaidAmount)

	settled, err := fx.svc.RecordPayment(context.Background(), id.String(), RecordPaymentRequest{Amount: "550"}, "")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, settled.PaymentStatus)
	assert.Equal(t, "1050.00", settled.PaidAmount)
}

func TestRecordPaymentRejectsDraftInvoice(t *testing.T) {
	fx := newInvoiceServiceFixture()

	id := fx.seedInvoice(model.Invoice{
		InvoiceNumber: "DFT-202603-0001",
		Status:        billing.StatusDraft,
	}, nil)

	_, err := fx.svc.RecordPayment(context.Background(), id.String(), RecordPaymentRequest{Amount: "100"}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "issued")
}

func TestRecordPaymentRejectsNonPositiveAmount(t *testing.T) {
	fx := newInvoiceServiceFixture()

	_, err := fx.svc.RecordPayment(context.Background(), uuid.New().String(), RecordPaymentRequest{Amount: "-10"}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "positive")
}

func TestDeleteInvoiceRejectsIssuedInvoice(t *testing.T) {
	fx := newInvoiceServiceFixture()

	issuedAt := testNow.Add(-time.Hour)
	id := fx.seedInvoice(model.Invoice{
		InvoiceNumber: "INV-202603-0001",
		Status:        billing.StatusIssued,
		IssuedAt:      &issuedAt,
	}, nil)

	err := fx.svc.DeleteInvoice(context.Background(), id.String(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credit note")
}

func TestDeleteInvoiceRemovesDraft(t *testing.T) {
	fx := newInvoiceServiceFixture()

	id := fx.seedInvoice(model.Invoice{
		InvoiceNumber: "DFT-202603-0001",
		Status:        billing.StatusDraft,
	}, nil)

	require.NoError(t, fx.svc.DeleteInvoice(context.Background(), id.String(), ""))
	_, err := fx.invoices.FindByID(context.Background(), id)
	assert.Error(t, err)
}

func TestPreviewInvoiceFiltersBlankRows(t *testing.T) {
	fx := newInvoiceServiceFixture()

	req := validSaveRequest()
	req.Items = append(req.Items, LineItemInput{}) // trailing blank row from the form

	preview, err := fx.svc.PreviewInvoice(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, preview.Validation.IsValid)
	assert.Equal(t, "1000.00", preview.Subtotal)
	assert.Equal(t, 1, preview.Pagination.Pages)
	require.Len(t, preview.Pages, 1)
	assert.Equal(t, 1, len(preview.Pages[0].Items))
	assert.True(t, preview.Pages[0].IsLastPage)
	assert.NotEmpty(t, preview.PageSummary)
}

func TestPreviewInvoiceReverseChargeExcludesVATFromTotal(t *testing.T) {
	fx := newInvoiceServiceFixture()

	req := validSaveRequest()
	req.IsReverseCharge = true

	preview, err := fx.svc.PreviewInvoice(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "50.00", preview.ReverseChargeAmount)
	assert.Equal(t, "0.00", preview.VATAmount)
	assert.Equal(t, "1000.00", preview.GrandTotal, "reverse-charged VAT is accounted by the customer")
}

func TestPreviewInvoiceAppliesDiscountBeforeVAT(t *testing.T) {
	fx := newInvoiceServiceFixture()

	req := validSaveRequest()
	req.DiscountType = billing.DiscountPercentage
	req.DiscountPercentage = "10"

	preview, err := fx.svc.PreviewInvoice(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "100.00", preview.DiscountValue)
	assert.Equal(t, "45.00", preview.VATAmount, "VAT scales with the post-discount base")
	assert.Equal(t, "945.00", preview.GrandTotal)
}

func TestPlanUsesTemplateCapacityOverrides(t *testing.T) {
	fx := newInvoiceServiceFixture()
	fx.templates.defaultTemplate = &model.TemplateSettings{
		ItemsPerFirstPage:      4,
		ItemsPerSubsequentPage: 6,
		IsDefault:              true,
	}

	req := validSaveRequest()
	req.Items = nil
	for i := 0; i < 12; i++ {
		req.Items = append(req.Items, LineItemInput{
			Name:     fmt.Sprintf("Coil %d", i+1),
			Quantity: 1,
			Rate:     "50",
		})
	}

	resp, err := fx.svc.CreateInvoice(context.Background(), req, "")
	require.NoError(t, err)

	assert.Equal(t, 3, resp.Pagination.Pages) // 4 + 6 + 2
	assert.Equal(t, []int{4, 6, 2}, resp.Pagination.ItemsPerPage)
}
