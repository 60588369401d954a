package service

import (
	"context"
	"fmt"
	"time"

	"billing/internal/billing"
	"billing/internal/model"

	"gorm.io/gorm"
)

// --- DTOs ---

type RevenueDataPoint struct {
	Period        string `json:"period"`
	InvoiceCount  int64  `json:"invoice_count"`
	TotalInvoiced string `json:"total_invoiced"`
	TotalVAT      string `json:"total_vat"`
	TotalCharges  string `json:"total_charges"`
	TotalPaid     string `json:"total_paid"`
}

type RevenueFilter struct {
	GroupBy   string // week, month, quarter, year
	StartDate string // RFC3339
	EndDate   string // RFC3339
}

// VATReturnResponse is the box summary for a UAE VAT return period: output
// VAT charged on issued invoices, reverse-charged VAT accounted by customers,
// and recoverable input VAT from expenses.
type VATReturnResponse struct {
	From             string `json:"from"`
	To               string `json:"to"`
	OutputVAT        string `json:"output_vat"`
	ReverseChargeVAT string `json:"reverse_charge_vat"`
	InputVAT         string `json:"input_vat"`
	NetPayable       string `json:"net_payable"`
}

type AgingBucket struct {
	Label  string `json:"label"` // current, 1-30, 31-60, 61-90, 90+
	Count  int64  `json:"count"`
	Amount string `json:"amount"`
}

type ReceivablesAgingResponse struct {
	AsOf    string        `json:"as_of"`
	Total   string        `json:"total"`
	Buckets []AgingBucket `json:"buckets"`
}

type DashboardResponse struct {
	DraftCount       int64  `json:"draft_count"`
	ProformaCount    int64  `json:"proforma_count"`
	IssuedCount      int64  `json:"issued_count"`
	UnpaidTotal      string `json:"unpaid_total"`
	OverdueCount     int64  `json:"overdue_count"`
	IssuedThisMonth  string `json:"issued_this_month"`
	VATThisMonth     string `json:"vat_this_month"`
}

// --- Interface ---

type StatisticsService interface {
	GetRevenueStatistics(ctx context.Context, filter RevenueFilter) ([]RevenueDataPoint, error)
	GetVATReturn(ctx context.Context, from, to string) (VATReturnResponse, error)
	GetReceivablesAging(ctx context.Context, asOf time.Time) (ReceivablesAgingResponse, error)
	GetDashboard(ctx context.Context, now time.Time) (DashboardResponse, error)
}

type statisticsService struct {
	db *gorm.DB
}

func NewStatisticsService(db *gorm.DB) StatisticsService {
	return &statisticsService{db: db}
}

// --- Implementation ---

// GetRevenueStatistics aggregates issued invoices into time brackets. Drafts
// and proformas carry no revenue and are excluded.
func (s *statisticsService) GetRevenueStatistics(ctx context.Context, filter RevenueFilter) ([]RevenueDataPoint, error) {
	groupBy := filter.GroupBy
	switch groupBy {
	case "week", "month", "quarter", "year":
		// valid
	default:
		groupBy = "month"
	}

	query := `
		SELECT
			TO_CHAR(DATE_TRUNC($1, i.issued_at), 'YYYY-MM-DD') AS period,
			COUNT(*) AS invoice_count,
			COALESCE(SUM(i.grand_total), 0) AS total_invoiced,
			COALESCE(SUM(i.vat_amount), 0) AS total_vat,
			COALESCE(SUM(i.packing_charges + i.freight_charges + i.insurance_charges + i.loading_charges + i.other_charges), 0) AS total_charges,
			COALESCE(SUM(i.paid_amount), 0) AS total_paid
		FROM invoices i
		WHERE i.status = $4
		  AND i.deleted_at IS NULL
		  AND i.issued_at >= $2::timestamptz
		  AND i.issued_at <= $3::timestamptz
		GROUP BY DATE_TRUNC($1, i.issued_at)
		ORDER BY period
	`

	type rawResult struct {
		Period        string  `gorm:"column:period"`
		InvoiceCount  int64   `gorm:"column:invoice_count"`
		TotalInvoiced float64 `gorm:"column:total_invoiced"`
		TotalVAT      float64 `gorm:"column:total_vat"`
		TotalCharges  float64 `gorm:"column:total_charges"`
		TotalPaid     float64 `gorm:"column:total_paid"`
	}

	var rows []rawResult
	if err := s.db.WithContext(ctx).Raw(query,
		groupBy,
		filter.StartDate,
		filter.EndDate,
		billing.StatusIssued,
	).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query revenue statistics: %w", err)
	}

	result := make([]RevenueDataPoint, 0, len(rows))
	for _, r := range rows {
		result = append(result, RevenueDataPoint{
			Period:        r.Period,
			InvoiceCount:  r.InvoiceCount,
			TotalInvoiced: fmt.Sprintf("%.2f", r.TotalInvoiced),
			TotalVAT:      fmt.Sprintf("%.2f", r.TotalVAT),
			TotalCharges:  fmt.Sprintf("%.2f", r.TotalCharges),
			TotalPaid:     fmt.Sprintf("%.2f", r.TotalPaid),
		})
	}

	return result, nil
}

func (s *statisticsService) GetVATReturn(ctx context.Context, from, to string) (VATReturnResponse, error) {
	fromDate, err := time.Parse("2006-01-02", from)
	if err != nil {
		return VATReturnResponse{}, fmt.Errorf("invalid from date: %w", err)
	}
	toDate, err := time.Parse("2006-01-02", to)
	if err != nil {
		return VATReturnResponse{}, fmt.Errorf("invalid to date: %w", err)
	}

	var output struct {
		OutputVAT        float64
		ReverseChargeVAT float64
	}
	err = s.db.WithContext(ctx).Model(&model.Invoice{}).
		Select(`COALESCE(SUM(vat_amount + packing_charges_vat + freight_charges_vat + insurance_charges_vat + loading_charges_vat + other_charges_vat), 0) AS output_vat,
			COALESCE(SUM(reverse_charge_amount), 0) AS reverse_charge_vat`).
		Where("status = ? AND issued_at >= ? AND issued_at <= ?", billing.StatusIssued, fromDate, toDate.AddDate(0, 0, 1)).
		Scan(&output).Error
	if err != nil {
		return VATReturnResponse{}, fmt.Errorf("failed to sum output vat: %w", err)
	}

	var input struct {
		InputVAT float64
	}
	err = s.db.WithContext(ctx).Model(&model.Expense{}).
		Select("COALESCE(SUM(vat_amount), 0) AS input_vat").
		Where("is_vat_recoverable = true AND expense_date >= ? AND expense_date <= ?", fromDate, toDate).
		Scan(&input).Error
	if err != nil {
		return VATReturnResponse{}, fmt.Errorf("failed to sum input vat: %w", err)
	}

	return VATReturnResponse{
		From:             from,
		To:               to,
		OutputVAT:        fmt.Sprintf("%.2f", output.OutputVAT),
		ReverseChargeVAT: fmt.Sprintf("%.2f", output.ReverseChargeVAT),
		InputVAT:         fmt.Sprintf("%.2f", input.InputVAT),
		NetPayable:       fmt.Sprintf("%.2f", output.OutputVAT-input.InputVAT),
	}, nil
}

func (s *statisticsService) GetReceivablesAging(ctx context.Context, asOf time.Time) (ReceivablesAgingResponse, error) {
	query := `
		SELECT
			CASE
				WHEN i.due_date IS NULL OR i.due_date >= $1::date THEN 'current'
				WHEN $1::date - i.due_date <= 30 THEN '1-30'
				WHEN $1::date - i.due_date <= 60 THEN '31-60'
				WHEN $1::date - i.due_date <= 90 THEN '61-90'
				ELSE '90+'
			END AS label,
			COUNT(*) AS count,
			COALESCE(SUM(i.grand_total - i.paid_amount), 0) AS amount
		FROM invoices i
		WHERE i.status = $2
		  AND i.payment_status != $3
		  AND i.deleted_at IS NULL
		GROUP BY 1
	`

	type rawBucket struct {
		Label  string  `gorm:"column:label"`
		Count  int64   `gorm:"column:count"`
		Amount float64 `gorm:"column:amount"`
	}

	var rows []rawBucket
	if err := s.db.WithContext(ctx).Raw(query, asOf.Format("2006-01-02"), billing.StatusIssued, model.PaymentPaid).
		Scan(&rows).Error; err != nil {
		return ReceivablesAgingResponse{}, fmt.Errorf("failed to query receivables aging: %w", err)
	}

	byLabel := make(map[string]rawBucket, len(rows))
	total := 0.0
	for _, r := range rows {
		byLabel[r.Label] = r
		total += r.Amount
	}

	resp := ReceivablesAgingResponse{
		AsOf:  asOf.Format("2006-01-02"),
		Total: fmt.Sprintf("%.2f", total),
	}
	for _, label := range []string{"current", "1-30", "31-60", "61-90", "90+"} {
		b := byLabel[label]
		resp.Buckets = append(resp.Buckets, AgingBucket{
			Label:  label,
			Count:  b.Count,
			Amount: fmt.Sprintf("%.2f", b.Amount),
		})
	}
	return resp, nil
}

func (s *statisticsService) GetDashboard(ctx context.Context, now time.Time) (DashboardResponse, error) {
	var resp DashboardResponse
	db := s.db.WithContext(ctx)

	countByStatus := func(status billing.Status) (int64, error) {
		var n int64
		err := db.Model(&model.Invoice{}).Where("status = ?", status).Count(&n).Error
		return n, err
	}

	var err error
	if resp.DraftCount, err = countByStatus(billing.StatusDraft); err != nil {
		return resp, fmt.Errorf("failed to count drafts: %w", err)
	}
	if resp.ProformaCount, err = countByStatus(billing.StatusProforma); err != nil {
		return resp, fmt.Errorf("failed to count proformas: %w", err)
	}
	if resp.IssuedCount, err = countByStatus(billing.StatusIssued); err != nil {
		return resp, fmt.Errorf("failed to count issued: %w", err)
	}

	var unpaid struct{ Total float64 }
	if err := db.Model(&model.Invoice{}).
		Select("COALESCE(SUM(grand_total - paid_amount), 0) AS total").
		Where("status = ? AND payment_status != ?", billing.StatusIssued, model.PaymentPaid).
		Scan(&unpaid).Error; err != nil {
		return resp, fmt.Errorf("failed to sum unpaid: %w", err)
	}
	resp.UnpaidTotal = fmt.Sprintf("%.2f", unpaid.Total)

	if err := db.Model(&model.Invoice{}).
		Where("status = ? AND payment_status != ? AND due_date < ?", billing.StatusIssued, model.PaymentPaid, now).
		Count(&resp.OverdueCount).Error; err != nil {
		return resp, fmt.Errorf("failed to count overdue: %w", err)
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	var month struct {
		Invoiced float64
		VAT      float64
	}
	if err := db.Model(&model.Invoice{}).
		Select("COALESCE(SUM(grand_total), 0) AS invoiced, COALESCE(SUM(vat_amount), 0) AS vat").
		Where("status = ? AND issued_at >= ?", billing.StatusIssued, monthStart).
		Scan(&month).Error; err != nil {
		return resp, fmt.Errorf("failed to sum month figures: %w", err)
	}
	resp.IssuedThisMonth = fmt.Sprintf("%.2f", month.Invoiced)
	resp.VATThisMonth = fmt.Sprintf("%.2f", month.VAT)

	return resp, nil
}
