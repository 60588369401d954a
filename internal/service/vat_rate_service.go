package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"billing/internal/billing"
	"billing/internal/model"
	"billing/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type SaveVATRateRequest struct {
	SupplyType    string `json:"supply_type" binding:"required,oneof=standard zero_rated exempt"`
	Rate          string `json:"rate" binding:"required"`           // percentage string, e.g. "5"
	EffectiveFrom string `json:"effective_from" binding:"required"` // YYYY-MM-DD
	EffectiveTo   string `json:"effective_to"`                      // YYYY-MM-DD, nullable
	Description   string `json:"description"`
}

type VATRateResponse struct {
	ID            string  `json:"id"`
	SupplyType    string  `json:"supply_type"`
	Rate          string  `json:"rate"`
	EffectiveFrom string  `json:"effective_from"`
	EffectiveTo   *string `json:"effective_to"`
	Description   string  `json:"description"`
	CreatedAt     string  `json:"created_at"`
}

type ActiveVATRateResponse struct {
	SupplyType string `json:"supply_type"`
	Rate       string `json:"rate"`
	RateID     string `json:"rate_id,omitempty"` // empty when falling back to the statutory default
}

// --- Interface ---

type VATRateService interface {
	GetVATRates(ctx context.Context, page, limit int) ([]VATRateResponse, int64, error)
	CreateVATRate(ctx context.Context, req SaveVATRateRequest, userID string) (VATRateResponse, error)
	UpdateVATRate(ctx context.Context, id string, req SaveVATRateRequest, userID string) (VATRateResponse, error)
	DeleteVATRate(ctx context.Context, id string, userID string) error
	GetActiveVATRate(ctx context.Context, supplyType string, targetDate time.Time) (ActiveVATRateResponse, error)
}

type vatRateService struct {
	vatRateRepo repository.VATRateRepository
	auditRepo   repository.AuditRepository
}

func NewVATRateService(vatRateRepo repository.VATRateRepository, auditRepo repository.AuditRepository) VATRateService {
	return &vatRateService{vatRateRepo: vatRateRepo, auditRepo: auditRepo}
}

// --- Implementation ---

func (s *vatRateService) GetVATRates(ctx context.Context, page, limit int) ([]VATRateResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}

	rates, total, err := s.vatRateRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch vat rates: %w", err)
	}

	res := make([]VATRateResponse, 0, len(rates))
	for _, r := range rates {
		res = append(res, toVATRateResponse(r))
	}
	return res, total, nil
}

func (s *vatRateService) CreateVATRate(ctx context.Context, req SaveVATRateRequest, userID string) (VATRateResponse, error) {
	rate, effectiveFrom, effectiveTo, err := parseVATRateFields(req.Rate, req.EffectiveFrom, req.EffectiveTo)
	if err != nil {
		return VATRateResponse{}, err
	}

	if err := s.checkOverlap(ctx, req.SupplyType, effectiveFrom, effectiveTo, nil); err != nil {
		return VATRateResponse{}, err
	}

	record := model.VATRate{
		SupplyType:    req.SupplyType,
		Rate:          rate,
		EffectiveFrom: effectiveFrom,
		EffectiveTo:   effectiveTo,
		Description:   req.Description,
	}

	if err := s.vatRateRepo.Create(ctx, &record); err != nil {
		return VATRateResponse{}, fmt.Errorf("failed to create vat rate: %w", err)
	}

	s.writeAudit(ctx, userID, model.ActionCreateVATRate, record.ID.String(), req.SupplyType+" "+rate.StringFixed(2)+"%", req)
	return toVATRateResponse(record), nil
}

func (s *vatRateService) UpdateVATRate(ctx context.Context, id string, req SaveVATRateRequest, userID string) (VATRateResponse, error) {
	rateID, err := uuid.Parse(id)
	if err != nil {
		return VATRateResponse{}, fmt.Errorf("invalid vat rate id: %w", err)
	}

	record, err := s.vatRateRepo.FindByID(ctx, rateID)
	if err != nil {
		return VATRateResponse{}, fmt.Errorf("vat rate not found: %w", err)
	}

	rate, effectiveFrom, effectiveTo, err := parseVATRateFields(req.Rate, req.EffectiveFrom, req.EffectiveTo)
	if err != nil {
		return VATRateResponse{}, err
	}

	if err := s.checkOverlap(ctx, req.SupplyType, effectiveFrom, effectiveTo, &rateID); err != nil {
		return VATRateResponse{}, err
	}

	record.SupplyType = req.SupplyType
	record.Rate = rate
	record.EffectiveFrom = effectiveFrom
	record.EffectiveTo = effectiveTo
	record.Description = req.Description

	if err := s.vatRateRepo.Update(ctx, record); err != nil {
		return VATRateResponse{}, fmt.Errorf("failed to update vat rate: %w", err)
	}

	s.writeAudit(ctx, userID, model.ActionUpdateVATRate, record.ID.String(), req.SupplyType+" "+rate.StringFixed(2)+"%", req)
	return toVATRateResponse(*record), nil
}

func (s *vatRateService) DeleteVATRate(ctx context.Context, id string, userID string) error {
	rateID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid vat rate id: %w", err)
	}

	record, err := s.vatRateRepo.FindByID(ctx, rateID)
	if err != nil {
		return fmt.Errorf("vat rate not found: %w", err)
	}

	if err := s.vatRateRepo.Delete(ctx, rateID); err != nil {
		return fmt.Errorf("failed to delete vat rate: %w", err)
	}

	s.writeAudit(ctx, userID, model.ActionDeleteVATRate, record.ID.String(), record.SupplyType+" "+record.Rate.StringFixed(2)+"%", map[string]string{"deleted_id": id})
	return nil
}

// GetActiveVATRate returns the configured rate covering the target date, or
// the statutory default when none is configured.
func (s *vatRateService) GetActiveVATRate(ctx context.Context, supplyType string, targetDate time.Time) (ActiveVATRateResponse, error) {
	record, err := s.vatRateRepo.FindActiveBySupplyType(ctx, supplyType, targetDate)
	if err != nil {
		return ActiveVATRateResponse{
			SupplyType: supplyType,
			Rate:       billing.DefaultVATRate(supplyType).StringFixed(2),
		}, nil
	}

	return ActiveVATRateResponse{
		SupplyType: record.SupplyType,
		Rate:       record.Rate.StringFixed(2),
		RateID:     record.ID.String(),
	}, nil
}

// --- Helpers ---

func parseVATRateFields(rateStr, fromStr, toStr string) (decimal.Decimal, time.Time, *time.Time, error) {
	rate, err := decimal.NewFromString(rateStr)
	if err != nil {
		return decimal.Zero, time.Time{}, nil, fmt.Errorf("invalid rate value: %w", err)
	}
	if rate.IsNegative() {
		return decimal.Zero, time.Time{}, nil, fmt.Errorf("rate cannot be negative")
	}

	effectiveFrom, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return decimal.Zero, time.Time{}, nil, fmt.Errorf("invalid effective_from date format (expected YYYY-MM-DD): %w", err)
	}

	var effectiveTo *time.Time
	if toStr != "" {
		t, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return decimal.Zero, time.Time{}, nil, fmt.Errorf("invalid effective_to date format (expected YYYY-MM-DD): %w", err)
		}
		if t.Before(effectiveFrom) {
			return decimal.Zero, time.Time{}, nil, fmt.Errorf("effective_to cannot precede effective_from")
		}
		effectiveTo = &t
	}

	return rate, effectiveFrom, effectiveTo, nil
}

func (s *vatRateService) checkOverlap(ctx context.Context, supplyType string, from time.Time, to *time.Time, excludeID *uuid.UUID) error {
	count, err := s.vatRateRepo.FindOverlapping(ctx, supplyType, from, to, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check overlap: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("a vat rate for '%s' already exists with overlapping effective dates", supplyType)
	}
	return nil
}

func toVATRateResponse(r model.VATRate) VATRateResponse {
	resp := VATRateResponse{
		ID:            r.ID.String(),
		SupplyType:    r.SupplyType,
		Rate:          r.Rate.StringFixed(2),
		EffectiveFrom: r.EffectiveFrom.Format("2006-01-02"),
		Description:   r.Description,
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
	}
	if r.EffectiveTo != nil {
		s := r.EffectiveTo.Format("2006-01-02")
		resp.EffectiveTo = &s
	}
	return resp
}

func (s *vatRateService) writeAudit(ctx context.Context, userID, action, entityID, entityName string, details interface{}) {
	detailsJSON, _ := json.Marshal(details)

	entry := &model.AuditLog{
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(detailsJSON),
	}
	if userID != "" {
		if parsed, err := uuid.Parse(userID); err == nil {
			entry.UserID = &parsed
		}
	}

	// Best-effort audit log, never fails the operation
	_ = s.auditRepo.Log(ctx, entry)
}
