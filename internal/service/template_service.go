package service

import (
	"context"
	"fmt"
	"time"

	"billing/internal/billing"
	"billing/internal/model"
	"billing/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type SaveTemplateRequest struct {
	Name string `json:"name" binding:"required"`

	MarginTop    float64 `json:"margin_top"`
	MarginBottom float64 `json:"margin_bottom"`
	FontSizePt   float64 `json:"font_size_pt"`

	ItemsPerFirstPage      int `json:"items_per_first_page"`
	ItemsPerSubsequentPage int `json:"items_per_subsequent_page"`

	ShowSignature *bool  `json:"show_signature"`
	FooterText    string `json:"footer_text"`
	TermsText     string `json:"terms_text"`
	IsDefault     bool   `json:"is_default"`
}

type TemplateResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	MarginTop    float64 `json:"margin_top"`
	MarginBottom float64 `json:"margin_bottom"`
	FontSizePt   float64 `json:"font_size_pt"`

	ItemsPerFirstPage      int `json:"items_per_first_page"`
	ItemsPerSubsequentPage int `json:"items_per_subsequent_page"`

	ShowSignature bool   `json:"show_signature"`
	FooterText    string `json:"footer_text"`
	TermsText     string `json:"terms_text"`
	IsDefault     bool   `json:"is_default"`
	CreatedAt     string `json:"created_at"`

	// Effective capacities after applying overrides to the A4 policy, plus a
	// sample plan so the settings screen can preview the layout.
	EffectiveFirstPage      int    `json:"effective_first_page"`
	EffectiveSubsequentPage int    `json:"effective_subsequent_page"`
	PreviewSummary          string `json:"preview_summary"`
}

// --- Interface ---

type TemplateService interface {
	CreateTemplate(ctx context.Context, req SaveTemplateRequest, userID string) (TemplateResponse, error)
	UpdateTemplate(ctx context.Context, id string, req SaveTemplateRequest, userID string) (TemplateResponse, error)
	DeleteTemplate(ctx context.Context, id string) error
	GetTemplates(ctx context.Context) ([]TemplateResponse, error)
	SetDefaultTemplate(ctx context.Context, id string, userID string) (TemplateResponse, error)
}

type templateService struct {
	templateRepo repository.TemplateRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
}

func NewTemplateService(
	templateRepo repository.TemplateRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) TemplateService {
	return &templateService{
		templateRepo: templateRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
	}
}

// --- Implementation ---

func (s *templateService) CreateTemplate(ctx context.Context, req SaveTemplateRequest, userID string) (TemplateResponse, error) {
	settings, err := buildTemplate(req, nil)
	if err != nil {
		return TemplateResponse{}, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if settings.IsDefault {
			if clearErr := s.templateRepo.ClearDefault(txCtx); clearErr != nil {
				return fmt.Errorf("failed to clear default template: %w", clearErr)
			}
		}
		if createErr := s.templateRepo.Create(txCtx, settings); createErr != nil {
			return fmt.Errorf("failed to create template: %w", createErr)
		}
		s.writeAudit(txCtx, userID, settings)
		return nil
	})
	if err != nil {
		return TemplateResponse{}, err
	}

	return toTemplateResponse(*settings), nil
}

func (s *templateService) UpdateTemplate(ctx context.Context, id string, req SaveTemplateRequest, userID string) (TemplateResponse, error) {
	templateID, err := uuid.Parse(id)
	if err != nil {
		return TemplateResponse{}, fmt.Errorf("invalid template id: %w", err)
	}

	existing, err := s.templateRepo.FindByID(ctx, templateID)
	if err != nil {
		return TemplateResponse{}, fmt.Errorf("template not found: %w", err)
	}

	settings, err := buildTemplate(req, existing)
	if err != nil {
		return TemplateResponse{}, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if settings.IsDefault && !existing.IsDefault {
			if clearErr := s.templateRepo.ClearDefault(txCtx); clearErr != nil {
				return fmt.Errorf("failed to clear default template: %w", clearErr)
			}
		}
		if updateErr := s.templateRepo.Update(txCtx, settings); updateErr != nil {
			return fmt.Errorf("failed to update template: %w", updateErr)
		}
		s.writeAudit(txCtx, userID, settings)
		return nil
	})
	if err != nil {
		return TemplateResponse{}, err
	}

	return toTemplateResponse(*settings), nil
}

func (s *templateService) DeleteTemplate(ctx context.Context, id string) error {
	templateID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid template id: %w", err)
	}

	settings, err := s.templateRepo.FindByID(ctx, templateID)
	if err != nil {
		return fmt.Errorf("template not found: %w", err)
	}
	if settings.IsDefault {
		return fmt.Errorf("the default template cannot be deleted; mark another template as default first")
	}

	return s.templateRepo.Delete(ctx, templateID)
}

func (s *templateService) GetTemplates(ctx context.Context) ([]TemplateResponse, error) {
	templates, err := s.templateRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch templates: %w", err)
	}

	res := make([]TemplateResponse, 0, len(templates))
	for _, t := range templates {
		res = append(res, toTemplateResponse(t))
	}
	return res, nil
}

func (s *templateService) SetDefaultTemplate(ctx context.Context, id string, userID string) (TemplateResponse, error) {
	templateID, err := uuid.Parse(id)
	if err != nil {
		return TemplateResponse{}, fmt.Errorf("invalid template id: %w", err)
	}

	settings, err := s.templateRepo.FindByID(ctx, templateID)
	if err != nil {
		return TemplateResponse{}, fmt.Errorf("template not found: %w", err)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if clearErr := s.templateRepo.ClearDefault(txCtx); clearErr != nil {
			return fmt.Errorf("failed to clear default template: %w", clearErr)
		}
		settings.IsDefault = true
		if updateErr := s.templateRepo.Update(txCtx, settings); updateErr != nil {
			return fmt.Errorf("failed to set default template: %w", updateErr)
		}
		s.writeAudit(txCtx, userID, settings)
		return nil
	})
	if err != nil {
		return TemplateResponse{}, err
	}

	return toTemplateResponse(*settings), nil
}

// --- Helpers ---

func buildTemplate(req SaveTemplateRequest, existing *model.TemplateSettings) (*model.TemplateSettings, error) {
	if req.MarginTop < 0 || req.MarginBottom < 0 || req.FontSizePt < 0 {
		return nil, fmt.Errorf("layout dimensions cannot be negative")
	}
	if req.ItemsPerFirstPage < 0 || req.ItemsPerSubsequentPage < 0 {
		return nil, fmt.Errorf("page capacities cannot be negative")
	}

	settings := &model.TemplateSettings{}
	if existing != nil {
		*settings = *existing
	} else {
		settings.ShowSignature = true
	}

	settings.Name = req.Name
	settings.MarginTop = req.MarginTop
	settings.MarginBottom = req.MarginBottom
	settings.FontSizePt = req.FontSizePt
	settings.ItemsPerFirstPage = req.ItemsPerFirstPage
	settings.ItemsPerSubsequentPage = req.ItemsPerSubsequentPage
	settings.FooterText = req.FooterText
	settings.TermsText = req.TermsText
	settings.IsDefault = req.IsDefault
	if req.ShowSignature != nil {
		settings.ShowSignature = *req.ShowSignature
	}

	return settings, nil
}

// effectiveCapacities applies a template's overrides to the A4 layout policy.
func effectiveCapacities(t model.TemplateSettings) (int, int) {
	cfg := billing.DefaultPageConfig()
	if t.MarginTop > 0 {
		cfg.MarginTop = t.MarginTop
	}
	if t.MarginBottom > 0 {
		cfg.MarginBottom = t.MarginBottom
	}

	first := cfg.ItemsPerFirstPage()
	rest := cfg.ItemsPerSubsequentPage()
	if t.ItemsPerFirstPage > 0 {
		first = t.ItemsPerFirstPage
	}
	if t.ItemsPerSubsequentPage > 0 {
		rest = t.ItemsPerSubsequentPage
	}
	return first, rest
}

func toTemplateResponse(t model.TemplateSettings) TemplateResponse {
	first, rest := effectiveCapacities(t)
	// Preview with a 25-row sample document.
	preview := billing.PlanForCapacities(25, first, rest)

	return TemplateResponse{
		ID:   t.ID.String(),
		Name: t.Name,

		MarginTop:    t.MarginTop,
		MarginBottom: t.MarginBottom,
		FontSizePt:   t.FontSizePt,

		ItemsPerFirstPage:      t.ItemsPerFirstPage,
		ItemsPerSubsequentPage: t.ItemsPerSubsequentPage,

		ShowSignature: t.ShowSignature,
		FooterText:    t.FooterText,
		TermsText:     t.TermsText,
		IsDefault:     t.IsDefault,
		CreatedAt:     t.CreatedAt.Format(time.RFC3339),

		EffectiveFirstPage:      first,
		EffectiveSubsequentPage: rest,
		PreviewSummary:          billing.PaginationSummary(preview),
	}
}

func (s *templateService) writeAudit(ctx context.Context, userID string, settings *model.TemplateSettings) {
	entry := &model.AuditLog{
		Action:     model.ActionUpdateTemplate,
		EntityID:   settings.ID.String(),
		EntityName: settings.Name,
	}
	if parsed, err := uuid.Parse(userID); err == nil {
		entry.UserID = &parsed
	}
	_ = s.auditRepo.Log(ctx, entry)
}
