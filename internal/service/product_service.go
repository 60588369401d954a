package service

import (
	"context"
	"fmt"
	"time"

	"billing/internal/model"
	"billing/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type SaveProductRequest struct {
	SKU        string `json:"sku" binding:"required"`
	Name       string `json:"name" binding:"required"`
	Category   string `json:"category"`
	Unit       string `json:"unit"`
	UnitPrice  string `json:"unit_price" binding:"required"`
	SupplyType string `json:"supply_type" binding:"omitempty,oneof=standard zero_rated exempt"`
	IsActive   *bool  `json:"is_active"`
}

type ProductResponse struct {
	ID         string `json:"id"`
	SKU        string `json:"sku"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	Unit       string `json:"unit"`
	UnitPrice  string `json:"unit_price"`
	SupplyType string `json:"supply_type"`
	IsActive   bool   `json:"is_active"`
	CreatedAt  string `json:"created_at"`
}

// --- Interface ---

type ProductService interface {
	CreateProduct(ctx context.Context, req SaveProductRequest) (ProductResponse, error)
	UpdateProduct(ctx context.Context, id string, req SaveProductRequest) (ProductResponse, error)
	DeleteProduct(ctx context.Context, id string) error
	GetProduct(ctx context.Context, id string) (ProductResponse, error)
	GetProducts(ctx context.Context, search, category string, page, limit int) ([]ProductResponse, int64, error)
}

type productService struct {
	productRepo repository.ProductRepository
}

func NewProductService(productRepo repository.ProductRepository) ProductService {
	return &productService{productRepo: productRepo}
}

// --- Implementation ---

func (s *productService) CreateProduct(ctx context.Context, req SaveProductRequest) (ProductResponse, error) {
	product, err := buildProduct(req, nil)
	if err != nil {
		return ProductResponse{}, err
	}

	if _, err := s.productRepo.FindBySKU(ctx, req.SKU); err == nil {
		return ProductResponse{}, fmt.Errorf("a product with sku '%s' already exists", req.SKU)
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return ProductResponse{}, fmt.Errorf("failed to create product: %w", err)
	}
	return toProductResponse(*product), nil
}

func (s *productService) UpdateProduct(ctx context.Context, id string, req SaveProductRequest) (ProductResponse, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return ProductResponse{}, fmt.Errorf("invalid product id: %w", err)
	}

	existing, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return ProductResponse{}, fmt.Errorf("product not found: %w", err)
	}

	if req.SKU != existing.SKU {
		if _, skuErr := s.productRepo.FindBySKU(ctx, req.SKU); skuErr == nil {
			return ProductResponse{}, fmt.Errorf("a product with sku '%s' already exists", req.SKU)
		}
	}

	product, err := buildProduct(req, existing)
	if err != nil {
		return ProductResponse{}, err
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return ProductResponse{}, fmt.Errorf("failed to update product: %w", err)
	}
	return toProductResponse(*product), nil
}

func (s *productService) DeleteProduct(ctx context.Context, id string) error {
	productID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid product id: %w", err)
	}
	return s.productRepo.Delete(ctx, productID)
}

func (s *productService) GetProduct(ctx context.Context, id string) (ProductResponse, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return ProductResponse{}, fmt.Errorf("invalid product id: %w", err)
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return ProductResponse{}, fmt.Errorf("product not found: %w", err)
	}
	return toProductResponse(*product), nil
}

func (s *productService) GetProducts(ctx context.Context, search, category string, page, limit int) ([]ProductResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	products, total, err := s.productRepo.List(ctx, search, category, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch products: %w", err)
	}

	res := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		res = append(res, toProductResponse(p))
	}
	return res, total, nil
}

// --- Helpers ---

func buildProduct(req SaveProductRequest, existing *model.Product) (*model.Product, error) {
	unitPrice, err := decimal.NewFromString(req.UnitPrice)
	if err != nil {
		return nil, fmt.Errorf("invalid unit_price: %w", err)
	}
	if unitPrice.IsNegative() {
		return nil, fmt.Errorf("unit_price cannot be negative")
	}

	product := &model.Product{}
	if existing != nil {
		*product = *existing
	} else {
		product.IsActive = true
	}

	product.SKU = req.SKU
	product.Name = req.Name
	product.Category = req.Category
	product.UnitPrice = unitPrice

	if req.Unit != "" {
		product.Unit = req.Unit
	} else if product.Unit == "" {
		product.Unit = "ton"
	}
	if req.SupplyType != "" {
		product.SupplyType = req.SupplyType
	} else if product.SupplyType == "" {
		product.SupplyType = "standard"
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	return product, nil
}

func toProductResponse(p model.Product) ProductResponse {
	return ProductResponse{
		ID:         p.ID.String(),
		SKU:        p.SKU,
		Name:       p.Name,
		Category:   p.Category,
		Unit:       p.Unit,
		UnitPrice:  p.UnitPrice.StringFixed(2),
		SupplyType: p.SupplyType,
		IsActive:   p.IsActive,
		CreatedAt:  p.CreatedAt.Format(time.RFC3339),
	}
}
