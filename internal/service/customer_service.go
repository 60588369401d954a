package service

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"billing/internal/model"
	"billing/internal/repository"

	"github.com/google/uuid"
)

// --- Address DTO ---

type AddressPayload struct {
	AddressType string `json:"address_type"`
	FullAddress string `json:"full_address"`
	IsDefault   bool   `json:"is_default"`
}

type AddressResponse struct {
	ID          uuid.UUID `json:"id"`
	CustomerID  uuid.UUID `json:"customer_id"`
	AddressType string    `json:"address_type"`
	FullAddress string    `json:"full_address"`
	IsDefault   bool      `json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// --- Customer DTOs ---

type CreateCustomerRequest struct {
	Name          string           `json:"name" binding:"required"`
	CompanyName   string           `json:"company_name"`
	TRN           string           `json:"trn"`
	ContactPerson string           `json:"contact_person"`
	Phone         string           `json:"phone"`
	Email         string           `json:"email"`
	CreditLimit   float64          `json:"credit_limit"`
	Addresses     []AddressPayload `json:"addresses"`
}

type UpdateCustomerRequest struct {
	Name          *string           `json:"name"`
	CompanyName   *string           `json:"company_name"`
	TRN           *string           `json:"trn"`
	ContactPerson *string           `json:"contact_person"`
	Phone         *string           `json:"phone"`
	Email         *string           `json:"email"`
	CreditLimit   *float64          `json:"credit_limit"`
	IsActive      *bool             `json:"is_active"`
	Addresses     *[]AddressPayload `json:"addresses"` // pointer so nil = not sent, [] = clear all
}

type CustomerResponse struct {
	ID            uuid.UUID         `json:"id"`
	Name          string            `json:"name"`
	CompanyName   string            `json:"company_name"`
	TRN           string            `json:"trn"`
	ContactPerson string            `json:"contact_person"`
	Phone         string            `json:"phone"`
	Email         string            `json:"email"`
	CreditLimit   float64           `json:"credit_limit"`
	IsActive      bool              `json:"is_active"`
	Addresses     []AddressResponse `json:"addresses"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// --- Interface ---

type CustomerService interface {
	CreateCustomer(ctx context.Context, req CreateCustomerRequest, userID string) (CustomerResponse, error)
	UpdateCustomer(ctx context.Context, id string, req UpdateCustomerRequest, userID string) (CustomerResponse, error)
	DeleteCustomer(ctx context.Context, id string, userID string) error
	GetCustomer(ctx context.Context, id string) (CustomerResponse, error)
	GetCustomers(ctx context.Context, search string, page, limit int) ([]CustomerResponse, int64, error)
}

// --- Implementation ---

type customerService struct {
	customerRepo repository.CustomerRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
}

func NewCustomerService(customerRepo repository.CustomerRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager) CustomerService {
	return &customerService{customerRepo: customerRepo, auditRepo: auditRepo, txManager: txManager}
}

// --- Validation helpers ---

var validAddressTypes = map[string]bool{
	model.AddressTypeBilling:  true,
	model.AddressTypeDelivery: true,
}

func validateAddresses(addresses []AddressPayload) error {
	for i, addr := range addresses {
		if !validAddressTypes[addr.AddressType] {
			return fmt.Errorf("addresses[%d]: address_type must be one of: BILLING, DELIVERY", i)
		}
		if addr.FullAddress == "" {
			return fmt.Errorf("addresses[%d]: full_address is required", i)
		}
	}
	return nil
}

func toAddressModels(customerID uuid.UUID, payloads []AddressPayload) []model.CustomerAddress {
	addresses := make([]model.CustomerAddress, 0, len(payloads))
	for _, p := range payloads {
		addresses = append(addresses, model.CustomerAddress{
			CustomerID:  customerID,
			AddressType: p.AddressType,
			FullAddress: p.FullAddress,
			IsDefault:   p.IsDefault,
		})
	}
	return addresses
}

// --- CRUD ---

func (s *customerService) CreateCustomer(ctx context.Context, req CreateCustomerRequest, userID string) (CustomerResponse, error) {
	if req.Name == "" {
		return CustomerResponse{}, fmt.Errorf("name is required")
	}
	if req.Email != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			return CustomerResponse{}, fmt.Errorf("invalid email format")
		}
	}
	if err := validateAddresses(req.Addresses); err != nil {
		return CustomerResponse{}, err
	}

	customer := &model.Customer{
		Name:          req.Name,
		CompanyName:   req.CompanyName,
		TRN:           req.TRN,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
		CreditLimit:   req.CreditLimit,
		IsActive:      true,
		Addresses:     toAddressModels(uuid.Nil, req.Addresses), // GORM fills CustomerID on cascade create
	}

	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return CustomerResponse{}, fmt.Errorf("failed to create customer: %w", err)
	}

	s.writeAudit(ctx, userID, model.ActionCreateCustomer, customer)
	return toCustomerResponse(*customer), nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, id string, req UpdateCustomerRequest, userID string) (CustomerResponse, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return CustomerResponse{}, fmt.Errorf("invalid customer ID")
	}

	customer, err := s.customerRepo.FindByID(ctx, uid)
	if err != nil {
		return CustomerResponse{}, fmt.Errorf("customer not found: %w", err)
	}

	if req.Name != nil {
		if *req.Name == "" {
			return CustomerResponse{}, fmt.Errorf("name cannot be empty")
		}
		customer.Name = *req.Name
	}
	if req.Email != nil && *req.Email != "" {
		if _, err := mail.ParseAddress(*req.Email); err != nil {
			return CustomerResponse{}, fmt.Errorf("invalid email format")
		}
		customer.Email = *req.Email
	} else if req.Email != nil {
		customer.Email = ""
	}
	if req.CompanyName != nil {
		customer.CompanyName = *req.CompanyName
	}
	if req.TRN != nil {
		customer.TRN = *req.TRN
	}
	if req.ContactPerson != nil {
		customer.ContactPerson = *req.ContactPerson
	}
	if req.Phone != nil {
		customer.Phone = *req.Phone
	}
	if req.CreditLimit != nil {
		customer.CreditLimit = *req.CreditLimit
	}
	if req.IsActive != nil {
		customer.IsActive = *req.IsActive
	}

	if req.Addresses != nil {
		if err := validateAddresses(*req.Addresses); err != nil {
			return CustomerResponse{}, err
		}
	}

	// Run update + address replacement in a transaction
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.customerRepo.Update(txCtx, customer); err != nil {
			return fmt.Errorf("failed to update customer: %w", err)
		}

		// Replace addresses if provided (delete-all + re-create strategy)
		if req.Addresses != nil {
			if err := s.customerRepo.DeleteAddressesByCustomerID(txCtx, uid); err != nil {
				return fmt.Errorf("failed to delete old addresses: %w", err)
			}
			newAddrs := toAddressModels(uid, *req.Addresses)
			if err := s.customerRepo.CreateAddresses(txCtx, newAddrs); err != nil {
				return fmt.Errorf("failed to create addresses: %w", err)
			}
			customer.Addresses = newAddrs
		}

		return nil
	})
	if err != nil {
		return CustomerResponse{}, err
	}

	s.writeAudit(ctx, userID, model.ActionUpdateCustomer, customer)
	return toCustomerResponse(*customer), nil
}

func (s *customerService) DeleteCustomer(ctx context.Context, id string, userID string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid customer ID")
	}

	customer, err := s.customerRepo.FindByID(ctx, uid)
	if err != nil {
		return fmt.Errorf("customer not found: %w", err)
	}

	if err := s.customerRepo.Delete(ctx, uid); err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}

	s.writeAudit(ctx, userID, model.ActionDeleteCustomer, customer)
	return nil
}

func (s *customerService) GetCustomer(ctx context.Context, id string) (CustomerResponse, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return CustomerResponse{}, fmt.Errorf("invalid customer ID")
	}

	customer, err := s.customerRepo.FindByID(ctx, uid)
	if err != nil {
		return CustomerResponse{}, fmt.Errorf("customer not found: %w", err)
	}

	return toCustomerResponse(*customer), nil
}

func (s *customerService) GetCustomers(ctx context.Context, search string, page, limit int) ([]CustomerResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	customers, total, err := s.customerRepo.List(ctx, search, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch customers: %w", err)
	}

	res := make([]CustomerResponse, 0, len(customers))
	for _, c := range customers {
		res = append(res, toCustomerResponse(c))
	}

	return res, total, nil
}

func (s *customerService) writeAudit(ctx context.Context, userID, action string, customer *model.Customer) {
	entry := &model.AuditLog{
		Action:     action,
		EntityID:   customer.ID.String(),
		EntityName: customer.Name,
	}
	if parsed, err := uuid.Parse(userID); err == nil {
		entry.UserID = &parsed
	}
	_ = s.auditRepo.Log(ctx, entry)
}

// --- Response mappers ---

func toCustomerResponse(c model.Customer) CustomerResponse {
	addresses := make([]AddressResponse, 0, len(c.Addresses))
	for _, a := range c.Addresses {
		addresses = append(addresses, AddressResponse{
			ID:          a.ID,
			CustomerID:  a.CustomerID,
			AddressType: a.AddressType,
			FullAddress: a.FullAddress,
			IsDefault:   a.IsDefault,
			CreatedAt:   a.CreatedAt,
			UpdatedAt:   a.UpdatedAt,
		})
	}

	return CustomerResponse{
		ID:            c.ID,
		Name:          c.Name,
		CompanyName:   c.CompanyName,
		TRN:           c.TRN,
		ContactPerson: c.ContactPerson,
		Phone:         c.Phone,
		Email:         c.Email,
		CreditLimit:   c.CreditLimit,
		IsActive:      c.IsActive,
		Addresses:     addresses,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}
