package service

import (
	"context"
	"fmt"

	"billing/internal/model"
	"billing/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type CreateRoleRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"` // Permission UUIDs
}

type UpdateRoleRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type UpdateRolePermissionsRequest struct {
	PermissionIDs []string `json:"permission_ids" binding:"required"`
}

type RoleResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	IsSystem    bool                 `json:"is_system"`
	Permissions []PermissionResponse `json:"permissions"`
	CreatedAt   string               `json:"created_at"`
}

type PermissionResponse struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Name  string `json:"name"`
	Group string `json:"group"`
}

// --- Interface ---

type RoleService interface {
	ListRoles(ctx context.Context) ([]RoleResponse, error)
	GetRole(ctx context.Context, id string) (*RoleResponse, error)
	CreateRole(ctx context.Context, req CreateRoleRequest) (*RoleResponse, error)
	UpdateRole(ctx context.Context, id string, req UpdateRoleRequest) (*RoleResponse, error)
	DeleteRole(ctx context.Context, id string) error
	ListPermissions(ctx context.Context) ([]PermissionResponse, error)
	UpdateRolePermissions(ctx context.Context, roleID string, req UpdateRolePermissionsRequest) (*RoleResponse, error)
	GetPermissionsByRoleName(ctx context.Context, roleName string) ([]string, error)
	SeedDefaultRolesAndPermissions(ctx context.Context) error
}

type roleService struct {
	roleRepo  repository.RoleRepository
	txManager repository.TransactionManager
}

func NewRoleService(roleRepo repository.RoleRepository, txManager repository.TransactionManager) RoleService {
	return &roleService{roleRepo: roleRepo, txManager: txManager}
}

// --- Implementation ---

func (s *roleService) ListRoles(ctx context.Context) ([]RoleResponse, error) {
	roles, err := s.roleRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roles: %w", err)
	}

	res := make([]RoleResponse, 0, len(roles))
	for _, r := range roles {
		res = append(res, toRoleResponse(r))
	}
	return res, nil
}

func (s *roleService) GetRole(ctx context.Context, id string) (*RoleResponse, error) {
	roleID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid role id: %w", err)
	}

	role, err := s.roleRepo.FindByID(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("role not found: %w", err)
	}

	resp := toRoleResponse(*role)
	return &resp, nil
}

func (s *roleService) CreateRole(ctx context.Context, req CreateRoleRequest) (*RoleResponse, error) {
	role := model.Role{
		Name:        req.Name,
		Description: req.Description,
		IsSystem:    false,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.roleRepo.Create(txCtx, &role); err != nil {
			return fmt.Errorf("failed to create role: %w", err)
		}

		if len(req.Permissions) > 0 {
			permIDs, err := parsePermissionIDs(req.Permissions)
			if err != nil {
				return err
			}
			if err := s.roleRepo.UpdatePermissions(txCtx, role.ID, permIDs); err != nil {
				return fmt.Errorf("failed to assign permissions: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetRole(ctx, role.ID.String())
}

func (s *roleService) UpdateRole(ctx context.Context, id string, req UpdateRoleRequest) (*RoleResponse, error) {
	roleID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid role id: %w", err)
	}

	role, err := s.roleRepo.FindByID(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("role not found: %w", err)
	}

	role.Name = req.Name
	role.Description = req.Description

	if err := s.roleRepo.Update(ctx, role); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	return s.GetRole(ctx, id)
}

func (s *roleService) DeleteRole(ctx context.Context, id string) error {
	roleID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid role id: %w", err)
	}

	role, err := s.roleRepo.FindByID(ctx, roleID)
	if err != nil {
		return fmt.Errorf("role not found: %w", err)
	}

	if role.IsSystem {
		return fmt.Errorf("cannot delete system role '%s'", role.Name)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// Clear associations before deleting
		if err := s.roleRepo.UpdatePermissions(txCtx, roleID, nil); err != nil {
			return fmt.Errorf("failed to clear permissions: %w", err)
		}
		if err := s.roleRepo.Delete(txCtx, roleID); err != nil {
			return fmt.Errorf("failed to delete role: %w", err)
		}
		return nil
	})
}

func (s *roleService) ListPermissions(ctx context.Context) ([]PermissionResponse, error) {
	perms, err := s.roleRepo.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch permissions: %w", err)
	}

	res := make([]PermissionResponse, 0, len(perms))
	for _, p := range perms {
		res = append(res, toPermissionResponse(p))
	}
	return res, nil
}

func (s *roleService) UpdateRolePermissions(ctx context.Context, roleID string, req UpdateRolePermissionsRequest) (*RoleResponse, error) {
	id, err := uuid.Parse(roleID)
	if err != nil {
		return nil, fmt.Errorf("invalid role id: %w", err)
	}

	permIDs, err := parsePermissionIDs(req.PermissionIDs)
	if err != nil {
		return nil, err
	}

	if err := s.roleRepo.UpdatePermissions(ctx, id, permIDs); err != nil {
		return nil, fmt.Errorf("failed to update permissions: %w", err)
	}

	return s.GetRole(ctx, roleID)
}

func (s *roleService) GetPermissionsByRoleName(ctx context.Context, roleName string) ([]string, error) {
	codes, err := s.roleRepo.GetPermissionsByRoleName(ctx, roleName)
	if err != nil {
		return nil, fmt.Errorf("role '%s' not found: %w", roleName, err)
	}
	return codes, nil
}

// SeedDefaultRolesAndPermissions creates the default permissions and roles if not already present
func (s *roleService) SeedDefaultRolesAndPermissions(ctx context.Context) error {
	defaultPermissions := []model.Permission{
		{Code: "dashboard.read", Name: "View dashboard and statistics", Group: "dashboard"},
		{Code: "invoices.read", Name: "View invoices", Group: "invoices"},
		{Code: "invoices.write", Name: "Create and edit invoices", Group: "invoices"},
		{Code: "invoices.issue", Name: "Issue invoices", Group: "invoices"},
		{Code: "invoices.delete", Name: "Delete draft invoices", Group: "invoices"},
		{Code: "payments.write", Name: "Record payments", Group: "invoices"},
		{Code: "customers.read", Name: "View customers", Group: "customers"},
		{Code: "customers.write", Name: "Manage customers", Group: "customers"},
		{Code: "products.read", Name: "View product catalog", Group: "products"},
		{Code: "products.write", Name: "Manage product catalog", Group: "products"},
		{Code: "vat.read", Name: "View VAT rates", Group: "vat"},
		{Code: "vat.write", Name: "Manage VAT rates", Group: "vat"},
		{Code: "expenses.read", Name: "View expenses", Group: "expenses"},
		{Code: "expenses.write", Name: "Record expenses", Group: "expenses"},
		{Code: "templates.read", Name: "View print templates", Group: "templates"},
		{Code: "templates.write", Name: "Manage print templates", Group: "templates"},
		{Code: "reports.read", Name: "View financial reports", Group: "reports"},
		{Code: "users.read", Name: "View users", Group: "users"},
		{Code: "users.write", Name: "Manage users", Group: "users"},
		{Code: "users.delete", Name: "Delete users", Group: "users"},
		{Code: "audit.read", Name: "View audit trail", Group: "audit"},
		{Code: "roles.manage", Name: "Manage roles and permissions", Group: "roles"},
	}

	for i := range defaultPermissions {
		if err := s.roleRepo.FindOrCreatePermission(ctx, &defaultPermissions[i]); err != nil {
			return fmt.Errorf("failed to seed permission '%s': %w", defaultPermissions[i].Code, err)
		}
	}

	permByCode := make(map[string]model.Permission, len(defaultPermissions))
	for _, p := range defaultPermissions {
		permByCode[p.Code] = p
	}

	roleDefinitions := map[string]struct {
		Description string
		PermCodes   []string
	}{
		"admin": {
			Description: "Administrator with full system access",
			PermCodes: []string{
				"dashboard.read",
				"invoices.read", "invoices.write", "invoices.issue", "invoices.delete", "payments.write",
				"customers.read", "customers.write",
				"products.read", "products.write",
				"vat.read", "vat.write",
				"expenses.read", "expenses.write",
				"templates.read", "templates.write",
				"reports.read",
				"users.read", "users.write", "users.delete",
				"audit.read", "roles.manage",
			},
		},
		"accountant": {
			Description: "Issues invoices, records payments and expenses, files VAT returns",
			PermCodes: []string{
				"dashboard.read",
				"invoices.read", "invoices.write", "invoices.issue", "payments.write",
				"customers.read",
				"products.read",
				"vat.read", "vat.write",
				"expenses.read", "expenses.write",
				"templates.read",
				"reports.read",
				"audit.read",
			},
		},
		"sales": {
			Description: "Prepares drafts and proformas, manages customers",
			PermCodes: []string{
				"dashboard.read",
				"invoices.read", "invoices.write",
				"customers.read", "customers.write",
				"products.read",
				"templates.read",
			},
		},
	}

	for roleName, def := range roleDefinitions {
		role, err := s.roleRepo.FindByName(ctx, roleName)
		if err != nil {
			role = &model.Role{
				Name:        roleName,
				Description: def.Description,
				IsSystem:    true,
			}
			if createErr := s.roleRepo.Create(ctx, role); createErr != nil {
				return fmt.Errorf("failed to seed role '%s': %w", roleName, createErr)
			}
		}

		permIDs := make([]uuid.UUID, 0, len(def.PermCodes))
		for _, code := range def.PermCodes {
			if p, ok := permByCode[code]; ok {
				permIDs = append(permIDs, p.ID)
			}
		}
		if err := s.roleRepo.UpdatePermissions(ctx, role.ID, permIDs); err != nil {
			return fmt.Errorf("failed to assign permissions to role '%s': %w", roleName, err)
		}
	}

	return nil
}

// --- Helpers ---

func parsePermissionIDs(ids []string) ([]uuid.UUID, error) {
	permIDs := make([]uuid.UUID, 0, len(ids))
	for _, pid := range ids {
		parsed, err := uuid.Parse(pid)
		if err != nil {
			return nil, fmt.Errorf("invalid permission id '%s': %w", pid, err)
		}
		permIDs = append(permIDs, parsed)
	}
	return permIDs, nil
}

func toRoleResponse(r model.Role) RoleResponse {
	perms := make([]PermissionResponse, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		perms = append(perms, toPermissionResponse(p))
	}

	return RoleResponse{
		ID:          r.ID.String(),
		Name:        r.Name,
		Description: r.Description,
		IsSystem:    r.IsSystem,
		Permissions: perms,
		CreatedAt:   r.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func toPermissionResponse(p model.Permission) PermissionResponse {
	return PermissionResponse{
		ID:    p.ID.String(),
		Code:  p.Code,
		Name:  p.Name,
		Group: p.Group,
	}
}
