package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/hugh/go-warden/internal/database/models"
)

var ErrForbiddenRoleChange = errors.New("insufficient privilege for role change")

// ListAccountsInput narrows the admin account listing.
type ListAccountsInput struct {
	Page    int
	PerPage int
}

// UpdateAccountInput carries the admin-editable fields; nil means unchanged.
type UpdateAccountInput struct {
	Name     *string
	Role     *string
	IsActive *bool
}

// ListAccounts returns a page of accounts plus the total count.
func (s *Service) ListAccounts(ctx context.Context, input ListAccountsInput) ([]models.Account, int64, error) {
	if input.Page < 1 {
		input.Page = 1
	}
	if input.PerPage < 1 || input.PerPage > 100 {
		input.PerPage = 20
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Account{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var accounts []models.Account
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Offset((input.Page - 1) * input.PerPage).
		Limit(input.PerPage).
		Find(&accounts).Error
	if err != nil {
		return nil, 0, err
	}

	return accounts, total, nil
}

// UpdateAccount applies admin edits. The IsAdmin flag always follows the role
// so the two cannot drift. Superadmin accounts may only be edited by a
// superadmin actor, and only a superadmin may grant the superadmin role.
func (s *Service) UpdateAccount(ctx context.Context, actorRole string, id uuid.UUID, input UpdateAccountInput) (*models.Account, error) {
	account, err := s.GetAccountByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if account.Role == models.RoleSuperadmin && actorRole != models.RoleSuperadmin {
		return nil, ErrForbiddenRoleChange
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["name"] = *input.Name
		account.Name = *input.Name
	}
	if input.Role != nil {
		if *input.Role == models.RoleSuperadmin && actorRole != models.RoleSuperadmin {
			return nil, ErrForbiddenRoleChange
		}
		updates["role"] = *input.Role
		updates["is_admin"] = models.RoleIsAdmin(*input.Role)
		account.Role = *input.Role
		account.IsAdmin = models.RoleIsAdmin(*input.Role)
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
		account.IsActive = *input.IsActive
	}

	if len(updates) == 0 {
		return account, nil
	}

	if err := s.db.WithContext(ctx).Model(account).Updates(updates).Error; err != nil {
		return nil, err
	}

	return account, nil
}

// DeleteAccount soft-deletes an account. Superadmin accounts may only be
// deleted by a superadmin actor.
func (s *Service) DeleteAccount(ctx context.Context, actorRole string, id uuid.UUID) error {
	account, err := s.GetAccountByID(ctx, id)
	if err != nil {
		return err
	}

	if account.Role == models.RoleSuperadmin && actorRole != models.RoleSuperadmin {
		return ErrForbiddenRoleChange
	}

	return s.db.WithContext(ctx).Delete(account).Error
}
