package dto

import "github.com/hugh/go-warden/internal/database/models"

// UpdateAccountRequest carries admin edits; omitted fields are unchanged.
type UpdateAccountRequest struct {
	Name     *string `json:"name,omitempty"`
	Role     *string `json:"role,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

func (r UpdateAccountRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Name != nil && *r.Name == "" {
		errors["name"] = "Name cannot be empty"
	}
	if r.Role != nil && !models.ValidRole(*r.Role) {
		errors["role"] = "Role must be user, admin, or superadmin"
	}

	return errors
}

// SweepRequest selects the sweep depth for a manual cleanup run. Async hands
// the sweep to the worker queue instead of running it in the request.
type SweepRequest struct {
	Deep  bool `json:"deep"`
	Async bool `json:"async"`
}
