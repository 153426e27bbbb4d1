package dto

import "github.com/hugh/go-warden/internal/api/validation"

type StartRegisterRequest struct {
	Email string `json:"email"`
}

func (r StartRegisterRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	} else if !validation.IsValidEmail(r.Email) {
		errors["email"] = "Email is invalid"
	}

	return errors
}

type CompleteRegisterRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (r CompleteRegisterRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Name == "" {
		errors["name"] = "Name is required"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	} else if !validation.IsStrongPassword(r.Password) {
		errors["password"] = "Password must be at least 8 characters with a letter and a digit"
	}

	return errors
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	}

	return errors
}

type GoogleLoginRequest struct {
	IDToken string `json:"id_token"`
}

func (r GoogleLoginRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.IDToken == "" {
		errors["id_token"] = "ID token is required"
	}

	return errors
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

func (r ForgotPasswordRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	} else if !validation.IsValidEmail(r.Email) {
		errors["email"] = "Email is invalid"
	}

	return errors
}

type ResetPasswordRequest struct {
	Password string `json:"password"`
}

func (r ResetPasswordRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Password == "" {
		errors["password"] = "Password is required"
	} else if !validation.IsStrongPassword(r.Password) {
		errors["password"] = "Password must be at least 8 characters with a letter and a digit"
	}

	return errors
}

type UpdateProfileRequest struct {
	Name string `json:"name"`
}

func (r UpdateProfileRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Name == "" {
		errors["name"] = "Name is required"
	}

	return errors
}

type AuthResponse struct {
	Token   string     `json:"token"`
	Account AccountDTO `json:"account"`
}

type AccountDTO struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	IsAdmin       bool   `json:"is_admin"`
	IsActive      bool   `json:"is_active"`
	EmailVerified bool   `json:"email_verified"`
	RegisteredAt  *int64 `json:"registered_at,omitempty"`
	LastLoginAt   *int64 `json:"last_login_at,omitempty"`
	CreatedAt     string `json:"created_at"`
}
