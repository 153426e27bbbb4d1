package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/go-warden/internal/api/dto"
	"github.com/hugh/go-warden/internal/api/middleware"
	"github.com/hugh/go-warden/internal/api/validation"
	"github.com/hugh/go-warden/internal/auth"
	"github.com/hugh/go-warden/internal/database/models"
)

type AuthHandler struct {
	authService   *auth.Service
	sessionTTL    time.Duration
	secureCookies bool
}

func NewAuthHandler(authService *auth.Service, sessionTTL time.Duration, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		sessionTTL:    sessionTTL,
		secureCookies: secureCookies,
	}
}

func (h *AuthHandler) StartRegister(w http.ResponseWriter, r *http.Request) {
	var req dto.StartRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	if err := h.authService.StartRegistration(r.Context(), req.Email); err != nil {
		switch err {
		case auth.ErrEmailTaken:
			writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "Email is already in use"})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Registration failed"})
		}
		return
	}

	// The registration token travels by email only; the response confirms
	// receipt and nothing else.
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Registration started, check your email"})
}

func (h *AuthHandler) CompleteRegister(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if !validation.IsValidToken(token) {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid or expired token"})
		return
	}

	var req dto.CompleteRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	account, err := h.authService.CompleteRegistration(r.Context(), token, req.Name, req.Password)
	if err != nil {
		switch err {
		case auth.ErrTokenInvalid:
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid or expired token"})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Registration failed"})
		}
		return
	}

	resp, err := h.authService.IssueSession(account)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Registration failed"})
		return
	}

	h.setSessionCookie(w, resp.Token)
	writeJSON(w, http.StatusCreated, dto.AuthResponse{
		Token:   resp.Token,
		Account: toAccountDTO(resp.Account),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	resp, err := h.authService.Login(r.Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch err {
		case auth.ErrInvalidCredentials:
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Invalid credentials"})
		case auth.ErrEmailNotVerified:
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Email not verified"})
		case auth.ErrInactiveAccount:
			writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Account is inactive"})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Login failed"})
		}
		return
	}

	h.setSessionCookie(w, resp.Token)
	writeJSON(w, http.StatusOK, dto.AuthResponse{
		Token:   resp.Token,
		Account: toAccountDTO(resp.Account),
	})
}

func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.GoogleLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	resp, err := h.authService.GoogleLogin(r.Context(), req.IDToken)
	if err != nil {
		switch err {
		case auth.ErrInvalidGoogleToken:
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Invalid Google token"})
		case auth.ErrInactiveAccount:
			writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Account is inactive"})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Login failed"})
		}
		return
	}

	h.setSessionCookie(w, resp.Token)
	writeJSON(w, http.StatusOK, dto.AuthResponse{
		Token:   resp.Token,
		Account: toAccountDTO(resp.Account),
	})
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if !validation.IsValidToken(token) {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid or expired token"})
		return
	}

	if _, err := h.authService.VerifyEmail(r.Context(), token); err != nil {
		switch err {
		case auth.ErrTokenInvalid:
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid or expired token"})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Verification failed"})
		}
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Email verified"})
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	if err := h.authService.ForgotPassword(r.Context(), req.Email); err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Request failed"})
		return
	}

	// Same answer whether or not the account exists.
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "If the account exists, a reset link has been sent"})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if !validation.IsValidToken(token) {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid or expired token"})
		return
	}

	var req dto.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	if err := h.authService.ResetPassword(r.Context(), token, req.Password); err != nil {
		switch err {
		case auth.ErrTokenInvalid:
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid or expired token"})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Password reset failed"})
		}
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Password updated"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	account, err := h.authService.GetAccountByID(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Account not found"})
		return
	}

	writeJSON(w, http.StatusOK, toAccountDTO(account))
}

func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	userID := middleware.GetUserID(r.Context())
	account, err := h.authService.UpdateProfile(r.Context(), userID, req.Name)
	if err != nil {
		switch err {
		case auth.ErrAccountNotFound:
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Account not found"})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Update failed"})
		}
		return
	}

	writeJSON(w, http.StatusOK, toAccountDTO(account))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Logged out"})
}

// setSessionCookie mirrors the JWT lifetime onto an HTTP-only strict cookie.
// The token is also echoed in the body for non-cookie clients.
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(h.sessionTTL.Seconds()),
	})
}

func toAccountDTO(a *models.Account) dto.AccountDTO {
	return dto.AccountDTO{
		ID:            a.ID.String(),
		Email:         a.Email,
		Name:          a.Name,
		Role:          a.Role,
		IsAdmin:       a.IsAdmin,
		IsActive:      a.IsActive,
		EmailVerified: a.EmailVerified,
		RegisteredAt:  a.RegisteredAt,
		LastLoginAt:   a.LastLoginAt,
		CreatedAt:     a.CreatedAt.Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
