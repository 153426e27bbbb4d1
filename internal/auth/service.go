package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/hugh/go-warden/internal/database/models"
	"github.com/hugh/go-warden/internal/tasks"
	"gorm.io/gorm"
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrInactiveAccount    = errors.New("account is inactive")
	ErrTokenInvalid       = errors.New("invalid or expired token")
	ErrInvalidGoogleToken = errors.New("invalid google token")
)

// TokenPolicy holds the lifetimes of the single-use account tokens.
type TokenPolicy struct {
	RegistrationTTL time.Duration
	VerificationTTL time.Duration
	ResetTTL        time.Duration
}

func DefaultTokenPolicy() TokenPolicy {
	return TokenPolicy{
		RegistrationTTL: 24 * time.Hour,
		VerificationTTL: 24 * time.Hour,
		ResetTTL:        time.Hour,
	}
}

type Service struct {
	db     *gorm.DB
	jwt    *JWTService
	google IdentityVerifier // nil when federated login is not configured
	queue  *asynq.Client    // nil disables outbound mail (tests)
	logger *slog.Logger
	tokens TokenPolicy
}

func NewService(db *gorm.DB, jwt *JWTService, google IdentityVerifier, queue *asynq.Client, logger *slog.Logger, tokens TokenPolicy) *Service {
	return &Service{db: db, jwt: jwt, google: google, queue: queue, logger: logger, tokens: tokens}
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResponse struct {
	Token   string          `json:"token"`
	Account *models.Account `json:"account"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// StartRegistration begins the two-phase signup: an email-only record with a
// registration token. The token leaves the process only via the mail queue,
// never in the response.
func (s *Service) StartRegistration(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	var existing models.Account
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err == nil {
		return ErrEmailTaken
	}

	token, err := NewOpaqueToken()
	if err != nil {
		return err
	}

	account := models.Account{
		Email:               email,
		Role:                models.RoleUser,
		IsActive:            true,
		RegistrationToken:   token,
		RegistrationExpires: tokenDeadline(s.tokens.RegistrationTTL),
	}

	if err := s.db.WithContext(ctx).Create(&account).Error; err != nil {
		// The pre-check races with concurrent inserts; the unique index on
		// email decides, and the loser reports the same conflict.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		return err
	}

	s.enqueueMail(tasks.NewRegistrationEmailTask, tasks.EmailPayload{
		Email: account.Email,
		Token: token,
	})

	return nil
}

// CompleteRegistration consumes a registration token, fills in name and
// password, and issues a verification token for the email proof step.
func (s *Service) CompleteRegistration(ctx context.Context, token, name, password string) (*models.Account, error) {
	var account models.Account
	err := s.db.WithContext(ctx).
		Where("registration_token = ? AND registration_expires > ?", token, time.Now().Unix()).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	verifyToken, err := NewOpaqueToken()
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	updates := map[string]interface{}{
		"name":                 name,
		"password_hash":        hash,
		"registration_token":   "",
		"registration_expires": 0,
		"registered_at":        now,
		"verify_token":         verifyToken,
		"verify_expires":       tokenDeadline(s.tokens.VerificationTTL),
	}
	if err := s.db.WithContext(ctx).Model(&account).Updates(updates).Error; err != nil {
		return nil, err
	}

	account.Name = name
	account.PasswordHash = hash
	account.RegistrationToken = ""
	account.RegistrationExpires = 0
	account.RegisteredAt = &now
	account.VerifyToken = verifyToken

	s.enqueueMail(tasks.NewVerificationEmailTask, tasks.EmailPayload{
		Email: account.Email,
		Name:  account.Name,
		Token: verifyToken,
	})

	return &account, nil
}

// VerifyEmail consumes a verification token. A token on an already-verified
// account has been cleared, so reuse falls through to ErrTokenInvalid; there
// is no "already verified" success path.
func (s *Service) VerifyEmail(ctx context.Context, token string) (*models.Account, error) {
	var account models.Account
	err := s.db.WithContext(ctx).
		Where("verify_token = ? AND verify_expires > ?", token, time.Now().Unix()).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}

	updates := map[string]interface{}{
		"email_verified": true,
		"verify_token":   "",
		"verify_expires": 0,
	}
	if err := s.db.WithContext(ctx).Model(&account).Updates(updates).Error; err != nil {
		return nil, err
	}

	account.EmailVerified = true
	account.VerifyToken = ""
	account.VerifyExpires = 0

	return &account, nil
}

func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthResponse, error) {
	var account models.Account
	err := s.db.WithContext(ctx).
		Where("email = ?", normalizeEmail(input.Email)).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !account.IsActive {
		return nil, ErrInactiveAccount
	}

	// Federation-only accounts have no hash and cannot log in with a password.
	if account.PasswordHash == "" || !CheckPassword(input.Password, account.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if !account.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	if err := s.stampLogin(ctx, &account); err != nil {
		return nil, err
	}

	return s.issueSession(&account)
}

// GoogleLogin authenticates via a Google-issued ID token. The federated path
// bypasses the two-phase registration flow: unknown emails get a fully formed
// verified account, known emails get the Google subject linked.
func (s *Service) GoogleLogin(ctx context.Context, rawToken string) (*AuthResponse, error) {
	if s.google == nil {
		return nil, ErrInvalidGoogleToken
	}

	identity, err := s.google.Verify(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	email := normalizeEmail(identity.Email)

	var account models.Account
	err = s.db.WithContext(ctx).Where("email = ?", email).First(&account).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		now := time.Now().Unix()
		account = models.Account{
			Email:         email,
			Name:          identity.Name,
			GoogleID:      &identity.ProviderUserID,
			Role:          models.RoleUser,
			IsActive:      true,
			EmailVerified: true,
			RegisteredAt:  &now,
		}
		if err := s.db.WithContext(ctx).Create(&account).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, ErrEmailTaken
			}
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if !account.IsActive {
			return nil, ErrInactiveAccount
		}
		if account.GoogleID == nil {
			if err := s.linkGoogleIdentity(ctx, &account, identity); err != nil {
				return nil, err
			}
		}
	}

	if err := s.stampLogin(ctx, &account); err != nil {
		return nil, err
	}

	return s.issueSession(&account)
}

// linkGoogleIdentity attaches the Google subject to an existing account. A
// half-finished registration is completed by the link: the provider already
// proved control of the email.
func (s *Service) linkGoogleIdentity(ctx context.Context, account *models.Account, identity *Identity) error {
	now := time.Now().Unix()
	updates := map[string]interface{}{
		"google_id":      identity.ProviderUserID,
		"email_verified": true,
	}
	if account.Name == "" && identity.Name != "" {
		updates["name"] = identity.Name
	}
	if account.RegisteredAt == nil {
		updates["registered_at"] = now
		updates["registration_token"] = ""
		updates["registration_expires"] = 0
	}
	if err := s.db.WithContext(ctx).Model(account).Updates(updates).Error; err != nil {
		return err
	}

	account.GoogleID = &identity.ProviderUserID
	account.EmailVerified = true
	if account.Name == "" {
		account.Name = identity.Name
	}
	if account.RegisteredAt == nil {
		account.RegisteredAt = &now
		account.RegistrationToken = ""
		account.RegistrationExpires = 0
	}
	return nil
}

// ForgotPassword issues a reset token for a completed account. Unknown emails
// return success without side effects so the endpoint cannot be used to
// enumerate accounts.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	var account models.Account
	err := s.db.WithContext(ctx).
		Where("email = ?", normalizeEmail(email)).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	if !account.IsActive || !account.Registered() {
		return nil
	}

	token, err := NewOpaqueToken()
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"reset_token":   token,
		"reset_expires": tokenDeadline(s.tokens.ResetTTL),
	}
	if err := s.db.WithContext(ctx).Model(&account).Updates(updates).Error; err != nil {
		return err
	}

	s.enqueueMail(tasks.NewPasswordResetEmailTask, tasks.EmailPayload{
		Email: account.Email,
		Name:  account.Name,
		Token: token,
	})

	return nil
}

// ResetPassword consumes a reset token and replaces the password hash.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	var account models.Account
	err := s.db.WithContext(ctx).
		Where("reset_token = ? AND reset_expires > ?", token, time.Now().Unix()).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTokenInvalid
		}
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"password_hash": hash,
		"reset_token":   "",
		"reset_expires": 0,
	}
	return s.db.WithContext(ctx).Model(&account).Updates(updates).Error
}

func (s *Service) GetAccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := s.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// UpdateProfile changes the display name of the authenticated account.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, name string) (*models.Account, error) {
	account, err := s.GetAccountByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(account).Update("name", name).Error; err != nil {
		return nil, err
	}
	account.Name = name
	return account, nil
}

// IssueSession mints a session credential for an already-authenticated
// account, used after registration completion.
func (s *Service) IssueSession(account *models.Account) (*AuthResponse, error) {
	return s.issueSession(account)
}

func (s *Service) issueSession(account *models.Account) (*AuthResponse, error) {
	token, err := s.jwt.GenerateToken(account.ID, account.Email, account.Role, account.IsAdmin)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, Account: account}, nil
}

func (s *Service) stampLogin(ctx context.Context, account *models.Account) error {
	now := time.Now().Unix()
	if err := s.db.WithContext(ctx).Model(account).Update("last_login_at", now).Error; err != nil {
		return err
	}
	account.LastLoginAt = &now
	return nil
}

// enqueueMail hands a delivery job to the worker. Mail is not transactional
// with the account mutation; a failed enqueue is logged and the request still
// succeeds.
func (s *Service) enqueueMail(build func(tasks.EmailPayload) (*asynq.Task, error), payload tasks.EmailPayload) {
	if s.queue == nil {
		return
	}
	task, err := build(payload)
	if err != nil {
		s.logger.Error("failed to build mail task", "email", payload.Email, "error", err)
		return
	}
	if _, err := s.queue.Enqueue(task); err != nil {
		s.logger.Error("failed to enqueue mail task", "email", payload.Email, "error", err)
	}
}
