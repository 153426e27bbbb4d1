package auth_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hugh/go-warden/internal/auth"
	"github.com/hugh/go-warden/internal/database/models"
	"github.com/hugh/go-warden/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*auth.Service, *gorm.DB) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := auth.NewService(db, testutil.CreateTestJWTService(), nil, nil, logger, auth.DefaultTokenPolicy())
	return svc, db
}

func accountByEmail(t *testing.T, db *gorm.DB, email string) *models.Account {
	t.Helper()
	var account models.Account
	require.NoError(t, db.Where("email = ?", email).First(&account).Error)
	return &account
}

func TestService_StartRegistration(t *testing.T) {
	svc, db := newTestService(t)
	ctx := testutil.TestContext(t)

	t.Run("creates email-only record with token", func(t *testing.T) {
		require.NoError(t, svc.StartRegistration(ctx, "a@x.com"))

		account := accountByEmail(t, db, "a@x.com")
		assert.Len(t, account.RegistrationToken, 40)
		assert.Greater(t, account.RegistrationExpires, time.Now().Unix())
		assert.Empty(t, account.PasswordHash)
		assert.Nil(t, account.RegisteredAt)
		assert.False(t, account.EmailVerified)
	})

	t.Run("second attempt for same email conflicts", func(t *testing.T) {
		require.NoError(t, svc.StartRegistration(ctx, "b@x.com"))
		assert.Equal(t, auth.ErrEmailTaken, svc.StartRegistration(ctx, "b@x.com"))
	})

	t.Run("email is normalized", func(t *testing.T) {
		require.NoError(t, svc.StartRegistration(ctx, "  Mixed@Case.Com "))
		assert.Equal(t, auth.ErrEmailTaken, svc.StartRegistration(ctx, "mixed@case.com"))
	})

	t.Run("conflicts with completed accounts too", func(t *testing.T) {
		existing := testutil.CreateTestAccount(t, db)
		assert.Equal(t, auth.ErrEmailTaken, svc.StartRegistration(ctx, existing.Email))
	})
}

func TestService_CompleteRegistration(t *testing.T) {
	svc, db := newTestService(t)
	ctx := testutil.TestContext(t)

	startAndFetchToken := func(t *testing.T, email string) string {
		t.Helper()
		require.NoError(t, svc.StartRegistration(ctx, email))
		return accountByEmail(t, db, email).RegistrationToken
	}

	t.Run("completes with valid token", func(t *testing.T) {
		token := startAndFetchToken(t, "alice@x.com")

		account, err := svc.CompleteRegistration(ctx, token, "Alice", "Secret123")
		require.NoError(t, err)

		assert.Equal(t, "Alice", account.Name)
		assert.NotEmpty(t, account.PasswordHash)
		assert.NotEqual(t, "Secret123", account.PasswordHash)
		assert.False(t, account.EmailVerified)
		assert.NotNil(t, account.RegisteredAt)
		assert.Empty(t, account.RegistrationToken)

		// A verification token was issued in the same mutation
		stored := accountByEmail(t, db, "alice@x.com")
		assert.Len(t, stored.VerifyToken, 40)
		assert.Greater(t, stored.VerifyExpires, time.Now().Unix())
	})

	t.Run("token cannot be used twice", func(t *testing.T) {
		token := startAndFetchToken(t, "bob@x.com")

		_, err := svc.CompleteRegistration(ctx, token, "Bob", "Secret123")
		require.NoError(t, err)

		_, err = svc.CompleteRegistration(ctx, token, "Bob", "Secret123")
		assert.Equal(t, auth.ErrTokenInvalid, err)
	})

	t.Run("rejects unknown token", func(t *testing.T) {
		_, err := svc.CompleteRegistration(ctx, "0000000000000000000000000000000000000000", "Nobody", "Secret123")
		assert.Equal(t, auth.ErrTokenInvalid, err)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		token := startAndFetchToken(t, "late@x.com")

		require.NoError(t, db.Model(&models.Account{}).
			Where("email = ?", "late@x.com").
			Update("registration_expires", time.Now().Add(-time.Minute).Unix()).Error)

		_, err := svc.CompleteRegistration(ctx, token, "Late", "Secret123")
		assert.Equal(t, auth.ErrTokenInvalid, err)
	})
}

func TestService_VerifyEmail(t *testing.T) {
	svc, db := newTestService(t)
	ctx := testutil.TestContext(t)

	register := func(t *testing.T, email string) *models.Account {
		t.Helper()
		require.NoError(t, svc.StartRegistration(ctx, email))
		token := accountByEmail(t, db, email).RegistrationToken
		account, err := svc.CompleteRegistration(ctx, token, "User", "Secret123")
		require.NoError(t, err)
		return account
	}

	t.Run("sets verified flag and consumes token", func(t *testing.T) {
		register(t, "v1@x.com")
		token := accountByEmail(t, db, "v1@x.com").VerifyToken

		account, err := svc.VerifyEmail(ctx, token)
		require.NoError(t, err)
		assert.True(t, account.EmailVerified)
		assert.Empty(t, account.VerifyToken)
	})

	t.Run("consumed token is invalid, no already-verified shortcut", func(t *testing.T) {
		register(t, "v2@x.com")
		token := accountByEmail(t, db, "v2@x.com").VerifyToken

		_, err := svc.VerifyEmail(ctx, token)
		require.NoError(t, err)

		_, err = svc.VerifyEmail(ctx, token)
		assert.Equal(t, auth.ErrTokenInvalid, err)
	})

	t.Run("expired token is invalid", func(t *testing.T) {
		register(t, "v3@x.com")
		token := accountByEmail(t, db, "v3@x.com").VerifyToken

		require.NoError(t, db.Model(&models.Account{}).
			Where("email = ?", "v3@x.com").
			Update("verify_expires", time.Now().Add(-time.Minute).Unix()).Error)

		_, err := svc.VerifyEmail(ctx, token)
		assert.Equal(t, auth.ErrTokenInvalid, err)
	})
}

func TestService_Login(t *testing.T) {
	svc, db := newTestService(t)
	ctx := testutil.TestContext(t)

	// Full two-phase signup for a@x.com
	require.NoError(t, svc.StartRegistration(ctx, "a@x.com"))
	regToken := accountByEmail(t, db, "a@x.com").RegistrationToken
	_, err := svc.CompleteRegistration(ctx, regToken, "Alice", "Secret123")
	require.NoError(t, err)

	t.Run("fails before email verification", func(t *testing.T) {
		_, err := svc.Login(ctx, auth.LoginInput{Email: "a@x.com", Password: "Secret123"})
		assert.Equal(t, auth.ErrEmailNotVerified, err)
	})

	t.Run("succeeds once verified", func(t *testing.T) {
		verifyToken := accountByEmail(t, db, "a@x.com").VerifyToken
		_, err := svc.VerifyEmail(ctx, verifyToken)
		require.NoError(t, err)

		resp, err := svc.Login(ctx, auth.LoginInput{Email: "a@x.com", Password: "Secret123"})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "a@x.com", resp.Account.Email)
		assert.NotNil(t, resp.Account.LastLoginAt)
	})

	t.Run("rejects wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, auth.LoginInput{Email: "a@x.com", Password: "wrong"})
		assert.Equal(t, auth.ErrInvalidCredentials, err)
	})

	t.Run("rejects unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, auth.LoginInput{Email: "ghost@x.com", Password: "Secret123"})
		assert.Equal(t, auth.ErrInvalidCredentials, err)
	})

	t.Run("rejects federation-only account", func(t *testing.T) {
		googleID := "google-sub-1"
		now := time.Now().Unix()
		require.NoError(t, db.Create(&models.Account{
			Email:         "fed@x.com",
			Name:          "Fed",
			GoogleID:      &googleID,
			Role:          models.RoleUser,
			IsActive:      true,
			EmailVerified: true,
			RegisteredAt:  &now,
		}).Error)

		_, err := svc.Login(ctx, auth.LoginInput{Email: "fed@x.com", Password: "anything"})
		assert.Equal(t, auth.ErrInvalidCredentials, err)
	})

	t.Run("rejects inactive account", func(t *testing.T) {
		require.NoError(t, db.Model(&models.Account{}).
			Where("email = ?", "a@x.com").
			Update("is_active", false).Error)

		_, err := svc.Login(ctx, auth.LoginInput{Email: "a@x.com", Password: "Secret123"})
		assert.Equal(t, auth.ErrInactiveAccount, err)
	})
}

func TestService_GoogleLogin(t *testing.T) {
	newGoogleService := func(t *testing.T, identity auth.Identity) (*auth.Service, *gorm.DB) {
		t.Helper()
		db := testutil.SetupTestDB(t)
		t.Cleanup(func() { testutil.CleanupTestDB(t, db) })
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		verifier := &testutil.StaticVerifier{Identity: identity}
		svc := auth.NewService(db, testutil.CreateTestJWTService(), verifier, nil, logger, auth.DefaultTokenPolicy())
		return svc, db
	}

	ctx := testutil.TestContext(t)

	t.Run("creates verified account on first login", func(t *testing.T) {
		svc, db := newGoogleService(t, auth.Identity{
			ProviderUserID: "sub-1",
			Email:          "new@x.com",
			Name:           "New User",
			EmailVerified:  true,
		})

		resp, err := svc.GoogleLogin(ctx, "raw-token")
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)

		account := accountByEmail(t, db, "new@x.com")
		assert.True(t, account.EmailVerified)
		assert.NotNil(t, account.RegisteredAt)
		assert.Empty(t, account.PasswordHash)
		require.NotNil(t, account.GoogleID)
		assert.Equal(t, "sub-1", *account.GoogleID)
	})

	t.Run("links identity to existing password account", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

		existing := testutil.CreateTestAccount(t, db)
		verifier := &testutil.StaticVerifier{Identity: auth.Identity{
			ProviderUserID: "sub-2",
			Email:          existing.Email,
			Name:           "Ignored",
			EmailVerified:  true,
		}}
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		svc := auth.NewService(db, testutil.CreateTestJWTService(), verifier, nil, logger, auth.DefaultTokenPolicy())

		resp, err := svc.GoogleLogin(ctx, "raw-token")
		require.NoError(t, err)

		require.NotNil(t, resp.Account.GoogleID)
		assert.Equal(t, "sub-2", *resp.Account.GoogleID)
		// Existing name is kept, password stays usable
		assert.Equal(t, existing.Name, resp.Account.Name)
		assert.NotEmpty(t, resp.Account.PasswordHash)
	})

	t.Run("completes a half-finished registration", func(t *testing.T) {
		svc, db := newGoogleService(t, auth.Identity{
			ProviderUserID: "sub-3",
			Email:          "half@x.com",
			Name:           "Half Done",
			EmailVerified:  true,
		})

		require.NoError(t, svc.StartRegistration(ctx, "half@x.com"))

		resp, err := svc.GoogleLogin(ctx, "raw-token")
		require.NoError(t, err)

		assert.NotNil(t, resp.Account.RegisteredAt)
		assert.Empty(t, resp.Account.RegistrationToken)
		assert.True(t, resp.Account.EmailVerified)

		stored := accountByEmail(t, db, "half@x.com")
		assert.Empty(t, stored.RegistrationToken)
		assert.Zero(t, stored.RegistrationExpires)
	})

	t.Run("rejects inactive account", func(t *testing.T) {
		svc, db := newGoogleService(t, auth.Identity{
			ProviderUserID: "sub-4",
			Email:          "inactive@x.com",
			EmailVerified:  true,
		})

		now := time.Now().Unix()
		require.NoError(t, db.Create(&models.Account{
			Email:         "inactive@x.com",
			Role:          models.RoleUser,
			EmailVerified: true,
			RegisteredAt:  &now,
		}).Error)
		// The column defaults to true, so a zero-valued create would stay
		// active; flip it with an explicit update.
		require.NoError(t, db.Model(&models.Account{}).
			Where("email = ?", "inactive@x.com").
			Update("is_active", false).Error)

		_, err := svc.GoogleLogin(ctx, "raw-token")
		assert.Equal(t, auth.ErrInactiveAccount, err)
	})

	t.Run("propagates verifier rejection", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		t.Cleanup(func() { testutil.CleanupTestDB(t, db) })
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		verifier := &testutil.StaticVerifier{Err: auth.ErrInvalidGoogleToken}
		svc := auth.NewService(db, testutil.CreateTestJWTService(), verifier, nil, logger, auth.DefaultTokenPolicy())

		_, err := svc.GoogleLogin(ctx, "bad-token")
		assert.Equal(t, auth.ErrInvalidGoogleToken, err)
	})
}

func TestService_PasswordReset(t *testing.T) {
	svc, db := newTestService(t)
	ctx := testutil.TestContext(t)

	account := testutil.CreateTestAccount(t, db)

	t.Run("issues reset token for completed account", func(t *testing.T) {
		require.NoError(t, svc.ForgotPassword(ctx, account.Email))

		stored := accountByEmail(t, db, account.Email)
		assert.Len(t, stored.ResetToken, 40)
		assert.Greater(t, stored.ResetExpires, time.Now().Unix())
	})

	t.Run("unknown email is a silent no-op", func(t *testing.T) {
		assert.NoError(t, svc.ForgotPassword(ctx, "ghost@x.com"))
	})

	t.Run("mid-registration account gets no reset token", func(t *testing.T) {
		require.NoError(t, svc.StartRegistration(ctx, "pending@x.com"))
		require.NoError(t, svc.ForgotPassword(ctx, "pending@x.com"))

		stored := accountByEmail(t, db, "pending@x.com")
		assert.Empty(t, stored.ResetToken)
	})

	t.Run("reset replaces password and consumes token", func(t *testing.T) {
		require.NoError(t, svc.ForgotPassword(ctx, account.Email))
		token := accountByEmail(t, db, account.Email).ResetToken

		require.NoError(t, svc.ResetPassword(ctx, token, "NewSecret456"))

		resp, err := svc.Login(ctx, auth.LoginInput{Email: account.Email, Password: "NewSecret456"})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)

		_, err = svc.Login(ctx, auth.LoginInput{Email: account.Email, Password: testutil.TestPassword})
		assert.Equal(t, auth.ErrInvalidCredentials, err)

		// Token is gone
		assert.Equal(t, auth.ErrTokenInvalid, svc.ResetPassword(ctx, token, "Another789"))
	})

	t.Run("expired reset token is invalid", func(t *testing.T) {
		require.NoError(t, svc.ForgotPassword(ctx, account.Email))
		token := accountByEmail(t, db, account.Email).ResetToken

		require.NoError(t, db.Model(&models.Account{}).
			Where("email = ?", account.Email).
			Update("reset_expires", time.Now().Add(-time.Minute).Unix()).Error)

		assert.Equal(t, auth.ErrTokenInvalid, svc.ResetPassword(ctx, token, "Whatever123"))
	})
}

func TestService_AdminAccountOps(t *testing.T) {
	svc, db := newTestService(t)
	ctx := testutil.TestContext(t)

	t.Run("role change keeps admin flag in sync", func(t *testing.T) {
		account := testutil.CreateTestAccount(t, db)

		role := models.RoleAdmin
		updated, err := svc.UpdateAccount(ctx, models.RoleAdmin, account.ID, auth.UpdateAccountInput{Role: &role})
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, updated.Role)
		assert.True(t, updated.IsAdmin)

		role = models.RoleUser
		updated, err = svc.UpdateAccount(ctx, models.RoleAdmin, account.ID, auth.UpdateAccountInput{Role: &role})
		require.NoError(t, err)
		assert.False(t, updated.IsAdmin)
	})

	t.Run("only superadmin can grant superadmin", func(t *testing.T) {
		account := testutil.CreateTestAccount(t, db)
		role := models.RoleSuperadmin

		_, err := svc.UpdateAccount(ctx, models.RoleAdmin, account.ID, auth.UpdateAccountInput{Role: &role})
		assert.Equal(t, auth.ErrForbiddenRoleChange, err)

		updated, err := svc.UpdateAccount(ctx, models.RoleSuperadmin, account.ID, auth.UpdateAccountInput{Role: &role})
		require.NoError(t, err)
		assert.Equal(t, models.RoleSuperadmin, updated.Role)
	})

	t.Run("admin cannot touch superadmin accounts", func(t *testing.T) {
		account := testutil.CreateTestAccount(t, db)
		role := models.RoleSuperadmin
		_, err := svc.UpdateAccount(ctx, models.RoleSuperadmin, account.ID, auth.UpdateAccountInput{Role: &role})
		require.NoError(t, err)

		active := false
		_, err = svc.UpdateAccount(ctx, models.RoleAdmin, account.ID, auth.UpdateAccountInput{IsActive: &active})
		assert.Equal(t, auth.ErrForbiddenRoleChange, err)

		assert.Equal(t, auth.ErrForbiddenRoleChange, svc.DeleteAccount(ctx, models.RoleAdmin, account.ID))
	})

	t.Run("delete removes account from reads", func(t *testing.T) {
		account := testutil.CreateTestAccount(t, db)

		require.NoError(t, svc.DeleteAccount(ctx, models.RoleAdmin, account.ID))

		_, err := svc.GetAccountByID(ctx, account.ID)
		assert.Equal(t, auth.ErrAccountNotFound, err)
	})

	t.Run("list paginates", func(t *testing.T) {
		freshDB := testutil.SetupTestDB(t)
		t.Cleanup(func() { testutil.CleanupTestDB(t, freshDB) })
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		freshSvc := auth.NewService(freshDB, testutil.CreateTestJWTService(), nil, nil, logger, auth.DefaultTokenPolicy())

		for i := 0; i < 5; i++ {
			testutil.CreateTestAccount(t, freshDB)
		}

		accounts, total, err := freshSvc.ListAccounts(ctx, auth.ListAccountsInput{Page: 1, PerPage: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		assert.Len(t, accounts, 2)

		accounts, _, err = freshSvc.ListAccounts(ctx, auth.ListAccountsInput{Page: 3, PerPage: 2})
		require.NoError(t, err)
		assert.Len(t, accounts, 1)
	})
}

func TestService_UpdateProfile(t *testing.T) {
	svc, db := newTestService(t)
	ctx := testutil.TestContext(t)

	account := testutil.CreateTestAccount(t, db)

	updated, err := svc.UpdateProfile(ctx, account.ID, "Renamed")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	stored := accountByEmail(t, db, account.Email)
	assert.Equal(t, "Renamed", stored.Name)
}
