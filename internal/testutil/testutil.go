package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/go-warden/internal/auth"
	"github.com/hugh/go-warden/internal/database/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates an in-memory SQLite database for testing
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := db.AutoMigrate(&models.Account{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// CleanupTestDB closes the test database connection
func CleanupTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Logf("warning: failed to get sql.DB: %v", err)
		return
	}
	sqlDB.Close()
}

// TestPassword is the plaintext behind every fixture account.
const TestPassword = "testpassword123"

// CreateTestAccount creates a completed, verified account
func CreateTestAccount(t *testing.T, db *gorm.DB) *models.Account {
	t.Helper()

	hash, err := auth.HashPassword(TestPassword)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	now := time.Now().Unix()
	account := &models.Account{
		Base: models.Base{
			ID: uuid.New(),
		},
		Email:         "test-" + uuid.New().String()[:8] + "@example.com",
		PasswordHash:  hash,
		Name:          "Test User",
		Role:          models.RoleUser,
		IsActive:      true,
		EmailVerified: true,
		RegisteredAt:  &now,
	}

	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}

	return account
}

// CreateAdminAccount creates a completed, verified admin account
func CreateAdminAccount(t *testing.T, db *gorm.DB) *models.Account {
	t.Helper()

	account := CreateTestAccount(t, db)
	if err := db.Model(account).Updates(map[string]interface{}{
		"role":     models.RoleAdmin,
		"is_admin": true,
	}).Error; err != nil {
		t.Fatalf("failed to promote test account: %v", err)
	}
	account.Role = models.RoleAdmin
	account.IsAdmin = true

	return account
}

// CreateTestJWTService creates a JWT service for testing
func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-testing", 24*time.Hour)
}

// GenerateTestToken generates a valid JWT token for the given account
func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, account *models.Account) string {
	t.Helper()

	token, err := jwtService.GenerateToken(account.ID, account.Email, account.Role, account.IsAdmin)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}

	return token
}

// StaticVerifier is an IdentityVerifier stub returning a fixed identity. Set
// Err to exercise rejection paths.
type StaticVerifier struct {
	Identity auth.Identity
	Err      error
}

func (v *StaticVerifier) Verify(ctx context.Context, rawToken string) (*auth.Identity, error) {
	if v.Err != nil {
		return nil, v.Err
	}
	identity := v.Identity
	return &identity, nil
}

// AuthenticatedRequest creates an HTTP request with authentication
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// UnauthenticatedRequest creates an HTTP request without authentication
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// AssertStatus checks if the response has the expected status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestSetup holds all the common test dependencies
type TestSetup struct {
	DB         *gorm.DB
	JWTService *auth.JWTService
	Account    *models.Account
	Token      string
}

// NewTestContext creates a complete test setup with DB, account, and token
func NewTestContext(t *testing.T) *TestSetup {
	t.Helper()

	db := SetupTestDB(t)
	jwtService := CreateTestJWTService()
	account := CreateTestAccount(t, db)
	token := GenerateTestToken(t, jwtService, account)

	return &TestSetup{
		DB:         db,
		JWTService: jwtService,
		Account:    account,
		Token:      token,
	}
}

// Cleanup closes the test database
func (ts *TestSetup) Cleanup() {
	if ts.DB != nil {
		sqlDB, err := ts.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}
