package handlers_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/go-warden/internal/api/dto"
	"github.com/hugh/go-warden/internal/api/handlers"
	"github.com/hugh/go-warden/internal/api/middleware"
	"github.com/hugh/go-warden/internal/auth"
	"github.com/hugh/go-warden/internal/cleanup"
	"github.com/hugh/go-warden/internal/database/models"
	"github.com/hugh/go-warden/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type adminTestEnv struct {
	tc        *testutil.TestSetup
	admin     *models.Account
	adminTok  string
	scheduler *cleanup.Scheduler
}

func setupAdminTestRouter(t *testing.T) (*chi.Mux, *adminTestEnv) {
	tc := testutil.NewTestContext(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	authService := auth.NewService(tc.DB, tc.JWTService, nil, nil, logger, auth.DefaultTokenPolicy())
	sweeper := cleanup.NewSweeper(tc.DB, logger)
	scheduler := cleanup.NewScheduler(sweeper, logger, "0 3 * * *", "0 4 * * 0")
	t.Cleanup(scheduler.Stop)

	handler := handlers.NewAdminHandler(authService, sweeper, scheduler, nil)

	admin := testutil.CreateAdminAccount(t, tc.DB)
	adminTok := testutil.GenerateTestToken(t, tc.JWTService, admin)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(tc.JWTService))
		r.Use(middleware.RequireRole(models.RoleAdmin, models.RoleSuperadmin))

		r.Route("/api/v1/admin", func(r chi.Router) {
			r.Get("/accounts", handler.ListAccounts)
			r.Get("/accounts/{id}", handler.GetAccount)
			r.Put("/accounts/{id}", handler.UpdateAccount)
			r.Delete("/accounts/{id}", handler.DeleteAccount)

			r.Post("/cleanup", handler.TriggerCleanup)
			r.Get("/scheduler", handler.SchedulerStatus)
			r.Post("/scheduler/stop", handler.SchedulerStop)
			r.Post("/scheduler/restart", handler.SchedulerRestart)
		})
	})

	return r, &adminTestEnv{tc: tc, admin: admin, adminTok: adminTok, scheduler: scheduler}
}

func TestAdminHandler_RequiresAdminRole(t *testing.T) {
	router, env := setupAdminTestRouter(t)
	defer env.tc.Cleanup()

	t.Run("plain account is forbidden", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/admin/accounts", nil, env.tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})

	t.Run("anonymous is unauthorized", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, "GET", "/api/v1/admin/accounts", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})
}

func TestAdminHandler_ListAccounts(t *testing.T) {
	router, env := setupAdminTestRouter(t)
	defer env.tc.Cleanup()

	for i := 0; i < 3; i++ {
		testutil.CreateTestAccount(t, env.tc.DB)
	}

	req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/admin/accounts?page=1&per_page=2", nil, env.adminTok)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	testutil.AssertStatus(t, rr, http.StatusOK)

	var resp dto.PaginatedResponse
	testutil.ParseJSONResponse(t, rr, &resp)
	// Fixture account + admin + three extras
	assert.Equal(t, int64(5), resp.Total)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 2, resp.PerPage)
	assert.Equal(t, 3, resp.TotalPages)
}

func TestAdminHandler_AccountCRUD(t *testing.T) {
	router, env := setupAdminTestRouter(t)
	defer env.tc.Cleanup()

	target := testutil.CreateTestAccount(t, env.tc.DB)

	t.Run("get by id", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/admin/accounts/"+target.ID.String(), nil, env.adminTok)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp dto.AccountDTO
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, target.Email, resp.Email)
	})

	t.Run("invalid id", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/admin/accounts/not-a-uuid", nil, env.adminTok)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("promote to admin", func(t *testing.T) {
		body := map[string]interface{}{"role": models.RoleAdmin}

		req := testutil.AuthenticatedRequest(t, "PUT", "/api/v1/admin/accounts/"+target.ID.String(), body, env.adminTok)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp dto.AccountDTO
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, models.RoleAdmin, resp.Role)
		assert.True(t, resp.IsAdmin)
	})

	t.Run("admin cannot grant superadmin", func(t *testing.T) {
		body := map[string]interface{}{"role": models.RoleSuperadmin}

		req := testutil.AuthenticatedRequest(t, "PUT", "/api/v1/admin/accounts/"+target.ID.String(), body, env.adminTok)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		body := map[string]interface{}{"role": "emperor"}

		req := testutil.AuthenticatedRequest(t, "PUT", "/api/v1/admin/accounts/"+target.ID.String(), body, env.adminTok)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("deactivate", func(t *testing.T) {
		active := false
		body := map[string]interface{}{"is_active": active}

		req := testutil.AuthenticatedRequest(t, "PUT", "/api/v1/admin/accounts/"+target.ID.String(), body, env.adminTok)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp dto.AccountDTO
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.False(t, resp.IsActive)
	})

	t.Run("delete", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "DELETE", "/api/v1/admin/accounts/"+target.ID.String(), nil, env.adminTok)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)

		req = testutil.AuthenticatedRequest(t, "GET", "/api/v1/admin/accounts/"+target.ID.String(), nil, env.adminTok)
		rr = httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})
}

func TestAdminHandler_TriggerCleanup(t *testing.T) {
	router, env := setupAdminTestRouter(t)
	defer env.tc.Cleanup()

	// One abandoned registration and one stale reset token
	require.NoError(t, env.tc.DB.Create(&models.Account{
		Email:               "stale@example.com",
		Role:                models.RoleUser,
		IsActive:            true,
		RegistrationToken:   "eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee",
		RegistrationExpires: time.Now().Add(-time.Hour).Unix(),
	}).Error)
	require.NoError(t, env.tc.DB.Model(&models.Account{}).
		Where("email = ?", env.tc.Account.Email).
		Updates(map[string]interface{}{
			"reset_token":   "ffffffffffffffffffffffffffffffffffffffff",
			"reset_expires": time.Now().Add(-time.Hour).Unix(),
		}).Error)

	t.Run("empty body runs the abandoned sweep", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/admin/cleanup", nil, env.adminTok)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)

		var report cleanup.SweepReport
		testutil.ParseJSONResponse(t, rr, &report)
		assert.Equal(t, int64(1), report.Abandoned)
		assert.Zero(t, report.ExpiredResets)
	})

	t.Run("deep sweep clears stale tokens", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/admin/cleanup", map[string]bool{"deep": true}, env.adminTok)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)

		var report cleanup.SweepReport
		testutil.ParseJSONResponse(t, rr, &report)
		assert.Equal(t, int64(1), report.ExpiredResets)
	})

	t.Run("async without a queue runs synchronously", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/admin/cleanup", map[string]bool{"async": true}, env.adminTok)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		// No queue is configured in this setup, so the request still gets a
		// completed report rather than an acknowledgement.
		testutil.AssertStatus(t, rr, http.StatusOK)

		var report cleanup.SweepReport
		testutil.ParseJSONResponse(t, rr, &report)
		assert.Zero(t, report.Abandoned)
	})
}

func TestAdminHandler_Scheduler(t *testing.T) {
	router, env := setupAdminTestRouter(t)
	defer env.tc.Cleanup()

	require.NoError(t, env.scheduler.Start())

	t.Run("status reports entries", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/admin/scheduler", nil, env.adminTok)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)

		var status cleanup.SchedulerStatus
		testutil.ParseJSONResponse(t, rr, &status)
		assert.True(t, status.Running)
		assert.Len(t, status.Entries, 2)
	})

	t.Run("stop and restart", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/admin/scheduler/stop", nil, env.adminTok)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)

		var status cleanup.SchedulerStatus
		testutil.ParseJSONResponse(t, rr, &status)
		assert.False(t, status.Running)

		req = testutil.AuthenticatedRequest(t, "POST", "/api/v1/admin/scheduler/restart", nil, env.adminTok)
		rr = httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)

		testutil.ParseJSONResponse(t, rr, &status)
		assert.True(t, status.Running)
	})
}
