package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/reeutil/reeutil/internal/auth/domain"
	"github.com/reeutil/reeutil/internal/auth/service"
	"github.com/reeutil/reeutil/internal/auth/store/drivers/memory"
	"github.com/reeutil/reeutil/internal/auth/store/drivers/sqlite"
	"github.com/reeutil/reeutil/pkg/authapi"
	"github.com/reeutil/reeutil/pkg/idx"
	"github.com/reeutil/reeutil/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

type testMailer struct {
	mu   sync.Mutex
	last string
}

func (m *testMailer) SendVerificationCode(_ context.Context, _, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = code
	return nil
}

func (m *testMailer) lastCode(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.last)
	return m.last
}

type routerEnv struct {
	Router   *Router
	Captchas *memory.KV[domain.CaptchaChallenge]
	Mailer   *testMailer
	Tokens   *jwtx.Codec
	Accounts *service.AccountService
}

func newRouterEnv(t *testing.T) *routerEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	captchas := memory.NewKV[domain.CaptchaChallenge]()
	codes := memory.NewKV[domain.VerificationCode]()
	pending := memory.NewKV[domain.PendingLogin]()
	ml := &testMailer{}
	tokens := jwtx.NewCodec([]byte("router-test-secret"), "reeutil-test", time.Hour)

	credentials := &service.CredentialService{Store: st}
	captchaSvc := service.NewCaptchaService(captchas, time.Minute)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(tokens, "test", st, logger)
	router.CaptchaService = captchaSvc
	router.LoginService = &service.LoginService{
		Store:       st,
		Credentials: credentials,
		Captcha:     captchaSvc,
		Pending:     pending,
		Mailer:      ml,
		Tokens:      tokens,
	}
	router.PasswordService = &service.PasswordService{
		Store:        st,
		Credentials:  credentials,
		Verification: service.NewVerificationService(codes, time.Minute),
		Mailer:       ml,
	}
	router.AccountService = &service.AccountService{Store: st}
	router.ApplyRoutes()

	return &routerEnv{
		Router:   router,
		Captchas: captchas,
		Mailer:   ml,
		Tokens:   tokens,
		Accounts: router.AccountService,
	}
}

func (e *routerEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.Router.ServeHTTP(rec, req)
	return rec
}

func (e *routerEnv) solvedCaptcha() (id, answer string) {
	id = idx.New().String()
	answer = "x7k2m"
	e.Captchas.Put(id, domain.CaptchaChallenge{
		Answer:    answer,
		ExpiresAt: time.Now().Add(time.Minute),
	}, time.Now().Add(time.Minute))
	return id, answer
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestCaptchaEndpoint(t *testing.T) {
	env := newRouterEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/auth/captcha", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	res := decodeJSON[authapi.CaptchaResponse](t, rec)
	require.NotEmpty(t, res.ID)
	require.Contains(t, res.Image, "data:image/png;base64,")
}

func TestRegisterLoginConfirmFlow(t *testing.T) {
	env := newRouterEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/auth/register", "", authapi.RegisterRequest{
		FirstName: "Casey",
		LastName:  "Shopper",
		Email:     "casey@example.com",
		Password:  "initial password",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	captchaID, answer := env.solvedCaptcha()
	rec = env.do(t, http.MethodPost, "/v1/auth/login", "", authapi.LoginRequest{
		Email:           "casey@example.com",
		Password:        "initial password",
		CaptchaID:       captchaID,
		CaptchaResponse: answer,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	loginRes := decodeJSON[authapi.LoginResponse](t, rec)
	require.True(t, loginRes.RequiresVerification)
	require.Empty(t, loginRes.SessionToken)

	rec = env.do(t, http.MethodPost, "/v1/auth/login/confirm", "", authapi.ConfirmLoginRequest{
		Email: "casey@example.com",
		Code:  env.Mailer.lastCode(t),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	session := decodeJSON[authapi.SessionResponse](t, rec)
	require.NotEmpty(t, session.SessionToken)
	require.Equal(t, "customer", session.Principal.Kind)

	t.Run("session works against /v1/me", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/v1/me", session.SessionToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		me := decodeJSON[authapi.Principal](t, rec)
		require.Equal(t, "casey@example.com", me.Email)
	})

	t.Run("customers cannot reach admin routes", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/admin/employees", session.SessionToken, authapi.CreateEmployeeRequest{})
		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestLoginValidation(t *testing.T) {
	env := newRouterEnv(t)

	t.Run("missing credentials", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/auth/login", "", authapi.LoginRequest{})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		res := decodeJSON[authapi.Error](t, rec)
		require.Equal(t, authapi.CodeValidation, res.Code)
	})

	t.Run("bad captcha", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/auth/login", "", authapi.LoginRequest{
			Email: "a@example.com", Password: "pw",
			CaptchaID: "missing", CaptchaResponse: "abcde",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		res := decodeJSON[authapi.Error](t, rec)
		require.Equal(t, authapi.CodeInvalidCaptcha, res.Code)
	})

	t.Run("unknown account", func(t *testing.T) {
		id, answer := env.solvedCaptcha()
		rec := env.do(t, http.MethodPost, "/v1/auth/login", "", authapi.LoginRequest{
			Email: "ghost@example.com", Password: "pw",
			CaptchaID: id, CaptchaResponse: answer,
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		res := decodeJSON[authapi.Error](t, rec)
		require.Equal(t, authapi.CodeInvalidCredential, res.Code)
	})
}

func TestLockoutResponseShape(t *testing.T) {
	env := newRouterEnv(t)
	ctx := context.Background()

	_, err := env.Accounts.RegisterCustomer(ctx, service.RegisterCustomerParams{
		FirstName: "Casey", LastName: "Shopper",
		Email: "casey@example.com", Password: "real password",
	})
	require.NoError(t, err)

	attempt := func(t *testing.T) *httptest.ResponseRecorder {
		t.Helper()
		id, answer := env.solvedCaptcha()
		return env.do(t, http.MethodPost, "/v1/auth/login", "", authapi.LoginRequest{
			Email: "casey@example.com", Password: "wrong",
			CaptchaID: id, CaptchaResponse: answer,
		})
	}

	rec := attempt(t)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	res := decodeJSON[authapi.Error](t, rec)
	require.Equal(t, authapi.CodeInvalidCredential, res.Code)
	require.NotNil(t, res.RemainingAttempts)
	require.Equal(t, 2, *res.RemainingAttempts)

	_ = attempt(t)

	rec = attempt(t)
	require.Equal(t, http.StatusForbidden, rec.Code)
	res = decodeJSON[authapi.Error](t, rec)
	require.Equal(t, authapi.CodeAccountBlocked, res.Code)
	require.NotNil(t, res.BlockedAt)
}

func TestAdminFlow(t *testing.T) {
	env := newRouterEnv(t)
	ctx := context.Background()

	// Provision a role and an employee directly, then log the employee in.
	role := domain.Role{ID: idx.New().String(), Name: "ops", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.NoError(t, env.Router.store.Roles().Create(ctx, role))

	emp, _, err := env.Accounts.CreateEmployee(ctx, service.CreateEmployeeParams{
		FirstName: "Erin", LastName: "Staff",
		Email: "erin@example.com", Password: "staff pass", RoleID: role.ID,
	})
	require.NoError(t, err)

	id, answer := env.solvedCaptcha()
	rec := env.do(t, http.MethodPost, "/v1/auth/login", "", authapi.LoginRequest{
		Email: "erin@example.com", Password: "staff pass",
		CaptchaID: id, CaptchaResponse: answer,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	loginRes := decodeJSON[authapi.LoginResponse](t, rec)
	require.False(t, loginRes.RequiresVerification)
	require.NotEmpty(t, loginRes.SessionToken)
	require.Equal(t, "admin", loginRes.Principal.Role)
	token := loginRes.SessionToken

	t.Run("create employee with generated password", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/admin/employees", token, authapi.CreateEmployeeRequest{
			FirstName: "Gus", LastName: "Staff",
			Email: "gus@example.com", RoleID: role.ID,
			Permissions: []string{"orders:read"},
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		res := decodeJSON[authapi.CreateEmployeeResponse](t, rec)
		require.NotEmpty(t, res.InitialPassword)
		require.Equal(t, []string{"orders:read"}, res.Principal.Permissions)
	})

	t.Run("create employee by role name", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/admin/employees", token, authapi.CreateEmployeeRequest{
			FirstName: "Nia", LastName: "Staff",
			Email: "nia@example.com", Password: "chosen pass", Role: "ops",
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("list roles", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/v1/admin/roles", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		res := decodeJSON[authapi.ListRolesResponse](t, rec)
		require.Len(t, res.Roles, 1)
		require.Equal(t, "ops", res.Roles[0].Name)
	})

	t.Run("update permissions", func(t *testing.T) {
		rec := env.do(t, http.MethodPut,
			fmt.Sprintf("/v1/admin/employees/%s/permissions", emp.ID), token,
			authapi.UpdatePermissionsRequest{Permissions: []string{"refunds:approve"}})
		require.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("unblock a locked customer", func(t *testing.T) {
		customer, err := env.Accounts.RegisterCustomer(ctx, service.RegisterCustomerParams{
			FirstName: "Casey", LastName: "Shopper",
			Email: "casey@example.com", Password: "real password",
		})
		require.NoError(t, err)

		credentials := &service.CredentialService{Store: env.Router.store}
		for range service.LockoutThreshold {
			_, err := credentials.RecordFailedAttempt(ctx, customer.ID)
			require.NoError(t, err)
		}

		rec := env.do(t, http.MethodPost,
			fmt.Sprintf("/v1/admin/customers/%s/unblock", customer.ID), token, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		got, err := env.Router.store.Customers().GetByID(ctx, customer.ID)
		require.NoError(t, err)
		require.False(t, got.Blocked)
	})

	t.Run("no token yields 401", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/admin/employees", "", authapi.CreateEmployeeRequest{})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestPasswordEndpoints(t *testing.T) {
	env := newRouterEnv(t)
	ctx := context.Background()

	_, err := env.Accounts.RegisterCustomer(ctx, service.RegisterCustomerParams{
		FirstName: "Casey", LastName: "Shopper",
		Email: "casey@example.com", Password: "old password",
	})
	require.NoError(t, err)

	t.Run("forgot answers 202 for unknown emails too", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/auth/password/forgot", "",
			authapi.ForgotPasswordRequest{Email: "ghost@example.com"})
		require.Equal(t, http.StatusAccepted, rec.Code)
	})

	rec := env.do(t, http.MethodPost, "/v1/auth/password/forgot", "",
		authapi.ForgotPasswordRequest{Email: "casey@example.com"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	code := env.Mailer.lastCode(t)

	t.Run("reset rejects mismatched confirmation", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/auth/password/reset", "", authapi.ResetPasswordRequest{
			Email: "casey@example.com", Code: code,
			NewPassword: "new password", ConfirmPassword: "different",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("reset succeeds with the emailed code", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/auth/password/reset", "", authapi.ResetPasswordRequest{
			Email: "casey@example.com", Code: code,
			NewPassword: "new password", ConfirmPassword: "new password",
		})
		require.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("change requires a session", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/auth/password/change", "", authapi.ChangePasswordRequest{
			CurrentPassword: "new password",
			NewPassword:     "next password", ConfirmPassword: "next password",
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestHealthEndpoints(t *testing.T) {
	env := newRouterEnv(t)

	rec := env.do(t, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeJSON[authapi.HealthResponse](t, rec)
	require.Equal(t, "ok", res.Status)

	rec = env.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
