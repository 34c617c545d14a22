package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/reeutil/reeutil/internal/auth/domain"
	"github.com/reeutil/reeutil/internal/auth/service"
	"github.com/reeutil/reeutil/internal/auth/store/drivers/sqlite"
	"github.com/reeutil/reeutil/pkg/cryptox"
	"github.com/reeutil/reeutil/pkg/idx"
	"github.com/reeutil/reeutil/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		header string
		want   string
		ok     bool
	}{
		{"standard", "Bearer abc.def.ghi", "abc.def.ghi", true},
		{"lowercase scheme", "bearer tok", "tok", true},
		{"missing header", "", "", false},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "", false},
		{"scheme only", "Bearer ", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			got, ok := bearerToken(r)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestAuthnMiddlewareRejectsDeletedPrincipal(t *testing.T) {
	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	accounts := &service.AccountService{Store: st}
	tokens := jwtx.NewCodec([]byte("mw-test-secret"), "reeutil-test", time.Hour)

	// A structurally valid token for an id that has no record behind it.
	token, err := tokens.Sign(idx.New().String(), "customer", "customer",
		"gone@example.com", "Gone Person", time.Now().UTC())
	require.NoError(t, err)

	var reached bool
	handler := AuthnMiddleware(tokens, accounts)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.False(t, reached)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthnMiddlewareResolvesPrincipal(t *testing.T) {
	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	hash, err := cryptox.HashPassword("pw")
	require.NoError(t, err)
	now := time.Now().UTC()
	customer := domain.Customer{
		ID: idx.New().String(), FirstName: "Casey", LastName: "Shopper",
		Email: "casey@example.com", PasswordHash: hash, Role: "customer",
		PasswordHistory: []string{hash}, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, st.Customers().Create(context.Background(), customer))

	accounts := &service.AccountService{Store: st}
	tokens := jwtx.NewCodec([]byte("mw-test-secret"), "reeutil-test", time.Hour)
	token, err := tokens.Sign(customer.ID, "customer", "customer",
		customer.Email, "Casey Shopper", time.Now().UTC())
	require.NoError(t, err)

	var got domain.Principal
	handler := AuthnMiddleware(tokens, accounts)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFrom(r.Context())
		require.True(t, ok)
		got = p
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, customer.ID, got.ID())
	require.Equal(t, domain.KindCustomer, got.Kind)
}

func TestRequireRoles(t *testing.T) {
	t.Parallel()

	serve := func(p domain.Principal, roles ...string) *httptest.ResponseRecorder {
		handler := RequireRoles(roles...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(context.WithValue(req.Context(), ctxKeyPrincipal, p))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	customer := domain.NewCustomerPrincipal(&domain.Customer{ID: "c1", Role: "customer"})
	employee := domain.NewEmployeePrincipal(&domain.Employee{ID: "e1"})

	t.Run("customer passes a matching role", func(t *testing.T) {
		require.Equal(t, http.StatusOK, serve(customer, "customer").Code)
	})

	t.Run("customer fails a non-matching role", func(t *testing.T) {
		require.Equal(t, http.StatusForbidden, serve(customer, "admin").Code)
	})

	t.Run("employee passes every role check", func(t *testing.T) {
		require.Equal(t, http.StatusOK, serve(employee, "admin").Code)
		require.Equal(t, http.StatusOK, serve(employee, "customer").Code)
	})

	t.Run("missing principal yields 401", func(t *testing.T) {
		handler := RequireRoles("customer")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
