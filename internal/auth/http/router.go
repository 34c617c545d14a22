package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/reeutil/reeutil/internal/auth/service"
	"github.com/reeutil/reeutil/internal/auth/store"
	"github.com/reeutil/reeutil/pkg/httpx"
	"github.com/reeutil/reeutil/pkg/jwtx"
	"github.com/reeutil/reeutil/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store           store.Store
	CaptchaService  *service.CaptchaService
	LoginService    *service.LoginService
	PasswordService *service.PasswordService
	AccountService  *service.AccountService
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerPasswords()
	r.registerMe()
	r.registerAdmin()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	captchaHandler := &CaptchaHandler{CaptchaService: r.CaptchaService}
	loginHandler := &LoginHandler{LoginService: r.LoginService}
	registerHandler := &RegisterHandler{AccountService: r.AccountService}

	// GET /captcha - lenient limit, every login page load fetches one
	r.Mux.Handle("GET /v1/auth/captcha",
		httpx.Chain(http.HandlerFunc(captchaHandler.HandleCreate),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	// POST /login - strict limit, credential guessing surface
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(loginHandler.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /login/confirm - strict limit, code guessing surface
	r.Mux.Handle("POST /v1/auth/login/confirm",
		httpx.Chain(http.HandlerFunc(loginHandler.HandleConfirm),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /register - strict limit, public signup endpoint
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(http.HandlerFunc(registerHandler.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerPasswords() {
	h := &PasswordHandler{PasswordService: r.PasswordService}

	// POST /password/forgot - strict limit, triggers outbound email
	r.Mux.Handle("POST /v1/auth/password/forgot",
		httpx.Chain(http.HandlerFunc(h.HandleForgot),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /password/reset - strict limit, code guessing surface
	r.Mux.Handle("POST /v1/auth/password/reset",
		httpx.Chain(http.HandlerFunc(h.HandleReset),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /password/change - authenticated, moderate limit by principal
	r.Mux.Handle("POST /v1/auth/password/change",
		httpx.Chain(http.HandlerFunc(h.HandleChange),
			AuthnMiddleware(r.verifier, r.AccountService),
			httpx.RateLimitByPrincipal(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerMe() {
	h := &MeHandler{}

	r.Mux.Handle("GET /v1/me",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			AuthnMiddleware(r.verifier, r.AccountService),
			httpx.RateLimitByPrincipal(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerAdmin() {
	h := &AdminHandler{AccountService: r.AccountService}

	secured := func(next http.Handler) http.Handler {
		return httpx.Chain(next,
			AuthnMiddleware(r.verifier, r.AccountService),
			RequireRoles("admin"),
			httpx.RateLimitByPrincipal(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("POST /v1/admin/employees",
		secured(http.HandlerFunc(h.HandleCreateEmployee)))
	r.Mux.Handle("GET /v1/admin/roles",
		secured(http.HandlerFunc(h.HandleListRoles)))
	r.Mux.Handle("POST /v1/admin/customers/{id}/unblock",
		secured(http.HandlerFunc(h.HandleUnblockCustomer)))
	r.Mux.Handle("PUT /v1/admin/employees/{id}/permissions",
		secured(http.HandlerFunc(h.HandleUpdatePermissions)))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}
