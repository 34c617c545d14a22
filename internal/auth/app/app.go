package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reeutil/reeutil/internal/auth/domain"
	httpapi "github.com/reeutil/reeutil/internal/auth/http"
	"github.com/reeutil/reeutil/internal/auth/mailer"
	"github.com/reeutil/reeutil/internal/auth/service"
	"github.com/reeutil/reeutil/internal/auth/store"
	"github.com/reeutil/reeutil/internal/auth/store/drivers/memory"
	"github.com/reeutil/reeutil/internal/auth/store/drivers/sqlite"
	"github.com/reeutil/reeutil/pkg/jwtx"
	"github.com/reeutil/reeutil/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application encapsulates the auth service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db     store.Store
	tokens *jwtx.Codec
	mailer mailer.Sender

	captchas *memory.KV[domain.CaptchaChallenge]
	codes    *memory.KV[domain.VerificationCode]
	pending  *memory.KV[domain.PendingLogin]

	captchaService      *service.CaptchaService
	loginService        *service.LoginService
	passwordService     *service.PasswordService
	accountService      *service.AccountService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "reeutil-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initTokens(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initMailer()
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initTokens() error {
	secret := app.cfg.SessionSecret
	if secret == "" {
		if app.cfg.Env == "prod" {
			return errors.New("AUTH_SESSION_SECRET is required in prod")
		}

		// Dev convenience: a random per-process secret. Sessions do not
		// survive a restart.
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return fmt.Errorf("failed to generate session secret: %w", err)
		}
		secret = hex.EncodeToString(buf)
		app.logger.Warn("AUTH_SESSION_SECRET not set, using an ephemeral secret")
	}

	app.tokens = jwtx.NewCodec([]byte(secret), app.cfg.Issuer, app.cfg.SessionTTL)
	return nil
}

func (app *Application) initMailer() {
	if app.cfg.SMTPHost == "" {
		app.logger.Warn("SMTP_HOST not set, verification codes will be logged")
		app.mailer = mailer.LogSender{}
		return
	}

	app.mailer = mailer.NewSMTPSender(
		app.cfg.SMTPHost,
		app.cfg.SMTPPort,
		app.cfg.SMTPUsername,
		app.cfg.SMTPPassword,
		app.cfg.SMTPFromAddr,
		app.cfg.SMTPFromName,
		app.cfg.SMTPEncryption,
	)
}

func (app *Application) initServices() {
	app.captchas = memory.NewKV[domain.CaptchaChallenge]()
	app.codes = memory.NewKV[domain.VerificationCode]()
	app.pending = memory.NewKV[domain.PendingLogin]()

	credentials := &service.CredentialService{Store: app.db}
	verification := service.NewVerificationService(app.codes, app.cfg.CodeTTL)

	app.captchaService = service.NewCaptchaService(app.captchas, app.cfg.CaptchaTTL)
	app.loginService = &service.LoginService{
		Store:       app.db,
		Credentials: credentials,
		Captcha:     app.captchaService,
		Pending:     app.pending,
		Mailer:      app.mailer,
		Tokens:      app.tokens,
		PendingTTL:  app.cfg.PendingLoginTTL,
	}
	app.passwordService = &service.PasswordService{
		Store:        app.db,
		Credentials:  credentials,
		Verification: verification,
		Mailer:       app.mailer,
	}
	app.accountService = &service.AccountService{Store: app.db}

	app.housekeepingService = service.NewHousekeepingService(
		app.captchas,
		app.codes,
		app.pending,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.tokens,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.CaptchaService = app.captchaService
	router.LoginService = app.loginService
	router.PasswordService = app.passwordService
	router.AccountService = app.accountService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
