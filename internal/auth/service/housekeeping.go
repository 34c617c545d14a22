package service

import (
	"log/slog"
	"time"

	"github.com/reeutil/reeutil/internal/auth/domain"
	"github.com/reeutil/reeutil/internal/auth/store"
)

// HousekeepingService periodically sweeps the ephemeral stores so expired
// captcha challenges, verification codes and pending logins do not accumulate
// between requests. Each store also prunes lazily on access; this worker just
// bounds memory on idle deployments.
type HousekeepingService struct {
	Captchas store.KV[domain.CaptchaChallenge]
	Codes    store.KV[domain.VerificationCode]
	Pending  store.KV[domain.PendingLogin]
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping worker over the three
// ephemeral stores. If interval is 0 or negative, defaults to 5 minutes.
func NewHousekeepingService(
	captchas store.KV[domain.CaptchaChallenge],
	codes store.KV[domain.VerificationCode],
	pending store.KV[domain.PendingLogin],
	logger *slog.Logger,
	interval time.Duration,
) *HousekeepingService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &HousekeepingService{
		Captchas: captchas,
		Codes:    codes,
		Pending:  pending,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop to shut down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts down the background worker and blocks until any in-progress
// sweep has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run a sweep immediately on startup
	s.sweep()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

func (s *HousekeepingService) sweep() {
	now := time.Now()

	captchas := s.Captchas.Sweep(now)
	codes := s.Codes.Sweep(now)
	pending := s.Pending.Sweep(now)

	if captchas+codes+pending > 0 {
		s.Logger.Debug("swept expired ephemeral records",
			"captchas", captchas, "codes", codes, "pending_logins", pending)
	}
}
