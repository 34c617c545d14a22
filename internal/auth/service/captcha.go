package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/mojocn/base64Captcha"
	"github.com/reeutil/reeutil/internal/auth/domain"
	"github.com/reeutil/reeutil/internal/auth/store"
	"github.com/reeutil/reeutil/pkg/idx"
	"github.com/reeutil/reeutil/pkg/slogx"
)

// DefaultCaptchaTTL is how long an issued challenge stays valid.
const DefaultCaptchaTTL = 2 * time.Minute

const (
	captchaLength = 5

	// captchaGlyphs excludes visually ambiguous characters (0/O/o, 1/l/I/i)
	// since the response match is case-insensitive anyway.
	captchaGlyphs = "23456789abcdefghjkmnpqrstuvwxyzABCDEFGHJKMNPQRSTUVWXYZ"

	captchaWidth  = 240
	captchaHeight = 80
)

var (
	ErrCaptchaNotFound = errors.New("captcha not found or expired")
	ErrCaptchaMismatch = errors.New("captcha response does not match")
)

// CaptchaService issues distorted-image challenges and validates single-use
// responses. Entries live only in the injected ephemeral store; a full expiry
// sweep runs opportunistically on every call rather than on a timer.
type CaptchaService struct {
	Challenges store.KV[domain.CaptchaChallenge]
	TTL        time.Duration

	driver *base64Captcha.DriverString
}

// NewCaptchaService wires the engine to its challenge store.
func NewCaptchaService(challenges store.KV[domain.CaptchaChallenge], ttl time.Duration) *CaptchaService {
	if ttl <= 0 {
		ttl = DefaultCaptchaTTL
	}

	driver := base64Captcha.NewDriverString(
		captchaHeight, captchaWidth,
		2, // noiseCount
		base64Captcha.OptionShowHollowLine|base64Captcha.OptionShowSlimeLine,
		captchaLength,
		captchaGlyphs,
		nil, nil, nil,
	).ConvertFonts()

	return &CaptchaService{
		Challenges: challenges,
		TTL:        ttl,
		driver:     driver,
	}
}

// Create issues a new challenge and returns its opaque id together with the
// rendered image as a base64 PNG data URL.
func (s *CaptchaService) Create(ctx context.Context) (id, image string, err error) {
	s.Challenges.Sweep(time.Now())

	text, err := randomChallengeText()
	if err != nil {
		return "", "", fmt.Errorf("generate captcha text: %w", err)
	}

	item, err := s.driver.DrawCaptcha(text)
	if err != nil {
		return "", "", fmt.Errorf("render captcha: %w", err)
	}

	id = idx.New().String()
	s.Challenges.Put(id, domain.CaptchaChallenge{
		Answer:    text,
		ExpiresAt: time.Now().Add(s.TTL),
	}, time.Now().Add(s.TTL))

	slogx.FromContext(ctx).Debug("captcha issued", "captcha_id", id)
	return id, item.EncodeB64string(), nil
}

// Validate compares the response case-insensitively. The entry is consumed on
// the first call no matter the outcome, so a replayed id always fails.
func (s *CaptchaService) Validate(ctx context.Context, id, response string) error {
	s.Challenges.Sweep(time.Now())

	challenge, ok := s.Challenges.Take(id)
	if !ok {
		return ErrCaptchaNotFound
	}

	if !strings.EqualFold(strings.TrimSpace(response), challenge.Answer) {
		return ErrCaptchaMismatch
	}
	return nil
}

func randomChallengeText() (string, error) {
	text := make([]byte, captchaLength)
	for i := range text {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(captchaGlyphs))))
		if err != nil {
			return "", err
		}
		text[i] = captchaGlyphs[n.Int64()]
	}
	return string(text), nil
}
