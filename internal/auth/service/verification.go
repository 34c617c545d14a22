package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/reeutil/reeutil/internal/auth/domain"
	"github.com/reeutil/reeutil/internal/auth/store"
	"github.com/reeutil/reeutil/pkg/slogx"
)

// DefaultCodeTTL is how long an emailed verification code stays valid.
const DefaultCodeTTL = 10 * time.Minute

var (
	ErrCodeNotFound = errors.New("verification code not found or expired")
	ErrCodeMismatch = errors.New("verification code does not match")
)

// VerificationService owns the 6-digit emailed codes used by password reset
// and account re-verification. One code per email: issuing a new one
// overwrites whatever was outstanding. Expired entries are pruned lazily
// around each operation, never by a dedicated timer.
type VerificationService struct {
	Codes store.KV[domain.VerificationCode]
	TTL   time.Duration
}

func NewVerificationService(codes store.KV[domain.VerificationCode], ttl time.Duration) *VerificationService {
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}
	return &VerificationService{Codes: codes, TTL: ttl}
}

// GenerateCode returns a uniformly random zero-padded 6-digit code in
// [100000, 999999], so it can never print shorter than 6 digits.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// Issue stores a fresh code for the email, replacing any prior unconsumed
// one, and returns it for dispatch.
func (s *VerificationService) Issue(ctx context.Context, email string) (string, error) {
	s.PruneExpired()

	code, err := GenerateCode()
	if err != nil {
		return "", err
	}

	key := EmailKey(email)
	s.Codes.Put(key, domain.VerificationCode{
		Code:      code,
		ExpiresAt: time.Now().Add(s.TTL),
	}, time.Now().Add(s.TTL))

	slogx.FromContext(ctx).Debug("verification code issued", "email", key)
	return code, nil
}

// Consume checks the candidate against the stored code. A match deletes the
// entry (single use); a mismatch leaves it in place so the caller can retry
// until expiry.
func (s *VerificationService) Consume(ctx context.Context, email, candidate string) error {
	s.PruneExpired()

	key := EmailKey(email)
	stored, ok := s.Codes.Get(key)
	if !ok {
		return ErrCodeNotFound
	}

	if stored.Code != strings.TrimSpace(candidate) {
		return ErrCodeMismatch
	}

	s.Codes.Delete(key)
	return nil
}

// Drop removes any outstanding code for the email. Used to roll back a
// half-issued code when dispatch fails.
func (s *VerificationService) Drop(email string) {
	s.Codes.Delete(EmailKey(email))
}

// PruneExpired sweeps every expired code.
func (s *VerificationService) PruneExpired() int {
	return s.Codes.Sweep(time.Now())
}

// EmailKey normalizes an email for use as a map or lookup key. Principal
// emails are unique case-insensitively, so the key must be too.
func EmailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
