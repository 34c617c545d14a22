package domain

import "time"

// CaptchaChallenge is the server-side half of an issued captcha: the answer
// the client has to reproduce and when the challenge stops being valid. The
// rendered image never leaves the captcha engine.
type CaptchaChallenge struct {
	Answer    string
	ExpiresAt time.Time
}

// VerificationCode is a 6-digit emailed code, keyed by email in the ephemeral
// store. Only the latest code per email is live; issuing a new one overwrites
// the old.
type VerificationCode struct {
	Code      string
	ExpiresAt time.Time
}

// LoginState enumerates the authentication state machine. Pending login
// records persist only the AwaitingSecondFactor state; the other states exist
// within a single login call and are tracked by the orchestrator to make
// illegal transitions explicit.
type LoginState int

const (
	StateAwaitingCredentials LoginState = iota
	StateCaptchaValidated
	StatePrimaryAuthenticated
	StateAwaitingSecondFactor
	StateSessionIssued
	StateRejected
)

func (s LoginState) String() string {
	switch s {
	case StateAwaitingCredentials:
		return "awaiting_credentials"
	case StateCaptchaValidated:
		return "captcha_validated"
	case StatePrimaryAuthenticated:
		return "primary_authenticated"
	case StateAwaitingSecondFactor:
		return "awaiting_second_factor"
	case StateSessionIssued:
		return "session_issued"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// PendingLogin records a primary-authenticated login waiting on its second
// factor, keyed by email. A code mismatch leaves the record in place so the
// caller can retry until expiry; confirmation and expiry both remove it.
type PendingLogin struct {
	PrincipalID string
	Kind        Kind
	Code        string
	State       LoginState
	ExpiresAt   time.Time
}
