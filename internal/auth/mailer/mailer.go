// Package mailer is the notification sink the auth flows depend on. The core
// treats any send error as total failure; there is no partial-success signal
// and no background retry.
package mailer

import (
	"context"

	"github.com/reeutil/reeutil/pkg/slogx"
)

// Sender delivers verification codes to principals.
type Sender interface {
	SendVerificationCode(ctx context.Context, email, code string) error
}

// LogSender writes codes to the log instead of sending mail. Used in dev and
// in tests where no SMTP relay is available.
type LogSender struct{}

func (LogSender) SendVerificationCode(ctx context.Context, email, code string) error {
	slogx.FromContext(ctx).Info("verification code issued (log sender)",
		"email", email, "code", code)
	return nil
}
