package jwtx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	t.Parallel()

	codec := NewCodec([]byte("test-secret"), "reeutil-auth", time.Hour)
	now := time.Now().UTC()

	token, err := codec.Sign("01JC0000000000000000000000", "customer", "customer", "amy@example.com", "Amy", now)
	require.NoError(t, err)

	claims, err := codec.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "01JC0000000000000000000000", claims.Subject)
	require.Equal(t, "customer", claims.Kind)
	require.Equal(t, "amy@example.com", claims.Email)
	require.Equal(t, "Amy", claims.DisplayName)
}

func TestCodecRejectsExpired(t *testing.T) {
	t.Parallel()

	codec := NewCodec([]byte("test-secret"), "reeutil-auth", time.Minute)
	token, err := codec.Sign("id", "employee", "admin", "", "", time.Now().Add(-2*time.Minute))
	require.NoError(t, err)

	_, err = codec.Verify(token)
	require.ErrorIs(t, err, ErrExpired)
}

func TestCodecRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	signer := NewCodec([]byte("secret-a"), "reeutil-auth", time.Hour)
	verifier := NewCodec([]byte("secret-b"), "reeutil-auth", time.Hour)

	token, err := signer.Sign("id", "customer", "customer", "", "", time.Now())
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, ErrInvalidSig)
}

func TestCodecRejectsIssuerMismatch(t *testing.T) {
	t.Parallel()

	signer := NewCodec([]byte("secret"), "someone-else", time.Hour)
	verifier := NewCodec([]byte("secret"), "reeutil-auth", time.Hour)

	token, err := signer.Sign("id", "customer", "customer", "", "", time.Now())
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, ErrIssuer)
}

func TestCodecRejectsGarbage(t *testing.T) {
	t.Parallel()

	codec := NewCodec([]byte("secret"), "reeutil-auth", time.Hour)
	_, err := codec.Verify("not.a.token")
	require.ErrorIs(t, err, ErrMalformed)
}

func TestNewCodecDefaultsTTL(t *testing.T) {
	t.Parallel()

	codec := NewCodec([]byte("secret"), "reeutil-auth", 0)
	require.Equal(t, DefaultSessionTTL, codec.TTL)
}
