package httpx

type ctxKey string

// Context keys populated by the authentication middleware. The full resolved
// principal lives in the internal http package; these carry the pieces generic
// middleware (rate limiting) needs.
const (
	CtxKeyPrincipalID ctxKey = "principal_id"
)
