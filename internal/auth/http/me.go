package http

import (
	"net/http"

	"github.com/reeutil/reeutil/pkg/authapi"
	"github.com/reeutil/reeutil/pkg/httpx"
)

// MeHandler returns the authenticated principal. The record comes from the
// store, not the token, so it reflects permission changes immediately.
type MeHandler struct{}

// HandleGet handles GET /v1/me.
func (h *MeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r.Context())
	if !ok {
		authapi.ErrUnauthorized.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toWirePrincipal(principal))
}
