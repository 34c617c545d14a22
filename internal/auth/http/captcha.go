package http

import (
	"net/http"

	"github.com/reeutil/reeutil/internal/auth/service"
	"github.com/reeutil/reeutil/pkg/authapi"
	"github.com/reeutil/reeutil/pkg/httpx"
	"github.com/reeutil/reeutil/pkg/slogx"
)

// CaptchaHandler issues login challenges.
type CaptchaHandler struct {
	CaptchaService *service.CaptchaService
}

// HandleCreate handles GET /v1/auth/captcha. Every call issues a fresh
// challenge; challenges are single use and expire on their own.
func (h *CaptchaHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, image, err := h.CaptchaService.Create(ctx)
	if err != nil {
		slogx.FromContext(ctx).Error("captcha generation failed", "err", err)
		authapi.ErrDependencyFailure.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authapi.CaptchaResponse{
		ID:    id,
		Image: image,
	})
}
