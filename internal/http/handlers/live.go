package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/sciezka-prawa/sciezka-backend/internal/http/response"
	"github.com/sciezka-prawa/sciezka-backend/internal/services"
)

type LiveHandler struct {
	live services.LiveStatusService
}

func NewLiveHandler(live services.LiveStatusService) *LiveHandler {
	return &LiveHandler{live: live}
}

// GET /api/live
func (h *LiveHandler) GetLive(c *gin.Context) {
	status, err := h.live.Current(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err, "live_status_unavailable")
		return
	}
	c.Header("Cache-Control", "public, max-age=30")
	response.RespondOK(c, status)
}
