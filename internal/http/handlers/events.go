package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/sciezka-prawa/sciezka-backend/internal/domain/user"
	"github.com/sciezka-prawa/sciezka-backend/internal/http/response"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/ctxutil"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
	"github.com/sciezka-prawa/sciezka-backend/internal/realtime"
)

type EventsHandler struct {
	log *logger.Logger
	hub *realtime.Hub
}

func NewEventsHandler(log *logger.Logger, hub *realtime.Hub) *EventsHandler {
	return &EventsHandler{log: log.With("handler", "EventsHandler"), hub: hub}
}

// GET /api/events
//
// Streams bill status changes and the caller's own notifications. Moderators
// and above also receive job progress.
func (h *EventsHandler) Stream(c *gin.Context) {
	userID, err := requestUserID(c)
	if err != nil {
		response.RespondAPIError(c, err, "missing_token")
		return
	}
	client := h.hub.NewClient(userID)
	defer h.hub.CloseClient(client)

	h.hub.AddChannel(client, realtime.ChannelBills)
	h.hub.AddChannel(client, realtime.UserChannel(userID))
	if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil && user.RoleAtLeast(rd.Role, user.RoleModerator) {
		h.hub.AddChannel(client, realtime.ChannelJobs)
	}
	h.log.Debug("event stream opened", "user_id", userID, "client_id", client.ID)
	h.hub.Serve(c.Writer, c.Request, client)
}
