package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/sciezka-prawa/sciezka-backend/internal/http/response"
	"github.com/sciezka-prawa/sciezka-backend/internal/services"
)

type NotificationHandler struct {
	notifications services.NotificationService
}

func NewNotificationHandler(notifications services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// GET /api/notifications?unread=true&page=1&page_size=20
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userID, err := requestUserID(c)
	if err != nil {
		response.RespondAPIError(c, err, "unauthorized")
		return
	}
	page, err := queryInt(c, "page", 1)
	if err != nil {
		response.RespondAPIError(c, err, "invalid_page")
		return
	}
	pageSize, err := queryInt(c, "page_size", 0)
	if err != nil {
		response.RespondAPIError(c, err, "invalid_page_size")
		return
	}
	out, err := h.notifications.List(dbc(c), userID, queryBool(c, "unread"), page, pageSize)
	if err != nil {
		response.RespondAPIError(c, err, "list_notifications_failed")
		return
	}
	response.RespondOK(c, out)
}

// POST /api/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, err := requestUserID(c)
	if err != nil {
		response.RespondAPIError(c, err, "unauthorized")
		return
	}
	id, err := uuidParam(c, "id", "invalid_notification_id")
	if err != nil {
		response.RespondAPIError(c, err, "invalid_notification_id")
		return
	}
	if err := h.notifications.MarkRead(dbc(c), userID, id); err != nil {
		response.RespondAPIError(c, err, "mark_read_failed")
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// POST /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, err := requestUserID(c)
	if err != nil {
		response.RespondAPIError(c, err, "unauthorized")
		return
	}
	n, err := h.notifications.MarkAllRead(dbc(c), userID)
	if err != nil {
		response.RespondAPIError(c, err, "mark_all_read_failed")
		return
	}
	response.RespondOK(c, gin.H{"updated": n})
}
