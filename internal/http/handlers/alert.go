package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sciezka-prawa/sciezka-backend/internal/http/response"
	"github.com/sciezka-prawa/sciezka-backend/internal/services"
)

type AlertHandler struct {
	alerts services.AlertService
}

func NewAlertHandler(alerts services.AlertService) *AlertHandler {
	return &AlertHandler{alerts: alerts}
}

// GET /api/alerts
func (h *AlertHandler) ListAlerts(c *gin.Context) {
	userID, err := requestUserID(c)
	if err != nil {
		response.RespondAPIError(c, err, "unauthorized")
		return
	}
	alerts, err := h.alerts.List(dbc(c), userID)
	if err != nil {
		response.RespondAPIError(c, err, "list_alerts_failed")
		return
	}
	response.RespondOK(c, gin.H{"alerts": alerts})
}

// POST /api/alerts
func (h *AlertHandler) CreateAlert(c *gin.Context) {
	userID, err := requestUserID(c)
	if err != nil {
		response.RespondAPIError(c, err, "unauthorized")
		return
	}
	var in services.AlertInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	alert, err := h.alerts.Create(dbc(c), userID, in)
	if err != nil {
		response.RespondAPIError(c, err, "create_alert_failed")
		return
	}
	response.RespondCreated(c, gin.H{"alert": alert})
}

// PATCH /api/alerts/:id
func (h *AlertHandler) UpdateAlert(c *gin.Context) {
	userID, err := requestUserID(c)
	if err != nil {
		response.RespondAPIError(c, err, "unauthorized")
		return
	}
	id, err := uuidParam(c, "id", "invalid_alert_id")
	if err != nil {
		response.RespondAPIError(c, err, "invalid_alert_id")
		return
	}
	var patch services.AlertPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	alert, err := h.alerts.Update(dbc(c), userID, id, patch)
	if err != nil {
		response.RespondAPIError(c, err, "update_alert_failed")
		return
	}
	response.RespondOK(c, gin.H{"alert": alert})
}

// DELETE /api/alerts/:id
func (h *AlertHandler) DeleteAlert(c *gin.Context) {
	userID, err := requestUserID(c)
	if err != nil {
		response.RespondAPIError(c, err, "unauthorized")
		return
	}
	id, err := uuidParam(c, "id", "invalid_alert_id")
	if err != nil {
		response.RespondAPIError(c, err, "invalid_alert_id")
		return
	}
	if err := h.alerts.Delete(dbc(c), userID, id); err != nil {
		response.RespondAPIError(c, err, "delete_alert_failed")
		return
	}
	c.Status(http.StatusNoContent)
}
