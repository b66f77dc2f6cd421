package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/sciezka-prawa/sciezka-backend/internal/http/response"
	"github.com/sciezka-prawa/sciezka-backend/internal/services"
)

type UserHandler struct {
	auth services.AuthService
}

func NewUserHandler(auth services.AuthService) *UserHandler {
	return &UserHandler{auth: auth}
}

// GET /api/me
func (h *UserHandler) GetMe(c *gin.Context) {
	me, err := h.auth.Me(dbc(c))
	if err != nil {
		response.RespondAPIError(c, err, "load_profile_failed")
		return
	}
	response.RespondOK(c, gin.H{"user": me})
}
