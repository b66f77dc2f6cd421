package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sciezka-prawa/sciezka-backend/internal/platform/apierr"
	"github.com/sciezka-prawa/sciezka-backend/internal/services"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAPIError maps err onto a status and code. Internal errors are logged
// by the request logger and reported without their message.
func RespondAPIError(c *gin.Context, err error, fallbackCode string) {
	if errors.Is(err, services.ErrSyncInProgress) {
		RespondError(c, http.StatusConflict, "sync_in_progress", err)
		return
	}
	status, code := apierr.Resolve(err, fallbackCode)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		RespondError(c, status, code, errors.New(http.StatusText(status)))
		return
	}
	RespondError(c, status, code, err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

func RespondAccepted(c *gin.Context, payload any) {
	c.JSON(http.StatusAccepted, payload)
}
