package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sciezka-prawa/sciezka-backend/internal/platform/apierr"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/ctxutil"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/dbctx"
)

func dbc(c *gin.Context) dbctx.Context {
	return dbctx.Context{Ctx: c.Request.Context()}
}

// requestUserID is only called behind RequireAuth.
func requestUserID(c *gin.Context) (uuid.UUID, error) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		return uuid.Nil, apierr.New(http.StatusUnauthorized, "missing_token", apierr.ErrUnauthorized)
	}
	return rd.UserID, nil
}

func uuidParam(c *gin.Context, name, code string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, apierr.BadRequest(code, apierr.ErrInvalidArgument)
	}
	return id, nil
}

// queryInt returns def for a missing value and an error for a malformed one.
func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apierr.BadRequest("invalid_"+name, apierr.ErrInvalidArgument)
	}
	return n, nil
}

func queryBool(c *gin.Context, name string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(c.Query(name)))
	return err == nil && v
}
