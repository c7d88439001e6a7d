// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/J-SURYA/cruizo-backend-sub000/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeServiceError maps business errors onto HTTP statuses in one place;
// handlers never pick status codes for domain failures themselves.
func writeServiceError(c *gin.Context, err error) {
	var (
		nf *types.NotFoundError
		fb *types.ForbiddenError
		vd *types.ValidationError
		cf *types.ConflictError
	)
	switch {
	case errors.As(err, &nf):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.As(err, &fb):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.As(err, &vd):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.As(err, &cf):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// userID reads the authenticated user set by the auth middleware.
func userID(c *gin.Context) types.ID {
	return types.ID(c.GetString("user_id"))
}

func isAdmin(c *gin.Context) bool {
	return c.GetBool("is_admin")
}

func requireAdmin(c *gin.Context) bool {
	if !isAdmin(c) {
		writeError(c, http.StatusForbidden, "Admin access required")
		return false
	}
	return true
}

func pagination(c *gin.Context) (limit, offset int) {
	limit = 20
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	page := 1
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		page = v
	}
	return limit, (page - 1) * limit
}
