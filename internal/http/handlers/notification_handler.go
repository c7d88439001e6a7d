// README: Notification handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/notify"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/types"
)

type NotificationHandler struct {
	store *notify.PGStore
}

func NewNotificationHandler(store *notify.PGStore) *NotificationHandler {
	return &NotificationHandler{store: store}
}

func (h *NotificationHandler) List(c *gin.Context) {
	limit, offset := pagination(c)
	items, err := h.store.ListByUser(c.Request.Context(), userID(c), limit, offset)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	views := make([]gin.H, 0, len(items))
	for _, n := range items {
		views = append(views, gin.H{
			"id":         n.ID,
			"subject":    n.Subject,
			"body":       n.Body,
			"kind":       n.Kind,
			"read":       n.Read,
			"created_at": n.CreatedAt,
		})
	}
	writeJSON(c, http.StatusOK, gin.H{"notifications": views})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.store.MarkRead(c.Request.Context(), types.ID(c.Param("id")), userID(c)); err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"message": "Notification marked as read"})
}
