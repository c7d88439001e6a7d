// README: Availability handlers; bookable slots per car.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/availability"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/types"
)

type AvailabilityHandler struct {
	availability *availability.Service
}

func NewAvailabilityHandler(svc *availability.Service) *AvailabilityHandler {
	return &AvailabilityHandler{availability: svc}
}

func (h *AvailabilityHandler) Slots(c *gin.Context) {
	carID := types.ID(c.Param("id"))
	slots, err := h.availability.Slots(c.Request.Context(), carID, time.Now().UTC())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	views := make([]gin.H, 0, len(slots))
	for _, s := range slots {
		views = append(views, gin.H{"start": s.Start, "end": s.End, "duration_hours": s.DurationHours})
	}
	writeJSON(c, http.StatusOK, gin.H{"car_id": carID, "available_slots": views})
}

func (h *AvailabilityHandler) NextAvailable(c *gin.Context) {
	carID := types.ID(c.Param("id"))
	next, err := h.availability.NextAvailableTime(c.Request.Context(), carID, time.Now().UTC())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"car_id": carID, "next_available_from": next})
}
