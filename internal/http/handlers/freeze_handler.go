// README: Freeze handlers; create/inspect/relocate/cancel a pre-booking hold.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/freeze"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/types"
)

type FreezeHandler struct {
	freeze *freeze.Service
}

func NewFreezeHandler(svc *freeze.Service) *FreezeHandler {
	return &FreezeHandler{freeze: svc}
}

type createFreezeReq struct {
	CarID             string    `json:"car_id" binding:"required"`
	StartDate         time.Time `json:"start_date" binding:"required,halfhour"`
	EndDate           time.Time `json:"end_date" binding:"required,halfhour"`
	DeliveryLatitude  float64   `json:"delivery_latitude" binding:"required"`
	DeliveryLongitude float64   `json:"delivery_longitude" binding:"required"`
	PickupLatitude    float64   `json:"pickup_latitude" binding:"required"`
	PickupLongitude   float64   `json:"pickup_longitude" binding:"required"`
}

func (h *FreezeHandler) Create(c *gin.Context) {
	var req createFreezeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	est, err := h.freeze.Create(c.Request.Context(), userID(c), freeze.CreateInput{
		CarID:    types.ID(req.CarID),
		Start:    req.StartDate,
		End:      req.EndDate,
		Delivery: types.Point{Lat: req.DeliveryLatitude, Lng: req.DeliveryLongitude},
		Pickup:   types.Point{Lat: req.PickupLatitude, Lng: req.PickupLongitude},
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, estimateView(est))
}

func (h *FreezeHandler) Get(c *gin.Context) {
	est, err := h.freeze.Get(c.Request.Context(), types.ID(c.Param("id")), userID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, estimateView(est))
}

type updateFreezeLocationsReq struct {
	DeliveryLatitude  float64 `json:"delivery_latitude" binding:"required"`
	DeliveryLongitude float64 `json:"delivery_longitude" binding:"required"`
	PickupLatitude    float64 `json:"pickup_latitude" binding:"required"`
	PickupLongitude   float64 `json:"pickup_longitude" binding:"required"`
}

func (h *FreezeHandler) UpdateLocations(c *gin.Context) {
	var req updateFreezeLocationsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	est, err := h.freeze.UpdateLocations(c.Request.Context(),
		types.ID(c.Param("id")), userID(c),
		types.Point{Lat: req.DeliveryLatitude, Lng: req.DeliveryLongitude},
		types.Point{Lat: req.PickupLatitude, Lng: req.PickupLongitude},
	)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, estimateView(est))
}

func (h *FreezeHandler) Cancel(c *gin.Context) {
	if err := h.freeze.Cancel(c.Request.Context(), types.ID(c.Param("id")), userID(c)); err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"message": "Freeze cancelled"})
}

func estimateView(e *freeze.Estimate) gin.H {
	return gin.H{
		"freeze_id":  e.Freeze.ID,
		"car_id":     e.Freeze.CarID,
		"car_no":     e.Car.CarNo,
		"start_date": e.Freeze.Start,
		"end_date":   e.Freeze.End,
		"expires_at": e.Freeze.ExpiresAt,
		"is_active":  e.Freeze.IsActive,
		"payment_summary": gin.H{
			"booking_details":      e.Quote.BookingDetails,
			"distance_calculation": e.Quote.DistanceCalculation,
			"charges_breakdown":    e.Quote.ChargesBreakdown,
			"kilometer_allowance":  e.Quote.KilometerAllowance,
		},
		"total_payable": e.Quote.TotalPayable,
	}
}
