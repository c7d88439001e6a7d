// README: Booking handlers; freeze conversion and the rental lifecycle endpoints.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/booking"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/payment"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/types"
)

type BookingHandler struct {
	booking *booking.Service
}

func NewBookingHandler(svc *booking.Service) *BookingHandler {
	return &BookingHandler{booking: svc}
}

type createBookingReq struct {
	FreezeID string `json:"freeze_id" binding:"required"`
	Remarks  string `json:"remarks"`
}

func (h *BookingHandler) Create(c *gin.Context) {
	var req createBookingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	b, err := h.booking.CreateFromFreeze(c.Request.Context(), userID(c), types.ID(req.FreezeID), req.Remarks)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, bookingView(b))
}

func (h *BookingHandler) Get(c *gin.Context) {
	b, err := h.booking.Get(c.Request.Context(), types.ID(c.Param("id")), userID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, bookingView(b))
}

func (h *BookingHandler) GetAdmin(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	b, err := h.booking.GetAdmin(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, bookingView(b))
}

func (h *BookingHandler) ListMine(c *gin.Context) {
	limit, offset := pagination(c)
	items, total, err := h.booking.ListMine(c.Request.Context(), userID(c),
		booking.Status(c.Query("status")), limit, offset)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, bookingListView(items, total))
}

func (h *BookingHandler) ListAll(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	limit, offset := pagination(c)
	items, total, err := h.booking.ListAll(c.Request.Context(),
		booking.Status(c.Query("status")), limit, offset)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, bookingListView(items, total))
}

func (h *BookingHandler) Locations(c *gin.Context) {
	delivery, pickup, err := h.booking.Locations(c.Request.Context(), types.ID(c.Param("id")), userID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"delivery_location": locationView(delivery),
		"pickup_location":   locationView(pickup),
	})
}

type processDeliveryReq struct {
	VideoURL        string `json:"video_url" binding:"required"`
	StartKilometers int    `json:"start_kilometers" binding:"min=0"`
}

func (h *BookingHandler) ProcessDelivery(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	var req processDeliveryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	err := h.booking.ProcessDelivery(c.Request.Context(), types.ID(c.Param("id")), booking.ProcessDeliveryInput{
		VideoURL:        req.VideoURL,
		StartKilometers: req.StartKilometers,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"message": "Delivery processed. OTP sent to customer."})
}

func (h *BookingHandler) DeliveryOTP(c *gin.Context) {
	otp, generatedAt, err := h.booking.DeliveryOTP(c.Request.Context(), types.ID(c.Param("id")), userID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"otp": otp, "generated_at": generatedAt})
}

type verifyOTPReq struct {
	OTP string `json:"otp" binding:"required,len=6"`
}

func (h *BookingHandler) VerifyDeliveryOTP(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	var req verifyOTPReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	b, err := h.booking.VerifyDeliveryOTP(c.Request.Context(), types.ID(c.Param("id")), req.OTP)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, bookingView(b))
}

type returnRequestReq struct {
	ExpectedReturnTime time.Time `json:"expected_return_time" binding:"required,halfhour"`
	Remarks            string    `json:"remarks"`
}

func (h *BookingHandler) RequestReturn(c *gin.Context) {
	var req returnRequestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	b, err := h.booking.RequestReturn(c.Request.Context(), types.ID(c.Param("id")), userID(c),
		req.ExpectedReturnTime, req.Remarks)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, bookingView(b))
}

type extraChargeReq struct {
	Type          string  `json:"type" binding:"required"`
	Amount        float64 `json:"amount" binding:"min=0"`
	Specification string  `json:"specification"`
}

type processReturnReq struct {
	VideoURL      string           `json:"video_url" binding:"required"`
	EndKilometers int              `json:"end_kilometers" binding:"min=0"`
	ReturnedAt    time.Time        `json:"returned_at" binding:"required,halfhour"`
	ExtraCharges  []extraChargeReq `json:"extra_charges"`
	Remarks       string           `json:"remarks"`
}

func (h *BookingHandler) ProcessReturn(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	var req processReturnReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	in := booking.ProcessReturnInput{
		VideoURL:          req.VideoURL,
		EndKilometers:     req.EndKilometers,
		ReturnedAt:        req.ReturnedAt,
		SettlementRemarks: req.Remarks,
	}
	for _, ec := range req.ExtraCharges {
		in.ExtraCharges = append(in.ExtraCharges, booking.ExtraChargeItem{
			Type:          ec.Type,
			Amount:        ec.Amount,
			Specification: ec.Specification,
		})
	}
	b, err := h.booking.ProcessReturn(c.Request.Context(), types.ID(c.Param("id")), in)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"booking":    bookingView(b),
		"settlement": b.Summary.Settlement,
	})
}

func (h *BookingHandler) PickupOTP(c *gin.Context) {
	otp, generatedAt, err := h.booking.PickupOTP(c.Request.Context(), types.ID(c.Param("id")), userID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"otp": otp, "generated_at": generatedAt})
}

func (h *BookingHandler) VerifyPickupOTP(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	var req verifyOTPReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	b, err := h.booking.VerifyPickupOTP(c.Request.Context(), types.ID(c.Param("id")), req.OTP)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, bookingView(b))
}

type confirmPaymentReq struct {
	Method        string `json:"method" binding:"required"`
	TransactionID string `json:"transaction_id" binding:"required"`
	Remarks       string `json:"remarks"`
}

func (h *BookingHandler) ConfirmPayment(c *gin.Context) {
	var req confirmPaymentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	err := h.booking.ConfirmPayment(c.Request.Context(), types.ID(c.Param("id")), userID(c), payment.ConfirmInput{
		Method:        req.Method,
		TransactionID: req.TransactionID,
		Remarks:       req.Remarks,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"message": "Payment confirmed. Pickup OTP generated."})
}

func (h *BookingHandler) ConfirmRefund(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	var req confirmPaymentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	err := h.booking.ConfirmRefund(c.Request.Context(), types.ID(c.Param("id")), payment.ConfirmInput{
		Method:        req.Method,
		TransactionID: req.TransactionID,
		Remarks:       req.Remarks,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"message": "Refund confirmed"})
}

type cancelBookingReq struct {
	Reason     string `json:"reason" binding:"required"`
	AdminNotes string `json:"admin_notes"`
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	var req cancelBookingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	msg, err := h.booking.Cancel(c.Request.Context(), types.ID(c.Param("id")), userID(c), req.Reason)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"message": msg})
}

func (h *BookingHandler) AdminCancel(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	var req cancelBookingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	msg, err := h.booking.AdminCancel(c.Request.Context(), types.ID(c.Param("id")), userID(c),
		req.Reason, req.AdminNotes)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"message": msg})
}

type reviewReq struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Remarks string `json:"remarks"`
}

func (h *BookingHandler) SubmitReview(c *gin.Context) {
	var req reviewReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	b, err := h.booking.CompleteWithReview(c.Request.Context(), types.ID(c.Param("id")), userID(c),
		req.Rating, req.Remarks)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, bookingView(b))
}

func bookingView(b *booking.Booking) gin.H {
	return gin.H{
		"booking_id":      b.ID,
		"car_id":          b.CarID,
		"customer_id":     b.CustomerID,
		"start_date":      b.Start,
		"end_date":        b.End,
		"status":          b.Status,
		"payment_status":  b.PaymentStatus,
		"remarks":         b.Remarks,
		"payment_summary": b.Summary,
		"created_at":      b.CreatedAt,
	}
}

func bookingListView(items []*booking.Booking, total int) gin.H {
	views := make([]gin.H, 0, len(items))
	for _, b := range items {
		views = append(views, bookingView(b))
	}
	return gin.H{"bookings": views, "total": total}
}

func locationView(l *booking.Location) gin.H {
	return gin.H{
		"id":        l.ID,
		"latitude":  l.Point.Lat,
		"longitude": l.Point.Lng,
		"address":   l.Address,
	}
}
