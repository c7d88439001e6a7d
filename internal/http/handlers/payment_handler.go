// README: Payment query handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/payment"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/types"
)

type PaymentHandler struct {
	payment *payment.Service
}

func NewPaymentHandler(svc *payment.Service) *PaymentHandler {
	return &PaymentHandler{payment: svc}
}

func (h *PaymentHandler) Get(c *gin.Context) {
	p, err := h.payment.Get(c.Request.Context(), types.ID(c.Param("id")), userID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, paymentView(p))
}

func (h *PaymentHandler) ListMine(c *gin.Context) {
	limit, offset := pagination(c)
	payments, err := h.payment.ListMine(c.Request.Context(), userID(c), limit, offset)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, paymentListView(payments))
}

func (h *PaymentHandler) ListByBooking(c *gin.Context) {
	payments, err := h.payment.ListByBooking(c.Request.Context(), types.ID(c.Param("id")), userID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, paymentListView(payments))
}

// ListRefunding is the admin work queue of refunds waiting to be paid out.
func (h *PaymentHandler) ListRefunding(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	limit, offset := pagination(c)
	payments, err := h.payment.ListRefunding(c.Request.Context(), limit, offset)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, paymentListView(payments))
}

func paymentView(p *payment.Payment) gin.H {
	return gin.H{
		"payment_id":     p.ID,
		"booking_id":     p.BookingID,
		"customer_id":    p.CustomerID,
		"amount":         p.Amount,
		"type":           p.Type,
		"status":         p.Status,
		"method":         p.Method,
		"transaction_id": p.TransactionID,
		"remarks":        p.Remarks,
		"created_at":     p.CreatedAt,
	}
}

func paymentListView(payments []*payment.Payment) gin.H {
	views := make([]gin.H, 0, len(payments))
	for _, p := range payments {
		views = append(views, paymentView(p))
	}
	return gin.H{"payments": views, "total": len(views)}
}
