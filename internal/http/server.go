// README: API gateway; registers HTTP routes and delegates to module services.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/J-SURYA/cruizo-backend-sub000/internal/http/handlers"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/http/middleware"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/availability"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/booking"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/freeze"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/notify"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/payment"
)

type ServerDeps struct {
	Freeze        *freeze.Service
	Booking       *booking.Service
	Payment       *payment.Service
	Availability  *availability.Service
	Notifications *notify.PGStore
}

type Server struct {
	deps ServerDeps
}

func NewServer(deps ServerDeps) *Server {
	registerValidators()
	return &Server{deps: deps}
}

// registerValidators adds the shared half-hour alignment rule used by every
// time field the booking engine accepts.
func registerValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("halfhour", func(fl validator.FieldLevel) bool {
		t, ok := fl.Field().Interface().(time.Time)
		if !ok {
			return false
		}
		return (t.Minute() == 0 || t.Minute() == 30) && t.Second() == 0
	})
}

func (s *Server) Routes() http.Handler {
	r := gin.New()
	r.Use(middleware.Logging(), middleware.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	freezeHandler := handlers.NewFreezeHandler(s.deps.Freeze)
	bookingHandler := handlers.NewBookingHandler(s.deps.Booking)
	paymentHandler := handlers.NewPaymentHandler(s.deps.Payment)
	availabilityHandler := handlers.NewAvailabilityHandler(s.deps.Availability)
	notificationHandler := handlers.NewNotificationHandler(s.deps.Notifications)

	api := r.Group("/api", middleware.Auth())

	api.GET("/cars/:id/slots", availabilityHandler.Slots)
	api.GET("/cars/:id/next-available", availabilityHandler.NextAvailable)

	api.POST("/freezes", freezeHandler.Create)
	api.GET("/freezes/:id", freezeHandler.Get)
	api.PATCH("/freezes/:id/locations", freezeHandler.UpdateLocations)
	api.DELETE("/freezes/:id", freezeHandler.Cancel)

	api.POST("/bookings", bookingHandler.Create)
	api.GET("/bookings", bookingHandler.ListMine)
	api.GET("/bookings/:id", bookingHandler.Get)
	api.GET("/bookings/:id/locations", bookingHandler.Locations)
	api.GET("/bookings/:id/delivery-otp", bookingHandler.DeliveryOTP)
	api.POST("/bookings/:id/return-request", bookingHandler.RequestReturn)
	api.GET("/bookings/:id/pickup-otp", bookingHandler.PickupOTP)
	api.POST("/bookings/:id/cancel", bookingHandler.Cancel)
	api.POST("/bookings/:id/review", bookingHandler.SubmitReview)
	api.GET("/bookings/:id/payments", paymentHandler.ListByBooking)

	api.GET("/payments", paymentHandler.ListMine)
	api.GET("/payments/:id", paymentHandler.Get)
	api.POST("/payments/:id/confirm", bookingHandler.ConfirmPayment)

	api.GET("/notifications", notificationHandler.List)
	api.POST("/notifications/:id/read", notificationHandler.MarkRead)

	admin := api.Group("/admin")
	admin.GET("/bookings", bookingHandler.ListAll)
	admin.GET("/bookings/:id", bookingHandler.GetAdmin)
	admin.POST("/bookings/:id/delivery", bookingHandler.ProcessDelivery)
	admin.POST("/bookings/:id/delivery/verify", bookingHandler.VerifyDeliveryOTP)
	admin.POST("/bookings/:id/return", bookingHandler.ProcessReturn)
	admin.POST("/bookings/:id/pickup/verify", bookingHandler.VerifyPickupOTP)
	admin.POST("/bookings/:id/cancel", bookingHandler.AdminCancel)
	admin.GET("/payments/refunding", paymentHandler.ListRefunding)
	admin.POST("/payments/:id/refund/confirm", bookingHandler.ConfirmRefund)

	return r
}
