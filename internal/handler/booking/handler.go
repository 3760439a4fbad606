package booking

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/reservapr/booking-api/internal/model"
	"github.com/reservapr/booking-api/internal/service/scheduling"
	"github.com/reservapr/booking-api/pkg/metrics"
)

// Handler serves the public booking surface: slot listings and booking
// submission. No auth; these endpoints back the customer-facing page.
type Handler struct {
	service *scheduling.Service
	metrics *metrics.Metrics
}

func NewHandler(service *scheduling.Service, metrics *metrics.Metrics) *Handler {
	return &Handler{service: service, metrics: metrics}
}

// GetSlots lists bookable start times for a service over a date range.
func (h *Handler) GetSlots(c *gin.Context) {
	businessID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid business ID"})
		return
	}

	serviceID, err := uuid.Parse(c.Query("service_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid service ID"})
		return
	}

	var staffID *uuid.UUID
	if v := c.Query("staff_id"); v != "" {
		parsed, err := uuid.Parse(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid staff ID"})
			return
		}
		staffID = &parsed
	}

	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid from date, expected YYYY-MM-DD"})
		return
	}
	to := from
	if v := c.Query("to"); v != "" {
		to, err = time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid to date, expected YYYY-MM-DD"})
			return
		}
	}

	timer := prometheus.NewTimer(h.metrics.SlotComputeDuration)
	slots, err := h.service.GenerateSlots(c.Request.Context(), businessID, serviceID, staffID, from, to)
	timer.ObserveDuration()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": slots})
}

// CreateBooking submits a booking. A full slot answers 409 so the client
// can refresh its slot list and offer another time.
func (h *Handler) CreateBooking(c *gin.Context) {
	var req model.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	appt, err := h.service.Book(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, scheduling.ErrSlotUnavailable):
			h.metrics.BookingsTotal.WithLabelValues("conflict").Inc()
			c.JSON(http.StatusConflict, gin.H{"status": "error", "message": "slot_unavailable"})
		case errors.Is(err, scheduling.ErrPastStart):
			h.metrics.BookingsTotal.WithLabelValues("rejected").Inc()
			c.JSON(http.StatusUnprocessableEntity, gin.H{"status": "error", "message": err.Error()})
		default:
			h.metrics.BookingsTotal.WithLabelValues("error").Inc()
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		}
		return
	}

	h.metrics.BookingsTotal.WithLabelValues("booked").Inc()
	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": appt})
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/businesses/:id/slots", h.GetSlots)
	r.POST("/bookings", h.CreateBooking)
}
