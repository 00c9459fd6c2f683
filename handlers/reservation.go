package handlers

import (
	"errors"
	"net/http"

	"adspot/services/reservation"
	"adspot/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ReservationHandler exposes the reservation lifecycle over HTTP. It is a
// thin layer: requests are bound, the acting party is taken from the request,
// and every service error maps to one specific response so clients can act
// on the condition rather than parse message text.
type ReservationHandler struct {
	Service reservation.Service
	Logger  *zap.Logger
}

func NewReservationHandler(svc reservation.Service, logger *zap.Logger) *ReservationHandler {
	return &ReservationHandler{Service: svc, Logger: logger}
}

type createReservationRequest struct {
	ScreenID            string   `json:"screen_id" binding:"required"`
	OwnerID             string   `json:"owner_id" binding:"required"`
	RenterID            string   `json:"renter_id" binding:"required"`
	Dates               []string `json:"dates" binding:"required"`
	AmountTotal         int64    `json:"amount_total" binding:"required"`
	Currency            string   `json:"currency" binding:"required"`
	ContentID           string   `json:"content_id"`
	SpecialInstructions string   `json:"special_instructions"`
}

// CreateReservation handles POST /api/bookings.
func (h *ReservationHandler) CreateReservation(c *gin.Context) {
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	res, err := h.Service.CreateReservation(c.Request.Context(), reservation.CreateReservationInput{
		ScreenID:            req.ScreenID,
		OwnerID:             req.OwnerID,
		RenterID:            req.RenterID,
		Dates:               req.Dates,
		AmountTotal:         req.AmountTotal,
		Currency:            req.Currency,
		ContentID:           req.ContentID,
		SpecialInstructions: req.SpecialInstructions,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

type actorRequest struct {
	ActingUserID string `json:"acting_user_id" binding:"required"`
	Role         string `json:"role"` // "owner" or "renter"; cancel only
}

// AcceptBooking handles POST /api/bookings/:id/accept.
func (h *ReservationHandler) AcceptBooking(c *gin.Context) {
	var req actorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	res, err := h.Service.AcceptBooking(c.Request.Context(), c.Param("id"), req.ActingUserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DeclineBooking handles POST /api/bookings/:id/decline.
func (h *ReservationHandler) DeclineBooking(c *gin.Context) {
	var req actorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	res, err := h.Service.DeclineBooking(c.Request.Context(), c.Param("id"), req.ActingUserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// CancelBooking handles POST /api/bookings/:id/cancel.
func (h *ReservationHandler) CancelBooking(c *gin.Context) {
	var req actorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	var role reservation.Actor
	switch req.Role {
	case "owner":
		role = reservation.ActorOwner
	case "renter":
		role = reservation.ActorRenter
	default:
		utils.JSONError(c, http.StatusBadRequest, "invalid input", "role must be owner or renter")
		return
	}
	res, err := h.Service.CancelBooking(c.Request.Context(), c.Param("id"), req.ActingUserID, role)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// MarkRefundSettled handles POST /api/bookings/:id/refund-settled, invoked
// by the payment provider's settlement callback.
func (h *ReservationHandler) MarkRefundSettled(c *gin.Context) {
	res, err := h.Service.MarkRefundSettled(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetReservation handles GET /api/bookings/:id.
func (h *ReservationHandler) GetReservation(c *gin.Context) {
	res, err := h.Service.GetReservation(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListForScreen handles GET /api/screens/:id/bookings.
func (h *ReservationHandler) ListForScreen(c *gin.Context) {
	h.respondList(c)(h.Service.ListForScreen(c.Request.Context(), c.Param("id")))
}

// ListForOwner handles GET /api/owners/:id/bookings.
func (h *ReservationHandler) ListForOwner(c *gin.Context) {
	h.respondList(c)(h.Service.ListForOwner(c.Request.Context(), c.Param("id")))
}

// ListForRenter handles GET /api/renters/:id/bookings.
func (h *ReservationHandler) ListForRenter(c *gin.Context) {
	h.respondList(c)(h.Service.ListForRenter(c.Request.Context(), c.Param("id")))
}

func (h *ReservationHandler) respondList(c *gin.Context) func(any, error) {
	return func(list any, err error) {
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"bookings": list})
	}
}

// respondError maps the service taxonomy onto HTTP. Each condition gets its
// own code field; the app branches on it, never on the message.
func (h *ReservationHandler) respondError(c *gin.Context, err error) {
	var invalid *reservation.InvalidTransitionError
	var dateConflict *reservation.DateConflictError

	switch {
	case errors.Is(err, reservation.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "message": "booking not found"})
	case errors.Is(err, reservation.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"code": "forbidden", "message": "you are not allowed to perform this action"})
	case errors.Is(err, reservation.ErrAlreadyCancelled):
		c.JSON(http.StatusConflict, gin.H{
			"code":    "already_cancelled",
			"message": "this booking was already cancelled by the renter; refresh to see its current state",
		})
	case errors.As(err, &dateConflict):
		c.JSON(http.StatusConflict, gin.H{
			"code":    "date_conflict",
			"message": "some dates are already booked for this screen",
			"dates":   dateConflict.Dates,
		})
	case errors.As(err, &invalid):
		c.JSON(http.StatusConflict, gin.H{
			"code":    "invalid_transition",
			"message": invalid.Error(),
			"status":  string(invalid.Status),
			"event":   string(invalid.Event),
		})
	case errors.Is(err, reservation.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{
			"code":    "concurrent_update",
			"message": "the booking was modified concurrently; re-read and try again",
		})
	case errors.Is(err, reservation.ErrPaymentFailed):
		c.JSON(http.StatusPaymentRequired, gin.H{"code": "payment_failed", "message": "the charge could not be completed"})
	case errors.Is(err, reservation.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_input", "message": err.Error()})
	default:
		h.Logger.Error("unhandled reservation error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal", "message": "internal server error"})
	}
}
