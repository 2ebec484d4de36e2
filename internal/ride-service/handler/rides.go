package handler

import (
	"context"
	"net/http"

	"rideshare/internal/ride-service/domain"
	"rideshare/internal/ride-service/service"
	"rideshare/pkg/auth"

	"github.com/gin-gonic/gin"
)

type requestRideRequest struct {
	RiderID         string `json:"rider_id"`
	PickupAddress   string `json:"pickup_address" binding:"required"`
	PickupPostcode  string `json:"pickup_postcode"`
	DropoffAddress  string `json:"dropoff_address" binding:"required"`
	DropoffPostcode string `json:"dropoff_postcode"`
	RequestedAt     string `json:"requested_at"`
}

// POST /requests
func (h *Handler) RequestRide(c *gin.Context) {
	var in requestRideRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	riderID, ok := actingAs(c, in.RiderID)
	if !ok {
		return
	}
	at, err := parseTime(in.RequestedAt)
	if err != nil {
		badRequest(c, err)
		return
	}

	req, err := h.rides.RequestRide(c.Request.Context(), service.RequestRideCommand{
		RiderID:         riderID,
		PickupAddress:   in.PickupAddress,
		PickupPostcode:  in.PickupPostcode,
		DropoffAddress:  in.DropoffAddress,
		DropoffPostcode: in.DropoffPostcode,
		RequestedAt:     at,
	})
	if err != nil {
		h.writeError(c, "request_ride_failed", err)
		return
	}
	c.JSON(http.StatusCreated, toRequest(req))
}

// POST /requests/:id/match
func (h *Handler) MatchRide(c *gin.Context) {
	if !h.ownsRequest(c) {
		return
	}
	ride, err := h.rides.MatchRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "match_ride_failed", err)
		return
	}
	c.JSON(http.StatusCreated, toRide(ride))
}

// POST /requests/:id/cancel
func (h *Handler) CancelRequest(c *gin.Context) {
	if !h.ownsRequest(c) {
		return
	}
	req, err := h.rides.CancelRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "cancel_request_failed", err)
		return
	}
	c.JSON(http.StatusOK, toRequest(req))
}

// ownsRequest rejects riders acting on someone else's request.
func (h *Handler) ownsRequest(c *gin.Context) bool {
	req, err := h.rides.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "get_request_failed", err)
		return false
	}
	_, ok := actingAs(c, req.RiderID())
	return ok
}

// GET /requests/open
func (h *Handler) ListOpenRequests(c *gin.Context) {
	reqs, err := h.rides.ListOpenRequests(c.Request.Context())
	if err != nil {
		h.writeError(c, "list_open_requests_failed", err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(reqs, toRequest))
}

// GET /fares/preview?pickup=3000&dropoff=3045
func (h *Handler) PreviewFare(c *gin.Context) {
	pickup, dropoff := c.Query("pickup"), c.Query("dropoff")
	fare, err := h.rides.PreviewFare(pickup, dropoff)
	if err != nil {
		h.writeError(c, "preview_fare_failed", err)
		return
	}
	c.JSON(http.StatusOK, farePreviewDTO{
		PickupPostcode:  pickup,
		DropoffPostcode: dropoff,
		Fare:            fare.String(),
		FareCents:       int64(fare),
	})
}

// GET /requests/:id
func (h *Handler) GetRequest(c *gin.Context) {
	req, err := h.rides.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "get_request_failed", err)
		return
	}
	c.JSON(http.StatusOK, toRequest(req))
}

// GET /rides/active
func (h *Handler) ListActiveRides(c *gin.Context) {
	rides, err := h.rides.ListActiveRides(c.Request.Context())
	if err != nil {
		h.writeError(c, "list_active_rides_failed", err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(rides, toRide))
}

// GET /admin/overview
func (h *Handler) AdminOverview(c *gin.Context) {
	o, err := h.rides.Overview(c.Request.Context())
	if err != nil {
		h.writeError(c, "admin_overview_failed", err)
		return
	}
	c.JSON(http.StatusOK, toOverview(o))
}

// GET /rides/:id
func (h *Handler) GetRide(c *gin.Context) {
	ride, err := h.rides.GetRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "get_ride_failed", err)
		return
	}
	c.JSON(http.StatusOK, toRide(ride))
}

// GET /rides/:id/payments
func (h *Handler) RidePayments(c *gin.Context) {
	payments, err := h.rides.PaymentsForRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "ride_payments_failed", err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(payments, toPayment))
}

type rideActionRequest struct {
	DriverID string `json:"driver_id"`
}

// rideCommand reads the acting driver. Drivers act as themselves; an admin
// may name a driver or none, which skips the assignment check.
func rideCommand(c *gin.Context) (service.RideCommand, bool) {
	var in rideActionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err)
			return service.RideCommand{}, false
		}
	}
	cmd := service.RideCommand{RideID: c.Param("id"), DriverID: in.DriverID}

	claims, _ := auth.GetClaims(c)
	if claims.Role == auth.RoleAdmin {
		return cmd, true
	}
	driverID, ok := actingAs(c, in.DriverID)
	cmd.DriverID = driverID
	return cmd, ok
}

type rideOp func(ctx context.Context, cmd service.RideCommand) (*domain.Ride, error)

func (h *Handler) runRideOp(c *gin.Context, action string, op rideOp) {
	cmd, ok := rideCommand(c)
	if !ok {
		return
	}
	ride, err := op(c.Request.Context(), cmd)
	if err != nil {
		h.writeError(c, action+"_failed", err)
		return
	}
	c.JSON(http.StatusOK, toRide(ride))
}

// POST /rides/:id/accept
func (h *Handler) AcceptRide(c *gin.Context) { h.runRideOp(c, "accept_ride", h.rides.AcceptRide) }

// POST /rides/:id/start
func (h *Handler) StartRide(c *gin.Context) { h.runRideOp(c, "start_ride", h.rides.StartRide) }

// POST /rides/:id/complete
func (h *Handler) CompleteRide(c *gin.Context) { h.runRideOp(c, "complete_ride", h.rides.CompleteRide) }
