package handler

import (
	"net/http"

	"rideshare/internal/ride-service/domain"
	"rideshare/internal/ride-service/service"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	ID      string `json:"id"`
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required"`
	Vehicle string `json:"vehicle"`
}

func (h *Handler) bindRegistration(c *gin.Context) (service.RegisterParticipantCommand, bool) {
	var in registerRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return service.RegisterParticipantCommand{}, false
	}
	id, ok := actingAs(c, in.ID)
	if !ok {
		return service.RegisterParticipantCommand{}, false
	}
	return service.RegisterParticipantCommand{ID: id, Name: in.Name, Email: in.Email, Vehicle: in.Vehicle}, true
}

// POST /riders
func (h *Handler) RegisterRider(c *gin.Context) {
	cmd, ok := h.bindRegistration(c)
	if !ok {
		return
	}
	rider, err := h.people.RegisterRider(c.Request.Context(), cmd)
	if err != nil {
		h.writeError(c, "register_rider_failed", err)
		return
	}
	c.JSON(http.StatusCreated, toRider(rider))
}

// GET /riders/:id
func (h *Handler) GetRider(c *gin.Context) {
	rider, err := h.people.GetRider(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "get_rider_failed", err)
		return
	}
	c.JSON(http.StatusOK, toRider(rider))
}

// GET /riders/:id/history
func (h *Handler) RiderHistory(c *gin.Context) {
	riderID, ok := actingAs(c, c.Param("id"))
	if !ok {
		return
	}
	reqs, err := h.rides.RiderHistory(c.Request.Context(), riderID)
	if err != nil {
		h.writeError(c, "rider_history_failed", err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(reqs, toRequest))
}

// POST /drivers
func (h *Handler) RegisterDriver(c *gin.Context) {
	cmd, ok := h.bindRegistration(c)
	if !ok {
		return
	}
	driver, err := h.people.RegisterDriver(c.Request.Context(), cmd)
	if err != nil {
		h.writeError(c, "register_driver_failed", err)
		return
	}
	c.JSON(http.StatusCreated, toDriver(driver))
}

// GET /drivers
func (h *Handler) ListDrivers(c *gin.Context) {
	drivers, err := h.people.ListDrivers(c.Request.Context())
	if err != nil {
		h.writeError(c, "list_drivers_failed", err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(drivers, toDriver))
}

// GET /drivers/:id
func (h *Handler) GetDriver(c *gin.Context) {
	driver, err := h.people.GetDriver(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "get_driver_failed", err)
		return
	}
	c.JSON(http.StatusOK, toDriver(driver))
}

// GET /drivers/:id/rides
func (h *Handler) DriverRides(c *gin.Context) {
	driverID, ok := actingAs(c, c.Param("id"))
	if !ok {
		return
	}
	rides, err := h.rides.DriverRides(c.Request.Context(), driverID)
	if err != nil {
		h.writeError(c, "driver_rides_failed", err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(rides, toRide))
}

// GET /drivers/:id/requestable
func (h *Handler) RequestableFor(c *gin.Context) {
	driverID, ok := actingAs(c, c.Param("id"))
	if !ok {
		return
	}
	reqs, err := h.rides.ListRequestableFor(c.Request.Context(), driverID)
	if err != nil {
		h.writeError(c, "list_requestable_failed", err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(reqs, toRequest))
}

type availabilityRequest struct {
	Windows []windowDTO `json:"windows" binding:"dive"`
}

// PUT /drivers/:id/availability
func (h *Handler) SetAvailability(c *gin.Context) {
	driverID, ok := actingAs(c, c.Param("id"))
	if !ok {
		return
	}
	var in availabilityRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	cmd := service.SetAvailabilityCommand{DriverID: driverID}
	for _, w := range in.Windows {
		cmd.Windows = append(cmd.Windows, service.WindowInput{Day: w.Day, Start: w.Start, End: w.End})
	}
	schedule, err := h.people.SetAvailability(c.Request.Context(), cmd)
	if err != nil {
		h.writeError(c, "set_availability_failed", err)
		return
	}
	c.JSON(http.StatusOK, toSchedule(schedule))
}

// GET /drivers/:id/availability
func (h *Handler) GetAvailability(c *gin.Context) {
	schedule, err := h.people.GetAvailability(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "get_availability_failed", err)
		return
	}
	c.JSON(http.StatusOK, toSchedule(schedule))
}

type topUpRequest struct {
	AmountCents int64 `json:"amount_cents" binding:"required"`
}

// POST /wallets/:id/top-up
func (h *Handler) TopUpWallet(c *gin.Context) {
	userID, ok := actingAs(c, c.Param("id"))
	if !ok {
		return
	}
	var in topUpRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	wallet, err := h.people.TopUpWallet(c.Request.Context(), userID, domain.Money(in.AmountCents))
	if err != nil {
		h.writeError(c, "top_up_wallet_failed", err)
		return
	}
	c.JSON(http.StatusOK, toWallet(wallet))
}

// GET /wallets/:id
func (h *Handler) GetWallet(c *gin.Context) {
	userID, ok := actingAs(c, c.Param("id"))
	if !ok {
		return
	}
	wallet, err := h.people.GetWallet(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, "get_wallet_failed", err)
		return
	}
	c.JSON(http.StatusOK, toWallet(wallet))
}
