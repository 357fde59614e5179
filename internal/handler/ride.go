package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"rideshare/internal/auth"
	"rideshare/internal/domain"
	"rideshare/internal/middleware"
	"rideshare/internal/repository"
	"rideshare/internal/search"
	"rideshare/internal/service"
)

const (
	msgInvalidBody        = "invalid request body"
	msgInvalidDate        = "invalid date format provided"
	msgInvalidCoordinates = "coordinates must be a [lng, lat] pair"
)

// RideHandler handles HTTP requests for rides.
type RideHandler struct {
	rideService *service.RideService
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(rideService *service.RideService) *RideHandler {
	return &RideHandler{rideService: rideService}
}

// CreateRideRequest is the HTTP request body for publishing a ride.
// Capacity may be sent as seats or availableSeats.
type CreateRideRequest struct {
	Origin         PlaceDTO    `json:"origin"`
	Destination    PlaceDTO    `json:"destination"`
	StartTime      string      `json:"startTime"`
	EndTime        string      `json:"endTime"`
	Seats          int         `json:"seats"`
	AvailableSeats int         `json:"availableSeats"`
	Price          float64     `json:"price"`
	Vehicle        *VehicleDTO `json:"vehicleDetails"`
}

// UpdateRideRequest is the HTTP request body for a partial ride update.
type UpdateRideRequest struct {
	Origin      *PlaceDTO   `json:"origin"`
	Destination *PlaceDTO   `json:"destination"`
	StartTime   *string     `json:"startTime"`
	EndTime     *string     `json:"endTime"`
	Seats       *int        `json:"seats"`
	Price       *float64    `json:"price"`
	Status      *string     `json:"status"`
	Vehicle     *VehicleDTO `json:"vehicleDetails"`
}

// SearchResponse is the HTTP response for a ride search.
type SearchResponse struct {
	Success bool           `json:"success"`
	Count   int            `json:"count"`
	Rides   []RideResponse `json:"rides"`
}

// RideEnvelope wraps a single ride with a status message.
type RideEnvelope struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Ride    RideResponse `json:"ride"`
}

// CreateRide handles POST /api/rides
func (h *RideHandler) CreateRide(c *gin.Context) {
	claims, ok := middleware.Claims(c)
	if !ok {
		respondError(c, service.ErrInvalidToken)
		return
	}

	var req CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, msgInvalidBody)
		return
	}

	origin, okOrigin := req.Origin.toPlace()
	destination, okDestination := req.Destination.toPlace()
	if !okOrigin || !okDestination {
		respondBadRequest(c, msgInvalidCoordinates)
		return
	}

	start, err := parseOptionalTime(req.StartTime)
	if err != nil {
		respondBadRequest(c, msgInvalidDate)
		return
	}
	end, err := parseOptionalTime(req.EndTime)
	if err != nil {
		respondBadRequest(c, msgInvalidDate)
		return
	}

	seats := req.Seats
	if seats == 0 {
		seats = req.AvailableSeats
	}

	createReq := service.CreateRideRequest{
		Origin:      origin,
		Destination: destination,
		StartTime:   start,
		EndTime:     end,
		Seats:       seats,
		Price:       req.Price,
	}
	if req.Vehicle != nil {
		createReq.Vehicle = domain.Vehicle{Number: req.Vehicle.Number, Model: req.Vehicle.Model}
	}

	ride, err := h.rideService.Create(c.Request.Context(), claims.UserID, createReq)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, RideEnvelope{
		Success: true,
		Message: "Ride created successfully",
		Ride:    toRideResponse(ride),
	})
}

// GetRide handles GET /api/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	ride, err := h.rideService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// GetAll handles GET /api/rides?limit=&offset=
func (h *RideHandler) GetAll(c *gin.Context) {
	var page repository.Page
	var err error
	if page.Limit, err = queryInt(c, "limit"); err != nil {
		respondBadRequest(c, "limit must be an integer")
		return
	}
	if page.Offset, err = queryInt(c, "offset"); err != nil {
		respondBadRequest(c, "offset must be an integer")
		return
	}

	rides, err := h.rideService.List(c.Request.Context(), page)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponses(rides))
}

// FindRides handles GET /api/rides/find
func (h *RideHandler) FindRides(c *gin.Context) {
	rides, err := h.rideService.Search(c.Request.Context(), search.Params{
		From:      c.Query("from"),
		To:        c.Query("to"),
		Seat:      c.Query("seat"),
		Date:      c.Query("date"),
		Sort:      c.Query("sort"),
		Departure: c.QueryArray("departure"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, SearchResponse{
		Success: true,
		Count:   len(rides),
		Rides:   toRideResponses(rides),
	})
}

// UpdateRide handles PUT /api/rides/:id
func (h *RideHandler) UpdateRide(c *gin.Context) {
	claims, ok := middleware.Claims(c)
	if !ok {
		respondError(c, service.ErrInvalidToken)
		return
	}

	var req UpdateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, msgInvalidBody)
		return
	}

	updateReq := service.UpdateRideRequest{
		Seats: req.Seats,
		Price: req.Price,
	}
	if req.Origin != nil {
		p, ok := req.Origin.toPlace()
		if !ok {
			respondBadRequest(c, msgInvalidCoordinates)
			return
		}
		updateReq.Origin = &p
	}
	if req.Destination != nil {
		p, ok := req.Destination.toPlace()
		if !ok {
			respondBadRequest(c, msgInvalidCoordinates)
			return
		}
		updateReq.Destination = &p
	}
	if req.StartTime != nil {
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(*req.StartTime))
		if err != nil {
			respondBadRequest(c, msgInvalidDate)
			return
		}
		updateReq.StartTime = &t
	}
	if req.EndTime != nil {
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(*req.EndTime))
		if err != nil {
			respondBadRequest(c, msgInvalidDate)
			return
		}
		updateReq.EndTime = &t
	}
	if req.Status != nil {
		status := domain.RideStatus(strings.ToLower(strings.TrimSpace(*req.Status)))
		updateReq.Status = &status
	}
	if req.Vehicle != nil {
		updateReq.Vehicle = &domain.Vehicle{Number: req.Vehicle.Number, Model: req.Vehicle.Model}
	}

	ride, err := h.rideService.Update(c.Request.Context(), c.Param("id"), actorFromClaims(claims), updateReq)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, RideEnvelope{Success: true, Ride: toRideResponse(ride)})
}

// DeleteRide handles DELETE /api/rides/:id
func (h *RideHandler) DeleteRide(c *gin.Context) {
	claims, ok := middleware.Claims(c)
	if !ok {
		respondError(c, service.ErrInvalidToken)
		return
	}

	if err := h.rideService.Delete(c.Request.Context(), c.Param("id"), actorFromClaims(claims)); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, MessageResponse{Success: true, Message: "Ride has been deleted"})
}

// JoinRide handles POST /api/rides/:id/join
func (h *RideHandler) JoinRide(c *gin.Context) {
	claims, ok := middleware.Claims(c)
	if !ok {
		respondError(c, service.ErrInvalidToken)
		return
	}

	ride, err := h.rideService.Join(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, RideEnvelope{
		Success: true,
		Message: "Successfully joined the ride!",
		Ride:    toRideResponse(ride),
	})
}

// parseOptionalTime parses an RFC 3339 timestamp. An empty string yields the zero time
// so the service can report the missing field.
func parseOptionalTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func actorFromClaims(claims *auth.Claims) service.Actor {
	return service.Actor{UserID: claims.UserID, IsAdmin: claims.IsAdmin}
}

// queryInt reads an optional integer query parameter. Absent means zero.
func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
