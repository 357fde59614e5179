package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"rideshare/internal/repository"
	"rideshare/internal/search"
	"rideshare/internal/service"
)

// genericErrorMessage hides internal failures from clients.
const genericErrorMessage = "Something went wrong"

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// MessageResponse is returned by endpoints that only acknowledge an action.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// respondError sends an error response with the appropriate HTTP status code.
// Unexpected errors are logged and replaced with a generic message.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		_ = c.Error(err)
		msg = genericErrorMessage
	}
	c.JSON(code, ErrorResponse{Error: msg})
}

// respondBadRequest sends a 400 with the given message.
func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation and business rule errors - Bad Request
	case errors.Is(err, search.ErrMissingParams),
		errors.Is(err, search.ErrInvalidDate),
		errors.Is(err, search.ErrInvalidSeatCount),
		errors.Is(err, service.ErrMissingRegistrationFields),
		errors.Is(err, service.ErrMissingCredentials),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrPasswordTooLong),
		errors.Is(err, service.ErrEmailExists),
		errors.Is(err, service.ErrInvalidUserID),
		errors.Is(err, service.ErrInvalidRideID),
		errors.Is(err, service.ErrInvalidPage),
		errors.Is(err, service.ErrInvalidAge),
		errors.Is(err, service.ErrEmptyName),
		errors.Is(err, service.ErrMissingRideFields),
		errors.Is(err, service.ErrInvalidPlace),
		errors.Is(err, service.ErrInvalidCoordinates),
		errors.Is(err, service.ErrStartInPast),
		errors.Is(err, service.ErrEndBeforeStart),
		errors.Is(err, service.ErrInvalidSeats),
		errors.Is(err, service.ErrNegativePrice),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrCannotJoinOwnRide),
		errors.Is(err, repository.ErrRideFull),
		errors.Is(err, repository.ErrAlreadyJoined),
		errors.Is(err, repository.ErrRideNotJoinable),
		errors.Is(err, repository.ErrSeatsBelowPassengers):
		return http.StatusBadRequest

	// Authentication errors
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
