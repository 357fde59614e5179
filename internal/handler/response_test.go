package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rideshare/internal/repository"
	"rideshare/internal/search"
	"rideshare/internal/service"
)

func TestMapErrorToHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{repository.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("load ride: %w", repository.ErrNotFound), http.StatusNotFound},
		{repository.ErrRideNotFound, http.StatusNotFound},
		{repository.ErrUserNotFound, http.StatusNotFound},
		{repository.ErrRideFull, http.StatusBadRequest},
		{repository.ErrAlreadyJoined, http.StatusBadRequest},
		{repository.ErrRideNotJoinable, http.StatusBadRequest},
		{repository.ErrSeatsBelowPassengers, http.StatusBadRequest},
		{search.ErrMissingParams, http.StatusBadRequest},
		{service.ErrEmailExists, http.StatusBadRequest},
		{service.ErrPasswordTooLong, http.StatusBadRequest},
		{service.ErrCannotJoinOwnRide, http.StatusBadRequest},
		{service.ErrInvalidRideID, http.StatusBadRequest},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{service.ErrInvalidToken, http.StatusForbidden},
		{service.ErrForbidden, http.StatusForbidden},
		{errors.New("pq: connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, mapErrorToHTTPStatus(tc.err), tc.err.Error())
	}
}

func TestRespondError_HidesInternalErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/rides", nil)

	respondError(c, errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, genericErrorMessage, resp.Error)
}

func TestRespondError_KeepsDomainMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/rides/x/join", nil)

	respondError(c, repository.ErrRideFull)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"ride is full"}`, w.Body.String())
}

func TestPlaceDTO_ToPlace(t *testing.T) {
	p, ok := PlaceDTO{Place: "Bengaluru", Coordinates: []float64{77.59, 12.97}}.toPlace()
	require.True(t, ok)
	assert.Equal(t, 77.59, p.Coordinates.Lng)
	assert.Equal(t, 12.97, p.Coordinates.Lat)

	p, ok = PlaceDTO{Place: "Bengaluru"}.toPlace()
	require.True(t, ok)
	assert.Nil(t, p.Coordinates)

	_, ok = PlaceDTO{Place: "Bengaluru", Coordinates: []float64{1}}.toPlace()
	assert.False(t, ok)
}

func TestRespondError_NamesMissingEntity(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := map[error]string{
		repository.ErrRideNotFound: "ride not found",
		repository.ErrUserNotFound: "user not found",
	}
	for err, want := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/api/rides/x", nil)

		respondError(c, err)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"success":false,"error":"`+want+`"}`, w.Body.String())
	}
}
