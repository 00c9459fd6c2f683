package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	reservationRepo "adspot/database/repository/reservation"
	"adspot/services/reservation"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := reservationRepo.NewMemoryReservationStore()
	svc := reservation.NewReservationService(
		store,
		&reservation.SimulatedGateway{},
		nil,
		zap.NewNop(),
	)
	h := NewReservationHandler(svc, zap.NewNop())

	router := gin.New()
	router.POST("/api/bookings", h.CreateReservation)
	router.GET("/api/bookings/:id", h.GetReservation)
	router.POST("/api/bookings/:id/accept", h.AcceptBooking)
	router.POST("/api/bookings/:id/decline", h.DeclineBooking)
	router.POST("/api/bookings/:id/cancel", h.CancelBooking)
	router.POST("/api/bookings/:id/refund-settled", h.MarkRefundSettled)
	router.GET("/api/screens/:id/bookings", h.ListForScreen)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createBooking(t *testing.T, router *gin.Engine, dates []string) map[string]any {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/bookings", gin.H{
		"screen_id":    "screen-1",
		"owner_id":     "owner-1",
		"renter_id":    "renter-1",
		"dates":        dates,
		"amount_total": 5000,
		"currency":     "usd",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	return got
}

func TestCreateAndFetchBooking(t *testing.T) {
	router := newTestRouter(t)

	created := createBooking(t, router, []string{"2025-06-01", "2025-06-02"})
	assert.Equal(t, "requested", created["status"])
	id := created["id"].(string)

	w := doJSON(t, router, http.MethodGet, "/api/bookings/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/bookings/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateBookingRejectsBadInput(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/bookings", gin.H{
		"screen_id": "screen-1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/bookings", gin.H{
		"screen_id":    "screen-1",
		"owner_id":     "owner-1",
		"renter_id":    "renter-1",
		"dates":        []string{"not-a-date"},
		"amount_total": 5000,
		"currency":     "usd",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAcceptEndpoint(t *testing.T) {
	router := newTestRouter(t)
	id := createBooking(t, router, []string{"2025-06-01"})["id"].(string)

	t.Run("wrong owner is forbidden", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/bookings/"+id+"/accept",
			gin.H{"acting_user_id": "intruder"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("owner accepts", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/bookings/"+id+"/accept",
			gin.H{"acting_user_id": "owner-1"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var got map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "accepted", got["status"])
	})

	t.Run("second accept conflicts", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/bookings/"+id+"/accept",
			gin.H{"acting_user_id": "owner-1"})
		assert.Equal(t, http.StatusConflict, w.Code)

		var got map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "invalid_transition", got["code"])
	})
}

func TestAcceptEndpointDateConflictPayload(t *testing.T) {
	router := newTestRouter(t)
	first := createBooking(t, router, []string{"2025-03-11"})["id"].(string)
	second := createBooking(t, router, []string{"2025-03-11", "2025-03-12"})["id"].(string)

	w := doJSON(t, router, http.MethodPost, "/api/bookings/"+first+"/accept",
		gin.H{"acting_user_id": "owner-1"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/bookings/"+second+"/accept",
		gin.H{"acting_user_id": "owner-1"})
	require.Equal(t, http.StatusConflict, w.Code)

	var got struct {
		Code  string   `json:"code"`
		Dates []string `json:"dates"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "date_conflict", got.Code)
	assert.Equal(t, []string{"2025-03-11"}, got.Dates)
}

func TestCancelEndpoint(t *testing.T) {
	router := newTestRouter(t)
	id := createBooking(t, router, []string{"2025-06-01"})["id"].(string)

	t.Run("requires a valid role", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/bookings/"+id+"/cancel",
			gin.H{"acting_user_id": "renter-1", "role": "admin"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("renter cancels", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/bookings/"+id+"/cancel",
			gin.H{"acting_user_id": "renter-1", "role": "renter"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var got map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "cancelled", got["status"])
	})

	t.Run("accept after cancel reports already_cancelled", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/bookings/"+id+"/accept",
			gin.H{"acting_user_id": "owner-1"})
		assert.Equal(t, http.StatusConflict, w.Code)

		var got map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "already_cancelled", got["code"])
	})

	t.Run("refund settlement closes the loop", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/bookings/"+id+"/refund-settled", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var got map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "refunded", got["status"])
	})
}

func TestListEndpoint(t *testing.T) {
	router := newTestRouter(t)
	for i := 0; i < 3; i++ {
		createBooking(t, router, []string{fmt.Sprintf("2025-06-0%d", i+1)})
	}

	w := doJSON(t, router, http.MethodGet, "/api/screens/screen-1/bookings", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		Bookings []map[string]any `json:"bookings"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got.Bookings, 3)
}
