package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rideshare/internal/ride-service/domain"
	"rideshare/internal/ride-service/infrastructure/repository/memory"
	"rideshare/internal/ride-service/matching"
	"rideshare/internal/ride-service/service"
	"rideshare/pkg/auth"
	"rideshare/pkg/lock"
	"rideshare/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type api struct {
	t      *testing.T
	router *gin.Engine
	jwt    *auth.JWTManager
	locks  *lock.Registry
}

func newAPI(t *testing.T, opts ...Option) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	locks := lock.NewRegistry()
	guard := lock.NewAvailabilityGuard()
	strategy := matching.NewAvailabilityStrategy(store.Drivers(), store.Availability(), guard, time.UTC)
	rides := service.NewRideService(store, locks, strategy, domain.NewFareTable(), nil, logger.Nop(),
		service.WithLockTimeout(50*time.Millisecond))
	people := service.NewParticipantService(store, locks, guard, logger.Nop(), 50*time.Millisecond)
	jwt := auth.NewJWTManager("test-secret", time.Hour)

	router := gin.New()
	New(rides, people, jwt, nil, logger.Nop(), opts...).Register(router)
	return &api{t: t, router: router, jwt: jwt, locks: locks}
}

func (a *api) token(userID string, role auth.Role) string {
	tok, err := a.jwt.GenerateToken(userID, role)
	require.NoError(a.t, err)
	return tok
}

func (a *api) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// setup registers rider r1 with $100 and driver d1 available Monday morning,
// then requests and matches a ride for Monday 09:00 from postcode 3000 to the
// airport.
func (a *api) setup() (rider, driver, rideID string) {
	t := a.t
	rider, driver = a.token("r1", auth.RoleRider), a.token("d1", auth.RoleDriver)

	w := a.do(http.MethodPost, "/riders", rider, gin.H{"name": "Alice", "email": "alice@example.com"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = a.do(http.MethodPost, "/drivers", driver, gin.H{"name": "Bob", "email": "bob@example.com", "vehicle": "Sedan"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = a.do(http.MethodPut, "/drivers/d1/availability", driver, gin.H{
		"windows": []gin.H{{"day": "Monday", "start": "08:00", "end": "12:00"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = a.do(http.MethodPost, "/wallets/r1/top-up", rider, gin.H{"amount_cents": 10000})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(http.MethodPost, "/requests", rider, gin.H{
		"pickup_address":   "1 Swanston St",
		"pickup_postcode":  "3000",
		"dropoff_address":  "Tullamarine Airport",
		"dropoff_postcode": "3045",
		"requested_at":     "2024-03-04T09:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	requestID := decodeBody(t, w)["id"].(string)

	w = a.do(http.MethodPost, "/requests/"+requestID+"/match", rider, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	ride := decodeBody(t, w)
	assert.Equal(t, "MATCHED", ride["status"])
	assert.Equal(t, "d1", ride["driver_id"])
	assert.Equal(t, "60.00", ride["fare"])
	return rider, driver, ride["id"].(string)
}

func TestFullLifecycleOverHTTP(t *testing.T) {
	a := newAPI(t)
	rider, driver, rideID := a.setup()

	for _, step := range []struct{ action, status string }{
		{"accept", "ACCEPTED"},
		{"start", "IN_PROGRESS"},
		{"complete", "COMPLETED"},
	} {
		w := a.do(http.MethodPost, "/rides/"+rideID+"/"+step.action, driver, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, step.status, decodeBody(t, w)["status"])
	}

	w := a.do(http.MethodGet, "/wallets/r1", rider, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "40.00", decodeBody(t, w)["balance"])

	w = a.do(http.MethodGet, "/wallets/d1", driver, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 6000, decodeBody(t, w)["balance_cents"])

	w = a.do(http.MethodGet, "/rides/"+rideID+"/payments", rider, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var payments []paymentDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payments))
	require.Len(t, payments, 1)
	assert.Equal(t, "r1", payments[0].PayerID)

	w = a.do(http.MethodGet, "/riders/r1/history", rider, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []requestDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, "COMPLETED", history[0].Status)
}

func TestErrorKindsMapToStatusCodes(t *testing.T) {
	a := newAPI(t)
	rider, driver, rideID := a.setup()

	w := a.do(http.MethodGet, "/rides/nope", rider, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeBody(t, w)["error"])

	w = a.do(http.MethodPost, "/rides/"+rideID+"/start", driver, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invalid_state_transition", decodeBody(t, w)["error"])

	other := a.token("d2", auth.RoleDriver)
	w = a.do(http.MethodPost, "/rides/"+rideID+"/accept", other, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeBody(t, w)["message"], "driver not assigned")

	h, err := a.locks.Acquire(context.Background(), "ride:"+rideID)
	require.NoError(t, err)
	w = a.do(http.MethodPost, "/rides/"+rideID+"/accept", driver, nil)
	h.Release()
	assert.Equal(t, http.StatusLocked, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	w = a.do(http.MethodPost, "/rides/"+rideID+"/accept", driver, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNoDriverAvailable(t *testing.T) {
	a := newAPI(t)
	rider := a.token("r1", auth.RoleRider)
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/riders", rider, gin.H{"name": "Alice", "email": "alice@example.com"}).Code)

	w := a.do(http.MethodPost, "/requests", rider, gin.H{
		"pickup_address":  "1 Swanston St",
		"dropoff_address": "Airport",
		"requested_at":    "2024-03-05T09:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	requestID := decodeBody(t, w)["id"].(string)

	w = a.do(http.MethodPost, "/requests/"+requestID+"/match", rider, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "no_driver_available", decodeBody(t, w)["error"])
}

func TestAuthorization(t *testing.T) {
	a := newAPI(t)
	rider, _, rideID := a.setup()

	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/rides/"+rideID, "", nil).Code)
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, "/rides/"+rideID+"/accept", rider, nil).Code)
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodGet, "/wallets/d1", rider, nil).Code)

	admin := a.token("ops", auth.RoleAdmin)
	w := a.do(http.MethodGet, "/rides/active", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var active []rideDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &active))
	assert.Len(t, active, 1)

	intruder := a.token("r2", auth.RoleRider)
	requestID := active[0].RequestID
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, "/requests/"+requestID+"/cancel", intruder, nil).Code)

	w = a.do(http.MethodPost, "/requests/"+requestID+"/cancel", rider, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "CANCELLED", decodeBody(t, w)["status"])
}

func TestAdminOverview(t *testing.T) {
	a := newAPI(t)
	rider, driver, rideID := a.setup()
	admin := a.token("ops", auth.RoleAdmin)

	assert.Equal(t, http.StatusForbidden, a.do(http.MethodGet, "/admin/overview", rider, nil).Code)

	w := a.do(http.MethodGet, "/admin/overview", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var o overviewDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &o))
	assert.Equal(t, 1, o.OpenRequests)
	assert.Equal(t, 1, o.ActiveRides)
	assert.Equal(t, 1, o.BusyDrivers)
	assert.Equal(t, 1, o.Drivers)

	for _, action := range []string{"accept", "start", "complete"} {
		require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/rides/"+rideID+"/"+action, driver, nil).Code)
	}
	w = a.do(http.MethodGet, "/admin/overview", admin, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &o))
	assert.Equal(t, 0, o.ActiveRides)
	assert.Equal(t, 1, o.CompletedRides)
	assert.Equal(t, "60.00", o.CompletedRevenue)
}

func TestIssueTokenIsOffByDefault(t *testing.T) {
	a := newAPI(t)

	w := a.do(http.MethodPost, "/auth/token", "", gin.H{"user_id": "d9", "role": "driver"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = a.do(http.MethodPost, "/auth/token", "", gin.H{"user_id": "ops", "role": "admin"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/health", "", nil).Code)
}

func TestIssueTokenWithDevTokens(t *testing.T) {
	a := newAPI(t, WithDevTokens(true))

	w := a.do(http.MethodPost, "/auth/token", "", gin.H{"user_id": "d9", "role": "driver"})
	require.Equal(t, http.StatusOK, w.Code)
	claims, err := a.jwt.ParseToken(decodeBody(t, w)["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, auth.RoleDriver, claims.Role)

	w = a.do(http.MethodPost, "/auth/token", "", gin.H{"user_id": "ops", "role": "admin"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "forbidden", body["error"])
	assert.NotContains(t, body, "token")

	w = a.do(http.MethodPost, "/auth/token", "", gin.H{"user_id": "x", "role": "pilot"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPreviewFare(t *testing.T) {
	a := newAPI(t)
	rider := a.token("r1", auth.RoleRider)

	w := a.do(http.MethodGet, "/fares/preview?pickup=3000&dropoff=3550", rider, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var preview farePreviewDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &preview))
	assert.Equal(t, "220.00", preview.Fare)
	assert.EqualValues(t, 22000, preview.FareCents)

	w = a.do(http.MethodGet, "/fares/preview?pickup=3045", rider, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "60.00", decodeBody(t, w)["fare"])

	w = a.do(http.MethodGet, "/fares/preview?pickup=30&dropoff=3000", rider, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/fares/preview?pickup=3000", "", nil).Code)
}

func TestRequestableForDriver(t *testing.T) {
	a := newAPI(t)
	rider, driver, _ := a.setup()

	for _, at := range []string{"2024-03-04T10:30:00Z", "2024-03-05T10:30:00Z"} {
		w := a.do(http.MethodPost, "/requests", rider, gin.H{
			"pickup_address":   "1 Swanston St",
			"pickup_postcode":  "3000",
			"dropoff_address":  "Carlton",
			"dropoff_postcode": "3053",
			"requested_at":     at,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := a.do(http.MethodGet, "/drivers/d1/requestable", driver, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var reqs []requestDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reqs))
	require.Len(t, reqs, 1, "the matched request and the Tuesday one are left out")
	assert.Equal(t, "REQUESTED", reqs[0].Status)

	assert.Equal(t, http.StatusForbidden, a.do(http.MethodGet, "/drivers/d1/requestable", rider, nil).Code)
	other := a.token("d2", auth.RoleDriver)
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodGet, "/drivers/d1/requestable", other, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/drivers/d2/requestable", other, nil).Code)
}

func TestRequestWithoutFundsIsRejected(t *testing.T) {
	a := newAPI(t)
	rider := a.token("r1", auth.RoleRider)
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/riders", rider, gin.H{"name": "Alice", "email": "alice@example.com"}).Code)

	w := a.do(http.MethodPost, "/requests", rider, gin.H{
		"pickup_address":   "1 Swanston St",
		"pickup_postcode":  "3000",
		"dropoff_address":  "Tullamarine Airport",
		"dropoff_postcode": "3045",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeBody(t, w)["message"], "insufficient balance")

	w = a.do(http.MethodGet, "/riders/r1/history", rider, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}
