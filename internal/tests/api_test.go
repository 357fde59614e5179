package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"rideshare/internal/app"
	"rideshare/internal/auth"
	"rideshare/internal/handler"
	"rideshare/internal/repository"
	"rideshare/internal/service"
)

const cookieName = "accessToken"

func init() {
	gin.SetMode(gin.TestMode)
}

// ──────────────────────────────────────────────
// HTTP HARNESS
// ──────────────────────────────────────────────

type testServer struct {
	router *gin.Engine
	tokens *auth.TokenManager
	users  *MockUserRepository
	rides  *MockRideRepository
}

func newTestServer() *testServer {
	users := NewMockUserRepository()
	rides := NewMockRideRepository()
	users.Rides = rides

	tokens := auth.NewTokenManager(testSecret, 24*time.Hour, "rideshare-test")
	tokenStore := NewMockTokenStore()
	cache := NewMockRideCache()
	publisher := &MockPublisher{}

	authService := service.NewAuthService(users, tokens, tokenStore, "admin@example.com")
	userService := service.NewUserService(users, cache)
	rideService := service.NewRideService(rides, cache, publisher, service.NewNotificationService(publisher), time.UTC)

	router := app.NewRouter(app.RouterDeps{
		AuthHandler:   handler.NewAuthHandler(authService, handler.CookieConfig{Name: cookieName, MaxAge: 24 * time.Hour}),
		UserHandler:   handler.NewUserHandler(userService),
		RideHandler:   handler.NewRideHandler(rideService),
		HealthHandler: handler.NewHealthHandler(nil),
		Authenticator: authService,
		CookieName:    cookieName,
	})

	return &testServer{router: router, tokens: tokens, users: users, rides: rides}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// register creates an account over HTTP and returns its ID and token.
func (s *testServer) register(t *testing.T, name, email string) (string, string) {
	t.Helper()

	w := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "password123",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d: %s", email, w.Code, w.Body.String())
	}
	var resp handler.AuthResponse
	decode(t, w, &resp)
	return resp.User.ID, resp.Token
}

// mint issues a token for a user that only needs to exist as an ID.
func (s *testServer) mint(t *testing.T) (string, string) {
	t.Helper()

	id := uuid.NewString()
	token, _, err := s.tokens.Generate(id, false)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return id, token
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp handler.ErrorResponse
	decode(t, w, &resp)
	return resp.Error
}

func rideBody(start time.Time, seats int) map[string]any {
	return map[string]any{
		"origin":      map[string]any{"place": "Bengaluru", "coordinates": []float64{77.5946, 12.9716}},
		"destination": map[string]any{"place": "Yelahanka"},
		"startTime":   start.Format(time.RFC3339),
		"endTime":     start.Add(time.Hour).Format(time.RFC3339),
		"seats":       seats,
		"price":       120,
		"vehicleDetails": map[string]any{
			"vehicleNumber": "KA05MN4321",
			"model":         "Innova",
		},
	}
}

func (s *testServer) createRide(t *testing.T, token string, start time.Time, seats int) handler.RideResponse {
	t.Helper()

	w := s.do(t, http.MethodPost, "/api/rides", token, rideBody(start, seats))
	if w.Code != http.StatusCreated {
		t.Fatalf("create ride: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp handler.RideEnvelope
	decode(t, w, &resp)
	return resp.Ride
}

func searchPath(start time.Time, seat string) string {
	q := url.Values{}
	q.Set("from", "bengaluru")
	q.Set("to", "YELA")
	q.Set("seat", seat)
	q.Set("date", start.UTC().Format("2006-01-02"))
	return "/api/rides/find?" + q.Encode()
}

// ──────────────────────────────────────────────
// 7. END-TO-END FLOWS
// ──────────────────────────────────────────────

func TestAPI_PublishSearchAndJoinUntilFull(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	_, creatorToken := s.register(t, "Creator", "creator@example.com")
	_, firstToken := s.register(t, "First", "first@example.com")
	_, secondToken := s.register(t, "Second", "second@example.com")
	_, thirdToken := s.register(t, "Third", "third@example.com")

	start := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Hour).Add(10 * time.Hour)
	ride := s.createRide(t, creatorToken, start, 2)
	if ride.Seats != 2 || ride.AvailableSeats != 2 || ride.Status != "pending" {
		t.Fatalf("unexpected created ride: %+v", ride)
	}

	var found handler.SearchResponse
	w := s.do(t, http.MethodGet, searchPath(start, "2"), "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	decode(t, w, &found)
	if found.Count != 1 || found.Rides[0].ID != ride.ID {
		t.Fatalf("expected search to find the ride, got %+v", found)
	}

	joinPath := "/api/rides/" + ride.ID + "/join"
	for i, tc := range []struct {
		token string
		seats int
	}{{firstToken, 1}, {secondToken, 0}} {
		w := s.do(t, http.MethodPost, joinPath, tc.token, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("join %d: expected 200, got %d: %s", i, w.Code, w.Body.String())
		}
		var resp handler.RideEnvelope
		decode(t, w, &resp)
		if resp.Message != "Successfully joined the ride!" {
			t.Errorf("join %d: unexpected message %q", i, resp.Message)
		}
		if resp.Ride.AvailableSeats != tc.seats {
			t.Errorf("join %d: expected %d seats left, got %d", i, tc.seats, resp.Ride.AvailableSeats)
		}
	}

	w = s.do(t, http.MethodPost, joinPath, thirdToken, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("third join: expected 400, got %d", w.Code)
	}
	if msg := errorMessage(t, w); msg != "ride is full" {
		t.Errorf("expected %q, got %q", "ride is full", msg)
	}

	w = s.do(t, http.MethodPost, joinPath, firstToken, nil)
	if msg := errorMessage(t, w); w.Code != http.StatusBadRequest || msg != "you already joined this ride" {
		t.Errorf("rejoin: expected 400 already joined, got %d %q", w.Code, msg)
	}

	w = s.do(t, http.MethodPost, joinPath, creatorToken, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("creator join: expected 400, got %d", w.Code)
	}

	found = handler.SearchResponse{}
	decode(t, s.do(t, http.MethodGet, searchPath(start, "1"), "", nil), &found)
	if found.Count != 0 {
		t.Errorf("expected full ride to drop out of search, got %d results", found.Count)
	}

	var got handler.RideResponse
	decode(t, s.do(t, http.MethodGet, "/api/rides/"+ride.ID, "", nil), &got)
	if len(got.Passengers) != 2 || got.AvailableSeats != 0 {
		t.Errorf("expected 2 passengers and no seats, got %v / %d", got.Passengers, got.AvailableSeats)
	}
}

func TestAPI_ConcurrentJoins_FillExactly(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	_, creatorToken := s.register(t, "Creator", "busy@example.com")
	ride := s.createRide(t, creatorToken, time.Now().Add(24*time.Hour), 4)

	const joiners = 20
	tokens := make([]string, joiners)
	for i := range tokens {
		_, tokens[i] = s.mint(t)
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		codes = make(map[int]int)
	)
	for _, token := range tokens {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/api/rides/"+ride.ID+"/join", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			s.router.ServeHTTP(w, req)

			mu.Lock()
			codes[w.Code]++
			mu.Unlock()
		}(token)
	}
	wg.Wait()

	if codes[http.StatusOK] != 4 {
		t.Errorf("expected 4 successful joins, got %v", codes)
	}
	if codes[http.StatusBadRequest] != joiners-4 {
		t.Errorf("expected %d rejections, got %v", joiners-4, codes)
	}
	if stored := s.rides.GetRide(ride.ID); stored.AvailableSeats != 0 || len(stored.Passengers) != 4 {
		t.Errorf("expected ride full with 4 passengers, got %d seats / %v", stored.AvailableSeats, stored.Passengers)
	}
}

func TestAPI_AuthenticationAndAuthorization(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	aliceID, aliceToken := s.register(t, "Alice", "alice@example.com")
	bobID, bobToken := s.register(t, "Bob", "bob@example.com")

	start := time.Now().Add(24 * time.Hour)

	w := s.do(t, http.MethodPost, "/api/rides", "", rideBody(start, 2))
	if w.Code != http.StatusUnauthorized || errorMessage(t, w) != "You are not authenticated!" {
		t.Errorf("no token: expected 401, got %d %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodPost, "/api/rides", "garbage", rideBody(start, 2))
	if w.Code != http.StatusForbidden || errorMessage(t, w) != "Token is not valid!" {
		t.Errorf("bad token: expected 403, got %d %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodGet, "/api/users/"+bobID, aliceToken, nil)
	if w.Code != http.StatusForbidden || errorMessage(t, w) != "You are not authorized!" {
		t.Errorf("other profile: expected 403, got %d %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodGet, "/api/users/"+aliceID, aliceToken, nil)
	if w.Code != http.StatusOK {
		t.Errorf("own profile: expected 200, got %d %s", w.Code, w.Body.String())
	}
	if bytes.Contains(w.Body.Bytes(), []byte("password")) {
		t.Error("profile must not expose the password hash")
	}

	w = s.do(t, http.MethodGet, "/api/users/admin/all", aliceToken, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("admin list as user: expected 403, got %d", w.Code)
	}

	ride := s.createRide(t, aliceToken, start, 2)
	w = s.do(t, http.MethodPut, "/api/rides/"+ride.ID, bobToken, map[string]any{"price": 1})
	if w.Code != http.StatusForbidden {
		t.Errorf("update other's ride: expected 403, got %d", w.Code)
	}
	w = s.do(t, http.MethodDelete, "/api/rides/"+ride.ID, bobToken, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("delete other's ride: expected 403, got %d", w.Code)
	}

	w = s.do(t, http.MethodGet, "/api/auth/logout", aliceToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", w.Code)
	}
	w = s.do(t, http.MethodGet, "/api/users/"+aliceID, aliceToken, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("revoked token: expected 403, got %d", w.Code)
	}
}

func TestAPI_AdminCanListAndManage(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	_, adminToken := s.register(t, "Admin", "admin@example.com")
	userID, userToken := s.register(t, "User", "user@example.com")
	ride := s.createRide(t, userToken, time.Now().Add(24*time.Hour), 3)

	w := s.do(t, http.MethodGet, "/api/users/admin/all", adminToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("admin list: expected 200, got %d %s", w.Code, w.Body.String())
	}
	var users []handler.AdminUserResponse
	decode(t, w, &users)
	if len(users) != 2 {
		t.Errorf("expected 2 users, got %d", len(users))
	}

	w = s.do(t, http.MethodPut, "/api/rides/"+ride.ID, adminToken, map[string]any{"status": "Canceled"})
	if w.Code != http.StatusOK {
		t.Errorf("admin cancel: expected 200, got %d %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodDelete, "/api/users/"+userID, adminToken, nil)
	if w.Code != http.StatusOK {
		t.Errorf("admin delete user: expected 200, got %d %s", w.Code, w.Body.String())
	}
	if s.rides.GetRide(ride.ID) != nil {
		t.Error("expected the deleted user's rides to be removed")
	}
}

func TestAPI_CookieAuthentication(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	w := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Cookie", "email": "cookie@example.com", "password": "password123",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", w.Code)
	}

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == cookieName {
			session = c
		}
	}
	if session == nil || session.Value == "" || !session.HttpOnly {
		t.Fatalf("expected an http-only %s cookie, got %+v", cookieName, session)
	}

	var resp handler.AuthResponse
	decode(t, w, &resp)

	req := httptest.NewRequest(http.MethodGet, "/api/users/"+resp.User.ID, nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: session.Value})
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("cookie auth: expected 200, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestAPI_LoginAndValidationErrors(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	s.register(t, "Login", "login@example.com")

	w := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "login@example.com", "password": "password123"})
	if w.Code != http.StatusOK {
		t.Errorf("login: expected 200, got %d %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "login@example.com", "password": "nope-nope"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad login: expected 401, got %d", w.Code)
	}

	w = s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"name": "Dup", "email": "login@example.com", "password": "password123"})
	if w.Code != http.StatusBadRequest || errorMessage(t, w) != service.ErrEmailExists.Error() {
		t.Errorf("duplicate: expected 400 %q, got %d %s", service.ErrEmailExists, w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodGet, "/api/rides/find?from=a&to=b", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("search without seat/date: expected 400, got %d", w.Code)
	}

	w = s.do(t, http.MethodGet, "/api/rides/not-a-uuid", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad ride id: expected 400, got %d", w.Code)
	}

	w = s.do(t, http.MethodGet, "/api/rides/"+uuid.NewString(), "", nil)
	if w.Code != http.StatusNotFound || errorMessage(t, w) != "ride not found" {
		t.Errorf("unknown ride: expected 404 %q, got %d %s", "ride not found", w.Code, w.Body.String())
	}

	_, token := s.mint(t)
	body := rideBody(time.Now().Add(24*time.Hour), 2)
	body["startTime"] = "tomorrow"
	w = s.do(t, http.MethodPost, "/api/rides", token, body)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad start time: expected 400, got %d", w.Code)
	}
}

func TestAPI_OverlongPassword_IsValidationError(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	w := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Long", "email": "long@example.com", "password": strings.Repeat("p", 80),
	})
	if w.Code != http.StatusBadRequest || errorMessage(t, w) != service.ErrPasswordTooLong.Error() {
		t.Errorf("register: expected 400 %q, got %d %s", service.ErrPasswordTooLong, w.Code, w.Body.String())
	}

	id, token := s.register(t, "Short", "short@example.com")
	w = s.do(t, http.MethodPatch, "/api/users/"+id, token, map[string]string{"password": strings.Repeat("p", 100)})
	if w.Code != http.StatusBadRequest {
		t.Errorf("update: expected 400, got %d %s", w.Code, w.Body.String())
	}
}

func TestAPI_HealthCheck(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	w := s.do(t, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestAPI_ListRides_MostRecentFirst(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	_, token := s.register(t, "Lister", "lister@example.com")
	older := s.createRide(t, token, time.Now().Add(24*time.Hour), 2)
	time.Sleep(5 * time.Millisecond)
	newer := s.createRide(t, token, time.Now().Add(48*time.Hour), 2)

	w := s.do(t, http.MethodGet, "/api/rides", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var rides []handler.RideResponse
	decode(t, w, &rides)
	if len(rides) != 2 || rides[0].ID != newer.ID || rides[1].ID != older.ID {
		t.Errorf("expected [%s %s], got %+v", newer.ID, older.ID, rides)
	}
}

func TestAPI_ListRides_Pagination(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	_, token := s.register(t, "Pager", "pager@example.com")
	var created []handler.RideResponse
	for i := 1; i <= 3; i++ {
		created = append(created, s.createRide(t, token, time.Now().Add(time.Duration(i)*24*time.Hour), 2))
		time.Sleep(5 * time.Millisecond)
	}

	w := s.do(t, http.MethodGet, "/api/rides?limit=1&offset=1", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", w.Code, w.Body.String())
	}
	var rides []handler.RideResponse
	decode(t, w, &rides)
	if len(rides) != 1 || rides[0].ID != created[1].ID {
		t.Errorf("expected [%s], got %+v", created[1].ID, rides)
	}

	w = s.do(t, http.MethodGet, "/api/rides", "", nil)
	decode(t, w, &rides)
	if len(rides) != 3 {
		t.Errorf("unpaginated: expected 3 rides, got %d", len(rides))
	}

	for _, q := range []string{"limit=abc", "limit=101", "limit=-1", "offset=-5"} {
		w = s.do(t, http.MethodGet, "/api/rides?"+q, "", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, w.Code)
		}
	}
}

func TestAPI_DeletedUserToken_IsNotFound(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	_, driverToken := s.register(t, "Driver", "driver@example.com")
	ride := s.createRide(t, driverToken, time.Now().Add(24*time.Hour), 2)

	// The database rejects rows that reference a deleted user.
	s.rides.CreateError = repository.ErrUserNotFound
	w := s.do(t, http.MethodPost, "/api/rides", driverToken, rideBody(time.Now().Add(48*time.Hour), 2))
	if w.Code != http.StatusNotFound || errorMessage(t, w) != "user not found" {
		t.Errorf("create: expected 404 %q, got %d %s", "user not found", w.Code, w.Body.String())
	}

	_, riderToken := s.mint(t)
	w = s.do(t, http.MethodPost, "/api/rides/"+uuid.NewString()+"/join", riderToken, nil)
	if w.Code != http.StatusNotFound || errorMessage(t, w) != "ride not found" {
		t.Errorf("join unknown ride: expected 404 %q, got %d %s", "ride not found", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodGet, "/api/rides/"+ride.ID, "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("existing ride: expected 200, got %d", w.Code)
	}
}
