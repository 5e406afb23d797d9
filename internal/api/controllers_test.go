package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"binary-core/internal/events"
	"binary-core/internal/notify"
	"binary-core/internal/session"
	"binary-core/internal/venue"
	"binary-core/pkg/db"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) (*httptest.Server, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database, err := db.NewInMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.ApplyMigrations(database); err != nil {
		t.Fatalf("migrations: %v", err)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	bus := events.NewBus()
	clients := func(session.Params) venue.Client {
		return &venue.MockClient{WinEvery: 1, SettleDelay: 20 * time.Millisecond}
	}
	sessions := session.NewManager(database, bus, &notify.LogNotifier{Log: log}, clients, nil, log)
	server := NewServer(sessions, bus, database, testSecret, log)

	httpServer := httptest.NewServer(server.Router)
	cleanup := func() {
		sessions.Shutdown()
		httpServer.Close()
		_ = database.Close()
	}
	return httpServer, cleanup
}

func signToken(t *testing.T, accountID string) string {
	t.Helper()
	claims := AccountClaims{
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func doJSONRequest(t *testing.T, method, url, token string, payload any, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&buf).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func sessionPayload() map[string]any {
	return map[string]any{
		"market":                  "R_100",
		"contract_type":           "CALL",
		"currency":                "USD",
		"stake":                   5,
		"take_profit":             10000,
		"stop_loss":               10000,
		"trade_duration":          "1h",
		"update_frequency":        "5m",
		"contract_duration_unit":  "t",
		"contract_duration_value": 5,
		"trading_mode":            "standard",
		"token":                   "venue-token",
	}
}

func TestSessionEndpointsRequireAuth(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	status := doJSONRequest(t, http.MethodPost, srv.URL+"/api/sessions", "", sessionPayload(), nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("unauthenticated start got %d, expected 401", status)
	}

	status = doJSONRequest(t, http.MethodGet, srv.URL+"/api/sessions", "bad-token", nil, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("bad token got %d, expected 401", status)
	}
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	token := signToken(t, "acct-http")

	var created struct {
		SessionID string `json:"session_id"`
	}
	status := doJSONRequest(t, http.MethodPost, srv.URL+"/api/sessions", token, sessionPayload(), &created)
	if status != http.StatusCreated {
		t.Fatalf("start got %d, expected 201", status)
	}
	if created.SessionID == "" {
		t.Fatal("no session id returned")
	}

	var got session.Status
	status = doJSONRequest(t, http.MethodGet, srv.URL+"/api/sessions/"+created.SessionID, token, nil, &got)
	if status != http.StatusOK {
		t.Fatalf("get got %d, expected 200", status)
	}
	if got.AccountID != "acct-http" || !got.Running {
		t.Fatalf("session status wrong: %+v", got)
	}

	status = doJSONRequest(t, http.MethodDelete, srv.URL+"/api/sessions/"+created.SessionID, token, nil, nil)
	if status != http.StatusOK {
		t.Fatalf("stop got %d, expected 200", status)
	}

	status = doJSONRequest(t, http.MethodGet, srv.URL+"/api/sessions/"+created.SessionID, token, nil, nil)
	if status != http.StatusNotFound {
		t.Fatalf("get after stop got %d, expected 404", status)
	}
}

func TestSessionInvalidParamsRejected(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	token := signToken(t, "acct-bad")
	payload := sessionPayload()
	payload["stake"] = 0

	var body struct {
		Code string `json:"code"`
	}
	status := doJSONRequest(t, http.MethodPost, srv.URL+"/api/sessions", token, payload, &body)
	if status != http.StatusBadRequest {
		t.Fatalf("invalid params got %d, expected 400", status)
	}
	if body.Code != "INVALID_PARAMS" {
		t.Fatalf("code=%q, expected INVALID_PARAMS", body.Code)
	}
}

func TestSessionOwnershipEnforced(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	owner := signToken(t, "acct-owner")
	other := signToken(t, "acct-other")

	var created struct {
		SessionID string `json:"session_id"`
	}
	status := doJSONRequest(t, http.MethodPost, srv.URL+"/api/sessions", owner, sessionPayload(), &created)
	if status != http.StatusCreated {
		t.Fatalf("start got %d, expected 201", status)
	}

	status = doJSONRequest(t, http.MethodGet, srv.URL+"/api/sessions/"+created.SessionID, other, nil, nil)
	if status != http.StatusForbidden {
		t.Fatalf("foreign get got %d, expected 403", status)
	}

	status = doJSONRequest(t, http.MethodDelete, srv.URL+"/api/sessions/"+created.SessionID, other, nil, nil)
	if status != http.StatusForbidden {
		t.Fatalf("foreign stop got %d, expected 403", status)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health got %d, expected 200", resp.StatusCode)
	}
}
