package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"marksboard/backend/internal/analysis"
	"marksboard/backend/internal/auth"
	"marksboard/backend/internal/branch"
	"marksboard/backend/internal/catalog"
	"marksboard/backend/internal/events"
	"marksboard/backend/internal/gateway"
	"marksboard/backend/internal/logger"
	"marksboard/backend/internal/marks"
	"marksboard/backend/internal/metrics"
	"marksboard/backend/internal/shared"
)

// fakeCAS accepts tickets of the form "ST-<rollNumber>".
type fakeCAS struct{}

func (fakeCAS) Validate(_ context.Context, ticket, _ string) (*shared.Identity, error) {
	roll, ok := strings.CutPrefix(ticket, "ST-")
	if !ok || roll == "" {
		return nil, fmt.Errorf("%w: unknown ticket", auth.ErrTicketRejected)
	}
	return &shared.Identity{
		Username:   "user" + roll,
		RollNumber: roll,
		Email:      "user" + roll + "@students.iiit.ac.in",
		Name:       "Student " + roll,
	}, nil
}

// TestEnv holds all the running components for the test
type TestEnv struct {
	Router http.Handler
	Store  *marks.MemoryStore
	Auth   *auth.AuthService
}

// setupGatewayTestEnv wires the full server in-memory
func setupGatewayTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	cat := catalog.Default()
	store := marks.NewMemoryStore()
	m := metrics.NewMock()
	log := logger.Nop()

	authSvc := auth.NewAuthService(fakeCAS{}, auth.NewMemoryRevoker(), shared.SecurityConfig{
		JWTSecret:          "test-secret",
		JWTExpirationHours: 1,
	}, m, log)

	svc := &gateway.Services{
		Marks:   marks.NewMarksService(store, cat, events.NopPublisher{}, m, log),
		Engine:  analysis.NewEngine(store, branch.NewClassifier(cat.Branches), m, log),
		Auth:    authSvc,
		Store:   store,
		Catalog: cat,
		Version: "test",
	}

	return &TestEnv{
		Router: gateway.SetupRoutes(svc),
		Store:  store,
		Auth:   authSvc,
	}
}

// login runs the CAS login endpoint and returns the issued token.
func (env *TestEnv) login(t *testing.T, roll string) string {
	t.Helper()

	rr := env.do(t, http.MethodPost, "/api/auth/cas", "", map[string]string{"ticket": "ST-" + roll})
	if rr.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("token missing in login response: %s", rr.Body.String())
	}
	return resp.Token
}

// do sends a request through the router. body may be nil, a string or any JSON-encodable value.
func (env *TestEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf *bytes.Buffer
	switch b := body.(type) {
	case nil:
		buf = &bytes.Buffer{}
	case string:
		buf = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		buf = bytes.NewBuffer(raw)
	}

	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	env.Router.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}
