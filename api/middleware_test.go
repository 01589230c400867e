package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"incidentdeck/config"
	"incidentdeck/core/utils"
)

func TestRecoverMiddleware(t *testing.T) {
	s := &Server{cfg: &config.AppConfig{}, logger: utils.NewLogger()}
	handler := s.recoverMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/incidents", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", rr.Code)
	}
}

func TestParseIntDefault(t *testing.T) {
	if got := parseIntDefault("", 7); got != 7 {
		t.Fatalf("empty: expected 7, got %d", got)
	}
	if got := parseIntDefault("12", 7); got != 12 {
		t.Fatalf("valid: expected 12, got %d", got)
	}
	if got := parseIntDefault("twelve", 7); got != 7 {
		t.Fatalf("garbage: expected 7, got %d", got)
	}
}

func TestNewTeamEnforcerMalformedPolicy(t *testing.T) {
	if _, err := newTeamEnforcer([]string{"just-one-field"}); err == nil {
		t.Fatal("expected error for malformed policy")
	}
}

func TestTeamGuardAllowsWildcard(t *testing.T) {
	enforcer, err := newTeamEnforcer([]string{"*,T1"})
	if err != nil {
		t.Fatalf("enforcer: %v", err)
	}
	s := &Server{
		cfg:      &config.AppConfig{Security: config.SecurityConfig{ViewerHeader: "X-Viewer-ID"}},
		enforcer: enforcer,
		logger:   utils.NewLogger(),
	}
	handler := s.teamGuard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/incidents?team_id=T1", nil)
	req.Header.Set("X-Viewer-ID", "anyone")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected wildcard subject allowed, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/incidents?team_id=T2", nil)
	req.Header.Set("X-Viewer-ID", "anyone")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected other team forbidden, got %d", rr.Code)
	}
}
