package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rustyeddy/tradejournal/command"
	"github.com/rustyeddy/tradejournal/journal"
	"github.com/rustyeddy/tradejournal/session"
	"github.com/rustyeddy/tradejournal/stats"
	"github.com/rustyeddy/tradejournal/trade"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type failingRegister struct{ session.Register }

func (failingRegister) Get(string) (session.OpenTrade, bool, error) {
	return session.OpenTrade{}, false, errors.New("register offline")
}

func newTestServer(t *testing.T, broken bool) http.Handler {
	t.Helper()

	dir := t.TempDir()
	ledger, err := journal.NewSQLite(filepath.Join(dir, "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ledger.Close() })

	var reg session.Register
	reg, err = session.OpenSnapshot(filepath.Join(dir, "sessions.yaml"))
	require.NoError(t, err)
	if broken {
		reg = failingRegister{reg}
	}

	log := zaptest.NewLogger(t)
	engine := stats.NewEngine(ledger)
	svc := command.NewService(trade.NewDesk(reg, ledger, trade.WithLogger(log)), engine, command.WithLogger(log))
	srv := NewServer(svc, engine,
		WithAllowedOrigins([]string{"http://localhost:3000"}),
		WithLogger(log),
	)
	return srv.Handler()
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestCommandLifecycleOverHTTP(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, false)

	rec := post(t, h, "/api/v1/sessions/42/commands/open", `{"args":"100"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "open", body["command"])
	assert.Equal(t, "42", body["session"])
	result := body["result"].(map[string]any)
	assert.Equal(t, 100.0, result["entry_price"])

	rec = post(t, h, "/api/v1/sessions/42/commands/close", `{"args":"110"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result = decode(t, rec)["result"].(map[string]any)
	assert.Equal(t, 10.0, result["pnl"])
	assert.Equal(t, "tp", result["direction"])
	assert.Equal(t, 70.0, result["running_balance"])

	rec = post(t, h, "/api/v1/sessions/42/commands/balance", "")
	require.Equal(t, http.StatusOK, rec.Code)
	result = decode(t, rec)["result"].(map[string]any)
	assert.Equal(t, 70.0, result["amount"])
}

func TestNoDataIsNotAnError(t *testing.T) {
	t.Parallel()

	rec := post(t, newTestServer(t, false), "/api/v1/sessions/42/commands/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["empty"])
}

func TestErrorStatusCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		broken bool
		cmd    string
		body   string
		status int
		kind   string
	}{
		{"no open trade", false, "status", "", http.StatusUnprocessableEntity, "NoOpenTrade"},
		{"invalid price", false, "open", `{"args":"-1"}`, http.StatusUnprocessableEntity, "InvalidPrice"},
		{"missing argument", false, "close", `{"args":""}`, http.StatusUnprocessableEntity, "MalformedArguments"},
		{"out of range", false, "quality", `{"args":"90-50"}`, http.StatusUnprocessableEntity, "OutOfRange"},
		{"unknown command", false, "withdraw", "", http.StatusNotFound, "UnknownCommand"},
		{"bad body", false, "open", `{"args":`, http.StatusBadRequest, "MalformedArguments"},
		{"storage fault", true, "status", "", http.StatusInternalServerError, "Internal"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := post(t, newTestServer(t, tt.broken), "/api/v1/sessions/42/commands/"+tt.cmd, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.kind, decode(t, rec)["error"])
		})
	}
}

func TestStorageFaultDetailsStayInTheLog(t *testing.T) {
	t.Parallel()

	rec := post(t, newTestServer(t, true), "/api/v1/sessions/42/commands/status", "")
	assert.NotContains(t, rec.Body.String(), "register offline")
}

func TestListCommands(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newTestServer(t, false).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/commands", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var specs []command.Spec
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &specs))
	assert.Equal(t, command.Specs, specs)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newTestServer(t, false).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var h HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.Equal(t, HealthResponse{Status: "ok", Balance: journal.DefaultStartBalance}, h)
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, false)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	_, err := uuid.Parse(rec.Header().Get("X-Request-ID"))
	assert.NoError(t, err)

	want := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", want)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, want, rec.Header().Get("X-Request-ID"))

	// unmatched routes still carry an id
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestCORS(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
