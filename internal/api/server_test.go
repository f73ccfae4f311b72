package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/threatlens-project/threatlens/internal/core"
)

// ─── Helpers ─────────────────────────────────────────────────────────────────

const csvHeader = "timestamp,user_id,event_type,event_value,device_id,ip_address,location,auth_result,resource_type,resource_name\n"

// validCSV is small but carries both classes, enough for a full run.
func validCSV() string {
	var b strings.Builder
	b.WriteString(csvHeader)
	for i := 0; i < 8; i++ {
		fmt.Fprintf(&b, "2025-01-01 0%d:00:00,user_01,login,1,dev_01,10.0.0.1,India,success,system,auth_service\n", i)
	}
	b.WriteString("2025-01-02 10:00:00,user_01,failed_login,1,dev_01,10.0.0.1,India,failure,system,auth_service\n")
	b.WriteString("2025-01-02 11:00:00,user_01,failed_login,1,dev_01,10.0.0.1,India,failure,system,auth_service\n")
	return b.String()
}

// newTestServer wires a Server with no bus or webhook fan-out.
func newTestServer(t *testing.T, cfg *core.Config) *Server {
	t.Helper()
	cfg.Server.UploadDir = t.TempDir()
	cfg.Analysis.Trees = 20
	return NewServer(cfg, zerolog.Nop(), nil, nil)
}

// uploadRequest builds a multipart POST with the payload under the given
// field and file names.
func uploadRequest(t *testing.T, field, filename, payload string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	if _, err := fw.Write([]byte(payload)); err != nil {
		t.Fatalf("writing form file: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// ─── writeJSON ────────────────────────────────────────────────────────────────

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSON(w, http.StatusOK, map[string]string{"hello": "world"})

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var body map[string]string
	json.NewDecoder(w.Body).Decode(&body)
	if body["hello"] != "world" {
		t.Errorf("body = %v", body)
	}
}

// ─── Health endpoint ──────────────────────────────────────────────────────────

func TestHandleHealth_GET(t *testing.T) {
	s := newTestServer(t, core.DefaultConfig())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var body map[string]interface{}
	json.NewDecoder(w.Body).Decode(&body)
	if body["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", body["status"])
	}
	if _, ok := body["bus"]; ok {
		t.Error("health payload should omit bus stats when the bus is off")
	}
}

func TestHandleHealth_SkipsAuth(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Server.APIKeys = []string{"secret"}
	s := newTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d without credentials", w.Code, http.StatusOK)
	}
}

// ─── Report endpoint ──────────────────────────────────────────────────────────

func TestHandleCreateReport_Success(t *testing.T) {
	s := newTestServer(t, core.DefaultConfig())
	req := uploadRequest(t, "file", "events.csv", validCSV())
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var report map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	for _, section := range []string{"model_performance", "threat_analytics", "user_activity_monitor"} {
		if _, ok := report[section]; !ok {
			t.Errorf("report missing %q section", section)
		}
	}
}

func TestHandleCreateReport_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t, core.DefaultConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
}

func TestHandleCreateReport_MissingFileField(t *testing.T) {
	s := newTestServer(t, core.DefaultConfig())
	req := uploadRequest(t, "upload", "events.csv", validCSV())
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleCreateReport_UnsupportedExtension(t *testing.T) {
	s := newTestServer(t, core.DefaultConfig())
	req := uploadRequest(t, "file", "events.xls", validCSV())
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d for .xls", w.Code, http.StatusBadRequest)
	}
}

func TestHandleCreateReport_MalformedCSV(t *testing.T) {
	payload := csvHeader +
		"2025-01-01 10:00:00,user_01,login,1,dev_01,10.0.0.1,India,success,system,auth_service\n" +
		"not-a-timestamp,user_01,login,1,dev_01,10.0.0.1,India,success,system,auth_service\n"

	s := newTestServer(t, core.DefaultConfig())
	req := uploadRequest(t, "file", "events.csv", payload)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	var body map[string]interface{}
	json.NewDecoder(w.Body).Decode(&body)
	if body["row"] != float64(2) {
		t.Errorf("row = %v, want 2", body["row"])
	}
	if body["column"] != "timestamp" {
		t.Errorf("column = %v, want timestamp", body["column"])
	}
}

func TestHandleCreateReport_SingleClassRejected(t *testing.T) {
	var b strings.Builder
	b.WriteString(csvHeader)
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, "2025-01-01 0%d:00:00,user_01,login,1,dev_01,10.0.0.1,India,success,system,auth_service\n", i)
	}

	s := newTestServer(t, core.DefaultConfig())
	req := uploadRequest(t, "file", "events.csv", b.String())
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
}

func TestHandleCreateReport_UploadTooLarge(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Server.MaxUploadBytes = 128
	s := newTestServer(t, cfg)

	req := uploadRequest(t, "file", "events.csv", validCSV())
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want %d", w.Code, http.StatusRequestEntityTooLarge)
	}
}

// ─── Auth middleware ──────────────────────────────────────────────────────────

func TestAuth_OpenModeWithoutKeys(t *testing.T) {
	s := newTestServer(t, core.DefaultConfig())
	req := uploadRequest(t, "file", "events.csv", validCSV())
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d in open mode", w.Code, http.StatusOK)
	}
}

func TestAuth_MissingCredentials(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Server.APIKeys = []string{"secret"}
	s := newTestServer(t, cfg)

	req := uploadRequest(t, "file", "events.csv", validCSV())
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAuth_InvalidKey(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Server.APIKeys = []string{"secret"}
	s := newTestServer(t, cfg)

	req := uploadRequest(t, "file", "events.csv", validCSV())
	req.Header.Set("X-API-Key", "wrong")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestAuth_BearerToken(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Server.APIKeys = []string{"secret"}
	s := newTestServer(t, cfg)

	req := uploadRequest(t, "file", "events.csv", validCSV())
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d with valid bearer token", w.Code, http.StatusOK)
	}
}

// ─── CORS middleware ──────────────────────────────────────────────────────────

func TestCORS_PreflightDefault(t *testing.T) {
	s := newTestServer(t, core.DefaultConfig())
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/reports", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
}

func TestCORS_AllowListedOrigin(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Server.CORSOrigins = []string{"https://dashboard.example.com"}
	s := newTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/reports", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://dashboard.example.com" {
		t.Errorf("Allow-Origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/reports", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q for unlisted origin, want unset", got)
	}
}
