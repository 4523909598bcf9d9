package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	rbio "github.com/matzehuels/rankbars/pkg/io"
	"github.com/matzehuels/rankbars/pkg/observability"
	"github.com/matzehuels/rankbars/pkg/observability/prom"
	"github.com/matzehuels/rankbars/pkg/pipeline"
	"github.com/matzehuels/rankbars/pkg/snapshot"
	"github.com/matzehuels/rankbars/pkg/store"
)

const testPassword = "secret"

func newTestServer(t *testing.T, opts ...Option) (*Server, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	ctx := context.Background()
	_ = mem.SaveSnapshot(ctx, 2015, snapshot.Snapshot{
		{Key: "Globex", Rank: 1, Value: 90},
		{Key: "Initech", Rank: 2, Value: 70},
	})
	_ = mem.SaveSnapshot(ctx, 2016, snapshot.Snapshot{
		{Key: "Acme", Rank: 1, Value: 100, DisplayValue: "$100"},
		{Key: "Globex", Rank: 2, Value: 80, DisplayValue: "$80"},
	})
	runner := pipeline.NewRunner(pipeline.StoreSource{Store: mem, First: 2015, Last: 2017}, nil, nil, nil)
	opts = append([]Option{WithStore(mem), WithEditPassword(testPassword)}, opts...)
	return New(runner, opts...), mem
}

func do(t *testing.T, h http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestCompanies(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/api/companies/2016", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if got := rec.Header().Get("Cache-Control"); !strings.Contains(got, "no-store") {
		t.Errorf("Cache-Control = %q", got)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("missing request ID")
	}
	doc := decode[rbio.Document](t, rec)
	if doc.Year != 2016 || doc.TotalCompanies != 2 || doc.Data[0].Key != "Acme" {
		t.Errorf("document = %+v", doc)
	}

	tests := []struct {
		path string
		want int
	}{
		{"/api/companies/20x6", http.StatusBadRequest},
		{"/api/companies/16", http.StatusBadRequest},
		{"/api/companies/2017", http.StatusNotFound},
		{"/api/companies/1999", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tt.path, "")
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body)
			}
			if e := decode[errorResponse](t, rec); e.Error == "" || e.Code == "" {
				t.Errorf("error body = %+v", e)
			}
		})
	}
}

func TestRequestIDPassthrough(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv.Handler(), http.MethodGet, "/healthz", "", RequestIDHeader, "abc-123")
	if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("request ID = %q", got)
	}
	if body := decode[map[string]string](t, rec); body["status"] != "ok" || body["version"] == "" {
		t.Errorf("health = %v", body)
	}
}

func TestDiff(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/api/diff/2016", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	d := decode[diffResponse](t, rec)
	if d.Previous != 2015 || len(d.Entries) != 1 || d.Entries[0].Key != "Acme" || len(d.Exits) != 1 || d.Exits[0].Key != "Initech" {
		t.Errorf("diff = %+v", d)
	}

	rec = do(t, h, http.MethodGet, "/api/diff/2015", "")
	d = decode[diffResponse](t, rec)
	if d.Previous != 0 || len(d.Exits) != 0 || d.Entries == nil {
		t.Errorf("first year diff = %+v", d)
	}
}

func TestChart(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	tests := []struct {
		name     string
		path     string
		status   int
		contains string
		excludes string
	}{
		{"animated from previous", "/chart/2016.svg", http.StatusOK, `data-key="Initech"`, ""},
		{"clickable", "/chart/2016.svg", http.StatusOK, "rankbars:click", ""},
		{"explicit from", "/chart/2016.svg?from=2015&width=1200", http.StatusOK, `width="1200"`, ""},
		{"no previous", "/chart/2016.svg?from=none", http.StatusOK, `data-key="Acme"`, `data-key="Initech"`},
		{"static", "/chart/2016.svg?static=true", http.StatusOK, "<svg", "<animate"},
		{"bad width", "/chart/2016.svg?width=wide", http.StatusBadRequest, "", ""},
		{"bad static", "/chart/2016.svg?static=maybe", http.StatusBadRequest, "", ""},
		{"unknown theme", "/chart/2016.svg?theme=/etc/passwd", http.StatusBadRequest, "", ""},
		{"bad from", "/chart/2016.svg?from=last", http.StatusBadRequest, "", ""},
		{"missing year", "/chart/2017.svg", http.StatusNotFound, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tt.path, "")
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body)
			}
			body := rec.Body.String()
			if tt.status == http.StatusOK && rec.Header().Get("Content-Type") != "image/svg+xml" {
				t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
			}
			if tt.contains != "" && !strings.Contains(body, tt.contains) {
				t.Errorf("body missing %q", tt.contains)
			}
			if tt.excludes != "" && strings.Contains(body, tt.excludes) {
				t.Errorf("body should not contain %q", tt.excludes)
			}
		})
	}
}

func TestFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv.Handler(), http.MethodGet, "/flow/2016.svg", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), "<svg") {
		t.Error("flow output is not SVG")
	}
}

func TestNotes(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	auth := []string{PasswordHeader, testPassword}

	rec := do(t, h, http.MethodGet, "/api/notes/Acme%20Corp", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d", rec.Code)
	}
	empty := decode[map[string]any](t, rec)
	if empty["industry"] != "" || empty["last_updated"] != nil || empty["companyName"] != "Acme Corp" {
		t.Errorf("empty note = %v", empty)
	}

	body := `{"field":"industry","content":"Anvils"}`
	if rec := do(t, h, http.MethodPost, "/api/notes/Acme%20Corp", body); rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated POST status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/notes/Acme%20Corp", body, PasswordHeader, "wrong"); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password POST status = %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/api/notes/Acme%20Corp", body, auth...)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST status = %d, body = %s", rec.Code, rec.Body)
	}
	note := decode[store.Note](t, rec)
	if note.Industry != "Anvils" || note.LastUpdated == nil {
		t.Errorf("note = %+v", note)
	}

	if rec := do(t, h, http.MethodPost, "/api/notes/Acme%20Corp", `{"field":"ceo","content":"x"}`, auth...); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid field status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/notes/Acme%20Corp", `{`, auth...); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid JSON status = %d", rec.Code)
	}

	rec = do(t, h, http.MethodDelete, "/api/notes/Acme%20Corp", `{"field":"industry"}`, auth...)
	if rec.Code != http.StatusOK {
		t.Fatalf("DELETE status = %d", rec.Code)
	}
	if note := decode[store.Note](t, rec); note.Industry != "" {
		t.Errorf("industry = %q after delete", note.Industry)
	}
}

func TestAnnualNotes(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	auth := []string{PasswordHeader, testPassword}

	rec := do(t, h, http.MethodGet, "/api/annual-notes/2016", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "{}" {
		t.Fatalf("GET = %d %s", rec.Code, rec.Body)
	}
	if rec := do(t, h, http.MethodPost, "/api/annual-notes/2016", `{}`, auth...); rec.Code != http.StatusBadRequest {
		t.Errorf("empty update status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/annual-notes/16", `{"theme":"x"}`, auth...); rec.Code != http.StatusBadRequest {
		t.Errorf("bad year status = %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/api/annual-notes/2016", `{"theme":"AI"}`, auth...)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST status = %d, body = %s", rec.Code, rec.Body)
	}
	rec = do(t, h, http.MethodGet, "/api/annual-notes/2016", "")
	got := decode[store.AnnualNote](t, rec)
	if got.Theme != "AI" || got.Trend != "" {
		t.Errorf("annual note = %+v", got)
	}
}

func TestCompanyDocuments(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	auth := []string{PasswordHeader, testPassword}

	if rec := do(t, h, http.MethodGet, "/api/company/Acme", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing GET status = %d", rec.Code)
	}

	rec := do(t, h, http.MethodPost, "/api/company/Acme", `{"field":"summary","text":"Makes anvils"}`, auth...)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body)
	}
	doc := decode[map[string]any](t, rec)
	if doc["company_name"] != "Acme" || doc["summary"] != "Makes anvils" {
		t.Errorf("doc = %v", doc)
	}

	if rec := do(t, h, http.MethodPost, "/api/company/Acme", `{"field":"ceo","text":"Wile"}`, auth...); rec.Code != http.StatusOK {
		t.Errorf("update status = %d", rec.Code)
	}
	for _, field := range []string{"_id", "company_name", " "} {
		body := `{"field":"` + field + `","text":"x"}`
		if rec := do(t, h, http.MethodPost, "/api/company/Acme", body, auth...); rec.Code != http.StatusBadRequest {
			t.Errorf("field %q status = %d", field, rec.Code)
		}
	}

	rec = do(t, h, http.MethodDelete, "/api/company/Acme", `{"field":"ceo"}`, auth...)
	if rec.Code != http.StatusOK {
		t.Fatalf("DELETE status = %d", rec.Code)
	}
	if doc := decode[map[string]any](t, rec); doc["ceo"] != nil {
		t.Errorf("ceo still present: %v", doc)
	}
	if rec := do(t, h, http.MethodDelete, "/api/company/Globex", `{"field":"ceo"}`, auth...); rec.Code != http.StatusNotFound {
		t.Errorf("DELETE missing company status = %d", rec.Code)
	}
}

func TestVerifyPassword(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	tests := []struct {
		name    string
		method  string
		body    string
		status  int
		success bool
	}{
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed, false},
		{"missing", http.MethodPost, `{}`, http.StatusBadRequest, false},
		{"wrong", http.MethodPost, `{"password":"nope"}`, http.StatusOK, false},
		{"right", http.MethodPost, `{"password":"secret"}`, http.StatusOK, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, "/api/auth/verify-password", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.method != http.MethodPost {
				return
			}
			if got := decode[verifyResponse](t, rec); got.Success != tt.success {
				t.Errorf("success = %v, want %v", got.Success, tt.success)
			}
		})
	}

	unset, _ := newTestServer(t, WithEditPassword(""))
	rec := do(t, unset.Handler(), http.MethodPost, "/api/auth/verify-password", `{"password":"x"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("unset password status = %d", rec.Code)
	}
	if got := decode[verifyResponse](t, rec); got.Error != "Server configuration error" {
		t.Errorf("error = %q", got.Error)
	}
}

func TestNoPasswordAllowsEdits(t *testing.T) {
	srv, _ := newTestServer(t, WithEditPassword(""))
	rec := do(t, srv.Handler(), http.MethodPost, "/api/notes/Acme", `{"field":"user_memo","content":"hi"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestNoStore(t *testing.T) {
	srv, _ := newTestServer(t, WithStore(nil))
	h := srv.Handler()
	for _, path := range []string{"/api/notes/Acme", "/api/annual-notes/2016", "/api/company/Acme"} {
		if rec := do(t, h, http.MethodGet, path, ""); rec.Code != http.StatusServiceUnavailable {
			t.Errorf("GET %s status = %d", path, rec.Code)
		}
	}
	if rec := do(t, h, http.MethodGet, "/api/companies/2016", ""); rec.Code != http.StatusOK {
		t.Errorf("snapshots should not need the document store: %d", rec.Code)
	}
}

type recordingHooks struct {
	observability.NoopHTTPHooks
	mu     sync.Mutex
	routes []string
	errors int
}

func (h *recordingHooks) OnResponse(_ context.Context, method, route string, status int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.routes = append(h.routes, method+" "+route)
}

func (h *recordingHooks) OnError(context.Context, string, string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors++
}

func TestInstrumentation(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetHTTPHooks(hooks)
	t.Cleanup(observability.Reset)

	srv, _ := newTestServer(t)
	h := srv.Handler()
	do(t, h, http.MethodGet, "/api/companies/2016", "")
	do(t, h, http.MethodGet, "/api/companies/2017", "")
	do(t, h, http.MethodGet, "/nope", "")

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	want := []string{"GET /api/companies/{year}", "GET /api/companies/{year}", "GET unmatched"}
	if strings.Join(hooks.routes, ",") != strings.Join(want, ",") {
		t.Errorf("routes = %v, want %v", hooks.routes, want)
	}
	if hooks.errors != 1 {
		t.Errorf("errors = %d, want 1", hooks.errors)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Cleanup(observability.Reset)
	m := prom.New(prometheus.NewRegistry())
	m.Register()

	srv, _ := newTestServer(t, WithMetricsHandler(m.Handler()))
	h := srv.Handler()
	do(t, h, http.MethodGet, "/api/companies/2016", "")

	rec := do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `rankbars_http_requests_total{method="GET",route="/api/companies/{year}",status="200"} 1`) {
		t.Errorf("metrics missing request counter:\n%s", rec.Body)
	}
}

func TestListenAndServeShutdown(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ListenAndServe() error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
