package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	appadvice "github.com/KAMLESH7939/backend-inclusight/internal/application/advice"
	appanalyses "github.com/KAMLESH7939/backend-inclusight/internal/application/analyses"
	appusers "github.com/KAMLESH7939/backend-inclusight/internal/application/users"
	domain "github.com/KAMLESH7939/backend-inclusight/internal/domain/analyses"
	"github.com/KAMLESH7939/backend-inclusight/internal/infra/ai/prompt"
	"github.com/KAMLESH7939/backend-inclusight/internal/infra/db/sqlite"
	"github.com/KAMLESH7939/backend-inclusight/internal/infra/db/sqlstore"
)

type nopSession struct{ released bool }

func (s *nopSession) URL() string       { return "" }
func (s *nopSession) Page() domain.Page { return nil }
func (s *nopSession) Release() error    { s.released = true; return nil }
func (s *nopSession) Released() bool    { return s.released }

type sessions struct{ err error }

func (f sessions) Acquire(context.Context, string) (domain.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &nopSession{}, nil
}

type auditor struct {
	score float64
	err   error
}

func (a auditor) Audit(context.Context, string) (domain.AuditResult, error) {
	return domain.AuditResult{Score: a.score}, a.err
}

type rules struct{}

func (rules) Evaluate(context.Context, domain.Session) (domain.RuleEngineResult, error) {
	impact := "serious"
	return domain.RuleEngineResult{
		Violations: []domain.RuleResult{{
			ID: "color-contrast", Impact: &impact, Description: `Text with "low" contrast`,
			Help: "Elements must have sufficient color contrast", HelpURL: "https://x/cc",
			Nodes: []domain.Node{{Target: []string{"#a"}}, {Target: []string{"#b"}}},
		}},
		Passes: []domain.RuleResult{{ID: "document-title"}},
	}, nil
}

type testServer struct {
	handler  http.Handler
	analyses *appanalyses.Service
}

func newTestServer(t *testing.T, aud auditor, sess sessions) *testServer {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := sqlite.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	svc := &appanalyses.Service{
		Repo:     sqlstore.NewAnalysisRepository(db, sqlstore.SQLite),
		Failures: sqlstore.NewFailureRepository(db, sqlstore.SQLite),
		Sessions: sess,
		Auditor:  aud,
		Rules:    rules{},
		Timeout:  5 * time.Second,
	}
	users := &appusers.Service{Repo: sqlstore.NewUserRepository(db, sqlstore.SQLite)}
	h := NewRouter(Options{
		Analyses:           svc,
		Users:              users,
		Advice:             appadvice.NewService(svc, prompt.Heuristic{}),
		AllowedOrigins:     []string{"http://localhost:5173"},
		RateLimitCapacity:  100,
		RateLimitPerMinute: 100,
	})
	return &testServer{handler: h, analyses: svc}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return m
}

func TestAnalyzeAndDownload(t *testing.T) {
	s := newTestServer(t, auditor{score: 0.82}, sessions{})

	rec := s.do(http.MethodPost, "/api/analyze", `{"url":"https://example.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze status %d: %s", rec.Code, rec.Body)
	}
	body := decode(t, rec)
	if body["success"] != true || body["score"] != 82.0 || body["passedChecks"] != 1.0 {
		t.Fatalf("unexpected body: %v", body)
	}
	issues := body["issues"].(map[string]any)
	if issues["contrast"] != 1.0 || issues["fontSize"] != 0.0 || issues["labels"] != 0.0 {
		t.Fatalf("issues: %v", issues)
	}
	id := body["analysisId"].(string)

	rec = s.do(http.MethodGet, "/api/analyze/download/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("download status %d: %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("content type: %s", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="report-`+id+`.csv"` {
		t.Fatalf("content disposition: %s", cd)
	}
	lines := strings.Split(rec.Body.String(), "\n")
	want := []string{
		`"URL","https://example.com"`,
		`"Accessibility Score","82"`,
		`"Total Violations","1"`,
		``,
		`"Issue Type","Impact","Description","Help URL","Nodes"`,
		`"color-contrast","serious","Text with ""low"" contrast","https://x/cc","#a | #b"`,
	}
	got := append([]string{lines[0]}, lines[2:]...)
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("csv mismatch:\n%s", rec.Body.String())
	}

	rec = s.do(http.MethodGet, "/api/analyze/"+id, "")
	if rec.Code != http.StatusOK || decode(t, rec)["url"] != "https://example.com" {
		t.Fatalf("get: %d %s", rec.Code, rec.Body)
	}

	rec = s.do(http.MethodGet, "/api/analyze?limit=5", "")
	var list []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil || len(list) != 1 {
		t.Fatalf("latest: %s %v", rec.Body, err)
	}
}

func TestAnalyzeStoresURLUnchanged(t *testing.T) {
	s := newTestServer(t, auditor{score: 0.9}, sessions{})
	const target = "https://example.com/café"
	rec := s.do(http.MethodPost, "/api/analyze", `{"url":"`+target+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze status %d: %s", rec.Code, rec.Body)
	}
	id := decode(t, rec)["analysisId"].(string)

	rec = s.do(http.MethodGet, "/api/analyze/"+id, "")
	if got := decode(t, rec)["url"]; got != target {
		t.Fatalf("stored url %q", got)
	}
	rec = s.do(http.MethodGet, "/api/analyze/download/"+id, "")
	if !strings.HasPrefix(rec.Body.String(), `"URL","`+target+`"`+"\n") {
		t.Fatalf("csv: %s", rec.Body)
	}
}

func TestAnalyzeInvalidInput(t *testing.T) {
	s := newTestServer(t, auditor{score: 1}, sessions{})
	for _, body := range []string{`{}`, `{"url":""}`, `{"url":"ftp://x"}`, `{"url":"http://127.0.0.1"}`, `not json`} {
		rec := s.do(http.MethodPost, "/api/analyze", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d", body, rec.Code)
			continue
		}
		m := decode(t, rec)
		if m["success"] != false || m["kind"] != string(domain.KindInvalidInput) {
			t.Errorf("%s: body %v", body, m)
		}
	}
}

func TestAnalyzeErrorStatuses(t *testing.T) {
	cases := []struct {
		name string
		aud  auditor
		sess sessions
		code int
		kind domain.Kind
	}{
		{"auditor", auditor{err: errors.New("chrome crashed")}, sessions{}, http.StatusInternalServerError, domain.KindAuditEngine},
		{"browser", auditor{score: 1}, sessions{err: domain.Errorf(domain.KindResourceAcquisition, "launch", "no chrome")}, http.StatusServiceUnavailable, domain.KindResourceAcquisition},
		{"navigation", auditor{score: 1}, sessions{err: domain.Errorf(domain.KindNavigationTimeout, "navigate", "deadline")}, http.StatusGatewayTimeout, domain.KindNavigationTimeout},
	}
	for _, c := range cases {
		s := newTestServer(t, c.aud, c.sess)
		rec := s.do(http.MethodPost, "/api/analyze", `{"url":"https://example.com"}`)
		if rec.Code != c.code {
			t.Errorf("%s: status %d, want %d", c.name, rec.Code, c.code)
			continue
		}
		m := decode(t, rec)
		if m["kind"] != string(c.kind) || m["message"] != "Analysis failed" {
			t.Errorf("%s: body %v", c.name, m)
		}

		rec = s.do(http.MethodGet, "/api/analyze", "")
		if strings.TrimSpace(rec.Body.String()) != "[]" {
			t.Errorf("%s: failed analysis persisted: %s", c.name, rec.Body)
		}
		rec = s.do(http.MethodGet, "/api/analyze/failures", "")
		var fl []map[string]any
		json.Unmarshal(rec.Body.Bytes(), &fl)
		if len(fl) != 1 || fl[0]["kind"] != string(c.kind) {
			t.Errorf("%s: failure journal %s", c.name, rec.Body)
		}
	}
}

func TestDownloadNotFound(t *testing.T) {
	s := newTestServer(t, auditor{score: 1}, sessions{})
	for _, id := range []string{"3f2b8c1e-9a4d-4e55-8b61-2d0c7e9f1a34", "nope"} {
		rec := s.do(http.MethodGet, "/api/analyze/download/"+id, "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: status %d", id, rec.Code)
		}
		if decode(t, rec)["message"] != "Analysis not found" {
			t.Fatalf("%s: body %s", id, rec.Body)
		}
	}
}

func TestSaveUser(t *testing.T) {
	s := newTestServer(t, auditor{score: 1}, sessions{})
	rec := s.do(http.MethodPost, "/api/user", `{"name":"Ada","email":"Ada@Example.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	m := decode(t, rec)
	if m["created"] != true || m["user"].(map[string]any)["email"] != "ada@example.com" {
		t.Fatalf("body: %v", m)
	}
	rec = s.do(http.MethodPost, "/api/user", `{"name":"Ada","email":"ada@example.com"}`)
	if decode(t, rec)["created"] != false {
		t.Fatalf("second save must return the existing user: %s", rec.Body)
	}
	rec = s.do(http.MethodPost, "/api/user", `{"name":"","email":"ada@example.com"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing name: status %d", rec.Code)
	}
}

func TestAdvice(t *testing.T) {
	s := newTestServer(t, auditor{score: 0.5}, sessions{})
	res, err := s.analyses.Analyze(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	rec := s.do(http.MethodPost, "/api/analyze/"+string(res.AnalysisID)+"/advice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	if items, ok := decode(t, rec)["items"].([]any); !ok || len(items) != 1 {
		t.Fatalf("advice: %s", rec.Body)
	}
}

func TestCORSAndOps(t *testing.T) {
	s := newTestServer(t, auditor{score: 1}, sessions{})

	req := httptest.NewRequest(http.MethodOptions, "/api/analyze", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("preflight not allowed: %v", rec.Header())
	}

	for _, path := range []string{"/health", "/readyz", "/livez", "/metrics"} {
		if rec := s.do(http.MethodGet, path, ""); rec.Code != http.StatusOK {
			t.Errorf("%s: status %d", path, rec.Code)
		}
	}
}
