package axe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	domain "github.com/KAMLESH7939/backend-inclusight/internal/domain/analyses"
)

const samplePayload = `{
  "violations": [
    {"id":"color-contrast","impact":"serious","tags":["wcag2aa"],"description":"Ensures contrast","help":"Elements must have sufficient color contrast","helpUrl":"https://dequeuniversity.com/rules/axe/4.10/color-contrast",
     "nodes":[{"target":["#hero > p"],"html":"<p>hi</p>","failureSummary":"Fix any of the following"},{"target":[["my-card","button.cta"]],"html":"<button>"}]},
    {"id":"label","impact":"critical","description":"Ensures every form element has a label","help":"Form elements must have labels","helpUrl":"https://x/label","nodes":[]}
  ],
  "passes": [{"id":"document-title","impact":null,"description":"d","help":"h","helpUrl":"u","nodes":[{"target":["html"]}]}],
  "incomplete": [],
  "inapplicable": [{"id":"video-caption","impact":null,"description":"d","help":"h","helpUrl":"u","nodes":[]}]
}`

type fakePage struct {
	payload   string
	injectErr error
	exprs     []string
}

func (p *fakePage) Evaluate(_ context.Context, expr string, res any) error {
	p.exprs = append(p.exprs, expr)
	switch v := res.(type) {
	case *bool:
		if p.injectErr != nil {
			return p.injectErr
		}
		*v = true
	case *string:
		*v = p.payload
	}
	return nil
}

type fakeSession struct {
	page     domain.Page
	released bool
}

func (s *fakeSession) URL() string       { return "https://example.com" }
func (s *fakeSession) Page() domain.Page { return s.page }
func (s *fakeSession) Release() error    { s.released = true; return nil }
func (s *fakeSession) Released() bool    { return s.released }

func TestEvaluate(t *testing.T) {
	page := &fakePage{payload: samplePayload}
	e := &Engine{Script: "window.axe = {}", RunOnly: []string{"wcag2a", "wcag2aa"}}

	res, err := e.Evaluate(context.Background(), &fakeSession{page: page})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(page.exprs) != 2 || !strings.HasPrefix(page.exprs[0], "window.axe = {}") {
		t.Fatalf("expected script injection then run, got %q", page.exprs)
	}
	if !strings.Contains(page.exprs[1], `"runOnly":{"type":"tag","values":["wcag2a","wcag2aa"]}`) {
		t.Fatalf("runOnly not forwarded: %s", page.exprs[1])
	}

	if got := []string{res.Violations[0].ID, res.Violations[1].ID}; !reflect.DeepEqual(got, []string{"color-contrast", "label"}) {
		t.Fatalf("violation order changed: %v", got)
	}
	v := res.Violations[0]
	if v.Impact == nil || *v.Impact != "serious" {
		t.Fatalf("impact lost: %+v", v.Impact)
	}
	if v.HelpURL != "https://dequeuniversity.com/rules/axe/4.10/color-contrast" {
		t.Fatalf("helpUrl lost: %q", v.HelpURL)
	}
	wantTargets := [][]string{{"#hero > p"}, {"my-card >>> button.cta"}}
	for i, n := range v.Nodes {
		if !reflect.DeepEqual(n.Target, wantTargets[i]) {
			t.Fatalf("node %d target %v want %v", i, n.Target, wantTargets[i])
		}
	}
	if res.Passes[0].Impact != nil {
		t.Fatalf("null impact should stay nil")
	}
	if res.Incomplete == nil || len(res.Incomplete) != 0 {
		t.Fatalf("empty incomplete bucket should be empty, not absent: %#v", res.Incomplete)
	}
	if len(res.Inapplicable) != 1 {
		t.Fatalf("inapplicable: %+v", res.Inapplicable)
	}
}

func TestEvaluateReleasedSession(t *testing.T) {
	page := &fakePage{payload: samplePayload}
	e := &Engine{Script: "x"}

	_, err := e.Evaluate(context.Background(), &fakeSession{page: page, released: true})
	if !errors.Is(err, domain.KindRuleEngine) || !errors.Is(err, ErrSessionReleased) {
		t.Fatalf("expected RuleEngineFailure for released session, got %v", err)
	}
	if len(page.exprs) != 0 {
		t.Fatalf("released page must not be touched")
	}
}

func TestEvaluateInjectFailure(t *testing.T) {
	page := &fakePage{injectErr: errors.New("Content Security Policy")}
	_, err := (&Engine{Script: "x"}).Evaluate(context.Background(), &fakeSession{page: page})
	if !errors.Is(err, domain.KindRuleEngine) {
		t.Fatalf("expected RuleEngineFailure, got %v", err)
	}
}

func TestEvaluateMissingScript(t *testing.T) {
	_, err := (&Engine{}).Evaluate(context.Background(), &fakeSession{page: &fakePage{}})
	if !errors.Is(err, domain.KindRuleEngine) {
		t.Fatalf("expected RuleEngineFailure, got %v", err)
	}
}

func TestDecodeAbsentBuckets(t *testing.T) {
	res, err := Decode([]byte(`{"violations":[]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Violations == nil {
		t.Fatalf("present empty bucket decoded as absent")
	}
	if res.Passes != nil {
		t.Fatalf("absent bucket decoded as present")
	}
}

func TestDecodeBadTarget(t *testing.T) {
	_, err := Decode([]byte(`{"violations":[{"id":"x","nodes":[{"target":[42]}]}]}`))
	if err == nil {
		t.Fatalf("expected error for numeric selector")
	}
}

func TestLoadScriptFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "axe.min.js")
	if err := os.WriteFile(path, []byte("window.axe={}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := LoadScript(context.Background(), path, "")
	if err != nil || got != "window.axe={}" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestLoadScriptFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/axe.min.js" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("/* axe */"))
	}))
	defer srv.Close()

	got, err := LoadScript(context.Background(), "", srv.URL+"/axe.min.js")
	if err != nil || got != "/* axe */" {
		t.Fatalf("got %q, %v", got, err)
	}
	if _, err := LoadScript(context.Background(), "", srv.URL+"/missing.js"); err == nil {
		t.Fatalf("expected error for 404")
	}
}
