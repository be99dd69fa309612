package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/KAMLESH7939/backend-inclusight/internal/domain/advice"
	"github.com/KAMLESH7939/backend-inclusight/internal/domain/analyses"
)

func TestAdvise(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["model"] != "gpt-4o-mini" {
			t.Errorf("model: %v", body["model"])
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"items\":[]}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test", "", srv.URL+"/v1")
	out, err := c.Advise(context.Background(), &analyses.Analysis{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("advise: %v", err)
	}
	if out != `{"items":[]}` {
		t.Fatalf("content: %q", out)
	}
}

func TestAdviseQuota(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota"}}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test", "gpt-4o-mini", srv.URL+"/v1")
	_, err := c.Advise(context.Background(), &analyses.Analysis{URL: "https://example.com"})
	if !errors.Is(err, advice.ErrQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}
	if !strings.Contains(err.Error(), "quota") {
		t.Fatalf("message lost: %v", err)
	}
}
