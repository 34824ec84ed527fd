package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	return rec.Body.String()
}

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.Request("/chat", "200")
	m.Request("/chat", "200")
	m.ModelInvoked("anthropic.claude", "error")
	m.ModelFallback("anthropic.claude", "amazon.titan")
	m.HitsDiscarded("tenant", 2)
	m.HitsDiscarded("focus", 0)
	m.IndexSync("upsert", "ok")

	body := scrape(t, m)

	want := []string{
		`ragchat_http_requests_total{route="/chat",status="200"} 2`,
		`ragchat_model_invocations_total{model="anthropic.claude",outcome="error"} 1`,
		`ragchat_model_fallbacks_total{from="anthropic.claude",to="amazon.titan"} 1`,
		`ragchat_discarded_hits_total{reason="tenant"} 2`,
		`ragchat_index_syncs_total{operation="upsert",outcome="ok"} 1`,
	}
	for _, line := range want {
		if !strings.Contains(body, line) {
			t.Errorf("exposition missing %q", line)
		}
	}
	if strings.Contains(body, `reason="focus"`) {
		t.Error("zero discards should not create a series")
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	m.Request("/chat", "500")
	m.ModelInvoked("x", "ok")
	m.ModelFallback("x", "y")
	m.HitsDiscarded("focus", 1)
	m.IndexSync("remove", "error")
}
