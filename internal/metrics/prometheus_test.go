package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestStatusLabel(t *testing.T) {
	cases := map[int]string{200: "2xx", 301: "3xx", 404: "4xx", 503: "5xx", 0: "unknown"}
	for code, want := range cases {
		if got := statusLabel(code); got != want {
			t.Errorf("statusLabel(%d) = %q, want %q", code, got, want)
		}
	}
}

func TestObserveHTTP_IncrementsCounterByRouteAndStatus(t *testing.T) {
	r := New()
	r.ObserveHTTP("/v1/chat/completions", 200, 10*time.Millisecond)
	r.ObserveHTTP("/v1/chat/completions", 500, 10*time.Millisecond)

	if got := testutil.ToFloat64(r.httpRequestsTotal.WithLabelValues("/v1/chat/completions", "2xx")); got != 1 {
		t.Errorf("2xx count = %v", got)
	}
	if got := testutil.ToFloat64(r.httpRequestsTotal.WithLabelValues("/v1/chat/completions", "5xx")); got != 1 {
		t.Errorf("5xx count = %v", got)
	}
}

func TestObserveAttempt_IncrementsCounterByOutcome(t *testing.T) {
	r := New()
	r.ObserveAttempt("ok", 5*time.Millisecond)
	r.ObserveAttempt("ok", 5*time.Millisecond)
	r.ObserveAttempt("fatal_unauthorized", 5*time.Millisecond)

	if got := testutil.ToFloat64(r.attemptsTotal.WithLabelValues("ok")); got != 2 {
		t.Errorf("ok count = %v", got)
	}
	if got := testutil.ToFloat64(r.attemptsTotal.WithLabelValues("fatal_unauthorized")); got != 1 {
		t.Errorf("fatal_unauthorized count = %v", got)
	}
}

func TestSetCredentialState_PublishesScoreCooldownAndEnabled(t *testing.T) {
	r := New()
	r.SetCredentialState("cred-1", 87.5, 30*time.Second, true)

	if got := testutil.ToFloat64(r.credentialScore.WithLabelValues("cred-1")); got != 87.5 {
		t.Errorf("score = %v", got)
	}
	if got := testutil.ToFloat64(r.credentialCooldown.WithLabelValues("cred-1")); got != 30 {
		t.Errorf("cooldown = %v", got)
	}
	if got := testutil.ToFloat64(r.credentialEnabled.WithLabelValues("cred-1")); got != 1 {
		t.Errorf("enabled = %v", got)
	}

	r.SetCredentialState("cred-1", 0, 0, false)
	if got := testutil.ToFloat64(r.credentialEnabled.WithLabelValues("cred-1")); got != 0 {
		t.Errorf("enabled after disable = %v", got)
	}
}

func TestAddTokens_SplitsByDirectionAndEstimatedLabel(t *testing.T) {
	r := New()
	r.AddTokens(100, 50, false)
	r.AddTokens(10, 5, true)

	if got := testutil.ToFloat64(r.tokensTotal.WithLabelValues("input", "false")); got != 100 {
		t.Errorf("input/false = %v", got)
	}
	if got := testutil.ToFloat64(r.tokensTotal.WithLabelValues("output", "false")); got != 50 {
		t.Errorf("output/false = %v", got)
	}
	if got := testutil.ToFloat64(r.tokensTotal.WithLabelValues("input", "true")); got != 10 {
		t.Errorf("input/true = %v", got)
	}
}

func TestAddDroppedLogs_Accumulates(t *testing.T) {
	r := New()
	r.AddDroppedLogs(3)
	r.AddDroppedLogs(2)
	if got := testutil.ToFloat64(r.droppedLogs); got != 5 {
		t.Errorf("got %v", got)
	}
}

func TestSetBuildInfo_PublishesVersionGauge(t *testing.T) {
	r := New()
	r.SetBuildInfo("1.2.3")
	if got := testutil.ToFloat64(r.buildInfo.WithLabelValues("1.2.3")); got != 1 {
		t.Errorf("got %v", got)
	}
}

func TestInFlight_IncAndDec(t *testing.T) {
	r := New()
	r.IncInFlight()
	r.IncInFlight()
	r.DecInFlight()
	if got := testutil.ToFloat64(r.inFlight); got != 1 {
		t.Errorf("got %v", got)
	}
}

func TestHandler_IsNotNil(t *testing.T) {
	r := New()
	if r.Handler() == nil {
		t.Error("expected a non-nil metrics handler")
	}
	if r.PromRegistry() == nil {
		t.Error("expected a non-nil prometheus registry")
	}
}
