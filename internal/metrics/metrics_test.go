package metrics

import (
	"bytes"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder_Counts(t *testing.T) {
	r := New()

	r.InferenceCall("find-variants")
	r.InferenceCall("find-variants")
	r.InferenceCall("gene-relevance")
	r.EmptyAnswer("find-variants")
	r.EntityLookup("variant", true)
	r.EntityLookup("variant", false)
	r.ParseFailure()
	r.Resolution("resolved", 3)

	if got := testutil.ToFloat64(r.InferenceCalls.WithLabelValues("find-variants")); got != 2 {
		t.Errorf("expected 2 find-variants calls, got %v", got)
	}
	if got := testutil.ToFloat64(r.EmptyAnswers.WithLabelValues("find-variants")); got != 1 {
		t.Errorf("expected 1 empty answer, got %v", got)
	}
	if got := testutil.ToFloat64(r.EntityCache.WithLabelValues("variant", "hit")); got != 1 {
		t.Errorf("expected 1 entity hit, got %v", got)
	}
	if got := testutil.ToFloat64(r.Observations); got != 3 {
		t.Errorf("expected 3 observations, got %v", got)
	}
	if got := testutil.ToFloat64(r.ParseFailures); got != 1 {
		t.Errorf("expected 1 parse failure, got %v", got)
	}
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	r.InferenceCall("x")
	r.InferenceFailure("x")
	r.EmptyAnswer("x")
	r.ResponseCacheHit()
	r.EntityLookup("paper", true)
	r.ParseFailure()
	r.Resolution("resolved", 1)
	if err := r.WriteText(&bytes.Buffer{}); err != nil {
		t.Errorf("expected nil error from nil recorder, got %v", err)
	}
}

func TestRecorder_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewWithRegistry(reg, reg); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if _, err := NewWithRegistry(reg, reg); err == nil {
		t.Error("expected error registering twice on one registry")
	}
}

func TestRecorder_WriteText(t *testing.T) {
	r := New()
	r.InferenceCall("link-observations")

	var buf bytes.Buffer
	if err := r.WriteText(&buf); err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}
	if !strings.Contains(buf.String(), `varlens_inference_calls_total{prompt="link-observations"} 1`) {
		t.Errorf("expected call counter in output, got:\n%s", buf.String())
	}
}
