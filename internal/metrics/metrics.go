// Package metrics counts inference cost and resolution outcomes.
package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const namespace = "varlens"

// Recorder holds the varlens counters. A nil *Recorder is a valid no-op.
type Recorder struct {
	gatherer prometheus.Gatherer

	InferenceCalls    *prometheus.CounterVec
	InferenceFailures *prometheus.CounterVec
	EmptyAnswers      *prometheus.CounterVec
	ResponseCacheHits prometheus.Counter
	EntityCache       *prometheus.CounterVec
	ParseFailures     prometheus.Counter
	Resolutions       *prometheus.CounterVec
	Observations      prometheus.Counter
}

// New registers the counters on a fresh registry
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r, err := NewWithRegistry(reg, reg)
	if err != nil {
		// A fresh registry cannot hold duplicates
		panic(err)
	}
	return r
}

// NewWithRegistry registers the counters on reg; gatherer backs WriteText
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) (*Recorder, error) {
	r := &Recorder{
		gatherer: gatherer,
		InferenceCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inference_calls_total",
			Help:      "Inference calls issued, by prompt tag.",
		}, []string{"prompt"}),
		InferenceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inference_failures_total",
			Help:      "Inference calls that failed in the provider, by prompt tag.",
		}, []string{"prompt"}),
		EmptyAnswers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inference_empty_answers_total",
			Help:      "Inference responses that carried no usable JSON object, by prompt tag.",
		}, []string{"prompt"}),
		ResponseCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "response_cache_hits_total",
			Help:      "Inference calls answered from the response cache.",
		}),
		EntityCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entity_cache_lookups_total",
			Help:      "Entity cache lookups, by scope and result (hit or miss).",
		}, []string{"scope", "result"}),
		ParseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "variant_parse_failures_total",
			Help:      "Variant mentions dropped because they could not be parsed.",
		}),
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Finished paper resolutions, by outcome reason.",
		}, []string{"reason"}),
		Observations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_total",
			Help:      "Observations produced.",
		}),
	}

	for _, c := range []prometheus.Collector{
		r.InferenceCalls, r.InferenceFailures, r.EmptyAnswers, r.ResponseCacheHits,
		r.EntityCache, r.ParseFailures, r.Resolutions, r.Observations,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return r, nil
}

// InferenceCall counts one issued call
func (r *Recorder) InferenceCall(prompt string) {
	if r == nil {
		return
	}
	r.InferenceCalls.WithLabelValues(prompt).Inc()
}

// InferenceFailure counts one provider failure
func (r *Recorder) InferenceFailure(prompt string) {
	if r == nil {
		return
	}
	r.InferenceFailures.WithLabelValues(prompt).Inc()
}

// EmptyAnswer counts one unusable response
func (r *Recorder) EmptyAnswer(prompt string) {
	if r == nil {
		return
	}
	r.EmptyAnswers.WithLabelValues(prompt).Inc()
}

// ResponseCacheHit counts one call served from the response cache
func (r *Recorder) ResponseCacheHit() {
	if r == nil {
		return
	}
	r.ResponseCacheHits.Inc()
}

// EntityLookup counts one entity cache lookup
func (r *Recorder) EntityLookup(scope string, hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.EntityCache.WithLabelValues(scope, result).Inc()
}

// ParseFailure counts one dropped mention
func (r *Recorder) ParseFailure() {
	if r == nil {
		return
	}
	r.ParseFailures.Inc()
}

// Resolution counts one finished run and its observations
func (r *Recorder) Resolution(reason string, observations int) {
	if r == nil {
		return
	}
	r.Resolutions.WithLabelValues(reason).Inc()
	r.Observations.Add(float64(observations))
}

// WriteText writes every gathered metric in the Prometheus text format
func (r *Recorder) WriteText(w io.Writer) error {
	if r == nil || r.gatherer == nil {
		return nil
	}
	families, err := r.gatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
