package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/varlens/internal/cache"
	"github.com/ppiankov/varlens/internal/document"
	"github.com/ppiankov/varlens/internal/fields"
	"github.com/ppiankov/varlens/internal/llm"
	"github.com/ppiankov/varlens/internal/metrics"
	"github.com/ppiankov/varlens/internal/model"
	"github.com/ppiankov/varlens/internal/render"
	"github.com/ppiankov/varlens/internal/resolve"
	"github.com/ppiankov/varlens/internal/variant"
	"github.com/ppiankov/varlens/internal/worker"
)

// engine wires the provider, inference service, resolver and loaders for one command run
type engine struct {
	cfg      *model.Config
	recorder *metrics.Recorder
	resolver *resolve.Resolver
	fields   *fields.Extractor // nil unless field extraction is enabled
	loader   *document.Loader
}

// availabilityTimeout bounds the provider pre-flight check
const availabilityTimeout = 15 * time.Second

func newEngine(ctx context.Context, cfg *model.Config) (*engine, error) {
	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg))
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}
	if provider == nil {
		return nil, fmt.Errorf("no inference provider configured (set llm.provider or --provider)")
	}
	checkCtx, cancel := context.WithTimeout(ctx, availabilityTimeout)
	defer cancel()
	if !provider.IsAvailable(checkCtx) {
		return nil, fmt.Errorf("inference provider %s is not available (check the API key, base URL and network)", provider.Name())
	}

	recorder := metrics.New()
	opts := []llm.ServiceOption{
		llm.WithModel(cfg.LLM.Model),
		llm.WithLimiter(worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)),
		llm.WithRecorder(recorder),
	}
	if c := cache.New(cfg.Cache); c != nil {
		// Zero ttl lets each cache layer apply its own configured expiry
		opts = append(opts, llm.WithCache(c, 0))
	}
	service := llm.NewService(provider, opts...)

	e := &engine{
		cfg:      cfg,
		recorder: recorder,
		resolver: resolve.New(service, variant.NewHGVSParser(), variant.NewComparator(), recorder, resolve.Options{
			Concurrency: cfg.Concurrency.Inference,
			RefSeqHints: cfg.Resolve.RefSeqHints,
			Evidence:    cfg.Resolve.Evidence,
		}),
		// Paper hosts get one request per second, tightened by robots.txt crawl delays
		loader: document.NewLoader(document.NewFetcher(cfg.HTTP, worker.NewLimiter(1, 1))),
	}
	if cfg.Resolve.Fields {
		e.fields = fields.NewExtractor(service, cfg.Concurrency.Inference, recorder)
	}
	return e, nil
}

// report attaches derived fields to a resolution when field extraction is enabled
func (e *engine) report(ctx context.Context, paper *model.Paper, res *model.Resolution) (render.Report, error) {
	r := render.Report{Source: paper.Source, Resolution: res}
	if e.fields == nil || len(res.Observations) == 0 {
		return r, nil
	}
	records, err := e.fields.Extract(ctx, paper, res.Gene, res.Observations)
	if err != nil {
		return r, err
	}
	r.Fields = records
	return r, nil
}

// writeMetrics dumps the counters in Prometheus text format
func (e *engine) writeMetrics(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create metrics file: %w", err)
	}
	if err := e.recorder.WriteText(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write metrics: %w", err)
	}
	return f.Close()
}

func progress(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

func elapsed(start time.Time) string {
	return time.Since(start).Round(time.Millisecond).String()
}
