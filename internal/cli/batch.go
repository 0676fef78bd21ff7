package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/varlens/internal/render"
	"github.com/ppiankov/varlens/internal/worker"
)

var (
	defaultGene  string
	outputDir    string
	batchTimeout time.Duration
)

var batchCmd = &cobra.Command{
	Use:   "batch <list-file|dir>",
	Short: "Resolve many papers in parallel",
	Long: `Batch resolves many papers concurrently and writes one JSON and one
Markdown report per (paper, gene).

The input is either a list file with one "source [GENE]" job per line
(# comments allowed), or a directory whose paper files are all resolved
for --gene.

Example:
  varlens batch jobs.txt --output-dir ./reports
  varlens batch ./papers --gene EXOC2 --papers 8`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	addEngineFlags(batchCmd)

	batchCmd.Flags().StringVarP(&defaultGene, "gene", "g", "", "gene for jobs that name none")
	batchCmd.Flags().Int("papers", 0, "papers resolved in parallel")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./varlens-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for the batch")
}

var paperExts = map[string]bool{".json": true, ".yaml": true, ".yml": true, ".html": true, ".htm": true, ".txt": true}

// jobsFromDir makes one job per paper file in dir
func jobsFromDir(dir, gene string) ([]worker.Job, error) {
	if gene == "" {
		return nil, fmt.Errorf("--gene is required when the input is a directory")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var jobs []worker.Job
	for _, e := range entries {
		if e.IsDir() || !paperExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		jobs = append(jobs, worker.Job{Source: filepath.Join(dir, e.Name()), Gene: gene})
	}
	return jobs, nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	input := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if noCache {
		cfg.Cache.Enabled = false
	}

	var jobs []worker.Job
	if info, statErr := os.Stat(input); statErr == nil && info.IsDir() {
		jobs, err = jobsFromDir(input, defaultGene)
	} else {
		jobs, err = worker.ReadJobsFromFile(input, defaultGene)
	}
	if err != nil {
		return err
	}

	eng, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	fmt.Fprintf(os.Stderr, "\n  varlens batch\n\n")
	fmt.Fprintf(os.Stderr, "  Input:      %s (%d jobs)\n", input, len(jobs))
	fmt.Fprintf(os.Stderr, "  Papers:     %d in parallel\n", cfg.Concurrency.Papers)
	fmt.Fprintf(os.Stderr, "  Provider:   %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	fmt.Fprintf(os.Stderr, "  Output dir: %s\n\n", outputDir)

	start := time.Now()
	processor := worker.NewBatchProcessor(eng.resolver, eng.loader.Load, cfg.Concurrency.Papers)
	results := processor.Process(ctx, jobs)

	// Field extraction runs per paper after resolution; a failure only loses that paper's fields
	reports, _ := worker.Gather(ctx, cfg.Concurrency.Papers, results, func(ctx context.Context, res *worker.BatchResult) (*render.Report, error) {
		if res.Error != nil {
			return nil, nil
		}
		r, err := eng.report(ctx, res.Paper, res.Resolution)
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: fields: %v\n", res.Source, err)
		}
		return &r, nil
	})

	var written []render.Report
	failures := make(map[string]error)
	for i, res := range results {
		if res.Error != nil {
			failures[res.Source+" "+res.Gene] = res.Error
			fmt.Fprintf(os.Stderr, "✗ %s %s: %v\n", res.Source, res.Gene, res.Error)
			continue
		}
		if reports == nil || reports[i] == nil {
			continue
		}
		r := *reports[i]
		base := filepath.Join(outputDir, slug(res.Resolution.PaperID)+"."+slug(res.Gene))
		if err := render.WriteFile(base+".json", func(w io.Writer) error { return render.JSON(w, r) }); err != nil {
			failures[res.Source+" "+res.Gene] = err
			continue
		}
		if err := render.WriteFile(base+".md", func(w io.Writer) error { return render.Markdown(w, r) }); err != nil {
			failures[res.Source+" "+res.Gene] = err
			continue
		}
		written = append(written, r)
		fmt.Fprintf(os.Stderr, "✓ %s %s: %s, %d observations\n", res.Resolution.PaperID, res.Gene, res.Resolution.Reason, len(res.Resolution.Observations))
	}

	fmt.Fprintln(os.Stderr)
	render.Summary(os.Stderr, written, failures)
	fmt.Fprintf(os.Stderr, "\n  Done in %s: %d written, %d failed\n\n", elapsed(start), len(written), len(failures))

	return eng.writeMetrics(metricsOut)
}

// slug makes a paper id or gene safe to use in a file name
func slug(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.', r == '_':
			return r
		}
		return '_'
	}, s)
	s = strings.Trim(s, "._")
	if s == "" {
		s = "paper"
	}
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}
