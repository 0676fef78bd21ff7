package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/varlens/internal/render"
)

var (
	genes      []string
	outJSON    string
	outMD      string
	metricsOut string
	runTimeout time.Duration
	noCache    bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <path|url>",
	Short: "Resolve the observations of one or more genes in one paper",
	Long: `Resolve reads one paper and reports, for each gene, every
(variant, individual) observation it describes.

Papers can be JSON or YAML segment manifests, HTML files, plain text, or
http(s) URLs fetched with robots.txt respected.

Example:
  varlens resolve papers/pmid-123.json --gene EXOC2
  varlens resolve https://example.org/article.html --gene PAH --gene BRCA1 --md report.md
  varlens resolve paper.html --gene EXOC2 --provider ollama --model llama3.1 --fields`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	addEngineFlags(resolveCmd)

	resolveCmd.Flags().StringArrayVarP(&genes, "gene", "g", nil, "gene symbol to resolve (repeatable)")
	resolveCmd.Flags().StringVar(&outJSON, "json", "", "write the JSON report here instead of stdout")
	resolveCmd.Flags().StringVar(&outMD, "md", "", "also write a Markdown report")
	resolveCmd.Flags().DurationVar(&runTimeout, "timeout", 10*time.Minute, "overall timeout")
	_ = resolveCmd.MarkFlagRequired("gene")
}

// addEngineFlags registers the flags shared by resolve and batch
func addEngineFlags(cmd *cobra.Command) {
	cmd.Flags().String("provider", "", "inference provider (openai, anthropic, ollama)")
	cmd.Flags().String("model", "", "model name")
	cmd.Flags().Int("concurrency", 0, "inference calls in flight per stage")
	cmd.Flags().Float64("rps", 0, "inference requests per second")
	cmd.Flags().String("cache-dir", "", "persist the response cache in this directory")
	cmd.Flags().Bool("evidence", true, "attach supporting sentences to observations")
	cmd.Flags().Bool("fields", false, "extract per-observation fields after resolution")
	cmd.Flags().String("http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY)")
	cmd.Flags().String("https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY)")
	cmd.Flags().String("log-file", "", "rotating log file")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the response cache")
	cmd.Flags().StringVar(&metricsOut, "metrics-out", "", "write Prometheus text metrics here")
}

func runResolve(cmd *cobra.Command, args []string) error {
	source := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if noCache {
		cfg.Cache.Enabled = false
	}

	eng, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}

	start := time.Now()
	progress("⚙️  Loading %s", source)
	paper, err := eng.loader.Load(ctx, source)
	if err != nil {
		return fmt.Errorf("load paper: %w", err)
	}
	progress("✓ Loaded %s (%d segments)", paper.ID, len(paper.Segments))

	var reports []render.Report
	for _, gene := range genes {
		progress("⚙️  Resolving %s", gene)
		res, err := eng.resolver.Resolve(ctx, paper, gene)
		if err != nil {
			return err
		}
		r, err := eng.report(ctx, paper, res)
		if err != nil {
			return err
		}
		progress("✓ %s: %s, %d observations", gene, res.Reason, len(res.Observations))
		reports = append(reports, r)
	}

	var out any = reports
	if len(reports) == 1 {
		out = reports[0]
	}
	if outJSON == "" {
		if err := render.JSON(os.Stdout, out); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
	} else {
		if err := render.WriteFile(outJSON, func(w io.Writer) error { return render.JSON(w, out) }); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		progress("✓ Wrote JSON: %s", outJSON)
	}

	if outMD != "" {
		err := render.WriteFile(outMD, func(w io.Writer) error {
			for _, r := range reports {
				if err := render.Markdown(w, r); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		progress("✓ Wrote Markdown: %s", outMD)
	}

	if err := eng.writeMetrics(metricsOut); err != nil {
		return err
	}

	if verbose {
		render.Summary(os.Stderr, reports, nil)
		progress("Done in %s", elapsed(start))
	}
	return nil
}
