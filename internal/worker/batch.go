package worker

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ppiankov/varlens/internal/model"
)

// Resolver resolves the observations of one gene in one paper
type Resolver interface {
	Resolve(ctx context.Context, paper *model.Paper, gene string) (*model.Resolution, error)
}

// Loader turns a job source (file path or URL) into a paper
type Loader func(ctx context.Context, source string) (*model.Paper, error)

// Job is one (paper source, gene) pair to resolve
type Job struct {
	Source string
	Gene   string
}

// BatchResult is the outcome of one job. Error is set when loading or resolving failed.
type BatchResult struct {
	Job
	Paper      *model.Paper // Set once loading succeeded
	Resolution *model.Resolution
	Error      error
}

// BatchProcessor resolves many papers with bounded concurrency
type BatchProcessor struct {
	resolver    Resolver
	load        Loader
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(resolver Resolver, load Loader, concurrency int) *BatchProcessor {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &BatchProcessor{
		resolver:    resolver,
		load:        load,
		concurrency: concurrency,
	}
}

// Process runs every job. Results are in job order; one failing paper does not stop the others.
func (b *BatchProcessor) Process(ctx context.Context, jobs []Job) []*BatchResult {
	results, _ := Gather(ctx, b.concurrency, jobs, func(ctx context.Context, job Job) (*BatchResult, error) {
		return b.run(ctx, job), nil
	})
	if results == nil {
		results = []*BatchResult{}
	}
	return results
}

// ProcessFile reads jobs from a list file and processes them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath, defaultGene string) ([]*BatchResult, error) {
	jobs, err := ReadJobsFromFile(filePath, defaultGene)
	if err != nil {
		return nil, fmt.Errorf("read jobs: %w", err)
	}
	return b.Process(ctx, jobs), nil
}

func (b *BatchProcessor) run(ctx context.Context, job Job) *BatchResult {
	result := &BatchResult{Job: job}

	paper, err := b.load(ctx, job.Source)
	if err != nil {
		result.Error = fmt.Errorf("load %s: %w", job.Source, err)
		slog.Error("paper load failed", "source", job.Source, "error", err)
		return result
	}
	result.Paper = paper

	resolution, err := b.resolver.Resolve(ctx, paper, job.Gene)
	if err != nil {
		result.Error = fmt.Errorf("resolve %s for %s: %w", job.Source, job.Gene, err)
		slog.Error("resolution failed", "source", job.Source, "gene", job.Gene, "error", err)
		return result
	}

	result.Resolution = resolution
	return result
}

// ReadJobsFromFile reads one job per line: "source [GENE]". Lines without a gene use defaultGene.
// Blank lines and # comments are skipped, duplicate jobs are dropped.
func ReadJobsFromFile(filePath, defaultGene string) ([]Job, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var jobs []Job
	seen := make(map[Job]bool)

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		job := Job{Source: fields[0], Gene: defaultGene}
		if len(fields) > 1 {
			job.Gene = fields[1]
		}
		if job.Gene == "" {
			return nil, fmt.Errorf("line %d: no gene for %s", lineNo, job.Source)
		}

		if !seen[job] {
			seen[job] = true
			jobs = append(jobs, job)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return jobs, nil
}
