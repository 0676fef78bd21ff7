package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/varlens/internal/model"
)

// MockResolver implements Resolver
type MockResolver struct {
	mu    sync.Mutex
	calls int
	fail  string
}

func (m *MockResolver) Resolve(ctx context.Context, paper *model.Paper, gene string) (*model.Resolution, error) {
	time.Sleep(5 * time.Millisecond)
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if paper.ID == m.fail {
		return nil, errors.New("provider unavailable")
	}
	return &model.Resolution{PaperID: paper.ID, Gene: gene, Reason: model.ReasonResolved}, nil
}

func mockLoader(ctx context.Context, source string) (*model.Paper, error) {
	if strings.HasPrefix(source, "missing") {
		return nil, os.ErrNotExist
	}
	return &model.Paper{ID: source, Segments: []model.TextSegment{{ID: "body", Kind: model.SegmentBody, Text: "text"}}}, nil
}

func TestBatchProcessor_Process(t *testing.T) {
	resolver := &MockResolver{}
	processor := NewBatchProcessor(resolver, mockLoader, 2)

	jobs := []Job{{"a.html", "PAH"}, {"b.html", "PAH"}, {"c.html", "BRCA1"}}
	results := processor.Process(context.Background(), jobs)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, res := range results {
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.Source, res.Error)
			continue
		}
		if res.Source != jobs[i].Source || res.Resolution.PaperID != jobs[i].Source {
			t.Errorf("result %d out of order: %s", i, res.Source)
		}
		if res.Paper == nil || res.Paper.ID != jobs[i].Source {
			t.Errorf("result %d carries no loaded paper", i)
		}
		if res.Resolution.Gene != jobs[i].Gene {
			t.Errorf("expected gene %s, got %s", jobs[i].Gene, res.Resolution.Gene)
		}
	}
	if resolver.calls != 3 {
		t.Errorf("expected 3 resolve calls, got %d", resolver.calls)
	}
}

func TestBatchProcessor_ErrorsStayPerJob(t *testing.T) {
	resolver := &MockResolver{fail: "b.html"}
	processor := NewBatchProcessor(resolver, mockLoader, 4)

	results := processor.Process(context.Background(), []Job{
		{"a.html", "PAH"}, {"b.html", "PAH"}, {"missing.html", "PAH"},
	})

	if results[0].Error != nil || results[0].Resolution == nil {
		t.Errorf("expected first job to succeed, got %v", results[0].Error)
	}
	if results[1].Error == nil || results[1].Resolution != nil {
		t.Error("expected resolver error for second job")
	}
	if !errors.Is(results[2].Error, os.ErrNotExist) {
		t.Errorf("expected load error for third job, got %v", results[2].Error)
	}
	if resolver.calls != 2 {
		t.Errorf("loader failure should skip resolve; got %d resolve calls", resolver.calls)
	}
}

func TestBatchProcessor_Empty(t *testing.T) {
	processor := NewBatchProcessor(&MockResolver{}, mockLoader, 0)
	results := processor.Process(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestReadJobsFromFile(t *testing.T) {
	content := `papers/a.html
# comment
papers/b.html BRCA1

papers/a.html
papers/a.html   PAH   `

	path := filepath.Join(t.TempDir(), "jobs.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	jobs, err := ReadJobsFromFile(path, "PAH")
	if err != nil {
		t.Fatalf("ReadJobsFromFile failed: %v", err)
	}

	want := []Job{{"papers/a.html", "PAH"}, {"papers/b.html", "BRCA1"}}
	if len(jobs) != len(want) {
		t.Fatalf("expected %d jobs, got %d: %v", len(want), len(jobs), jobs)
	}
	for i := range want {
		if jobs[i] != want[i] {
			t.Errorf("job %d = %v, want %v", i, jobs[i], want[i])
		}
	}
}

func TestReadJobsFromFile_NoGene(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.txt")
	if err := os.WriteFile(path, []byte("papers/a.html\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadJobsFromFile(path, ""); err == nil {
		t.Error("expected error for job without gene")
	}
}

func TestReadJobsFromFile_Missing(t *testing.T) {
	if _, err := ReadJobsFromFile(filepath.Join(t.TempDir(), "none.txt"), "PAH"); err == nil {
		t.Error("expected error for missing file")
	}
}
