package document

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile_Formats(t *testing.T) {
	tests := []struct {
		name       string
		file       string
		content    string
		wantID     string
		wantTables int
		wantBody   string
	}{
		{
			name:       "json manifest",
			file:       "paper.json",
			content:    `{"id":"pmid:42","segments":[{"id":"b","kind":"body","text":"Body."},{"id":"t1","kind":"table","text":"P1\tc.1A>G"}]}`,
			wantID:     "pmid:42",
			wantTables: 1,
			wantBody:   "Body.",
		},
		{
			name: "yaml manifest without id",
			file: "case.yaml",
			content: `segments:
  - kind: body
    text: Yaml body.
`,
			wantID:   "case",
			wantBody: "Yaml body.",
		},
		{
			name:       "html",
			file:       "article.html",
			content:    "<p>Html body.</p><table><tr><td>a</td></tr></table>",
			wantID:     "article",
			wantTables: 1,
			wantBody:   "Html body.",
		},
		{
			name:     "plain text",
			file:     "notes.txt",
			content:  "Plain body.",
			wantID:   "notes",
			wantBody: "Plain body.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			paper, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile failed: %v", err)
			}
			if paper.ID != tt.wantID {
				t.Errorf("expected id %q, got %q", tt.wantID, paper.ID)
			}
			if paper.Source != path {
				t.Errorf("expected source %q, got %q", path, paper.Source)
			}
			if got := len(paper.Tables()); got != tt.wantTables {
				t.Errorf("expected %d tables, got %d", tt.wantTables, got)
			}
			if got := paper.Body().Text; got != tt.wantBody {
				t.Errorf("expected body %q, got %q", tt.wantBody, got)
			}
			for _, s := range paper.Segments {
				if s.ID == "" {
					t.Errorf("segment without id: %+v", s)
				}
			}
		})
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad.json":       `{"segments": [`,
		"kind.json":      `{"segments":[{"kind":"figure","text":"x"}]}`,
		"two-body.json":  `{"segments":[{"kind":"body","text":"a"},{"kind":"body","text":"b"}]}`,
		"duplicate.yaml": "segments:\n  - {id: a, kind: body, text: x}\n  - {id: a, kind: table, text: y}\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadFile(writeFile(t, name, content)); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoader_FileAndURL(t *testing.T) {
	path := writeFile(t, "p.txt", "text")
	paper, err := NewLoader(nil).Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if paper.Body().Text != "text" {
		t.Errorf("unexpected body %q", paper.Body().Text)
	}

	_, err = NewLoader(nil).Load(context.Background(), "https://example.org/paper")
	if err == nil || !strings.Contains(err.Error(), "no fetcher") {
		t.Errorf("expected no fetcher error, got %v", err)
	}
}

func TestIsURL(t *testing.T) {
	for source, want := range map[string]bool{
		"https://pubmed.ncbi.nlm.nih.gov/1/": true,
		"http://x":                           true,
		"papers/a.json":                      false,
		"ftp://x":                            false,
	} {
		if got := IsURL(source); got != want {
			t.Errorf("IsURL(%q) = %v, want %v", source, got, want)
		}
	}
}

