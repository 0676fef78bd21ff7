// Package render writes resolution reports as JSON, Markdown and terminal tables.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/ppiankov/varlens/internal/fields"
	"github.com/ppiankov/varlens/internal/model"
)

// Report is one resolved paper, with derived fields when field extraction ran
type Report struct {
	Source     string            `json:"source,omitempty"`
	Resolution *model.Resolution `json:"resolution"`
	Fields     []fields.Record   `json:"fields,omitempty"`
}

// JSON writes v indented
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// WriteFile creates path (and its directory) and renders into it with fn
func WriteFile(path string, fn func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()
	return fn(f)
}

// Markdown writes a human-readable report of one paper
func Markdown(w io.Writer, r Report) error {
	res := r.Resolution
	var b strings.Builder

	fmt.Fprintf(&b, "# %s: %s\n\n", res.Gene, res.PaperID)
	if r.Source != "" {
		fmt.Fprintf(&b, "- Source: %s\n", r.Source)
	}
	fmt.Fprintf(&b, "- Outcome: `%s` (%s)\n", res.Reason, res.State)
	fmt.Fprintf(&b, "- Trail: %s\n", trail(res.Trail))
	fmt.Fprintf(&b, "- Inference calls: %d\n\n", totalCalls(res.Calls))

	fmt.Fprintf(&b, "## Observations (%d)\n\n", len(res.Observations))
	if len(res.Observations) == 0 {
		b.WriteString("No observations.\n\n")
	} else {
		b.WriteString("| Variant | Valid | Individual | Variant mentions | Patient mentions |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, o := range res.Observations {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				cell(o.Variant.String()), yesNo(o.Variant.Valid), cell(o.Individual),
				cell(strings.Join(o.VariantMentions, "; ")), cell(strings.Join(o.PatientMentions, "; ")))
		}
		b.WriteString("\n")

		for _, o := range res.Observations {
			if len(o.Evidence) == 0 {
				continue
			}
			fmt.Fprintf(&b, "**%s / %s**\n\n", o.Variant.Description, o.Individual)
			for _, e := range o.Evidence {
				fmt.Fprintf(&b, "> %s\n\n", e)
			}
		}
	}

	if len(r.Fields) > 0 {
		names := fields.Names()
		b.WriteString("## Fields\n\n")
		b.WriteString("| Variant | Individual | " + strings.Join(names, " | ") + " |\n")
		b.WriteString("|---|---|" + strings.Repeat("---|", len(names)) + "\n")
		for _, rec := range r.Fields {
			row := []string{cell(rec.Observation.Variant.Description), cell(rec.Observation.Individual)}
			for _, n := range names {
				row = append(row, cell(rec.Fields[n]))
			}
			b.WriteString("| " + strings.Join(row, " | ") + " |\n")
		}
		b.WriteString("\n")
	}

	if len(res.Diagnostics) > 0 {
		fmt.Fprintf(&b, "## Diagnostics (%d)\n\n", len(res.Diagnostics))
		for _, d := range res.Diagnostics {
			if d.Mention != "" {
				fmt.Fprintf(&b, "- `%s` at %s, %q: %s\n", d.Kind, d.Stage, d.Mention, d.Message)
			} else {
				fmt.Fprintf(&b, "- `%s` at %s: %s\n", d.Kind, d.Stage, d.Message)
			}
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Summary prints one table row per report, plus a failed row for each error
func Summary(w io.Writer, reports []Report, failures map[string]error) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Paper", "Gene", "Outcome", "Observations", "Unknown", "Diagnostics", "Calls"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)

	observations, calls := 0, 0
	for _, r := range reports {
		res := r.Resolution
		unknown := 0
		for _, o := range res.Observations {
			if o.Individual == model.UnknownIndividual {
				unknown++
			}
		}
		n := totalCalls(res.Calls)
		observations += len(res.Observations)
		calls += n
		table.Append([]string{
			res.PaperID, res.Gene, string(res.Reason),
			fmt.Sprint(len(res.Observations)), fmt.Sprint(unknown), fmt.Sprint(len(res.Diagnostics)), fmt.Sprint(n),
		})
	}

	sources := make([]string, 0, len(failures))
	for s := range failures {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	for _, s := range sources {
		table.Append([]string{s, "", "failed: " + failures[s].Error(), "", "", "", ""})
	}

	table.SetFooter([]string{
		fmt.Sprintf("%d papers", len(reports)+len(failures)), "", "",
		fmt.Sprint(observations), "", "", fmt.Sprint(calls),
	})
	table.Render()
}

func trail(states []model.State) string {
	parts := make([]string, len(states))
	for i, s := range states {
		parts[i] = string(s)
	}
	return strings.Join(parts, " → ")
}

func totalCalls(calls map[string]int) int {
	n := 0
	for _, c := range calls {
		n += c
	}
	return n
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
