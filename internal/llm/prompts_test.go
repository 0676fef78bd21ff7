package llm

import (
	"strings"
	"testing"
)

func TestPrompts_EveryTagRenders(t *testing.T) {
	params := Params{
		"gene":       "PAH",
		"text":       "The proband carried c.1222C>T.",
		"variant":    "c.1222C>T",
		"patient":    "probands 5 and 6",
		"individual": "proband",
		"patients":   []string{"proband"},
		"variants":   []string{"c.1222C>T | p.Arg408Trp"},
	}

	for tag := range prompts {
		t.Run(string(tag), func(t *testing.T) {
			p, err := Lookup(tag)
			if err != nil {
				t.Fatalf("Lookup failed: %v", err)
			}
			out, err := p.Render(params)
			if err != nil {
				t.Fatalf("Render failed: %v", err)
			}
			if !strings.HasSuffix(out, p.Schema) {
				t.Error("expected schema at end of prompt")
			}
			if strings.Contains(out, "<no value>") {
				t.Errorf("template references a missing param:\n%s", out)
			}
			if ParseAnswer(p.Schema).Empty() {
				t.Errorf("schema is not a JSON object: %s", p.Schema)
			}
		})
	}
}

func TestPrompts_LinkListsEntities(t *testing.T) {
	p, _ := Lookup(PromptLink)
	out, err := p.Render(Params{
		"gene":     "PAH",
		"text":     "x",
		"patients": []string{"proband", "Patient 2"},
		"variants": []string{},
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(out, "- proband\n- Patient 2") {
		t.Errorf("expected bulleted patients, got:\n%s", out)
	}
	if !strings.Contains(out, "(none)") {
		t.Errorf("expected placeholder for empty variants, got:\n%s", out)
	}
	if !strings.Contains(out, `"unmatched_variants"; that key is reserved`) {
		t.Errorf("expected reserved unmatched key note, got:\n%s", out)
	}
}

func TestLookup_Unknown(t *testing.T) {
	if _, err := Lookup("missing"); err == nil {
		t.Error("expected error for unknown tag")
	}
}
