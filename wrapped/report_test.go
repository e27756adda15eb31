package wrapped

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestCorpusFilter(t *testing.T) {
	t.Parallel()

	full := threadFixture(t)

	all, err := full.Filter(Query{})
	if err != nil || len(all) != len(full) {
		t.Fatalf("Filter(zero)=%d rows err=%v, want all %d", len(all), err, len(full))
	}

	view, err := full.Filter(Query{From: "2024-01-02", To: "2024-01-02"})
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(view) != 2 {
		t.Fatalf("len(view)=%d, want 2 (inclusive single day)", len(view))
	}

	open, err := full.Filter(Query{From: "2024-01-03"})
	if err != nil || len(open) != 2 {
		t.Fatalf("Filter(from only)=%d rows err=%v, want 2", len(open), err)
	}

	if _, err := full.Filter(Query{From: "2025-01-01"}); !errors.Is(err, ErrEmptyFilteredRange) {
		t.Fatalf("err=%v, want ErrEmptyFilteredRange", err)
	}
	if _, err := full.Filter(Query{From: "01/02/2024"}); err == nil || errors.Is(err, ErrEmptyFilteredRange) {
		t.Fatalf("err=%v, want a validation error", err)
	}
}

func TestQueryKey(t *testing.T) {
	t.Parallel()

	a := Query{From: "2024-01-01", Keyword: "x"}
	b := Query{From: "2024-01-01", TitleFilter: "x"}
	if a.Key() == b.Key() {
		t.Fatalf("distinct queries share key %q", a.Key())
	}
	if a.Key() != (Query{From: "2024-01-01", Keyword: "x"}).Key() {
		t.Fatalf("equal queries produce different keys")
	}
}

func TestBuildReport(t *testing.T) {
	t.Parallel()

	full := threadFixture(t)
	r, err := BuildReport(full, Query{From: "2024-01-02", Keyword: "error", TitleFilter: "build", TopN: 2}, ReportOptions{})
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}

	if r.Corpus.From != "2024-01-01" || r.Corpus.To != "2024-01-05" {
		t.Fatalf("Corpus range=%+v", r.Corpus)
	}
	if r.Range.From != "2024-01-02" || r.Range.To != "2024-01-05" {
		t.Fatalf("Range=%+v", r.Range)
	}
	if r.Counts.Messages != 4 || r.Counts.UserMessages != 3 || r.Counts.AssistantMessages != 1 || r.Counts.Threads != 2 {
		t.Fatalf("Counts=%+v", r.Counts)
	}
	if r.Keyword == nil || r.Keyword.User != 1 || r.Keyword.Total != 1 {
		t.Fatalf("Keyword=%+v, want 1 user hit", r.Keyword)
	}
	if len(r.Threads.Longest) != 2 || r.Threads.Longest[0].ConvID != "c-long" {
		t.Fatalf("Longest=%+v", r.Threads.Longest)
	}
	if r.Threads.IndexTotal != 1 || r.Threads.Index[0].ConvID != "c-sad" {
		t.Fatalf("Index=%+v total=%d, want c-sad only", r.Threads.Index, r.Threads.IndexTotal)
	}
	if r.Activity.ActiveDays != 3 {
		t.Fatalf("ActiveDays=%d, want 3", r.Activity.ActiveDays)
	}
	if r.EmotionalDNA == nil {
		t.Fatalf("EmotionalDNA missing")
	}
	if r.TokenEconomy.CostUSD <= 0 {
		t.Fatalf("CostUSD=%v, want default rates applied", r.TokenEconomy.CostUSD)
	}

	r, err = BuildReport(full, Query{}, ReportOptions{OmitDNA: true, IndexLimit: 1})
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}
	if r.EmotionalDNA != nil || len(r.Threads.Index) != 1 || r.Threads.IndexTotal != 3 {
		t.Fatalf("dna=%v index=%d/%d, want omitted and capped", r.EmotionalDNA != nil, len(r.Threads.Index), r.Threads.IndexTotal)
	}
}

func TestBuildReport_TerminalConditions(t *testing.T) {
	t.Parallel()

	if _, err := BuildReport(Corpus{}, Query{}, DefaultReportOptions()); !errors.Is(err, ErrEmptyCorpus) {
		t.Fatalf("err=%v, want ErrEmptyCorpus", err)
	}
	_, err := BuildReport(threadFixture(t), Query{To: "2023-12-31"}, DefaultReportOptions())
	if !errors.Is(err, ErrEmptyFilteredRange) {
		t.Fatalf("err=%v, want ErrEmptyFilteredRange", err)
	}
	if errors.Is(err, ErrEmptyCorpus) {
		t.Fatalf("empty range must be distinct from empty corpus")
	}
}

func TestRenderMarkdown(t *testing.T) {
	t.Parallel()

	r, err := BuildReport(threadFixture(t), Query{Keyword: "great"}, DefaultReportOptions())
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}
	md := RenderMarkdown(r)
	for _, want := range []string{
		"# GPT Wrapped",
		"**Primary Class:** AI / ML / LLM", // "fail" contains "ai"
		"**Persona Flavor:**",
		"| Chaos | ",
		"**'great':** you 1, AI 0, total 1",
		"**Longest**",
		"- Long Essay... (10 tok)",
		"| Broken Build | 8 | -0.17 |",
		"Showing 3 of 3 threads",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestRenderThreadMarkdown(t *testing.T) {
	t.Parallel()

	ix := NewThreadIndex(threadFixture(t))
	ts, ok := ix.Lookup("c-happy")
	if !ok {
		t.Fatalf("Lookup(c-happy) missing")
	}
	md := RenderThreadMarkdown(ts, ix.Thread("c-happy"))
	for _, want := range []string{
		`<a id="thread-c-happy"></a>`,
		"## Happy Chat",
		"- conversation_id: `c-happy`",
		"**👤** `2024-01-01 10:00`",
		"thanks this is great",
		"**🤖** `2024-01-01 10:01`",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("thread markdown missing %q:\n%s", want, md)
		}
	}
}

func TestReportSchema(t *testing.T) {
	t.Parallel()

	schema, err := ReportSchema()
	if err != nil {
		t.Fatalf("ReportSchema: %v", err)
	}
	if schema["type"] != "object" || schema["title"] != "GPT Wrapped report" {
		t.Fatalf("schema type/title=%v/%v", schema["type"], schema["title"])
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("schema properties missing")
	}
	for _, key := range []string{"chaos", "persona", "interests", "activity", "threads", "token_economy"} {
		if _, ok := props[key]; !ok {
			t.Fatalf("schema missing property %q", key)
		}
	}
	if _, err := json.Marshal(schema); err != nil {
		t.Fatalf("marshal schema: %v", err)
	}
}
