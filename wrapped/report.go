package wrapped

import (
	"errors"
	"fmt"
)

// DefaultIndexLimit caps the thread index listed in a report.
const DefaultIndexLimit = 50

// ReportOptions configures BuildReport.
type ReportOptions struct {
	Rates Rates
	// IndexLimit caps Threads.Index; zero uses DefaultIndexLimit, negative lists every thread.
	IndexLimit int
	// OmitDNA drops the per-message EmotionalDNA grid, which dominates report size.
	OmitDNA bool
}

// DefaultReportOptions returns options with DefaultRates.
func DefaultReportOptions() ReportOptions {
	return ReportOptions{Rates: DefaultRates, IndexLimit: DefaultIndexLimit}
}

type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type Counts struct {
	Messages          int `json:"messages"`
	UserMessages      int `json:"user_messages"`
	AssistantMessages int `json:"assistant_messages"`
	Threads           int `json:"threads"`
}

type ThreadsReport struct {
	Longest      []ThreadStat `json:"longest"`
	MostStressed []ThreadStat `json:"most_stressed"`
	Happiest     []ThreadStat `json:"happiest"`
	// Index is the title-filtered thread list, capped by ReportOptions.IndexLimit.
	Index       []ThreadStat `json:"index"`
	IndexTotal  int          `json:"index_total"`
	TitleFilter string       `json:"title_filter,omitempty"`
}

// Report is every analytic computed over one filtered view of a corpus.
type Report struct {
	// Corpus is the date span of the whole corpus; Range is the span selected by the query.
	Corpus DateRange `json:"corpus"`
	Range  DateRange `json:"range"`
	Counts Counts    `json:"counts"`

	Chaos            Chaos             `json:"chaos"`
	Persona          Persona           `json:"persona"`
	Interests        Interests         `json:"interests"`
	Activity         Activity          `json:"activity"`
	TokenEconomy     TokenEconomy      `json:"token_economy"`
	Vocabulary       int               `json:"vocabulary"`
	Hourly           HourlyActivity    `json:"hourly"`
	DailyTokens      []DailyTokens     `json:"daily_tokens"`
	Moods            MoodBreakdown     `json:"moods"`
	MoodArc          []MoodPoint       `json:"mood_arc,omitempty"`
	EmotionalDNA     [][]DNACell       `json:"emotional_dna,omitempty"`
	ModelTimeline    []ModelMonthCount `json:"model_timeline"`
	PromptArchetypes PromptArchetypes  `json:"prompt_archetypes"`
	Keyword          *KeywordHits      `json:"keyword,omitempty"`
	Threads          ThreadsReport     `json:"threads"`
}

// BuildReport filters full by q and computes every analytic over the result. The thread index is
// rolled up from full and restricted to the conversations present in the filtered rows.
//
// An empty full corpus returns ErrEmptyCorpus; a range that excludes every row returns
// ErrEmptyFilteredRange.
func BuildReport(full Corpus, q Query, opts ReportOptions) (Report, error) {
	if len(full) == 0 {
		return Report{}, fmt.Errorf("BuildReport: %w", ErrEmptyCorpus)
	}
	view, err := full.Filter(q)
	if err != nil {
		if errors.Is(err, ErrEmptyFilteredRange) {
			return Report{}, fmt.Errorf("BuildReport: %w", err)
		}
		return Report{}, fmt.Errorf("BuildReport: filter: %w", err)
	}
	if opts.Rates == (Rates{}) {
		opts.Rates = DefaultRates
	}
	if opts.IndexLimit == 0 {
		opts.IndexLimit = DefaultIndexLimit
	}

	var r Report
	r.Corpus.From, r.Corpus.To = full.DateRange()
	r.Range.From, r.Range.To = view.DateRange()

	threads := NewThreadIndex(full).Restrict(view)
	r.Counts = Counts{
		Messages:          len(view),
		UserMessages:      len(view.Users()),
		AssistantMessages: len(view.Assistants()),
		Threads:           threads.Len(),
	}

	r.Chaos = ChaosScore(view)
	r.Persona = ClassifyPersona(view)
	r.Interests = ClassifyInterests(view)
	r.Activity = ComputeActivity(view)
	r.TokenEconomy = ComputeTokenEconomy(view, opts.Rates)
	r.Vocabulary = Vocabulary(view)
	r.Hourly = ComputeHourlyActivity(view)
	r.DailyTokens = ComputeDailyTokens(view)
	r.Moods = ComputeMoodBreakdown(view)
	r.MoodArc = ComputeMoodArc(view)
	if !opts.OmitDNA {
		r.EmotionalDNA = ComputeEmotionalDNA(view)
	}
	r.ModelTimeline = ComputeModelTimeline(view)
	r.PromptArchetypes = ComputePromptArchetypes(view)
	if q.Keyword != "" {
		hits := CountKeyword(view, q.Keyword)
		r.Keyword = &hits
	}

	n := q.topN()
	r.Threads.Longest = threads.Longest(n)
	r.Threads.MostStressed = threads.MostStressed(n)
	r.Threads.Happiest = threads.Happiest(n)

	index := threads.SearchTitle(q.TitleFilter).Stats()
	r.Threads.IndexTotal = len(index)
	r.Threads.TitleFilter = q.TitleFilter
	if opts.IndexLimit > 0 && len(index) > opts.IndexLimit {
		index = index[:opts.IndexLimit]
	}
	r.Threads.Index = index

	return r, nil
}
