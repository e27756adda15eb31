package wrapped

import (
	"slices"
	"strings"
	"unicode"
)

// Rates converts token totals into rough resource estimates, per one million tokens.
type Rates struct {
	CostUSD float64 `json:"cost_usd_per_1m"`
	KWh     float64 `json:"kwh_per_1m"`
	Liters  float64 `json:"liters_per_1m"`
}

// DefaultRates are industry-average inference estimates.
var DefaultRates = Rates{CostUSD: 2.50, KWh: 0.3, Liters: 3.5}

type TokenEconomy struct {
	TotalTokens int     `json:"total_tokens"`
	CostUSD     float64 `json:"cost_usd"`
	EnergyKWh   float64 `json:"energy_kwh"`
	WaterLiters float64 `json:"water_liters"`
}

// ComputeTokenEconomy sums tokens over every row and applies r.
func ComputeTokenEconomy(c Corpus, r Rates) TokenEconomy {
	total := 0
	for _, m := range c {
		total += m.TokenCount
	}
	millions := float64(total) / 1_000_000
	return TokenEconomy{
		TotalTokens: total,
		CostUSD:     millions * r.CostUSD,
		EnergyKWh:   millions * r.KWh,
		WaterLiters: millions * r.Liters,
	}
}

// Vocabulary counts distinct alphabetic words in lower-cased user text. Text is split on
// whitespace and surrounding punctuation is trimmed; a token holding any other non-letter
// ("hello123", "world-class") is discarded whole.
func Vocabulary(c Corpus) int {
	seen := make(map[string]struct{})
	for _, m := range c.Users() {
		for _, w := range strings.Fields(strings.ToLower(m.Text)) {
			w = strings.TrimFunc(w, unicode.IsPunct)
			if w == "" || strings.IndexFunc(w, func(r rune) bool { return !unicode.IsLetter(r) }) >= 0 {
				continue
			}
			seen[w] = struct{}{}
		}
	}
	return len(seen)
}

// HourlyActivity is the "brain clock": message counts per hour of day.
type HourlyActivity struct {
	Counts   [24]int `json:"counts"`
	PeakHour int     `json:"peak_hour"`
}

// ComputeHourlyActivity counts every row by hour. The peak is the earliest hour with the
// highest count; an empty corpus peaks at -1.
func ComputeHourlyActivity(c Corpus) HourlyActivity {
	var h HourlyActivity
	for _, m := range c {
		if m.Hour >= 0 && m.Hour < 24 {
			h.Counts[m.Hour]++
		}
	}
	h.PeakHour = -1
	best := 0
	for hour, n := range h.Counts {
		if n > best {
			best = n
			h.PeakHour = hour
		}
	}
	return h
}

type DailyTokens struct {
	Date   string `json:"date"`
	Tokens int    `json:"tokens"`
}

// ComputeDailyTokens sums tokens per date in ascending date order.
func ComputeDailyTokens(c Corpus) []DailyTokens {
	var out []DailyTokens
	for _, m := range c {
		if n := len(out); n > 0 && out[n-1].Date == m.Date {
			out[n-1].Tokens += m.TokenCount
			continue
		}
		out = append(out, DailyTokens{Date: m.Date, Tokens: m.TokenCount})
	}
	return out
}

type MoodBreakdown struct {
	Joy     int `json:"joy"`
	Neutral int `json:"neutral"`
	Stress  int `json:"stress"`
}

// ComputeMoodBreakdown counts user rows per mood label.
func ComputeMoodBreakdown(c Corpus) MoodBreakdown {
	var b MoodBreakdown
	for _, m := range c.Users() {
		switch m.MoodLabel {
		case MoodJoy:
			b.Joy++
		case MoodStress:
			b.Stress++
		default:
			b.Neutral++
		}
	}
	return b
}

// minMoodArcRows is the number of user rows a mood arc needs before it is meaningful.
const minMoodArcRows = 10

type MoodPoint struct {
	Date      string  `json:"date"`
	Hour      int     `json:"hour"`
	Sentiment float64 `json:"sentiment"`
}

// ComputeMoodArc returns the rolling mean of user sentiment over a trailing window of
// min(20, n/2) rows. Windows shorter than that at the start average what is available.
// It returns nil for ten or fewer user rows.
func ComputeMoodArc(c Corpus) []MoodPoint {
	users := c.Users()
	n := len(users)
	if n <= minMoodArcRows {
		return nil
	}
	window := min(20, n/2)

	out := make([]MoodPoint, n)
	sum := 0.0
	for i, m := range users {
		sum += m.Sentiment
		if i >= window {
			sum -= users[i-window].Sentiment
		}
		size := min(i+1, window)
		out[i] = MoodPoint{Date: m.Date, Hour: m.Hour, Sentiment: sum / float64(size)}
	}
	return out
}

// EmotionalDNAWidth is the number of cells per EmotionalDNA row.
const EmotionalDNAWidth = 100

// Mood codes used by EmotionalDNA cells.
const (
	MoodCodeStress  = 0
	MoodCodeNeutral = 1
	MoodCodeJoy     = 2
)

type DNACell struct {
	Code    int    `json:"code"`
	Tooltip string `json:"tooltip,omitempty"`
}

// ComputeEmotionalDNA lays out one cell per user row, left to right, in rows of
// EmotionalDNAWidth. The last row is padded with empty Neutral cells. No user rows yields nil.
func ComputeEmotionalDNA(c Corpus) [][]DNACell {
	users := c.Users()
	if len(users) == 0 {
		return nil
	}
	rows := len(users)/EmotionalDNAWidth + 1
	grid := make([][]DNACell, rows)
	for r := range grid {
		grid[r] = make([]DNACell, EmotionalDNAWidth)
		for col := range grid[r] {
			grid[r][col].Code = MoodCodeNeutral
		}
	}
	for i, m := range users {
		cell := &grid[i/EmotionalDNAWidth][i%EmotionalDNAWidth]
		cell.Code = moodCode(m.MoodLabel)
		cell.Tooltip = m.Tooltip
	}
	return grid
}

func moodCode(label string) int {
	switch label {
	case MoodJoy:
		return MoodCodeJoy
	case MoodStress:
		return MoodCodeStress
	default:
		return MoodCodeNeutral
	}
}

type ModelMonthCount struct {
	Month string `json:"month"`
	Model string `json:"model"`
	Count int    `json:"count"`
}

// ComputeModelTimeline counts rows per (month, model), sorted by month then model.
func ComputeModelTimeline(c Corpus) []ModelMonthCount {
	type key struct{ month, model string }
	counts := make(map[key]int)
	for _, m := range c {
		counts[key{m.MonthLabel, m.Model}]++
	}
	out := make([]ModelMonthCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, ModelMonthCount{Month: k.month, Model: k.model, Count: n})
	}
	slices.SortFunc(out, func(a, b ModelMonthCount) int {
		if d := strings.Compare(a.Month, b.Month); d != 0 {
			return d
		}
		return strings.Compare(a.Model, b.Model)
	})
	return out
}

// promptPrefixRunes is how much of each user message is inspected for an opening word.
const promptPrefixRunes = 15

var promptStyles = []struct {
	name   string
	needle string
}{
	{"What...", "what"},
	{"How...", "how"},
	{"Can...", "can"},
	{"Why...", "why"},
	{"Is...", "is"},
	{"Does...", "does"},
	{"Tell me...", "tell me"},
}

type PromptStyle struct {
	Style string `json:"style"`
	Count int    `json:"count"`
}

// PromptArchetypes describes how user messages tend to open.
type PromptArchetypes struct {
	// Styles with a positive count, ascending by count.
	Styles      []PromptStyle `json:"styles"`
	Dominant    string        `json:"dominant,omitempty"`
	Description string        `json:"description,omitempty"`
}

// ComputePromptArchetypes counts user messages whose lower-cased first 15 runes contain each
// opening word. Among equal counts the later-declared style ranks higher.
func ComputePromptArchetypes(c Corpus) PromptArchetypes {
	users := c.Users()
	var styles []PromptStyle
	for _, s := range promptStyles {
		n := 0
		for _, m := range users {
			if strings.Contains(firstRunes(strings.ToLower(m.Text), promptPrefixRunes), s.needle) {
				n++
			}
		}
		if n > 0 {
			styles = append(styles, PromptStyle{Style: s.name, Count: n})
		}
	}
	slices.SortStableFunc(styles, func(a, b PromptStyle) int { return a.Count - b.Count })

	out := PromptArchetypes{Styles: styles}
	if len(styles) == 0 {
		return out
	}
	out.Dominant = styles[len(styles)-1].Style
	switch {
	case strings.Contains(out.Dominant, "What"):
		out.Description = "exploratory"
	case strings.Contains(out.Dominant, "How"):
		out.Description = "action-oriented"
	default:
		out.Description = "analytical"
	}
	return out
}

type KeywordHits struct {
	Keyword   string `json:"keyword"`
	User      int    `json:"user"`
	Assistant int    `json:"assistant"`
	Total     int    `json:"total"`
}

// CountKeyword counts rows whose text contains keyword, case-insensitively.
func CountKeyword(c Corpus, keyword string) KeywordHits {
	hits := KeywordHits{Keyword: keyword}
	if keyword == "" {
		return hits
	}
	needle := strings.ToLower(keyword)
	for _, m := range c {
		if !strings.Contains(strings.ToLower(m.Text), needle) {
			continue
		}
		switch m.Role {
		case RoleUser:
			hits.User++
		case RoleAssistant:
			hits.Assistant++
		}
	}
	hits.Total = hits.User + hits.Assistant
	return hits
}
