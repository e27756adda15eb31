package wrapped

import (
	"fmt"
	"strings"
)

const rankingTitleRunes = 25

// RenderMarkdown renders a report as a human-readable markdown document.
func RenderMarkdown(r Report) string {
	var b strings.Builder

	b.WriteString("# GPT Wrapped\n\n")
	fmt.Fprintf(&b, "- range: `%s` .. `%s` (corpus `%s` .. `%s`)\n", r.Range.From, r.Range.To, r.Corpus.From, r.Corpus.To)
	fmt.Fprintf(&b, "- messages: %d (you %d, AI %d) across %d threads\n\n",
		r.Counts.Messages, r.Counts.UserMessages, r.Counts.AssistantMessages, r.Counts.Threads)

	fmt.Fprintf(&b, "**Primary Class:** %s  \n", r.Interests.Primary)
	secondary := "none"
	if len(r.Interests.Secondary) > 0 {
		secondary = strings.Join(r.Interests.Secondary, ", ")
	}
	fmt.Fprintf(&b, "**Secondary Orbits:** %s  \n", secondary)
	fmt.Fprintf(&b, "**Persona Flavor:** %s %s\n\n", r.Persona.Emoji, r.Persona.Label)

	b.WriteString("## Metrics\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Chaos | %d/100 (%s) |\n", r.Chaos.Score, r.Chaos.Label)
	fmt.Fprintf(&b, "| Tokens | %d |\n", r.TokenEconomy.TotalTokens)
	fmt.Fprintf(&b, "| Vocabulary | %d |\n", r.Vocabulary)
	fmt.Fprintf(&b, "| Cost | $%.2f |\n", r.TokenEconomy.CostUSD)
	fmt.Fprintf(&b, "| Energy | %.2f kWh |\n", r.TokenEconomy.EnergyKWh)
	fmt.Fprintf(&b, "| Water | %.1fL |\n", r.TokenEconomy.WaterLiters)
	fmt.Fprintf(&b, "| Active Days | %d |\n", r.Activity.ActiveDays)
	fmt.Fprintf(&b, "| Max Streak | %d |\n\n", r.Activity.MaxStreak)

	if r.Keyword != nil {
		fmt.Fprintf(&b, "**'%s':** you %d, AI %d, total %d\n\n",
			escapeMarkdownInline(r.Keyword.Keyword), r.Keyword.User, r.Keyword.Assistant, r.Keyword.Total)
	}

	b.WriteString("## Interest Share\n\n")
	hasSignal := false
	for _, ic := range r.Interests.Counts {
		if ic.Count == 0 {
			continue
		}
		hasSignal = true
		fmt.Fprintf(&b, "- %s: %d\n", ic.Name, ic.Count)
	}
	if !hasSignal {
		b.WriteString("Not enough signal to detect interests yet.\n")
	}
	b.WriteString("\n")

	b.WriteString("## Temporal Rhythms\n\n")
	if r.Hourly.PeakHour >= 0 {
		fmt.Fprintf(&b, "Peak hour: %d:00\n\n", r.Hourly.PeakHour)
	}
	fmt.Fprintf(&b, "Moods: Joy %d, Neutral %d, Stress %d\n\n", r.Moods.Joy, r.Moods.Neutral, r.Moods.Stress)
	if pa := r.PromptArchetypes; pa.Dominant != "" {
		fmt.Fprintf(&b, "Dominant prompt style: %s (%s)\n\n", pa.Dominant, pa.Description)
	}

	b.WriteString("## Archive\n\n")
	writeRanking(&b, "Longest", r.Threads.Longest, func(ts ThreadStat) string { return fmt.Sprintf("%d tok", ts.TotalTokens) })
	writeRanking(&b, "Most Stressed", r.Threads.MostStressed, func(ts ThreadStat) string { return fmt.Sprintf("%.2f", ts.MeanSentiment) })
	writeRanking(&b, "Happiest", r.Threads.Happiest, func(ts ThreadStat) string { return fmt.Sprintf("%.2f", ts.MeanSentiment) })

	if r.Threads.TitleFilter != "" {
		fmt.Fprintf(&b, "Filtering for: '%s'\n\n", escapeMarkdownInline(r.Threads.TitleFilter))
	}
	b.WriteString("| Title | Tokens | Sentiment |\n|---|---|---|\n")
	for _, ts := range r.Threads.Index {
		fmt.Fprintf(&b, "| %s | %d | %.2f |\n", escapeMarkdownCell(ts.Title), ts.TotalTokens, ts.MeanSentiment)
	}
	fmt.Fprintf(&b, "\nShowing %d of %d threads\n", len(r.Threads.Index), r.Threads.IndexTotal)

	return b.String()
}

func writeRanking(b *strings.Builder, heading string, stats []ThreadStat, value func(ThreadStat) string) {
	fmt.Fprintf(b, "**%s**\n", heading)
	for _, ts := range stats {
		fmt.Fprintf(b, "- %s... (%s)\n", escapeMarkdownInline(firstRunes(ts.Title, rankingTitleRunes)), value(ts))
	}
	b.WriteString("\n")
}

// RenderThreadMarkdown renders one thread for reading: a header with its rollup followed by the
// messages in order.
func RenderThreadMarkdown(ts ThreadStat, msgs Corpus) string {
	anchor := "thread-" + sanitizeAnchor(ts.ConvID)
	title := strings.TrimSpace(ts.Title)
	if title == "" {
		title = ts.ConvID
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<a id=\"%s\"></a>\n", anchor)
	fmt.Fprintf(&b, "## %s\n\n", escapeMarkdownInline(title))
	fmt.Fprintf(&b, "- conversation_id: `%s`\n", ts.ConvID)
	fmt.Fprintf(&b, "- first_date: `%s`\n", ts.FirstDate)
	fmt.Fprintf(&b, "- messages: %d, tokens: %d, mean sentiment: %.2f\n\n", ts.MessageCount, ts.TotalTokens, ts.MeanSentiment)

	for _, m := range msgs {
		icon := "🤖"
		if m.Role == RoleUser {
			icon = "👤"
		}
		fmt.Fprintf(&b, "**%s** `%s`\n\n", icon, m.Datetime.Format(tooltipLayout))
		b.WriteString(strings.TrimSpace(m.Text))
		b.WriteString("\n\n")
	}
	b.WriteString("---\n")
	return b.String()
}

func sanitizeAnchor(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return "thread"
	}
	var out strings.Builder
	out.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			out.WriteRune(r)
		} else {
			out.WriteByte('-')
		}
	}
	return strings.Trim(out.String(), "-")
}

func escapeMarkdownInline(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.TrimSpace(s)
}

func escapeMarkdownCell(s string) string {
	return strings.ReplaceAll(escapeMarkdownInline(s), "|", `\|`)
}
