package main

import (
	"fmt"
	"strings"

	"github.com/theimaginaryfoundation/gpt-wrapped/wrapped"
	"github.com/theimaginaryfoundation/gpt-wrapped/wrapped/fileutils"
)

func render(r wrapped.Report, format string, pretty bool) ([]byte, error) {
	switch format {
	case "json":
		b, err := fileutils.MarshalJSON(r, pretty)
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	case "markdown":
		return []byte(wrapped.RenderMarkdown(r)), nil
	case "text":
		return []byte(renderText(r)), nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// renderText is a terse terminal summary, one fact per line.
func renderText(r wrapped.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "GPT Wrapped  %s .. %s\n", r.Range.From, r.Range.To)
	fmt.Fprintf(&b, "  messages     %d (you %d, AI %d) in %d threads\n",
		r.Counts.Messages, r.Counts.UserMessages, r.Counts.AssistantMessages, r.Counts.Threads)
	fmt.Fprintf(&b, "  persona      %s %s\n", r.Persona.Emoji, r.Persona.Label)
	fmt.Fprintf(&b, "  primary      %s\n", r.Interests.Primary)
	if len(r.Interests.Secondary) > 0 {
		fmt.Fprintf(&b, "  secondary    %s\n", strings.Join(r.Interests.Secondary, ", "))
	}
	fmt.Fprintf(&b, "  chaos        %d/100 %s\n", r.Chaos.Score, r.Chaos.Label)
	fmt.Fprintf(&b, "  active days  %d (best streak %d)\n", r.Activity.ActiveDays, r.Activity.MaxStreak)
	if r.Hourly.PeakHour >= 0 {
		fmt.Fprintf(&b, "  peak hour    %02d:00\n", r.Hourly.PeakHour)
	}
	fmt.Fprintf(&b, "  tokens       %d ($%.2f, %.2f kWh, %.1fL water)\n",
		r.TokenEconomy.TotalTokens, r.TokenEconomy.CostUSD, r.TokenEconomy.EnergyKWh, r.TokenEconomy.WaterLiters)
	fmt.Fprintf(&b, "  vocabulary   %d\n", r.Vocabulary)
	fmt.Fprintf(&b, "  moods        joy %d, neutral %d, stress %d\n", r.Moods.Joy, r.Moods.Neutral, r.Moods.Stress)
	if r.PromptArchetypes.Dominant != "" {
		fmt.Fprintf(&b, "  prompts      %s (%s)\n", r.PromptArchetypes.Dominant, r.PromptArchetypes.Description)
	}
	if r.Keyword != nil {
		fmt.Fprintf(&b, "  %q  you %d, AI %d\n", r.Keyword.Keyword, r.Keyword.User, r.Keyword.Assistant)
	}

	writeTop := func(label string, stats []wrapped.ThreadStat, value func(wrapped.ThreadStat) string) {
		if len(stats) == 0 {
			return
		}
		fmt.Fprintf(&b, "%s\n", label)
		for i, ts := range stats {
			fmt.Fprintf(&b, "  %d. %s  %s\n", i+1, fileutils.Truncate(ts.Title, 40), value(ts))
		}
	}
	writeTop("longest threads", r.Threads.Longest, func(ts wrapped.ThreadStat) string {
		return fmt.Sprintf("%d tok", ts.TotalTokens)
	})
	writeTop("most stressed", r.Threads.MostStressed, func(ts wrapped.ThreadStat) string {
		return fmt.Sprintf("%.2f", ts.MeanSentiment)
	})
	writeTop("happiest", r.Threads.Happiest, func(ts wrapped.ThreadStat) string {
		return fmt.Sprintf("%.2f", ts.MeanSentiment)
	})
	return b.String()
}
