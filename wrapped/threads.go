package wrapped

import (
	"cmp"
	"math/rand"
	"slices"
	"strings"
)

// DefaultTopN is the size of each thread ranking.
const DefaultTopN = 5

// ThreadStat is the rollup of one conversation's corpus rows.
type ThreadStat struct {
	ConvID        string  `json:"conv_id"`
	Title         string  `json:"title"`
	TotalTokens   int     `json:"total_tokens"`
	MeanSentiment float64 `json:"mean_sentiment"`
	MessageCount  int     `json:"message_count"`
	FirstDate     string  `json:"first_date"`
}

// RollupThreads groups rows by conversation id. Title and first date come from the first row of
// each group in corpus order. The result is sorted by conversation id.
func RollupThreads(c Corpus) []ThreadStat {
	byID := make(map[string]*ThreadStat)
	sums := make(map[string]float64)
	for _, m := range c {
		ts, ok := byID[m.ConvID]
		if !ok {
			ts = &ThreadStat{ConvID: m.ConvID, Title: m.Title, FirstDate: m.Date}
			byID[m.ConvID] = ts
		}
		ts.TotalTokens += m.TokenCount
		ts.MessageCount++
		sums[m.ConvID] += m.Sentiment
	}

	out := make([]ThreadStat, 0, len(byID))
	for id, ts := range byID {
		ts.MeanSentiment = sums[id] / float64(ts.MessageCount)
		out = append(out, *ts)
	}
	slices.SortFunc(out, func(a, b ThreadStat) int { return strings.Compare(a.ConvID, b.ConvID) })
	return out
}

// ThreadIndex is a browsable view of per-thread rollups backed by the full corpus.
type ThreadIndex struct {
	stats []ThreadStat
	full  Corpus
}

// NewThreadIndex rolls up the full corpus.
func NewThreadIndex(full Corpus) *ThreadIndex {
	return &ThreadIndex{stats: RollupThreads(full), full: full}
}

// Stats returns the indexed threads sorted by conversation id.
func (ix *ThreadIndex) Stats() []ThreadStat {
	return slices.Clone(ix.stats)
}

func (ix *ThreadIndex) Len() int { return len(ix.stats) }

// Restrict keeps only threads whose conversation id appears in c, typically a date-filtered
// slice of the corpus the index was built from. Rollup values still cover the full corpus.
func (ix *ThreadIndex) Restrict(c Corpus) *ThreadIndex {
	ids := c.ConvIDs()
	out := &ThreadIndex{full: ix.full}
	for _, ts := range ix.stats {
		if _, ok := ids[ts.ConvID]; ok {
			out.stats = append(out.stats, ts)
		}
	}
	return out
}

// SearchTitle keeps threads whose title contains q, case-insensitively. An empty q keeps all.
func (ix *ThreadIndex) SearchTitle(q string) *ThreadIndex {
	if q == "" {
		return ix
	}
	needle := strings.ToLower(q)
	out := &ThreadIndex{full: ix.full}
	for _, ts := range ix.stats {
		if strings.Contains(strings.ToLower(ts.Title), needle) {
			out.stats = append(out.stats, ts)
		}
	}
	return out
}

// Longest ranks threads by total tokens, descending.
func (ix *ThreadIndex) Longest(n int) []ThreadStat {
	return ix.top(n, func(a, b ThreadStat) int { return cmp.Compare(b.TotalTokens, a.TotalTokens) })
}

// MostStressed ranks threads by mean sentiment, ascending.
func (ix *ThreadIndex) MostStressed(n int) []ThreadStat {
	return ix.top(n, func(a, b ThreadStat) int { return cmp.Compare(a.MeanSentiment, b.MeanSentiment) })
}

// Happiest ranks threads by mean sentiment, descending.
func (ix *ThreadIndex) Happiest(n int) []ThreadStat {
	return ix.top(n, func(a, b ThreadStat) int { return cmp.Compare(b.MeanSentiment, a.MeanSentiment) })
}

func (ix *ThreadIndex) top(n int, less func(a, b ThreadStat) int) []ThreadStat {
	if n <= 0 {
		n = DefaultTopN
	}
	ranked := slices.Clone(ix.stats)
	slices.SortStableFunc(ranked, less)
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// Random picks one thread with r. It reports false when the index is empty.
func (ix *ThreadIndex) Random(r *rand.Rand) (ThreadStat, bool) {
	if len(ix.stats) == 0 {
		return ThreadStat{}, false
	}
	return ix.stats[r.Intn(len(ix.stats))], true
}

// Lookup returns the rollup for convID.
func (ix *ThreadIndex) Lookup(convID string) (ThreadStat, bool) {
	i, ok := slices.BinarySearchFunc(ix.stats, convID, func(ts ThreadStat, id string) int {
		return strings.Compare(ts.ConvID, id)
	})
	if !ok {
		return ThreadStat{}, false
	}
	return ix.stats[i], true
}

// Thread returns every corpus row of convID in time order, read from the full corpus even when
// the index has been restricted.
func (ix *ThreadIndex) Thread(convID string) Corpus {
	var out Corpus
	for _, m := range ix.full {
		if m.ConvID == convID {
			out = append(out, m)
		}
	}
	return out
}
