package wrapped

import (
	"fmt"
	"strconv"
	"strings"
)

// Query carries the caller's view of the corpus: an inclusive date range, a keyword to count and
// a title filter for the thread index. The zero value selects everything.
type Query struct {
	// From and To are inclusive YYYY-MM-DD bounds. Empty means unbounded.
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`

	Keyword     string `json:"keyword,omitempty"`
	TitleFilter string `json:"title_filter,omitempty"`

	// TopN is the size of each thread ranking; zero uses DefaultTopN.
	TopN int `json:"top_n,omitempty"`
}

// Validate checks the date bounds.
func (q Query) Validate() error {
	for _, d := range []struct{ name, v string }{{"from", q.From}, {"to", q.To}} {
		if d.v == "" {
			continue
		}
		if _, err := parseDate(d.v); err != nil {
			return fmt.Errorf("Query: invalid %s date %q (want YYYY-MM-DD): %w", d.name, d.v, err)
		}
	}
	if q.TopN < 0 {
		return fmt.Errorf("Query: top must be >= 0, got %d", q.TopN)
	}
	return nil
}

// Key identifies the query for memoization.
func (q Query) Key() string {
	return strings.Join([]string{q.From, q.To, q.Keyword, q.TitleFilter, strconv.Itoa(q.TopN)}, "\x1f")
}

func (q Query) topN() int {
	if q.TopN <= 0 {
		return DefaultTopN
	}
	return q.TopN
}

// Filter returns the rows whose date lies within the query range. A range that excludes every
// row of a non-empty corpus returns ErrEmptyFilteredRange.
func (c Corpus) Filter(q Query) (Corpus, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if q.From == "" && q.To == "" {
		return c, nil
	}
	out := make(Corpus, 0, len(c))
	for _, m := range c {
		// YYYY-MM-DD labels order lexically.
		if q.From != "" && m.Date < q.From {
			continue
		}
		if q.To != "" && m.Date > q.To {
			continue
		}
		out = append(out, m)
	}
	if len(out) == 0 && len(c) > 0 {
		return out, fmt.Errorf("Filter: %s..%s: %w", q.From, q.To, ErrEmptyFilteredRange)
	}
	return out, nil
}
