package wrapped

import (
	"context"
	"fmt"
	"slices"
)

// Corpus is the flat, enriched message table. Rows are sorted ascending by Datetime
// (stable for equal instants) and every row carries a valid timestamp.
type Corpus []EnrichedMessage

// BuildOptions configures BuildCorpus.
type BuildOptions struct {
	Enricher Enricher
}

// BuildCorpus reconstructs and enriches every conversation in archive order, drops rows without
// a valid timestamp and sorts the rest by time.
//
// A malformed archive returns ErrMalformedArchive and no rows. An archive without any timestamped
// message returns an empty (non-nil) Corpus together with ErrEmptyCorpus.
func BuildCorpus(archive Archive, opts BuildOptions) (Corpus, error) {
	loc := opts.Enricher.location()

	rows := make(Corpus, 0, len(archive))
	for i, conv := range archive {
		thread, err := ReconstructThread(conv)
		if err != nil {
			return nil, fmt.Errorf("BuildCorpus: conversation %d: %w", i, err)
		}
		for _, raw := range thread {
			msg, err := opts.Enricher.Enrich(conv, raw)
			if err != nil {
				return nil, fmt.Errorf("BuildCorpus: conversation %d: %w", i, err)
			}
			t, ok := unixToTime(msg.Timestamp, loc)
			if !ok {
				continue
			}
			msg.Datetime = t
			msg.Date = t.Format(DateLayout)
			msg.Hour = t.Hour()
			msg.Weekday = t.Weekday().String()
			msg.MonthLabel = t.Format(MonthLayout)
			rows = append(rows, msg)
		}
	}

	slices.SortStableFunc(rows, func(a, b EnrichedMessage) int {
		return a.Datetime.Compare(b.Datetime)
	})

	if len(rows) == 0 {
		return rows, fmt.Errorf("BuildCorpus: %w", ErrEmptyCorpus)
	}
	return rows, nil
}

// LoadCorpusFile decodes the archive at path and builds its corpus.
func LoadCorpusFile(ctx context.Context, path string, decode DecodeOptions, build BuildOptions) (Corpus, error) {
	archive, err := ReadArchiveFile(ctx, path, decode)
	if err != nil {
		return nil, err
	}
	return BuildCorpus(archive, build)
}

// Users returns the user-authored rows in corpus order.
func (c Corpus) Users() Corpus {
	return c.byRole(RoleUser)
}

// Assistants returns the assistant-authored rows in corpus order.
func (c Corpus) Assistants() Corpus {
	return c.byRole(RoleAssistant)
}

func (c Corpus) byRole(role string) Corpus {
	out := make(Corpus, 0, len(c))
	for _, m := range c {
		if m.Role == role {
			out = append(out, m)
		}
	}
	return out
}

// DateRange returns the first and last calendar dates of the corpus.
func (c Corpus) DateRange() (first, last string) {
	if len(c) == 0 {
		return "", ""
	}
	return c[0].Date, c[len(c)-1].Date
}

// ConvIDs returns the set of conversation ids present in the corpus.
func (c Corpus) ConvIDs() map[string]struct{} {
	ids := make(map[string]struct{})
	for _, m := range c {
		ids[m.ConvID] = struct{}{}
	}
	return ids
}
