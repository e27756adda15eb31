package wrapped

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/theimaginaryfoundation/gpt-wrapped/wrapped/tokenizer"
)

// wordCounter keeps token counts independent of the BPE vocabulary.
var wordCounter = tokenizer.CounterFunc(func(s string) int { return len(strings.Fields(s)) })

var testBuild = BuildOptions{Enricher: Enricher{Tokens: wordCounter}}

type msgFixture struct {
	role string
	text string
	at   string // "2006-01-02 15:04" UTC; empty means null create_time
}

type convFixture struct {
	id    string
	title string
	msgs  []msgFixture
}

func unixAt(t *testing.T, at string) float64 {
	t.Helper()
	tm, err := time.Parse("2006-01-02 15:04", at)
	if err != nil {
		t.Fatalf("parse %q: %v", at, err)
	}
	return float64(tm.Unix())
}

// archiveJSON renders conversations as a linear export: a message-less root followed by one node
// per message, with current_node pointing at the last one.
func archiveJSON(t *testing.T, convs ...convFixture) []byte {
	t.Helper()

	var out []map[string]any
	for _, c := range convs {
		mapping := map[string]any{
			"root": map[string]any{"id": "root", "message": nil, "parent": nil},
		}
		parent := "root"
		for i, m := range c.msgs {
			id := fmt.Sprintf("%s-m%d", c.id, i)
			var created any
			if m.at != "" {
				created = unixAt(t, m.at)
			}
			mapping[id] = map[string]any{
				"id": id,
				"message": map[string]any{
					"id":          id,
					"author":      map[string]any{"role": m.role},
					"create_time": created,
					"content":     map[string]any{"content_type": "text", "parts": []any{m.text}},
					"metadata":    map[string]any{"model_slug": "gpt-4o"},
				},
				"parent": parent,
			}
			parent = id
		}
		out = append(out, map[string]any{
			"id":           c.id,
			"title":        c.title,
			"current_node": parent,
			"mapping":      mapping,
		})
	}
	b, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("marshal archive: %v", err)
	}
	return b
}

func buildTestCorpus(t *testing.T, convs ...convFixture) Corpus {
	t.Helper()

	archive, err := DecodeArchiveBytes(context.Background(), archiveJSON(t, convs...), DecodeOptions{})
	if err != nil {
		t.Fatalf("DecodeArchiveBytes: %v", err)
	}
	c, err := BuildCorpus(archive, testBuild)
	if err != nil {
		t.Fatalf("BuildCorpus: %v", err)
	}
	return c
}

func decodeConversation(t *testing.T, raw string) Conversation {
	t.Helper()

	var conv Conversation
	if err := json.Unmarshal([]byte(raw), &conv); err != nil {
		t.Fatalf("unmarshal conversation: %v", err)
	}
	return conv
}
