package wrapped

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MaxPartDepth bounds how deeply "parts" lists may nest inside message content.
const MaxPartDepth = 64

// ExtractParts flattens message content parts into plain text plus a count of opaque media items.
//
// Strings are appended verbatim, objects with a "text" field append that field, objects with a
// "parts" field recurse. Any other object is one media item. Fragments are joined without a
// separator.
func ExtractParts(parts []any) (string, int, error) {
	var b strings.Builder
	media, err := extractParts(parts, &b, 0)
	if err != nil {
		return "", 0, err
	}
	return b.String(), media, nil
}

func extractParts(parts []any, b *strings.Builder, depth int) (int, error) {
	if depth > MaxPartDepth {
		return 0, fmt.Errorf("ExtractParts: %w: content parts nested deeper than %d", ErrMalformedArchive, MaxPartDepth)
	}

	media := 0
	for _, p := range parts {
		switch v := p.(type) {
		case string:
			b.WriteString(v)
		case map[string]any:
			if text, ok := v["text"]; ok {
				if s, ok := text.(string); ok {
					b.WriteString(s)
				}
				continue
			}
			nested, ok := v["parts"]
			if !ok {
				media++
				continue
			}
			switch nv := nested.(type) {
			case nil:
			case []any:
				n, err := extractParts(nv, b, depth+1)
				if err != nil {
					return 0, err
				}
				media += n
			case string:
				b.WriteString(nv)
			default:
				media++
			}
		}
	}
	return media, nil
}

// messageContent is the subset of the export's content object the pipeline reads.
type messageContent struct {
	ContentType string `json:"content_type"`
	Parts       []any  `json:"parts"`
}

// decodeContent returns the content parts of a message and whether the content object is
// non-empty. Absent, null and {} content all report false.
func decodeContent(raw json.RawMessage) (messageContent, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return messageContent{}, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || len(fields) == 0 {
		return messageContent{}, false
	}
	var mc messageContent
	if ct, ok := fields["content_type"]; ok {
		_ = json.Unmarshal(ct, &mc.ContentType)
	}
	var parts any
	if p, ok := fields["parts"]; ok && json.Unmarshal(p, &parts) == nil {
		switch v := parts.(type) {
		case []any:
			mc.Parts = v
		case string:
			// a bare string is read the same way as a nested "parts" string
			mc.Parts = []any{v}
		}
	}
	return mc, true
}
