package wrapped

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestExtractParts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		parts     string
		wantText  string
		wantMedia int
	}{
		{"nil", `null`, "", 0},
		{"empty", `[]`, "", 0},
		{"siblings joined without separator", `["foo","bar"]`, "foobar", 0},
		{"text object", `["a",{"text":"b"},"c"]`, "abc", 0},
		{"media object", `[{"content_type":"image_asset_pointer","asset_pointer":"file-1"},"caption"]`, "caption", 1},
		{"nested parts", `[{"parts":["x",{"parts":["y",{"asset":1}]},{"asset":2}]},"z"]`, "xyz", 2},
		{"null nested parts", `[{"parts":null},"q"]`, "q", 0},
		{"scalar nested parts", `[{"parts":7}]`, "", 1},
		{"numbers ignored", `[1,true,"ok"]`, "ok", 0},
	}

	for _, tc := range cases {
		var parts []any
		if err := json.Unmarshal([]byte(tc.parts), &parts); err != nil {
			t.Fatalf("%s: unmarshal: %v", tc.name, err)
		}
		text, media, err := ExtractParts(parts)
		if err != nil {
			t.Fatalf("%s: ExtractParts: %v", tc.name, err)
		}
		if text != tc.wantText {
			t.Fatalf("%s: text=%q, want %q", tc.name, text, tc.wantText)
		}
		if media != tc.wantMedia {
			t.Fatalf("%s: media=%d, want %d", tc.name, media, tc.wantMedia)
		}
	}
}

func TestExtractParts_DepthBound(t *testing.T) {
	t.Parallel()

	// Within the bound.
	var parts []any = []any{"leaf"}
	for i := 0; i < MaxPartDepth; i++ {
		parts = []any{map[string]any{"parts": parts}}
	}
	text, _, err := ExtractParts(parts)
	if err != nil {
		t.Fatalf("ExtractParts at depth %d: %v", MaxPartDepth, err)
	}
	if text != "leaf" {
		t.Fatalf("text=%q, want leaf", text)
	}

	// One level deeper fails.
	parts = []any{map[string]any{"parts": parts}}
	if _, _, err := ExtractParts(parts); !errors.Is(err, ErrMalformedArchive) {
		t.Fatalf("err=%v, want ErrMalformedArchive", err)
	}
}

func TestDecodeContent(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{``, `null`, `{}`, `"str"`} {
		if _, ok := decodeContent(json.RawMessage(raw)); ok {
			t.Fatalf("decodeContent(%q) ok=true, want false", raw)
		}
	}

	mc, ok := decodeContent(json.RawMessage(`{"content_type":"text","parts":["a"]}`))
	if !ok || mc.ContentType != "text" || len(mc.Parts) != 1 {
		t.Fatalf("decodeContent=%+v ok=%v", mc, ok)
	}

	// Non-empty content without parts still counts as content.
	mc, ok = decodeContent(json.RawMessage(`{"content_type":"code","text":"x"}`))
	if !ok || len(mc.Parts) != 0 {
		t.Fatalf("decodeContent(no parts)=%+v ok=%v", mc, ok)
	}

	// A bare string parts value is kept as text.
	mc, ok = decodeContent(json.RawMessage(`{"content_type":"text","parts":"oops"}`))
	if !ok || mc.ContentType != "text" || len(mc.Parts) != 1 || mc.Parts[0] != "oops" {
		t.Fatalf("decodeContent(string parts)=%+v ok=%v", mc, ok)
	}
	text, media, err := ExtractParts(mc.Parts)
	if err != nil || text != "oops" || media != 0 {
		t.Fatalf("ExtractParts(string parts)=%q,%d,%v", text, media, err)
	}

	// Other malformed parts keep the content type.
	mc, ok = decodeContent(json.RawMessage(`{"content_type":"text","parts":42}`))
	if !ok || mc.ContentType != "text" || mc.Parts != nil {
		t.Fatalf("decodeContent(bad parts)=%+v ok=%v", mc, ok)
	}
}
