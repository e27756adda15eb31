package wrapped

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// Archive is an exported chat history: conversations in export order.
type Archive []Conversation

// Conversation is one exported conversation tree.
type Conversation struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Title          string          `json:"title"`
	CreateTime     *float64        `json:"create_time,omitempty"`
	UpdateTime     *float64        `json:"update_time,omitempty"`
	CurrentNode    string          `json:"current_node"`
	Mapping        map[string]Node `json:"mapping"`
}

// Node is one entry of a conversation mapping. The tree is expressed only through Parent.
type Node struct {
	ID       string      `json:"id"`
	Message  *RawMessage `json:"message"`
	Parent   *string     `json:"parent"`
	Children []string    `json:"children,omitempty"`
}

// RawMessage is a message as it appears in the export.
type RawMessage struct {
	ID         string          `json:"id"`
	Author     Author          `json:"author"`
	CreateTime *float64        `json:"create_time"`
	Content    json.RawMessage `json:"content"`
	Metadata   map[string]any  `json:"metadata,omitempty"`
}

// Author identifies who wrote a message.
type Author struct {
	Role string  `json:"role"`
	Name *string `json:"name,omitempty"`
}

// Key returns the conversation id, falling back to conversation_id.
func (c Conversation) Key() string {
	if c.ID != "" {
		return c.ID
	}
	return c.ConversationID
}

// DisplayTitle returns the title or "Untitled".
func (c Conversation) DisplayTitle() string {
	if c.Title == "" {
		return "Untitled"
	}
	return c.Title
}

// DecodeOptions controls how DecodeArchive locates the conversations array.
type DecodeOptions struct {
	// ArrayField is the JSON field name that contains the conversation array,
	// when the top-level JSON value is an object (e.g. "data" in a relay response).
	//
	// If empty, DecodeArchive uses the first array-valued field.
	ArrayField string
}

// ReadArchiveFile opens path and decodes it with DecodeArchive.
func ReadArchiveFile(ctx context.Context, path string, opts DecodeOptions) (Archive, error) {
	if path == "" {
		return nil, errors.New("ReadArchiveFile: path is empty")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ReadArchiveFile: open input: %w", err)
	}
	defer f.Close()

	// The export is typically one huge line; use a larger buffer than default.
	return DecodeArchive(ctx, bufio.NewReaderSize(f, 1<<20), opts)
}

// DecodeArchiveBytes decodes an in-memory archive.
func DecodeArchiveBytes(ctx context.Context, data []byte, opts DecodeOptions) (Archive, error) {
	return DecodeArchive(ctx, bytes.NewReader(data), opts)
}

// DecodeArchive reads a conversations export from r.
//
// The input is expected to be either:
// - a top-level JSON array: [ { ...conversation... }, ... ]
// - a top-level JSON object containing an array field (e.g. { "data": [ ... ] })
//
// Conversations are decoded one element at a time from a streaming decoder.
// Any structural problem is reported as ErrMalformedArchive.
func DecodeArchive(ctx context.Context, r io.Reader, opts DecodeOptions) (Archive, error) {
	if ctx == nil {
		return nil, errors.New("DecodeArchive: ctx is nil")
	}
	if r == nil {
		return nil, errors.New("DecodeArchive: reader is nil")
	}

	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("DecodeArchive: read first token: %w: %w", ErrMalformedArchive, err)
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return nil, fmt.Errorf("DecodeArchive: %w: expected JSON array/object, got %T", ErrMalformedArchive, tok)
	}

	var archive Archive

	switch delim {
	case '[':
		if err := decodeArrayFromOpen(ctx, dec, &archive); err != nil {
			return nil, err
		}
		if err := expectDelim(dec, ']'); err != nil {
			return nil, err
		}
		if err := expectEOF(dec); err != nil {
			return nil, err
		}
		return archive, nil
	case '{':
		foundArray := false
		for dec.More() {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}

			keyTok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("DecodeArchive: read object key: %w: %w", ErrMalformedArchive, err)
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("DecodeArchive: %w: expected string key, got %T", ErrMalformedArchive, keyTok)
			}

			valTok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("DecodeArchive: read value token for key %q: %w: %w", key, ErrMalformedArchive, err)
			}

			isTarget := opts.ArrayField != "" && key == opts.ArrayField
			if !isTarget && opts.ArrayField == "" && !foundArray {
				if d, ok := valTok.(json.Delim); ok && d == '[' {
					isTarget = true
				}
			}

			if isTarget {
				d, ok := valTok.(json.Delim)
				if !ok || d != '[' {
					return nil, fmt.Errorf("DecodeArchive: %w: key %q was chosen as array but value isn't an array", ErrMalformedArchive, key)
				}
				foundArray = true
				if err := decodeArrayFromOpen(ctx, dec, &archive); err != nil {
					return nil, err
				}
				if err := expectDelim(dec, ']'); err != nil {
					return nil, err
				}
				continue
			}

			if err := skipValue(dec, valTok); err != nil {
				return nil, fmt.Errorf("DecodeArchive: skip key %q value: %w: %w", key, ErrMalformedArchive, err)
			}
		}

		if err := expectDelim(dec, '}'); err != nil {
			return nil, err
		}
		if err := expectEOF(dec); err != nil {
			return nil, err
		}
		if !foundArray {
			return nil, fmt.Errorf("DecodeArchive: %w: no conversations array found in top-level object", ErrMalformedArchive)
		}
		return archive, nil
	default:
		return nil, fmt.Errorf("DecodeArchive: %w: unsupported top-level delimiter %q", ErrMalformedArchive, delim)
	}
}

func decodeArrayFromOpen(ctx context.Context, dec *json.Decoder, archive *Archive) error {
	for dec.More() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var conv Conversation
		if err := dec.Decode(&conv); err != nil {
			return fmt.Errorf("DecodeArchive: decode conversation element %d: %w: %w", len(*archive), ErrMalformedArchive, err)
		}
		*archive = append(*archive, conv)
	}
	return nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("DecodeArchive: read closing %q: %w: %w", want, ErrMalformedArchive, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("DecodeArchive: %w: expected closing %q, got %v", ErrMalformedArchive, want, tok)
	}
	return nil
}

// expectEOF rejects anything after the top-level value.
func expectEOF(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("DecodeArchive: %w: trailing data after top-level value: %w", ErrMalformedArchive, err)
	}
	return fmt.Errorf("DecodeArchive: %w: trailing data after top-level value: %v", ErrMalformedArchive, tok)
}

func skipValue(dec *json.Decoder, first json.Token) error {
	d, ok := first.(json.Delim)
	if !ok {
		// Primitive (string/number/bool/null): already fully consumed.
		return nil
	}

	switch d {
	case '{', '[':
		// Consume tokens until the matching closing delimiter.
	default:
		// '}' or ']' shouldn't appear as a value token.
		return fmt.Errorf("skipValue: unexpected delimiter %q", d)
	}

	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return err
		}
		if dd, ok := tok.(json.Delim); ok {
			switch dd {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}
