// Package tokenizer counts cl100k_base sub-word tokens.
//
// The BPE vocabulary is embedded through the offline loader and loaded once per process.
// When it cannot be loaded, counts fall back to Approx, which is deterministic.
package tokenizer

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// Encoding is the vocabulary used for token counts.
const Encoding = "cl100k_base"

// Counter returns the number of tokens in text.
type Counter interface {
	Count(text string) int
}

// CounterFunc adapts a function to Counter.
type CounterFunc func(text string) int

func (f CounterFunc) Count(text string) int { return f(text) }

// BPE counts tokens with a loaded tiktoken encoding.
type BPE struct {
	enc *tiktoken.Tiktoken
}

func (b *BPE) Count(text string) int {
	if text == "" {
		return 0
	}
	// Special-token text is encoded as ordinary text rather than rejected.
	return len(b.enc.Encode(text, nil, nil))
}

// Approx estimates tokens as ceil(runes/4), the usual rule of thumb for English text
// under cl100k_base.
type Approx struct{}

func (Approx) Count(text string) int {
	n := 0
	for range text {
		n++
	}
	return (n + 3) / 4
}

var (
	defaultOnce    sync.Once
	defaultCounter Counter
	defaultErr     error
)

// Default returns the shared counter. The first call loads the vocabulary; if that fails the
// shared counter is Approx and LoadError reports why.
func Default() Counter {
	defaultOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
		enc, err := tiktoken.GetEncoding(Encoding)
		if err != nil {
			defaultErr = err
			defaultCounter = Approx{}
			return
		}
		defaultCounter = &BPE{enc: enc}
	})
	return defaultCounter
}

// LoadError reports the vocabulary load failure behind Default, if any.
func LoadError() error {
	Default()
	return defaultErr
}
