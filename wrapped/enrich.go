package wrapped

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/theimaginaryfoundation/gpt-wrapped/wrapped/tokenizer"
)

const (
	MoodJoy     = "Joy"
	MoodNeutral = "Neutral"
	MoodStress  = "Stress"

	unknownModel = "unknown"

	sentimentScale  = 10
	moodThreshold   = 0.2
	tooltipTextRune = 50
)

var (
	happyWords = []string{"great", "awesome", "perfect", "thanks", "excellent", "love", "good"}
	sadWords   = []string{"bad", "wrong", "error", "fail", "hate", "terrible", "awful"}

	imageGenPattern = regexp.MustCompile(`(?i)(generate|create|make|draw).{0,20}(image|picture|photo|art|logo)`)
)

// EnrichedMessage is one Corpus row. Values are never mutated after the Corpus is built.
type EnrichedMessage struct {
	ID         string    `json:"id"`
	ConvID     string    `json:"conv_id"`
	Title      string    `json:"title"`
	Role       string    `json:"role"`
	Text       string    `json:"text"`
	Timestamp  *float64  `json:"timestamp"`
	TokenCount int       `json:"token_count"`
	IsCode     bool      `json:"is_code"`
	Model      string    `json:"model"`
	Sentiment  float64   `json:"sentiment"`
	MoodLabel  string    `json:"mood_label"`
	IsQuestion bool      `json:"is_question"`
	IsImageGen bool      `json:"is_image_gen"`
	Tooltip    string    `json:"tooltip"`
	MediaCount int       `json:"media_count"`
	Datetime   time.Time `json:"datetime"`
	Date       string    `json:"date"`
	Hour       int       `json:"hour"`
	Weekday    string    `json:"weekday"`
	MonthLabel string    `json:"month_label"`
}

// Enricher annotates raw messages. The zero value counts tokens with tokenizer.Default and
// renders times in UTC.
type Enricher struct {
	Tokens   tokenizer.Counter
	Location *time.Location
}

func (e Enricher) counter() tokenizer.Counter {
	if e.Tokens != nil {
		return e.Tokens
	}
	return tokenizer.Default()
}

func (e Enricher) location() *time.Location {
	if e.Location != nil {
		return e.Location
	}
	return time.UTC
}

// Enrich builds the Corpus row for one raw message of conv. Time-derived columns
// (Datetime, Date, Hour, Weekday, MonthLabel) are filled by BuildCorpus.
//
// The only error is ErrMalformedArchive from content extraction.
func (e Enricher) Enrich(conv Conversation, raw RawMessage) (EnrichedMessage, error) {
	mc, _ := decodeContent(raw.Content)
	text, media, err := ExtractParts(mc.Parts)
	if err != nil {
		return EnrichedMessage{}, fmt.Errorf("Enrich: message %q: %w", raw.ID, err)
	}

	role := raw.Author.Role
	tokens := 0
	if text != "" {
		tokens = e.counter().Count(text)
	}
	sentiment := Sentiment(text)
	mood := MoodLabel(sentiment)

	return EnrichedMessage{
		ID:         raw.ID,
		ConvID:     conv.Key(),
		Title:      conv.DisplayTitle(),
		Role:       role,
		Text:       text,
		Timestamp:  raw.CreateTime,
		TokenCount: tokens,
		IsCode:     strings.Contains(text, "```"),
		Model:      modelSlug(raw.Metadata),
		Sentiment:  sentiment,
		MoodLabel:  mood,
		IsQuestion: strings.Contains(text, "?"),
		IsImageGen: role == RoleUser && imageGenPattern.MatchString(strings.ToLower(text)),
		Tooltip:    tooltip(tooltipDate(raw.CreateTime, e.location()), mood, sentiment, tokens, text),
		MediaCount: media,
	}, nil
}

// Sentiment scores text by counting happy and sad keywords (case-insensitive, non-overlapping
// substring counts). Each net keyword moves the score by 0.1; the result is clamped to [-1, 1].
func Sentiment(text string) float64 {
	lower := strings.ToLower(text)
	net := 0
	for _, w := range happyWords {
		net += strings.Count(lower, w)
	}
	for _, w := range sadWords {
		net -= strings.Count(lower, w)
	}
	score := float64(net) / sentimentScale
	return math.Max(-1, math.Min(1, score))
}

// MoodLabel buckets a sentiment score.
func MoodLabel(sentiment float64) string {
	switch {
	case sentiment > moodThreshold:
		return MoodJoy
	case sentiment < -moodThreshold:
		return MoodStress
	default:
		return MoodNeutral
	}
}

func modelSlug(metadata map[string]any) string {
	if s, ok := metadata["model_slug"].(string); ok && s != "" {
		return s
	}
	return unknownModel
}

func tooltip(date, mood string, sentiment float64, tokens int, text string) string {
	return fmt.Sprintf("Date: %s<br>Mood: %s<br>Sentiment: %.2f<br>Tokens: %d<br>Text: %s...",
		date, mood, sentiment, tokens, firstRunes(text, tooltipTextRune))
}

func firstRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
