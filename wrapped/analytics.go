package wrapped

import (
	"math"
	"regexp"
	"slices"
	"strings"
	"time"
)

// Chaos is the behavioral unpredictability score of a corpus.
type Chaos struct {
	Score int    `json:"score" jsonschema:"minimum=0,maximum=100"`
	Label string `json:"label"`
}

var chaosLabels = []struct {
	max   int
	label string
}{
	{20, "Zen Master"},
	{40, "Balanced"},
	{60, "Chaotic Good"},
	{80, "Unhinged"},
}

const chaosTopLabel = "BOSS FIGHT MODE"

// ChaosScore combines population variances of sentiment (scaled by 100) and hour of day with the
// standard deviation of token counts (scaled by 1/100):
//
//	raw = 0.5*100*var(sentiment) + 0.5*var(hour) + 0.2*stdev(tokens)/100
//
// The score is raw rounded and clamped to [0, 100]. An empty corpus scores 0 with label "N/A".
func ChaosScore(c Corpus) Chaos {
	if len(c) == 0 {
		return Chaos{Score: 0, Label: "N/A"}
	}
	sent := make([]float64, len(c))
	hours := make([]float64, len(c))
	tokens := make([]float64, len(c))
	for i, m := range c {
		sent[i] = m.Sentiment
		hours[i] = float64(m.Hour)
		tokens[i] = float64(m.TokenCount)
	}

	raw := 0.5*100*variance(sent) + 0.5*variance(hours) + 0.2*math.Sqrt(variance(tokens))/100
	score := int(math.Round(math.Max(0, math.Min(100, raw))))

	label := chaosTopLabel
	for _, l := range chaosLabels {
		if score <= l.max {
			label = l.label
			break
		}
	}
	return Chaos{Score: score, Label: label}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// variance is the population variance.
func variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mu := mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - mu
		sum += d * d
	}
	return sum / float64(len(xs))
}

// Persona labels.
const (
	PersonaNightOwl     = "Night Owl"
	PersonaAIArtist     = "AI Artist"
	PersonaDoomScroller = "Doom Scroller"
	PersonaOptimist     = "Optimist"
	PersonaCasual       = "Casual Chatter"
	PersonaGhost        = "Ghost"
)

var personaEmoji = map[string]string{
	PersonaNightOwl:     "🧛",
	PersonaAIArtist:     "🎨",
	PersonaDoomScroller: "💀",
	PersonaOptimist:     "😊",
	PersonaCasual:       "☕",
	PersonaGhost:        "👻",
}

// Persona is the behavioral label assigned to the user side of a corpus.
type Persona struct {
	Label string `json:"label"`
	Emoji string `json:"emoji"`
	// Weights holds the labels whose thresholds were met, in registration order.
	Weights []PersonaWeight `json:"weights,omitempty"`

	LateNightShare  float64 `json:"late_night_share"`
	ImageGenCount   int     `json:"image_gen_count"`
	MeanSentiment   float64 `json:"mean_sentiment"`
	UserMessageRows int     `json:"user_messages"`
}

type PersonaWeight struct {
	Label  string `json:"label"`
	Weight int    `json:"weight"`
}

// IsLateNight reports whether hour falls in the 23:00-05:59 window, wrapping through midnight.
func IsLateNight(hour int) bool {
	return hour >= 23 || hour <= 5
}

// ClassifyPersona scores user rows against fixed thresholds. The highest weight wins and ties go
// to the label registered first. No user rows yields Ghost; no met threshold yields Casual Chatter.
func ClassifyPersona(c Corpus) Persona {
	users := c.Users()
	if len(users) == 0 {
		return Persona{Label: PersonaGhost, Emoji: personaEmoji[PersonaGhost]}
	}

	late, images := 0, 0
	sent := make([]float64, len(users))
	for i, m := range users {
		if IsLateNight(m.Hour) {
			late++
		}
		if m.IsImageGen {
			images++
		}
		sent[i] = m.Sentiment
	}

	p := Persona{
		LateNightShare:  float64(late) / float64(len(users)),
		ImageGenCount:   images,
		MeanSentiment:   mean(sent),
		UserMessageRows: len(users),
	}

	if p.LateNightShare > 0.25 {
		p.Weights = append(p.Weights, PersonaWeight{PersonaNightOwl, 5})
	}
	if p.ImageGenCount > 5 {
		p.Weights = append(p.Weights, PersonaWeight{PersonaAIArtist, 7})
	}
	if p.MeanSentiment < -0.1 {
		p.Weights = append(p.Weights, PersonaWeight{PersonaDoomScroller, 6})
	}
	if p.MeanSentiment > 0.2 {
		p.Weights = append(p.Weights, PersonaWeight{PersonaOptimist, 4})
	}

	p.Label = PersonaCasual
	best := 0
	for _, w := range p.Weights {
		if w.Weight > best {
			best = w.Weight
			p.Label = w.Label
		}
	}
	p.Emoji = personaEmoji[p.Label]
	return p
}

// InterestBucket is one fixed topic category.
type InterestBucket struct {
	Name    string
	Pattern *regexp.Regexp
}

// InterestBuckets are the topic categories in declaration order.
var InterestBuckets = []InterestBucket{
	{"Tech / Coding", regexp.MustCompile(`python|code|bug|script|library|api|server|gpu|ram|macbook|linux|terminal|programming`)},
	{"Physics / Science", regexp.MustCompile(`quantum|spintronics|landauer|experiment|lab|wavefunction|nuclear|particle|physics`)},
	{"AI / ML / LLM", regexp.MustCompile(`prompt|chatgpt|gpt|llm|model|fine[- ]tune|dataset|ai|machine learning`)},
	{"Gaming / Media", regexp.MustCompile(`game|gaming|fps|steam|anime|movie|series|netflix|video`)},
	{"Life / Feelings", regexp.MustCompile(`relationship|overthink|tired|burnout|anxious|depressed|sad|happy|panic|feeling`)},
}

const InterestGeneralist = "Generalist"

type InterestCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Interests is the topic classification of user text.
type Interests struct {
	Primary   string   `json:"primary"`
	Secondary []string `json:"secondary"`
	// Counts lists every bucket in declaration order.
	Counts []InterestCount `json:"counts"`
}

// ClassifyInterests counts non-overlapping bucket matches in the lower-cased user text joined by
// spaces.
func ClassifyInterests(c Corpus) Interests {
	users := c.Users()
	texts := make([]string, len(users))
	for i, m := range users {
		texts[i] = m.Text
	}
	joined := strings.ToLower(strings.Join(texts, " "))

	out := Interests{Primary: InterestGeneralist, Secondary: []string{}}
	best := 0
	for _, b := range InterestBuckets {
		n := len(b.Pattern.FindAllStringIndex(joined, -1))
		out.Counts = append(out.Counts, InterestCount{Name: b.Name, Count: n})
		if n > best {
			best = n
			out.Primary = b.Name
		}
	}
	if best == 0 {
		return out
	}

	ranked := make([]InterestCount, 0, len(out.Counts))
	for _, ic := range out.Counts {
		if ic.Count > 0 && ic.Name != out.Primary {
			ranked = append(ranked, ic)
		}
	}
	slices.SortStableFunc(ranked, func(a, b InterestCount) int { return b.Count - a.Count })
	for _, ic := range ranked {
		out.Secondary = append(out.Secondary, ic.Name)
	}
	return out
}

// Activity summarizes the distinct calendar days with messages.
type Activity struct {
	ActiveDays int `json:"active_days"`
	MaxStreak  int `json:"max_streak"`
}

// ComputeActivity counts distinct active dates and the longest run of consecutive days.
func ComputeActivity(c Corpus) Activity {
	seen := make(map[string]struct{})
	var days []time.Time
	for _, m := range c {
		if _, ok := seen[m.Date]; ok {
			continue
		}
		seen[m.Date] = struct{}{}
		d, err := parseDate(m.Date)
		if err != nil {
			continue
		}
		days = append(days, d)
	}
	return activityFromDays(days)
}

func activityFromDays(days []time.Time) Activity {
	if len(days) == 0 {
		return Activity{}
	}
	slices.SortFunc(days, func(a, b time.Time) int { return a.Compare(b) })

	maxStreak, cur := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i].Sub(days[i-1]) == 24*time.Hour {
			cur++
		} else {
			cur = 1
		}
		if cur > maxStreak {
			maxStreak = cur
		}
	}
	return Activity{ActiveDays: len(days), MaxStreak: maxStreak}
}
