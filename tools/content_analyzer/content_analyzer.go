// Package content_analyzer implements cheap text heuristics: an extractive
// summary, key points, regex entities and a keyword sentiment score.
package content_analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mohammad-safakhou/webagent/tools"
)

const Name = "content_analyzer"

type AnalysisType string

const (
	Summary   AnalysisType = "summary"
	KeyPoints AnalysisType = "key_points"
	Entities  AnalysisType = "entities"
	Sentiment AnalysisType = "sentiment"
)

type Input struct {
	Content      string `json:"content"`
	AnalysisType string `json:"analysis_type,omitempty"`
}

type EntitySet struct {
	People        []string `json:"people"`
	Organizations []string `json:"organizations"`
	Locations     []string `json:"locations"`
	Dates         []string `json:"dates"`
}

type SentimentScore struct {
	Sentiment     string  `json:"sentiment"`
	Score         float64 `json:"score"`
	PositiveCount int     `json:"positive_count"`
	NegativeCount int     `json:"negative_count"`
}

var (
	keyPhrases = []string{"important", "key", "significant", "notable", "critical", "essential"}

	positiveWords = []string{"good", "great", "excellent", "amazing", "wonderful", "positive", "beneficial", "advantage", "success", "happy"}
	negativeWords = []string{"bad", "poor", "terrible", "awful", "horrible", "negative", "detrimental", "disadvantage", "failure", "sad"}

	peopleRe = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)
	orgRe    = regexp.MustCompile(`\b[A-Z][a-zA-Z\s]+(?:Inc\.|Corp\.|Ltd\.|LLC|Company|Association|Organization)\b`)
	placeRe  = regexp.MustCompile(`\b[A-Z][a-zA-Z\s]+(?:City|Country|State|Province|Region|Continent)\b`)
	dateRe   = regexp.MustCompile(`\b(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|Jun(?:e)?|Jul(?:y)?|Aug(?:ust)?|Sep(?:tember)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}\b`)
)

type Analyzer struct{}

func New() *Analyzer { return &Analyzer{} }

func (a *Analyzer) Definition() tools.Definition {
	return tools.Definition{
		Name: Name,
		Description: "Analyzes text content. It can generate summaries, extract key points, " +
			"identify entities, or analyze sentiment. Any other analysis_type runs all four.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"content": map[string]any{
					"type":        "string",
					"description": "The text to analyze.",
				},
				"analysis_type": map[string]any{
					"type":        "string",
					"description": "One of 'summary', 'key_points', 'entities' or 'sentiment'.",
					"default":     string(Summary),
				},
			},
			"required": []string{"content"},
		},
	}
}

func (a *Analyzer) Invoke(ctx context.Context, args json.RawMessage) tools.Result {
	var in Input
	if err := tools.DecodeArgs(args, &in); err != nil {
		return tools.Fail(err)
	}
	return a.Analyze(in)
}

// Analyze runs the requested heuristic. An unrecognised type runs all four.
func (a *Analyzer) Analyze(in Input) tools.Result {
	return tools.Guard(Name, func() tools.Result {
		kind := AnalysisType(strings.TrimSpace(in.AnalysisType))
		if kind == "" {
			kind = Summary
		}
		out := map[string]any{}
		switch kind {
		case Summary, KeyPoints, Entities, Sentiment:
			out[string(kind)] = run(kind, in.Content)
		default:
			for _, k := range []AnalysisType{Summary, KeyPoints, Entities, Sentiment} {
				out[string(k)] = run(k, in.Content)
			}
		}
		return tools.OK(out)
	})
}

// run isolates one heuristic; a panic becomes an error string in its slot.
func run(kind AnalysisType, content string) (v any) {
	defer func() {
		if p := recover(); p != nil {
			v = fmt.Sprintf("Error computing %s: %v", kind, p)
		}
	}()
	switch kind {
	case Summary:
		return Summarize(content)
	case KeyPoints:
		return ExtractKeyPoints(content)
	case Entities:
		return FindEntities(content)
	default:
		return ScoreSentiment(content)
	}
}

// SplitSentences cuts text at every whitespace run that directly follows
// '.', '!' or '?'. A trailing run yields an empty final sentence.
func SplitSentences(text string) []string {
	var out []string
	start := 0
	var prev rune
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) && (prev == '.' || prev == '!' || prev == '?') {
			out = append(out, text[start:i])
			j := i
			for j < len(text) {
				r2, s2 := utf8.DecodeRuneInString(text[j:])
				if !unicode.IsSpace(r2) {
					break
				}
				j += s2
			}
			start = j
			i = j
			prev = 0
			continue
		}
		prev = r
		i += size
	}
	return append(out, text[start:])
}

// Summarize returns text unchanged when it has at most three sentences, and
// otherwise the first, middle and last sentence joined by spaces.
func Summarize(text string) string {
	s := SplitSentences(text)
	if len(s) <= 3 {
		return text
	}
	return s[0] + " " + s[len(s)/2] + " " + s[len(s)-1]
}

// ExtractKeyPoints keeps sentences containing a key phrase, falling back to
// the first three sentences.
func ExtractKeyPoints(text string) []string {
	sentences := SplitSentences(text)
	points := []string{}
	for _, s := range sentences {
		lower := strings.ToLower(s)
		for _, p := range keyPhrases {
			if strings.Contains(lower, p) {
				points = append(points, s)
				break
			}
		}
	}
	if len(points) == 0 {
		points = append(points, sentences[:min(3, len(sentences))]...)
	}
	return points
}

func FindEntities(text string) EntitySet {
	return EntitySet{
		People:        uniqueMatches(peopleRe, text),
		Organizations: uniqueMatches(orgRe, text),
		Locations:     uniqueMatches(placeRe, text),
		Dates:         uniqueMatches(dateRe, text),
	}
}

func uniqueMatches(re *regexp.Regexp, text string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, m := range re.FindAllString(text, -1) {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

// ScoreSentiment counts how many listed words occur at least once. The score
// is positive/(positive+negative), 0.5 when neither occurs.
func ScoreSentiment(text string) SentimentScore {
	lower := strings.ToLower(text)
	res := SentimentScore{Sentiment: "neutral", Score: 0.5}
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			res.PositiveCount++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			res.NegativeCount++
		}
	}
	total := res.PositiveCount + res.NegativeCount
	if total == 0 {
		return res
	}
	res.Score = float64(res.PositiveCount) / float64(total)
	switch {
	case res.Score > 0.6:
		res.Sentiment = "positive"
	case res.Score < 0.4:
		res.Sentiment = "negative"
	}
	return res
}
