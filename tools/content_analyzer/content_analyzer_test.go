package content_analyzer

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestSplitSentences(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"One. Two! Three? Four", []string{"One.", "Two!", "Three?", "Four"}},
		{"No terminal punctuation here", []string{"No terminal punctuation here"}},
		{"Ends with space. ", []string{"Ends with space.", ""}},
		{"Wide.\n\n  Gap", []string{"Wide.", "Gap"}},
		{"v1.2 is out", []string{"v1.2 is out"}},
		{"", []string{""}},
	}
	for _, tc := range cases {
		if got := SplitSentences(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("SplitSentences(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSummarize(t *testing.T) {
	short := "One. Two. Three."
	if got := Summarize(short); got != short {
		t.Fatalf("short text should be unchanged, got %q", got)
	}
	long := "A1. B2. C3. D4. E5."
	if got := Summarize(long); got != "A1. C3. E5." {
		t.Fatalf("unexpected summary %q", got)
	}
	seven := "S0. S1. S2. S3. S4. S5. S6."
	if got := Summarize(seven); got != "S0. S3. S6." {
		t.Fatalf("seven sentences should keep first, middle and last, got %q", got)
	}
	four := "A. B. C. D."
	if got := Summarize(four); got != "A. C. D." {
		t.Fatalf("unexpected summary %q", got)
	}
}

func TestExtractKeyPoints(t *testing.T) {
	text := "Intro line. This is an important detail. Filler. The key takeaway is speed."
	got := ExtractKeyPoints(text)
	want := []string{"This is an important detail.", "The key takeaway is speed."}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q want %q", got, want)
	}

	fallback := ExtractKeyPoints("One. Two. Three. Four.")
	if !reflect.DeepEqual(fallback, []string{"One.", "Two.", "Three."}) {
		t.Fatalf("unexpected fallback %q", fallback)
	}
}

func TestFindEntities(t *testing.T) {
	text := "Alice Smith met Bob at Acme Company in Kansas City on March 3rd, 2024. Alice Smith left on Jan 5 2025."
	e := FindEntities(text)
	if len(e.People) == 0 || e.People[0] != "Alice Smith" {
		t.Fatalf("unexpected people %q", e.People)
	}
	count := 0
	for _, p := range e.People {
		if p == "Alice Smith" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("people should be deduplicated, got %q", e.People)
	}
	if !reflect.DeepEqual(e.Dates, []string{"March 3rd, 2024", "Jan 5 2025"}) {
		t.Fatalf("unexpected dates %q", e.Dates)
	}
	if len(e.Organizations) != 1 || !strings.HasSuffix(e.Organizations[0], "Company") {
		t.Fatalf("unexpected organizations %q", e.Organizations)
	}
	if len(e.Locations) != 1 || !strings.HasSuffix(e.Locations[0], "City") {
		t.Fatalf("unexpected locations %q", e.Locations)
	}
}

func TestFindEntitiesEmpty(t *testing.T) {
	raw, _ := json.Marshal(FindEntities("nothing capitalised here"))
	if string(raw) != `{"people":[],"organizations":[],"locations":[],"dates":[]}` {
		t.Fatalf("unexpected json %s", raw)
	}
}

func TestScoreSentiment(t *testing.T) {
	cases := []struct {
		text      string
		sentiment string
		score     float64
	}{
		{"The weather is mild.", "neutral", 0.5},
		{"A great and wonderful success, good good good.", "positive", 1},
		{"Terrible failure with bad results.", "negative", 0},
		{"Good but bad.", "neutral", 0.5},
	}
	for _, tc := range cases {
		got := ScoreSentiment(tc.text)
		if got.Sentiment != tc.sentiment || got.Score != tc.score {
			t.Fatalf("ScoreSentiment(%q) = %+v", tc.text, got)
		}
	}
	// Repeated words count once.
	if got := ScoreSentiment("good good good"); got.PositiveCount != 1 {
		t.Fatalf("expected presence count, got %+v", got)
	}
}

func TestAnalyzeModes(t *testing.T) {
	a := New()
	res := a.Analyze(Input{Content: "Short text."})
	out := res.Value().(map[string]any)
	if len(out) != 1 || out["summary"] != "Short text." {
		t.Fatalf("default mode should be summary, got %v", out)
	}

	res = a.Analyze(Input{Content: "Short text.", AnalysisType: "everything"})
	out = res.Value().(map[string]any)
	for _, k := range []string{"summary", "key_points", "entities", "sentiment"} {
		if _, ok := out[k]; !ok {
			t.Fatalf("unknown mode should include %s, got %v", k, out)
		}
	}
}

func TestInvokeRendersJSON(t *testing.T) {
	res := New().Invoke(context.Background(), json.RawMessage(`{"content":"Good day.","analysis_type":"sentiment"}`))
	if res.Err() != nil {
		t.Fatalf("unexpected error: %v", res.Err())
	}
	var decoded map[string]SentimentScore
	if err := json.Unmarshal([]byte(res.String()), &decoded); err != nil {
		t.Fatalf("result is not json: %v", err)
	}
	if decoded["sentiment"].Sentiment != "positive" {
		t.Fatalf("unexpected sentiment %+v", decoded)
	}
}

func TestInvokeBadArguments(t *testing.T) {
	res := New().Invoke(context.Background(), json.RawMessage(`not json at all`))
	if res.Err() == nil {
		t.Fatalf("expected decode error")
	}
}
