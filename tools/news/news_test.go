package news

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func fixedClock() time.Time { return time.Date(2025, time.March, 4, 10, 0, 0, 0, time.UTC) }

func TestSyntheticCountAndDates(t *testing.T) {
	s := Synthetic{Now: fixedClock}
	got, err := s.Articles(context.Background(), "AI Technology", 3, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected min(5,3)=3 articles, got %d", len(got))
	}
	wantDates := []string{"March 04, 2025", "March 03, 2025", "March 02, 2025"}
	for i, a := range got {
		if a.Date != wantDates[i] {
			t.Fatalf("article %d date = %q, want %q", i, a.Date, wantDates[i])
		}
		if a.Source != "Tech News Daily" || a.Title != "New AI Technology Innovation Announced" {
			t.Fatalf("unexpected article %+v", a)
		}
	}
	if got[2].URL != "https://example.com/news/3" {
		t.Fatalf("unexpected url %q", got[2].URL)
	}
}

func TestSyntheticTopicPrecedence(t *testing.T) {
	cases := map[string]string{
		"science and technology": "Tech News Daily",
		"Business of Health":     "Business Insider",
		"public health":          "Health News",
		"Space SCIENCE":          "Science Today",
		"gardening":              "General News",
	}
	for topic, source := range cases {
		got, _ := Synthetic{Now: fixedClock}.Articles(context.Background(), topic, 1, 1)
		if len(got) != 1 || got[0].Source != source {
			t.Fatalf("topic %q: got %+v want source %q", topic, got, source)
		}
	}
}

func TestSyntheticNegativeClampsToZero(t *testing.T) {
	got, _ := Synthetic{Now: fixedClock}.Articles(context.Background(), "x", -2, 5)
	if len(got) != 0 {
		t.Fatalf("expected no articles, got %d", len(got))
	}
}

func TestToolDefaultsAndExplicitZero(t *testing.T) {
	tool := NewTool(Synthetic{Now: fixedClock})
	res := tool.Invoke(context.Background(), json.RawMessage(`{"topic":"rust"}`))
	if n := len(res.Value().([]Article)); n != DefaultMaxResults {
		t.Fatalf("expected default %d articles, got %d", DefaultMaxResults, n)
	}

	res = tool.Invoke(context.Background(), json.RawMessage(`{"topic":"rust","days":0}`))
	if res.String() != "[]" {
		t.Fatalf("explicit zero days should yield [], got %s", res.String())
	}
}
