package newsapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestArticlesMapsResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.Header.Get("X-Api-Key") != "key" {
			t.Errorf("missing api key header")
		}
		if q.Get("q") != `"golang"` || q.Get("from") != "2025-03-01" || q.Get("pageSize") != "2" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = io.WriteString(w, `{"status":"ok","totalResults":3,"articles":[
			{"source":{"name":"Wire"},"title":"A","description":"first","url":"https://a","publishedAt":"2025-03-03T08:00:00Z"},
			{"source":{"name":"Post"},"title":"B","description":"second","url":"https://b","publishedAt":"2025-03-02T08:00:00Z"},
			{"source":{"name":"Daily"},"title":"C","description":"third","url":"https://c","publishedAt":"2025-03-01T08:00:00Z"}]}`)
	}))
	defer srv.Close()

	n := NewsAPI{
		APIKey:   "key",
		Endpoint: srv.URL,
		Now:      func() time.Time { return time.Date(2025, time.March, 4, 0, 0, 0, 0, time.UTC) },
	}
	got, err := n.Articles(context.Background(), "golang", 3, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(got))
	}
	if got[0].Source != "Wire" || got[0].Summary != "first" || got[0].Date != "March 03, 2025" {
		t.Fatalf("unexpected article %+v", got[0])
	}
}

func TestArticlesStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"status":"error","message":"bad key"}`)
	}))
	defer srv.Close()

	_, err := NewsAPI{APIKey: "nope", Endpoint: srv.URL}.Articles(context.Background(), "go", 7, 5)
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestArticlesZeroWindowSkipsRequest(t *testing.T) {
	got, err := NewsAPI{Endpoint: "http://127.0.0.1:1"}.Articles(context.Background(), "go", 0, 5)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty result without request, got %v %v", got, err)
	}
}

func TestArticlesDropsSyndicatedDuplicates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"ok","articles":[
			{"source":{"name":"Wire"},"title":"A","url":"https://news.example/a?utm_source=rss","publishedAt":"2025-03-03T08:00:00Z"},
			{"source":{"name":"Mirror"},"title":"A","url":"https://NEWS.example/a#top","publishedAt":"2025-03-03T07:00:00Z"},
			{"source":{"name":"Post"},"title":"B","url":"https://news.example/b","publishedAt":"2025-03-02T08:00:00Z"}]}`)
	}))
	defer srv.Close()

	got, err := NewsAPI{Endpoint: srv.URL}.Articles(context.Background(), "go", 7, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Source != "Wire" || got[1].Title != "B" {
		t.Fatalf("expected duplicate dropped, got %+v", got)
	}
}
