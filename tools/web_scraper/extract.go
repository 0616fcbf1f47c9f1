package web_scraper

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/andybalholm/cascadia"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

const (
	MaxTextChars = 10000
	MaxLinks     = 20
	MaxTables    = 5
	ellipsis     = "..."
)

var (
	linkSel  = cascadia.MustCompile("a[href]")
	tableSel = cascadia.MustCompile("table")
	rowSel   = cascadia.MustCompile("tr")
	cellSel  = cascadia.MustCompile("td, th")
	titleSel = cascadia.MustCompile("title")
	descSel  = cascadia.MustCompile(`meta[name="description"][content]`)
	keysSel  = cascadia.MustCompile(`meta[name="keywords"][content]`)
	ogSel    = cascadia.MustCompile(`meta[property^="og:"][content]`)

	// Page chrome and non-content elements whose text is dropped.
	chrome = map[string]bool{
		"script": true, "style": true, "header": true, "footer": true,
		"nav": true, "aside": true, "noscript": true, "template": true,
	}

	lineBreaks = strings.NewReplacer(
		"\r\n", "\n", "\r", "\n", "\v", "\n", "\f", "\n",
		"\x1c", "\n", "\x1d", "\n", "\x1e", "\n", "\u0085", "\n",
		"\u2028", "\n", "\u2029", "\n",
	)
)

type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

type Article struct {
	Title    string `json:"title"`
	Byline   string `json:"byline,omitempty"`
	SiteName string `json:"site_name,omitempty"`
	Excerpt  string `json:"excerpt,omitempty"`
	Text     string `json:"text"`
}

// ExtractText flattens visible text to one trimmed phrase per line and bounds
// the result at MaxTextChars runes plus an ellipsis.
func ExtractText(doc *html.Node) string {
	var raw strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && chrome[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			raw.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	var chunks []string
	for _, line := range strings.Split(lineBreaks.Replace(raw.String()), "\n") {
		line = strings.TrimSpace(line)
		// Two consecutive spaces usually separate headlines jammed onto one line.
		for _, phrase := range strings.Split(line, "  ") {
			if p := strings.TrimSpace(phrase); p != "" {
				chunks = append(chunks, p)
			}
		}
	}
	return truncate(strings.Join(chunks, "\n"), MaxTextChars)
}

// ExtractLinks returns up to MaxLinks anchors in document order. In-page
// anchors and javascript: links are skipped; relative hrefs are resolved
// against base. Duplicates are kept.
func ExtractLinks(doc *html.Node, base *url.URL) []Link {
	links := []Link{}
	for _, a := range linkSel.MatchAll(doc) {
		href := strings.TrimSpace(attr(a, "href"))
		if strings.HasPrefix(href, "#") || hasPrefixFold(href, "javascript:") {
			continue
		}
		resolved := href
		if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
			ref, err := url.Parse(href)
			if err != nil {
				continue
			}
			resolved = base.ResolveReference(ref).String()
		}
		text := strings.TrimSpace(textOf(a))
		if text == "" {
			text = resolved
		}
		links = append(links, Link{Text: text, URL: resolved})
		if len(links) == MaxLinks {
			break
		}
	}
	return links
}

// ExtractTables returns up to MaxTables tables as rows of cell text. Header and
// data cells are treated alike; rows without cells and empty tables are skipped.
func ExtractTables(doc *html.Node) [][][]string {
	tables := [][][]string{}
	for _, t := range tableSel.MatchAll(doc) {
		var rows [][]string
		for _, tr := range rowSel.MatchAll(t) {
			cells := cellSel.MatchAll(tr)
			if len(cells) == 0 {
				continue
			}
			row := make([]string, len(cells))
			for i, c := range cells {
				row[i] = strings.TrimSpace(textOf(c))
			}
			rows = append(rows, row)
		}
		if len(rows) == 0 {
			continue
		}
		tables = append(tables, rows)
		if len(tables) == MaxTables {
			break
		}
	}
	return tables
}

// ExtractMetadata collects title, description, keywords and og:* properties
// (keyed og_<property>).
func ExtractMetadata(doc *html.Node) map[string]string {
	meta := map[string]string{}
	if t := titleSel.MatchFirst(doc); t != nil {
		meta["title"] = strings.TrimSpace(textOf(t))
	}
	if d := descSel.MatchFirst(doc); d != nil {
		meta["description"] = attr(d, "content")
	}
	if k := keysSel.MatchFirst(doc); k != nil {
		meta["keywords"] = attr(k, "content")
	}
	for _, og := range ogSel.MatchAll(doc) {
		prop := strings.TrimPrefix(attr(og, "property"), "og:")
		meta["og_"+prop] = attr(og, "content")
	}
	return meta
}

// ExtractArticle runs readability over the raw document.
func ExtractArticle(rawHTML string, pageURL *url.URL) (Article, error) {
	art, err := readability.FromReader(strings.NewReader(rawHTML), pageURL)
	if err != nil {
		return Article{}, err
	}
	return Article{
		Title:    strings.TrimSpace(art.Title),
		Byline:   strings.TrimSpace(art.Byline),
		SiteName: strings.TrimSpace(art.SiteName),
		Excerpt:  strings.TrimSpace(art.Excerpt),
		Text:     truncate(strings.TrimSpace(art.TextContent), MaxTextChars),
	}, nil
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i] + ellipsis
		}
		n++
	}
	return s
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
