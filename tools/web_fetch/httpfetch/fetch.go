package httpfetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html/charset"

	"github.com/mohammad-safakhou/webagent/tools/web_fetch/models"
)

// Fetch performs a single GET with a fixed user agent and a bounded body.
type Fetch struct {
	Client    *http.Client
	UserAgent string
	MaxBytes  int64
}

func New(timeout time.Duration, userAgent string, maxBytes int64) *Fetch {
	return &Fetch{
		Client:    &http.Client{Timeout: timeout},
		UserAgent: userAgent,
		MaxBytes:  maxBytes,
	}
}

func (f *Fetch) Fetch(ctx context.Context, url string) (models.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.Page{URL: url}, err
	}
	req.Header.Set("User-Agent", f.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.Client.Do(req)
	if err != nil {
		return models.Page{URL: url}, err
	}
	defer resp.Body.Close()

	page := models.Page{URL: url, Status: resp.StatusCode}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return page, fmt.Errorf("%s for url: %s", resp.Status, url)
	}

	// Read one byte past the limit to learn whether the body was cut. The
	// limit applies to wire bytes, before charset decoding.
	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.MaxBytes+1))
	if err != nil {
		return page, fmt.Errorf("read body: %w", err)
	}
	if int64(len(raw)) > f.MaxBytes {
		raw = trimPartialRune(raw[:f.MaxBytes])
		page.Truncated = true
	}
	body, err := charset.NewReader(bytes.NewReader(raw), resp.Header.Get("Content-Type"))
	if err != nil {
		return page, fmt.Errorf("decode body: %w", err)
	}
	if raw, err = io.ReadAll(body); err != nil {
		return page, fmt.Errorf("decode body: %w", err)
	}
	page.HTML = string(raw)
	return page, nil
}

// trimPartialRune drops a UTF-8 sequence split by the byte limit. Decoders
// would otherwise turn the fragment into U+FFFD.
func trimPartialRune(b []byte) []byte {
	for i := 0; i < utf8.UTFMax-1 && len(b) > 0; i++ {
		r, size := utf8.DecodeLastRune(b)
		if r != utf8.RuneError || size != 1 {
			break
		}
		b = b[:len(b)-1]
	}
	return b
}
