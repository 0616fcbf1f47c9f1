package chromedp

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/mohammad-safakhou/webagent/tools/web_fetch/models"
)

// Fetch renders a page in headless Chrome and returns the resulting DOM. It is
// meant for pages that build their content client-side.
type Fetch struct {
	Timeout   time.Duration
	UserAgent string
	MaxBytes  int64
}

func (f Fetch) Fetch(ctx context.Context, url string) (models.Page, error) {
	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent(f.UserAgent),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(bctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return models.Page{URL: url}, err
	}

	// The DevTools protocol does not report the document status here; a
	// successful navigation is treated as 200.
	page := models.Page{URL: url, Status: 200, HTML: html}
	if f.MaxBytes > 0 && int64(len(html)) > f.MaxBytes {
		page.HTML = html[:f.MaxBytes]
		page.Truncated = true
	}
	return page, nil
}
