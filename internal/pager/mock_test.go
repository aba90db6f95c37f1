package pager

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

var testProfile = Profile{
	Name:         "test",
	ItemSelector: `ul[class="bp-p-filterGrid_items"] > li`,
	Fields: []FieldSpec{
		{Name: "title", Selector: `a[class="bp-c-card_title bp-c-link"]`},
		{Name: "url", Selector: `a[class="bp-c-card_title bp-c-link"]`, Attr: "href"},
		{Name: "store", Selector: `span[class="bp-c-card_subtitle"]`},
		{Name: "price", Selector: `span[class="bp-p-dealCard_price"]`},
	},
	NextSelectors: []string{`button[aria-label="next"]`, `button[data-page="next"]`},
}

type testItem struct {
	title, url, store, price string
}

// listing renders a deals grid; empty url/price omit the element.
func listing(items ...testItem) string {
	var b strings.Builder
	b.WriteString(`<html><body><ul class="bp-p-filterGrid_items">`)
	for _, it := range items {
		b.WriteString("<li>")
		if it.url != "" {
			fmt.Fprintf(&b, `<a class="bp-c-card_title bp-c-link" href="%s">%s</a>`, it.url, it.title)
		} else {
			fmt.Fprintf(&b, `<a class="bp-c-card_title bp-c-link">%s</a>`, it.title)
		}
		fmt.Fprintf(&b, `<span class="bp-c-card_subtitle">%s</span>`, it.store)
		if it.price != "" {
			fmt.Fprintf(&b, `<span class="bp-p-dealCard_price">%s</span>`, it.price)
		}
		b.WriteString("</li>")
	}
	b.WriteString(`</ul></body></html>`)
	return b.String()
}

type fakePage struct {
	markup  string
	hasNext bool
}

// fakeSource is a scripted DocumentSource. Clicking next moves to the
// following page, which makes anchors captured earlier stale.
type fakeSource struct {
	mu sync.Mutex

	pages []fakePage
	cur   int

	anchors map[NodeRef]int

	noAnchor      bool
	clickErr      error
	staleFailures int
	markupErrAt   int
	markupErr     error

	clicks   int
	stales   int
	presents int
	moves    int
	keys     []string
}

func newFakeSource(pages ...fakePage) *fakeSource {
	return &fakeSource{pages: pages, anchors: map[NodeRef]int{}, markupErrAt: -1}
}

func (f *fakeSource) Markup(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markupErr != nil && f.cur == f.markupErrAt {
		return "", f.markupErr
	}
	return f.pages[f.cur].markup, nil
}

func (f *fakeSource) Capture(ctx context.Context, selector string) (NodeRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.noAnchor {
		return "", ErrNoNode
	}
	ref := NodeRef(fmt.Sprintf("anchor-%d", f.cur))
	f.anchors[ref] = f.cur
	return ref, nil
}

func (f *fakeSource) WaitClickable(ctx context.Context, selector string, timeout time.Duration) (NodeRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.pages[f.cur].hasNext {
		return "", fmt.Errorf("%s: %w", selector, ErrTimeout)
	}
	return "next", nil
}

func (f *fakeSource) WaitStale(ctx context.Context, ref NodeRef, timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stales++
	if f.staleFailures > 0 {
		f.staleFailures--
		return ErrTimeout
	}
	if page, ok := f.anchors[ref]; ok && page != f.cur {
		return nil
	}
	return ErrTimeout
}

func (f *fakeSource) WaitPresent(ctx context.Context, selector string, timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presents++
	return nil
}

func (f *fakeSource) ScrollIntoView(ctx context.Context, ref NodeRef) error {
	return nil
}

func (f *fakeSource) Click(ctx context.Context, ref NodeRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clickErr != nil {
		return f.clickErr
	}
	f.clicks++
	f.cur++
	return nil
}

func (f *fakeSource) PressKey(ctx context.Context, selector, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeSource) MovePointer(ctx context.Context, dx, dy float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves++
	return nil
}

// collectSink records everything published to it.
type collectSink struct {
	records []Record
	err     error
}

func (c *collectSink) Publish(ctx context.Context, rec Record) error {
	if c.err != nil {
		return c.err
	}
	c.records = append(c.records, rec)
	return nil
}

func (c *collectSink) titles() []string {
	out := make([]string, 0, len(c.records))
	for _, r := range c.records {
		out = append(out, r.Value("title"))
	}
	return out
}
