package pager

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	crawlerrors "sjsage522/silkdeal/pkg/errors"
)

// View is a read-only snapshot of the rendered document.
type View struct {
	doc *goquery.Document
}

// NewView parses markup into a View.
func NewView(markup string) (*View, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, crawlerrors.NewParsing("", "parse view markup", err)
	}
	return &View{doc: goquery.NewDocumentFromNode(root)}, nil
}

// Items returns the item nodes matching selector in document order.
func (v *View) Items(selector string) *goquery.Selection {
	return v.doc.Find(selector)
}

// Extract converts every item node of the view into a Record.
func (v *View) Extract(p Profile) []Record {
	items := v.Items(p.ItemSelector)
	records := make([]Record, 0, items.Length())
	items.Each(func(_ int, s *goquery.Selection) {
		records = append(records, ExtractItem(s, p))
	})
	return records
}

// ExtractItem reads the profile's fields from a single item node.
func ExtractItem(s *goquery.Selection, p Profile) Record {
	rec := make(Record, 0, len(p.Fields))
	for _, spec := range p.Fields {
		value, found := extractField(s, spec)
		if found && spec.Attr != "" && p.BaseURL != "" && isLinkAttr(spec.Attr) {
			value = resolveURL(p.BaseURL, value)
		}
		rec = append(rec, Field{Name: spec.Name, Value: value, Found: found})
	}
	return rec
}

func extractField(s *goquery.Selection, spec FieldSpec) (string, bool) {
	match := s.Find(spec.Selector).First()
	if match.Length() == 0 {
		return "", false
	}
	if spec.Attr == "" {
		return strings.TrimSpace(match.Text()), true
	}
	value, ok := match.Attr(spec.Attr)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}

func isLinkAttr(attr string) bool {
	return attr == "href" || attr == "src"
}

func resolveURL(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
