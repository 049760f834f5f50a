// Package extract finds hyperlinks in fetched documents and joins them
// against the page they were found on.
package extract

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/WangYihang/lazyscan/pkg/domain/entity"
)

// LinkExtractor extracts the href of every anchor in an HTML document
type LinkExtractor struct{}

// NewLinkExtractor creates extractor
func NewLinkExtractor() *LinkExtractor {
	return &LinkExtractor{}
}

// Extract returns the distinct href values of body in document order. A body
// that is not HTML yields no links.
func (e *LinkExtractor) Extract(body []byte) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var links []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || seen[href] {
			return
		}
		seen[href] = true
		links = append(links, href)
	})
	return links
}

// Join resolves link against base. Links starting with https:// are kept
// as they are; anything else is appended to the domain key of base.
func Join(base, link string) string {
	if strings.HasPrefix(link, "https://") {
		return link
	}
	return entity.DomainKey(base) + "/" + strings.TrimLeft(link, "/")
}

// JoinAll resolves every link against base
func JoinAll(base string, links []string) []string {
	result := make([]string, 0, len(links))
	for _, link := range links {
		result = append(result, Join(base, link))
	}
	return result
}
