package listing

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const altAdsID = "srchrslt-adtable-altads"

var noResultsSelectors = []string{
	"#saved-search-empty-result",
	".j-zsrp-error-message",
	".outcomemessage-warning",
}

var noResultsPhrases = []string{
	"keine ergebnisse",
	"nicht gefunden",
	"wurden keine",
}

var containerSelectors = []string{
	"#srchrslt-content",
	".srchrslt-content",
	"#srchrslt-list",
	".srchrslt-list",
	`div[id*="srchrslt"]`,
}

var excludedSelectors = []string{
	`[class*="similar"]`,
	`[class*="recommended"]`,
	`[class*="empfohlen"]`,
	`[class*="nahe"]`,
	`[id*="similar"]`,
	`[id*="recommended"]`,
	`[id*="empfohlen"]`,
	`[id*="altads"]`,
	".adbox-similar",
	".similar-ads",
	".recommendations",
	".empfehlungen",
}

// Matched against the id and class of every ancestor of a candidate anchor.
var excludedAncestorTokens = []string{
	"similar",
	"recommended",
	"empfohlen",
	"nahe",
	"empfehlung",
	"alternative",
}

var listingSelectors = []string{
	`article.ad-listitem a[href*="/s-anzeige/"]`,
	`.ad-listitem a[href*="/s-anzeige/"]`,
	`article a[href*="/s-anzeige/"]`,
	`h2 a[href*="/s-anzeige/"]`,
	`.ellipsis a[href*="/s-anzeige/"]`,
}

const fallbackSelector = `a[href*="/s-anzeige/"]`

// Extractor pulls genuine listing links out of a single search-result page.
// It never modifies the parsed document; excluded sections are tracked as a
// set of subtree roots that collection skips.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Run(data []byte, baseURL string) (Set, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	links := make(Set)

	if e.hasNoResults(doc) {
		slog.Debug("Page reports no results, ignoring alternative listings")
		return links, nil
	}

	container := e.primaryContainer(doc)
	skip := e.excludedSubtrees(doc, container)

	search := doc.Find("#srchrslt-adtable").First()
	if search.Length() == 0 {
		slog.Debug("Primary result list not found, searching main container")
		search = container
	}

	matched := false
	for _, selector := range listingSelectors {
		anchors := search.Find(selector)
		if anchors.Length() == 0 {
			continue
		}
		matched = true

		anchors.Each(func(_ int, a *goquery.Selection) {
			if skip.covers(a.Get(0)) || hasExcludedAncestor(a.Get(0)) {
				return
			}
			if u, ok := resolveListing(base, a); ok {
				links.Add(u)
			}
		})
	}

	if !matched {
		slog.Debug("No links matched the listing selectors, using fallback")
		container.Find(fallbackSelector).Each(func(_ int, a *goquery.Selection) {
			if skip.covers(a.Get(0)) {
				return
			}
			if u, ok := resolveListing(base, a); ok {
				links.Add(u)
			}
		})
	}

	return links, nil
}

func (e *Extractor) hasNoResults(doc *goquery.Document) bool {
	for _, selector := range noResultsSelectors {
		el := doc.Find(selector).First()
		if el.Length() == 0 {
			continue
		}

		text := strings.ToLower(el.Text())
		for _, phrase := range noResultsPhrases {
			if strings.Contains(text, phrase) {
				return true
			}
		}
	}
	return false
}

func (e *Extractor) primaryContainer(doc *goquery.Document) *goquery.Selection {
	for _, selector := range containerSelectors {
		if container := doc.Find(selector).First(); container.Length() > 0 {
			return container
		}
	}

	if body := doc.Find("body").First(); body.Length() > 0 {
		return body
	}
	return doc.Selection
}

func (e *Extractor) excludedSubtrees(doc *goquery.Document, container *goquery.Selection) subtrees {
	skip := make(subtrees)

	skip.addAll(doc.Find("#" + altAdsID))

	doc.Find("h2").EachWithBreak(func(_ int, h2 *goquery.Selection) bool {
		if !isAlternativeHeading(h2.Text()) {
			return true
		}
		skip.addAll(h2)
		skip.addAll(h2.NextAll())
		return false
	})

	skip.addAll(container.Find(strings.Join(excludedSelectors, ", ")))

	return skip
}

func isAlternativeHeading(text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	if strings.Contains(text, "alternative anzeigen") {
		return true
	}
	return strings.Contains(text, "anzeigen") && strings.Contains(text, "umgebung")
}

func resolveListing(base *url.URL, a *goquery.Selection) (string, bool) {
	href := strings.TrimSpace(a.AttrOr("href", ""))
	if href == "" {
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}

	normalized := Normalize(base.ResolveReference(ref).String())
	if !IsListing(normalized) {
		return "", false
	}
	return normalized, true
}

func hasExcludedAncestor(n *html.Node) bool {
	if n == nil {
		return false
	}

	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}

		id := strings.ToLower(attr(p, "id"))
		if id == altAdsID {
			return true
		}

		marker := strings.ToLower(attr(p, "class")) + " " + id
		for _, token := range excludedAncestorTokens {
			if strings.Contains(marker, token) {
				return true
			}
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// subtrees holds the roots of document sections that must not contribute links.
type subtrees map[*html.Node]struct{}

func (s subtrees) addAll(sel *goquery.Selection) {
	for _, n := range sel.Nodes {
		s[n] = struct{}{}
	}
}

func (s subtrees) covers(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if _, ok := s[p]; ok {
			return true
		}
	}
	return false
}
