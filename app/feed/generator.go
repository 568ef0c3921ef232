package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/lysyi3m/listing-comb/app/cfg"
	"github.com/lysyi3m/listing-comb/app/links"
)

// Generator renders stored links as an RSS 2.0 channel.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Run(title, feedPath string, items []links.Link) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", title, 4)
	g.writeElement(&buf, "link", cfg.Get().SiteURL, 4)
	g.writeElement(&buf, "description", fmt.Sprintf("%d neue Anzeigen", len(items)), 4)

	var selfLink string
	if cfg.Get().BaseUrl != "" {
		selfLink = fmt.Sprintf("%s%s", strings.TrimRight(cfg.Get().BaseUrl, "/"), feedPath)
	} else {
		selfLink = fmt.Sprintf("http://localhost:%s%s", cfg.Get().Port, feedPath)
	}
	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(selfLink)))

	lastBuildDate := time.Now().In(time.Local)
	for _, item := range items {
		if t, ok := item.Time(); ok {
			lastBuildDate = t
			break
		}
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("Listing-Comb/%s", cfg.Get().Version), 4)
	g.writeElement(&buf, "language", "de", 4)

	for _, item := range items {
		g.writeItem(&buf, item)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, item links.Link) {
	buf.WriteString("    <item>\n")

	buf.WriteString(fmt.Sprintf("      <guid isPermaLink=\"%t\">", g.isURL(item.URL)))
	xml.EscapeText(buf, []byte(item.URL))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", titleFromURL(item.URL), 6)
	g.writeElement(buf, "link", item.URL, 6)

	description := "Keine Makler-Zuordnung"
	if len(item.AgencyNames) > 0 {
		description = "Makler: " + strings.Join(item.AgencyNames, ", ")
	}
	g.writeElement(buf, "description", description, 6)

	if t, ok := item.Time(); ok {
		g.writeElement(buf, "pubDate", t.Format(time.RFC1123Z), 6)
	}

	for _, name := range item.AgencyNames {
		if name != "" {
			g.writeElement(buf, "category", name, 6)
		}
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func (g *Generator) isURL(s string) bool {
	return (len(s) > 7 && s[:7] == "http://") || (len(s) > 8 && s[:8] == "https://")
}

// titleFromURL turns /s-anzeige/helle-wohnung-mitte/123 into "helle wohnung mitte".
func titleFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	slug := path.Base(path.Dir(strings.TrimRight(u.Path, "/")))
	if slug == "" || slug == "." || slug == "/" || strings.HasPrefix(slug, "s-anzeige") {
		return raw
	}
	return strings.ReplaceAll(slug, "-", " ")
}
