package listing

import (
	"net/url"
	"strings"
)

// Tokens that disqualify a URL as a listing link, checked before anything else.
var excludedTokens = []string{
	"anzeige-aufgeben",
	"abo",
	"premium",
	"werbung",
	"advertisement",
	"impressum",
	"datenschutz",
	"agb",
	"hilfe",
	"kontakt",
	"login",
	"registrieren",
	"/anbieter/",
	"/benutzer/",
	"/meine-anzeigen",
	"/s-werbung",
	"javascript:",
	"mailto:",
	"tel:",
	"#",
	"?",
	"/s-ort/",
	"/s-kategorie/",
}

var listingTokens = []string{
	"/s-anzeige/",
	"/s-anzeigen/",
	"/anzeige/",
}

// Normalize reduces a URL to scheme, lowercased host and path so that the
// same listing reached through different tracking parameters maps to one key.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	switch {
	case u.Opaque != "":
		return u.Scheme + ":" + u.Opaque
	case u.Scheme == "" && u.Host == "":
		return u.EscapedPath()
	case u.Scheme == "":
		return "//" + strings.ToLower(u.Host) + u.EscapedPath()
	}

	return u.Scheme + "://" + strings.ToLower(u.Host) + u.EscapedPath()
}

// IsListing reports whether rawURL points at a single classified ad.
// Exclusion tokens win over listing tokens.
func IsListing(rawURL string) bool {
	lower := strings.ToLower(rawURL)

	for _, token := range excludedTokens {
		if strings.Contains(lower, token) {
			return false
		}
	}

	for _, token := range listingTokens {
		if strings.Contains(lower, token) {
			return true
		}
	}

	return false
}
