// Package seo composes the head metadata for server-rendered pages:
// title, description, canonical URL, social tags, and structured data.
package seo

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// DescriptionLimit is the longest derived description, in runes.
const DescriptionLimit = 160

// Describe derives a plain-text description from rendered post HTML.
// Markup is stripped, whitespace collapsed, and the text cut at a word
// boundary within limit runes. The ellipsis appears only when something
// was actually cut off. limit <= 0 selects DescriptionLimit.
func Describe(body string, limit int) string {
	if limit <= 0 {
		limit = DescriptionLimit
	}
	return truncate(stripMarkup(body), limit)
}

// stripMarkup extracts the text content of an HTML fragment, skipping
// script and style bodies.
func stripMarkup(body string) string {
	tok := html.NewTokenizer(strings.NewReader(body))
	var b strings.Builder
	skip := 0
	for {
		switch tok.Next() {
		case html.ErrorToken:
			return collapseSpace(b.String())
		case html.StartTagToken:
			if name, _ := tok.TagName(); skippedTag(name) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := tok.TagName(); skippedTag(name) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(tok.Text())
				b.WriteByte(' ')
			}
		}
	}
}

func skippedTag(name []byte) bool {
	switch string(name) {
	case "script", "style", "noscript", "template":
		return true
	}
	return false
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate cuts text to at most limit runes, ellipsis included,
// preferring the last word boundary before the cut.
func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	cut := limit - 1
	i := cut
	for i > 0 && !unicode.IsSpace(runes[i]) {
		i--
	}
	if i == 0 {
		// One unbroken word, cut it mid-way.
		i = cut
	}
	return strings.TrimRight(string(runes[:i]), " ") + "…"
}
