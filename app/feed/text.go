package feed

import (
	"crypto/sha256"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	nethtml "golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var (
	stripTags = bluemonday.StripTagsPolicy()

	lineBreakPattern       = regexp.MustCompile(`(?i)<\s*(br|hr)\s*/?\s*>`)
	backgroundImagePattern = regexp.MustCompile(`background-image:\s*url\(\s*['"]?([^'")]+?)['"]?\s*\)`)
)

func init() {
	stripTags.AddSpaceWhenStrippingTag(true)
}

// PlainText strips all markup from s and decodes entities.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(html.UnescapeString(stripTags.Sanitize(s))), " ")
}

// FirstSentence returns the first non-empty sentence of an HTML fragment.
// Line breaks and horizontal rules end a sentence, as do '.', '?' and '!'.
// Trailing periods are dropped; other terminators are kept. Text with no
// terminator is returned whole.
func FirstSentence(markup string) string {
	markup = lineBreakPattern.ReplaceAllString(markup, ".")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return ""
	}

	var parts []string
	for _, n := range doc.Nodes {
		collectText(n, &parts)
	}
	text := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")

	for text != "" {
		i := strings.IndexAny(text, ".?!")
		if i < 0 {
			return strings.TrimSpace(text)
		}

		sentence := strings.TrimSpace(strings.TrimRight(text[:i+1], "."))
		if sentence != "" && strings.Trim(sentence, ".?! ") != "" {
			return sentence
		}
		text = text[i+1:]
	}

	return ""
}

func collectText(n *nethtml.Node, parts *[]string) {
	if n.Type == nethtml.ElementNode && (n.Data == "script" || n.Data == "style") {
		return
	}
	if n.Type == nethtml.TextNode {
		*parts = append(*parts, n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

// BackgroundImageURL returns the first CSS background-image URL found in
// markup, or "" when there is none.
func BackgroundImageURL(markup string) string {
	m := backgroundImagePattern.FindStringSubmatch(html.UnescapeString(markup))
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// TruncateAtDelimiter cuts s at the first occurrence of sep.
func TruncateAtDelimiter(s, sep string) string {
	if i := strings.Index(s, sep); i >= 0 {
		return s[:i]
	}
	return s
}

// Slugify builds a URL-safe identifier from a title. Unicode letters are
// kept; a title with nothing sluggable gets a stable hash-based slug.
func Slugify(title string) string {
	lower := cases.Lower(language.Und).String(norm.NFKC.String(title))

	var b strings.Builder
	pendingDash := false
	for _, r := range lower {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-':
			pendingDash = true
		}
	}

	slug := strings.Trim(b.String(), "-_")
	if slug == "" {
		sum := sha256.Sum256([]byte(title))
		return fmt.Sprintf("item-%x", sum[:6])
	}
	return slug
}

// MessageStreamURL maps a channel address like https://t.me/name to its
// public web view https://t.me/s/name/.
func MessageStreamURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}

	var name string
	for _, segment := range strings.Split(u.Path, "/") {
		if segment != "" && segment != "s" {
			name = segment
		}
	}
	if u.Host == "" || name == "" {
		return "", fmt.Errorf("%w: channel name in %q", ErrMissingRequiredField, endpoint)
	}

	return fmt.Sprintf("%s://%s/s/%s/", u.Scheme, u.Host, name), nil
}
