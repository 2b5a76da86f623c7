package engine

import (
	"regexp"
	"strings"

	"github.com/anatolykoptev/go-kit/strutil"
	"golang.org/x/net/html"
)

// User-Agent strings used across HTTP clients.
const (
	UserAgentBot    = "GoDictation/1.0"
	UserAgentChrome = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
)

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// CleanHTML strips HTML tags, decodes entities and trims whitespace.
func CleanHTML(s string) string {
	return strings.TrimSpace(html.UnescapeString(htmlTagRe.ReplaceAllString(s, "")))
}

// UnescapeEntities decodes HTML entities such as &amp; and &#39;.
func UnescapeEntities(s string) string {
	return html.UnescapeString(s)
}

// Snippet caps an upstream response body for error messages and logs.
func Snippet(body []byte, limit int) string {
	return strutil.TruncateWith(strings.TrimSpace(string(body)), limit, "...")
}

// PrimarySubtag returns the text before the first hyphen, lowercased.
func PrimarySubtag(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexByte(lang, '-'); i >= 0 {
		return lang[:i]
	}
	return lang
}

// LangMatch reports whether two language tags are equal case-insensitively
// or share a primary subtag.
func LangMatch(a, b string) bool {
	if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) {
		return true
	}
	pa := PrimarySubtag(a)
	return pa != "" && pa == PrimarySubtag(b)
}
