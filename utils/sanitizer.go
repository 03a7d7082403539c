package utils

import (
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

var (
	// StrictPolicy removes all markup
	StrictPolicy *bluemonday.Policy
	// BodyPolicy keeps the formatting subset that remote email bodies use
	BodyPolicy *bluemonday.Policy
)

func init() {
	StrictPolicy = bluemonday.StrictPolicy()

	BodyPolicy = bluemonday.UGCPolicy()
	BodyPolicy.AllowElements("p", "br", "div", "span", "h1", "h2", "h3", "h4", "h5", "h6")
	BodyPolicy.AllowElements("strong", "em", "u", "s", "code", "pre")
	BodyPolicy.AllowElements("ul", "ol", "li", "blockquote")
	BodyPolicy.AllowElements("a", "img")
	BodyPolicy.AllowElements("table", "thead", "tbody", "tr", "th", "td")

	BodyPolicy.AllowAttrs("href").OnElements("a")
	BodyPolicy.AllowAttrs("src", "alt", "title", "width", "height").OnElements("img")
	BodyPolicy.AllowAttrs("class").Globally()

	BodyPolicy.RequireParseableURLs(true)
	BodyPolicy.AllowURLSchemes("http", "https", "mailto")
	BodyPolicy.RequireNoFollowOnLinks(true)
	BodyPolicy.AddTargetBlankToFullyQualifiedLinks(true)
}

// SanitizeBody cleans a fetched email body so it can be rendered as markup
func SanitizeBody(body string) template.HTML {
	return template.HTML(BodyPolicy.Sanitize(body))
}

// StripHTML removes all HTML tags from content
func StripHTML(s string) string {
	return StrictPolicy.Sanitize(s)
}

var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true, "blockquote": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "pre": true,
}

// HTMLToText renders an HTML fragment as plain text, one line per block element
func HTMLToText(fragment string) string {
	var (
		b    strings.Builder
		skip int
	)

	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return collapseLines(b.String())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				skip++
			}
			if blockElements[tag] {
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if (tag == "script" || tag == "style") && skip > 0 {
				skip--
			}
			if blockElements[tag] {
				b.WriteByte('\n')
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func collapseLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
