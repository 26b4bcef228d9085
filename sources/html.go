// sources/html.go
package sources

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxDetailLen = 200

var whitespaceRun = regexp.MustCompile(`\s+`)

// summarizeBody reduces an error response body to one short line for logs.
// HTML pages (gateway errors, maintenance pages) are reduced to their title and text.
func summarizeBody(contentType string, body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}

	text := string(trimmed)
	if strings.Contains(strings.ToLower(contentType), "html") || bytes.HasPrefix(trimmed, []byte("<")) {
		text = htmlToPlainText(trimmed)
	}

	text = strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
	if runes := []rune(text); len(runes) > maxDetailLen {
		text = string(runes[:maxDetailLen]) + "..."
	}
	return text
}

func htmlToPlainText(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return string(body)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find("script, style, head").Remove()
	text := strings.TrimSpace(doc.Text())

	switch {
	case title == "":
		return text
	case text == "":
		return title
	case strings.HasPrefix(text, title):
		return text
	default:
		return title + ": " + text
	}
}
