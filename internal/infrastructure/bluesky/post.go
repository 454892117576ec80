package bluesky

import (
	"strings"
	"unicode/utf8"

	"ExecOrdersMonitor/internal/domain"
)

// maxPostLength is the Bluesky post limit in characters.
const maxPostLength = 300

// BuildPost renders the announcement template for one order and shortens it
// gracefully when the result would exceed the post limit: first the title is
// cut at a word boundary, then the hashtag list collapses to its first entry,
// and only as a last resort is the text truncated hard.
func BuildPost(tpl string, hashtags []string, order domain.Order, primaryURL string) string {
	tags := strings.Join(hashtags, " ")

	text := renderTemplate(tpl, order, truncateTitle(order.Title, 100), primaryURL, tags)
	if utf8.RuneCountInString(text) <= maxPostLength {
		return text
	}

	text = renderTemplate(tpl, order, truncateTitle(order.Title, 50), primaryURL, tags)
	if utf8.RuneCountInString(text) <= maxPostLength {
		return text
	}

	if len(hashtags) > 1 {
		text = renderTemplate(tpl, order, truncateTitle(order.Title, 50), primaryURL, hashtags[0])
		if utf8.RuneCountInString(text) <= maxPostLength {
			return text
		}
	}

	runes := []rune(text)
	return string(runes[:maxPostLength])
}

// renderTemplate substitutes the placeholders line by line. A line whose
// placeholder has no value is dropped entirely, as are lines that come out
// blank, so a missing order number never leaves a dangling "EO-" behind.
func renderTemplate(tpl string, order domain.Order, title, primaryURL, tags string) string {
	values := map[string]string{
		"{title}":       title,
		"{number}":      order.Number,
		"{primary_url}": primaryURL,
		"{source_url}":  order.URL,
		"{hashtags}":    tags,
	}

	var lines []string
Line:
	for _, line := range strings.Split(tpl, "\n") {
		for token, value := range values {
			if value == "" && strings.Contains(line, token) {
				continue Line
			}
		}
		for token, value := range values {
			line = strings.ReplaceAll(line, token, value)
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}

// truncateTitle shortens a title to max characters. The cut snaps back to the
// previous word boundary when one sits close enough to the end.
func truncateTitle(title string, max int) string {
	runes := []rune(title)
	if len(runes) <= max {
		return title
	}

	cut := string(runes[:max-3])
	if i := strings.LastIndex(cut, " "); i > max*7/10 {
		cut = cut[:i]
	}
	return cut + "..."
}
