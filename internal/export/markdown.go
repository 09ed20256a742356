// Package export renders journal entries as a single Markdown document.
package export

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"daybook/internal/journal"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

const longDate = "January 02, 2006"

// htmlTagPattern matches the opening tags a rich text editor produces.
var htmlTagPattern = regexp.MustCompile(`<(p|br|div|span|b|i|u|strong|em|a|ul|ol|li|h[1-6]|blockquote|pre|code)[\s>/]`)

func containsHTML(s string) bool {
	return htmlTagPattern.MatchString(strings.ToLower(s))
}

// bodyMarkdown returns the Markdown body of e: the stored Markdown when present,
// otherwise the body converted from HTML when it looks like HTML.
func bodyMarkdown(e *journal.Entry) string {
	if e.MarkdownBody != nil && strings.TrimSpace(*e.MarkdownBody) != "" {
		return strings.TrimSpace(*e.MarkdownBody)
	}
	if !containsHTML(e.Body) {
		return strings.TrimSpace(e.Body)
	}

	md, err := htmltomarkdown.ConvertString(e.Body)
	if err != nil {
		return strings.TrimSpace(e.Body)
	}
	return strings.TrimSpace(md)
}

// Document describes one export.
type Document struct {
	Owner   string
	From    time.Time
	To      time.Time
	Entries []journal.Entry
}

// Filename is the suggested attachment name.
func (d Document) Filename() string {
	return fmt.Sprintf("journal_%s_%s.md", d.From.Format("20060102"), d.To.Format("20060102"))
}

// Render writes the document. Entries are written in the given order.
func Render(w io.Writer, d Document) error {
	bw := bufio.NewWriter(w)

	title := "Journal Entries"
	if d.Owner != "" {
		title += " - " + d.Owner
	}
	fmt.Fprintf(bw, "# %s\n\n", title)
	fmt.Fprintf(bw, "_%s to %s, %d %s_\n", d.From.Format(longDate), d.To.Format(longDate), len(d.Entries), plural(len(d.Entries), "entry", "entries"))

	for i := range d.Entries {
		e := &d.Entries[i]
		fmt.Fprintf(bw, "\n---\n\n## %s\n\n", e.Title)
		fmt.Fprintf(bw, "**%s**\n\n", e.EntryDate.Format(longDate))
		fmt.Fprintf(bw, "Moods: %s\n", strings.Join(e.Moods(), ", "))
		if names := e.TagNames(); len(names) > 0 {
			fmt.Fprintf(bw, "Tags: %s\n", strings.Join(names, ", "))
		}
		if body := bodyMarkdown(e); body != "" {
			fmt.Fprintf(bw, "\n%s\n", body)
		}
		fmt.Fprintf(bw, "\n_Word count: %d_\n", e.WordCount)
	}

	return bw.Flush()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
