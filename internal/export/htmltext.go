package export

import (
	"strings"

	"golang.org/x/net/html"
)

// StripHTML reduces an HTML fragment to its plain text: tags are removed,
// entities are unescaped, script and style bodies are dropped and runs of
// whitespace collapse to single spaces. Malformed markup is tolerated; the
// tokenizer consumes whatever it can. The function is idempotent on plain
// text, but not necessarily on its own output: unescaping can leave literal
// angle brackets ("&lt;ok&gt;" becomes "<ok>") that a second pass would
// treat as markup, so callers must strip a value exactly once.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return collapseWhitespace(s)
	}

	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skipDepth := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or unparseable tail; either way the text collected so
			// far is the best plain-text rendition available.
			return collapseWhitespace(b.String())
		case html.StartTagToken:
			if name, _ := z.TagName(); isInvisible(string(name)) {
				skipDepth++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); isInvisible(string(name)) && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(z.Text())
				b.WriteByte(' ')
			}
		}
	}
}

// isInvisible reports whether an element's text content never renders.
func isInvisible(tag string) bool {
	return tag == "script" || tag == "style"
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
