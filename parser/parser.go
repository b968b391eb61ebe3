package parser

import (
	"strings"

	"github.com/go-shiori/go-readability"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

// ExtractReadableText pulls the human-readable text out of a page. It tries
// article extraction first (readability, then trafilatura) because most
// evidence pages are articles or profiles; when neither extractor finds
// content it falls back to the visible-text walk, which always succeeds on
// parseable HTML.
func ExtractReadableText(htmlStr string) string {
	if text := extractWithReadability(htmlStr); strings.TrimSpace(text) != "" {
		return text
	}
	if text := extractWithTrafilatura(htmlStr); strings.TrimSpace(text) != "" {
		return text
	}
	return ExtractVisibleText(htmlStr)
}

func extractWithReadability(htmlStr string) string {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return ""
	}

	article, err := readability.FromDocument(doc, nil)
	if err != nil {
		return ""
	}
	return article.TextContent
}

func extractWithTrafilatura(htmlStr string) string {
	article, err := trafilatura.Extract(strings.NewReader(htmlStr), trafilatura.Options{})
	if err != nil {
		return ""
	}
	return article.ContentText
}

// ExtractVisibleText walks the DOM and collects the text nodes a browser
// would display, one line per node, skipping script/style/noscript subtrees.
func ExtractVisibleText(htmlStr string) string {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return ""
	}

	var b strings.Builder

	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				b.WriteString(text)
				b.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}

	f(doc)
	return b.String()
}

// FirstLines returns at most n lines of s, keeping the original order.
// Used to bound the excerpt handed to the summarization model.
func FirstLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[:n], "\n")
}
