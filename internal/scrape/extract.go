package scrape

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// extractArticle pulls the main documentation body out of an HTML page
// and renders it as markdown-ish text: headings keep their level, code
// blocks are fenced, paragraphs and list items separated. Returns empty
// content when no article region is found.
func extractArticle(r io.Reader) (title, content string, err error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", "", err
	}

	title = strings.TrimSpace(doc.Find("h1").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	body := doc.Find("article").First()
	if body.Length() == 0 {
		body = doc.Find("main").First()
	}
	if body.Length() == 0 {
		body = doc.Find("div.md-content").First()
	}
	if body.Length() == 0 {
		return title, "", nil
	}

	var b strings.Builder
	for _, n := range body.Nodes {
		renderNode(n, &b)
	}

	return title, tidyMarkdown(b.String()), nil
}

var headingPrefix = map[string]string{
	"h1": "# ",
	"h2": "## ",
	"h3": "### ",
	"h4": "#### ",
	"h5": "##### ",
	"h6": "###### ",
}

var skipElements = map[string]bool{
	"script": true,
	"style":  true,
	"nav":    true,
	"aside":  true,
	"footer": true,
	"header": true,
	"svg":    true,
	"button": true,
	"form":   true,
}

func renderNode(n *html.Node, b *strings.Builder) {
	if n.Type != html.ElementNode {
		if n.Type == html.TextNode {
			// Text directly under the body container is usually
			// whitespace between blocks.
			if s := strings.TrimSpace(n.Data); s != "" {
				b.WriteString(s)
				b.WriteString("\n\n")
			}
		}
		return
	}

	if skipElements[n.Data] {
		return
	}

	if prefix, ok := headingPrefix[n.Data]; ok {
		if text := inlineText(n); text != "" {
			b.WriteString("\n")
			b.WriteString(prefix)
			b.WriteString(text)
			b.WriteString("\n\n")
		}
		return
	}

	switch n.Data {
	case "pre":
		code := rawText(n)
		if strings.TrimSpace(code) == "" {
			return
		}
		b.WriteString("\n```")
		if lang := codeLanguage(n); lang != "" {
			b.WriteString(lang)
		}
		b.WriteString("\n")
		b.WriteString(strings.Trim(code, "\n"))
		b.WriteString("\n```\n\n")
	case "p":
		if text := inlineText(n); text != "" {
			b.WriteString(text)
			b.WriteString("\n\n")
		}
	case "li":
		if text := inlineText(n); text != "" {
			b.WriteString("- ")
			b.WriteString(text)
			b.WriteString("\n")
		}
	case "table":
		if text := inlineText(n); text != "" {
			b.WriteString(text)
			b.WriteString("\n\n")
		}
	case "ul", "ol":
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			renderNode(c, b)
		}
		b.WriteString("\n")
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			renderNode(c, b)
		}
	}
}

// inlineText flattens an element to a single line, collapsing whitespace.
func inlineText(n *html.Node) string {
	return strings.Join(strings.Fields(rawText(n)), " ")
}

// rawText concatenates text nodes preserving internal whitespace, which
// matters inside <pre> blocks.
func rawText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode && skipElements[n.Data] {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// codeLanguage looks for a language-<name> class on the <pre> or its
// nested <code> element.
func codeLanguage(n *html.Node) string {
	if lang := classLanguage(n); lang != "" {
		return lang
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "code" {
			if lang := classLanguage(c); lang != "" {
				return lang
			}
		}
	}
	return ""
}

func classLanguage(n *html.Node) string {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, class := range strings.Fields(attr.Val) {
			if rest, ok := strings.CutPrefix(class, "language-"); ok {
				return rest
			}
		}
	}
	return ""
}

// tidyMarkdown collapses runs of blank lines left behind by rendering.
func tidyMarkdown(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	blank := 0
	inFence := false
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
		}
		if !inFence && strings.TrimSpace(line) == "" {
			blank++
			if blank > 1 {
				continue
			}
			out = append(out, "")
			continue
		}
		blank = 0
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
