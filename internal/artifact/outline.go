package artifact

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

const maxTextLen = 80

// Outline renders a compact, indented text outline of an HTML document,
// capped at maxNodes element nodes. Script, style, and head subtrees
// are skipped; leading text of each element is trimmed and truncated.
func Outline(src string, maxNodes int) string {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return ""
	}

	var b strings.Builder
	remaining := maxNodes
	walkOutline(&b, doc, 0, &remaining)
	if remaining <= 0 {
		b.WriteString("\t... (truncated)\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func walkOutline(b *strings.Builder, n *html.Node, depth int, remaining *int) {
	if *remaining <= 0 {
		return
	}

	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "noscript", "head":
			return
		}
		*remaining--

		b.WriteString(strings.Repeat("\t", depth))
		b.WriteString(n.Data)
		for _, attr := range n.Attr {
			switch attr.Key {
			case "id":
				fmt.Fprintf(b, "#%s", attr.Val)
			case "class":
				for _, cls := range strings.Fields(attr.Val) {
					fmt.Fprintf(b, ".%s", cls)
				}
			}
		}
		if text := ownText(n); text != "" {
			fmt.Fprintf(b, " %q", text)
		}
		b.WriteString("\n")
		depth++
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		walkOutline(b, child, depth, remaining)
	}
}

// ownText returns the element's immediate text content, collapsed and
// truncated.
func ownText(n *html.Node) string {
	var parts []string
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			if s := strings.TrimSpace(child.Data); s != "" {
				parts = append(parts, s)
			}
		}
	}
	text := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	if len(text) > maxTextLen {
		text = text[:maxTextLen] + "..."
	}
	return text
}
