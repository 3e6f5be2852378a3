package convert

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/tlhuang/manualrag/internal/md"
)

// HTML converts an HTML page to markdown. Heading tags map to hash
// headings (h4 and deeper collapse to three hashes), list items become
// dash bullets, and inline images keep their source as a bare reference so
// the captioning pass can pick them up.
func HTML(data []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var out strings.Builder
	emit := func(line string) {
		if out.Len() > 0 {
			out.WriteString("\n")
		}
		out.WriteString(line)
		out.WriteString("\n")
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := tagLevel(n.Data); level != md.None {
				if text := textContent(n); text != "" {
					emit(md.Heading(text, level))
				}
				return
			}
			switch n.Data {
			case "script", "style", "nav", "footer", "header":
				return
			case "img":
				if src := attr(n, "src"); src != "" {
					emit(md.Image("", src))
				}
				return
			case "li":
				if text := textContent(n); text != "" {
					emit("- " + text)
				}
				return
			case "p", "td", "blockquote":
				if text := textContent(n); text != "" {
					emit(text)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findBody(doc); body != nil {
		walk(body)
	} else {
		walk(doc)
	}
	return out.String(), nil
}

func tagLevel(tag string) md.Level {
	switch tag {
	case "h1":
		return md.H1
	case "h2":
		return md.H2
	case "h3", "h4", "h5", "h6":
		return md.H3
	}
	return md.None
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
