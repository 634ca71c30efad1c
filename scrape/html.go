package scrape

import (
	"strings"

	"golang.org/x/net/html"
)

// walk visits every node in document order until fn returns false.
func walk(node *html.Node, fn func(*html.Node) bool) bool {
	if !fn(node) {
		return false
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if !walk(child, fn) {
			return false
		}
	}
	return true
}

func findAll(root *html.Node, tags ...string) []*html.Node {
	want := make(map[string]bool, len(tags))
	for _, tag := range tags {
		want[tag] = true
	}
	var found []*html.Node
	walk(root, func(node *html.Node) bool {
		if node.Type == html.ElementNode && want[node.Data] {
			found = append(found, node)
		}
		return true
	})
	return found
}

func findFirst(root *html.Node, tags ...string) *html.Node {
	want := make(map[string]bool, len(tags))
	for _, tag := range tags {
		want[tag] = true
	}
	var found *html.Node
	walk(root, func(node *html.Node) bool {
		if node.Type == html.ElementNode && want[node.Data] {
			found = node
			return false
		}
		return true
	})
	return found
}

func attr(node *html.Node, name string) string {
	for _, a := range node.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func hasClass(node *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(node, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// nodeText flattens the text content of a subtree, separating block
// fragments with a space.
func nodeText(node *html.Node) string {
	var b strings.Builder
	walk(node, func(n *html.Node) bool {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		return true
	})
	return cleanText(b.String())
}

// cleanText collapses all whitespace runs to single spaces.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// metaDisallowed reports whether the page opts out of indexing via a
// robots meta tag.
func metaDisallowed(root *html.Node) bool {
	for _, meta := range findAll(root, "meta") {
		if !strings.EqualFold(attr(meta, "name"), "robots") {
			continue
		}
		content := strings.ToLower(attr(meta, "content"))
		if strings.Contains(content, "noindex") || strings.Contains(content, "nofollow") {
			return true
		}
	}
	return false
}

// contentSelectors are the blocks likely to hold the judgment text.
var contentSelectors = []struct {
	tag   string
	id    string
	class string
}{
	{tag: "main"},
	{tag: "article"},
	{id: "content"},
	{class: "content"},
	{id: "main"},
	{class: "hauptinhalt"},
}

// mainText extracts the dominant content text of a page: the longest
// qualifying content block over 500 characters, else the whole page.
func mainText(root *html.Node) string {
	var best string
	for _, sel := range contentSelectors {
		var nodes []*html.Node
		walk(root, func(n *html.Node) bool {
			if n.Type != html.ElementNode {
				return true
			}
			switch {
			case sel.tag != "" && n.Data == sel.tag:
				nodes = append(nodes, n)
			case sel.id != "" && attr(n, "id") == sel.id:
				nodes = append(nodes, n)
			case sel.class != "" && hasClass(n, sel.class):
				nodes = append(nodes, n)
			}
			return true
		})
		for _, node := range nodes {
			text := nodeText(node)
			if len(text) > 500 && len(text) > len(best) {
				best = text
			}
		}
	}
	if best != "" {
		return best
	}
	return nodeText(root)
}
