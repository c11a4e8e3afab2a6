package platform

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// parseOpenGraph collects og:* meta properties. A page <title> fills in
// og:title when the tag is missing.
func parseOpenGraph(r io.Reader) (map[string]string, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	out := map[string]string{}
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "meta":
				var property, content string
				for _, a := range n.Attr {
					switch strings.ToLower(a.Key) {
					case "property", "name":
						property = strings.ToLower(strings.TrimSpace(a.Val))
					case "content":
						content = strings.TrimSpace(a.Val)
					}
				}
				if strings.HasPrefix(property, "og:") {
					if _, seen := out[property]; !seen {
						out[property] = content
					}
				}
			case "title":
				if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	if out["og:title"] == "" && title != "" {
		out["og:title"] = title
	}
	return out, nil
}
