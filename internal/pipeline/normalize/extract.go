package normalize

import (
	"strings"

	"golang.org/x/net/html"
)

// PageExtract is the structured view of one raw HTML page.
type PageExtract struct {
	Title          string
	Description    string
	CanonicalURL   string
	MetaTags       map[string]string
	Headings       []string
	LinkCount      int
	ImageCount     int
	StructuredData []string
	MainContent    string
	WordCount      int
}

// skipSubtree are elements that contribute nothing at all.
var skipSubtree = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"svg":      true,
	"iframe":   true,
}

// boilerplate are elements whose text never belongs in main content, but
// whose links and images still count toward the page totals.
var boilerplate = map[string]bool{
	"nav":    true,
	"header": true,
	"footer": true,
	"aside":  true,
	"form":   true,
}

// Extract parses raw HTML and pulls out the fields a ContentEntry carries.
// It tolerates malformed markup; html.Parse never fails on real-world pages,
// so an error here means the payload was not HTML at all.
func Extract(raw []byte) (*PageExtract, error) {
	doc, err := html.Parse(strings.NewReader(string(raw)))
	if err != nil {
		return nil, err
	}
	out := &PageExtract{MetaTags: map[string]string{}}
	var content strings.Builder
	var walk func(n *html.Node, collect bool)
	walk = func(n *html.Node, collect bool) {
		switch n.Type {
		case html.ElementNode:
			tag := strings.ToLower(n.Data)
			switch tag {
			case "title":
				if out.Title == "" {
					out.Title = collapseSpace(textOf(n))
				}
				return
			case "meta":
				name := strings.ToLower(attr(n, "name"))
				if name == "" {
					name = strings.ToLower(attr(n, "property"))
				}
				if v := attr(n, "content"); name != "" && v != "" {
					out.MetaTags[name] = v
					if out.Description == "" && (name == "description" || name == "og:description") {
						out.Description = collapseSpace(v)
					}
					if out.CanonicalURL == "" && name == "og:url" {
						out.CanonicalURL = strings.TrimSpace(v)
					}
				}
				return
			case "link":
				if strings.EqualFold(attr(n, "rel"), "canonical") {
					if href := strings.TrimSpace(attr(n, "href")); href != "" {
						out.CanonicalURL = href
					}
				}
				return
			case "h1", "h2", "h3":
				if collect {
					if h := collapseSpace(textOf(n)); h != "" {
						out.Headings = append(out.Headings, h)
					}
				}
			case "a":
				out.LinkCount++
			case "img":
				out.ImageCount++
			case "body":
				collect = true
			case "script":
				if strings.EqualFold(attr(n, "type"), "application/ld+json") {
					if data := strings.TrimSpace(textOf(n)); data != "" {
						out.StructuredData = append(out.StructuredData, data)
					}
				}
				return
			}
			if skipSubtree[tag] {
				return
			}
			if boilerplate[tag] {
				collect = false
			}
		case html.TextNode:
			if collect {
				if t := strings.TrimSpace(n.Data); t != "" {
					content.WriteString(t)
					content.WriteString(" ")
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, collect)
		}
	}
	walk(doc, false)
	out.MainContent = collapseSpace(content.String())
	out.WordCount = len(strings.Fields(out.MainContent))
	return out, nil
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
