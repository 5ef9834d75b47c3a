package normalize

import (
	"strings"
	"testing"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title>Acme Widgets — Home</title>
  <meta name="description" content="Acme builds reliable widgets.">
  <meta property="og:url" content="https://acme.example/home">
  <link rel="canonical" href="https://acme.example/">
  <script type="application/ld+json">{"@type":"Organization","name":"Acme Widgets"}</script>
  <style>body { color: red; }</style>
</head>
<body>
  <nav><a href="/about">About</a><a href="/pricing">Pricing</a></nav>
  <h1>Acme Widgets</h1>
  <h2>Our Services</h2>
  <p>Acme provides widgets for industrial clients. We are located in Springfield.</p>
  <p>Contact us at sales@acme.example or call +1 555 123 4567.</p>
  <img src="/logo.png"><img src="/hero.png">
  <script>console.log("tracking");</script>
  <footer>Copyright Acme</footer>
</body>
</html>`

func TestExtract(t *testing.T) {
	page, err := Extract([]byte(samplePage))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if page.Title != "Acme Widgets — Home" {
		t.Fatalf("title: got %q", page.Title)
	}
	if page.Description != "Acme builds reliable widgets." {
		t.Fatalf("description: got %q", page.Description)
	}
	if page.CanonicalURL != "https://acme.example/" {
		t.Fatalf("canonical: got %q", page.CanonicalURL)
	}
	if got := page.MetaTags["og:url"]; got != "https://acme.example/home" {
		t.Fatalf("og:url meta: got %q", got)
	}
	if len(page.Headings) != 2 || page.Headings[0] != "Acme Widgets" || page.Headings[1] != "Our Services" {
		t.Fatalf("headings: got %v", page.Headings)
	}
	if page.LinkCount != 2 {
		t.Fatalf("link count: got %d", page.LinkCount)
	}
	if page.ImageCount != 2 {
		t.Fatalf("image count: got %d", page.ImageCount)
	}
	if len(page.StructuredData) != 1 || !strings.Contains(page.StructuredData[0], "Organization") {
		t.Fatalf("structured data: got %v", page.StructuredData)
	}
	if strings.Contains(page.MainContent, "tracking") || strings.Contains(page.MainContent, "color: red") {
		t.Fatalf("script/style text leaked into content: %q", page.MainContent)
	}
	if strings.Contains(page.MainContent, "Pricing") {
		t.Fatalf("nav text leaked into content: %q", page.MainContent)
	}
	if !strings.Contains(page.MainContent, "industrial clients") {
		t.Fatalf("paragraph text missing from content: %q", page.MainContent)
	}
	if page.WordCount != len(strings.Fields(page.MainContent)) {
		t.Fatalf("word count mismatch: %d", page.WordCount)
	}
}

func TestExtractEmptyDocument(t *testing.T) {
	page, err := Extract([]byte(""))
	if err != nil {
		t.Fatalf("Extract empty: %v", err)
	}
	if page.Title != "" || page.WordCount != 0 || len(page.Headings) != 0 {
		t.Fatalf("empty document should extract nothing: %+v", page)
	}
}
