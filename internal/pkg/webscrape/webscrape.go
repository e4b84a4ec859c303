// Package webscrape fetches a web page and reduces it to its title and main
// readable text.
package webscrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	maxBodyBytes     = 10 << 20
)

var ErrInvalidURL = errors.New("invalid url")

// Elements stripped before text extraction.
const noiseSelector = "script, style, noscript, nav, footer, header, aside, .ads, .advertisement"

// Candidate main-content containers, most specific first.
var contentSelectors = []string{"article", "main", ".content", ".post"}

type Page struct {
	URL   string
	Title string
	Text  string
}

type Scraper struct {
	client    *http.Client
	userAgent string
}

func New(timeout time.Duration, userAgent string) *Scraper {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Scraper{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

func (s *Scraper) Fetch(ctx context.Context, rawURL string) (Page, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Page{}, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Page{}, fmt.Errorf("build page request failed: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("fetch page failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Page{}, fmt.Errorf("fetch page failed: status %d", resp.StatusCode)
	}
	return Parse(io.LimitReader(resp.Body, maxBodyBytes), u.String())
}

// Parse extracts the title and main text from an HTML document. The title
// falls back to the first h1 and then to pageURL.
func Parse(r io.Reader, pageURL string) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Page{}, fmt.Errorf("parse html failed: %w", err)
	}
	doc.Find(noiseSelector).Remove()

	title := collapse(doc.Find("title").First().Text())
	if title == "" {
		title = collapse(doc.Find("h1").First().Text())
	}
	if title == "" {
		title = pageURL
	}

	return Page{URL: pageURL, Title: title, Text: mainText(doc)}, nil
}

var blockElements = map[string]bool{
	"address": true, "article": true, "blockquote": true, "br": true, "dd": true, "div": true,
	"dl": true, "dt": true, "figcaption": true, "figure": true, "footer": true, "h1": true,
	"h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "header": true, "hr": true,
	"li": true, "main": true, "ol": true, "p": true, "pre": true, "section": true,
	"table": true, "td": true, "th": true, "tr": true, "ul": true,
}

func mainText(doc *goquery.Document) string {
	for _, sel := range contentSelectors {
		var parts []string
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if t := blockText(s); t != "" {
				parts = append(parts, t)
			}
		})
		if len(parts) > 0 {
			return strings.Join(parts, " ")
		}
	}
	return blockText(doc.Find("body"))
}

// blockText returns the text under s in document order, with a space
// wherever a block-level element starts or ends. Selection.Text concatenates
// text nodes directly, which fuses words across element boundaries.
func blockText(s *goquery.Selection) string {
	var b strings.Builder
	s.Each(func(_ int, el *goquery.Selection) {
		writeText(&b, el)
		b.WriteByte(' ')
	})
	return collapse(b.String())
}

func writeText(b *strings.Builder, s *goquery.Selection) {
	s.Contents().Each(func(_ int, n *goquery.Selection) {
		name := goquery.NodeName(n)
		switch {
		case name == "#text":
			b.WriteString(n.Text())
		case strings.HasPrefix(name, "#"):
		case blockElements[name]:
			b.WriteByte(' ')
			writeText(b, n)
			b.WriteByte(' ')
		default:
			writeText(b, n)
		}
	})
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
