package webscrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articlePage = `<!doctype html>
<html><head><title>  Go Concurrency
 Patterns </title><style>body{color:red}</style></head>
<body>
<header>Site header</header>
<nav>Home | About</nav>
<article><h1>Pipelines</h1><p>Channels   connect
stages.</p><script>track()</script><div class="ads">Buy now</div></article>
<aside>Related links</aside>
<footer>Copyright</footer>
</body></html>`

func TestParse_PrefersArticleAndStripsNoise(t *testing.T) {
	page, err := Parse(strings.NewReader(articlePage), "https://example.com/go")
	require.NoError(t, err)

	assert.Equal(t, "Go Concurrency Patterns", page.Title)
	assert.Equal(t, "Pipelines Channels connect stages.", page.Text)
	for _, noise := range []string{"Site header", "Home", "track()", "Buy now", "Related", "Copyright", "color:red"} {
		assert.NotContains(t, page.Text, noise)
	}
}

func TestParse_TitleFallbacks(t *testing.T) {
	page, err := Parse(strings.NewReader(`<html><body><h1> Only heading </h1><p>text</p></body></html>`), "https://x.test")
	require.NoError(t, err)
	assert.Equal(t, "Only heading", page.Title)
	assert.Equal(t, "Only heading text", page.Text)

	page, err = Parse(strings.NewReader(`<html><body><p>body text</p></body></html>`), "https://x.test/a")
	require.NoError(t, err)
	assert.Equal(t, "https://x.test/a", page.Title)
	assert.Equal(t, "body text", page.Text)
}

func TestParse_SeparatesBlocksKeepsInlineWords(t *testing.T) {
	html := `<html><body><main>
<h2>Fan-out</h2><p>Start <b>several</b> goroutines<br>to read from one <a href="#">chan</a>nel.</p>
<ul><li>first</li><li>second</li></ul><table><tr><td>a</td><td>b</td></tr></table>
</main></body></html>`
	page, err := Parse(strings.NewReader(html), "https://x.test")
	require.NoError(t, err)
	assert.Equal(t, "Fan-out Start several goroutines to read from one channel. first second a b", page.Text)
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/ok":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(articlePage))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	s := New(5*time.Second, "test-agent")

	page, err := s.Fetch(context.Background(), srv.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, "Go Concurrency Patterns", page.Title)

	_, err = s.Fetch(context.Background(), srv.URL+"/missing")
	assert.ErrorContains(t, err, "status 404")
}

func TestFetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	_, err := New(50*time.Millisecond, "").Fetch(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "fetch page failed")
}

func TestFetch_InvalidURL(t *testing.T) {
	s := New(0, "")
	for _, raw := range []string{"", "ftp://example.com/file", "not a url", "https://"} {
		_, err := s.Fetch(context.Background(), raw)
		assert.ErrorIs(t, err, ErrInvalidURL, raw)
	}
}
