// Package links watches plain channel chatter for URLs and announces the
// page title of the first one per line.
package links

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"
	"mvdan.cc/xurls/v2"

	"github.com/kmarcin/opal/internal/types"
	"github.com/kmarcin/opal/internal/util"
)

// maxBodyBytes caps how much of a page is read looking for <title>.
const maxBodyBytes = 256 << 10

// maxTitleLen caps what gets announced to the channel.
const maxTitleLen = 200

// Announcer scans channel lines for URLs. Fetches run off the event loop
// with a bounded timeout, and each channel is rate-limited so a paste of
// twenty links does not become twenty announcements.
type Announcer struct {
	client  types.IRCClient
	httpc   *http.Client
	urlRx   *regexp.Regexp
	timeout time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New builds an announcer with the given per-fetch timeout.
func New(client types.IRCClient, timeout time.Duration) *Announcer {
	return &Announcer{
		client:   client,
		httpc:    &http.Client{Timeout: timeout},
		urlRx:    xurls.Strict(),
		timeout:  timeout,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Scan inspects one plain channel line. If it carries a URL and the channel
// is under its announcement budget, the title is fetched and announced
// asynchronously.
func (a *Announcer) Scan(channel, text string) {
	rawURL := a.urlRx.FindString(text)
	if rawURL == "" {
		return
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return
	}
	if !a.limiter(channel).Allow() {
		util.Debug("Links: rate limit hit on %s, skipping %s", channel, rawURL)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()

		title, err := Title(ctx, a.httpc, rawURL)
		if err != nil {
			util.Debug("Links: no title for %s: %v", rawURL, err)
			return
		}
		a.client.SendMessage(channel, "Title: "+title)
	}()
}

// limiter returns the channel's announcement limiter: a small burst, then
// one announcement every ten seconds.
func (a *Announcer) limiter(channel string) *rate.Limiter {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, exists := a.limiters[channel]
	if !exists {
		l = rate.NewLimiter(rate.Every(10*time.Second), 3)
		a.limiters[channel] = l
	}
	return l
}

// Fetch looks up the title of one URL synchronously, for the TITLE command.
func (a *Announcer) Fetch(rawURL string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	return Title(ctx, a.httpc, rawURL)
}

// Title fetches a page and extracts its <title> text. It follows the pure
// lookup contract the other scraping integrations plug in through: context,
// query in, one line of text out.
func Title(ctx context.Context, httpc *http.Client, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "opal/1.0")

	resp, err := httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return "", fmt.Errorf("not an HTML page: %s", ct)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", err
	}

	title := findTitle(doc)
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		return "", fmt.Errorf("page has no title")
	}
	if len(title) > maxTitleLen {
		title = title[:maxTitleLen] + "..."
	}
	return title, nil
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		var sb strings.Builder
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				sb.WriteString(c.Data)
			}
		}
		return sb.String()
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if title := findTitle(c); title != "" {
			return title
		}
	}
	return ""
}
