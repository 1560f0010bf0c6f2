package links

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeClient struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeClient) CurrentNick() string { return "opal" }
func (f *fakeClient) SendMessage(target, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, target+": "+message)
}
func (f *fakeClient) SendNotice(target, message string)                {}
func (f *fakeClient) SetMode(channel, modes string, targets ...string) {}
func (f *fakeClient) JoinChannel(channel string)                       {}
func (f *fakeClient) PartChannel(channel string)                       {}
func (f *fakeClient) Kick(channel, nick, reason string)                {}
func (f *fakeClient) ChangeNick(newNick string)                        {}
func (f *fakeClient) SendRaw(line string)                              {}
func (f *fakeClient) HasOp(channel string) bool                        { return false }
func (f *fakeClient) MaxModeTargets() int                              { return 4 }
func (f *fakeClient) Quit(message string)                              {}

func (f *fakeClient) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

func serveHTML(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTitleExtraction(t *testing.T) {
	srv := serveHTML(t, `<html><head><title>  An   Example
Page </title></head><body><h1>hi</h1></body></html>`)

	title, err := Title(context.Background(), srv.Client(), srv.URL)
	if err != nil {
		t.Fatalf("Title: %v", err)
	}
	if title != "An Example Page" {
		t.Errorf("title = %q, want %q", title, "An Example Page")
	}
}

func TestTitleTruncation(t *testing.T) {
	srv := serveHTML(t, "<title>"+strings.Repeat("x", 500)+"</title>")

	title, err := Title(context.Background(), srv.Client(), srv.URL)
	if err != nil {
		t.Fatalf("Title: %v", err)
	}
	if len(title) != maxTitleLen+len("...") || !strings.HasSuffix(title, "...") {
		t.Errorf("title length = %d, want truncated to %d plus ellipsis", len(title), maxTitleLen)
	}
}

func TestTitleRejectsNonHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte{0xde, 0xad})
	}))
	defer srv.Close()

	if _, err := Title(context.Background(), srv.Client(), srv.URL); err == nil {
		t.Error("binary content should not yield a title")
	}
}

func TestTitleRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	if _, err := Title(context.Background(), srv.Client(), srv.URL); err == nil {
		t.Error("404 should not yield a title")
	}
}

func TestTitleRejectsUntitledPage(t *testing.T) {
	srv := serveHTML(t, "<html><body>no title here</body></html>")

	if _, err := Title(context.Background(), srv.Client(), srv.URL); err == nil {
		t.Error("page without <title> should not yield a title")
	}
}

func TestScanAnnouncesTitle(t *testing.T) {
	srv := serveHTML(t, "<title>Hello</title>")
	client := &fakeClient{}
	a := New(client, 2*time.Second)
	a.httpc = srv.Client()

	a.Scan("#chan", "check this out: "+srv.URL+" pretty neat")

	deadline := time.Now().Add(2 * time.Second)
	for {
		if sent := client.all(); len(sent) > 0 {
			if sent[0] != "#chan: Title: Hello" {
				t.Errorf("announcement = %q", sent[0])
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("no announcement")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestScanIgnoresPlainChatter(t *testing.T) {
	client := &fakeClient{}
	a := New(client, time.Second)

	a.Scan("#chan", "no links in this line")
	a.Scan("#chan", "ftp://old.example.net/file is not fetched")

	time.Sleep(20 * time.Millisecond)
	if sent := client.all(); len(sent) != 0 {
		t.Errorf("nothing should be announced, got %v", sent)
	}
}

func TestLimiterBudget(t *testing.T) {
	a := New(&fakeClient{}, time.Second)

	l := a.limiter("#chan")
	allowed := 0
	for i := 0; i < 10; i++ {
		if l.Allow() {
			allowed++
		}
	}
	if allowed != 3 {
		t.Errorf("burst allowed %d announcements, want 3", allowed)
	}
	if a.limiter("#other").Allow() != true {
		t.Error("channels have independent budgets")
	}
}
