package game

import (
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

// all returns a snapshot of everything sent so far.
func (f *fakeClient) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

func (f *fakeClient) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return ""
	}
	return f.messages[len(f.messages)-1]
}
func (f *fakeClient) SendNotice(target, message string)                {}
func (f *fakeClient) SetMode(channel, modes string, targets ...string) {}
func (f *fakeClient) JoinChannel(channel string)                       {}
func (f *fakeClient) PartChannel(channel string)                       {}
func (f *fakeClient) Kick(channel, nick, reason string)                {}
func (f *fakeClient) ChangeNick(newNick string)                        {}
func (f *fakeClient) SendRaw(line string)                              {}
func (f *fakeClient) HasOp(channel string) bool                        { return true }
func (f *fakeClient) MaxModeTargets() int                              { return 4 }
func (f *fakeClient) Quit(message string)                              {}

func TestStartAnnouncesScrambledWord(t *testing.T) {
	client := &fakeClient{}
	m := NewManager(client, []string{"penguin"}, 0)

	if err := m.Start("#chan"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !m.Running("#chan") {
		t.Error("session should be running")
	}
	sent := client.all()
	if len(sent) != 1 || !strings.HasPrefix(sent[0], "#chan: Unscramble this: ") {
		t.Fatalf("announcement = %v", sent)
	}
	scrambled := strings.TrimPrefix(sent[0], "#chan: Unscramble this: ")
	if len(scrambled) != len("penguin") {
		t.Errorf("scrambled = %q, wrong length", scrambled)
	}

	if err := m.Start("#chan"); err != ErrGameRunning {
		t.Errorf("second Start = %v, want ErrGameRunning", err)
	}
}

func TestGuessWinsCaseInsensitive(t *testing.T) {
	client := &fakeClient{}
	m := NewManager(client, []string{"penguin"}, 0)
	m.Start("#chan")

	if m.Guess("#chan", "bob", "walrus") {
		t.Error("wrong guess should not win")
	}
	if !m.Guess("#chan", "bob", "  PENGUIN ") {
		t.Error("correct guess should win regardless of case and spacing")
	}
	if m.Running("#chan") {
		t.Error("session should be over after a win")
	}
	last := client.last()
	if !strings.Contains(last, "bob got it") {
		t.Errorf("winner announcement = %q", last)
	}

	if m.Guess("#chan", "bob", "penguin") {
		t.Error("guessing with no session should not win")
	}
}

func TestGuessIgnoresOtherChannels(t *testing.T) {
	client := &fakeClient{}
	m := NewManager(client, []string{"penguin"}, 0)
	m.Start("#chan")

	if m.Guess("#other", "bob", "penguin") {
		t.Error("guess in another channel should not win")
	}
	if !m.Running("#chan") {
		t.Error("session should still be running")
	}
}

func TestStopRevealsWord(t *testing.T) {
	client := &fakeClient{}
	m := NewManager(client, []string{"penguin"}, 0)

	if err := m.Stop("#chan"); err != ErrNoGame {
		t.Errorf("Stop without session = %v, want ErrNoGame", err)
	}

	m.Start("#chan")
	if err := m.Stop("#chan"); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	last := client.last()
	if !strings.Contains(last, "penguin") {
		t.Errorf("stop announcement should reveal the word, got %q", last)
	}
}

func TestSessionExpires(t *testing.T) {
	client := &fakeClient{}
	m := NewManager(client, []string{"penguin"}, 20*time.Millisecond)
	m.Start("#chan")

	// The expiry announcement lands after the session is removed, so poll
	// for the message rather than the session state.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if strings.Contains(client.last(), "Time's up") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("session did not expire")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if m.Running("#chan") {
		t.Error("session should be gone after expiry")
	}
}

func TestStopAll(t *testing.T) {
	client := &fakeClient{}
	m := NewManager(client, []string{"penguin"}, 0)
	m.Start("#a")
	m.Start("#b")
	m.StopAll()
	if m.Running("#a") || m.Running("#b") {
		t.Error("StopAll should end every session")
	}
}
