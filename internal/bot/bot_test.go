package bot

import (
	"testing"

	ircevo "github.com/kofany/go-ircevo"

	"github.com/kmarcin/opal/internal/config"
	"github.com/kmarcin/opal/internal/user"
)

func newTestBot(t *testing.T) *Bot {
	t.Helper()
	users, err := user.NewRegistry(nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	cfg := &config.Config{Nick: "opal"}
	return New(cfg, users)
}

func TestModeTracksOwnOpStatus(t *testing.T) {
	b := newTestBot(t)

	b.handleMode(&ircevo.Event{Arguments: []string{"#chan", "+o", "opal"}})
	if !b.HasOp("#chan") {
		t.Error("+o opal should grant op")
	}

	// Other people's ops do not change our status.
	b.handleMode(&ircevo.Event{Arguments: []string{"#chan", "-o", "someone"}})
	if !b.HasOp("#chan") {
		t.Error("-o someone should not touch our op status")
	}

	b.handleMode(&ircevo.Event{Arguments: []string{"#chan", "-o", "opal"}})
	if b.HasOp("#chan") {
		t.Error("-o opal should remove op")
	}
}

func TestModeMixedParameters(t *testing.T) {
	b := newTestBot(t)

	// The o for the bot is the second parameter-taking mode.
	b.handleMode(&ircevo.Event{Arguments: []string{"#chan", "+vo", "alice", "opal"}})
	if !b.HasOp("#chan") {
		t.Error("+vo alice opal should grant op")
	}

	b.handleMode(&ircevo.Event{Arguments: []string{"#chan", "+b-o", "*!*@spam", "opal"}})
	if b.HasOp("#chan") {
		t.Error("+b-o *!*@spam opal should remove op")
	}
}

func TestModeIgnoresNonChannelTargets(t *testing.T) {
	b := newTestBot(t)
	b.handleMode(&ircevo.Event{Arguments: []string{"opal", "+i"}})
	if b.HasOp("opal") {
		t.Error("user mode must not create channel op state")
	}
}

func TestNamesLearnsInitialOpStatus(t *testing.T) {
	b := newTestBot(t)

	b.handleNames(&ircevo.Event{Arguments: []string{"opal", "=", "#chan", "alice @opal +bob"}})
	if !b.HasOp("#chan") {
		t.Error("@opal in NAMES should grant op")
	}

	b.handleNames(&ircevo.Event{Arguments: []string{"opal", "=", "#other", "alice +opal bob"}})
	if b.HasOp("#other") {
		t.Error("+opal in NAMES is voice, not op")
	}
}

func TestEventHostmaskSubstitution(t *testing.T) {
	got := eventHostmask(&ircevo.Event{Nick: "bob", User: "ident", Host: "example.net"})
	if got != "bob!ident@example.net" {
		t.Errorf("eventHostmask = %q", got)
	}
	got = eventHostmask(&ircevo.Event{Nick: "bob"})
	if got != "bob!*@*" {
		t.Errorf("eventHostmask with missing parts = %q", got)
	}
}
