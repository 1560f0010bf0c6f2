package command

import (
	"reflect"
	"testing"
)

func noopHandler(ctx *Context, inv *Invocation) error { return nil }

func TestResolveCaseInsensitive(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&Descriptor{Names: []string{"JOIN"}, Handler: noopHandler})

	for _, name := range []string{"JOIN", "join", "Join"} {
		if reg.Resolve(name) == nil {
			t.Errorf("Resolve(%q) should find the command", name)
		}
	}
	if reg.Resolve("PART") != nil {
		t.Error("Resolve should not invent commands")
	}
}

func TestAliasesShareDescriptor(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&Descriptor{Names: []string{"BAN", "KICK", "BANKICK", "KICKBAN"}, Handler: noopHandler})

	d := reg.Resolve("ban")
	if d == nil {
		t.Fatal("BAN not resolved")
	}
	if reg.Resolve("kickban") != d {
		t.Error("Aliases should resolve to the same descriptor")
	}
	if d.Name() != "BAN" {
		t.Errorf("Canonical name should be BAN, got %s", d.Name())
	}
}

func TestCollisionLastWins(t *testing.T) {
	reg := NewRegistry()
	first := &Descriptor{Names: []string{"HELP"}, Handler: noopHandler}
	second := &Descriptor{Names: []string{"HELP"}, Handler: noopHandler}
	reg.Register(first)
	reg.Register(second)

	if reg.Resolve("HELP") != second {
		t.Error("Later registration should win on collision")
	}
}

func TestEnabledToggle(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&Descriptor{Names: []string{"JOIN"}, Handler: noopHandler})
	reg.Register(&Descriptor{Names: []string{"PART"}, Handler: noopHandler})

	if !reg.IsEnabled("join") {
		t.Error("Commands default to enabled")
	}
	if reg.IsEnabled("NOSUCH") {
		t.Error("Unknown commands are never enabled")
	}

	reg.SetDisabled([]string{"join"})
	if reg.IsEnabled("JOIN") {
		t.Error("JOIN should be disabled")
	}
	if !reg.IsEnabled("PART") {
		t.Error("PART should stay enabled")
	}
	if got, want := reg.EnabledNames(), []string{"PART"}; !reflect.DeepEqual(got, want) {
		t.Errorf("EnabledNames = %v, want %v", got, want)
	}

	// A config refresh clears the previous set.
	reg.SetDisabled(nil)
	if got, want := reg.EnabledNames(), []string{"JOIN", "PART"}; !reflect.DeepEqual(got, want) {
		t.Errorf("EnabledNames after refresh = %v, want %v", got, want)
	}
}
