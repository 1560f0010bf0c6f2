package irc

import "testing"

func TestParseMergesLines(t *testing.T) {
	s := NewISupport()
	s.Parse([]string{"CHANTYPES=#", "MODES=6", "EXCEPTS"})
	s.Parse([]string{"NETWORK=TestNet", "NICKLEN=30"})

	if got := s.MaxModes(); got != 6 {
		t.Errorf("MaxModes = %d, want 6", got)
	}
	if got := s.Network(); got != "TestNet" {
		t.Errorf("Network = %q, want TestNet", got)
	}
	if v, ok := s.Get("excepts"); !ok || v != "" {
		t.Errorf("Get(excepts) = %q, %v; want flag present", v, ok)
	}
	if _, ok := s.Get("NOSUCH"); ok {
		t.Error("NOSUCH should be absent")
	}
}

func TestModesFallback(t *testing.T) {
	s := NewISupport()
	if got := s.MaxModes(); got != DefaultMaxModes {
		t.Errorf("MaxModes before 005 = %d, want %d", got, DefaultMaxModes)
	}

	s.Parse([]string{"MODES=garbage"})
	if got := s.MaxModes(); got != DefaultMaxModes {
		t.Errorf("MaxModes with bad value = %d, want %d", got, DefaultMaxModes)
	}

	// MODES with an empty value means unlimited on some servers; keep the
	// conservative default rather than flooding one MODE line.
	s.Parse([]string{"MODES="})
	if got := s.MaxModes(); got != DefaultMaxModes {
		t.Errorf("MaxModes with empty value = %d, want %d", got, DefaultMaxModes)
	}
}

func TestNegationRemovesParameter(t *testing.T) {
	s := NewISupport()
	s.Parse([]string{"MODES=8"})
	s.Parse([]string{"-MODES"})
	if got := s.MaxModes(); got != DefaultMaxModes {
		t.Errorf("MaxModes after -MODES = %d, want %d", got, DefaultMaxModes)
	}
}

func TestResetClearsTable(t *testing.T) {
	s := NewISupport()
	s.Parse([]string{"MODES=8", "NETWORK=Old"})
	s.Reset()
	if got := s.MaxModes(); got != DefaultMaxModes {
		t.Errorf("MaxModes after reset = %d, want %d", got, DefaultMaxModes)
	}
	if got := s.Network(); got != "" {
		t.Errorf("Network after reset = %q, want empty", got)
	}
}
