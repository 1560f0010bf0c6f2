package dcc

import "testing"

func TestParseChatOffer(t *testing.T) {
	tests := []struct {
		payload string
		want    string
		ok      bool
	}{
		{"DCC CHAT chat 2130706433 5000", "127.0.0.1:5000", true},
		{"DCC CHAT 2130706433 5000", "127.0.0.1:5000", true},
		{"dcc chat chat 192.168.1.10 4000", "192.168.1.10:4000", true},
		{"DCC CHAT chat ::1 4000", "[::1]:4000", true},
		{"DCC SEND file 2130706433 5000 123", "", false},
		{"DCC CHAT chat 2130706433", "", false},
		{"DCC CHAT chat notanip 5000", "", false},
		{"DCC CHAT chat 2130706433 99999", "", false},
		{"VERSION", "", false},
	}
	for _, tt := range tests {
		got, ok := parseChatOffer(tt.payload)
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseChatOffer(%q) = %q, %v; want %q, %v", tt.payload, got, ok, tt.want, tt.ok)
		}
	}
}

func TestPackedIP(t *testing.T) {
	if got := packedIP(2130706433).String(); got != "127.0.0.1" {
		t.Errorf("packedIP(2130706433) = %s, want 127.0.0.1", got)
	}
	if got := packedIP(0xC0A8010A).String(); got != "192.168.1.10" {
		t.Errorf("packedIP = %s, want 192.168.1.10", got)
	}
}
