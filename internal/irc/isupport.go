// Package irc holds protocol bookkeeping that is independent of the
// connection itself, currently the RPL_ISUPPORT (005) parameter table.
package irc

import (
	"strconv"
	"strings"
	"sync"
)

// DefaultMaxModes is the MODE target count assumed before the server has
// advertised MODES, matching the conventional server default.
const DefaultMaxModes = 4

// ISupport accumulates the key/value parameters a server advertises in its
// 005 numerics. Servers send several 005 lines; each call to Parse merges
// more tokens into the table.
type ISupport struct {
	mu     sync.RWMutex
	params map[string]string
}

func NewISupport() *ISupport {
	return &ISupport{params: make(map[string]string)}
}

// Parse merges the parameter tokens of one 005 line. The caller passes the
// numeric's arguments without the leading client nick and without the
// trailing "are supported by this server" text; Parse also tolerates the
// trailing text being left in, since it contains no '=' and later lookups
// of its words are meaningless anyway.
func (s *ISupport) Parse(tokens []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tok := range tokens {
		if tok == "" || strings.Contains(tok, " ") {
			continue
		}
		if neg := strings.TrimPrefix(tok, "-"); neg != tok {
			delete(s.params, strings.ToUpper(neg))
			continue
		}
		key, value, _ := strings.Cut(tok, "=")
		s.params[strings.ToUpper(key)] = value
	}
}

// Get returns the advertised value for a parameter and whether the server
// advertised it at all. Value-less flags report ("", true).
func (s *ISupport) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.params[strings.ToUpper(key)]
	return v, ok
}

// Int returns a numeric parameter, or the fallback when the parameter is
// absent or not a number.
func (s *ISupport) Int(key string, fallback int) int {
	v, ok := s.Get(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// MaxModes returns the advertised MODES limit, the number of targets one
// MODE command may carry, falling back to DefaultMaxModes.
func (s *ISupport) MaxModes() int {
	return s.Int("MODES", DefaultMaxModes)
}

// Network returns the advertised network name, or empty.
func (s *ISupport) Network() string {
	v, _ := s.Get("NETWORK")
	return v
}

// Reset clears the table, for reconnects to a possibly different server.
func (s *ISupport) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params = make(map[string]string)
}
