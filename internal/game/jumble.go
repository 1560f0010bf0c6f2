// Package game runs per-channel word jumble sessions: the bot scrambles a
// word, the first correct guess in the channel wins.
package game

import (
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/kmarcin/opal/internal/types"
	"github.com/kmarcin/opal/internal/util"
)

var (
	// ErrGameRunning is returned when a channel already has a session.
	ErrGameRunning = errors.New("a game is already running in this channel")
	// ErrNoGame is returned when stopping a channel without a session.
	ErrNoGame = errors.New("no game is running in this channel")
)

var defaultWords = []string{
	"keyboard", "penguin", "sandwich", "umbrella", "lighthouse",
	"carnival", "whisper", "molasses", "parachute", "labyrinth",
	"hurricane", "telescope", "caravan", "porcupine", "avalanche",
}

// session is one channel's running game.
type session struct {
	word      string
	scrambled string
	timer     *time.Timer
}

// Manager owns all sessions. Safe for concurrent use from the event loop.
type Manager struct {
	client  types.IRCClient
	words   []string
	timeout time.Duration
	rng     *rand.Rand

	mu       sync.Mutex
	sessions map[string]*session
}

// NewManager builds a manager. An empty word list falls back to a built-in
// one; a zero timeout means sessions never expire on their own.
func NewManager(client types.IRCClient, words []string, timeout time.Duration) *Manager {
	if len(words) == 0 {
		words = defaultWords
	}
	return &Manager{
		client:   client,
		words:    words,
		timeout:  timeout,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		sessions: make(map[string]*session),
	}
}

// Start begins a session in the channel and announces the scrambled word.
func (m *Manager) Start(channel string) error {
	m.mu.Lock()
	if _, running := m.sessions[channel]; running {
		m.mu.Unlock()
		return ErrGameRunning
	}

	word := m.words[m.rng.Intn(len(m.words))]
	s := &session{word: word, scrambled: m.scramble(word)}
	if m.timeout > 0 {
		s.timer = time.AfterFunc(m.timeout, func() { m.expire(channel) })
	}
	m.sessions[channel] = s
	m.mu.Unlock()

	util.Debug("Game: started on %s, word %s", channel, word)
	m.client.SendMessage(channel, "Unscramble this: "+s.scrambled)
	return nil
}

// Stop ends the channel's session without a winner.
func (m *Manager) Stop(channel string) error {
	s := m.take(channel)
	if s == nil {
		return ErrNoGame
	}
	m.client.SendMessage(channel, "Game over. The word was: "+s.word)
	return nil
}

// Guess checks a plain channel line against the running session, if any.
// Reports whether the line won the game.
func (m *Manager) Guess(channel, nick, text string) bool {
	guess := strings.ToLower(strings.TrimSpace(text))
	if guess == "" {
		return false
	}

	m.mu.Lock()
	s, running := m.sessions[channel]
	if !running || guess != strings.ToLower(s.word) {
		m.mu.Unlock()
		return false
	}
	delete(m.sessions, channel)
	if s.timer != nil {
		s.timer.Stop()
	}
	m.mu.Unlock()

	util.Info("Game: %s won on %s with %s", nick, channel, s.word)
	m.client.SendMessage(channel, nick+" got it! The word was: "+s.word)
	return true
}

// Running reports whether the channel has an active session.
func (m *Manager) Running(channel string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, running := m.sessions[channel]
	return running
}

// StopAll ends every session quietly. Used at shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for channel, s := range m.sessions {
		if s.timer != nil {
			s.timer.Stop()
		}
		delete(m.sessions, channel)
	}
}

func (m *Manager) expire(channel string) {
	s := m.take(channel)
	if s == nil {
		return
	}
	m.client.SendMessage(channel, "Time's up! The word was: "+s.word)
}

// take removes and returns the channel's session, or nil.
func (m *Manager) take(channel string) *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, running := m.sessions[channel]
	if !running {
		return nil
	}
	delete(m.sessions, channel)
	if s.timer != nil {
		s.timer.Stop()
	}
	return s
}

// scramble shuffles the word's letters, retrying a few times if the shuffle
// lands back on the original. Caller holds m.mu.
func (m *Manager) scramble(word string) string {
	runes := []rune(word)
	for attempt := 0; attempt < 5; attempt++ {
		m.rng.Shuffle(len(runes), func(i, j int) {
			runes[i], runes[j] = runes[j], runes[i]
		})
		if string(runes) != word {
			break
		}
	}
	return string(runes)
}
