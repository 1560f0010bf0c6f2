// Package dcc implements the DCC CHAT party line. Registered users carrying
// the DCC flag can open a direct chat with the bot, authenticate with their
// password and talk to each other; '.'-prefixed lines run commands.
package dcc

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kmarcin/opal/internal/command"
	"github.com/kmarcin/opal/internal/user"
	"github.com/kmarcin/opal/internal/util"
)

const maxPasswordAttempts = 3

// Manager accepts DCC CHAT offers and runs the sessions.
type Manager struct {
	users      *user.Registry
	dispatcher *command.Dispatcher

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager builds a party line over the given user registry and command
// dispatcher.
func NewManager(users *user.Registry, dispatcher *command.Dispatcher) *Manager {
	return &Manager{
		users:      users,
		dispatcher: dispatcher,
		sessions:   make(map[string]*Session),
	}
}

// HandleOffer processes one CTCP DCC payload ("DCC CHAT chat <ip> <port>")
// from nick!ident@host. Offers from users without the DCC flag are ignored
// without a response; the bot does not advertise the party line.
func (m *Manager) HandleOffer(nick, ident, host, payload string) {
	addr, ok := parseChatOffer(payload)
	if !ok {
		util.Debug("DCC: ignoring malformed offer from %s: %q", nick, payload)
		return
	}

	hostmask := nick + "!" + ident + "@" + host
	u := m.users.FindByHostmask(hostmask)
	if u == nil || !u.Has(user.FlagDCC) {
		util.Debug("DCC: ignoring chat offer from unauthorized %s", hostmask)
		return
	}
	if u.PasswordHash == "" {
		util.Info("DCC: %s has no password set, refusing chat", u.Name)
		return
	}

	util.Info("DCC: accepting chat offer from %s (%s) at %s", u.Name, hostmask, addr)
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		util.Error("DCC: connect to %s failed: %v", addr, err)
		return
	}
	go m.runSession(conn, u, nick, ident, host)
}

// parseChatOffer extracts the dial address from a DCC CHAT payload. The ip
// field is either a packed 32-bit integer or a textual IPv4/IPv6 address.
func parseChatOffer(payload string) (string, bool) {
	fields := strings.Fields(payload)
	if len(fields) < 4 || !strings.EqualFold(fields[0], "DCC") || !strings.EqualFold(fields[1], "CHAT") {
		return "", false
	}
	i := 2
	if strings.EqualFold(fields[i], "chat") {
		i++
	}
	if len(fields) < i+2 {
		return "", false
	}
	ipStr, portStr := fields[i], fields[i+1]

	if n, err := strconv.ParseUint(ipStr, 10, 32); err == nil {
		ipStr = packedIP(uint32(n)).String()
	} else if net.ParseIP(ipStr) == nil {
		return "", false
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", false
	}
	return net.JoinHostPort(ipStr, strconv.Itoa(port)), true
}

func packedIP(n uint32) net.IP {
	return net.IPv4(byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
}

// Session is one authenticated party line connection.
type Session struct {
	ID   string
	User string

	conn net.Conn
	mu   sync.Mutex
}

// Write sends one line to the session's client.
func (s *Session) Write(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.conn, "%s\r\n", text)
}

func (m *Manager) runSession(conn net.Conn, u *user.User, nick, ident, host string) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)

	fmt.Fprintf(conn, "Password:\r\n")
	authed := false
	for attempt := 0; attempt < maxPasswordAttempts && scanner.Scan(); attempt++ {
		if u.CheckPassword(strings.TrimSpace(scanner.Text())) {
			authed = true
			break
		}
		fmt.Fprintf(conn, "Password:\r\n")
	}
	if !authed {
		util.Warning("DCC: authentication failed for %s", u.Name)
		return
	}

	sess := &Session{ID: uuid.NewString(), User: u.Name, conn: conn}
	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.sessions, sess.ID)
		m.mu.Unlock()
		m.Broadcast("", fmt.Sprintf("*** %s left the party line", u.Name))
	}()

	util.Info("DCC: %s joined the party line (session %s)", u.Name, sess.ID)
	sess.Write(fmt.Sprintf("Welcome, %s. Lines starting with '%s' run commands, anything else goes to the party line.",
		u.Name, m.dispatcher.Prefix()))
	m.Broadcast(sess.ID, fmt.Sprintf("*** %s joined the party line", u.Name))

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, m.dispatcher.Prefix()) {
			m.dispatcher.Handle(&command.Message{
				Source:          command.SourceDCC,
				Nick:            nick,
				Ident:           ident,
				Host:            host,
				Text:            line,
				AuthenticatedAs: u.Name,
				Reply:           sess.Write,
			})
			continue
		}
		m.Broadcast(sess.ID, fmt.Sprintf("<%s> %s", u.Name, line))
	}
	if err := scanner.Err(); err != nil {
		util.Debug("DCC: session %s read error: %v", sess.ID, err)
	}
}

// Broadcast sends a line to every session except the one named by exceptID.
func (m *Manager) Broadcast(exceptID, text string) {
	m.mu.Lock()
	targets := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		if id != exceptID {
			targets = append(targets, s)
		}
	}
	m.mu.Unlock()
	for _, s := range targets {
		s.Write(text)
	}
}

// Active returns the user names behind the current sessions.
func (m *Manager) Active() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.sessions))
	for _, s := range m.sessions {
		names = append(names, s.User)
	}
	return names
}

// Close tears down every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.conn.Close()
	}
}
