// Package bot owns the IRC connection. It wires server events into the
// dispatcher, the auto-op queue and the auxiliary features, and implements
// the narrow client surface the rest of the program sends through.
package bot

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	ircevo "github.com/kofany/go-ircevo"

	"github.com/kmarcin/opal/internal/autoop"
	"github.com/kmarcin/opal/internal/command"
	"github.com/kmarcin/opal/internal/config"
	"github.com/kmarcin/opal/internal/dcc"
	"github.com/kmarcin/opal/internal/game"
	"github.com/kmarcin/opal/internal/irc"
	"github.com/kmarcin/opal/internal/links"
	"github.com/kmarcin/opal/internal/types"
	"github.com/kmarcin/opal/internal/user"
	"github.com/kmarcin/opal/internal/util"
)

const rejoinDelay = 30 * time.Second

var _ types.IRCClient = (*Bot)(nil)

// Bot is the connection owner. It implements types.IRCClient.
type Bot struct {
	cfg   *config.Config
	users *user.Registry

	conn     *ircevo.Connection
	isupport *irc.ISupport

	dispatcher *command.Dispatcher
	autoOps    *autoop.Queue
	games      *game.Manager
	links      *links.Announcer
	dccChats   *dcc.Manager

	isConnected atomic.Bool

	mu             sync.Mutex
	joinedChannels map[string]bool
	opChannels     map[string]bool
	quitting       bool
}

// New builds a bot for the given configuration. The collaborators are wired
// afterwards with the Set methods, before Connect.
func New(cfg *config.Config, users *user.Registry) *Bot {
	return &Bot{
		cfg:            cfg,
		users:          users,
		isupport:       irc.NewISupport(),
		joinedChannels: make(map[string]bool),
		opChannels:     make(map[string]bool),
	}
}

func (b *Bot) SetDispatcher(d *command.Dispatcher) { b.dispatcher = d }
func (b *Bot) SetAutoOps(q *autoop.Queue)          { b.autoOps = q }
func (b *Bot) SetGames(m *game.Manager)            { b.games = m }
func (b *Bot) SetLinks(a *links.Announcer)         { b.links = a }
func (b *Bot) SetDCC(m *dcc.Manager)               { b.dccChats = m }

// Connect dials the server and runs the event loop until Quit. It retries
// with a linearly growing interval up to the configured retry count.
func (b *Bot) Connect() error {
	maxRetries := b.cfg.Server.ReconnectRetries
	baseInterval := time.Duration(b.cfg.Server.ReconnectInterval) * time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			wait := baseInterval * time.Duration(attempt)
			util.Warning("Connect attempt %d/%d failed, retrying in %v", attempt, maxRetries, wait)
			time.Sleep(wait)
		}
		if err := b.connectOnce(); err != nil {
			lastErr = err
			continue
		}
		b.conn.Loop()
		b.mu.Lock()
		quitting := b.quitting
		b.mu.Unlock()
		if quitting {
			return nil
		}
		lastErr = fmt.Errorf("connection to %s lost", b.cfg.ServerAddress())
	}
	return fmt.Errorf("giving up after %d attempts: %w", maxRetries, lastErr)
}

func (b *Bot) connectOnce() error {
	conn := ircevo.IRC(b.cfg.Nick, b.cfg.Ident)
	conn.RealName = b.cfg.Realname
	conn.UseTLS = b.cfg.Server.SSL
	if b.cfg.Server.Vhost != "" {
		conn.SetLocalIP(b.cfg.Server.Vhost)
	}
	conn.Timeout = 2 * time.Minute
	conn.KeepAlive = 5 * time.Minute
	conn.VerboseCallbackHandler = false
	conn.Debug = false

	b.conn = conn
	b.addCallbacks()

	util.Info("Connecting to %s as %s", b.cfg.ServerAddress(), b.cfg.Nick)
	return conn.Connect(b.cfg.ServerAddress())
}

func (b *Bot) addCallbacks() {
	b.conn.AddCallback("001", func(e *ircevo.Event) {
		b.isConnected.Store(true)
		b.isupport.Reset()
		b.mu.Lock()
		b.joinedChannels = make(map[string]bool)
		b.opChannels = make(map[string]bool)
		b.mu.Unlock()

		util.Info("Connected to %s as %s", e.Source, b.CurrentNick())
		for _, channel := range b.cfg.Channels {
			b.JoinChannel(channel)
		}
	})

	b.conn.AddCallback("005", func(e *ircevo.Event) {
		if len(e.Arguments) > 2 {
			b.isupport.Parse(e.Arguments[1 : len(e.Arguments)-1])
		}
	})

	b.conn.AddCallback("PRIVMSG", b.handlePrivMsg)

	b.conn.AddCallback("JOIN", func(e *ircevo.Event) {
		channel := e.Arguments[0]
		if e.Nick == b.CurrentNick() {
			util.Debug("Joined %s", channel)
			b.mu.Lock()
			b.joinedChannels[channel] = true
			b.mu.Unlock()
			return
		}
		if b.autoOps != nil {
			b.autoOps.OnJoin(channel, e.Nick, eventHostmask(e))
		}
	})

	b.conn.AddCallback("PART", func(e *ircevo.Event) {
		if e.Nick == b.CurrentNick() {
			channel := e.Arguments[0]
			b.mu.Lock()
			delete(b.joinedChannels, channel)
			delete(b.opChannels, channel)
			b.mu.Unlock()
		}
	})

	b.conn.AddCallback("MODE", b.handleMode)
	b.conn.AddCallback("353", b.handleNames)

	b.conn.AddCallback("KICK", func(e *ircevo.Event) {
		if len(e.Arguments) < 2 || e.Arguments[1] != b.CurrentNick() {
			return
		}
		channel := e.Arguments[0]
		reason := ""
		if len(e.Arguments) >= 3 {
			reason = e.Arguments[2]
		}
		util.Warning("Kicked from %s by %s: %s", channel, e.Nick, reason)
		b.mu.Lock()
		delete(b.joinedChannels, channel)
		delete(b.opChannels, channel)
		b.mu.Unlock()

		for _, configured := range b.cfg.Channels {
			if configured == channel {
				time.AfterFunc(rejoinDelay, func() {
					if b.isConnected.Load() {
						util.Info("Rejoining %s after kick", channel)
						b.JoinChannel(channel)
					}
				})
				return
			}
		}
	})

	b.conn.AddCallback("INVITE", func(e *ircevo.Event) {
		channel := e.Arguments[1]
		u := b.users.FindByHostmask(eventHostmask(e))
		if u != nil && u.Has(user.FlagAdmin) {
			util.Info("Joining %s on invite from %s", channel, u.Name)
			b.JoinChannel(channel)
			return
		}
		util.Debug("Ignoring invite to %s from %s", channel, e.Nick)
	})

	b.conn.ClearCallback("CTCP_VERSION")
	b.conn.AddCallback("CTCP_VERSION", func(e *ircevo.Event) {
		b.conn.SendRawf("NOTICE %s :\x01VERSION opal\x01", e.Nick)
	})

	b.conn.AddCallback("CTCP_DCC", func(e *ircevo.Event) {
		if b.dccChats == nil || !b.cfg.DCC.Enabled {
			return
		}
		b.dccChats.HandleOffer(e.Nick, e.User, e.Host, e.Message())
	})

	b.conn.AddCallback("DISCONNECTED", func(e *ircevo.Event) {
		b.isConnected.Store(false)
		b.mu.Lock()
		quitting := b.quitting
		b.mu.Unlock()
		if !quitting {
			util.Warning("Disconnected from %s", b.cfg.ServerAddress())
		}
	})
}

func (b *Bot) handlePrivMsg(e *ircevo.Event) {
	target := e.Arguments[0]
	text := e.Message()

	msg := &command.Message{
		Source: command.SourcePrivate,
		Nick:   e.Nick,
		Ident:  e.User,
		Host:   e.Host,
		Text:   text,
	}
	if strings.HasPrefix(target, "#") || strings.HasPrefix(target, "&") {
		msg.Source = command.SourcePublic
		msg.Channel = target
	}

	if strings.HasPrefix(text, b.dispatcher.Prefix()) {
		b.dispatcher.Handle(msg)
		return
	}
	if msg.Source != command.SourcePublic {
		return
	}
	if b.games != nil {
		b.games.Guess(msg.Channel, e.Nick, text)
	}
	if b.links != nil && b.cfg.Links.Enabled {
		b.links.Scan(msg.Channel, text)
	}
}

// handleMode tracks the bot's own operator status from channel mode changes.
// Only the o mode moves the flag; other channel modes may consume parameters
// but cannot refer to the bot's op state.
func (b *Bot) handleMode(e *ircevo.Event) {
	if len(e.Arguments) < 2 || !strings.HasPrefix(e.Arguments[0], "#") && !strings.HasPrefix(e.Arguments[0], "&") {
		return
	}
	channel, modes := e.Arguments[0], e.Arguments[1]
	params := e.Arguments[2:]

	adding := true
	paramIdx := 0
	for _, m := range modes {
		switch m {
		case '+':
			adding = true
		case '-':
			adding = false
		case 'o', 'v', 'h', 'b', 'k', 'l', 'e', 'I':
			// Modes that take a parameter in the direction they appear.
			// -l and -k quirks do not matter here; miscounting only makes
			// the bot re-learn its status from the next MODE or NAMES.
			if m == 'o' && paramIdx < len(params) && params[paramIdx] == b.CurrentNick() {
				b.mu.Lock()
				if adding {
					b.opChannels[channel] = true
				} else {
					delete(b.opChannels, channel)
				}
				b.mu.Unlock()
				util.Debug("Op status on %s is now %v", channel, adding)
			}
			paramIdx++
		}
	}
}

// handleNames learns initial op status from the NAMES reply sent on join.
func (b *Bot) handleNames(e *ircevo.Event) {
	if len(e.Arguments) < 4 {
		return
	}
	channel := e.Arguments[2]
	for _, name := range strings.Fields(e.Arguments[3]) {
		if strings.TrimLeft(name, "@+%&~") == b.CurrentNick() && strings.HasPrefix(name, "@") {
			b.mu.Lock()
			b.opChannels[channel] = true
			b.mu.Unlock()
			return
		}
	}
}

func eventHostmask(e *ircevo.Event) string {
	ident, host := e.User, e.Host
	if ident == "" {
		ident = "*"
	}
	if host == "" {
		host = "*"
	}
	return e.Nick + "!" + ident + "@" + host
}

// CurrentNick returns the nick the bot holds right now.
func (b *Bot) CurrentNick() string {
	if b.conn != nil {
		if nick := b.conn.GetNick(); nick != "" {
			return nick
		}
	}
	return b.cfg.Nick
}

// SendMessage sends a PRIVMSG.
func (b *Bot) SendMessage(target, message string) {
	if target == "" || message == "" {
		return
	}
	b.conn.Privmsg(target, message)
}

// SendNotice sends a NOTICE.
func (b *Bot) SendNotice(target, message string) {
	if target == "" || message == "" {
		return
	}
	b.conn.Notice(target, message)
}

// SetMode issues one MODE command, for example SetMode("#chan", "+oo", "a", "b").
func (b *Bot) SetMode(channel, modes string, targets ...string) {
	if len(targets) == 0 {
		b.conn.SendRawf("MODE %s %s", channel, modes)
		return
	}
	b.conn.SendRawf("MODE %s %s %s", channel, modes, strings.Join(targets, " "))
}

func (b *Bot) JoinChannel(channel string) {
	util.Debug("Joining %s", channel)
	b.conn.Join(channel)
}

func (b *Bot) PartChannel(channel string) {
	util.Debug("Leaving %s", channel)
	b.conn.Part(channel)
}

func (b *Bot) Kick(channel, nick, reason string) {
	b.conn.Kick(nick, channel, reason)
}

func (b *Bot) ChangeNick(newNick string) {
	util.Info("Changing nick to %s", newNick)
	b.conn.Nick(newNick)
}

// SendRaw sends one raw protocol line.
func (b *Bot) SendRaw(line string) {
	b.conn.SendRaw(line)
}

// HasOp reports whether the bot believes it holds ops on the channel.
func (b *Bot) HasOp(channel string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opChannels[channel]
}

// MaxModeTargets returns the server's advertised MODES limit.
func (b *Bot) MaxModeTargets() int {
	return b.isupport.MaxModes()
}

// Quit disconnects cleanly and stops the reconnect loop.
func (b *Bot) Quit(message string) {
	b.mu.Lock()
	b.quitting = true
	b.mu.Unlock()
	if b.autoOps != nil {
		b.autoOps.Stop()
	}
	if b.games != nil {
		b.games.StopAll()
	}
	if b.dccChats != nil {
		b.dccChats.Close()
	}
	if b.conn != nil {
		b.conn.QuitMessage = message
		b.conn.Quit()
	}
}
