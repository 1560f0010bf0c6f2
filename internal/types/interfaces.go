package types

// IRCClient is the narrow surface of the IRC connection that the command,
// auto-op and auxiliary packages are allowed to touch. The bot package
// implements it over the real connection; tests implement it with fakes.
type IRCClient interface {
	// CurrentNick returns the nick the bot currently holds on the server.
	CurrentNick() string

	// SendMessage sends a PRIVMSG to a channel or nick.
	SendMessage(target, message string)

	// SendNotice sends a NOTICE to a channel or nick.
	SendNotice(target, message string)

	// SetMode issues a single MODE command for the given channel, for
	// example SetMode("#chan", "+oo", "alice", "bob").
	SetMode(channel, modes string, targets ...string)

	JoinChannel(channel string)
	PartChannel(channel string)
	Kick(channel, nick, reason string)
	ChangeNick(newNick string)

	// SendRaw sends a raw protocol line for actions without a typed wrapper.
	SendRaw(line string)

	// HasOp reports whether the bot currently holds operator status on the
	// channel, as far as it can tell from MODE and NAMES traffic.
	HasOp(channel string) bool

	// MaxModeTargets returns the server-advertised ISUPPORT MODES value,
	// the maximum number of targets one MODE command may carry.
	MaxModeTargets() int

	Quit(message string)
}
