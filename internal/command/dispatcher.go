package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kmarcin/opal/internal/user"
	"github.com/kmarcin/opal/internal/util"
)

// Message is a chat line as delivered by a transport, before any command
// parsing has happened.
type Message struct {
	Source  Source
	Channel string // set for SourcePublic
	Nick    string
	Ident   string // may be empty when the server did not reveal it
	Host    string // may be empty when the server did not reveal it
	Text    string

	// AuthenticatedAs names a registry user the delivering transport has
	// already authenticated (the SSH console). When set, identity resolves
	// by name instead of hostmask.
	AuthenticatedAs string

	// Reply overrides where user-visible responses go. When nil, replies
	// go to the channel for public commands and to the sender otherwise.
	Reply func(string)
}

// Hostmask builds the sender's nick!ident@host, substituting '*' for
// components the server did not reveal.
func (m *Message) Hostmask() string {
	ident, host := m.Ident, m.Host
	if ident == "" {
		ident = "*"
	}
	if host == "" {
		host = "*"
	}
	return m.Nick + "!" + ident + "@" + host
}

// State is the terminal state of one dispatch.
type State int

const (
	// StateDropped: not a command, unknown, or disabled. Nothing was sent
	// back; unknown-command noise stays out of the channel.
	StateDropped State = iota
	// StateRejected: policy denial. Ignored users are denied silently,
	// everyone else gets one short line.
	StateRejected
	// StateCompleted: the handler ran and every failure it reported was an
	// expected one, already relayed to the user.
	StateCompleted
	// StateFailed: the handler blew up. Full detail is logged server-side,
	// the user sees only a generic apology.
	StateFailed
)

// Dispatcher turns chat lines into authorized command executions. It is the
// single recovery boundary: no handler failure escapes it unformatted or
// takes the event loop down.
type Dispatcher struct {
	ctx    *Context
	prefix string
}

// NewDispatcher builds a dispatcher over the given context with the
// configured command prefix.
func NewDispatcher(ctx *Context, prefix string) *Dispatcher {
	return &Dispatcher{ctx: ctx, prefix: prefix}
}

// Prefix returns the configured command prefix.
func (d *Dispatcher) Prefix() string {
	return d.prefix
}

// Handle runs the full dispatch state machine for one message and returns
// the terminal state. Safe for concurrent use.
func (d *Dispatcher) Handle(msg *Message) State {
	if !strings.HasPrefix(msg.Text, d.prefix) {
		return StateDropped
	}

	// Split on single spaces. Repeated spaces yield empty argument tokens;
	// that is the documented tokenization rule, not an accident.
	tokens := strings.Split(msg.Text, " ")
	name := strings.ToUpper(tokens[0][len(d.prefix):])
	args := tokens[1:]

	if name == "" {
		util.Debug("Dispatch: empty command from %s, dropping", msg.Nick)
		return StateDropped
	}

	desc := d.ctx.Commands.Resolve(name)
	if desc == nil {
		util.Debug("Dispatch: unknown command %s from %s, dropping", name, msg.Nick)
		return StateDropped
	}
	if !d.ctx.Commands.IsEnabled(name) {
		util.Info("Dispatch: disabled command %s from %s, dropping", name, msg.Nick)
		return StateDropped
	}

	hostmask := msg.Hostmask()
	caller := d.resolveCaller(msg, hostmask)
	reply := d.replyFunc(msg)

	switch {
	case caller != nil && caller.Has(user.FlagAdmin):
		// Admins bypass both the ignore and the restriction checks.
	case caller != nil && caller.Has(user.FlagIgnore):
		util.Info("Dispatch: dropping %s from ignored user %s (%s)", name, caller.Name, hostmask)
		return StateRejected
	case desc.Restricted:
		util.Info("Dispatch: unauthorized %s from %s (%s)", name, msg.Nick, hostmask)
		reply("You are not authorized to use " + name + ".")
		return StateRejected
	}

	inv := &Invocation{
		Source:   msg.Source,
		Channel:  msg.Channel,
		Nick:     msg.Nick,
		Hostmask: hostmask,
		Caller:   caller,
		Name:     name,
		Args:     args,
		reply:    reply,
	}

	err := d.invoke(desc, inv)
	if err == nil {
		util.Debug("Dispatch: %s from %s completed", name, msg.Nick)
		return StateCompleted
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		util.Info("Dispatch: %s from %s rejected input: %s (args: %q)", name, msg.Nick, verr.Error(), args)
		reply(verr.Error())
		return StateCompleted
	}

	util.Error("Dispatch: %s from %s failed: %v", name, msg.Nick, err)
	reply("Something went wrong running " + name + ".")
	return StateFailed
}

// resolveCaller identifies the invoking registered user, or nil.
func (d *Dispatcher) resolveCaller(msg *Message, hostmask string) *user.User {
	if msg.AuthenticatedAs != "" {
		return d.ctx.Users.FindByName(msg.AuthenticatedAs)
	}
	return d.ctx.Users.FindByHostmask(hostmask)
}

// replyFunc picks where user-visible output goes for this message.
func (d *Dispatcher) replyFunc(msg *Message) func(string) {
	if msg.Reply != nil {
		return msg.Reply
	}
	target := msg.Nick
	if msg.Source == SourcePublic {
		target = msg.Channel
	}
	return func(text string) {
		d.ctx.Client.SendMessage(target, text)
	}
}

// invoke runs the handler behind a panic guard so a programming error in
// one command cannot crash the event loop.
func (d *Dispatcher) invoke(desc *Descriptor, inv *Invocation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s handler: %v", inv.Name, r)
		}
	}()
	return desc.Handler(d.ctx, inv)
}
