package command

import (
	"strings"
	"time"

	"github.com/kmarcin/opal/internal/autoop"
	"github.com/kmarcin/opal/internal/game"
	"github.com/kmarcin/opal/internal/links"
	"github.com/kmarcin/opal/internal/types"
	"github.com/kmarcin/opal/internal/user"
)

// Context is the composition root handed to every command handler. It is
// built once at startup and passed explicitly; there is no package-level
// state to reach for.
type Context struct {
	Client   types.IRCClient
	Users    *user.Registry
	Commands *Registry
	AutoOps  *autoop.Queue
	Games    *game.Manager
	Links    *links.Announcer
	Started  time.Time
}

// HandlerFunc is the uniform command handler contract. A nil return means
// the command completed; a ValidationError is relayed to the user verbatim;
// any other error is logged server-side and turned into a generic apology.
type HandlerFunc func(ctx *Context, inv *Invocation) error

// Source identifies where a command line arrived from.
type Source int

const (
	SourcePublic Source = iota
	SourcePrivate
	SourceDCC
	SourceConsole
)

func (s Source) String() string {
	switch s {
	case SourcePublic:
		return "public"
	case SourcePrivate:
		return "private"
	case SourceDCC:
		return "dcc"
	case SourceConsole:
		return "console"
	}
	return "unknown"
}

// Invocation is the per-message context a handler executes under. It is
// constructed by the dispatcher and discarded when dispatch completes.
type Invocation struct {
	Source   Source
	Channel  string
	Nick     string
	Hostmask string

	// Caller is a snapshot of the matched registered user, nil for
	// anonymous invocations. It is a copy; persist changes through
	// ctx.Users.
	Caller *user.User

	// Name is the resolved uppercase command name; Args are the raw
	// tokens after it. Splitting is on single spaces, so repeated spaces
	// in the original line appear here as empty tokens.
	Name string
	Args []string

	reply func(string)
}

// Reply sends a user-visible line back to wherever the command came from.
func (inv *Invocation) Reply(text string) {
	inv.reply(text)
}

// Fields returns Args with empty tokens dropped, for arity checks and
// word-shaped arguments.
func (inv *Invocation) Fields() []string {
	out := make([]string, 0, len(inv.Args))
	for _, a := range inv.Args {
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

// Tail joins the raw tokens starting at the token after the nth non-empty
// one, preserving the original spacing of the remainder of the line.
func (inv *Invocation) Tail(afterField int) string {
	seen := 0
	for i, a := range inv.Args {
		if a == "" {
			continue
		}
		seen++
		if seen == afterField {
			return strings.TrimLeft(strings.Join(inv.Args[i+1:], " "), " ")
		}
	}
	return ""
}
