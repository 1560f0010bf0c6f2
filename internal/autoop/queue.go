// Package autoop batches operator grants for registered users joining
// watched channels. Joins within a debounce window coalesce into as few
// MODE commands as the server allows, which keeps a netsplit reconnect
// storm from turning into a MODE flood.
package autoop

import (
	"strings"
	"sync"
	"time"

	"github.com/kmarcin/opal/internal/types"
	"github.com/kmarcin/opal/internal/user"
	"github.com/kmarcin/opal/internal/util"
)

// DefaultBatch is the targets-per-MODE fallback when the server does not
// advertise a usable ISUPPORT MODES value.
const DefaultBatch = 4

// pendingOps is one channel's queue of distinct nicks awaiting +o. It
// exists only between the first qualifying join and the flush that empties
// it.
type pendingOps struct {
	nicks []string
	timer *time.Timer
}

// Queue is the per-channel debounce/batch state machine. One mutex guards
// the channel map and every queue in it; flushes for different channels
// still proceed independently because the lock is never held across sends.
type Queue struct {
	client types.IRCClient
	users  *user.Registry
	delay  time.Duration

	mu      sync.Mutex
	enabled bool
	pending map[string]*pendingOps
	stopped bool
}

// New builds a queue flushing after delay. The queue starts enabled.
func New(client types.IRCClient, users *user.Registry, delay time.Duration) *Queue {
	return &Queue{
		client:  client,
		users:   users,
		delay:   delay,
		enabled: true,
		pending: make(map[string]*pendingOps),
	}
}

// SetEnabled toggles the feature at runtime.
func (q *Queue) SetEnabled(enabled bool) {
	q.mu.Lock()
	q.enabled = enabled
	q.mu.Unlock()
}

// Enabled reports whether auto-op is currently on.
func (q *Queue) Enabled() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.enabled
}

// OnJoin handles a join event. The nick is queued when the bot can act
// (it holds op on the channel) and the joiner matches a registered user
// carrying the AUTO_OP flag; everything else is dropped quietly. Queueing
// the same nick twice before the flush is a no-op.
func (q *Queue) OnJoin(channel, nick, hostmask string) {
	if !q.Enabled() {
		return
	}
	if nick == q.client.CurrentNick() {
		return
	}
	if !q.client.HasOp(channel) {
		util.Debug("AutoOp: not opped on %s, ignoring join of %s", channel, nick)
		return
	}

	u := q.users.FindByHostmask(hostmask)
	if u == nil || !u.Has(user.FlagAutoOp) {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped || !q.enabled {
		return
	}

	p, exists := q.pending[channel]
	if !exists {
		p = &pendingOps{nicks: []string{nick}}
		p.timer = time.AfterFunc(q.delay, func() { q.Flush(channel) })
		q.pending[channel] = p
		util.Debug("AutoOp: queued %s on %s, flush in %v", nick, channel, q.delay)
		return
	}
	for _, have := range p.nicks {
		if have == nick {
			return
		}
	}
	p.nicks = append(p.nicks, nick)
	util.Debug("AutoOp: queued %s on %s (%d pending)", nick, channel, len(p.nicks))
}

// Flush takes and clears the channel's pending queue and issues the mode
// changes in FIFO batches of the server's MODES limit. Sends are fire and
// forget; a lost batch is not retried.
func (q *Queue) Flush(channel string) {
	q.mu.Lock()
	p, exists := q.pending[channel]
	if exists {
		delete(q.pending, channel)
		p.timer.Stop()
	}
	q.mu.Unlock()
	if !exists || len(p.nicks) == 0 {
		return
	}

	batch := q.client.MaxModeTargets()
	if batch <= 0 {
		batch = DefaultBatch
	}

	for start := 0; start < len(p.nicks); start += batch {
		end := start + batch
		if end > len(p.nicks) {
			end = len(p.nicks)
		}
		targets := p.nicks[start:end]
		q.client.SetMode(channel, "+"+strings.Repeat("o", len(targets)), targets...)
	}
	util.Info("AutoOp: opped %d nick(s) on %s", len(p.nicks), channel)
}

// Pending returns a snapshot of the nicks queued for a channel.
func (q *Queue) Pending(channel string) []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	p, exists := q.pending[channel]
	if !exists {
		return nil
	}
	return append([]string(nil), p.nicks...)
}

// PendingChannels returns a snapshot of every channel with a queued flush.
func (q *Queue) PendingChannels() map[string][]string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make(map[string][]string, len(q.pending))
	for channel, p := range q.pending {
		out[channel] = append([]string(nil), p.nicks...)
	}
	return out
}

// Stop cancels every armed timer and drops all pending queues. Used at
// shutdown; a stopped queue ignores further joins.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stopped = true
	for channel, p := range q.pending {
		p.timer.Stop()
		delete(q.pending, channel)
	}
}
