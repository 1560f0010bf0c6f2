package command

import (
	"sort"
	"strings"
	"sync"

	"github.com/kmarcin/opal/internal/util"
)

// Descriptor describes one registered command. One descriptor may carry
// several names when a single handler implements related commands, the way
// BAN, KICK, BANKICK and KICKBAN share an implementation. The first name is
// canonical. Descriptors are immutable after registration.
type Descriptor struct {
	Names      []string
	Restricted bool
	Help       []string
	Handler    HandlerFunc
}

// Name returns the canonical command name.
func (d *Descriptor) Name() string {
	return d.Names[0]
}

// Registry maps command names to descriptors. It is populated once at
// startup and read-only afterwards except for the disabled set, which can
// be refreshed from configuration without a restart.
type Registry struct {
	mu       sync.RWMutex
	byName   map[string]*Descriptor
	order    []string
	disabled map[string]bool
}

// NewRegistry returns an empty command registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:   make(map[string]*Descriptor),
		disabled: make(map[string]bool),
	}
}

// Register adds a descriptor under each of its names. Names are stored
// uppercase. A collision is logged and the later registration wins.
func (r *Registry) Register(d *Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, name := range d.Names {
		name = strings.ToUpper(name)
		d.Names[i] = name
		if prev, exists := r.byName[name]; exists {
			util.Warning("Command name collision: %s already registered by %s, replacing", name, prev.Name())
		} else {
			r.order = append(r.order, name)
		}
		r.byName[name] = d
	}
}

// Resolve looks up a command by name, case-insensitively. Returns nil for
// unknown commands.
func (r *Registry) Resolve(name string) *Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byName[strings.ToUpper(name)]
}

// IsEnabled reports whether the exact command name is enabled. Unknown
// names are not enabled. Disabling a name does not disable its aliases.
func (r *Registry) IsEnabled(name string) bool {
	name = strings.ToUpper(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, known := r.byName[name]; !known {
		return false
	}
	return !r.disabled[name]
}

// SetDisabled replaces the disabled set, typically after a config reload.
func (r *Registry) SetDisabled(names []string) {
	disabled := make(map[string]bool, len(names))
	for _, name := range names {
		disabled[strings.ToUpper(name)] = true
	}
	r.mu.Lock()
	r.disabled = disabled
	r.mu.Unlock()
}

// HelpFor returns the help lines for a command, or nil if unknown.
func (r *Registry) HelpFor(name string) []string {
	if d := r.Resolve(name); d != nil {
		return d.Help
	}
	return nil
}

// EnabledNames returns every enabled command name, sorted, for HELP output.
func (r *Registry) EnabledNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.order))
	for _, name := range r.order {
		if !r.disabled[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
