package user

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kmarcin/opal/internal/util"
)

var (
	// ErrUserExists is returned by Add when the name is already taken.
	ErrUserExists = errors.New("user already exists")
	// ErrUnknownUser is returned by Update and Delete for absent names.
	ErrUnknownUser = errors.New("unknown user")
	// ErrNoHostmask is returned when a mutation would leave a user with
	// zero hostmask patterns; such a user could never be matched again.
	ErrNoHostmask = errors.New("user must have at least one hostmask")
)

// Registry is the shared collection of registered users. All access is
// serialized behind one mutex; every mutation persists the full set through
// the store before returning, so a successful call is durable.
//
// Name lookups are case-sensitive. Hostmask identification lowercases both
// pattern and candidate, matching how nicknames compare on IRC while
// preserving the stored case for display.
type Registry struct {
	mu    sync.RWMutex
	users []*User
	store Store
}

// NewRegistry creates a registry backed by store, loading the persisted
// user set. A nil store yields a purely in-memory registry.
func NewRegistry(store Store) (*Registry, error) {
	r := &Registry{store: store}
	if store == nil {
		return r, nil
	}
	users, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	for _, u := range users {
		if u.Name == "" || len(u.Hostmasks) == 0 {
			util.Warning("Skipping invalid persisted user %q with %d hostmasks", u.Name, len(u.Hostmasks))
			continue
		}
		r.users = append(r.users, u.clone())
	}
	return r, nil
}

// FindByHostmask returns a copy of the first user, in registry order, with
// any hostmask pattern matching candidate. Returns nil if none match.
func (r *Registry) FindByHostmask(candidate string) *User {
	candidate = strings.ToLower(candidate)

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		for _, mask := range u.Hostmasks {
			if util.MatchUserHost(strings.ToLower(mask), candidate) {
				return u.clone()
			}
		}
	}
	return nil
}

// FindByName returns a copy of the user with the exact name, or nil.
func (r *Registry) FindByName(name string) *User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u := r.find(name); u != nil {
		return u.clone()
	}
	return nil
}

// Add inserts a new user and persists the registry. The user must carry at
// least one hostmask pattern.
func (r *Registry) Add(u *User) error {
	if u.Name == "" {
		return fmt.Errorf("user name must not be empty")
	}
	if len(u.Hostmasks) == 0 {
		return ErrNoHostmask
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.find(u.Name) != nil {
		return ErrUserExists
	}
	r.users = append(r.users, u.clone())
	if err := r.persist(); err != nil {
		r.users = r.users[:len(r.users)-1]
		return err
	}
	return nil
}

// Update replaces the stored user with the same name and persists.
func (r *Registry) Update(u *User) error {
	if len(u.Hostmasks) == 0 {
		return ErrNoHostmask
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i, have := range r.users {
		if have.Name == u.Name {
			prev := r.users[i]
			r.users[i] = u.clone()
			if err := r.persist(); err != nil {
				r.users[i] = prev
				return err
			}
			return nil
		}
	}
	return ErrUnknownUser
}

// Delete removes the user with the exact name and persists.
func (r *Registry) Delete(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, have := range r.users {
		if have.Name == name {
			prev := r.users
			r.users = append(append([]*User(nil), r.users[:i]...), r.users[i+1:]...)
			if err := r.persist(); err != nil {
				r.users = prev
				return err
			}
			return nil
		}
	}
	return ErrUnknownUser
}

// All returns a snapshot of every user in registry order.
func (r *Registry) All() []*User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*User, len(r.users))
	for i, u := range r.users {
		out[i] = u.clone()
	}
	return out
}

// Count returns the number of registered users.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// find returns the live record for name. Caller must hold the lock.
func (r *Registry) find(name string) *User {
	for _, u := range r.users {
		if u.Name == name {
			return u
		}
	}
	return nil
}

// persist writes the full set through the store. Caller must hold the
// write lock.
func (r *Registry) persist() error {
	if r.store == nil {
		return nil
	}
	snapshot := make([]*User, len(r.users))
	for i, u := range r.users {
		snapshot[i] = u.clone()
	}
	if err := r.store.Save(snapshot); err != nil {
		util.Error("Failed to persist user registry: %v", err)
		return fmt.Errorf("failed to persist users: %w", err)
	}
	return nil
}
