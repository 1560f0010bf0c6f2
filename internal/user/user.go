package user

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Flag is a permission flag carried by a registered user. The well-known
// flags below cover the built-in features; feature code may define further
// uppercase flag names without touching this package.
type Flag string

const (
	FlagAdmin  Flag = "ADMIN"
	FlagAutoOp Flag = "AUTO_OP"
	FlagDCC    Flag = "DCC"
	FlagIgnore Flag = "IGNORE"
)

// ParseFlag normalizes a flag token to its canonical uppercase form.
func ParseFlag(s string) (Flag, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", fmt.Errorf("empty flag")
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '_' {
			return "", fmt.Errorf("invalid flag: %s", s)
		}
	}
	return Flag(s), nil
}

// User is a registered user: a unique name, one or more wildcard hostmask
// patterns and a set of permission flags. Instances handed out by the
// registry are copies; mutate through registry methods only.
type User struct {
	Name         string   `json:"name"`
	Hostmasks    []string `json:"hostmasks"`
	Flags        []Flag   `json:"flags,omitempty"`
	PasswordHash string   `json:"password_hash,omitempty"`
	Location     string   `json:"location,omitempty"`
}

// Has reports whether the user carries the given flag.
func (u *User) Has(f Flag) bool {
	for _, have := range u.Flags {
		if have == f {
			return true
		}
	}
	return false
}

// AddFlag adds a flag, reporting whether the set changed.
func (u *User) AddFlag(f Flag) bool {
	if u.Has(f) {
		return false
	}
	u.Flags = append(u.Flags, f)
	return true
}

// RemoveFlag removes a flag, reporting whether the set changed.
func (u *User) RemoveFlag(f Flag) bool {
	for i, have := range u.Flags {
		if have == f {
			u.Flags = append(u.Flags[:i], u.Flags[i+1:]...)
			return true
		}
	}
	return false
}

// HasHostmask reports whether the exact pattern is already present.
func (u *User) HasHostmask(mask string) bool {
	for _, have := range u.Hostmasks {
		if have == mask {
			return true
		}
	}
	return false
}

// SetPassword stores a bcrypt hash of the given password.
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword reports whether the password matches the stored hash. A user
// without a password never authenticates.
func (u *User) CheckPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// clone returns a deep copy so callers never share slices with the registry.
func (u *User) clone() *User {
	c := *u
	c.Hostmasks = append([]string(nil), u.Hostmasks...)
	c.Flags = append([]Flag(nil), u.Flags...)
	return &c
}
