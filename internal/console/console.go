// Package console runs an SSH admin console. Admins log in with their
// registry name and password and type command lines exactly as they would
// on IRC; replies come back over the SSH session.
package console

import (
	"bufio"
	"fmt"
	"strings"
	"sync"

	"github.com/gliderlabs/ssh"

	"github.com/kmarcin/opal/internal/command"
	"github.com/kmarcin/opal/internal/user"
	"github.com/kmarcin/opal/internal/util"
)

// Server is the SSH console listener.
type Server struct {
	addr       string
	hostKey    string
	users      *user.Registry
	dispatcher *command.Dispatcher

	mu  sync.Mutex
	srv *ssh.Server
}

// NewServer builds a console listening on addr. hostKey is a path to a PEM
// host key file; empty means an ephemeral key.
func NewServer(addr, hostKey string, users *user.Registry, dispatcher *command.Dispatcher) *Server {
	return &Server{
		addr:       addr,
		hostKey:    hostKey,
		users:      users,
		dispatcher: dispatcher,
	}
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	srv := &ssh.Server{
		Addr: s.addr,
		PasswordHandler: func(ctx ssh.Context, password string) bool {
			u := s.users.FindByName(ctx.User())
			if u == nil || !u.Has(user.FlagAdmin) {
				util.Warning("Console: login attempt for non-admin %q from %s", ctx.User(), ctx.RemoteAddr())
				return false
			}
			if !u.CheckPassword(password) {
				util.Warning("Console: bad password for %s from %s", u.Name, ctx.RemoteAddr())
				return false
			}
			return true
		},
		Handler: s.handleSession,
	}
	if s.hostKey != "" {
		srv.SetOption(ssh.HostKeyFile(s.hostKey))
	}

	s.mu.Lock()
	s.srv = srv
	s.mu.Unlock()

	go func() {
		util.Info("Console: listening on %s", s.addr)
		if err := srv.ListenAndServe(); err != nil && err != ssh.ErrServerClosed {
			util.Error("Console: serve failed: %v", err)
		}
	}()
}

// Stop shuts the listener down.
func (s *Server) Stop() {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.mu.Unlock()
	if srv != nil {
		srv.Close()
	}
}

func (s *Server) handleSession(sess ssh.Session) {
	name := sess.User()
	util.Info("Console: %s connected from %s", name, sess.RemoteAddr())

	write := func(text string) {
		fmt.Fprintf(sess, "%s\r\n", text)
	}
	write(fmt.Sprintf("opal console. Commands use the '%s' prefix; 'quit' disconnects.", s.dispatcher.Prefix()))

	scanner := bufio.NewScanner(sess)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "quit" || line == "exit":
			write("Bye.")
			return
		}

		// The password handler has already proven who this is; identity
		// resolves by name, not by a fabricated hostmask.
		s.dispatcher.Handle(&command.Message{
			Source:          command.SourceConsole,
			Nick:            name,
			Text:            line,
			AuthenticatedAs: name,
			Reply:           write,
		})
	}
	util.Info("Console: %s disconnected", name)
}
