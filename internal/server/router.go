// Package server exposes a Store over a line-oriented TCP protocol.
//
// Each request is one line: a verb, its arguments, and optionally a JSON
// payload as the last argument. Each reply is one line: "OK", "OK <json>",
// "ERR <message>" or "PONG".
package server

import (
	"bufio"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/celerix-dev/looply/pkg/habit"
	"github.com/celerix-dev/looply/pkg/sdk"
	"go.uber.org/zap"
)

const (
	maxConnections = 100
	connLifetime   = 5 * time.Minute
	idleTimeout    = 30 * time.Second
)

var errMissingArgs = errors.New("missing arguments")

type Router struct {
	store sdk.Store
	cert  *tls.Certificate
	log   *zap.Logger

	mu       sync.Mutex
	listener net.Listener
	stopped  bool
}

// command is a verb taking a fixed number of arguments. The last argument
// receives the rest of the line, so JSON payloads may contain spaces.
type command struct {
	args int
	run  func(r *Router, args []string) (any, error)
}

var commands = map[string]command{
	"PROFILES": {0, func(r *Router, _ []string) (any, error) { return r.store.Profiles() }},
	"USER":     {1, func(r *Router, a []string) (any, error) { return r.store.User(a[0]) }},
	"SET_USER": {2, func(r *Router, a []string) (any, error) {
		u, err := decode[habit.User](a[1])
		if err != nil {
			return nil, err
		}
		return nil, r.store.SetUser(a[0], u)
	}},
	"SETTINGS": {1, func(r *Router, a []string) (any, error) { return r.store.Settings(a[0]) }},
	"UPDATE_SETTINGS": {2, func(r *Router, a []string) (any, error) {
		p, err := decode[habit.SettingsPatch](a[1])
		if err != nil {
			return nil, err
		}
		return r.store.UpdateSettings(a[0], p)
	}},
	"HABITS": {1, func(r *Router, a []string) (any, error) { return r.store.Habits(a[0]) }},
	"LOGS":   {1, func(r *Router, a []string) (any, error) { return r.store.Logs(a[0]) }},
	"ADD_HABIT": {2, func(r *Router, a []string) (any, error) {
		h, err := decode[habit.Habit](a[1])
		if err != nil {
			return nil, err
		}
		return r.store.AddHabit(a[0], h)
	}},
	"UPDATE_HABIT": {3, func(r *Router, a []string) (any, error) {
		p, err := decode[habit.HabitPatch](a[2])
		if err != nil {
			return nil, err
		}
		return r.store.UpdateHabit(a[0], a[1], p)
	}},
	"ADD_LOG": {2, func(r *Router, a []string) (any, error) {
		l, err := decode[habit.Log](a[1])
		if err != nil {
			return nil, err
		}
		return r.store.AddLog(a[0], l)
	}},
	"UPDATE_LOG": {3, func(r *Router, a []string) (any, error) {
		p, err := decode[habit.LogPatch](a[2])
		if err != nil {
			return nil, err
		}
		return r.store.UpdateLog(a[0], a[1], p)
	}},
	"RESET":    {1, func(r *Router, a []string) (any, error) { return nil, r.store.Reset(a[0]) }},
	"SNAPSHOT": {1, func(r *Router, a []string) (any, error) { return r.store.Snapshot(a[0]) }},
	"RESTORE": {2, func(r *Router, a []string) (any, error) {
		s, err := decode[habit.Snapshot](a[1])
		if err != nil {
			return nil, err
		}
		return nil, r.store.Restore(a[0], s)
	}},
}

func NewRouter(s sdk.Store, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{store: s, log: logger}
}

// SetCertificate sets the TLS certificate for the router
func (r *Router) SetCertificate(cert tls.Certificate) {
	r.cert = &cert
}

// Addr returns the bound address, or nil before Listen has bound.
func (r *Router) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

// Listen starts the TCP server and blocks until Stop is called.
func (r *Router) Listen(port string) error {
	var listener net.Listener
	var err error

	if r.cert != nil {
		config := &tls.Config{Certificates: []tls.Certificate{*r.cert}, MinVersion: tls.VersionTLS12}
		listener, err = tls.Listen("tcp", ":"+port, config)
	} else {
		listener, err = net.Listen("tcp", ":"+port)
	}
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		listener.Close()
		return nil
	}
	r.listener = listener
	r.mu.Unlock()

	r.log.Info("tcp server listening",
		zap.String("addr", listener.Addr().String()),
		zap.Bool("tls", r.cert != nil),
	)

	semaphore := make(chan struct{}, maxConnections)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			r.log.Warn("accept failed", zap.Error(err))
			continue
		}

		// Hard cap per connection so idle clients cannot hold a slot forever
		conn.SetDeadline(time.Now().Add(connLifetime))

		go func(c net.Conn) {
			semaphore <- struct{}{}
			defer func() {
				<-semaphore
				c.Close()
			}()
			r.HandleConnection(c)
		}(conn)
	}
}

// Stop closes the listener. In-flight connections finish on their own deadlines.
func (r *Router) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	if r.listener == nil {
		return nil
	}
	return r.listener.Close()
}

// HandleConnection serves commands on conn until QUIT, EOF or a timeout.
func (r *Router) HandleConnection(conn net.Conn) {
	reader := bufio.NewReader(conn)

	for {
		// Set a deadline for the next command
		conn.SetReadDeadline(time.Now().Add(idleTimeout))

		line, err := reader.ReadString('\n')
		if err != nil {
			return // Connection closed or timeout
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		reply, quit := r.dispatch(line)
		if quit {
			return
		}
		if _, err := fmt.Fprintln(conn, reply); err != nil {
			return
		}
	}
}

// dispatch executes one request line and returns the reply line.
func (r *Router) dispatch(line string) (reply string, quit bool) {
	verb, rest, _ := strings.Cut(line, " ")
	verb = strings.ToUpper(verb)

	switch verb {
	case "PING":
		return "PONG", false
	case "QUIT":
		return "", true
	}

	cmd, ok := commands[verb]
	if !ok {
		return "ERR unknown command " + verb, false
	}

	var args []string
	if cmd.args > 0 {
		rest = strings.TrimSpace(rest)
		if rest != "" {
			args = strings.SplitN(rest, " ", cmd.args)
		}
		if len(args) < cmd.args {
			return "ERR " + errMissingArgs.Error(), false
		}
	}

	out, err := cmd.run(r, args)
	if err != nil {
		r.log.Debug("command failed", zap.String("command", verb), zap.Error(err))
		return "ERR " + strings.ReplaceAll(err.Error(), "\n", " "), false
	}
	if out == nil {
		return "OK", false
	}
	res, err := json.Marshal(out)
	if err != nil {
		r.log.Error("encode reply failed", zap.String("command", verb), zap.Error(err))
		return "ERR internal error", false
	}
	return "OK " + string(res), false
}

func decode[T any](raw string) (T, error) {
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return v, fmt.Errorf("invalid json value: %v", err)
	}
	return v, nil
}
