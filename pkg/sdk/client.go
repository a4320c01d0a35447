package sdk

import (
	"bufio"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/celerix-dev/looply/pkg/habit"
	"go.uber.org/zap"
)

// Client is a remote client for the looply store daemon.
// It implements the Store interface.
type Client struct {
	addr   string
	useTLS bool
	log    *zap.Logger

	conn   net.Conn
	reader *bufio.Reader
	mu     sync.Mutex // Protects concurrent access to the connection
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithoutTLS dials plain TCP instead of TLS.
func WithoutTLS() ClientOption {
	return func(c *Client) { c.useTLS = false }
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// Connect establishes a TLS-encrypted connection to a remote store daemon.
func Connect(addr string, opts ...ClientOption) (*Client, error) {
	c := &Client{addr: addr, useTLS: true, log: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.reconnect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) reconnect() error {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 60 * time.Second,
	}

	var conn net.Conn
	var err error
	if c.useTLS {
		config := &tls.Config{
			InsecureSkipVerify: true, // the daemon uses a self-signed certificate
		}
		conn, err = tls.DialWithDialer(dialer, "tcp", c.addr, config)
	} else {
		conn, err = dialer.Dial("tcp", c.addr)
	}
	if err != nil {
		return err
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	return nil
}

// sendAndReceive writes one command line and reads one reply line.
// Reads are retried up to 3 times; writes are retried only while the
// command could not be sent, so an append is never applied twice.
func (c *Client) sendAndReceive(cmd string, idempotent bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	for i := 0; i < 3; i++ {
		if c.conn == nil {
			if reconnectErr := c.reconnect(); reconnectErr != nil {
				err = fmt.Errorf("reconnect failed: %w", reconnectErr)
				time.Sleep(time.Duration((i+1)*200) * time.Millisecond)
				continue
			}
		}

		c.conn.SetDeadline(time.Now().Add(30 * time.Second))

		sent := false
		if _, err = fmt.Fprint(c.conn, cmd+"\n"); err == nil {
			sent = true
			var resp string
			if resp, err = c.reader.ReadString('\n'); err == nil {
				resp = strings.TrimSpace(resp)
				if strings.HasPrefix(resp, "ERR") {
					return "", DecodeError(strings.TrimSpace(strings.TrimPrefix(resp, "ERR")))
				}
				return resp, nil
			}
		}

		c.log.Warn("store request failed",
			zap.Int("attempt", i+1),
			zap.String("addr", c.addr),
			zap.Error(err),
		)
		if closeErr := c.reconnect(); closeErr != nil {
			c.log.Warn("reconnect failed", zap.Error(closeErr))
		}
		if sent && !idempotent {
			return "", fmt.Errorf("connection lost after sending command: %w", err)
		}
		time.Sleep(time.Duration((i+1)*200) * time.Millisecond)
	}

	return "", fmt.Errorf("failed after 3 attempts. last error: %w", err)
}

// call sends verb with args and decodes the JSON payload of the OK reply into out.
func (c *Client) call(out any, idempotent bool, verb string, args ...string) error {
	cmd := strings.Join(append([]string{verb}, args...), " ")
	resp, err := c.sendAndReceive(cmd, idempotent)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	payload := strings.TrimSpace(strings.TrimPrefix(resp, "OK"))
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("decode %s reply: %w", verb, err)
	}
	return nil
}

func encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Ping checks that the daemon answers.
func (c *Client) Ping() error {
	resp, err := c.sendAndReceive("PING", true)
	if err != nil {
		return err
	}
	if resp != "PONG" {
		return fmt.Errorf("unexpected ping reply %q", resp)
	}
	return nil
}

func (c *Client) Profiles() ([]string, error) {
	var list []string
	err := c.call(&list, true, "PROFILES")
	return list, err
}

func (c *Client) User(profileID string) (habit.User, error) {
	var u habit.User
	err := c.call(&u, true, "USER", profileID)
	return u, err
}

func (c *Client) SetUser(profileID string, u habit.User) error {
	payload, err := encode(u)
	if err != nil {
		return err
	}
	return c.call(nil, true, "SET_USER", profileID, payload)
}

func (c *Client) Settings(profileID string) (habit.Settings, error) {
	var s habit.Settings
	err := c.call(&s, true, "SETTINGS", profileID)
	return s, err
}

func (c *Client) UpdateSettings(profileID string, p habit.SettingsPatch) (habit.Settings, error) {
	var s habit.Settings
	payload, err := encode(p)
	if err != nil {
		return s, err
	}
	err = c.call(&s, true, "UPDATE_SETTINGS", profileID, payload)
	return s, err
}

func (c *Client) Reset(profileID string) error {
	return c.call(nil, true, "RESET", profileID)
}

func (c *Client) Habits(profileID string) ([]habit.Habit, error) {
	var list []habit.Habit
	err := c.call(&list, true, "HABITS", profileID)
	return list, err
}

func (c *Client) Logs(profileID string) ([]habit.Log, error) {
	var list []habit.Log
	err := c.call(&list, true, "LOGS", profileID)
	return list, err
}

func (c *Client) AddHabit(profileID string, h habit.Habit) (habit.Habit, error) {
	var out habit.Habit
	payload, err := encode(h)
	if err != nil {
		return out, err
	}
	err = c.call(&out, false, "ADD_HABIT", profileID, payload)
	return out, err
}

func (c *Client) UpdateHabit(profileID, habitID string, p habit.HabitPatch) (habit.Habit, error) {
	var out habit.Habit
	payload, err := encode(p)
	if err != nil {
		return out, err
	}
	err = c.call(&out, true, "UPDATE_HABIT", profileID, habitID, payload)
	return out, err
}

func (c *Client) AddLog(profileID string, l habit.Log) (habit.Log, error) {
	var out habit.Log
	payload, err := encode(l)
	if err != nil {
		return out, err
	}
	err = c.call(&out, false, "ADD_LOG", profileID, payload)
	return out, err
}

func (c *Client) UpdateLog(profileID, logID string, p habit.LogPatch) (habit.Log, error) {
	var out habit.Log
	payload, err := encode(p)
	if err != nil {
		return out, err
	}
	err = c.call(&out, true, "UPDATE_LOG", profileID, logID, payload)
	return out, err
}

func (c *Client) Snapshot(profileID string) (habit.Snapshot, error) {
	var s habit.Snapshot
	err := c.call(&s, true, "SNAPSHOT", profileID)
	return s, err
}

func (c *Client) Restore(profileID string, s habit.Snapshot) error {
	payload, err := encode(s)
	if err != nil {
		return err
	}
	return c.call(nil, true, "RESTORE", profileID, payload)
}

// Profile returns a scope pinned to profileID.
func (c *Client) Profile(profileID string) ProfileScope {
	return Scope(c, profileID)
}

// Close says goodbye to the daemon and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	fmt.Fprintln(c.conn, "QUIT")
	err := c.conn.Close()
	c.conn = nil
	return err
}
