package protocol

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// WSConn is a Connection over a websocket transport. It reads frames,
// parses them into events and hands them to the registered callback.
// It does not reconnect; a broken socket is reported once through the
// error handler and the read loop ends.
type WSConn struct {
	ws  *websocket.Conn
	log *slog.Logger

	username string
	password string
	loginURL string

	mu      sync.Mutex
	rooms   map[string]*Room
	userID  string
	handler func(Event)
	onError func(error)

	loggedIn atomic.Bool
}

// DialOption configures a WSConn.
type DialOption func(*WSConn)

// WithLogger sets the connection logger.
func WithLogger(log *slog.Logger) DialOption {
	return func(c *WSConn) {
		c.log = log
	}
}

// WithErrorHandler sets the callback invoked when the read loop fails.
func WithErrorHandler(fn func(error)) DialOption {
	return func(c *WSConn) {
		c.onError = fn
	}
}

// Dial connects to a chat server websocket endpoint.
func Dial(url string, opts ...DialOption) (*WSConn, error) {
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	c := &WSConn{
		ws:       ws,
		log:      slog.Default(),
		loginURL: DefaultLoginURL,
		rooms:    make(map[string]*Room),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start begins reading frames. OnEvent must be registered first.
func (c *WSConn) Start() {
	go c.readLoop()
}

// OnEvent registers the event callback.
func (c *WSConn) OnEvent(fn func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = fn
}

// Send writes one outbound line.
func (c *WSConn) Send(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ws.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// Room returns the tracked room with the given ID, or nil.
func (c *WSConn) Room(id string) *Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rooms[id]
}

// JoinRoom tracks a room and asks the server to join it.
func (c *WSConn) JoinRoom(id string) {
	id = ToID(id)

	c.mu.Lock()
	if _, ok := c.rooms[id]; ok {
		c.mu.Unlock()
		return
	}
	c.rooms[id] = &Room{ID: id}
	c.mu.Unlock()

	if err := c.Send("|/join " + id); err != nil {
		c.log.Error("join failed", "room", id, "error", err)
	}
}

// LoggedIn reports whether the server has confirmed a named user.
func (c *WSConn) LoggedIn() bool {
	return c.loggedIn.Load()
}

// UserID returns the local user's identifier, or "" before login.
func (c *WSConn) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// Close shuts down the websocket.
func (c *WSConn) Close() error {
	return c.ws.Close()
}

func (c *WSConn) readLoop() {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.log.Error("connection read failed", "error", err)
			c.mu.Lock()
			onError := c.onError
			c.mu.Unlock()
			if onError != nil {
				onError(err)
			}
			return
		}

		for _, ev := range parseFrame(string(data)) {
			c.track(ev)

			c.mu.Lock()
			handler := c.handler
			c.mu.Unlock()
			if handler != nil {
				handler(ev)
			}
		}
	}
}

// track updates login and room state from control messages before the
// event reaches the client.
func (c *WSConn) track(ev Event) {
	if ev.Kind != KindOther {
		return
	}

	// |challstr|... starts the login handshake when credentials were
	// supplied.
	if rest, ok := strings.CutPrefix(ev.Raw, "|challstr|"); ok {
		if c.username != "" {
			go c.login(rest)
		}
		return
	}

	// |updateuser|user|named|... confirms login with named=1.
	if !strings.HasPrefix(ev.Raw, "|updateuser|") {
		return
	}
	fields := strings.Split(ev.Raw[1:], "|")
	if len(fields) >= 3 && fields[2] == "1" {
		c.mu.Lock()
		c.userID = ToID(fields[1])
		c.mu.Unlock()
		c.loggedIn.Store(true)
	}
}
