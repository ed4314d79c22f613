package protocol

// Room is a joined conversation channel.
type Room struct {
	ID    string
	Title string
}

// Connection is the collaborator that carries protocol traffic. It
// delivers parsed events asynchronously through the callback registered
// with OnEvent and accepts outbound lines through Send.
//
// Reconnection and authentication are the connection's own concern; the
// client only observes LoggedIn.
type Connection interface {
	// Send writes one outbound line ("room|message" form for chat).
	Send(text string) error

	// Room returns the tracked room with the given ID, or nil.
	Room(id string) *Room

	// JoinRoom starts tracking a room and asks the server to join it.
	JoinRoom(id string)

	// LoggedIn reports whether the connection has an authenticated user.
	LoggedIn() bool

	// UserID returns the identifier of the local user, or "" before login.
	UserID() string

	// OnEvent registers the callback invoked for every inbound event.
	// Must be called before the connection starts delivering.
	OnEvent(fn func(Event))
}
