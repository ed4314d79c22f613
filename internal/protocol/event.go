// Package protocol defines the event model for a line-based chat protocol
// and the connection collaborator that delivers events to the client.
package protocol

import "strings"

// Kind classifies a protocol event for rendering.
type Kind string

// Event kinds delivered by the connection.
const (
	KindChat  Kind = "chat"
	KindPM    Kind = "pm"
	KindJoin  Kind = "join"
	KindLeave Kind = "leave"
	KindRaw   Kind = "raw"
	KindHTML  Kind = "html"
	KindUHTML Kind = "uhtml"
	KindOther Kind = "other"
)

// Event is one protocol occurrence, pre-parsed by the connection layer.
// Raw always holds the original protocol line and is the rendering
// fallback when no specialized rule applies. Events are immutable and
// consumed exactly once by the renderer.
type Event struct {
	Kind       Kind
	SenderName string
	SenderID   string
	Body       string
	Room       string
	Timestamp  int64 // seconds since epoch, 0 = absent
	Raw        string
}

// ToID normalizes a name to its identifier form: lowercase with
// everything but letters and digits removed.
func ToID(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
