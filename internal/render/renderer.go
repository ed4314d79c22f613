// Package render turns protocol events into display units and prints
// them as styled terminal lines.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/dshills/chatstorm/internal/prefs"
	"github.com/dshills/chatstorm/internal/protocol"
)

// rawDelimiter marks embedded rich-markup segments inside a chat body.
const rawDelimiter = "|raw|"

// Unit is one line of output. Markup units carry inline tags the
// printer styles; plain units are printed verbatim.
type Unit struct {
	Text   string
	Markup bool
}

// Renderer classifies events into display units. Rules are first-match
// per event kind; anything unmatched degrades to the raw protocol line.
type Renderer struct {
	store  *prefs.Store
	selfID func() string
}

// New creates a renderer. selfID reports the local user's identifier
// and may return "" before login.
func New(store *prefs.Store, selfID func() string) *Renderer {
	if selfID == nil {
		selfID = func() string { return "" }
	}
	return &Renderer{store: store, selfID: selfID}
}

// Render produces the display units for an event. A nil result means
// the event is suppressed.
func (r *Renderer) Render(ev protocol.Event) []Unit {
	if r.blacklisted(ev.Kind) {
		return nil
	}

	switch ev.Kind {
	case protocol.KindChat:
		if ev.SenderName != "" && ev.Body != "" && ev.Room != "" {
			return r.renderChat(ev)
		}
	case protocol.KindPM:
		if ev.SenderName != "" && ev.SenderID != r.selfID() {
			return []Unit{{Text: fmt.Sprintf("(PM from %s) %s", strings.TrimSpace(ev.SenderName), ev.Body)}}
		}
		// Self-sent PMs fall through to the raw line on purpose.
	case protocol.KindJoin, protocol.KindLeave:
		if ev.Room != "" && ev.SenderName != "" {
			if !r.store.GetBool(prefs.KeyShowJoins) {
				return nil
			}
			verb := "joined"
			if ev.Kind == protocol.KindLeave {
				verb = "left"
			}
			return []Unit{{Text: fmt.Sprintf("%s %s %s", strings.TrimSpace(ev.SenderName), verb, ev.Room)}}
		}
	case protocol.KindRaw, protocol.KindHTML, protocol.KindUHTML:
		if ev.Raw != "" {
			if units := renderMarkupLine(ev); units != nil {
				return units
			}
		}
	}

	return []Unit{{Text: ev.Raw}}
}

// renderChat formats a chat line and splits out embedded rich segments
// after each "|raw|" delimiter into their own markup units.
func (r *Renderer) renderChat(ev protocol.Event) []Unit {
	timeSegment := ""
	if ev.Timestamp != 0 {
		timeSegment = "[" + time.Unix(ev.Timestamp, 0).UTC().Format("15:04:05") + "] "
	}

	body := ev.Body
	var extra []Unit
	if strings.Contains(body, rawDelimiter) {
		parts := strings.Split(body, rawDelimiter)
		body = parts[0]
		for _, part := range parts[1:] {
			extra = append(extra, Unit{Text: Sanitize(part), Markup: true})
		}
	}

	line := fmt.Sprintf("(%s) %s%s: %s", ev.Room, timeSegment, strings.TrimSpace(ev.SenderName), body)
	return append([]Unit{{Text: line}}, extra...)
}

// renderMarkupLine extracts the payload of a raw/html/uhtml protocol
// line. Returns nil when the line has fewer fields than the kind
// requires, letting the caller fall back to the verbatim raw line.
func renderMarkupLine(ev protocol.Event) []Unit {
	fieldCount := 2
	if ev.Kind == protocol.KindUHTML {
		fieldCount = 3
	}

	parts := strings.SplitN(ev.Raw, "|", fieldCount+1)
	if len(parts) < fieldCount+1 {
		return nil
	}

	payload := parts[fieldCount]
	if ev.Kind == protocol.KindUHTML {
		payload = parts[fieldCount-1] + ": " + payload
	}
	return []Unit{{Text: Sanitize(payload), Markup: true}}
}

// blacklisted reports whether a kind is suppressed by preference.
func (r *Renderer) blacklisted(kind protocol.Kind) bool {
	for _, k := range r.store.GetStrings(prefs.KeyBlacklist) {
		if k == string(kind) {
			return true
		}
	}
	return false
}
