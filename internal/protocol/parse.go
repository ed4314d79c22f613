package protocol

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// parseFrame splits one websocket frame into events. A frame optionally
// opens with ">roomid" naming the room the following lines belong to.
func parseFrame(frame string) []Event {
	room := ""
	var events []Event

	for _, line := range strings.Split(frame, "\n") {
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ">") {
			room = strings.TrimPrefix(line, ">")
			continue
		}
		events = append(events, parseLine(room, line))
	}
	return events
}

// parseLine classifies a single protocol line. Lines that don't match a
// known message type come back as KindOther with only the raw fallback
// populated.
func parseLine(room, line string) Event {
	ev := Event{Kind: KindOther, Room: room, Raw: line}
	if !strings.HasPrefix(line, "|") {
		return ev
	}

	fields := strings.Split(line[1:], "|")
	switch fields[0] {
	case "c:":
		// |c:|timestamp|user|message
		if len(fields) >= 4 {
			ev.Kind = KindChat
			if ts, err := strconv.ParseInt(fields[1], 10, 64); err == nil {
				ev.Timestamp = ts
			}
			ev.SenderName = trimRank(fields[2])
			ev.SenderID = ToID(fields[2])
			ev.Body = strings.Join(fields[3:], "|")
		}
	case "c", "chat":
		// |c|user|message
		if len(fields) >= 3 {
			ev.Kind = KindChat
			ev.SenderName = trimRank(fields[1])
			ev.SenderID = ToID(fields[1])
			ev.Body = strings.Join(fields[2:], "|")
		}
	case "pm":
		// |pm|sender|receiver|message
		if len(fields) >= 4 {
			ev.Kind = KindPM
			ev.SenderName = trimRank(fields[1])
			ev.SenderID = ToID(fields[1])
			ev.Body = strings.Join(fields[3:], "|")
		}
	case "j", "J", "join":
		if len(fields) >= 2 {
			ev.Kind = KindJoin
			ev.SenderName = trimRank(fields[1])
			ev.SenderID = ToID(fields[1])
		}
	case "l", "L", "leave":
		if len(fields) >= 2 {
			ev.Kind = KindLeave
			ev.SenderName = trimRank(fields[1])
			ev.SenderID = ToID(fields[1])
		}
	case "raw":
		ev.Kind = KindRaw
	case "html":
		ev.Kind = KindHTML
	case "uhtml":
		ev.Kind = KindUHTML
	}
	return ev
}

// trimRank drops the single-character rank prefix servers attach to
// usernames (" user", "+user", "@user").
func trimRank(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	switch r {
	case ' ', '+', '%', '@', '*', '#', '&', '~', '☆':
		return name[size:]
	}
	return name
}
