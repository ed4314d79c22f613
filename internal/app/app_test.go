package app

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dshills/chatstorm/internal/prefs"
	"github.com/dshills/chatstorm/internal/protocol"
)

// fakeConn records everything the app asks of the connection.
type fakeConn struct {
	mu       sync.Mutex
	sent     []string
	joined   []string
	rooms    map[string]*protocol.Room
	user     string
	loggedIn bool
	handler  func(protocol.Event)
}

func newFakeConn() *fakeConn {
	return &fakeConn{rooms: make(map[string]*protocol.Room)}
}

func (c *fakeConn) Send(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, text)
	return nil
}

func (c *fakeConn) Room(id string) *protocol.Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rooms[id]
}

func (c *fakeConn) JoinRoom(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id = protocol.ToID(id)
	c.joined = append(c.joined, id)
	c.rooms[id] = &protocol.Room{ID: id}
}

func (c *fakeConn) LoggedIn() bool   { return c.loggedIn }
func (c *fakeConn) UserID() string   { return c.user }
func (c *fakeConn) OnEvent(fn func(protocol.Event)) {
	c.handler = fn
}

func (c *fakeConn) sentLines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.sent))
	copy(out, c.sent)
	return out
}

// syncBuffer is a bytes.Buffer safe for cross-goroutine reads in the
// Run tests.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestApp(t *testing.T, conn protocol.Connection, mod func(*Options)) (*Application, *syncBuffer) {
	t.Helper()

	out := &syncBuffer{}
	opts := Options{
		PrefsPath: filepath.Join(t.TempDir(), "prefs.json"),
		Input:     strings.NewReader(""),
		Output:    out,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if mod != nil {
		mod(&opts)
	}

	a, err := New(conn, opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(a.Close)
	return a, out
}

func TestRoomCommandSwitchesContextWithoutSending(t *testing.T) {
	conn := newFakeConn()
	a, _ := newTestApp(t, conn, nil)

	a.dispatchLine("%room lobby")

	if a.Room() != "lobby" {
		t.Errorf("Room() = %q, want lobby", a.Room())
	}
	if got := conn.sentLines(); len(got) != 0 {
		t.Errorf("Send was called: %v, want no sends", got)
	}
	if len(conn.joined) != 1 || conn.joined[0] != "lobby" {
		t.Errorf("joined = %v, want [lobby]", conn.joined)
	}
}

func TestRoomCommandNormalizesIdentifier(t *testing.T) {
	conn := newFakeConn()
	a, _ := newTestApp(t, conn, nil)

	a.dispatchLine("%room Tech & Code")

	if a.Room() != "techcode" {
		t.Errorf("Room() = %q, want techcode", a.Room())
	}
}

func TestRoomCommandSkipsJoinWhenTracked(t *testing.T) {
	conn := newFakeConn()
	conn.rooms["lobby"] = &protocol.Room{ID: "lobby"}
	a, _ := newTestApp(t, conn, nil)

	a.dispatchLine("%room lobby")

	if len(conn.joined) != 0 {
		t.Errorf("joined = %v, want none for a tracked room", conn.joined)
	}
}

func TestPlainLineSendsToCurrentRoom(t *testing.T) {
	conn := newFakeConn()
	conn.rooms["lobby"] = &protocol.Room{ID: "lobby"}
	a, _ := newTestApp(t, conn, nil)

	a.dispatchLine("%room lobby")
	a.dispatchLine("hello there")

	got := conn.sentLines()
	if len(got) != 1 || got[0] != "lobby|hello there" {
		t.Errorf("sent = %v, want [lobby|hello there]", got)
	}
}

func TestPlainLineInGlobalContext(t *testing.T) {
	conn := newFakeConn()
	a, _ := newTestApp(t, conn, nil)

	a.dispatchLine("hello")

	got := conn.sentLines()
	if len(got) != 1 || got[0] != "|hello" {
		t.Errorf("sent = %v, want [|hello]", got)
	}
}

func TestUnknownCommand(t *testing.T) {
	conn := newFakeConn()
	a, out := newTestApp(t, conn, nil)

	a.dispatchLine("%bogus stuff")

	if !strings.Contains(out.String(), "Unknown command '%bogus'") {
		t.Errorf("output = %q, want unknown-command message", out.String())
	}
	if got := conn.sentLines(); len(got) != 0 {
		t.Errorf("unknown command reached Send: %v", got)
	}
}

func TestCommandCaseInsensitive(t *testing.T) {
	conn := newFakeConn()
	a, _ := newTestApp(t, conn, nil)

	a.dispatchLine("%ROOM lobby")

	if a.Room() != "lobby" {
		t.Errorf("Room() = %q, want lobby after %%ROOM", a.Room())
	}
}

func TestCommandCharFromPrefs(t *testing.T) {
	conn := newFakeConn()
	path := filepath.Join(t.TempDir(), "prefs.json")
	store, err := prefs.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Set(prefs.KeyCommandChar, "!"); err != nil {
		t.Fatal(err)
	}

	a, _ := newTestApp(t, conn, func(o *Options) { o.PrefsPath = path })

	a.dispatchLine("!room lobby")
	if a.Room() != "lobby" {
		t.Errorf("Room() = %q, want lobby via ! prefix", a.Room())
	}

	// With '!' configured, a %-line is ordinary chat.
	a.dispatchLine("%room other")
	got := conn.sentLines()
	if len(got) != 1 || got[0] != "lobby|%room other" {
		t.Errorf("sent = %v, want the %%-line sent as chat", got)
	}
}

func TestPromptTemplate(t *testing.T) {
	conn := newFakeConn()
	a, _ := newTestApp(t, conn, nil)

	if got := a.prompt(); got != "> " {
		t.Errorf("prompt() = %q, want '> '", got)
	}

	a.dispatchLine("%room lobby")
	if got := a.prompt(); got != "lobby> " {
		t.Errorf("prompt() = %q, want 'lobby> '", got)
	}
}

func TestEvalDisabledByDefault(t *testing.T) {
	conn := newFakeConn()
	a, out := newTestApp(t, conn, nil)

	a.dispatchLine("%eval 1 + 1")

	if !strings.Contains(out.String(), "eval is disabled") {
		t.Errorf("output = %q, want eval-disabled error", out.String())
	}
}

func TestEvalSessionBinding(t *testing.T) {
	conn := newFakeConn()
	conn.user = "me"
	a, out := newTestApp(t, conn, func(o *Options) { o.AllowEval = true })

	a.dispatchLine("%room lobby")
	a.dispatchLine("%eval session.room()")
	a.dispatchLine(`%eval session.user()`)
	a.dispatchLine("%eval 40 + 2")

	output := out.String()
	for _, want := range []string{"lobby", "me", "42"} {
		if !strings.Contains(output, want) {
			t.Errorf("output %q missing %q", output, want)
		}
	}
}

func TestEvalFailureIsNonFatal(t *testing.T) {
	conn := newFakeConn()
	a, out := newTestApp(t, conn, func(o *Options) { o.AllowEval = true })

	a.dispatchLine(`%eval error("boom")`)
	a.dispatchLine("%room lobby")

	if !strings.Contains(out.String(), "Error:") {
		t.Errorf("output = %q, want a red error line", out.String())
	}
	if a.Room() != "lobby" {
		t.Error("dispatch stopped working after an eval failure")
	}
}

func TestLoadMissingPluginReportsError(t *testing.T) {
	conn := newFakeConn()
	a, out := newTestApp(t, conn, nil)

	a.dispatchLine("%load ghost")

	if !strings.Contains(out.String(), "Error:") {
		t.Errorf("output = %q, want error line for missing plugin", out.String())
	}
}

func TestPluginsCommandListsLoaded(t *testing.T) {
	conn := newFakeConn()
	pluginDir := t.TempDir()
	src := "commands = {\n  hug = function(arg) end,\n  wave = function(arg) end,\n}\n"
	if err := os.WriteFile(filepath.Join(pluginDir, "social.lua"), []byte(src), 0o600); err != nil {
		t.Fatal(err)
	}

	a, out := newTestApp(t, conn, func(o *Options) { o.PluginPaths = []string{pluginDir} })

	a.dispatchLine("%plugins")
	if !strings.Contains(out.String(), "No plugins loaded.") {
		t.Errorf("output = %q, want empty-list message", out.String())
	}

	a.dispatchLine("%load social")
	a.dispatchLine("%plugins")
	if !strings.Contains(out.String(), "social: hug, wave") {
		t.Errorf("output = %q, want plugin command listing", out.String())
	}
}

func TestEmptyLineIgnored(t *testing.T) {
	conn := newFakeConn()
	a, _ := newTestApp(t, conn, nil)

	a.dispatchLine("")

	if got := conn.sentLines(); len(got) != 0 {
		t.Errorf("empty line reached Send: %v", got)
	}
}

func TestConfigureWritesAnswers(t *testing.T) {
	conn := newFakeConn()
	input := "ann\nhunter2\nLobby, Tech & Code\ny\n"
	a, out := newTestApp(t, conn, func(o *Options) { o.Input = strings.NewReader(input) })

	if err := a.Configure(false); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	if !strings.Contains(out.String(), "Preferences saved to "+a.Prefs().Path()) {
		t.Errorf("output = %q, want save confirmation with the prefs path", out.String())
	}

	store := a.Prefs()
	if got := store.GetString(prefs.KeyUsername); got != "ann" {
		t.Errorf("username = %q, want ann", got)
	}
	if got := store.GetString(prefs.KeyPassword); got != "hunter2" {
		t.Errorf("password = %q, want hunter2", got)
	}
	rooms := store.GetStrings(prefs.KeyAutojoins)
	if len(rooms) != 2 || rooms[0] != "lobby" || rooms[1] != "techcode" {
		t.Errorf("autojoins = %v, want [lobby techcode]", rooms)
	}
	if !store.GetBool(prefs.KeyShowJoins) {
		t.Error("showjoins = false, want true")
	}
}

func TestConfigureEmptyAnswersKeepValues(t *testing.T) {
	conn := newFakeConn()
	path := filepath.Join(t.TempDir(), "prefs.json")
	store, err := prefs.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Set(prefs.KeyUsername, "keepme"); err != nil {
		t.Fatal(err)
	}

	input := "\n\n\nn\n"
	a, _ := newTestApp(t, conn, func(o *Options) {
		o.PrefsPath = path
		o.Input = strings.NewReader(input)
	})

	if err := a.Configure(false); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	if got := a.Prefs().GetString(prefs.KeyUsername); got != "keepme" {
		t.Errorf("username = %q, want keepme", got)
	}
	if a.Prefs().GetBool(prefs.KeyShowJoins) {
		t.Error("showjoins = true, want false for 'n'")
	}
}

func TestConfigureAdvancedPromptsExtras(t *testing.T) {
	conn := newFakeConn()
	input := "\n\n\n!\ncmd: \ny\n"
	a, _ := newTestApp(t, conn, func(o *Options) { o.Input = strings.NewReader(input) })

	if err := a.Configure(true); err != nil {
		t.Fatalf("Configure(advanced) error = %v", err)
	}

	if got := a.Prefs().GetString(prefs.KeyCommandChar); got != "!" {
		t.Errorf("commandchar = %q, want !", got)
	}
	if got := a.Prefs().GetString(prefs.KeyPrompt); got != "cmd:" {
		t.Errorf("prompt = %q, want cmd:", got)
	}
}

func TestRunRendersQueuedEvents(t *testing.T) {
	conn := newFakeConn()
	a, out := newTestApp(t, conn, nil)

	a.events.Push(protocol.Event{
		Kind:       protocol.KindChat,
		SenderName: "ann",
		SenderID:   "ann",
		Body:       "hi",
		Room:       "lobby",
		Raw:        "|c|ann|hi",
	})

	done := make(chan error, 1)
	go func() { done <- a.Run() }()

	waitFor(t, func() bool {
		return strings.Contains(out.String(), "(lobby) ann: hi")
	})

	a.Stop()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func TestRunDispatchesInputLines(t *testing.T) {
	conn := newFakeConn()
	a, _ := newTestApp(t, conn, func(o *Options) {
		o.Input = strings.NewReader("hello there\n")
	})

	done := make(chan error, 1)
	go func() { done <- a.Run() }()

	waitFor(t, func() bool {
		got := conn.sentLines()
		return len(got) == 1 && got[0] == "|hello there"
	})

	if a.busy.Load() {
		t.Error("busy flag still set after the line was processed")
	}

	a.Stop()
	<-done
}

func TestRunAutojoinsAfterLogin(t *testing.T) {
	conn := newFakeConn()
	conn.loggedIn = true
	path := filepath.Join(t.TempDir(), "prefs.json")
	store, err := prefs.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Set(prefs.KeyAutojoins, []string{"lobby", "techcode"}); err != nil {
		t.Fatal(err)
	}

	a, out := newTestApp(t, conn, func(o *Options) { o.PrefsPath = path })

	done := make(chan error, 1)
	go func() { done <- a.Run() }()

	waitFor(t, func() bool {
		return strings.Contains(out.String(), "Logged in!")
	})

	a.Stop()
	<-done

	if len(conn.joined) != 2 {
		t.Errorf("joined = %v, want both autojoin rooms", conn.joined)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
