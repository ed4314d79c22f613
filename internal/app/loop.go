package app

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/dshills/chatstorm/internal/prefs"
)

// busyPollInterval is how often the input producer re-checks the busy
// flag while the dispatch loop is still working on the previous line.
const busyPollInterval = 10 * time.Millisecond

// Run drives the dispatch loop: per tick it pops at most one event and
// one input line, never blocking on either queue. When both queues are
// empty it sleeps until a producer signals. Returns when Stop is
// called; the exit command terminates the process without returning.
func (app *Application) Run() error {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	defer signal.Stop(sigc)

	go app.inputLoop()

	for {
		app.maybeAutojoin()

		worked := false

		if ev, ok := app.events.TryPop(); ok {
			app.printer.Print(app.renderer.Render(ev))
			worked = true
		}

		if line, ok := app.lines.TryPop(); ok {
			app.dispatchLine(line)
			worked = true
		}
		// An empty line queue or a finished line both release the
		// input producer to prompt again.
		app.busy.Store(false)

		if worked {
			continue
		}

		select {
		case <-app.events.Ready():
		case <-app.lines.Ready():
		case <-sigc:
			app.printer.Line(fmt.Sprintf("Use %sexit to exit.", app.cmdChar))
		case <-time.After(500 * time.Millisecond):
			// Wake to re-check login state for autojoin.
		case <-app.done:
			return nil
		}
	}
}

// dispatchLine routes one input line: a command when it starts with the
// command prefix, otherwise a chat message for the current room. All
// errors are recovered here and shown as a single red line.
func (app *Application) dispatchLine(line string) {
	if line == "" {
		return
	}

	if !strings.HasPrefix(line, app.cmdChar) {
		if err := app.send(line); err != nil {
			app.printer.Errorf("Error: %v", err)
		}
		return
	}

	name, arg, _ := strings.Cut(strings.TrimPrefix(line, app.cmdChar), " ")
	handler, ok := app.registry.Lookup(name)
	if !ok {
		app.printer.Line(fmt.Sprintf("Unknown command '%s%s'", app.cmdChar, name))
		return
	}

	if err := handler(arg); err != nil {
		app.printer.Errorf("Error: %v", err)
	}
}

// inputLoop is the input producer. It blocks reading one line at a
// time, holding off while the previous line is still being processed,
// and ends at EOF.
func (app *Application) inputLoop() {
	reader := bufio.NewReader(app.in)

	for {
		for app.busy.Load() {
			select {
			case <-app.done:
				return
			case <-time.After(busyPollInterval):
			}
		}

		app.printer.Prompt(app.prompt())

		line, err := reader.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line != "" {
			app.busy.Store(true)
			app.lines.Push(line)
		}
		if err != nil {
			return
		}
	}
}

// maybeAutojoin joins the configured rooms once the connection reports
// a logged-in user.
func (app *Application) maybeAutojoin() {
	if app.autojoined || app.conn == nil || !app.conn.LoggedIn() {
		return
	}
	app.autojoined = true

	for _, room := range app.store.GetStrings(prefs.KeyAutojoins) {
		app.conn.JoinRoom(room)
	}
	app.printer.Line("Logged in!")
}
