package app

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/dshills/chatstorm/internal/prefs"
	"github.com/dshills/chatstorm/internal/protocol"
)

// configurePrompt describes one interactively configured preference.
type configurePrompt struct {
	key      string
	desc     string
	password bool
}

var basicPrompts = []configurePrompt{
	{prefs.KeyUsername, "Your username", false},
	{prefs.KeyPassword, "Your password", true},
	{prefs.KeyAutojoins, "The rooms you want to automatically join upon logging in (comma-separated)", false},
}

var advancedPrompts = []configurePrompt{
	{prefs.KeyCommandChar, "The character to use before commands ('%' is recommended)", false},
	{prefs.KeyPrompt, "The prompt to use. If you don't know what you're doing, it's best to set this to '{room}> '", false},
}

// Configure interactively prompts for preference values and writes the
// non-empty answers back to the store. Password input is masked when
// stdin is a terminal.
func (app *Application) Configure(advanced bool) error {
	prompts := basicPrompts
	if advanced {
		prompts = append(append([]configurePrompt{}, basicPrompts...), advancedPrompts...)
	}

	reader := bufio.NewReader(app.in)

	for _, p := range prompts {
		current := app.store.GetString(p.key)
		if p.password && current != "" {
			current = "******"
		}

		app.printer.Prompt(fmt.Sprintf("%s (currently: %s): ", p.desc, current))

		value, err := app.readAnswer(reader, p.password)
		if err != nil {
			return fmt.Errorf("configure %s: %w", p.key, err)
		}
		if value == "" {
			continue
		}

		if p.key == prefs.KeyAutojoins {
			rooms := strings.Split(value, ",")
			ids := make([]string, 0, len(rooms))
			for _, room := range rooms {
				ids = append(ids, protocol.ToID(room))
			}
			if err := app.store.Set(p.key, ids); err != nil {
				return err
			}
			continue
		}

		if err := app.store.Set(p.key, value); err != nil {
			return err
		}
	}

	app.printer.Prompt("Display join/leave messages? (y/n): ")
	answer, err := app.readAnswer(reader, false)
	if err != nil {
		return fmt.Errorf("configure showjoins: %w", err)
	}
	answer = strings.ToLower(answer)
	show := answer == "y" || answer == "yes"
	if err := app.store.Set(prefs.KeyShowJoins, show); err != nil {
		return err
	}

	app.printer.Line(fmt.Sprintf("Preferences saved to %s", app.store.Path()))
	return nil
}

// readAnswer reads one trimmed answer line. Masked reads go through the
// terminal when stdin is one; otherwise they fall back to a plain read
// so the flow still works under tests and pipes.
func (app *Application) readAnswer(reader *bufio.Reader, masked bool) (string, error) {
	if masked && app.in == os.Stdin && term.IsTerminal(int(os.Stdin.Fd())) {
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		app.printer.Line("")
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(raw)), nil
	}

	line, err := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if err != nil && line == "" {
		return "", err
	}
	return line, nil
}
