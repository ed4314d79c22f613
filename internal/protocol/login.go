package protocol

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// DefaultLoginURL is the account service endpoint that turns a login
// challenge into a signed assertion.
const DefaultLoginURL = "https://play.pokemonshowdown.com/action.php"

// WithCredentials makes the connection log in when the server issues
// its challenge. With an empty password the name is claimed as an
// unregistered guest.
func WithCredentials(username, password string) DialOption {
	return func(c *WSConn) {
		c.username = username
		c.password = password
	}
}

// WithLoginURL overrides the account service endpoint.
func WithLoginURL(loginURL string) DialOption {
	return func(c *WSConn) {
		c.loginURL = loginURL
	}
}

// login exchanges the challenge string for an assertion and claims the
// configured name. Runs off the read loop goroutine.
func (c *WSConn) login(challstr string) {
	assertion, err := c.fetchAssertion(challstr)
	if err != nil {
		c.log.Error("login failed", "user", c.username, "error", err)
		return
	}

	if err := c.Send("|/trn " + c.username + ",0," + assertion); err != nil {
		c.log.Error("login failed", "user", c.username, "error", err)
	}
}

func (c *WSConn) fetchAssertion(challstr string) (string, error) {
	form := url.Values{"challstr": {challstr}}
	if c.password == "" {
		form.Set("act", "getassertion")
		form.Set("userid", ToID(c.username))
	} else {
		form.Set("act", "login")
		form.Set("name", c.username)
		form.Set("pass", c.password)
	}

	resp, err := http.PostForm(c.loginURL, form)
	if err != nil {
		return "", fmt.Errorf("account service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("account service: %w", err)
	}

	// A registered login answers with "]" followed by JSON; a guest
	// assertion comes back as the bare token.
	text := string(body)
	if strings.HasPrefix(text, "]") {
		result := gjson.Get(text[1:], "assertion")
		if !result.Exists() {
			return "", fmt.Errorf("account service refused login for %s", c.username)
		}
		text = result.String()
	}
	if text == "" || strings.HasPrefix(text, ";") {
		return "", fmt.Errorf("account service refused login for %s", c.username)
	}
	return text, nil
}
