package cli

import (
	"net/url"
	"strings"
)

// parseConfirmation accepts either a bare token or a confirmation link and
// returns the token and, when the link carries one, the email.
func parseConfirmation(input string) (token, email string) {
	input = strings.TrimSpace(input)
	if !strings.Contains(input, "?") {
		return input, ""
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", ""
	}
	q := u.Query()
	return q.Get("token"), q.Get("email")
}
