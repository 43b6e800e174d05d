// Package cli provides the interactive usermanager command-line client.
//
// It wires configuration and the HTTP API client into a small REPL:
//   - register: create an account with a role
//   - confirm: redeem the token from the confirmation email
//   - login / logout: obtain or forget a session token
//   - me: show the identity carried by the current session token
//
// The session token lives only in process memory. The REPL is started via
// App.Run(ctx), which blocks until the user exits or stdin is closed.
package cli
