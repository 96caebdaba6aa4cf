// Package cli provides the interactive gophauth command-line client.
//
// It wires configuration, the users API client and an interactive REPL.
// A background watcher probes the server's health endpoint and reports when
// the client goes online or offline.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
