// Package client talks to the gophauth server: UsersClient calls the JSON
// users API and keeps the credential cookies in a jar, HealthClient probes
// the gRPC health endpoint.
//
// Transport failures are reported as ErrUnavailable, non-2xx responses as
// *APIError carrying the status code and the server's message.
package client
