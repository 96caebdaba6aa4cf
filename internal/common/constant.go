// Package common contains shared constants and sentinel errors used across
// gophauth components.
package common

// Cookie names carrying the credentials between the browser and the server.
const (
	AccessTokenCookieName  = "accessToken"
	RefreshTokenCookieName = "refreshToken"
)

// AuthorizationHeaderName and BearerPrefix describe the header form of the
// access credential.
const (
	AuthorizationHeaderName = "Authorization"
	BearerPrefix            = "Bearer "
)

// Validation thresholds shared by the server and the CLI client.
const (
	MinNameLength     = 4
	MinPasswordLength = 8
)
