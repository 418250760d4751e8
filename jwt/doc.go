// Package jwt is the token service: it signs and verifies the stateless access
// and refresh tokens that carry a caller's username and role.
//
// Access and refresh tokens share one claim set and are told apart by the
// "typ" claim, so one can never be replayed as the other.
package jwt
