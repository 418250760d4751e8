// Package middleware adapts the blogAuth engine to net/http.
//
// # Guards
//
//   - [Authenticate] verifies the bearer token and stores the identity in the
//     request context.
//   - [RequireAdmin] rejects requests whose identity is not an admin.
//
// Both reject with the JSON envelope {"success":false,"error":"..."} written
// by [WriteError], which the httpapi package also uses for its handlers.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does not parse
// tokens itself; verification is delegated to the engine.
package middleware
