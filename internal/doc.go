// Package internal holds helpers private to blogAuth, such as opaque token
// generation.
package internal
