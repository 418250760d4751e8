// Package security derives a read-only security posture report from the
// engine configuration and its wired collaborators.
package security
