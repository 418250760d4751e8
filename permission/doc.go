// Package permission is the authorization policy for account administration.
//
// Roles form the ordered hierarchy user < collaborator < admin. Privileged
// mutations of another account are decided by one table keyed by
// (caller class, target class, action) where the class folds in super-admin
// membership, taken from a configured email allow-list. Nothing here does I/O.
package permission
