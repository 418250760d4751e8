package permission

import (
	"errors"
	"strings"
)

// Action is a privileged mutation of a user record.
type Action string

const (
	ActionRoleChange   Action = "role_change"
	ActionStatusChange Action = "status_change"
	ActionDelete       Action = "delete"
)

var (
	// ErrNotAdmin is returned when the caller role is not exactly admin.
	ErrNotAdmin = errors.New("admin role required")
	// ErrSuperAdminProtected is returned when a non-super-admin targets a super-admin.
	ErrSuperAdminProtected = errors.New("super-admin accounts can only be modified by super-admins")
	// ErrPeerAdmin is returned when an ordinary admin targets another admin.
	ErrPeerAdmin = errors.New("admins cannot modify other admin accounts")
)

// Subject is a caller or target as seen by the policy.
type Subject struct {
	Username string
	Email    string
	Role     Role
}

type class uint8

const (
	classMember class = iota // user or collaborator
	classAdmin
	classSuperAdmin
)

type rule struct {
	caller class
	target class
	action Action
}

// decisions lists every allowed or denied combination. Missing entries deny.
var decisions = func() map[rule]error {
	table := make(map[rule]error)
	for _, a := range []Action{ActionRoleChange, ActionStatusChange, ActionDelete} {
		table[rule{classAdmin, classMember, a}] = nil
		table[rule{classAdmin, classAdmin, a}] = ErrPeerAdmin
		table[rule{classAdmin, classSuperAdmin, a}] = ErrSuperAdminProtected
		table[rule{classSuperAdmin, classMember, a}] = nil
		table[rule{classSuperAdmin, classAdmin, a}] = nil
		table[rule{classSuperAdmin, classSuperAdmin, a}] = nil
	}
	return table
}()

// Policy evaluates admin decisions. The zero value has no super-admins.
type Policy struct {
	superAdmins map[string]struct{}
}

// NewPolicy builds a policy with the given super-admin email allow-list.
// Emails compare case-insensitively.
func NewPolicy(superAdminEmails []string) *Policy {
	p := &Policy{superAdmins: make(map[string]struct{}, len(superAdminEmails))}
	for _, e := range superAdminEmails {
		if e = normalizeEmail(e); e != "" {
			p.superAdmins[e] = struct{}{}
		}
	}
	return p
}

// IsSuperAdmin reports whether email is on the allow-list.
func (p *Policy) IsSuperAdmin(email string) bool {
	if p == nil || len(p.superAdmins) == 0 {
		return false
	}
	_, ok := p.superAdmins[normalizeEmail(email)]
	return ok
}

// RequireAdmin fails unless role is exactly admin.
func RequireAdmin(role Role) error {
	if !role.IsAdmin() {
		return ErrNotAdmin
	}
	return nil
}

// Decide reports whether caller may perform action on target. It returns nil
// when allowed and one of the package errors otherwise.
func (p *Policy) Decide(caller, target Subject, action Action) error {
	if err := RequireAdmin(caller.Role); err != nil {
		return err
	}

	// Acting on oneself is always allowed for an admin.
	if sameAccount(caller, target) {
		return nil
	}

	err, ok := decisions[rule{p.classify(caller), p.classify(target), action}]
	if !ok {
		return ErrNotAdmin
	}
	return err
}

// classify keys super-admins by email alone so a listed account keeps its
// protection after a demotion.
func (p *Policy) classify(s Subject) class {
	switch {
	case p.IsSuperAdmin(s.Email):
		return classSuperAdmin
	case s.Role.IsAdmin():
		return classAdmin
	default:
		return classMember
	}
}

func sameAccount(a, b Subject) bool {
	return a.Username != "" && strings.EqualFold(a.Username, b.Username)
}
