package blogAuth

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/blogAuth/internal/stores"
	"github.com/MrEthical07/blogAuth/permission"
	"github.com/google/uuid"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// authorizeAdmin checks the token role and then the caller's current record,
// so a demoted or disabled admin loses access before its token expires.
func (e *Engine) authorizeAdmin(ctx context.Context, caller Identity) (permission.Subject, error) {
	if err := permission.RequireAdmin(caller.Role); err != nil {
		return permission.Subject{}, e.adminDenied(ctx, caller.Username, "", ErrAdminRequired)
	}

	rec, err := e.users.Get(ctx, normalizeUsername(caller.Username))
	if err != nil {
		if errors.Is(err, stores.ErrUserNotFound) {
			return permission.Subject{}, e.adminDenied(ctx, caller.Username, "", ErrAdminRequired)
		}
		return permission.Subject{}, unavailable("load caller", err)
	}
	if !rec.IsActive {
		return permission.Subject{}, e.adminDenied(ctx, caller.Username, "", ErrAccountInactive)
	}
	if err := permission.RequireAdmin(Role(rec.Role)); err != nil {
		return permission.Subject{}, e.adminDenied(ctx, caller.Username, "", ErrAdminRequired)
	}
	return subjectOf(rec), nil
}

// decide applies the role and super-admin rules to one mutation.
func (e *Engine) decide(ctx context.Context, caller permission.Subject, target *stores.UserRecord, action permission.Action) error {
	err := e.policy.Decide(caller, subjectOf(target), action)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, permission.ErrSuperAdminProtected):
		err = ErrSuperAdminProtected
	case errors.Is(err, permission.ErrPeerAdmin):
		err = ErrPeerAdmin
	default:
		err = ErrAdminRequired
	}
	return e.adminDenied(ctx, caller.Username, target.Username, err, string(action))
}

func (e *Engine) adminDenied(ctx context.Context, actor, target string, err error, action ...string) error {
	e.metricInc(MetricAdminActionDenied)
	e.emitAudit(ctx, auditEntry{event: auditEventAdminDenied, username: target, actor: actor, err: err}, func() map[string]string {
		if len(action) == 0 {
			return nil
		}
		return map[string]string{"action": action[0]}
	})
	return err
}

func (e *Engine) adminDone(ctx context.Context, event, actor, target string, metadata map[string]string) {
	e.metricInc(MetricAdminActionSuccess)
	e.emitAudit(ctx, auditEntry{event: event, username: target, actor: actor, success: true}, func() map[string]string {
		return metadata
	})
}

func subjectOf(rec *stores.UserRecord) permission.Subject {
	return permission.Subject{Username: rec.Username, Email: rec.Email, Role: Role(rec.Role)}
}

// IsSuperAdmin reports whether email is on the super-admin allow-list.
func (e *Engine) IsSuperAdmin(email string) bool {
	if e == nil {
		return false
	}
	return e.policy.IsSuperAdmin(email)
}

// ListUsers returns one page of users ordered by username.
func (e *Engine) ListUsers(ctx context.Context, caller Identity, filter ListFilter) (UserPage, error) {
	if e == nil || e.users == nil {
		return UserPage{}, ErrEngineNotReady
	}
	if _, err := e.authorizeAdmin(ctx, caller); err != nil {
		return UserPage{}, err
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if filter.Role != "" && !filter.Role.Valid() {
		return UserPage{}, validationError("role must be one of user, collaborator, admin")
	}

	records, err := e.users.List(ctx)
	if err != nil {
		return UserPage{}, unavailable("list users", err)
	}

	matched := make([]PublicUser, 0, len(records))
	for i := range records {
		rec := &records[i]
		if filter.Active != nil && rec.IsActive != *filter.Active {
			continue
		}
		if filter.Role != "" && Role(rec.Role) != filter.Role {
			continue
		}
		matched = append(matched, publicUser(rec))
	}

	total := len(matched)
	out := UserPage{
		Users:      []PublicUser{},
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}
	start := (page - 1) * limit
	if start < total {
		end := min(start+limit, total)
		out.Users = matched[start:end]
	}
	return out, nil
}

// UserStats counts users by status and role.
func (e *Engine) UserStats(ctx context.Context, caller Identity) (UserStats, error) {
	if e == nil || e.users == nil {
		return UserStats{}, ErrEngineNotReady
	}
	if _, err := e.authorizeAdmin(ctx, caller); err != nil {
		return UserStats{}, err
	}

	records, err := e.users.List(ctx)
	if err != nil {
		return UserStats{}, unavailable("list users", err)
	}

	stats := UserStats{ByRole: make(map[Role]int, 3)}
	for _, r := range permission.Roles() {
		stats.ByRole[r] = 0
	}
	for _, rec := range records {
		stats.Total++
		if rec.IsActive {
			stats.Active++
		} else {
			stats.Inactive++
		}
		if rec.IsEmailVerified {
			stats.Verified++
		} else {
			stats.Unverified++
		}
		stats.ByRole[Role(rec.Role)]++
	}
	return stats, nil
}

// GetUser returns one user's public record.
func (e *Engine) GetUser(ctx context.Context, caller Identity, username string) (PublicUser, error) {
	if e == nil || e.users == nil {
		return PublicUser{}, ErrEngineNotReady
	}
	if _, err := e.authorizeAdmin(ctx, caller); err != nil {
		return PublicUser{}, err
	}
	rec, err := e.loadUser(ctx, normalizeUsername(username))
	if err != nil {
		return PublicUser{}, err
	}
	return publicUser(rec), nil
}

// CreateUser adds an account on behalf of an admin. The account is active and
// already verified; no verification email is sent.
func (e *Engine) CreateUser(ctx context.Context, caller Identity, in CreateUserInput) (PublicUser, error) {
	if e == nil || e.users == nil {
		return PublicUser{}, ErrEngineNotReady
	}
	actor, err := e.authorizeAdmin(ctx, caller)
	if err != nil {
		return PublicUser{}, err
	}

	username := normalizeUsername(in.Username)
	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if err := validateUsername(username); err != nil {
		return PublicUser{}, err
	}
	if err := validateEmail(email); err != nil {
		return PublicUser{}, err
	}
	if err := validateName(name); err != nil {
		return PublicUser{}, err
	}
	if err := e.checkPassword(in.Password); err != nil {
		return PublicUser{}, err
	}
	role := in.Role
	if role == "" {
		role = RoleUser
	}
	if !role.Valid() {
		return PublicUser{}, validationError("role must be one of user, collaborator, admin")
	}

	hash, err := e.hasher.Hash(in.Password)
	if err != nil {
		return PublicUser{}, unavailable("hash password", err)
	}

	now := e.clock()
	rec := &stores.UserRecord{
		ID:              uuid.NewString(),
		Username:        username,
		Email:           email,
		Name:            name,
		PasswordHash:    hash,
		Role:            string(role),
		CreatedAt:       now,
		UpdatedAt:       now,
		IsActive:        true,
		IsEmailVerified: true,
	}
	if err := e.users.Create(ctx, rec); err != nil {
		return PublicUser{}, directoryError("create user", err)
	}

	e.adminDone(ctx, auditEventAdminCreate, actor.Username, username, map[string]string{"role": rec.Role})
	return publicUser(rec), nil
}

// SetRole changes username's role.
func (e *Engine) SetRole(ctx context.Context, caller Identity, username string, role Role) (PublicUser, error) {
	if e == nil || e.users == nil {
		return PublicUser{}, ErrEngineNotReady
	}
	actor, err := e.authorizeAdmin(ctx, caller)
	if err != nil {
		return PublicUser{}, err
	}
	parsed, err := permission.ParseRole(string(role))
	if err != nil {
		return PublicUser{}, validationError("role must be one of user, collaborator, admin")
	}

	rec, err := e.loadUser(ctx, normalizeUsername(username))
	if err != nil {
		return PublicUser{}, err
	}
	if err := e.decide(ctx, actor, rec, permission.ActionRoleChange); err != nil {
		return PublicUser{}, err
	}

	previous := rec.Role
	rec.Role = string(parsed)
	rec.UpdatedAt = e.clock()
	if err := e.users.Save(ctx, rec); err != nil {
		return PublicUser{}, directoryError("save user", err)
	}

	e.adminDone(ctx, auditEventAdminRoleChange, actor.Username, rec.Username, map[string]string{
		"from": previous,
		"to":   rec.Role,
	})
	return publicUser(rec), nil
}

// SetStatus activates or deactivates username. A nil active toggles the
// current state.
func (e *Engine) SetStatus(ctx context.Context, caller Identity, username string, active *bool) (PublicUser, error) {
	if e == nil || e.users == nil {
		return PublicUser{}, ErrEngineNotReady
	}
	actor, err := e.authorizeAdmin(ctx, caller)
	if err != nil {
		return PublicUser{}, err
	}

	rec, err := e.loadUser(ctx, normalizeUsername(username))
	if err != nil {
		return PublicUser{}, err
	}
	if err := e.decide(ctx, actor, rec, permission.ActionStatusChange); err != nil {
		return PublicUser{}, err
	}

	next := !rec.IsActive
	if active != nil {
		next = *active
	}
	rec.IsActive = next
	rec.UpdatedAt = e.clock()
	if err := e.users.Save(ctx, rec); err != nil {
		return PublicUser{}, directoryError("save user", err)
	}

	if !next {
		e.metricInc(MetricAccountDisabled)
	}
	e.adminDone(ctx, auditEventAdminStatusChange, actor.Username, rec.Username, map[string]string{
		"active": boolString(next),
	})
	return publicUser(rec), nil
}

// DeleteUser removes username, its index entries and its pending-cleanup marker.
func (e *Engine) DeleteUser(ctx context.Context, caller Identity, username string) error {
	if e == nil || e.users == nil {
		return ErrEngineNotReady
	}
	actor, err := e.authorizeAdmin(ctx, caller)
	if err != nil {
		return err
	}

	rec, err := e.loadUser(ctx, normalizeUsername(username))
	if err != nil {
		return err
	}
	if err := e.decide(ctx, actor, rec, permission.ActionDelete); err != nil {
		return err
	}

	if err := e.users.Delete(ctx, rec); err != nil {
		return unavailable("delete user", err)
	}
	if err := e.pending.Clear(ctx, rec.Username); err != nil {
		e.logger.WarnContext(ctx, "clear pending cleanup marker failed", "username", rec.Username, "error", err)
	}

	e.metricInc(MetricAccountDeleted)
	e.adminDone(ctx, auditEventAdminDelete, actor.Username, rec.Username, nil)
	return nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// RequireAdmin fails with ErrAdminRequired unless id's role is exactly admin.
// It only inspects the token; engine admin operations also re-check the
// caller's stored record.
func RequireAdmin(id Identity) error {
	if err := permission.RequireAdmin(id.Role); err != nil {
		return ErrAdminRequired
	}
	return nil
}

// PromoteSuperAdmin grants the admin role to username when its email is on
// the super-admin allow-list. It needs no caller and exists to seed the
// first admin of a fresh directory.
func (e *Engine) PromoteSuperAdmin(ctx context.Context, username string) (PublicUser, error) {
	if e == nil || e.users == nil {
		return PublicUser{}, ErrEngineNotReady
	}
	rec, err := e.loadUser(ctx, normalizeUsername(username))
	if err != nil {
		return PublicUser{}, err
	}
	if !e.policy.IsSuperAdmin(rec.Email) {
		return PublicUser{}, e.adminDenied(ctx, "", rec.Username, ErrAdminRequired, "bootstrap")
	}
	if rec.Role == string(RoleAdmin) {
		return publicUser(rec), nil
	}

	previous := rec.Role
	rec.Role = string(RoleAdmin)
	rec.UpdatedAt = e.clock()
	if err := e.users.Save(ctx, rec); err != nil {
		return PublicUser{}, directoryError("save user", err)
	}
	e.adminDone(ctx, auditEventAdminRoleChange, rec.Username, rec.Username, map[string]string{
		"from": previous,
		"to":   rec.Role,
	})
	return publicUser(rec), nil
}
