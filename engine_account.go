package blogAuth

import (
	"context"
	"strings"
)

// Me returns the public profile of username.
func (e *Engine) Me(ctx context.Context, username string) (PublicUser, error) {
	if e == nil || e.users == nil {
		return PublicUser{}, ErrEngineNotReady
	}
	rec, err := e.loadUser(ctx, normalizeUsername(username))
	if err != nil {
		return PublicUser{}, err
	}
	return publicUser(rec), nil
}

// UpdateProfile applies upd to the caller's own account. Username, email,
// role and status cannot change here. A password change requires the
// current password.
func (e *Engine) UpdateProfile(ctx context.Context, username string, upd ProfileUpdate) (PublicUser, error) {
	if e == nil || e.users == nil {
		return PublicUser{}, ErrEngineNotReady
	}

	username = normalizeUsername(username)
	rec, err := e.loadUser(ctx, username)
	if err != nil {
		return PublicUser{}, err
	}

	changed := false
	newName := rec.Name
	if upd.Name != nil {
		newName = strings.TrimSpace(*upd.Name)
		if err := validateName(newName); err != nil {
			return PublicUser{}, err
		}
		changed = true
	}
	if upd.AvatarURL != nil {
		v := strings.TrimSpace(*upd.AvatarURL)
		if err := validateHTTPURL("avatar_url", v); err != nil {
			return PublicUser{}, err
		}
		rec.AvatarURL = v
		changed = true
	}
	if upd.Website != nil {
		v := strings.TrimSpace(*upd.Website)
		if err := validateHTTPURL("website", v); err != nil {
			return PublicUser{}, err
		}
		rec.Website = v
		changed = true
	}
	if upd.Bio != nil {
		v := strings.TrimSpace(*upd.Bio)
		if err := validateLength("bio", v, maxBioLength); err != nil {
			return PublicUser{}, err
		}
		rec.Bio = v
		changed = true
	}
	if upd.Location != nil {
		v := strings.TrimSpace(*upd.Location)
		if err := validateLength("location", v, maxProfileField); err != nil {
			return PublicUser{}, err
		}
		rec.Location = v
		changed = true
	}

	passwordChanged := false
	if upd.NewPassword != "" {
		if upd.CurrentPassword == "" {
			return PublicUser{}, validationError("currentPassword is required to change password")
		}
		ok, err := e.hasher.Verify(upd.CurrentPassword, rec.PasswordHash)
		if err != nil {
			return PublicUser{}, unavailable("verify password", err)
		}
		if !ok {
			return PublicUser{}, ErrInvalidCredentials
		}
		if err := e.checkPassword(upd.NewPassword); err != nil {
			return PublicUser{}, err
		}
		hash, err := e.hasher.Hash(upd.NewPassword)
		if err != nil {
			return PublicUser{}, unavailable("hash password", err)
		}
		rec.PasswordHash = hash
		passwordChanged = true
		changed = true
	}

	if !changed {
		return PublicUser{}, validationError("no profile fields to update")
	}

	rec.UpdatedAt = e.clock()
	if newName != rec.Name {
		err = e.users.Rename(ctx, rec, newName)
	} else {
		err = e.users.Save(ctx, rec)
	}
	if err != nil {
		return PublicUser{}, directoryError("save profile", err)
	}

	e.metricInc(MetricProfileUpdate)
	if passwordChanged {
		e.metricInc(MetricPasswordChange)
	}
	e.emitAudit(ctx, auditEntry{event: auditEventProfileUpdate, username: username, success: true}, func() map[string]string {
		if passwordChanged {
			return map[string]string{"password_changed": "true"}
		}
		return nil
	})

	return publicUser(rec), nil
}
