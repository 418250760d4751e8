package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/blogAuth/kv"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already exists")
	ErrEmailTaken    = errors.New("email already exists")
	ErrNameTaken     = errors.New("name already exists")
	// ErrCorruptRecord is returned for records that fail to decode.
	ErrCorruptRecord = errors.New("corrupt user record")
)

const (
	userKeyPrefix    = "user:"
	emailIndexPrefix = "user_email:"
	nameIndexPrefix  = "user_name:"
)

// UserRecord is the persisted form of an account.
type UserRecord struct {
	ID              string     `json:"id"`
	Username        string     `json:"username"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	PasswordHash    string     `json:"password_hash"`
	Role            string     `json:"role"`
	AvatarURL       string     `json:"avatar_url,omitempty"`
	Bio             string     `json:"bio,omitempty"`
	Location        string     `json:"location,omitempty"`
	Website         string     `json:"website,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
	IsActive        bool       `json:"is_active"`
	IsEmailVerified bool       `json:"is_email_verified"`
}

// UserDirectory stores user records and their secondary indexes.
type UserDirectory struct {
	kv kv.Store
}

func NewUserDirectory(store kv.Store) *UserDirectory {
	return &UserDirectory{kv: store}
}

// NormalizeEmail lower-cases and trims an email for comparison and indexing.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func userKey(username string) string { return userKeyPrefix + username }

// Get loads the record stored under user:{username}.
func (d *UserDirectory) Get(ctx context.Context, username string) (*UserRecord, error) {
	raw, err := d.kv.Get(ctx, userKey(username))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return decodeUser(raw)
}

// FindByEmail resolves the email index.
func (d *UserDirectory) FindByEmail(ctx context.Context, email string) (*UserRecord, error) {
	raw, err := d.kv.Get(ctx, emailIndexPrefix+NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	rec, err := d.Get(ctx, string(raw))
	if err != nil {
		return nil, err
	}
	if NormalizeEmail(rec.Email) != NormalizeEmail(email) {
		return nil, ErrUserNotFound
	}
	return rec, nil
}

// Create persists a new record. Username, email and display name must each be
// unused; the first collision found is returned.
func (d *UserDirectory) Create(ctx context.Context, rec *UserRecord) error {
	if _, err := d.Get(ctx, rec.Username); err == nil {
		return ErrUsernameTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return err
	}

	emailKey := emailIndexPrefix + NormalizeEmail(rec.Email)
	if err := d.reserve(ctx, emailKey, rec.Username, ErrEmailTaken); err != nil {
		return err
	}
	reserved := []string{emailKey}

	nameKey := nameIndexPrefix + normalizeName(rec.Name)
	if err := d.reserve(ctx, nameKey, rec.Username, ErrNameTaken); err != nil {
		d.release(ctx, reserved...)
		return err
	}
	reserved = append(reserved, nameKey)

	encoded, err := json.Marshal(rec)
	if err != nil {
		d.release(ctx, reserved...)
		return err
	}
	ok, err := d.kv.PutIfAbsent(ctx, userKey(rec.Username), encoded, 0)
	if err != nil {
		d.release(ctx, reserved...)
		return err
	}
	if !ok {
		d.release(ctx, reserved...)
		return ErrUsernameTaken
	}
	return nil
}

// reserve claims an index key for username.
func (d *UserDirectory) reserve(ctx context.Context, key, username string, taken error) error {
	ok, err := d.kv.PutIfAbsent(ctx, key, []byte(username), 0)
	if err != nil {
		return err
	}
	if !ok {
		return taken
	}
	return nil
}

func (d *UserDirectory) release(ctx context.Context, keys ...string) {
	// Rollback must run even when the request context is already done.
	_ = d.kv.Delete(context.WithoutCancel(ctx), keys...)
}

// Save overwrites an existing record and returns ErrUserNotFound when the
// record has been deleted since it was loaded. Indexed fields must not change
// through Save; use Rename for display names.
func (d *UserDirectory) Save(ctx context.Context, rec *UserRecord) error {
	encoded, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	ok, err := d.kv.PutIfPresent(ctx, userKey(rec.Username), encoded, 0)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}

// Rename moves the display-name index to newName and saves rec with it.
func (d *UserDirectory) Rename(ctx context.Context, rec *UserRecord, newName string) error {
	oldKey := nameIndexPrefix + normalizeName(rec.Name)
	newKey := nameIndexPrefix + normalizeName(newName)
	if oldKey == newKey {
		rec.Name = newName
		return d.Save(ctx, rec)
	}

	if err := d.reserve(ctx, newKey, rec.Username, ErrNameTaken); err != nil {
		return err
	}
	previous := rec.Name
	rec.Name = newName
	if err := d.Save(ctx, rec); err != nil {
		rec.Name = previous
		d.release(ctx, newKey)
		return err
	}
	if err := d.kv.Delete(ctx, oldKey); err != nil {
		return fmt.Errorf("release old name index: %w", err)
	}
	return nil
}

// Delete removes the record and its index entries.
func (d *UserDirectory) Delete(ctx context.Context, rec *UserRecord) error {
	return d.kv.Delete(ctx,
		userKey(rec.Username),
		emailIndexPrefix+NormalizeEmail(rec.Email),
		nameIndexPrefix+normalizeName(rec.Name),
	)
}

// List returns every record ordered by username.
func (d *UserDirectory) List(ctx context.Context) ([]UserRecord, error) {
	entries, err := d.kv.ListByPrefix(ctx, userKeyPrefix)
	if err != nil {
		return nil, err
	}

	users := make([]UserRecord, 0, len(entries))
	for _, e := range entries {
		rec, err := decodeUser(e.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Key, err)
		}
		users = append(users, *rec)
	}
	return users, nil
}

func decodeUser(raw []byte) (*UserRecord, error) {
	var rec UserRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return &rec, nil
}
