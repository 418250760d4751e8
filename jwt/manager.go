package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the signature algorithm.
type SigningMethod string

const (
	// MethodHS256 signs with a shared HMAC-SHA256 secret.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 key pair.
	MethodEd25519 SigningMethod = "ed25519"
)

// TokenType distinguishes access from refresh tokens.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

var (
	// ErrInvalidToken covers malformed tokens, bad signatures and wrong token types.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when exp has passed.
	ErrExpiredToken = errors.New("token expired")
)

// Config defines token lifetimes and signing keys.
type Config struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod SigningMethod
	// PrivateKey is the HMAC secret for hs256 or the Ed25519 private key
	// (raw or PEM) for ed25519.
	PrivateKey []byte
	PublicKey  []byte
	Issuer     string
	Leeway     time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Identity is the subject a token is issued for.
type Identity struct {
	Username string
	Role     string
	Email    string
}

// Claims is the signed payload of both token types. Subject holds the username.
type Claims struct {
	Role  string    `json:"role"`
	Email string    `json:"email,omitempty"`
	Type  TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// Username returns the subject claim.
func (c *Claims) Username() string {
	return c.Subject
}

// Manager issues and verifies tokens. It is safe for concurrent use.
type Manager struct {
	config Config
	method jwt.SigningMethod
	sign   interface{}
	verify interface{}
}

// NewManager validates cfg and prepares signing keys.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.RefreshTTL < cfg.AccessTTL {
		return nil, errors.New("refresh TTL must not be shorter than access TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	m := &Manager{config: cfg}
	switch cfg.SigningMethod {
	case MethodHS256, "":
		if len(cfg.PrivateKey) < 32 {
			return nil, errors.New("hs256 secret must be at least 32 bytes")
		}
		m.method = jwt.SigningMethodHS256
		m.sign = cfg.PrivateKey
		m.verify = cfg.PrivateKey
	case MethodEd25519:
		pub, err := parseEdPublicKey(cfg.PublicKey)
		if err != nil {
			return nil, err
		}
		m.method = jwt.SigningMethodEdDSA
		m.verify = pub
		if len(cfg.PrivateKey) > 0 {
			priv, err := parseEdPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			m.sign = priv
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return m, nil
}

// AccessTTL reports the configured access token lifetime.
func (m *Manager) AccessTTL() time.Duration {
	return m.config.AccessTTL
}

// IssueAccess signs {sub, role, email, iat, exp=iat+AccessTTL}.
func (m *Manager) IssueAccess(id Identity) (string, error) {
	token, _, err := m.issue(id, TypeAccess, m.config.AccessTTL)
	return token, err
}

// IssueRefresh signs a longer-lived refresh token with a unique jti and
// returns its claims so callers can track the id.
func (m *Manager) IssueRefresh(id Identity) (string, *Claims, error) {
	return m.issue(id, TypeRefresh, m.config.RefreshTTL)
}

func (m *Manager) issue(id Identity, typ TokenType, ttl time.Duration) (string, *Claims, error) {
	if m.sign == nil {
		return "", nil, errors.New("signing key not configured")
	}
	if strings.TrimSpace(id.Username) == "" {
		return "", nil, errors.New("token subject required")
	}

	now := m.config.Now()
	claims := &Claims{
		Role:  id.Role,
		Email: id.Email,
		Type:  typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Username,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if typ == TypeRefresh {
		claims.ID = uuid.NewString()
	}

	signed, err := jwt.NewWithClaims(m.method, claims).SignedString(m.sign)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// VerifyAccess verifies an access token.
func (m *Manager) VerifyAccess(token string) (*Claims, error) {
	return m.verifyType(token, TypeAccess)
}

// VerifyRefresh verifies a refresh token.
func (m *Manager) VerifyRefresh(token string) (*Claims, error) {
	return m.verifyType(token, TypeRefresh)
}

func (m *Manager) verifyType(token string, want TokenType) (*Claims, error) {
	claims, err := m.Verify(token)
	if err != nil {
		return nil, err
	}
	if claims.Type != want {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Verify checks signature, algorithm and expiry. It fails with
// [ErrExpiredToken] when exp has passed and [ErrInvalidToken] otherwise.
func (m *Manager) Verify(token string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.config.Now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parsed, err := jwt.NewParser(options...).ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.verify, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
