package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	algorithmID = "argon2id"

	minMemoryKB    uint32 = 8 * 1024
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	defaultMinLen         = 8
	// DefaultMaxPasswordBytes bounds the work a single hash request can cause.
	DefaultMaxPasswordBytes = 1024
)

var (
	// ErrTooShort is returned by Hash for passwords below MinLength.
	ErrTooShort = errors.New("password too short")
	// ErrTooLong is returned for passwords above MaxPasswordBytes.
	ErrTooLong = errors.New("password too long")
	// ErrMalformedHash is returned when a stored hash cannot be parsed.
	ErrMalformedHash = errors.New("malformed password hash")
)

// Config holds Argon2id cost parameters and the length policy.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	// MinLength is measured in bytes. Zero means 8.
	MinLength int
	// MaxPasswordBytes of zero means DefaultMaxPasswordBytes.
	MaxPasswordBytes int
}

// DefaultConfig returns the recommended interactive-login parameters.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
		MinLength:   defaultMinLen,
	}
}

// Hasher is safe for concurrent use.
type Hasher struct {
	cfg Config
}

type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

// NewHasher validates cfg and fills length defaults.
func NewHasher(cfg Config) (*Hasher, error) {
	switch {
	case cfg.Memory < minMemoryKB:
		return nil, fmt.Errorf("argon2 memory must be >= %d KB", minMemoryKB)
	case cfg.Time < 1:
		return nil, errors.New("argon2 time must be >= 1")
	case cfg.Parallelism < 1:
		return nil, errors.New("argon2 parallelism must be >= 1")
	case cfg.SaltLength < minSaltLength:
		return nil, fmt.Errorf("salt length must be >= %d", minSaltLength)
	case cfg.KeyLength < minKeyLength:
		return nil, fmt.Errorf("key length must be >= %d", minKeyLength)
	case cfg.MinLength < 0 || cfg.MaxPasswordBytes < 0:
		return nil, errors.New("password length bounds must not be negative")
	}
	if cfg.MinLength == 0 {
		cfg.MinLength = defaultMinLen
	}
	if cfg.MaxPasswordBytes == 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	if cfg.MaxPasswordBytes < cfg.MinLength {
		return nil, errors.New("max password bytes must be >= min length")
	}
	return &Hasher{cfg: cfg}, nil
}

// MinLength reports the minimum accepted password length in bytes.
func (h *Hasher) MinLength() int {
	return h.cfg.MinLength
}

// CheckPolicy applies the length policy without hashing.
func (h *Hasher) CheckPolicy(password string) error {
	if len(password) < h.cfg.MinLength {
		return ErrTooShort
	}
	if len(password) > h.cfg.MaxPasswordBytes {
		return ErrTooLong
	}
	return nil
}

// Hash derives a salted Argon2id key from password. Bytes are used as given,
// without Unicode normalization.
func (h *Hasher) Hash(password string) (string, error) {
	if err := h.CheckPolicy(password); err != nil {
		return "", err
	}

	salt := make([]byte, h.cfg.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(password), salt, h.cfg.Time, h.cfg.Memory, h.cfg.Parallelism, h.cfg.KeyLength)

	var b strings.Builder
	fmt.Fprintf(&b, "$%s$v=%d$m=%d,t=%d,p=%d$", algorithmID, argon2.Version, h.cfg.Memory, h.cfg.Time, h.cfg.Parallelism)
	b.WriteString(base64.RawStdEncoding.EncodeToString(salt))
	b.WriteByte('$')
	b.WriteString(base64.RawStdEncoding.EncodeToString(key))
	return b.String(), nil
}

// Verify reports whether password matches encoded. A false result with a nil
// error means a plain mismatch.
func (h *Hasher) Verify(password, encoded string) (bool, error) {
	if len(password) > h.cfg.MaxPasswordBytes {
		return false, ErrTooLong
	}
	p, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}

	key := argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.parallelism, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(key, p.key) == 1, nil
}

// NeedsUpgrade reports whether encoded was produced with weaker parameters
// than the hasher's current configuration.
func (h *Hasher) NeedsUpgrade(encoded string) (bool, error) {
	p, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	return p.memory < h.cfg.Memory ||
		p.time < h.cfg.Time ||
		p.parallelism < h.cfg.Parallelism ||
		uint32(len(p.key)) != h.cfg.KeyLength, nil
}

func parsePHC(encoded string) (*phc, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != algorithmID {
		return nil, ErrMalformedHash
	}
	if fields[2] != "v="+strconv.Itoa(argon2.Version) {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrMalformedHash, fields[2])
	}

	p := &phc{}
	seen := 0
	for _, param := range strings.Split(fields[3], ",") {
		name, raw, ok := strings.Cut(param, "=")
		if !ok {
			return nil, ErrMalformedHash
		}
		bits := 32
		if name == "p" {
			bits = 8
		}
		v, err := strconv.ParseUint(raw, 10, bits)
		if err != nil || v == 0 {
			return nil, fmt.Errorf("%w: bad parameter %q", ErrMalformedHash, name)
		}
		switch name {
		case "m":
			if v < uint64(minMemoryKB) {
				return nil, fmt.Errorf("%w: memory below floor", ErrMalformedHash)
			}
			p.memory = uint32(v)
		case "t":
			p.time = uint32(v)
		case "p":
			p.parallelism = uint8(v)
		default:
			return nil, fmt.Errorf("%w: unknown parameter %q", ErrMalformedHash, name)
		}
		seen++
	}
	if seen != 3 || p.memory == 0 || p.time == 0 || p.parallelism == 0 {
		return nil, ErrMalformedHash
	}

	var err error
	if p.salt, err = decodeSegment(fields[4]); err != nil || len(p.salt) < int(minSaltLength) {
		return nil, fmt.Errorf("%w: bad salt", ErrMalformedHash)
	}
	if p.key, err = decodeSegment(fields[5]); err != nil || len(p.key) == 0 {
		return nil, fmt.Errorf("%w: bad key", ErrMalformedHash)
	}
	return p, nil
}

// decodeSegment accepts both padded and unpadded base64.
func decodeSegment(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
