package auth

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
	defaultMemory     = 64 * 1024
	defaultIterations = 3
	defaultThreads    = 1
	defaultSaltLength = 16
	defaultKeyLength  = 32
)

const hashPrefix = "$argon2id$"

var ErrInvalidHash = errors.New("invalid argon2id hash")

// Hash is a parsed argon2id PHC string.
type Hash struct {
	memory     uint32
	iterations uint32
	threads    uint8
	salt       []byte
	sum        []byte
}

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	salt := make([]byte, defaultSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	h := Hash{
		memory:     defaultMemory,
		iterations: defaultIterations,
		threads:    defaultThreads,
		salt:       salt,
	}
	h.sum = h.key(password, defaultKeyLength)
	return h.String(), nil
}

func (h *Hash) key(password string, length uint32) []byte {
	return argon2.IDKey([]byte(password), h.salt, h.iterations, h.memory, h.threads, length)
}

func (h *Hash) String() string {
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		hashPrefix,
		argon2.Version,
		h.memory,
		h.iterations,
		h.threads,
		base64.RawStdEncoding.EncodeToString(h.salt),
		base64.RawStdEncoding.EncodeToString(h.sum),
	)
}

func ParseHash(phc string) (*Hash, error) {
	parts := strings.Split(phc, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, ErrInvalidHash
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return nil, fmt.Errorf("unsupported argon2id version: %s", parts[2])
	}
	h := &Hash{}
	if err := h.parseParams(parts[3]); err != nil {
		return nil, err
	}
	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, fmt.Errorf("%w: salt", ErrInvalidHash)
	}
	if h.sum, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(h.sum) == 0 {
		return nil, fmt.Errorf("%w: sum", ErrInvalidHash)
	}
	return h, nil
}

func (h *Hash) parseParams(raw string) error {
	params := strings.Split(raw, ",")
	if len(params) != 3 {
		return fmt.Errorf("%w: params", ErrInvalidHash)
	}
	for _, param := range params {
		key, val, ok := strings.Cut(param, "=")
		if !ok {
			return fmt.Errorf("%w: params", ErrInvalidHash)
		}
		switch key {
		case "m":
			n, err := strconv.ParseUint(val, 10, 32)
			if err != nil {
				return fmt.Errorf("%w: memory", ErrInvalidHash)
			}
			h.memory = uint32(n)
		case "t":
			n, err := strconv.ParseUint(val, 10, 32)
			if err != nil {
				return fmt.Errorf("%w: iterations", ErrInvalidHash)
			}
			h.iterations = uint32(n)
		case "p":
			n, err := strconv.ParseUint(val, 10, 8)
			if err != nil {
				return fmt.Errorf("%w: parallelism", ErrInvalidHash)
			}
			h.threads = uint8(n)
		default:
			return fmt.Errorf("%w: unknown param %q", ErrInvalidHash, key)
		}
	}
	return nil
}

func (h *Hash) Verify(password string) bool {
	sum := h.key(password, uint32(len(h.sum)))
	return subtle.ConstantTimeCompare(sum, h.sum) == 1
}
