// Package security hashes passwords with Argon2id and mints job PINs.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/housebook/housebook-backend/pkg/config"
)

// ErrInvalidHash is returned for anything that is not a PHC-format argon2id
// string.
var ErrInvalidHash = errors.New("invalid argon2id hash")

var b64 = base64.RawStdEncoding

// argonCost is the tunable part of a hash. It is encoded into every hash so
// changing config never invalidates stored passwords.
type argonCost struct {
	memoryKB uint32
	passes   uint32
	threads  uint8
}

// HashPassword encodes password as $argon2id$v=19$m=..,t=..,p=..$salt$key.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	cost := argonCost{
		memoryKB: uint32(bounded(cfg.ArgonMemoryKB, 8, 512<<10)),
		passes:   uint32(bounded(cfg.ArgonTime, 1, 10)),
		threads:  uint8(bounded(cfg.ArgonParallelism, 1, 255)),
	}
	salt := make([]byte, bounded(cfg.ArgonSaltLen, 8, 64))
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	key := cost.derive(password, salt, uint32(bounded(cfg.ArgonKeyLen, 16, 64)))

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, cost.memoryKB, cost.passes, cost.threads,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// VerifyPassword re-derives the key with the cost stored in encoded and
// compares in constant time.
func VerifyPassword(password, encoded string) (bool, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return false, ErrInvalidHash
	}
	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false, ErrInvalidHash
	}
	var cost argonCost
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &cost.memoryKB, &cost.passes, &cost.threads); err != nil {
		return false, ErrInvalidHash
	}
	salt, err := b64.DecodeString(fields[4])
	if err != nil || len(salt) == 0 {
		return false, ErrInvalidHash
	}
	want, err := b64.DecodeString(fields[5])
	if err != nil || len(want) == 0 {
		return false, ErrInvalidHash
	}

	got := cost.derive(password, salt, uint32(len(want)))
	return subtle.ConstantTimeCompare(want, got) == 1, nil
}

func (c argonCost) derive(password string, salt []byte, keyLen uint32) []byte {
	return argon2.IDKey([]byte(password), salt, c.passes, c.memoryKB, c.threads, keyLen)
}

func bounded(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
