// Package password hashes and verifies user passwords with argon2id.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Upper bounds accepted when reading a stored digest.
const (
	maxMemory  = 1 << 20 // KiB
	maxTime    = 16
	maxKeyLen  = 128
	maxSaltLen = 64
)

// Argon2id parameters for newly created digests.
const (
	Time    = 2
	Memory  = 19 * 1024
	Threads = 1
	KeyLen  = 32
	SaltLen = 16
)

// Hash returns an encoded argon2id digest of plain:
// $argon2id$v=19$m=19456,t=2,p=1$<salt>$<hash>
func Hash(plain string) (string, error) {
	salt := make([]byte, SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	key := argon2.IDKey([]byte(plain), salt, Time, Memory, Threads, KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, Memory, Time, Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

// Verify reports whether plain matches digest. A malformed digest never matches.
func Verify(digest, plain string) bool {
	p, salt, want, err := decode(digest)
	if err != nil {
		return false
	}
	got := argon2.IDKey([]byte(plain), salt, p.time, p.memory, p.threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}

// NeedsRehash reports whether digest was produced with parameters other than
// the current defaults, or cannot be parsed at all.
func NeedsRehash(digest string) bool {
	p, _, _, err := decode(digest)
	if err != nil {
		return true
	}
	return p.memory != Memory || p.time != Time || p.threads != Threads
}

type params struct {
	memory  uint32
	time    uint32
	threads uint8
}

func decode(digest string) (params, []byte, []byte, error) {
	var p params
	parts := strings.Split(digest, "$")
	if len(parts) != 6 {
		return p, nil, nil, fmt.Errorf("invalid hash format")
	}
	if parts[1] != "argon2id" {
		return p, nil, nil, fmt.Errorf("unsupported hash type: %s", parts[1])
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, nil, fmt.Errorf("parsing version: %w", err)
	}
	if version != argon2.Version {
		return p, nil, nil, fmt.Errorf("unsupported argon2 version %d", version)
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return p, nil, nil, fmt.Errorf("parsing parameters: %w", err)
	}
	if p.memory == 0 || p.time == 0 || p.threads == 0 {
		return p, nil, nil, fmt.Errorf("invalid parameters")
	}
	if p.memory > maxMemory || p.time > maxTime {
		return p, nil, nil, fmt.Errorf("parameters out of range: m=%d,t=%d", p.memory, p.time)
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("decoding salt: %w", err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return p, nil, nil, fmt.Errorf("decoding hash: %w", err)
	}
	if len(key) == 0 || len(key) > maxKeyLen || len(salt) > maxSaltLen {
		return p, nil, nil, fmt.Errorf("invalid hash length")
	}
	return p, salt, key, nil
}
