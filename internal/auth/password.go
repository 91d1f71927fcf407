// Package auth hashes and verifies user credentials with argon2id.
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

// argon2id parameters, encoded into every hash so they can be raised
// later without invalidating stored credentials.
const (
	argonMemory      = 64 * 1024
	argonIterations  = 3
	argonParallelism = 4
	saltLen          = 16
	keyLen           = 32
)

// HashPassword returns a PHC-style argon2id string:
// argon2id$v=19$m=65536,t=3,p=4$<salt_b64>$<hash_b64>
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is required")
	}
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(password), salt, argonIterations, argonMemory, argonParallelism, keyLen)
	enc := base64.RawStdEncoding
	return fmt.Sprintf("argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonIterations, argonParallelism,
		enc.EncodeToString(salt), enc.EncodeToString(key)), nil
}

// VerifyPassword checks a password against a PHC-encoded hash in
// constant time. A mismatch is (false, nil); errors are reserved for
// malformed hashes.
func VerifyPassword(password, encoded string) (bool, error) {
	if password == "" || encoded == "" {
		return false, nil
	}
	memory, iterations, parallelism, salt, want, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	got := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// DummyVerify burns the same work as a real verification. Called on
// lookups of unknown usernames so response timing does not reveal
// whether an account exists.
func DummyVerify(password string) {
	salt := make([]byte, saltLen)
	argon2.IDKey([]byte(password), salt, argonIterations, argonMemory, argonParallelism, keyLen)
}

func parsePHC(s string) (memory, iterations uint32, parallelism uint8, salt, hash []byte, err error) {
	parts := strings.Split(s, "$")
	if len(parts) != 5 || parts[0] != "argon2id" {
		return 0, 0, 0, nil, nil, errors.New("invalid password hash format")
	}
	if !strings.HasPrefix(parts[1], "v=") {
		return 0, 0, 0, nil, nil, errors.New("invalid argon2 version")
	}
	ver, err := strconv.Atoi(strings.TrimPrefix(parts[1], "v="))
	if err != nil || ver != argon2.Version {
		return 0, 0, 0, nil, nil, errors.New("unsupported argon2 version")
	}
	for _, kv := range strings.Split(parts[2], ",") {
		pair := strings.SplitN(kv, "=", 2)
		if len(pair) != 2 {
			return 0, 0, 0, nil, nil, errors.New("invalid argon2 parameters")
		}
		v, perr := strconv.ParseUint(pair[1], 10, 32)
		if perr != nil {
			return 0, 0, 0, nil, nil, errors.New("invalid argon2 parameters")
		}
		switch pair[0] {
		case "m":
			memory = uint32(v)
		case "t":
			iterations = uint32(v)
		case "p":
			if v > 255 {
				return 0, 0, 0, nil, nil, errors.New("invalid argon2 parallelism")
			}
			parallelism = uint8(v)
		default:
			return 0, 0, 0, nil, nil, errors.New("unknown argon2 parameter")
		}
	}
	enc := base64.RawStdEncoding
	if salt, err = enc.DecodeString(parts[3]); err != nil {
		return 0, 0, 0, nil, nil, errors.New("invalid argon2 salt")
	}
	if hash, err = enc.DecodeString(parts[4]); err != nil || len(hash) < 16 {
		return 0, 0, 0, nil, nil, errors.New("invalid argon2 hash")
	}
	return memory, iterations, parallelism, salt, hash, nil
}
