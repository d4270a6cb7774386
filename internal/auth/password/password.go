// Package password hashes admin passwords with Argon2id in the PHC string
// format: $argon2id$v=19$m=<KiB>,t=<passes>,p=<lanes>$<salt>$<hash>.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

type Params struct {
	Memory  uint32
	Passes  uint32
	Lanes   uint8
	SaltLen int
	KeyLen  uint32
}

var Default = Params{
	Memory:  64 * 1024,
	Passes:  1,
	Lanes:   4,
	SaltLen: 16,
	KeyLen:  32,
}

var errMalformed = errors.New("malformed_password_hash")

type encoded struct {
	params Params
	salt   []byte
	key    []byte
}

// Hash encodes password with the default parameters.
func Hash(password string) (string, error) {
	return HashWith(password, Default)
}

func HashWith(password string, p Params) (string, error) {
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(password), salt, p.Passes, p.Memory, p.Lanes, p.KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Passes, p.Lanes,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches the stored hash. Malformed hashes
// never match.
func Verify(password, stored string) bool {
	ok, _ := Check(password, stored)
	return ok
}

// Check verifies password and also reports whether the stored hash was made
// with weaker parameters than Default and should be replaced.
func Check(password, stored string) (ok bool, rehash bool) {
	enc, err := decode(stored)
	if err != nil {
		return false, false
	}
	p := enc.params
	key := argon2.IDKey([]byte(password), enc.salt, p.Passes, p.Memory, p.Lanes, uint32(len(enc.key)))
	if subtle.ConstantTimeCompare(enc.key, key) != 1 {
		return false, false
	}
	return true, p.Memory < Default.Memory || p.Passes < Default.Passes || len(enc.key) < int(Default.KeyLen)
}

func decode(stored string) (encoded, error) {
	parts := strings.Split(stored, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return encoded{}, errMalformed
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return encoded{}, errMalformed
	}

	var enc encoded
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &enc.params.Memory, &enc.params.Passes, &enc.params.Lanes); err != nil {
		return encoded{}, errMalformed
	}
	if enc.params.Memory == 0 || enc.params.Passes == 0 || enc.params.Lanes == 0 {
		return encoded{}, errMalformed
	}

	var err error
	if enc.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return encoded{}, errMalformed
	}
	if enc.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(enc.key) == 0 {
		return encoded{}, errMalformed
	}
	enc.params.SaltLen = len(enc.salt)
	enc.params.KeyLen = uint32(len(enc.key))
	return enc, nil
}
