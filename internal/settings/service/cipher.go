package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"

	"github.com/smallbiznis/glazeops/internal/settings/domain"
)

type encryptedPayload struct {
	Version    int    `json:"version"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

var errMalformedSecret = errors.New("malformed_secret")

// secretBox seals credential strings with AES-GCM under a key derived from
// the configured settings secret.
type secretBox struct {
	key []byte
}

func newSecretBox(secret string) secretBox {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return secretBox{}
	}
	sum := sha256.Sum256([]byte(secret))
	return secretBox{key: sum[:]}
}

func (b secretBox) seal(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}
	if len(b.key) == 0 {
		return "", domain.ErrEncryptionKeyMissing
	}
	gcm, err := b.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	ciphertext := gcm.Seal(nil, nonce, []byte(plain), nil)
	out, err := json.Marshal(encryptedPayload{
		Version:    1,
		Nonce:      base64.RawStdEncoding.EncodeToString(nonce),
		Ciphertext: base64.RawStdEncoding.EncodeToString(ciphertext),
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (b secretBox) open(stored string) (string, error) {
	stored = strings.TrimSpace(stored)
	if stored == "" {
		return "", nil
	}
	if len(b.key) == 0 {
		return "", domain.ErrEncryptionKeyMissing
	}

	var payload encryptedPayload
	if err := json.Unmarshal([]byte(stored), &payload); err != nil || payload.Version != 1 {
		return "", errMalformedSecret
	}
	nonce, err := base64.RawStdEncoding.DecodeString(payload.Nonce)
	if err != nil {
		return "", errMalformedSecret
	}
	ciphertext, err := base64.RawStdEncoding.DecodeString(payload.Ciphertext)
	if err != nil {
		return "", errMalformedSecret
	}

	gcm, err := b.aead()
	if err != nil {
		return "", err
	}
	if len(nonce) != gcm.NonceSize() {
		return "", errMalformedSecret
	}
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func (b secretBox) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(b.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
