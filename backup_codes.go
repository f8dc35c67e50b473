package airauth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const (
	backupCodeLength   = 8
	backupCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// CodeCipher seals and opens the backup-code set stored on an [MFASecret].
// The engine only ever sees plaintext code lists; how they are protected at
// rest is this interface's concern, so a KMS-backed implementation can be
// swapped in without touching the MFA flows.
type CodeCipher interface {
	Seal(codes []string) (string, error)
	Open(envelope string) ([]string, error)
}

// inlineKeyCipher reproduces the storage format of the system this engine
// replaced: a fresh AES-256-GCM key per seal, persisted next to the
// ciphertext as base64(key) + ":" + base64(nonce||ciphertext).
//
// Storing the key with the data reduces the encryption to obfuscation
// against anyone who can read the record. The format is kept for
// compatibility with existing rows; deployments that can migrate should
// register a [CodeCipher] backed by an external key instead.
type inlineKeyCipher struct{}

// NewInlineKeyCipher returns the compatibility [CodeCipher].
func NewInlineKeyCipher() CodeCipher {
	return inlineKeyCipher{}
}

func (inlineKeyCipher) Seal(codes []string) (string, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("generate envelope key: %w", err)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(strings.Join(codes, ",")), nil)
	return base64.StdEncoding.EncodeToString(key) + ":" +
		base64.StdEncoding.EncodeToString(sealed), nil
}

func (inlineKeyCipher) Open(envelope string) ([]string, error) {
	keyPart, dataPart, found := strings.Cut(envelope, ":")
	if !found {
		return nil, errors.New("malformed backup code envelope")
	}
	key, err := base64.StdEncoding.DecodeString(keyPart)
	if err != nil {
		return nil, errors.New("malformed envelope key")
	}
	sealed, err := base64.StdEncoding.DecodeString(dataPart)
	if err != nil {
		return nil, errors.New("malformed envelope ciphertext")
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, errors.New("envelope ciphertext truncated")
	}
	plain, err := gcm.Open(nil, sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():], nil)
	if err != nil {
		return nil, fmt.Errorf("open backup code envelope: %w", err)
	}
	return strings.Split(string(plain), ","), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("envelope cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("envelope cipher: %w", err)
	}
	return gcm, nil
}

// generateBackupCodes produces count fresh codes, 8 characters each from
// the A-Z0-9 alphabet. Codes are compared case-sensitively on use.
func generateBackupCodes(count int) ([]string, error) {
	codes := make([]string, count)
	buf := make([]byte, backupCodeLength)
	for i := range codes {
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("generate backup code: %w", err)
		}
		var b strings.Builder
		b.Grow(backupCodeLength)
		for _, by := range buf {
			b.WriteByte(backupCodeAlphabet[int(by)%len(backupCodeAlphabet)])
		}
		codes[i] = b.String()
	}
	return codes, nil
}
