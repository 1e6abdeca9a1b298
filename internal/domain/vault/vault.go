// Package vault encrypts small secrets (provider API keys) before they
// reach persistent storage. Keys are derived from the device fingerprint,
// so blobs written on one machine cannot be opened on another.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"github.com/JoseDiazCodes/LibertyLM/internal/platform/errors"
)

const (
	saltSize  = 16
	nonceSize = 12
	keySize   = 32 // AES-256

	// kdfIterations is shared by the encrypt and decrypt paths. Changing
	// it (or keySize) makes every previously stored blob undecryptable;
	// there is deliberately no version tag in the blob format.
	kdfIterations = 100_000
)

// Vault performs authenticated encryption bound to a device fingerprint.
type Vault struct {
	fingerprint string
}

// New builds a vault for the given fingerprint. An empty fingerprint
// selects the computed device fingerprint.
func New(fingerprint string) *Vault {
	if fingerprint == "" {
		fingerprint = DeviceFingerprint()
	}
	return &Vault{fingerprint: fingerprint}
}

// Fingerprint returns the key-derivation input in use.
func (v *Vault) Fingerprint() string {
	return v.fingerprint
}

// deriveKey stretches the fingerprint into an AES-256 key. PBKDF2 keeps
// brute-forcing a dumped blob slow even though the fingerprint itself is
// low-entropy.
func deriveKey(fingerprint string, salt []byte) []byte {
	return pbkdf2.Key([]byte(fingerprint), salt, kdfIterations, keySize, sha256.New)
}

// Encrypt seals plaintext into base64(salt || nonce || ciphertext). Salt
// and nonce are freshly random per call, so two encryptions of the same
// input never produce the same blob.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", errors.Wrap(errors.KindEncryption, "vault.encrypt", "generate salt", err)
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Wrap(errors.KindEncryption, "vault.encrypt", "generate nonce", err)
	}

	gcm, err := newGCM(deriveKey(v.fingerprint, salt))
	if err != nil {
		return "", errors.Wrap(errors.KindEncryption, "vault.encrypt", "init cipher", err)
	}

	ciphertext := gcm.Seal(nil, nonce, []byte(plaintext), nil)

	blob := make([]byte, 0, saltSize+nonceSize+len(ciphertext))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, ciphertext...)
	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt opens a blob produced by Encrypt. It fails when the blob is
// malformed, was tampered with, or was sealed under a different
// fingerprint; there is no partial-success mode.
func (v *Vault) Decrypt(blob string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", errors.Wrap(errors.KindDecryption, "vault.decrypt", "decode blob", err)
	}
	// A valid blob carries at least salt, nonce and the GCM tag.
	if len(raw) < saltSize+nonceSize+16 {
		return "", errors.New(errors.KindDecryption, "vault.decrypt", "blob too short")
	}

	salt := raw[:saltSize]
	nonce := raw[saltSize : saltSize+nonceSize]
	ciphertext := raw[saltSize+nonceSize:]

	gcm, err := newGCM(deriveKey(v.fingerprint, salt))
	if err != nil {
		return "", errors.Wrap(errors.KindDecryption, "vault.decrypt", "init cipher", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", errors.Wrap(errors.KindDecryption, "vault.decrypt", "authentication failed", err)
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// IsDecryptionError reports whether err came from a failed decrypt, the
// signal for callers to treat the stored secret as lost and prompt for
// re-entry.
func IsDecryptionError(err error) bool {
	return errors.IsKind(err, errors.KindDecryption)
}
