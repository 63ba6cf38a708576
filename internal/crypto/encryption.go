package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"
)

// FieldEncryptor provides AES-256-GCM encryption for KYC fields stored at
// rest (Aadhar and mobile numbers). Keys are versioned so stored values
// survive rotation.
type FieldEncryptor struct {
	keys           map[int][]byte
	currentVersion int
	mu             sync.RWMutex
}

// NewFieldEncryptor creates a field encryptor with versioned keys. Keys are
// base64-encoded 32-byte values; version numbers start at 1 in list order.
func NewFieldEncryptor(keysBase64 []string, currentVersion int) (*FieldEncryptor, error) {
	if len(keysBase64) == 0 {
		return nil, errors.New("at least one encryption key is required")
	}

	keys := make(map[int][]byte)
	for i, keyB64 := range keysBase64 {
		key, err := base64.StdEncoding.DecodeString(keyB64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode key %d: %w", i+1, err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("key %d must be 32 bytes for AES-256, got %d", i+1, len(key))
		}
		keys[i+1] = key
	}

	if _, exists := keys[currentVersion]; !exists {
		return nil, fmt.Errorf("current version %d not found in keys", currentVersion)
	}

	return &FieldEncryptor{
		keys:           keys,
		currentVersion: currentVersion,
	}, nil
}

// Encrypt encrypts plaintext with the current key version and returns the
// ciphertext plus the version used.
func (e *FieldEncryptor) Encrypt(plaintext string) (string, int, error) {
	e.mu.RLock()
	key := e.keys[e.currentVersion]
	version := e.currentVersion
	e.mu.RUnlock()

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", 0, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := aesGCM.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), version, nil
}

// Decrypt decrypts ciphertext produced under the given key version.
func (e *FieldEncryptor) Decrypt(ciphertext string, keyVersion int) (string, error) {
	e.mu.RLock()
	key, exists := e.keys[keyVersion]
	e.mu.RUnlock()

	if !exists {
		return "", fmt.Errorf("key version %d not found", keyVersion)
	}

	decoded, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonceSize := aesGCM.NonceSize()
	if len(decoded) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertextBytes := decoded[:nonceSize], decoded[nonceSize:]
	plaintext, err := aesGCM.Open(nil, nonce, ciphertextBytes, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plaintext), nil
}

// CurrentKeyVersion returns the active key version.
func (e *FieldEncryptor) CurrentKeyVersion() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.currentVersion
}

// RotateKey adds a new key and makes it the current version. Previously
// stored values keep decrypting under their recorded version.
func (e *FieldEncryptor) RotateKey(newKeyBase64 string, newVersion int) error {
	newKey, err := base64.StdEncoding.DecodeString(newKeyBase64)
	if err != nil {
		return fmt.Errorf("failed to decode new key: %w", err)
	}
	if len(newKey) != 32 {
		return fmt.Errorf("new key must be 32 bytes for AES-256, got %d", len(newKey))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.keys[newVersion] = newKey
	e.currentVersion = newVersion
	return nil
}

// MaskAadhar masks an Aadhar number for log output, keeping the last four
// digits.
func MaskAadhar(value string) string {
	if len(value) < 4 {
		return "****"
	}
	return "********" + value[len(value)-4:]
}

// MaskMobile masks a mobile number for log output.
func MaskMobile(value string) string {
	if len(value) < 4 {
		return "****"
	}
	return value[:2] + "***" + value[len(value)-4:]
}

// MaskAccount masks an account identifier for log output.
func MaskAccount(value string) string {
	if len(value) < 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}
