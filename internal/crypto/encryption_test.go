package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(key)
}

func TestFieldEncryptorRoundTrip(t *testing.T) {
	enc, err := NewFieldEncryptor([]string{testKey(t)}, 1)
	require.NoError(t, err)

	ciphertext, version, err := enc.Encrypt("123412341234")
	require.NoError(t, err)
	assert.Equal(t, 1, version)
	assert.NotEqual(t, "123412341234", ciphertext)

	plaintext, err := enc.Decrypt(ciphertext, version)
	require.NoError(t, err)
	assert.Equal(t, "123412341234", plaintext)
}

func TestFieldEncryptorRotation(t *testing.T) {
	enc, err := NewFieldEncryptor([]string{testKey(t)}, 1)
	require.NoError(t, err)

	oldCiphertext, oldVersion, err := enc.Encrypt("9000000001")
	require.NoError(t, err)

	require.NoError(t, enc.RotateKey(testKey(t), 2))
	assert.Equal(t, 2, enc.CurrentKeyVersion())

	// Values encrypted before rotation keep decrypting under their version.
	plaintext, err := enc.Decrypt(oldCiphertext, oldVersion)
	require.NoError(t, err)
	assert.Equal(t, "9000000001", plaintext)

	_, newVersion, err := enc.Encrypt("9000000001")
	require.NoError(t, err)
	assert.Equal(t, 2, newVersion)
}

func TestFieldEncryptorValidation(t *testing.T) {
	_, err := NewFieldEncryptor(nil, 1)
	assert.Error(t, err)

	_, err = NewFieldEncryptor([]string{"not-base64!!"}, 1)
	assert.Error(t, err)

	short := base64.StdEncoding.EncodeToString([]byte("too-short"))
	_, err = NewFieldEncryptor([]string{short}, 1)
	assert.Error(t, err)

	_, err = NewFieldEncryptor([]string{testKey(t)}, 5)
	assert.Error(t, err)
}

func TestFieldEncryptorUnknownVersion(t *testing.T) {
	enc, err := NewFieldEncryptor([]string{testKey(t)}, 1)
	require.NoError(t, err)

	_, err = enc.Decrypt("AAAA", 9)
	assert.Error(t, err)
}

func TestMasking(t *testing.T) {
	assert.Equal(t, "********1234", MaskAadhar("123412341234"))
	assert.Equal(t, "90***0001", MaskMobile("9000000001"))
	assert.Equal(t, "****6789", MaskAccount("123456789"))
	assert.Equal(t, "****", MaskAadhar("12"))
	assert.Equal(t, "****", MaskMobile(""))
}
