package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	// Tests run against a throwaway env key so the OS keychain is never touched
	testKey := make([]byte, 32)
	rand.Read(testKey)
	os.Setenv("ENCRYPTION_KEY", base64.StdEncoding.EncodeToString(testKey))

	if err := InitEncryption(); err != nil {
		panic("Failed to initialize encryption for tests: " + err.Error())
	}

	code := m.Run()
	os.Unsetenv("ENCRYPTION_KEY")
	os.Exit(code)
}

func TestEncryptDecrypt(t *testing.T) {
	t.Run("Should round-trip a portal password", func(t *testing.T) {
		plaintext := "mebbis-Sifre-2024!"

		encrypted, err := EncryptPassword(plaintext)
		require.NoError(t, err)
		assert.NotEqual(t, plaintext, encrypted)
		assert.NotEmpty(t, encrypted)

		decrypted, err := DecryptPassword(encrypted)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	})

	t.Run("Should produce different ciphertexts for the same plaintext", func(t *testing.T) {
		plaintext := "password123"

		encrypted1, err := Encrypt(plaintext)
		require.NoError(t, err)
		encrypted2, err := Encrypt(plaintext)
		require.NoError(t, err)

		// Random GCM nonce per call
		assert.NotEqual(t, encrypted1, encrypted2)

		decrypted1, err := Decrypt(encrypted1)
		require.NoError(t, err)
		decrypted2, err := Decrypt(encrypted2)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted1)
		assert.Equal(t, plaintext, decrypted2)
	})

	t.Run("Should handle Turkish characters", func(t *testing.T) {
		plaintext := "Şifre-Öğrenci-Çğüı"

		encrypted, err := Encrypt(plaintext)
		require.NoError(t, err)

		decrypted, err := Decrypt(encrypted)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	})

	t.Run("Should handle empty plaintext", func(t *testing.T) {
		encrypted, err := Encrypt("")
		require.NoError(t, err)

		decrypted, err := Decrypt(encrypted)
		require.NoError(t, err)
		assert.Equal(t, "", decrypted)
	})

	t.Run("Should fail on invalid base64", func(t *testing.T) {
		_, err := Decrypt("not-base64!!!")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decode base64")
	})

	t.Run("Should fail on truncated ciphertext", func(t *testing.T) {
		short := base64.StdEncoding.EncodeToString([]byte("tiny"))

		_, err := Decrypt(short)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "ciphertext too short")
	})

	t.Run("Should fail on tampered ciphertext", func(t *testing.T) {
		encrypted, err := Encrypt("tamper-me")
		require.NoError(t, err)

		raw, err := base64.StdEncoding.DecodeString(encrypted)
		require.NoError(t, err)
		raw[len(raw)-1] ^= 0xFF
		tampered := base64.StdEncoding.EncodeToString(raw)

		_, err = Decrypt(tampered)
		assert.Error(t, err)
	})

	t.Run("Should handle long plaintext", func(t *testing.T) {
		plaintext := strings.Repeat("uzun-metin-", 500)

		encrypted, err := Encrypt(plaintext)
		require.NoError(t, err)

		decrypted, err := Decrypt(encrypted)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	})
}

func TestKeyDerivation(t *testing.T) {
	t.Run("Should derive a key from a non-base64 env value", func(t *testing.T) {
		old := os.Getenv("ENCRYPTION_KEY")
		defer func() {
			os.Setenv("ENCRYPTION_KEY", old)
			require.NoError(t, InitEncryption())
		}()

		os.Setenv("ENCRYPTION_KEY", "just-a-passphrase")
		require.NoError(t, InitEncryption())
		assert.True(t, IsInitialized())

		encrypted, err := Encrypt("check")
		require.NoError(t, err)
		decrypted, err := Decrypt(encrypted)
		require.NoError(t, err)
		assert.Equal(t, "check", decrypted)
	})
}
