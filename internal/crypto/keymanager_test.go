package crypto

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// testKeyHex is a throwaway 32-byte key, never funded anywhere.
const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "correct horse")
	require.NoError(t, err)

	got, err := DecryptKey(blob, "correct horse")
	require.NoError(t, err)
	require.Equal(t, testKeyHex, got)
}

func TestEncryptKeyAccepts0xPrefix(t *testing.T) {
	blob, err := EncryptKey("0x"+testKeyHex, "pw")
	require.NoError(t, err)

	got, err := DecryptKey(blob, "pw")
	require.NoError(t, err)
	require.Equal(t, testKeyHex, got)
}

func TestEncryptKeyRejectsBadInput(t *testing.T) {
	_, err := EncryptKey(testKeyHex, "")
	require.Error(t, err)

	_, err = EncryptKey("not-hex", "pw")
	require.Error(t, err)

	_, err = EncryptKey("deadbeef", "pw") // too short
	require.Error(t, err)
	require.Contains(t, err.Error(), "32-byte")
}

func TestDecryptKeyWrongPassword(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "right")
	require.NoError(t, err)

	_, err = DecryptKey(blob, "wrong")
	require.Error(t, err)
	require.Contains(t, err.Error(), "decryption failed")
}

func TestDecryptKeyUnsupportedVersion(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "pw")
	require.NoError(t, err)

	tampered := strings.Replace(string(blob), `"version": 1`, `"version": 99`, 1)
	_, err = DecryptKey([]byte(tampered), "pw")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported version")
}

func TestLoadKeyRawWins(t *testing.T) {
	got, err := LoadKey(KeyConfig{
		RawPrivateKey:    "0x" + testKeyHex,
		EncryptedKeyPath: "/nonexistent/key.json",
	})
	require.NoError(t, err)
	require.Equal(t, testKeyHex, got)
}

func TestLoadKeyRawInvalidHex(t *testing.T) {
	_, err := LoadKey(KeyConfig{RawPrivateKey: "zzzz"})
	require.Error(t, err)
}

func TestLoadKeyFromEncryptedFile(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "pw")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	got, err := LoadKey(KeyConfig{EncryptedKeyPath: path, KeyPassword: "pw"})
	require.NoError(t, err)
	require.Equal(t, testKeyHex, got)
}

func TestLoadKeyNoSource(t *testing.T) {
	_, err := LoadKey(KeyConfig{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no private key source")
}
