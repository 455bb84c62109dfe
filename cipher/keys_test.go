package cipher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKeyIsDeterministic(t *testing.T) {
	for _, kdf := range []string{KDFPBKDF2, KDFScrypt, KDFArgon2ID} {
		t.Run(kdf, func(t *testing.T) {
			a, err := DeriveKey(kdf, []byte("password"), []byte("salt-salt-salt"), 32)
			require.NoError(t, err)
			b, err := DeriveKey(kdf, []byte("password"), []byte("salt-salt-salt"), 32)
			require.NoError(t, err)
			assert.Equal(t, a, b)
			assert.Len(t, a, 32)

			c, err := DeriveKey(kdf, []byte("password"), []byte("other-salt"), 32)
			require.NoError(t, err)
			assert.NotEqual(t, a, c)
		})
	}
}

func TestDeriveKeyRejectsBadInput(t *testing.T) {
	_, err := DeriveKey("md5", []byte("p"), []byte("s"), 32)
	assert.Error(t, err)
	_, err = DeriveKey(KDFPBKDF2, []byte("p"), nil, 32)
	assert.Error(t, err)
	_, err = DeriveKey(KDFPBKDF2, []byte("p"), []byte("s"), 0)
	assert.Error(t, err)
}

func TestGeneratedKeyWorksWithSuites(t *testing.T) {
	key, err := GenerateKey(KDFScrypt, 32)
	require.NoError(t, err)

	for _, name := range []string{AlgorithmAES, AlgorithmChaCha20} {
		suite, err := New(name)
		require.NoError(t, err)
		require.NoError(t, suite.CheckKey(key))
	}

	_, err = GenerateRSAKeyPEM(1024)
	assert.Error(t, err)
}
