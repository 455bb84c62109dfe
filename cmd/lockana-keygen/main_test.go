package main

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/lockana/cipher"
)

func noEnv(string) string { return "" }

func TestGenerateSymmetric(t *testing.T) {
	for _, kdf := range []string{cipher.KDFPBKDF2, cipher.KDFScrypt, cipher.KDFArgon2ID} {
		t.Run(kdf, func(t *testing.T) {
			opts, err := parseFlags([]string{"-kdf", kdf, "-length", "16"})
			require.NoError(t, err)

			var out bytes.Buffer
			require.NoError(t, generate(opts, &out, noEnv))
			key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(out.String()))
			require.NoError(t, err)
			assert.Len(t, key, 16)
		})
	}
}

func TestGenerateFromPasswordIsDeterministic(t *testing.T) {
	env := func(name string) string {
		if name == "PASS" {
			return "correct horse battery staple"
		}
		return ""
	}
	salt := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef"))
	opts, err := parseFlags([]string{"-password-env", "PASS", "-salt", salt})
	require.NoError(t, err)

	var a, b bytes.Buffer
	require.NoError(t, generate(opts, &a, env))
	require.NoError(t, generate(opts, &b, env))
	assert.Equal(t, a.String(), b.String())

	opts.salt = ""
	assert.Error(t, generate(opts, &a, env))
	opts.salt = salt
	assert.Error(t, generate(opts, &a, noEnv))
}

func TestGenerateRSAWritesPrivateKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.pem")
	opts, err := parseFlags([]string{"-kind", "rsa", "-out", path})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, generate(opts, &out, noEnv))
	assert.Contains(t, out.String(), "PUBLIC KEY")

	priv, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(priv), "PRIVATE KEY")

	suite, err := cipher.New(cipher.AlgorithmRSA)
	require.NoError(t, err)
	ct, err := suite.Encrypt("hello", out.Bytes())
	require.NoError(t, err)
	pt, err := suite.Decrypt(ct, priv)
	require.NoError(t, err)
	assert.Equal(t, "hello", pt)
}

func TestGenerateRejectsUnknownKind(t *testing.T) {
	opts, err := parseFlags([]string{"-kind", "dsa"})
	require.NoError(t, err)
	assert.Error(t, generate(opts, &bytes.Buffer{}, noEnv))
}
