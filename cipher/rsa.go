package cipher

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"

	"github.com/golang-jwt/jwt/v5"
)

type rsaOAEP struct{}

func (rsaOAEP) Name() string { return AlgorithmRSA }

// CheckKey accepts a PEM-encoded private key. Encrypt-only deployments may pass a
// public key to Encrypt directly.
func (rsaOAEP) CheckKey(key []byte) error {
	_, err := privateKey(key)
	return err
}

// Encrypt accepts either a public or a private PEM key.
func (rsaOAEP) Encrypt(plaintext string, key []byte) (string, error) {
	pub, err := publicKey(key)
	if err != nil {
		return "", err
	}
	out, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, []byte(plaintext), nil)
	if err != nil {
		return "", cryptoErr("rsa: encrypt", err)
	}
	return hex.EncodeToString(out), nil
}

func (rsaOAEP) Decrypt(ciphertext string, key []byte) (string, error) {
	priv, err := privateKey(key)
	if err != nil {
		return "", err
	}
	body, err := hex.DecodeString(ciphertext)
	if err != nil {
		return "", cryptoErr("malformed ciphertext: bad body encoding", err)
	}
	out, err := rsa.DecryptOAEP(sha256.New(), nil, priv, body, nil)
	if err != nil {
		return "", cryptoErr("rsa: decrypt", err)
	}
	return string(out), nil
}

func privateKey(pemKey []byte) (*rsa.PrivateKey, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemKey)
	if err != nil {
		return nil, cryptoErr("rsa: invalid private key", err)
	}
	return key, nil
}

func publicKey(pemKey []byte) (*rsa.PublicKey, error) {
	if key, err := jwt.ParseRSAPrivateKeyFromPEM(pemKey); err == nil {
		return &key.PublicKey, nil
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM(pemKey)
	if err != nil {
		return nil, cryptoErr("rsa: invalid key", err)
	}
	return key, nil
}
