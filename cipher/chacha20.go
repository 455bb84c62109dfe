package cipher

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20"
)

type chacha struct{}

func (chacha) Name() string { return AlgorithmChaCha20 }

func (chacha) CheckKey(key []byte) error {
	if len(key) != chacha20.KeySize {
		return cryptoErr(fmt.Sprintf("chacha20 key must be %d bytes, got %d", chacha20.KeySize, len(key)), nil)
	}
	return nil
}

func (c chacha) Encrypt(plaintext string, key []byte) (string, error) {
	if err := c.CheckKey(key); err != nil {
		return "", err
	}
	nonce := make([]byte, chacha20.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", cryptoErr("chacha20: generate nonce", err)
	}
	out, err := chachaXOR(key, nonce, []byte(plaintext))
	if err != nil {
		return "", err
	}
	return joinFramed(nonce, out), nil
}

func (c chacha) Decrypt(ciphertext string, key []byte) (string, error) {
	if err := c.CheckKey(key); err != nil {
		return "", err
	}
	nonce, body, err := splitFramed(ciphertext, chacha20.NonceSize)
	if err != nil {
		return "", err
	}
	out, err := chachaXOR(key, nonce, body)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func chachaXOR(key, nonce, in []byte) ([]byte, error) {
	s, err := chacha20.NewUnauthenticatedCipher(key, nonce)
	if err != nil {
		return nil, cryptoErr("chacha20: create cipher", err)
	}
	out := make([]byte, len(in))
	s.XORKeyStream(out, in)
	return out, nil
}
