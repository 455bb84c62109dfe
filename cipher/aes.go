package cipher

import (
	"bytes"
	"crypto/aes"
	stdcipher "crypto/cipher"
	"crypto/rand"
	"fmt"
)

type aesCBC struct{}

func (aesCBC) Name() string { return AlgorithmAES }

func (aesCBC) CheckKey(key []byte) error {
	switch len(key) {
	case 16, 24, 32:
		return nil
	default:
		return cryptoErr(fmt.Sprintf("aes key must be 16, 24 or 32 bytes, got %d", len(key)), nil)
	}
}

func (a aesCBC) Encrypt(plaintext string, key []byte) (string, error) {
	if err := a.CheckKey(key); err != nil {
		return "", err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", cryptoErr("aes: create cipher", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", cryptoErr("aes: generate iv", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	stdcipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)

	return joinFramed(iv, out), nil
}

func (a aesCBC) Decrypt(ciphertext string, key []byte) (string, error) {
	if err := a.CheckKey(key); err != nil {
		return "", err
	}
	iv, body, err := splitFramed(ciphertext, aes.BlockSize)
	if err != nil {
		return "", err
	}
	if len(body) == 0 || len(body)%aes.BlockSize != 0 {
		return "", cryptoErr("aes: ciphertext is not a multiple of the block size", nil)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", cryptoErr("aes: create cipher", err)
	}
	out := make([]byte, len(body))
	stdcipher.NewCBCDecrypter(block, iv).CryptBlocks(out, body)

	plain, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, cryptoErr("aes: invalid padding", nil)
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, cryptoErr("aes: invalid padding", nil)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, cryptoErr("aes: invalid padding", nil)
		}
	}
	return data[:len(data)-n], nil
}
