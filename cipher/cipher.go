package cipher

import (
	"encoding/hex"
	"strings"

	"github.com/MrEthical07/lockana/errs"
)

// Algorithm names accepted by New.
const (
	AlgorithmAES      = "aes"
	AlgorithmChaCha20 = "chacha20"
	AlgorithmRSA      = "rsa"
)

// aliases maps alternate spellings to canonical names.
var aliases = map[string]string{
	"aes-cbc":    AlgorithmAES,
	"cha20cha20": AlgorithmChaCha20,
	"rsa-oaep":   AlgorithmRSA,
}

// Suite encrypts and decrypts printable strings under a caller-supplied key.
//
// Implementations are stateless and safe for concurrent use.
type Suite interface {
	Name() string
	Encrypt(plaintext string, key []byte) (string, error)
	Decrypt(ciphertext string, key []byte) (string, error)
	// CheckKey validates key material without encrypting anything.
	CheckKey(key []byte) error
}

// New returns the suite registered under name. Unknown names fail with a
// validation error so misconfiguration stops startup.
func New(name string) (Suite, error) {
	switch Canonical(name) {
	case AlgorithmAES:
		return aesCBC{}, nil
	case AlgorithmChaCha20:
		return chacha{}, nil
	case AlgorithmRSA:
		return rsaOAEP{}, nil
	default:
		return nil, errs.New(errs.KindValidation, "unsupported encryption algorithm: "+name)
	}
}

// Supported reports whether New accepts name.
func Supported(name string) bool {
	_, err := New(name)
	return err == nil
}

// Canonical lower-cases name and resolves aliases.
func Canonical(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if c, ok := aliases[n]; ok {
		return c
	}
	return n
}

func cryptoErr(msg string, err error) error {
	if err == nil {
		return errs.New(errs.KindCrypto, msg)
	}
	return &errs.Error{Kind: errs.KindCrypto, Message: msg, Err: err}
}

// splitFramed decodes "prefixHex:bodyHex" and enforces the prefix length.
func splitFramed(ciphertext string, prefixLen int) (prefix, body []byte, err error) {
	head, tail, ok := strings.Cut(ciphertext, ":")
	if !ok {
		return nil, nil, cryptoErr("malformed ciphertext: missing delimiter", nil)
	}
	prefix, err = hex.DecodeString(head)
	if err != nil {
		return nil, nil, cryptoErr("malformed ciphertext: bad prefix encoding", err)
	}
	if len(prefix) != prefixLen {
		return nil, nil, cryptoErr("malformed ciphertext: bad prefix length", nil)
	}
	body, err = hex.DecodeString(tail)
	if err != nil {
		return nil, nil, cryptoErr("malformed ciphertext: bad body encoding", err)
	}
	return prefix, body, nil
}

func joinFramed(prefix, body []byte) string {
	return hex.EncodeToString(prefix) + ":" + hex.EncodeToString(body)
}
