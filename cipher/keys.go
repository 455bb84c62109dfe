package cipher

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"

	"github.com/MrEthical07/lockana/errs"
)

// Key derivation functions accepted by DeriveKey.
const (
	KDFPBKDF2   = "pbkdf2"
	KDFScrypt   = "scrypt"
	KDFArgon2ID = "argon2id"
)

// KDF parameters.
const (
	PBKDF2Iterations = 100_000
	ScryptN          = 1 << 14
	ScryptR          = 8
	ScryptP          = 1
	Argon2Time       = 1
	Argon2Memory     = 64 * 1024
	Argon2Threads    = 4
	SaltSize         = 16
	DefaultKeyLength = 32
	MinRSABits       = 2048
)

// DeriveKey stretches password into a key of length bytes.
func DeriveKey(kdf string, password, salt []byte, length int) ([]byte, error) {
	if length <= 0 {
		return nil, errs.New(errs.KindValidation, "key length must be positive")
	}
	if len(salt) == 0 {
		return nil, errs.New(errs.KindValidation, "salt must not be empty")
	}

	switch strings.ToLower(kdf) {
	case KDFPBKDF2:
		return pbkdf2.Key(password, salt, PBKDF2Iterations, length, sha256.New), nil
	case KDFScrypt:
		key, err := scrypt.Key(password, salt, ScryptN, ScryptR, ScryptP, length)
		if err != nil {
			return nil, cryptoErr("scrypt: derive key", err)
		}
		return key, nil
	case KDFArgon2ID:
		return argon2.IDKey(password, salt, Argon2Time, Argon2Memory, Argon2Threads, uint32(length)), nil
	default:
		return nil, errs.New(errs.KindValidation, "unsupported key derivation function: "+kdf)
	}
}

// GenerateKey derives a fresh key from a random password and salt.
func GenerateKey(kdf string, length int) ([]byte, error) {
	password := make([]byte, 32)
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(password); err != nil {
		return nil, cryptoErr("generate password", err)
	}
	if _, err := rand.Read(salt); err != nil {
		return nil, cryptoErr("generate salt", err)
	}
	return DeriveKey(kdf, password, salt, length)
}

// GenerateRSAKeyPEM returns a PKCS#1 PEM private key of the given size.
func GenerateRSAKeyPEM(bits int) ([]byte, error) {
	if bits < MinRSABits {
		return nil, errs.New(errs.KindValidation, fmt.Sprintf("rsa key must be at least %d bits", MinRSABits))
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, cryptoErr("rsa: generate key", err)
	}
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}), nil
}

// PublicKeyPEM extracts the PKIX public key from a PEM private key.
func PublicKeyPEM(privatePEM []byte) ([]byte, error) {
	priv, err := privateKey(privatePEM)
	if err != nil {
		return nil, err
	}
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, cryptoErr("rsa: marshal public key", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}
