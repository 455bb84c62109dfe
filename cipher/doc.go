// Package cipher implements the reversible encryption used for user secrets at rest.
//
// A [Suite] is selected once by algorithm name through [New] and then used with a key
// supplied by the caller. Ciphertexts are printable strings:
//
//   - "aes":      ivHex ":" cipherHex, AES-CBC with PKCS#7 padding and a random 16-byte IV.
//   - "chacha20": nonceHex ":" cipherHex, ChaCha20 with a random 12-byte nonce.
//   - "rsa":      cipherHex, RSA-OAEP with SHA-256 for both the hash and MGF1.
//
// Encryption is non-deterministic. Decryption of well-formed input is deterministic and
// every malformed input yields an [errs.KindCrypto] error.
//
// # What this package must NOT do
//
//   - Log or retain keys or plaintexts.
//   - Pick an algorithm on its own; callers name one explicitly.
package cipher
