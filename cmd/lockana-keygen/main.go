// Command lockana-keygen prints key material for lockana.
//
//	lockana-keygen -kind symmetric [-kdf pbkdf2|scrypt|argon2id] [-length 32]
//	lockana-keygen -kind symmetric -password-env PASS -salt <base64>
//	lockana-keygen -kind rsa [-bits 2048] [-out key.pem]
//	lockana-keygen -kind jwt
//
// Symmetric keys and JWT secrets are printed base64 encoded, ready for
// LOCKANA_ENCRYPTION_KEY and LOCKANA_JWT_SECRET.
package main

import (
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/MrEthical07/lockana/cipher"
)

type options struct {
	kind        string
	kdf         string
	length      int
	bits        int
	passwordEnv string
	salt        string
	out         string
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if err := generate(opts, os.Stdout, os.Getenv); err != nil {
		fmt.Fprintln(os.Stderr, "lockana-keygen:", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("lockana-keygen", flag.ContinueOnError)
	fs.StringVar(&opts.kind, "kind", "symmetric", "symmetric, rsa or jwt")
	fs.StringVar(&opts.kdf, "kdf", cipher.KDFPBKDF2, "key derivation: pbkdf2, scrypt or argon2id")
	fs.IntVar(&opts.length, "length", cipher.DefaultKeyLength, "symmetric key length in bytes (16, 24 or 32)")
	fs.IntVar(&opts.bits, "bits", cipher.MinRSABits, "RSA modulus size")
	fs.StringVar(&opts.passwordEnv, "password-env", "", "derive from the password in this environment variable")
	fs.StringVar(&opts.salt, "salt", "", "base64 salt for -password-env")
	fs.StringVar(&opts.out, "out", "", "write the RSA private key here instead of stdout")
	err := fs.Parse(args)
	return opts, err
}

func generate(opts options, w io.Writer, getenv func(string) string) error {
	switch opts.kind {
	case "symmetric":
		key, err := symmetricKey(opts, getenv)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, base64.StdEncoding.EncodeToString(key))
		return err

	case "jwt":
		key, err := cipher.GenerateKey(cipher.KDFPBKDF2, 48)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, base64.StdEncoding.EncodeToString(key))
		return err

	case "rsa":
		priv, err := cipher.GenerateRSAKeyPEM(opts.bits)
		if err != nil {
			return err
		}
		if opts.out == "" {
			_, err = w.Write(priv)
			return err
		}
		if err := os.WriteFile(opts.out, priv, 0o600); err != nil {
			return err
		}
		pub, err := cipher.PublicKeyPEM(priv)
		if err != nil {
			return err
		}
		_, err = w.Write(pub)
		return err

	default:
		return fmt.Errorf("unknown kind %q", opts.kind)
	}
}

func symmetricKey(opts options, getenv func(string) string) ([]byte, error) {
	if opts.passwordEnv == "" {
		return cipher.GenerateKey(opts.kdf, opts.length)
	}

	password := getenv(opts.passwordEnv)
	if password == "" {
		return nil, fmt.Errorf("%s is empty", opts.passwordEnv)
	}
	if opts.salt == "" {
		return nil, errors.New("-salt is required with -password-env")
	}
	salt, err := base64.StdEncoding.DecodeString(opts.salt)
	if err != nil {
		return nil, fmt.Errorf("decode salt: %w", err)
	}
	return cipher.DeriveKey(opts.kdf, []byte(password), salt, opts.length)
}
