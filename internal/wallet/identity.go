// Package wallet resolves the signing identity from the environment or a keygen file.
package wallet

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	solana "github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

const (
	// DefaultEnvVar holds a base58 encoded 64-byte secret key.
	DefaultEnvVar = "SOLANA_PRIVATE_KEY_BASE58"
	// DefaultKeypairPath is where solana-keygen writes the default identity.
	DefaultKeypairPath = "~/.config/solana/id.json"
)

var (
	// ErrIdentityNotFound means neither the env secret nor the key file is present.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrIdentityCorrupt means a source exists but does not decode into a valid key pair.
	ErrIdentityCorrupt = errors.New("identity corrupt")
)

// Options selects the sources consulted by Resolve.
type Options struct {
	EnvVar      string
	KeypairPath string
}

// Identity is a signing key pair. Every textual form renders the public key only.
type Identity struct {
	key solana.PrivateKey
}

// PublicKey returns the identity's address.
func (id Identity) PublicKey() solana.PublicKey { return id.key.PublicKey() }

// Key exposes the private key for transaction signing; never log or print it.
func (id Identity) Key() solana.PrivateKey { return id.key }

func (id Identity) String() string { return id.PublicKey().String() }
func (id Identity) GoString() string { return "wallet.Identity{" + id.PublicKey().String() + "}" }

// Format keeps %v, %+v, %#v, %s and %x from ever reaching the secret bytes.
func (id Identity) Format(f fmt.State, verb rune) {
	if verb == 'v' && f.Flag('#') {
		fmt.Fprint(f, id.GoString())
		return
	}
	fmt.Fprint(f, id.String())
}

// MarshalJSON encodes the public key.
func (id Identity) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.PublicKey().String())
}

// FromPrivateKey wraps an existing key, validating it first.
func FromPrivateKey(key solana.PrivateKey) (*Identity, error) {
	if err := validate(key); err != nil {
		return nil, err
	}
	return &Identity{key: append(solana.PrivateKey(nil), key...)}, nil
}

// Resolve returns the identity from the env secret when set, otherwise from the key file.
func Resolve(opts Options) (*Identity, error) {
	envVar := opts.EnvVar
	if envVar == "" {
		envVar = DefaultEnvVar
	}
	if encoded := strings.TrimSpace(os.Getenv(envVar)); encoded != "" {
		raw, err := base58.Decode(encoded)
		if err != nil {
			return nil, fmt.Errorf("%w: %s is not valid base58", ErrIdentityCorrupt, envVar)
		}
		id, err := FromPrivateKey(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", envVar, err)
		}
		return id, nil
	}

	path := opts.KeypairPath
	if path == "" {
		path = DefaultKeypairPath
	}
	path, err := ExpandPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIdentityNotFound, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s unset and no key file at %s", ErrIdentityNotFound, envVar, path)
		}
		return nil, fmt.Errorf("%w: read %s: %v", ErrIdentityCorrupt, path, err)
	}
	raw, err := parseKeyFile(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrIdentityCorrupt, path, err)
	}
	id, err := FromPrivateKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return id, nil
}

// parseKeyFile decodes the solana-keygen format: a JSON array of byte values.
func parseKeyFile(data []byte) (solana.PrivateKey, error) {
	var values []int
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, errors.New("not a JSON byte array")
	}
	out := make([]byte, len(values))
	for i, v := range values {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("element %d out of byte range", i)
		}
		out[i] = byte(v)
	}
	return out, nil
}

func validate(key solana.PrivateKey) error {
	if len(key) != ed25519.PrivateKeySize {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrIdentityCorrupt, ed25519.PrivateKeySize, len(key))
	}
	derived := ed25519.NewKeyFromSeed(key[:ed25519.SeedSize])
	if !bytes.Equal(derived[ed25519.SeedSize:], key[ed25519.SeedSize:]) {
		return fmt.Errorf("%w: public half does not match seed", ErrIdentityCorrupt)
	}
	return nil
}

// ExpandPath resolves a leading ~ to the home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
