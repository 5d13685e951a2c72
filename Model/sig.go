package model

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"

	"txbench/errors"
	"txbench/helper"

	"github.com/minio/sha256-simd"
	"golang.org/x/crypto/ripemd160"
)

// LockArgSize is the length of the identity a signature lock commits to.
const LockArgSize = ripemd160.Size

// Key is a named ed25519 signing key, stored as its 32-byte seed.
type Key struct {
	Name string
	Seed []byte
}

// GenerateKey returns a key with a fresh random seed.
func GenerateKey(name string) (Key, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return Key{}, err
	}
	return Key{Name: name, Seed: seed}, nil
}

// KeyFromSeedHex recovers a key from a hex seed.
func KeyFromSeedHex(name, seedHex string) (Key, error) {
	b, err := hex.DecodeString(helper.StripHexPrefix(seedHex))
	if err != nil {
		return Key{}, errors.Wrap(errors.InvalidArgument, err, "key %q: invalid seed hex", name)
	}
	if len(b) != ed25519.SeedSize {
		return Key{}, errors.New(errors.InvalidArgument, "key %q: invalid seed length: %d", name, len(b))
	}
	return Key{Name: name, Seed: b}, nil
}

func (k Key) PrivateKey() ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(k.Seed)
}

func (k Key) PublicKey() ed25519.PublicKey {
	return k.PrivateKey().Public().(ed25519.PublicKey)
}

// LockArg is the identity a signature lock names: RIPEMD160(SHA256(pub)).
func (k Key) LockArg() []byte {
	return HashPubKey(k.PublicKey())
}

// HashPubKey = SHA256(pubkey) then RIPEMD160 (like Bitcoin)
func HashPubKey(pubkey []byte) []byte {
	sha := sha256.Sum256(pubkey)
	rip := ripemd160.New()
	_, _ = rip.Write(sha[:])
	return rip.Sum(nil)
}

// SignatureLockScript builds the lock a key can unlock.
func SignatureLockScript(codeHash Hash, k Key) Script {
	return Script{CodeHash: codeHash, Args: [][]byte{k.LockArg()}}
}

func encodeKey(k Key) []byte {
	out := make([]byte, len(k.Seed))
	copy(out, k.Seed)
	return out
}

func decodeKey(name string, data []byte) (Key, error) {
	if len(data) != ed25519.SeedSize {
		return Key{}, errors.New(errors.CorruptRecord, "key %q: seed length %d", name, len(data))
	}
	return Key{Name: name, Seed: data}, nil
}
