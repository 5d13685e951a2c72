package model

import (
	"crypto/ed25519"
	"encoding/hex"

	"txbench/errors"
	"txbench/storage"
)

// KeyManager maps names to signing keys.
type KeyManager struct {
	table storage.Table
}

func NewKeyManager(txn *storage.Txn) *KeyManager {
	return &KeyManager{table: txn.Table(storage.TableKeys)}
}

func (m *KeyManager) Add(k Key) error {
	if k.Name == "" {
		return errors.New(errors.InvalidArgument, "key name is empty")
	}
	if len(k.Seed) != ed25519.SeedSize {
		return errors.New(errors.InvalidArgument, "key %q: invalid seed length: %d", k.Name, len(k.Seed))
	}
	return m.table.Put([]byte(k.Name), encodeKey(k))
}

// Generate creates and stores a random key under name.
func (m *KeyManager) Generate(name string) (Key, error) {
	k, err := GenerateKey(name)
	if err != nil {
		return Key{}, err
	}
	if err := m.Add(k); err != nil {
		return Key{}, err
	}
	return k, nil
}

func (m *KeyManager) Get(name string) (Key, error) {
	raw, err := m.table.Get([]byte(name))
	if errors.IsNotFound(err) {
		return Key{}, errors.New(errors.NotFound, "key %q not found", name)
	}
	if err != nil {
		return Key{}, err
	}
	return decodeKey(name, raw)
}

// List returns every stored key. Callers must not rely on the order.
func (m *KeyManager) List() ([]Key, error) {
	var out []Key
	err := m.table.ForEach(func(k, v []byte) error {
		key, err := decodeKey(string(k), v)
		if err != nil {
			return err
		}
		out = append(out, key)
		return nil
	})
	return out, err
}

// KeyView is the display form; the seed is never printed.
type KeyView struct {
	Name      string `json:"name"`
	PublicKey string `json:"public_key"`
	LockArg   string `json:"lock_arg"`
}

func (k Key) View() KeyView {
	return KeyView{
		Name:      k.Name,
		PublicKey: "0x" + hex.EncodeToString(k.PublicKey()),
		LockArg:   "0x" + hex.EncodeToString(k.LockArg()),
	}
}
