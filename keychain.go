package astroschema

import (
	"fmt"
	"strings"
	"sync"

	"github.com/lychee-technology/astroschema/jsontree"
)

// Key is a read-only view of one declared property. Two keys are Equal
// when their names match; Identical also compares the descriptors.
type Key struct {
	name string
	desc PropertyDescriptor
}

// NewKey builds a key. The name must be non-empty and lower case.
func NewKey(name string, desc PropertyDescriptor) (*Key, error) {
	if name == "" || strings.ToLower(name) != name {
		return nil, NewKeychainMutationError(ErrCodeInvalidKeyName, name,
			fmt.Sprintf("key names must be non-empty lower case, got %q", name))
	}
	return &Key{name: name, desc: desc.clone()}, nil
}

func (k *Key) Name() string { return k.name }
func (k *Key) String() string { return k.name }
func (k *Key) Description() string { return k.desc.Description }
func (k *Key) Format() string { return k.desc.Format }
func (k *Key) Unique() bool { return k.desc.Unique }
func (k *Key) Distinguishing() bool { return k.desc.Distinguishing }
func (k *Key) Required() bool { return k.desc.Required }
func (k *Key) Types() []string { return append([]string(nil), k.desc.Types...) }
func (k *Key) Extra() *jsontree.Object { return jsontree.CloneObject(k.desc.Extra) }

// Default returns a copy of the declared default.
func (k *Key) Default() (any, bool) {
	return jsontree.Clone(k.desc.Default), k.desc.HasDefault
}

// Descriptor returns a copy of the full descriptor.
func (k *Key) Descriptor() PropertyDescriptor {
	return k.desc.clone()
}

// Accessor is the upper-cased name, as used for generated constants.
func (k *Key) Accessor() string {
	return strings.ToUpper(k.name)
}

// Relevant reports whether the key takes part in record identity.
func (k *Key) Relevant() bool {
	return k.desc.Unique || k.desc.Distinguishing
}

// Equals compares names only.
func (k *Key) Equals(other *Key) bool {
	if k == nil || other == nil {
		return k == other
	}
	return k.name == other.name
}

// Identical compares names and every descriptor field.
func (k *Key) Identical(other *Key) bool {
	return k.Equals(other) && (k == other || k.desc.equal(other.desc))
}

// Keychain is the ordered set of keys declared by a schema. Whether keys
// may be replaced or added is fixed when it is built.
type Keychain struct {
	mu         sync.RWMutex
	keys       []*Key
	byName     map[string]int
	byAccessor map[string]int
	mutable    bool
	extendable bool
}

// NewKeychain derives one key per declared property of doc, in order.
// It fails without a partial result if any property cannot become a key.
func NewKeychain(doc *SchemaDocument, mutable, extendable bool) (*Keychain, error) {
	kc := &Keychain{
		byName:     make(map[string]int),
		byAccessor: make(map[string]int),
		mutable:    mutable,
		extendable: extendable,
	}
	required := doc.Required()
	var err error
	doc.tree.GetObject("properties").Range(func(name string, schema any) bool {
		var desc PropertyDescriptor
		desc, err = ParsePropertyDescriptor(name, schema, required)
		if err != nil {
			return false
		}
		var key *Key
		key, err = NewKey(name, desc)
		if err != nil {
			return false
		}
		kc.append(key)
		return true
	})
	if err != nil {
		if e, ok := AsError(err); ok {
			e.WithSchema(doc.Title())
		}
		return nil, err
	}
	return kc, nil
}

func (kc *Keychain) append(key *Key) {
	kc.byName[key.name] = len(kc.keys)
	kc.byAccessor[key.Accessor()] = len(kc.keys)
	kc.keys = append(kc.keys, key)
}

// Mutable reports whether existing keys may be replaced.
func (kc *Keychain) Mutable() bool { return kc.mutable }

// Extendable reports whether new keys may be added.
func (kc *Keychain) Extendable() bool { return kc.extendable }

// Keys returns the keys in declaration order.
func (kc *Keychain) Keys() []*Key {
	kc.mu.RLock()
	defer kc.mu.RUnlock()
	return append([]*Key(nil), kc.keys...)
}

// Names returns the key names in declaration order.
func (kc *Keychain) Names() []string {
	kc.mu.RLock()
	defer kc.mu.RUnlock()
	out := make([]string, len(kc.keys))
	for i, k := range kc.keys {
		out[i] = k.name
	}
	return out
}

func (kc *Keychain) Len() int {
	kc.mu.RLock()
	defer kc.mu.RUnlock()
	return len(kc.keys)
}

// Contains reports whether name is a declared key.
func (kc *Keychain) Contains(name string) bool {
	kc.mu.RLock()
	defer kc.mu.RUnlock()
	_, ok := kc.byName[name]
	return ok
}

// Get returns the key called name.
func (kc *Keychain) Get(name string) (*Key, bool) {
	kc.mu.RLock()
	defer kc.mu.RUnlock()
	i, ok := kc.byName[name]
	if !ok {
		return nil, false
	}
	return kc.keys[i], true
}

// Accessor looks a key up by its upper-cased name, e.g. "ALIAS".
func (kc *Keychain) Accessor(upper string) (*Key, bool) {
	kc.mu.RLock()
	defer kc.mu.RUnlock()
	i, ok := kc.byAccessor[upper]
	if !ok {
		return nil, false
	}
	return kc.keys[i], true
}

// GetKeyByName returns the key called name. With create set, a missing
// name yields a bare key with no types or flags; the keychain itself is not
// touched, use Set to store it. Without create a missing key is (nil, nil).
func (kc *Keychain) GetKeyByName(name string, create bool) (*Key, error) {
	if key, ok := kc.Get(name); ok {
		return key, nil
	}
	if !create {
		return nil, nil
	}
	return NewKey(name, PropertyDescriptor{})
}

// Set stores key, replacing a key of the same name.
func (kc *Keychain) Set(key *Key) error {
	if key == nil {
		return NewKeychainMutationError(ErrCodeInvalidKeyName, "", "nil key")
	}
	kc.mu.Lock()
	defer kc.mu.Unlock()
	if i, ok := kc.byName[key.name]; ok {
		if !kc.mutable {
			return NewKeychainMutationError(ErrCodeKeyImmutable, key.name,
				"keychain is not mutable, cannot replace an existing key")
		}
		kc.keys[i] = key
		return nil
	}
	if !kc.extendable {
		return NewKeychainMutationError(ErrCodeKeychainNotExtendable, key.name,
			"keychain is not extendable, cannot add a new key")
	}
	kc.append(key)
	return nil
}
