// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package prefs

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned by Get for a key that was never set.
var ErrNotFound = errors.New("preference not set")

// ErrUnknownKey is returned when setting a key outside the catalogue.
var ErrUnknownKey = errors.New("unknown preference key")

// ErrInvalidValue is returned when a stored or supplied value does not
// parse as the key's type.
var ErrInvalidValue = errors.New("invalid preference value")

const keyPrefix = "pref/"

// Store reads and writes preference flags.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the raw text of key, or ErrNotFound.
	Get(key string) (string, error)

	// Bool returns key as a bool, or def when unset.
	Bool(key string, def bool) (bool, error)

	// SetBool stores key.
	SetBool(key string, v bool) error

	// Int returns key as an int, or def when unset.
	Int(key string, def int) (int, error)

	// SetInt stores key.
	SetInt(key string, v int) error

	// SetBools stores several booleans in one transaction.
	SetBools(values map[string]bool) error

	// Delete removes key. Deleting an unset key is not an error.
	Delete(key string) error

	// All returns every stored key and its raw text.
	All() (map[string]string, error)

	// Close releases the store.
	Close() error
}

// BadgerStore is the BadgerDB-backed Store.
type BadgerStore struct {
	db *badger.DB
}

// Open opens (creating if needed) the store described by cfg.
func Open(cfg Config) (*BadgerStore, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

// OpenInMemory opens an empty in-memory store.
func OpenInMemory() (*BadgerStore, error) {
	return Open(InMemoryConfig())
}

// Get returns the raw text of key.
func (s *BadgerStore) Get(key string) (string, error) {
	var value string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// Bool returns key as a bool, or def when unset.
func (s *BadgerStore) Bool(key string, def bool) (bool, error) {
	raw, err := s.Get(key)
	if errors.Is(err, ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def, fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, raw)
	}
	return v, nil
}

// SetBool stores key.
func (s *BadgerStore) SetBool(key string, v bool) error {
	return s.set(map[string]string{key: strconv.FormatBool(v)})
}

// Int returns key as an int, or def when unset.
func (s *BadgerStore) Int(key string, def int) (int, error) {
	raw, err := s.Get(key)
	if errors.Is(err, ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def, fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, raw)
	}
	return v, nil
}

// SetInt stores key.
func (s *BadgerStore) SetInt(key string, v int) error {
	return s.set(map[string]string{key: strconv.Itoa(v)})
}

// SetBools stores several booleans atomically.
func (s *BadgerStore) SetBools(values map[string]bool) error {
	raw := make(map[string]string, len(values))
	for k, v := range values {
		raw[k] = strconv.FormatBool(v)
	}
	return s.set(raw)
}

func (s *BadgerStore) set(values map[string]string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		for k, v := range values {
			if err := txn.Set([]byte(keyPrefix+k), []byte(v)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("set %s: %w", strings.Join(sortedKeys(values), ","), err)
	}
	return nil
}

// Delete removes key.
func (s *BadgerStore) Delete(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(keyPrefix + key))
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// All returns every stored key.
func (s *BadgerStore) All() (map[string]string, error) {
	out := make(map[string]string)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := strings.TrimPrefix(string(item.Key()), keyPrefix)
			if err := item.Value(func(val []byte) error {
				out[key] = string(val)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ Store = (*BadgerStore)(nil)
