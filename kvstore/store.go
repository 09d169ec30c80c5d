// Package kvstore is the persistence layer shared by every cog: a small
// byte-oriented key-value interface with scoped keys and typed gob helpers.
package kvstore

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("key not found")

// Store is a key-value store that can atomically read-modify-write a single key.
type Store interface {
	// Get returns the value stored at key, or ErrNotFound.
	Get(key string) ([]byte, error)

	// Update replaces the value at key with the result of fn. old is nil when
	// the key does not exist. Returning a nil value deletes the key and
	// returning an error aborts the update. fn may be called more than once.
	Update(key string, fn func(old []byte) ([]byte, error)) error

	Close() error
}

// GuildKey scopes a value to a guild.
func GuildKey(guildID, name string) string {
	return fmt.Sprintf("guild:%v:%v", guildID, name)
}

// MemberKey scopes a value to a member of a guild.
func MemberKey(guildID, userID, name string) string {
	return fmt.Sprintf("member:%v:%v:%v", guildID, userID, name)
}

// GlobalKey scopes a value to the whole bot.
func GlobalKey(name string) string {
	return fmt.Sprintf("global:%v", name)
}

// Load decodes the value at key. A missing key yields the zero value.
func Load[T any](s Store, key string) (T, error) {
	var v T
	data, err := s.Get(key)
	if errors.Is(err, ErrNotFound) {
		return v, nil
	}
	if err != nil {
		return v, err
	}
	if err := decodeGob(data, &v); err != nil {
		return v, fmt.Errorf("decode %v: %w", key, err)
	}
	return v, nil
}

// Mutate runs fn on the decoded value at key and stores the result, all as
// one atomic update. A missing key starts from the zero value. If fn returns
// an error nothing is written and the error is returned as is.
func Mutate[T any](s Store, key string, fn func(v *T) error) error {
	return s.Update(key, func(old []byte) ([]byte, error) {
		var v T
		if old != nil {
			if err := decodeGob(old, &v); err != nil {
				return nil, fmt.Errorf("decode %v: %w", key, err)
			}
		}
		if err := fn(&v); err != nil {
			return nil, err
		}
		return encodeGob(v)
	})
}

func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(v)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v interface{}) error {
	buffer := bytes.NewReader(data)
	return gob.NewDecoder(buffer).Decode(v)
}
