// Package storage is the key-value I/O boundary of the application.
// Every backend writes each key atomically and independently: a failed Set
// leaves all other keys, and the previous value of the same key, untouched.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrStorageFailure = errors.New("storage failure")
	ErrQuotaExceeded  = errors.New("quota exceeded")
	ErrUnavailable    = errors.New("store unavailable")
)

// Store is a durable byte store addressed by string keys.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
	// Keys returns the sorted keys that start with any of the prefixes.
	Keys(ctx context.Context, prefixes ...string) ([]string, error)
	Close() error
}

// Error describes a failed store operation. It matches ErrStorageFailure
// with errors.Is, as well as whatever it wraps.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrStorageFailure }

func fail(op, key string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Op: op, Key: key, Err: err}
}

func hasAnyPrefix(key string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

func filterKeys(keys []string, prefixes []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if hasAnyPrefix(k, prefixes) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
