// Package storage provides the key-value stores the widget persists its
// viewed-id record in.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNotFound is returned by Get when no value exists for a key.
var ErrNotFound = errors.New("storage: object doesn't exist")

var keyRegex = regexp.MustCompile(`^[A-Za-z0-9_.\-]{1,128}$`)

// Store is a string-keyed store of opaque values.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// IsNotFound checks if an error indicates a key was not found.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrNotFound) || strings.Contains(err.Error(), ErrNotFound.Error())
}

// validKey rejects keys that could escape a directory or bucket prefix.
func validKey(key string) error {
	if !keyRegex.MatchString(key) || key == "." || key == ".." {
		return fmt.Errorf("invalid key %q", key)
	}
	return nil
}
