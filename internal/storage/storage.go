// ABOUTME: Persistent key/value storage shared by the session store and request pipeline
// ABOUTME: Selects a bolt, JSON file, or in-memory driver rooted in the config directory

package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Keys under which session state is persisted
const (
	KeyCredential = "token"
	KeyIdentity   = "currentUser"
)

// Driver names accepted by Open
const (
	DriverBolt   = "bolt"
	DriverFile   = "file"
	DriverMemory = "memory"
)

// ErrNotFound is returned by Get when the key has no value
var ErrNotFound = errors.New("storage: key not found")

// Storage is a flat string key/value store. Writes are last-write-wins.
type Storage interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
	Close() error
}

// Open returns the storage driver with the given name rooted at dir
func Open(driver, dir string) (Storage, error) {
	switch driver {
	case DriverBolt, "":
		return OpenBolt(filepath.Join(dir, "storage.db"))
	case DriverFile:
		return NewFile(dir), nil
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q (want %s, %s or %s)", driver, DriverBolt, DriverFile, DriverMemory)
	}
}

// DefaultDir returns the default config directory following XDG conventions
func DefaultDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "clientcd")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "clientcd")
}
