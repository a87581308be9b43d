// ABOUTME: JSON file storage driver kept in the XDG config directory
// ABOUTME: Re-reads the file on every access so other processes' writes are seen

package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// File stores all keys in one JSON object on disk
type File struct {
	configDir string
	mu        sync.Mutex
}

// NewFile creates a file store with the given config directory
func NewFile(configDir string) *File {
	return &File{configDir: configDir}
}

// configFile returns the path to the storage JSON
func (f *File) configFile() string {
	return filepath.Join(f.configDir, "storage.json")
}

// load reads the stored values from disk.
// A missing or invalid file yields an empty set.
func (f *File) load() (map[string]string, error) {
	data, err := os.ReadFile(f.configFile())
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	values := map[string]string{}
	if err := json.Unmarshal(data, &values); err != nil {
		// Invalid JSON, start fresh
		return map[string]string{}, nil
	}
	return values, nil
}

// save writes the values to disk
func (f *File) save(values map[string]string) error {
	if err := os.MkdirAll(f.configDir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(f.configFile(), data, 0600)
}

func (f *File) Get(key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return "", err
	}
	value, ok := values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (f *File) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return err
	}
	values[key] = value
	return f.save(values)
}

func (f *File) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return f.save(values)
}

func (f *File) Close() error {
	return nil
}
