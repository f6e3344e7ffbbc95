package store

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// JsonFileStore stores each key as a separate JSON file on disk.
//
// Layout:
//
//	data_dir/
//	  cart.json            # "cart" key
//	  demo_products.json   # "demo_products" key
//	  demo_auth_user.json  # present only while someone is logged in
//
// Writes go to a temporary file that is renamed over the target, so a
// crash mid-write never leaves a truncated value behind.
type JsonFileStore struct {
	mu  sync.RWMutex
	dir string
}

func NewJsonFileStore(dir string) (*JsonFileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &JsonFileStore{dir: dir}, nil
}

// Dir returns the data directory.
func (s *JsonFileStore) Dir() string {
	return s.dir
}

func (s *JsonFileStore) keyPath(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *JsonFileStore) Get(key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, err := os.ReadFile(s.keyPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

func (s *JsonFileStore) Put(key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// Pretty-print valid JSON so the files stay readable; anything else is
	// written as-is.
	var buf bytes.Buffer
	if err := json.Indent(&buf, value, "", "  "); err != nil {
		buf.Reset()
		buf.Write(value)
	}

	tmp, err := os.CreateTemp(s.dir, "."+key+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), s.keyPath(key)); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

func (s *JsonFileStore) Delete(key string) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.keyPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *JsonFileStore) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(names)
	return names, nil
}

func (s *JsonFileStore) Close() error {
	return nil
}
