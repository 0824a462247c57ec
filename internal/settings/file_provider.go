package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// FileProvider keeps the settings document in one JSON file. Reads pick
// individual keys out of the raw document; writes update keys in place and
// swap the file atomically. Listeners only fire after the file write
// succeeded, so a storage failure never announces state that was not saved.
type FileProvider struct {
	path string

	mu        sync.Mutex
	doc       []byte
	listeners map[int]func(changes map[string]Change)
	nextID    int
}

func NewFileProvider(path string) (*FileProvider, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("settings file path is required")
	}

	doc := []byte("{}")
	if data, err := os.ReadFile(path); err == nil {
		if !gjson.ValidBytes(data) {
			return nil, fmt.Errorf("%w: %s is not valid JSON", ErrProvider, path)
		}
		doc = data
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	return &FileProvider{
		path:      path,
		doc:       doc,
		listeners: make(map[int]func(changes map[string]Change)),
	}, nil
}

func (p *FileProvider) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	p.mu.Lock()
	doc := p.doc
	p.mu.Unlock()

	values := make(map[string]json.RawMessage, len(keys))
	for _, key := range keys {
		if v := gjson.GetBytes(doc, key); v.Exists() {
			values[key] = json.RawMessage(v.Raw)
		}
	}
	return values, nil
}

func (p *FileProvider) Set(ctx context.Context, values map[string]json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrProvider, err)
	}

	p.mu.Lock()
	doc := p.doc
	var err error
	for key, raw := range values {
		doc, err = sjson.SetRawBytes(doc, key, raw)
		if err != nil {
			p.mu.Unlock()
			return fmt.Errorf("%w: set %q: %v", ErrProvider, key, err)
		}
	}

	if err := writeFileAtomic(p.path, doc); err != nil {
		p.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrProvider, err)
	}
	p.doc = doc

	listeners := make([]func(map[string]Change), 0, len(p.listeners))
	for _, l := range p.listeners {
		listeners = append(listeners, l)
	}
	p.mu.Unlock()

	changes := make(map[string]Change, len(values))
	for key, raw := range values {
		changes[key] = Change{Raw: raw}
	}
	for _, l := range listeners {
		l(changes)
	}
	return nil
}

func (p *FileProvider) OnChange(listener func(changes map[string]Change)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = listener
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
