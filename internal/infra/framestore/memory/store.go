// Package memory implements an in-memory frame Store for tests.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/namrataroy/kderp/internal/frame"
	"github.com/namrataroy/kderp/internal/framestore/core"
)

// Store implements core.Store backed by process memory. Objects are held in
// encoded container form so reads hand back independent copies. Intended for tests.
type Store struct {
	mu   sync.RWMutex
	objs map[string][]byte
}

// New returns an in-memory frame store.
func New() *Store { return &Store{objs: make(map[string][]byte)} }

// Driver returns the frame store driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Write stores a new frame; errors if key exists.
func (s *Store) Write(_ context.Context, key string, f *frame.Frame) error {
	var buf bytes.Buffer
	if err := core.EncodeFrame(&buf, f); err != nil {
		return err
	}
	return s.put(key, buf.Bytes())
}

// WriteMask stores a new mask; errors if key exists.
func (s *Store) WriteMask(_ context.Context, key string, m *frame.MaskFrame) error {
	var buf bytes.Buffer
	if err := core.EncodeMask(&buf, m); err != nil {
		return err
	}
	return s.put(key, buf.Bytes())
}

func (s *Store) put(key string, b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objs[key]; exists {
		return fmt.Errorf("%w: %s", core.ErrExists, key)
	}
	s.objs[key] = b
	return nil
}

// Read decodes the frame stored at key.
func (s *Store) Read(_ context.Context, key string) (*frame.Frame, error) {
	b, err := s.get(key)
	if err != nil {
		return nil, err
	}
	return core.DecodeFrame(bytes.NewReader(b))
}

// ReadMask decodes the mask stored at key.
func (s *Store) ReadMask(_ context.Context, key string) (*frame.MaskFrame, error) {
	b, err := s.get(key)
	if err != nil {
		return nil, err
	}
	return core.DecodeMask(bytes.NewReader(b))
}

func (s *Store) get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.objs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrNotFound, key)
	}
	return b, nil
}

// Exists reports whether key holds an object.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objs[key]
	return ok, nil
}

// Delete removes the object returning true if it existed.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objs[key]
	if ok {
		delete(s.objs, key)
	}
	return ok, nil
}

// List returns all keys matching prefix.
func (s *Store) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.objs))
	for k := range s.objs {
		if prefix == "" || strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
